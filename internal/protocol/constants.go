package protocol

// OccupiedThresholdCM is the ultrasonic-sensor distance at or below which a spot
// is considered occupied, in centimeters — the original system's
// PARKING_OCCUPIED_THRESHOLD.
const OccupiedThresholdCM = 30
