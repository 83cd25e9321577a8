// Package config parses simulator configuration from flags and
// environment variables, the way cmd/api/main.go in the teacher stack
// does (flags for deployment knobs, LOG_LEVEL-style env overrides for the
// things an operator tweaks without redeploying).
package config

import (
	"flag"
	"os"
	"time"
)

// Config holds every knob the simulator needs at start-up.
type Config struct {
	// HTTPAddr is where /metrics and /healthz are served.
	HTTPAddr string

	// Scenario names the run in the start-up log. Only the built-in
	// walkthrough (see internal/scenario) exists; this value does not
	// change what runs.
	Scenario string

	// LogLevel is debug, info, warn, or error.
	LogLevel string
	// LogFormat is console or json.
	LogFormat string

	// AuctionDeadline is how long after AuctionStart a zone closes its
	// auction, whether or not raises are still arriving.
	AuctionDeadline time.Duration
	// BidPace is the delay a spot waits before sending a raised bid in
	// answer to a BidRequest (a Poor withdrawal is sent at once), simulating a human driver's decision
	// latency rather than an instant automated response.
	BidPace time.Duration
}

// Default returns the simulator's out-of-the-box configuration.
func Default() *Config {
	return &Config{
		HTTPAddr:        ":8090",
		Scenario:        "default",
		LogLevel:        "info",
		LogFormat:       "console",
		AuctionDeadline: 2 * time.Second,
		BidPace:         500 * time.Millisecond,
	}
}

// Parse builds a Config from command-line flags layered over defaults,
// then applies environment overrides for the knobs operators expect to
// flip without touching a deploy: LOG_LEVEL and LOG_FORMAT.
func Parse(args []string) (*Config, error) {
	cfg := Default()

	fs := flag.NewFlagSet("parkingsim", flag.ContinueOnError)
	httpAddr := fs.String("http-addr", cfg.HTTPAddr, "address to serve /metrics and /healthz on")
	scenario := fs.String("scenario", cfg.Scenario, "name of the run, logged at start-up (only the built-in walkthrough runs)")
	logLevel := fs.String("log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	logFormat := fs.String("log-format", cfg.LogFormat, "log format: console, json")
	auctionDeadline := fs.Duration("auction-deadline", cfg.AuctionDeadline, "time after AuctionStart at which a zone closes its auction")
	bidPace := fs.Duration("bid-pace", cfg.BidPace, "delay a spot waits before sending a raised bid")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.HTTPAddr = *httpAddr
	cfg.Scenario = *scenario
	cfg.LogLevel = *logLevel
	cfg.LogFormat = *logFormat
	cfg.AuctionDeadline = *auctionDeadline
	cfg.BidPace = *bidPace

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.LogFormat = format
	}

	return cfg, nil
}
