package session

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries the tunable parameters of a conversation session.
type Config struct {
	SilenceThreshold float64       // loudness below this is silence
	SilenceHold      time.Duration // sustained silence that ends an utterance
	MinRecording     time.Duration // segments shorter than this are noise
	MinSegmentBytes  int           // segments smaller than this are noise
	TickInterval     time.Duration // analysis cadence
	WarmupDelay      time.Duration // delay before silence analysis arms
	MaxTurns         int           // exchanges kept in history
	UserID           string        // forwarded to the chat service
}

const (
	defaultSilenceThreshold = 0.015
	defaultSilenceHold      = 2 * time.Second
	defaultMinRecording     = 1500 * time.Millisecond
	defaultMinSegmentBytes  = 1000
	defaultTickInterval     = 100 * time.Millisecond
	defaultWarmupDelay      = 500 * time.Millisecond
	defaultMaxTurns         = 2
)

// sanitized fills in the fields a session cannot function without. Zero
// minimums and a zero warm-up delay are valid configurations.
func (c Config) sanitized() Config {
	if c.SilenceThreshold <= 0 {
		c.SilenceThreshold = defaultSilenceThreshold
	}
	if c.SilenceHold <= 0 {
		c.SilenceHold = defaultSilenceHold
	}
	if c.TickInterval <= 0 {
		c.TickInterval = defaultTickInterval
	}
	if c.MaxTurns < 1 {
		c.MaxTurns = defaultMaxTurns
	}
	return c
}

// ConfigFromEnv builds a Config from environment variables, falling back to
// the reference defaults.
func ConfigFromEnv() Config {
	return Config{
		SilenceThreshold: envFloat("SILENCE_THRESHOLD", defaultSilenceThreshold),
		SilenceHold:      envMillis("SILENCE_DURATION_MS", defaultSilenceHold),
		MinRecording:     envMillis("MIN_RECORDING_MS", defaultMinRecording),
		MinSegmentBytes:  envInt("MIN_SEGMENT_BYTES", defaultMinSegmentBytes),
		TickInterval:     envMillis("TICK_INTERVAL_MS", defaultTickInterval),
		WarmupDelay:      envMillis("START_RECORDING_DELAY_MS", defaultWarmupDelay),
		MaxTurns:         envInt("MAX_TURNS", defaultMaxTurns),
		UserID:           strings.TrimSpace(os.Getenv("USER_NAME")),
	}
}

func envInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return def
}

func envMillis(key string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Millisecond
		}
	}
	return def
}
