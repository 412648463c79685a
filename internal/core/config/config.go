// Package config provides configuration management for the Shrike engine.
package config

import (
	"time"
)

// EngineConfig holds runtime configuration for the event engine and the
// delivery dispatcher.
type EngineConfig struct {
	Workers                int
	QueueSize              int
	DispatchMaxAttempts    int
	DispatchInitialDelay   time.Duration
	DispatchMaxDelay       time.Duration
	DispatchAttemptTimeout time.Duration
}

// DefaultEngineConfig returns configuration with default values.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		Workers:                8,
		QueueSize:              1024,
		DispatchMaxAttempts:    3,
		DispatchInitialDelay:   100 * time.Millisecond,
		DispatchMaxDelay:       5 * time.Second,
		DispatchAttemptTimeout: 10 * time.Second,
	}
}
