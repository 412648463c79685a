package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
func LoadConfig(configPath string) (*EngineConfig, error) {
	v := viper.New()

	// Set defaults matching DefaultEngineConfig
	v.SetDefault("engine.workers", 8)
	v.SetDefault("engine.queue_size", 1024)
	v.SetDefault("dispatch.max_attempts", 3)
	v.SetDefault("dispatch.initial_delay", "100ms")
	v.SetDefault("dispatch.max_delay", "5s")
	v.SetDefault("dispatch.attempt_timeout", "10s")

	// Bind environment variables with SHRIKE_ prefix
	v.SetEnvPrefix("SHRIKE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &EngineConfig{
		Workers:                v.GetInt("engine.workers"),
		QueueSize:              v.GetInt("engine.queue_size"),
		DispatchMaxAttempts:    v.GetInt("dispatch.max_attempts"),
		DispatchInitialDelay:   v.GetDuration("dispatch.initial_delay"),
		DispatchMaxDelay:       v.GetDuration("dispatch.max_delay"),
		DispatchAttemptTimeout: v.GetDuration("dispatch.attempt_timeout"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks positive values for workers, queue size, and the
// dispatch retry budget.
func validateConfig(cfg *EngineConfig) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("engine.workers must be positive, got %d", cfg.Workers)
	}
	if cfg.QueueSize <= 0 {
		return fmt.Errorf("engine.queue_size must be positive, got %d", cfg.QueueSize)
	}
	if cfg.DispatchMaxAttempts <= 0 {
		return fmt.Errorf("dispatch.max_attempts must be positive, got %d", cfg.DispatchMaxAttempts)
	}
	if cfg.DispatchInitialDelay < 0 {
		return fmt.Errorf("dispatch.initial_delay cannot be negative, got %v", cfg.DispatchInitialDelay)
	}
	if cfg.DispatchMaxDelay < cfg.DispatchInitialDelay {
		return fmt.Errorf("dispatch.max_delay must be >= initial_delay, got %v", cfg.DispatchMaxDelay)
	}
	if cfg.DispatchAttemptTimeout <= 0 {
		return fmt.Errorf("dispatch.attempt_timeout must be positive, got %v", cfg.DispatchAttemptTimeout)
	}
	return nil
}
