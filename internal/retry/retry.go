// Package retry provides bounded exponential backoff for delivery
// attempts.
//
// The dispatcher distinguishes transient failures (retried with backoff)
// from terminal rejections (a provider explicitly refusing the message).
// Deliverers mark the latter with Terminal; Do stops immediately on them.
// All waiting respects context cancellation.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

var (
	jitterMu  sync.Mutex
	jitterSrc = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// TerminalError wraps errors that must not be retried.
type TerminalError struct {
	Err error
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("terminal: %v", e.Err)
}

func (e *TerminalError) Unwrap() error {
	return e.Err
}

// Terminal marks an error as not retryable.
func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return &TerminalError{Err: err}
}

// IsTerminal reports whether err is marked terminal.
func IsTerminal(err error) bool {
	var te *TerminalError
	return errors.As(err, &te)
}

// Config bounds the retry loop.
type Config struct {
	MaxAttempts  int           // total attempts including the first
	InitialDelay time.Duration // delay before the second attempt
	MaxDelay     time.Duration // backoff ceiling
	Multiplier   float64       // backoff multiplier, typically 2.0
	AddJitter    bool          // randomize delays against thundering herds
}

// DefaultConfig returns the dispatcher's default retry budget.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		AddJitter:    true,
	}
}

// Do executes fn until it succeeds, returns a terminal error, exhausts
// MaxAttempts, or the context is cancelled. Returns the number of attempts
// made alongside the final error; delivery results record that count.
func (cfg Config) Do(ctx context.Context, fn func(context.Context) error) (int, error) {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return attempt, nil
		}
		if IsTerminal(lastErr) {
			return attempt, lastErr
		}
		if attempt == attempts {
			break
		}

		select {
		case <-time.After(cfg.jittered(delay)):
		case <-ctx.Done():
			return attempt, ctx.Err()
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return attempts, lastErr
}

// jittered applies up to 25% random jitter to a delay.
func (cfg Config) jittered(d time.Duration) time.Duration {
	if !cfg.AddJitter || d <= 0 {
		return d
	}
	jitterMu.Lock()
	f := jitterSrc.Float64()
	jitterMu.Unlock()
	return d + time.Duration(f*0.25*float64(d))
}
