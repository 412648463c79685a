package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig(maxAttempts int) Config {
	return Config{
		MaxAttempts:  maxAttempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	attempts, err := fastConfig(3).Do(context.Background(), func(context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestDo_RetriesTransientUntilSuccess(t *testing.T) {
	calls := 0
	attempts, err := fastConfig(5).Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if attempts != 3 || calls != 3 {
		t.Errorf("attempts = %d, calls = %d, want 3", attempts, calls)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	transient := errors.New("still down")
	calls := 0
	attempts, err := fastConfig(3).Do(context.Background(), func(context.Context) error {
		calls++
		return transient
	})
	if !errors.Is(err, transient) {
		t.Fatalf("Do() error = %v, want %v", err, transient)
	}
	if attempts != 3 || calls != 3 {
		t.Errorf("attempts = %d, calls = %d, want 3", attempts, calls)
	}
}

func TestDo_TerminalStopsImmediately(t *testing.T) {
	rejected := errors.New("bad payload")
	calls := 0
	attempts, err := fastConfig(5).Do(context.Background(), func(context.Context) error {
		calls++
		return Terminal(rejected)
	})
	if !IsTerminal(err) {
		t.Fatalf("Do() error = %v, want terminal", err)
	}
	if !errors.Is(err, rejected) {
		t.Errorf("Do() error = %v, want wrapped %v", err, rejected)
	}
	if attempts != 1 || calls != 1 {
		t.Errorf("attempts = %d, calls = %d, want 1 (no retry on terminal)", attempts, calls)
	}
}

func TestDo_ContextCancelledBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{MaxAttempts: 5, InitialDelay: time.Hour, Multiplier: 2.0}

	calls := 0
	done := make(chan struct{})
	var attempts int
	var err error
	go func() {
		attempts, err = cfg.Do(ctx, func(context.Context) error {
			calls++
			return errors.New("transient")
		})
		close(done)
	}()

	// First attempt fails, loop waits on InitialDelay; cancel unblocks it.
	time.Sleep(10 * time.Millisecond)
	cancel()
	<-done

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Do() error = %v, want context.Canceled", err)
	}
	if attempts != 1 || calls != 1 {
		t.Errorf("attempts = %d, calls = %d, want 1", attempts, calls)
	}
}

func TestDo_AlreadyCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	attempts, err := fastConfig(3).Do(ctx, func(context.Context) error {
		calls++
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Do() error = %v, want context.Canceled", err)
	}
	if attempts != 0 || calls != 0 {
		t.Errorf("attempts = %d, calls = %d, want 0", attempts, calls)
	}
}

func TestDo_ZeroMaxAttemptsRunsOnce(t *testing.T) {
	calls := 0
	attempts, err := Config{}.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if attempts != 1 || calls != 1 {
		t.Errorf("attempts = %d, calls = %d, want 1", attempts, calls)
	}
}

func TestTerminal_NilPassthrough(t *testing.T) {
	if Terminal(nil) != nil {
		t.Errorf("Terminal(nil) should be nil")
	}
	if IsTerminal(errors.New("plain")) {
		t.Errorf("plain errors are not terminal")
	}
}
