// Package dispatch fans a triggered alert out to its configured providers.
//
// Each provider dispatches independently and concurrently: one provider's
// failure or slowness never blocks another's delivery. Per-attempt
// deadlines bound a hung provider; retries use exponential backoff with
// jitter; terminal provider rejections are not retried. The wire format of
// any concrete provider lives behind the Deliverer collaborator.
package dispatch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mlenstra/shrike/internal/retry"
	"github.com/mlenstra/shrike/internal/types"
)

// Deliverer is the abstract provider delivery collaborator. A returned
// error marked retry.Terminal is a provider rejection and is not retried;
// any other error is treated as transient.
type Deliverer interface {
	Deliver(ctx context.Context, provider types.Provider, message string) error
}

// DelivererFunc adapts a function to the Deliverer interface.
type DelivererFunc func(ctx context.Context, provider types.Provider, message string) error

// Deliver implements Deliverer.
func (f DelivererFunc) Deliver(ctx context.Context, provider types.Provider, message string) error {
	return f(ctx, provider, message)
}

// Dispatcher delivers alerts to providers with per-provider retry budgets.
type Dispatcher struct {
	deliverer      Deliverer
	retryCfg       retry.Config
	attemptTimeout time.Duration
	log            *zap.Logger
	now            func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRetryConfig overrides the default retry budget.
func WithRetryConfig(cfg retry.Config) Option {
	return func(d *Dispatcher) { d.retryCfg = cfg }
}

// WithAttemptTimeout bounds each individual delivery attempt.
func WithAttemptTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.attemptTimeout = timeout }
}

// WithLogger sets the dispatcher's logger.
func WithLogger(log *zap.Logger) Option {
	return func(d *Dispatcher) { d.log = log }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// NewDispatcher creates a dispatcher around the delivery collaborator.
func NewDispatcher(deliverer Deliverer, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		deliverer:      deliverer,
		retryCfg:       retry.DefaultConfig(),
		attemptTimeout: 10 * time.Second,
		log:            zap.NewNop(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch delivers the alert's message to every provider concurrently and
// joins the outcomes. The returned slice is ordered like providers. A
// cancelled context abandons remaining retries and marks outstanding
// providers failed rather than leaking background work.
func (d *Dispatcher) Dispatch(ctx context.Context, alert *types.Alert, providers []types.Provider) []types.ProviderDeliveryResult {
	results := make([]types.ProviderDeliveryResult, len(providers))

	var wg sync.WaitGroup
	for i, provider := range providers {
		wg.Add(1)
		go func(i int, provider types.Provider) {
			defer wg.Done()
			results[i] = d.dispatchOne(ctx, alert, provider)
		}(i, provider)
	}
	wg.Wait()

	return results
}

// dispatchOne runs the retry loop for a single provider.
func (d *Dispatcher) dispatchOne(ctx context.Context, alert *types.Alert, provider types.Provider) types.ProviderDeliveryResult {
	result := types.ProviderDeliveryResult{
		ProviderID: provider.ID,
		Outcome:    types.DeliveryPending,
	}

	attempts, err := d.retryCfg.Do(ctx, func(ctx context.Context) error {
		attemptCtx := ctx
		if d.attemptTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, d.attemptTimeout)
			defer cancel()
		}
		return d.deliverer.Deliver(attemptCtx, provider, alert.Message)
	})

	result.AttemptCount = attempts
	result.LastAttemptAt = d.now().UTC()

	if err != nil {
		result.Outcome = types.DeliveryFailed
		result.Error = err.Error()
		d.log.Warn("alert delivery failed",
			zap.String("alert_id", string(alert.ID)),
			zap.String("provider_id", string(provider.ID)),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		return result
	}

	result.Outcome = types.DeliveryDelivered
	return result
}
