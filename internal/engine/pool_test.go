package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mlenstra/shrike/internal/dispatch"
	"github.com/mlenstra/shrike/internal/policy"
	"github.com/mlenstra/shrike/internal/types"
)

// blockingDeliverer holds every delivery until released, signalling when the
// first one starts. Lets tests fill the pool queue deterministically.
type blockingDeliverer struct {
	started chan struct{}
	release chan struct{}
	once    bool
}

func newBlockingDeliverer() *blockingDeliverer {
	return &blockingDeliverer{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (d *blockingDeliverer) Deliver(ctx context.Context, p types.Provider, msg string) error {
	if !d.once {
		d.once = true
		close(d.started)
	}
	select {
	case <-d.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func poolEngine(t *testing.T, deliverer dispatch.Deliverer) *Engine {
	t.Helper()
	matcher, err := policy.NewMatcher([]types.AlertPolicy{{
		ID:       "pol-1",
		Enabled:  true,
		MatchAll: true,
		Severity: types.SeverityError,
		Rules: types.ConditionGroup{
			Conditions: []types.Condition{{Field: "severity", Operator: "eq", Value: "error"}},
		},
		ProviderIDs: []types.ProviderID{"prov-a"},
	}})
	if err != nil {
		t.Fatalf("NewMatcher() error = %v", err)
	}
	eng, err := New(Params{
		Matcher:    matcher,
		Providers:  []types.Provider{{ID: "prov-a", Type: "webhook"}},
		Dispatcher: dispatch.NewDispatcher(deliverer),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return eng
}

func TestPool_Lifecycle(t *testing.T) {
	eng := poolEngine(t, dispatch.DelivererFunc(func(context.Context, types.Provider, string) error {
		return nil
	}))
	pool := NewPool(eng, 2, 8)

	if err := pool.Submit(types.Record{}); !errors.Is(err, ErrPoolNotStarted) {
		t.Errorf("Submit before Start error = %v, want ErrPoolNotStarted", err)
	}

	ctx := context.Background()
	if err := pool.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := pool.Start(ctx); !errors.Is(err, ErrPoolAlreadyExists) {
		t.Errorf("second Start error = %v, want ErrPoolAlreadyExists", err)
	}

	if err := pool.Submit(types.Record{"severity": "info"}); err != nil {
		t.Errorf("Submit() error = %v", err)
	}

	if err := pool.Stop(time.Second); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := pool.Submit(types.Record{}); !errors.Is(err, ErrPoolStopped) {
		t.Errorf("Submit after Stop error = %v, want ErrPoolStopped", err)
	}
	if err := pool.Stop(time.Second); !errors.Is(err, ErrPoolStopped) {
		t.Errorf("second Stop error = %v, want ErrPoolStopped", err)
	}
}

func TestPool_QueueFullBackpressure(t *testing.T) {
	deliverer := newBlockingDeliverer()
	eng := poolEngine(t, deliverer)
	pool := NewPool(eng, 1, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := pool.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	event := types.Record{"severity": "error"}

	// First event occupies the single worker; wait until it is in-flight.
	if err := pool.Submit(event); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	<-deliverer.started

	// Second fills the queue, third has nowhere to go.
	if err := pool.Submit(event); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if err := pool.Submit(event); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Submit() error = %v, want ErrQueueFull", err)
	}

	close(deliverer.release)
	if err := pool.Stop(5 * time.Second); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestPool_StopTimeout(t *testing.T) {
	deliverer := newBlockingDeliverer()
	eng := poolEngine(t, deliverer)
	pool := NewPool(eng, 1, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := pool.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := pool.Submit(types.Record{"severity": "error"}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	<-deliverer.started

	if err := pool.Stop(10 * time.Millisecond); !errors.Is(err, ErrStopTimeout) {
		t.Errorf("Stop() error = %v, want ErrStopTimeout while delivery blocks", err)
	}
	close(deliverer.release)
}

func TestPool_ClampsInvalidSizes(t *testing.T) {
	eng := poolEngine(t, dispatch.DelivererFunc(func(context.Context, types.Provider, string) error {
		return nil
	}))
	pool := NewPool(eng, 0, 0)

	ctx := context.Background()
	if err := pool.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := pool.Submit(types.Record{"severity": "info"}); err != nil {
		t.Errorf("Submit() error = %v", err)
	}
	if err := pool.Stop(time.Second); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}
