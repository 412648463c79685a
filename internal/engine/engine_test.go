package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mlenstra/shrike/internal/dispatch"
	"github.com/mlenstra/shrike/internal/pipeline"
	"github.com/mlenstra/shrike/internal/policy"
	"github.com/mlenstra/shrike/internal/retry"
	"github.com/mlenstra/shrike/internal/types"
)

// fakeStore records persistence calls in memory.
type fakeStore struct {
	mu         sync.Mutex
	alerts     []*types.Alert
	deliveries map[types.AlertID][]types.ProviderDeliveryResult
	insertErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{deliveries: make(map[types.AlertID][]types.ProviderDeliveryResult)}
}

func (s *fakeStore) InsertAlert(ctx context.Context, alert *types.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	s.alerts = append(s.alerts, alert)
	return nil
}

func (s *fakeStore) SaveDeliveryResults(ctx context.Context, id types.AlertID, results []types.ProviderDeliveryResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries[id] = results
	return nil
}

// countingDeliverer tracks delivery attempts per provider.
type countingDeliverer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (d *countingDeliverer) Deliver(ctx context.Context, p types.Provider, msg string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	return d.err
}

func (d *countingDeliverer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func throttledPolicy() types.AlertPolicy {
	return types.AlertPolicy{
		ID:       "pol-1",
		Name:     "error storm",
		Enabled:  true,
		MatchAll: true,
		Severity: types.SeverityError,
		Rules: types.ConditionGroup{
			Conditions: []types.Condition{{Field: "severity", Operator: "eq", Value: "error"}},
		},
		MessageTemplate:    "error on {host}",
		ThrottleWindow:     types.Duration(60 * time.Second),
		MaxAlertsPerWindow: 2,
		ProviderIDs:        []types.ProviderID{"prov-a"},
	}
}

func buildEngine(t *testing.T, policies []types.AlertPolicy, store AlertStore, deliverer dispatch.Deliverer, clock func() time.Time) *Engine {
	t.Helper()
	matcher, err := policy.NewMatcher(policies)
	if err != nil {
		t.Fatalf("NewMatcher() error = %v", err)
	}
	dispatcher := dispatch.NewDispatcher(deliverer, dispatch.WithRetryConfig(retry.Config{
		MaxAttempts:  1,
		InitialDelay: time.Millisecond,
	}))
	eng, err := New(Params{
		Matcher:    matcher,
		Providers:  []types.Provider{{ID: "prov-a", Type: "webhook", Name: "a"}},
		Dispatcher: dispatcher,
		Store:      store,
		Clock:      clock,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return eng
}

func TestProcess_ThrottleAdmitsThenSuppresses(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	deliverer := &countingDeliverer{}
	eng := buildEngine(t, []types.AlertPolicy{throttledPolicy()}, store, deliverer, func() time.Time { return now })

	event := types.Record{"severity": "error", "host": "web-1"}

	var all []*types.Alert
	for i := 0; i < 3; i++ {
		alerts, err := eng.Process(context.Background(), event)
		if err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		if len(alerts) != 1 {
			t.Fatalf("event %d produced %d alerts, want 1", i, len(alerts))
		}
		all = append(all, alerts[0])
	}

	for i := 0; i < 2; i++ {
		if all[i].Status != types.AlertActive {
			t.Errorf("alert %d status = %v, want active", i, all[i].Status)
		}
		if len(all[i].DeliveryResults) != 1 || all[i].DeliveryResults[0].Outcome != types.DeliveryDelivered {
			t.Errorf("alert %d delivery results = %v, want one delivered", i, all[i].DeliveryResults)
		}
	}

	third := all[2]
	if third.Status != types.AlertSuppressed {
		t.Errorf("third alert status = %v, want suppressed", third.Status)
	}
	if len(third.DeliveryResults) != 0 {
		t.Errorf("suppressed alert has delivery results: %v", third.DeliveryResults)
	}
	if deliverer.count() != 2 {
		t.Errorf("delivery attempts = %d, want 2 (suppressed alert never dispatched)", deliverer.count())
	}

	// All three are persisted, the suppressed one included.
	if len(store.alerts) != 3 {
		t.Errorf("persisted alerts = %d, want 3", len(store.alerts))
	}
	if len(store.deliveries) != 2 {
		t.Errorf("persisted delivery result sets = %d, want 2", len(store.deliveries))
	}
}

func TestProcess_AlertFields(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	eng := buildEngine(t, []types.AlertPolicy{throttledPolicy()}, nil, &countingDeliverer{}, func() time.Time { return now })

	alerts, err := eng.Process(context.Background(), types.Record{"severity": "error", "host": "web-1"})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	alert := alerts[0]

	if alert.ID == "" {
		t.Errorf("alert ID not assigned")
	}
	if alert.PolicyID != "pol-1" {
		t.Errorf("PolicyID = %v", alert.PolicyID)
	}
	if alert.Severity != types.SeverityError {
		t.Errorf("Severity = %v", alert.Severity)
	}
	if !alert.TriggeredAt.Equal(now) {
		t.Errorf("TriggeredAt = %v, want %v", alert.TriggeredAt, now)
	}
	if alert.SourceEventRef == "" {
		t.Errorf("SourceEventRef not assigned")
	}
	if alert.Message != "error on web-1" {
		t.Errorf("Message = %q", alert.Message)
	}
}

func TestProcess_NoMatchNoAlerts(t *testing.T) {
	store := newFakeStore()
	eng := buildEngine(t, []types.AlertPolicy{throttledPolicy()}, store, &countingDeliverer{}, time.Now)

	alerts, err := eng.Process(context.Background(), types.Record{"severity": "info"})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(alerts) != 0 || len(store.alerts) != 0 {
		t.Errorf("non-matching event produced alerts: %v", alerts)
	}
}

func TestProcess_PipelineDropProducesNoAlerts(t *testing.T) {
	pl, err := pipeline.Compile(types.PipelineSpec{
		ID: "drop-info",
		Stages: []types.StageSpec{{
			Type: types.StageFilter,
			Filter: &types.ConditionGroup{
				Conditions: []types.Condition{{Field: "severity", Operator: "ne", Value: "info"}},
			},
		}},
	}, pipeline.Options{})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	matcher, err := policy.NewMatcher([]types.AlertPolicy{throttledPolicy()})
	if err != nil {
		t.Fatalf("NewMatcher() error = %v", err)
	}
	deliverer := &countingDeliverer{}
	eng, err := New(Params{
		Pipeline:   pl,
		Matcher:    matcher,
		Dispatcher: dispatch.NewDispatcher(deliverer),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	alerts, err := eng.Process(context.Background(), types.Record{"severity": "info"})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if alerts != nil {
		t.Errorf("dropped event produced alerts: %v", alerts)
	}
	if deliverer.count() != 0 {
		t.Errorf("dropped event triggered deliveries")
	}
}

func TestProcess_PipelineTransformFeedsMatcher(t *testing.T) {
	pl, err := pipeline.Compile(types.PipelineSpec{
		Stages: []types.StageSpec{{
			Type: types.StageTransformer,
			Transform: []types.TransformRule{
				{SourceField: "level", TargetField: "severity", Function: "lowercase"},
			},
		}},
	}, pipeline.Options{})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	matcher, err := policy.NewMatcher([]types.AlertPolicy{throttledPolicy()})
	if err != nil {
		t.Fatalf("NewMatcher() error = %v", err)
	}
	eng, err := New(Params{
		Pipeline:   pl,
		Matcher:    matcher,
		Dispatcher: dispatch.NewDispatcher(&countingDeliverer{}),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	alerts, err := eng.Process(context.Background(), types.Record{"level": "ERROR", "host": "web-1"})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("pipeline output should match the policy, got %d alerts", len(alerts))
	}
}

func TestProcess_StoreFailureDoesNotBlockDelivery(t *testing.T) {
	store := newFakeStore()
	store.insertErr = errors.New("disk full")
	deliverer := &countingDeliverer{}
	eng := buildEngine(t, []types.AlertPolicy{throttledPolicy()}, store, deliverer, time.Now)

	alerts, err := eng.Process(context.Background(), types.Record{"severity": "error"})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(alerts))
	}
	if deliverer.count() != 1 {
		t.Errorf("delivery attempts = %d, want 1 despite store failure", deliverer.count())
	}
}

func TestProcess_CancelledContext(t *testing.T) {
	eng := buildEngine(t, []types.AlertPolicy{throttledPolicy()}, nil, &countingDeliverer{}, time.Now)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := eng.Process(ctx, types.Record{"severity": "error"}); !errors.Is(err, context.Canceled) {
		t.Errorf("Process() error = %v, want context.Canceled", err)
	}
}

func TestNew_RequiresMatcherAndDispatcher(t *testing.T) {
	if _, err := New(Params{Dispatcher: dispatch.NewDispatcher(&countingDeliverer{})}); err == nil {
		t.Errorf("New() without matcher should fail")
	}
	matcher, err := policy.NewMatcher(nil)
	if err != nil {
		t.Fatalf("NewMatcher() error = %v", err)
	}
	if _, err := New(Params{Matcher: matcher}); err == nil {
		t.Errorf("New() without dispatcher should fail")
	}
}

func TestValidateProviderRefs(t *testing.T) {
	policies := []types.AlertPolicy{{
		ID:          "pol-1",
		ProviderIDs: []types.ProviderID{"prov-a", "prov-missing"},
	}}
	providers := []types.Provider{{ID: "prov-a"}}

	if err := ValidateProviderRefs(policies, providers); !errors.Is(err, types.ErrUnknownProvider) {
		t.Errorf("ValidateProviderRefs() error = %v, want ErrUnknownProvider", err)
	}
	if err := ValidateProviderRefs(policies[:0], providers); err != nil {
		t.Errorf("ValidateProviderRefs() with no policies error = %v", err)
	}
}
