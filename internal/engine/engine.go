// Package engine wires the processing chain end to end: pipeline ->
// policy matcher -> throttle admission -> alert store -> delivery
// dispatcher.
//
// Process is invoked per incoming event and holds no per-event state;
// events evaluate concurrently across pool workers without locking. The
// throttle store is the only shared-mutable component and synchronizes
// internally.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mlenstra/shrike/internal/dispatch"
	"github.com/mlenstra/shrike/internal/pipeline"
	"github.com/mlenstra/shrike/internal/policy"
	"github.com/mlenstra/shrike/internal/throttle"
	"github.com/mlenstra/shrike/internal/types"
)

// AlertStore persists alerts and their delivery outcomes. A nil store
// disables persistence; evaluation and delivery still run.
type AlertStore interface {
	InsertAlert(ctx context.Context, alert *types.Alert) error
	SaveDeliveryResults(ctx context.Context, id types.AlertID, results []types.ProviderDeliveryResult) error
}

// Params collects the engine's collaborators. Matcher and Dispatcher are
// required.
type Params struct {
	Pipeline   *pipeline.Pipeline // optional pre-processing chain
	Matcher    *policy.Matcher
	Providers  []types.Provider
	Dispatcher *dispatch.Dispatcher
	Store      AlertStore
	Logger     *zap.Logger
	Clock      func() time.Time
}

// Engine evaluates events against the loaded pipeline and policy set.
type Engine struct {
	pipeline   *pipeline.Pipeline
	matcher    *policy.Matcher
	providers  map[types.ProviderID]types.Provider
	throttle   *throttle.Store
	dispatcher *dispatch.Dispatcher
	store      AlertStore
	log        *zap.Logger
	now        func() time.Time
}

// New validates collaborators and builds an engine.
func New(p Params) (*Engine, error) {
	if p.Matcher == nil {
		return nil, fmt.Errorf("matcher cannot be nil")
	}
	if p.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher cannot be nil")
	}
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := p.Clock
	if now == nil {
		now = time.Now
	}

	providers := make(map[types.ProviderID]types.Provider, len(p.Providers))
	for _, provider := range p.Providers {
		providers[provider.ID] = provider
	}

	return &Engine{
		pipeline:   p.Pipeline,
		matcher:    p.Matcher,
		providers:  providers,
		throttle:   throttle.NewStore(),
		dispatcher: p.Dispatcher,
		store:      p.Store,
		log:        log,
		now:        now,
	}, nil
}

// Process runs one event through the pipeline and policy set, returning
// the alerts produced (including suppressed ones). A filter drop ends the
// run with no alerts and no error. Store failures are logged and do not
// block delivery or other policies.
func (e *Engine) Process(ctx context.Context, rec types.Record) ([]*types.Alert, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	eventID := types.NewEventID()
	current := rec

	if e.pipeline != nil {
		result := e.pipeline.Run(rec)
		if result.Dropped {
			e.log.Debug("event dropped by pipeline filter",
				zap.String("event_id", string(eventID)),
				zap.String("pipeline", e.pipeline.ID()),
			)
			return nil, nil
		}
		if result.Routed {
			e.log.Debug("event routed",
				zap.String("event_id", string(eventID)),
				zap.String("route", result.Route),
			)
		}
		current = result.Record
	}

	matches := e.matcher.Match(current)
	if len(matches) == 0 {
		return nil, nil
	}

	alerts := make([]*types.Alert, 0, len(matches))
	for _, match := range matches {
		if err := ctx.Err(); err != nil {
			return alerts, err
		}
		alerts = append(alerts, e.trigger(ctx, eventID, match))
	}

	return alerts, nil
}

// trigger runs throttle admission, persistence, and delivery for one
// policy match.
func (e *Engine) trigger(ctx context.Context, eventID types.EventID, match policy.Match) *types.Alert {
	p := match.Policy
	now := e.now().UTC()

	decision := e.throttle.Admit(p.ID, now, time.Duration(p.ThrottleWindow), p.MaxAlertsPerWindow)

	alert := &types.Alert{
		ID:             types.NewAlertID(),
		PolicyID:       p.ID,
		Status:         types.AlertActive,
		Severity:       p.Severity,
		TriggeredAt:    now,
		SourceEventRef: eventID,
		Message:        match.Message,
	}
	if decision == throttle.Suppressed {
		// Recorded for auditability, never delivered
		alert.Status = types.AlertSuppressed
	}

	e.persist(ctx, alert)

	if decision == throttle.Suppressed {
		e.log.Info("alert suppressed by throttle",
			zap.String("alert_id", string(alert.ID)),
			zap.String("policy_id", string(p.ID)),
		)
		return alert
	}

	providers := e.providersFor(p)
	if len(providers) > 0 {
		alert.DeliveryResults = e.dispatcher.Dispatch(ctx, alert, providers)
		if e.store != nil {
			if err := e.store.SaveDeliveryResults(ctx, alert.ID, alert.DeliveryResults); err != nil {
				e.log.Error("failed to record delivery results",
					zap.String("alert_id", string(alert.ID)),
					zap.Error(err),
				)
			}
		}
	}

	return alert
}

func (e *Engine) persist(ctx context.Context, alert *types.Alert) {
	if e.store == nil {
		return
	}
	if err := e.store.InsertAlert(ctx, alert); err != nil {
		e.log.Error("failed to record alert",
			zap.String("alert_id", string(alert.ID)),
			zap.String("policy_id", string(alert.PolicyID)),
			zap.Error(err),
		)
	}
}

// providersFor resolves a policy's provider references. Unknown references
// are logged and skipped; policy loading should have caught them.
func (e *Engine) providersFor(p *types.AlertPolicy) []types.Provider {
	providers := make([]types.Provider, 0, len(p.ProviderIDs))
	for _, id := range p.ProviderIDs {
		provider, ok := e.providers[id]
		if !ok {
			e.log.Warn("policy references unknown provider",
				zap.String("policy_id", string(p.ID)),
				zap.String("provider_id", string(id)),
			)
			continue
		}
		providers = append(providers, provider)
	}
	return providers
}

// ValidateProviderRefs checks that every provider a policy references is
// configured. Called at load time so dangling references surface as
// configuration errors, not delivery-time warnings.
func ValidateProviderRefs(policies []types.AlertPolicy, providers []types.Provider) error {
	known := make(map[types.ProviderID]struct{}, len(providers))
	for _, p := range providers {
		known[p.ID] = struct{}{}
	}
	for _, pol := range policies {
		for _, id := range pol.ProviderIDs {
			if _, ok := known[id]; !ok {
				return fmt.Errorf("policy %q: provider %q: %w", pol.ID, id, types.ErrUnknownProvider)
			}
		}
	}
	return nil
}
