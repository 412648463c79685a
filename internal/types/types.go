// Package types provides domain models shared across Shrike components.
//
// The engine evaluates policies and pipelines against Records: untyped
// JSON-object-shaped events. Values inside a Record are the standard
// encoding/json variants (string, float64, bool, nil, map[string]any,
// []any); every component that inspects values switches over exactly
// that set.
package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record is one structured event under evaluation. Treated as immutable by
// the engine; pipeline stages that write fields operate on a clone.
type Record map[string]any

// Clone returns a shallow copy of the record's top level. Nested maps are
// shared until a write path clones them (see rules.SetField).
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Severity levels for alert policies. Free-form strings are rejected at
// policy load time.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is one of the defined severity levels.
func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityError, SeverityCritical:
		return true
	}
	return false
}

// AlertStatus is the lifecycle state of an alert.
type AlertStatus string

const (
	AlertActive       AlertStatus = "active"
	AlertAcknowledged AlertStatus = "acknowledged"
	AlertResolved     AlertStatus = "resolved"
	AlertSuppressed   AlertStatus = "suppressed"
)

// DeliveryOutcome is the terminal state of one provider delivery.
type DeliveryOutcome string

const (
	DeliveryPending   DeliveryOutcome = "pending"
	DeliveryDelivered DeliveryOutcome = "delivered"
	DeliveryFailed    DeliveryOutcome = "failed"
)

// Provider is one configured notification channel. Config keys are
// provider-type specific (e.g. "url" for webhooks); the engine never
// interprets them, the delivery collaborator does.
type Provider struct {
	ID     ProviderID        `json:"id"`
	Type   string            `json:"type"`
	Name   string            `json:"name"`
	Config map[string]string `json:"config"`
}

// ProviderDeliveryResult records the outcome of dispatching one alert to
// one provider.
type ProviderDeliveryResult struct {
	ProviderID    ProviderID      `json:"provider_id" db:"provider_id"`
	AttemptCount  int             `json:"attempt_count" db:"attempt_count"`
	LastAttemptAt time.Time       `json:"last_attempt_at" db:"last_attempt_at"`
	Outcome       DeliveryOutcome `json:"outcome" db:"outcome"`
	Error         string          `json:"error,omitempty" db:"error"`
}

// Alert is produced by the policy matcher on a non-suppressed match (or
// with status suppressed, for auditability, when throttled). The delivery
// dispatcher mutates Status and DeliveryResults; Resolved/Acknowledged
// transitions come from an external operator.
type Alert struct {
	ID              AlertID                  `json:"id"`
	PolicyID        PolicyID                 `json:"policy_id"`
	Status          AlertStatus              `json:"status"`
	Severity        Severity                 `json:"severity"`
	TriggeredAt     time.Time                `json:"triggered_at"`
	SourceEventRef  EventID                  `json:"source_event_ref"`
	Message         string                   `json:"message"`
	DeliveryResults []ProviderDeliveryResult `json:"delivery_results,omitempty"`
}

// Duration wraps time.Duration with JSON support for both "5m" strings and
// plain numbers (interpreted as seconds). Policy documents use it for
// throttle windows.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case string:
		parsed, err := time.ParseDuration(t)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", t, err)
		}
		*d = Duration(parsed)
		return nil
	case float64:
		*d = Duration(time.Duration(t * float64(time.Second)))
		return nil
	default:
		return fmt.Errorf("invalid duration: expected string or number, got %T", v)
	}
}

// Resource limits enforced at configuration load time to keep evaluation
// costs bounded.
const (
	// MaxPathDepth caps field path segments to prevent deep recursion on
	// hostile paths. 16 levels covers any realistic audit event shape.
	MaxPathDepth = 16

	// MaxGroupDepth caps condition group nesting. 8 levels of AND/OR
	// nesting is far beyond anything the console builder emits.
	MaxGroupDepth = 8

	// MaxInOperatorValues caps in/not_in lists to keep membership tests
	// linear in a small constant.
	MaxInOperatorValues = 64

	// MaxPipelineStages caps stages per pipeline.
	MaxPipelineStages = 32
)
