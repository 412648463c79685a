package types

/*
 * Policy and condition configuration shapes.
 *
 * These types mirror the JSON documents loaded from the external
 * configuration store. They are wire shapes only: internal/rules compiles
 * them into validated, pre-processed forms before any evaluation happens,
 * and load-time validation errors are reported back to the writer.
 */

// Condition is a single field comparison.
// Value is ignored for is_null/is_not_null and must be a list for in/not_in.
type Condition struct {
	Field         string `json:"field"`
	Operator      string `json:"operator"`
	Value         any    `json:"value,omitempty"`
	CaseSensitive bool   `json:"case_sensitive,omitempty"`
}

// ConditionGroup combines conditions and nested groups with a single
// combinator ("AND" or "OR"). Groups nest to arbitrary boolean trees up to
// MaxGroupDepth.
type ConditionGroup struct {
	Combinator string           `json:"combinator,omitempty"`
	Conditions []Condition      `json:"conditions,omitempty"`
	Groups     []ConditionGroup `json:"groups,omitempty"`
}

// AlertPolicy wraps a condition tree with alerting metadata. MatchAll
// selects the root combinator (AND when true, OR when false) if the root
// group does not set one explicitly.
type AlertPolicy struct {
	ID                 PolicyID       `json:"id"`
	Name               string         `json:"name"`
	Enabled            bool           `json:"enabled"`
	MatchAll           bool           `json:"match_all"`
	Rules              ConditionGroup `json:"rules"`
	Severity           Severity       `json:"severity"`
	MessageTemplate    string         `json:"message_template"`
	ThrottleWindow     Duration       `json:"throttle_window"`
	MaxAlertsPerWindow int            `json:"max_alerts_per_window"`
	ProviderIDs        []ProviderID   `json:"provider_ids"`
}
