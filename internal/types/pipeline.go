package types

/*
 * Pipeline configuration shapes.
 *
 * A pipeline is an ordered list of stages executed strictly in sequence.
 * StageSpec is a tagged union: Type selects which of the stage-specific
 * fields is meaningful; internal/pipeline rejects specs whose Type does not
 * match the populated field at load time.
 */

// Stage type names for StageSpec.Type.
const (
	StageTransformer = "transformer"
	StageFilter      = "filter"
	StageEnricher    = "enricher"
	StageRouter      = "router"
)

// TransformRule maps a source field through a named registry function into
// a target field. A missing source field skips the rule without error.
type TransformRule struct {
	SourceField string `json:"source_field"`
	TargetField string `json:"target_field"`
	Function    string `json:"function"`
}

// EnrichRule adds a field. Exactly one of Value, Template, Function, or
// Lookup drives the new value:
//   - Value: constant
//   - Template: "{field}" substitution against the event
//   - Function: registry function over SourceField (or no input for
//     generator functions like timestamp/uuid)
//   - Lookup: key passed to the injected lookup collaborator
type EnrichRule struct {
	TargetField string `json:"target_field"`
	Value       any    `json:"value,omitempty"`
	Template    string `json:"template,omitempty"`
	Function    string `json:"function,omitempty"`
	SourceField string `json:"source_field,omitempty"`
	Lookup      string `json:"lookup,omitempty"`
}

// Route pairs a condition group with a named sink. The first matching
// route wins.
type Route struct {
	When   ConditionGroup `json:"when"`
	Target string         `json:"target"`
}

// StageSpec is one pipeline stage definition.
type StageSpec struct {
	Type      string          `json:"type"`
	Transform []TransformRule `json:"transform,omitempty"`
	Filter    *ConditionGroup `json:"filter,omitempty"`
	Enrich    []EnrichRule    `json:"enrich,omitempty"`
	Routes    []Route         `json:"routes,omitempty"`
}

// PipelineSpec is a complete pipeline definition.
type PipelineSpec struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Stages []StageSpec `json:"stages"`
}
