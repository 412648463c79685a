package types

import "errors"

// Sentinel errors for Shrike operations.
//
// Configuration errors (unknown operator, invalid pattern, malformed group,
// unknown function/stage) surface at policy/pipeline load time and prevent
// activation. Evaluation anomalies (coercion failure) are per-event and
// never abort a run.
var (
	// ErrUnknownOperator indicates an operator name outside the closed set.
	ErrUnknownOperator = errors.New("unknown operator")

	// ErrInvalidPattern indicates a regex comparison value that does not compile.
	ErrInvalidPattern = errors.New("invalid regex pattern")

	// ErrInvalidCombinator indicates a combinator other than AND/OR.
	ErrInvalidCombinator = errors.New("invalid combinator")

	// ErrMalformedGroup indicates a group with neither conditions, nested
	// groups, nor a combinator.
	ErrMalformedGroup = errors.New("malformed condition group")

	// ErrGroupTooDeep indicates condition group nesting beyond MaxGroupDepth.
	ErrGroupTooDeep = errors.New("condition group nesting too deep")

	// ErrPathTooDeep indicates a field path with more than MaxPathDepth segments.
	ErrPathTooDeep = errors.New("field path exceeds maximum depth")

	// ErrEmptyPath indicates an empty field path or one with empty segments.
	ErrEmptyPath = errors.New("field path is empty")

	// ErrValueNotList indicates an in/not_in comparison value that is not a list.
	ErrValueNotList = errors.New("operator requires a list comparison value")

	// ErrTooManyInValues indicates an in/not_in list beyond MaxInOperatorValues.
	ErrTooManyInValues = errors.New("in operator has too many values")

	// ErrUnknownFunction indicates a transform function name outside the registry.
	ErrUnknownFunction = errors.New("unknown transform function")

	// ErrUnknownStageType indicates a pipeline stage type outside the closed set.
	ErrUnknownStageType = errors.New("unknown pipeline stage type")

	// ErrTooManyStages indicates a pipeline beyond MaxPipelineStages.
	ErrTooManyStages = errors.New("pipeline has too many stages")

	// ErrLookupUnavailable indicates an enrich lookup rule with no lookup
	// collaborator configured.
	ErrLookupUnavailable = errors.New("no lookup collaborator configured")

	// ErrCoercionFailed indicates a per-event type coercion failure
	// (evaluation anomaly, not a configuration error).
	ErrCoercionFailed = errors.New("type coercion failed")

	// ErrInvalidSeverity indicates a policy severity outside the defined levels.
	ErrInvalidSeverity = errors.New("invalid severity")

	// ErrInvalidPolicy indicates a policy that fails load-time validation.
	ErrInvalidPolicy = errors.New("invalid alert policy")

	// ErrUnknownProvider indicates a policy referencing an unconfigured provider.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrInvalidTransition indicates an alert status transition the
	// lifecycle does not permit.
	ErrInvalidTransition = errors.New("invalid alert status transition")

	// ErrAlertNotFound indicates an alert ID with no stored row.
	ErrAlertNotFound = errors.New("alert not found")
)
