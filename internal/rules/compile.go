// internal/rules/compile.go
package rules

import (
	"fmt"
	"regexp"

	"github.com/mlenstra/shrike/internal/types"
)

/*
 * Condition tree compilation and validation.
 *
 * Compiles types.ConditionGroup documents into CompiledGroup trees with
 * parsed operators, split field paths, and precompiled regex patterns.
 *
 * Why compile-time validation: unknown operators, invalid regex patterns,
 * and malformed groups are configuration errors that must reach the caller
 * loading the definition, never a per-event evaluation. An invalid policy
 * or pipeline is never silently activated.
 *
 * Validation enforced here:
 *   - operator names against the closed set
 *   - regex patterns compile (pattern must be a string)
 *   - in/not_in values are lists within MaxInOperatorValues
 *   - field paths split, non-empty, within MaxPathDepth
 *   - group nesting within MaxGroupDepth
 *   - groups have conditions, nested groups, or an explicit combinator
 */

// CompiledCondition is a pre-processed condition ready for evaluation.
type CompiledCondition struct {
	Field         string         // original dot path, for diagnostics
	Path          []string       // split path segments
	Operator      Operator
	Value         any            // comparison value (nil for null checks)
	Values        []any          // for in/not_in
	Pattern       *regexp.Regexp // for regex
	CaseSensitive bool
}

// CompiledGroup is a pre-processed boolean tree node. All=true combines
// children with AND, otherwise OR.
type CompiledGroup struct {
	All        bool
	Conditions []CompiledCondition
	Groups     []*CompiledGroup
}

// CompileGroup validates and pre-processes a condition group tree.
// A group whose combinator is omitted defaults to AND.
func CompileGroup(group types.ConditionGroup) (*CompiledGroup, error) {
	return compileGroup(group, true, 0)
}

// CompileRules compiles a policy's root group. matchAll selects the root
// combinator (AND/OR) when the group does not set one explicitly.
func CompileRules(group types.ConditionGroup, matchAll bool) (*CompiledGroup, error) {
	return compileGroup(group, matchAll, 0)
}

func compileGroup(group types.ConditionGroup, defaultAll bool, depth int) (*CompiledGroup, error) {
	if depth > types.MaxGroupDepth {
		return nil, types.ErrGroupTooDeep
	}

	all := defaultAll
	switch group.Combinator {
	case "":
		if len(group.Conditions) == 0 && len(group.Groups) == 0 {
			return nil, types.ErrMalformedGroup
		}
	case "AND", "and":
		all = true
	case "OR", "or":
		all = false
	default:
		return nil, fmt.Errorf("combinator %q: %w", group.Combinator, types.ErrInvalidCombinator)
	}

	compiled := &CompiledGroup{
		All:        all,
		Conditions: make([]CompiledCondition, 0, len(group.Conditions)),
		Groups:     make([]*CompiledGroup, 0, len(group.Groups)),
	}

	for _, cond := range group.Conditions {
		cc, err := compileCondition(cond)
		if err != nil {
			return nil, err
		}
		compiled.Conditions = append(compiled.Conditions, cc)
	}

	for _, nested := range group.Groups {
		// Nested groups default to AND regardless of the parent combinator
		cg, err := compileGroup(nested, true, depth+1)
		if err != nil {
			return nil, err
		}
		compiled.Groups = append(compiled.Groups, cg)
	}

	return compiled, nil
}

// compileCondition validates and pre-processes a single condition.
func compileCondition(cond types.Condition) (CompiledCondition, error) {
	path, err := SplitPath(cond.Field)
	if err != nil {
		return CompiledCondition{}, fmt.Errorf("condition field %q: %w", cond.Field, err)
	}

	op, err := ParseOperator(cond.Operator)
	if err != nil {
		return CompiledCondition{}, fmt.Errorf("condition %q: operator %q: %w", cond.Field, cond.Operator, err)
	}

	cc := CompiledCondition{
		Field:         cond.Field,
		Path:          path,
		Operator:      op,
		CaseSensitive: cond.CaseSensitive,
	}

	switch op {
	case OpIn, OpNotIn:
		values, ok := cond.Value.([]any)
		if !ok {
			return CompiledCondition{}, fmt.Errorf("condition %q: %w", cond.Field, types.ErrValueNotList)
		}
		if len(values) > types.MaxInOperatorValues {
			return CompiledCondition{}, fmt.Errorf("condition %q: %w", cond.Field, types.ErrTooManyInValues)
		}
		cc.Values = values

	case OpRegex:
		expr, ok := cond.Value.(string)
		if !ok {
			return CompiledCondition{}, fmt.Errorf("condition %q: %w: pattern must be a string", cond.Field, types.ErrInvalidPattern)
		}
		pattern, err := regexp.Compile(expr)
		if err != nil {
			return CompiledCondition{}, fmt.Errorf("condition %q: %w: %v", cond.Field, types.ErrInvalidPattern, err)
		}
		cc.Pattern = pattern

	case OpIsNull, OpIsNotNull:
		// Comparison value ignored

	default:
		cc.Value = cond.Value
	}

	return cc, nil
}
