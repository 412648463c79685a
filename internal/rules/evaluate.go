// internal/rules/evaluate.go
package rules

import "github.com/mlenstra/shrike/internal/types"

/*
 * Condition tree evaluation.
 *
 * Pure function of the compiled tree and the record; no state, no
 * synchronization, safe for concurrent evaluation across events.
 *
 * Combinator semantics:
 *   - AND short-circuits on the first false child; an empty AND group is
 *     vacuously true.
 *   - OR short-circuits on the first true child; an empty OR group is false.
 *
 * Conditions evaluate before nested groups; within each list, declared
 * order is preserved so short-circuit behavior is predictable from the
 * configuration document.
 */

// Matches evaluates the compiled group against a record.
func Matches(group *CompiledGroup, rec types.Record) bool {
	if group.All {
		for i := range group.Conditions {
			if !evaluateCondition(&group.Conditions[i], rec) {
				return false
			}
		}
		for _, nested := range group.Groups {
			if !Matches(nested, rec) {
				return false
			}
		}
		return true
	}

	for i := range group.Conditions {
		if evaluateCondition(&group.Conditions[i], rec) {
			return true
		}
	}
	for _, nested := range group.Groups {
		if Matches(nested, rec) {
			return true
		}
	}
	return false
}

// evaluateCondition resolves the condition's field path and applies its
// operator. in/not_in pass their value list as the comparison target.
func evaluateCondition(cond *CompiledCondition, rec types.Record) bool {
	resolved := Resolve(rec, cond.Path)

	var target any
	switch cond.Operator {
	case OpIn, OpNotIn:
		target = cond.Values
	default:
		target = cond.Value
	}

	return Compare(cond.Operator, resolved, target, cond.Pattern, cond.CaseSensitive)
}
