// internal/rules/operators.go
package rules

import (
	"regexp"
	"strings"

	"github.com/mlenstra/shrike/internal/types"
)

/*
 * Operator comparison logic.
 *
 * Implements the 15-operator closed set with the coercion and null
 * semantics the rest of the engine relies on:
 *
 *   - eq/ne: numeric compare when both sides parse as numbers, otherwise
 *     case-folded string compare. Absent equals nothing; explicit null
 *     equals only a null comparison value.
 *   - gt/gte/lt/lte: numeric when both sides parse, else lexicographic
 *     string compare. Absent and null never satisfy ordering.
 *   - in/not_in: membership using eq semantics per element.
 *   - contains/not_contains/starts_with/ends_with: both sides coerced to
 *     their string representation (Absent/null -> ""), case-folded unless
 *     the condition is case sensitive.
 *   - is_null/is_not_null: Absent and explicit null are treated identically.
 *   - regex: precompiled pattern at load time; Absent never matches.
 *
 * Why function-based: a switch over 15 operators is cleaner than 15
 * interface implementations with minimal behavior variation.
 */

// Operator is the closed comparison operator set.
type Operator int

const (
	OpUnspecified Operator = iota
	OpEq
	OpNe
	OpGt
	OpGte
	OpLt
	OpLte
	OpIn
	OpNotIn
	OpContains
	OpNotContains
	OpStartsWith
	OpEndsWith
	OpIsNull
	OpIsNotNull
	OpRegex
)

var operatorNames = map[string]Operator{
	"eq":           OpEq,
	"ne":           OpNe,
	"gt":           OpGt,
	"gte":          OpGte,
	"lt":           OpLt,
	"lte":          OpLte,
	"in":           OpIn,
	"not_in":       OpNotIn,
	"contains":     OpContains,
	"not_contains": OpNotContains,
	"starts_with":  OpStartsWith,
	"ends_with":    OpEndsWith,
	"is_null":      OpIsNull,
	"is_not_null":  OpIsNotNull,
	"regex":        OpRegex,
}

// ParseOperator maps an operator name to its enum value.
// Unknown names are a configuration error, rejected at load time.
func ParseOperator(name string) (Operator, error) {
	op, ok := operatorNames[name]
	if !ok {
		return OpUnspecified, types.ErrUnknownOperator
	}
	return op, nil
}

// String returns the configuration name of the operator.
func (op Operator) String() string {
	for name, o := range operatorNames {
		if o == op {
			return name
		}
	}
	return "unspecified"
}

// Compare applies the operator to the resolved value. target carries the
// comparison value (a []any for in/not_in, ignored for null checks);
// pattern is the precompiled regex for OpRegex.
func Compare(op Operator, res Resolved, target any, pattern *regexp.Regexp, caseSensitive bool) bool {
	switch op {
	case OpEq:
		return compareEqual(res, target, caseSensitive)
	case OpNe:
		return !compareEqual(res, target, caseSensitive)
	case OpGt:
		cmp, ok := compareOrder(res, target)
		return ok && cmp > 0
	case OpGte:
		cmp, ok := compareOrder(res, target)
		return ok && cmp >= 0
	case OpLt:
		cmp, ok := compareOrder(res, target)
		return ok && cmp < 0
	case OpLte:
		cmp, ok := compareOrder(res, target)
		return ok && cmp <= 0
	case OpIn:
		return compareIn(res, target, caseSensitive)
	case OpNotIn:
		return !compareIn(res, target, caseSensitive)
	case OpContains:
		return strings.Contains(stringSides(res, target, caseSensitive))
	case OpNotContains:
		return !strings.Contains(stringSides(res, target, caseSensitive))
	case OpStartsWith:
		return strings.HasPrefix(stringSides(res, target, caseSensitive))
	case OpEndsWith:
		return strings.HasSuffix(stringSides(res, target, caseSensitive))
	case OpIsNull:
		return !res.Found || res.Value == nil
	case OpIsNotNull:
		return res.Found && res.Value != nil
	case OpRegex:
		if !res.Found || pattern == nil {
			return false
		}
		return pattern.MatchString(stringify(res.Value))
	default:
		return false
	}
}

// compareEqual implements eq semantics. Absent equals nothing; null equals
// only null; numeric compare when both sides parse as numbers; otherwise
// case-folded string compare.
func compareEqual(res Resolved, target any, caseSensitive bool) bool {
	if !res.Found {
		return false
	}
	if res.Value == nil || target == nil {
		return res.Value == nil && target == nil
	}
	if na, nb, ok := asNumbers(res.Value, target); ok {
		return na == nb
	}
	return foldCase(stringify(res.Value), caseSensitive) == foldCase(stringify(target), caseSensitive)
}

// compareOrder performs three-way comparison: numeric when both sides parse
// as numbers, lexicographic string compare otherwise. Absent and null
// values are not ordered (ok=false).
func compareOrder(res Resolved, target any) (int, bool) {
	if !res.Found || res.Value == nil || target == nil {
		return 0, false
	}
	if na, nb, ok := asNumbers(res.Value, target); ok {
		switch {
		case na < nb:
			return -1, true
		case na > nb:
			return 1, true
		default:
			return 0, true
		}
	}
	return strings.Compare(stringify(res.Value), stringify(target)), true
}

// compareIn checks membership using eq semantics per element.
func compareIn(res Resolved, target any, caseSensitive bool) bool {
	values, ok := target.([]any)
	if !ok {
		return false
	}
	for _, elem := range values {
		if compareEqual(res, elem, caseSensitive) {
			return true
		}
	}
	return false
}

// stringSides coerces both sides to case-folded string representations for
// the substring operators.
func stringSides(res Resolved, target any, caseSensitive bool) (string, string) {
	var value string
	if res.Found {
		value = stringify(res.Value)
	}
	return foldCase(value, caseSensitive), foldCase(stringify(target), caseSensitive)
}
