// internal/rules/coercion.go
package rules

import (
	"fmt"
	"strconv"
	"strings"
)

/*
 * Type coercion for operator evaluation.
 *
 * Comparison picks the widest common representation of the two sides:
 * numeric when both sides parse as numbers (including numeric strings,
 * for JSON payloads that quote their integers), string otherwise. Booleans
 * never coerce to numbers; "true" vs 1 ambiguity is not worth it.
 */

// toFloat64 converts a value to float64 if it is numeric or a numeric
// string. Handles float64/int/int64 from JSON unmarshaling plus quoted
// numbers. Whitespace-only strings are not numbers.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// asNumbers attempts to convert both values to float64.
// Returns converted values and success flag.
func asNumbers(a, b any) (float64, float64, bool) {
	na, oka := toFloat64(a)
	nb, okb := toFloat64(b)
	return na, nb, oka && okb
}

// stringify converts any value to its string representation for the string
// operators. nil (explicit null or Absent) stringifies to "".
func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case bool:
		if s {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", s)
	}
}

// foldCase lowercases s unless the condition is case sensitive.
func foldCase(s string, caseSensitive bool) string {
	if caseSensitive {
		return s
	}
	return strings.ToLower(s)
}
