// Package transform provides the fixed registry of named pure functions
// used by pipeline transform and enrich stages.
//
// The function set is closed: unknown names are a configuration error
// rejected at pipeline load time, never at evaluation time. Per-event
// failures (to_number on non-numeric text) return ErrCoercionFailed and
// are recorded as evaluation anomalies by the caller.
package transform

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mlenstra/shrike/internal/types"
)

// Func is a pure transform function. Generator functions (timestamp, uuid)
// ignore their input.
type Func func(value any) (any, error)

var titleCaser = cases.Title(language.Und)

var registry = map[string]Func{
	"uppercase":  stringFunc(strings.ToUpper),
	"lowercase":  stringFunc(strings.ToLower),
	"titlecase":  stringFunc(titleCaser.String),
	"trim":       stringFunc(strings.TrimSpace),
	"reverse":    stringFunc(reverse),
	"length":     length,
	"to_string":  toString,
	"to_number":  toNumber,
	"to_boolean": toBoolean,
	"timestamp":  timestamp,
	"uuid":       newUUID,
}

// Lookup returns the named function, or ErrUnknownFunction for names
// outside the registry.
func Lookup(name string) (Func, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("function %q: %w", name, types.ErrUnknownFunction)
	}
	return fn, nil
}

// IsGenerator reports whether the named function produces a value without
// consuming a source field.
func IsGenerator(name string) bool {
	return name == "timestamp" || name == "uuid"
}

// stringFunc lifts a string transformation into a Func that rejects
// non-string input.
func stringFunc(fn func(string) string) Func {
	return func(value any) (any, error) {
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T: %w", value, types.ErrCoercionFailed)
		}
		return fn(s), nil
	}
}

// reverse returns s with its runes in reverse order.
func reverse(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

// length returns the element count of a string (runes), list, or map.
func length(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return float64(len([]rune(v))), nil
	case []any:
		return float64(len(v)), nil
	case map[string]any:
		return float64(len(v)), nil
	default:
		return nil, fmt.Errorf("length of %T: %w", value, types.ErrCoercionFailed)
	}
}

// toString converts scalars to their string representation.
func toString(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

// toNumber parses numeric values and numeric strings into float64.
func toNumber(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, fmt.Errorf("to_number of empty string: %w", types.ErrCoercionFailed)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("to_number of %q: %w", v, types.ErrCoercionFailed)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("to_number of %T: %w", value, types.ErrCoercionFailed)
	}
}

// toBoolean accepts booleans, the literal strings "true"/"false"
// (case-insensitive), and numeric 0/1. Anything else fails.
func toBoolean(value any) (any, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, fmt.Errorf("to_boolean of %q: %w", v, types.ErrCoercionFailed)
	case float64:
		switch v {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
		return nil, fmt.Errorf("to_boolean of %v: %w", v, types.ErrCoercionFailed)
	default:
		return nil, fmt.Errorf("to_boolean of %T: %w", value, types.ErrCoercionFailed)
	}
}

// timestamp returns the current time in RFC3339 UTC.
func timestamp(any) (any, error) {
	return time.Now().UTC().Format(time.RFC3339), nil
}

// newUUID returns a fresh UUIDv7 string. Time-ordered to match the
// engine's other identifiers.
func newUUID(any) (any, error) {
	return uuid.Must(uuid.NewV7()).String(), nil
}
