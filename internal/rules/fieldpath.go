// internal/rules/fieldpath.go
package rules

import (
	"fmt"
	"strings"

	"github.com/mlenstra/shrike/internal/types"
)

/*
 * Field path resolution for event records.
 *
 * Resolves dot-notation paths ("metadata.user_id") through nested Records.
 * Segments address object keys only: a path that reaches a list, a scalar,
 * or a null before its final segment resolves to Absent. Absent is distinct
 * from an explicit null value, which resolves Found with a nil Value.
 *
 * No escaping of literal dots is supported (documented limitation of the
 * path syntax).
 *
 * SetField is the write-side counterpart used by pipeline transform/enrich
 * stages: it creates intermediate maps as needed and clones every map it
 * descends into, so records shared with other pipeline runs are never
 * mutated in place.
 */

// Resolved is the outcome of a field path lookup. Found=false means the
// path did not resolve (Absent); Found=true with a nil Value means the
// field is explicitly null.
type Resolved struct {
	Value any
	Found bool
}

// SplitPath validates and splits a dot-notation path into segments.
// Returns ErrEmptyPath for empty paths or empty segments ("a..b"),
// ErrPathTooDeep beyond types.MaxPathDepth.
func SplitPath(path string) ([]string, error) {
	if path == "" {
		return nil, types.ErrEmptyPath
	}
	segments := strings.Split(path, ".")
	if len(segments) > types.MaxPathDepth {
		return nil, types.ErrPathTooDeep
	}
	for _, seg := range segments {
		if seg == "" {
			return nil, fmt.Errorf("path %q: %w", path, types.ErrEmptyPath)
		}
	}
	return segments, nil
}

// Resolve walks the record following path segments. Side-effect-free and
// O(depth).
func Resolve(rec types.Record, path []string) Resolved {
	var current any = map[string]any(rec)
	for _, seg := range path {
		obj, ok := current.(map[string]any)
		if !ok {
			// Lists, scalars, and nulls terminate resolution
			return Resolved{}
		}
		current, ok = obj[seg]
		if !ok {
			return Resolved{}
		}
	}
	return Resolved{Value: current, Found: true}
}

// SetField writes value at path, creating intermediate maps as needed.
// rec must already be a top-level clone (types.Record.Clone); nested maps
// along the path are cloned before being written into, and non-map
// intermediates are replaced by fresh maps.
func SetField(rec types.Record, path []string, value any) {
	current := map[string]any(rec)
	for _, seg := range path[:len(path)-1] {
		next, ok := current[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
		} else {
			cloned := make(map[string]any, len(next))
			for k, v := range next {
				cloned[k] = v
			}
			next = cloned
		}
		current[seg] = next
		current = next
	}
	current[path[len(path)-1]] = value
}
