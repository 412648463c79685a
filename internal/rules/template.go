// internal/rules/template.go
package rules

import (
	"regexp"

	"github.com/mlenstra/shrike/internal/types"
)

// Template token syntax is {field_name} with dot paths allowed inside the
// braces. Tokens resolve via the field resolver, not expression evaluation.
var templateToken = regexp.MustCompile(`\{([^{}]+)\}`)

// Render substitutes {field} tokens in tmpl with values resolved from the
// record. Missing or malformed fields render as the empty string, never an
// error: message templates degrade, they do not fail a match.
func Render(tmpl string, rec types.Record) string {
	return templateToken.ReplaceAllStringFunc(tmpl, func(token string) string {
		field := token[1 : len(token)-1]
		path, err := SplitPath(field)
		if err != nil {
			return ""
		}
		resolved := Resolve(rec, path)
		if !resolved.Found {
			return ""
		}
		return stringify(resolved.Value)
	})
}
