package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kestrel-ai/kestrel/pkg/models"
)

// placeholderPattern matches {{name}} references in operation templates.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// Substitute replaces template placeholders with resolved values. Array
// values are bracket-joined with each element quoted; scalar values are
// quoted unless the template already quotes the placeholder. Placeholders
// for unresolved parameters are replaced with the strategy's explicit
// fallback marker so the gap stays visible downstream.
func Substitute(template string, gc *models.GatheredContext) string {
	var b strings.Builder
	last := 0
	for _, loc := range placeholderPattern.FindAllStringSubmatchIndex(template, -1) {
		b.WriteString(template[last:loc[0]])
		last = loc[1]

		name := template[loc[2]:loc[3]]
		st := gc.Strategy(name)
		if st == nil || !st.Resolved() {
			if st != nil && st.FallbackPlaceholder != "" {
				b.WriteString(st.FallbackPlaceholder)
			} else {
				b.WriteString("<" + name + ">")
			}
			continue
		}

		// Quoting is decided per occurrence; the same placeholder may
		// appear both quoted and bare in one template.
		quoted := loc[0] > 0 && loc[1] < len(template) &&
			template[loc[0]-1] == '"' && template[loc[1]] == '"'
		b.WriteString(renderValue(st.Value, quoted))
	}
	b.WriteString(template[last:])
	return b.String()
}

// renderValue formats one resolved value for embedding in an operation.
func renderValue(v any, alreadyQuoted bool) string {
	switch val := v.(type) {
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = quote(fmt.Sprint(item))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case []string:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = quote(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case string:
		if alreadyQuoted {
			return val
		}
		return quote(val)
	case float64, float32, int, int64, int32, bool:
		return fmt.Sprint(val)
	default:
		if alreadyQuoted {
			return fmt.Sprint(val)
		}
		return quote(fmt.Sprint(val))
	}
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
