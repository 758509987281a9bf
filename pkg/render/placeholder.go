package render

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/prompthub/prompthub/pkg/apperrors"
	"github.com/prompthub/prompthub/pkg/models"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_.]*)\s*\}\}`)

// maxPasses bounds the number of substitution sweeps so that a variable
// value which itself contains "{{ other_var }}" resolves, without looping
// forever on a value that references itself.
const maxPasses = 3

// PlaceholderEngine renders engine_b templates: plain "{{ name }}"
// substitution with no conditionals or loops, in the manner of
// AltairaLabs-PromptKit's runtime/template renderer.
type PlaceholderEngine struct{}

// NewPlaceholderEngine constructs an engine_b renderer.
func NewPlaceholderEngine() *PlaceholderEngine {
	return &PlaceholderEngine{}
}

// Render substitutes "{{ name }}" and "{{ obj.field }}" placeholders against
// vars. spec is the prompt/version's declared variable_spec: a placeholder
// whose root name is declared with required=false and is absent from vars
// renders as the empty string (spec.md §4.3); a placeholder that is neither
// present in vars nor declared optional is an undefined_variable error.
func (e *PlaceholderEngine) Render(templateText string, vars map[string]any, spec []models.VariableDeclaration) (string, error) {
	optional := optionalVariableNames(spec)

	result := templateText
	for pass := 0; pass < maxPasses; pass++ {
		next := placeholderPattern.ReplaceAllStringFunc(result, func(match string) string {
			name := placeholderPattern.FindStringSubmatch(match)[1]
			if v, ok := lookupPath(vars, name); ok {
				return stringifyValue(v)
			}
			if optional[rootName(name)] {
				return ""
			}
			return match
		})
		if next == result {
			break
		}
		result = next
	}

	if unresolved := findUnresolvedPlaceholders(result); len(unresolved) > 0 {
		return "", apperrors.NewTemplateRenderError(apperrors.KindUndefinedVariable, unresolved[0],
			fmt.Sprintf("undefined variable %q", unresolved[0]))
	}

	return result, nil
}

// lookupPath resolves a "." separated reference (e.g. "obj.field") against
// vars, descending into nested map[string]any values one segment at a time.
func lookupPath(vars map[string]any, path string) (any, bool) {
	segments := strings.Split(path, ".")
	var cur any = vars
	for _, seg := range segments {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[seg]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// rootName returns the leading variable name of a (possibly dotted)
// placeholder reference, which is what a variable_spec entry names.
func rootName(path string) string {
	if i := strings.IndexByte(path, '.'); i >= 0 {
		return path[:i]
	}
	return path
}

// optionalVariableNames returns the set of declared, non-required variable
// names — the only ones engine_b is allowed to substitute as "" when absent.
func optionalVariableNames(spec []models.VariableDeclaration) map[string]bool {
	out := make(map[string]bool, len(spec))
	for _, d := range spec {
		if !d.Required {
			out[d.Name] = true
		}
	}
	return out
}

func stringifyValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// findUnresolvedPlaceholders returns the variable names of any "{{ name }}"
// occurrences left in the text after substitution passes are exhausted.
func findUnresolvedPlaceholders(text string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(text, -1)
	var names []string
	seen := map[string]bool{}
	for _, m := range matches {
		name := m[1]
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// GetUsedVars returns every variable name an engine_b template references.
func GetUsedVars(templateText string) []string {
	return findUnresolvedPlaceholders(templateText)
}

// MergeVars combines variable maps left to right, with later maps
// overriding earlier ones — the same precedence rule the Scene Engine's
// four-layer merge uses.
func MergeVars(varMaps ...map[string]any) map[string]any {
	merged := make(map[string]any)
	for _, m := range varMaps {
		for k, v := range m {
			merged[k] = v
		}
	}
	return merged
}

// TrimmedEqual reports whether two rendered outputs are equal once
// surrounding whitespace is ignored.
func TrimmedEqual(a, b string) bool {
	return strings.TrimSpace(a) == strings.TrimSpace(b)
}
