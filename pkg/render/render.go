// Package render evaluates a prompt version's content against a variable
// scope. Three engines are supported: engine_a (Jinja2-style control flow,
// via gonja), engine_b (logic-less placeholder substitution, in the manner
// of AltairaLabs-PromptKit's runtime/template renderer) and none (verbatim
// passthrough).
package render

import (
	"fmt"

	"github.com/prompthub/prompthub/pkg/apperrors"
	"github.com/prompthub/prompthub/pkg/models"
)

// Engine renders template text against a resolved variable scope. spec is
// the prompt/version's declared variable_spec, passed through so an engine
// can distinguish a declared-optional-and-absent variable (render empty)
// from one that was never declared at all (always an error).
type Engine interface {
	Render(templateText string, vars map[string]any, spec []models.VariableDeclaration) (string, error)
}

// ForEngine returns the Engine implementation for a prompt's declared engine kind.
func ForEngine(kind models.TemplateEngine) (Engine, error) {
	switch kind {
	case models.EngineA:
		return NewGonjaEngine(), nil
	case models.EngineB:
		return NewPlaceholderEngine(), nil
	case models.EngineNone:
		return PassthroughEngine{}, nil
	default:
		return nil, apperrors.NewValidationError("template_engine", fmt.Sprintf("unknown engine %q", kind))
	}
}

// PassthroughEngine returns template text unchanged, ignoring variables.
type PassthroughEngine struct{}

func (PassthroughEngine) Render(templateText string, _ map[string]any, _ []models.VariableDeclaration) (string, error) {
	return templateText, nil
}

// Validate checks a variable scope against a prompt's declared variable_spec
// before rendering: required variables present, declared types honoured, and
// enum values within the declared set. It does not check for undefined
// variables referenced inside the template — engines surface those themselves.
func Validate(spec []models.VariableDeclaration, vars map[string]any) error {
	for _, decl := range spec {
		v, present := vars[decl.Name]
		if !present || v == nil {
			if decl.Required && decl.Default == nil {
				return apperrors.NewTemplateRenderError(apperrors.KindMissingRequired, decl.Name,
					fmt.Sprintf("variable %q is required", decl.Name))
			}
			continue
		}
		if err := validateType(decl, v); err != nil {
			return err
		}
	}
	return nil
}

func validateType(decl models.VariableDeclaration, v any) error {
	switch decl.Type {
	case models.VarString:
		if _, ok := v.(string); !ok {
			return typeMismatch(decl.Name, "string", v)
		}
	case models.VarInteger:
		switch v.(type) {
		case int, int32, int64, float64:
		default:
			return typeMismatch(decl.Name, "integer", v)
		}
	case models.VarNumber:
		switch v.(type) {
		case int, int32, int64, float32, float64:
		default:
			return typeMismatch(decl.Name, "number", v)
		}
	case models.VarBoolean:
		if _, ok := v.(bool); !ok {
			return typeMismatch(decl.Name, "boolean", v)
		}
	case models.VarEnum:
		s, ok := v.(string)
		if !ok {
			return typeMismatch(decl.Name, "enum", v)
		}
		for _, allowed := range decl.EnumValues {
			if s == allowed {
				return nil
			}
		}
		return apperrors.NewTemplateRenderError(apperrors.KindEnumViolation, decl.Name,
			fmt.Sprintf("value %q is not one of %v", s, decl.EnumValues))
	case models.VarObject:
		if _, ok := v.(map[string]any); !ok {
			return typeMismatch(decl.Name, "object", v)
		}
	case models.VarArray:
		if _, ok := v.([]any); !ok {
			return typeMismatch(decl.Name, "array", v)
		}
	}
	return nil
}

func typeMismatch(field, wantType string, got any) error {
	return apperrors.NewTemplateRenderError(apperrors.KindTypeMismatch, field,
		fmt.Sprintf("variable %q expected type %s, got %T", field, wantType, got))
}

// ApplyDefaults fills in declared defaults for variables absent from vars,
// without mutating the caller's map.
func ApplyDefaults(spec []models.VariableDeclaration, vars map[string]any) map[string]any {
	merged := make(map[string]any, len(vars)+len(spec))
	for _, decl := range spec {
		if decl.Default != nil {
			merged[decl.Name] = decl.Default
		}
	}
	for k, v := range vars {
		merged[k] = v
	}
	return merged
}

// EstimateTokens approximates token count the way simple heuristics do when
// no tokenizer is wired: roughly four characters per token.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + 3) / 4
}
