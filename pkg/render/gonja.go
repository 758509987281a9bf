package render

import (
	"fmt"

	"github.com/nikolalohinski/gonja/v2"
	"github.com/nikolalohinski/gonja/v2/exec"

	"github.com/prompthub/prompthub/pkg/apperrors"
	"github.com/prompthub/prompthub/pkg/models"
)

// GonjaEngine renders engine_a templates: Jinja2-style variable
// interpolation plus {% if %}/{% for %} control flow. It is sandboxed to
// the variable scope it is handed — gonja has no filesystem loader
// configured, so {% include %}/{% extends %} directives that would read
// from disk fail closed rather than escaping the sandbox.
type GonjaEngine struct{}

// NewGonjaEngine constructs an engine_a renderer.
func NewGonjaEngine() *GonjaEngine {
	return &GonjaEngine{}
}

// Render evaluates a gonja template against vars. spec is unused here:
// engine_a's own defaulting rule ("omitted optional variables with a
// declared default are substituted before rendering") is already satisfied
// by the caller merging defaults into vars ahead of Render.
func (e *GonjaEngine) Render(templateText string, vars map[string]any, spec []models.VariableDeclaration) (string, error) {
	tpl, err := gonja.FromString(templateText)
	if err != nil {
		return "", apperrors.NewTemplateRenderError(apperrors.KindSyntaxError, "",
			fmt.Sprintf("template parse error: %v", err))
	}

	out, err := tpl.ExecuteToString(exec.NewContext(vars))
	if err != nil {
		return "", apperrors.NewTemplateRenderError(apperrors.KindUndefinedVariable, "",
			fmt.Sprintf("template evaluation error: %v", err))
	}
	return out, nil
}
