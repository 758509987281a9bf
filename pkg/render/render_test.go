package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prompthub/prompthub/pkg/apperrors"
	"github.com/prompthub/prompthub/pkg/models"
)

func TestPlaceholderEngine_Render(t *testing.T) {
	e := NewPlaceholderEngine()

	out, err := e.Render("Hello {{ user_name }}, you have {{ count }} messages.", map[string]any{
		"user_name": "Ada",
		"count":     3,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello Ada, you have 3 messages.", out)
}

func TestPlaceholderEngine_UndefinedVariable(t *testing.T) {
	e := NewPlaceholderEngine()

	_, err := e.Render("Hello {{ missing }}", map[string]any{}, nil)
	require.Error(t, err)
	rerr, ok := apperrors.AsTemplateRenderError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindUndefinedVariable, rerr.Kind)
}

func TestPlaceholderEngine_NestedFieldAccess(t *testing.T) {
	e := NewPlaceholderEngine()

	out, err := e.Render("Hi {{ user.name }}, region {{ user.address.country }}.", map[string]any{
		"user": map[string]any{
			"name": "Ada",
			"address": map[string]any{
				"country": "NZ",
			},
		},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hi Ada, region NZ.", out)
}

func TestPlaceholderEngine_OptionalVariableOmittedRendersEmpty(t *testing.T) {
	e := NewPlaceholderEngine()
	spec := []models.VariableDeclaration{
		{Name: "suffix", Type: models.VarString, Required: false},
	}

	out, err := e.Render("Hello{{ suffix }}!", map[string]any{}, spec)
	require.NoError(t, err)
	assert.Equal(t, "Hello!", out)
}

func TestPlaceholderEngine_UndeclaredVariableStillErrorsEvenIfOtherVarsOptional(t *testing.T) {
	e := NewPlaceholderEngine()
	spec := []models.VariableDeclaration{
		{Name: "suffix", Type: models.VarString, Required: false},
	}

	_, err := e.Render("Hello {{ missing }}", map[string]any{}, spec)
	require.Error(t, err)
	rerr, ok := apperrors.AsTemplateRenderError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindUndefinedVariable, rerr.Kind)
}

func TestGonjaEngine_ControlFlow(t *testing.T) {
	e := NewGonjaEngine()

	out, err := e.Render(`{% if is_admin %}Welcome, admin {{ name }}.{% else %}Welcome, {{ name }}.{% endif %}`,
		map[string]any{"is_admin": true, "name": "Ada"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Welcome, admin Ada.", out)
}

func TestValidate_MissingRequired(t *testing.T) {
	spec := []models.VariableDeclaration{
		{Name: "user_name", Type: models.VarString, Required: true},
	}
	err := Validate(spec, map[string]any{})
	require.Error(t, err)
	rerr, ok := apperrors.AsTemplateRenderError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindMissingRequired, rerr.Kind)
}

func TestValidate_EnumViolation(t *testing.T) {
	spec := []models.VariableDeclaration{
		{Name: "tone", Type: models.VarEnum, EnumValues: []string{"formal", "casual"}},
	}
	err := Validate(spec, map[string]any{"tone": "sarcastic"})
	require.Error(t, err)
	rerr, ok := apperrors.AsTemplateRenderError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindEnumViolation, rerr.Kind)
}

func TestApplyDefaults(t *testing.T) {
	spec := []models.VariableDeclaration{
		{Name: "tone", Default: "formal"},
	}
	merged := ApplyDefaults(spec, map[string]any{"user_name": "Ada"})
	assert.Equal(t, "formal", merged["tone"])
	assert.Equal(t, "Ada", merged["user_name"])
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 3, EstimateTokens("1234567890")) // 10 chars -> ceil(10/4) = 3
}
