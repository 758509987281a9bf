package sceneengine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prompthub/prompthub/pkg/apperrors"
	"github.com/prompthub/prompthub/pkg/models"
	"github.com/prompthub/prompthub/pkg/resolver"
)

type fakePrompts struct {
	prompts  map[string]models.Prompt
	versions map[string]models.Version // keyed by promptID+"@"+version
}

func (f *fakePrompts) GetPrompt(_ context.Context, id string) (models.Prompt, error) {
	return f.prompts[id], nil
}

func (f *fakePrompts) GetVersionContent(_ context.Context, promptID, version string) (models.Version, error) {
	return f.versions[promptID+"@"+version], nil
}

type fakeResolver struct {
	plan *resolver.Plan
}

func (f *fakeResolver) Resolve(_ context.Context, _ models.Scene, _ string) (*resolver.Plan, error) {
	return f.plan, nil
}

type passthroughCache struct{}

func (passthroughCache) GetOrCompute(_, _ string, _ [][2]string, compute func() (any, error)) (any, error, bool) {
	v, err := compute()
	return v, err, false
}

type noopLogger struct{ entries []models.CallLog }

func (l *noopLogger) Submit(entry models.CallLog) { l.entries = append(l.entries, entry) }

func noopFingerprint(sceneID string, _ map[string]any, _ string, _ [][2]string) string { return sceneID }

func TestEngine_SingleStepConcat(t *testing.T) {
	prompts := &fakePrompts{
		prompts: map[string]models.Prompt{
			"greet": {ID: "greet", CurrentVersion: "1.0.0", TemplateEngine: models.EngineB},
		},
		versions: map[string]models.Version{
			"greet@1.0.0": {Content: "Hello, {{ name }}!", Status: models.StatusPublished},
		},
	}
	plan := &resolver.Plan{Nodes: []resolver.Node{{StepID: "s", PromptID: "greet", Version: "1.0.0"}}}
	logger := &noopLogger{}

	e := New(prompts, &fakeResolver{plan: plan}, passthroughCache{}, logger, noopFingerprint)

	scene := models.Scene{ID: "hello", MergeStrategy: models.MergeConcat}
	result, err := e.Resolve(context.Background(), scene, map[string]any{"name": "Ada"}, models.Caller{ID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, "Hello, Ada!", result.FinalContent)
	assert.Len(t, result.Steps, 1)
	assert.Len(t, logger.entries, 1)
}

func TestEngine_ConditionSkip(t *testing.T) {
	prompts := &fakePrompts{
		prompts: map[string]models.Prompt{
			"a": {ID: "a", CurrentVersion: "1.0.0", TemplateEngine: models.EngineNone},
			"b": {ID: "b", CurrentVersion: "1.0.0", TemplateEngine: models.EngineNone},
		},
		versions: map[string]models.Version{
			"a@1.0.0": {Content: "x"},
			"b@1.0.0": {Content: "y"},
		},
	}
	plan := &resolver.Plan{Nodes: []resolver.Node{
		{StepID: "A", PromptID: "a", Version: "1.0.0"},
		{StepID: "B", PromptID: "b", Version: "1.0.0", Condition: &models.Condition{Variable: "need_img", Operator: models.OpEq, Value: true}},
	}}

	e := New(prompts, &fakeResolver{plan: plan}, passthroughCache{}, &noopLogger{}, noopFingerprint)

	scene := models.Scene{ID: "s", MergeStrategy: models.MergeConcat}
	result, err := e.Resolve(context.Background(), scene, map[string]any{"need_img": false}, models.Caller{ID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, "x", result.FinalContent)
	require.Len(t, result.Steps, 2)
	assert.True(t, result.Steps[1].Skipped)
	assert.Equal(t, "condition false", result.Steps[1].SkipReason)
}

func TestEngine_ChainMerge(t *testing.T) {
	prompts := &fakePrompts{
		prompts: map[string]models.Prompt{
			"A": {ID: "A", CurrentVersion: "1.0.0", TemplateEngine: models.EngineB},
			"B": {ID: "B", CurrentVersion: "1.0.0", TemplateEngine: models.EngineB},
		},
		versions: map[string]models.Version{
			"A@1.0.0": {Content: "raw: {{ text }}"},
			"B@1.0.0": {Content: "upper: {{ prior_output }}"},
		},
	}
	plan := &resolver.Plan{Nodes: []resolver.Node{
		{StepID: "A", PromptID: "A", Version: "1.0.0"},
		{StepID: "B", PromptID: "B", Version: "1.0.0"},
	}}

	e := New(prompts, &fakeResolver{plan: plan}, passthroughCache{}, &noopLogger{}, noopFingerprint)

	scene := models.Scene{ID: "chain_s", MergeStrategy: models.MergeChain}
	result, err := e.Resolve(context.Background(), scene, map[string]any{"text": "hi"}, models.Caller{ID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, "upper: raw: hi", result.FinalContent)
}

func TestEngine_Precedence(t *testing.T) {
	prompts := &fakePrompts{
		prompts: map[string]models.Prompt{
			"p": {
				ID: "p", CurrentVersion: "1.0.0", TemplateEngine: models.EngineB,
				VariableSpec: []models.VariableDeclaration{{Name: "style", Default: "plain"}},
			},
		},
		versions: map[string]models.Version{
			"p@1.0.0": {Content: "style={{ style }}"},
		},
	}
	plan := &resolver.Plan{Nodes: []resolver.Node{
		{
			StepID: "s", PromptID: "p", Version: "1.0.0",
			StepVariable: map[string]any{"style": "serif"},
			Override:     map[string]any{"style": "fancy"},
		},
	}}

	e := New(prompts, &fakeResolver{plan: plan}, passthroughCache{}, &noopLogger{}, noopFingerprint)

	scene := models.Scene{ID: "s", MergeStrategy: models.MergeConcat}
	result, err := e.Resolve(context.Background(), scene, map[string]any{"style": "bold"}, models.Caller{ID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, "style=bold", result.FinalContent)
}

func TestEngine_TemplateRenderErrorStillWritesCallLog(t *testing.T) {
	prompts := &fakePrompts{
		prompts: map[string]models.Prompt{
			"greet": {ID: "greet", CurrentVersion: "1.0.0", TemplateEngine: models.EngineB},
		},
		versions: map[string]models.Version{
			// "name" is referenced but never supplied or declared -> undefined_variable.
			"greet@1.0.0": {Content: "Hello, {{ name }}!", Status: models.StatusPublished},
		},
	}
	plan := &resolver.Plan{Nodes: []resolver.Node{{StepID: "s", PromptID: "greet", Version: "1.0.0"}}}
	logger := &noopLogger{}

	e := New(prompts, &fakeResolver{plan: plan}, passthroughCache{}, logger, noopFingerprint)

	scene := models.Scene{ID: "hello", MergeStrategy: models.MergeConcat}
	_, err := e.Resolve(context.Background(), scene, nil, models.Caller{ID: "c1"})
	require.Error(t, err)
	require.Len(t, logger.entries, 1, "a resolve that was attempted but failed mid-render must still write a CallLog")
	assert.Equal(t, "", logger.entries[0].RenderedContent)
}

func TestEngine_CircularDependencyWritesNoCallLog(t *testing.T) {
	prompts := &fakePrompts{prompts: map[string]models.Prompt{}}
	logger := &noopLogger{}
	failingResolver := &erroringResolver{err: apperrors.NewCircularDependencyError([]string{"a", "b", "a"})}

	e := New(prompts, failingResolver, passthroughCache{}, logger, noopFingerprint)

	scene := models.Scene{ID: "cyclic", MergeStrategy: models.MergeConcat}
	_, err := e.Resolve(context.Background(), scene, nil, models.Caller{ID: "c1"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCircularDependencyError(err))
	assert.Empty(t, logger.entries, "cycle rejection must produce no CallLog (spec.md Testable Property 4)")
}

type erroringResolver struct{ err error }

func (r *erroringResolver) Resolve(_ context.Context, _ models.Scene, _ string) (*resolver.Plan, error) {
	return nil, r.err
}

func TestEngine_SelectBestScoring(t *testing.T) {
	prompts := &fakePrompts{
		prompts: map[string]models.Prompt{
			"a": {ID: "a", CurrentVersion: "1.0.0", TemplateEngine: models.EngineNone},
			"b": {ID: "b", CurrentVersion: "1.0.0", TemplateEngine: models.EngineNone},
		},
		versions: map[string]models.Version{
			"a@1.0.0": {Content: "low quality{{!score=0.2}}"},
			"b@1.0.0": {Content: "high quality{{!score=0.9}}"},
		},
	}
	plan := &resolver.Plan{Nodes: []resolver.Node{
		{StepID: "A", PromptID: "a", Version: "1.0.0"},
		{StepID: "B", PromptID: "b", Version: "1.0.0"},
	}}

	e := New(prompts, &fakeResolver{plan: plan}, passthroughCache{}, &noopLogger{}, noopFingerprint)

	scene := models.Scene{ID: "s", MergeStrategy: models.MergeSelectBest}
	result, err := e.Resolve(context.Background(), scene, nil, models.Caller{ID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, "high quality", result.FinalContent)
}
