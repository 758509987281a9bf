package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prompthub/prompthub/pkg/apperrors"
	"github.com/prompthub/prompthub/pkg/models"
)

type fakeLookup struct {
	prompts map[string]models.Prompt
	edges   map[string][]models.PromptRef
}

func (f *fakeLookup) GetPrompt(_ context.Context, id string) (models.Prompt, error) {
	p, ok := f.prompts[id]
	if !ok {
		return models.Prompt{}, apperrors.ErrNotFound
	}
	return p, nil
}

func (f *fakeLookup) OutEdgesForPrompt(_ context.Context, promptID string) ([]models.PromptRef, error) {
	return f.edges[promptID], nil
}

func newFixturePrompt(id, project string, shared bool) models.Prompt {
	return models.Prompt{ID: id, ProjectID: project, Slug: id, IsShared: shared, CurrentVersion: "1.0.0"}
}

func TestResolve_SingleStepNoDeps(t *testing.T) {
	lookup := &fakeLookup{
		prompts: map[string]models.Prompt{"a": newFixturePrompt("a", "proj", false)},
		edges:   map[string][]models.PromptRef{},
	}
	r := New(lookup)

	scene := models.Scene{
		Pipeline: []models.Step{
			{StepID: "s1", PromptRef: models.PromptReference{PromptID: "a"}},
		},
	}

	plan, err := r.Resolve(context.Background(), scene, "proj")
	require.NoError(t, err)
	require.Len(t, plan.Nodes, 1)
	assert.Equal(t, "a", plan.Nodes[0].PromptID)
}

func TestResolve_TransitiveComposeOrder(t *testing.T) {
	lookup := &fakeLookup{
		prompts: map[string]models.Prompt{
			"a": newFixturePrompt("a", "proj", false),
			"b": newFixturePrompt("b", "proj", false),
		},
		edges: map[string][]models.PromptRef{
			"a": {{TargetPrompt: "b", RefType: models.RefComposes}},
		},
	}
	r := New(lookup)

	scene := models.Scene{
		Pipeline: []models.Step{
			{StepID: "s1", PromptRef: models.PromptReference{PromptID: "a"}},
		},
	}

	plan, err := r.Resolve(context.Background(), scene, "proj")
	require.NoError(t, err)
	require.Len(t, plan.Nodes, 2)
	// b must render before a, since a composes b.
	assert.Equal(t, "b", plan.Nodes[0].PromptID)
	assert.Equal(t, "a", plan.Nodes[1].PromptID)
}

func TestResolve_CycleDetected(t *testing.T) {
	lookup := &fakeLookup{
		prompts: map[string]models.Prompt{
			"a": newFixturePrompt("a", "proj", false),
			"b": newFixturePrompt("b", "proj", false),
		},
		edges: map[string][]models.PromptRef{
			"a": {{TargetPrompt: "b", RefType: models.RefComposes}},
			"b": {{TargetPrompt: "a", RefType: models.RefComposes}},
		},
	}
	r := New(lookup)

	scene := models.Scene{
		Pipeline: []models.Step{
			{StepID: "s1", PromptRef: models.PromptReference{PromptID: "a"}},
		},
	}

	_, err := r.Resolve(context.Background(), scene, "proj")
	require.Error(t, err)
	assert.True(t, apperrors.IsCircularDependencyError(err))
}

func TestResolve_LatestConcretizedInPlanAndFingerprint(t *testing.T) {
	lookup := &fakeLookup{
		prompts: map[string]models.Prompt{"a": newFixturePrompt("a", "proj", false)},
		edges:   map[string][]models.PromptRef{},
	}
	r := New(lookup)

	scene := models.Scene{
		Pipeline: []models.Step{
			{StepID: "s1", PromptRef: models.PromptReference{PromptID: "a"}}, // version omitted -> "latest"
		},
	}

	plan, err := r.Resolve(context.Background(), scene, "proj")
	require.NoError(t, err)
	require.Len(t, plan.Nodes, 1)
	assert.Equal(t, "1.0.0", plan.Nodes[0].Version, "a latest-bound node must carry the concrete current_version, not the literal \"latest\"")
	require.Len(t, plan.FingerprintTuples, 1)
	assert.Equal(t, [2]string{"a", "1.0.0"}, plan.FingerprintTuples[0])

	// Publishing a.current_version to 2.0.0 must change the fingerprint tuple
	// for the same scene, since the plan re-reads current_version on every resolve.
	lookup.prompts["a"] = newFixturePrompt("a", "proj", false)
	bumped := lookup.prompts["a"]
	bumped.CurrentVersion = "2.0.0"
	lookup.prompts["a"] = bumped

	plan2, err := r.Resolve(context.Background(), scene, "proj")
	require.NoError(t, err)
	assert.Equal(t, [2]string{"a", "2.0.0"}, plan2.FingerprintTuples[0])
}

func TestResolve_PinnedVersionNotConcretizedToLatest(t *testing.T) {
	lookup := &fakeLookup{
		prompts: map[string]models.Prompt{"a": newFixturePrompt("a", "proj", false)},
		edges:   map[string][]models.PromptRef{},
	}
	r := New(lookup)

	pinned := "1.0.0"
	scene := models.Scene{
		Pipeline: []models.Step{
			{StepID: "s1", PromptRef: models.PromptReference{PromptID: "a", Version: &pinned}},
		},
	}

	// Even after current_version moves on, a pinned step's plan version and
	// fingerprint tuple stay put.
	bumped := lookup.prompts["a"]
	bumped.CurrentVersion = "3.0.0"
	lookup.prompts["a"] = bumped

	plan, err := r.Resolve(context.Background(), scene, "proj")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", plan.Nodes[0].Version)
	assert.Equal(t, [2]string{"a", "1.0.0"}, plan.FingerprintTuples[0])
}

func TestResolve_CrossProjectRequiresShared(t *testing.T) {
	lookup := &fakeLookup{
		prompts: map[string]models.Prompt{
			"a": newFixturePrompt("a", "proj", false),
			"b": newFixturePrompt("b", "other-proj", false),
		},
		edges: map[string][]models.PromptRef{
			"a": {{TargetPrompt: "b", RefType: models.RefIncludes}},
		},
	}
	r := New(lookup)

	scene := models.Scene{
		Pipeline: []models.Step{
			{StepID: "s1", PromptRef: models.PromptReference{PromptID: "a"}},
		},
	}

	_, err := r.Resolve(context.Background(), scene, "proj")
	require.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}
