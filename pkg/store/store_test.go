package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/prompthub/prompthub/pkg/database"
	"github.com/prompthub/prompthub/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := database.Config{
		Host: host, Port: port.Int(), User: "test", Password: "test", Database: "test",
		SSLMode: "disable", MaxOpenConns: 10, MaxIdleConns: 5,
		ConnMaxLifetime: time.Hour, ConnMaxIdleTime: 15 * time.Minute,
	}
	client, err := database.NewClient(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return New(client.Pool())
}

func TestProjectAndPromptLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	proj, err := s.Projects.Create(ctx, models.Project{Slug: "acme", Name: "Acme"})
	require.NoError(t, err)
	assert.NotEmpty(t, proj.ID)

	_, err = s.Projects.Create(ctx, models.Project{Slug: "acme", Name: "Dup"})
	assert.Error(t, err)

	p, err := s.Prompts.Create(ctx, models.Prompt{
		ProjectID:      proj.ID,
		Slug:           "greeting",
		Name:           "Greeting",
		Format:         models.FormatText,
		TemplateEngine: models.EngineB,
		VariableSpec: []models.VariableDeclaration{
			{Name: "user_name", Type: models.VarString, Required: true},
		},
		Tags: []string{"onboarding"},
	})
	require.NoError(t, err)
	assert.Equal(t, "greeting", p.Slug)
	assert.Len(t, p.VariableSpec, 1)

	v, err := s.Versions.Create(ctx, models.Version{
		PromptID: p.ID,
		Version:  "0.1.0",
		Content:  "Hello {{ user_name }}",
		Status:   models.StatusDraft,
	})
	require.NoError(t, err)
	require.NoError(t, s.Prompts.SetCurrentVersion(ctx, p.ID, v.Version))

	got, err := s.Prompts.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "0.1.0", got.CurrentVersion)

	page, err := s.Prompts.List(ctx, models.ListFilters{ProjectID: proj.ID, Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalCount)

	require.NoError(t, s.Prompts.SoftDelete(ctx, p.ID))
	_, err = s.Prompts.Get(ctx, p.ID)
	assert.Error(t, err)
}

func TestNextVersion(t *testing.T) {
	v, err := NextVersion("", models.BumpPatch)
	require.NoError(t, err)
	assert.Equal(t, "0.1.0", v)

	v, err = NextVersion("1.2.3", models.BumpPatch)
	require.NoError(t, err)
	assert.Equal(t, "1.2.4", v)

	v, err = NextVersion("1.2.3", models.BumpMinor)
	require.NoError(t, err)
	assert.Equal(t, "1.3.0", v)

	v, err = NextVersion("1.2.3", models.BumpMajor)
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", v)
}

func TestSceneRefIndexReplace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	proj, err := s.Projects.Create(ctx, models.Project{Slug: "p1", Name: "P1"})
	require.NoError(t, err)

	target, err := s.Prompts.Create(ctx, models.Prompt{
		ProjectID: proj.ID, Slug: "t", Name: "T", Format: models.FormatText, TemplateEngine: models.EngineNone,
	})
	require.NoError(t, err)

	scene, err := s.Scenes.Create(ctx, models.Scene{
		ProjectID: proj.ID, Slug: "sc1", Name: "Scene 1", MergeStrategy: models.MergeConcat,
	})
	require.NoError(t, err)

	step1 := "step-1"
	require.NoError(t, s.RefIndex.ReplaceSceneRefs(ctx, scene.ID, []models.PromptRef{
		{StepID: &step1, TargetPrompt: target.ID, RefType: models.RefComposes},
	}))

	edges, err := s.RefIndex.OutEdgesForScene(ctx, scene.ID)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, target.ID, edges[0].TargetPrompt)

	// Replacing again should drop the old edge set entirely.
	require.NoError(t, s.RefIndex.ReplaceSceneRefs(ctx, scene.ID, nil))
	edges, err = s.RefIndex.OutEdgesForScene(ctx, scene.ID)
	require.NoError(t, err)
	assert.Empty(t, edges)
}
