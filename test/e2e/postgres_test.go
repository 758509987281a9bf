package e2e

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/prompthub/prompthub/pkg/cache"
	"github.com/prompthub/prompthub/pkg/database"
	"github.com/prompthub/prompthub/pkg/models"
	"github.com/prompthub/prompthub/pkg/resolver"
	"github.com/prompthub/prompthub/pkg/sceneengine"
	"github.com/prompthub/prompthub/pkg/store"
)

func newTestStore(t *testing.T) *store.Store {
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

	return store.New(client.Pool())
}

// TestE2E_PublishInvalidatesCacheAgainstRealStore re-runs the cache-coherence
// scenario against a real Postgres-backed store instead of the in-memory
// fake: resolving a scene pinned to "latest" twice must return stale content
// only until a publish actually lands, after which the next resolve picks up
// the new version without any explicit cache invalidation call.
func TestE2E_PublishInvalidatesCacheAgainstRealStore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	proj, err := s.Projects.Create(ctx, models.Project{Slug: "acme", Name: "Acme"})
	require.NoError(t, err)

	p, err := s.Prompts.Create(ctx, models.Prompt{
		ProjectID: proj.ID, Slug: "greeting", Name: "Greeting",
		Format: models.FormatText, TemplateEngine: models.EngineB,
		VariableSpec: []models.VariableDeclaration{{Name: "name", Type: models.VarString, Required: true}},
	})
	require.NoError(t, err)

	v1, err := s.Versions.Create(ctx, models.Version{
		PromptID: p.ID, Version: "0.1.0", Content: "v1 hi {{ name }}", Status: models.StatusPublished,
		VariableSpec: p.VariableSpec,
	})
	require.NoError(t, err)
	require.NoError(t, s.Prompts.SetCurrentVersion(ctx, p.ID, v1.Version))

	scene, err := s.Scenes.Create(ctx, models.Scene{
		ProjectID: proj.ID, Slug: "hello", Name: "Hello", MergeStrategy: models.MergeConcat,
	})
	require.NoError(t, err)
	step := "s"
	scene.Pipeline = []models.Step{{StepID: step, PromptRef: models.PromptReference{PromptID: p.ID}}}
	scene, err = s.Scenes.Update(ctx, scene)
	require.NoError(t, err)
	require.NoError(t, s.RefIndex.ReplaceSceneRefs(ctx, scene.ID, []models.PromptRef{
		{StepID: &step, TargetPrompt: p.ID, RefType: models.RefComposes},
	}))

	engine := sceneengine.New(s, resolver.New(s), cache.New(5*time.Minute), &recordingLogger{}, cache.Fingerprint)
	caller := models.Caller{ID: "c1", ProjectID: proj.ID}
	vars := map[string]any{"name": "Ada"}

	first, err := engine.Resolve(ctx, scene, vars, caller)
	require.NoError(t, err)
	assert.Equal(t, "v1 hi Ada", first.FinalContent)
	assert.False(t, first.CacheHit)

	second, err := engine.Resolve(ctx, scene, vars, caller)
	require.NoError(t, err)
	assert.Equal(t, "v1 hi Ada", second.FinalContent)
	assert.True(t, second.CacheHit)

	v2, err := s.Versions.Create(ctx, models.Version{
		PromptID: p.ID, Version: "0.2.0", Content: "v2 hi {{ name }}", Status: models.StatusPublished,
		VariableSpec: p.VariableSpec,
	})
	require.NoError(t, err)
	require.NoError(t, s.Prompts.SetCurrentVersion(ctx, p.ID, v2.Version))

	third, err := engine.Resolve(ctx, scene, vars, caller)
	require.NoError(t, err)
	assert.Equal(t, "v2 hi Ada", third.FinalContent, "publishing must invalidate the latest-bound resolve through the fingerprint alone")
	assert.False(t, third.CacheHit)
}
