package services

import (
	"context"

	"github.com/prompthub/prompthub/pkg/cache"
	"github.com/prompthub/prompthub/pkg/models"
	"github.com/prompthub/prompthub/pkg/resolver"
	"github.com/prompthub/prompthub/pkg/sceneengine"
	"github.com/prompthub/prompthub/pkg/store"
)

// SceneService owns scene CRUD (keeping the reference index in sync with a
// scene's pipeline) and delegates actual rendering to the Scene Engine.
type SceneService struct {
	store    *store.Store
	cache    *cache.Cache
	resolver *resolver.Resolver
	engine   *sceneengine.Engine
}

// NewSceneService constructs a SceneService.
func NewSceneService(s *store.Store, c *cache.Cache, r *resolver.Resolver, e *sceneengine.Engine) *SceneService {
	return &SceneService{store: s, cache: c, resolver: r, engine: e}
}

// Create inserts a scene and populates its reference index from the pipeline.
func (s *SceneService) Create(ctx context.Context, sc models.Scene) (models.Scene, error) {
	created, err := s.store.Scenes.Create(ctx, sc)
	if err != nil {
		return models.Scene{}, err
	}
	if err := s.store.RefIndex.ReplaceSceneRefs(ctx, created.ID, refsFromPipeline(created.ID, created.Pipeline)); err != nil {
		return models.Scene{}, err
	}
	return created, nil
}

func (s *SceneService) Get(ctx context.Context, id string) (models.Scene, error) {
	return s.store.Scenes.Get(ctx, id)
}

func (s *SceneService) List(ctx context.Context, f models.ListFilters) (models.Page[models.Scene], error) {
	return s.store.Scenes.List(ctx, f)
}

// Update replaces a scene's pipeline, resyncs its reference index, and
// invalidates any cached resolves since the dependency graph may have changed.
func (s *SceneService) Update(ctx context.Context, sc models.Scene) (models.Scene, error) {
	updated, err := s.store.Scenes.Update(ctx, sc)
	if err != nil {
		return models.Scene{}, err
	}
	if err := s.store.RefIndex.ReplaceSceneRefs(ctx, updated.ID, refsFromPipeline(updated.ID, updated.Pipeline)); err != nil {
		return models.Scene{}, err
	}
	s.cache.InvalidateScene(updated.ID)
	return updated, nil
}

func (s *SceneService) Delete(ctx context.Context, id string) error {
	if err := s.store.Scenes.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.cache.InvalidateScene(id)
	return nil
}

// Resolve renders the scene's pipeline end to end (cache lookup, plan
// resolution, per-step render, merge) on behalf of caller.
func (s *SceneService) Resolve(ctx context.Context, sceneID string, variables map[string]any, caller models.Caller) (*sceneengine.SceneResolveResult, error) {
	sc, err := s.store.Scenes.Get(ctx, sceneID)
	if err != nil {
		return nil, err
	}
	return s.engine.Resolve(ctx, sc, variables, caller)
}

// Dependencies returns the resolved, topologically sorted plan for a scene
// without rendering it, for dependency-graph visualization.
func (s *SceneService) Dependencies(ctx context.Context, sceneID, callerProjectID string) (*resolver.Plan, error) {
	sc, err := s.store.Scenes.Get(ctx, sceneID)
	if err != nil {
		return nil, err
	}
	return s.resolver.Resolve(ctx, sc, callerProjectID)
}

// refsFromPipeline derives the reference-index rows for a scene's direct
// pipeline steps. Transitive prompt-to-prompt refs (extends/includes) are
// indexed separately, against the prompt itself, by PromptService.SetExtends.
func refsFromPipeline(sceneID string, pipeline []models.Step) []models.PromptRef {
	refs := make([]models.PromptRef, 0, len(pipeline))
	for _, step := range pipeline {
		step := step
		refs = append(refs, models.PromptRef{
			SceneID:      &sceneID,
			StepID:       &step.StepID,
			TargetPrompt: step.PromptRef.PromptID,
			RefType:      models.RefComposes,
			Override:     step.Variables,
			PinnedVer:    step.PromptRef.Version,
		})
	}
	return refs
}
