package services

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/prompthub/prompthub/pkg/apperrors"
	"github.com/prompthub/prompthub/pkg/cache"
	"github.com/prompthub/prompthub/pkg/models"
	"github.com/prompthub/prompthub/pkg/render"
	"github.com/prompthub/prompthub/pkg/store"
)

// PromptService owns prompt and version CRUD, publish/share/fork, and the
// single-prompt render endpoint.
type PromptService struct {
	store *store.Store
	cache *cache.Cache
}

// NewPromptService constructs a PromptService.
func NewPromptService(s *store.Store, c *cache.Cache) *PromptService {
	return &PromptService{store: s, cache: c}
}

// Create validates and inserts a new prompt (no versions yet; the first
// version is created by Publish).
func (s *PromptService) Create(ctx context.Context, p models.Prompt) (models.Prompt, error) {
	if err := validateVariableSpec(p.TemplateEngine, p.VariableSpec); err != nil {
		return models.Prompt{}, err
	}
	return s.store.Prompts.Create(ctx, p)
}

func (s *PromptService) Get(ctx context.Context, id string) (models.Prompt, error) {
	return s.store.Prompts.Get(ctx, id)
}

func (s *PromptService) List(ctx context.Context, f models.ListFilters) (models.Page[models.Prompt], error) {
	return s.store.Prompts.List(ctx, f)
}

// Update validates and persists mutable prompt fields.
func (s *PromptService) Update(ctx context.Context, p models.Prompt) (models.Prompt, error) {
	if err := validateVariableSpec(p.TemplateEngine, p.VariableSpec); err != nil {
		return models.Prompt{}, err
	}
	updated, err := s.store.Prompts.Update(ctx, p)
	if err != nil {
		return models.Prompt{}, err
	}
	s.cache.InvalidatePrompt(p.ID)
	return updated, nil
}

// Delete soft-deletes a prompt, first checking that no other prompt or scene
// still depends on it (extends/includes/composes or a scene pipeline step):
// deleting a prompt with live in-edges would leave those dependents unable
// to resolve.
func (s *PromptService) Delete(ctx context.Context, id string) error {
	dependents, err := s.store.RefIndex.InEdgesForPrompt(ctx, id)
	if err != nil {
		return err
	}
	if len(dependents) > 0 {
		return fmt.Errorf("prompt %s is still referenced by %d other ref(s): %w", id, len(dependents), apperrors.ErrConflict)
	}

	if err := s.store.Prompts.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.cache.InvalidatePrompt(id)
	return nil
}

// ListVersions returns a prompt's version history, newest semver first.
func (s *PromptService) ListVersions(ctx context.Context, promptID string) ([]models.Version, error) {
	return s.store.Versions.List(ctx, promptID)
}

// GetVersion fetches one version of a prompt.
func (s *PromptService) GetVersion(ctx context.Context, promptID, version string) (models.Version, error) {
	return s.store.Versions.Get(ctx, promptID, version)
}

// Publish creates a new immutable version (computing the next semver from
// the bump kind) and atomically repoints the prompt's current_version.
func (s *PromptService) Publish(ctx context.Context, promptID string, bump models.SemverBump, content, changelog string) (models.Version, error) {
	p, err := s.store.Prompts.Get(ctx, promptID)
	if err != nil {
		return models.Version{}, err
	}

	next, err := store.NextVersion(p.CurrentVersion, bump)
	if err != nil {
		return models.Version{}, fmt.Errorf("compute next version: %w", err)
	}

	var version models.Version
	err = s.store.WithTx(ctx, func(tx pgx.Tx) error {
		txStore := store.New(nil)
		txStore.BindTx(tx)

		var txErr error
		version, txErr = txStore.Versions.Create(ctx, models.Version{
			PromptID:     promptID,
			Version:      next,
			Content:      content,
			VariableSpec: p.VariableSpec,
			Changelog:    changelog,
			Status:       models.StatusPublished,
		})
		if txErr != nil {
			return txErr
		}
		return txStore.Prompts.SetCurrentVersion(ctx, promptID, next)
	})
	if err != nil {
		return models.Version{}, err
	}

	s.cache.InvalidatePrompt(promptID)
	return version, nil
}

// SetExtends records a prompt's explicit extends/includes/composes
// declarations toward other prompts. Scene-derived refs are mandatory and
// kept in sync automatically by SceneService; this covers the optional
// prompt-to-prompt declarations the spec allows on top of those.
func (s *PromptService) SetExtends(ctx context.Context, promptID string, refs []models.PromptRef) error {
	if err := s.store.RefIndex.ReplacePromptExtends(ctx, promptID, refs); err != nil {
		return err
	}
	s.cache.InvalidatePrompt(promptID)
	return nil
}

// Share marks a prompt as shared, making it eligible as a cross-project reference target.
func (s *PromptService) Share(ctx context.Context, promptID string) error {
	if err := s.store.Prompts.SetShared(ctx, promptID, true); err != nil {
		return err
	}
	s.cache.InvalidatePrompt(promptID)
	return nil
}

// Fork copies a shared prompt's latest published content into a new prompt
// owned by targetProjectID, as a fresh unshared draft at 0.1.0.
func (s *PromptService) Fork(ctx context.Context, sourcePromptID, targetProjectID, newSlug string) (models.Prompt, error) {
	source, err := s.store.Prompts.Get(ctx, sourcePromptID)
	if err != nil {
		return models.Prompt{}, err
	}
	if !source.IsShared {
		return models.Prompt{}, fmt.Errorf("prompt %s is not shared: %w", sourcePromptID, apperrors.ErrPermissionDenied)
	}

	forked, err := s.store.Prompts.Create(ctx, models.Prompt{
		ProjectID:      targetProjectID,
		Slug:           newSlug,
		Name:           source.Name,
		Description:    source.Description,
		Format:         source.Format,
		TemplateEngine: source.TemplateEngine,
		VariableSpec:   source.VariableSpec,
		Tags:           source.Tags,
		Category:       source.Category,
		IsShared:       false,
	})
	if err != nil {
		return models.Prompt{}, err
	}

	if source.CurrentVersion != "" {
		sourceVersion, err := s.store.Versions.Get(ctx, sourcePromptID, source.CurrentVersion)
		if err != nil {
			return models.Prompt{}, err
		}
		if _, err := s.store.Versions.Create(ctx, models.Version{
			PromptID:     forked.ID,
			Version:      "0.1.0",
			Content:      sourceVersion.Content,
			VariableSpec: sourceVersion.VariableSpec,
			Changelog:    "forked from " + sourcePromptID,
			Status:       models.StatusDraft,
		}); err != nil {
			return models.Prompt{}, err
		}
		if err := s.store.Prompts.SetCurrentVersion(ctx, forked.ID, "0.1.0"); err != nil {
			return models.Prompt{}, err
		}
		forked.CurrentVersion = "0.1.0"
	}

	return forked, nil
}

// Render evaluates a single prompt's content (its current version, unless a
// version is given) against caller-supplied variables, without going
// through a scene pipeline.
func (s *PromptService) Render(ctx context.Context, promptID, version string, vars map[string]any) (string, int, error) {
	p, err := s.store.Prompts.Get(ctx, promptID)
	if err != nil {
		return "", 0, err
	}
	if version == "" || version == models.LatestVersion {
		version = p.CurrentVersion
	}
	v, err := s.store.Versions.Get(ctx, promptID, version)
	if err != nil {
		return "", 0, err
	}

	scope := render.ApplyDefaults(v.VariableSpec, vars)
	if err := render.Validate(v.VariableSpec, scope); err != nil {
		return "", 0, err
	}

	engine, err := render.ForEngine(p.TemplateEngine)
	if err != nil {
		return "", 0, err
	}
	rendered, err := engine.Render(v.Content, scope, v.VariableSpec)
	if err != nil {
		return "", 0, err
	}

	return rendered, render.EstimateTokens(rendered), nil
}

func validateVariableSpec(engine models.TemplateEngine, spec []models.VariableDeclaration) error {
	if engine == models.EngineNone && len(spec) > 0 {
		return apperrors.NewValidationError("variable_spec", "must be empty when template_engine is none")
	}
	for _, decl := range spec {
		if decl.Type == models.VarEnum && len(decl.EnumValues) == 0 {
			return apperrors.NewValidationError("variable_spec", fmt.Sprintf("variable %q of type enum must declare enum_values", decl.Name))
		}
		if decl.Type == models.VarEnum && decl.Default != nil {
			def, ok := decl.Default.(string)
			if !ok {
				return apperrors.NewValidationError("variable_spec", fmt.Sprintf("variable %q default must be a string", decl.Name))
			}
			if !containsString(decl.EnumValues, def) {
				return apperrors.NewValidationError("variable_spec", fmt.Sprintf("variable %q default %q is outside enum_values", decl.Name, def))
			}
		}
	}
	return nil
}

func containsString(list []string, target string) bool {
	for _, v := range list {
		if v == target {
			return true
		}
	}
	return false
}
