package store

import (
	"context"

	"github.com/prompthub/prompthub/pkg/models"
)

// GetPrompt and OutEdgesForPrompt make *Store satisfy resolver.PromptLookup
// directly, so callers can wire store.New(pool) straight into resolver.New.
func (s *Store) GetPrompt(ctx context.Context, id string) (models.Prompt, error) {
	return s.Prompts.Get(ctx, id)
}

func (s *Store) OutEdgesForPrompt(ctx context.Context, promptID string) ([]models.PromptRef, error) {
	return s.RefIndex.OutEdgesForPrompt(ctx, promptID)
}

// GetVersionContent makes *Store satisfy sceneengine.PromptReader directly.
func (s *Store) GetVersionContent(ctx context.Context, promptID, version string) (models.Version, error) {
	return s.Versions.Get(ctx, promptID, version)
}
