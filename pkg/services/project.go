// Package services orchestrates the storage, caching, resolution and
// rendering layers into the operations the API surface calls directly,
// the way the teacher's pkg/services wraps its ent client per aggregate.
package services

import (
	"context"

	"github.com/prompthub/prompthub/pkg/models"
	"github.com/prompthub/prompthub/pkg/store"
)

// ProjectService wraps project CRUD. Projects are consumed here as a
// read-mostly collaborator; full project/user management is out of scope.
type ProjectService struct {
	store *store.Store
}

// NewProjectService constructs a ProjectService over the given store.
func NewProjectService(s *store.Store) *ProjectService {
	return &ProjectService{store: s}
}

func (s *ProjectService) Create(ctx context.Context, slug, name string) (models.Project, error) {
	return s.store.Projects.Create(ctx, models.Project{Slug: slug, Name: name})
}

func (s *ProjectService) Get(ctx context.Context, id string) (models.Project, error) {
	return s.store.Projects.Get(ctx, id)
}

func (s *ProjectService) List(ctx context.Context) ([]models.Project, error) {
	return s.store.Projects.List(ctx)
}

// ListPrompts returns every non-deleted prompt owned by the project.
func (s *ProjectService) ListPrompts(ctx context.Context, projectID string, page, pageSize int) (models.Page[models.Prompt], error) {
	return s.store.Prompts.List(ctx, models.ListFilters{ProjectID: projectID, Page: page, PageSize: pageSize})
}
