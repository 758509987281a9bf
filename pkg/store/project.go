package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/prompthub/prompthub/pkg/apperrors"
	"github.com/prompthub/prompthub/pkg/models"
)

// ProjectStore persists models.Project rows.
type ProjectStore struct {
	q querier
}

// Create inserts a new project, generating its id.
func (s *ProjectStore) Create(ctx context.Context, p models.Project) (models.Project, error) {
	p.ID = uuid.NewString()
	row := s.q.QueryRow(ctx, `
		INSERT INTO projects (id, slug, name)
		VALUES ($1, $2, $3)
		RETURNING id, slug, name, created_at, updated_at
	`, p.ID, p.Slug, p.Name)

	var out models.Project
	if err := row.Scan(&out.ID, &out.Slug, &out.Name, &out.CreatedAt, &out.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return models.Project{}, fmt.Errorf("project slug %q: %w", p.Slug, apperrors.ErrConflict)
		}
		return models.Project{}, fmt.Errorf("create project: %w", err)
	}
	return out, nil
}

// Get fetches a project by id.
func (s *ProjectStore) Get(ctx context.Context, id string) (models.Project, error) {
	row := s.q.QueryRow(ctx, `
		SELECT id, slug, name, created_at, updated_at FROM projects WHERE id = $1
	`, id)

	var out models.Project
	if err := row.Scan(&out.ID, &out.Slug, &out.Name, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return models.Project{}, wrapNotFound("project", err)
	}
	return out, nil
}

// GetBySlug fetches a project by its unique slug.
func (s *ProjectStore) GetBySlug(ctx context.Context, slug string) (models.Project, error) {
	row := s.q.QueryRow(ctx, `
		SELECT id, slug, name, created_at, updated_at FROM projects WHERE slug = $1
	`, slug)

	var out models.Project
	if err := row.Scan(&out.ID, &out.Slug, &out.Name, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return models.Project{}, wrapNotFound("project", err)
	}
	return out, nil
}

// List returns every project ordered by slug.
func (s *ProjectStore) List(ctx context.Context) ([]models.Project, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id, slug, name, created_at, updated_at FROM projects ORDER BY slug
	`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Slug, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
