package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"

	"github.com/prompthub/prompthub/pkg/apperrors"
	"github.com/prompthub/prompthub/pkg/models"
)

// PromptStore persists models.Prompt rows.
type PromptStore struct {
	q querier
}

const promptColumns = `
	id, project_id, slug, name, description, current_version, format, template_engine,
	variable_spec, tags, category, is_shared, created_at, updated_at, deleted_at
`

func scanPrompt(row interface {
	Scan(dest ...any) error
}) (models.Prompt, error) {
	var p models.Prompt
	var currentVersion *string
	var varSpec []byte
	if err := row.Scan(
		&p.ID, &p.ProjectID, &p.Slug, &p.Name, &p.Description, &currentVersion,
		&p.Format, &p.TemplateEngine, &varSpec, &p.Tags, &p.Category, &p.IsShared,
		&p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
	); err != nil {
		return models.Prompt{}, err
	}
	if currentVersion != nil {
		p.CurrentVersion = *currentVersion
	}
	if len(varSpec) > 0 {
		if err := json.Unmarshal(varSpec, &p.VariableSpec); err != nil {
			return models.Prompt{}, fmt.Errorf("unmarshal variable_spec: %w", err)
		}
	}
	return p, nil
}

// Create inserts a new prompt.
func (s *PromptStore) Create(ctx context.Context, p models.Prompt) (models.Prompt, error) {
	p.ID = uuid.NewString()
	varSpec, err := marshalJSON(p.VariableSpec)
	if err != nil {
		return models.Prompt{}, err
	}

	row := s.q.QueryRow(ctx, `
		INSERT INTO prompts (id, project_id, slug, name, description, format, template_engine,
			variable_spec, tags, category, is_shared)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+promptColumns, p.ID, p.ProjectID, p.Slug, p.Name, p.Description, p.Format,
		p.TemplateEngine, varSpec, p.Tags, p.Category, p.IsShared)

	out, err := scanPrompt(row)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Prompt{}, fmt.Errorf("prompt slug %q in project: %w", p.Slug, apperrors.ErrConflict)
		}
		return models.Prompt{}, fmt.Errorf("create prompt: %w", err)
	}
	return out, nil
}

// Get fetches a non-deleted prompt by id.
func (s *PromptStore) Get(ctx context.Context, id string) (models.Prompt, error) {
	row := s.q.QueryRow(ctx, `SELECT `+promptColumns+` FROM prompts WHERE id = $1 AND deleted_at IS NULL`, id)
	out, err := scanPrompt(row)
	if err != nil {
		return models.Prompt{}, wrapNotFound("prompt", err)
	}
	return out, nil
}

// GetBySlug fetches a non-deleted prompt by (project_id, slug).
func (s *PromptStore) GetBySlug(ctx context.Context, projectID, slug string) (models.Prompt, error) {
	row := s.q.QueryRow(ctx, `
		SELECT `+promptColumns+` FROM prompts
		WHERE project_id = $1 AND slug = $2 AND deleted_at IS NULL
	`, projectID, slug)
	out, err := scanPrompt(row)
	if err != nil {
		return models.Prompt{}, wrapNotFound("prompt", err)
	}
	return out, nil
}

// Update persists mutable prompt fields and bumps updated_at.
func (s *PromptStore) Update(ctx context.Context, p models.Prompt) (models.Prompt, error) {
	varSpec, err := marshalJSON(p.VariableSpec)
	if err != nil {
		return models.Prompt{}, err
	}

	row := s.q.QueryRow(ctx, `
		UPDATE prompts SET
			name = $2, description = $3, format = $4, template_engine = $5,
			variable_spec = $6, tags = $7, category = $8, is_shared = $9,
			current_version = $10, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+promptColumns, p.ID, p.Name, p.Description, p.Format, p.TemplateEngine,
		varSpec, p.Tags, p.Category, p.IsShared, nullableString(p.CurrentVersion))

	out, err := scanPrompt(row)
	if err != nil {
		return models.Prompt{}, wrapNotFound("prompt", err)
	}
	return out, nil
}

// SetCurrentVersion updates only the current_version pointer, used by publish().
func (s *PromptStore) SetCurrentVersion(ctx context.Context, id, version string) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE prompts SET current_version = $2, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, id, version)
	if err != nil {
		return fmt.Errorf("set current version: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("prompt %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

// SetShared toggles is_shared.
func (s *PromptStore) SetShared(ctx context.Context, id string, shared bool) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE prompts SET is_shared = $2, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, id, shared)
	if err != nil {
		return fmt.Errorf("set shared: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("prompt %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

// SoftDelete marks a prompt deleted without removing history.
func (s *PromptStore) SoftDelete(ctx context.Context, id string) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE prompts SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("soft delete prompt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("prompt %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

// List returns a filtered, paginated set of prompts.
func (s *PromptStore) List(ctx context.Context, f models.ListFilters) (models.Page[models.Prompt], error) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	where = append(where, "deleted_at IS NULL")
	if f.ProjectID != "" {
		where = append(where, "project_id = "+arg(f.ProjectID))
	}
	if f.Slug != "" {
		where = append(where, "slug = "+arg(f.Slug))
	}
	if f.Category != "" {
		where = append(where, "category = "+arg(f.Category))
	}
	if f.IsShared != nil {
		where = append(where, "is_shared = "+arg(*f.IsShared))
	}
	if len(f.Tags) > 0 {
		where = append(where, "tags && "+arg(f.Tags))
	}
	if f.Search != "" {
		idx := arg("%" + f.Search + "%")
		where = append(where, fmt.Sprintf("(name ILIKE %s OR description ILIKE %s)", idx, idx))
	}

	whereClause := strings.Join(where, " AND ")

	page, pageSize := f.Page, f.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	var total int
	countSQL := "SELECT count(*) FROM prompts WHERE " + whereClause
	if err := s.q.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return models.Page[models.Prompt]{}, fmt.Errorf("count prompts: %w", err)
	}

	// current_version needs natural semver order, not lexicographic — no SQL
	// ORDER BY expresses that over a plain text column, so this sort key is
	// applied in Go over the whole filtered set before paginating in memory.
	if f.SortBy == "current_version" {
		listSQL := "SELECT " + promptColumns + " FROM prompts WHERE " + whereClause
		rows, err := s.q.Query(ctx, listSQL, args...)
		if err != nil {
			return models.Page[models.Prompt]{}, fmt.Errorf("list prompts: %w", err)
		}
		defer rows.Close()

		var all []models.Prompt
		for rows.Next() {
			p, err := scanPrompt(rows)
			if err != nil {
				return models.Page[models.Prompt]{}, fmt.Errorf("scan prompt: %w", err)
			}
			all = append(all, p)
		}
		if err := rows.Err(); err != nil {
			return models.Page[models.Prompt]{}, err
		}

		sortPromptsBySemver(all, f.Order)

		start := (page - 1) * pageSize
		if start > len(all) {
			start = len(all)
		}
		end := start + pageSize
		if end > len(all) {
			end = len(all)
		}

		return models.Page[models.Prompt]{Items: all[start:end], Page: page, PageSize: pageSize, TotalCount: total}, nil
	}

	orderClause := promptOrderClause(f.SortBy, f.Order)
	limitArg := arg(pageSize)
	offsetArg := arg((page - 1) * pageSize)
	listSQL := "SELECT " + promptColumns + " FROM prompts WHERE " + whereClause +
		" ORDER BY " + orderClause + " LIMIT " + limitArg + " OFFSET " + offsetArg

	rows, err := s.q.Query(ctx, listSQL, args...)
	if err != nil {
		return models.Page[models.Prompt]{}, fmt.Errorf("list prompts: %w", err)
	}
	defer rows.Close()

	var items []models.Prompt
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return models.Page[models.Prompt]{}, fmt.Errorf("scan prompt: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return models.Page[models.Prompt]{}, err
	}

	return models.Page[models.Prompt]{Items: items, Page: page, PageSize: pageSize, TotalCount: total}, nil
}

func promptOrderClause(sortBy, order string) string {
	col := "created_at"
	switch sortBy {
	case "name":
		col = "name"
	case "updated_at":
		col = "updated_at"
	case "slug":
		col = "slug"
	}
	dir := "DESC"
	if strings.EqualFold(order, "asc") {
		dir = "ASC"
	}
	return col + " " + dir
}

// sortPromptsBySemver orders prompts by their current_version using strict
// semver comparison (spec.md §4.1: "current_version (natural semver order,
// not lexicographic)"), reusing the same comparison SortBySemverDesc applies
// to version history. Unparseable version strings fall back to lexical order
// so a malformed value never panics the sort.
func sortPromptsBySemver(prompts []models.Prompt, order string) {
	asc := strings.EqualFold(order, "asc")
	sort.SliceStable(prompts, func(i, j int) bool {
		a, b := prompts[i], prompts[j]
		av, aerr := semver.StrictNewVersion(a.CurrentVersion)
		bv, berr := semver.StrictNewVersion(b.CurrentVersion)
		if aerr != nil || berr != nil {
			if asc {
				return a.CurrentVersion < b.CurrentVersion
			}
			return a.CurrentVersion > b.CurrentVersion
		}
		if asc {
			return av.LessThan(bv)
		}
		return av.GreaterThan(bv)
	})
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
