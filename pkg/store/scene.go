package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/prompthub/prompthub/pkg/apperrors"
	"github.com/prompthub/prompthub/pkg/models"
)

// SceneStore persists models.Scene rows.
type SceneStore struct {
	q querier
}

const sceneColumns = `
	id, project_id, slug, name, pipeline, merge_strategy, separator, output_format,
	created_at, updated_at, deleted_at
`

func scanScene(row interface {
	Scan(dest ...any) error
}) (models.Scene, error) {
	var sc models.Scene
	var pipeline []byte
	if err := row.Scan(
		&sc.ID, &sc.ProjectID, &sc.Slug, &sc.Name, &pipeline, &sc.MergeStrategy,
		&sc.Separator, &sc.OutputFormat, &sc.CreatedAt, &sc.UpdatedAt, &sc.DeletedAt,
	); err != nil {
		return models.Scene{}, err
	}
	if len(pipeline) > 0 {
		if err := json.Unmarshal(pipeline, &sc.Pipeline); err != nil {
			return models.Scene{}, fmt.Errorf("unmarshal pipeline: %w", err)
		}
	}
	return sc, nil
}

// Create inserts a new scene.
func (s *SceneStore) Create(ctx context.Context, sc models.Scene) (models.Scene, error) {
	sc.ID = uuid.NewString()
	pipeline, err := marshalJSON(sc.Pipeline)
	if err != nil {
		return models.Scene{}, err
	}

	row := s.q.QueryRow(ctx, `
		INSERT INTO scenes (id, project_id, slug, name, pipeline, merge_strategy, separator, output_format)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+sceneColumns, sc.ID, sc.ProjectID, sc.Slug, sc.Name, pipeline,
		sc.MergeStrategy, sc.Separator, sc.OutputFormat)

	out, err := scanScene(row)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Scene{}, fmt.Errorf("scene slug %q in project: %w", sc.Slug, apperrors.ErrConflict)
		}
		return models.Scene{}, fmt.Errorf("create scene: %w", err)
	}
	return out, nil
}

// Get fetches a non-deleted scene by id.
func (s *SceneStore) Get(ctx context.Context, id string) (models.Scene, error) {
	row := s.q.QueryRow(ctx, `SELECT `+sceneColumns+` FROM scenes WHERE id = $1 AND deleted_at IS NULL`, id)
	out, err := scanScene(row)
	if err != nil {
		return models.Scene{}, wrapNotFound("scene", err)
	}
	return out, nil
}

// Update replaces a scene's mutable fields, including its pipeline.
func (s *SceneStore) Update(ctx context.Context, sc models.Scene) (models.Scene, error) {
	pipeline, err := marshalJSON(sc.Pipeline)
	if err != nil {
		return models.Scene{}, err
	}

	row := s.q.QueryRow(ctx, `
		UPDATE scenes SET
			name = $2, pipeline = $3, merge_strategy = $4, separator = $5, output_format = $6,
			updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+sceneColumns, sc.ID, sc.Name, pipeline, sc.MergeStrategy, sc.Separator, sc.OutputFormat)

	out, err := scanScene(row)
	if err != nil {
		return models.Scene{}, wrapNotFound("scene", err)
	}
	return out, nil
}

// SoftDelete marks a scene deleted.
func (s *SceneStore) SoftDelete(ctx context.Context, id string) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE scenes SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("soft delete scene: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("scene %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

// List returns a filtered, paginated set of scenes for a project.
func (s *SceneStore) List(ctx context.Context, f models.ListFilters) (models.Page[models.Scene], error) {
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
	if f.Search != "" {
		where = append(where, "name ILIKE "+arg("%"+f.Search+"%"))
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
	if err := s.q.QueryRow(ctx, "SELECT count(*) FROM scenes WHERE "+whereClause, args...).Scan(&total); err != nil {
		return models.Page[models.Scene]{}, fmt.Errorf("count scenes: %w", err)
	}

	limitArg := arg(pageSize)
	offsetArg := arg((page - 1) * pageSize)
	listSQL := "SELECT " + sceneColumns + " FROM scenes WHERE " + whereClause +
		" ORDER BY created_at DESC LIMIT " + limitArg + " OFFSET " + offsetArg

	rows, err := s.q.Query(ctx, listSQL, args...)
	if err != nil {
		return models.Page[models.Scene]{}, fmt.Errorf("list scenes: %w", err)
	}
	defer rows.Close()

	var items []models.Scene
	for rows.Next() {
		sc, err := scanScene(rows)
		if err != nil {
			return models.Page[models.Scene]{}, fmt.Errorf("scan scene: %w", err)
		}
		items = append(items, sc)
	}
	if err := rows.Err(); err != nil {
		return models.Page[models.Scene]{}, err
	}

	return models.Page[models.Scene]{Items: items, Page: page, PageSize: pageSize, TotalCount: total}, nil
}
