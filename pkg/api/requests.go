package api

import (
	"strconv"
	"strings"

	echo "github.com/labstack/echo/v5"

	"github.com/prompthub/prompthub/pkg/apperrors"
	"github.com/prompthub/prompthub/pkg/models"
)

// bindAndValidate decodes the request body into dst and runs struct tag
// validation, returning a *apperrors.ValidationError (mapped to 42200) on
// either failure.
func (s *Server) bindAndValidate(c *echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return apperrors.NewValidationError("", "malformed request body: "+err.Error())
	}
	if err := s.validate.Struct(dst); err != nil {
		return apperrors.NewValidationError("", err.Error())
	}
	return nil
}

// CreateProjectRequest is the body for POST /api/v1/projects.
type CreateProjectRequest struct {
	Slug string `json:"slug" validate:"required"`
	Name string `json:"name" validate:"required"`
}

// PromptRequest is the body for POST/PUT /api/v1/prompts(/:id).
type PromptRequest struct {
	ProjectID      string                         `json:"project_id" validate:"required"`
	Slug           string                         `json:"slug" validate:"required"`
	Name           string                         `json:"name" validate:"required"`
	Description    string                         `json:"description"`
	Format         models.Format                  `json:"format" validate:"required"`
	TemplateEngine models.TemplateEngine          `json:"template_engine" validate:"required"`
	VariableSpec   []models.VariableDeclaration   `json:"variable_spec"`
	Tags           []string                       `json:"tags"`
	Category       string                         `json:"category"`
}

// PublishRequest is the body for POST /api/v1/prompts/:id/publish.
type PublishRequest struct {
	Bump      models.SemverBump `json:"bump" validate:"required"`
	Content   string            `json:"content" validate:"required"`
	Changelog string            `json:"changelog"`
}

// RenderRequest is the body for POST /api/v1/prompts/:id/render.
type RenderRequest struct {
	Version   string         `json:"version"`
	Variables map[string]any `json:"variables"`
}

// SceneRequest is the body for POST/PUT /api/v1/scenes(/:id).
type SceneRequest struct {
	ProjectID     string              `json:"project_id" validate:"required"`
	Slug          string              `json:"slug" validate:"required"`
	Name          string              `json:"name" validate:"required"`
	Pipeline      []models.Step       `json:"pipeline" validate:"required"`
	MergeStrategy models.MergeStrategy `json:"merge_strategy" validate:"required"`
	Separator     string              `json:"separator"`
	OutputFormat  string              `json:"output_format"`
}

// ResolveRequest is the body for POST /api/v1/scenes/:id/resolve.
type ResolveRequest struct {
	Variables map[string]any `json:"variables"`
}

// ForkRequest is the body for POST /api/v1/shared/prompts/:id/fork.
type ForkRequest struct {
	TargetProjectID string `json:"target_project_id" validate:"required"`
	NewSlug         string `json:"new_slug" validate:"required"`
}

// pagination reads page/page_size query params, applying the configured
// default and clamping to MaxPageSize (spec.md §6 pagination defaults).
func (s *Server) pagination(c *echo.Context) (page, pageSize int) {
	page = 1
	if v, err := strconv.Atoi(c.QueryParam("page")); err == nil && v > 0 {
		page = v
	}
	pageSize = s.cfg.DefaultPageSize
	if v, err := strconv.Atoi(c.QueryParam("page_size")); err == nil && v > 0 {
		pageSize = v
	}
	if pageSize > s.cfg.MaxPageSize {
		pageSize = s.cfg.MaxPageSize
	}
	return page, pageSize
}

// listFilters builds models.ListFilters from common query params, scoped to
// a project when projectID is non-empty.
func listFilters(c *echo.Context, projectID string, page, pageSize int) models.ListFilters {
	f := models.ListFilters{
		ProjectID: projectID,
		Slug:      c.QueryParam("slug"),
		Search:    c.QueryParam("search"),
		Category:  c.QueryParam("category"),
		SortBy:    c.QueryParam("sort_by"),
		Order:     c.QueryParam("order"),
		Page:      page,
		PageSize:  pageSize,
	}
	if tag := c.QueryParam("tags"); tag != "" {
		f.Tags = strings.Split(tag, ",")
	}
	if v := c.QueryParam("is_shared"); v != "" {
		shared := v == "true"
		f.IsShared = &shared
	}
	return f
}
