package api

import (
	echo "github.com/labstack/echo/v5"

	"github.com/prompthub/prompthub/pkg/models"
)

func (s *Server) createPromptHandler(c *echo.Context) error {
	var req PromptRequest
	if err := s.bindAndValidate(c, &req); err != nil {
		return s.respondError(c, err)
	}
	prompt, err := s.promptService.Create(c.Request().Context(), promptFromRequest(req))
	if err != nil {
		return s.respondError(c, err)
	}
	return s.created(c, prompt)
}

func (s *Server) getPromptHandler(c *echo.Context) error {
	prompt, err := s.promptService.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.respondError(c, err)
	}
	return s.ok(c, prompt)
}

func (s *Server) listPromptsHandler(c *echo.Context) error {
	page, pageSize := s.pagination(c)
	f := listFilters(c, c.QueryParam("project_id"), page, pageSize)
	result, err := s.promptService.List(c.Request().Context(), f)
	if err != nil {
		return s.respondError(c, err)
	}
	return s.okPaged(c, result.Items, result.Page, result.PageSize, result.TotalCount)
}

func (s *Server) updatePromptHandler(c *echo.Context) error {
	var req PromptRequest
	if err := s.bindAndValidate(c, &req); err != nil {
		return s.respondError(c, err)
	}
	p := promptFromRequest(req)
	p.ID = c.Param("id")
	updated, err := s.promptService.Update(c.Request().Context(), p)
	if err != nil {
		return s.respondError(c, err)
	}
	return s.ok(c, updated)
}

func (s *Server) deletePromptHandler(c *echo.Context) error {
	if err := s.promptService.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return s.respondError(c, err)
	}
	return s.ok(c, nil)
}

func (s *Server) listVersionsHandler(c *echo.Context) error {
	versions, err := s.promptService.ListVersions(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.respondError(c, err)
	}
	return s.ok(c, versions)
}

func (s *Server) getVersionHandler(c *echo.Context) error {
	version, err := s.promptService.GetVersion(c.Request().Context(), c.Param("id"), c.Param("version"))
	if err != nil {
		return s.respondError(c, err)
	}
	return s.ok(c, version)
}

func (s *Server) publishHandler(c *echo.Context) error {
	var req PublishRequest
	if err := s.bindAndValidate(c, &req); err != nil {
		return s.respondError(c, err)
	}
	version, err := s.promptService.Publish(c.Request().Context(), c.Param("id"), req.Bump, req.Content, req.Changelog)
	if err != nil {
		return s.respondError(c, err)
	}
	return s.created(c, version)
}

func (s *Server) renderPromptHandler(c *echo.Context) error {
	var req RenderRequest
	if err := s.bindAndValidate(c, &req); err != nil {
		return s.respondError(c, err)
	}
	rendered, tokens, err := s.promptService.Render(c.Request().Context(), c.Param("id"), req.Version, req.Variables)
	if err != nil {
		return s.respondError(c, err)
	}
	return s.ok(c, map[string]any{"content": rendered, "token_estimate": tokens})
}

func (s *Server) sharePromptHandler(c *echo.Context) error {
	if err := s.promptService.Share(c.Request().Context(), c.Param("id")); err != nil {
		return s.respondError(c, err)
	}
	return s.ok(c, nil)
}

func (s *Server) listSharedPromptsHandler(c *echo.Context) error {
	page, pageSize := s.pagination(c)
	shared := true
	f := listFilters(c, "", page, pageSize)
	f.IsShared = &shared
	result, err := s.promptService.List(c.Request().Context(), f)
	if err != nil {
		return s.respondError(c, err)
	}
	return s.okPaged(c, result.Items, result.Page, result.PageSize, result.TotalCount)
}

func (s *Server) forkPromptHandler(c *echo.Context) error {
	var req ForkRequest
	if err := s.bindAndValidate(c, &req); err != nil {
		return s.respondError(c, err)
	}
	forked, err := s.promptService.Fork(c.Request().Context(), c.Param("id"), req.TargetProjectID, req.NewSlug)
	if err != nil {
		return s.respondError(c, err)
	}
	return s.created(c, forked)
}

func promptFromRequest(req PromptRequest) models.Prompt {
	return models.Prompt{
		ProjectID:      req.ProjectID,
		Slug:           req.Slug,
		Name:           req.Name,
		Description:    req.Description,
		Format:         req.Format,
		TemplateEngine: req.TemplateEngine,
		VariableSpec:   req.VariableSpec,
		Tags:           req.Tags,
		Category:       req.Category,
	}
}
