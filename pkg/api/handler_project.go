package api

import (
	echo "github.com/labstack/echo/v5"
)

func (s *Server) createProjectHandler(c *echo.Context) error {
	var req CreateProjectRequest
	if err := s.bindAndValidate(c, &req); err != nil {
		return s.respondError(c, err)
	}
	project, err := s.projectService.Create(c.Request().Context(), req.Slug, req.Name)
	if err != nil {
		return s.respondError(c, err)
	}
	return s.created(c, project)
}

func (s *Server) getProjectHandler(c *echo.Context) error {
	project, err := s.projectService.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.respondError(c, err)
	}
	return s.ok(c, project)
}

func (s *Server) listProjectsHandler(c *echo.Context) error {
	projects, err := s.projectService.List(c.Request().Context())
	if err != nil {
		return s.respondError(c, err)
	}
	return s.ok(c, projects)
}

func (s *Server) listProjectPromptsHandler(c *echo.Context) error {
	page, pageSize := s.pagination(c)
	result, err := s.projectService.ListPrompts(c.Request().Context(), c.Param("id"), page, pageSize)
	if err != nil {
		return s.respondError(c, err)
	}
	return s.okPaged(c, result.Items, result.Page, result.PageSize, result.TotalCount)
}
