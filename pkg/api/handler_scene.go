package api

import (
	echo "github.com/labstack/echo/v5"

	"github.com/prompthub/prompthub/pkg/models"
)

func (s *Server) createSceneHandler(c *echo.Context) error {
	var req SceneRequest
	if err := s.bindAndValidate(c, &req); err != nil {
		return s.respondError(c, err)
	}
	scene, err := s.sceneService.Create(c.Request().Context(), sceneFromRequest(req))
	if err != nil {
		return s.respondError(c, err)
	}
	return s.created(c, scene)
}

func (s *Server) getSceneHandler(c *echo.Context) error {
	scene, err := s.sceneService.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.respondError(c, err)
	}
	return s.ok(c, scene)
}

func (s *Server) listScenesHandler(c *echo.Context) error {
	page, pageSize := s.pagination(c)
	f := listFilters(c, c.QueryParam("project_id"), page, pageSize)
	result, err := s.sceneService.List(c.Request().Context(), f)
	if err != nil {
		return s.respondError(c, err)
	}
	return s.okPaged(c, result.Items, result.Page, result.PageSize, result.TotalCount)
}

func (s *Server) updateSceneHandler(c *echo.Context) error {
	var req SceneRequest
	if err := s.bindAndValidate(c, &req); err != nil {
		return s.respondError(c, err)
	}
	sc := sceneFromRequest(req)
	sc.ID = c.Param("id")
	updated, err := s.sceneService.Update(c.Request().Context(), sc)
	if err != nil {
		return s.respondError(c, err)
	}
	return s.ok(c, updated)
}

func (s *Server) deleteSceneHandler(c *echo.Context) error {
	if err := s.sceneService.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return s.respondError(c, err)
	}
	return s.ok(c, nil)
}

func (s *Server) resolveSceneHandler(c *echo.Context) error {
	var req ResolveRequest
	if err := s.bindAndValidate(c, &req); err != nil {
		return s.respondError(c, err)
	}
	result, err := s.sceneService.Resolve(c.Request().Context(), c.Param("id"), req.Variables, callerFromContext(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return s.ok(c, result)
}

func (s *Server) sceneDependenciesHandler(c *echo.Context) error {
	caller := callerFromContext(c)
	plan, err := s.sceneService.Dependencies(c.Request().Context(), c.Param("id"), caller.ProjectID)
	if err != nil {
		return s.respondError(c, err)
	}
	return s.ok(c, plan)
}

func sceneFromRequest(req SceneRequest) models.Scene {
	return models.Scene{
		ProjectID:     req.ProjectID,
		Slug:          req.Slug,
		Name:          req.Name,
		Pipeline:      req.Pipeline,
		MergeStrategy: req.MergeStrategy,
		Separator:     req.Separator,
		OutputFormat:  req.OutputFormat,
	}
}
