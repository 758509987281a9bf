// Package api exposes PromptHub's REST surface over Echo v5, the way the
// teacher's pkg/api wires its Server: a struct of services set at
// construction, routes registered once, errors mapped centrally.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	validatorpkg "github.com/go-playground/validator/v10"

	"github.com/prompthub/prompthub/pkg/cache"
	"github.com/prompthub/prompthub/pkg/calllog"
	"github.com/prompthub/prompthub/pkg/config"
	"github.com/prompthub/prompthub/pkg/database"
	"github.com/prompthub/prompthub/pkg/services"
)

// Server is the HTTP API server.
type Server struct {
	echo           *echo.Echo
	httpServer     *http.Server
	cfg            config.Config
	dbClient       *database.Client
	cache          *cache.Cache
	callLogSink    *calllog.Sink
	projectService *services.ProjectService
	promptService  *services.PromptService
	sceneService   *services.SceneService
	auth           *Authenticator
	validate       *validatorpkg.Validate
}

// NewServer creates a new API server with Echo v5 and registers every route.
func NewServer(
	cfg config.Config,
	dbClient *database.Client,
	cacheInst *cache.Cache,
	callLogSink *calllog.Sink,
	projectService *services.ProjectService,
	promptService *services.PromptService,
	sceneService *services.SceneService,
	auth *Authenticator,
) *Server {
	e := echo.New()

	s := &Server{
		echo:           e,
		cfg:            cfg,
		dbClient:       dbClient,
		cache:          cacheInst,
		callLogSink:    callLogSink,
		projectService: projectService,
		promptService:  promptService,
		sceneService:   sceneService,
		auth:           auth,
		validate:       validatorpkg.New(),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.Use(middleware.Logger())
	s.echo.Use(middleware.Recover())
	s.echo.Use(requestCorrelationID())
	s.echo.Use(securityHeaders())

	s.echo.GET("/health", s.healthHandler)

	v1 := s.echo.Group("/api/v1", s.auth.middleware(), s.requestDeadline())

	v1.POST("/projects", s.createProjectHandler)
	v1.GET("/projects", s.listProjectsHandler)
	v1.GET("/projects/:id", s.getProjectHandler)
	v1.GET("/projects/:id/prompts", s.listProjectPromptsHandler)

	v1.POST("/prompts", s.createPromptHandler)
	v1.GET("/prompts", s.listPromptsHandler)
	v1.GET("/prompts/:id", s.getPromptHandler)
	v1.PUT("/prompts/:id", s.updatePromptHandler)
	v1.DELETE("/prompts/:id", s.deletePromptHandler)
	v1.GET("/prompts/:id/versions", s.listVersionsHandler)
	v1.GET("/prompts/:id/versions/:version", s.getVersionHandler)
	v1.POST("/prompts/:id/publish", s.publishHandler)
	v1.POST("/prompts/:id/render", s.renderPromptHandler)
	v1.POST("/prompts/:id/share", s.sharePromptHandler)

	v1.POST("/scenes", s.createSceneHandler)
	v1.GET("/scenes", s.listScenesHandler)
	v1.GET("/scenes/:id", s.getSceneHandler)
	v1.PUT("/scenes/:id", s.updateSceneHandler)
	v1.DELETE("/scenes/:id", s.deleteSceneHandler)
	v1.POST("/scenes/:id/resolve", s.resolveSceneHandler)
	v1.GET("/scenes/:id/dependencies", s.sceneDependenciesHandler)

	v1.GET("/shared/prompts", s.listSharedPromptsHandler)
	v1.POST("/shared/prompts/:id/fork", s.forkPromptHandler)
}

// Start starts the HTTP server on the given address (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// StartWithListener starts the HTTP server on a pre-created listener, used by tests.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echo}
	if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// requestDeadline bounds every v1 request by the configured timeout
// (spec.md §5 "each request carries a deadline"); the scene engine checks
// ctx.Err() before each plan node, and the store passes the context to
// every database call, so an expired deadline surfaces as an error.
func (s *Server) requestDeadline() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), s.cfg.RequestTimeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
