package api

import (
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/prompthub/prompthub/pkg/apperrors"
)

// Stable numeric error codes, spec.md §7.
const (
	codeAuthentication      = 40100
	codePermissionDenied    = 40300
	codeNotFound            = 40400
	codeConflict            = 40900
	codeCircularDependency  = 40901
	codeValidation          = 42200
	codeTemplateRender      = 42201
	codeInternal            = 50000
)

// respondError maps a service-layer error to the spec's error taxonomy and
// writes the envelope exactly once, at the API boundary.
func (s *Server) respondError(c *echo.Context, err error) error {
	status, code, message, detail := classifyError(err)
	if code == codeInternal {
		slog.Error("unhandled internal error", "error", err, "correlation_id", correlationID(c))
	}
	return c.JSON(status, &ErrorEnvelope{Code: code, Message: message, Detail: detail})
}

func classifyError(err error) (status, code int, message, detail string) {
	var circ *apperrors.CircularDependencyError
	switch {
	case errors.As(err, &circ):
		return http.StatusConflict, codeCircularDependency, "circular dependency detected", circ.Error()
	case errors.Is(err, apperrors.ErrPermissionDenied):
		return http.StatusForbidden, codePermissionDenied, "permission denied", err.Error()
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, codeNotFound, "not found", err.Error()
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict, codeConflict, "conflict", err.Error()
	case apperrors.IsValidationError(err):
		return http.StatusUnprocessableEntity, codeValidation, "validation error", err.Error()
	}
	if te, ok := apperrors.AsTemplateRenderError(err); ok {
		return http.StatusUnprocessableEntity, codeTemplateRender, "template render error", te.Error()
	}
	return http.StatusInternalServerError, codeInternal, "internal error", ""
}
