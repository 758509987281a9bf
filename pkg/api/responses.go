package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// Envelope is the success response shape spec'd for every endpoint:
// { "code": 0, "message": "success", "data": ..., "meta": {...} }.
type Envelope struct {
	Code    int   `json:"code"`
	Message string `json:"message"`
	Data    any   `json:"data,omitempty"`
	Meta    *Meta `json:"meta,omitempty"`
}

// Meta carries pagination metadata for list endpoints.
type Meta struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// ErrorEnvelope is the error response shape: { "code": <int>, "message": <string>, "detail": <string?> }.
type ErrorEnvelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func (s *Server) ok(c *echo.Context, data any) error {
	return c.JSON(http.StatusOK, &Envelope{Code: 0, Message: "success", Data: data})
}

func (s *Server) created(c *echo.Context, data any) error {
	return c.JSON(http.StatusCreated, &Envelope{Code: 0, Message: "success", Data: data})
}

func (s *Server) okPaged(c *echo.Context, data any, page, pageSize, total int) error {
	return c.JSON(http.StatusOK, &Envelope{
		Code: 0, Message: "success", Data: data,
		Meta: &Meta{Page: page, PageSize: pageSize, Total: total},
	})
}
