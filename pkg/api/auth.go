package api

import (
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v5"

	"github.com/prompthub/prompthub/pkg/models"
)

const callerContextKey = "caller"

// Authenticator resolves a bearer API key to a Caller. Full API-key
// lifecycle management (issuing, rotating, revoking) is out of scope, the
// same way project/user management is left to an external system — keys
// are provisioned via the API_KEYS environment knob (spec.md §6 "Environment knobs").
type Authenticator struct {
	keys map[string]models.Caller
}

// NewAuthenticator builds an Authenticator from a "key:caller_id:project_id,..." map.
func NewAuthenticator(keys map[string]models.Caller) *Authenticator {
	return &Authenticator{keys: keys}
}

func (a *Authenticator) lookup(apiKey string) (models.Caller, bool) {
	caller, ok := a.keys[apiKey]
	return caller, ok
}

// middleware enforces `Authorization: Bearer <api_key>`, returning 40100 on
// a missing or unrecognized key, and attaches the resolved Caller to the context.
func (a *Authenticator) middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			token := strings.TrimPrefix(header, "Bearer ")
			if token == "" || token == header {
				return c.JSON(http.StatusUnauthorized, &ErrorEnvelope{
					Code: codeAuthentication, Message: "missing bearer token",
				})
			}
			caller, ok := a.lookup(token)
			if !ok {
				return c.JSON(http.StatusUnauthorized, &ErrorEnvelope{
					Code: codeAuthentication, Message: "unrecognized api key",
				})
			}
			c.Set(callerContextKey, caller)
			return next(c)
		}
	}
}

func callerFromContext(c *echo.Context) models.Caller {
	if caller, ok := c.Get(callerContextKey).(models.Caller); ok {
		return caller
	}
	return models.Caller{}
}
