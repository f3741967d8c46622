package apicontrollers

import (
	"net/http"
	"strings"

	"github.com/drujensen/researchagent/internal/domain/entities"
	"github.com/drujensen/researchagent/internal/domain/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const sessionContextKey = "api_session"

// BearerAuth resolves "Authorization: Bearer <groq key>" to the session
// bound to that key.
func BearerAuth(sessionService services.SessionService, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			header := ctx.Request().Header.Get(echo.HeaderAuthorization)
			scheme, key, found := strings.Cut(header, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(key) == "" {
				return ctx.JSON(http.StatusUnauthorized, map[string]interface{}{
					"error": "missing bearer API key",
				})
			}

			session, err := sessionService.SessionForKey(ctx.Request().Context(), key)
			if err != nil {
				logger.Error("Failed to resolve API session", zap.Error(err))
				return ctx.JSON(statusFor(err), map[string]interface{}{
					"error": err.Error(),
				})
			}

			ctx.Set(sessionContextKey, session)
			return next(ctx)
		}
	}
}

func sessionFrom(ctx echo.Context) *entities.Session {
	session, _ := ctx.Get(sessionContextKey).(*entities.Session)
	return session
}
