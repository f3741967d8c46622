package uicontrollers

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/drujensen/researchagent/internal/domain/entities"
	"github.com/drujensen/researchagent/internal/domain/errs"
	"github.com/drujensen/researchagent/internal/domain/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	SessionCookieName = "researchagent_session"
	sessionContextKey = "session"
)

type SessionController struct {
	logger         *zap.Logger
	tmpl           *template.Template
	sessionService services.SessionService
	defaultAPIKey  string
}

func NewSessionController(logger *zap.Logger, tmpl *template.Template, sessionService services.SessionService, defaultAPIKey string) *SessionController {
	return &SessionController{
		logger:         logger,
		tmpl:           tmpl,
		sessionService: sessionService,
		defaultAPIKey:  strings.TrimSpace(defaultAPIKey),
	}
}

func (c *SessionController) RegisterRoutes(e *echo.Echo) {
	e.POST("/session", c.CreateSessionHandler)
	e.POST("/session/delete", c.DeleteSessionHandler)
}

func (c *SessionController) CreateSessionHandler(eCtx echo.Context) error {
	session, err := c.sessionService.CreateSession(eCtx.Request().Context(), eCtx.FormValue("api_key"))
	if err != nil {
		switch err.(type) {
		case *errs.ValidationError:
			return c.RenderKeyForm(eCtx, http.StatusBadRequest, err.Error())
		default:
			c.logger.Error("Failed to create session", zap.Error(err))
			return eCtx.String(http.StatusInternalServerError, "Failed to create session")
		}
	}

	c.setCookie(eCtx, session.ID)
	return eCtx.Redirect(http.StatusSeeOther, "/")
}

func (c *SessionController) DeleteSessionHandler(eCtx echo.Context) error {
	if cookie, err := eCtx.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if err := c.sessionService.DeleteSession(eCtx.Request().Context(), cookie.Value); err != nil && !errs.IsNotFound(err) {
			c.logger.Error("Failed to delete session", zap.Error(err))
		}
	}

	eCtx.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return eCtx.Redirect(http.StatusSeeOther, "/")
}

// Current returns the visitor's session, or nil when the key gate has not
// been passed. With a server default key a session is opened on first visit.
func (c *SessionController) Current(eCtx echo.Context) (*entities.Session, error) {
	ctx := eCtx.Request().Context()

	if cookie, err := eCtx.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		session, err := c.sessionService.GetSession(ctx, cookie.Value)
		if err == nil {
			return session, nil
		}
		if !errs.IsNotFound(err) {
			return nil, err
		}
	}

	if c.defaultAPIKey == "" {
		return nil, nil
	}

	session, err := c.sessionService.CreateSession(ctx, c.defaultAPIKey)
	if err != nil {
		return nil, err
	}
	c.setCookie(eCtx, session.ID)
	return session, nil
}

// RequireSession rejects requests that have not passed the key gate.
func (c *SessionController) RequireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(eCtx echo.Context) error {
		session, err := c.Current(eCtx)
		if err != nil {
			c.logger.Error("Failed to load session", zap.Error(err))
			return eCtx.String(http.StatusInternalServerError, "Failed to load session")
		}
		if session == nil {
			if strings.HasPrefix(eCtx.Request().URL.Path, "/ws/") {
				return eCtx.String(http.StatusUnauthorized, "API key required")
			}
			return eCtx.Redirect(http.StatusFound, "/")
		}
		eCtx.Set(sessionContextKey, session)
		return next(eCtx)
	}
}

func (c *SessionController) RenderKeyForm(eCtx echo.Context, status int, errorMessage string) error {
	data := map[string]interface{}{
		"Title":           "🔑 Enter your Groq API Key",
		"ContentTemplate": "key_content",
		"Error":           errorMessage,
	}
	eCtx.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	eCtx.Response().WriteHeader(status)
	return c.tmpl.ExecuteTemplate(eCtx.Response().Writer, "layout", data)
}

func (c *SessionController) setCookie(eCtx echo.Context, sessionID string) {
	eCtx.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionFromContext returns the session stored by RequireSession.
func SessionFromContext(eCtx echo.Context) *entities.Session {
	session, _ := eCtx.Get(sessionContextKey).(*entities.Session)
	return session
}
