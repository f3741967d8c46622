package uicontrollers

import (
	"context"
	"html/template"
	"net/http"

	"github.com/drujensen/researchagent/internal/domain/entities"
	"github.com/drujensen/researchagent/internal/domain/errs"
	"github.com/drujensen/researchagent/internal/domain/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type HomeController struct {
	logger         *zap.Logger
	tmpl           *template.Template
	chatService    services.ChatService
	sessionService services.SessionService
	sessions       *SessionController
}

func NewHomeController(logger *zap.Logger, tmpl *template.Template, chatService services.ChatService, sessionService services.SessionService, sessions *SessionController) *HomeController {
	return &HomeController{
		logger:         logger,
		tmpl:           tmpl,
		chatService:    chatService,
		sessionService: sessionService,
		sessions:       sessions,
	}
}

func (c *HomeController) RegisterRoutes(e *echo.Echo) {
	e.GET("/", c.HomeHandler)
}

func (c *HomeController) HomeHandler(eCtx echo.Context) error {
	session, err := c.sessions.Current(eCtx)
	if err != nil {
		c.logger.Error("Failed to load session", zap.Error(err))
		return eCtx.String(http.StatusInternalServerError, "Failed to load session")
	}
	if session == nil {
		return c.sessions.RenderKeyForm(eCtx, http.StatusOK, "")
	}

	chat, err := c.activeChat(eCtx.Request().Context(), session)
	if err != nil {
		c.logger.Error("Failed to open chat", zap.String("session_id", session.ID), zap.Error(err))
		return eCtx.String(http.StatusInternalServerError, "Failed to open chat")
	}

	return eCtx.Redirect(http.StatusFound, "/chats/"+chat.ID)
}

// activeChat resumes the session's active chat, else its most recent one,
// else a new one.
func (c *HomeController) activeChat(ctx context.Context, session *entities.Session) (*entities.Chat, error) {
	if session.ActiveChatID != "" {
		chat, err := c.chatService.GetSessionChat(ctx, session.ID, session.ActiveChatID)
		if err == nil {
			return chat, nil
		}
		if !errs.IsNotFound(err) {
			return nil, err
		}
	}

	chats, err := c.chatService.ListChats(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	var chat *entities.Chat
	if len(chats) > 0 {
		chat = chats[0]
	} else {
		chat, err = c.chatService.CreateChat(ctx, session.ID, "")
		if err != nil {
			return nil, err
		}
	}

	if err := c.sessionService.SetActiveChat(ctx, session.ID, chat.ID); err != nil {
		c.logger.Warn("Failed to set active chat", zap.String("chat_id", chat.ID), zap.Error(err))
	}
	return chat, nil
}
