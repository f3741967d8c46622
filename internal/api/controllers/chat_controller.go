package apicontrollers

import (
	"net/http"
	"strings"

	"github.com/drujensen/researchagent/internal/domain/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type ChatController struct {
	logger      *zap.Logger
	chatService services.ChatService
}

func NewChatController(logger *zap.Logger, chatService services.ChatService) *ChatController {
	return &ChatController{
		logger:      logger,
		chatService: chatService,
	}
}

// RegisterRoutes registers all chat-related routes with Echo
func (c *ChatController) RegisterRoutes(e *echo.Group) {
	e.GET("/chats", c.ListChats)
	e.GET("/chats/:id", c.GetChat)
	e.POST("/chats", c.CreateChat)
	e.DELETE("/chats/:id", c.DeleteChat)
	e.POST("/chats/:id/messages", c.SendMessage)
}

// ListChats returns the caller's chats, most recently updated first.
//
// @Summary List chats
// @Tags chats
// @Produce json
// @Security BearerAuth
// @Success 200 {array} entities.Chat "Chats of the caller"
// @Failure 401 {object} map[string]interface{} "Missing or invalid API key"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /api/chats [get]
func (c *ChatController) ListChats(ctx echo.Context) error {
	chats, err := c.chatService.ListChats(ctx.Request().Context(), sessionFrom(ctx).ID)
	if err != nil {
		return c.handleError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, chats)
}

// GetChat godoc
// @Summary Get a chat by ID
// @Tags chats
// @Produce json
// @Security BearerAuth
// @Param id path string true "Chat ID"
// @Success 200 {object} entities.Chat "Chat with its messages"
// @Failure 404 {object} map[string]interface{} "Chat not found"
// @Router /api/chats/{id} [get]
func (c *ChatController) GetChat(ctx echo.Context) error {
	chat, err := c.chatService.GetSessionChat(ctx.Request().Context(), sessionFrom(ctx).ID, ctx.Param("id"))
	if err != nil {
		return c.handleError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, chat)
}

// CreateChat godoc
// @Summary Create a chat
// @Tags chats
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateChatRequest true "Chat to create"
// @Success 201 {object} entities.Chat "Created chat"
// @Failure 400 {object} map[string]interface{} "Invalid request body"
// @Router /api/chats [post]
func (c *ChatController) CreateChat(ctx echo.Context) error {
	var input CreateChatRequest
	if err := ctx.Bind(&input); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]interface{}{"error": "Invalid request body"})
	}

	chat, err := c.chatService.CreateChat(ctx.Request().Context(), sessionFrom(ctx).ID, input.Name)
	if err != nil {
		return c.handleError(ctx, err)
	}
	return ctx.JSON(http.StatusCreated, chat)
}

// DeleteChat godoc
// @Summary Delete a chat
// @Tags chats
// @Security BearerAuth
// @Param id path string true "Chat ID"
// @Success 204 "Chat deleted"
// @Failure 404 {object} map[string]interface{} "Chat not found"
// @Router /api/chats/{id} [delete]
func (c *ChatController) DeleteChat(ctx echo.Context) error {
	id := ctx.Param("id")
	if _, err := c.chatService.GetSessionChat(ctx.Request().Context(), sessionFrom(ctx).ID, id); err != nil {
		return c.handleError(ctx, err)
	}
	if err := c.chatService.DeleteChat(ctx.Request().Context(), id); err != nil {
		return c.handleError(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// SendMessage runs the agent on the message and returns the assistant answer.
// Agent failures still answer 200 with the fallback text and an error field.
//
// @Summary Ask the agent
// @Tags chats
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Chat ID"
// @Param request body SendMessageRequest true "Message to send"
// @Success 200 {object} entities.Message "Assistant answer"
// @Failure 400 {object} map[string]interface{} "Empty message or a run already in progress"
// @Failure 404 {object} map[string]interface{} "Chat not found"
// @Router /api/chats/{id}/messages [post]
func (c *ChatController) SendMessage(ctx echo.Context) error {
	session := sessionFrom(ctx)
	id := ctx.Param("id")
	if _, err := c.chatService.GetSessionChat(ctx.Request().Context(), session.ID, id); err != nil {
		return c.handleError(ctx, err)
	}

	var input SendMessageRequest
	if err := ctx.Bind(&input); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]interface{}{"error": "Invalid request body"})
	}
	content := input.Content
	if strings.TrimSpace(content) == "" {
		content = input.Message
	}

	answer, err := c.chatService.SendMessage(ctx.Request().Context(), id, session.APIKey, content, nil)
	if err != nil {
		return c.handleError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, answer)
}

// handleError handles errors and returns them in a consistent format
func (c *ChatController) handleError(ctx echo.Context, err error) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		c.logger.Error("Error occurred", zap.Error(err))
	}
	return ctx.JSON(status, map[string]interface{}{
		"error": err.Error(),
	})
}

// CreateChatRequest represents the request body for creating a new chat.
type CreateChatRequest struct {
	Name string `json:"name"`
}

// SendMessageRequest accepts the message text as "content" or "message".
type SendMessageRequest struct {
	Content string `json:"content"`
	Message string `json:"message"`
}
