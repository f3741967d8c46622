package uicontrollers

import (
	"bytes"
	"context"
	"html/template"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/drujensen/researchagent/internal/domain/entities"
	"github.com/drujensen/researchagent/internal/domain/errs"
	"github.com/drujensen/researchagent/internal/domain/events"
	"github.com/drujensen/researchagent/internal/domain/services"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	PageTitle    = "🤖 LangChain Agent Chatbot with Tools"
	PageSubtitle = "Ask me anything, and I'll use **Wikipedia**, **Arxiv**, and **DuckDuckGoSearch**"

	wsWriteTimeout = 10 * time.Second

	// HistoryFrame tells open views that messages were saved to the chat.
	HistoryFrame entities.StreamEventType = "message_history_refresh"
)

type ChatController struct {
	logger          *zap.Logger
	tmpl            *template.Template
	chatService     services.ChatService
	sessionService  services.SessionService
	agentService    services.AgentService
	upgrader        websocket.Upgrader
	activeCancelers sync.Map // Maps chatID to context cancelFunc
}

func NewChatController(logger *zap.Logger, tmpl *template.Template, chatService services.ChatService, sessionService services.SessionService, agentService services.AgentService) *ChatController {
	return &ChatController{
		logger:         logger,
		tmpl:           tmpl,
		chatService:    chatService,
		sessionService: sessionService,
		agentService:   agentService,
		upgrader:       websocket.Upgrader{},
	}
}

func (c *ChatController) RegisterRoutes(e *echo.Echo, requireSession echo.MiddlewareFunc) {
	g := e.Group("/chats", requireSession)
	g.POST("", c.CreateChatHandler)
	g.GET("/:id", c.ChatHandler)
	g.POST("/:id/delete", c.DeleteChatHandler)
	g.POST("/:id/messages", c.SendMessageHandler)
	g.POST("/:id/cancel", c.CancelMessageHandler)

	e.GET("/ws/chats/:id", c.WebSocketHandler, requireSession)
}

func (c *ChatController) ChatHandler(eCtx echo.Context) error {
	ctx := eCtx.Request().Context()
	session := SessionFromContext(eCtx)

	chat, err := c.chatService.GetSessionChat(ctx, session.ID, eCtx.Param("id"))
	if err != nil {
		switch err.(type) {
		case *errs.NotFoundError, *errs.ValidationError:
			return eCtx.Redirect(http.StatusFound, "/")
		default:
			c.logger.Error("Failed to load chat", zap.Error(err))
			return eCtx.String(http.StatusInternalServerError, "Failed to load chat")
		}
	}

	if session.ActiveChatID != chat.ID {
		if err := c.sessionService.SetActiveChat(ctx, session.ID, chat.ID); err != nil {
			c.logger.Warn("Failed to set active chat", zap.String("chat_id", chat.ID), zap.Error(err))
		}
	}

	chats, err := c.chatService.ListChats(ctx, session.ID)
	if err != nil {
		c.logger.Error("Failed to list chats", zap.Error(err))
		return eCtx.String(http.StatusInternalServerError, "Failed to load chats")
	}

	agent := c.agentService.GetAgent()
	totalTokens := 0
	if chat.Usage != nil {
		totalTokens = chat.Usage.TotalTokens
	}

	data := map[string]interface{}{
		"Title":           PageTitle,
		"Subtitle":        PageSubtitle,
		"ContentTemplate": "chat_content",
		"Chat":            chat,
		"Chats":           chats,
		"Messages":        chat.Messages,
		"TotalTokens":     totalTokens,
		"AgentInfo":       agent.Description(),
		"MaskedKey":       session.MaskedKey(),
	}

	return c.tmpl.ExecuteTemplate(eCtx.Response().Writer, "layout", data)
}

func (c *ChatController) CreateChatHandler(eCtx echo.Context) error {
	ctx := eCtx.Request().Context()
	session := SessionFromContext(eCtx)

	chat, err := c.chatService.CreateChat(ctx, session.ID, eCtx.FormValue("name"))
	if err != nil {
		c.logger.Error("Failed to create chat", zap.Error(err))
		return eCtx.String(http.StatusInternalServerError, "Failed to create chat")
	}

	if err := c.sessionService.SetActiveChat(ctx, session.ID, chat.ID); err != nil {
		c.logger.Warn("Failed to set active chat", zap.String("chat_id", chat.ID), zap.Error(err))
	}
	return eCtx.Redirect(http.StatusSeeOther, "/chats/"+chat.ID)
}

func (c *ChatController) DeleteChatHandler(eCtx echo.Context) error {
	ctx := eCtx.Request().Context()
	session := SessionFromContext(eCtx)
	id := eCtx.Param("id")

	if _, err := c.chatService.GetSessionChat(ctx, session.ID, id); err != nil {
		switch err.(type) {
		case *errs.NotFoundError:
			return eCtx.String(http.StatusNotFound, "Chat not found")
		default:
			return eCtx.String(http.StatusInternalServerError, "Failed to load chat")
		}
	}

	if err := c.chatService.DeleteChat(ctx, id); err != nil {
		c.logger.Error("Failed to delete chat", zap.String("chat_id", id), zap.Error(err))
		return eCtx.String(http.StatusInternalServerError, "Failed to delete chat")
	}

	if session.ActiveChatID == id {
		if err := c.sessionService.SetActiveChat(ctx, session.ID, ""); err != nil {
			c.logger.Warn("Failed to clear active chat", zap.Error(err))
		}
	}
	return eCtx.Redirect(http.StatusSeeOther, "/")
}

// SendMessageHandler answers a message without streaming and returns the
// rendered exchange.
func (c *ChatController) SendMessageHandler(eCtx echo.Context) error {
	session := SessionFromContext(eCtx)
	chatID := eCtx.Param("id")

	if _, err := c.chatService.GetSessionChat(eCtx.Request().Context(), session.ID, chatID); err != nil {
		return c.messageError(eCtx, chatID, err)
	}

	content := strings.TrimSpace(eCtx.FormValue("message"))
	if content == "" {
		return eCtx.String(http.StatusBadRequest, "Message content is required")
	}

	ctx, cancel := context.WithCancel(eCtx.Request().Context())
	defer cancel()
	if _, busy := c.activeCancelers.LoadOrStore(chatID, cancel); busy {
		return eCtx.String(http.StatusConflict, "A response is already being generated")
	}
	defer c.activeCancelers.Delete(chatID)

	answer, err := c.chatService.SendMessage(ctx, chatID, session.APIKey, content, nil)
	if err != nil {
		return c.messageError(eCtx, chatID, err)
	}

	data := map[string]interface{}{
		"User":   entities.NewMessage(entities.RoleUser, content),
		"Answer": answer,
	}

	var buf bytes.Buffer
	if err := c.tmpl.ExecuteTemplate(&buf, "message_pair", data); err != nil {
		c.logger.Error("Failed to render messages", zap.Error(err))
		return eCtx.String(http.StatusInternalServerError, "Failed to render messages")
	}
	return eCtx.HTML(http.StatusOK, buf.String())
}

func (c *ChatController) messageError(eCtx echo.Context, chatID string, err error) error {
	switch err.(type) {
	case *errs.CanceledError:
		c.logger.Info("Message processing was canceled", zap.String("chatID", chatID))
		return eCtx.String(http.StatusRequestTimeout, "Request was canceled")
	case *errs.NotFoundError:
		return eCtx.String(http.StatusNotFound, "Chat not found")
	case *errs.ValidationError:
		return eCtx.String(http.StatusBadRequest, err.Error())
	case *errs.UnauthorizedError:
		return eCtx.String(http.StatusUnauthorized, err.Error())
	default:
		c.logger.Error("Failed to send message", zap.String("chatID", chatID), zap.Error(err))
		return eCtx.String(http.StatusInternalServerError, "Failed to send message")
	}
}

// CancelMessageHandler cancels an ongoing message processing operation
func (c *ChatController) CancelMessageHandler(eCtx echo.Context) error {
	chatID := eCtx.Param("id")
	if _, err := c.chatService.GetSessionChat(eCtx.Request().Context(), SessionFromContext(eCtx).ID, chatID); err != nil {
		return eCtx.String(http.StatusNotFound, "Chat not found")
	}

	if !c.cancelRun(chatID) {
		c.logger.Warn("No active request to cancel for this chat", zap.String("chatID", chatID))
		return eCtx.String(http.StatusOK, "No active request to cancel")
	}
	return eCtx.String(http.StatusOK, "Request canceled")
}

func (c *ChatController) cancelRun(chatID string) bool {
	cancelValue, exists := c.activeCancelers.Load(chatID)
	if !exists {
		return false
	}
	if cancelFunc, ok := cancelValue.(context.CancelFunc); ok {
		cancelFunc()
		c.logger.Info("Request canceled successfully", zap.String("chatID", chatID))
		return true
	}
	return false
}

type clientFrame struct {
	Type    string `json:"type,omitempty"`
	Message string `json:"message,omitempty"`
}

type serverFrame struct {
	entities.StreamEvent
	HTML string `json:"html,omitempty"`
}

// wsConn serializes writes; gorilla connections allow one concurrent writer.
type wsConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

// attach sets the upgraded connection. Frames sent before are dropped.
func (w *wsConn) attach(ws *websocket.Conn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ws = ws
}

func (w *wsConn) send(frame serverFrame) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ws == nil {
		return nil
	}
	w.ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return w.ws.WriteJSON(frame)
}

// WebSocketHandler streams every run on the chat to the client. Runs are
// started with {"message": "..."} and stopped with {"type": "cancel"}.
func (c *ChatController) WebSocketHandler(eCtx echo.Context) error {
	session := SessionFromContext(eCtx)
	chatID := eCtx.Param("id")

	if _, err := c.chatService.GetSessionChat(eCtx.Request().Context(), session.ID, chatID); err != nil {
		return eCtx.String(http.StatusNotFound, "Chat not found")
	}

	// subscribed before the upgrade; frames are written once attached
	conn := &wsConn{}
	unsubscribe := events.SubscribeToChatStream(chatID, func(ev entities.StreamEvent) {
		if err := conn.send(c.serverFrame(ev)); err != nil {
			c.logger.Debug("Failed to write stream event", zap.Error(err))
		}
	})
	defer unsubscribe()

	unsubscribeHistory := events.SubscribeToMessageHistoryEvents(func(data events.MessageHistoryEventData) {
		if data.ChatID != chatID {
			return
		}
		if err := conn.send(c.historyFrame(data)); err != nil {
			c.logger.Debug("Failed to write history event", zap.Error(err))
		}
	})
	defer unsubscribeHistory()

	ws, err := c.upgrader.Upgrade(eCtx.Response(), eCtx.Request(), nil)
	if err != nil {
		c.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return nil
	}
	defer ws.Close()
	conn.attach(ws)
	c.logger.Info("WebSocket client connected", zap.String("chat_id", chatID))

	ctx, cancel := context.WithCancel(eCtx.Request().Context())
	defer cancel()

	for {
		var frame clientFrame
		if err := ws.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("WebSocket read failed", zap.Error(err))
			}
			break
		}

		switch {
		case frame.Type == "cancel":
			c.cancelRun(chatID)
		case strings.TrimSpace(frame.Message) != "":
			go c.runMessage(ctx, conn, session, chatID, frame.Message)
		}
	}

	c.logger.Info("WebSocket client disconnected", zap.String("chat_id", chatID))
	return nil
}

func (c *ChatController) runMessage(ctx context.Context, conn *wsConn, session *entities.Session, chatID, content string) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if _, busy := c.activeCancelers.LoadOrStore(chatID, cancel); busy {
		conn.send(serverFrame{StreamEvent: entities.StreamEvent{Type: entities.StreamError, ChatID: chatID, Error: "A response is already being generated"}})
		return
	}
	defer c.activeCancelers.Delete(chatID)

	_, err := c.chatService.SendMessage(runCtx, chatID, session.APIKey, content, nil)
	if err != nil && !errs.IsCanceled(err) {
		c.logger.Warn("Message was not processed", zap.String("chat_id", chatID), zap.Error(err))
		conn.send(serverFrame{StreamEvent: entities.StreamEvent{Type: entities.StreamError, ChatID: chatID, Error: err.Error()}})
		conn.send(serverFrame{StreamEvent: entities.StreamEvent{Type: entities.StreamDone, ChatID: chatID}})
	}
}

func (c *ChatController) serverFrame(ev entities.StreamEvent) serverFrame {
	frame := serverFrame{StreamEvent: ev}
	if ev.Type == entities.StreamFinal && ev.Message != nil {
		var buf bytes.Buffer
		if err := c.tmpl.ExecuteTemplate(&buf, "assistant_message", ev.Message); err != nil {
			c.logger.Error("Failed to render message", zap.Error(err))
		} else {
			frame.HTML = buf.String()
		}
	}
	return frame
}

// historyFrame renders the saved user messages of a history event.
func (c *ChatController) historyFrame(data events.MessageHistoryEventData) serverFrame {
	frame := serverFrame{StreamEvent: entities.StreamEvent{Type: HistoryFrame, ChatID: data.ChatID}}
	var buf bytes.Buffer
	for _, msg := range data.Messages {
		if msg.Role != entities.RoleUser {
			continue
		}
		if err := c.tmpl.ExecuteTemplate(&buf, "user_message", msg); err != nil {
			c.logger.Error("Failed to render message", zap.Error(err))
			return frame
		}
	}
	frame.HTML = buf.String()
	return frame
}
