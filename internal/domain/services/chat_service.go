package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/drujensen/researchagent/internal/domain/entities"
	"github.com/drujensen/researchagent/internal/domain/errs"
	"github.com/drujensen/researchagent/internal/domain/events"
	"github.com/drujensen/researchagent/internal/domain/interfaces"
	"github.com/drujensen/researchagent/internal/domain/tokens"

	"go.uber.org/zap"
)

const (
	DefaultChatName = "New Chat"
	NoAnswerMessage = "Sorry, I couldn't find an answer."
	FailureMessage  = "Sorry, something went wrong."
	ErrorPrefix     = "⚠️ Error: "

	chatNameLength = 40
)

type ChatService interface {
	ListChats(ctx context.Context, sessionID string) ([]*entities.Chat, error)
	GetChat(ctx context.Context, id string) (*entities.Chat, error)
	// GetSessionChat returns the chat only when it belongs to sessionID.
	GetSessionChat(ctx context.Context, sessionID, id string) (*entities.Chat, error)
	CreateChat(ctx context.Context, sessionID, name string) (*entities.Chat, error)
	DeleteChat(ctx context.Context, id string) error
	SendMessage(ctx context.Context, chatID, apiKey, content string, handler entities.StreamHandler) (*entities.Message, error)
	SaveMessagesIncrementally(ctx context.Context, chatID string, messages []*entities.Message) error
}

type chatService struct {
	chatRepo         interfaces.ChatRepository
	agentService     AgentService
	modelFactory     interfaces.AIModelFactory
	maxHistoryTokens int
	running          sync.Map
	logger           *zap.Logger
}

func NewChatService(
	chatRepo interfaces.ChatRepository,
	agentService AgentService,
	modelFactory interfaces.AIModelFactory,
	maxHistoryTokens int,
	logger *zap.Logger,
) *chatService {
	return &chatService{
		chatRepo:         chatRepo,
		agentService:     agentService,
		modelFactory:     modelFactory,
		maxHistoryTokens: maxHistoryTokens,
		logger:           logger,
	}
}

func (s *chatService) ListChats(ctx context.Context, sessionID string) ([]*entities.Chat, error) {
	if sessionID == "" {
		return nil, errs.ValidationErrorf("session ID is required")
	}
	return s.chatRepo.ListChats(ctx, sessionID)
}

func (s *chatService) GetChat(ctx context.Context, id string) (*entities.Chat, error) {
	if id == "" {
		return nil, errs.ValidationErrorf("chat ID is required")
	}
	return s.chatRepo.GetChat(ctx, id)
}

func (s *chatService) GetSessionChat(ctx context.Context, sessionID, id string) (*entities.Chat, error) {
	chat, err := s.GetChat(ctx, id)
	if err != nil {
		return nil, err
	}
	if chat.SessionID != sessionID {
		return nil, errs.NotFoundErrorf("chat not found")
	}
	return chat, nil
}

func (s *chatService) CreateChat(ctx context.Context, sessionID, name string) (*entities.Chat, error) {
	if sessionID == "" {
		return nil, errs.ValidationErrorf("session ID is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultChatName
	}

	chat := entities.NewChat(sessionID, name)
	if err := s.chatRepo.CreateChat(ctx, chat); err != nil {
		return nil, err
	}

	s.logger.Info("Chat created", zap.String("chat_id", chat.ID), zap.String("session_id", sessionID))
	return chat, nil
}

func (s *chatService) DeleteChat(ctx context.Context, id string) error {
	if id == "" {
		return errs.ValidationErrorf("chat ID is required")
	}
	return s.chatRepo.DeleteChat(ctx, id)
}

func (s *chatService) SaveMessagesIncrementally(ctx context.Context, chatID string, messages []*entities.Message) error {
	if chatID == "" {
		return errs.ValidationErrorf("chat ID is required")
	}
	if len(messages) == 0 {
		return nil
	}

	chat, err := s.chatRepo.GetChat(ctx, chatID)
	if err != nil {
		return err
	}

	for _, msg := range messages {
		if msg.Content == "" && msg.Role != entities.RoleAssistant {
			msg.Content = "Unknown Error: No response generated"
		}
		if msg.Role == entities.RoleUser && chat.Name == DefaultChatName {
			chat.Name = chatName(msg.Content)
		}
		chat.Messages = append(chat.Messages, *msg)
	}

	chat.UpdateUsage()
	chat.UpdatedAt = time.Now()

	if err := s.chatRepo.UpdateChat(ctx, chat); err != nil {
		return err
	}

	events.PublishMessageHistoryEvent(chatID, messages)
	return nil
}

func (s *chatService) SendMessage(ctx context.Context, chatID, apiKey, content string, handler entities.StreamHandler) (*entities.Message, error) {
	if chatID == "" {
		return nil, errs.ValidationErrorf("chat ID is required")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errs.ValidationErrorf("message content is required")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, errs.UnauthorizedErrorf("missing API key")
	}

	if _, busy := s.running.LoadOrStore(chatID, struct{}{}); busy {
		return nil, errs.ValidationErrorf("a response is already being generated for this chat")
	}
	defer s.running.Delete(chatID)

	chat, err := s.chatRepo.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}

	agent := s.agentService.GetAgent()
	history := s.trimHistory(chat.History())

	userMessage := entities.NewMessage(entities.RoleUser, content)
	if err := s.SaveMessagesIncrementally(ctx, chatID, []*entities.Message{userMessage}); err != nil {
		return nil, err
	}

	messages := make([]*entities.Message, 0, len(history)+2)
	messages = append(messages, entities.NewMessage(entities.RoleSystem, agent.SystemPrompt))
	messages = append(messages, history...)
	messages = append(messages, userMessage)

	emit := func(ev entities.StreamEvent) {
		ev.ChatID = chatID
		handler.Emit(ev)
		events.PublishChatStreamEvent(chatID, ev)
	}

	s.logger.Info("Running agent",
		zap.String("chat_id", chatID),
		zap.Int("history_messages", len(history)),
		zap.String("model", agent.Model))

	newMessages, runErr := s.runAgent(ctx, agent, apiKey, messages, emit)

	if errs.IsCanceled(runErr) {
		s.logger.Info("Agent run canceled", zap.String("chat_id", chatID))
		answer := finalAnswer(newMessages)
		if answer == nil {
			answer = entities.NewMessage(entities.RoleAssistant, entities.CanceledNote)
			newMessages = append(newMessages, answer)
		}
		collectToolEvents(chatID, answer, newMessages)

		saveCtx := context.WithoutCancel(ctx)
		if err := s.SaveMessagesIncrementally(saveCtx, chatID, newMessages); err != nil {
			s.logger.Error("Failed to save partial messages", zap.String("chat_id", chatID), zap.Error(err))
		}
		emit(entities.StreamEvent{Type: entities.StreamDone})
		return answer, runErr
	}

	var answer *entities.Message
	if runErr != nil {
		s.logger.Error("Agent run failed", zap.String("chat_id", chatID), zap.Error(runErr))
		emit(entities.StreamEvent{Type: entities.StreamError, Error: ErrorPrefix + runErr.Error()})
		answer = entities.NewMessage(entities.RoleAssistant, FailureMessage)
		answer.Error = runErr.Error()
		newMessages = append(newMessages, answer)
	} else {
		answer = finalAnswer(newMessages)
		if answer == nil {
			answer = entities.NewMessage(entities.RoleAssistant, NoAnswerMessage)
			newMessages = append(newMessages, answer)
		}
		reasoning, text := entities.SplitReasoning(answer.Content)
		if text == "" {
			answer.Content = NoAnswerMessage
			if reasoning != "" {
				answer.Content = "<think>" + reasoning + "</think>\n" + NoAnswerMessage
			}
		}
	}

	collectToolEvents(chatID, answer, newMessages)

	saveCtx := context.WithoutCancel(ctx)
	if err := s.SaveMessagesIncrementally(saveCtx, chatID, newMessages); err != nil {
		s.logger.Error("Failed to save messages", zap.String("chat_id", chatID), zap.Error(err))
		return nil, err
	}

	emit(entities.StreamEvent{Type: entities.StreamFinal, Content: answer.Content, Message: answer})
	emit(entities.StreamEvent{Type: entities.StreamDone})
	return answer, nil
}

func (s *chatService) runAgent(ctx context.Context, agent *entities.Agent, apiKey string, messages []*entities.Message, emit entities.StreamHandler) ([]*entities.Message, error) {
	tools, err := s.agentService.ResolveTools(ctx)
	if err != nil {
		return nil, err
	}

	integration, err := s.modelFactory.CreateModelIntegration(agent, apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create model integration: %w", err)
	}

	newMessages, err := integration.GenerateResponse(ctx, messages, tools, agentOptions(agent), emit)
	if err != nil {
		return newMessages, err
	}

	if usage, _ := integration.GetUsage(); usage != nil {
		if answer := finalAnswer(newMessages); answer != nil && answer.Usage == nil {
			u := *usage
			answer.Usage = &u
		}
	}
	return newMessages, nil
}

func agentOptions(agent *entities.Agent) map[string]any {
	options := map[string]any{
		"max_iterations": agent.MaxIterations,
	}
	if agent.Temperature != nil {
		options["temperature"] = *agent.Temperature
	}
	if agent.MaxTokens != nil && *agent.MaxTokens > 0 {
		options["max_tokens"] = *agent.MaxTokens
	}
	return options
}

// collectToolEvents copies the tool steps of a run onto its answer and
// publishes each one. The tool messages keep their own events.
func collectToolEvents(chatID string, answer *entities.Message, messages []*entities.Message) {
	for _, msg := range messages {
		if msg == answer {
			continue
		}
		for i := range msg.ToolCallEvents {
			ev := msg.ToolCallEvents[i]
			answer.ToolCallEvents = append(answer.ToolCallEvents, ev)
			events.PublishToolCallEvent(chatID, &ev)
		}
	}
}

// finalAnswer returns the last assistant message that is not a tool call.
func finalAnswer(messages []*entities.Message) *entities.Message {
	if len(messages) == 0 {
		return nil
	}
	last := messages[len(messages)-1]
	if last.Role != entities.RoleAssistant || len(last.ToolCalls) > 0 {
		return nil
	}
	return last
}

// trimHistory drops the oldest turns until the history fits in the token
// budget. Assistant turns are sent without their reasoning.
func (s *chatService) trimHistory(history []entities.Message) []*entities.Message {
	trimmed := make([]*entities.Message, 0, len(history))
	counts := make([]int, 0, len(history))
	total := 0
	for i := range history {
		msg := history[i]
		if msg.Role == entities.RoleAssistant {
			_, msg.Content = entities.SplitReasoning(msg.Content)
		}
		msg.ToolCallEvents = nil
		count := tokens.Count(msg.Content)
		trimmed = append(trimmed, &msg)
		counts = append(counts, count)
		total += count
	}

	if s.maxHistoryTokens <= 0 {
		return trimmed
	}

	start := 0
	for start < len(trimmed) && total > s.maxHistoryTokens {
		total -= counts[start]
		start++
	}
	// history sent to the model starts on a user turn
	for start < len(trimmed) && trimmed[start].Role != entities.RoleUser {
		start++
	}

	if start > 0 {
		s.logger.Debug("Trimmed chat history",
			zap.Int("dropped", start),
			zap.Int("kept", len(trimmed)-start),
			zap.Int("max_history_tokens", s.maxHistoryTokens))
	}
	return trimmed[start:]
}

func chatName(content string) string {
	name := strings.Join(strings.Fields(content), " ")
	runes := []rune(name)
	if len(runes) > chatNameLength {
		return string(runes[:chatNameLength]) + "..."
	}
	if name == "" {
		return DefaultChatName
	}
	return name
}
