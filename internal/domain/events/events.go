package events

import (
	"github.com/drujensen/researchagent/internal/domain/entities"
	"github.com/kelindar/event"
)

// Event types
const (
	ToolCallEventType       uint32 = 1
	MessageHistoryEventType uint32 = 2
	ChatStreamEventType     uint32 = 3
)

// ToolCallEventData wraps the ToolCallEvent for publishing
type ToolCallEventData struct {
	ChatID string
	Event  *entities.ToolCallEvent
}

// MessageHistoryEventData wraps message history change events
type MessageHistoryEventData struct {
	ChatID   string
	Messages []*entities.Message
}

// ChatStreamEventData carries a single stream event for a chat so that every
// open view of that chat can follow a run.
type ChatStreamEventData struct {
	ChatID string
	Event  entities.StreamEvent
}

func (t ToolCallEventData) Type() uint32 {
	return ToolCallEventType
}

func (m MessageHistoryEventData) Type() uint32 {
	return MessageHistoryEventType
}

func (c ChatStreamEventData) Type() uint32 {
	return ChatStreamEventType
}

func PublishToolCallEvent(chatID string, toolEvent *entities.ToolCallEvent) {
	event.Emit(ToolCallEventData{ChatID: chatID, Event: toolEvent})
}

func SubscribeToToolCallEvents(handler func(data ToolCallEventData)) func() {
	return event.On(handler)
}

func PublishMessageHistoryEvent(chatID string, messages []*entities.Message) {
	event.Emit(MessageHistoryEventData{ChatID: chatID, Messages: messages})
}

func SubscribeToMessageHistoryEvents(handler func(data MessageHistoryEventData)) func() {
	return event.On(handler)
}

func PublishChatStreamEvent(chatID string, streamEvent entities.StreamEvent) {
	streamEvent.ChatID = chatID
	event.Emit(ChatStreamEventData{ChatID: chatID, Event: streamEvent})
}

// SubscribeToChatStream subscribes to stream events of a single chat.
func SubscribeToChatStream(chatID string, handler func(entities.StreamEvent)) func() {
	return event.On(func(data ChatStreamEventData) {
		if data.ChatID == chatID {
			handler(data.Event)
		}
	})
}
