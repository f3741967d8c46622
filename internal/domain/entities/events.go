package entities

import (
	"time"

	"github.com/google/uuid"
)

// ToolCallEvent records one tool invocation made while answering a message.
type ToolCallEvent struct {
	ID         string            `json:"id" bson:"id"`
	ToolCallID string            `json:"tool_call_id" bson:"tool_call_id"`
	ToolName   string            `json:"tool_name" bson:"tool_name"`
	Arguments  string            `json:"arguments" bson:"arguments"`
	Result     string            `json:"result" bson:"result"`
	Error      string            `json:"error,omitempty" bson:"error,omitempty"`
	Duration   time.Duration     `json:"duration" bson:"duration"`
	Timestamp  time.Time         `json:"timestamp" bson:"timestamp"`
	Metadata   map[string]string `json:"metadata,omitempty" bson:"metadata,omitempty"`
}

func NewToolCallEvent(toolCallID, toolName, arguments, result, errorMsg string, metadata map[string]string) *ToolCallEvent {
	return &ToolCallEvent{
		ID:         uuid.New().String(),
		ToolCallID: toolCallID,
		ToolName:   toolName,
		Arguments:  arguments,
		Result:     result,
		Error:      errorMsg,
		Timestamp:  time.Now(),
		Metadata:   metadata,
	}
}

type StreamEventType string

const (
	StreamToken     StreamEventType = "token"
	StreamToolStart StreamEventType = "tool_start"
	StreamToolEnd   StreamEventType = "tool_end"
	StreamToolError StreamEventType = "tool_error"
	StreamFinal     StreamEventType = "final"
	StreamError     StreamEventType = "error"
	StreamDone      StreamEventType = "done"
)

// StreamEvent is one incremental update produced while the agent works on a
// message. Token events carry a content delta; tool events carry the call.
type StreamEvent struct {
	Type       StreamEventType `json:"type"`
	ChatID     string          `json:"chat_id,omitempty"`
	Content    string          `json:"content,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
	ToolName   string          `json:"tool_name,omitempty"`
	Arguments  string          `json:"arguments,omitempty"`
	Result     string          `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	Iteration  int             `json:"iteration,omitempty"`
	Message    *Message        `json:"message,omitempty"`
}

// StreamHandler receives stream events. A nil handler discards them.
type StreamHandler func(StreamEvent)

func (h StreamHandler) Emit(event StreamEvent) {
	if h != nil {
		h(event)
	}
}
