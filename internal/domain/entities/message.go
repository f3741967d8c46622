package entities

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// CanceledNote marks an answer the user stopped.
const CanceledNote = "[Canceled by user]"

type ToolCallFunction struct {
	Name      string `json:"name" bson:"name"`
	Arguments string `json:"arguments" bson:"arguments"`
}

type ToolCall struct {
	ID       string           `json:"id" bson:"id"`
	Type     string           `json:"type" bson:"type"`
	Function ToolCallFunction `json:"function" bson:"function"`
}

type Usage struct {
	PromptTokens     int  `json:"prompt_tokens" bson:"prompt_tokens"`
	CompletionTokens int  `json:"completion_tokens" bson:"completion_tokens"`
	TotalTokens      int  `json:"total_tokens" bson:"total_tokens"`
	Estimated        bool `json:"estimated,omitempty" bson:"estimated,omitempty"`
}

func (u *Usage) Add(other *Usage) {
	if other == nil {
		return
	}
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens = u.PromptTokens + u.CompletionTokens
	u.Estimated = u.Estimated || other.Estimated
}

type Message struct {
	ID             string          `json:"id" bson:"id"`
	Role           string          `json:"role" bson:"role"`
	Content        string          `json:"content" bson:"content"`
	ToolCalls      []ToolCall      `json:"tool_calls,omitempty" bson:"tool_calls,omitempty"`
	ToolCallID     string          `json:"tool_call_id,omitempty" bson:"tool_call_id,omitempty"`
	ToolCallEvents []ToolCallEvent `json:"tool_call_events,omitempty" bson:"tool_call_events,omitempty"`
	Usage          *Usage          `json:"usage,omitempty" bson:"usage,omitempty"`
	Error          string          `json:"error,omitempty" bson:"error,omitempty"`
	Timestamp      time.Time       `json:"timestamp" bson:"timestamp"`
}

func NewMessage(role, content string) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// IsHistory reports whether the message belongs in the conversational
// history sent back to the model: user turns and final assistant answers.
func (m *Message) IsHistory() bool {
	switch m.Role {
	case RoleUser:
		return true
	case RoleAssistant:
		return len(m.ToolCalls) == 0
	}
	return false
}

var thinkPattern = regexp.MustCompile(`(?s)<think>(.*?)(</think>|$)`)

// SplitReasoning separates <think> blocks emitted by reasoning models from the
// visible answer.
func SplitReasoning(content string) (reasoning, answer string) {
	var parts []string
	for _, match := range thinkPattern.FindAllStringSubmatch(content, -1) {
		if part := strings.TrimSpace(match[1]); part != "" {
			parts = append(parts, part)
		}
	}
	answer = strings.TrimSpace(thinkPattern.ReplaceAllString(content, ""))
	return strings.Join(parts, "\n\n"), answer
}

// CanceledAnswer is the answer kept for a stopped run: the partial text
// streamed so far followed by CanceledNote.
func CanceledAnswer(partial string) string {
	partial = strings.TrimSpace(partial)
	if partial == "" {
		return CanceledNote
	}
	return partial + "\n\n" + CanceledNote
}
