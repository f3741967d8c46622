package entities

import (
	"time"

	"github.com/google/uuid"
)

type ChatUsage struct {
	TotalPromptTokens     int `json:"total_prompt_tokens" bson:"total_prompt_tokens"`
	TotalCompletionTokens int `json:"total_completion_tokens" bson:"total_completion_tokens"`
	TotalTokens           int `json:"total_tokens" bson:"total_tokens"`
}

type Chat struct {
	ID        string     `json:"id" bson:"_id"`
	SessionID string     `json:"session_id" bson:"session_id"`
	Name      string     `json:"name" bson:"name"`
	Messages  []Message  `json:"messages" bson:"messages"`
	Usage     *ChatUsage `json:"usage,omitempty" bson:"usage,omitempty"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at"`
}

func NewChat(sessionID, name string) *Chat {
	now := time.Now()
	return &Chat{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Name:      name,
		Messages:  make([]Message, 0),
		Usage:     &ChatUsage{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// UpdateUsage recalculates the total usage for this chat
func (c *Chat) UpdateUsage() {
	if c.Usage == nil {
		c.Usage = &ChatUsage{}
	}

	var prompt, completion int
	for _, msg := range c.Messages {
		if msg.Usage != nil {
			prompt += msg.Usage.PromptTokens
			completion += msg.Usage.CompletionTokens
		}
	}

	c.Usage.TotalPromptTokens = prompt
	c.Usage.TotalCompletionTokens = completion
	c.Usage.TotalTokens = prompt + completion
}

// History returns the user turns and final assistant answers in order.
func (c *Chat) History() []Message {
	history := make([]Message, 0, len(c.Messages))
	for _, msg := range c.Messages {
		if msg.IsHistory() {
			history = append(history, msg)
		}
	}
	return history
}

// Implement list.Item interface for Bubble Tea
func (c *Chat) FilterValue() string {
	return c.Name
}

func (c *Chat) Title() string {
	return c.Name
}

func (c *Chat) Description() string {
	return c.CreatedAt.Format("2006-01-02 15:04")
}

// Clone returns a copy that shares no message slice with c.
func (c *Chat) Clone() *Chat {
	clone := *c
	clone.Messages = make([]Message, len(c.Messages))
	copy(clone.Messages, c.Messages)
	if c.Usage != nil {
		usage := *c.Usage
		clone.Usage = &usage
	}
	return &clone
}
