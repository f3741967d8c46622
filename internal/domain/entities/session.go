package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Session holds the API key a visitor supplied. It lives in memory only; the
// key is never serialized.
type Session struct {
	ID           string    `json:"id"`
	APIKey       string    `json:"-"`
	ActiveChatID string    `json:"active_chat_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastSeenAt   time.Time `json:"last_seen_at"`
}

func NewSession(apiKey string) *Session {
	now := time.Now()
	return &Session{
		ID:         uuid.New().String(),
		APIKey:     apiKey,
		CreatedAt:  now,
		LastSeenAt: now,
	}
}

func (s *Session) MaskedKey() string {
	return MaskKey(s.APIKey)
}

func MaskKey(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}
