package repositories_memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/drujensen/researchagent/internal/domain/entities"
	"github.com/drujensen/researchagent/internal/domain/errs"
	"github.com/drujensen/researchagent/internal/domain/interfaces"

	"github.com/google/uuid"
)

// MemoryChatRepository keeps chats for the lifetime of the process.
type MemoryChatRepository struct {
	mu    sync.RWMutex
	chats map[string]*entities.Chat
}

func NewMemoryChatRepository() *MemoryChatRepository {
	return &MemoryChatRepository{
		chats: make(map[string]*entities.Chat),
	}
}

func (r *MemoryChatRepository) ListChats(ctx context.Context, sessionID string) ([]*entities.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chats := make([]*entities.Chat, 0)
	for _, chat := range r.chats {
		if chat.SessionID == sessionID {
			chats = append(chats, chat.Clone())
		}
	}

	sort.Slice(chats, func(i, j int) bool {
		return chats[i].UpdatedAt.After(chats[j].UpdatedAt)
	})
	return chats, nil
}

func (r *MemoryChatRepository) GetChat(ctx context.Context, id string) (*entities.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chat, ok := r.chats[id]
	if !ok {
		return nil, errs.NotFoundErrorf("chat not found: %s", id)
	}
	return chat.Clone(), nil
}

func (r *MemoryChatRepository) CreateChat(ctx context.Context, chat *entities.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if chat.ID == "" {
		chat.ID = uuid.New().String()
	}
	chat.CreatedAt = time.Now()
	chat.UpdatedAt = chat.CreatedAt
	r.chats[chat.ID] = chat.Clone()
	return nil
}

func (r *MemoryChatRepository) UpdateChat(ctx context.Context, chat *entities.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.chats[chat.ID]; !ok {
		return errs.NotFoundErrorf("chat not found: %s", chat.ID)
	}
	chat.UpdatedAt = time.Now()
	r.chats[chat.ID] = chat.Clone()
	return nil
}

func (r *MemoryChatRepository) DeleteChat(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.chats[id]; !ok {
		return errs.NotFoundErrorf("chat not found: %s", id)
	}
	delete(r.chats, id)
	return nil
}

var _ interfaces.ChatRepository = (*MemoryChatRepository)(nil)
