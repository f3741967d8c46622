package repositories_json

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/drujensen/researchagent/internal/domain/entities"
	"github.com/drujensen/researchagent/internal/domain/errs"
	"github.com/drujensen/researchagent/internal/domain/interfaces"

	"github.com/google/uuid"
)

// JsonChatRepository keeps every chat in <dataDir>/.researchagent/chats.json.
type JsonChatRepository struct {
	mu       sync.RWMutex
	filePath string
	data     []*entities.Chat
}

func NewJSONChatRepository(dataDir string) (*JsonChatRepository, error) {
	filePath := filepath.Join(dataDir, ".researchagent", "chats.json")
	repo := &JsonChatRepository{
		filePath: filePath,
		data:     []*entities.Chat{},
	}

	if err := repo.load(); err != nil {
		return nil, err
	}

	return repo, nil
}

func (r *JsonChatRepository) load() error {
	data, err := os.ReadFile(r.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errs.InternalErrorf("failed to read chats.json: %v", err)
	}

	var chats []*entities.Chat
	if err := json.Unmarshal(data, &chats); err != nil {
		return errs.InternalErrorf("failed to unmarshal chats.json: %v", err)
	}

	for _, chat := range chats {
		if chat.ID == "" {
			return errs.InternalErrorf("chat is missing an ID")
		}
		if _, err := uuid.Parse(chat.ID); err != nil {
			return errs.InternalErrorf("chat has an invalid UUID: %v", err)
		}
	}

	r.data = chats
	return nil
}

// save must be called with the write lock held.
func (r *JsonChatRepository) save() error {
	data, err := json.MarshalIndent(r.data, "", "  ")
	if err != nil {
		return errs.InternalErrorf("failed to marshal chats: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.filePath), 0755); err != nil {
		return errs.InternalErrorf("failed to create directory: %v", err)
	}

	tmp := r.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errs.InternalErrorf("failed to write chats.json: %v", err)
	}
	if err := os.Rename(tmp, r.filePath); err != nil {
		return errs.InternalErrorf("failed to replace chats.json: %v", err)
	}

	return nil
}

func (r *JsonChatRepository) ListChats(ctx context.Context, sessionID string) ([]*entities.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chats := make([]*entities.Chat, 0)
	for _, c := range r.data {
		if c.SessionID == sessionID {
			chats = append(chats, c.Clone())
		}
	}

	sort.Slice(chats, func(i, j int) bool {
		return chats[i].UpdatedAt.After(chats[j].UpdatedAt)
	})

	return chats, nil
}

func (r *JsonChatRepository) GetChat(ctx context.Context, id string) (*entities.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, chat := range r.data {
		if chat.ID == id {
			return chat.Clone(), nil
		}
	}
	return nil, errs.NotFoundErrorf("chat not found: %s", id)
}

func (r *JsonChatRepository) CreateChat(ctx context.Context, chat *entities.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if chat.ID == "" {
		chat.ID = uuid.New().String()
	}
	chat.CreatedAt = time.Now()
	chat.UpdatedAt = chat.CreatedAt

	r.data = append(r.data, chat.Clone())
	return r.save()
}

func (r *JsonChatRepository) UpdateChat(ctx context.Context, chat *entities.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, c := range r.data {
		if c.ID == chat.ID {
			chat.UpdatedAt = time.Now()
			r.data[i] = chat.Clone()
			return r.save()
		}
	}
	return errs.NotFoundErrorf("chat not found: %s", chat.ID)
}

func (r *JsonChatRepository) DeleteChat(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, c := range r.data {
		if c.ID == id {
			r.data = slices.Delete(r.data, i, i+1)
			return r.save()
		}
	}
	return errs.NotFoundErrorf("chat not found: %s", id)
}

var _ interfaces.ChatRepository = (*JsonChatRepository)(nil)
