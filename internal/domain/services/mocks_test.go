package services

import (
	"context"
	"sort"
	"sync"

	"github.com/drujensen/researchagent/internal/domain/entities"
	"github.com/drujensen/researchagent/internal/domain/errs"
	"github.com/drujensen/researchagent/internal/domain/interfaces"

	"github.com/stretchr/testify/mock"
)

type mockSessionRepository struct {
	mock.Mock
}

func (m *mockSessionRepository) CreateSession(ctx context.Context, session *entities.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *mockSessionRepository) UpdateSession(ctx context.Context, session *entities.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *mockSessionRepository) GetSession(ctx context.Context, id string) (*entities.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) != nil {
		return args.Get(0).(*entities.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSessionRepository) DeleteSession(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockToolRepository struct {
	mock.Mock
}

func (m *mockToolRepository) ListTools(ctx context.Context) ([]entities.Tool, error) {
	args := m.Called(ctx)
	return args.Get(0).([]entities.Tool), args.Error(1)
}

func (m *mockToolRepository) GetToolByName(name string) (entities.Tool, error) {
	args := m.Called(name)
	if args.Get(0) != nil {
		return args.Get(0).(entities.Tool), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockToolRepository) RegisterTool(tool entities.Tool) error {
	args := m.Called(tool)
	return args.Error(0)
}

type mockModelFactory struct {
	mock.Mock
}

func (m *mockModelFactory) CreateModelIntegration(agent *entities.Agent, apiKey string) (interfaces.AIModelIntegration, error) {
	args := m.Called(agent, apiKey)
	if args.Get(0) != nil {
		return args.Get(0).(interfaces.AIModelIntegration), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockIntegration struct {
	mock.Mock
}

func (m *mockIntegration) GenerateResponse(ctx context.Context, messages []*entities.Message, toolList []entities.Tool, options map[string]any, handler entities.StreamHandler) ([]*entities.Message, error) {
	args := m.Called(ctx, messages, toolList, options, handler)
	var result []*entities.Message
	if args.Get(0) != nil {
		result = args.Get(0).([]*entities.Message)
	}
	return result, args.Error(1)
}

func (m *mockIntegration) GetUsage() (*entities.Usage, error) {
	args := m.Called()
	if args.Get(0) != nil {
		return args.Get(0).(*entities.Usage), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockIntegration) ModelName() string {
	return "test-model"
}

func (m *mockIntegration) ProviderType() entities.ProviderType {
	return entities.ProviderGeneric
}

// fakeChatRepository keeps chats in a map so message persistence can be
// asserted across calls.
type fakeChatRepository struct {
	mu    sync.Mutex
	chats map[string]*entities.Chat
}

func newFakeChatRepository() *fakeChatRepository {
	return &fakeChatRepository{chats: make(map[string]*entities.Chat)}
}

func (r *fakeChatRepository) CreateChat(ctx context.Context, chat *entities.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chats[chat.ID] = chat.Clone()
	return nil
}

func (r *fakeChatRepository) UpdateChat(ctx context.Context, chat *entities.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.chats[chat.ID]; !ok {
		return errs.NotFoundErrorf("chat not found")
	}
	r.chats[chat.ID] = chat.Clone()
	return nil
}

func (r *fakeChatRepository) DeleteChat(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.chats[id]; !ok {
		return errs.NotFoundErrorf("chat not found")
	}
	delete(r.chats, id)
	return nil
}

func (r *fakeChatRepository) GetChat(ctx context.Context, id string) (*entities.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	chat, ok := r.chats[id]
	if !ok {
		return nil, errs.NotFoundErrorf("chat not found")
	}
	return chat.Clone(), nil
}

func (r *fakeChatRepository) ListChats(ctx context.Context, sessionID string) ([]*entities.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	chats := make([]*entities.Chat, 0)
	for _, chat := range r.chats {
		if chat.SessionID == sessionID {
			chats = append(chats, chat.Clone())
		}
	}
	sort.Slice(chats, func(i, j int) bool { return chats[i].UpdatedAt.After(chats[j].UpdatedAt) })
	return chats, nil
}

type stubTool struct {
	name string
}

func (t *stubTool) Name() string                     { return t.name }
func (t *stubTool) Description() string              { return "stub " + t.name }
func (t *stubTool) Configuration() map[string]string { return nil }
func (t *stubTool) Parameters() []entities.Parameter { return nil }
func (t *stubTool) Execute(ctx context.Context, arguments string) (string, error) {
	return "ok", nil
}
