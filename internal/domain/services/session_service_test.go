package services

import (
	"context"
	"testing"

	"github.com/drujensen/researchagent/internal/domain/entities"
	"github.com/drujensen/researchagent/internal/domain/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSessionService_CreateSession(t *testing.T) {
	mockRepo := new(mockSessionRepository)
	service := NewSessionService(mockRepo, zap.NewNop())
	ctx := context.Background()

	t.Run("valid key", func(t *testing.T) {
		mockRepo.On("CreateSession", ctx, mock.AnythingOfType("*entities.Session")).Return(nil).Once()

		session, err := service.CreateSession(ctx, "  gsk_secret1234 \n")

		require.NoError(t, err)
		assert.Equal(t, "gsk_secret1234", session.APIKey)
		assert.NotEmpty(t, session.ID)
		assert.Equal(t, "**********1234", session.MaskedKey())
	})

	t.Run("empty key", func(t *testing.T) {
		session, err := service.CreateSession(ctx, "   ")

		assert.Nil(t, session)
		assert.IsType(t, &errs.ValidationError{}, err)
		assert.Equal(t, InvalidAPIKeyMessage, err.Error())
	})

	mockRepo.AssertExpectations(t)
}

func TestSessionService_GetSession(t *testing.T) {
	mockRepo := new(mockSessionRepository)
	service := NewSessionService(mockRepo, zap.NewNop())
	ctx := context.Background()

	existing := entities.NewSession("gsk_key")
	mockRepo.On("GetSession", ctx, existing.ID).Return(existing, nil).Once()
	mockRepo.On("UpdateSession", ctx, existing).Return(nil).Once()
	mockRepo.On("GetSession", ctx, "missing").Return(nil, errs.NotFoundErrorf("session not found")).Once()

	session, err := service.GetSession(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, session.ID)

	_, err = service.GetSession(ctx, "missing")
	assert.True(t, errs.IsNotFound(err))

	_, err = service.GetSession(ctx, "")
	assert.IsType(t, &errs.ValidationError{}, err)

	mockRepo.AssertExpectations(t)
}

func TestSessionService_DeleteAndActiveChat(t *testing.T) {
	mockRepo := new(mockSessionRepository)
	service := NewSessionService(mockRepo, zap.NewNop())
	ctx := context.Background()

	existing := entities.NewSession("gsk_key")
	mockRepo.On("GetSession", ctx, existing.ID).Return(existing, nil).Once()
	mockRepo.On("UpdateSession", ctx, mock.MatchedBy(func(s *entities.Session) bool {
		return s.ActiveChatID == "chat-1"
	})).Return(nil).Once()
	mockRepo.On("DeleteSession", ctx, existing.ID).Return(nil).Once()

	require.NoError(t, service.SetActiveChat(ctx, existing.ID, "chat-1"))
	require.NoError(t, service.DeleteSession(ctx, existing.ID))
	assert.IsType(t, &errs.ValidationError{}, service.DeleteSession(ctx, ""))

	mockRepo.AssertExpectations(t)
}

func TestSessionService_SessionForKey(t *testing.T) {
	ctx := context.Background()
	id := keySessionID("gsk_api")

	t.Run("creates on first use", func(t *testing.T) {
		mockRepo := new(mockSessionRepository)
		service := NewSessionService(mockRepo, zap.NewNop())
		mockRepo.On("GetSession", ctx, id).Return(nil, errs.NotFoundErrorf("session not found")).Once()
		mockRepo.On("CreateSession", ctx, mock.MatchedBy(func(s *entities.Session) bool {
			return s.ID == id && s.APIKey == "gsk_api"
		})).Return(nil).Once()

		session, err := service.SessionForKey(ctx, "gsk_api")
		require.NoError(t, err)
		assert.Equal(t, id, session.ID)
		mockRepo.AssertExpectations(t)
	})

	t.Run("reuses existing", func(t *testing.T) {
		mockRepo := new(mockSessionRepository)
		service := NewSessionService(mockRepo, zap.NewNop())
		existing := entities.NewSession("gsk_api")
		existing.ID = id
		mockRepo.On("GetSession", ctx, id).Return(existing, nil).Once()

		session, err := service.SessionForKey(ctx, " gsk_api ")
		require.NoError(t, err)
		assert.Same(t, existing, session)
		mockRepo.AssertExpectations(t)
	})

	t.Run("missing key", func(t *testing.T) {
		service := NewSessionService(new(mockSessionRepository), zap.NewNop())
		_, err := service.SessionForKey(ctx, "")
		assert.True(t, errs.IsUnauthorized(err))
	})

	assert.NotEqual(t, keySessionID("a"), keySessionID("b"))
	assert.NotContains(t, id, "gsk_api")
}

func TestAgentService_ResolveTools(t *testing.T) {
	toolRepo := new(mockToolRepository)
	agent := entities.NewAgent("Research Agent", entities.ProviderGroq, "", "m", "", []string{"duckDuckGoSearch", "arxiv"})
	service := NewAgentService(agent, toolRepo, zap.NewNop())

	toolRepo.On("GetToolByName", "duckDuckGoSearch").Return(&stubTool{name: "duckDuckGoSearch"}, nil).Once()
	toolRepo.On("GetToolByName", "arxiv").Return(&stubTool{name: "arxiv"}, nil).Once()

	tools, err := service.ResolveTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 2)
	assert.Equal(t, "duckDuckGoSearch", tools[0].Name())
	assert.Equal(t, "arxiv", tools[1].Name())

	toolRepo.On("GetToolByName", "duckDuckGoSearch").Return(nil, errs.NotFoundErrorf("tool not found")).Once()
	_, err = service.ResolveTools(context.Background())
	assert.IsType(t, &errs.InternalError{}, err)

	copied := service.GetAgent()
	copied.Model = "changed"
	assert.Equal(t, "m", service.GetAgent().Model)
}
