package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/drujensen/researchagent/internal/domain/entities"
	"github.com/drujensen/researchagent/internal/domain/errs"
	"github.com/drujensen/researchagent/internal/domain/interfaces"

	"go.uber.org/zap"
)

// InvalidAPIKeyMessage is shown when the key form is submitted empty.
const InvalidAPIKeyMessage = "Please enter a valid API key."

type SessionService interface {
	CreateSession(ctx context.Context, apiKey string) (*entities.Session, error)
	GetSession(ctx context.Context, id string) (*entities.Session, error)
	DeleteSession(ctx context.Context, id string) error
	SetActiveChat(ctx context.Context, id, chatID string) error
	// SessionForKey returns the session bound to apiKey, creating it on first
	// use. API clients authenticate this way instead of with a cookie.
	SessionForKey(ctx context.Context, apiKey string) (*entities.Session, error)
}

type sessionService struct {
	sessionRepo interfaces.SessionRepository
	logger      *zap.Logger
}

func NewSessionService(sessionRepo interfaces.SessionRepository, logger *zap.Logger) *sessionService {
	return &sessionService{
		sessionRepo: sessionRepo,
		logger:      logger,
	}
}

func (s *sessionService) CreateSession(ctx context.Context, apiKey string) (*entities.Session, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errs.ValidationErrorf("%s", InvalidAPIKeyMessage)
	}

	session := entities.NewSession(apiKey)
	if err := s.sessionRepo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("Session created",
		zap.String("session_id", session.ID),
		zap.String("api_key", session.MaskedKey()))
	return session, nil
}

func (s *sessionService) GetSession(ctx context.Context, id string) (*entities.Session, error) {
	if id == "" {
		return nil, errs.ValidationErrorf("session ID is required")
	}

	session, err := s.sessionRepo.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}

	session.LastSeenAt = time.Now()
	if err := s.sessionRepo.UpdateSession(ctx, session); err != nil {
		s.logger.Warn("Failed to touch session", zap.String("session_id", id), zap.Error(err))
	}
	return session, nil
}

func (s *sessionService) DeleteSession(ctx context.Context, id string) error {
	if id == "" {
		return errs.ValidationErrorf("session ID is required")
	}
	if err := s.sessionRepo.DeleteSession(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Session deleted", zap.String("session_id", id))
	return nil
}

func (s *sessionService) SetActiveChat(ctx context.Context, id, chatID string) error {
	session, err := s.sessionRepo.GetSession(ctx, id)
	if err != nil {
		return err
	}
	session.ActiveChatID = chatID
	return s.sessionRepo.UpdateSession(ctx, session)
}

func (s *sessionService) SessionForKey(ctx context.Context, apiKey string) (*entities.Session, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errs.UnauthorizedErrorf("missing API key")
	}

	id := keySessionID(apiKey)
	session, err := s.sessionRepo.GetSession(ctx, id)
	if err == nil {
		return session, nil
	}
	if !errs.IsNotFound(err) {
		return nil, err
	}

	session = entities.NewSession(apiKey)
	session.ID = id
	if err := s.sessionRepo.CreateSession(ctx, session); err != nil {
		// lost a race with a concurrent request for the same key
		if errs.IsValidation(err) {
			return s.sessionRepo.GetSession(ctx, id)
		}
		return nil, err
	}

	s.logger.Info("API session created",
		zap.String("session_id", id),
		zap.String("api_key", session.MaskedKey()))
	return session, nil
}

func keySessionID(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return "key-" + hex.EncodeToString(sum[:16])
}
