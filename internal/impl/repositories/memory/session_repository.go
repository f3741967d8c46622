package repositories_memory

import (
	"context"
	"sync"

	"github.com/drujensen/researchagent/internal/domain/entities"
	"github.com/drujensen/researchagent/internal/domain/errs"
	"github.com/drujensen/researchagent/internal/domain/interfaces"
)

// MemorySessionRepository is the only session store. Sessions carry API keys,
// which never leave process memory.
type MemorySessionRepository struct {
	sessions sync.Map
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{}
}

func (r *MemorySessionRepository) CreateSession(ctx context.Context, session *entities.Session) error {
	if _, loaded := r.sessions.LoadOrStore(session.ID, copySession(session)); loaded {
		return errs.ValidationErrorf("session already exists: %s", session.ID)
	}
	return nil
}

func (r *MemorySessionRepository) UpdateSession(ctx context.Context, session *entities.Session) error {
	if _, ok := r.sessions.Load(session.ID); !ok {
		return errs.NotFoundErrorf("session not found: %s", session.ID)
	}
	r.sessions.Store(session.ID, copySession(session))
	return nil
}

func (r *MemorySessionRepository) GetSession(ctx context.Context, id string) (*entities.Session, error) {
	value, ok := r.sessions.Load(id)
	if !ok {
		return nil, errs.NotFoundErrorf("session not found: %s", id)
	}
	return copySession(value.(*entities.Session)), nil
}

func (r *MemorySessionRepository) DeleteSession(ctx context.Context, id string) error {
	if _, loaded := r.sessions.LoadAndDelete(id); !loaded {
		return errs.NotFoundErrorf("session not found: %s", id)
	}
	return nil
}

func copySession(session *entities.Session) *entities.Session {
	s := *session
	return &s
}

var _ interfaces.SessionRepository = (*MemorySessionRepository)(nil)
