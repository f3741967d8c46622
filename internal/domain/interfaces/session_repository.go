package interfaces

import (
	"context"

	"github.com/drujensen/researchagent/internal/domain/entities"
)

type SessionRepository interface {
	CreateSession(ctx context.Context, session *entities.Session) error
	UpdateSession(ctx context.Context, session *entities.Session) error
	GetSession(ctx context.Context, id string) (*entities.Session, error)
	DeleteSession(ctx context.Context, id string) error
}
