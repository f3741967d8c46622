package interfaces

import (
	"context"

	"github.com/drujensen/researchagent/internal/domain/entities"
)

type ToolRepository interface {
	ListTools(ctx context.Context) ([]entities.Tool, error)
	GetToolByName(name string) (entities.Tool, error)
	RegisterTool(tool entities.Tool) error
}
