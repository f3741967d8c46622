package interfaces

import (
	"context"

	"github.com/drujensen/researchagent/internal/domain/entities"
)

// AIModelIntegration runs the tool-calling loop against a hosted model.
type AIModelIntegration interface {
	// GenerateResponse streams the model's work on messages through handler
	// and returns every message produced during the run, the final answer last.
	GenerateResponse(ctx context.Context, messages []*entities.Message, toolList []entities.Tool, options map[string]any, handler entities.StreamHandler) ([]*entities.Message, error)

	// GetUsage returns token usage accumulated over the last run
	GetUsage() (*entities.Usage, error)

	ModelName() string

	ProviderType() entities.ProviderType
}

// AIModelFactory builds an integration for an agent with a caller supplied key.
type AIModelFactory interface {
	CreateModelIntegration(agent *entities.Agent, apiKey string) (AIModelIntegration, error)
}
