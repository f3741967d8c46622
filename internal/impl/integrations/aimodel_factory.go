package integrations

import (
	"fmt"

	"github.com/drujensen/researchagent/internal/domain/entities"
	"github.com/drujensen/researchagent/internal/domain/interfaces"

	"go.uber.org/zap"
)

// AIModelFactory creates AI model integrations based on provider type
type AIModelFactory struct {
	logger *zap.Logger
}

func NewAIModelFactory(logger *zap.Logger) *AIModelFactory {
	return &AIModelFactory{
		logger: logger,
	}
}

// CreateModelIntegration creates an integration for the agent using the
// caller's API key. Integrations are built per request with the session's key.
func (f *AIModelFactory) CreateModelIntegration(agent *entities.Agent, apiKey string) (interfaces.AIModelIntegration, error) {
	logger := f.logger.With(
		zap.String("provider", string(agent.ProviderType)),
		zap.String("model", agent.Model),
		zap.String("api_key", entities.MaskKey(apiKey)),
	)

	switch agent.ProviderType {
	case entities.ProviderGroq:
		return NewGroqIntegration(agent.BaseURL, apiKey, agent.Model, logger)
	case entities.ProviderOpenAI:
		return NewOpenAIIntegration(agent.BaseURL, apiKey, agent.Model, logger)
	case entities.ProviderGeneric:
		return NewGenericIntegration(agent.BaseURL, apiKey, agent.Model, logger)
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", agent.ProviderType)
	}
}

var _ interfaces.AIModelFactory = (*AIModelFactory)(nil)
