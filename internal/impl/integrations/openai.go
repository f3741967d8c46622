package integrations

import (
	"github.com/drujensen/researchagent/internal/domain/entities"
	"github.com/drujensen/researchagent/internal/domain/interfaces"

	"go.uber.org/zap"
)

type OpenAIIntegration struct {
	*AIModelIntegration
}

func NewOpenAIIntegration(baseURL, apiKey, model string, logger *zap.Logger) (*OpenAIIntegration, error) {
	if baseURL == "" {
		baseURL = entities.ProviderOpenAI.DefaultBaseURL()
	}
	base, err := NewAIModelIntegration(baseURL, apiKey, model, logger)
	if err != nil {
		return nil, err
	}

	return &OpenAIIntegration{
		AIModelIntegration: base,
	}, nil
}

// ProviderType returns the type of provider
func (m *OpenAIIntegration) ProviderType() entities.ProviderType {
	return entities.ProviderOpenAI
}

var _ interfaces.AIModelIntegration = (*OpenAIIntegration)(nil)
