package integrations

import (
	"github.com/drujensen/researchagent/internal/domain/entities"
	"github.com/drujensen/researchagent/internal/domain/interfaces"

	"go.uber.org/zap"
)

// GroqIntegration talks to Groq's OpenAI-compatible endpoint. Reasoning
// models there stream their thoughts in a separate reasoning field, which
// the base loop folds back into <think> blocks.
type GroqIntegration struct {
	*AIModelIntegration
}

func NewGroqIntegration(baseURL, apiKey, model string, logger *zap.Logger) (*GroqIntegration, error) {
	if baseURL == "" {
		baseURL = entities.ProviderGroq.DefaultBaseURL()
	}
	base, err := NewAIModelIntegration(baseURL, apiKey, model, logger)
	if err != nil {
		return nil, err
	}

	return &GroqIntegration{
		AIModelIntegration: base,
	}, nil
}

// ProviderType returns the type of provider
func (m *GroqIntegration) ProviderType() entities.ProviderType {
	return entities.ProviderGroq
}

var _ interfaces.AIModelIntegration = (*GroqIntegration)(nil)
