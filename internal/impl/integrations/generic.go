package integrations

import (
	"github.com/drujensen/researchagent/internal/domain/interfaces"

	"go.uber.org/zap"
)

// GenericIntegration is used for any other OpenAI-compatible server.
type GenericIntegration struct {
	*AIModelIntegration
}

func NewGenericIntegration(baseURL, apiKey, model string, logger *zap.Logger) (*GenericIntegration, error) {
	base, err := NewAIModelIntegration(baseURL, apiKey, model, logger)
	if err != nil {
		return nil, err
	}

	return &GenericIntegration{
		AIModelIntegration: base,
	}, nil
}

var _ interfaces.AIModelIntegration = (*GenericIntegration)(nil)
