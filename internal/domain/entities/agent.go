package entities

import "fmt"

const (
	DefaultSystemPrompt  = "You are a helpful assistant"
	DefaultModel         = "deepseek-r1-distill-llama-70b"
	DefaultMaxIterations = 15
)

// Agent describes how the tool-calling agent talks to its model.
type Agent struct {
	Name          string       `json:"name" yaml:"name"`
	ProviderType  ProviderType `json:"provider_type" yaml:"provider_type"`
	BaseURL       string       `json:"base_url" yaml:"base_url"`
	Model         string       `json:"model" yaml:"model"`
	SystemPrompt  string       `json:"system_prompt" yaml:"system_prompt"`
	Temperature   *float64     `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens     *int         `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	MaxIterations int          `json:"max_iterations" yaml:"max_iterations"`
	Tools         []string     `json:"tools,omitempty" yaml:"tools,omitempty"`
}

func NewAgent(name string, providerType ProviderType, baseURL, model, systemPrompt string, tools []string) *Agent {
	if baseURL == "" {
		baseURL = providerType.DefaultBaseURL()
	}
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return &Agent{
		Name:          name,
		ProviderType:  providerType,
		BaseURL:       baseURL,
		Model:         model,
		SystemPrompt:  systemPrompt,
		MaxIterations: DefaultMaxIterations,
		Tools:         tools,
	}
}

func (a *Agent) Description() string {
	return fmt.Sprintf("Model: %s | Provider: %s | Tools: %d", a.Model, a.ProviderType, len(a.Tools))
}
