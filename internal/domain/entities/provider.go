package entities

type ProviderType string

const (
	ProviderGroq    ProviderType = "groq"
	ProviderOpenAI  ProviderType = "openai"
	ProviderGeneric ProviderType = "generic"
)

// DefaultBaseURL returns the OpenAI-compatible base URL for a known provider.
func (p ProviderType) DefaultBaseURL() string {
	switch p {
	case ProviderGroq:
		return "https://api.groq.com/openai/v1"
	case ProviderOpenAI:
		return "https://api.openai.com/v1"
	}
	return ""
}
