package entities

import (
	"context"
	"time"
)

type Item struct {
	Type string
}

type Parameter struct {
	Name        string
	Type        string
	Enum        []string
	Items       []Item
	Description string
	Required    bool
}

// ToolStats counts the runs of one tool.
type ToolStats struct {
	Calls         int           `json:"calls"`
	Failures      int           `json:"failures"`
	TotalDuration time.Duration `json:"total_duration"`
	LastUsed      time.Time     `json:"last_used,omitempty"`
}

// Record adds one run to the counts.
func (s *ToolStats) Record(event *ToolCallEvent) {
	s.Calls++
	if event.Error != "" {
		s.Failures++
	}
	s.TotalDuration += event.Duration
	if event.Timestamp.After(s.LastUsed) {
		s.LastUsed = event.Timestamp
	}
}

type Tool interface {
	Name() string
	Description() string
	Configuration() map[string]string
	Parameters() []Parameter
	Execute(ctx context.Context, arguments string) (string, error)
}

// Schema renders the tool parameters as a JSON schema object suitable for a
// function-calling request.
func Schema(tool Tool) map[string]any {
	properties := make(map[string]any)
	required := make([]string, 0)
	for _, param := range tool.Parameters() {
		property := map[string]any{
			"type":        param.Type,
			"description": param.Description,
		}
		if len(param.Enum) > 0 {
			property["enum"] = param.Enum
		}
		if param.Type == "array" && len(param.Items) > 0 {
			property["items"] = map[string]any{"type": param.Items[0].Type}
		}
		properties[param.Name] = property
		if param.Required {
			required = append(required, param.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}
