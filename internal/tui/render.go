package tui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/drujensen/researchagent/internal/domain/entities"
)

type chatStyles struct {
	user      lipgloss.Style
	assistant lipgloss.Style
	dim       lipgloss.Style
	err       lipgloss.Style
}

func newChatStyles() chatStyles {
	return chatStyles{
		user:      lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true),
		assistant: lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true),
		dim:       lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		err:       lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555")),
	}
}

// liveRun is the part of an answer streamed so far.
type liveRun struct {
	content string
	steps   []toolStep
	errors  []string
}

type toolStep struct {
	id     string
	label  string
	status string
}

func (r *liveRun) apply(ev entities.StreamEvent) {
	switch ev.Type {
	case entities.StreamToken:
		r.content += ev.Content
	case entities.StreamToolStart:
		r.content = ""
		r.steps = append(r.steps, toolStep{id: ev.ToolCallID, label: toolLabel(ev.ToolName, ev.Arguments), status: "…"})
	case entities.StreamToolEnd, entities.StreamToolError:
		status := "✓"
		if ev.Type == entities.StreamToolError {
			status = "✗"
		}
		for i := range r.steps {
			if r.steps[i].id == ev.ToolCallID {
				r.steps[i].status = status
			}
		}
	case entities.StreamError:
		r.errors = append(r.errors, ev.Error)
	}
}

func toolLabel(toolName, arguments string) string {
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err == nil && args.Query != "" {
		return fmt.Sprintf("%s: %s", toolName, args.Query)
	}
	return toolName
}

// renderMessages renders the conversation: user turns and final answers with
// their tool steps shown as dim lines.
func renderMessages(messages []entities.Message, s chatStyles) string {
	var sb strings.Builder
	for _, message := range messages {
		switch {
		case message.Role == entities.RoleUser:
			sb.WriteString(s.user.Render("You: ") + message.Content + "\n\n")
		case message.Role == entities.RoleAssistant && len(message.ToolCalls) == 0:
			for _, ev := range message.ToolCallEvents {
				status := "✓"
				if ev.Error != "" {
					status = "✗"
				}
				sb.WriteString(s.dim.Render(fmt.Sprintf("  🔧 %s %s", toolLabel(ev.ToolName, ev.Arguments), status)) + "\n")
			}
			reasoning, answer := entities.SplitReasoning(message.Content)
			if reasoning != "" {
				sb.WriteString(s.dim.Render("  Thinking: "+firstLine(reasoning)) + "\n")
			}
			if message.Error != "" {
				sb.WriteString(s.err.Render("⚠️ Error: "+message.Error) + "\n")
			}
			sb.WriteString(s.assistant.Render("Assistant: ") + answer + "\n\n")
		}
	}
	return sb.String()
}

func renderLive(run *liveRun, s chatStyles) string {
	if run == nil {
		return ""
	}
	var sb strings.Builder
	for _, step := range run.steps {
		sb.WriteString(s.dim.Render(fmt.Sprintf("  🔧 %s %s", step.label, step.status)) + "\n")
	}
	for _, e := range run.errors {
		sb.WriteString(s.err.Render(e) + "\n")
	}
	if run.content != "" {
		sb.WriteString(s.assistant.Render("Assistant: ") + run.content + "\n")
	}
	return sb.String()
}

func firstLine(text string) string {
	line, _, cut := strings.Cut(strings.TrimSpace(text), "\n")
	if cut {
		return line + " …"
	}
	return line
}
