package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type HelpView struct {
	width  int
	height int
}

func NewHelpView() HelpView {
	return HelpView{}
}

func (h HelpView) Init() tea.Cmd {
	return nil
}

func (h HelpView) Update(msg tea.Msg) (HelpView, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		h.width = m.Width
		h.height = m.Height
		return h, nil

	case tea.KeyMsg:
		if m.String() == "esc" {
			return h, func() tea.Msg { return helpCancelledMsg{} }
		}
	}

	return h, nil
}

func (h HelpView) View() string {
	if h.width == 0 || h.height == 0 {
		return ""
	}

	helpText := `Shortcuts:
	Enter/Ctrl+S - Send message
	Esc          - Stop the running answer
	Ctrl+N       - New chat
	Ctrl+H       - Chat history
	Ctrl+T       - Available tools
	Ctrl+U       - Usage stats
	Ctrl+G       - This help
	Tab          - Switch focus to the conversation

	Tips:
	• Use arrows/j/k to scroll the conversation
	• Type / to filter lists
	• Ctrl+C to quit`

	content := helpText + lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Render("\nPress Esc to close")

	innerBorder := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("6")).
		Align(lipgloss.Center)

	outerStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.ThickBorder()).
		BorderForeground(lipgloss.Color("4")).
		Align(lipgloss.Center)

	return outerStyle.Render(innerBorder.Render(content))
}
