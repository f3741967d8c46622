package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/drujensen/researchagent/internal/domain/entities"
	"github.com/drujensen/researchagent/internal/domain/services"
	"github.com/dustin/go-humanize"
)

type UsageView struct {
	chatService  services.ChatService
	agentService services.AgentService
	chatID       string
	width        int
	height       int
	usageInfo    string
	err          error
}

func NewUsageView(chatService services.ChatService, agentService services.AgentService) UsageView {
	return UsageView{
		chatService:  chatService,
		agentService: agentService,
	}
}

func (u *UsageView) SetChat(chatID string) {
	u.chatID = chatID
}

func (u UsageView) Init() tea.Cmd {
	return u.fetchUsageCmd()
}

func (u UsageView) Update(msg tea.Msg) (UsageView, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		u.width = m.Width
		u.height = m.Height
		return u, nil

	case tea.KeyMsg:
		if m.String() == "esc" {
			return u, func() tea.Msg { return usageCancelledMsg{} }
		}

	case updatedUsageMsg:
		u.usageInfo = m.info
		u.err = nil
		return u, nil

	case errMsg:
		u.err = m
		return u, nil
	}

	return u, nil
}

func (u UsageView) View() string {
	if u.width == 0 || u.height == 0 {
		return ""
	}

	outerStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.ThickBorder()).
		BorderForeground(lipgloss.Color("4")).
		Width(u.width - 2).
		Height(u.height - 2)

	innerStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("6")).
		Width(u.width - 4)

	var sb strings.Builder
	switch {
	case u.err != nil:
		sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Render(fmt.Sprintf("Error: %s\n", u.err.Error())))
	case u.usageInfo != "":
		sb.WriteString(innerStyle.Render(u.usageInfo))
	default:
		sb.WriteString(innerStyle.Render("Loading usage information..."))
	}

	sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Render("\nPress Esc to close"))
	return outerStyle.Render(sb.String())
}

func (u UsageView) fetchUsageCmd() tea.Cmd {
	chatService, agentService, chatID := u.chatService, u.agentService, u.chatID
	return func() tea.Msg {
		chat, err := chatService.GetChat(context.Background(), chatID)
		if err != nil {
			return errMsg(err)
		}
		return updatedUsageMsg{info: formatUsage(agentService.GetAgent().Model, chat.Name, chat.Usage)}
	}
}

func formatUsage(model, chatName string, usage *entities.ChatUsage) string {
	if usage == nil {
		usage = &entities.ChatUsage{}
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Chat: %s\n", chatName))
	sb.WriteString(fmt.Sprintf("Model: %s\n", model))
	sb.WriteString(fmt.Sprintf("Prompt Tokens: %s\n", humanize.Comma(int64(usage.TotalPromptTokens))))
	sb.WriteString(fmt.Sprintf("Completion Tokens: %s\n", humanize.Comma(int64(usage.TotalCompletionTokens))))
	sb.WriteString(fmt.Sprintf("Total Tokens: %s", humanize.Comma(int64(usage.TotalTokens))))
	return sb.String()
}
