package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/drujensen/researchagent/internal/domain/entities"
	"github.com/drujensen/researchagent/internal/domain/services"
)

// KeyView is the first screen: it collects the Groq API key.
type KeyView struct {
	sessionService services.SessionService
	chatService    services.ChatService
	keyField       textinput.Model
	err            error
	submitting     bool
	width          int
	height         int
}

func NewKeyView(sessionService services.SessionService, chatService services.ChatService) KeyView {
	keyField := textinput.New()
	keyField.Placeholder = "gsk_..."
	keyField.PlaceholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	keyField.EchoMode = textinput.EchoPassword
	keyField.EchoCharacter = '•'
	keyField.CharLimit = 200
	keyField.Width = 60
	keyField.Focus()

	return KeyView{
		sessionService: sessionService,
		chatService:    chatService,
		keyField:       keyField,
	}
}

func (k KeyView) Init() tea.Cmd {
	return textinput.Blink
}

func (k KeyView) Update(msg tea.Msg) (KeyView, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		k.width = m.Width
		k.height = m.Height
		return k, nil

	case tea.KeyMsg:
		switch m.String() {
		case "ctrl+c", "esc":
			return k, tea.Quit
		case "enter":
			if k.submitting {
				return k, nil
			}
			k.err = nil
			k.submitting = true
			return k, openSessionCmd(k.sessionService, k.chatService, k.keyField.Value())
		}

	case errMsg:
		k.submitting = false
		k.err = m
		return k, nil
	}

	var cmd tea.Cmd
	k.keyField, cmd = k.keyField.Update(msg)
	return k, cmd
}

func (k KeyView) View() string {
	title := lipgloss.NewStyle().Bold(true).Render("🔑 Enter your Groq API Key")

	var sb strings.Builder
	sb.WriteString(title + "\n\n")
	sb.WriteString("Paste your Groq API key:\n")
	sb.WriteString(lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("6")).
		Render(k.keyField.View()))
	sb.WriteString("\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Render("Enter to Submit, Esc to exit"))

	if k.err != nil {
		sb.WriteString("\n\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("#FFBD45")).Render("⚠️ "+k.err.Error()))
	}

	return lipgloss.NewStyle().Padding(1, 2).Render(sb.String())
}

// openSessionCmd opens a session for apiKey and resumes its latest chat.
func openSessionCmd(sessionService services.SessionService, chatService services.ChatService, apiKey string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		session, err := sessionService.CreateSession(ctx, apiKey)
		if err != nil {
			return errMsg(err)
		}

		chat, err := latestOrNewChat(ctx, chatService, session.ID)
		if err != nil {
			return errMsg(err)
		}
		if err := sessionService.SetActiveChat(ctx, session.ID, chat.ID); err != nil {
			return errMsg(err)
		}
		session.ActiveChatID = chat.ID
		return sessionCreatedMsg{session: session, chat: chat}
	}
}

func latestOrNewChat(ctx context.Context, chatService services.ChatService, sessionID string) (*entities.Chat, error) {
	chats, err := chatService.ListChats(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(chats) > 0 {
		return chats[0], nil
	}
	return chatService.CreateChat(ctx, sessionID, "")
}
