package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/drujensen/researchagent/internal/domain/entities"
	"github.com/drujensen/researchagent/internal/domain/services"
)

type TUI struct {
	sessionService services.SessionService
	chatService    services.ChatService
	agentService   services.AgentService
	toolService    services.ToolService
	defaultAPIKey  string
	session        *entities.Session
	activeChat     *entities.Chat

	keyView     KeyView
	chatView    ChatView
	historyView HistoryView
	usageView   UsageView
	helpView    HelpView
	toolView    ToolView

	state string
}

// NewTUI starts on the key screen unless defaultAPIKey is set, in which case
// a session is opened with it straight away.
func NewTUI(sessionService services.SessionService, chatService services.ChatService, agentService services.AgentService, toolService services.ToolService, defaultAPIKey string) TUI {
	return TUI{
		sessionService: sessionService,
		chatService:    chatService,
		agentService:   agentService,
		toolService:    toolService,
		defaultAPIKey:  defaultAPIKey,

		keyView:     NewKeyView(sessionService, chatService),
		chatView:    NewChatView(chatService),
		historyView: NewHistoryView(chatService),
		usageView:   NewUsageView(chatService, agentService),
		helpView:    NewHelpView(),
		toolView:    NewToolView(toolService),

		state: "key",
	}
}

func (t TUI) Init() tea.Cmd {
	if t.defaultAPIKey != "" {
		return openSessionCmd(t.sessionService, t.chatService, t.defaultAPIKey)
	}
	return t.keyView.Init()
}

func (t TUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionCreatedMsg:
		t.session = msg.session
		t.chatView.SetSession(msg.session)
		t.historyView.SetSession(msg.session.ID)
		return t.openChat(msg.chat)

	case chatOpenedMsg:
		return t.openChat(msg)

	case startNewChatMsg:
		return t, t.newChatCmd()

	case startHistoryMsg:
		t.state = "chat/history"
		return t, t.historyView.Init()
	case historySelectedMsg:
		return t, t.selectChatCmd(msg.chatID)
	case historyCancelledMsg:
		t.state = "chat/view"
		return t, nil

	case startUsageMsg:
		if t.activeChat == nil {
			return t, nil
		}
		t.state = "chat/usage"
		t.usageView.SetChat(t.activeChat.ID)
		return t, t.usageView.Init()
	case usageCancelledMsg:
		t.state = "chat/view"
		return t, nil

	case startHelpMsg:
		t.state = "chat/help"
		return t, t.helpView.Init()
	case helpCancelledMsg:
		t.state = "chat/view"
		return t, nil

	case startToolsMsg:
		t.state = "tools/list"
		return t, t.toolView.Init()
	case toolsCancelledMsg:
		t.state = "chat/view"
		return t, nil

	case streamEventMsg, runFinishedMsg:
		var cmd tea.Cmd
		t.chatView, cmd = t.chatView.Update(msg)
		if finished, ok := msg.(runFinishedMsg); ok && finished.chat != nil {
			t.activeChat = finished.chat
		}
		return t, cmd

	case tea.WindowSizeMsg:
		var (
			cmd  tea.Cmd
			cmds []tea.Cmd
		)

		t.keyView, cmd = t.keyView.Update(msg)
		cmds = append(cmds, cmd)
		t.chatView, cmd = t.chatView.Update(msg)
		cmds = append(cmds, cmd)
		t.historyView, cmd = t.historyView.Update(msg)
		cmds = append(cmds, cmd)
		t.usageView, cmd = t.usageView.Update(msg)
		cmds = append(cmds, cmd)
		t.helpView, cmd = t.helpView.Update(msg)
		cmds = append(cmds, cmd)
		t.toolView, cmd = t.toolView.Update(msg)
		cmds = append(cmds, cmd)

		return t, tea.Batch(cmds...)
	}

	var cmd tea.Cmd
	switch t.state {
	case "key":
		t.keyView, cmd = t.keyView.Update(msg)
	case "chat/view":
		t.chatView, cmd = t.chatView.Update(msg)
	case "chat/history":
		t.historyView, cmd = t.historyView.Update(msg)
	case "chat/usage":
		t.usageView, cmd = t.usageView.Update(msg)
	case "chat/help":
		t.helpView, cmd = t.helpView.Update(msg)
	case "tools/list":
		t.toolView, cmd = t.toolView.Update(msg)
	}
	return t, cmd
}

func (t TUI) View() string {
	switch t.state {
	case "key":
		return t.keyView.View()
	case "chat/view":
		return t.chatView.View()
	case "chat/history":
		return t.historyView.View()
	case "chat/usage":
		return t.usageView.View()
	case "chat/help":
		return t.helpView.View()
	case "tools/list":
		return t.toolView.View()
	}

	return "Error: Invalid state"
}

func (t TUI) openChat(chat *entities.Chat) (tea.Model, tea.Cmd) {
	t.activeChat = chat
	t.chatView.SetActiveChat(chat)
	t.state = "chat/view"
	return t, t.chatView.Init()
}

func (t TUI) newChatCmd() tea.Cmd {
	sessionService, chatService, session := t.sessionService, t.chatService, t.session
	return func() tea.Msg {
		if session == nil {
			return nil
		}
		ctx := context.Background()
		chat, err := chatService.CreateChat(ctx, session.ID, "")
		if err != nil {
			return errMsg(err)
		}
		if err := sessionService.SetActiveChat(ctx, session.ID, chat.ID); err != nil {
			return errMsg(err)
		}
		return chatOpenedMsg(chat)
	}
}

func (t TUI) selectChatCmd(chatID string) tea.Cmd {
	sessionService, chatService, session := t.sessionService, t.chatService, t.session
	return func() tea.Msg {
		if session == nil {
			return nil
		}
		ctx := context.Background()
		chat, err := chatService.GetSessionChat(ctx, session.ID, chatID)
		if err != nil {
			return errMsg(err)
		}
		if err := sessionService.SetActiveChat(ctx, session.ID, chat.ID); err != nil {
			return errMsg(err)
		}
		return chatOpenedMsg(chat)
	}
}
