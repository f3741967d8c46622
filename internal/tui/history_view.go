package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/drujensen/researchagent/internal/domain/entities"
	"github.com/drujensen/researchagent/internal/domain/services"
)

type HistoryView struct {
	chatService services.ChatService
	sessionID   string
	list        list.Model
	err         error
	width       int
	height      int
}

func NewHistoryView(chatService services.ChatService) HistoryView {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(lipgloss.Color("6")).Bold(true)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(lipgloss.Color("7"))
	delegate.SetHeight(2)

	l := list.New([]list.Item{}, delegate, 100, 10)
	l.Title = "Chat History"
	l.SetShowStatusBar(false)
	l.SetShowFilter(false)

	return HistoryView{
		chatService: chatService,
		list:        l,
	}
}

func (h *HistoryView) SetSession(sessionID string) {
	h.sessionID = sessionID
}

func (h HistoryView) Init() tea.Cmd {
	return h.fetchChatsCmd()
}

func (h HistoryView) Update(msg tea.Msg) (HistoryView, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		h.width = m.Width
		h.height = m.Height
		h.list.SetSize(m.Width-4, m.Height-3)
		return h, nil

	case historyFetchedMsg:
		items := make([]list.Item, len(m.chats))
		for i, chat := range m.chats {
			items[i] = chat
		}
		h.list.SetItems(items)
		h.list.SetShowPagination(len(items) > 10)
		h.err = nil
		return h, nil

	case errMsg:
		h.err = m
		return h, nil

	case tea.KeyMsg:
		switch m.String() {
		case "esc":
			return h, func() tea.Msg { return historyCancelledMsg{} }
		case "enter":
			if selected, ok := h.list.SelectedItem().(*entities.Chat); ok {
				return h, func() tea.Msg { return historySelectedMsg{chatID: selected.ID} }
			}
		}
	}

	var cmd tea.Cmd
	h.list, cmd = h.list.Update(msg)
	return h, cmd
}

func (h HistoryView) View() string {
	instructions := "Use arrows or j/k to navigate, Enter to select, Esc to cancel"
	view := h.list.View() + "\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Render(instructions)
	if h.err != nil {
		view += "\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Render("Error: "+h.err.Error())
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(view)
}

func (h HistoryView) fetchChatsCmd() tea.Cmd {
	chatService, sessionID := h.chatService, h.sessionID
	return func() tea.Msg {
		chats, err := chatService.ListChats(context.Background(), sessionID)
		if err != nil {
			return errMsg(err)
		}
		return historyFetchedMsg{chats: chats}
	}
}
