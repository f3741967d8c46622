package tui

import (
	"github.com/drujensen/researchagent/internal/domain/entities"
)

type (
	sessionCreatedMsg struct {
		session *entities.Session
		chat    *entities.Chat
	}
	chatOpenedMsg  *entities.Chat
	streamEventMsg entities.StreamEvent
	runFinishedMsg struct {
		chat *entities.Chat
		err  error
	}
	startNewChatMsg struct{}
)

type (
	startHistoryMsg    struct{}
	historySelectedMsg struct {
		chatID string
	}
	historyCancelledMsg struct{}
	historyFetchedMsg   struct {
		chats []*entities.Chat
	}
)

type (
	startUsageMsg   struct{}
	updatedUsageMsg struct {
		info string
	}
	usageCancelledMsg struct{}
)

type (
	startHelpMsg     struct{}
	helpCancelledMsg struct{}
)

type (
	startToolsMsg   struct{}
	toolsFetchedMsg struct {
		tools []entities.Tool
		stats map[string]entities.ToolStats
	}
	toolsCancelledMsg struct{}
)

type errMsg error
