package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/drujensen/researchagent/internal/domain/entities"
	"github.com/drujensen/researchagent/internal/domain/errs"
	"github.com/drujensen/researchagent/internal/domain/services"
)

const (
	chatTitle    = "🤖 LangChain Agent Chatbot with Tools"
	chatSubtitle = "Ask me anything, and I'll use Wikipedia, Arxiv, and DuckDuckGoSearch"
)

type ChatView struct {
	chatService  services.ChatService
	session      *entities.Session
	activeChat   *entities.Chat
	viewport     viewport.Model
	textarea     textarea.Model
	spinner      spinner.Model
	styles       chatStyles
	live         *liveRun
	run          chan tea.Msg
	err          error
	cancel       context.CancelFunc
	isProcessing bool
	startTime    time.Time
	focused      string // "textarea" or "viewport"
	width        int
	height       int
}

func NewChatView(chatService services.ChatService) ChatView {
	ta := textarea.New()
	ta.Placeholder = "Type your message..."
	ta.Focus()
	ta.Prompt = "┃ "
	ta.SetWidth(30)
	ta.SetHeight(3)
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false)

	vp := viewport.New(30, 5)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return ChatView{
		chatService: chatService,
		textarea:    ta,
		viewport:    vp,
		spinner:     s,
		styles:      newChatStyles(),
		focused:     "textarea",
		width:       30,
		height:      5,
	}
}

func (c *ChatView) SetSession(session *entities.Session) {
	c.session = session
}

func (c *ChatView) SetActiveChat(chat *entities.Chat) {
	c.activeChat = chat
	c.live = nil
	c.refresh()
}

func (c *ChatView) refresh() {
	var content string
	if c.activeChat == nil || len(c.activeChat.Messages) == 0 {
		content = c.styles.dim.Render(chatSubtitle) + "\n\n"
	} else {
		content = renderMessages(c.activeChat.Messages, c.styles)
	}
	content += renderLive(c.live, c.styles)
	c.viewport.SetContent(lipgloss.NewStyle().Width(c.viewport.Width).Render(content))
	c.viewport.GotoBottom()
}

func (c ChatView) Init() tea.Cmd {
	c.textarea.Focus()
	return textarea.Blink
}

func (c ChatView) Update(msg tea.Msg) (ChatView, tea.Cmd) {
	var cmds []tea.Cmd

	switch m := msg.(type) {
	case tea.KeyMsg:
		if c.isProcessing {
			switch m.String() {
			case "esc":
				if c.cancel != nil {
					c.cancel()
					c.err = fmt.Errorf("request cancelled")
				}
			case "ctrl+c":
				if c.cancel != nil {
					c.cancel()
				}
				return c, tea.Quit
			}
			return c, nil
		}

		switch m.String() {
		case "ctrl+c":
			return c, tea.Quit
		case "esc":
			return c, nil
		case "ctrl+n":
			return c, func() tea.Msg { return startNewChatMsg{} }
		case "ctrl+h":
			return c, func() tea.Msg { return startHistoryMsg{} }
		case "ctrl+t":
			return c, func() tea.Msg { return startToolsMsg{} }
		case "ctrl+u":
			return c, func() tea.Msg { return startUsageMsg{} }
		case "ctrl+g":
			return c, func() tea.Msg { return startHelpMsg{} }
		case "enter", "ctrl+s":
			if c.focused == "textarea" {
				return c.send()
			}
		case "tab", "shift+tab":
			if c.focused == "textarea" {
				c.focused = "viewport"
				c.textarea.Blur()
			} else {
				c.focused = "textarea"
				c.textarea.Focus()
				cmds = append(cmds, textarea.Blink)
			}
			return c, tea.Batch(cmds...)
		case "j", "down":
			if c.focused == "viewport" {
				c.viewport.ScrollDown(1)
				return c, nil
			}
		case "k", "up":
			if c.focused == "viewport" {
				c.viewport.ScrollUp(1)
				return c, nil
			}
		}

		if c.focused == "textarea" {
			var cmd tea.Cmd
			c.textarea, cmd = c.textarea.Update(m)
			if cmd != nil {
				cmds = append(cmds, cmd)
			}
		}

	case spinner.TickMsg:
		if c.isProcessing {
			var cmd tea.Cmd
			c.spinner, cmd = c.spinner.Update(m)
			return c, cmd
		}

	case streamEventMsg:
		if c.live == nil {
			c.live = &liveRun{}
		}
		c.live.apply(entities.StreamEvent(m))
		c.refresh()
		return c, waitForRun(c.run)

	case runFinishedMsg:
		c.isProcessing = false
		c.cancel = nil
		c.run = nil
		if m.err != nil && !errs.IsCanceled(m.err) {
			c.err = m.err
		}
		if m.chat != nil {
			c.SetActiveChat(m.chat)
		}
		return c, nil

	case errMsg:
		c.err = m
		return c, nil

	case tea.WindowSizeMsg:
		c.width = m.Width
		c.height = m.Height
		innerWidth := c.width - 4
		innerHeight := c.height - 4

		c.viewport.Width = innerWidth
		// title (1), textarea (3), instructions (1), possible error (1), borders (2)
		c.viewport.Height = innerHeight - 1 - 3 - 1 - 1 - 2
		c.textarea.SetWidth(innerWidth)
		c.refresh()
		return c, nil

	case tea.MouseMsg:
		switch m.Button {
		case tea.MouseButtonWheelUp:
			c.viewport.ScrollUp(3)
		case tea.MouseButtonWheelDown:
			c.viewport.ScrollDown(3)
		}
		return c, nil
	}

	return c, tea.Batch(cmds...)
}

func (c ChatView) send() (ChatView, tea.Cmd) {
	input := strings.TrimSpace(c.textarea.Value())
	if input == "" {
		c.err = fmt.Errorf("message cannot be empty")
		return c, nil
	}
	if c.activeChat == nil || c.session == nil {
		c.err = fmt.Errorf("no active chat")
		return c, nil
	}

	c.textarea.Reset()
	c.err = nil

	pending := entities.NewMessage(entities.RoleUser, input)
	c.activeChat.Messages = append(c.activeChat.Messages, *pending)
	c.live = &liveRun{}
	c.refresh()

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.isProcessing = true
	c.startTime = time.Now()
	c.run = startRun(ctx, c.chatService, c.activeChat.ID, c.session.APIKey, input)
	return c, tea.Batch(waitForRun(c.run), c.spinner.Tick)
}

func (c ChatView) View() string {
	focusedBorder := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("6"))

	unfocusedBorder := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("8"))

	outerStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.ThickBorder()).
		BorderForeground(lipgloss.Color("4")).
		Width(c.width - 2).
		Height(c.height - 2)

	var sb strings.Builder

	title := chatTitle
	if c.activeChat != nil {
		title += c.styles.dim.Render("  " + c.activeChat.Name)
	}
	sb.WriteString(lipgloss.NewStyle().Bold(true).Render(title) + "\n")

	vpStyle := unfocusedBorder.Width(c.width - 4).Height(c.viewport.Height)
	if c.focused == "viewport" {
		vpStyle = focusedBorder.Width(c.width - 4).Height(c.viewport.Height)
	}
	sb.WriteString(vpStyle.Render(c.viewport.View()))

	taStyle := unfocusedBorder.Width(c.width - 4).Height(c.textarea.Height())
	if c.focused == "textarea" {
		taStyle = focusedBorder.Width(c.width - 4).Height(c.textarea.Height())
	}
	sb.WriteString(taStyle.Render(c.textarea.View()))

	if c.isProcessing {
		elapsed := time.Since(c.startTime).Round(time.Second)
		sb.WriteString("\n" + c.spinner.View() + fmt.Sprintf(" Thinking... (%ds) Esc to stop", int(elapsed.Seconds())))
	} else {
		instructions := "Enter send, Ctrl+N new chat, Ctrl+H history, Ctrl+T tools, Ctrl+G help, Ctrl+C exit"
		sb.WriteString("\n" + c.styles.dim.Render(instructions))
	}

	if c.err != nil {
		sb.WriteString(c.styles.err.Render(fmt.Sprintf("\n%s", c.err.Error())))
	}

	return outerStyle.Render(sb.String())
}

// startRun runs the agent in the background. Stream events and the final
// chat arrive on the returned channel, which is closed after runFinishedMsg.
func startRun(ctx context.Context, cs services.ChatService, chatID, apiKey, content string) chan tea.Msg {
	ch := make(chan tea.Msg, 64)
	go func() {
		defer close(ch)
		_, err := cs.SendMessage(ctx, chatID, apiKey, content, func(ev entities.StreamEvent) {
			ch <- streamEventMsg(ev)
		})
		chat, getErr := cs.GetChat(context.Background(), chatID)
		if getErr != nil && err == nil {
			err = getErr
		}
		ch <- runFinishedMsg{chat: chat, err: err}
	}()
	return ch
}

func waitForRun(ch chan tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}
