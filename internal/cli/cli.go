package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/drujensen/researchagent/internal/domain/entities"
	"github.com/drujensen/researchagent/internal/domain/errs"
	"github.com/drujensen/researchagent/internal/domain/services"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

var (
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFBD45"))
)

// CLI is a line oriented console: one prompt, answers printed as they
// complete. Ctrl+C stops the running answer.
type CLI struct {
	sessionService services.SessionService
	chatService    services.ChatService
	agentService   services.AgentService
	toolService    services.ToolService
	defaultAPIKey  string
	in             *bufio.Scanner
	out            io.Writer
	logger         *zap.Logger

	session *entities.Session
	chat    *entities.Chat
}

func NewCLI(sessionService services.SessionService, chatService services.ChatService, agentService services.AgentService, toolService services.ToolService, defaultAPIKey string, in io.Reader, out io.Writer, logger *zap.Logger) *CLI {
	return &CLI{
		sessionService: sessionService,
		chatService:    chatService,
		agentService:   agentService,
		toolService:    toolService,
		defaultAPIKey:  defaultAPIKey,
		in:             bufio.NewScanner(in),
		out:            out,
		logger:         logger,
	}
}

// Run opens a session, resumes the latest chat and reads commands until
// EOF or /exit.
func (c *CLI) Run(ctx context.Context) error {
	fmt.Fprintln(c.out, "🤖 LangChain Agent Chatbot with Tools. Type '?' for help.")

	if err := c.openSession(ctx); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	defer c.sessionService.DeleteSession(context.WithoutCancel(ctx), c.session.ID)

	c.displayChat()

	for {
		userInput, err := c.readLine(">: ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return nil
		}

		switch {
		case userInput == "":
			continue
		case userInput == "?":
			c.printHelp()
		case userInput == "/history":
			if err := c.historyCommand(ctx); err != nil {
				c.logger.Error("Failed to select chat", zap.Error(err))
				fmt.Fprintln(c.out, "Error selecting chat:", err)
			}
		case strings.HasPrefix(userInput, "/new"):
			if err := c.newChatCommand(ctx, userInput); err != nil {
				c.logger.Error("Failed to create new chat", zap.Error(err))
				fmt.Fprintln(c.out, "Error creating new chat:", err)
			}
		case userInput == "/tools":
			c.toolsCommand(ctx)
		case userInput == "/usage":
			c.usageCommand(ctx)
		case userInput == "exit" || userInput == "quit" || userInput == "/exit" || userInput == "/quit":
			fmt.Fprintln(c.out, "Shutting down...")
			c.usageCommand(ctx)
			return nil
		default:
			c.sendMessage(ctx, userInput)
		}
	}
}

func (c *CLI) openSession(ctx context.Context) error {
	apiKey := c.defaultAPIKey
	for {
		if apiKey == "" {
			line, err := c.readLine("🔑 Enter your Groq API Key: ")
			if err != nil {
				return err
			}
			apiKey = line
		}

		session, err := c.sessionService.CreateSession(ctx, apiKey)
		if errs.IsValidation(err) {
			fmt.Fprintln(c.out, warnStyle.Render("⚠️ "+err.Error()))
			apiKey = ""
			continue
		}
		if err != nil {
			return err
		}
		c.session = session
		break
	}

	chats, err := c.chatService.ListChats(ctx, c.session.ID)
	if err != nil {
		return err
	}
	if len(chats) > 0 {
		return c.activate(ctx, chats[0])
	}
	chat, err := c.chatService.CreateChat(ctx, c.session.ID, "")
	if err != nil {
		return err
	}
	return c.activate(ctx, chat)
}

func (c *CLI) activate(ctx context.Context, chat *entities.Chat) error {
	if err := c.sessionService.SetActiveChat(ctx, c.session.ID, chat.ID); err != nil {
		return err
	}
	c.chat = chat
	return nil
}

func (c *CLI) readLine(prompt string) (string, error) {
	fmt.Fprint(c.out, prompt)
	if !c.in.Scan() {
		if err := c.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(c.in.Text()), nil
}

func (c *CLI) printHelp() {
	fmt.Fprintln(c.out, "Available commands:")
	fmt.Fprintln(c.out, "? - Show this help message")
	fmt.Fprintln(c.out, "/new <name> - Start a new chat")
	fmt.Fprintln(c.out, "/history - Select from all available chats")
	fmt.Fprintln(c.out, "/tools - List available tools")
	fmt.Fprintln(c.out, "/usage - Show usage information")
	fmt.Fprintln(c.out, "/exit - Exit the application")
}

func (c *CLI) newChatCommand(ctx context.Context, userInput string) error {
	chatName, _ := strings.CutPrefix(userInput, "/new")
	chat, err := c.chatService.CreateChat(ctx, c.session.ID, strings.TrimSpace(chatName))
	if err != nil {
		return err
	}
	if err := c.activate(ctx, chat); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Started", chat.Name)
	return nil
}

func (c *CLI) historyCommand(ctx context.Context) error {
	chats, err := c.chatService.ListChats(ctx, c.session.ID)
	if err != nil {
		return err
	}
	for i, chat := range chats {
		fmt.Fprintf(c.out, "%d) %s %s\n", i+1, chat.Name, dimStyle.Render(humanize.Time(chat.UpdatedAt)))
	}

	choice, err := c.readLine("Select a chat: ")
	if err != nil {
		return err
	}
	i, err := strconv.Atoi(choice)
	if err != nil || i < 1 || i > len(chats) {
		return errs.ValidationErrorf("invalid selection %q", choice)
	}

	chat, err := c.chatService.GetSessionChat(ctx, c.session.ID, chats[i-1].ID)
	if err != nil {
		return err
	}
	if err := c.activate(ctx, chat); err != nil {
		return err
	}
	c.displayChat()
	return nil
}

func (c *CLI) toolsCommand(ctx context.Context) {
	tools, err := c.toolService.ListTools(ctx)
	if err != nil {
		c.logger.Error("Failed to list tools", zap.Error(err))
		fmt.Fprintln(c.out, "Error listing tools:", err)
		return
	}
	stats := c.toolService.ToolStats(ctx)
	fmt.Fprintln(c.out, "Available tools:")
	for _, tool := range tools {
		st := stats[tool.Name()]
		if st.Calls == 0 {
			fmt.Fprintf(c.out, "- %s\n", tool.Name())
			continue
		}
		fmt.Fprintf(c.out, "- %s (%s calls, %s failed)\n", tool.Name(), humanize.Comma(int64(st.Calls)), humanize.Comma(int64(st.Failures)))
	}
}

func (c *CLI) usageCommand(ctx context.Context) {
	chat, err := c.chatService.GetChat(ctx, c.chat.ID)
	if err != nil {
		c.logger.Error("Failed to get chat", zap.Error(err))
		fmt.Fprintln(c.out, "Error getting chat:", err)
		return
	}
	usage := chat.Usage
	if usage == nil {
		usage = &entities.ChatUsage{}
	}
	fmt.Fprintf(c.out, "Chat Usage:\n- Model: %s\n- Prompt Tokens: %s\n- Completion Tokens: %s\n- Total Tokens: %s\n",
		c.agentService.GetAgent().Model,
		humanize.Comma(int64(usage.TotalPromptTokens)),
		humanize.Comma(int64(usage.TotalCompletionTokens)),
		humanize.Comma(int64(usage.TotalTokens)))
}

func (c *CLI) sendMessage(ctx context.Context, content string) {
	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	fmt.Fprintln(c.out, dimStyle.Render("Thinking..."))
	response, err := c.chatService.SendMessage(runCtx, c.chat.ID, c.session.APIKey, content, func(ev entities.StreamEvent) {
		switch ev.Type {
		case entities.StreamToolStart:
			fmt.Fprintln(c.out, dimStyle.Render(fmt.Sprintf("  🔧 %s %s", ev.ToolName, ev.Arguments)))
		case entities.StreamToolError:
			fmt.Fprintln(c.out, dimStyle.Render(fmt.Sprintf("  ✗ %s: %s", ev.ToolName, ev.Error)))
		case entities.StreamError:
			fmt.Fprintln(c.out, warnStyle.Render(ev.Error))
		}
	})

	if errs.IsCanceled(err) {
		fmt.Fprintln(c.out, warnStyle.Render("Stopped."))
	} else if err != nil {
		c.logger.Error("Failed to generate response", zap.Error(err))
		fmt.Fprintln(c.out, "Error generating response:", err)
	}
	if response != nil {
		c.displayMessage(*response)
	}
}

func (c *CLI) displayChat() {
	fmt.Fprintln(c.out, c.chat.Name)
	for _, msg := range c.chat.History() {
		c.displayMessage(msg)
	}
}

// displayMessage prints a message with role prefix. Reasoning is left out.
func (c *CLI) displayMessage(msg entities.Message) {
	switch msg.Role {
	case entities.RoleAssistant:
		_, answer := entities.SplitReasoning(msg.Content)
		fmt.Fprintf(c.out, "%s\n%s\n", assistantStyle.Render("Assistant:"), answer)
	case entities.RoleUser:
		fmt.Fprintf(c.out, "%s %s\n", userStyle.Render("User:"), msg.Content)
	}
}
