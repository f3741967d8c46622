package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/drujensen/researchagent/internal/domain/entities"
	"github.com/drujensen/researchagent/internal/domain/services"
	"github.com/dustin/go-humanize"
)

// toolItem adapts a tool to the bubbles list.
type toolItem struct {
	name        string
	description string
	settings    string
	calls       int
}

func newToolItem(tool entities.Tool, stats entities.ToolStats) toolItem {
	config := tool.Configuration()
	keys := make([]string, 0, len(config))
	for k := range config {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+config[k])
	}
	return toolItem{name: tool.Name(), description: tool.Description(), settings: strings.Join(pairs, " "), calls: stats.Calls}
}

func (t toolItem) Title() string {
	if t.calls == 0 {
		return t.name
	}
	return fmt.Sprintf("%s · %s calls", t.name, humanize.Comma(int64(t.calls)))
}

func (t toolItem) Description() string {
	if t.settings == "" {
		return t.description
	}
	return t.description + " (" + t.settings + ")"
}

func (t toolItem) FilterValue() string { return t.name }

type ToolView struct {
	toolService services.ToolService
	list        list.Model
	width       int
	height      int
	err         error
}

func NewToolView(toolService services.ToolService) ToolView {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(lipgloss.Color("6")).Bold(true)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(lipgloss.Color("7"))
	delegate.SetHeight(2)

	l := list.New([]list.Item{}, delegate, 100, 10)
	l.Title = "Available Tools"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)

	return ToolView{
		toolService: toolService,
		list:        l,
	}
}

func (v ToolView) Init() tea.Cmd {
	return v.fetchToolsCmd()
}

func (v ToolView) Update(msg tea.Msg) (ToolView, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = m.Width
		v.height = m.Height
		v.list.SetSize(m.Width-6, m.Height-6)
		return v, nil

	case tea.KeyMsg:
		if m.String() == "esc" && v.list.FilterState() != list.Filtering {
			return v, func() tea.Msg { return toolsCancelledMsg{} }
		}

	case toolsFetchedMsg:
		items := make([]list.Item, len(m.tools))
		for i, tool := range m.tools {
			items[i] = newToolItem(tool, m.stats[tool.Name()])
		}
		if len(items) == 0 {
			items = append(items, toolItem{name: "No tools available"})
		}
		v.list.SetItems(items)
		v.err = nil
		return v, nil

	case errMsg:
		v.err = m
		return v, nil
	}

	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return v, cmd
}

func (v ToolView) View() string {
	if v.width == 0 || v.height == 0 {
		return ""
	}

	outerStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.ThickBorder()).
		BorderForeground(lipgloss.Color("4")).
		Width(v.width - 2).
		Height(v.height - 2)

	innerBorder := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("6")).
		Width(v.list.Width()).
		Height(v.list.Height())

	var sb strings.Builder
	instructions := "Use arrows or j/k to navigate, / to filter, Esc to return to chat"
	sb.WriteString(innerBorder.Render(v.list.View()) + "\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Render(instructions))

	if v.err != nil {
		sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Render("\nError: "+v.err.Error()) + "\n")
	}

	return outerStyle.Render(sb.String())
}

func (v ToolView) fetchToolsCmd() tea.Cmd {
	toolService := v.toolService
	return func() tea.Msg {
		tools, err := toolService.ListTools(context.Background())
		if err != nil {
			return errMsg(err)
		}
		return toolsFetchedMsg{tools: tools, stats: toolService.ToolStats(context.Background())}
	}
}
