package ui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"html/template"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/drujensen/researchagent/internal/domain/entities"

	"github.com/dustin/go-humanize"
	"github.com/yuin/goldmark"
	gfmext "github.com/yuin/goldmark/extension"
)

const toolResultPreview = 600

var markdown = goldmark.New(goldmark.WithExtensions(gfmext.GFM))

// FuncMap is shared by every template the web UI renders.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"renderMarkdown":   renderMarkdown,
		"reasoning":        reasoning,
		"answer":           answer,
		"formatToolName":   formatToolName,
		"formatToolResult": formatToolResult,
		"formatNumber": func(num int) string {
			return humanize.Comma(int64(num))
		},
		"timeAgo": func(t time.Time) string {
			return humanize.Time(t)
		},
		"isUser": func(msg entities.Message) bool {
			return msg.Role == entities.RoleUser
		},
		"isAnswer": func(msg entities.Message) bool {
			return msg.Role == entities.RoleAssistant && len(msg.ToolCalls) == 0
		},
	}
}

func renderMarkdown(source string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

func reasoning(content string) string {
	r, _ := entities.SplitReasoning(content)
	return r
}

func answer(content string) string {
	_, a := entities.SplitReasoning(content)
	return a
}

// formatToolName renders "tool: query" for a tool step.
func formatToolName(toolName, arguments string) string {
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err == nil && args.Query != "" {
		return fmt.Sprintf("%s: %s", toolName, args.Query)
	}
	return toolName
}

// formatToolResult renders an escaped, shortened preview of a tool result.
func formatToolResult(result string) template.HTML {
	result = strings.TrimSpace(result)
	if utf8.RuneCountInString(result) > toolResultPreview {
		result = string([]rune(result)[:toolResultPreview]) + "..."
	}
	return template.HTML(fmt.Sprintf("<pre class=\"tool-result\">%s</pre>", html.EscapeString(result)))
}
