package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMarkdown(t *testing.T) {
	out, err := renderMarkdown("| a | b |\n|---|---|\n| 1 | 2 |\n\n~~old~~ **new**")
	require.NoError(t, err)
	assert.Contains(t, string(out), "<table>")
	assert.Contains(t, string(out), "<del>old</del>")
	assert.Contains(t, string(out), "<strong>new</strong>")

	out, err = renderMarkdown("<script>alert(1)</script>")
	require.NoError(t, err)
	assert.NotContains(t, string(out), "<script>")
}

func TestReasoningAndAnswer(t *testing.T) {
	content := "<think>check wikipedia</think>\nParis."
	assert.Equal(t, "check wikipedia", reasoning(content))
	assert.Equal(t, "Paris.", answer(content))
	assert.Equal(t, "", reasoning("plain"))
}

func TestFormatToolName(t *testing.T) {
	assert.Equal(t, "arxiv: attention is all you need", formatToolName("arxiv", `{"query":"attention is all you need"}`))
	assert.Equal(t, "wikipedia", formatToolName("wikipedia", `not json`))
}

func TestFormatToolResult(t *testing.T) {
	out := string(formatToolResult("<b>Page</b>"))
	assert.Contains(t, out, "&lt;b&gt;Page&lt;/b&gt;")

	out = string(formatToolResult(strings.Repeat("x", toolResultPreview+50)))
	assert.Contains(t, out, "...")
	assert.Less(t, len(out), toolResultPreview+100)
}
