package tools

import (
	"testing"

	"github.com/drujensen/researchagent/internal/domain/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestToolFactory_ListFactories(t *testing.T) {
	factory, err := NewToolFactory()
	require.NoError(t, err)

	entries, err := factory.ListFactories()
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name)
	}
	assert.Equal(t, []string{"arxiv", "duckDuckGoSearch", "wikipedia"}, names)
}

func TestToolFactory_BuildMergesOverrides(t *testing.T) {
	factory, err := NewToolFactory()
	require.NoError(t, err)

	tool, err := factory.Build(WikipediaToolName, map[string]string{
		"top_k_results": "3",
		"lang":          "",
	}, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "wikipedia", tool.Name())
	assert.Equal(t, "3", tool.Configuration()["top_k_results"])
	assert.Equal(t, "en", tool.Configuration()["lang"])
	assert.Equal(t, "250", tool.Configuration()["doc_content_chars_max"])
}

func TestToolFactory_UnknownTool(t *testing.T) {
	factory, err := NewToolFactory()
	require.NoError(t, err)

	_, err = factory.Build("calculator", nil, zap.NewNop())
	assert.True(t, errs.IsNotFound(err))
}

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"object", `{"query": " quantum computing "}`, "quantum computing", false},
		{"positional arg", `{"__arg1": "black holes"}`, "black holes", false},
		{"json string", `"mars rover"`, "mars rover", false},
		{"bare text", `mars rover`, "mars rover", false},
		{"empty object", `{}`, "", true},
		{"empty", ``, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseQuery(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héll", truncate("héllo", 4))
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "unbounded", truncate("unbounded", 0))
}
