package services

import (
	"context"
	"testing"
	"time"

	"github.com/drujensen/researchagent/internal/domain/entities"
	"github.com/drujensen/researchagent/internal/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolService_CountsToolCallEvents(t *testing.T) {
	service := NewToolService(new(mockToolRepository))
	defer service.Close()

	ok := entities.NewToolCallEvent("call_1", "stats-wikipedia", `{"query":"Paris"}`, "Page: Paris", "", nil)
	ok.Duration = 200 * time.Millisecond
	failed := entities.NewToolCallEvent("call_2", "stats-wikipedia", `{"query":"Paris"}`, "", "timeout", nil)
	failed.Duration = 300 * time.Millisecond

	events.PublishToolCallEvent("chat-1", ok)
	events.PublishToolCallEvent("chat-1", failed)

	require.Eventually(t, func() bool {
		return service.ToolStats(context.Background())["stats-wikipedia"].Calls == 2
	}, 2*time.Second, 10*time.Millisecond)

	stats := service.ToolStats(context.Background())["stats-wikipedia"]
	assert.Equal(t, 1, stats.Failures)
	assert.Equal(t, 500*time.Millisecond, stats.TotalDuration)
	assert.False(t, stats.LastUsed.IsZero())
}

func TestToolService_StatsAreCopied(t *testing.T) {
	service := NewToolService(new(mockToolRepository))
	defer service.Close()

	service.record(events.ToolCallEventData{ChatID: "chat-1", Event: entities.NewToolCallEvent("call_1", "stats-arxiv", "{}", "ok", "", nil)})
	service.record(events.ToolCallEventData{ChatID: "chat-1"})

	stats := service.ToolStats(context.Background())
	st := stats["stats-arxiv"]
	st.Calls = 99
	stats["stats-arxiv"] = st

	assert.Equal(t, 1, service.ToolStats(context.Background())["stats-arxiv"].Calls)
}
