package services

import (
	"context"
	"sync"

	"github.com/drujensen/researchagent/internal/domain/entities"
	"github.com/drujensen/researchagent/internal/domain/events"
	"github.com/drujensen/researchagent/internal/domain/interfaces"
)

type ToolService interface {
	ListTools(ctx context.Context) ([]entities.Tool, error)
	GetTool(ctx context.Context, name string) (entities.Tool, error)
	// ToolStats returns the runs of each tool seen since startup.
	ToolStats(ctx context.Context) map[string]entities.ToolStats
}

type toolService struct {
	toolRepo    interfaces.ToolRepository
	mu          sync.RWMutex
	stats       map[string]entities.ToolStats
	unsubscribe func()
}

// NewToolService counts tool runs from the tool call events on the bus until
// Close is called.
func NewToolService(toolRepo interfaces.ToolRepository) *toolService {
	s := &toolService{
		toolRepo: toolRepo,
		stats:    make(map[string]entities.ToolStats),
	}
	s.unsubscribe = events.SubscribeToToolCallEvents(s.record)
	return s
}

func (s *toolService) ListTools(ctx context.Context) ([]entities.Tool, error) {
	return s.toolRepo.ListTools(ctx)
}

func (s *toolService) GetTool(ctx context.Context, name string) (entities.Tool, error) {
	return s.toolRepo.GetToolByName(name)
}

func (s *toolService) ToolStats(ctx context.Context) map[string]entities.ToolStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := make(map[string]entities.ToolStats, len(s.stats))
	for name, st := range s.stats {
		stats[name] = st
	}
	return stats
}

func (s *toolService) Close() {
	s.unsubscribe()
}

func (s *toolService) record(data events.ToolCallEventData) {
	if data.Event == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats[data.Event.ToolName]
	st.Record(data.Event)
	s.stats[data.Event.ToolName] = st
}
