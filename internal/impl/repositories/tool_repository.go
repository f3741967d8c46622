package repositories

import (
	"context"
	"sort"
	"sync"

	"github.com/drujensen/researchagent/internal/domain/entities"
	"github.com/drujensen/researchagent/internal/domain/errs"
	"github.com/drujensen/researchagent/internal/domain/interfaces"
	"github.com/drujensen/researchagent/internal/impl/tools"

	"go.uber.org/zap"
)

type ToolRepository struct {
	mu            sync.RWMutex
	toolInstances map[string]entities.Tool
}

func NewToolRepository() (*ToolRepository, error) {
	toolRepository := &ToolRepository{}
	toolRepository.toolInstances = make(map[string]entities.Tool)

	return toolRepository, nil
}

// NewToolRepositoryFromFactory registers every factory tool, applying the
// per-tool configuration overrides.
func NewToolRepositoryFromFactory(factory *tools.ToolFactory, overrides map[string]map[string]string, logger *zap.Logger) (*ToolRepository, error) {
	repo, err := NewToolRepository()
	if err != nil {
		return nil, err
	}

	entries, err := factory.ListFactories()
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		tool, err := factory.Build(entry.Name, overrides[entry.Name], logger)
		if err != nil {
			return nil, err
		}
		if err := repo.RegisterTool(tool); err != nil {
			return nil, err
		}
		logger.Debug("Registered tool", zap.String("tool", tool.Name()))
	}

	return repo, nil
}

func (t *ToolRepository) ListTools(ctx context.Context) ([]entities.Tool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var toolList []entities.Tool
	for _, tool := range t.toolInstances {
		toolList = append(toolList, tool)
	}
	sort.Slice(toolList, func(i, j int) bool {
		return toolList[i].Name() < toolList[j].Name()
	})
	return toolList, nil
}

func (t *ToolRepository) GetToolByName(name string) (entities.Tool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	tool, exists := t.toolInstances[name]
	if !exists {
		return nil, errs.NotFoundErrorf("tool not found: %s", name)
	}
	return tool, nil
}

func (t *ToolRepository) RegisterTool(tool entities.Tool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.toolInstances[tool.Name()]; exists {
		return errs.ValidationErrorf("tool with the same name already exists: %s", tool.Name())
	}
	t.toolInstances[tool.Name()] = tool
	return nil
}

var _ interfaces.ToolRepository = (*ToolRepository)(nil)
