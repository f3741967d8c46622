package tools

import (
	"sort"
	"strconv"

	"github.com/drujensen/researchagent/internal/domain/entities"
	"github.com/drujensen/researchagent/internal/domain/errs"

	"go.uber.org/zap"
)

const (
	WikipediaToolName  = "wikipedia"
	ArxivToolName      = "arxiv"
	DuckDuckGoToolName = "duckDuckGoSearch"
)

type ToolFactoryEntry struct {
	Name          string
	Description   string
	ConfigKeys    []string
	DefaultConfig map[string]string
	Factory       func(name, description string, configuration map[string]string, logger *zap.Logger) entities.Tool
}

type ToolFactory struct {
	toolFactories map[string]*ToolFactoryEntry
}

func NewToolFactory() (*ToolFactory, error) {
	toolFactory := &ToolFactory{}
	toolFactory.toolFactories = make(map[string]*ToolFactoryEntry)

	toolFactory.toolFactories[WikipediaToolName] = &ToolFactoryEntry{
		Name:        WikipediaToolName,
		Description: `A wrapper around Wikipedia. Useful for when you need to answer general questions about people, places, companies, facts, historical events, or other subjects. Input should be a search query.`,
		ConfigKeys:  []string{"top_k_results", "doc_content_chars_max", "lang", "timeout", "base_url"},
		DefaultConfig: map[string]string{
			"top_k_results":         strconv.Itoa(defaultTopK),
			"doc_content_chars_max": strconv.Itoa(defaultDocContentCharsMax),
			"lang":                  "en",
		},
		Factory: func(name, description string, configuration map[string]string, logger *zap.Logger) entities.Tool {
			return NewWikipediaTool(name, description, configuration, logger)
		},
	}
	toolFactory.toolFactories[ArxivToolName] = &ToolFactoryEntry{
		Name:        ArxivToolName,
		Description: `A wrapper around Arxiv.org Useful for when you need to answer questions about Physics, Mathematics, Computer Science, Quantitative Biology, Quantitative Finance, Statistics, Electrical Engineering, and Economics from scientific articles on arxiv.org. Input should be a search query.`,
		ConfigKeys:  []string{"top_k_results", "doc_content_chars_max", "timeout", "base_url"},
		DefaultConfig: map[string]string{
			"top_k_results":         strconv.Itoa(defaultTopK),
			"doc_content_chars_max": strconv.Itoa(defaultDocContentCharsMax),
		},
		Factory: func(name, description string, configuration map[string]string, logger *zap.Logger) entities.Tool {
			return NewArxivTool(name, description, configuration, logger)
		},
	}
	toolFactory.toolFactories[DuckDuckGoToolName] = &ToolFactoryEntry{
		Name:        DuckDuckGoToolName,
		Description: `A wrapper around DuckDuckGo Search. Useful for when you need to answer questions about current events. Input should be a search query.`,
		ConfigKeys:  []string{"max_results", "timeout", "base_url", "user_agent"},
		DefaultConfig: map[string]string{
			"max_results": strconv.Itoa(defaultMaxResults),
		},
		Factory: func(name, description string, configuration map[string]string, logger *zap.Logger) entities.Tool {
			return NewDuckDuckGoSearchTool(name, description, configuration, logger)
		},
	}

	return toolFactory, nil
}

// ListFactories returns the entries sorted by name.
func (t *ToolFactory) ListFactories() ([]*ToolFactoryEntry, error) {
	var factories []*ToolFactoryEntry
	for _, factory := range t.toolFactories {
		factories = append(factories, factory)
	}
	sort.Slice(factories, func(i, j int) bool {
		return factories[i].Name < factories[j].Name
	})
	return factories, nil
}

func (t *ToolFactory) GetFactoryByName(name string) (*ToolFactoryEntry, error) {
	factory, exists := t.toolFactories[name]
	if !exists {
		return nil, errs.NotFoundErrorf("Tool factory with name '%s' not found", name)
	}
	return factory, nil
}

// Build creates the named tool with its default configuration merged with
// overrides. Empty override values keep the default.
func (t *ToolFactory) Build(name string, overrides map[string]string, logger *zap.Logger) (entities.Tool, error) {
	entry, err := t.GetFactoryByName(name)
	if err != nil {
		return nil, err
	}

	configuration := make(map[string]string, len(entry.DefaultConfig)+len(overrides))
	for key, value := range entry.DefaultConfig {
		configuration[key] = value
	}
	for key, value := range overrides {
		if value != "" {
			configuration[key] = value
		}
	}

	return entry.Factory(entry.Name, entry.Description, configuration, logger.Named(entry.Name)), nil
}
