package services

import (
	"context"

	"github.com/drujensen/researchagent/internal/domain/entities"
	"github.com/drujensen/researchagent/internal/domain/errs"
	"github.com/drujensen/researchagent/internal/domain/interfaces"

	"go.uber.org/zap"
)

type AgentService interface {
	GetAgent() *entities.Agent
	// ResolveTools returns the agent's tools in the order the agent lists them.
	ResolveTools(ctx context.Context) ([]entities.Tool, error)
}

type agentService struct {
	agent    *entities.Agent
	toolRepo interfaces.ToolRepository
	logger   *zap.Logger
}

func NewAgentService(agent *entities.Agent, toolRepo interfaces.ToolRepository, logger *zap.Logger) *agentService {
	return &agentService{
		agent:    agent,
		toolRepo: toolRepo,
		logger:   logger,
	}
}

func (s *agentService) GetAgent() *entities.Agent {
	agent := *s.agent
	return &agent
}

func (s *agentService) ResolveTools(ctx context.Context) ([]entities.Tool, error) {
	tools := make([]entities.Tool, 0, len(s.agent.Tools))
	for _, name := range s.agent.Tools {
		tool, err := s.toolRepo.GetToolByName(name)
		if err != nil {
			s.logger.Error("Agent tool is not registered", zap.String("tool", name), zap.Error(err))
			return nil, errs.InternalErrorf("failed to get tool %s: %v", name, err)
		}
		tools = append(tools, tool)
	}
	return tools, nil
}
