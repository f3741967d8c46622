package apicontrollers

import (
	"net/http"

	"github.com/drujensen/researchagent/internal/domain/entities"
	"github.com/drujensen/researchagent/internal/domain/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type ToolController struct {
	logger      *zap.Logger
	toolService services.ToolService
}

func NewToolController(logger *zap.Logger, toolService services.ToolService) *ToolController {
	return &ToolController{
		logger:      logger,
		toolService: toolService,
	}
}

func (c *ToolController) RegisterRoutes(e *echo.Group) {
	e.GET("/tools", c.ListTools)
	e.GET("/tools/:name", c.GetTool)
}

type toolResponse struct {
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	Parameters    map[string]any    `json:"parameters"`
	Configuration map[string]string `json:"configuration,omitempty"`
	Calls         int               `json:"calls"`
	Failures      int               `json:"failures"`
}

// ListTools godoc
// @Summary List tools
// @Tags tools
// @Produce json
// @Security BearerAuth
// @Success 200 {array} toolResponse "Tools available to the agent"
// @Router /api/tools [get]
func (c *ToolController) ListTools(ctx echo.Context) error {
	tools, err := c.toolService.ListTools(ctx.Request().Context())
	if err != nil {
		c.logger.Error("Failed to list tools", zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]interface{}{"error": "failed to list tools"})
	}

	stats := c.toolService.ToolStats(ctx.Request().Context())
	response := make([]toolResponse, 0, len(tools))
	for _, tool := range tools {
		response = append(response, newToolResponse(tool, stats[tool.Name()]))
	}
	return ctx.JSON(http.StatusOK, response)
}

// GetTool godoc
// @Summary Get a tool by name
// @Tags tools
// @Produce json
// @Security BearerAuth
// @Param name path string true "Tool name"
// @Success 200 {object} toolResponse "Tool"
// @Failure 404 {object} map[string]interface{} "Tool not found"
// @Router /api/tools/{name} [get]
func (c *ToolController) GetTool(ctx echo.Context) error {
	tool, err := c.toolService.GetTool(ctx.Request().Context(), ctx.Param("name"))
	if err != nil {
		return ctx.JSON(statusFor(err), map[string]string{"error": err.Error()})
	}
	stats := c.toolService.ToolStats(ctx.Request().Context())
	return ctx.JSON(http.StatusOK, newToolResponse(tool, stats[tool.Name()]))
}

func newToolResponse(tool entities.Tool, stats entities.ToolStats) toolResponse {
	return toolResponse{
		Name:          tool.Name(),
		Description:   tool.Description(),
		Parameters:    entities.Schema(tool),
		Configuration: tool.Configuration(),
		Calls:         stats.Calls,
		Failures:      stats.Failures,
	}
}
