package ui

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	apicontrollers "github.com/drujensen/researchagent/internal/api/controllers"
	_ "github.com/drujensen/researchagent/internal/api/docs"
	"github.com/drujensen/researchagent/internal/domain/services"
	uicontrollers "github.com/drujensen/researchagent/internal/ui/controllers"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"
)

//go:embed static/* templates/*
var embeddedFiles embed.FS

type UI struct {
	sessionService services.SessionService
	chatService    services.ChatService
	agentService   services.AgentService
	toolService    services.ToolService
	defaultAPIKey  string
	logger         *zap.Logger
}

func NewUI(sessionService services.SessionService, chatService services.ChatService, agentService services.AgentService, toolService services.ToolService, defaultAPIKey string, logger *zap.Logger) *UI {
	return &UI{
		sessionService: sessionService,
		chatService:    chatService,
		agentService:   agentService,
		toolService:    toolService,
		defaultAPIKey:  defaultAPIKey,
		logger:         logger,
	}
}

// ParseTemplates loads the embedded page templates with the UI helpers.
func ParseTemplates() (*template.Template, error) {
	return template.New("").Funcs(FuncMap()).ParseFS(embeddedFiles, "templates/*.html")
}

// Router builds the echo instance serving the web UI and the JSON API.
func (u *UI) Router() (*echo.Echo, error) {
	tmpl, err := ParseTemplates()
	if err != nil {
		return nil, err
	}

	sessions := uicontrollers.NewSessionController(u.logger, tmpl, u.sessionService, u.defaultAPIKey)
	homeController := uicontrollers.NewHomeController(u.logger, tmpl, u.chatService, u.sessionService, sessions)
	chatController := uicontrollers.NewChatController(u.logger, tmpl, u.chatService, u.sessionService, u.agentService)

	apiChatController := apicontrollers.NewChatController(u.logger, u.chatService)
	apiToolController := apicontrollers.NewToolController(u.logger, u.toolService)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("logger", u.logger)
			return next(c)
		}
	})

	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set("Content-Language", "en")
			return next(c)
		}
	})

	// serve static files from embedded
	e.GET("/static/*", func(c echo.Context) error {
		path := c.Param("*")
		filePath := "static/" + path
		file, err := embeddedFiles.Open(filePath)
		if err != nil {
			u.logger.Warn("Failed to open static file", zap.String("path", filePath), zap.Error(err))
			return echo.NewHTTPError(http.StatusNotFound, "File not found")
		}
		defer file.Close()

		mimeType := mime.TypeByExtension(filepath.Ext(path))
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}

		content, err := io.ReadAll(file)
		if err != nil {
			u.logger.Error("Failed to read static file", zap.String("path", filePath), zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to read file")
		}

		return c.Blob(http.StatusOK, mimeType, content)
	})

	// API documentation
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	homeController.RegisterRoutes(e)
	sessions.RegisterRoutes(e)
	chatController.RegisterRoutes(e, sessions.RequireSession)

	api := e.Group("/api", apicontrollers.BearerAuth(u.sessionService, u.logger))
	apiChatController.RegisterRoutes(api)
	apiToolController.RegisterRoutes(api)

	return e, nil
}

// Run serves on addr until ctx is canceled.
func (u *UI) Run(ctx context.Context, addr string) error {
	e, err := u.Router()
	if err != nil {
		u.logger.Error("Failed to parse templates", zap.Error(err))
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		u.logger.Info("Starting HTTP server", zap.String("addr", addr))
		errCh <- e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	u.logger.Info("Shutting down HTTP server")
	return e.Shutdown(shutdownCtx)
}
