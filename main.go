package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/drujensen/researchagent/internal/api/docs"
	"github.com/drujensen/researchagent/internal/cli"
	"github.com/drujensen/researchagent/internal/domain/interfaces"
	"github.com/drujensen/researchagent/internal/domain/services"
	"github.com/drujensen/researchagent/internal/impl/config"
	"github.com/drujensen/researchagent/internal/impl/database"
	"github.com/drujensen/researchagent/internal/impl/integrations"
	"github.com/drujensen/researchagent/internal/impl/repositories"
	repositoriesJson "github.com/drujensen/researchagent/internal/impl/repositories/json"
	repositoriesMemory "github.com/drujensen/researchagent/internal/impl/repositories/memory"
	repositoriesMongo "github.com/drujensen/researchagent/internal/impl/repositories/mongo"
	"github.com/drujensen/researchagent/internal/impl/telemetry"
	"github.com/drujensen/researchagent/internal/impl/tools"
	"github.com/drujensen/researchagent/internal/tui"
	"github.com/drujensen/researchagent/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	version = "unknown" // This should be set during build with -ldflags="-X main.version=1.0.0"
)

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Println(version)
		os.Exit(0)
	}

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: researchagent [serve|tui|console|init] [--storage=memory|file|mongo] [--addr=:8080]\n")
		flag.PrintDefaults()
	}

	storage := flag.String("storage", "", "Storage type: memory, file or mongo (default from STORAGE or memory)")
	addr := flag.String("addr", "", "Listen address for serve mode (default from ADDR or :8080)")
	showVersion := flag.Bool("version", false, "Print the version and exit")

	modeStr := "serve"
	if len(os.Args) > 1 && slices.Contains([]string{"serve", "tui", "console", "init"}, os.Args[1]) {
		modeStr = os.Args[1]
		os.Args = slices.Delete(os.Args, 1, 2)
	}

	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	logConfig := zap.NewDevelopmentConfig()
	logConfig.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if modeStr != "serve" {
		// Keep the terminal clean for the interactive modes.
		logConfig.OutputPaths = []string{os.DevNull}
	}
	logger, err := logConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if modeStr == "init" {
		path := config.ConfigFilePath()
		if err := config.WriteTemplate(path, logger); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", path)
		return
	}

	cfg, err := config.InitConfig(logger)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	if level, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		logConfig.Level.SetLevel(level)
	} else {
		logger.Warn("Invalid log level, keeping warn", zap.String("log_level", cfg.LogLevel))
	}

	if *storage != "" {
		cfg.Storage = *storage
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	// In console mode Ctrl+C only stops the running answer.
	signals := []os.Signal{os.Interrupt, syscall.SIGTERM}
	if modeStr == "console" {
		signals = []os.Signal{syscall.SIGTERM}
	}
	ctx, stop := signal.NotifyContext(context.Background(), signals...)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, cfg.OTelExporter, cfg.OTelEndpoint, version, logger)
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}()

	toolFactory, err := tools.NewToolFactory()
	if err != nil {
		logger.Fatal("Failed to initialize tool factory", zap.Error(err))
	}
	toolRepo, err := repositories.NewToolRepositoryFromFactory(toolFactory, cfg.ToolConfiguration(), logger)
	if err != nil {
		logger.Fatal("Failed to initialize tool repository", zap.Error(err))
	}

	var chatRepo interfaces.ChatRepository
	switch cfg.Storage {
	case config.StorageMongo:
		db, err := database.NewMongoDB(cfg.MongoURI, cfg.MongoDatabase, logger)
		if err != nil {
			logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		defer db.Disconnect(context.Background())

		if err := db.EnsureIndexes(ctx); err != nil {
			logger.Warn("Failed to create MongoDB indexes", zap.Error(err))
		}
		chatRepo = repositoriesMongo.NewMongoChatRepository(db.Collection(database.ChatsCollection))
	case config.StorageFile:
		chatRepo, err = repositoriesJson.NewJSONChatRepository(cfg.DataDir)
		if err != nil {
			logger.Fatal("Failed to initialize chat repository", zap.Error(err))
		}
	default:
		chatRepo = repositoriesMemory.NewMemoryChatRepository()
	}
	logger.Info("Chat storage ready", zap.String("storage", cfg.Storage))

	agent := cfg.Agent([]string{tools.ArxivToolName, tools.WikipediaToolName, tools.DuckDuckGoToolName})

	sessionService := services.NewSessionService(repositoriesMemory.NewMemorySessionRepository(), logger)
	agentService := services.NewAgentService(agent, toolRepo, logger)
	toolService := services.NewToolService(toolRepo)
	defer toolService.Close()
	chatService := services.NewChatService(chatRepo, agentService, integrations.NewAIModelFactory(logger), cfg.MaxHistoryTokens, logger)

	switch modeStr {
	case "console":
		console := cli.NewCLI(sessionService, chatService, agentService, toolService, cfg.APIKey, os.Stdin, os.Stdout, logger)
		if err := console.Run(ctx); err != nil {
			logger.Fatal("Console failed", zap.Error(err))
		}
		return
	case "tui":
		p := tea.NewProgram(
			tui.NewTUI(sessionService, chatService, agentService, toolService, cfg.APIKey),
			tea.WithAltScreen(),
			tea.WithMouseCellMotion(),
			tea.WithContext(ctx),
		)
		if _, err := p.Run(); err != nil && ctx.Err() == nil {
			logger.Fatal("TUI failed", zap.Error(err))
		}
		return
	}

	docs.Version = version
	uiApp := ui.NewUI(sessionService, chatService, agentService, toolService, cfg.APIKey, logger)
	if err := uiApp.Run(ctx, cfg.Addr); err != nil {
		logger.Fatal("UI failed", zap.Error(err))
	}
}
