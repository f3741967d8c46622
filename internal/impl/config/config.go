package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/drujensen/researchagent/internal/domain/entities"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageMongo  = "mongo"
)

type Config struct {
	APIKey        string
	Provider      entities.ProviderType
	BaseURL       string
	Model         string
	SystemPrompt  string
	Temperature   float64
	MaxTokens     int
	MaxIterations int

	MaxHistoryTokens   int
	WikipediaTopK      int
	WikipediaLang      string
	ArxivTopK          int
	DocContentCharsMax int
	DDGMaxResults      int
	ToolTimeout        time.Duration

	Addr          string
	Storage       string
	MongoURI      string
	MongoDatabase string
	DataDir       string

	LogLevel     string
	OTelExporter string
	OTelEndpoint string

	logger *zap.Logger
}

var (
	configInstance *Config
	once           sync.Once
)

// Default returns the configuration used when nothing is set.
func Default() *Config {
	dataDir, err := os.Getwd()
	if err != nil {
		dataDir = "."
	}
	return &Config{
		Provider:           entities.ProviderGroq,
		BaseURL:            entities.ProviderGroq.DefaultBaseURL(),
		Model:              entities.DefaultModel,
		SystemPrompt:       entities.DefaultSystemPrompt,
		Temperature:        0.7,
		MaxIterations:      entities.DefaultMaxIterations,
		MaxHistoryTokens:   6000,
		WikipediaTopK:      1,
		WikipediaLang:      "en",
		ArxivTopK:          1,
		DocContentCharsMax: 250,
		DDGMaxResults:      5,
		ToolTimeout:        20 * time.Second,
		Addr:               ":8080",
		Storage:            StorageMemory,
		MongoDatabase:      "researchagent",
		DataDir:            dataDir,
		LogLevel:           "warn",
		OTelExporter:       "none",
		logger:             zap.NewNop(),
	}
}

// InitConfig loads the process wide configuration once.
func InitConfig(logger *zap.Logger) (*Config, error) {
	var initErr error

	once.Do(func() {
		if err := godotenv.Load(); err != nil {
			if os.IsNotExist(err) {
				logger.Debug("No .env file found; falling back to system environment variables")
			} else {
				initErr = fmt.Errorf("failed to load .env file: %w", err)
				logger.Error("Config file load error", zap.Error(err))
				return
			}
		} else {
			logger.Debug("Successfully loaded .env file")
		}

		cfg, err := Load(ConfigFilePath(), logger)
		if err != nil {
			initErr = err
			return
		}
		configInstance = cfg
	})

	if initErr != nil {
		return nil, initErr
	}
	if configInstance == nil {
		return nil, fmt.Errorf("configuration initialization failed unexpectedly")
	}

	return configInstance, nil
}

// Load builds a Config from defaults, then the YAML file at path (if it
// exists), then environment variables.
func Load(path string, logger *zap.Logger) (*Config, error) {
	cfg := Default()
	cfg.logger = logger

	if path != "" {
		file, err := LoadFile(path, logger)
		if err != nil {
			return nil, err
		}
		if err := file.apply(cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = cfg.Provider.DefaultBaseURL()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.APIKey != "" {
		logger.Debug("Default API key configured", zap.String("api_key", entities.MaskKey(cfg.APIKey)))
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.APIKey, "GROQ_API_KEY")
	if v := os.Getenv("PROVIDER"); v != "" {
		c.Provider = entities.ProviderType(strings.ToLower(v))
		c.BaseURL = c.Provider.DefaultBaseURL()
	}
	setString(&c.BaseURL, "GROQ_BASE_URL")
	setString(&c.Model, "MODEL")
	setString(&c.SystemPrompt, "SYSTEM_PROMPT")
	setString(&c.WikipediaLang, "WIKIPEDIA_LANG")
	setString(&c.Addr, "ADDR")
	setString(&c.Storage, "STORAGE")
	setString(&c.MongoURI, "MONGO_URI")
	setString(&c.MongoDatabase, "MONGO_DATABASE")
	setString(&c.DataDir, "DATA_DIR")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.OTelExporter, "OTEL_EXPORTER")
	setString(&c.OTelEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")

	ints := []struct {
		key    string
		target *int
	}{
		{"MAX_TOKENS", &c.MaxTokens},
		{"MAX_ITERATIONS", &c.MaxIterations},
		{"MAX_HISTORY_TOKENS", &c.MaxHistoryTokens},
		{"WIKIPEDIA_TOP_K", &c.WikipediaTopK},
		{"ARXIV_TOP_K", &c.ArxivTopK},
		{"DOC_CONTENT_CHARS_MAX", &c.DocContentCharsMax},
		{"DDG_MAX_RESULTS", &c.DDGMaxResults},
	}
	for _, entry := range ints {
		if err := setInt(entry.target, entry.key); err != nil {
			return err
		}
	}

	if v := os.Getenv("TEMPERATURE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid TEMPERATURE %q: %w", v, err)
		}
		c.Temperature = f
	}
	if v := os.Getenv("TOOL_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid TOOL_TIMEOUT %q: %w", v, err)
		}
		c.ToolTimeout = d
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Storage {
	case StorageMemory, StorageFile, StorageMongo:
	default:
		return fmt.Errorf("invalid storage type: %s", c.Storage)
	}
	if c.Storage == StorageMongo && c.MongoURI == "" {
		return fmt.Errorf("MONGO_URI is required for mongo storage")
	}
	if c.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty for provider %s", c.Provider)
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("max iterations must be positive, got %d", c.MaxIterations)
	}
	if c.DocContentCharsMax <= 0 {
		return fmt.Errorf("doc content chars max must be positive, got %d", c.DocContentCharsMax)
	}
	switch c.OTelExporter {
	case "none", "stdout", "otlp":
	default:
		return fmt.Errorf("invalid OTEL_EXPORTER: %s", c.OTelExporter)
	}
	return nil
}

// Agent returns the agent settings described by this configuration.
func (c *Config) Agent(toolNames []string) *entities.Agent {
	agent := entities.NewAgent("Research Assistant", c.Provider, c.BaseURL, c.Model, c.SystemPrompt, toolNames)
	agent.MaxIterations = c.MaxIterations
	temperature := c.Temperature
	agent.Temperature = &temperature
	if c.MaxTokens > 0 {
		maxTokens := c.MaxTokens
		agent.MaxTokens = &maxTokens
	}
	return agent
}

// ToolConfiguration returns the configuration overrides for a tool.
func (c *Config) ToolConfiguration() map[string]map[string]string {
	return map[string]map[string]string{
		"wikipedia": {
			"top_k_results":         strconv.Itoa(c.WikipediaTopK),
			"doc_content_chars_max": strconv.Itoa(c.DocContentCharsMax),
			"lang":                  c.WikipediaLang,
			"timeout":               c.ToolTimeout.String(),
		},
		"arxiv": {
			"top_k_results":         strconv.Itoa(c.ArxivTopK),
			"doc_content_chars_max": strconv.Itoa(c.DocContentCharsMax),
			"timeout":               c.ToolTimeout.String(),
		},
		"duckDuckGoSearch": {
			"max_results": strconv.Itoa(c.DDGMaxResults),
			"timeout":     c.ToolTimeout.String(),
		},
	}
}

// ResolveEnvironmentVariable expands a whole-value #{VAR}# reference. Other
// values are returned unchanged.
func (c *Config) ResolveEnvironmentVariable(value string) (string, error) {
	const prefix, suffix = "#{", "}#"
	if strings.HasPrefix(value, prefix) && strings.HasSuffix(value, suffix) {
		varName := strings.TrimSuffix(strings.TrimPrefix(value, prefix), suffix)
		if varName == "" {
			return "", fmt.Errorf("empty variable name in reference: %s", value)
		}

		resolved := os.Getenv(varName)
		if resolved == "" {
			c.logger.Warn("Environment variable not found for reference",
				zap.String("reference", value),
				zap.String("var_name", varName))
			return "", fmt.Errorf("environment variable '%s' not found", varName)
		}

		c.logger.Debug("Resolved environment variable",
			zap.String("var_name", varName),
			zap.String("resolved", entities.MaskKey(resolved)))
		return resolved, nil
	}

	return value, nil
}

func setString(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func setInt(target *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*target = n
	return nil
}
