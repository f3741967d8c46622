package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/drujensen/researchagent/internal/domain/entities"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk YAML form of the configuration. Unset fields keep
// their defaults.
type FileConfig struct {
	APIKey        string   `yaml:"api_key,omitempty"`
	Provider      string   `yaml:"provider,omitempty"`
	BaseURL       string   `yaml:"base_url,omitempty"`
	Model         string   `yaml:"model,omitempty"`
	SystemPrompt  string   `yaml:"system_prompt,omitempty"`
	Temperature   *float64 `yaml:"temperature,omitempty"`
	MaxTokens     int      `yaml:"max_tokens,omitempty"`
	MaxIterations int      `yaml:"max_iterations,omitempty"`

	History struct {
		MaxTokens int `yaml:"max_tokens,omitempty"`
	} `yaml:"history,omitempty"`

	Tools struct {
		Wikipedia struct {
			TopK int    `yaml:"top_k_results,omitempty"`
			Lang string `yaml:"lang,omitempty"`
		} `yaml:"wikipedia,omitempty"`
		Arxiv struct {
			TopK int `yaml:"top_k_results,omitempty"`
		} `yaml:"arxiv,omitempty"`
		DuckDuckGo struct {
			MaxResults int `yaml:"max_results,omitempty"`
		} `yaml:"duckduckgo,omitempty"`
		DocContentCharsMax int    `yaml:"doc_content_chars_max,omitempty"`
		Timeout            string `yaml:"timeout,omitempty"`
	} `yaml:"tools,omitempty"`

	Server struct {
		Addr string `yaml:"addr,omitempty"`
	} `yaml:"server,omitempty"`

	Storage struct {
		Type          string `yaml:"type,omitempty"`
		MongoURI      string `yaml:"mongo_uri,omitempty"`
		MongoDatabase string `yaml:"mongo_database,omitempty"`
		DataDir       string `yaml:"data_dir,omitempty"`
	} `yaml:"storage,omitempty"`

	Logging struct {
		Level string `yaml:"level,omitempty"`
	} `yaml:"logging,omitempty"`

	Telemetry struct {
		Exporter string `yaml:"exporter,omitempty"`
		Endpoint string `yaml:"endpoint,omitempty"`
	} `yaml:"telemetry,omitempty"`
}

// ConfigFilePath returns CONFIG_FILE or ~/.config/researchagent/config.yaml.
func ConfigFilePath() string {
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "researchagent", "config.yaml")
}

// LoadFile reads the YAML configuration file. A missing file yields an empty
// FileConfig.
func LoadFile(path string, logger *zap.Logger) (*FileConfig, error) {
	file := &FileConfig{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug("Config file does not exist, using defaults", zap.String("path", path))
			return file, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, file); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	logger.Debug("Loaded config file", zap.String("path", path))
	return file, nil
}

// Template returns the default configuration in file form.
func Template() *FileConfig {
	cfg := Default()
	file := &FileConfig{
		Provider:      string(cfg.Provider),
		BaseURL:       cfg.BaseURL,
		Model:         cfg.Model,
		Temperature:   &cfg.Temperature,
		MaxIterations: cfg.MaxIterations,
	}
	file.History.MaxTokens = cfg.MaxHistoryTokens
	file.Tools.Wikipedia.TopK = cfg.WikipediaTopK
	file.Tools.Wikipedia.Lang = cfg.WikipediaLang
	file.Tools.Arxiv.TopK = cfg.ArxivTopK
	file.Tools.DuckDuckGo.MaxResults = cfg.DDGMaxResults
	file.Tools.DocContentCharsMax = cfg.DocContentCharsMax
	file.Tools.Timeout = cfg.ToolTimeout.String()
	file.Server.Addr = cfg.Addr
	file.Storage.Type = cfg.Storage
	file.Storage.MongoDatabase = cfg.MongoDatabase
	file.Logging.Level = cfg.LogLevel
	file.Telemetry.Exporter = cfg.OTelExporter
	return file
}

// WriteTemplate saves Template at path. An existing file is left alone.
func WriteTemplate(path string, logger *zap.Logger) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}
	return SaveFile(path, Template(), logger)
}

// SaveFile writes the YAML configuration file, creating its directory.
func SaveFile(path string, file *FileConfig, logger *zap.Logger) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	logger.Debug("Saved config file", zap.String("path", path))
	return nil
}

// resolve replaces #{VAR}# references in the string fields with the
// environment values they name.
func (f *FileConfig) resolve(cfg *Config) error {
	fields := []struct {
		name  string
		value *string
	}{
		{"api_key", &f.APIKey},
		{"provider", &f.Provider},
		{"base_url", &f.BaseURL},
		{"model", &f.Model},
		{"system_prompt", &f.SystemPrompt},
		{"tools.wikipedia.lang", &f.Tools.Wikipedia.Lang},
		{"tools.timeout", &f.Tools.Timeout},
		{"server.addr", &f.Server.Addr},
		{"storage.type", &f.Storage.Type},
		{"storage.mongo_uri", &f.Storage.MongoURI},
		{"storage.mongo_database", &f.Storage.MongoDatabase},
		{"storage.data_dir", &f.Storage.DataDir},
		{"logging.level", &f.Logging.Level},
		{"telemetry.exporter", &f.Telemetry.Exporter},
		{"telemetry.endpoint", &f.Telemetry.Endpoint},
	}
	for _, field := range fields {
		resolved, err := cfg.ResolveEnvironmentVariable(*field.value)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", field.name, err)
		}
		*field.value = resolved
	}
	return nil
}

func (f *FileConfig) apply(cfg *Config) error {
	if err := f.resolve(cfg); err != nil {
		return err
	}

	applyString(&cfg.APIKey, f.APIKey)
	if f.Provider != "" {
		cfg.Provider = entities.ProviderType(f.Provider)
		cfg.BaseURL = cfg.Provider.DefaultBaseURL()
	}
	applyString(&cfg.BaseURL, f.BaseURL)
	applyString(&cfg.Model, f.Model)
	applyString(&cfg.SystemPrompt, f.SystemPrompt)
	if f.Temperature != nil {
		cfg.Temperature = *f.Temperature
	}
	applyInt(&cfg.MaxTokens, f.MaxTokens)
	applyInt(&cfg.MaxIterations, f.MaxIterations)
	applyInt(&cfg.MaxHistoryTokens, f.History.MaxTokens)

	applyInt(&cfg.WikipediaTopK, f.Tools.Wikipedia.TopK)
	applyString(&cfg.WikipediaLang, f.Tools.Wikipedia.Lang)
	applyInt(&cfg.ArxivTopK, f.Tools.Arxiv.TopK)
	applyInt(&cfg.DDGMaxResults, f.Tools.DuckDuckGo.MaxResults)
	applyInt(&cfg.DocContentCharsMax, f.Tools.DocContentCharsMax)
	if d, err := time.ParseDuration(f.Tools.Timeout); err == nil && d > 0 {
		cfg.ToolTimeout = d
	}

	applyString(&cfg.Addr, f.Server.Addr)
	applyString(&cfg.Storage, f.Storage.Type)
	applyString(&cfg.MongoURI, f.Storage.MongoURI)
	applyString(&cfg.MongoDatabase, f.Storage.MongoDatabase)
	applyString(&cfg.DataDir, f.Storage.DataDir)
	applyString(&cfg.LogLevel, f.Logging.Level)
	applyString(&cfg.OTelExporter, f.Telemetry.Exporter)
	applyString(&cfg.OTelEndpoint, f.Telemetry.Endpoint)
	return nil
}

func applyString(target *string, value string) {
	if value != "" {
		*target = value
	}
}

func applyInt(target *int, value int) {
	if value != 0 {
		*target = value
	}
}
