// Copyright (c) Microsoft. All rights reserved.

// Package config loads the travel agent settings from defaults, an optional
// YAML or TOML file, a .env file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Model providers.
const (
	ProviderOpenAI    = "openai"
	ProviderOpenAISDK = "openai-sdk"
)

// Model authentication modes.
const (
	AuthBearer        = "bearer"
	AuthAzureKey      = "azure-key"
	AuthAzureIdentity = "azure-identity"
)

// Search backends.
const (
	BackendAzure  = "azure"
	BackendSQLite = "sqlite"
)

const (
	// GitHubModelsEndpoint is the default OpenAI-compatible endpoint.
	GitHubModelsEndpoint = "https://models.inference.ai.azure.com"
	// OpenAIEndpoint is used when only OPENAI_API_KEY is set.
	OpenAIEndpoint = "https://api.openai.com/v1"
)

// Config is the complete application configuration.
type Config struct {
	Model  ModelConfig  `yaml:"model" toml:"model"`
	Search SearchConfig `yaml:"search" toml:"search"`
	Agent  AgentConfig  `yaml:"agent" toml:"agent"`
	Log    LogConfig    `yaml:"log" toml:"log"`
}

// ModelConfig selects the chat model endpoint.
type ModelConfig struct {
	Provider string `yaml:"provider" toml:"provider"`
	Endpoint string `yaml:"endpoint" toml:"endpoint"`
	// Name is the model name, or the deployment name on Azure OpenAI.
	Name       string `yaml:"name" toml:"name"`
	Auth       string `yaml:"auth" toml:"auth"`
	APIKey     string `yaml:"api_key" toml:"api_key"`
	// APIVersion is sent to Azure OpenAI endpoints only.
	APIVersion string `yaml:"api_version" toml:"api_version"`

	// Sampling settings; nil leaves the provider default.
	Temperature *float64 `yaml:"temperature" toml:"temperature"`
	TopP        *float64 `yaml:"top_p" toml:"top_p"`
	MaxTokens   *int     `yaml:"max_tokens" toml:"max_tokens"`
}

// SearchConfig selects the document index.
type SearchConfig struct {
	Backend  string `yaml:"backend" toml:"backend"`
	Endpoint string `yaml:"endpoint" toml:"endpoint"`
	Index    string `yaml:"index" toml:"index"`
	// APIKey is optional for the azure backend; without it Entra ID is used.
	APIKey  string        `yaml:"api_key" toml:"api_key"`
	Path    string        `yaml:"path" toml:"path"`
	TopK    int           `yaml:"top_k" toml:"top_k"`
	Timeout time.Duration `yaml:"timeout" toml:"timeout"`
}

// AgentConfig shapes the orchestrator.
type AgentConfig struct {
	Name               string `yaml:"name" toml:"name"`
	Instructions       string `yaml:"instructions" toml:"instructions"`
	MaxConcurrentTools int    `yaml:"max_concurrent_tools" toml:"max_concurrent_tools"`
}

// LogConfig configures the default slog handler.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Default returns the built-in configuration: GitHub Models with
// gpt-4o-mini and a local SQLite index.
func Default() Config {
	return Config{
		Model: ModelConfig{
			Provider:   ProviderOpenAI,
			Endpoint:   GitHubModelsEndpoint,
			Name:       "gpt-4o-mini",
			Auth:       AuthBearer,
			APIVersion: "2024-10-21",
		},
		Search: SearchConfig{
			Backend: BackendSQLite,
			Index:   "travel-documents",
			Path:    "travel-documents.db",
			TopK:    3,
			Timeout: 10 * time.Second,
		},
		Agent: AgentConfig{
			Name: "TravelAgent",
			Instructions: "You are a helpful travel assistant for Contoso Travel. " +
				"Answer from the retrieved context when it is relevant and use the available functions otherwise.",
			MaxConcurrentTools: 4,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds a Config from the defaults, the file at path (skipped when
// path is empty), a .env file in the working directory and the process
// environment. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	case ".toml":
		_, err = toml.Decode(string(data), c)
	default:
		return fmt.Errorf("config: unsupported file type %q", ext)
	}
	if err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays environment variables read through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}
	set := func(dst *string, key string) {
		if v := get(key); v != "" {
			*dst = v
		}
	}

	if v := get("OPENAI_API_KEY"); v != "" {
		c.Model.APIKey = v
		c.Model.Auth = AuthBearer
		if c.Model.Endpoint == GitHubModelsEndpoint {
			c.Model.Endpoint = OpenAIEndpoint
		}
	}
	// GitHub Models wins over OpenAI when both are set.
	if v := get("GITHUB_TOKEN"); v != "" {
		c.Model.APIKey = v
		c.Model.Auth = AuthBearer
		if c.Model.Endpoint == OpenAIEndpoint {
			c.Model.Endpoint = GitHubModelsEndpoint
		}
	}
	if v := get("AZURE_OPENAI_ENDPOINT"); v != "" {
		c.Model.Endpoint = v
		c.Model.APIKey = ""
		c.Model.Auth = AuthAzureIdentity
		if key := get("AZURE_OPENAI_API_KEY"); key != "" {
			c.Model.APIKey = key
			c.Model.Auth = AuthAzureKey
		}
	}
	set(&c.Model.Name, "AZURE_OPENAI_DEPLOYMENT")
	set(&c.Model.Provider, "MODEL_PROVIDER")

	set(&c.Search.Endpoint, "AZURE_SEARCH_SERVICE_ENDPOINT")
	set(&c.Search.APIKey, "AZURE_SEARCH_API_KEY")
	set(&c.Search.Index, "AZURE_SEARCH_INDEX")
	set(&c.Search.Path, "SEARCH_SQLITE_PATH")
	if v := get("SEARCH_BACKEND"); v != "" {
		c.Search.Backend = v
	} else if get("AZURE_SEARCH_SERVICE_ENDPOINT") != "" {
		c.Search.Backend = BackendAzure
	}

	set(&c.Log.Level, "LOG_LEVEL")
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("config: "+format, args...))
	}

	switch c.Model.Provider {
	case ProviderOpenAI, ProviderOpenAISDK:
	default:
		bad("unknown model provider %q", c.Model.Provider)
	}
	if c.Model.Endpoint == "" {
		bad("model endpoint is required")
	}
	if c.Model.Name == "" {
		bad("model name is required")
	}
	switch c.Model.Auth {
	case AuthBearer, AuthAzureKey:
		if c.Model.APIKey == "" {
			bad("model api key is required for %s auth (set GITHUB_TOKEN, OPENAI_API_KEY or AZURE_OPENAI_API_KEY)", c.Model.Auth)
		}
	case AuthAzureIdentity:
	default:
		bad("unknown model auth %q", c.Model.Auth)
	}

	if t := c.Model.Temperature; t != nil && (*t < 0 || *t > 2) {
		bad("model temperature must be within [0, 2], got %g", *t)
	}
	if p := c.Model.TopP; p != nil && (*p < 0 || *p > 1) {
		bad("model top_p must be within [0, 1], got %g", *p)
	}
	if n := c.Model.MaxTokens; n != nil && *n <= 0 {
		bad("model max_tokens must be positive, got %d", *n)
	}

	switch c.Search.Backend {
	case BackendAzure:
		if c.Search.Endpoint == "" {
			bad("search endpoint is required for the azure backend")
		}
		if c.Search.Index == "" {
			bad("search index is required for the azure backend")
		}
	case BackendSQLite:
		if c.Search.Path == "" {
			bad("search path is required for the sqlite backend")
		}
	default:
		bad("unknown search backend %q", c.Search.Backend)
	}
	if c.Search.TopK <= 0 {
		bad("search top_k must be positive, got %d", c.Search.TopK)
	}
	if c.Search.Timeout <= 0 {
		bad("search timeout must be positive, got %s", c.Search.Timeout)
	}

	if c.Agent.MaxConcurrentTools <= 0 {
		bad("agent max_concurrent_tools must be positive, got %d", c.Agent.MaxConcurrentTools)
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		bad("unknown log format %q", c.Log.Format)
	}
	return errors.Join(errs...)
}

// SlogLevel parses Level (debug, info, warn or error).
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("config: log level: %w", err)
	}
	return level, nil
}
