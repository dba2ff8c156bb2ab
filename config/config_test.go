// Copyright (c) Microsoft. All rights reserved.

package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/contoso/travelagent/config"
)

var envKeys = []string{
	"GITHUB_TOKEN", "OPENAI_API_KEY", "AZURE_OPENAI_ENDPOINT", "AZURE_OPENAI_API_KEY",
	"AZURE_OPENAI_DEPLOYMENT", "MODEL_PROVIDER", "AZURE_SEARCH_SERVICE_ENDPOINT",
	"AZURE_SEARCH_API_KEY", "AZURE_SEARCH_INDEX", "SEARCH_BACKEND", "SEARCH_SQLITE_PATH", "LOG_LEVEL",
}

// clearEnv blanks every variable Load reads. Empty values count as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func mapEnv(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := config.Default()
	require.Equal(t, config.GitHubModelsEndpoint, cfg.Model.Endpoint)
	require.Equal(t, "gpt-4o-mini", cfg.Model.Name)
	require.Equal(t, "travel-documents", cfg.Search.Index)
	require.Equal(t, 3, cfg.Search.TopK)
	require.Equal(t, 10*time.Second, cfg.Search.Timeout)
	require.Equal(t, 4, cfg.Agent.MaxConcurrentTools)

	// Only the credential is missing.
	require.ErrorContains(t, cfg.Validate(), "api key is required")
	cfg.Model.APIKey = "token"
	require.NoError(t, cfg.Validate())
}

func TestApplyEnvGitHub(t *testing.T) {
	cfg := config.Default()
	cfg.ApplyEnv(mapEnv(map[string]string{"GITHUB_TOKEN": " ghp_123 ", "LOG_LEVEL": "debug"}))

	require.Equal(t, "ghp_123", cfg.Model.APIKey)
	require.Equal(t, config.AuthBearer, cfg.Model.Auth)
	require.Equal(t, config.GitHubModelsEndpoint, cfg.Model.Endpoint)
	require.Equal(t, "debug", cfg.Log.Level)
	require.NoError(t, cfg.Validate())
}

func TestApplyEnvOpenAI(t *testing.T) {
	cfg := config.Default()
	cfg.ApplyEnv(mapEnv(map[string]string{"OPENAI_API_KEY": "sk-1", "MODEL_PROVIDER": "openai-sdk"}))

	require.Equal(t, config.OpenAIEndpoint, cfg.Model.Endpoint)
	require.Equal(t, "sk-1", cfg.Model.APIKey)
	require.Equal(t, config.ProviderOpenAISDK, cfg.Model.Provider)
	require.NotNil(t, cfg.Model.MaxTokens)
	require.Equal(t, 256, *cfg.Model.MaxTokens)
	require.Nil(t, cfg.Model.Temperature)

	// GitHub Models takes precedence when both tokens are present.
	cfg = config.Default()
	cfg.ApplyEnv(mapEnv(map[string]string{"OPENAI_API_KEY": "sk-1", "GITHUB_TOKEN": "ghp"}))
	require.Equal(t, config.GitHubModelsEndpoint, cfg.Model.Endpoint)
	require.Equal(t, "ghp", cfg.Model.APIKey)
}

func TestApplyEnvAzure(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		wantAuth string
		wantKey  string
	}{
		{
			name:     "key",
			env:      map[string]string{"AZURE_OPENAI_ENDPOINT": "https://x.openai.azure.com", "AZURE_OPENAI_API_KEY": "k", "AZURE_OPENAI_DEPLOYMENT": "gpt-4o"},
			wantAuth: config.AuthAzureKey,
			wantKey:  "k",
		},
		{
			name:     "identity",
			env:      map[string]string{"AZURE_OPENAI_ENDPOINT": "https://x.openai.azure.com", "GITHUB_TOKEN": "ignored", "AZURE_OPENAI_DEPLOYMENT": "gpt-4o"},
			wantAuth: config.AuthAzureIdentity,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.ApplyEnv(mapEnv(tt.env))
			require.Equal(t, "https://x.openai.azure.com", cfg.Model.Endpoint)
			require.Equal(t, "gpt-4o", cfg.Model.Name)
			require.Equal(t, tt.wantAuth, cfg.Model.Auth)
			require.Equal(t, tt.wantKey, cfg.Model.APIKey)
			require.NoError(t, cfg.Validate())
		})
	}
}

func TestApplyEnvSearch(t *testing.T) {
	cfg := config.Default()
	cfg.ApplyEnv(mapEnv(map[string]string{
		"AZURE_SEARCH_SERVICE_ENDPOINT": "https://s.search.windows.net",
		"AZURE_SEARCH_API_KEY":          "sk",
		"AZURE_SEARCH_INDEX":            "docs",
	}))
	require.Equal(t, config.BackendAzure, cfg.Search.Backend)
	require.Equal(t, "https://s.search.windows.net", cfg.Search.Endpoint)
	require.Equal(t, "sk", cfg.Search.APIKey)
	require.Equal(t, "docs", cfg.Search.Index)

	// An explicit backend wins over endpoint detection.
	cfg = config.Default()
	cfg.ApplyEnv(mapEnv(map[string]string{
		"AZURE_SEARCH_SERVICE_ENDPOINT": "https://s.search.windows.net",
		"SEARCH_BACKEND":                "sqlite",
		"SEARCH_SQLITE_PATH":            "/tmp/x.db",
	}))
	require.Equal(t, config.BackendSQLite, cfg.Search.Backend)
	require.Equal(t, "/tmp/x.db", cfg.Search.Path)
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	t.Setenv("GITHUB_TOKEN", "ghp")
	path := writeFile(t, "agent.yaml", `
model:
  name: gpt-4o
  temperature: 0.3
  top_p: 0.9
search:
  backend: azure
  endpoint: https://s.search.windows.net
  top_k: 5
  timeout: 2s
agent:
  max_concurrent_tools: 2
log:
  format: json
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "gpt-4o", cfg.Model.Name)
	require.Equal(t, "ghp", cfg.Model.APIKey)
	require.NotNil(t, cfg.Model.Temperature)
	require.InDelta(t, 0.3, *cfg.Model.Temperature, 1e-9)
	require.NotNil(t, cfg.Model.TopP)
	require.InDelta(t, 0.9, *cfg.Model.TopP, 1e-9)
	require.Nil(t, cfg.Model.MaxTokens)
	require.Equal(t, config.BackendAzure, cfg.Search.Backend)
	require.Equal(t, "travel-documents", cfg.Search.Index)
	require.Equal(t, 5, cfg.Search.TopK)
	require.Equal(t, 2*time.Second, cfg.Search.Timeout)
	require.Equal(t, 2, cfg.Agent.MaxConcurrentTools)
	require.Equal(t, "TravelAgent", cfg.Agent.Name)
	require.Equal(t, "json", cfg.Log.Format)
}

func TestLoadTOML(t *testing.T) {
	clearEnv(t)
	t.Setenv("GITHUB_TOKEN", "ghp")
	t.Setenv("LOG_LEVEL", "warn")
	path := writeFile(t, "agent.toml", `
[model]
provider = "openai-sdk"
max_tokens = 256

[search]
path = "index.db"
timeout = "500ms"

[log]
level = "debug"
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, config.ProviderOpenAISDK, cfg.Model.Provider)
	require.NotNil(t, cfg.Model.MaxTokens)
	require.Equal(t, 256, *cfg.Model.MaxTokens)
	require.Nil(t, cfg.Model.Temperature)
	require.Equal(t, "index.db", cfg.Search.Path)
	require.Equal(t, 500*time.Millisecond, cfg.Search.Timeout)
	// The environment overrides the file.
	require.Equal(t, "warn", cfg.Log.Level)
	level, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	require.Equal(t, slog.LevelWarn, level)
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("GITHUB_TOKEN", "ghp")

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = config.Load(writeFile(t, "agent.json", `{}`))
	require.ErrorContains(t, err, "unsupported file type")

	_, err = config.Load(writeFile(t, "agent.yaml", "model: [unclosed"))
	require.ErrorContains(t, err, "parse")

	_, err = config.Load(writeFile(t, "agent.yaml", "search:\n  top_k: 0\n"))
	require.ErrorContains(t, err, "top_k must be positive")
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := config.Default()
	cfg.Model.Provider = "bedrock"
	cfg.Model.APIKey = "k"
	cfg.Search.Backend = "elastic"
	cfg.Agent.MaxConcurrentTools = 0
	cfg.Log.Level = "loud"
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	require.ErrorContains(t, err, `unknown model provider "bedrock"`)
	require.ErrorContains(t, err, `unknown search backend "elastic"`)
	require.ErrorContains(t, err, "max_concurrent_tools must be positive")
	require.ErrorContains(t, err, "log level")
	require.ErrorContains(t, err, `unknown log format "xml"`)
}

func TestValidateSampling(t *testing.T) {
	cfg := config.Default()
	cfg.Model.APIKey = "k"
	temperature, topP, maxTokens := 2.5, 1.5, 0
	cfg.Model.Temperature, cfg.Model.TopP, cfg.Model.MaxTokens = &temperature, &topP, &maxTokens

	err := cfg.Validate()
	require.ErrorContains(t, err, "temperature must be within [0, 2], got 2.5")
	require.ErrorContains(t, err, "top_p must be within [0, 1], got 1.5")
	require.ErrorContains(t, err, "max_tokens must be positive, got 0")

	temperature, topP, maxTokens = 0, 1, 100
	require.NoError(t, cfg.Validate())
}

func TestValidateAzureSearch(t *testing.T) {
	cfg := config.Default()
	cfg.Model.APIKey = "k"
	cfg.Search.Backend = config.BackendAzure
	require.ErrorContains(t, cfg.Validate(), "search endpoint is required")

	cfg.Search.Endpoint = "https://s.search.windows.net"
	require.NoError(t, cfg.Validate())
}

func TestValidateIdentityNeedsNoKey(t *testing.T) {
	cfg := config.Default()
	cfg.Model.Auth = config.AuthAzureIdentity
	require.NoError(t, cfg.Validate())

	cfg.Model.Auth = "kerberos"
	require.ErrorContains(t, cfg.Validate(), `unknown model auth "kerberos"`)
}
