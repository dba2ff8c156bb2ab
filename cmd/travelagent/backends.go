// Copyright (c) Microsoft. All rights reserved.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/openai/openai-go/v2/azure"
	"github.com/openai/openai-go/v2/option"

	af "github.com/contoso/travelagent/agentframework"
	"github.com/contoso/travelagent/config"
	"github.com/contoso/travelagent/openai"
	"github.com/contoso/travelagent/openaisdk"
	"github.com/contoso/travelagent/plugins"
	"github.com/contoso/travelagent/retrieval"
	"github.com/contoso/travelagent/search/azuresearch"
	"github.com/contoso/travelagent/search/sqlitesearch"
)

// credentials creates a DefaultAzureCredential on first use and shares it
// between the model and search clients.
type credentials struct {
	cred azcore.TokenCredential
}

func (c *credentials) get() (azcore.TokenCredential, error) {
	if c.cred != nil {
		return c.cred, nil
	}
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}
	c.cred = cred
	return cred, nil
}

func newChatClient(cfg config.ModelConfig, creds *credentials) (af.ChatClient, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return newHTTPChatClient(cfg, creds)
	case config.ProviderOpenAISDK:
		return newSDKChatClient(cfg, creds)
	}
	return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
}

func newHTTPChatClient(cfg config.ModelConfig, creds *credentials) (*openai.Client, error) {
	switch cfg.Auth {
	case config.AuthAzureKey:
		return openai.New(cfg.APIKey,
			openai.WithBaseURL(deploymentURL(cfg.Endpoint, cfg.Name)),
			openai.WithModel(cfg.Name),
			openai.WithAPIVersion(cfg.APIVersion),
			openai.WithHeaders(map[string]string{"api-key": cfg.APIKey}),
		), nil
	case config.AuthAzureIdentity:
		cred, err := creds.get()
		if err != nil {
			return nil, err
		}
		return openai.New("",
			openai.WithBaseURL(deploymentURL(cfg.Endpoint, cfg.Name)),
			openai.WithModel(cfg.Name),
			openai.WithAPIVersion(cfg.APIVersion),
			openai.WithAzureCredential(cred),
		), nil
	}
	return openai.New(cfg.APIKey,
		openai.WithBaseURL(cfg.Endpoint),
		openai.WithModel(cfg.Name),
	), nil
}

func newSDKChatClient(cfg config.ModelConfig, creds *credentials) (*openaisdk.Client, error) {
	switch cfg.Auth {
	case config.AuthAzureKey:
		return openaisdk.New(cfg.Name,
			azure.WithEndpoint(resourceURL(cfg.Endpoint), cfg.APIVersion),
			azure.WithAPIKey(cfg.APIKey),
		), nil
	case config.AuthAzureIdentity:
		cred, err := creds.get()
		if err != nil {
			return nil, err
		}
		return openaisdk.New(cfg.Name,
			azure.WithEndpoint(resourceURL(cfg.Endpoint), cfg.APIVersion),
			azure.WithTokenCredential(cred),
		), nil
	}
	return openaisdk.New(cfg.Name,
		option.WithBaseURL(cfg.Endpoint),
		option.WithAPIKey(cfg.APIKey),
	), nil
}

// deploymentURL returns the Azure OpenAI base URL for a deployment. An
// endpoint that already names a deployment is used as is.
func deploymentURL(endpoint, deployment string) string {
	if strings.Contains(endpoint, "/openai/deployments/") {
		return endpoint
	}
	return strings.TrimRight(endpoint, "/") + "/openai/deployments/" + url.PathEscape(deployment)
}

// resourceURL strips any /openai path from an Azure OpenAI endpoint.
func resourceURL(endpoint string) string {
	if i := strings.Index(endpoint, "/openai"); i >= 0 {
		endpoint = endpoint[:i]
	}
	return strings.TrimRight(endpoint, "/")
}

// searchIndex is a queryable index that can also be provisioned.
type searchIndex interface {
	retrieval.Backend
	EnsureIndex(ctx context.Context) error
	Upsert(ctx context.Context, docs []retrieval.Document) error
	Close() error
}

type azureIndex struct {
	*azuresearch.Client
}

func (azureIndex) Close() error { return nil }

func openBackend(ctx context.Context, cfg config.SearchConfig, creds *credentials, logger *slog.Logger) (searchIndex, error) {
	switch cfg.Backend {
	case config.BackendAzure:
		var (
			client *azuresearch.Client
			err    error
		)
		if cfg.APIKey != "" {
			client, err = azuresearch.NewClientWithKey(cfg.Endpoint, cfg.Index, cfg.APIKey, nil)
		} else {
			var cred azcore.TokenCredential
			if cred, err = creds.get(); err != nil {
				return nil, err
			}
			client, err = azuresearch.NewClient(cfg.Endpoint, cfg.Index, cred, nil)
		}
		if err != nil {
			return nil, err
		}
		return azureIndex{client}, nil

	case config.BackendSQLite:
		store, err := sqlitesearch.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureIndex(ctx); err != nil {
			store.Close()
			return nil, err
		}
		n, err := store.Count(ctx)
		if err != nil {
			store.Close()
			return nil, err
		}
		if n == 0 {
			if err := store.Upsert(ctx, plugins.Documents()); err != nil {
				store.Close()
				return nil, err
			}
			logger.InfoContext(ctx, "seeded local search index", "path", cfg.Path, "documents", len(plugins.Documents()))
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown search backend %q", cfg.Backend)
}

// provision creates the index and uploads the travel documents. Both steps
// are idempotent.
func provision(ctx context.Context, index searchIndex) error {
	if err := index.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}
	if err := index.Upsert(ctx, plugins.Documents()); err != nil {
		return fmt.Errorf("upload documents: %w", err)
	}
	return nil
}
