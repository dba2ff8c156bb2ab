// Copyright (c) Microsoft. All rights reserved.

package openai

import (
	"maps"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"

	af "github.com/contoso/travelagent/agentframework"
)

type clientConfig struct {
	model           string
	baseURL         string
	apiVersion      string
	organization    string
	headers         map[string]string
	httpClient      *http.Client
	azureCredential azcore.TokenCredential
	chatMiddleware  []af.ChatMiddleware
}

// Option configures a [Client].
type Option func(*clientConfig)

// WithModel sets the model, or Azure deployment, named in each request.
func WithModel(model string) Option {
	return func(c *clientConfig) { c.model = model }
}

// WithBaseURL replaces https://api.openai.com/v1. Request paths such as
// /chat/completions are appended to it.
func WithBaseURL(url string) Option {
	return func(c *clientConfig) { c.baseURL = url }
}

// WithAPIVersion adds the api-version query parameter Azure OpenAI requires.
func WithAPIVersion(version string) Option {
	return func(c *clientConfig) { c.apiVersion = version }
}

// WithOrganization sends the OpenAI-Organization header.
func WithOrganization(org string) Option {
	return func(c *clientConfig) { c.organization = org }
}

// WithHeaders adds headers to every request. Repeated calls merge. An
// "api-key" header switches to Azure key auth and suppresses the bearer
// token.
func WithHeaders(headers map[string]string) Option {
	return func(c *clientConfig) {
		if c.headers == nil {
			c.headers = make(map[string]string, len(headers))
		}
		maps.Copy(c.headers, headers)
	}
}

// WithHTTPClient sets the client used for requests. Tests use it to install
// a fake RoundTripper.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) { c.httpClient = client }
}

// WithAzureCredential authenticates with Microsoft Entra ID tokens for the
// Cognitive Services scope. The API key passed to [New] is ignored.
func WithAzureCredential(cred azcore.TokenCredential) Option {
	return func(c *clientConfig) { c.azureCredential = cred }
}

// WithChatMiddleware wraps StreamResponse. The first middleware is the
// outermost.
func WithChatMiddleware(mw ...af.ChatMiddleware) Option {
	return func(c *clientConfig) { c.chatMiddleware = append(c.chatMiddleware, mw...) }
}
