// Copyright (c) Microsoft. All rights reserved.

package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"

	af "github.com/contoso/travelagent/agentframework"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"

	cognitiveServicesScope = "https://cognitiveservices.azure.com/.default"
)

// transport posts a JSON body and hands back the streaming response body.
// Tests substitute it to avoid the network.
type transport interface {
	post(ctx context.Context, path string, body any) (io.ReadCloser, error)
}

type httpTransport struct {
	client     *http.Client
	baseURL    string
	apiVersion string
	headers    http.Header
	auth       func(ctx context.Context, h http.Header) error
}

func newHTTPTransport(apiKey string, cfg *clientConfig) *httpTransport {
	t := &httpTransport{
		client:     cfg.httpClient,
		baseURL:    strings.TrimRight(cfg.baseURL, "/"),
		apiVersion: cfg.apiVersion,
		headers:    make(http.Header),
	}
	if t.client == nil {
		t.client = http.DefaultClient
	}
	if t.baseURL == "" {
		t.baseURL = defaultBaseURL
	}
	if cfg.organization != "" {
		t.headers.Set("OpenAI-Organization", cfg.organization)
	}
	for k, v := range cfg.headers {
		t.headers.Set(k, v)
	}

	switch {
	case cfg.azureCredential != nil:
		t.auth = tokenAuth(cfg.azureCredential)
	case t.headers.Get("api-key") != "":
		// Azure key auth travels in the custom header alone.
		t.auth = func(context.Context, http.Header) error { return nil }
	default:
		t.auth = func(_ context.Context, h http.Header) error {
			h.Set("Authorization", "Bearer "+apiKey)
			return nil
		}
	}
	return t
}

func tokenAuth(cred azcore.TokenCredential) func(ctx context.Context, h http.Header) error {
	return func(ctx context.Context, h http.Header) error {
		token, err := cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{cognitiveServicesScope}})
		if err != nil {
			return fmt.Errorf("%w: get azure token: %w", af.ErrAuth, err)
		}
		slog.DebugContext(ctx, "using Entra ID token", "expires_on", token.ExpiresOn)
		h.Set("Authorization", "Bearer "+token.Token)
		return nil
	}
}

func (t *httpTransport) endpoint(path string) string {
	u := t.baseURL + path
	if t.apiVersion != "" {
		u += "?" + url.Values{"api-version": {t.apiVersion}}.Encode()
	}
	return u
}

func (t *httpTransport) post(ctx context.Context, path string, body any) (io.ReadCloser, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint(path), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range t.headers {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if err := t.auth(ctx, req.Header); err != nil {
		return nil, err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: http request: %w", af.ErrChatClient, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		return nil, parseErrorResponse(resp)
	}
	return resp.Body, nil
}

// apiError is the error object OpenAI-compatible services return. Some
// services send a numeric code, so Code is decoded leniently.
type apiError struct {
	Error struct {
		Message string          `json:"message"`
		Type    string          `json:"type"`
		Code    json.RawMessage `json:"code"`
	} `json:"error"`
}

func (e *apiError) code() string {
	var s string
	if json.Unmarshal(e.Error.Code, &s) == nil {
		return s
	}
	if len(e.Error.Code) == 0 || string(e.Error.Code) == "null" {
		return ""
	}
	return string(e.Error.Code)
}

var statusSentinels = map[int]error{
	http.StatusBadRequest:   af.ErrInvalidRequest,
	http.StatusUnauthorized: af.ErrAuth,
	http.StatusForbidden:    af.ErrAuth,
	http.StatusNotFound:     af.ErrInvalidRequest,
}

// parseErrorResponse turns a failed response into a [agentframework.ServiceError].
func parseErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var apiErr apiError
	_ = json.Unmarshal(body, &apiErr)

	svcErr := &af.ServiceError{
		StatusCode: resp.StatusCode,
		Message:    apiErr.Error.Message,
		Code:       apiErr.code(),
		Err:        af.ErrService,
	}
	if svcErr.Message == "" {
		svcErr.Message = strings.TrimSpace(string(body))
	}
	if sentinel, ok := statusSentinels[resp.StatusCode]; ok {
		svcErr.Err = sentinel
	}
	if svcErr.Code == "content_filter" {
		svcErr.Err = af.ErrContentFilter
	}
	return svcErr
}
