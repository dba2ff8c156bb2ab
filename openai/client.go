// Copyright (c) Microsoft. All rights reserved.

package openai

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	af "github.com/contoso/travelagent/agentframework"
)

// Client implements [agentframework.ChatClient] using the OpenAI Chat
// Completions API in streaming mode. Use [New] to create one.
type Client struct {
	tp      transport
	model   string
	handler af.ChatHandler
}

// Verify interface compliance at compile time.
var _ af.ChatClient = (*Client)(nil)

// New creates an OpenAI [Client] with the given API key and options.
//
//	client := openai.New(os.Getenv("GITHUB_TOKEN"),
//	    openai.WithBaseURL("https://models.inference.ai.azure.com"),
//	    openai.WithModel("gpt-4o-mini"),
//	)
func New(apiKey string, opts ...Option) *Client {
	cfg := &clientConfig{}
	for _, o := range opts {
		o(cfg)
	}
	c := &Client{
		tp:    newHTTPTransport(apiKey, cfg),
		model: cfg.model,
	}
	c.handler = af.ChainChatMiddleware(c.coreStream, cfg.chatMiddleware...)
	return c
}

// newWithTransport creates a Client with a custom transport (for testing).
func newWithTransport(tp transport, model string) *Client {
	c := &Client{tp: tp, model: model}
	c.handler = c.coreStream
	return c
}

// Model returns the default model name sent with each request.
func (c *Client) Model() string { return c.model }

// StreamResponse sends a streaming chat completion request and returns
// a [ResponseStream] that yields incremental updates via server-sent events.
func (c *Client) StreamResponse(ctx context.Context, messages []af.Message, opts *af.ChatOptions) (*af.ResponseStream[af.ChatResponseUpdate], error) {
	return c.handler(ctx, messages, opts)
}

// coreStream is the base implementation called by the middleware chain.
func (c *Client) coreStream(ctx context.Context, messages []af.Message, opts *af.ChatOptions) (*af.ResponseStream[af.ChatResponseUpdate], error) {
	req := buildRequest(messages, opts, c.model)
	req.Stream = true
	req.StreamOptions = &streamOptions{IncludeUsage: true}

	body, err := c.tp.post(ctx, "/chat/completions", req)
	if err != nil {
		return nil, err
	}
	return af.NewResponseStream(ctx, func(ctx context.Context, ch chan<- af.ChatResponseUpdate) error {
		defer body.Close()
		return parseSSEStream(ctx, body, ch)
	}), nil
}

// parseSSEStream reads OpenAI server-sent events from r and sends parsed
// updates to ch. It returns nil only when the [DONE] terminator arrives.
// A stream that ends early or carries an undecodable frame fails with
// [agentframework.ErrModelStreamMalformed].
func parseSSEStream(ctx context.Context, r io.Reader, ch chan<- af.ChatResponseUpdate) error {
	scanner := bufio.NewScanner(r)
	// Allow large SSE lines (some responses can be substantial).
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()

		// SSE format: lines starting with "data:"
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)

		// Stream terminator.
		if data == "[DONE]" {
			return nil
		}

		var chunk chatCompletionChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return fmt.Errorf("%w: decode chunk: %v", af.ErrModelStreamMalformed, err)
		}
		if chunk.Error != nil {
			return &af.ServiceError{Message: chunk.Error.Message, Code: chunk.Error.Code, Err: af.ErrService}
		}

		update := parseChunk(&chunk)
		update.Raw = &chunk

		select {
		case ch <- *update:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: read SSE stream: %v", af.ErrService, err)
	}

	return fmt.Errorf("%w: stream ended before [DONE]", af.ErrModelStreamMalformed)
}
