// Copyright (c) Microsoft. All rights reserved.

// Package openai implements [agentframework.ChatClient] over the Chat
// Completions REST API. It works against api.openai.com, GitHub Models and
// Azure OpenAI deployments.
//
//	client := openai.New(os.Getenv("GITHUB_TOKEN"),
//	    openai.WithBaseURL("https://models.inference.ai.azure.com"),
//	    openai.WithModel("gpt-4o-mini"),
//	)
//
// Requests always stream. Each server-sent event becomes one
// [agentframework.ChatResponseUpdate]; tool-call fragments carry the index
// the service gave them so the caller can reassemble calls. A stream that
// stops before "data: [DONE]" fails with
// [agentframework.ErrModelStreamMalformed].
//
// Azure OpenAI needs the deployment URL, an api-version and either an
// "api-key" header or an Entra ID credential:
//
//	client := openai.New(key,
//	    openai.WithBaseURL(endpoint+"/openai/deployments/"+deployment),
//	    openai.WithAPIVersion("2024-10-21"),
//	    openai.WithHeaders(map[string]string{"api-key": key}),
//	)
//
// HTTP failures are returned as [*agentframework.ServiceError].
package openai
