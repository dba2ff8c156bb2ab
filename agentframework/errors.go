// Copyright (c) Microsoft. All rights reserved.

package agentframework

import (
	"errors"
	"fmt"
)

// Agent failures. Only ErrModelStreamAborted and ErrExecution ever leave
// [Session.Submit]; ErrRetrievalUnavailable is logged and absorbed.
var (
	ErrAgent          = errors.New("agent error")
	ErrExecution      = fmt.Errorf("%w: execution", ErrAgent)
	ErrInitialization = fmt.Errorf("%w: initialization", ErrAgent)

	// ErrModelStreamAborted is returned when a model pass fails or is
	// cancelled before its stream completes. The conversation is unchanged.
	ErrModelStreamAborted = fmt.Errorf("%w: model stream aborted", ErrExecution)

	// ErrRetrievalUnavailable marks a search backend failure.
	ErrRetrievalUnavailable = fmt.Errorf("%w: retrieval unavailable", ErrAgent)
)

// Model endpoint failures, usually carried by a [ServiceError].
var (
	ErrChatClient = errors.New("chat client error")

	ErrService         = errors.New("service error")
	ErrAuth            = fmt.Errorf("%w: authentication", ErrService)
	ErrContentFilter   = fmt.Errorf("%w: content filter", ErrService)
	ErrInvalidRequest  = fmt.Errorf("%w: invalid request", ErrService)
	ErrInvalidResponse = fmt.Errorf("%w: invalid response", ErrService)

	// ErrModelStreamMalformed marks a stream that ended without its terminal
	// event or carried an undecodable frame.
	ErrModelStreamMalformed = fmt.Errorf("%w: malformed stream", ErrInvalidResponse)
)

// Tool failures. Dispatch turns all of them into result text for the model.
var (
	ErrTool                   = errors.New("tool error")
	ErrToolExecution          = fmt.Errorf("%w: execution", ErrTool)
	ErrUnknownTool            = fmt.Errorf("%w: unknown tool", ErrTool)
	ErrMalformedToolArguments = fmt.Errorf("%w: malformed arguments", ErrTool)
)

// ServiceError describes a failed call to a model endpoint. Err holds the
// sentinel that classifies it.
type ServiceError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *ServiceError) Error() string {
	kind := ErrService
	if e.Err != nil {
		kind = e.Err
	}
	status := fmt.Sprint(e.StatusCode)
	if e.Code != "" {
		status += " " + e.Code
	}
	return fmt.Sprintf("%v (%s): %s", kind, status, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// ToolError describes a failed tool invocation.
type ToolError struct {
	ToolName string
	Message  string
	Err      error
}

func (e *ToolError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("tool %s: %s", e.ToolName, msg)
}

func (e *ToolError) Unwrap() error { return e.Err }
