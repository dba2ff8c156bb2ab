// Copyright (c) Microsoft. All rights reserved.

// Package agentframework provides the core types for a retrieval-augmented,
// tool-calling agent. A [Session] runs each user query through at most two
// streaming model passes: the first may request tool calls, which are
// dispatched concurrently, and the second turns their results into the final
// answer.
//
// # Quick Start
//
// Create a ChatClient (e.g., from the openai package) and build an Agent:
//
//	client := openai.New(os.Getenv("OPENAI_API_KEY"), openai.WithModel("gpt-4o-mini"))
//
//	agent := agentframework.NewAgent(client,
//	    agentframework.WithName("TravelAgent"),
//	    agentframework.WithRegistry(plugins.NewRegistry()),
//	    agentframework.WithContextProvider(retrieval.NewContextProvider(retriever, 3)),
//	)
//
//	session := agent.NewSession()
//	answer, err := session.Submit(ctx, "What is the weather in the Maldives?")
//
// # Architecture
//
//   - [Agent]: composes a client with a tool [Registry], middleware and an
//     optional [ContextProvider].
//   - [Session]: owns one [Conversation] and serializes queries against it.
//   - [ChatClient]: interface for streaming LLM backends.
//   - [Tool]: callable functions exposed to the model via function calling.
//   - [Content]: sealed interface for the parts of a [Message].
//   - [ResponseStream]: generic pull-based iterator for streaming responses.
//   - Middleware: three levels (Agent, Chat, Function) for cross-cutting concerns.
//
// # Turn commit
//
// Turns produced while answering a query are buffered and appended to the
// conversation only once the query completes. A failed model pass leaves the
// conversation exactly as it was, and the error wraps [ErrModelStreamAborted].
//
// # Tools
//
// Use [NewTypedTool] for type-safe tools with automatic JSON Schema generation:
//
//	type BookingArgs struct {
//	    Date     string `json:"date"     jsonschema:"description=The date of the flight,required"`
//	    Location string `json:"location" jsonschema:"description=The destination location,required"`
//	}
//
//	tool := agentframework.NewTypedTool("book_flight", "Books a flight",
//	    func(ctx context.Context, args BookingArgs) (string, error) {
//	        return "Flight booked to " + args.Location + " on " + args.Date + ".", nil
//	    },
//	)
package agentframework
