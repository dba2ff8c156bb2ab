// Copyright (c) Microsoft. All rights reserved.

// Command travelagent answers travel questions for Contoso Travel. Each query
// is grounded in documents retrieved from a search index and may call the
// travel lookup tools.
//
// Usage with GitHub Models (the default):
//
//	export GITHUB_TOKEN=ghp_...
//	go run ./cmd/travelagent
//
// Usage with Azure OpenAI and Azure AI Search:
//
//	export AZURE_OPENAI_ENDPOINT=https://<resource>.openai.azure.com
//	export AZURE_OPENAI_DEPLOYMENT=gpt-4o-mini
//	export AZURE_SEARCH_SERVICE_ENDPOINT=https://<service>.search.windows.net
//	go run ./cmd/travelagent -seed -demo
//
// Without AZURE_OPENAI_API_KEY or AZURE_SEARCH_API_KEY, DefaultAzureCredential
// is used. Settings may also come from a YAML or TOML file passed with -config.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	af "github.com/contoso/travelagent/agentframework"
	"github.com/contoso/travelagent/config"
	"github.com/contoso/travelagent/plugins"
	"github.com/contoso/travelagent/retrieval"
)

// demoQueries walk through retrieval-only, tool-backed and unanswerable
// questions.
var demoQueries = []string{
	"Can you explain Contoso's travel insurance coverage?",
	"What is the average temperature of the Maldives?",
	"What is a good cold destination offered by Contoso and what is its average temperature?",
	"Tell me about Atlantis",
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	if err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "travelagent: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("travelagent", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to a YAML or TOML config file")
	seed := fs.Bool("seed", false, "create the search index and upload the travel documents")
	query := fs.String("q", "", "answer a single query and exit")
	demo := fs.Bool("demo", false, "answer the built-in demo queries and exit")
	listTools := fs.Bool("tools", false, "list the available tools and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *listTools {
		return printTools(stdout, plugins.NewRegistry())
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log, stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	var creds credentials
	client, err := newChatClient(cfg.Model, &creds)
	if err != nil {
		return err
	}
	backend, err := openBackend(ctx, cfg.Search, &creds, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	if *seed {
		if err := provision(ctx, backend); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Seeded %d documents into %q.\n", len(plugins.Documents()), cfg.Search.Index)
		if *query == "" && !*demo {
			return nil
		}
	}

	agent := newAgent(cfg, client, backend, logger)
	session := agent.NewSession()

	switch {
	case *query != "":
		return ask(ctx, session, *query, stdout)
	case *demo:
		for _, q := range demoQueries {
			fmt.Fprintf(stdout, "User: %s\n", q)
			if err := ask(ctx, session, q, stdout); err != nil {
				return err
			}
			fmt.Fprintln(stdout)
		}
		return nil
	default:
		return chat(ctx, session, stdin, stdout)
	}
}

func newAgent(cfg config.Config, client af.ChatClient, backend retrieval.Backend, logger *slog.Logger) *af.Agent {
	retriever := retrieval.New(backend,
		retrieval.WithTimeout(cfg.Search.Timeout),
		retrieval.WithLogger(logger),
	)
	invocation := af.DefaultInvocationConfig()
	invocation.MaxConcurrentTools = cfg.Agent.MaxConcurrentTools

	return af.NewAgent(client,
		af.WithName(cfg.Agent.Name),
		af.WithInstructions(cfg.Agent.Instructions),
		af.WithRegistry(plugins.NewRegistry()),
		af.WithContextProvider(retrieval.NewContextProvider(retriever, cfg.Search.TopK)),
		af.WithInvocationConfig(invocation),
		af.WithDefaultOptions(&af.ChatOptions{
			Temperature: cfg.Model.Temperature,
			TopP:        cfg.Model.TopP,
			MaxTokens:   cfg.Model.MaxTokens,
		}),
		af.WithAgentMiddleware(af.LoggingMiddleware(logger)),
		af.WithFunctionMiddleware(af.ToolLoggingMiddleware(logger)),
		af.WithLogger(logger),
	)
}

// chat reads one query per line until EOF, "quit", "exit" or an interrupt.
// An interrupt ends the loop cleanly, even in the middle of a query.
func chat(ctx context.Context, session *af.Session, stdin io.Reader, stdout io.Writer) error {
	fmt.Fprintln(stdout, "Ask Contoso Travel anything (type 'quit' to exit)")
	fmt.Fprintln(stdout)

	readCtx, stopReading := context.WithCancel(ctx)
	defer stopReading()
	lines, scanErr := readLines(readCtx, stdin)
	for {
		fmt.Fprint(stdout, "You: ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(stdout)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(stdout)
				return <-scanErr
			}
			line = l
		}
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "quit" || input == "exit" {
			return nil
		}
		if err := ask(ctx, session, input, stdout); err != nil {
			if ctx.Err() != nil {
				fmt.Fprintln(stdout)
				return nil
			}
			fmt.Fprintf(stdout, "Error: %v\n", err)
		}
		fmt.Fprintln(stdout)
	}
}

// readLines scans r on its own goroutine so that a blocked read does not
// delay cancellation. The error channel yields once lines is closed.
func readLines(ctx context.Context, r io.Reader) (<-chan string, <-chan error) {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				errc <- nil
				return
			}
		}
		errc <- scanner.Err()
	}()
	return lines, errc
}

func ask(ctx context.Context, session *af.Session, query string, stdout io.Writer) error {
	answer, err := session.Submit(ctx, query)
	if err != nil {
		return err
	}
	printAnswer(stdout, answer)
	return nil
}

func printAnswer(w io.Writer, answer *af.FinalAnswer) {
	for _, entry := range answer.ToolTrace {
		fmt.Fprintf(w, "Calling: %s(%s)\n", entry.Call.Name, entry.Call.RawArguments)
		fmt.Fprintf(w, "Result: %s\n", entry.Result.Value)
	}
	if !answer.Answered() {
		fmt.Fprintln(w, "Assistant: (no answer produced)")
		return
	}
	fmt.Fprintf(w, "Assistant: %s\n", answer.Text)
	if answer.Usage.TotalTokens > 0 {
		fmt.Fprintf(w, "  [tokens: %d in, %d out]\n", answer.Usage.InputTokens, answer.Usage.OutputTokens)
	}
}

// printTools writes one line per tool followed by its parameters.
func printTools(w io.Writer, registry *af.Registry) error {
	for _, t := range registry.Tools() {
		fmt.Fprintf(w, "%s: %s\n", t.Name(), t.Description())
		params, err := af.DescribeParameters(t.Parameters())
		if err != nil {
			return fmt.Errorf("tool %s: %w", t.Name(), err)
		}
		for _, name := range af.ParameterNames(params) {
			p := params[name]
			req := ""
			if p.Required {
				req = ", required"
			}
			fmt.Fprintf(w, "  %s (%s%s): %s\n", name, p.Type, req, p.Description)
		}
	}
	return nil
}

func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
