// Copyright (c) Microsoft. All rights reserved.

package agentframework_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	af "github.com/contoso/travelagent/agentframework"
)

type destinationArgs struct {
	Destination string `json:"destination" jsonschema:"description=The destination name,required"`
}

func temperatureTool() af.Tool {
	return af.NewTypedTool("get_destination_temperature", "Gets the temperature for a destination",
		func(ctx context.Context, args destinationArgs) (string, error) {
			if strings.EqualFold(args.Destination, "maldives") {
				return "82°F (28°C)", nil
			}
			return "Sorry, I don't have temperature data for " + args.Destination + ".", nil
		},
	)
}

func TestAgent_Identity(t *testing.T) {
	agent := af.NewAgent(&mockClient{}, af.WithName("test-agent"))
	if agent.Name() != "test-agent" {
		t.Errorf("Name = %q", agent.Name())
	}
	if agent.ID() == "" {
		t.Error("ID should not be empty")
	}
	s1, s2 := agent.NewSession(), agent.NewSession()
	if s1.ID() == "" || s1.ID() == s2.ID() {
		t.Errorf("session IDs = %q, %q", s1.ID(), s2.ID())
	}
}

func TestSession_DirectAnswer(t *testing.T) {
	client := &mockClient{passes: []pass{textPass("Contoso offers ", "luxury packages.")}}
	provider := af.ContextProviderFunc(func(ctx context.Context, query string) (*af.InvocationContext, error) {
		return &af.InvocationContext{Instructions: "Retrieved Context:\nluxury\n\nUser Query: " + query, Sources: []string{"1"}}, nil
	})
	agent := af.NewAgent(client,
		af.WithRegistry(af.MustRegistry(temperatureTool())),
		af.WithContextProvider(provider),
	)
	session := agent.NewSession()

	answer, err := session.Submit(context.Background(), "What does Contoso offer?")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if answer.Text != "Contoso offers luxury packages." {
		t.Errorf("Text = %q", answer.Text)
	}
	if len(answer.ToolTrace) != 0 {
		t.Errorf("ToolTrace = %v", answer.ToolTrace)
	}
	if len(answer.Sources) != 1 || answer.Sources[0] != "1" {
		t.Errorf("Sources = %v", answer.Sources)
	}
	if client.callCount() != 1 {
		t.Fatalf("model passes = %d, want 1", client.callCount())
	}
	if got := client.call(0).opts.ToolChoice; got != af.ToolChoiceAuto {
		t.Errorf("ToolChoice = %q, want auto", got)
	}

	history := session.History()
	wantRoles := []af.Role{af.RoleSystem, af.RoleUser, af.RoleAssistant}
	if len(history) != len(wantRoles) {
		t.Fatalf("history len = %d, want %d", len(history), len(wantRoles))
	}
	for i, r := range wantRoles {
		if history[i].Role != r {
			t.Errorf("history[%d].Role = %q, want %q", i, history[i].Role, r)
		}
		if history[i].MessageID == "" {
			t.Errorf("history[%d] has no MessageID", i)
		}
	}
	if !strings.HasPrefix(history[0].Text(), "Retrieved Context:") {
		t.Errorf("system turn = %q", history[0].Text())
	}
}

func TestSession_ToolRoundTrip(t *testing.T) {
	client := &mockClient{passes: []pass{
		toolPass(scriptedCall{"c1", "get_destination_temperature", `{"destination":"Maldives"}`}),
		textPass("It is 82°F in the Maldives."),
	}}
	agent := af.NewAgent(client, af.WithRegistry(af.MustRegistry(temperatureTool())))
	session := agent.NewSession()

	answer, err := session.Submit(context.Background(), "What is the weather in the Maldives?")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if answer.Text != "It is 82°F in the Maldives." {
		t.Errorf("Text = %q", answer.Text)
	}
	if len(answer.ToolTrace) != 1 {
		t.Fatalf("ToolTrace len = %d", len(answer.ToolTrace))
	}
	entry := answer.ToolTrace[0]
	if entry.Call.Arguments["destination"] != "Maldives" {
		t.Errorf("arguments = %v", entry.Call.Arguments)
	}
	if entry.Result.Value != "82°F (28°C)" || entry.Result.CallID != "c1" {
		t.Errorf("result = %+v", entry.Result)
	}

	if client.callCount() != 2 {
		t.Fatalf("model passes = %d, want 2", client.callCount())
	}
	second := client.call(1)
	if second.opts.ToolChoice != af.ToolChoiceNone {
		t.Errorf("second pass ToolChoice = %q, want none", second.opts.ToolChoice)
	}
	last := second.messages[len(second.messages)-1]
	if last.Role != af.RoleSystem || last.Text() != "Tool results:\n- get_destination_temperature: 82°F (28°C)" {
		t.Errorf("summary turn = %q (%s)", last.Text(), last.Role)
	}

	history := session.History()
	wantRoles := []af.Role{af.RoleUser, af.RoleAssistant, af.RoleTool, af.RoleSystem, af.RoleAssistant}
	if len(history) != len(wantRoles) {
		t.Fatalf("history len = %d, want %d", len(history), len(wantRoles))
	}
	for i, r := range wantRoles {
		if history[i].Role != r {
			t.Errorf("history[%d].Role = %q, want %q", i, history[i].Role, r)
		}
	}
	if calls := history[1].FunctionCalls(); len(calls) != 1 || calls[0].CallID != "c1" {
		t.Errorf("tool call turn = %+v", calls)
	}
}

func TestSession_ParallelDispatchKeepsOrder(t *testing.T) {
	var running, peak atomic.Int32
	slow := af.NewTypedTool("lookup", "Looks up a key",
		func(ctx context.Context, args struct {
			Key string `json:"key"`
		}) (string, error) {
			n := running.Add(1)
			defer running.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			if args.Key == "a" {
				time.Sleep(20 * time.Millisecond)
			}
			return "value-" + args.Key, nil
		},
	)

	client := &mockClient{passes: []pass{
		toolPass(
			scriptedCall{"c1", "lookup", `{"key":"a"}`},
			scriptedCall{"c2", "lookup", `{"key":"b"}`},
			scriptedCall{"c3", "lookup", `{"key":"c"}`},
		),
		textPass("done"),
	}}
	agent := af.NewAgent(client,
		af.WithRegistry(af.MustRegistry(slow)),
		af.WithInvocationConfig(af.InvocationConfig{MaxConcurrentTools: 2, IncludeDetailedErrors: true}),
	)

	answer, err := agent.NewSession().Submit(context.Background(), "q")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	want := []string{"value-a", "value-b", "value-c"}
	if len(answer.ToolTrace) != len(want) {
		t.Fatalf("ToolTrace len = %d", len(answer.ToolTrace))
	}
	for i, w := range want {
		if answer.ToolTrace[i].Result.Value != w {
			t.Errorf("result[%d] = %q, want %q", i, answer.ToolTrace[i].Result.Value, w)
		}
	}
	if peak.Load() > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak.Load())
	}
}

func TestSession_MalformedArgumentsDoNotAbortSiblings(t *testing.T) {
	client := &mockClient{passes: []pass{
		toolPass(
			scriptedCall{"c1", "get_destination_temperature", `{"destination":`},
			scriptedCall{"c2", "get_destination_temperature", `{"destination":"Maldives"}`},
		),
		textPass("partial answer"),
	}}
	agent := af.NewAgent(client, af.WithRegistry(af.MustRegistry(temperatureTool())))

	answer, err := agent.NewSession().Submit(context.Background(), "q")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(answer.ToolTrace) != 2 {
		t.Fatalf("ToolTrace len = %d", len(answer.ToolTrace))
	}
	if got := answer.ToolTrace[0].Result.Value; !strings.Contains(got, "could not parse arguments") {
		t.Errorf("malformed result = %q", got)
	}
	if answer.ToolTrace[0].Call.Arguments != nil {
		t.Errorf("malformed call decoded to %v", answer.ToolTrace[0].Call.Arguments)
	}
	if got := answer.ToolTrace[1].Result.Value; got != "82°F (28°C)" {
		t.Errorf("sibling result = %q", got)
	}
}

func TestSession_UnknownToolFallback(t *testing.T) {
	client := &mockClient{passes: []pass{
		toolPass(scriptedCall{"c1", "get_weather", `{}`}),
		textPass("I can't check that."),
	}}
	agent := af.NewAgent(client, af.WithRegistry(af.MustRegistry(temperatureTool())))

	answer, err := agent.NewSession().Submit(context.Background(), "q")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	want := `Unknown function "get_weather". Available functions are: get_destination_temperature.`
	if got := answer.ToolTrace[0].Result.Value; got != want {
		t.Errorf("result = %q, want %q", got, want)
	}
}

func TestSession_ToolErrorAndPanicBecomeText(t *testing.T) {
	failing := af.NewTool("failing", "Always fails", json.RawMessage(`{"type":"object"}`),
		func(ctx context.Context, args json.RawMessage) (string, error) {
			return "", errors.New("backend down")
		},
	)
	panicky := af.NewTool("panicky", "Always panics", json.RawMessage(`{"type":"object"}`),
		func(ctx context.Context, args json.RawMessage) (string, error) {
			panic("boom")
		},
	)
	client := &mockClient{passes: []pass{
		toolPass(scriptedCall{"c1", "failing", `{}`}, scriptedCall{"c2", "panicky", ""}),
		textPass("sorry"),
	}}
	agent := af.NewAgent(client, af.WithRegistry(af.MustRegistry(failing, panicky)))

	answer, err := agent.NewSession().Submit(context.Background(), "q")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got := answer.ToolTrace[0].Result.Value; got != "Error: failing failed: backend down" {
		t.Errorf("error result = %q", got)
	}
	if got := answer.ToolTrace[1].Result.Value; !strings.Contains(got, "panic: boom") {
		t.Errorf("panic result = %q", got)
	}
}

func TestSession_MissingCallIDIsGenerated(t *testing.T) {
	client := &mockClient{passes: []pass{
		toolPass(scriptedCall{"", "get_destination_temperature", `{"destination":"Maldives"}`}),
		textPass("ok"),
	}}
	agent := af.NewAgent(client, af.WithRegistry(af.MustRegistry(temperatureTool())))

	answer, err := agent.NewSession().Submit(context.Background(), "q")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	entry := answer.ToolTrace[0]
	if entry.Call.ID == "" || entry.Result.CallID != entry.Call.ID {
		t.Errorf("call ID = %q, result call ID = %q", entry.Call.ID, entry.Result.CallID)
	}
}

func TestSession_StreamFailureCommitsNothing(t *testing.T) {
	client := &mockClient{passes: []pass{
		textPass("first answer"),
		{
			updates: textPass("partial ").updates[:1],
			err:     af.ErrModelStreamMalformed,
		},
	}}
	agent := af.NewAgent(client)
	session := agent.NewSession()

	if _, err := session.Submit(context.Background(), "first"); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	before := session.Len()

	_, err := session.Submit(context.Background(), "second")
	if !errors.Is(err, af.ErrModelStreamAborted) {
		t.Fatalf("err = %v, want ErrModelStreamAborted", err)
	}
	if !errors.Is(err, af.ErrModelStreamMalformed) {
		t.Errorf("err = %v, want cause preserved", err)
	}
	if session.Len() != before {
		t.Errorf("history len = %d, want %d", session.Len(), before)
	}
}

func TestSession_SecondPassFailureCommitsNothing(t *testing.T) {
	client := &mockClient{passes: []pass{
		toolPass(scriptedCall{"c1", "get_destination_temperature", `{"destination":"Maldives"}`}),
		{err: af.ErrService},
	}}
	agent := af.NewAgent(client, af.WithRegistry(af.MustRegistry(temperatureTool())))
	session := agent.NewSession()

	if _, err := session.Submit(context.Background(), "q"); !errors.Is(err, af.ErrModelStreamAborted) {
		t.Fatalf("err = %v, want ErrModelStreamAborted", err)
	}
	if session.Len() != 0 {
		t.Errorf("history len = %d, want 0", session.Len())
	}
}

func TestSession_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &mockClient{passes: []pass{textPass("never seen")}}
	session := af.NewAgent(client).NewSession()

	if _, err := session.Submit(ctx, "q"); !errors.Is(err, af.ErrModelStreamAborted) {
		t.Fatalf("err = %v, want ErrModelStreamAborted", err)
	}
	if session.Len() != 0 {
		t.Errorf("history len = %d, want 0", session.Len())
	}
}

func TestSession_EmptyAnswer(t *testing.T) {
	client := &mockClient{passes: []pass{{updates: []af.ChatResponseUpdate{{FinishReason: af.FinishReasonStop}}}}}
	session := af.NewAgent(client).NewSession()

	answer, err := session.Submit(context.Background(), "q")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if answer.Answered() {
		t.Errorf("Answered() = true, text %q", answer.Text)
	}
	history := session.History()
	if len(history) != 1 || history[0].Role != af.RoleUser {
		t.Errorf("history = %+v, want only the user turn", history)
	}
}

func TestSession_InstructionsAreNotRecorded(t *testing.T) {
	client := &mockClient{passes: []pass{textPass("hi")}}
	session := af.NewAgent(client, af.WithInstructions("You are a travel agent.")).NewSession()

	if _, err := session.Submit(context.Background(), "hello"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	msgs := client.call(0).messages
	if msgs[0].Role != af.RoleSystem || msgs[0].Text() != "You are a travel agent." {
		t.Errorf("first message = %+v", msgs[0])
	}
	for _, m := range session.History() {
		if m.Text() == "You are a travel agent." {
			t.Error("instructions were recorded in the conversation")
		}
	}
}

func TestSession_DefaultOptionsReachEveryPass(t *testing.T) {
	client := &mockClient{passes: []pass{
		toolPass(scriptedCall{"c1", "get_destination_temperature", `{"destination":"Maldives"}`}),
		textPass("ok"),
	}}
	temperature := 0.2
	agent := af.NewAgent(client,
		af.WithRegistry(af.MustRegistry(temperatureTool())),
		af.WithDefaultOptions(&af.ChatOptions{
			Temperature: &temperature,
			Tools:       []af.Tool{namedTool("stray")},
			ToolChoice:  af.ToolChoiceRequired,
		}),
	)

	if _, err := agent.NewSession().Submit(context.Background(), "q"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	for i, want := range []af.ToolChoice{af.ToolChoiceAuto, af.ToolChoiceNone} {
		opts := client.call(i).opts
		if opts.Temperature == nil || *opts.Temperature != 0.2 {
			t.Errorf("pass %d temperature = %v", i, opts.Temperature)
		}
		if opts.ToolChoice != want {
			t.Errorf("pass %d ToolChoice = %q, want %q", i, opts.ToolChoice, want)
		}
		if len(opts.Tools) != 1 || opts.Tools[0].Name() != "get_destination_temperature" {
			t.Errorf("pass %d tools = %v", i, opts.Tools)
		}
	}
}

func TestSession_UsageIsSummed(t *testing.T) {
	first := toolPass(scriptedCall{"c1", "get_destination_temperature", `{"destination":"Maldives"}`})
	first.updates = append(first.updates, af.ChatResponseUpdate{Usage: af.UsageDetails{InputTokens: 10, OutputTokens: 2, TotalTokens: 12}})
	second := textPass("ok")
	second.updates = append(second.updates, af.ChatResponseUpdate{Usage: af.UsageDetails{InputTokens: 20, OutputTokens: 3, TotalTokens: 23}})

	client := &mockClient{passes: []pass{first, second}}
	agent := af.NewAgent(client, af.WithRegistry(af.MustRegistry(temperatureTool())))

	session := agent.NewSession()
	answer, err := session.Submit(context.Background(), "q")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if answer.Usage.TotalTokens != 35 || answer.Usage.InputTokens != 30 {
		t.Errorf("Usage = %+v", answer.Usage)
	}

	history := session.History()
	final := history[len(history)-1]
	if final.Role != af.RoleAssistant || final.Text() != "ok" {
		t.Fatalf("final turn = %q (%s)", final.Text(), final.Role)
	}
	var recorded *af.UsageContent
	for _, c := range final.Contents {
		if uc, ok := c.(*af.UsageContent); ok {
			recorded = uc
		}
	}
	if recorded == nil || recorded.Usage != answer.Usage {
		t.Errorf("usage on final turn = %+v, want %+v", recorded, answer.Usage)
	}
}

func TestSession_NoUsageRecordedWhenUnreported(t *testing.T) {
	client := &mockClient{passes: []pass{textPass("ok")}}
	session := af.NewAgent(client).NewSession()

	if _, err := session.Submit(context.Background(), "q"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	history := session.History()
	if final := history[len(history)-1]; len(final.Contents) != 1 {
		t.Errorf("final turn contents = %v, want text only", final.Contents)
	}
}

func TestSession_HistoryCarriesAcrossQueries(t *testing.T) {
	client := &mockClient{passes: []pass{textPass("one"), textPass("two")}}
	session := af.NewAgent(client).NewSession()

	for _, q := range []string{"first", "second"} {
		if _, err := session.Submit(context.Background(), q); err != nil {
			t.Fatalf("Submit(%q): %v", q, err)
		}
	}
	msgs := client.call(1).messages
	if len(msgs) != 3 {
		t.Fatalf("second pass saw %d messages, want 3", len(msgs))
	}
	if msgs[0].Text() != "first" || msgs[1].Text() != "one" || msgs[2].Text() != "second" {
		t.Errorf("messages = %q, %q, %q", msgs[0].Text(), msgs[1].Text(), msgs[2].Text())
	}
}
