package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/HourSense/shadow-agent-framework/core"
)

func TestAskUserQuestionRoundTrip(t *testing.T) {
	internals, handle := newTestInternals(t)
	sub := handle.Subscribe()

	input, _ := json.Marshal(map[string]any{
		"questions": []map[string]any{{
			"question": "Which database?",
			"header":   "Database",
			"options": []map[string]string{
				{"label": "Postgres"},
				{"label": "SQLite"},
			},
		}},
	})

	type outcome struct {
		result core.ToolResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := NewAskUserQuestionTool().Execute(context.Background(), input, internals)
		done <- outcome{result, err}
	}()

	// The question arrives on the output channel with a request id.
	var requestID string
	deadline := time.After(5 * time.Second)
	for requestID == "" {
		select {
		case chunk := <-sub.Chan():
			if chunk.Kind == core.ChunkAskUserQuestion {
				if len(chunk.Questions) != 1 || chunk.Questions[0].Header != "Database" {
					t.Errorf("questions: %+v", chunk.Questions)
				}
				requestID = chunk.RequestID
			}
		case <-deadline:
			t.Fatal("no question chunk")
		}
	}

	if err := handle.SendUserQuestionResponse(context.Background(),
		requestID, map[string]string{"Which database?": "SQLite"}); err != nil {
		t.Fatal(err)
	}

	result := <-done
	if result.err != nil {
		t.Fatal(result.err)
	}
	if result.result.IsError {
		t.Fatalf("error result: %s", result.result.Output)
	}
	if !strings.Contains(result.result.Output, "SQLite") {
		t.Errorf("answer missing from result: %q", result.result.Output)
	}
}

func TestAskUserQuestionValidatesShape(t *testing.T) {
	internals, _ := newTestInternals(t)

	// Too few options.
	input := json.RawMessage(`{"questions":[{"question":"q","header":"h","options":[{"label":"only"}]}]}`)
	result, err := NewAskUserQuestionTool().Execute(context.Background(), input, internals)
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("single option must be rejected")
	}

	// No questions.
	input = json.RawMessage(`{"questions":[]}`)
	result, err = NewAskUserQuestionTool().Execute(context.Background(), input, internals)
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("empty question list must be rejected")
	}
}

func TestAskUserQuestionInterrupted(t *testing.T) {
	internals, handle := newTestInternals(t)

	input := json.RawMessage(`{"questions":[{"question":"q?","header":"h","options":[{"label":"a"},{"label":"b"}]}]}`)

	done := make(chan core.ToolResult, 1)
	go func() {
		result, _ := NewAskUserQuestionTool().Execute(context.Background(), input, internals)
		done <- result
	}()

	// Give the tool a moment to start waiting, then interrupt.
	time.Sleep(20 * time.Millisecond)
	if err := handle.Interrupt(context.Background()); err != nil {
		t.Fatal(err)
	}

	select {
	case result := <-done:
		if !result.IsError || result.Output != "Interrupted" {
			t.Errorf("result: %+v", result)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("tool did not observe the interrupt")
	}
}

func TestHeaderTruncatedToTwelveChars(t *testing.T) {
	internals, handle := newTestInternals(t)
	sub := handle.Subscribe()

	input := json.RawMessage(`{"questions":[{"question":"q?","header":"much-too-long-header","options":[{"label":"a"},{"label":"b"}]}]}`)
	go func() {
		_, _ = NewAskUserQuestionTool().Execute(context.Background(), input, internals)
	}()

	select {
	case chunk := <-sub.Chan():
		if chunk.Kind != core.ChunkAskUserQuestion {
			t.Fatalf("unexpected chunk %v", chunk.Kind)
		}
		if len(chunk.Questions[0].Header) > 12 {
			t.Errorf("header not truncated: %q", chunk.Questions[0].Header)
		}
		_ = handle.SendUserQuestionResponse(context.Background(), chunk.RequestID, nil)
	case <-time.After(5 * time.Second):
		t.Fatal("no question chunk")
	}
}
