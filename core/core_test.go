package core

import (
	"encoding/json"
	"testing"
)

func TestStateChecks(t *testing.T) {
	if !Done().IsTerminal() {
		t.Error("Done is terminal")
	}
	if !ErrorState("oops").IsTerminal() {
		t.Error("Error is terminal")
	}
	if Idle().IsTerminal() {
		t.Error("Idle is not terminal")
	}

	if !Processing().IsActive() {
		t.Error("Processing is active")
	}
	if !ExecutingTool("Bash", "toolu_1").IsActive() {
		t.Error("ExecutingTool is active")
	}
	if Idle().IsActive() {
		t.Error("Idle is not active")
	}

	if !Idle().IsWaiting() {
		t.Error("Idle is waiting")
	}
	if !WaitingForPermission().IsWaiting() {
		t.Error("WaitingForPermission is waiting")
	}
	if Processing().IsWaiting() {
		t.Error("Processing is not waiting")
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state AgentState
		want  string
	}{
		{Idle(), "Idle"},
		{ExecutingTool("Bash", "toolu_1"), "Executing tool: Bash"},
		{WaitingForSubAgent("sub-1"), "Waiting for subagent: sub-1"},
		{ErrorState("boom"), "Error: boom"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestOutputChunkChecks(t *testing.T) {
	if !DoneChunk().IsTerminal() {
		t.Error("Done is terminal")
	}
	if !ErrorChunk("oops").IsTerminal() {
		t.Error("Error is terminal")
	}
	if TextDelta("hello").IsTerminal() {
		t.Error("TextDelta is not terminal")
	}

	if !TextDelta("hello").IsText() {
		t.Error("TextDelta is text")
	}
	if !TextComplete("hello").IsText() {
		t.Error("TextComplete is text")
	}
	if !ThinkingDelta("hmm").IsThinking() {
		t.Error("ThinkingDelta is thinking")
	}
	if !ToolStart("id", "Bash", nil).IsTool() {
		t.Error("ToolStart is a tool chunk")
	}
}

func TestInputMessageConstructors(t *testing.T) {
	msg := UserInput("hello")
	if msg.Kind != InputUserInput || msg.Text != "hello" {
		t.Errorf("UserInput: %+v", msg)
	}

	perm := PermissionResponse("Bash", true, false)
	if perm.Kind != InputPermissionResponse || !perm.Allowed || perm.Remember {
		t.Errorf("PermissionResponse: %+v", perm)
	}

	if Interrupt().Kind != InputInterrupt {
		t.Error("Interrupt kind mismatch")
	}
	if Shutdown().Kind != InputShutdown {
		t.Error("Shutdown kind mismatch")
	}
}

func TestToolResultConstructors(t *testing.T) {
	ok := SuccessResult("out")
	if ok.IsError || ok.Output != "out" {
		t.Errorf("SuccessResult: %+v", ok)
	}

	bad := ErrorResult("nope")
	if !bad.IsError {
		t.Errorf("ErrorResult: %+v", bad)
	}

	media := MediaResult("a chart", MediaOutput{Kind: MediaImage, MediaType: "image/png", Data: "aGk="})
	if media.Media == nil || media.Media.Description != "a chart" {
		t.Errorf("MediaResult: %+v", media)
	}
	if media.Output != "a chart" {
		t.Errorf("media result output should be the description: %q", media.Output)
	}
}

type todoStub struct{ count int }

func TestResourceMap(t *testing.T) {
	resources := NewResourceMap()

	if _, ok := Resource[*todoStub](resources); ok {
		t.Error("empty map should miss")
	}

	stub := &todoStub{count: 3}
	resources.Put(stub)

	got, ok := Resource[*todoStub](resources)
	if !ok {
		t.Fatal("expected resource hit")
	}
	if got.count != 3 {
		t.Errorf("wrong resource: %+v", got)
	}

	// Replacement by type.
	resources.Put(&todoStub{count: 7})
	got, _ = Resource[*todoStub](resources)
	if got.count != 7 {
		t.Errorf("expected replacement, got %+v", got)
	}

	resources.Remove(got)
	if _, ok := Resource[*todoStub](resources); ok {
		t.Error("resource should be removed")
	}
}

func TestAgentContext(t *testing.T) {
	ctx := NewAgentContext("sess-1", "coder", "Coder", "writes code")
	if ctx.IsSubagent() {
		t.Error("root context is not a subagent")
	}

	ctx.NextTurn()
	ctx.NextTurn()
	if ctx.CurrentTurn != 2 {
		t.Errorf("turn = %d, want 2", ctx.CurrentTurn)
	}

	ctx.SetMetadata("key", json.RawMessage(`"value"`))
	if raw, ok := ctx.GetMetadata("key"); !ok || string(raw) != `"value"` {
		t.Errorf("metadata round-trip failed: %s", raw)
	}

	sub := NewSubagentContext("sub-1", "worker", "Worker", "helps", "sess-1", "toolu_9")
	if !sub.IsSubagent() {
		t.Error("subagent context must report IsSubagent")
	}
	if sub.ParentSessionID != "sess-1" || sub.ParentToolUseID != "toolu_9" {
		t.Errorf("lineage fields: %+v", sub)
	}
}

func TestInterruptMarkerLiteral(t *testing.T) {
	if InterruptMarker != "<system>User interrupted this message</system>" {
		t.Errorf("interrupt marker literal changed: %q", InterruptMarker)
	}
}
