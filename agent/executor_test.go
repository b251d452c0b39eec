package agent

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/HourSense/shadow-agent-framework/core"
	"github.com/HourSense/shadow-agent-framework/hooks"
	"github.com/HourSense/shadow-agent-framework/llm"
	"github.com/HourSense/shadow-agent-framework/permissions"
	"github.com/HourSense/shadow-agent-framework/runtime"
	"github.com/HourSense/shadow-agent-framework/storage"
	"github.com/HourSense/shadow-agent-framework/tools"
)

func newExecutorFixture(t *testing.T, hookRegistry *hooks.Registry) (*ToolExecutor, *runtime.AgentInternals) {
	t.Helper()
	store := storage.WithDir(t.TempDir())
	session, err := storage.NewSession("exec-test", "test-agent", "Test", "Testing", store)
	if err != nil {
		t.Fatal(err)
	}
	agentContext := core.NewAgentContext("exec-test", "test-agent", "Test", "Testing")
	perms := permissions.NewManager(permissions.NewGlobal(), "test-agent")
	internals, _ := runtime.NewAgentPair(session, agentContext, perms)

	registry := tools.NewRegistry()
	if err := registry.Register(fakeShellTool{}); err != nil {
		t.Fatal(err)
	}
	if err := registry.Register(noopTool{}); err != nil {
		t.Fatal(err)
	}
	return NewToolExecutor(registry, hookRegistry), internals
}

func TestHookDenyWinsOverAllow(t *testing.T) {
	registry := hooks.NewRegistry()
	registry.AddFunc(hooks.PreToolUse, func(*hooks.Context) hooks.Result { return hooks.Allow() })
	registry.AddFunc(hooks.PreToolUse, func(*hooks.Context) hooks.Result { return hooks.Deny("dangerous") })

	executor, internals := newExecutorFixture(t, registry)
	result, err := executor.Execute(context.Background(), internals, "Bash", "toolu_1", json.RawMessage(`{"command":"rm -rf /"}`))
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError || !strings.Contains(result.Output, "dangerous") {
		t.Errorf("deny must win: %+v", result)
	}
}

func TestHookAllowSkipsPermissionCheck(t *testing.T) {
	registry := hooks.NewRegistry()
	registry.AddFunc(hooks.PreToolUse, func(*hooks.Context) hooks.Result { return hooks.Allow() })

	executor, internals := newExecutorFixture(t, registry)
	// Non-interactive: without the hook this would be denied.
	internals.SetInteractive(false)

	result, err := executor.Execute(context.Background(), internals, "Bash", "toolu_1", json.RawMessage(`{"command":"ls"}`))
	if err != nil {
		t.Fatal(err)
	}
	if result.IsError {
		t.Errorf("hook allow should bypass the permission check: %+v", result)
	}
	if result.Output != "ran: ls" {
		t.Errorf("output = %q", result.Output)
	}
}

func TestNonInteractiveAskBecomesDenied(t *testing.T) {
	executor, internals := newExecutorFixture(t, nil)
	internals.SetInteractive(false)

	result, err := executor.Execute(context.Background(), internals, "Bash", "toolu_1", json.RawMessage(`{"command":"ls"}`))
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError || !strings.Contains(result.Output, "Permission denied") {
		t.Errorf("expected denial: %+v", result)
	}
}

func TestHookRewritesToolInput(t *testing.T) {
	registry := hooks.NewRegistry()
	registry.AddFunc(hooks.PreToolUse, func(ctx *hooks.Context) hooks.Result {
		ctx.ToolInput = json.RawMessage(`{"command":"echo rewritten"}`)
		return hooks.Allow()
	})

	executor, internals := newExecutorFixture(t, registry)
	result, err := executor.Execute(context.Background(), internals, "Bash", "toolu_1", json.RawMessage(`{"command":"original"}`))
	if err != nil {
		t.Fatal(err)
	}
	if result.Output != "ran: echo rewritten" {
		t.Errorf("rewritten input not used: %q", result.Output)
	}
}

func TestSchemaValidationFailure(t *testing.T) {
	executor, internals := newExecutorFixture(t, nil)
	// Pre-authorize so validation is what fails, not permission.
	internals.Permissions.AddRule(permissions.AllowToolRule("Bash"), permissions.ScopeSession)

	result, err := executor.Execute(context.Background(), internals, "Bash", "toolu_1", json.RawMessage(`{"command":42}`))
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError || !strings.Contains(result.Output, "Invalid input") {
		t.Errorf("expected validation error result: %+v", result)
	}
}

func TestUnknownToolIsErrorResult(t *testing.T) {
	executor, internals := newExecutorFixture(t, nil)
	result, err := executor.Execute(context.Background(), internals, "Noop", "toolu_1", json.RawMessage(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	if result.IsError {
		t.Fatalf("noop should succeed: %+v", result)
	}

	internals.Permissions.AddRule(permissions.AllowToolRule("Missing"), permissions.ScopeSession)
	result, err = executor.Execute(context.Background(), internals, "Missing", "toolu_2", json.RawMessage(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("unknown tool must produce an error result")
	}
}

func TestPostToolUseFailureHookRuns(t *testing.T) {
	failureRan := false
	successRan := false
	registry := hooks.NewRegistry()
	registry.AddFunc(hooks.PostToolUse, func(*hooks.Context) hooks.Result {
		successRan = true
		return hooks.None()
	})
	registry.AddFunc(hooks.PostToolUseFailure, func(ctx *hooks.Context) hooks.Result {
		failureRan = true
		if ctx.Error == "" {
			t.Error("failure hook should see the error message")
		}
		return hooks.None()
	})

	executor, internals := newExecutorFixture(t, registry)
	internals.Permissions.AddRule(permissions.AllowToolRule("Missing"), permissions.ScopeSession)

	// Unknown tool produces an error result → failure hook.
	if _, err := executor.Execute(context.Background(), internals, "Missing", "toolu_1", json.RawMessage(`{}`)); err != nil {
		t.Fatal(err)
	}
	if !failureRan {
		t.Error("PostToolUseFailure should run on failure")
	}
	if successRan {
		t.Error("PostToolUse must not run on failure")
	}
}

func TestResultBlockMediaRouting(t *testing.T) {
	text := ResultBlock("toolu_1", core.SuccessResult("plain"))
	if text.Type != llm.BlockToolResult || text.Content.Text != "plain" {
		t.Errorf("text routing: %+v", text)
	}

	media := ResultBlock("toolu_2", core.MediaResult("a chart", core.MediaOutput{
		Kind: core.MediaImage, MediaType: "image/png", Data: "aGk=",
	}))
	if media.Content == nil || !media.Content.IsBlocks() {
		t.Fatal("media result should nest blocks")
	}
	inner := media.Content.Blocks
	if len(inner) != 2 || inner[0].Type != llm.BlockText || inner[1].Type != llm.BlockImage {
		t.Errorf("inner blocks: %+v", inner)
	}

	doc := ResultBlock("toolu_3", core.MediaResult("a report", core.MediaOutput{
		Kind: core.MediaDocument, MediaType: "application/pdf", Data: "aGk=",
	}))
	if doc.Content.Blocks[1].Type != llm.BlockDocument {
		t.Errorf("document routing: %+v", doc.Content.Blocks)
	}
}
