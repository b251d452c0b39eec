package runtime

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/HourSense/shadow-agent-framework/core"
	"github.com/HourSense/shadow-agent-framework/permissions"
	"github.com/HourSense/shadow-agent-framework/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestSession(t *testing.T, id string) *storage.AgentSession {
	t.Helper()
	store := storage.WithDir(t.TempDir())
	session, err := storage.NewSession(id, "test-agent", "Test Agent", "A test agent", store)
	if err != nil {
		t.Fatal(err)
	}
	return session
}

// echoAgent responds to each UserInput with "Echo: <text>" and Done.
func echoAgent(ctx context.Context, internals *AgentInternals) error {
	for {
		internals.SetIdle()
		msg, err := internals.Receive(ctx)
		if err != nil {
			return nil
		}
		switch msg.Kind {
		case core.InputUserInput:
			internals.SetProcessing()
			internals.SendText("Echo: " + msg.Text)
			internals.SendDone()
		case core.InputShutdown:
			internals.SetDone()
			return nil
		}
	}
}

func TestEchoAgentDeliversToEarlySubscriber(t *testing.T) {
	ctx := context.Background()
	rt := NewRuntime()
	handle := rt.Spawn(ctx, newTestSession(t, "echo"), echoAgent)
	defer func() {
		_ = handle.Shutdown(ctx)
		_ = rt.WaitFor(ctx, "echo")
	}()

	// Subscribe BEFORE sending input: every chunk of the turn must be seen.
	sub := handle.Subscribe()
	if err := handle.SendInput(ctx, "hi"); err != nil {
		t.Fatal(err)
	}

	var sawText, sawDone bool
	deadline := time.After(5 * time.Second)
	for !sawDone {
		select {
		case chunk := <-sub.Chan():
			switch chunk.Kind {
			case core.ChunkTextDelta:
				if chunk.Text != "Echo: hi" {
					t.Errorf("text = %q", chunk.Text)
				}
				sawText = true
			case core.ChunkDone:
				sawDone = true
			}
		case <-deadline:
			t.Fatal("timed out waiting for chunks")
		}
	}
	if !sawText {
		t.Error("expected at least one TextDelta before Done")
	}
}

func TestRegistryLifecycle(t *testing.T) {
	ctx := context.Background()
	rt := NewRuntime()
	handle := rt.Spawn(ctx, newTestSession(t, "life"), echoAgent)

	if !rt.IsRunning("life") {
		t.Error("agent should be registered")
	}
	if rt.Count() != 1 {
		t.Errorf("count = %d", rt.Count())
	}
	if rt.Get("life") == nil {
		t.Error("Get should find the handle")
	}

	if err := rt.Shutdown(ctx, "life"); err != nil {
		t.Fatal(err)
	}
	if err := rt.WaitFor(ctx, "life"); err != nil {
		t.Fatal(err)
	}
	if rt.IsRunning("life") {
		t.Error("agent should be removed after termination")
	}

	// The handle stops accepting input once the task exited.
	if err := handle.SendInput(ctx, "too late"); err == nil {
		t.Error("send after termination should fail")
	}
}

func TestShutdownUnknownAgent(t *testing.T) {
	rt := NewRuntime()
	err := rt.Shutdown(context.Background(), "ghost")
	if err == nil {
		t.Fatal("expected error for unknown agent")
	}
}

func TestShutdownAll(t *testing.T) {
	ctx := context.Background()
	rt := NewRuntime()
	rt.Spawn(ctx, newTestSession(t, "one"), echoAgent)
	rt.Spawn(ctx, newTestSession(t, "two"), echoAgent)

	results := rt.ShutdownAll(ctx)
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
	if err := rt.WaitAll(ctx); err != nil {
		t.Fatal(err)
	}
	if rt.Count() != 0 {
		t.Errorf("count after WaitAll = %d", rt.Count())
	}
}

func TestStateVisibleThroughHandle(t *testing.T) {
	ctx := context.Background()
	rt := NewRuntime()

	entered := make(chan struct{})
	release := make(chan struct{})
	handle := rt.Spawn(ctx, newTestSession(t, "state"), func(ctx context.Context, internals *AgentInternals) error {
		internals.SetProcessing()
		close(entered)
		<-release
		internals.SetDone()
		return nil
	})

	<-entered
	if !handle.IsProcessing() {
		t.Error("handle should observe Processing")
	}
	close(release)
	if err := rt.WaitFor(ctx, "state"); err != nil {
		t.Fatal(err)
	}
}

func TestSpawnSubagentLineage(t *testing.T) {
	ctx := context.Background()
	rt := NewRuntime()

	store := storage.WithDir(t.TempDir())
	parentSession, err := storage.NewSession("parent", "main", "Parent", "", store)
	if err != nil {
		t.Fatal(err)
	}

	var parentInternals *AgentInternals
	captured := make(chan struct{})
	parentHandle := rt.Spawn(ctx, parentSession, func(ctx context.Context, internals *AgentInternals) error {
		parentInternals = internals
		close(captured)
		for {
			msg, err := internals.Receive(ctx)
			if err != nil || msg.Kind == core.InputShutdown {
				return nil
			}
		}
	})
	<-captured

	parentSub := parentHandle.Subscribe()

	childHandle, err := parentInternals.SpawnSubagent(ctx, "child", "worker", "Worker", "does work", "toolu_42", echoAgent)
	if err != nil {
		t.Fatal(err)
	}

	// SubAgentSpawned arrives on the parent's output channel.
	select {
	case chunk := <-parentSub.Chan():
		if chunk.Kind != core.ChunkSubAgentSpawned || chunk.SessionID != "child" || chunk.AgentType != "worker" {
			t.Errorf("unexpected chunk: %+v", chunk)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no SubAgentSpawned chunk")
	}

	// Lineage holds in both directions.
	childMeta, err := store.LoadMetadata("child")
	if err != nil {
		t.Fatal(err)
	}
	if childMeta.ParentSessionID != "parent" || childMeta.ParentToolUseID != "toolu_42" {
		t.Errorf("child lineage: %+v", childMeta)
	}
	parentMeta, err := store.LoadMetadata("parent")
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, id := range parentMeta.ChildSessionIDs {
		if id == "child" {
			found = true
		}
	}
	if !found {
		t.Error("parent must track the child session id")
	}

	// The manager registered the child.
	manager, ok := parentInternals.SubAgentManager()
	if !ok {
		t.Fatal("parent should carry a SubAgentManager")
	}
	if !manager.IsActive("child") {
		t.Error("child should be active in the manager")
	}

	_ = childHandle.Shutdown(ctx)
	_ = parentHandle.Shutdown(ctx)
	_ = rt.WaitAll(ctx)
}

func TestRequestPermissionRememberAddsSessionRule(t *testing.T) {
	ctx := context.Background()
	rt := NewRuntime()

	type outcome struct {
		allowed bool
		err     error
	}
	results := make(chan outcome, 1)
	handle := rt.Spawn(ctx, newTestSession(t, "perm"), func(ctx context.Context, internals *AgentInternals) error {
		allowed, err := internals.RequestPermission(ctx, "Bash", "Run command: ls", "ls")
		results <- outcome{allowed, err}
		// Rule was remembered; a second check passes without asking.
		if internals.CheckPermission("Bash", "ls -la") != permissions.Allowed {
			results <- outcome{false, nil}
		} else {
			results <- outcome{true, nil}
		}
		return nil
	})

	sub := handle.Subscribe()
	// Wait for the permission request, then answer with remember=true.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case chunk := <-sub.Chan():
			if chunk.Kind == core.ChunkPermissionRequest {
				if chunk.ToolName != "Bash" {
					t.Errorf("request for %q", chunk.ToolName)
				}
				if err := handle.SendPermissionResponse(ctx, "Bash", true, true); err != nil {
					t.Fatal(err)
				}
				goto answered
			}
		case <-deadline:
			t.Fatal("no permission request")
		}
	}
answered:
	first := <-results
	if first.err != nil || !first.allowed {
		t.Fatalf("permission outcome: %+v", first)
	}
	second := <-results
	if !second.allowed {
		t.Error("remembered rule should allow the prefixed command")
	}
	_ = rt.WaitAll(ctx)
}
