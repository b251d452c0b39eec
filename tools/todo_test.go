package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/HourSense/shadow-agent-framework/core"
)

func TestTodoManagerRender(t *testing.T) {
	manager := NewTodoListManager()
	if !strings.Contains(manager.Render(), "empty") {
		t.Error("empty list should say so")
	}

	manager.SetTodos([]TodoItem{
		{Content: "Fix bug", Status: TodoCompleted, ActiveForm: "Fixing bug"},
		{Content: "Write tests", Status: TodoInProgress, ActiveForm: "Writing tests"},
		{Content: "Ship it", Status: TodoPending, ActiveForm: "Shipping"},
	}, 3)

	rendered := manager.Render()
	if !strings.Contains(rendered, "[x] Fix bug") {
		t.Errorf("completed marker missing:\n%s", rendered)
	}
	if !strings.Contains(rendered, "[~] Write tests") {
		t.Errorf("in-progress marker missing:\n%s", rendered)
	}
	if !strings.Contains(rendered, "1 pending, 1 in progress, 1 completed") {
		t.Errorf("summary missing:\n%s", rendered)
	}
	if manager.LastUpdatedTurn() != 3 {
		t.Errorf("last updated turn = %d", manager.LastUpdatedTurn())
	}
}

func TestTodoWriteUpdatesManager(t *testing.T) {
	internals, _ := newTestInternals(t)
	manager := NewTodoListManager()
	internals.Context.Resources.Put(manager)

	input, _ := json.Marshal(map[string]any{
		"todos": []TodoItem{
			{Content: "Task one", Status: TodoPending, ActiveForm: "Doing task one"},
		},
	})
	result, err := NewTodoWriteTool().Execute(context.Background(), input, internals)
	if err != nil {
		t.Fatal(err)
	}
	if result.IsError {
		t.Fatalf("error result: %s", result.Output)
	}

	todos := manager.Todos()
	if len(todos) != 1 || todos[0].Content != "Task one" {
		t.Errorf("todos = %+v", todos)
	}
}

func TestTodoWriteRejectsBadStatus(t *testing.T) {
	internals, _ := newTestInternals(t)

	input := json.RawMessage(`{"todos":[{"content":"x","status":"unknown","activeForm":"y"}]}`)
	result, err := NewTodoWriteTool().Execute(context.Background(), input, internals)
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("invalid status should be an error result")
	}
}

func TestTodoWriteCreatesManagerWhenMissing(t *testing.T) {
	internals, _ := newTestInternals(t)

	input := json.RawMessage(`{"todos":[{"content":"x","status":"pending","activeForm":"y"}]}`)
	if _, err := NewTodoWriteTool().Execute(context.Background(), input, internals); err != nil {
		t.Fatal(err)
	}

	if _, ok := core.Resource[*TodoListManager](internals.Context.Resources); !ok {
		t.Error("tool should install a manager when none exists")
	}
}
