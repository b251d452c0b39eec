// Todo List Manager and TodoWrite tool.
//
// The manager lives in the agent's resource map; the tool finds it
// through the internals and replaces the list on each call. The turn of
// the last update is tracked so context injections can nudge the agent
// when the list goes stale.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/HourSense/shadow-agent-framework/core"
	"github.com/HourSense/shadow-agent-framework/llm"
	"github.com/HourSense/shadow-agent-framework/runtime"
)

// TodoStatus is the state of one todo item.
type TodoStatus string

const (
	TodoPending    TodoStatus = "pending"
	TodoInProgress TodoStatus = "in_progress"
	TodoCompleted  TodoStatus = "completed"
)

// TodoItem is a single task on the agent's todo list.
type TodoItem struct {
	Content    string     `json:"content" jsonschema:"description=The imperative form describing what needs to be done"`
	Status     TodoStatus `json:"status" jsonschema:"description=Current status of the task,enum=pending,enum=in_progress,enum=completed"`
	ActiveForm string     `json:"activeForm" jsonschema:"description=The present continuous form shown during execution"`
}

// TodoListManager holds the agent's todo list. Stored in the agent's
// resource map and shared with context injections.
type TodoListManager struct {
	mu              sync.RWMutex
	items           []TodoItem
	lastUpdatedTurn int
}

// NewTodoListManager creates an empty manager.
func NewTodoListManager() *TodoListManager {
	return &TodoListManager{}
}

// Todos returns a copy of the current list.
func (m *TodoListManager) Todos() []TodoItem {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]TodoItem, len(m.items))
	copy(out, m.items)
	return out
}

// SetTodos replaces the list and records the update turn.
func (m *TodoListManager) SetTodos(items []TodoItem, turn int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = items
	m.lastUpdatedTurn = turn
}

// LastUpdatedTurn returns the turn of the last update.
func (m *TodoListManager) LastUpdatedTurn() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastUpdatedTurn
}

// Render formats the list for display or injection.
func (m *TodoListManager) Render() string {
	todos := m.Todos()
	if len(todos) == 0 {
		return "(todo list is empty)"
	}

	var b strings.Builder
	pending, inProgress, completed := 0, 0, 0
	for _, item := range todos {
		icon := "[ ]"
		switch item.Status {
		case TodoInProgress:
			icon = "[~]"
			inProgress++
		case TodoCompleted:
			icon = "[x]"
			completed++
		default:
			pending++
		}
		fmt.Fprintf(&b, "%s %s\n", icon, item.Content)
	}
	fmt.Fprintf(&b, "\nSummary: %d pending, %d in progress, %d completed\n", pending, inProgress, completed)
	return b.String()
}

// TodoWriteTool replaces the agent's todo list.
type TodoWriteTool struct{}

// NewTodoWriteTool creates the tool.
func NewTodoWriteTool() *TodoWriteTool { return &TodoWriteTool{} }

type todoWriteInput struct {
	Todos []TodoItem `json:"todos" jsonschema:"description=The full updated todo list"`
}

func (t *TodoWriteTool) Name() string { return "TodoWrite" }

func (t *TodoWriteTool) Description() string {
	return "Update the task list for the current session."
}

func (t *TodoWriteTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name: t.Name(),
		Description: "Create and update a structured task list for the current session. " +
			"Each todo has content (what to do), status (pending/in_progress/completed), " +
			"and activeForm (shown while the task is in progress). The call replaces the " +
			"entire list.",
		InputSchema: ReflectSchema[todoWriteInput](),
	}
}

func (t *TodoWriteTool) Info(input json.RawMessage) ToolInfo {
	var args todoWriteInput
	_ = json.Unmarshal(input, &args)
	return ToolInfo{
		Name:              t.Name(),
		ActionDescription: fmt.Sprintf("Update todo list (%d items)", len(args.Todos)),
	}
}

func (t *TodoWriteTool) RequiresPermission() bool { return false }

func (t *TodoWriteTool) Execute(_ context.Context, input json.RawMessage, internals *runtime.AgentInternals) (core.ToolResult, error) {
	var args todoWriteInput
	if err := json.Unmarshal(input, &args); err != nil {
		return core.ErrorResult(fmt.Sprintf("invalid input: %v", err)), nil
	}

	manager, ok := core.Resource[*TodoListManager](internals.Context.Resources)
	if !ok {
		manager = NewTodoListManager()
		internals.Context.Resources.Put(manager)
	}

	for _, item := range args.Todos {
		switch item.Status {
		case TodoPending, TodoInProgress, TodoCompleted:
		default:
			return core.ErrorResult(fmt.Sprintf("invalid todo status %q", item.Status)), nil
		}
	}

	manager.SetTodos(args.Todos, internals.Context.CurrentTurn)
	return core.SuccessResult(manager.Render()), nil
}

var _ Tool = (*TodoWriteTool)(nil)
