// SpawnAgent Tool - Recursive sub-agent spawning.
//
// Any agent carrying this tool can delegate a task to a fresh subagent.
// The subagent executes independently with its own session (linked to
// the parent in both directions), returns only its answer, and is shut
// down. Sub-agents given this tool can spawn their own sub-agents.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/HourSense/shadow-agent-framework/core"
	"github.com/HourSense/shadow-agent-framework/llm"
	"github.com/HourSense/shadow-agent-framework/runtime"
)

// DefaultSubagentTimeout bounds one delegated task.
const DefaultSubagentTimeout = 5 * time.Minute

// ChildAgentFactory builds the agent function a spawned subagent runs.
type ChildAgentFactory func() runtime.AgentFn

// SpawnAgentTool spawns subagents to handle delegated tasks.
type SpawnAgentTool struct {
	agentType string
	factory   ChildAgentFactory
	timeout   time.Duration
}

// NewSpawnAgentTool creates the tool. The factory supplies the loop the
// spawned subagent runs (typically a StandardAgent configured like the
// parent).
func NewSpawnAgentTool(agentType string, factory ChildAgentFactory) *SpawnAgentTool {
	return &SpawnAgentTool{
		agentType: agentType,
		factory:   factory,
		timeout:   DefaultSubagentTimeout,
	}
}

// WithTimeout overrides the per-task timeout.
func (t *SpawnAgentTool) WithTimeout(d time.Duration) *SpawnAgentTool {
	t.timeout = d
	return t
}

type spawnInput struct {
	Task    string `json:"task" jsonschema:"description=The specific task for the sub-agent to complete"`
	Context string `json:"context,omitempty" jsonschema:"description=Any context the sub-agent needs (file paths, data, etc.)"`
}

func (t *SpawnAgentTool) Name() string { return "SpawnAgent" }

func (t *SpawnAgentTool) Description() string {
	return "Spawn a sub-agent to handle a specific task."
}

func (t *SpawnAgentTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name: t.Name(),
		Description: "Spawn a sub-agent to handle a specific task. The sub-agent executes " +
			"independently, returns only the answer (not raw content), and terminates. Use " +
			"this for subtasks that would otherwise bloat your context: reading and " +
			"summarizing documents, performing searches across files, or any self-contained " +
			"piece of work. The sub-agent has the same capabilities as you.",
		InputSchema: ReflectSchema[spawnInput](),
	}
}

func (t *SpawnAgentTool) Info(input json.RawMessage) ToolInfo {
	var args spawnInput
	_ = json.Unmarshal(input, &args)
	return ToolInfo{
		Name:              t.Name(),
		ActionDescription: fmt.Sprintf("Spawn sub-agent for task: %s", args.Task),
		Details:           args.Context,
	}
}

func (t *SpawnAgentTool) RequiresPermission() bool { return true }

func (t *SpawnAgentTool) Execute(ctx context.Context, input json.RawMessage, internals *runtime.AgentInternals) (core.ToolResult, error) {
	var args spawnInput
	if err := json.Unmarshal(input, &args); err != nil {
		return core.ErrorResult(fmt.Sprintf("invalid input: %v", err)), nil
	}
	if strings.TrimSpace(args.Task) == "" {
		return core.ErrorResult("task cannot be empty"), nil
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	sessionID := "sub-" + uuid.NewString()
	toolUseID := internals.Context.CurrentToolUseID

	handle, err := internals.SpawnSubagent(ctx, sessionID, t.agentType,
		fmt.Sprintf("Sub-agent of %s", internals.SessionID()),
		args.Task, toolUseID, t.factory())
	if err != nil {
		return core.ErrorResult(fmt.Sprintf("failed to spawn sub-agent: %v", err)), nil
	}

	// Subscribe before sending the task so no chunk is missed.
	sub := handle.Subscribe()
	defer sub.Unsubscribe()

	prompt := args.Task
	if args.Context != "" {
		prompt = fmt.Sprintf("%s\n\nContext:\n%s", args.Task, args.Context)
	}
	if err := handle.SendInput(ctx, prompt); err != nil {
		return core.ErrorResult(fmt.Sprintf("failed to send task to sub-agent: %v", err)), nil
	}

	internals.SetWaitingForSubAgent(sessionID)
	defer internals.SetExecutingTool(t.Name(), toolUseID)

	var answer strings.Builder
	for {
		select {
		case chunk, ok := <-sub.Chan():
			if !ok {
				result := answer.String()
				internals.MarkSubagentCompleted(sessionID, &result, false, "sub-agent terminated unexpectedly")
				return core.ErrorResult("sub-agent terminated unexpectedly"), nil
			}
			switch chunk.Kind {
			case core.ChunkTextDelta:
				answer.WriteString(chunk.Text)
			case core.ChunkDone:
				result := strings.TrimSpace(answer.String())
				if result == "" {
					result = "(sub-agent returned no output)"
				}
				internals.MarkSubagentCompleted(sessionID, &result, true, "")
				shutdownQuietly(handle)
				return core.SuccessResult(result), nil
			case core.ChunkError:
				message := chunk.Text
				internals.MarkSubagentCompleted(sessionID, nil, false, message)
				shutdownQuietly(handle)
				return core.ErrorResult(fmt.Sprintf("sub-agent failed: %s", message)), nil
			}
		case <-ctx.Done():
			internals.MarkSubagentCompleted(sessionID, nil, false, "timed out")
			shutdownQuietly(handle)
			return core.ErrorResult(fmt.Sprintf("sub-agent timed out after %s", t.timeout)), nil
		}
	}
}

func shutdownQuietly(handle *runtime.AgentHandle) {
	handle.TrySend(core.Shutdown())
}

var _ Tool = (*SpawnAgentTool)(nil)
