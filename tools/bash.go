// Bash Tool - Shell command execution.
//
// Information Hiding:
// - Process management hidden
// - Timeout enforcement hidden

package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/HourSense/shadow-agent-framework/core"
	"github.com/HourSense/shadow-agent-framework/llm"
	"github.com/HourSense/shadow-agent-framework/runtime"
)

const (
	// DefaultBashTimeout bounds a command when no timeout is given.
	DefaultBashTimeout = 120 * time.Second
	// MaxBashTimeout is the largest timeout a command may request.
	MaxBashTimeout = 600 * time.Second

	maxBashOutput = 64 * 1024
)

// BashTool executes shell commands. Execution is permission-gated; the
// command string is what prefix permission rules match against.
type BashTool struct {
	shell string
}

// NewBashTool creates a bash tool using /bin/bash.
func NewBashTool() *BashTool {
	return &BashTool{shell: "/bin/bash"}
}

// WithShell overrides the shell binary.
func (t *BashTool) WithShell(shell string) *BashTool {
	t.shell = shell
	return t
}

type bashInput struct {
	Command   string `json:"command" jsonschema:"description=The shell command to execute"`
	TimeoutMS int64  `json:"timeout_ms,omitempty" jsonschema:"description=Optional timeout in milliseconds (max 600000). Default is 120000ms (2 minutes)."`
}

// Name returns the tool name.
func (t *BashTool) Name() string { return "Bash" }

// Description returns the tool description.
func (t *BashTool) Description() string {
	return "Execute a shell command and return its combined output."
}

// Definition returns the model-facing tool definition.
func (t *BashTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name: t.Name(),
		Description: "Execute a shell command in a bash shell. Returns stdout and stderr. " +
			"Commands time out after 2 minutes by default (maximum 10 minutes via timeout_ms).",
		InputSchema: ReflectSchema[bashInput](),
	}
}

// Info describes the invocation for permission prompts.
func (t *BashTool) Info(input json.RawMessage) ToolInfo {
	var args bashInput
	_ = json.Unmarshal(input, &args)
	return ToolInfo{
		Name:              t.Name(),
		ActionDescription: fmt.Sprintf("Run command: %s", args.Command),
		Details:           args.Command,
	}
}

// RequiresPermission reports that shell execution is permission-gated.
func (t *BashTool) RequiresPermission() bool { return true }

// Execute runs the command and returns its combined output. A timed-out
// command returns an error result, not a failed turn.
func (t *BashTool) Execute(ctx context.Context, input json.RawMessage, _ *runtime.AgentInternals) (core.ToolResult, error) {
	var args bashInput
	if err := json.Unmarshal(input, &args); err != nil {
		return core.ErrorResult(fmt.Sprintf("invalid input: %v", err)), nil
	}
	if strings.TrimSpace(args.Command) == "" {
		return core.ErrorResult("command cannot be empty"), nil
	}

	timeout := DefaultBashTimeout
	if args.TimeoutMS > 0 {
		timeout = time.Duration(args.TimeoutMS) * time.Millisecond
		if timeout > MaxBashTimeout {
			timeout = MaxBashTimeout
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.shell, "-c", args.Command)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	text := output.String()
	if len(text) > maxBashOutput {
		text = text[:maxBashOutput] + "\n... (output truncated)"
	}

	if ctx.Err() == context.DeadlineExceeded {
		return core.ErrorResult(fmt.Sprintf("command timed out after %s\n%s", timeout, text)), nil
	}
	if err != nil {
		return core.ErrorResult(fmt.Sprintf("command failed: %v\n%s", err, text)), nil
	}
	if text == "" {
		text = "(no output)"
	}
	return core.SuccessResult(text), nil
}

var _ Tool = (*BashTool)(nil)
