// Debug logging.
//
// When enabled on the config, every API request/response and tool
// call/result of a session is written as a numbered JSON file under the
// session's debugger/ directory.

package agent

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/HourSense/shadow-agent-framework/core"
	"github.com/HourSense/shadow-agent-framework/llm"
)

// Debugger writes per-session debug records. Stored in the agent's
// resource map when debug logging is on.
type Debugger struct {
	mu  sync.Mutex
	dir string
	seq int
}

// NewDebugger creates the debugger directory under a session directory.
func NewDebugger(sessionDir string) (*Debugger, error) {
	dir := filepath.Join(sessionDir, "debugger")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create debugger dir: %w", err)
	}
	return &Debugger{dir: dir}, nil
}

// Dir returns the debugger directory.
func (d *Debugger) Dir() string {
	return d.dir
}

// LogAPIRequest records an outgoing model request.
func (d *Debugger) LogAPIRequest(req llm.MessageRequest) {
	d.write("api_request", map[string]any{
		"messages":   req.Messages,
		"system":     req.System,
		"tools":      req.Tools,
		"thinking":   req.Thinking,
		"max_tokens": req.MaxTokens,
	})
}

// LogAPIResponse records a completed model response.
func (d *Debugger) LogAPIResponse(blocks []llm.ContentBlock, stopReason string) {
	d.write("api_response", map[string]any{
		"content":     blocks,
		"stop_reason": stopReason,
	})
}

// LogToolCall records a tool invocation.
func (d *Debugger) LogToolCall(toolName, toolUseID string, input json.RawMessage) {
	d.write("tool_call", map[string]any{
		"tool":        toolName,
		"tool_use_id": toolUseID,
		"input":       input,
	})
}

// LogToolResult records a tool outcome.
func (d *Debugger) LogToolResult(toolName, toolUseID string, result core.ToolResult) {
	d.write("tool_result", map[string]any{
		"tool":        toolName,
		"tool_use_id": toolUseID,
		"output":      result.Output,
		"is_error":    result.IsError,
	})
}

func (d *Debugger) write(kind string, payload map[string]any) {
	d.mu.Lock()
	d.seq++
	seq := d.seq
	d.mu.Unlock()

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		slog.Warn("debugger encode failed", "kind", kind, "error", err)
		return
	}

	path := filepath.Join(d.dir, fmt.Sprintf("%04d_%s.json", seq, kind))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		slog.Warn("debugger write failed", "kind", kind, "error", err)
	}
}
