package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestBashExecute(t *testing.T) {
	tool := NewBashTool()

	result, err := tool.Execute(context.Background(), json.RawMessage(`{"command":"echo $((40+2))"}`), nil)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", result.Output)
	}
	if !strings.Contains(result.Output, "42") {
		t.Errorf("output = %q", result.Output)
	}
}

func TestBashEmptyCommand(t *testing.T) {
	tool := NewBashTool()
	result, err := tool.Execute(context.Background(), json.RawMessage(`{"command":"  "}`), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("empty command should be an error result")
	}
}

func TestBashFailingCommand(t *testing.T) {
	tool := NewBashTool()
	result, err := tool.Execute(context.Background(), json.RawMessage(`{"command":"exit 3"}`), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("non-zero exit should be an error result")
	}
}

func TestBashTimeout(t *testing.T) {
	tool := NewBashTool()
	result, err := tool.Execute(context.Background(), json.RawMessage(`{"command":"sleep 5","timeout_ms":50}`), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError || !strings.Contains(result.Output, "timed out") {
		t.Errorf("expected timeout error result, got %+v", result)
	}
}

func TestBashInfo(t *testing.T) {
	tool := NewBashTool()
	info := tool.Info(json.RawMessage(`{"command":"ls"}`))
	if !strings.Contains(info.ActionDescription, "ls") {
		t.Errorf("action description should carry the command: %q", info.ActionDescription)
	}
	if info.Details != "ls" {
		t.Errorf("details = %q", info.Details)
	}
}
