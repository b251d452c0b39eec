package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNamespacedName(t *testing.T) {
	name := NamespacedName("files", "read_file")
	if name != "files__read_file" {
		t.Errorf("name = %q", name)
	}

	serverID, toolName, ok := SplitNamespacedName(name)
	if !ok || serverID != "files" || toolName != "read_file" {
		t.Errorf("split = %q, %q, %v", serverID, toolName, ok)
	}

	if _, _, ok := SplitNamespacedName("plain"); ok {
		t.Error("names without separator must not split")
	}
	if _, _, ok := SplitNamespacedName("__tool"); ok {
		t.Error("empty server id must not split")
	}
}

func TestLoadConfigs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcp.json")
	content := `[
		{"id": "files", "command": "mcp-files", "args": ["--root", "/tmp"], "enabled": true},
		{"id": "web", "command": "mcp-web", "enabled": false}
	]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	configs, err := LoadConfigs(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(configs) != 2 {
		t.Fatalf("expected 2 configs, got %d", len(configs))
	}
	if configs[0].ID != "files" || len(configs[0].Args) != 2 {
		t.Errorf("config: %+v", configs[0])
	}
	if configs[1].Enabled {
		t.Error("second server should be disabled")
	}
}

func TestLoadConfigsValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`[{"id": "", "command": "x"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfigs(path); err == nil {
		t.Error("missing id must be rejected")
	}
}

func TestConvertCallResult(t *testing.T) {
	result := convertCallResult(&CallResult{
		Content: []ContentPart{
			{Type: "text", Text: "first"},
			{Type: "text", Text: "second"},
			{Type: "image", Data: "aGk=", MIMEType: "image/png"},
		},
	})

	if result.Output != "first\nsecond" {
		t.Errorf("output = %q", result.Output)
	}
	if result.Media == nil || result.Media.MediaType != "image/png" {
		t.Errorf("media = %+v", result.Media)
	}
	if result.IsError {
		t.Error("result should not be an error")
	}
}

func TestConvertCallResultEmpty(t *testing.T) {
	result := convertCallResult(&CallResult{})
	if result.Output != "(empty result)" {
		t.Errorf("output = %q", result.Output)
	}
}

func TestConvertCallResultError(t *testing.T) {
	result := convertCallResult(&CallResult{
		Content: []ContentPart{{Type: "text", Text: "boom"}},
		IsError: true,
	})
	if !result.IsError || result.Output != "boom" {
		t.Errorf("result = %+v", result)
	}
}

func TestAdapterDefinitionFromSchema(t *testing.T) {
	manager := NewManager()
	adapter := NewToolAdapter(manager, "files", ToolInfo{
		Name:        "read_file",
		Description: "Reads a file",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"path":{"type":"string"}},"required":["path"]}`),
	})

	if adapter.Name() != "files__read_file" {
		t.Errorf("adapter name = %q", adapter.Name())
	}
	def := adapter.Definition()
	if def.InputSchema.Type != "object" {
		t.Errorf("schema type = %q", def.InputSchema.Type)
	}
	if len(def.InputSchema.Required) != 1 || def.InputSchema.Required[0] != "path" {
		t.Errorf("required = %v", def.InputSchema.Required)
	}
	if !strings.Contains(string(def.InputSchema.Properties), "path") {
		t.Errorf("properties = %s", def.InputSchema.Properties)
	}
	if !adapter.RequiresPermission() {
		t.Error("MCP tools default to requiring permission")
	}
}

func TestManagerCallUnknownServer(t *testing.T) {
	manager := NewManager()
	if _, err := manager.Call(context.Background(), "ghost", "tool", nil); err == nil {
		t.Error("call to unknown server without refresher must fail")
	}
}

func TestManagerRefresherFailurePropagates(t *testing.T) {
	calls := 0
	manager := NewManager().WithRefresher(func(ctx context.Context, serverID string) (*Client, error) {
		calls++
		return nil, context.DeadlineExceeded
	})

	_, err := manager.Call(context.Background(), "dead", "tool", nil)
	if err == nil {
		t.Fatal("expected failure")
	}
	if calls != maxCallAttempts {
		t.Errorf("refresher should be tried %d times, got %d", maxCallAttempts, calls)
	}
}

func TestManagerDisabledServerSkipped(t *testing.T) {
	manager := NewManager()
	err := manager.AddServer(context.Background(), ServerConfig{
		ID: "off", Command: "nonexistent-server", Enabled: false,
	})
	if err != nil {
		t.Fatalf("disabled server should be skipped silently: %v", err)
	}
	if manager.ServerCount() != 0 {
		t.Error("disabled server must not be registered")
	}
}
