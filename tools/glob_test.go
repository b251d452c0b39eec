package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setupTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"main.go":          "package main\nfunc main() {}\n",
		"util.go":          "package main\nfunc helper() {}\n",
		"docs/readme.md":   "# readme\n",
		"src/deep/file.go": "package deep\nvar needle = 1\n",
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestGlobTopLevel(t *testing.T) {
	root := setupTree(t)

	input, _ := json.Marshal(map[string]any{"pattern": "*.go", "path": root})
	result, err := NewGlobTool().Execute(context.Background(), input, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result.Output, "main.go") || !strings.Contains(result.Output, "util.go") {
		t.Errorf("output:\n%s", result.Output)
	}
	if strings.Contains(result.Output, "file.go") {
		t.Error("*.go must not match nested files")
	}
}

func TestGlobDoubleStar(t *testing.T) {
	root := setupTree(t)

	input, _ := json.Marshal(map[string]any{"pattern": "**/*.go", "path": root})
	result, err := NewGlobTool().Execute(context.Background(), input, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"main.go", "util.go", "file.go"} {
		if !strings.Contains(result.Output, want) {
			t.Errorf("missing %s in:\n%s", want, result.Output)
		}
	}
	if strings.Contains(result.Output, "readme.md") {
		t.Error("markdown should not match")
	}
}

func TestGlobNoMatches(t *testing.T) {
	root := setupTree(t)
	input, _ := json.Marshal(map[string]any{"pattern": "*.rs", "path": root})
	result, err := NewGlobTool().Execute(context.Background(), input, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.IsError || result.Output != "No files matched." {
		t.Errorf("result: %+v", result)
	}
}

func TestGrepFindsMatches(t *testing.T) {
	root := setupTree(t)

	input, _ := json.Marshal(map[string]any{"pattern": "needle", "path": root})
	result, err := NewGrepTool().Execute(context.Background(), input, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result.Output, "file.go:2:") {
		t.Errorf("expected path:line:text match:\n%s", result.Output)
	}
}

func TestGrepWithGlobFilter(t *testing.T) {
	root := setupTree(t)

	input, _ := json.Marshal(map[string]any{"pattern": "package", "path": root, "glob": "*.go"})
	result, err := NewGrepTool().Execute(context.Background(), input, nil)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(result.Output, "file.go") {
		t.Error("glob filter should exclude nested files")
	}
	if !strings.Contains(result.Output, "main.go") {
		t.Errorf("main.go should match:\n%s", result.Output)
	}
}

func TestGrepInvalidPattern(t *testing.T) {
	input, _ := json.Marshal(map[string]any{"pattern": "("})
	result, err := NewGrepTool().Execute(context.Background(), input, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("invalid regex should be an error result")
	}
}
