package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadNumbersLines(t *testing.T) {
	path := writeTestFile(t, "f.txt", "alpha\nbeta\ngamma\n")
	tool := NewReadTool()

	input, _ := json.Marshal(map[string]any{"file_path": path})
	result, err := tool.Execute(context.Background(), input, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.IsError {
		t.Fatalf("error result: %s", result.Output)
	}
	if !strings.Contains(result.Output, "1\talpha") || !strings.Contains(result.Output, "3\tgamma") {
		t.Errorf("numbered output missing lines:\n%s", result.Output)
	}
}

func TestReadTruncatesLongFiles(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 2500; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	path := writeTestFile(t, "long.txt", b.String())

	input, _ := json.Marshal(map[string]any{"file_path": path})
	result, err := NewReadTool().Execute(context.Background(), input, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result.Output, "more lines not shown") {
		t.Error("truncation note missing")
	}
	if strings.Contains(result.Output, "line 2400") {
		t.Error("lines past the cap should not appear")
	}
}

func TestReadMissingFile(t *testing.T) {
	input, _ := json.Marshal(map[string]any{"file_path": "/definitely/not/here"})
	result, err := NewReadTool().Execute(context.Background(), input, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("missing file should be an error result, not a Go error")
	}
}

func TestReadImageReturnsMedia(t *testing.T) {
	path := writeTestFile(t, "pic.png", "\x89PNG fake image bytes")

	input, _ := json.Marshal(map[string]any{"file_path": path})
	result, err := NewReadTool().Execute(context.Background(), input, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Media == nil {
		t.Fatal("image read should carry media")
	}
	if result.Media.Kind != "image" || result.Media.MediaType != "image/png" {
		t.Errorf("media: %+v", result.Media)
	}
}

func TestReadOversizedImageRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.png")
	if err := os.WriteFile(path, make([]byte, MaxImageBytes+1), 0o644); err != nil {
		t.Fatal(err)
	}

	input, _ := json.Marshal(map[string]any{"file_path": path})
	result, err := NewReadTool().Execute(context.Background(), input, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("oversized image should be an error result")
	}
	if result.Media != nil {
		t.Error("no media payload for rejected image")
	}
}

func TestWriteCreatesFileAndDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", "out.txt")

	input, _ := json.Marshal(map[string]any{"file_path": path, "content": "hello"})
	result, err := NewWriteTool().Execute(context.Background(), input, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.IsError {
		t.Fatalf("error result: %s", result.Output)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Errorf("content = %q", data)
	}
}

func TestEditReplacesUniqueString(t *testing.T) {
	path := writeTestFile(t, "f.txt", "the quick brown fox")

	input, _ := json.Marshal(map[string]any{
		"file_path":  path,
		"old_string": "quick",
		"new_string": "slow",
	})
	result, err := NewEditTool().Execute(context.Background(), input, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.IsError {
		t.Fatalf("error result: %s", result.Output)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "the slow brown fox" {
		t.Errorf("content = %q", data)
	}
}

func TestEditRejectsAmbiguousMatch(t *testing.T) {
	path := writeTestFile(t, "f.txt", "aaa bbb aaa")

	input, _ := json.Marshal(map[string]any{
		"file_path":  path,
		"old_string": "aaa",
		"new_string": "ccc",
	})
	result, err := NewEditTool().Execute(context.Background(), input, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("ambiguous match without replace_all must fail")
	}

	// replace_all resolves it.
	input, _ = json.Marshal(map[string]any{
		"file_path":   path,
		"old_string":  "aaa",
		"new_string":  "ccc",
		"replace_all": true,
	})
	result, err = NewEditTool().Execute(context.Background(), input, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.IsError {
		t.Fatalf("replace_all failed: %s", result.Output)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "ccc bbb ccc" {
		t.Errorf("content = %q", data)
	}
}

func TestEditMissingOldString(t *testing.T) {
	path := writeTestFile(t, "f.txt", "content")

	input, _ := json.Marshal(map[string]any{
		"file_path":  path,
		"old_string": "absent",
		"new_string": "x",
	})
	result, err := NewEditTool().Execute(context.Background(), input, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("absent old_string must fail")
	}
}
