// Filesystem Tools - Read, Write, Edit operations.
//
// Information Hiding:
// - File I/O implementation details hidden
// - Path validation and media detection hidden
// - Error handling for file operations abstracted

package tools

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/HourSense/shadow-agent-framework/core"
	"github.com/HourSense/shadow-agent-framework/internal/textutil"
	"github.com/HourSense/shadow-agent-framework/llm"
	"github.com/HourSense/shadow-agent-framework/runtime"
)

const (
	// MaxImageBytes is the largest image the Read tool returns as media.
	MaxImageBytes = 5 * 1024 * 1024
	// MaxDocumentBytes is the largest PDF the Read tool returns as media.
	MaxDocumentBytes = 32 * 1024 * 1024
)

// imageMediaTypes maps file extensions to image media types.
var imageMediaTypes = map[string]string{
	".png":  llm.MediaTypePNG,
	".jpg":  llm.MediaTypeJPEG,
	".jpeg": llm.MediaTypeJPEG,
	".gif":  llm.MediaTypeGIF,
	".webp": llm.MediaTypeWebP,
}

// ReadTool reads files: text with numbered lines, images and PDFs as
// media payloads routed into history as image/document blocks.
type ReadTool struct{}

// NewReadTool creates a read tool.
func NewReadTool() *ReadTool { return &ReadTool{} }

type readInput struct {
	FilePath string `json:"file_path" jsonschema:"description=Absolute or relative path of the file to read"`
	Offset   int    `json:"offset,omitempty" jsonschema:"description=1-based line number to start reading from"`
	Limit    int    `json:"limit,omitempty" jsonschema:"description=Maximum number of lines to read (default 2000)"`
}

func (t *ReadTool) Name() string { return "Read" }

func (t *ReadTool) Description() string {
	return "Read a file from the filesystem."
}

func (t *ReadTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name: t.Name(),
		Description: "Read a file from the local filesystem. Text files are returned with " +
			"line numbers. By default, reads up to 2000 lines; long lines are truncated at " +
			"2000 characters. Images (png, jpeg, gif, webp) and PDF documents are returned " +
			"as viewable content.",
		InputSchema: ReflectSchema[readInput](),
	}
}

func (t *ReadTool) Info(input json.RawMessage) ToolInfo {
	var args readInput
	_ = json.Unmarshal(input, &args)
	return ToolInfo{
		Name:              t.Name(),
		ActionDescription: fmt.Sprintf("Read file: %s", args.FilePath),
		Details:           args.FilePath,
	}
}

func (t *ReadTool) RequiresPermission() bool { return false }

func (t *ReadTool) Execute(_ context.Context, input json.RawMessage, _ *runtime.AgentInternals) (core.ToolResult, error) {
	var args readInput
	if err := json.Unmarshal(input, &args); err != nil {
		return core.ErrorResult(fmt.Sprintf("invalid input: %v", err)), nil
	}
	if args.FilePath == "" {
		return core.ErrorResult("file_path cannot be empty"), nil
	}

	info, err := os.Stat(args.FilePath)
	if err != nil {
		return core.ErrorResult(fmt.Sprintf("cannot read %s: %v", args.FilePath, err)), nil
	}
	if info.IsDir() {
		return core.ErrorResult(fmt.Sprintf("%s is a directory, not a file", args.FilePath)), nil
	}

	ext := strings.ToLower(filepath.Ext(args.FilePath))
	if mediaType, ok := imageMediaTypes[ext]; ok {
		return readMedia(args.FilePath, info.Size(), mediaType, core.MediaImage, MaxImageBytes)
	}
	if ext == ".pdf" {
		return readMedia(args.FilePath, info.Size(), llm.MediaTypePDF, core.MediaDocument, MaxDocumentBytes)
	}

	data, err := os.ReadFile(args.FilePath)
	if err != nil {
		return core.ErrorResult(fmt.Sprintf("cannot read %s: %v", args.FilePath, err)), nil
	}

	return core.SuccessResult(textutil.NumberLines(string(data), args.Offset, args.Limit)), nil
}

func readMedia(path string, size int64, mediaType string, kind core.MediaKind, maxBytes int64) (core.ToolResult, error) {
	if size > maxBytes {
		return core.ErrorResult(fmt.Sprintf("%s is %d bytes, exceeding the %d byte limit", path, size, maxBytes)), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return core.ErrorResult(fmt.Sprintf("cannot read %s: %v", path, err)), nil
	}
	description := fmt.Sprintf("Contents of %s (%s, %d bytes)", path, mediaType, len(data))
	return core.MediaResult(description, core.MediaOutput{
		Kind:      kind,
		MediaType: mediaType,
		Data:      base64.StdEncoding.EncodeToString(data),
	}), nil
}

var _ Tool = (*ReadTool)(nil)

// WriteTool writes a file, creating parent directories as needed.
type WriteTool struct{}

// NewWriteTool creates a write tool.
func NewWriteTool() *WriteTool { return &WriteTool{} }

type writeInput struct {
	FilePath string `json:"file_path" jsonschema:"description=Path of the file to write"`
	Content  string `json:"content" jsonschema:"description=Full content to write"`
}

func (t *WriteTool) Name() string { return "Write" }

func (t *WriteTool) Description() string {
	return "Write content to a file, overwriting if it exists."
}

func (t *WriteTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        t.Name(),
		Description: "Write content to a file on the local filesystem. Overwrites existing files and creates parent directories as needed.",
		InputSchema: ReflectSchema[writeInput](),
	}
}

func (t *WriteTool) Info(input json.RawMessage) ToolInfo {
	var args writeInput
	_ = json.Unmarshal(input, &args)
	return ToolInfo{
		Name:              t.Name(),
		ActionDescription: fmt.Sprintf("Write file: %s", args.FilePath),
		Details:           fmt.Sprintf("%d bytes", len(args.Content)),
	}
}

func (t *WriteTool) RequiresPermission() bool { return true }

func (t *WriteTool) Execute(_ context.Context, input json.RawMessage, _ *runtime.AgentInternals) (core.ToolResult, error) {
	var args writeInput
	if err := json.Unmarshal(input, &args); err != nil {
		return core.ErrorResult(fmt.Sprintf("invalid input: %v", err)), nil
	}
	if args.FilePath == "" {
		return core.ErrorResult("file_path cannot be empty"), nil
	}

	if dir := filepath.Dir(args.FilePath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return core.ErrorResult(fmt.Sprintf("cannot create directory %s: %v", dir, err)), nil
		}
	}
	if err := os.WriteFile(args.FilePath, []byte(args.Content), 0o644); err != nil {
		return core.ErrorResult(fmt.Sprintf("cannot write %s: %v", args.FilePath, err)), nil
	}
	return core.SuccessResult(fmt.Sprintf("Wrote %d bytes to %s", len(args.Content), args.FilePath)), nil
}

var _ Tool = (*WriteTool)(nil)

// EditTool replaces a unique string in a file.
type EditTool struct{}

// NewEditTool creates an edit tool.
func NewEditTool() *EditTool { return &EditTool{} }

type editInput struct {
	FilePath   string `json:"file_path" jsonschema:"description=Path of the file to edit"`
	OldString  string `json:"old_string" jsonschema:"description=Exact text to replace; must appear exactly once unless replace_all"`
	NewString  string `json:"new_string" jsonschema:"description=Replacement text"`
	ReplaceAll bool   `json:"replace_all,omitempty" jsonschema:"description=Replace every occurrence instead of requiring uniqueness"`
}

func (t *EditTool) Name() string { return "Edit" }

func (t *EditTool) Description() string {
	return "Perform an exact string replacement in a file."
}

func (t *EditTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name: t.Name(),
		Description: "Replace text in a file. old_string must match the file exactly and be " +
			"unique unless replace_all is set.",
		InputSchema: ReflectSchema[editInput](),
	}
}

func (t *EditTool) Info(input json.RawMessage) ToolInfo {
	var args editInput
	_ = json.Unmarshal(input, &args)
	return ToolInfo{
		Name:              t.Name(),
		ActionDescription: fmt.Sprintf("Edit file: %s", args.FilePath),
		Details:           args.OldString,
	}
}

func (t *EditTool) RequiresPermission() bool { return true }

func (t *EditTool) Execute(_ context.Context, input json.RawMessage, _ *runtime.AgentInternals) (core.ToolResult, error) {
	var args editInput
	if err := json.Unmarshal(input, &args); err != nil {
		return core.ErrorResult(fmt.Sprintf("invalid input: %v", err)), nil
	}
	if args.FilePath == "" || args.OldString == "" {
		return core.ErrorResult("file_path and old_string are required"), nil
	}
	if args.OldString == args.NewString {
		return core.ErrorResult("old_string and new_string are identical"), nil
	}

	data, err := os.ReadFile(args.FilePath)
	if err != nil {
		return core.ErrorResult(fmt.Sprintf("cannot read %s: %v", args.FilePath, err)), nil
	}
	content := string(data)

	count := strings.Count(content, args.OldString)
	switch {
	case count == 0:
		return core.ErrorResult(fmt.Sprintf("old_string not found in %s", args.FilePath)), nil
	case count > 1 && !args.ReplaceAll:
		return core.ErrorResult(fmt.Sprintf("old_string appears %d times in %s; use replace_all or a longer unique string", count, args.FilePath)), nil
	}

	replacements := 1
	if args.ReplaceAll {
		replacements = count
		content = strings.ReplaceAll(content, args.OldString, args.NewString)
	} else {
		content = strings.Replace(content, args.OldString, args.NewString, 1)
	}

	if err := os.WriteFile(args.FilePath, []byte(content), 0o644); err != nil {
		return core.ErrorResult(fmt.Sprintf("cannot write %s: %v", args.FilePath, err)), nil
	}
	return core.SuccessResult(fmt.Sprintf("Replaced %d occurrence(s) in %s", replacements, args.FilePath)), nil
}

var _ Tool = (*EditTool)(nil)
