// Glob Tool - File pattern matching.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/HourSense/shadow-agent-framework/core"
	"github.com/HourSense/shadow-agent-framework/llm"
	"github.com/HourSense/shadow-agent-framework/runtime"
)

const maxGlobResults = 500

// GlobTool finds files matching a glob pattern.
type GlobTool struct{}

// NewGlobTool creates a glob tool.
func NewGlobTool() *GlobTool { return &GlobTool{} }

type globInput struct {
	Pattern string `json:"pattern" jsonschema:"description=Glob pattern such as **/*.go or src/*.ts"`
	Path    string `json:"path,omitempty" jsonschema:"description=Directory to search in (default current directory)"`
}

func (t *GlobTool) Name() string { return "Glob" }

func (t *GlobTool) Description() string {
	return "Find files matching a glob pattern."
}

func (t *GlobTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name: t.Name(),
		Description: "Fast file pattern matching. Supports glob patterns like **/*.go or " +
			"src/**/*.ts. Returns matching file paths sorted by name.",
		InputSchema: ReflectSchema[globInput](),
	}
}

func (t *GlobTool) Info(input json.RawMessage) ToolInfo {
	var args globInput
	_ = json.Unmarshal(input, &args)
	return ToolInfo{
		Name:              t.Name(),
		ActionDescription: fmt.Sprintf("Find files matching: %s", args.Pattern),
		Details:           args.Pattern,
	}
}

func (t *GlobTool) RequiresPermission() bool { return false }

func (t *GlobTool) Execute(ctx context.Context, input json.RawMessage, _ *runtime.AgentInternals) (core.ToolResult, error) {
	var args globInput
	if err := json.Unmarshal(input, &args); err != nil {
		return core.ErrorResult(fmt.Sprintf("invalid input: %v", err)), nil
	}
	if args.Pattern == "" {
		return core.ErrorResult("pattern cannot be empty"), nil
	}

	root := args.Path
	if root == "" {
		root = "."
	}

	matches, err := globWalk(ctx, root, args.Pattern)
	if err != nil {
		return core.ErrorResult(fmt.Sprintf("glob failed: %v", err)), nil
	}
	if len(matches) == 0 {
		return core.SuccessResult("No files matched."), nil
	}

	sort.Strings(matches)
	truncated := false
	if len(matches) > maxGlobResults {
		matches = matches[:maxGlobResults]
		truncated = true
	}

	out := strings.Join(matches, "\n")
	if truncated {
		out += fmt.Sprintf("\n... (results truncated at %d files)", maxGlobResults)
	}
	return core.SuccessResult(out), nil
}

// globWalk walks root matching pattern. Patterns containing ** match
// across directory separators.
func globWalk(ctx context.Context, root, pattern string) ([]string, error) {
	var matches []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip unreadable entries.
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if name := d.Name(); name == ".git" || name == "node_modules" {
				return fs.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		if matchGlob(pattern, filepath.ToSlash(rel)) {
			matches = append(matches, path)
		}
		return nil
	})
	return matches, err
}

// matchGlob matches a path against a glob pattern where ** spans
// directory separators.
func matchGlob(pattern, path string) bool {
	patternParts := strings.Split(pattern, "/")
	pathParts := strings.Split(path, "/")
	return matchParts(patternParts, pathParts)
}

func matchParts(pattern, path []string) bool {
	if len(pattern) == 0 {
		return len(path) == 0
	}

	if pattern[0] == "**" {
		for skip := 0; skip <= len(path); skip++ {
			if matchParts(pattern[1:], path[skip:]) {
				return true
			}
		}
		return false
	}

	if len(path) == 0 {
		return false
	}
	if ok, err := filepath.Match(pattern[0], path[0]); err != nil || !ok {
		return false
	}
	return matchParts(pattern[1:], path[1:])
}

var _ Tool = (*GlobTool)(nil)
