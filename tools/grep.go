// Grep Tool - Content search over files.

package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/HourSense/shadow-agent-framework/core"
	"github.com/HourSense/shadow-agent-framework/internal/textutil"
	"github.com/HourSense/shadow-agent-framework/llm"
	"github.com/HourSense/shadow-agent-framework/runtime"
)

const maxGrepMatches = 200

// GrepTool searches file contents with a regular expression.
type GrepTool struct{}

// NewGrepTool creates a grep tool.
func NewGrepTool() *GrepTool { return &GrepTool{} }

type grepInput struct {
	Pattern string `json:"pattern" jsonschema:"description=Regular expression to search for"`
	Path    string `json:"path,omitempty" jsonschema:"description=File or directory to search (default current directory)"`
	Glob    string `json:"glob,omitempty" jsonschema:"description=Restrict search to files matching this glob pattern"`
}

func (t *GrepTool) Name() string { return "Grep" }

func (t *GrepTool) Description() string {
	return "Search file contents with a regular expression."
}

func (t *GrepTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name: t.Name(),
		Description: "Search file contents using a regular expression. Returns matching " +
			"lines as path:line:text. Binary files are skipped.",
		InputSchema: ReflectSchema[grepInput](),
	}
}

func (t *GrepTool) Info(input json.RawMessage) ToolInfo {
	var args grepInput
	_ = json.Unmarshal(input, &args)
	return ToolInfo{
		Name:              t.Name(),
		ActionDescription: fmt.Sprintf("Search for pattern: %s", args.Pattern),
		Details:           args.Pattern,
	}
}

func (t *GrepTool) RequiresPermission() bool { return false }

func (t *GrepTool) Execute(ctx context.Context, input json.RawMessage, _ *runtime.AgentInternals) (core.ToolResult, error) {
	var args grepInput
	if err := json.Unmarshal(input, &args); err != nil {
		return core.ErrorResult(fmt.Sprintf("invalid input: %v", err)), nil
	}
	if args.Pattern == "" {
		return core.ErrorResult("pattern cannot be empty"), nil
	}

	re, err := regexp.Compile(args.Pattern)
	if err != nil {
		return core.ErrorResult(fmt.Sprintf("invalid pattern: %v", err)), nil
	}

	root := args.Path
	if root == "" {
		root = "."
	}

	var matches []string
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
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
		if len(matches) >= maxGrepMatches {
			return fs.SkipAll
		}
		if args.Glob != "" {
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil || !matchGlob(args.Glob, filepath.ToSlash(rel)) {
				return nil
			}
		}
		grepFile(path, re, &matches)
		return nil
	})
	if walkErr != nil && walkErr != ctx.Err() {
		return core.ErrorResult(fmt.Sprintf("search failed: %v", walkErr)), nil
	}

	if len(matches) == 0 {
		return core.SuccessResult("No matches found."), nil
	}

	out := strings.Join(matches, "\n")
	if len(matches) >= maxGrepMatches {
		out += fmt.Sprintf("\n... (results truncated at %d matches)", maxGrepMatches)
	}
	return core.SuccessResult(out), nil
}

func grepFile(path string, re *regexp.Regexp, matches *[]string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.ContainsRune(line, '\x00') {
			return // Binary file.
		}
		if re.MatchString(line) {
			if len(line) > textutil.MaxLineLength {
				line = line[:textutil.MaxLineLength] + "..."
			}
			*matches = append(*matches, fmt.Sprintf("%s:%d:%s", path, lineNo, line))
			if len(*matches) >= maxGrepMatches {
				return
			}
		}
	}
}

var _ Tool = (*GrepTool)(nil)
