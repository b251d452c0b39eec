// Package textutil formats file content for model consumption: numbered
// lines with line and length caps, matching the rendering used by the
// Read tool and the attachment expander.
package textutil

import (
	"fmt"
	"strings"
)

const (
	// DefaultLineLimit caps how many lines of a file are rendered.
	DefaultLineLimit = 2000
	// MaxLineLength caps the rendered length of a single line.
	MaxLineLength = 2000
)

// NumberLines renders content as cat -n style numbered lines, starting
// at startLine (1-based). Long lines are truncated to MaxLineLength and
// at most limit lines are rendered; a truncation note is appended when
// lines were dropped.
func NumberLines(content string, startLine, limit int) string {
	if startLine < 1 {
		startLine = 1
	}
	if limit <= 0 {
		limit = DefaultLineLimit
	}

	lines := strings.Split(content, "\n")
	// A trailing newline yields one empty trailing element; drop it.
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	total := len(lines)
	if startLine > total {
		return fmt.Sprintf("(file has only %d lines)", total)
	}

	end := startLine - 1 + limit
	if end > total {
		end = total
	}

	var b strings.Builder
	for i := startLine - 1; i < end; i++ {
		line := lines[i]
		if len(line) > MaxLineLength {
			line = line[:MaxLineLength] + "... (line truncated)"
		}
		fmt.Fprintf(&b, "%6d\t%s\n", i+1, line)
	}

	if end < total {
		fmt.Fprintf(&b, "... (%d more lines not shown, %d total)\n", total-end, total)
	}
	return b.String()
}
