package textutil

import (
	"fmt"
	"strings"
	"testing"
)

func TestNumberLinesBasic(t *testing.T) {
	out := NumberLines("alpha\nbeta\n", 1, 0)
	if !strings.Contains(out, "1\talpha") || !strings.Contains(out, "2\tbeta") {
		t.Errorf("output:\n%s", out)
	}
	if strings.Contains(out, "not shown") {
		t.Error("short files should not carry a truncation note")
	}
}

func TestNumberLinesOffsetAndLimit(t *testing.T) {
	content := "a\nb\nc\nd\ne\n"
	out := NumberLines(content, 2, 2)
	if !strings.Contains(out, "2\tb") || !strings.Contains(out, "3\tc") {
		t.Errorf("window wrong:\n%s", out)
	}
	if strings.Contains(out, "1\ta") || strings.Contains(out, "4\td") {
		t.Errorf("lines outside window leaked:\n%s", out)
	}
}

func TestNumberLinesTruncation(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 2100; i++ {
		fmt.Fprintf(&b, "row %d\n", i)
	}
	out := NumberLines(b.String(), 1, 0)
	if !strings.Contains(out, "100 more lines not shown, 2100 total") {
		t.Errorf("truncation note wrong:\n%s", out[len(out)-200:])
	}
}

func TestNumberLinesLongLine(t *testing.T) {
	long := strings.Repeat("x", MaxLineLength+50)
	out := NumberLines(long+"\n", 1, 0)
	if !strings.Contains(out, "line truncated") {
		t.Error("long line should be truncated")
	}
}

func TestNumberLinesPastEnd(t *testing.T) {
	out := NumberLines("only\n", 10, 0)
	if !strings.Contains(out, "only 1 lines") {
		t.Errorf("expected out-of-range note, got %q", out)
	}
}
