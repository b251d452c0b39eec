package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/HourSense/shadow-agent-framework/llm"
)

func attachmentTag(path string) string {
	return "<vibe-work-attachment>" + path + "</vibe-work-attachment>"
}

func TestNoAttachmentsStaysPlainText(t *testing.T) {
	message := ExpandAttachments("just a question")
	if message.Content.IsBlocks() {
		t.Error("plain input should stay a plain text message")
	}
	if message.Text() != "just a question" {
		t.Errorf("text = %q", message.Text())
	}
}

func TestTextAttachmentExpansion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("first\nsecond\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	input := "look at " + attachmentTag(path)
	message := ExpandAttachments(input)

	blocks := message.Blocks()
	if len(blocks) != 2 {
		t.Fatalf("expected text + attachment, got %d blocks", len(blocks))
	}
	// The original text, tags preserved, comes first.
	if blocks[0].Text != input {
		t.Errorf("first block must preserve the tags: %q", blocks[0].Text)
	}
	if !strings.Contains(blocks[1].Text, "1\tfirst") {
		t.Errorf("attachment should be line-numbered:\n%s", blocks[1].Text)
	}
}

func TestDuplicateAttachmentNoted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dup.txt")
	if err := os.WriteFile(path, []byte("content\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	input := attachmentTag(path) + " and again " + attachmentTag(path)
	message := ExpandAttachments(input)

	blocks := message.Blocks()
	if len(blocks) != 3 {
		t.Fatalf("expected text + content + duplicate note, got %d", len(blocks))
	}
	if !strings.Contains(blocks[2].Text, "duplicate") {
		t.Errorf("duplicate note missing: %q", blocks[2].Text)
	}
}

func TestUnreadableAttachmentIsErrorBlockNotFailure(t *testing.T) {
	message := ExpandAttachments("see " + attachmentTag("/no/such/file.txt"))

	blocks := message.Blocks()
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if !strings.Contains(blocks[1].Text, "could not be read") {
		t.Errorf("error block missing: %q", blocks[1].Text)
	}
}

func TestLongTextAttachmentTruncated(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 10000; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	path := filepath.Join(t.TempDir(), "big.txt")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}

	message := ExpandAttachments(attachmentTag(path))
	blocks := message.Blocks()
	content := blocks[1].Text
	if !strings.Contains(content, "line 1999") {
		t.Error("content up to the cap should be present")
	}
	if strings.Contains(content, "line 2000\n") {
		t.Error("content past 2000 lines should be cut")
	}
	if !strings.Contains(content, "more lines not shown") {
		t.Error("truncation note missing")
	}
}

func TestImageAttachment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pic.png")
	if err := os.WriteFile(path, []byte("fake png"), 0o644); err != nil {
		t.Fatal(err)
	}

	message := ExpandAttachments(attachmentTag(path))
	blocks := message.Blocks()
	if blocks[1].Type != llm.BlockImage {
		t.Fatalf("expected image block, got %s", blocks[1].Type)
	}
	if blocks[1].Source.MediaType != llm.MediaTypePNG {
		t.Errorf("media type = %q", blocks[1].Source.MediaType)
	}
}

func TestOversizedImageBecomesErrorBlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huge.png")
	if err := os.WriteFile(path, make([]byte, MaxAttachmentImageBytes+1), 0o644); err != nil {
		t.Fatal(err)
	}

	message := ExpandAttachments(attachmentTag(path))
	blocks := message.Blocks()
	if blocks[1].Type != llm.BlockText {
		t.Fatalf("oversized image must become a text error block, got %s", blocks[1].Type)
	}
	if !strings.Contains(blocks[1].Text, "exceeds") {
		t.Errorf("limit note missing: %q", blocks[1].Text)
	}
}

func TestPDFAttachment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 fake"), 0o644); err != nil {
		t.Fatal(err)
	}

	message := ExpandAttachments(attachmentTag(path))
	blocks := message.Blocks()
	if blocks[1].Type != llm.BlockDocument {
		t.Fatalf("expected document block, got %s", blocks[1].Type)
	}
	if blocks[1].Source.MediaType != llm.MediaTypePDF {
		t.Errorf("media type = %q", blocks[1].Source.MediaType)
	}
}

func TestDirectoryAttachmentListsEntries(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	message := ExpandAttachments(attachmentTag(dir))
	blocks := message.Blocks()
	listing := blocks[1].Text
	if !strings.Contains(listing, "a.txt") || !strings.Contains(listing, "sub/") {
		t.Errorf("listing incomplete:\n%s", listing)
	}
}
