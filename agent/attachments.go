// Attachment expander.
//
// User input may reference files with literal tags:
//
//	<vibe-work-attachment>PATH</vibe-work-attachment>
//
// Each distinct resolved path becomes one content block appended after
// the original text (tags preserved so hosts can re-render badges):
// text files with numbered lines, images and PDFs as media blocks,
// directories as listings, unreadable paths as error text blocks. An
// unreadable attachment never fails the turn.

package agent

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/HourSense/shadow-agent-framework/internal/textutil"
	"github.com/HourSense/shadow-agent-framework/llm"
)

// Attachment size limits.
const (
	MaxAttachmentImageBytes    = 5 * 1024 * 1024
	MaxAttachmentDocumentBytes = 32 * 1024 * 1024
)

var attachmentTagRe = regexp.MustCompile(`<vibe-work-attachment>([^<]+)</vibe-work-attachment>`)

var attachmentImageTypes = map[string]string{
	".png":  llm.MediaTypePNG,
	".jpg":  llm.MediaTypeJPEG,
	".jpeg": llm.MediaTypeJPEG,
	".gif":  llm.MediaTypeGIF,
	".webp": llm.MediaTypeWebP,
}

// ExpandAttachments parses attachment tags in user input and builds the
// user message for the turn: the original text first (tags intact),
// followed by one block per distinct attachment. Duplicate references
// become a note pointing at the first occurrence.
func ExpandAttachments(text string) llm.Message {
	matches := attachmentTagRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return llm.UserMessage(text)
	}

	blocks := []llm.ContentBlock{llm.Text(text)}
	seen := make(map[string]string) // resolved absolute path → raw path of first occurrence

	for _, match := range matches {
		raw := strings.TrimSpace(match[1])
		if raw == "" {
			continue
		}

		resolved, err := filepath.Abs(raw)
		if err != nil {
			resolved = raw
		}

		if first, dup := seen[resolved]; dup {
			blocks = append(blocks, llm.Text(fmt.Sprintf(
				"Attachment %s is a duplicate of %s (already included above).", raw, first)))
			continue
		}
		seen[resolved] = raw

		blocks = append(blocks, attachmentBlock(raw, resolved))
	}

	return llm.UserMessageBlocks(blocks...)
}

// attachmentBlock renders one attachment as a content block.
func attachmentBlock(raw, resolved string) llm.ContentBlock {
	info, err := os.Stat(resolved)
	if err != nil {
		return llm.Text(fmt.Sprintf("Attachment %s could not be read: %v", raw, err))
	}

	if info.IsDir() {
		return directoryListing(raw, resolved)
	}

	ext := strings.ToLower(filepath.Ext(resolved))
	if mediaType, ok := attachmentImageTypes[ext]; ok {
		return mediaAttachment(raw, resolved, info.Size(), mediaType, false)
	}
	if ext == ".pdf" {
		return mediaAttachment(raw, resolved, info.Size(), llm.MediaTypePDF, true)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return llm.Text(fmt.Sprintf("Attachment %s could not be read: %v", raw, err))
	}
	return llm.Text(fmt.Sprintf("Contents of %s:\n%s", raw,
		textutil.NumberLines(string(data), 1, textutil.DefaultLineLimit)))
}

func mediaAttachment(raw, resolved string, size int64, mediaType string, document bool) llm.ContentBlock {
	limit := int64(MaxAttachmentImageBytes)
	kind := "image"
	if document {
		limit = MaxAttachmentDocumentBytes
		kind = "document"
	}
	if size > limit {
		return llm.Text(fmt.Sprintf(
			"Attachment %s (%d bytes) exceeds the %d byte limit for %s attachments.",
			raw, size, limit, kind))
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return llm.Text(fmt.Sprintf("Attachment %s could not be read: %v", raw, err))
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	if document {
		return llm.Document(encoded, mediaType)
	}
	return llm.Image(encoded, mediaType)
}

func directoryListing(raw, resolved string) llm.ContentBlock {
	entries, err := os.ReadDir(resolved)
	if err != nil {
		return llm.Text(fmt.Sprintf("Attachment %s could not be read: %v", raw, err))
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)

	return llm.Text(fmt.Sprintf("Directory listing of %s:\n%s", raw, strings.Join(names, "\n")))
}
