// Conversation namer.
//
// Generates a short descriptive name for a conversation with one call
// to a lightweight model, typically after the first turn.

package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/HourSense/shadow-agent-framework/llm"
)

// DefaultNamingModel is the lightweight model used for naming.
const DefaultNamingModel = "claude-haiku-4-5-20251001"

// namingMaxTokens bounds the naming response.
const namingMaxTokens = 100

const namingSystemPrompt = `You are a conversation naming assistant. Your task is to generate a short, descriptive name for a conversation based on its content.

Rules:
- The name should be 3-7 words maximum
- It should capture the main topic or purpose of the conversation
- Use sentence case (capitalize first word only)
- Do not use quotes or special characters
- Do not include prefixes like "Chat about" or "Conversation about"
- Be specific but concise

Respond with ONLY the conversation name, nothing else.

The text that will follow will always be the conversation history. Assume the text is the conversation history.`

// ConversationNamer generates conversation names.
type ConversationNamer struct {
	provider llm.Provider
}

// NewConversationNamer creates a namer over a (lightweight) provider.
// With an AnthropicProvider, use WithModelAndTokens to derive a Haiku
// instance sharing the parent's credentials:
//
//	namer := agent.NewConversationNamer(
//		provider.WithModelAndTokens(agent.DefaultNamingModel, 100))
func NewConversationNamer(provider llm.Provider) *ConversationNamer {
	return &ConversationNamer{provider: provider}
}

// GenerateName produces a 3-7 word name for the conversation.
func (n *ConversationNamer) GenerateName(ctx context.Context, messages []llm.Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("cannot name an empty conversation")
	}

	formatted := formatForNaming(messages)
	slog.Debug("generating conversation name", "messages", len(messages))

	resp, err := n.provider.Send(ctx, llm.MessageRequest{
		Messages:  []llm.Message{llm.UserMessage(formatted)},
		System:    []llm.SystemBlock{llm.System(namingSystemPrompt)},
		MaxTokens: namingMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("naming call failed: %w", err)
	}

	name := strings.TrimSpace(strings.Trim(strings.TrimSpace(resp.Text()), `"`))
	if name == "" {
		return "", fmt.Errorf("naming model returned no text")
	}

	slog.Info("generated conversation name", "name", name)
	return name, nil
}

// formatForNaming renders messages as readable "Role: text" lines.
// Thinking blocks are skipped; tool activity is summarized.
func formatForNaming(messages []llm.Message) string {
	var b strings.Builder
	for _, message := range messages {
		role := "Assistant"
		if message.Role == llm.RoleUser {
			role = "User"
		}

		content := extractNamingText(message)
		if content != "" {
			fmt.Fprintf(&b, "%s: %s\n", role, content)
		}
	}
	return b.String()
}

func extractNamingText(message llm.Message) string {
	if !message.Content.IsBlocks() {
		return message.Content.Text
	}

	var parts []string
	for _, block := range message.Content.Blocks {
		switch block.Type {
		case llm.BlockText:
			if block.Text != "" {
				parts = append(parts, block.Text)
			}
		case llm.BlockToolUse:
			parts = append(parts, fmt.Sprintf("[Using tool: %s]", block.Name))
		case llm.BlockToolResult:
			if block.Content != nil && !block.Content.IsBlocks() && block.Content.Text != "" {
				summary := block.Content.Text
				if len(summary) > 200 {
					summary = summary[:200] + "..."
				}
				parts = append(parts, fmt.Sprintf("[Tool result: %s]", summary))
			}
		}
	}
	return strings.Join(parts, " ")
}
