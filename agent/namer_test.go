package agent

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/HourSense/shadow-agent-framework/llm"
)

func TestGenerateNameTrimsQuotes(t *testing.T) {
	provider := &scriptedProvider{responses: []scriptedResponse{
		{blocks: []llm.ContentBlock{llm.Text(`  "Debugging the agent loop"  `)}, stop: llm.StopEndTurn},
	}}
	namer := NewConversationNamer(provider)

	name, err := namer.GenerateName(context.Background(), []llm.Message{
		llm.UserMessage("my loop is broken"),
		llm.AssistantMessage("let's debug it"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if name != "Debugging the agent loop" {
		t.Errorf("name = %q", name)
	}
}

func TestGenerateNameEmptyConversation(t *testing.T) {
	namer := NewConversationNamer(&scriptedProvider{})
	if _, err := namer.GenerateName(context.Background(), nil); err == nil {
		t.Error("empty conversation must fail")
	}
}

func TestFormatForNamingSummarizesTools(t *testing.T) {
	messages := []llm.Message{
		llm.UserMessage("Read the config file"),
		llm.AssistantMessageBlocks(
			llm.Text("I'll read that."),
			llm.ToolUse("toolu_1", "Read", json.RawMessage(`{"file_path":"config.toml"}`)),
		),
		llm.UserMessageBlocks(llm.ToolResultBlock("toolu_1", "key = value", false)),
	}

	formatted := formatForNaming(messages)
	if !strings.Contains(formatted, "User: Read the config file") {
		t.Errorf("user line missing:\n%s", formatted)
	}
	if !strings.Contains(formatted, "[Using tool: Read]") {
		t.Errorf("tool summary missing:\n%s", formatted)
	}
	if !strings.Contains(formatted, "[Tool result: key = value]") {
		t.Errorf("result summary missing:\n%s", formatted)
	}
}
