// AskUserQuestion tool for interactive user queries.
//
// Questions are sent as an AskUserQuestion output chunk and the tool
// waits for the matching UserQuestionResponse on the input queue.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/HourSense/shadow-agent-framework/core"
	"github.com/HourSense/shadow-agent-framework/llm"
	"github.com/HourSense/shadow-agent-framework/runtime"
)

const maxQuestionHeaderLen = 12

// AskUserQuestionTool lets the agent ask the user multiple-choice
// questions and receive their answers mid-turn.
type AskUserQuestionTool struct{}

// NewAskUserQuestionTool creates the tool.
func NewAskUserQuestionTool() *AskUserQuestionTool { return &AskUserQuestionTool{} }

type askQuestionOption struct {
	Label       string `json:"label" jsonschema:"description=The display text for this option (1-5 words)"`
	Description string `json:"description,omitempty" jsonschema:"description=Explanation of what choosing this option means"`
}

type askQuestion struct {
	Question    string              `json:"question" jsonschema:"description=The complete question to ask the user; clear, specific, ending with a question mark"`
	Header      string              `json:"header" jsonschema:"description=Very short label displayed as a chip (max 12 chars)"`
	Options     []askQuestionOption `json:"options" jsonschema:"description=The available choices (2-4 options)"`
	MultiSelect bool                `json:"multiSelect,omitempty" jsonschema:"description=Allow selecting multiple answers"`
}

type askInput struct {
	Questions []askQuestion `json:"questions" jsonschema:"description=Questions to ask the user (1-4)"`
}

func (t *AskUserQuestionTool) Name() string { return "AskUserQuestion" }

func (t *AskUserQuestionTool) Description() string {
	return "Ask the user questions to gather information, clarify requirements, or get decisions."
}

func (t *AskUserQuestionTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name: t.Name(),
		Description: "Use this tool to ask the user questions during execution. This allows you to:\n" +
			"1. Gather user preferences or requirements\n" +
			"2. Clarify ambiguous instructions\n" +
			"3. Get decisions on implementation choices as you work\n" +
			"4. Offer choices to the user about what direction to take.\n\n" +
			"Usage notes:\n" +
			"- Users will always be able to select \"Other\" to provide custom text input\n" +
			"- Use multiSelect: true to allow multiple answers to be selected for a question\n" +
			"- If you recommend a specific option, make that the first option in the list and add \"(Recommended)\" at the end of the label",
		InputSchema: ReflectSchema[askInput](),
	}
}

func (t *AskUserQuestionTool) Info(input json.RawMessage) ToolInfo {
	var args askInput
	_ = json.Unmarshal(input, &args)
	summary := "Ask the user a question"
	if len(args.Questions) > 0 {
		summary = fmt.Sprintf("Ask the user: %s", args.Questions[0].Question)
	}
	return ToolInfo{Name: t.Name(), ActionDescription: summary}
}

func (t *AskUserQuestionTool) RequiresPermission() bool { return false }

func (t *AskUserQuestionTool) Execute(ctx context.Context, input json.RawMessage, internals *runtime.AgentInternals) (core.ToolResult, error) {
	var args askInput
	if err := json.Unmarshal(input, &args); err != nil {
		return core.ErrorResult(fmt.Sprintf("invalid input: %v", err)), nil
	}
	if len(args.Questions) == 0 || len(args.Questions) > 4 {
		return core.ErrorResult("questions must contain between 1 and 4 entries"), nil
	}

	questions := make([]core.UserQuestion, 0, len(args.Questions))
	for _, q := range args.Questions {
		if len(q.Options) < 2 || len(q.Options) > 4 {
			return core.ErrorResult(fmt.Sprintf("question %q must have between 2 and 4 options", q.Question)), nil
		}
		header := q.Header
		if len(header) > maxQuestionHeaderLen {
			header = header[:maxQuestionHeaderLen]
		}
		options := make([]core.QuestionOption, 0, len(q.Options))
		for _, opt := range q.Options {
			options = append(options, core.QuestionOption{Label: opt.Label, Description: opt.Description})
		}
		questions = append(questions, core.UserQuestion{
			Question:    q.Question,
			Header:      header,
			Options:     options,
			MultiSelect: q.MultiSelect,
		})
	}

	requestID := uuid.NewString()
	internals.Send(core.AskUserQuestion(requestID, questions))
	internals.SetWaitingForUserInput(requestID)

	for {
		msg, err := internals.Receive(ctx)
		if err != nil {
			return core.ErrorResult("channel closed while waiting for answers"), nil
		}
		switch msg.Kind {
		case core.InputUserQuestionResponse:
			if msg.RequestID != requestID {
				continue // Stale response for an earlier request.
			}
			return core.SuccessResult(formatAnswers(questions, msg.Answers)), nil
		case core.InputInterrupt:
			return core.ErrorResult("Interrupted"), nil
		case core.InputShutdown:
			return core.ErrorResult("Shutdown"), nil
		}
	}
}

func formatAnswers(questions []core.UserQuestion, answers map[string]string) string {
	var b strings.Builder
	b.WriteString("User answered:\n")
	for _, q := range questions {
		answer, ok := answers[q.Question]
		if !ok {
			answer = "(no answer)"
		}
		fmt.Fprintf(&b, "- %s: %s\n", q.Question, answer)
	}
	return b.String()
}

var _ Tool = (*AskUserQuestionTool)(nil)
