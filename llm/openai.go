// OpenAI Provider implementation using go-openai library.
//
// Block-structured messages are mapped onto the Chat Completions API:
// the system blocks become a system message, tool_use blocks become
// assistant tool calls, and tool_result blocks become tool-role messages.
// Thinking blocks have no OpenAI equivalent and are skipped on conversion.
//
// Information Hiding:
// - API endpoint and authentication
// - Request/response format for OpenAI Chat Completions API
// - Streaming via go-openai library

package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements the Provider interface for OpenAI.
type OpenAIProvider struct {
	client    *openai.Client
	model     string
	maxTokens int
	timeout   time.Duration
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(apiKey, model string, maxTokens int64) *OpenAIProvider {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &OpenAIProvider{
		client:    openai.NewClient(apiKey),
		model:     model,
		maxTokens: int(maxTokens),
		timeout:   DefaultRequestTimeout,
	}
}

// WithTimeout overrides the per-request timeout.
func (p *OpenAIProvider) WithTimeout(d time.Duration) *OpenAIProvider {
	p.timeout = d
	return p
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Model returns the current model.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// Send performs a blocking chat completion request.
func (p *OpenAIProvider) Send(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, p.buildRequest(req, false))
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	out := &MessageResponse{
		ID:    resp.ID,
		Model: resp.Model,
		Usage: Usage{
			InputTokens:  int64(resp.Usage.PromptTokens),
			OutputTokens: int64(resp.Usage.CompletionTokens),
		},
	}

	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		if choice.Message.Content != "" {
			out.Content = append(out.Content, Text(choice.Message.Content))
		}
		for _, tc := range choice.Message.ToolCalls {
			out.Content = append(out.Content, ToolUse(tc.ID, tc.Function.Name, []byte(tc.Function.Arguments)))
		}
		switch choice.FinishReason {
		case openai.FinishReasonToolCalls:
			out.StopReason = StopToolUse
		case openai.FinishReasonLength:
			out.StopReason = StopMaxTokens
		default:
			out.StopReason = StopEndTurn
		}
	}

	return out, nil
}

// Stream performs a streaming chat completion request.
func (p *OpenAIProvider) Stream(ctx context.Context, req MessageRequest) (<-chan StreamEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)

	request := p.buildRequest(req, true)
	stream, err := p.client.CreateChatCompletionStream(ctx, request)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stream creation failed: %w", err)
	}

	events := make(chan StreamEvent, 64)
	go func() {
		defer cancel()
		defer close(events)
		defer stream.Close()

		emit := func(ev StreamEvent) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		textStarted := false
		stop := StopEndTurn
		var usage *Usage
		// Tool call index → stream block index; text occupies index 0.
		toolIndex := map[int]int{}
		nextIndex := 1

		for {
			response, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				emit(StreamError(fmt.Errorf("stream recv failed: %w", err)))
				return
			}

			if response.Usage != nil {
				usage = &Usage{
					InputTokens:  int64(response.Usage.PromptTokens),
					OutputTokens: int64(response.Usage.CompletionTokens),
				}
			}

			if len(response.Choices) == 0 {
				continue
			}
			choice := response.Choices[0]

			if choice.Delta.Content != "" {
				if !textStarted {
					textStarted = true
					if !emit(BlockStartEvent(0, Text(""))) {
						return
					}
				}
				if !emit(TextDeltaEvent(0, choice.Delta.Content)) {
					return
				}
			}

			for _, tc := range choice.Delta.ToolCalls {
				pos := 0
				if tc.Index != nil {
					pos = *tc.Index
				}
				index, seen := toolIndex[pos]
				if !seen {
					index = nextIndex
					nextIndex++
					toolIndex[pos] = index
					if !emit(BlockStartEvent(index, ContentBlock{
						Type: BlockToolUse,
						ID:   tc.ID,
						Name: tc.Function.Name,
					})) {
						return
					}
				}
				if tc.Function.Arguments != "" {
					if !emit(InputJSONDeltaEvent(index, tc.Function.Arguments)) {
						return
					}
				}
			}

			switch choice.FinishReason {
			case openai.FinishReasonToolCalls:
				stop = StopToolUse
			case openai.FinishReasonLength:
				stop = StopMaxTokens
			}
		}

		if textStarted {
			emit(BlockStopEvent(0))
		}
		for _, index := range toolIndex {
			emit(BlockStopEvent(index))
		}
		emit(MessageDeltaEvent(stop, usage))
		emit(StreamEvent{Kind: EventMessageStop})
	}()

	return events, nil
}

// buildRequest converts a MessageRequest into an OpenAI request.
func (p *OpenAIProvider) buildRequest(req MessageRequest, streaming bool) openai.ChatCompletionRequest {
	out := openai.ChatCompletionRequest{
		Model:     p.model,
		Messages:  convertToOpenAIMessages(req),
		MaxTokens: p.maxTokens,
	}
	if req.MaxTokens > 0 {
		out.MaxTokens = int(req.MaxTokens)
	}
	if req.Temperature != nil {
		out.Temperature = float32(*req.Temperature)
	}
	if len(req.Tools) > 0 {
		out.Tools = convertToOpenAITools(req.Tools)
	}
	if streaming {
		out.Stream = true
		out.StreamOptions = &openai.StreamOptions{IncludeUsage: true}
	}
	return out
}

// convertToOpenAIMessages flattens block messages into chat messages.
func convertToOpenAIMessages(req MessageRequest) []openai.ChatCompletionMessage {
	var out []openai.ChatCompletionMessage

	if len(req.System) > 0 {
		system := ""
		for _, s := range req.System {
			system += s.Text
		}
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}

	for _, msg := range req.Messages {
		if !msg.Content.IsBlocks() {
			role := openai.ChatMessageRoleUser
			if msg.Role == RoleAssistant {
				role = openai.ChatMessageRoleAssistant
			}
			out = append(out, openai.ChatCompletionMessage{Role: role, Content: msg.Content.Text})
			continue
		}

		if msg.Role == RoleAssistant {
			assistant := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant}
			for _, block := range msg.Content.Blocks {
				switch block.Type {
				case BlockText:
					assistant.Content += block.Text
				case BlockToolUse:
					assistant.ToolCalls = append(assistant.ToolCalls, openai.ToolCall{
						ID:   block.ID,
						Type: openai.ToolTypeFunction,
						Function: openai.FunctionCall{
							Name:      block.Name,
							Arguments: string(block.Input),
						},
					})
				}
			}
			out = append(out, assistant)
			continue
		}

		// User message: tool results become tool-role messages; everything
		// else collapses into one user message.
		user := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
		for _, block := range msg.Content.Blocks {
			switch block.Type {
			case BlockText:
				user.Content += block.Text
			case BlockToolResult:
				out = append(out, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					ToolCallID: block.ToolUseID,
					Content:    toolResultText(block),
				})
			}
		}
		if user.Content != "" {
			out = append(out, user)
		}
	}

	return out
}

// toolResultText extracts the textual portion of a tool_result block.
func toolResultText(block ContentBlock) string {
	if block.Content == nil {
		return ""
	}
	if !block.Content.IsBlocks() {
		return block.Content.Text
	}
	text := ""
	for _, inner := range block.Content.Blocks {
		if t, ok := inner.AsText(); ok {
			text += t
		}
	}
	return text
}

// convertToOpenAITools converts tool definitions to OpenAI function tools.
func convertToOpenAITools(tools []ToolDefinition) []openai.Tool {
	result := make([]openai.Tool, len(tools))
	for i, t := range tools {
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		}
	}
	return result
}

// Verify OpenAIProvider implements Provider
var _ Provider = (*OpenAIProvider)(nil)
