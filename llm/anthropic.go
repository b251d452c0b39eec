// Anthropic Provider implementation using official anthropic-sdk-go.
//
// Information Hiding:
// - API endpoint and authentication
// - Request/response format for Anthropic Messages API
// - Streaming via official SDK

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultMaxTokens is used when a request does not set its own limit.
const DefaultMaxTokens = 16000

// DefaultRequestTimeout bounds a single model call, including the full
// duration of a streamed response.
const DefaultRequestTimeout = 10 * time.Minute

// AnthropicProvider implements the Provider interface for Anthropic Claude.
type AnthropicProvider struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	timeout   time.Duration
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(apiKey, model string, maxTokens int64) *AnthropicProvider {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	return &AnthropicProvider{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
		timeout:   DefaultRequestTimeout,
	}
}

// WithTimeout overrides the per-request timeout.
func (p *AnthropicProvider) WithTimeout(d time.Duration) *AnthropicProvider {
	p.timeout = d
	return p
}

// WithModelAndTokens returns a copy of this provider using a different
// model and token limit, sharing the authenticated client. Used by the
// conversation namer to run a lightweight model.
func (p *AnthropicProvider) WithModelAndTokens(model string, maxTokens int64) *AnthropicProvider {
	return &AnthropicProvider{
		client:    p.client,
		model:     model,
		maxTokens: maxTokens,
		timeout:   p.timeout,
	}
}

// Name returns the provider name.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Model returns the current model.
func (p *AnthropicProvider) Model() string {
	return p.model
}

// Send performs a blocking Messages API call.
func (p *AnthropicProvider) Send(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	params, err := p.buildParams(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("message request failed: %w", err)
	}

	return convertAnthropicResponse(message), nil
}

// Stream performs a streaming Messages API call. Events are forwarded on
// the returned channel until the stream ends; stream failures surface as
// an error event before the channel closes.
func (p *AnthropicProvider) Stream(ctx context.Context, req MessageRequest) (<-chan StreamEvent, error) {
	params, err := p.buildParams(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	stream := p.client.Messages.NewStreaming(ctx, params)

	events := make(chan StreamEvent, 64)
	go func() {
		defer cancel()
		defer close(events)

		for stream.Next() {
			event := stream.Current()
			for _, out := range convertAnthropicStreamEvent(event) {
				select {
				case events <- out:
				case <-ctx.Done():
					return
				}
			}
		}

		if err := stream.Err(); err != nil {
			select {
			case events <- StreamError(fmt.Errorf("stream error: %w", err)):
			case <-ctx.Done():
			}
		}
	}()

	return events, nil
}

// buildParams converts a MessageRequest into SDK params.
func (p *AnthropicProvider) buildParams(req MessageRequest) (anthropic.MessageNewParams, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.maxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: maxTokens,
		Messages:  convertAnthropicMessages(req.Messages),
	}

	if len(req.System) > 0 {
		system := make([]anthropic.TextBlockParam, 0, len(req.System))
		for _, s := range req.System {
			block := anthropic.TextBlockParam{Text: s.Text}
			if s.CacheControl != nil {
				block.CacheControl = anthropicCacheControl(s.CacheControl)
			}
			system = append(system, block)
		}
		params.System = system
	}

	if len(req.Tools) > 0 {
		params.Tools = convertAnthropicTools(req.Tools)
	}

	if req.Thinking != nil {
		if maxTokens <= req.Thinking.BudgetTokens {
			return params, fmt.Errorf("max_tokens (%d) must exceed thinking budget (%d)",
				maxTokens, req.Thinking.BudgetTokens)
		}
		params.Thinking = anthropic.ThinkingConfigParamUnion{
			OfEnabled: &anthropic.ThinkingConfigEnabledParam{
				BudgetTokens: req.Thinking.BudgetTokens,
			},
		}
		// The API requires temperature 1 with extended thinking.
		params.Temperature = anthropic.Float(1)
	} else if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	return params, nil
}

func anthropicCacheControl(cc *CacheControl) anthropic.CacheControlEphemeralParam {
	param := anthropic.NewCacheControlEphemeralParam()
	if cc.TTL != "" {
		param.TTL = anthropic.CacheControlEphemeralTTL(cc.TTL)
	}
	return param
}

// convertAnthropicMessages converts block messages to SDK message params.
func convertAnthropicMessages(messages []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		role := anthropic.MessageParamRoleUser
		if msg.Role == RoleAssistant {
			role = anthropic.MessageParamRoleAssistant
		}

		param := anthropic.MessageParam{Role: role}
		if msg.Content.IsBlocks() {
			for _, block := range msg.Content.Blocks {
				param.Content = append(param.Content, convertAnthropicBlocks(block)...)
			}
		} else {
			param.Content = append(param.Content, anthropic.NewTextBlock(msg.Content.Text))
		}
		out = append(out, param)
	}
	return out
}

// convertAnthropicBlocks converts one content block to SDK params. A
// tool_result carrying a document payload expands into the tool_result
// plus a sibling document block, which the API accepts equivalently.
func convertAnthropicBlocks(block ContentBlock) []anthropic.ContentBlockParamUnion {
	switch block.Type {
	case BlockText:
		text := anthropic.TextBlockParam{Text: block.Text}
		if block.CacheControl != nil {
			text.CacheControl = anthropicCacheControl(block.CacheControl)
		}
		return []anthropic.ContentBlockParamUnion{{OfText: &text}}

	case BlockToolUse:
		var input map[string]any
		_ = json.Unmarshal(block.Input, &input)
		return []anthropic.ContentBlockParamUnion{{
			OfToolUse: &anthropic.ToolUseBlockParam{
				ID:    block.ID,
				Name:  block.Name,
				Input: input,
			},
		}}

	case BlockToolResult:
		result := anthropic.ToolResultBlockParam{ToolUseID: block.ToolUseID}
		if block.IsError {
			result.IsError = anthropic.Bool(true)
		}

		var trailing []anthropic.ContentBlockParamUnion
		if block.Content != nil {
			if block.Content.IsBlocks() {
				for _, inner := range block.Content.Blocks {
					switch inner.Type {
					case BlockText:
						result.Content = append(result.Content, anthropic.ToolResultBlockParamContentUnion{
							OfText: &anthropic.TextBlockParam{Text: inner.Text},
						})
					case BlockImage:
						result.Content = append(result.Content, anthropic.ToolResultBlockParamContentUnion{
							OfImage: &anthropic.ImageBlockParam{
								Source: anthropic.ImageBlockParamSourceUnion{
									OfBase64: &anthropic.Base64ImageSourceParam{
										Data:      inner.Source.Data,
										MediaType: anthropic.Base64ImageSourceMediaType(inner.Source.MediaType),
									},
								},
							},
						})
					case BlockDocument:
						trailing = append(trailing, anthropic.ContentBlockParamUnion{
							OfDocument: &anthropic.DocumentBlockParam{
								Source: anthropic.DocumentBlockParamSourceUnion{
									OfBase64: &anthropic.Base64PDFSourceParam{Data: inner.Source.Data},
								},
							},
						})
					}
				}
			} else {
				result.Content = append(result.Content, anthropic.ToolResultBlockParamContentUnion{
					OfText: &anthropic.TextBlockParam{Text: block.Content.Text},
				})
			}
		}
		out := []anthropic.ContentBlockParamUnion{{OfToolResult: &result}}
		return append(out, trailing...)

	case BlockThinking:
		return []anthropic.ContentBlockParamUnion{{
			OfThinking: &anthropic.ThinkingBlockParam{
				Thinking:  block.Thinking,
				Signature: block.Signature,
			},
		}}

	case BlockRedactedThinking:
		return []anthropic.ContentBlockParamUnion{{
			OfRedactedThinking: &anthropic.RedactedThinkingBlockParam{Data: block.Data},
		}}

	case BlockImage:
		return []anthropic.ContentBlockParamUnion{{
			OfImage: &anthropic.ImageBlockParam{
				Source: anthropic.ImageBlockParamSourceUnion{
					OfBase64: &anthropic.Base64ImageSourceParam{
						Data:      block.Source.Data,
						MediaType: anthropic.Base64ImageSourceMediaType(block.Source.MediaType),
					},
				},
			},
		}}

	case BlockDocument:
		return []anthropic.ContentBlockParamUnion{{
			OfDocument: &anthropic.DocumentBlockParam{
				Source: anthropic.DocumentBlockParamSourceUnion{
					OfBase64: &anthropic.Base64PDFSourceParam{Data: block.Source.Data},
				},
			},
		}}
	}
	return nil
}

// convertAnthropicTools converts tool definitions to Anthropic format.
func convertAnthropicTools(tools []ToolDefinition) []anthropic.ToolUnionParam {
	result := make([]anthropic.ToolUnionParam, len(tools))
	for i, t := range tools {
		var properties any
		if len(t.InputSchema.Properties) > 0 {
			_ = json.Unmarshal(t.InputSchema.Properties, &properties)
		}

		toolParam := anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: properties,
				Required:   t.InputSchema.Required,
			},
		}
		if t.CacheControl != nil {
			toolParam.CacheControl = anthropicCacheControl(t.CacheControl)
		}
		result[i] = anthropic.ToolUnionParam{OfTool: &toolParam}
	}
	return result
}

// convertAnthropicResponse maps an SDK message to a MessageResponse.
func convertAnthropicResponse(message *anthropic.Message) *MessageResponse {
	resp := &MessageResponse{
		ID:         message.ID,
		Model:      string(message.Model),
		StopReason: StopReason(message.StopReason),
		Usage: Usage{
			InputTokens:              message.Usage.InputTokens,
			OutputTokens:             message.Usage.OutputTokens,
			CacheCreationInputTokens: message.Usage.CacheCreationInputTokens,
			CacheReadInputTokens:     message.Usage.CacheReadInputTokens,
		},
	}

	for _, block := range message.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			resp.Content = append(resp.Content, Text(variant.Text))
		case anthropic.ToolUseBlock:
			inputJSON, _ := json.Marshal(variant.Input)
			resp.Content = append(resp.Content, ToolUse(variant.ID, variant.Name, inputJSON))
		case anthropic.ThinkingBlock:
			resp.Content = append(resp.Content, ThinkingBlock(variant.Thinking, variant.Signature))
		case anthropic.RedactedThinkingBlock:
			resp.Content = append(resp.Content, ContentBlock{Type: BlockRedactedThinking, Data: variant.Data})
		}
	}

	return resp
}

// convertAnthropicStreamEvent maps one SDK stream event to zero or more
// provider-agnostic events.
func convertAnthropicStreamEvent(event anthropic.MessageStreamEventUnion) []StreamEvent {
	switch variant := event.AsAny().(type) {
	case anthropic.MessageStartEvent:
		return []StreamEvent{{
			Kind:      EventMessageStart,
			MessageID: variant.Message.ID,
			Usage: &Usage{
				InputTokens:              variant.Message.Usage.InputTokens,
				CacheCreationInputTokens: variant.Message.Usage.CacheCreationInputTokens,
				CacheReadInputTokens:     variant.Message.Usage.CacheReadInputTokens,
			},
		}}

	case anthropic.ContentBlockStartEvent:
		index := int(variant.Index)
		switch blockVariant := variant.ContentBlock.AsAny().(type) {
		case anthropic.TextBlock:
			return []StreamEvent{BlockStartEvent(index, Text(blockVariant.Text))}
		case anthropic.ToolUseBlock:
			return []StreamEvent{BlockStartEvent(index, ContentBlock{
				Type: BlockToolUse,
				ID:   blockVariant.ID,
				Name: blockVariant.Name,
			})}
		case anthropic.ThinkingBlock:
			return []StreamEvent{BlockStartEvent(index, ContentBlock{Type: BlockThinking})}
		case anthropic.RedactedThinkingBlock:
			return []StreamEvent{BlockStartEvent(index, ContentBlock{
				Type: BlockRedactedThinking,
				Data: blockVariant.Data,
			})}
		}
		return nil

	case anthropic.ContentBlockDeltaEvent:
		index := int(variant.Index)
		switch deltaVariant := variant.Delta.AsAny().(type) {
		case anthropic.TextDelta:
			return []StreamEvent{TextDeltaEvent(index, deltaVariant.Text)}
		case anthropic.InputJSONDelta:
			return []StreamEvent{InputJSONDeltaEvent(index, deltaVariant.PartialJSON)}
		case anthropic.ThinkingDelta:
			return []StreamEvent{ThinkingDeltaEvent(index, deltaVariant.Thinking)}
		case anthropic.SignatureDelta:
			return []StreamEvent{SignatureDeltaEvent(index, deltaVariant.Signature)}
		}
		return nil

	case anthropic.ContentBlockStopEvent:
		return []StreamEvent{BlockStopEvent(int(variant.Index))}

	case anthropic.MessageDeltaEvent:
		return []StreamEvent{MessageDeltaEvent(
			StopReason(variant.Delta.StopReason),
			&Usage{OutputTokens: variant.Usage.OutputTokens},
		)}

	case anthropic.MessageStopEvent:
		return []StreamEvent{{Kind: EventMessageStop}}
	}
	return nil
}

// Verify AnthropicProvider implements Provider
var _ Provider = (*AnthropicProvider)(nil)
