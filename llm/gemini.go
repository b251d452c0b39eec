// Google Gemini Provider implementation using official google.golang.org/genai SDK.
//
// Block-structured messages are mapped onto generateContent: tool_use
// blocks become function calls, tool_result blocks become function
// responses, and image blocks become inline data parts. Gemini has no
// tool-use IDs, so the function name doubles as the ID on round-trips.
//
// Information Hiding:
// - API authentication and client creation
// - Request/response format for Gemini API
// - System instruction handling via config
// - Streaming via official SDK iterator

package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/genai"
)

// GeminiProvider implements the Provider interface for Google Gemini.
type GeminiProvider struct {
	client    *genai.Client
	model     string
	maxTokens int32
	timeout   time.Duration
	initErr   error
}

// NewGeminiProvider creates a new Gemini provider.
// If client initialization fails, the error is stored and returned on first use.
func NewGeminiProvider(apiKey, model string, maxTokens int64) *GeminiProvider {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	p := &GeminiProvider{
		model:     model,
		maxTokens: int32(maxTokens),
		timeout:   DefaultRequestTimeout,
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		p.initErr = fmt.Errorf("failed to initialize Gemini client: %w", err)
		return p
	}
	p.client = client
	return p
}

// WithTimeout overrides the per-request timeout.
func (p *GeminiProvider) WithTimeout(d time.Duration) *GeminiProvider {
	p.timeout = d
	return p
}

// Name returns the provider name.
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Model returns the current model.
func (p *GeminiProvider) Model() string {
	return p.model
}

// Send performs a blocking generateContent request.
func (p *GeminiProvider) Send(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	if p.initErr != nil {
		return nil, p.initErr
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	contents, config := p.buildRequest(req)
	response, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("generate content failed: %w", err)
	}

	out := &MessageResponse{Model: p.model, StopReason: StopEndTurn}
	if len(response.Candidates) > 0 && response.Candidates[0].Content != nil {
		for _, part := range response.Candidates[0].Content.Parts {
			if part.Text != "" {
				out.Content = append(out.Content, Text(part.Text))
			}
			if part.FunctionCall != nil {
				argsJSON, _ := json.Marshal(part.FunctionCall.Args)
				// Gemini has no call IDs; the name stands in.
				out.Content = append(out.Content, ToolUse(part.FunctionCall.Name, part.FunctionCall.Name, argsJSON))
				out.StopReason = StopToolUse
			}
		}
	}
	if response.UsageMetadata != nil {
		out.Usage = Usage{
			InputTokens:  int64(response.UsageMetadata.PromptTokenCount),
			OutputTokens: int64(response.UsageMetadata.CandidatesTokenCount),
		}
	}

	return out, nil
}

// Stream performs a streaming generateContent request.
func (p *GeminiProvider) Stream(ctx context.Context, req MessageRequest) (<-chan StreamEvent, error) {
	if p.initErr != nil {
		return nil, p.initErr
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	contents, config := p.buildRequest(req)

	events := make(chan StreamEvent, 64)
	go func() {
		defer cancel()
		defer close(events)

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
		nextIndex := 1
		var usage *Usage

		for response, err := range p.client.Models.GenerateContentStream(ctx, p.model, contents, config) {
			if err != nil {
				emit(StreamError(fmt.Errorf("stream error: %w", err)))
				return
			}

			if response.UsageMetadata != nil {
				usage = &Usage{
					InputTokens:  int64(response.UsageMetadata.PromptTokenCount),
					OutputTokens: int64(response.UsageMetadata.CandidatesTokenCount),
				}
			}

			if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
				continue
			}

			for _, part := range response.Candidates[0].Content.Parts {
				if part.Text != "" {
					if !textStarted {
						textStarted = true
						if !emit(BlockStartEvent(0, Text(""))) {
							return
						}
					}
					if !emit(TextDeltaEvent(0, part.Text)) {
						return
					}
				}
				if part.FunctionCall != nil {
					stop = StopToolUse
					argsJSON, _ := json.Marshal(part.FunctionCall.Args)
					index := nextIndex
					nextIndex++
					if !emit(BlockStartEvent(index, ContentBlock{
						Type: BlockToolUse,
						ID:   part.FunctionCall.Name,
						Name: part.FunctionCall.Name,
					})) {
						return
					}
					if !emit(InputJSONDeltaEvent(index, string(argsJSON))) {
						return
					}
					if !emit(BlockStopEvent(index)) {
						return
					}
				}
			}
		}

		if textStarted {
			emit(BlockStopEvent(0))
		}
		emit(MessageDeltaEvent(stop, usage))
		emit(StreamEvent{Kind: EventMessageStop})
	}()

	return events, nil
}

// buildRequest converts a MessageRequest into genai contents and config.
func (p *GeminiProvider) buildRequest(req MessageRequest) ([]*genai.Content, *genai.GenerateContentConfig) {
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: p.maxTokens,
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*req.Temperature))
	}

	if len(req.System) > 0 {
		system := ""
		for _, s := range req.System {
			system += s.Text
		}
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	if len(req.Tools) > 0 {
		config.Tools = convertToGeminiTools(req.Tools)
	}

	return convertToGeminiContents(req.Messages), config
}

// convertToGeminiContents converts block messages to Gemini contents.
func convertToGeminiContents(messages []Message) []*genai.Content {
	var contents []*genai.Content

	for _, msg := range messages {
		role := genai.RoleUser
		if msg.Role == RoleAssistant {
			role = genai.RoleModel
		}

		if !msg.Content.IsBlocks() {
			contents = append(contents, genai.NewContentFromText(msg.Content.Text, genai.Role(role)))
			continue
		}

		content := &genai.Content{Role: role}
		for _, block := range msg.Content.Blocks {
			switch block.Type {
			case BlockText:
				content.Parts = append(content.Parts, &genai.Part{Text: block.Text})
			case BlockToolUse:
				var args map[string]any
				_ = json.Unmarshal(block.Input, &args)
				content.Parts = append(content.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{Name: block.Name, Args: args},
				})
			case BlockToolResult:
				content.Parts = append(content.Parts, &genai.Part{
					FunctionResponse: &genai.FunctionResponse{
						Name:     block.ToolUseID,
						Response: map[string]any{"result": toolResultText(block)},
					},
				})
			case BlockImage:
				if data, err := base64.StdEncoding.DecodeString(block.Source.Data); err == nil {
					content.Parts = append(content.Parts, &genai.Part{
						InlineData: &genai.Blob{MIMEType: block.Source.MediaType, Data: data},
					})
				}
			case BlockDocument:
				if data, err := base64.StdEncoding.DecodeString(block.Source.Data); err == nil {
					content.Parts = append(content.Parts, &genai.Part{
						InlineData: &genai.Blob{MIMEType: block.Source.MediaType, Data: data},
					})
				}
			}
		}
		if len(content.Parts) > 0 {
			contents = append(contents, content)
		}
	}

	return contents
}

// convertToGeminiTools converts tool definitions to Gemini declarations.
func convertToGeminiTools(tools []ToolDefinition) []*genai.Tool {
	declarations := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decl := &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
		}

		schema := &genai.Schema{Type: genai.TypeObject, Required: t.InputSchema.Required}
		var properties map[string]json.RawMessage
		if err := json.Unmarshal(t.InputSchema.Properties, &properties); err == nil {
			schema.Properties = make(map[string]*genai.Schema, len(properties))
			for name, raw := range properties {
				prop := &genai.Schema{}
				if err := json.Unmarshal(raw, prop); err == nil {
					schema.Properties[name] = prop
				}
			}
		}
		decl.Parameters = schema

		declarations = append(declarations, decl)
	}

	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

// Verify GeminiProvider implements Provider
var _ Provider = (*GeminiProvider)(nil)
