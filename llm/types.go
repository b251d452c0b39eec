// Package llm provides LLM provider abstractions and the message model
// shared between providers, sessions and the agent loop.
//
// The wire shapes follow the Anthropic Messages API: messages carry either
// plain text or a list of typed content blocks, and streaming responses are
// delivered as a sequence of typed events. Providers for other backends map
// these shapes onto their own APIs.
//
// Information Hiding:
// - API client initialization and authentication
// - Request/response format conversion per provider
// - Provider-specific error handling
package llm

import (
	"encoding/json"
	"fmt"
)

// Content block type tags.
const (
	BlockText             = "text"
	BlockToolUse          = "tool_use"
	BlockToolResult       = "tool_result"
	BlockThinking         = "thinking"
	BlockRedactedThinking = "redacted_thinking"
	BlockImage            = "image"
	BlockDocument         = "document"
)

// Image media types accepted by the API.
const (
	MediaTypePNG  = "image/png"
	MediaTypeJPEG = "image/jpeg"
	MediaTypeGIF  = "image/gif"
	MediaTypeWebP = "image/webp"
	MediaTypePDF  = "application/pdf"
)

// CacheControl marks a cache breakpoint on a content block or tool
// definition. Everything up to and including the marked item is treated
// as a reusable cached prefix by providers that support caching; others
// ignore it.
type CacheControl struct {
	Type string `json:"type"`
	TTL  string `json:"ttl,omitempty"`
}

// Ephemeral returns cache control with the default (5 minute) TTL.
func Ephemeral() *CacheControl {
	return &CacheControl{Type: "ephemeral"}
}

// Ephemeral1h returns cache control with a one hour TTL.
func Ephemeral1h() *CacheControl {
	return &CacheControl{Type: "ephemeral", TTL: "1h"}
}

// BlockSource is the base64 payload of an image or document block.
type BlockSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// ContentBlock is one block in a message. Type selects the variant;
// the remaining fields are populated per variant:
//
//   - text:              Text, CacheControl
//   - tool_use:          ID, Name, Input, CacheControl
//   - tool_result:       ToolUseID, Content, IsError, CacheControl
//   - thinking:          Thinking, Signature
//   - redacted_thinking: Data
//   - image, document:   Source, CacheControl
//
// Thinking signatures are opaque: they must be echoed back to the provider
// verbatim or the block omitted entirely.
type ContentBlock struct {
	Type         string          `json:"type"`
	Text         string          `json:"text,omitempty"`
	ID           string          `json:"id,omitempty"`
	Name         string          `json:"name,omitempty"`
	Input        json.RawMessage `json:"input,omitempty"`
	ToolUseID    string          `json:"tool_use_id,omitempty"`
	Content      *MessageContent `json:"content,omitempty"`
	IsError      bool            `json:"is_error,omitempty"`
	Thinking     string          `json:"thinking,omitempty"`
	Signature    string          `json:"signature,omitempty"`
	Data         string          `json:"data,omitempty"`
	Source       *BlockSource    `json:"source,omitempty"`
	CacheControl *CacheControl   `json:"cache_control,omitempty"`
}

// Text creates a text content block.
func Text(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}

// ToolUse creates a tool_use content block.
func ToolUse(id, name string, input json.RawMessage) ContentBlock {
	return ContentBlock{Type: BlockToolUse, ID: id, Name: name, Input: input}
}

// ToolResultBlock creates a tool_result block with string content.
func ToolResultBlock(toolUseID, content string, isError bool) ContentBlock {
	return ContentBlock{
		Type:      BlockToolResult,
		ToolUseID: toolUseID,
		Content:   &MessageContent{Text: content},
		IsError:   isError,
	}
}

// ToolResultBlocks creates a tool_result block whose content is itself a
// list of blocks (used to attach image or document payloads to a result).
func ToolResultBlocks(toolUseID string, blocks []ContentBlock, isError bool) ContentBlock {
	return ContentBlock{
		Type:      BlockToolResult,
		ToolUseID: toolUseID,
		Content:   &MessageContent{Blocks: blocks},
		IsError:   isError,
	}
}

// ThinkingBlock creates a thinking block with its verification signature.
func ThinkingBlock(thinking, signature string) ContentBlock {
	return ContentBlock{Type: BlockThinking, Thinking: thinking, Signature: signature}
}

// Image creates an image block from base64 data.
func Image(data, mediaType string) ContentBlock {
	return ContentBlock{
		Type:   BlockImage,
		Source: &BlockSource{Type: "base64", MediaType: mediaType, Data: data},
	}
}

// Document creates a document block from base64 data.
func Document(data, mediaType string) ContentBlock {
	return ContentBlock{
		Type:   BlockDocument,
		Source: &BlockSource{Type: "base64", MediaType: mediaType, Data: data},
	}
}

// WithCacheControl marks this block as a cache breakpoint. Thinking blocks
// do not support cache control and are returned unchanged.
func (b ContentBlock) WithCacheControl(cc *CacheControl) ContentBlock {
	switch b.Type {
	case BlockThinking, BlockRedactedThinking:
		return b
	}
	b.CacheControl = cc
	return b
}

// AsText returns the text and true if this is a text block.
func (b ContentBlock) AsText() (string, bool) {
	if b.Type == BlockText {
		return b.Text, true
	}
	return "", false
}

// IsToolUse reports whether this is a tool_use block.
func (b ContentBlock) IsToolUse() bool {
	return b.Type == BlockToolUse
}

// MessageContent is either plain text or a list of content blocks. It
// serializes as a bare JSON string or an array, matching the wire format.
type MessageContent struct {
	Text   string
	Blocks []ContentBlock
}

// IsBlocks reports whether this content carries blocks rather than text.
func (c MessageContent) IsBlocks() bool {
	return c.Blocks != nil
}

// MarshalJSON writes a string or a block array.
func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.Blocks != nil {
		return json.Marshal(c.Blocks)
	}
	return json.Marshal(c.Text)
}

// UnmarshalJSON reads either a string or a block array.
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Text = s
		c.Blocks = nil
		return nil
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return fmt.Errorf("message content is neither string nor blocks: %w", err)
	}
	c.Text = ""
	c.Blocks = blocks
	return nil
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn entry in a conversation.
type Message struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content"`
}

// UserMessage creates a user message with plain text content.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: MessageContent{Text: text}}
}

// AssistantMessage creates an assistant message with plain text content.
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: MessageContent{Text: text}}
}

// UserMessageBlocks creates a user message with content blocks.
func UserMessageBlocks(blocks ...ContentBlock) Message {
	return Message{Role: RoleUser, Content: MessageContent{Blocks: blocks}}
}

// AssistantMessageBlocks creates an assistant message with content blocks.
func AssistantMessageBlocks(blocks ...ContentBlock) Message {
	return Message{Role: RoleAssistant, Content: MessageContent{Blocks: blocks}}
}

// Text returns the plain text content, or "" for block messages.
func (m Message) Text() string {
	if m.Content.IsBlocks() {
		return ""
	}
	return m.Content.Text
}

// Blocks returns the content blocks, or nil for plain text messages.
func (m Message) Blocks() []ContentBlock {
	return m.Content.Blocks
}

// ToolUses returns all tool_use blocks of this message.
func (m Message) ToolUses() []ContentBlock {
	var uses []ContentBlock
	for _, b := range m.Content.Blocks {
		if b.Type == BlockToolUse {
			uses = append(uses, b)
		}
	}
	return uses
}

// HasToolUse reports whether the message contains a tool_use block.
func (m Message) HasToolUse() bool {
	return len(m.ToolUses()) > 0
}

// AppendText appends text to a message: plain text grows in place, block
// messages gain a trailing text block.
func (m *Message) AppendText(text string) {
	if m.Content.IsBlocks() {
		m.Content.Blocks = append(m.Content.Blocks, Text(text))
		return
	}
	m.Content.Text += text
}

// PrependText prepends text to a message.
func (m *Message) PrependText(text string) {
	if m.Content.IsBlocks() {
		m.Content.Blocks = append([]ContentBlock{Text(text)}, m.Content.Blocks...)
		return
	}
	m.Content.Text = text + m.Content.Text
}

// SystemBlock is one part of the system prompt; cache control on the block
// makes the system prompt part of the cached prefix.
type SystemBlock struct {
	Type         string        `json:"type"`
	Text         string        `json:"text"`
	CacheControl *CacheControl `json:"cache_control,omitempty"`
}

// System creates a system prompt block.
func System(text string) SystemBlock {
	return SystemBlock{Type: "text", Text: text}
}

// ToolInputSchema is the JSON schema of a tool's input object.
type ToolInputSchema struct {
	Type       string          `json:"type"`
	Properties json.RawMessage `json:"properties,omitempty"`
	Required   []string        `json:"required,omitempty"`
}

// ObjectSchema creates an input schema for an object with the given
// properties JSON and required field names.
func ObjectSchema(properties json.RawMessage, required ...string) ToolInputSchema {
	return ToolInputSchema{Type: "object", Properties: properties, Required: required}
}

// ToolDefinition describes one callable tool to the model.
type ToolDefinition struct {
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	InputSchema  ToolInputSchema `json:"input_schema"`
	CacheControl *CacheControl   `json:"cache_control,omitempty"`
}

// ThinkingConfig enables extended thinking with a token budget. When set,
// the request must use temperature 1 and MaxTokens greater than the budget.
type ThinkingConfig struct {
	Type         string `json:"type"`
	BudgetTokens int64  `json:"budget_tokens"`
}

// ThinkingEnabled returns an enabled thinking config.
func ThinkingEnabled(budgetTokens int64) *ThinkingConfig {
	return &ThinkingConfig{Type: "enabled", BudgetTokens: budgetTokens}
}

// StopReason is why the model stopped generating.
type StopReason string

const (
	StopEndTurn      StopReason = "end_turn"
	StopMaxTokens    StopReason = "max_tokens"
	StopStopSequence StopReason = "stop_sequence"
	StopToolUse      StopReason = "tool_use"
	StopPauseTurn    StopReason = "pause_turn"
	StopRefusal      StopReason = "refusal"
)

// Usage is the token accounting for one request.
type Usage struct {
	InputTokens              int64 `json:"input_tokens"`
	OutputTokens             int64 `json:"output_tokens"`
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int64 `json:"cache_read_input_tokens,omitempty"`
}

// MessageRequest is a provider-agnostic request for one model call.
type MessageRequest struct {
	Messages    []Message
	System      []SystemBlock
	Tools       []ToolDefinition
	Thinking    *ThinkingConfig
	Temperature *float64
	MaxTokens   int64
}

// MessageResponse is a complete (non-streamed) model response.
type MessageResponse struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	Content    []ContentBlock `json:"content"`
	StopReason StopReason     `json:"stop_reason,omitempty"`
	Usage      Usage          `json:"usage"`
}

// Text returns the concatenated text of all text blocks.
func (r *MessageResponse) Text() string {
	var out string
	for _, b := range r.Content {
		if t, ok := b.AsText(); ok {
			out += t
		}
	}
	return out
}

// HasToolUse reports whether the response requests tool execution.
func (r *MessageResponse) HasToolUse() bool {
	for _, b := range r.Content {
		if b.IsToolUse() {
			return true
		}
	}
	return false
}

// ApplyCacheBreakpoints places the three standard cache breakpoints on a
// request: the last tool definition, the last system block, and the last
// content block of the last history message. Requests without the
// corresponding section are left untouched at that position.
func ApplyCacheBreakpoints(req *MessageRequest) {
	cc := Ephemeral()
	if n := len(req.Tools); n > 0 {
		req.Tools[n-1].CacheControl = cc
	}
	if n := len(req.System); n > 0 {
		req.System[n-1].CacheControl = cc
	}
	if n := len(req.Messages); n > 0 {
		last := &req.Messages[n-1]
		if last.Content.IsBlocks() {
			if bn := len(last.Content.Blocks); bn > 0 {
				// Clone so a history slice shared with the session is
				// never mutated in place.
				blocks := append([]ContentBlock(nil), last.Content.Blocks...)
				blocks[bn-1] = blocks[bn-1].WithCacheControl(cc)
				last.Content = MessageContent{Blocks: blocks}
			}
		} else {
			// Promote plain text to a single block so the marker has a home.
			last.Content = MessageContent{Blocks: []ContentBlock{
				Text(last.Content.Text).WithCacheControl(cc),
			}}
		}
	}
}
