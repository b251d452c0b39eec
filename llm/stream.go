package llm

// Stream event kinds.
const (
	EventMessageStart      = "message_start"
	EventContentBlockStart = "content_block_start"
	EventContentBlockDelta = "content_block_delta"
	EventContentBlockStop  = "content_block_stop"
	EventMessageDelta      = "message_delta"
	EventMessageStop       = "message_stop"
	EventPing              = "ping"
	EventError             = "error"
)

// Delta kinds within a content_block_delta event.
const (
	DeltaText      = "text_delta"
	DeltaInputJSON = "input_json_delta"
	DeltaThinking  = "thinking_delta"
	DeltaSignature = "signature_delta"
)

// StreamEvent is one event of a streamed response. Kind selects the
// variant; the remaining fields are populated per variant:
//
//   - message_start:       MessageID, Usage (input tokens)
//   - content_block_start: Index, Block (type, and id/name for tool_use)
//   - content_block_delta: Index, Delta, and one of Text / PartialJSON /
//     Thinking / Signature
//   - content_block_stop:  Index
//   - message_delta:       StopReason, Usage (output tokens)
//   - message_stop:        nothing
//   - ping:                nothing
//   - error:               Err
type StreamEvent struct {
	Kind        string
	MessageID   string
	Index       int
	Block       *ContentBlock
	Delta       string
	Text        string
	PartialJSON string
	Thinking    string
	Signature   string
	StopReason  StopReason
	Usage       *Usage
	Err         error
}

// StreamError creates an error event.
func StreamError(err error) StreamEvent {
	return StreamEvent{Kind: EventError, Err: err}
}

// TextDeltaEvent creates a text delta for the block at index.
func TextDeltaEvent(index int, text string) StreamEvent {
	return StreamEvent{Kind: EventContentBlockDelta, Index: index, Delta: DeltaText, Text: text}
}

// ThinkingDeltaEvent creates a thinking delta for the block at index.
func ThinkingDeltaEvent(index int, thinking string) StreamEvent {
	return StreamEvent{Kind: EventContentBlockDelta, Index: index, Delta: DeltaThinking, Thinking: thinking}
}

// InputJSONDeltaEvent creates a partial tool-input delta for the block at index.
func InputJSONDeltaEvent(index int, partial string) StreamEvent {
	return StreamEvent{Kind: EventContentBlockDelta, Index: index, Delta: DeltaInputJSON, PartialJSON: partial}
}

// SignatureDeltaEvent creates the thinking-signature delta for the block at index.
func SignatureDeltaEvent(index int, signature string) StreamEvent {
	return StreamEvent{Kind: EventContentBlockDelta, Index: index, Delta: DeltaSignature, Signature: signature}
}

// BlockStartEvent creates a content_block_start event.
func BlockStartEvent(index int, block ContentBlock) StreamEvent {
	return StreamEvent{Kind: EventContentBlockStart, Index: index, Block: &block}
}

// BlockStopEvent creates a content_block_stop event.
func BlockStopEvent(index int) StreamEvent {
	return StreamEvent{Kind: EventContentBlockStop, Index: index}
}

// MessageDeltaEvent creates the final message_delta event.
func MessageDeltaEvent(stop StopReason, usage *Usage) StreamEvent {
	return StreamEvent{Kind: EventMessageDelta, StopReason: stop, Usage: usage}
}
