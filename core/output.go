// Input and output message types for agent communication.

package core

import "encoding/json"

// InterruptMarker is the literal text block appended to terminate a turn
// after user cancellation. Hosts re-rendering history treat it as a
// regular text block.
const InterruptMarker = "<system>User interrupted this message</system>"

// MediaKind classifies binary tool output.
type MediaKind string

const (
	MediaImage    MediaKind = "image"
	MediaDocument MediaKind = "document"
)

// MediaOutput is binary content produced by a tool (a screenshot, a PDF).
// The executor routes it into history as an image or document block next
// to the textual result.
type MediaOutput struct {
	Kind        MediaKind `json:"kind"`
	MediaType   string    `json:"media_type"`
	Data        string    `json:"data"` // base64
	Description string    `json:"description,omitempty"`
}

// ToolResult is the outcome of executing one tool.
type ToolResult struct {
	Output  string       `json:"output"`
	IsError bool         `json:"is_error"`
	Media   *MediaOutput `json:"media,omitempty"`
}

// SuccessResult creates a successful tool result.
func SuccessResult(output string) ToolResult {
	return ToolResult{Output: output}
}

// ErrorResult creates a failed tool result.
func ErrorResult(message string) ToolResult {
	return ToolResult{Output: message, IsError: true}
}

// MediaResult creates a successful result carrying binary content.
func MediaResult(description string, media MediaOutput) ToolResult {
	media.Description = description
	return ToolResult{Output: description, Media: &media}
}

// InputKind identifies an input message variant.
type InputKind string

const (
	InputUserInput            InputKind = "user_input"
	InputToolResult           InputKind = "tool_result"
	InputPermissionResponse   InputKind = "permission_response"
	InputUserQuestionResponse InputKind = "user_question_response"
	InputSubAgentComplete     InputKind = "subagent_complete"
	InputInterrupt            InputKind = "interrupt"
	InputShutdown             InputKind = "shutdown"
)

// InputMessage is a message sent TO an agent through its input queue.
type InputMessage struct {
	Kind InputKind `json:"kind"`

	// UserInput
	Text string `json:"text,omitempty"`

	// ToolResult (asynchronous tool completion)
	ToolUseID string      `json:"tool_use_id,omitempty"`
	Result    *ToolResult `json:"result,omitempty"`

	// PermissionResponse
	ToolName string `json:"tool_name,omitempty"`
	Allowed  bool   `json:"allowed,omitempty"`
	Remember bool   `json:"remember,omitempty"`

	// UserQuestionResponse
	RequestID string            `json:"request_id,omitempty"`
	Answers   map[string]string `json:"answers,omitempty"`

	// SubAgentComplete
	SessionID string  `json:"session_id,omitempty"`
	Summary   *string `json:"summary,omitempty"`
}

// UserInput creates a user input message.
func UserInput(text string) InputMessage {
	return InputMessage{Kind: InputUserInput, Text: text}
}

// PermissionResponse creates a permission response message.
func PermissionResponse(toolName string, allowed, remember bool) InputMessage {
	return InputMessage{Kind: InputPermissionResponse, ToolName: toolName, Allowed: allowed, Remember: remember}
}

// AsyncToolResult creates an asynchronous tool completion message.
func AsyncToolResult(toolUseID string, result ToolResult) InputMessage {
	return InputMessage{Kind: InputToolResult, ToolUseID: toolUseID, Result: &result}
}

// UserQuestionResponse creates an answer message for an AskUserQuestion request.
func UserQuestionResponse(requestID string, answers map[string]string) InputMessage {
	return InputMessage{Kind: InputUserQuestionResponse, RequestID: requestID, Answers: answers}
}

// SubAgentCompleteInput creates a subagent completion notification.
func SubAgentCompleteInput(sessionID string, summary *string) InputMessage {
	return InputMessage{Kind: InputSubAgentComplete, SessionID: sessionID, Summary: summary}
}

// Interrupt creates an interrupt request.
func Interrupt() InputMessage { return InputMessage{Kind: InputInterrupt} }

// Shutdown creates a shutdown request.
func Shutdown() InputMessage { return InputMessage{Kind: InputShutdown} }

// ChunkKind identifies an output chunk variant.
type ChunkKind string

const (
	ChunkTextDelta         ChunkKind = "text_delta"
	ChunkTextComplete      ChunkKind = "text_complete"
	ChunkThinkingDelta     ChunkKind = "thinking_delta"
	ChunkThinkingComplete  ChunkKind = "thinking_complete"
	ChunkToolStart         ChunkKind = "tool_start"
	ChunkToolProgress      ChunkKind = "tool_progress"
	ChunkToolEnd           ChunkKind = "tool_end"
	ChunkPermissionRequest ChunkKind = "permission_request"
	ChunkAskUserQuestion   ChunkKind = "ask_user_question"
	ChunkSubAgentSpawned   ChunkKind = "subagent_spawned"
	ChunkSubAgentOutput    ChunkKind = "subagent_output"
	ChunkSubAgentComplete  ChunkKind = "subagent_complete"
	ChunkStateChange       ChunkKind = "state_change"
	ChunkStatus            ChunkKind = "status"
	ChunkError             ChunkKind = "error"
	ChunkDone              ChunkKind = "done"
)

// QuestionOption is one selectable answer of a user question.
type QuestionOption struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// UserQuestion is one question presented to the user by the agent.
// Header is a short chip label (at most 12 characters); Options holds
// between two and four choices.
type UserQuestion struct {
	Question    string           `json:"question"`
	Header      string           `json:"header"`
	Options     []QuestionOption `json:"options"`
	MultiSelect bool             `json:"multi_select,omitempty"`
}

// OutputChunk is a message streamed FROM an agent to its subscribers.
type OutputChunk struct {
	Kind ChunkKind `json:"kind"`

	// TextDelta / TextComplete / ThinkingDelta / ThinkingComplete /
	// Status / Error
	Text string `json:"text,omitempty"`

	// Tool chunks
	ToolUseID string          `json:"tool_use_id,omitempty"`
	ToolName  string          `json:"tool_name,omitempty"`
	ToolInput json.RawMessage `json:"tool_input,omitempty"`
	Result    *ToolResult     `json:"result,omitempty"`

	// PermissionRequest
	Action  string `json:"action,omitempty"`
	Input   string `json:"input,omitempty"`
	Details string `json:"details,omitempty"`

	// AskUserQuestion
	RequestID string         `json:"request_id,omitempty"`
	Questions []UserQuestion `json:"questions,omitempty"`

	// SubAgent chunks
	SessionID string       `json:"session_id,omitempty"`
	AgentType string       `json:"agent_type,omitempty"`
	Chunk     *OutputChunk `json:"chunk,omitempty"`
	Summary   *string      `json:"summary,omitempty"`

	// StateChange
	State *AgentState `json:"state,omitempty"`
}

// TextDelta creates an incremental text chunk.
func TextDelta(text string) OutputChunk {
	return OutputChunk{Kind: ChunkTextDelta, Text: text}
}

// TextComplete creates a completed-text chunk.
func TextComplete(text string) OutputChunk {
	return OutputChunk{Kind: ChunkTextComplete, Text: text}
}

// ThinkingDelta creates an incremental thinking chunk.
func ThinkingDelta(text string) OutputChunk {
	return OutputChunk{Kind: ChunkThinkingDelta, Text: text}
}

// ThinkingComplete creates a completed-thinking chunk.
func ThinkingComplete(text string) OutputChunk {
	return OutputChunk{Kind: ChunkThinkingComplete, Text: text}
}

// ToolStart creates a tool start notification.
func ToolStart(id, name string, input json.RawMessage) OutputChunk {
	return OutputChunk{Kind: ChunkToolStart, ToolUseID: id, ToolName: name, ToolInput: input}
}

// ToolProgress creates an incremental tool output notification.
func ToolProgress(id, output string) OutputChunk {
	return OutputChunk{Kind: ChunkToolProgress, ToolUseID: id, Text: output}
}

// ToolEnd creates a tool completion notification.
func ToolEnd(id string, result ToolResult) OutputChunk {
	return OutputChunk{Kind: ChunkToolEnd, ToolUseID: id, Result: &result}
}

// PermissionRequest creates a permission prompt chunk.
func PermissionRequest(toolName, action, input, details string) OutputChunk {
	return OutputChunk{Kind: ChunkPermissionRequest, ToolName: toolName, Action: action, Input: input, Details: details}
}

// AskUserQuestion creates a user question chunk.
func AskUserQuestion(requestID string, questions []UserQuestion) OutputChunk {
	return OutputChunk{Kind: ChunkAskUserQuestion, RequestID: requestID, Questions: questions}
}

// SubAgentSpawned creates a subagent spawn notification.
func SubAgentSpawned(sessionID, agentType string) OutputChunk {
	return OutputChunk{Kind: ChunkSubAgentSpawned, SessionID: sessionID, AgentType: agentType}
}

// SubAgentOutput wraps a subagent's chunk for forwarding on the parent channel.
func SubAgentOutput(sessionID string, chunk OutputChunk) OutputChunk {
	return OutputChunk{Kind: ChunkSubAgentOutput, SessionID: sessionID, Chunk: &chunk}
}

// SubAgentComplete creates a subagent completion notification.
func SubAgentComplete(sessionID string, summary *string) OutputChunk {
	return OutputChunk{Kind: ChunkSubAgentComplete, SessionID: sessionID, Summary: summary}
}

// StateChange creates a state change notification.
func StateChange(state AgentState) OutputChunk {
	return OutputChunk{Kind: ChunkStateChange, State: &state}
}

// Status creates a status update chunk.
func Status(text string) OutputChunk {
	return OutputChunk{Kind: ChunkStatus, Text: text}
}

// ErrorChunk creates an error chunk.
func ErrorChunk(message string) OutputChunk {
	return OutputChunk{Kind: ChunkError, Text: message}
}

// DoneChunk creates the turn completion chunk.
func DoneChunk() OutputChunk { return OutputChunk{Kind: ChunkDone} }

// IsTerminal reports whether this chunk ends a turn.
func (c OutputChunk) IsTerminal() bool {
	return c.Kind == ChunkDone || c.Kind == ChunkError
}

// IsText reports whether this is a text chunk.
func (c OutputChunk) IsText() bool {
	return c.Kind == ChunkTextDelta || c.Kind == ChunkTextComplete
}

// IsThinking reports whether this is a thinking chunk.
func (c OutputChunk) IsThinking() bool {
	return c.Kind == ChunkThinkingDelta || c.Kind == ChunkThinkingComplete
}

// IsTool reports whether this is a tool lifecycle chunk.
func (c OutputChunk) IsTool() bool {
	switch c.Kind {
	case ChunkToolStart, ChunkToolProgress, ChunkToolEnd:
		return true
	}
	return false
}
