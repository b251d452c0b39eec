package core

import "fmt"

// StateKind identifies an agent state variant.
type StateKind string

const (
	StateIdle                  StateKind = "idle"
	StateProcessing            StateKind = "processing"
	StateWaitingForPermission  StateKind = "waiting_for_permission"
	StateWaitingForUserInput   StateKind = "waiting_for_user_input"
	StateExecutingTool         StateKind = "executing_tool"
	StateWaitingForSubAgent    StateKind = "waiting_for_subagent"
	StateDone                  StateKind = "done"
	StateError                 StateKind = "error"
)

// AgentState is the current state of an agent. Kind selects the variant;
// the payload fields are populated per variant.
type AgentState struct {
	Kind StateKind `json:"kind"`

	// ExecutingTool
	ToolName  string `json:"tool_name,omitempty"`
	ToolUseID string `json:"tool_use_id,omitempty"`

	// WaitingForSubAgent
	SessionID string `json:"session_id,omitempty"`

	// WaitingForUserInput
	RequestID string `json:"request_id,omitempty"`

	// Error
	Message string `json:"message,omitempty"`
}

// Idle returns the idle state.
func Idle() AgentState { return AgentState{Kind: StateIdle} }

// Processing returns the processing state.
func Processing() AgentState { return AgentState{Kind: StateProcessing} }

// Done returns the done state.
func Done() AgentState { return AgentState{Kind: StateDone} }

// WaitingForPermission returns the permission-wait state.
func WaitingForPermission() AgentState { return AgentState{Kind: StateWaitingForPermission} }

// ErrorState returns an error state with a message.
func ErrorState(message string) AgentState {
	return AgentState{Kind: StateError, Message: message}
}

// ExecutingTool returns the tool-execution state.
func ExecutingTool(toolName, toolUseID string) AgentState {
	return AgentState{Kind: StateExecutingTool, ToolName: toolName, ToolUseID: toolUseID}
}

// WaitingForSubAgent returns the subagent-wait state.
func WaitingForSubAgent(sessionID string) AgentState {
	return AgentState{Kind: StateWaitingForSubAgent, SessionID: sessionID}
}

// WaitingForUserInput returns the user-question-wait state.
func WaitingForUserInput(requestID string) AgentState {
	return AgentState{Kind: StateWaitingForUserInput, RequestID: requestID}
}

// IsTerminal reports whether the agent has finished (Done or Error).
func (s AgentState) IsTerminal() bool {
	return s.Kind == StateDone || s.Kind == StateError
}

// IsActive reports whether the agent is actively working.
func (s AgentState) IsActive() bool {
	switch s.Kind {
	case StateProcessing, StateExecutingTool, StateWaitingForSubAgent:
		return true
	}
	return false
}

// IsWaiting reports whether the agent is waiting for external input.
func (s AgentState) IsWaiting() bool {
	switch s.Kind {
	case StateIdle, StateWaitingForPermission, StateWaitingForUserInput:
		return true
	}
	return false
}

// String renders a human-readable form.
func (s AgentState) String() string {
	switch s.Kind {
	case StateIdle:
		return "Idle"
	case StateProcessing:
		return "Processing"
	case StateWaitingForPermission:
		return "Waiting for permission"
	case StateWaitingForUserInput:
		return fmt.Sprintf("Waiting for user input: %s", s.RequestID)
	case StateExecutingTool:
		return fmt.Sprintf("Executing tool: %s", s.ToolName)
	case StateWaitingForSubAgent:
		return fmt.Sprintf("Waiting for subagent: %s", s.SessionID)
	case StateDone:
		return "Done"
	case StateError:
		return fmt.Sprintf("Error: %s", s.Message)
	}
	return string(s.Kind)
}
