// Package core provides the domain types shared across the framework:
// agent states, the input/output message model, tool results, the agent
// context passed to tools, and the framework sentinel errors.
package core

import "errors"

// Framework sentinel errors. Callers match them with errors.Is.
var (
	// ErrChannelClosed is returned when an agent's input channel has
	// been closed (its handle was dropped or the agent shut down).
	ErrChannelClosed = errors.New("agent channel closed")

	// ErrShutdown is returned when a shutdown request preempts a wait.
	ErrShutdown = errors.New("agent shutdown requested")

	// ErrInterrupted is returned when an interrupt preempts a wait.
	ErrInterrupted = errors.New("agent interrupted")

	// ErrAgentNotRunning is returned by runtime lookups for unknown agents.
	ErrAgentNotRunning = errors.New("agent not running")

	// ErrSessionNotFound is returned when a session id has no storage entry.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSubscriberLagged is returned by an output receiver that fell
	// behind the broadcast buffer and lost chunks. The subscriber may
	// keep receiving; newer chunks are unaffected.
	ErrSubscriberLagged = errors.New("subscriber lagged behind output channel")
)
