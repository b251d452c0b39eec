// Context Injection System.
//
// Injections transform the message list right before it is sent to the
// model, without modifying the persisted session history: system
// reminders, first-message augmentation, dynamic context based on agent
// state.

package agent

import (
	"log/slog"

	"github.com/HourSense/shadow-agent-framework/llm"
	"github.com/HourSense/shadow-agent-framework/runtime"
)

// Injection transforms the outgoing message list before a model call.
type Injection interface {
	// Name identifies the injection for logging.
	Name() string

	// Inject returns the (possibly modified) messages to send. The
	// session history itself is never modified by injections.
	Inject(internals *runtime.AgentInternals, messages []llm.Message) []llm.Message
}

// FnInjection adapts a function to the Injection interface.
type FnInjection struct {
	name string
	fn   func(internals *runtime.AgentInternals, messages []llm.Message) []llm.Message
}

// NewFnInjection creates a function-based injection.
func NewFnInjection(name string, fn func(internals *runtime.AgentInternals, messages []llm.Message) []llm.Message) *FnInjection {
	return &FnInjection{name: name, fn: fn}
}

// Name returns the injection name.
func (f *FnInjection) Name() string { return f.name }

// Inject runs the function.
func (f *FnInjection) Inject(internals *runtime.AgentInternals, messages []llm.Message) []llm.Message {
	return f.fn(internals, messages)
}

// InjectionChain applies injections in order; each receives the output
// of the previous one.
type InjectionChain struct {
	injections []Injection
}

// NewInjectionChain creates an empty chain.
func NewInjectionChain() *InjectionChain {
	return &InjectionChain{}
}

// Add appends an injection.
func (c *InjectionChain) Add(injection Injection) {
	c.injections = append(c.injections, injection)
}

// AddFn appends a function-based injection.
func (c *InjectionChain) AddFn(name string, fn func(internals *runtime.AgentInternals, messages []llm.Message) []llm.Message) {
	c.Add(NewFnInjection(name, fn))
}

// Apply runs all injections in order.
func (c *InjectionChain) Apply(internals *runtime.AgentInternals, messages []llm.Message) []llm.Message {
	for _, injection := range c.injections {
		slog.Debug("applying context injection", "injection", injection.Name())
		messages = injection.Inject(internals, messages)
	}
	return messages
}

// Len returns the number of injections.
func (c *InjectionChain) Len() int { return len(c.injections) }

// Names returns the injection names in order.
func (c *InjectionChain) Names() []string {
	names := make([]string, len(c.injections))
	for i, injection := range c.injections {
		names[i] = injection.Name()
	}
	return names
}

// InjectSystemReminder appends a <system-reminder> block to the last
// message of the list.
func InjectSystemReminder(messages []llm.Message, reminder string) []llm.Message {
	if len(messages) == 0 {
		return messages
	}
	last := messages[len(messages)-1]
	if last.Content.IsBlocks() {
		// Clone so the session's backing array is never mutated.
		last.Content.Blocks = append([]llm.ContentBlock(nil), last.Content.Blocks...)
	}
	last.AppendText("\n<system-reminder>\n" + reminder + "\n</system-reminder>")
	messages[len(messages)-1] = last
	return messages
}

// PrependToFirstUserMessage prepends text to the first user message.
func PrependToFirstUserMessage(messages []llm.Message, text string) []llm.Message {
	for i := range messages {
		if messages[i].Role == llm.RoleUser {
			messages[i].PrependText(text)
			break
		}
	}
	return messages
}

// AppendToLastMessage appends text to the last message.
func AppendToLastMessage(messages []llm.Message, text string) []llm.Message {
	if len(messages) == 0 {
		return messages
	}
	messages[len(messages)-1].AppendText(text)
	return messages
}
