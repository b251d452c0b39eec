// Hook Registry.
//
// Stores hooks per event as insertion-ordered matcher lists. Matchers
// filter tool hooks by a regex on the tool name; non-tool hooks always
// run. Results combine with precedence Deny > Allow > Ask > None.

package hooks

import (
	"log/slog"
	"regexp"
)

// Hook is the callback interface. Hooks run synchronously inside the
// agent loop; long operations belong in a spawned goroutine.
type Hook interface {
	Call(ctx *Context) Result
}

// HookFunc adapts a function to the Hook interface.
type HookFunc func(ctx *Context) Result

// Call runs the function.
func (f HookFunc) Call(ctx *Context) Result { return f(ctx) }

// Matcher pairs an optional tool-name pattern with a hook.
type Matcher struct {
	pattern *regexp.Regexp
	hook    Hook
}

// NewMatcher creates a matcher that applies to every tool.
func NewMatcher(hook Hook) Matcher {
	return Matcher{hook: hook}
}

// NewPatternMatcher creates a matcher restricted to tool names matching
// the regex pattern, e.g. "Bash", "Read|Write|Edit", or "^server__".
func NewPatternMatcher(pattern string, hook Hook) (Matcher, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Matcher{}, err
	}
	return Matcher{pattern: re, hook: hook}, nil
}

// MatchesTool reports whether this matcher applies to a tool name.
func (m Matcher) MatchesTool(toolName string) bool {
	if m.pattern == nil {
		return true
	}
	return m.pattern.MatchString(toolName)
}

// Registry holds all hooks, keyed by event.
type Registry struct {
	hooks map[Event][]Matcher

	// ShortCircuitOnDeny stops the run at the first Deny. Off by
	// default so security and audit hooks always fire.
	ShortCircuitOnDeny bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{hooks: make(map[Event][]Matcher)}
}

// Add registers a hook that matches all tools.
func (r *Registry) Add(event Event, hook Hook) *Registry {
	r.hooks[event] = append(r.hooks[event], NewMatcher(hook))
	return r
}

// AddFunc registers a function hook that matches all tools.
func (r *Registry) AddFunc(event Event, fn func(ctx *Context) Result) *Registry {
	return r.Add(event, HookFunc(fn))
}

// AddWithPattern registers a hook restricted to matching tool names.
func (r *Registry) AddWithPattern(event Event, pattern string, hook Hook) error {
	matcher, err := NewPatternMatcher(pattern, hook)
	if err != nil {
		return err
	}
	r.hooks[event] = append(r.hooks[event], matcher)
	return nil
}

// AddFuncWithPattern registers a function hook restricted to matching
// tool names.
func (r *Registry) AddFuncWithPattern(event Event, pattern string, fn func(ctx *Context) Result) error {
	return r.AddWithPattern(event, pattern, HookFunc(fn))
}

// HasHooks reports whether any hook is registered for an event.
func (r *Registry) HasHooks(event Event) bool {
	return len(r.hooks[event]) > 0
}

// HookCount returns the number of hooks for an event.
func (r *Registry) HookCount(event Event) int {
	return len(r.hooks[event])
}

// Run executes all matching hooks for the context's event, in insertion
// order, and combines their results with precedence Deny > Allow > Ask >
// None. Tool hooks are filtered by tool name; other hooks always run.
func (r *Registry) Run(ctx *Context) Result {
	matchers := r.hooks[ctx.Event]
	if len(matchers) == 0 {
		return None()
	}

	combined := None()
	for _, matcher := range matchers {
		if isToolEvent(ctx.Event) && !matcher.MatchesTool(ctx.ToolName) {
			continue
		}

		result := matcher.hook.Call(ctx)
		combined = combine(combined, result)

		if r.ShortCircuitOnDeny && combined.Decision == DecisionDeny {
			slog.Debug("hook run short-circuited on deny", "event", ctx.Event, "tool", ctx.ToolName)
			break
		}
	}
	return combined
}

func isToolEvent(event Event) bool {
	switch event {
	case PreToolUse, PostToolUse, PostToolUseFailure:
		return true
	}
	return false
}

// combine merges two results with precedence Deny > Allow > Ask > None.
func combine(a, b Result) Result {
	rank := func(d Decision) int {
		switch d {
		case DecisionDeny:
			return 3
		case DecisionAllow:
			return 2
		case DecisionAsk:
			return 1
		}
		return 0
	}
	if rank(b.Decision) > rank(a.Decision) {
		return b
	}
	return a
}
