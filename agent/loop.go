// Standard Agent Loop.
//
// The main agent implementation:
// - Input → LLM → Tools → Output cycle
// - Attachment expansion and context injection before LLM calls
// - Streaming consumption racing model events against interrupts
// - Session persistence after every append
// - Conversation naming after the first turn

package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/HourSense/shadow-agent-framework/core"
	"github.com/HourSense/shadow-agent-framework/hooks"
	"github.com/HourSense/shadow-agent-framework/internal/jsonutil"
	"github.com/HourSense/shadow-agent-framework/llm"
	"github.com/HourSense/shadow-agent-framework/runtime"
	"github.com/HourSense/shadow-agent-framework/storage"
	"github.com/HourSense/shadow-agent-framework/tools"
)

// StandardAgent runs the full agent loop over a provider and a config.
//
//	standard := agent.NewStandardAgent(config, provider)
//	handle := rt.Spawn(ctx, session, standard.Run)
type StandardAgent struct {
	config   *Config
	provider llm.Provider
	executor *ToolExecutor
}

// NewStandardAgent creates a standard agent.
func NewStandardAgent(config *Config, provider llm.Provider) *StandardAgent {
	var executor *ToolExecutor
	if config.Tools != nil {
		executor = NewToolExecutor(config.Tools, config.Hooks)
	}
	return &StandardAgent{config: config, provider: provider, executor: executor}
}

// Run is the agent function: pass it to AgentRuntime.Spawn.
func (a *StandardAgent) Run(ctx context.Context, internals *runtime.AgentInternals) error {
	logger := slog.With("session_id", internals.SessionID())
	logger.Info("standard agent started, waiting for input")

	if a.config.Debug {
		sessionDir := ""
		_ = internals.WithSession(func(session *storage.AgentSession) error {
			sessionDir = session.Storage().SessionDir(session.SessionID())
			return nil
		})
		if debugger, err := NewDebugger(sessionDir); err == nil {
			internals.Context.Resources.Put(debugger)
			logger.Info("debug logging enabled", "dir", debugger.Dir())
		} else {
			logger.Warn("failed to initialize debugger", "error", err)
		}
	}

	if _, ok := core.Resource[*tools.TodoListManager](internals.Context.Resources); !ok {
		internals.Context.Resources.Put(tools.NewTodoListManager())
	}

	for {
		internals.SetIdle()

		msg, err := internals.Receive(ctx)
		if err != nil {
			logger.Info("input channel closed, shutting down")
			internals.SetDone()
			return nil
		}

		switch msg.Kind {
		case core.InputUserInput:
			internals.SetProcessing()

			err := a.processTurn(ctx, internals, msg.Text)
			switch {
			case errors.Is(err, core.ErrShutdown):
				internals.SetDone()
				return nil
			case err != nil:
				logger.Error("turn failed", "error", err)
				internals.SendError(fmt.Sprintf("Error: %v", err))
				internals.SetError(err.Error())
			default:
				internals.SendDone()
				if a.config.AutoSaveSession {
					if err := internals.SaveSession(); err != nil {
						logger.Error("failed to save session", "error", err)
					}
				}
				a.maybeNameConversation(ctx, internals)
			}

			internals.NextTurn()

		case core.InputInterrupt:
			// Nothing in flight; ignore.

		case core.InputShutdown:
			logger.Info("shutting down")
			internals.SetDone()
			return nil

		default:
			// Responses keyed to requests the loop is not awaiting.
		}
	}
}

// processTurn handles one user input: possibly several model calls
// interleaved with tool execution. Interrupts end the turn gracefully
// (nil error); transport and storage failures are returned.
func (a *StandardAgent) processTurn(ctx context.Context, internals *runtime.AgentInternals, userInput string) error {
	prompt := userInput
	if a.config.Hooks != nil {
		hookCtx := hooks.NewUserPromptSubmit(internals, prompt)
		a.config.Hooks.Run(hookCtx)
		prompt = hookCtx.UserPrompt
	}

	if err := internals.AddMessage(ExpandAttachments(prompt)); err != nil {
		return fmt.Errorf("persist user message: %w", err)
	}

	toolDefinitions := a.config.ToolDefinitions()

	for iteration := 1; ; iteration++ {
		if iteration > a.config.MaxToolIterations {
			slog.Warn("max tool iterations reached",
				"session_id", internals.SessionID(), "max", a.config.MaxToolIterations)
			internals.SendStatus("Max tool iterations reached")
			return nil
		}

		messages := internals.History()
		if a.config.Injections != nil {
			messages = a.config.Injections.Apply(internals, messages)
		}

		req := llm.MessageRequest{
			Messages:    messages,
			Tools:       toolDefinitions,
			Thinking:    a.config.Thinking,
			Temperature: a.config.Temperature,
			MaxTokens:   a.config.MaxTokens,
		}
		if a.config.SystemPrompt != "" {
			req.System = []llm.SystemBlock{llm.System(a.config.SystemPrompt)}
		}
		if a.config.PromptCaching {
			llm.ApplyCacheBreakpoints(&req)
		}

		if debugger, ok := core.Resource[*Debugger](internals.Context.Resources); ok {
			debugger.LogAPIRequest(req)
		}

		var turn turnResult
		var err error
		if a.config.Streaming {
			turn, err = a.streamTurn(ctx, internals, req)
		} else {
			turn, err = a.blockingTurn(ctx, internals, req)
		}
		if err != nil {
			return err
		}

		if debugger, ok := core.Resource[*Debugger](internals.Context.Resources); ok {
			debugger.LogAPIResponse(turn.blocks, string(turn.stopReason))
		}

		if turn.interrupted {
			// Partial content plus the literal interrupt marker, never
			// any tool_use blocks.
			blocks := append(turn.blocks, llm.Text(core.InterruptMarker))
			if err := internals.AddMessage(llm.AssistantMessageBlocks(blocks...)); err != nil {
				return fmt.Errorf("persist interrupted message: %w", err)
			}
			if turn.shutdown {
				return core.ErrShutdown
			}
			return nil
		}

		if len(turn.blocks) == 0 {
			turn.blocks = []llm.ContentBlock{llm.Text("")}
		}
		if err := internals.AddMessage(llm.AssistantMessageBlocks(turn.blocks...)); err != nil {
			return fmt.Errorf("persist assistant message: %w", err)
		}

		toolUses := llm.AssistantMessageBlocks(turn.blocks...).ToolUses()
		if len(toolUses) == 0 {
			return nil
		}

		interrupted, shutdown, err := a.toolPhase(ctx, internals, toolUses)
		if err != nil {
			return err
		}
		if interrupted {
			marker := llm.AssistantMessageBlocks(llm.Text(core.InterruptMarker))
			if err := internals.AddMessage(marker); err != nil {
				return fmt.Errorf("persist interrupt marker: %w", err)
			}
			if shutdown {
				return core.ErrShutdown
			}
			return nil
		}
	}
}

// toolPhase executes the turn's tool_use blocks in order, collecting
// the results into a single user message. An interrupt lets the current
// tool finish; unstarted tools receive Interrupted error results.
func (a *StandardAgent) toolPhase(ctx context.Context, internals *runtime.AgentInternals, toolUses []llm.ContentBlock) (interrupted, shutdown bool, err error) {
	results := make([]llm.ContentBlock, 0, len(toolUses))

	for _, use := range toolUses {
		if interrupted {
			results = append(results, llm.ToolResultBlock(use.ID, "Interrupted", true))
			continue
		}

		var result core.ToolResult
		if a.executor == nil {
			result = core.ErrorResult(fmt.Sprintf("No tools configured, cannot execute: %s", use.Name))
		} else {
			var execErr error
			result, execErr = a.executor.Execute(ctx, internals, use.Name, use.ID, use.Input)
			switch {
			case errors.Is(execErr, core.ErrInterrupted):
				interrupted = true
			case errors.Is(execErr, core.ErrShutdown):
				interrupted = true
				shutdown = true
			case execErr != nil:
				return false, false, execErr
			}
		}
		results = append(results, ResultBlock(use.ID, result))

		// Observe interrupts that arrived while the tool was running.
		if !interrupted {
			if msg, ok := internals.TryReceive(); ok {
				switch msg.Kind {
				case core.InputInterrupt:
					interrupted = true
				case core.InputShutdown:
					interrupted = true
					shutdown = true
				}
			}
		}
	}

	if err := internals.AddMessage(llm.UserMessageBlocks(results...)); err != nil {
		return false, false, fmt.Errorf("persist tool results: %w", err)
	}
	return interrupted, shutdown, nil
}

// turnResult is the outcome of consuming one model response.
type turnResult struct {
	blocks      []llm.ContentBlock
	stopReason  llm.StopReason
	interrupted bool
	shutdown    bool
}

// blockingTurn performs a non-streamed model call, forwarding each
// block as output chunks after the fact.
func (a *StandardAgent) blockingTurn(ctx context.Context, internals *runtime.AgentInternals, req llm.MessageRequest) (turnResult, error) {
	resp, err := a.provider.Send(ctx, req)
	if err != nil {
		return turnResult{}, fmt.Errorf("model call failed: %w", err)
	}

	for _, block := range resp.Content {
		switch block.Type {
		case llm.BlockText:
			internals.SendText(block.Text)
			internals.SendTextComplete(block.Text)
		case llm.BlockThinking:
			internals.SendThinking(block.Thinking)
			internals.SendThinkingComplete(block.Thinking)
		}
	}

	turn := turnResult{blocks: resp.Content, stopReason: resp.StopReason}

	// A blocking call cannot observe interrupts mid-flight; check once
	// the response is in.
	if msg, ok := internals.TryReceive(); ok {
		switch msg.Kind {
		case core.InputInterrupt:
			turn.interrupted = true
			turn.blocks = stripForInterrupt(turn.blocks)
		case core.InputShutdown:
			turn.interrupted = true
			turn.shutdown = true
			turn.blocks = stripForInterrupt(turn.blocks)
		}
	}
	return turn, nil
}

// partialBlock accumulates one streamed content block.
type partialBlock struct {
	block    llm.ContentBlock
	text     strings.Builder
	thinking strings.Builder
	json     strings.Builder
	complete bool
}

// streamTurn consumes a streamed model response, racing model events
// against the input queue so interrupts are observed immediately.
func (a *StandardAgent) streamTurn(ctx context.Context, internals *runtime.AgentInternals, req llm.MessageRequest) (turnResult, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, err := a.provider.Stream(streamCtx, req)
	if err != nil {
		return turnResult{}, fmt.Errorf("stream start failed: %w", err)
	}

	partials := make(map[int]*partialBlock)
	var order []int
	var turn turnResult

	finish := func(interrupted bool) turnResult {
		turn.interrupted = turn.interrupted || interrupted
		turn.blocks = assembleBlocks(partials, order, turn.interrupted)
		return turn
	}

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return finish(false), nil
			}

			switch event.Kind {
			case llm.EventContentBlockStart:
				if _, exists := partials[event.Index]; !exists {
					partial := &partialBlock{}
					if event.Block != nil {
						partial.block = *event.Block
					}
					partials[event.Index] = partial
					order = append(order, event.Index)
				}

			case llm.EventContentBlockDelta:
				partial, exists := partials[event.Index]
				if !exists {
					partial = &partialBlock{block: llm.ContentBlock{Type: llm.BlockText}}
					partials[event.Index] = partial
					order = append(order, event.Index)
				}
				switch event.Delta {
				case llm.DeltaText:
					partial.text.WriteString(event.Text)
					internals.SendText(event.Text)
				case llm.DeltaThinking:
					partial.thinking.WriteString(event.Thinking)
					internals.SendThinking(event.Thinking)
				case llm.DeltaInputJSON:
					partial.json.WriteString(event.PartialJSON)
				case llm.DeltaSignature:
					partial.block.Signature += event.Signature
				}

			case llm.EventContentBlockStop:
				if partial, exists := partials[event.Index]; exists && !partial.complete {
					partial.complete = true
					switch partial.block.Type {
					case llm.BlockText:
						internals.SendTextComplete(partial.text.String())
					case llm.BlockThinking:
						internals.SendThinkingComplete(partial.thinking.String())
					}
				}

			case llm.EventMessageDelta:
				turn.stopReason = event.StopReason

			case llm.EventError:
				return turnResult{}, fmt.Errorf("stream failed: %w", event.Err)

			case llm.EventMessageStop:
				return finish(false), nil
			}

		case msg := <-internals.InputChan():
			switch msg.Kind {
			case core.InputInterrupt:
				// Text the provider delivered before the interrupt was seen
				// is kept; anything arriving after the cancel is discarded.
				for buffered := len(events); buffered > 0; buffered-- {
					event, ok := <-events
					if !ok {
						break
					}
					if event.Kind == llm.EventContentBlockDelta && event.Delta == llm.DeltaText {
						if partial, exists := partials[event.Index]; exists {
							partial.text.WriteString(event.Text)
							internals.SendText(event.Text)
						}
					}
				}
				cancel()
				drainEvents(events)
				return finish(true), nil
			case core.InputShutdown:
				cancel()
				drainEvents(events)
				turn.shutdown = true
				return finish(true), nil
			default:
				// Unrelated input mid-stream is dropped.
			}
		}
	}
}

// drainEvents discards remaining events so the provider goroutine exits.
func drainEvents(events <-chan llm.StreamEvent) {
	for range events {
	}
}

// assembleBlocks materializes completed partials in stream order. On
// interrupt: completed and partial text is preserved, an incomplete
// thinking block (no signature yet) is discarded, and every tool_use
// block is discarded.
func assembleBlocks(partials map[int]*partialBlock, order []int, interrupted bool) []llm.ContentBlock {
	var blocks []llm.ContentBlock
	for _, index := range order {
		partial := partials[index]
		block := partial.block

		switch block.Type {
		case llm.BlockText:
			block.Text = partial.text.String()
			if block.Text == "" && interrupted {
				continue
			}
			blocks = append(blocks, block)

		case llm.BlockThinking:
			if interrupted && !partial.complete {
				continue
			}
			block.Thinking = partial.thinking.String()
			blocks = append(blocks, block)

		case llm.BlockToolUse:
			if interrupted {
				continue
			}
			block.Input = jsonutil.NormalizeObject(partial.json.String())
			blocks = append(blocks, block)

		case llm.BlockRedactedThinking:
			blocks = append(blocks, block)
		}
	}
	return blocks
}

// stripForInterrupt removes tool_use and unsigned thinking blocks from a
// fully received response that is being cut short.
func stripForInterrupt(blocks []llm.ContentBlock) []llm.ContentBlock {
	var out []llm.ContentBlock
	for _, block := range blocks {
		switch block.Type {
		case llm.BlockToolUse:
			continue
		case llm.BlockThinking:
			if block.Signature == "" {
				continue
			}
		}
		out = append(out, block)
	}
	return out
}

// maybeNameConversation generates a conversation name after the first
// turn when auto-naming is configured.
func (a *StandardAgent) maybeNameConversation(ctx context.Context, internals *runtime.AgentInternals) {
	if a.config.Namer == nil || internals.Context.CurrentTurn != 0 {
		return
	}

	var existing string
	_ = internals.WithSession(func(session *storage.AgentSession) error {
		existing = session.ConversationName()
		return nil
	})
	if existing != "" {
		return
	}

	history := internals.History()
	go func() {
		name, err := a.config.Namer.GenerateName(ctx, history)
		if err != nil {
			slog.Warn("conversation naming failed",
				"session_id", internals.SessionID(), "error", err)
			return
		}
		if err := internals.WithSession(func(session *storage.AgentSession) error {
			return session.SetConversationName(name)
		}); err != nil {
			slog.Warn("persisting conversation name failed",
				"session_id", internals.SessionID(), "error", err)
		}
	}()
}
