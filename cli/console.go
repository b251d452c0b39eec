// Package cli provides the interactive console host: it spawns an
// agent, subscribes to its output before sending input, renders chunks,
// and answers permission prompts and user questions from stdin.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/HourSense/shadow-agent-framework/core"
	"github.com/HourSense/shadow-agent-framework/runtime"
)

// Console drives one agent interactively.
type Console struct {
	in  *bufio.Reader
	out io.Writer
}

// NewConsole creates a console over stdin/stdout.
func NewConsole() *Console {
	return &Console{in: bufio.NewReader(os.Stdin), out: os.Stdout}
}

// Run reads user input lines and relays them to the agent until the
// user types "exit" or input ends. The subscriber is created before the
// first send so no chunk of the turn is missed.
func (c *Console) Run(ctx context.Context, handle *runtime.AgentHandle) error {
	fmt.Fprintln(c.out, "Connected to agent", handle.SessionID())
	fmt.Fprintln(c.out, `Type a message, or "exit" to quit.`)

	for {
		fmt.Fprint(c.out, "\n> ")
		line, err := c.in.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return handle.Shutdown(ctx)
			}
			return fmt.Errorf("read input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			fmt.Fprintln(c.out, "Goodbye!")
			return handle.Shutdown(ctx)
		}

		sub := handle.Subscribe()
		if err := handle.SendInput(ctx, line); err != nil {
			sub.Unsubscribe()
			return fmt.Errorf("send input: %w", err)
		}

		if err := c.renderTurn(ctx, handle, sub); err != nil {
			sub.Unsubscribe()
			return err
		}
		sub.Unsubscribe()
	}
}

// renderTurn renders chunks until the turn's terminal chunk.
func (c *Console) renderTurn(ctx context.Context, handle *runtime.AgentHandle, sub *runtime.Subscriber) error {
	for {
		chunk, err := sub.Recv()
		if err != nil {
			if err == core.ErrSubscriberLagged {
				fmt.Fprintln(c.out, "\n[output lagged, some chunks were dropped]")
				continue
			}
			return err
		}

		switch chunk.Kind {
		case core.ChunkTextDelta:
			fmt.Fprint(c.out, chunk.Text)

		case core.ChunkThinkingDelta:
			// Thinking is rendered dimly as it streams.
			fmt.Fprintf(c.out, "\x1b[2m%s\x1b[0m", chunk.Text)

		case core.ChunkToolStart:
			fmt.Fprintf(c.out, "\n[tool %s] %s\n", chunk.ToolName, chunk.ToolInput)

		case core.ChunkToolEnd:
			if chunk.Result != nil && chunk.Result.IsError {
				fmt.Fprintf(c.out, "[tool error] %s\n", chunk.Result.Output)
			}

		case core.ChunkPermissionRequest:
			if err := c.answerPermission(ctx, handle, chunk); err != nil {
				return err
			}

		case core.ChunkAskUserQuestion:
			if err := c.answerQuestions(ctx, handle, chunk); err != nil {
				return err
			}

		case core.ChunkSubAgentSpawned:
			fmt.Fprintf(c.out, "\n[subagent %s spawned]\n", chunk.SessionID)

		case core.ChunkSubAgentComplete:
			fmt.Fprintf(c.out, "[subagent %s complete]\n", chunk.SessionID)

		case core.ChunkStatus:
			fmt.Fprintf(c.out, "\n[%s]\n", chunk.Text)

		case core.ChunkError:
			fmt.Fprintf(c.out, "\n[error] %s\n", chunk.Text)
			return nil

		case core.ChunkDone:
			fmt.Fprintln(c.out)
			return nil
		}
	}
}

// answerPermission prompts for a y/n/a (always) decision.
func (c *Console) answerPermission(ctx context.Context, handle *runtime.AgentHandle, chunk core.OutputChunk) error {
	fmt.Fprintf(c.out, "\nPermission needed: %s\n", chunk.Action)
	if chunk.Details != "" {
		fmt.Fprintf(c.out, "  %s\n", chunk.Details)
	}
	fmt.Fprint(c.out, "Allow? [y]es / [n]o / [a]lways: ")

	line, err := c.in.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read permission answer: %w", err)
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	allowed := answer == "y" || answer == "yes" || answer == "a" || answer == "always"
	remember := answer == "a" || answer == "always"

	return handle.SendPermissionResponse(ctx, chunk.ToolName, allowed, remember)
}

// answerQuestions walks the agent's questions, reading one answer each.
func (c *Console) answerQuestions(ctx context.Context, handle *runtime.AgentHandle, chunk core.OutputChunk) error {
	answers := make(map[string]string, len(chunk.Questions))
	for _, question := range chunk.Questions {
		fmt.Fprintf(c.out, "\n[%s] %s\n", question.Header, question.Question)
		for i, option := range question.Options {
			fmt.Fprintf(c.out, "  %d. %s", i+1, option.Label)
			if option.Description != "" {
				fmt.Fprintf(c.out, " - %s", option.Description)
			}
			fmt.Fprintln(c.out)
		}
		fmt.Fprint(c.out, "Answer (number or free text): ")

		line, err := c.in.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read answer: %w", err)
		}
		answer := strings.TrimSpace(line)

		// A bare number selects the option's label.
		for i, option := range question.Options {
			if answer == fmt.Sprintf("%d", i+1) {
				answer = option.Label
				break
			}
		}
		answers[question.Question] = answer
	}

	return handle.SendUserQuestionResponse(ctx, chunk.RequestID, answers)
}
