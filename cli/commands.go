// Cobra command tree for the shadow CLI.

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/HourSense/shadow-agent-framework/agent"
	"github.com/HourSense/shadow-agent-framework/config"
	"github.com/HourSense/shadow-agent-framework/llm"
	"github.com/HourSense/shadow-agent-framework/runtime"
	"github.com/HourSense/shadow-agent-framework/storage"
	"github.com/HourSense/shadow-agent-framework/tools"
)

// Execute runs the CLI.
func Execute() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "shadow",
		Short: "Agent orchestration framework",
		Long:  "Spawn and converse with LLM agents that execute tools under a permission policy.",
	}

	root.AddCommand(newRunCommand())
	root.AddCommand(newSessionsCommand())
	return root
}

func newRunCommand() *cobra.Command {
	var providerName string
	var systemPrompt string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an interactive console agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()

			settings, err := config.New(providerName)
			if err != nil {
				return err
			}

			provider, err := buildProvider(settings)
			if err != nil {
				return err
			}

			registry := tools.NewRegistry()
			if err := registry.RegisterAll(
				tools.NewBashTool(),
				tools.NewReadTool(),
				tools.NewWriteTool(),
				tools.NewEditTool(),
				tools.NewGlobTool(),
				tools.NewGrepTool(),
				tools.NewAskUserQuestionTool(),
				tools.NewTodoWriteTool(),
			); err != nil {
				return err
			}

			agentConfig := agent.NewConfig(systemPrompt).
				WithTools(registry).
				WithStreaming(settings.Agent.Streaming).
				WithMaxToolIterations(settings.Agent.MaxToolIterations).
				WithMaxTokens(settings.LLM.MaxTokens).
				WithPromptCaching(settings.LLM.Provider == "anthropic").
				WithDebug(settings.Agent.Debug)
			if settings.Agent.ThinkingBudget > 0 {
				agentConfig.WithThinking(settings.Agent.ThinkingBudget)
			}
			if anthropic, ok := provider.(*llm.AnthropicProvider); ok {
				agentConfig.WithAutoName(agent.NewConversationNamer(
					anthropic.WithModelAndTokens(agent.DefaultNamingModel, 100)))
			}

			store := storage.WithDir(settings.Agent.SessionRoot)
			session, err := storage.NewSession(
				"console-"+uuid.NewString(), "console", "Console Agent",
				"Interactive console agent", store)
			if err != nil {
				return err
			}
			session.SetModel(settings.LLM.Model)
			session.SetProvider(settings.LLM.Provider)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			index, err := openIndex(settings.Agent.SessionRoot)
			if err != nil {
				return err
			}
			defer index.Close()
			if err := index.Record(ctx, session.Metadata); err != nil {
				return err
			}

			rt := runtime.NewRuntime()
			standard := agent.NewStandardAgent(agentConfig, provider)
			handle := rt.Spawn(ctx, session, standard.Run)

			if err := NewConsole().Run(ctx, handle); err != nil {
				return err
			}
			if err := rt.WaitFor(ctx, handle.SessionID()); err != nil {
				return err
			}

			// Refresh the index row so updated_at and the generated
			// conversation name are searchable afterwards.
			if metadata, err := store.LoadMetadata(session.SessionID()); err == nil {
				_ = index.Record(ctx, metadata)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&providerName, "provider", "p", "anthropic", "LLM provider (anthropic, openai, gemini)")
	cmd.Flags().StringVarP(&systemPrompt, "system", "s", "You are a helpful assistant.", "System prompt")
	return cmd
}

func buildProvider(settings config.Settings) (llm.Provider, error) {
	if settings.LLM.APIKey == "" {
		return nil, fmt.Errorf("no API key configured for provider %q", settings.LLM.Provider)
	}

	switch settings.LLM.Provider {
	case "anthropic":
		return llm.NewAnthropicProvider(settings.LLM.APIKey, settings.LLM.Model, settings.LLM.MaxTokens), nil
	case "openai":
		return llm.NewOpenAIProvider(settings.LLM.APIKey, settings.LLM.Model, settings.LLM.MaxTokens), nil
	case "gemini":
		return llm.NewGeminiProvider(settings.LLM.APIKey, settings.LLM.Model, settings.LLM.MaxTokens), nil
	}
	return nil, fmt.Errorf("unknown provider %q", settings.LLM.Provider)
}

// indexFile is the session index database inside the storage root.
const indexFile = "index.db"

// openIndex opens the SQLite session index for a storage root.
func openIndex(root string) (*storage.SQLiteIndex, error) {
	return storage.OpenIndex(filepath.Join(root, indexFile))
}

// openFreshIndex opens the index and repopulates it from the file store
// when it is empty (first use, or the database was deleted).
func openFreshIndex(ctx context.Context, root string) (*storage.SQLiteIndex, error) {
	index, err := openIndex(root)
	if err != nil {
		return nil, err
	}
	entries, err := index.Recent(ctx, 1, false)
	if err != nil {
		index.Close()
		return nil, err
	}
	if len(entries) == 0 {
		if err := index.Rebuild(ctx, storage.WithDir(root)); err != nil {
			index.Close()
			return nil, err
		}
	}
	return index, nil
}

func printEntries(entries []storage.IndexEntry) {
	for _, entry := range entries {
		name := entry.ConversationName
		if name == "" {
			name = entry.Name
		}
		fmt.Printf("%s\t%s\t%s\t%s\n",
			entry.SessionID, entry.AgentType, name,
			entry.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
}

func newSessionsCommand() *cobra.Command {
	sessions := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect stored sessions",
	}

	var root string
	sessions.PersistentFlags().StringVar(&root, "root", "sessions", "Session storage root")

	list := &cobra.Command{
		Use:   "list",
		Short: "List sessions, most recently updated first",
		RunE: func(cmd *cobra.Command, args []string) error {
			topLevel, _ := cmd.Flags().GetBool("top-level")
			limit, _ := cmd.Flags().GetInt("limit")

			index, err := openFreshIndex(cmd.Context(), root)
			if err != nil {
				return err
			}
			defer index.Close()

			entries, err := index.Recent(cmd.Context(), limit, topLevel)
			if err != nil {
				return err
			}
			printEntries(entries)
			return nil
		},
	}
	list.Flags().Bool("top-level", false, "Only sessions without a parent")
	list.Flags().Int("limit", 50, "Maximum sessions to list")

	search := &cobra.Command{
		Use:   "search <term>",
		Short: "Search sessions by name or conversation name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			index, err := openFreshIndex(cmd.Context(), root)
			if err != nil {
				return err
			}
			defer index.Close()

			entries, err := index.Search(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			printEntries(entries)
			return nil
		},
	}
	search.Flags().Int("limit", 50, "Maximum sessions to list")

	show := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Print a session's history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			messages, err := storage.WithDir(root).GetHistory(args[0])
			if err != nil {
				return err
			}
			for _, message := range messages {
				data, err := json.Marshal(message)
				if err != nil {
					return err
				}
				fmt.Println(string(data))
			}
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session permanently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := storage.WithDir(root).DeleteSession(args[0]); err != nil {
				return err
			}
			index, err := openIndex(root)
			if err != nil {
				return err
			}
			defer index.Close()
			return index.Remove(cmd.Context(), args[0])
		},
	}

	sessions.AddCommand(list, search, show, remove)
	return sessions
}
