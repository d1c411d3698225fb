// Command reactor wires a rate-limited LLM provider, a tool registry, the
// ReAct engine, the session manager, and a persistence backend together and
// runs a single query to completion from the command line.
//
// Usage:
//
//	reactor run "What is the latest 10-K filed by Apple?"
//	reactor run --model gemini-2.5-flash --config reactor.yaml "..."
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fenwicklabs/reactor/internal/config"
	"github.com/fenwicklabs/reactor/internal/llm"
	"github.com/fenwicklabs/reactor/internal/llm/anthropic"
	"github.com/fenwicklabs/reactor/internal/llm/google"
	"github.com/fenwicklabs/reactor/internal/llm/openai"
	"github.com/fenwicklabs/reactor/internal/observability"
	"github.com/fenwicklabs/reactor/internal/persistence"
	"github.com/fenwicklabs/reactor/internal/ratelimit"
	"github.com/fenwicklabs/reactor/internal/react"
	"github.com/fenwicklabs/reactor/internal/runner"
	"github.com/fenwicklabs/reactor/internal/sessions"
	"github.com/fenwicklabs/reactor/internal/tools"
	"github.com/fenwicklabs/reactor/internal/tools/codeexec"
	"github.com/fenwicklabs/reactor/internal/tools/files"
	"github.com/fenwicklabs/reactor/internal/tools/final"
	"github.com/fenwicklabs/reactor/internal/tools/marketdata"
	"github.com/fenwicklabs/reactor/internal/tools/marketdata/stooq"
	"github.com/fenwicklabs/reactor/internal/tools/secfilings"
	"github.com/fenwicklabs/reactor/internal/tools/websearch"
	"github.com/fenwicklabs/reactor/pkg/reactmodel"
)

var (
	configPath string
	modelFlag  string
	workspace  string
)

func main() {
	root := &cobra.Command{
		Use:          "reactor",
		Short:        "Run a single ReAct problem-solving session from the command line",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&modelFlag, "model", "", "override the configured agent model")
	root.PersistentFlags().StringVar(&workspace, "workspace", ".", "sandbox directory the file_system tool is rooted at")
	root.AddCommand(runCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [query]",
		Short: "Run one query through the ReAct engine and print the final answer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd.Context(), args[0])
		},
	}
}

func runQuery(ctx context.Context, query string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if modelFlag != "" {
		cfg.AgentModel = modelFlag
	}

	logger := observability.NewLogger(observability.LogConfig{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	metrics := observability.NewMetrics(nil)
	_, shutdownTracer := observability.NewTracer(observability.TraceConfig{ServiceName: "reactor"})
	defer shutdownTracer(context.Background())

	limiter := ratelimit.NewGlobalLimiter(ratelimit.DefaultConfig())

	router, err := buildRouter(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build LLM router: %w", err)
	}

	registry := tools.NewRegistry()
	registry.SetMetrics(metrics)
	if err := registerTools(registry, cfg); err != nil {
		return fmt.Errorf("register tools: %w", err)
	}

	repo, err := buildRepository(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build persistence repository: %w", err)
	}

	manager := sessions.New(sessionRepo{repo}, logger.Slog())
	manager.SetMetrics(metrics)
	run := runner.New(manager, logger.Slog())
	run.SetMetrics(metrics)

	toolInfos := make([]react.ToolInfo, 0)
	for name, description := range registry.Descriptions() {
		toolInfos = append(toolInfos, react.ToolInfo{Name: name, Description: description})
	}
	systemPrompt := react.FormatSystemPrompt(toolInfos, time.Now().Format(time.RFC3339))

	newSession := func(ctx context.Context) (react.ChatSession, error) {
		session, err := router.NewSession(ctx, cfg.AgentModel, systemPrompt)
		if err != nil {
			return nil, err
		}
		return chatSessionAdapter{llm.WithRateLimit(session, limiter, metrics)}, nil
	}

	engineCfg := react.DefaultConfig()
	engineCfg.MaxThoughtCycles = cfg.ReactMaxThoughtCycles
	engineCfg.MaxSteps = cfg.ReactMaxThoughtCycles * 4
	engine := react.NewEngine(newSession, registry, engineCfg)

	session := manager.CreateSession(query, cfg.AgentModel)
	run.Run(ctx, engine, session.ID, query)

	return awaitCompletion(ctx, manager, session.ID)
}

// awaitCompletion subscribes to the session's event stream and blocks until
// a final_answer or error event arrives, printing the event stream as it
// goes so the command line mirrors the session's live stream contract.
func awaitCompletion(ctx context.Context, manager *sessions.Manager, sessionID string) error {
	events, err := manager.Subscribe(ctx, sessionID)
	if err != nil {
		return err
	}
	for event := range events {
		switch event.Type {
		case "thought", "action", "observation":
			fmt.Printf("[%s] %s\n", event.Type, event.Content)
		case "final_answer":
			fmt.Printf("\nFinal answer:\n%s\n", event.Content)
			return nil
		case "error":
			return fmt.Errorf("run failed: %s", event.Error)
		}
	}
	return nil
}

// buildRouter constructs every provider whose credential is present in cfg
// and routes between them by model-name prefix.
func buildRouter(ctx context.Context, cfg *config.Config) (*llm.Router, error) {
	var providers []llm.Provider

	if cfg.Providers.GoogleAPIKey != "" {
		provider, err := google.New(ctx, google.Config{APIKey: cfg.Providers.GoogleAPIKey, MaxRetries: cfg.ReactMaxRetries})
		if err != nil {
			return nil, err
		}
		providers = append(providers, provider)
	}
	if cfg.Providers.AnthropicAPIKey != "" {
		provider, err := anthropic.New(anthropic.Config{APIKey: cfg.Providers.AnthropicAPIKey, MaxRetries: cfg.ReactMaxRetries})
		if err != nil {
			return nil, err
		}
		providers = append(providers, provider)
	}
	if cfg.Providers.OpenAIAPIKey != "" {
		provider, err := openai.New(openai.Config{APIKey: cfg.Providers.OpenAIAPIKey, MaxRetries: cfg.ReactMaxRetries})
		if err != nil {
			return nil, err
		}
		providers = append(providers, provider)
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("no LLM provider credentials configured")
	}
	return llm.NewRouter(providers...), nil
}

func registerTools(registry *tools.Registry, cfg *config.Config) error {
	fileTool := files.New(files.Config{Workspace: workspace})
	if err := registry.Register(fileTool); err != nil {
		return err
	}

	codeTool, err := codeexec.New(codeexec.Config{Timeout: cfg.CodeExecutionTimeout})
	if err != nil {
		return err
	}
	if err := registry.Register(codeTool); err != nil {
		return err
	}

	if cfg.Providers.PerplexityAPIKey != "" {
		searchTool, err := websearch.New(websearch.Config{APIKey: cfg.Providers.PerplexityAPIKey})
		if err != nil {
			return err
		}
		if err := registry.Register(searchTool); err != nil {
			return err
		}
	}

	secTool, err := secfilings.New(secfilings.Config{UserAgent: "reactor research-agent contact@fenwicklabs.example"})
	if err != nil {
		return err
	}
	if err := registry.Register(secTool); err != nil {
		return err
	}

	marketTool, err := marketdata.New(stooq.New(10 * time.Second))
	if err != nil {
		return err
	}
	if err := registry.Register(marketTool); err != nil {
		return err
	}

	return registry.Register(final.New(nil))
}

func buildRepository(ctx context.Context, cfg *config.Config) (persistence.Repository, error) {
	switch cfg.Persistence.Backend {
	case "postgres":
		pgCfg := persistence.DefaultPostgresConfig()
		pgCfg.DSN = cfg.Persistence.PostgresDSN
		return persistence.NewPostgresRepository(ctx, pgCfg)
	default:
		dir := cfg.Persistence.FileDir
		if dir == "" {
			dir = "./sessions"
		}
		return persistence.NewFileRepository(dir)
	}
}

// sessionRepo adapts persistence.Repository to sessions.Repository, the
// narrow single-method interface the session manager depends on.
type sessionRepo struct {
	repo persistence.Repository
}

func (s sessionRepo) Save(ctx context.Context, session reactmodel.Session) error {
	return s.repo.Save(ctx, session)
}

// chatSessionAdapter converts an llm.ChatSession into a react.ChatSession:
// the two interfaces are structurally distinct (react.Reply carries only
// Content, llm.Reply also carries Usage) so Go's structural typing won't
// satisfy one from the other without this explicit wrapper discarding the
// usage field react doesn't need.
type chatSessionAdapter struct {
	inner llm.ChatSession
}

func (a chatSessionAdapter) Model() string { return a.inner.Model() }

func (a chatSessionAdapter) Send(ctx context.Context, message string) (react.Reply, error) {
	reply, err := a.inner.Send(ctx, message)
	if err != nil {
		return react.Reply{}, err
	}
	return react.Reply{Content: reply.Content}, nil
}
