// Command hivecast runs the multi-agent forecasting orchestrator: a
// coordinator agent that spawns subagents over a shared memory store to
// research, analyze, and submit forecasts.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hivecast/hivecast"
	"github.com/hivecast/hivecast/agent"
	"github.com/hivecast/hivecast/forecast"
	"github.com/hivecast/hivecast/logging"
	"github.com/hivecast/hivecast/manager"
	"github.com/hivecast/hivecast/model"
	anthropicmodel "github.com/hivecast/hivecast/model/anthropic"
	openaimodel "github.com/hivecast/hivecast/model/openai"
	"github.com/hivecast/hivecast/search"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// account pairs an OpenRouter model with the forecasting platform user it
// submits as.
type account struct {
	modelID string
	userID  int
}

var accounts = map[string]account{
	"opus":   {modelID: "anthropic/claude-opus-4.1", userID: 18},
	"gpt-5":  {modelID: "openai/gpt-5", userID: 19},
	"grok":   {modelID: "x-ai/grok-4", userID: 20},
	"gemini": {modelID: "google/gemini-2.5-pro", userID: 21},
	"multi":  {modelID: "x-ai/grok-4-fast:free", userID: 22},
}

type options struct {
	model      string
	task       string
	taskID     string
	promptFile string
	memoryDir  string
	maxAgents  int
	maxIter    int
	verbose    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "hivecast",
		Short:         "Multi-agent forecasting orchestrator",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.model, "model", "m", "grok", "model account: opus, gpt-5, grok, gemini, or multi")
	cmd.Flags().StringVar(&opts.task, "task", "Be creative in how you forecast!", "task handed to the orchestrator")
	cmd.Flags().StringVar(&opts.taskID, "task-id", "multi_agent_session", "shared memory task scope")
	cmd.Flags().StringVar(&opts.promptFile, "prompt-file", "", "file holding the orchestrator system prompt")
	cmd.Flags().StringVar(&opts.memoryDir, "memory-dir", "", "directory for persisted memory entries")
	cmd.Flags().IntVar(&opts.maxAgents, "max-agents", manager.DefaultMaxConcurrent, "maximum concurrently running subagents")
	cmd.Flags().IntVar(&opts.maxIter, "max-iterations", 50, "iteration budget for the orchestrator loop")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	viper.SetEnvPrefix("hivecast")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	for _, key := range []string{
		"openrouter_api_key",
		"anthropic_api_key",
		"perplexity_api_key",
		"forecast_api_url",
		"forecast_username",
		"forecast_password",
	} {
		_ = viper.BindEnv(key, strings.ToUpper(key))
	}

	return cmd
}

func run(ctx context.Context, opts *options) error {
	acct, ok := accounts[strings.ToLower(opts.model)]
	if !ok {
		return fmt.Errorf("invalid model %q: choose opus, gpt-5, grok, gemini, or multi", opts.model)
	}

	openRouterKey := viper.GetString("openrouter_api_key")
	if openRouterKey == "" {
		return fmt.Errorf("OPENROUTER_API_KEY environment variable is required")
	}

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := logging.New(logging.Config{Level: level, Format: "text", Output: os.Stderr})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Anthropic models go to the Anthropic API directly when a key is
	// configured; everything else is routed through OpenRouter.
	anthropicKey := viper.GetString("anthropic_api_key")
	factory := func(modelID string) (model.Model, error) {
		if modelID == "" {
			modelID = acct.modelID
		}
		if name, ok := strings.CutPrefix(modelID, "anthropic/"); ok && anthropicKey != "" {
			return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
				o.Model = anthropic.Model(name)
				o.APIKey = anthropicKey
			}), nil
		}
		return openaimodel.NewModel(func(o *openaimodel.Options) {
			o.Model = modelID
			o.BaseURL = openRouterBaseURL
			o.APIKey = openRouterKey
		}), nil
	}

	hc, err := hivecast.New(hivecast.Options{
		TaskID:              opts.taskID,
		Factory:             factory,
		MaxConcurrentAgents: opts.maxAgents,
		MemoryDir:           opts.memoryDir,
		Logger:              logger,
	})
	if err != nil {
		return err
	}
	if err := registerTools(hc, acct, logger); err != nil {
		return err
	}

	systemPrompt, err := loadSystemPrompt(opts.promptFile)
	if err != nil {
		return err
	}

	logger.Info("orchestrator starting", "model", acct.modelID, "task_id", opts.taskID, "max_agents", opts.maxAgents)
	start := time.Now()

	res, err := hc.RunOrchestrator(ctx, agent.Config{
		Name:          "Orchestrator",
		SystemPrompt:  systemPrompt,
		ModelID:       acct.modelID,
		MaxIterations: opts.maxIter,
		Logger:        logger,
	}, opts.task)
	if err != nil {
		return fmt.Errorf("orchestrator run: %w", err)
	}

	logger.Info("orchestrator finished",
		"state", res.State.String(),
		"iterations", res.Iterations,
		"tokens", res.TokensUsed,
		"duration", time.Since(start).Round(time.Second),
	)
	fmt.Println(res.FinalText)
	return nil
}

// registerTools makes the forecasting and search tools available to
// subagents when their configuration is present.
func registerTools(hc *hivecast.Hivecast, acct account, logger logging.Logger) error {
	if apiURL := viper.GetString("forecast_api_url"); apiURL != "" {
		client, err := forecast.NewClient(forecast.Options{
			BaseURL:  apiURL,
			UserID:   acct.userID,
			Username: viper.GetString("forecast_username"),
			Password: viper.GetString("forecast_password"),
			Logger:   logger,
		})
		if err != nil {
			return err
		}
		hc.RegisterTools(forecast.Tools(client)...)
	} else {
		logger.Warn("FORECAST_API_URL not set, forecasting tools unavailable")
	}

	if key := viper.GetString("perplexity_api_key"); key != "" {
		client, err := search.NewClient(search.Options{APIKey: key})
		if err != nil {
			return err
		}
		hc.RegisterTools(search.NewTool(client))
	} else {
		logger.Warn("PERPLEXITY_API_KEY not set, web search unavailable")
	}
	return nil
}

func loadSystemPrompt(path string) (string, error) {
	if path == "" {
		return strings.ReplaceAll(defaultSystemPrompt, "{current_date}", time.Now().Format("2006-01-02")), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read prompt file: %w", err)
	}
	return strings.ReplaceAll(string(data), "{current_date}", time.Now().Format("2006-01-02")), nil
}
