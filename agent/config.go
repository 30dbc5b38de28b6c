package agent

import (
	"time"

	"github.com/hivecast/hivecast/logging"
	"github.com/hivecast/hivecast/tool"
)

// Defaults applied by Config.withDefaults.
const (
	DefaultMaxIterations = 10
	DefaultModelTimeout  = 2 * time.Minute
	DefaultToolTimeout   = 5 * time.Minute
)

// Config describes a single agent: its identity, model, tool surface, and
// loop limits. The zero value is not usable; Name and SystemPrompt are
// required.
type Config struct {
	// Name identifies the agent in logs and shared memory entries.
	Name string

	// SystemPrompt is pinned at the head of the conversation.
	SystemPrompt string

	// ModelID selects the model via the manager's factory. Runtimes built
	// directly with New take a concrete model instead.
	ModelID string

	// Tools the agent may call, keyed by the name the model sees.
	Tools []tool.Tool

	// MaxIterations bounds the reason/act loop. 0 selects the default.
	MaxIterations int

	// TerminationTools name the tools whose successful call ends the run
	// with state TERMINATED.
	TerminationTools []string

	// RequireTerminationTool makes natural completion (a turn without tool
	// calls) a failure instead of COMPLETED: the agent must finish by
	// calling one of TerminationTools.
	RequireTerminationTool bool

	// ContextWindowTokens bounds the transcript submitted per model call.
	// 0 selects history.DefaultBudgetTokens.
	ContextWindowTokens int

	// MaxTotalTokens bounds the cumulative token usage of one run.
	// 0 means unlimited.
	MaxTotalTokens int

	// ModelTimeout bounds each model call, ToolTimeout each tool call.
	// 0 selects the defaults.
	ModelTimeout time.Duration
	ToolTimeout  time.Duration

	// Logger for loop progress. Nil selects logging.NoOpLogger.
	Logger logging.Logger
}

func (c Config) withDefaults() Config {
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.ModelTimeout <= 0 {
		c.ModelTimeout = DefaultModelTimeout
	}
	if c.ToolTimeout <= 0 {
		c.ToolTimeout = DefaultToolTimeout
	}
	if c.Logger == nil {
		c.Logger = logging.NoOpLogger{}
	}
	return c
}

func (c Config) isTerminationTool(name string) bool {
	for _, t := range c.TerminationTools {
		if t == name {
			return true
		}
	}
	return false
}
