// Package agent implements the single-agent reasoning loop: a model is
// called with the conversation so far, its tool calls are executed, the
// results are fed back, and the cycle repeats until the agent completes
// naturally, calls a termination tool, or exhausts its iteration budget.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/hivecast/hivecast/core"
	"github.com/hivecast/hivecast/history"
	"github.com/hivecast/hivecast/model"
)

// ReasonCancelled marks a run that stopped because its context was cancelled.
const ReasonCancelled = "cancelled"

const modelMaxRetries = 3

// Result is the outcome of one Run.
type Result struct {
	// State is the terminal state: COMPLETED, TERMINATED, or FAILED.
	State core.RunState

	// FinalText is the agent's last assistant text, or for a terminated run
	// the output of the termination tool.
	FinalText string

	// Reason explains a TERMINATED or FAILED state.
	Reason string

	// Iterations counts the model turns consumed.
	Iterations int

	// TokensUsed accumulates token usage reported by the model.
	TokensUsed int

	// Err is set when State is FAILED.
	Err error
}

// Runtime drives one agent. It owns the agent's conversation history, which
// persists across Run calls so a completed agent can be resumed with a
// follow-up task. Not safe for concurrent use.
type Runtime struct {
	cfg   Config
	model model.Model
	hist  *history.History
	exec  *executor
	defs  []model.ToolDefinition
}

// New builds a Runtime from a validated Config and a concrete model.
func New(cfg Config, m model.Model) (*Runtime, error) {
	if cfg.Name == "" {
		return nil, errors.New("agent: name is required")
	}
	if cfg.SystemPrompt == "" {
		return nil, errors.New("agent: system prompt is required")
	}
	if m == nil {
		return nil, errors.New("agent: model is required")
	}
	cfg = cfg.withDefaults()

	defs := make([]model.ToolDefinition, 0, len(cfg.Tools))
	for _, t := range cfg.Tools {
		defs = append(defs, model.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}

	return &Runtime{
		cfg:   cfg,
		model: m,
		hist:  history.New(cfg.SystemPrompt, cfg.ContextWindowTokens),
		exec:  newExecutor(cfg.Tools, cfg.ToolTimeout, cfg.Logger.With("agent", cfg.Name)),
		defs:  defs,
	}, nil
}

// Name returns the agent's name.
func (r *Runtime) Name() string { return r.cfg.Name }

// History exposes the runtime's transcript, mainly for inspection in tests.
func (r *Runtime) History() *history.History { return r.hist }

// Run executes the reason/act loop for the given task. The returned Result
// is always non-nil; a FAILED state carries the error in both Err and the
// return value.
func (r *Runtime) Run(ctx context.Context, task string) (*Result, error) {
	logger := r.cfg.Logger.With("agent", r.cfg.Name)
	logger.Info("run started", "max_iterations", r.cfg.MaxIterations)

	r.hist.AppendUser(task)
	res := &Result{}

	for res.Iterations < r.cfg.MaxIterations {
		if err := ctx.Err(); err != nil {
			return r.fail(res, ReasonCancelled, err)
		}
		if r.cfg.MaxTotalTokens > 0 && res.TokensUsed >= r.cfg.MaxTotalTokens {
			return r.fail(res, "token budget exhausted", core.ErrTokenBudget)
		}
		res.Iterations++

		resp, err := r.generate(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return r.fail(res, ReasonCancelled, ctx.Err())
			}
			return r.fail(res, "model call failed", err)
		}
		if resp.Usage != nil {
			res.TokensUsed += resp.Usage.TotalTokens
		}

		r.hist.Append(resp.Content)
		calls := resp.Content.ToolCalls()
		logger.Debug("model turn", "iteration", res.Iterations, "tool_calls", len(calls))

		if len(calls) == 0 {
			if r.cfg.RequireTerminationTool {
				return r.fail(res, "final response without required termination tool", core.ErrTerminationRequired)
			}
			res.State = core.StateCompleted
			res.FinalText = resp.Content.Text()
			logger.Info("run completed", "iterations", res.Iterations, "tokens", res.TokensUsed)
			return res, nil
		}

		if err := ctx.Err(); err != nil {
			return r.fail(res, ReasonCancelled, err)
		}

		results := r.exec.Execute(ctx, calls)
		r.hist.AppendToolResults(results)

		if done, final := r.terminated(calls, results); done {
			res.State = core.StateTerminated
			res.FinalText = final
			res.Reason = "termination tool called"
			logger.Info("run terminated", "iterations", res.Iterations, "tokens", res.TokensUsed)
			return res, nil
		}
	}

	if r.cfg.RequireTerminationTool {
		return r.fail(res, "iteration budget exhausted without termination tool", core.ErrTerminationRequired)
	}
	return r.fail(res, "iteration budget exhausted", core.ErrMaxIterations)
}

func (r *Runtime) generate(ctx context.Context) (*model.Response, error) {
	req := model.Request{
		Instructions: r.hist.System(),
		Contents:     r.hist.RequestPayload(),
		Tools:        r.defs,
	}

	var resp *model.Response
	operation := func() error {
		callCtx, cancel := context.WithTimeout(ctx, r.cfg.ModelTimeout)
		defer cancel()

		var err error
		resp, err = r.model.Generate(callCtx, req)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		r.cfg.Logger.Warn("model call failed, retrying", "agent", r.cfg.Name, "error", err, "wait", wait)
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), modelMaxRetries), ctx)
	if err := backoff.RetryNotify(operation, bo, notify); err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	return resp, nil
}

// terminated reports whether any termination tool was called this turn,
// and if so returns its output. The call terminates the run even when the
// tool execution failed; the error text becomes the final output.
func (r *Runtime) terminated(calls []core.ToolCall, results []core.ToolResult) (bool, string) {
	for i, call := range calls {
		if r.cfg.isTerminationTool(call.Name) {
			return true, results[i].Text()
		}
	}
	return false, ""
}

func (r *Runtime) fail(res *Result, reason string, err error) (*Result, error) {
	res.State = core.StateFailed
	res.Reason = reason
	res.Err = err
	r.cfg.Logger.Error("run failed", "agent", r.cfg.Name, "reason", reason, "error", err, "iterations", res.Iterations)
	return res, err
}
