// Package hivecast provides a high-level façade over the agent runtime,
// subagent manager, and shared memory store for building multi-agent
// forecasting systems. Most applications interact with this package by:
//  1. Creating a Hivecast via New() with a model factory
//  2. Registering the tools subagents may use
//  3. Running an orchestrator agent that delegates via the subagent_manager tool
//
// The façade wires the pieces together while keeping setup concise. Defaults
// are safe for local use; production deployments typically supply a
// persistence directory and a structured logger.
package hivecast

import (
	"context"

	"github.com/hivecast/hivecast/agent"
	"github.com/hivecast/hivecast/logging"
	"github.com/hivecast/hivecast/manager"
	"github.com/hivecast/hivecast/memory"
	"github.com/hivecast/hivecast/tool"
)

// Options configures a Hivecast instance.
type Options struct {
	// TaskID scopes every memory entry written during this session.
	TaskID string

	// Factory builds models from identifiers. Required.
	Factory manager.ModelFactory

	// MaxConcurrentAgents caps simultaneously running subagents.
	// 0 selects manager.DefaultMaxConcurrent.
	MaxConcurrentAgents int

	// MemoryDir enables durable shared memory when non-empty.
	MemoryDir string

	// Logger used by every component. Nil selects logging.NoOpLogger.
	Logger logging.Logger
}

// Hivecast bundles a shared memory store, a tool registry, and a subagent
// manager behind one handle.
type Hivecast struct {
	store    *memory.Store
	registry *tool.Registry
	manager  *manager.Manager
	taskID   string
	logger   logging.Logger
}

// New wires up a Hivecast instance.
func New(opts Options) (*Hivecast, error) {
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	storeOpts := []memory.Option{memory.WithLogger(opts.Logger)}
	if opts.MemoryDir != "" {
		storeOpts = append(storeOpts, memory.WithPersistence(opts.MemoryDir))
	}
	store, err := memory.NewStore(storeOpts...)
	if err != nil {
		return nil, err
	}

	mgr, err := manager.New(manager.Config{
		TaskID:        opts.TaskID,
		MaxConcurrent: opts.MaxConcurrentAgents,
		Factory:       opts.Factory,
		Store:         store,
		Logger:        opts.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &Hivecast{
		store:    store,
		registry: tool.NewRegistry(),
		manager:  mgr,
		taskID:   opts.TaskID,
		logger:   opts.Logger,
	}, nil
}

// RegisterTools adds tools to the registry subagents resolve from.
func (h *Hivecast) RegisterTools(tools ...tool.Tool) {
	h.registry.Register(tools...)
}

// Store returns the shared memory store.
func (h *Hivecast) Store() *memory.Store { return h.store }

// Manager returns the subagent manager.
func (h *Hivecast) Manager() *manager.Manager { return h.manager }

// Registry returns the tool registry.
func (h *Hivecast) Registry() *tool.Registry { return h.registry }

// RunOrchestrator builds an orchestrator agent equipped with the
// subagent_manager and shared_memory tools plus any extras, and runs it on
// the given task.
func (h *Hivecast) RunOrchestrator(ctx context.Context, cfg agent.Config, task string) (*agent.Result, error) {
	cfg.Tools = append(cfg.Tools,
		manager.NewTool(h.manager, h.registry),
		memory.NewTool(h.store, h.taskID, cfg.Name),
	)
	if cfg.Logger == nil {
		cfg.Logger = h.logger
	}

	mdl, err := h.manager.BuildModel(cfg.ModelID)
	if err != nil {
		return nil, err
	}
	orchestrator, err := agent.New(cfg, mdl)
	if err != nil {
		return nil, err
	}
	return orchestrator.Run(ctx, task)
}
