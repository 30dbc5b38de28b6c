// Package manager owns the subagent lifecycle: creation, bounded-concurrency
// execution, status inspection, and deletion. A weighted semaphore enforces
// the running ceiling; parallel admission is all-or-nothing so a batch never
// partially launches.
package manager

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/hivecast/hivecast/agent"
	"github.com/hivecast/hivecast/core"
	"github.com/hivecast/hivecast/logging"
	"github.com/hivecast/hivecast/memory"
	"github.com/hivecast/hivecast/model"
)

// DefaultMaxConcurrent is the running ceiling when none is configured.
const DefaultMaxConcurrent = 5

// ModelFactory builds a model from an identifier such as
// "anthropic/claude-opus-4.1". The manager calls it once per subagent.
type ModelFactory func(modelID string) (model.Model, error)

// RunSpec names a subagent and the task to hand it.
type RunSpec struct {
	Name string
	Task string
}

// Info is a point-in-time snapshot of one subagent.
type Info struct {
	Name    string
	ModelID string
	State   core.RunState
	Result  *agent.Result // set once the subagent reaches a terminal state
}

type subagent struct {
	runtime *agent.Runtime
	modelID string
	state   core.RunState
	result  *agent.Result
	cancel  context.CancelFunc
	done    chan struct{}
}

// Manager creates and runs subagents against a shared memory store. Safe
// for concurrent use.
type Manager struct {
	mu      sync.Mutex
	subs    map[string]*subagent
	sem     *semaphore.Weighted
	ceiling int64
	running int
	factory ModelFactory
	store   *memory.Store
	taskID  string
	logger  logging.Logger
}

// Config configures a Manager.
type Config struct {
	// TaskID scopes memory entries written by this manager's subagents.
	TaskID string

	// MaxConcurrent caps simultaneously running subagents. 0 selects
	// DefaultMaxConcurrent.
	MaxConcurrent int

	// Factory builds models for subagents. Required.
	Factory ModelFactory

	// Store is the shared memory store. Required.
	Store *memory.Store

	// Logger for lifecycle events. Nil selects logging.NoOpLogger.
	Logger logging.Logger
}

// New builds a Manager.
func New(cfg Config) (*Manager, error) {
	if cfg.Factory == nil {
		return nil, fmt.Errorf("manager: model factory is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("manager: memory store is required")
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NoOpLogger{}
	}
	return &Manager{
		subs:    make(map[string]*subagent),
		sem:     semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		ceiling: int64(cfg.MaxConcurrent),
		factory: cfg.Factory,
		store:   cfg.Store,
		taskID:  cfg.TaskID,
		logger:  cfg.Logger,
	}, nil
}

// Create registers a new subagent in state CREATED. The shared_memory and
// report_results tools are injected automatically, and report_results is
// registered as a termination tool.
func (m *Manager) Create(cfg agent.Config) error {
	if cfg.Name == "" {
		return fmt.Errorf("manager: subagent name is required")
	}

	cfg.Tools = append(cfg.Tools,
		memory.NewTool(m.store, m.taskID, cfg.Name),
		memory.NewReportTool(m.store, m.taskID, cfg.Name),
	)
	if !containsString(cfg.TerminationTools, memory.ReportToolName) {
		cfg.TerminationTools = append(cfg.TerminationTools, memory.ReportToolName)
	}
	if cfg.Logger == nil {
		cfg.Logger = m.logger
	}

	mdl, err := m.factory(cfg.ModelID)
	if err != nil {
		return fmt.Errorf("manager: build model %q: %w", cfg.ModelID, err)
	}
	rt, err := agent.New(cfg, mdl)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.subs[cfg.Name]; exists {
		return fmt.Errorf("%w: %s", core.ErrNameConflict, cfg.Name)
	}
	m.subs[cfg.Name] = &subagent{runtime: rt, modelID: cfg.ModelID, state: core.StateCreated}
	m.logger.Info("subagent created", "name", cfg.Name, "model", cfg.ModelID)
	return nil
}

// Run executes one subagent synchronously. It fails with ErrCapacityExceeded
// when the running ceiling is reached and ErrNotRunnable when the subagent
// is not in a runnable state.
func (m *Manager) Run(ctx context.Context, name, task string) (*agent.Result, error) {
	m.mu.Lock()
	sub, err := m.admit(name)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	if !m.sem.TryAcquire(1) {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %d subagents already running", core.ErrCapacityExceeded, m.running)
	}
	runCtx, cancel := m.markRunning(ctx, sub)
	m.mu.Unlock()
	defer cancel()

	return m.execute(runCtx, name, sub, task), nil
}

// RunParallel launches the named subagents concurrently. Admission is
// atomic: unless the ceiling has room for every spec, nothing launches and
// ErrCapacityExceeded is returned. Results are index-aligned with specs;
// individual failures do not stop siblings.
func (m *Manager) RunParallel(ctx context.Context, specs []RunSpec) ([]*agent.Result, error) {
	if len(specs) == 0 {
		return nil, nil
	}

	m.mu.Lock()
	subs := make([]*subagent, len(specs))
	seen := make(map[string]bool, len(specs))
	for i, spec := range specs {
		if seen[spec.Name] {
			m.mu.Unlock()
			return nil, fmt.Errorf("manager: duplicate subagent %q in parallel run", spec.Name)
		}
		seen[spec.Name] = true
		sub, err := m.admit(spec.Name)
		if err != nil {
			m.mu.Unlock()
			return nil, err
		}
		subs[i] = sub
	}
	if !m.sem.TryAcquire(int64(len(specs))) {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: need %d slots, %d in use of %d",
			core.ErrCapacityExceeded, len(specs), m.running, m.ceiling)
	}
	cancels := make([]context.CancelFunc, len(specs))
	ctxs := make([]context.Context, len(specs))
	for i, sub := range subs {
		ctxs[i], cancels[i] = m.markRunning(ctx, sub)
	}
	m.mu.Unlock()

	results := make([]*agent.Result, len(specs))
	g := &errgroup.Group{}
	for i, spec := range specs {
		g.Go(func() error {
			defer cancels[i]()
			results[i] = m.execute(ctxs[i], spec.Name, subs[i], spec.Task)
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

// RunBatch executes specs sequentially. With stopOnFailure set, the batch
// stops at the first subagent that does not finish in COMPLETED or
// TERMINATED; results hold the outcomes so far.
func (m *Manager) RunBatch(ctx context.Context, specs []RunSpec, stopOnFailure bool) ([]*agent.Result, error) {
	results := make([]*agent.Result, 0, len(specs))
	for _, spec := range specs {
		res, err := m.Run(ctx, spec.Name, spec.Task)
		if err != nil && res == nil {
			return results, err
		}
		results = append(results, res)
		if stopOnFailure && res.State == core.StateFailed {
			return results, res.Err
		}
	}
	return results, nil
}

// Delete removes a subagent. A running subagent is cancelled cooperatively
// and Delete blocks until it has stopped.
func (m *Manager) Delete(name string) error {
	m.mu.Lock()
	sub, exists := m.subs[name]
	if !exists {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", core.ErrUnknownSubagent, name)
	}
	cancel := sub.cancel
	done := sub.done
	running := sub.state == core.StateRunning
	m.mu.Unlock()

	if running {
		cancel()
		<-done
	}

	m.mu.Lock()
	delete(m.subs, name)
	m.mu.Unlock()
	m.logger.Info("subagent deleted", "name", name)
	return nil
}

// Status returns a snapshot of one subagent.
func (m *Manager) Status(name string) (Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, exists := m.subs[name]
	if !exists {
		return Info{}, fmt.Errorf("%w: %s", core.ErrUnknownSubagent, name)
	}
	return Info{Name: name, ModelID: sub.modelID, State: sub.state, Result: sub.result}, nil
}

// List returns snapshots of every subagent, sorted by name.
func (m *Manager) List() []Info {
	m.mu.Lock()
	defer m.mu.Unlock()

	infos := make([]Info, 0, len(m.subs))
	for name, sub := range m.subs {
		infos = append(infos, Info{Name: name, ModelID: sub.modelID, State: sub.state, Result: sub.result})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// BuildModel invokes the manager's model factory directly, for callers that
// construct agents outside the catalog.
func (m *Manager) BuildModel(modelID string) (model.Model, error) {
	return m.factory(modelID)
}

// RunningCount returns the number of subagents currently running.
func (m *Manager) RunningCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// admit checks a subagent exists and is runnable. Caller holds m.mu.
func (m *Manager) admit(name string) (*subagent, error) {
	sub, exists := m.subs[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownSubagent, name)
	}
	if !sub.state.Runnable() {
		return nil, fmt.Errorf("%w: %s is %s", core.ErrNotRunnable, name, sub.state)
	}
	return sub, nil
}

// markRunning transitions a subagent to RUNNING. Caller holds m.mu and has
// already acquired a semaphore slot.
func (m *Manager) markRunning(ctx context.Context, sub *subagent) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(ctx)
	sub.state = core.StateRunning
	sub.cancel = cancel
	sub.done = make(chan struct{})
	m.running++
	return runCtx, cancel
}

// execute runs the subagent and settles its terminal state. The semaphore
// slot acquired at admission is released here.
func (m *Manager) execute(ctx context.Context, name string, sub *subagent, task string) *agent.Result {
	res, err := sub.runtime.Run(ctx, task)

	m.mu.Lock()
	sub.state = res.State
	sub.result = res
	sub.cancel = nil
	m.running--
	done := sub.done
	sub.done = nil
	m.mu.Unlock()

	m.sem.Release(1)
	close(done)

	if res.State == core.StateFailed {
		m.recordFailure(name, task, res, err)
	}
	m.logger.Info("subagent run finished", "name", name, "state", res.State.String(), "iterations", res.Iterations)
	return res
}

// recordFailure writes the failure into shared memory so the coordinator
// and sibling agents can see it.
func (m *Manager) recordFailure(name, task string, res *agent.Result, err error) {
	content := fmt.Sprintf("task: %s\nreason: %s", task, res.Reason)
	if err != nil {
		content += "\nerror: " + err.Error()
	}
	if _, storeErr := m.store.Store(memory.Entry{
		TaskID:   m.taskID,
		Category: memory.CategoryErrors,
		Title:    fmt.Sprintf("Run failed: %s", name),
		Content:  content,
		Tags:     []string{"failure"},
		Author:   name,
	}); storeErr != nil {
		m.logger.Error("failed to record run failure", "name", name, "error", storeErr)
	}
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
