package manager

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivecast/hivecast/agent"
	"github.com/hivecast/hivecast/core"
	"github.com/hivecast/hivecast/memory"
	"github.com/hivecast/hivecast/model"
)

// blockingModel holds every Generate call until released, so tests can pin
// subagents in the RUNNING state.
type blockingModel struct {
	release chan struct{}
	started chan struct{}
	once    sync.Once
}

func newBlockingModel() *blockingModel {
	return &blockingModel{release: make(chan struct{}), started: make(chan struct{}, 16)}
}

func (m *blockingModel) Generate(ctx context.Context, req model.Request) (*model.Response, error) {
	m.started <- struct{}{}
	select {
	case <-m.release:
		return &model.Response{Content: core.NewTextContent("assistant", "done"), FinishReason: "stop"}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *blockingModel) Info() model.Info {
	return model.Info{Name: "blocking", Provider: "test", SupportsTools: true}
}

func (m *blockingModel) Release() { m.once.Do(func() { close(m.release) }) }

func newManager(t *testing.T, maxConcurrent int, factory ModelFactory) (*Manager, *memory.Store) {
	t.Helper()
	store, err := memory.NewStore()
	require.NoError(t, err)
	m, err := New(Config{
		TaskID:        "task-1",
		MaxConcurrent: maxConcurrent,
		Factory:       factory,
		Store:         store,
	})
	require.NoError(t, err)
	return m, store
}

func scriptedFactory(turns ...model.Turn) ModelFactory {
	return func(modelID string) (model.Model, error) {
		return model.NewScriptedModel(turns...), nil
	}
}

func createAgent(t *testing.T, m *Manager, name string) {
	t.Helper()
	require.NoError(t, m.Create(agent.Config{Name: name, SystemPrompt: "test agent"}))
}

func TestManager_CreateRejectsDuplicateNames(t *testing.T) {
	m, _ := newManager(t, 2, scriptedFactory(model.Turn{Text: "hi"}))

	createAgent(t, m, "alpha")
	err := m.Create(agent.Config{Name: "alpha", SystemPrompt: "again"})
	assert.ErrorIs(t, err, core.ErrNameConflict)
}

func TestManager_RunLifecycle(t *testing.T) {
	m, _ := newManager(t, 2, scriptedFactory(model.Turn{Text: "all done"}))
	createAgent(t, m, "alpha")

	info, err := m.Status("alpha")
	require.NoError(t, err)
	assert.Equal(t, core.StateCreated, info.State)

	res, err := m.Run(context.Background(), "alpha", "do the thing")
	require.NoError(t, err)
	assert.Equal(t, core.StateCompleted, res.State)

	info, err = m.Status("alpha")
	require.NoError(t, err)
	assert.Equal(t, core.StateCompleted, info.State)
	require.NotNil(t, info.Result)
	assert.Equal(t, "all done", info.Result.FinalText)

	// A completed subagent can be run again.
	res, err = m.Run(context.Background(), "alpha", "once more")
	require.NoError(t, err)
	assert.Equal(t, core.StateCompleted, res.State)
}

func TestManager_RunUnknownAndNotRunnable(t *testing.T) {
	bm := newBlockingModel()
	m, _ := newManager(t, 2, func(string) (model.Model, error) { return bm, nil })
	createAgent(t, m, "alpha")

	_, err := m.Run(context.Background(), "ghost", "task")
	assert.ErrorIs(t, err, core.ErrUnknownSubagent)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = m.Run(context.Background(), "alpha", "task")
	}()
	<-bm.started

	_, err = m.Run(context.Background(), "alpha", "again")
	assert.ErrorIs(t, err, core.ErrNotRunnable)

	bm.Release()
	<-done
}

func TestManager_CeilingEnforced(t *testing.T) {
	bm := newBlockingModel()
	m, _ := newManager(t, 2, func(string) (model.Model, error) { return bm, nil })
	for i := 0; i < 3; i++ {
		createAgent(t, m, fmt.Sprintf("agent-%d", i))
	}

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = m.Run(context.Background(), fmt.Sprintf("agent-%d", i), "task")
		}(i)
	}
	<-bm.started
	<-bm.started
	assert.Equal(t, 2, m.RunningCount())

	_, err := m.Run(context.Background(), "agent-2", "task")
	assert.ErrorIs(t, err, core.ErrCapacityExceeded)

	bm.Release()
	wg.Wait()
	assert.Equal(t, 0, m.RunningCount())
}

func TestManager_RunParallelAtomicAdmission(t *testing.T) {
	bm := newBlockingModel()
	m, _ := newManager(t, 2, func(string) (model.Model, error) { return bm, nil })
	for i := 0; i < 3; i++ {
		createAgent(t, m, fmt.Sprintf("agent-%d", i))
	}

	// Three runs against a ceiling of two: nothing may launch.
	_, err := m.RunParallel(context.Background(), []RunSpec{
		{Name: "agent-0", Task: "t"},
		{Name: "agent-1", Task: "t"},
		{Name: "agent-2", Task: "t"},
	})
	assert.ErrorIs(t, err, core.ErrCapacityExceeded)
	assert.Equal(t, 0, m.RunningCount())

	for i := 0; i < 3; i++ {
		info, err := m.Status(fmt.Sprintf("agent-%d", i))
		require.NoError(t, err)
		assert.Equal(t, core.StateCreated, info.State)
	}

	bm.Release()
	results, err := m.RunParallel(context.Background(), []RunSpec{
		{Name: "agent-0", Task: "t"},
		{Name: "agent-1", Task: "t"},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, core.StateCompleted, results[0].State)
	assert.Equal(t, core.StateCompleted, results[1].State)
}

func TestManager_RunParallelSiblingFailureIsolated(t *testing.T) {
	factory := func(modelID string) (model.Model, error) {
		if modelID == "bad" {
			// A model that always asks for a tool the agent does not have,
			// exhausting the iteration budget.
			return model.NewScriptedModel(model.Turn{
				Calls: []core.ToolCall{{Name: "nope", Arguments: "{}"}},
			}), nil
		}
		return model.NewScriptedModel(model.Turn{Text: "fine"}), nil
	}
	m, store := newManager(t, 5, factory)

	require.NoError(t, m.Create(agent.Config{Name: "good", SystemPrompt: "p"}))
	require.NoError(t, m.Create(agent.Config{Name: "bad", SystemPrompt: "p", ModelID: "bad", MaxIterations: 2}))

	results, err := m.RunParallel(context.Background(), []RunSpec{
		{Name: "good", Task: "t"},
		{Name: "bad", Task: "t"},
	})
	require.NoError(t, err)
	assert.Equal(t, core.StateCompleted, results[0].State)
	assert.Equal(t, core.StateFailed, results[1].State)

	// The failure lands in shared memory under the errors category.
	entries := store.Search(memory.Query{Category: memory.CategoryErrors})
	require.Len(t, entries, 1)
	assert.Equal(t, "bad", entries[0].Author)
}

func TestManager_ParallelRunsCoordinateThroughMemory(t *testing.T) {
	factory := scriptedFactory(model.Turn{
		Calls: []core.ToolCall{{
			Name:      "report_results",
			Arguments: `{"summary":"finished my angle","status":"success"}`,
		}},
	})
	m, store := newManager(t, 5, factory)

	specs := make([]RunSpec, 0, 3)
	for _, name := range []string{"researcher", "analyst", "submitter"} {
		createAgent(t, m, name)
		specs = append(specs, RunSpec{Name: name, Task: "work your angle"})
	}

	results, err := m.RunParallel(context.Background(), specs)
	require.NoError(t, err)
	for _, res := range results {
		assert.Equal(t, core.StateTerminated, res.State)
	}

	groups := store.ListByAgent("task-1")
	assert.Len(t, groups, 3)
	for _, name := range []string{"researcher", "analyst", "submitter"} {
		entries := groups[name]
		require.NotEmpty(t, entries, "no entries for %s", name)
		assert.Equal(t, memory.CategoryCoordination, entries[0].Category)
	}
}

func TestManager_DeleteCancelsRunningSubagent(t *testing.T) {
	bm := newBlockingModel()
	m, _ := newManager(t, 2, func(string) (model.Model, error) { return bm, nil })
	createAgent(t, m, "alpha")

	runDone := make(chan *agent.Result, 1)
	go func() {
		res, _ := m.Run(context.Background(), "alpha", "task")
		runDone <- res
	}()
	<-bm.started

	require.NoError(t, m.Delete("alpha"))

	select {
	case res := <-runDone:
		assert.Equal(t, core.StateFailed, res.State)
		assert.Equal(t, agent.ReasonCancelled, res.Reason)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop after delete")
	}

	_, err := m.Status("alpha")
	assert.ErrorIs(t, err, core.ErrUnknownSubagent)
	assert.Equal(t, 0, m.RunningCount())
}

func TestManager_RunBatchStopOnFailure(t *testing.T) {
	factory := func(modelID string) (model.Model, error) {
		if modelID == "bad" {
			return model.NewScriptedModel(model.Turn{
				Calls: []core.ToolCall{{Name: "nope", Arguments: "{}"}},
			}), nil
		}
		return model.NewScriptedModel(model.Turn{Text: "ok"}), nil
	}
	m, _ := newManager(t, 5, factory)

	require.NoError(t, m.Create(agent.Config{Name: "a", SystemPrompt: "p"}))
	require.NoError(t, m.Create(agent.Config{Name: "b", SystemPrompt: "p", ModelID: "bad", MaxIterations: 1}))
	require.NoError(t, m.Create(agent.Config{Name: "c", SystemPrompt: "p"}))

	results, err := m.RunBatch(context.Background(), []RunSpec{
		{Name: "a", Task: "t"}, {Name: "b", Task: "t"}, {Name: "c", Task: "t"},
	}, true)
	require.Error(t, err)
	assert.Len(t, results, 2)

	// c never ran.
	info, statusErr := m.Status("c")
	require.NoError(t, statusErr)
	assert.Equal(t, core.StateCreated, info.State)
}

func TestManager_InjectsMemoryAndReportTools(t *testing.T) {
	factory := func(string) (model.Model, error) {
		return model.NewScriptedModel(model.Turn{
			Calls: []core.ToolCall{{Name: "report_results", Arguments: `{"summary":"done","status":"success"}`}},
		}), nil
	}
	m, store := newManager(t, 2, factory)
	createAgent(t, m, "alpha")

	res, err := m.Run(context.Background(), "alpha", "report in")
	require.NoError(t, err)
	assert.Equal(t, core.StateTerminated, res.State)

	entries := store.Search(memory.Query{Category: memory.CategoryCoordination})
	require.Len(t, entries, 1)
	assert.Equal(t, "alpha", entries[0].Author)
}
