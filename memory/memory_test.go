package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := NewStore(opts...)
	require.NoError(t, err)
	return s
}

func TestStore_MonotonicIDs(t *testing.T) {
	s := newStore(t)

	first, err := s.Store(Entry{TaskID: "t1", Category: CategoryResearch, Title: "a", Author: "x"})
	require.NoError(t, err)
	second, err := s.Store(Entry{TaskID: "t1", Category: CategoryResearch, Title: "b", Author: "x"})
	require.NoError(t, err)
	assert.Equal(t, first.ID+1, second.ID)

	// Purging does not free ids for reuse.
	_, err = s.Purge("t1")
	require.NoError(t, err)
	third, err := s.Store(Entry{TaskID: "t2", Category: CategoryResearch, Title: "c", Author: "x"})
	require.NoError(t, err)
	assert.Greater(t, third.ID, second.ID)
}

func TestStore_ValidatesCategoryAndTitle(t *testing.T) {
	s := newStore(t)

	_, err := s.Store(Entry{TaskID: "t", Category: "bogus", Title: "a", Author: "x"})
	assert.Error(t, err)

	_, err = s.Store(Entry{TaskID: "t", Category: CategoryAnalysis, Author: "x"})
	assert.Error(t, err)
}

func TestStore_Search(t *testing.T) {
	s := newStore(t)

	_, err := s.Store(Entry{TaskID: "t1", Category: CategoryResearch, Title: "rates", Content: "fed holds steady", Tags: []string{"macro"}, Author: "alpha"})
	require.NoError(t, err)
	_, err = s.Store(Entry{TaskID: "t1", Category: CategoryAnalysis, Title: "model output", Content: "p=0.62", Author: "beta"})
	require.NoError(t, err)
	_, err = s.Store(Entry{TaskID: "t2", Category: CategoryResearch, Title: "other task", Author: "alpha"})
	require.NoError(t, err)

	byTask := s.Search(Query{TaskID: "t1"})
	assert.Len(t, byTask, 2)

	byCategory := s.Search(Query{TaskID: "t1", Category: CategoryResearch})
	require.Len(t, byCategory, 1)
	assert.Equal(t, "rates", byCategory[0].Title)

	byTag := s.Search(Query{Tags: []string{"macro"}})
	assert.Len(t, byTag, 1)

	byText := s.Search(Query{Text: "FED HOLDS"})
	assert.Len(t, byText, 1)

	// Search returns most recent first.
	all := s.Search(Query{})
	require.Len(t, all, 3)
	assert.Equal(t, "other task", all[0].Title)
	assert.Equal(t, "rates", all[2].Title)

	groups := s.ListByAgent("t1")
	assert.Len(t, groups["alpha"], 1)
	assert.Len(t, groups["beta"], 1)
}

func TestStore_GetRecent(t *testing.T) {
	s := newStore(t)
	for _, title := range []string{"a", "b", "c"} {
		_, err := s.Store(Entry{TaskID: "t", Category: CategoryProgress, Title: title, Author: "x"})
		require.NoError(t, err)
	}

	recent := s.GetRecent("t", 2)
	require.Len(t, recent, 2)
	assert.Equal(t, "c", recent[0].Title)
	assert.Equal(t, "b", recent[1].Title)

	history := s.GetTaskHistory("t")
	require.Len(t, history, 3)
	assert.Equal(t, "a", history[0].Title)

	stats := s.BrowseCategories("t")
	assert.Equal(t, 3, stats[CategoryProgress].Count)
	assert.Equal(t, "c", stats[CategoryProgress].Latest.Title)
}

func TestStore_PersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()

	s := newStore(t, WithPersistence(dir))
	stored, err := s.Store(Entry{TaskID: "t", Category: CategoryDecisions, Title: "pick", Content: "go with plan b", Author: "x"})
	require.NoError(t, err)

	reloaded := newStore(t, WithPersistence(dir))
	got, found := reloaded.Get(stored.ID)
	require.True(t, found)
	assert.Equal(t, stored.Title, got.Title)
	assert.Equal(t, stored.Content, got.Content)

	// The id counter resumes past the persisted entries.
	next, err := reloaded.Store(Entry{TaskID: "t", Category: CategoryDecisions, Title: "next", Author: "x"})
	require.NoError(t, err)
	assert.Greater(t, next.ID, stored.ID)
}

func TestStore_FailedPurgeLeavesEntriesIntact(t *testing.T) {
	dir := t.TempDir()
	s := newStore(t, WithPersistence(dir))

	a, err := s.Store(Entry{TaskID: "t1", Category: CategoryResearch, Title: "A", Author: "x"})
	require.NoError(t, err)
	b, err := s.Store(Entry{TaskID: "t2", Category: CategoryResearch, Title: "B", Author: "x"})
	require.NoError(t, err)
	c, err := s.Store(Entry{TaskID: "t1", Category: CategoryResearch, Title: "C", Author: "x"})
	require.NoError(t, err)

	// Make entry C's file undeletable by swapping it for a non-empty dir.
	p := &persister{dir: dir}
	require.NoError(t, os.Remove(p.path(c.ID)))
	require.NoError(t, os.MkdirAll(filepath.Join(p.path(c.ID), "pin"), 0o755))

	_, err = s.Purge("t1")
	require.Error(t, err)

	// No entry was dropped, duplicated, or resurrected.
	ids := make(map[int64]int)
	for _, e := range append(s.GetTaskHistory("t1"), s.GetTaskHistory("t2")...) {
		ids[e.ID]++
	}
	assert.Equal(t, map[int64]int{a.ID: 1, b.ID: 1, c.ID: 1}, ids)
}

func TestMemoryTool_StoreAndSearch(t *testing.T) {
	s := newStore(t)
	mt := NewTool(s, "task-1", "agent-a")

	out, err := mt.Call(context.Background(), map[string]any{
		"action":   "store",
		"category": "research",
		"title":    "inflation print",
		"content":  "CPI up 0.2% m/m",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Stored entry 1")

	out, err = mt.Call(context.Background(), map[string]any{
		"action": "search",
		"query":  "cpi",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "inflation print")

	entries := s.ListByAgent("task-1")["agent-a"]
	require.Len(t, entries, 1)
	assert.Equal(t, "task-1", entries[0].TaskID)
}

func TestMemoryTool_UnknownAction(t *testing.T) {
	mt := NewTool(newStore(t), "task-1", "agent-a")
	_, err := mt.Call(context.Background(), map[string]any{"action": "destroy"})
	assert.Error(t, err)
}

func TestReportTool_StoresCoordinationEntry(t *testing.T) {
	s := newStore(t)
	rt := NewReportTool(s, "task-1", "agent-a")

	out, err := rt.Call(context.Background(), map[string]any{
		"summary": "forecast submitted for question 42",
		"status":  "success",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Report stored")

	entries := s.Search(Query{Category: CategoryCoordination})
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Content, "forecast submitted")
	assert.Equal(t, "agent-a", entries[0].Author)
}
