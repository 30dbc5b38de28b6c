// Package memory provides the append-only shared store that agents use to
// exchange findings. Entries are immutable once stored, carry monotonically
// increasing ids that are never reused, and are grouped by task and by a
// fixed set of categories.
package memory

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hivecast/hivecast/logging"
)

// Category partitions entries by purpose.
type Category string

const (
	CategoryResearch     Category = "research"
	CategoryAnalysis     Category = "analysis"
	CategoryForecastData Category = "forecast_data"
	CategoryDecisions    Category = "decisions"
	CategoryProgress     Category = "progress"
	CategoryErrors       Category = "errors"
	CategoryCoordination Category = "coordination"
)

// Categories lists every valid category in a stable order.
func Categories() []Category {
	return []Category{
		CategoryResearch,
		CategoryAnalysis,
		CategoryForecastData,
		CategoryDecisions,
		CategoryProgress,
		CategoryErrors,
		CategoryCoordination,
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Entry is one immutable record in the store.
type Entry struct {
	ID        int64     `json:"id"`
	TaskID    string    `json:"task_id"`
	Category  Category  `json:"category"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags,omitempty"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
}

// Query filters Search results. Zero fields match everything.
type Query struct {
	TaskID   string
	Category Category
	Tags     []string // entry must carry every listed tag
	Text     string   // case-insensitive substring of title or content
}

// Store is the in-memory shared store, optionally backed by a directory of
// JSON files (one per entry). Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	entries []Entry
	nextID  int64
	persist *persister
	logger  logging.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithPersistence makes every stored entry durable as a JSON file under dir.
// Existing entries in dir are loaded on construction.
func WithPersistence(dir string) Option {
	return func(s *Store) { s.persist = &persister{dir: dir} }
}

// WithLogger sets the store's logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore creates a Store. With persistence enabled, entries already on
// disk are loaded and the id counter resumes past the highest seen id.
func NewStore(opts ...Option) (*Store, error) {
	s := &Store{nextID: 1, logger: logging.NoOpLogger{}}
	for _, opt := range opts {
		opt(s)
	}
	if s.persist != nil {
		entries, err := s.persist.load()
		if err != nil {
			return nil, fmt.Errorf("memory: load persisted entries: %w", err)
		}
		s.entries = entries
		for _, e := range entries {
			if e.ID >= s.nextID {
				s.nextID = e.ID + 1
			}
		}
	}
	return s, nil
}

// Store appends a new entry and returns it with its assigned id and
// timestamp. The input entry's ID and Timestamp are ignored.
func (s *Store) Store(e Entry) (Entry, error) {
	if !e.Category.Valid() {
		return Entry{}, fmt.Errorf("memory: invalid category %q", e.Category)
	}
	if e.Title == "" {
		return Entry{}, fmt.Errorf("memory: title is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = s.nextID
	s.nextID++
	e.Timestamp = time.Now().UTC()
	s.entries = append(s.entries, e)

	if s.persist != nil {
		if err := s.persist.save(e); err != nil {
			s.logger.Error("failed to persist memory entry", "id", e.ID, "error", err)
		}
	}
	s.logger.Debug("memory entry stored", "id", e.ID, "category", e.Category, "author", e.Author)
	return e, nil
}

// Get returns the entry with the given id.
func (s *Store) Get(id int64) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Search returns entries matching the query, most recent first.
func (s *Store) Search(q Query) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Entry
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if q.TaskID != "" && e.TaskID != q.TaskID {
			continue
		}
		if q.Category != "" && e.Category != q.Category {
			continue
		}
		if !hasAllTags(e.Tags, q.Tags) {
			continue
		}
		if q.Text != "" && !matchesText(e, q.Text) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// GetRecent returns the n newest entries of a task, newest first.
func (s *Store) GetRecent(taskID string, n int) []Entry {
	entries := s.Search(Query{TaskID: taskID})
	if n > 0 && n < len(entries) {
		entries = entries[:n]
	}
	return entries
}

// GetTaskHistory returns every entry for a task in insertion order.
func (s *Store) GetTaskHistory(taskID string) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Entry
	for _, e := range s.entries {
		if e.TaskID == taskID {
			out = append(out, e)
		}
	}
	return out
}

// ListByAgent returns a task's entries grouped by author, each group in
// insertion order.
func (s *Store) ListByAgent(taskID string) map[string][]Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make(map[string][]Entry)
	for _, e := range s.entries {
		if taskID != "" && e.TaskID != taskID {
			continue
		}
		groups[e.Author] = append(groups[e.Author], e)
	}
	return groups
}

// CategoryStat summarizes one category of a task.
type CategoryStat struct {
	Count  int
	Latest Entry // zero when Count is 0
}

// BrowseCategories returns the entry count and most recent entry per
// category for a task.
func (s *Store) BrowseCategories(taskID string) map[Category]CategoryStat {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[Category]CategoryStat, len(Categories()))
	for _, e := range s.entries {
		if taskID != "" && e.TaskID != taskID {
			continue
		}
		stat := stats[e.Category]
		stat.Count++
		stat.Latest = e
		stats[e.Category] = stat
	}
	return stats
}

// Len returns the number of entries held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Purge removes every entry for a task from memory and disk. Ids are not
// reused afterwards. Returns the number of entries removed.
func (s *Store) Purge(taskID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var doomed []Entry
	kept := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.TaskID == taskID {
			doomed = append(doomed, e)
			continue
		}
		kept = append(kept, e)
	}

	// Remove the files first so a failure leaves the store untouched.
	if s.persist != nil {
		for _, e := range doomed {
			if err := s.persist.remove(e.ID); err != nil {
				return 0, fmt.Errorf("memory: purge entry %d: %w", e.ID, err)
			}
		}
	}
	s.entries = kept
	return len(doomed), nil
}

func hasAllTags(have, want []string) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if h == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func matchesText(e Entry, text string) bool {
	needle := strings.ToLower(text)
	return strings.Contains(strings.ToLower(e.Title), needle) ||
		strings.Contains(strings.ToLower(e.Content), needle)
}

// FormatEntries renders entries for inclusion in a tool result.
func FormatEntries(entries []Entry) string {
	if len(entries) == 0 {
		return "No entries found."
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "[%d] %s | %s | by %s at %s\n%s\n",
			e.ID, e.Category, e.Title, e.Author, e.Timestamp.Format(time.RFC3339), e.Content)
		if len(e.Tags) > 0 {
			tags := append([]string(nil), e.Tags...)
			sort.Strings(tags)
			fmt.Fprintf(&b, "tags: %s\n", strings.Join(tags, ", "))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
