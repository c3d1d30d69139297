package journal

import (
	"context"
	"sync"

	"scenario-advisor/internal/logger"
	"scenario-advisor/internal/types"
)

// NewsLog is the append-only record of news checks. Entries are never
// mutated or removed; readers get copies.
type NewsLog struct {
	mu      sync.Mutex
	entries []types.NewsLogEntry
	sink    *FileSink
}

// NewNewsLog creates an empty log. sink may be nil.
func NewNewsLog(sink *FileSink) *NewsLog {
	return &NewsLog{sink: sink}
}

// Append records entry. The optional file mirror is written outside the lock;
// a mirror failure is logged and the in-memory entry is kept.
func (l *NewsLog) Append(ctx context.Context, entry types.NewsLogEntry) {
	entry.Items = append([]types.NewsItem(nil), entry.Items...)

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()

	if l.sink != nil {
		if err := l.sink.AppendNews(entry); err != nil {
			logger.Warn(ctx, "Failed to mirror news check", "scenario_id", entry.ScenarioID, "error", err)
		}
	}
}

// Entries returns a snapshot in append order.
func (l *NewsLog) Entries() []types.NewsLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return copyEntries(l.entries)
}

// ForScenario returns the entries recorded for one scenario.
func (l *NewsLog) ForScenario(id string) []types.NewsLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]types.NewsLogEntry, 0)
	for _, e := range l.entries {
		if e.ScenarioID == id {
			out = append(out, copyEntry(e))
		}
	}
	return out
}

func (l *NewsLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func copyEntries(in []types.NewsLogEntry) []types.NewsLogEntry {
	out := make([]types.NewsLogEntry, len(in))
	for i, e := range in {
		out[i] = copyEntry(e)
	}
	return out
}

func copyEntry(e types.NewsLogEntry) types.NewsLogEntry {
	e.Items = append([]types.NewsItem(nil), e.Items...)
	return e
}
