// Package journal records the outcome of every execution request: final
// state, committed name, and the issues that rejected it. It is the only
// state this system persists, and only when a durable recorder is wired.
package journal

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/specialistvlad/scenegrid/internal/validation"
)

// Entry is one finished execution.
type Entry struct {
	RequestID     string             `json:"request_id"`
	Timestamp     time.Time          `json:"ts"`
	Domain        string             `json:"domain,omitempty"`
	Seed          int64              `json:"seed"`
	State         string             `json:"state"`
	CommittedName string             `json:"committed_name,omitempty"`
	Error         string             `json:"error,omitempty"`
	Issues        []validation.Issue `json:"issues,omitempty"`
	Datablocks    int                `json:"datablocks"`
	Duration      time.Duration      `json:"duration"`
}

// Recorder stores journal entries.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

// Memory is an in-process Recorder.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemory creates an empty in-memory journal.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Record(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

// Recent returns up to limit entries, newest first.
func (m *Memory) Recent(_ context.Context, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := slices.Clone(m.entries)
	slices.Reverse(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
