package usecase

import (
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

type ProgressStage string

const (
	StageFetching  ProgressStage = "fetching"
	StageImporting ProgressStage = "importing"
	StageCompleted ProgressStage = "completed"
	StageFailed    ProgressStage = "failed"
)

// ProgressState is a snapshot of a running import, overwritten on every step.
type ProgressState struct {
	JournalID  uuid.UUID     `json:"journal_id"`
	Stage      ProgressStage `json:"stage"`
	Current    int           `json:"current"`
	Total      int           `json:"total"`
	Percentage int           `json:"percentage"`
	Message    string        `json:"message,omitempty"`
	Imported   int           `json:"imported"`
	Updated    int           `json:"updated"`
	Skipped    int           `json:"skipped"`
	Errors     int           `json:"errors"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// Done reports whether the import has reached a terminal stage.
func (p ProgressState) Done() bool {
	return p.Stage == StageCompleted || p.Stage == StageFailed
}

// ProgressReporter receives progress snapshots from an import.
type ProgressReporter interface {
	Report(state ProgressState)
}

// ProgressFunc adapts a plain function to ProgressReporter.
type ProgressFunc func(state ProgressState)

func (f ProgressFunc) Report(state ProgressState) { f(state) }

type discardProgress struct{}

func (discardProgress) Report(ProgressState) {}

// DiscardProgress drops every report.
var DiscardProgress ProgressReporter = discardProgress{}

// ProgressCache keeps the latest snapshot per journal for pollers. Entries
// expire after the configured TTL.
type ProgressCache struct {
	lru *expirable.LRU[uuid.UUID, ProgressState]
}

func NewProgressCache(size int, ttl time.Duration) *ProgressCache {
	if size <= 0 {
		size = 256
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ProgressCache{lru: expirable.NewLRU[uuid.UUID, ProgressState](size, nil, ttl)}
}

func (c *ProgressCache) Report(state ProgressState) {
	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = time.Now()
	}
	c.lru.Add(state.JournalID, state)
}

func (c *ProgressCache) Get(journalID uuid.UUID) (ProgressState, bool) {
	return c.lru.Get(journalID)
}

func percent(current, total int) int {
	if total <= 0 {
		return 0
	}
	return current * 100 / total
}
