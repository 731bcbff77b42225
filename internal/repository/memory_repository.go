// internal/repository/memory_repository.go
package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"robot-service/internal/model"
)

// memoryCommandRepository keeps the most recent entries in a ring buffer.
// Used when no database is configured.
type memoryCommandRepository struct {
	mu      sync.RWMutex
	records []*model.CommandRecord
	next    int
	full    bool
}

// NewMemoryCommandRepository creates an in-memory journal holding up to limit entries
func NewMemoryCommandRepository(limit int) CommandRepository {
	if limit <= 0 {
		limit = 1000
	}
	return &memoryCommandRepository{
		records: make([]*model.CommandRecord, limit),
	}
}

func (r *memoryCommandRepository) Create(ctx context.Context, record *model.CommandRecord) error {
	copied := *record

	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[r.next] = &copied
	r.next = (r.next + 1) % len(r.records)
	if r.next == 0 {
		r.full = true
	}
	return nil
}

// newestFirst returns live entries, most recent first. Caller holds the lock.
func (r *memoryCommandRepository) newestFirst() []*model.CommandRecord {
	count := r.next
	if r.full {
		count = len(r.records)
	}

	out := make([]*model.CommandRecord, 0, count)
	for i := 1; i <= count; i++ {
		idx := (r.next - i + len(r.records)) % len(r.records)
		if rec := r.records[idx]; rec != nil {
			out = append(out, rec)
		}
	}
	return out
}

func (r *memoryCommandRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.CommandRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.newestFirst() {
		if rec.ID == id {
			copied := *rec
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%w: journal entry %s", ErrNotFound, id)
}

func (r *memoryCommandRepository) List(ctx context.Context, filter *CommandFilter) ([]*model.CommandRecord, int, error) {
	filter.Normalize()

	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []*model.CommandRecord{}
	for _, rec := range r.newestFirst() {
		if filter.Matches(rec) {
			matched = append(matched, rec)
		}
	}

	total := len(matched)
	if filter.Offset >= total {
		return []*model.CommandRecord{}, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}

	page := make([]*model.CommandRecord, 0, end-filter.Offset)
	for _, rec := range matched[filter.Offset:end] {
		copied := *rec
		page = append(page, &copied)
	}
	return page, total, nil
}

func (r *memoryCommandRepository) GetStats(ctx context.Context, since *time.Time) (*CommandStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := newCommandStats()
	filter := &CommandFilter{Since: since}
	var totalMs int64

	for _, rec := range r.newestFirst() {
		if !filter.Matches(rec) {
			continue
		}
		stats.Total++
		stats.ByType[rec.OperationType]++
		stats.ByStatus[rec.Status]++
		totalMs += int64(rec.DurationMs)
	}

	stats.Successful = stats.ByStatus[model.CommandStatusSuccess]
	stats.Failed = stats.Total - stats.Successful
	if stats.Total > 0 {
		stats.AvgDuration = time.Duration(totalMs/int64(stats.Total)) * time.Millisecond
	}
	return stats, nil
}

func (r *memoryCommandRepository) DeleteOlderThan(ctx context.Context, olderThan time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := make([]*model.CommandRecord, 0, len(r.records))
	live := r.newestFirst()
	for i := len(live) - 1; i >= 0; i-- {
		if !live[i].CreatedAt.Before(olderThan) {
			kept = append(kept, live[i])
		}
	}

	deleted := int64(len(live) - len(kept))
	for i := range r.records {
		r.records[i] = nil
	}
	copy(r.records, kept)
	r.next = len(kept) % len(r.records)
	r.full = len(kept) == len(r.records)

	return deleted, nil
}
