package repository

import (
	"context"
	"sort"
	"sync"

	"go-flower-classifier/internal/classification"
)

// MemoryRepository is a map-backed ClassificationRepository with the same
// contract as the Mongo implementation. Used as a test double and as a
// dependency-free development fallback.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*classification.Record
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]*classification.Record)}
}

func (r *MemoryRepository) Insert(_ context.Context, record *classification.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.ID] = record
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*classification.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return record, nil
}

func (r *MemoryRepository) ListAll(_ context.Context) ([]*classification.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	records := make([]*classification.Record, 0, len(r.records))
	for _, record := range r.records {
		records = append(records, record)
	}
	// Newest first, matching the store-backed implementation
	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
	return records, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return ErrNotFound
	}
	delete(r.records, id)
	return nil
}

func (r *MemoryRepository) Ping(_ context.Context) error {
	return nil
}
