package store

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/reoring/revstream"
)

// MemoryStore keeps records in process memory. It is the default driver and
// the one used by tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
	byID    map[string]int
	nextSeq int64
}

// NewMemory returns an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{byID: make(map[string]int), nextSeq: 1}
}

func (m *MemoryStore) Create(_ context.Context, s revstream.RevenueStream) (*Record, error) {
	rec, err := newRecord(s)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.Seq = m.nextSeq
	m.nextSeq++
	m.byID[rec.ID] = len(m.records)
	m.records = append(m.records, *rec)
	return rec, nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.byID[id]
	if !ok {
		return nil, eris.Wrapf(ErrNotFound, "memory: get %s", id)
	}
	rec := m.records[i]
	return &rec, nil
}

// List returns records newest first.
func (m *MemoryStore) List(_ context.Context, filter ListFilter) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	limit := limitOrDefault(filter.Limit)
	out := []Record{}
	skipped := 0
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		rec := m.records[i]
		if filter.StreamType != "" && rec.StreamType != filter.StreamType {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (m *MemoryStore) StreamExists(_ context.Context, seq int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return seq > 0 && seq < m.nextSeq, nil
}

func (m *MemoryStore) Migrate(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
