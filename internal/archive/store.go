package archive

import (
	"context"
	"sort"
	"sync"
)

// Store keeps snapshots of matches in progress.
type Store interface {
	SaveSnapshot(ctx context.Context, rec *Record) error
	Load(ctx context.Context, id string) (*Record, error)
	ListActive(ctx context.Context) ([]*Record, error)
	MarkFinished(ctx context.Context, rec *Record) error
	Close() error
}

// MemoryStore is used when no Redis URL is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

func (m *MemoryStore) SaveSnapshot(_ context.Context, rec *Record) error {
	if rec == nil || rec.ID == "" {
		return ErrNotFound
	}
	m.mu.Lock()
	m.records[rec.ID] = rec.clone()
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Load(_ context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.clone(), nil
}

// ListActive returns unfinished records, most recently updated first.
func (m *MemoryStore) ListActive(_ context.Context) ([]*Record, error) {
	m.mu.RLock()
	out := make([]*Record, 0, len(m.records))
	for _, rec := range m.records {
		if !rec.Finished {
			out = append(out, rec.clone())
		}
	}
	m.mu.RUnlock()
	sortRecent(out)
	return out, nil
}

func (m *MemoryStore) MarkFinished(ctx context.Context, rec *Record) error {
	if rec == nil {
		return ErrNotFound
	}
	c := rec.clone()
	c.Finished = true
	return m.SaveSnapshot(ctx, c)
}

func (m *MemoryStore) Close() error { return nil }

func sortRecent(recs []*Record) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].UpdatedAt.Equal(recs[j].UpdatedAt) {
			return recs[i].UpdatedAt.After(recs[j].UpdatedAt)
		}
		return recs[i].ID < recs[j].ID
	})
}
