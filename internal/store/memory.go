package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rcliao/recordbook/internal/model"
	"github.com/rcliao/recordbook/internal/notify"
)

// MemStore implements Store on a slice. Update, Remove and Get are linear
// scans by id, which is fine for the small collections a session holds.
type MemStore struct {
	mu      sync.RWMutex
	records model.Collection
	ids     IdAllocator
	hub     notify.Hub
}

// NewMemStore returns an empty in-memory store with its own allocator.
func NewMemStore() *MemStore {
	return &MemStore{records: model.Collection{}}
}

func (s *MemStore) Add(ctx context.Context, d model.Draft) (model.Record, error) {
	s.mu.Lock()
	rec := model.Record{ID: s.ids.Next(), Name: d.Name, Email: d.Email}
	s.records = append(s.records, rec)
	s.mu.Unlock()

	slog.Debug("record added", "id", rec.ID, "backend", BackendMem)
	s.hub.Publish(notify.Event{Kind: notify.RecordAdded, RecordID: rec.ID})
	return rec, nil
}

func (s *MemStore) Update(ctx context.Context, id string, patch model.Draft) (model.Collection, error) {
	s.mu.Lock()
	i := s.records.Find(id)
	if i < 0 {
		out := s.records.Clone()
		s.mu.Unlock()
		return out, nil
	}
	s.records[i].Name = patch.Name
	s.records[i].Email = patch.Email
	out := s.records.Clone()
	s.mu.Unlock()

	slog.Debug("record updated", "id", id, "backend", BackendMem)
	s.hub.Publish(notify.Event{Kind: notify.RecordUpdated, RecordID: id})
	return out, nil
}

func (s *MemStore) Remove(ctx context.Context, id string) (model.Collection, error) {
	s.mu.Lock()
	i := s.records.Find(id)
	if i < 0 {
		out := s.records.Clone()
		s.mu.Unlock()
		return out, nil
	}
	// Build a new slice so snapshots handed out earlier keep their contents.
	kept := make(model.Collection, 0, len(s.records)-1)
	kept = append(kept, s.records[:i]...)
	kept = append(kept, s.records[i+1:]...)
	s.records = kept
	out := s.records.Clone()
	s.mu.Unlock()

	slog.Debug("record removed", "id", id, "backend", BackendMem)
	s.hub.Publish(notify.Event{Kind: notify.RecordRemoved, RecordID: id})
	return out, nil
}

func (s *MemStore) Snapshot(ctx context.Context) (model.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records.Clone(), nil
}

func (s *MemStore) Get(ctx context.Context, id string) (model.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.records.Find(id)
	if i < 0 {
		return model.Record{}, false, nil
	}
	return s.records[i], true, nil
}

func (s *MemStore) Stats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &Stats{
		Backend:   BackendMem,
		Records:   len(s.records),
		Allocated: s.ids.Allocated(),
		NextID:    s.ids.Peek(),
	}, nil
}

func (s *MemStore) Subscribe(fn notify.Func) func() {
	return s.hub.Subscribe(fn)
}

func (s *MemStore) Close() error {
	return nil
}
