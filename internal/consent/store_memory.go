package consent

import (
	"context"
	"sort"
	"sync"

	"loancore/pkg/domain"
	"loancore/pkg/platform/sentinel"
)

// InMemoryStore keeps consent records in maps for tests and local runs.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[domain.ConsentID]*Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[domain.ConsentID]*Record)}
}

func (s *InMemoryStore) Save(_ context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = cloneRecord(record)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id domain.ConsentID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneRecord(r), nil
}

func (s *InMemoryStore) ListByActor(_ context.Context, actorID domain.ActorID) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Record
	for _, r := range s.records {
		if r.ActorID == actorID {
			out = append(out, cloneRecord(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CapturedAt.Before(out[j].CapturedAt) })
	return out, nil
}

func cloneRecord(r *Record) *Record {
	cp := *r
	if r.Payload != nil {
		cp.Payload = make(map[string]any, len(r.Payload))
		for k, v := range r.Payload {
			cp.Payload[k] = v
		}
	}
	return &cp
}
