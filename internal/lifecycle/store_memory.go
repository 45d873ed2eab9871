package lifecycle

import (
	"context"
	"sync"

	"loancore/pkg/domain"
	"loancore/pkg/platform/sentinel"
)

// InMemoryStore keeps applications in a map. Used by unit tests and local
// development; the Postgres store is the production implementation.
type InMemoryStore struct {
	mu   sync.RWMutex
	apps map[domain.ApplicationID]*Application
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{apps: make(map[domain.ApplicationID]*Application)}
}

func (s *InMemoryStore) Create(_ context.Context, app *Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.apps[app.ID]; exists {
		return sentinel.ErrInvalidState
	}
	s.apps[app.ID] = app.Clone()
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id domain.ApplicationID) (*Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.apps[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return app.Clone(), nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Application, 0, len(s.apps))
	for _, app := range s.apps {
		out = append(out, app.Clone())
	}
	return out, nil
}

func (s *InMemoryStore) UpdateCAS(_ context.Context, app *Application, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.apps[app.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Version != expectedVersion {
		return sentinel.ErrVersionMismatch
	}
	next := app.Clone()
	next.Version = expectedVersion + 1
	s.apps[app.ID] = next
	app.Version = next.Version
	return nil
}
