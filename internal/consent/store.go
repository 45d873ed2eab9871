package consent

import (
	"context"

	"loancore/pkg/domain"
)

// Store persists consent records. Insert-only: no update or delete exists at
// the interface level, matching the ledger's immutability guarantee.
type Store interface {
	Save(ctx context.Context, record *Record) error

	// Get returns the record or sentinel.ErrNotFound.
	Get(ctx context.Context, id domain.ConsentID) (*Record, error)

	// ListByActor returns the actor's records, oldest first.
	ListByActor(ctx context.Context, actorID domain.ActorID) ([]*Record, error)
}
