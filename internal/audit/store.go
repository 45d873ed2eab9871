package audit

import "context"

// Store is the append-only ledger contract. It structurally omits update and
// delete: immutability is an interface-level guarantee, not a convention.
type Store interface {
	// Append persists the entry and fills in its assigned ID.
	Append(ctx context.Context, entry *Entry) error

	// Query returns entries matching the filter, ordered by created_at.
	Query(ctx context.Context, filter Filter) ([]Entry, error)
}
