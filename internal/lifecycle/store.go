package lifecycle

import (
	"context"

	"loancore/pkg/domain"
)

// Store persists applications. Implementations must honor the
// compare-and-set contract on UpdateCAS: the write succeeds only when the
// stored version still equals expectedVersion, and the committed record
// carries expectedVersion+1. Applications are never deleted.
type Store interface {
	Create(ctx context.Context, app *Application) error

	// Get returns the application or sentinel.ErrNotFound.
	Get(ctx context.Context, id domain.ApplicationID) (*Application, error)

	// List returns every application. Used by the statistics aggregator.
	List(ctx context.Context) ([]*Application, error)

	// UpdateCAS writes status, officer, and decision fields while comparing
	// the version column. Returns sentinel.ErrVersionMismatch when another
	// actor already advanced the version, sentinel.ErrNotFound for an
	// unknown id.
	UpdateCAS(ctx context.Context, app *Application, expectedVersion int64) error
}
