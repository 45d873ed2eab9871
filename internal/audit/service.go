package audit

import (
	"context"
	"log/slog"

	dErrors "loancore/pkg/domain-errors"
	"loancore/pkg/requestcontext"
)

// maxQueryLimit caps one page of ledger results.
const maxQueryLimit = 500

// Service is the append-only ledger facade. It sanitizes details and stamps
// request context before handing entries to the store; it exposes no update
// or delete path.
type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Append sanitizes and persists one entry. Timestamp, IP, and user agent
// fall back to request context when unset. Runs inside whatever transaction
// the context carries, so lifecycle commits stay atomic with their entries.
func (s *Service) Append(ctx context.Context, entry *Entry) error {
	entry.Details = Sanitize(entry.Details)
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = requestcontext.Now(ctx)
	}
	if entry.IPAddress == "" {
		entry.IPAddress = requestcontext.ClientIP(ctx)
	}
	if entry.UserAgent == "" {
		entry.UserAgent = requestcontext.UserAgent(ctx)
	}
	if err := s.store.Append(ctx, entry); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "append audit entry")
	}
	return nil
}

// Query reads ledger entries. Side-effect-free; pagination is clamped to
// keep one page bounded.
func (s *Service) Query(ctx context.Context, filter Filter) ([]Entry, error) {
	if filter.Limit <= 0 || filter.Limit > maxQueryLimit {
		filter.Limit = maxQueryLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.Order == "" {
		filter.Order = OrderAsc
	}
	entries, err := s.store.Query(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "query audit entries")
	}
	return entries, nil
}
