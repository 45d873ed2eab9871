package stats

import (
	"context"
	"log/slog"

	dErrors "loancore/pkg/domain-errors"

	"loancore/internal/lifecycle"
	"loancore/internal/platform/metrics"
)

// Service computes portfolio statistics over the full application set,
// serving a cached snapshot until a transition invalidates it.
type Service struct {
	apps    lifecycle.Store
	cache   Cache
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(apps lifecycle.Store, logger *slog.Logger, opts ...Option) *Service {
	if apps == nil {
		panic("stats.New: nil application store")
	}
	if logger == nil {
		panic("stats.New: nil logger")
	}
	s := &Service{
		apps:   apps,
		cache:  NoopCache{},
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the current summary, recomputing on cache miss.
func (s *Service) Get(ctx context.Context) (Summary, error) {
	if cached, ok := s.cache.Get(ctx); ok {
		s.metrics.RecordStatsCacheHit()
		return cached, nil
	}
	s.metrics.RecordStatsCacheMiss()

	apps, err := s.apps.List(ctx)
	if err != nil {
		return Summary{}, dErrors.Wrap(err, dErrors.CodeInternal, "list applications for statistics")
	}
	summary := Compute(apps)
	s.cache.Set(ctx, summary)
	return summary, nil
}

// Invalidate drops the cached snapshot. The lifecycle engine calls this
// after every committed transition.
func (s *Service) Invalidate(ctx context.Context) {
	s.cache.Invalidate(ctx)
}
