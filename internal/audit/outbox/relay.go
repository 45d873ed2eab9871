// Package outbox relays committed audit entries from the transactional
// outbox table to Kafka. The outbox row is written in the same transaction
// as the ledger entry, so downstream consumers see exactly the committed
// trail: no entry for an aborted transition, no missing entry for a
// committed one.
package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultBatchSize    = 100
)

// Relay polls the outbox and publishes pending rows. Rows are marked
// published only after Kafka acknowledges the produce, so delivery is
// at-least-once; consumers deduplicate on entry_id.
type Relay struct {
	db           *sql.DB
	client       *kgo.Client
	topic        string
	logger       *slog.Logger
	pollInterval time.Duration
	batchSize    int
}

// Option adjusts relay behavior.
type Option func(*Relay)

// WithPollInterval overrides the outbox polling cadence.
func WithPollInterval(d time.Duration) Option {
	return func(r *Relay) { r.pollInterval = d }
}

// WithBatchSize overrides how many rows one poll drains.
func WithBatchSize(n int) Option {
	return func(r *Relay) { r.batchSize = n }
}

// New connects to the brokers and ensures the topic exists.
func New(db *sql.DB, brokers []string, topic string, logger *slog.Logger, opts ...Option) (*Relay, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}

	admin := kadm.NewClient(client)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	resp, err := admin.CreateTopic(ctx, 1, 1, nil, topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create audit topic: %w", err)
	}
	if resp.Err != nil {
		// Already-exists is the common case after first boot.
		logger.Debug("create audit topic", "topic", topic, "result", resp.Err.Error())
	}

	r := &Relay{
		db:           db,
		client:       client,
		topic:        topic,
		logger:       logger,
		pollInterval: defaultPollInterval,
		batchSize:    defaultBatchSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run polls until the context is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()
	defer r.client.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.drain(ctx); err != nil {
				r.logger.ErrorContext(ctx, "outbox drain failed", "error", err)
			}
		}
	}
}

type pendingRow struct {
	id      uuid.UUID
	entryID int64
	payload []byte
}

func (r *Relay) drain(ctx context.Context) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, entry_id, payload
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`, r.batchSize)
	if err != nil {
		return fmt.Errorf("select pending outbox rows: %w", err)
	}
	defer rows.Close()

	var pending []pendingRow
	for rows.Next() {
		var p pendingRow
		if err := rows.Scan(&p.id, &p.entryID, &p.payload); err != nil {
			return fmt.Errorf("scan outbox row: %w", err)
		}
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate outbox rows: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	for _, p := range pending {
		record := &kgo.Record{
			Topic: r.topic,
			Key:   fmt.Appendf(nil, "%d", p.entryID),
			Value: p.payload,
		}
		if err := r.client.ProduceSync(ctx, record).FirstErr(); err != nil {
			return fmt.Errorf("produce audit entry %d: %w", p.entryID, err)
		}
		if _, err := r.db.ExecContext(ctx,
			`UPDATE audit_outbox SET published_at = now() WHERE id = $1`, p.id,
		); err != nil {
			return fmt.Errorf("mark outbox row published: %w", err)
		}
	}

	r.logger.InfoContext(ctx, "relayed audit entries", "count", len(pending))
	return nil
}
