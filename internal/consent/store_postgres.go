package consent

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"loancore/pkg/domain"
	"loancore/pkg/platform/sentinel"
	txcontext "loancore/pkg/platform/tx"
)

// PostgresStore persists consent records. Participates in any transaction
// carried by the context so a capture and its audit entry commit together.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Save(ctx context.Context, record *Record) error {
	payload, err := json.Marshal(record.Payload)
	if err != nil {
		return fmt.Errorf("marshal consent payload: %w", err)
	}
	_, err = s.execer(ctx).ExecContext(ctx, `
		INSERT INTO consent_records (id, actor_id, consent_type, payload, fingerprint, captured_at, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		uuid.UUID(record.ID),
		uuid.UUID(record.ActorID),
		record.ConsentType.String(),
		payload,
		record.Fingerprint,
		record.CapturedAt,
		record.IPAddress,
		record.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("insert consent record: %w", err)
	}
	return nil
}

const consentColumns = `id, actor_id, consent_type, payload, fingerprint, captured_at, ip_address, user_agent`

func (s *PostgresStore) Get(ctx context.Context, id domain.ConsentID) (*Record, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+consentColumns+` FROM consent_records WHERE id = $1`, uuid.UUID(id))
	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("select consent record: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) ListByActor(ctx context.Context, actorID domain.ActorID) ([]*Record, error) {
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT `+consentColumns+` FROM consent_records WHERE actor_id = $1 ORDER BY captured_at`,
		uuid.UUID(actorID))
	if err != nil {
		return nil, fmt.Errorf("list consent records: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan consent record: %w", err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consent records: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		r           Record
		id          uuid.UUID
		actorID     uuid.UUID
		consentType string
		payload     []byte
	)
	if err := row.Scan(&id, &actorID, &consentType, &payload, &r.Fingerprint, &r.CapturedAt, &r.IPAddress, &r.UserAgent); err != nil {
		return nil, err
	}
	r.ID = domain.ConsentID(id)
	r.ActorID = domain.ActorID(actorID)
	r.ConsentType = Type(consentType)
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &r.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal consent payload: %w", err)
		}
	}
	return &r, nil
}
