package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"loancore/pkg/domain"
	txcontext "loancore/pkg/platform/tx"
)

// PostgresStore persists audit entries. Inserts participate in any
// transaction carried by the context (pkg/platform/tx), which is how a
// lifecycle commit and its audit entry become one indivisible unit.
//
// With the outbox enabled, every append also writes an outbox row in the
// same transaction; the relay publishes those to Kafka for downstream
// consumers. The audit_entries table remains the query source.
type PostgresStore struct {
	db         *sql.DB
	withOutbox bool
}

func NewPostgresStore(db *sql.DB, withOutbox bool) *PostgresStore {
	return &PostgresStore{db: db, withOutbox: withOutbox}
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

func (s *PostgresStore) Append(ctx context.Context, entry *Entry) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}
	if entry.Details == nil {
		details = []byte("{}")
	}

	var actorID any
	if entry.ActorID != nil {
		actorID = uuid.UUID(*entry.ActorID)
	}

	query := `
		INSERT INTO audit_entries (actor_id, action, resource_type, resource_id, details, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err = s.execer(ctx).QueryRowContext(ctx, query,
		actorID,
		string(entry.Action),
		entry.ResourceType,
		entry.ResourceID,
		details,
		entry.IPAddress,
		entry.UserAgent,
		entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	if !s.withOutbox {
		return nil
	}

	payload, err := json.Marshal(outboxPayload{
		EntryID:      entry.ID,
		ActorID:      actorIDString(entry.ActorID),
		Action:       string(entry.Action),
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		Details:      entry.Details,
		IPAddress:    entry.IPAddress,
		UserAgent:    entry.UserAgent,
		CreatedAt:    entry.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}

	_, err = s.execer(ctx).ExecContext(ctx,
		`INSERT INTO audit_outbox (id, entry_id, payload) VALUES ($1, $2, $3)`,
		uuid.New(), entry.ID, payload,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// outboxPayload is the JSON structure published to Kafka.
type outboxPayload struct {
	EntryID      int64          `json:"entry_id"`
	ActorID      string         `json:"actor_id,omitempty"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	Details      map[string]any `json:"details,omitempty"`
	IPAddress    string         `json:"ip_address,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty"`
	CreatedAt    string         `json:"created_at"`
}

func actorIDString(id *domain.ActorID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func (s *PostgresStore) Query(ctx context.Context, filter Filter) ([]Entry, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.ResourceType != "" {
		conds = append(conds, "resource_type = "+arg(filter.ResourceType))
	}
	if filter.ResourceID != "" {
		conds = append(conds, "resource_id = "+arg(filter.ResourceID))
	}
	if filter.ActorID != nil {
		conds = append(conds, "actor_id = "+arg(uuid.UUID(*filter.ActorID)))
	}
	if len(filter.Actions) > 0 {
		placeholders := make([]string, len(filter.Actions))
		for i, a := range filter.Actions {
			placeholders[i] = arg(string(a))
		}
		conds = append(conds, "action IN ("+strings.Join(placeholders, ", ")+")")
	}
	if !filter.From.IsZero() {
		conds = append(conds, "created_at >= "+arg(filter.From))
	}
	if !filter.To.IsZero() {
		conds = append(conds, "created_at <= "+arg(filter.To))
	}

	query := "SELECT id, actor_id, action, resource_type, resource_id, details, ip_address, user_agent, created_at FROM audit_entries"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	if filter.Order == OrderDesc {
		query += " ORDER BY created_at DESC, id DESC"
	} else {
		query += " ORDER BY created_at ASC, id ASC"
	}
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			actorID uuid.NullUUID
			action  string
			details []byte
		)
		if err := rows.Scan(&e.ID, &actorID, &action, &e.ResourceType, &e.ResourceID, &details, &e.IPAddress, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if actorID.Valid {
			id := domain.ActorID(actorID.UUID)
			e.ActorID = &id
		}
		e.Action = Action(action)
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, fmt.Errorf("unmarshal audit details: %w", err)
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return out, nil
}
