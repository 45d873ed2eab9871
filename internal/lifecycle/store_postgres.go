package lifecycle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"loancore/pkg/domain"
	"loancore/pkg/platform/sentinel"
	txcontext "loancore/pkg/platform/tx"
)

// PostgresStore persists applications in PostgreSQL. When the context
// carries a transaction (pkg/platform/tx), all statements run inside it so
// the CAS write and the audit append commit as one unit.
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

const applicationColumns = `
	id, application_number, status, requested_amount, loan_type,
	applicant_id, assigned_officer, decision_maker,
	submitted_at, decided_at, version, created_at, updated_at
`

func (s *PostgresStore) Create(ctx context.Context, app *Application) error {
	query := `
		INSERT INTO applications (` + applicationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(app.ID),
		app.Number,
		app.Status.String(),
		app.RequestedAmount,
		app.LoanType,
		uuid.UUID(app.ApplicantID),
		actorIDOrNil(app.AssignedOfficer),
		actorIDOrNil(app.DecisionMaker),
		app.SubmittedAt,
		app.DecidedAt,
		app.Version,
		app.CreatedAt,
		app.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id domain.ApplicationID) (*Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`
	row := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(id))
	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("select application: %w", err)
	}
	return app, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications ORDER BY submitted_at`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var out []*Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		out = append(out, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applications: %w", err)
	}
	return out, nil
}

// UpdateCAS compares the version column in the WHERE clause so a lost race
// updates zero rows instead of clobbering the winner's write.
func (s *PostgresStore) UpdateCAS(ctx context.Context, app *Application, expectedVersion int64) error {
	query := `
		UPDATE applications
		SET status = $1,
		    assigned_officer = $2,
		    decision_maker = $3,
		    decided_at = $4,
		    version = version + 1,
		    updated_at = $5
		WHERE id = $6 AND version = $7
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		app.Status.String(),
		actorIDOrNil(app.AssignedOfficer),
		actorIDOrNil(app.DecisionMaker),
		app.DecidedAt,
		app.UpdatedAt,
		uuid.UUID(app.ID),
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		// Distinguish a lost CAS from an unknown id.
		var exists bool
		err := s.execer(ctx).QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM applications WHERE id = $1)`, uuid.UUID(app.ID),
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check application existence: %w", err)
		}
		if !exists {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrVersionMismatch
	}
	app.Version = expectedVersion + 1
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (*Application, error) {
	var (
		app             Application
		id              uuid.UUID
		status          string
		applicantID     uuid.UUID
		assignedOfficer uuid.NullUUID
		decisionMaker   uuid.NullUUID
		decidedAt       sql.NullTime
	)
	err := row.Scan(
		&id,
		&app.Number,
		&status,
		&app.RequestedAmount,
		&app.LoanType,
		&applicantID,
		&assignedOfficer,
		&decisionMaker,
		&app.SubmittedAt,
		&decidedAt,
		&app.Version,
		&app.CreatedAt,
		&app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	app.ID = domain.ApplicationID(id)
	app.Status = domain.Status(status)
	app.ApplicantID = domain.ActorID(applicantID)
	if assignedOfficer.Valid {
		officer := domain.ActorID(assignedOfficer.UUID)
		app.AssignedOfficer = &officer
	}
	if decisionMaker.Valid {
		maker := domain.ActorID(decisionMaker.UUID)
		app.DecisionMaker = &maker
	}
	if decidedAt.Valid {
		t := decidedAt.Time
		app.DecidedAt = &t
	}
	return &app, nil
}

func actorIDOrNil(id *domain.ActorID) any {
	if id == nil {
		return nil
	}
	return uuid.UUID(*id)
}
