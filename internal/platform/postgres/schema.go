// Package postgres holds the storage schema and bootstrap helper shared by
// the server (dev bootstrap mode) and the integration test harness.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema is the storage layout for the lifecycle core.
//
// applications carries a monotonically increasing version column for the
// optimistic-concurrency guard. audit_entries and consent_records are
// insert-only: no code path issues UPDATE or DELETE against them, and the
// store interfaces expose neither. audit_outbox feeds the Kafka relay.
const Schema = `
CREATE TABLE IF NOT EXISTS applications (
	id                 UUID PRIMARY KEY,
	application_number TEXT NOT NULL UNIQUE,
	status             TEXT NOT NULL,
	requested_amount   NUMERIC(14,2) NOT NULL,
	loan_type          TEXT NOT NULL,
	applicant_id       UUID NOT NULL,
	assigned_officer   UUID,
	decision_maker     UUID,
	submitted_at       TIMESTAMPTZ NOT NULL,
	decided_at         TIMESTAMPTZ,
	version            BIGINT NOT NULL DEFAULT 1,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_applications_status ON applications (status);

CREATE TABLE IF NOT EXISTS audit_entries (
	id            BIGSERIAL PRIMARY KEY,
	actor_id      UUID,
	action        TEXT NOT NULL,
	resource_type TEXT NOT NULL,
	resource_id   TEXT NOT NULL,
	details       JSONB NOT NULL DEFAULT '{}',
	ip_address    TEXT NOT NULL DEFAULT '',
	user_agent    TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_entries_resource ON audit_entries (resource_type, resource_id);
CREATE INDEX IF NOT EXISTS idx_audit_entries_created_at ON audit_entries (created_at);

CREATE TABLE IF NOT EXISTS audit_outbox (
	id           UUID PRIMARY KEY,
	entry_id     BIGINT NOT NULL REFERENCES audit_entries (id),
	payload      JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	published_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_audit_outbox_unpublished ON audit_outbox (created_at) WHERE published_at IS NULL;

CREATE TABLE IF NOT EXISTS consent_records (
	id           UUID PRIMARY KEY,
	actor_id     UUID NOT NULL,
	consent_type TEXT NOT NULL,
	payload      JSONB NOT NULL,
	fingerprint  TEXT NOT NULL,
	captured_at  TIMESTAMPTZ NOT NULL,
	ip_address   TEXT NOT NULL DEFAULT '',
	user_agent   TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_consent_records_actor ON consent_records (actor_id);
`

// Bootstrap applies the schema. Safe to run repeatedly; intended for dev
// environments and the integration test harness, not production migrations.
func Bootstrap(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
