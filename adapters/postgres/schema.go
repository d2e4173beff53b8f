package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Schema for the instrument's persistence collaborator. Statistics payloads
// are stored as JSONB so the write path never depends on result shape
// revisions.
const schema = `
CREATE TABLE IF NOT EXISTS trials (
	session_id   UUID        NOT NULL,
	trial_number INTEGER     NOT NULL,
	recorded_at  TIMESTAMPTZ NOT NULL,
	value        INTEGER     NOT NULL,
	mode         TEXT        NOT NULL,
	intention    TEXT        NOT NULL,
	PRIMARY KEY (session_id, trial_number)
);

CREATE INDEX IF NOT EXISTS idx_trials_recorded_at ON trials (recorded_at);

CREATE TABLE IF NOT EXISTS calibrations (
	id          UUID        PRIMARY KEY,
	started_at  TIMESTAMPTZ NOT NULL,
	ended_at    TIMESTAMPTZ NOT NULL,
	trial_count INTEGER     NOT NULL,
	passed      BOOLEAN     NOT NULL,
	rating      TEXT        NOT NULL,
	statistics  JSONB       NOT NULL,
	issues      JSONB
);
`

// Migrate creates the persistence tables if they do not exist
func Migrate(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
