package export

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/channelvisor/tg-members/pkg/telegram"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	label       TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	member_count INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS members (
	run_id      INTEGER NOT NULL REFERENCES runs(id),
	position    INTEGER NOT NULL,
	user_id     INTEGER NOT NULL,
	access_hash INTEGER NOT NULL,
	username    TEXT,
	first_name  TEXT,
	last_name   TEXT,
	phone       TEXT,
	is_bot      INTEGER NOT NULL,
	is_verified INTEGER NOT NULL,
	is_premium  INTEGER NOT NULL,
	PRIMARY KEY (run_id, user_id)
);
`

// SQLiteExporter writes members into a SQLite database, one row per
// member in discovery order, grouped under a run record. Repeated
// exports into the same file accumulate runs.
type SQLiteExporter struct {
	logger zerolog.Logger
}

// NewSQLiteExporter creates a SQLite exporter.
func NewSQLiteExporter() *SQLiteExporter {
	return &SQLiteExporter{
		logger: log.With().Str("component", "sqlite-export").Logger(),
	}
}

// Export writes the member set into the database at path.
func (e *SQLiteExporter) Export(ctx context.Context, path, label string, members []telegram.Member) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (label, created_at, member_count) VALUES (?, ?, ?)`,
		label, time.Now().UTC().Format(time.RFC3339), len(members))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO members (run_id, position, user_id, access_hash,
			username, first_name, last_name, phone,
			is_bot, is_verified, is_premium)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range members {
		_, err := stmt.ExecContext(ctx, runID, i, m.ID, m.AccessHash,
			m.Username, m.FirstName, m.LastName, m.Phone,
			boolToInt(m.Bot), boolToInt(m.Verified), boolToInt(m.Premium))
		if err != nil {
			return fmt.Errorf("insert member %d: %w", m.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit export: %w", err)
	}

	e.logger.Info().
		Str("path", path).
		Str("channel", label).
		Int64("run_id", runID).
		Int("members", len(members)).
		Msg("SQLite export complete")

	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
