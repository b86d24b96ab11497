package trackers

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/samuelfneumann/drivelearn/experiment/tracker"
)

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS epochs (
	id           TEXT PRIMARY KEY,
	agent_id     TEXT NOT NULL,
	epoch        INTEGER NOT NULL,
	frames       INTEGER NOT NULL,
	num_random   INTEGER NOT NULL,
	epoch_return REAL NOT NULL,
	reason       TEXT NOT NULL,
	bootstrap    INTEGER NOT NULL,
	epsilon      REAL NOT NULL,
	duration_ns  INTEGER NOT NULL
)`

// LedgerRow is a single epoch recorded in a Ledger
type LedgerRow struct {
	ID        string
	AgentID   string
	Epoch     int
	Frames    int
	NumRandom int
	Return    float64
	Reason    string
	Bootstrap bool
	Epsilon   float64
	Duration  int64
}

// Ledger records a row for each epoch in a SQLite database. Rows are
// written as epochs are tracked, so Save only closes the database.
type Ledger struct {
	db      *sql.DB
	agentID uuid.UUID
}

// NewLedger opens, creating if needed, the ledger database at path.
// Rows are written for the agent agentID.
func NewLedger(path string, agentID uuid.UUID) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("newLedger: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("newLedger: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("newLedger: failed to execute %q: %w",
				pragma, err)
		}
	}
	if _, err := db.Exec(ledgerSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("newLedger: could not create schema: %w", err)
	}

	return &Ledger{db: db, agentID: agentID}, nil
}

// Track implements the tracker.Tracker interface
func (l *Ledger) Track(epoch tracker.Epoch) error {
	frames, ret := 0, 0.0
	if epoch.Trajectory != nil {
		frames = epoch.Trajectory.Len()
		ret = epoch.Trajectory.Return()
	}

	_, err := l.db.Exec(`INSERT INTO epochs (id, agent_id, epoch, frames,
		num_random, epoch_return, reason, bootstrap, epsilon, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), l.agentID.String(), epoch.Number, frames,
		epoch.NumRandom, ret, epoch.Reason, epoch.Bootstrap, epoch.Epsilon,
		epoch.Duration.Nanoseconds(),
	)
	if err != nil {
		return fmt.Errorf("track: %w", err)
	}
	return nil
}

// Rows returns the rows of the ledger in epoch order
func (l *Ledger) Rows() ([]LedgerRow, error) {
	rows, err := l.db.Query(`SELECT id, agent_id, epoch, frames, num_random,
		epoch_return, reason, bootstrap, epsilon, duration_ns
		FROM epochs ORDER BY epoch`)
	if err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	defer rows.Close()

	var out []LedgerRow
	for rows.Next() {
		var r LedgerRow
		err := rows.Scan(&r.ID, &r.AgentID, &r.Epoch, &r.Frames, &r.NumRandom,
			&r.Return, &r.Reason, &r.Bootstrap, &r.Epsilon, &r.Duration)
		if err != nil {
			return nil, fmt.Errorf("rows: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Save implements the tracker.Tracker interface
func (l *Ledger) Save() error {
	return l.db.Close()
}
