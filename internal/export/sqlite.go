package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pfrederiksen/speedhive-tools/internal/record"
	"github.com/pfrederiksen/speedhive-tools/internal/snapshot"
)

// SQLiteStore keeps accepted records in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating directory for %s: %w", path, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS records (
            id TEXT PRIMARY KEY,
            event_id INTEGER,
            event_name TEXT,
            session_id INTEGER,
            session_name TEXT,
            classification TEXT,
            lap_time TEXT,
            lap_time_seconds REAL,
            driver TEXT,
            marque TEXT,
            record_date TEXT,
            track_name TEXT,
            announced_at TEXT,
            record_json TEXT,
            updated_at TIMESTAMP
        );`,
		`CREATE INDEX IF NOT EXISTS idx_records_class ON records(track_name, classification);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrating records schema: %w", err)
		}
	}
	return nil
}

// SaveRecords upserts records keyed on their record ID.
func (s *SQLiteStore) SaveRecords(ctx context.Context, records []record.Candidate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records(id, event_id, event_name, session_id, session_name, classification,
            lap_time, lap_time_seconds, driver, marque, record_date, track_name, announced_at, record_json, updated_at)
        VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET event_name=excluded.event_name, session_name=excluded.session_name,
            classification=excluded.classification, lap_time=excluded.lap_time, lap_time_seconds=excluded.lap_time_seconds,
            driver=excluded.driver, marque=excluded.marque, record_date=excluded.record_date, track_name=excluded.track_name,
            record_json=excluded.record_json, updated_at=excluded.updated_at`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, c := range records {
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("encoding record: %w", err)
		}
		_, err = stmt.ExecContext(ctx,
			snapshot.IDOf(c), c.Metadata.EventID, c.Metadata.EventName, c.Metadata.SessionID, c.Metadata.SessionName,
			c.ClassAbbreviation, c.LapTime, c.LapTimeSeconds, c.DriverName, c.Marque(), c.DateString(), c.Track(),
			c.Timestamp, string(data), now)
		if err != nil {
			return fmt.Errorf("saving record: %w", err)
		}
	}
	return tx.Commit()
}

// Records returns stored records ordered by track, class and lap time. An
// empty class returns every class.
func (s *SQLiteStore) Records(ctx context.Context, class string) ([]record.Candidate, error) {
	query := `SELECT record_json FROM records`
	var args []interface{}
	if class != "" {
		query += ` WHERE classification = ? COLLATE NOCASE`
		args = append(args, class)
	}
	query += ` ORDER BY track_name, classification, lap_time_seconds, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []record.Candidate
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var c record.Candidate
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			return nil, fmt.Errorf("decoding stored record: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Count returns the number of stored records.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n)
	return n, err
}
