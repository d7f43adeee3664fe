package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	corereport "github.com/kilianp07/evrptw/core/report"
)

// SQLiteConfig configures the SQLite sink.
type SQLiteConfig struct {
	Path string `json:"path"`
}

// SQLiteSink persists records to the solve_results table.
type SQLiteSink struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLiteSink opens or creates the database at path and ensures schema.
func NewSQLiteSink(cfg SQLiteConfig) (*SQLiteSink, error) {
	if cfg.Path == "" {
		cfg.Path = "results.db"
	}
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS solve_results (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        run_id TEXT,
        ts INTEGER,
        instance TEXT,
        formulation TEXT,
        status TEXT,
        vehicles_used INTEGER,
        obj REAL,
        total_route_time REAL,
        qtd_recharge REAL,
        runtime_s REAL,
        mip_gap REAL,
        record TEXT
    );`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteSink{db: db}, nil
}

// Write inserts rec. Undefined objective and gap are stored as NULL.
func (s *SQLiteSink) Write(ctx context.Context, rec corereport.Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO solve_results (run_id, ts, instance, formulation, status, vehicles_used, obj,
            total_route_time, qtd_recharge, runtime_s, mip_gap, record)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Time.Unix(), rec.Instance, rec.Formulation, rec.Status, rec.VehiclesUsed,
		nullable(rec.Objective), rec.TotalRouteTime, rec.Recharge, rec.Runtime.Seconds(),
		nullable(rec.MIPGap), string(b))
	return err
}

// Query returns the records of a run in insertion order; an empty runID
// returns every record.
func (s *SQLiteSink) Query(ctx context.Context, runID string) ([]corereport.Record, error) {
	query := `SELECT record FROM solve_results`
	var args []any
	if runID != "" {
		query += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	query += ` ORDER BY id`
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []corereport.Record
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var r corereport.Record
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

// Close closes the underlying database.
func (s *SQLiteSink) Close() error { return s.db.Close() }
