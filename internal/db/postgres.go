package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"osvscan/internal/osv"

	_ "github.com/lib/pq"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store and applies migrations.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) migrate() error {
	query := `CREATE TABLE IF NOT EXISTS scans (
		id SERIAL PRIMARY KEY,
		server_url TEXT NOT NULL,
		report JSONB NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`
	_, err := s.db.Exec(query)
	return err
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// SaveScan records one scan result.
func (s *PostgresStore) SaveScan(serverURL string, report osv.Report) error {
	blob, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	query := `INSERT INTO scans (server_url, report, created_at) VALUES ($1, $2, $3)`
	_, err = s.db.Exec(query, serverURL, string(blob), time.Now().UTC())
	return err
}

// History retrieves the most recent scan records.
func (s *PostgresStore) History(limit int) ([]ScanRecord, error) {
	query := `SELECT id, server_url, report, created_at FROM scans ORDER BY id DESC LIMIT $1`
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ScanRecord
	for rows.Next() {
		var rec ScanRecord
		var blob string
		if err := rows.Scan(&rec.ID, &rec.ServerURL, &blob, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(blob), &rec.Report); err != nil {
			return nil, fmt.Errorf("failed to decode report %d: %w", rec.ID, err)
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}
