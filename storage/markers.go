package storage

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// Markers is the durable key-value store behind the quick-action in-progress
// markers. It survives a process restart, which is what lets a relaunched
// client reject a duplicate submission of an action that is still in flight.
//
// The default backend is an SQLite file in the data directory; deployments
// that share markers between machines can point it at MySQL instead via a
// driver/DSN pair.
type Markers struct {
	db     *sql.DB
	driver string
}

// OpenMarkers opens (creating if needed) the SQLite marker store in dataDir.
func OpenMarkers(dataDir string) (*Markers, error) {
	return OpenMarkersDSN("sqlite", filepath.Join(dataDir, "markers.db"))
}

// OpenMarkersDSN opens a marker store on an explicit driver ("sqlite" or
// "mysql") and DSN.
func OpenMarkersDSN(driver, dsn string) (*Markers, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open marker database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping marker database: %w", err)
	}

	m := &Markers{db: db, driver: driver}
	if err := m.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize marker database: %w", err)
	}
	return m, nil
}

func (m *Markers) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS markers (
		marker_key VARCHAR(191) PRIMARY KEY,
		marker_value TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`
	_, err := m.db.Exec(schema)
	return err
}

// Get returns the value stored under key and whether the key exists.
func (m *Markers) Get(key string) (string, bool, error) {
	var value string
	err := m.db.QueryRow(`SELECT marker_value FROM markers WHERE marker_key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set stores value under key, overwriting any prior value.
func (m *Markers) Set(key, value string) error {
	var query string
	switch m.driver {
	case "mysql":
		query = `INSERT INTO markers (marker_key, marker_value, updated_at) VALUES (?, ?, ?)
			ON DUPLICATE KEY UPDATE marker_value = VALUES(marker_value), updated_at = VALUES(updated_at)`
	default:
		query = `INSERT OR REPLACE INTO markers (marker_key, marker_value, updated_at) VALUES (?, ?, ?)`
	}
	_, err := m.db.Exec(query, key, value, time.Now().UTC())
	return err
}

// Remove deletes key. Removing a missing key is not an error.
func (m *Markers) Remove(key string) error {
	_, err := m.db.Exec(`DELETE FROM markers WHERE marker_key = ?`, key)
	return err
}

// List returns all stored markers, for diagnostics.
func (m *Markers) List() (map[string]string, error) {
	rows, err := m.db.Query(`SELECT marker_key, marker_value FROM markers`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

func (m *Markers) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
