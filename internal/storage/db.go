// Package storage persists catalog snapshots in SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/matmap/internal/catalog"
	"github.com/ppiankov/matmap/internal/model"
)

// ErrNoSnapshot is returned when the database holds no saved catalog
var ErrNoSnapshot = errors.New("no catalog snapshot saved")

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer; also keeps ":memory:" databases on a single connection
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS materials (
  seq INTEGER PRIMARY KEY,
  id TEXT NOT NULL UNIQUE,
  material_title TEXT NOT NULL,
  material_code TEXT NOT NULL,
  material_heading TEXT,
  eos_title TEXT NOT NULL,
  eos_code TEXT NOT NULL,
  thermal_title TEXT NOT NULL,
  thermal_code TEXT NOT NULL,
  applications TEXT NOT NULL,
  source_file TEXT NOT NULL,
  position INTEGER NOT NULL,
  record_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_materials_title ON materials(material_title);
CREATE INDEX IF NOT EXISTS idx_materials_eos ON materials(eos_title);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// SaveSnapshot replaces the stored catalog with snap in one transaction
func (d *DB) SaveSnapshot(ctx context.Context, snap *catalog.Snapshot) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM materials`); err != nil {
		return fmt.Errorf("clear materials: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO materials (
  seq, id, material_title, material_code, material_heading,
  eos_title, eos_code, thermal_title, thermal_code,
  applications, source_file, position, record_json
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range snap.Records {
		recordJSON, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode record %s: %w", rec.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			i, rec.ID, rec.MaterialTitle, rec.MaterialCode, rec.MaterialHeading,
			rec.EOSTitle, rec.EOSCode, rec.ThermalPropertyTitle, rec.ThermalPropertyCode,
			strings.Join(rec.Applications, ","), rec.Origin.File, rec.Origin.Position, string(recordJSON),
		); err != nil {
			return fmt.Errorf("insert record %s: %w", rec.ID, err)
		}
	}

	statsJSON, err := json.Marshal(snap.Stats)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	for key, value := range map[string]string{
		"loaded_at": snap.LoadedAt.UTC().Format(time.RFC3339Nano),
		"stats":     string(statsJSON),
	} {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, updatedAt=CURRENT_TIMESTAMP
`, key, value); err != nil {
			return fmt.Errorf("write metadata %s: %w", key, err)
		}
	}

	return tx.Commit()
}

// ListMaterials returns the stored records in catalog order
func (d *DB) ListMaterials(ctx context.Context) ([]*model.NormalizedRecord, error) {
	rows, err := d.conn.QueryContext(ctx, `SELECT record_json FROM materials ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query materials: %w", err)
	}
	defer rows.Close()

	var out []*model.NormalizedRecord
	for rows.Next() {
		var recordJSON string
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		var rec model.NormalizedRecord
		if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
			return nil, fmt.Errorf("decode material: %w", err)
		}
		out = append(out, &rec)
	}

	return out, rows.Err()
}

// CountByMaterialTitle returns how many stored records carry each material title
func (d *DB) CountByMaterialTitle(ctx context.Context) (map[string]int, error) {
	rows, err := d.conn.QueryContext(ctx, `SELECT material_title, COUNT(*) FROM materials GROUP BY material_title`)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var title string
		var n int
		if err := rows.Scan(&title, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[title] = n
	}
	return counts, rows.Err()
}

// LoadedAt returns when the stored snapshot was loaded, or the zero time if
// nothing has been saved
func (d *DB) LoadedAt(ctx context.Context) (time.Time, error) {
	value, ok, err := d.metadata(ctx, "loaded_at")
	if err != nil || !ok {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse loaded_at: %w", err)
	}
	return t, nil
}

// LoadSnapshot rebuilds the stored catalog with its index, stats and load
// time. It returns ErrNoSnapshot when nothing has been saved.
func (d *DB) LoadSnapshot(ctx context.Context) (*catalog.Snapshot, error) {
	loadedAt, err := d.LoadedAt(ctx)
	if err != nil {
		return nil, err
	}
	if loadedAt.IsZero() {
		return nil, ErrNoSnapshot
	}

	records, err := d.ListMaterials(ctx)
	if err != nil {
		return nil, err
	}

	var stats catalog.LoadStats
	if value, ok, err := d.metadata(ctx, "stats"); err != nil {
		return nil, err
	} else if ok {
		if err := json.Unmarshal([]byte(value), &stats); err != nil {
			return nil, fmt.Errorf("decode stats: %w", err)
		}
	}

	snap := catalog.NewSnapshot(records, stats)
	snap.LoadedAt = loadedAt
	return snap, nil
}

func (d *DB) metadata(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := d.conn.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}
	return value, true, nil
}
