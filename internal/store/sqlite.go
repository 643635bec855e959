package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kitsunelab/atsume/internal/models"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db       *sql.DB
	onChange string
	existed  bool
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath, onChange string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	_, statErr := os.Stat(dbPath)
	existed := statErr == nil

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db, onChange: onChange, existed: existed}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS fingerprints (
		filename TEXT PRIMARY KEY,
		fingerprint TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS index_entries (
		unique_id TEXT PRIMARY KEY,
		chunk_id TEXT NOT NULL,
		source TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		ordinal INTEGER NOT NULL,
		content TEXT NOT NULL,
		embedding BLOB,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_entries_source ON index_entries(source);
	CREATE INDEX IF NOT EXISTS idx_entries_source_ordinal ON index_entries(source, ordinal);
	`
	_, err := db.Exec(schema)
	return err
}

// Exists reports whether the database file was present before this open.
func (s *SQLiteStore) Exists() bool {
	return s.existed
}

// LoadFingerprints returns the persisted filename -> fingerprint table.
func (s *SQLiteStore) LoadFingerprints(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT filename, fingerprint FROM fingerprints`)
	if err != nil {
		return nil, fmt.Errorf("load fingerprints: %w", err)
	}
	defer rows.Close()

	known := make(map[string]string)
	for rows.Next() {
		var name, fp string
		if err := rows.Scan(&name, &fp); err != nil {
			return nil, err
		}
		known[name] = fp
	}
	return known, rows.Err()
}

// MergeBatch writes all entries and the fingerprint delta in one transaction.
// Under the replace policy, each merged file's previous chunk set is deleted
// in the same transaction.
func (s *SQLiteStore) MergeBatch(ctx context.Context, entries []models.IndexEntry, fingerprints map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if s.onChange == OnChangeReplace {
		seen := make(map[string]bool)
		for _, e := range entries {
			if seen[e.Meta.Source] {
				continue
			}
			seen[e.Meta.Source] = true
			if _, err := tx.ExecContext(ctx, `DELETE FROM index_entries WHERE source = ?`, e.Meta.Source); err != nil {
				return fmt.Errorf("replace previous chunks for %s: %w", e.Meta.Source, err)
			}
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO index_entries (unique_id, chunk_id, source, fingerprint, ordinal, content, embedding)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx,
			e.Meta.UniqueID, e.Meta.ChunkID, e.Meta.Source, e.Meta.Fingerprint,
			e.Meta.Ordinal, e.Text, encodeVector(e.Embedding),
		); err != nil {
			return fmt.Errorf("insert entry %s: %w", e.Meta.ChunkID, err)
		}
	}

	for name, fp := range fingerprints {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO fingerprints (filename, fingerprint) VALUES (?, ?)
			 ON CONFLICT(filename) DO UPDATE SET fingerprint = excluded.fingerprint, updated_at = CURRENT_TIMESTAMP`,
			name, fp,
		); err != nil {
			return fmt.Errorf("update fingerprint for %s: %w", name, err)
		}
	}
	return tx.Commit()
}

// PruneMissing removes entries and fingerprint records for files absent from
// present, returning the number of entries removed.
func (s *SQLiteStore) PruneMissing(ctx context.Context, present map[string]bool) (int, error) {
	known, err := s.LoadFingerprints(ctx)
	if err != nil {
		return 0, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	pruned := 0
	for name := range known {
		if present[name] {
			continue
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM index_entries WHERE source = ?`, name)
		if err != nil {
			return 0, fmt.Errorf("prune entries for %s: %w", name, err)
		}
		n, _ := res.RowsAffected()
		pruned += int(n)
		if _, err := tx.ExecContext(ctx, `DELETE FROM fingerprints WHERE filename = ?`, name); err != nil {
			return 0, fmt.Errorf("prune fingerprint for %s: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return pruned, nil
}

// Stats returns the number of tracked files and persisted entries.
func (s *SQLiteStore) Stats(ctx context.Context) (models.StoreStats, error) {
	var stats models.StoreStats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fingerprints`).Scan(&stats.Files); err != nil {
		return stats, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM index_entries`).Scan(&stats.Entries); err != nil {
		return stats, err
	}
	return stats, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// encodeVector packs a float32 vector into a little-endian blob.
func encodeVector(vec []float32) []byte {
	if vec == nil {
		return nil
	}
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeVector unpacks a little-endian blob into a float32 vector.
func decodeVector(buf []byte) []float32 {
	if len(buf) == 0 {
		return nil
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}
