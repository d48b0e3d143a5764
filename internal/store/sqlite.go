package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kimera-swm/go-core/internal/scar"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS scars (
	scar_id            TEXT PRIMARY KEY,
	vault_id           TEXT NOT NULL,
	geoids             TEXT NOT NULL,
	reason             TEXT,
	timestamp          TEXT NOT NULL,
	resolved_by        TEXT,
	pre_entropy        REAL NOT NULL DEFAULT 0,
	post_entropy       REAL NOT NULL DEFAULT 0,
	delta_entropy      REAL NOT NULL DEFAULT 0,
	cls_angle          REAL NOT NULL DEFAULT 0,
	semantic_polarity  REAL NOT NULL DEFAULT 0,
	mutation_frequency REAL NOT NULL DEFAULT 0,
	initial_weight     REAL NOT NULL DEFAULT 1,
	weight             REAL NOT NULL DEFAULT 1,
	quarantined        INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_scars_vault ON scars(vault_id);
`

// #endregion schema

// #region store-struct
// SQLiteStore persists scars in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewSQLiteStore opens a SQLite database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region save
// Save inserts a new scar row.
func (s *SQLiteStore) Save(rec *scar.ScarRecord) error {
	geoidsJSON, err := json.Marshal(rec.Geoids)
	if err != nil {
		return fmt.Errorf("marshal geoids: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO scars
		 (scar_id, vault_id, geoids, reason, timestamp, resolved_by,
		  pre_entropy, post_entropy, delta_entropy, cls_angle,
		  semantic_polarity, mutation_frequency, initial_weight, weight, quarantined)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ScarID, string(rec.VaultID), string(geoidsJSON),
		nullIfEmpty(rec.Reason),
		rec.Timestamp.Format(time.RFC3339Nano),
		nullIfEmpty(rec.ResolvedBy),
		rec.PreEntropy, rec.PostEntropy, rec.DeltaEntropy, rec.CLSAngle,
		rec.SemanticPolarity, rec.MutationFrequency,
		rec.InitialWeight, rec.Weight, boolToInt(rec.Quarantined),
	)
	if err != nil {
		return fmt.Errorf("insert scar %s: %w", rec.ScarID, err)
	}
	return nil
}

// #endregion save

// #region update
// Update rewrites the mutable fields of an existing scar row.
func (s *SQLiteStore) Update(rec *scar.ScarRecord) error {
	res, err := s.db.Exec(
		`UPDATE scars SET vault_id = ?, resolved_by = ?, weight = ?, quarantined = ?
		 WHERE scar_id = ?`,
		string(rec.VaultID), nullIfEmpty(rec.ResolvedBy), rec.Weight,
		boolToInt(rec.Quarantined), rec.ScarID,
	)
	if err != nil {
		return fmt.Errorf("update scar %s: %w", rec.ScarID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update scar %s: %w", rec.ScarID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// #endregion update

// #region delete
// Delete removes a scar row. Deleting a missing scar is not an error.
func (s *SQLiteStore) Delete(scarID string) error {
	if _, err := s.db.Exec(`DELETE FROM scars WHERE scar_id = ?`, scarID); err != nil {
		return fmt.Errorf("delete scar %s: %w", scarID, err)
	}
	return nil
}

// #endregion delete

// #region query
// QueryByVault returns a vault's scars ordered by timestamp then ID.
// limit <= 0 means no limit. Rows with unparsable timestamps are skipped
// with a log line rather than failing the query.
func (s *SQLiteStore) QueryByVault(vaultID scar.VaultID, limit int) ([]*scar.ScarRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(
		`SELECT scar_id, vault_id, geoids, reason, timestamp, resolved_by,
		        pre_entropy, post_entropy, delta_entropy, cls_angle,
		        semantic_polarity, mutation_frequency, initial_weight, weight, quarantined
		 FROM scars WHERE vault_id = ? ORDER BY timestamp, scar_id LIMIT ?`,
		string(vaultID), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query vault %s: %w", vaultID, err)
	}
	defer rows.Close()

	var records []*scar.ScarRecord
	for rows.Next() {
		rec, err := scanScar(rows)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			continue // bad timestamp, already logged
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion query

// #region aggregate
// Aggregate returns the count and total weight for one vault.
func (s *SQLiteStore) Aggregate(vaultID scar.VaultID) (VaultAggregate, error) {
	var agg VaultAggregate
	err := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(weight), 0) FROM scars WHERE vault_id = ?`,
		string(vaultID),
	).Scan(&agg.Count, &agg.TotalWeight)
	if err != nil {
		return VaultAggregate{}, fmt.Errorf("aggregate vault %s: %w", vaultID, err)
	}
	return agg, nil
}

// #endregion aggregate

// #region reassign
// UpdateVaultAssignment moves a scar's stored vault assignment.
func (s *SQLiteStore) UpdateVaultAssignment(scarID string, vaultID scar.VaultID) error {
	res, err := s.db.Exec(
		`UPDATE scars SET vault_id = ? WHERE scar_id = ?`, string(vaultID), scarID,
	)
	if err != nil {
		return fmt.Errorf("reassign scar %s: %w", scarID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reassign scar %s: %w", scarID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// #endregion reassign

// #region scan
func scanScar(rows *sql.Rows) (*scar.ScarRecord, error) {
	var rec scar.ScarRecord
	var vaultID, geoidsJSON, timestampStr string
	var reason, resolvedBy sql.NullString
	var quarantined int

	err := rows.Scan(
		&rec.ScarID, &vaultID, &geoidsJSON, &reason, &timestampStr, &resolvedBy,
		&rec.PreEntropy, &rec.PostEntropy, &rec.DeltaEntropy, &rec.CLSAngle,
		&rec.SemanticPolarity, &rec.MutationFrequency,
		&rec.InitialWeight, &rec.Weight, &quarantined,
	)
	if err != nil {
		return nil, fmt.Errorf("scan scar: %w", err)
	}

	rec.VaultID = scar.VaultID(vaultID)
	if reason.Valid {
		rec.Reason = reason.String
	}
	if resolvedBy.Valid {
		rec.ResolvedBy = resolvedBy.String
	}
	rec.Quarantined = quarantined != 0

	if err := json.Unmarshal([]byte(geoidsJSON), &rec.Geoids); err != nil {
		return nil, fmt.Errorf("unmarshal geoids for %s: %w", rec.ScarID, err)
	}

	ts, err := time.Parse(time.RFC3339Nano, timestampStr)
	if err != nil {
		log.Printf("[STORE] skipping scar %s: bad timestamp %q: %v", rec.ScarID, timestampStr, err)
		return nil, nil
	}
	rec.Timestamp = ts

	return &rec, nil
}

// #endregion scan

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion helpers
