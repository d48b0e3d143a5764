package logging

import (
	"database/sql"
	"fmt"
	"time"
)

const schema = `
CREATE TABLE IF NOT EXISTS decision_log (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	geoid_a        TEXT NOT NULL,
	geoid_b        TEXT NOT NULL,
	tension_score  REAL NOT NULL,
	gradient_type  TEXT NOT NULL,
	pulse_strength REAL NOT NULL,
	decision       TEXT NOT NULL,
	scar_id        TEXT,
	reason         TEXT,
	created_at     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decision_log_created
	ON decision_log(created_at);
`

// #region schema
// EnsureSchema creates the decision_log table if it does not exist.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrate decision_log: %w", err)
	}
	return nil
}

// #endregion schema

// #region log-decision
// LogDecision appends one entry to the decision_log table.
func LogDecision(db *sql.DB, entry DecisionEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO decision_log (geoid_a, geoid_b, tension_score, gradient_type, pulse_strength, decision, scar_id, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.GeoidA,
		entry.GeoidB,
		entry.TensionScore,
		entry.GradientType,
		entry.PulseStrength,
		entry.Decision,
		nullIfEmpty(entry.ScarID),
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// #endregion log-decision

// #region recent
// RecentDecisions returns the newest entries, most recent first.
func RecentDecisions(db *sql.DB, limit int) ([]DecisionEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(
		`SELECT geoid_a, geoid_b, tension_score, gradient_type, pulse_strength, decision, scar_id, reason, created_at
		 FROM decision_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var entries []DecisionEntry
	for rows.Next() {
		var e DecisionEntry
		var scarID, reason sql.NullString
		var createdAt string
		if err := rows.Scan(&e.GeoidA, &e.GeoidB, &e.TensionScore, &e.GradientType,
			&e.PulseStrength, &e.Decision, &scarID, &reason, &createdAt); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		e.ScarID = scarID.String
		e.Reason = reason.String
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			e.CreatedAt = ts
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// #endregion recent

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
