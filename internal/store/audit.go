package store

import (
	"fmt"
	"time"
)

// HygieneAudit records one data-quality fix run in reaction to a signal.
type HygieneAudit struct {
	ID         int64
	SignalID   string
	Rule       string
	Outcome    string
	Confidence float64
	CreatedAt  int64
}

// AddHygieneAudit appends an audit row for a hygiene trigger run.
func (db *DB) AddHygieneAudit(signalID, rule, outcome string, confidence float64) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO hygiene_audit (signal_id, rule, outcome, confidence, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, signalID, rule, outcome, confidence, now)
	if err != nil {
		return fmt.Errorf("add hygiene audit: %w", err)
	}
	return nil
}

// HygieneAuditsForSignal returns audit rows for a signal, oldest first.
func (db *DB) HygieneAuditsForSignal(signalID string) ([]HygieneAudit, error) {
	rows, err := db.Query(`
		SELECT id, signal_id, rule, outcome, confidence, created_at
		FROM hygiene_audit WHERE signal_id = ? ORDER BY created_at
	`, signalID)
	if err != nil {
		return nil, fmt.Errorf("hygiene audits: %w", err)
	}
	defer rows.Close()

	var audits []HygieneAudit
	for rows.Next() {
		var a HygieneAudit
		if err := rows.Scan(&a.ID, &a.SignalID, &a.Rule, &a.Outcome, &a.Confidence, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan hygiene audit: %w", err)
		}
		audits = append(audits, a)
	}
	return audits, rows.Err()
}
