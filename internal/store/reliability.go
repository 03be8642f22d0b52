package store

import (
	"database/sql"
	"fmt"
	"time"
)

// SourceWeight holds the learned Beta-distribution parameters for one
// (source, entityType, signalType) triple.
type SourceWeight struct {
	Source      string
	EntityType  string
	SignalType  string
	Alpha       float64
	Beta        float64
	UpdateCount int
	UpdatedAt   int64
}

// GetSourceWeight returns the reliability row for a triple, or nil if none
// has been recorded yet.
func (db *DB) GetSourceWeight(source, entityType, signalType string) (*SourceWeight, error) {
	var w SourceWeight
	err := db.QueryRow(`
		SELECT source, entity_type, signal_type, alpha, beta, update_count, updated_at
		FROM source_weights
		WHERE source = ? AND entity_type = ? AND signal_type = ?
	`, source, entityType, signalType).Scan(
		&w.Source, &w.EntityType, &w.SignalType, &w.Alpha, &w.Beta, &w.UpdateCount, &w.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get source weight: %w", err)
	}
	return &w, nil
}

// PutSourceWeight inserts or replaces the reliability row for a triple.
func (db *DB) PutSourceWeight(w *SourceWeight) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO source_weights (source, entity_type, signal_type, alpha, beta, update_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source, entity_type, signal_type) DO UPDATE SET
			alpha = ?, beta = ?, update_count = ?, updated_at = ?
	`, w.Source, w.EntityType, w.SignalType, w.Alpha, w.Beta, w.UpdateCount, now,
		w.Alpha, w.Beta, w.UpdateCount, now)
	if err != nil {
		return fmt.Errorf("put source weight: %w", err)
	}
	w.UpdatedAt = now
	return nil
}
