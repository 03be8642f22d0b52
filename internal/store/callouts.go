package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Callout severities.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// Callout is one synthesized, human-readable briefing item. Immutable once
// written; keyed by the originating signal so re-synthesis is a no-op.
type Callout struct {
	ID         string
	SignalID   string
	Severity   string
	Headline   string
	Detail     string
	EntityType string
	EntityID   string
	EntityName string
	Relevance  float64
	CreatedAt  int64
}

// InsertCalloutIfAbsent persists a callout unless one already exists for its
// source signal. Returns true when a new row was written.
func (db *DB) InsertCalloutIfAbsent(c *Callout) (bool, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UnixMilli()

	result, err := db.Exec(`
		INSERT INTO callouts (id, signal_id, severity, headline, detail,
			entity_type, entity_id, entity_name, relevance, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(signal_id) DO NOTHING
	`, c.ID, c.SignalID, c.Severity, c.Headline, c.Detail,
		c.EntityType, c.EntityID, c.EntityName, c.Relevance, now)
	if err != nil {
		return false, fmt.Errorf("insert callout: %w", err)
	}

	n, _ := result.RowsAffected()
	if n > 0 {
		c.CreatedAt = now
	}
	return n > 0, nil
}

// GetCalloutBySignal returns the callout for a signal, or nil if none exists.
func (db *DB) GetCalloutBySignal(signalID string) (*Callout, error) {
	row := db.QueryRow(`
		SELECT id, signal_id, severity, headline, detail,
			entity_type, entity_id, entity_name, relevance, created_at
		FROM callouts WHERE signal_id = ?
	`, signalID)

	var c Callout
	var detail, entityName sql.NullString
	err := row.Scan(&c.ID, &c.SignalID, &c.Severity, &c.Headline, &detail,
		&c.EntityType, &c.EntityID, &entityName, &c.Relevance, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get callout: %w", err)
	}
	c.Detail = detail.String
	c.EntityName = entityName.String
	return &c, nil
}

// RecentCallouts returns callouts created at or after since, newest first.
func (db *DB) RecentCallouts(since int64) ([]Callout, error) {
	rows, err := db.Query(`
		SELECT id, signal_id, severity, headline, detail,
			entity_type, entity_id, entity_name, relevance, created_at
		FROM callouts WHERE created_at >= ?
		ORDER BY created_at DESC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("recent callouts: %w", err)
	}
	defer rows.Close()

	var callouts []Callout
	for rows.Next() {
		var c Callout
		var detail, entityName sql.NullString
		if err := rows.Scan(&c.ID, &c.SignalID, &c.Severity, &c.Headline, &detail,
			&c.EntityType, &c.EntityID, &entityName, &c.Relevance, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan callout: %w", err)
		}
		c.Detail = detail.String
		c.EntityName = entityName.String
		callouts = append(callouts, c)
	}
	return callouts, rows.Err()
}

// CountCallouts returns the total number of stored callouts.
func (db *DB) CountCallouts() (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM callouts").Scan(&count)
	return count, err
}
