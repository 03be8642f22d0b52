package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entity types a signal can attach to.
const (
	EntityAccount = "account"
	EntityProject = "project"
	EntityPerson  = "person"
	EntityMeeting = "meeting"
)

// ErrBadConfidence is returned when a signal is emitted with a confidence
// outside [0,1]. Emission is rejected, never clamped.
var ErrBadConfidence = errors.New("confidence must be in [0,1]")

// ErrEmptySource is returned when a signal is emitted without a source.
var ErrEmptySource = errors.New("signal source required")

// SignalEvent is one timestamped, confidence-scored fact about an entity.
// Rows are append-only; superseded_by is the only mutable column.
type SignalEvent struct {
	ID            string
	EntityType    string
	EntityID      string
	SignalType    string
	Source        string
	Value         string // optional JSON payload
	Confidence    float64
	HalfLifeDays  int
	SourceContext string
	SupersededBy  string
	CreatedAt     int64
}

// InsertSignal persists a new signal event and assigns its id and timestamp.
func (db *DB) InsertSignal(sig *SignalEvent) error {
	if strings.TrimSpace(sig.Source) == "" {
		return ErrEmptySource
	}
	if sig.Confidence < 0 || sig.Confidence > 1 {
		return fmt.Errorf("%w: %f", ErrBadConfidence, sig.Confidence)
	}

	if sig.ID == "" {
		sig.ID = uuid.NewString()
	}
	now := time.Now().UnixMilli()

	_, err := db.Exec(`
		INSERT INTO signals (id, entity_type, entity_id, signal_type, source, value,
			confidence, half_life_days, source_context, superseded_by, created_at)
		VALUES (?, ?, ?, ?, ?, NULLIF(?, ''), ?, ?, NULLIF(?, ''), NULL, ?)
	`, sig.ID, sig.EntityType, sig.EntityID, sig.SignalType, sig.Source, sig.Value,
		sig.Confidence, sig.HalfLifeDays, sig.SourceContext, now)
	if err != nil {
		return fmt.Errorf("insert signal: %w", err)
	}
	sig.CreatedAt = now
	return nil
}

// SupersedeSignal marks oldID as replaced by newID. Idempotent: superseding
// an already-superseded row is accepted and overwrites the pointer.
func (db *DB) SupersedeSignal(oldID, newID string) error {
	_, err := db.Exec(`UPDATE signals SET superseded_by = ? WHERE id = ?`, newID, oldID)
	if err != nil {
		return fmt.Errorf("supersede signal %s: %w", oldID, err)
	}
	return nil
}

// GetSignal returns a signal by id, or nil if not found.
func (db *DB) GetSignal(id string) (*SignalEvent, error) {
	row := db.QueryRow(`
		SELECT id, entity_type, entity_id, signal_type, source, value,
			confidence, half_life_days, source_context, superseded_by, created_at
		FROM signals WHERE id = ?
	`, id)

	sig, err := scanSignal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get signal: %w", err)
	}
	return sig, nil
}

// ActiveSignals returns non-superseded signals for an entity, newest first.
func (db *DB) ActiveSignals(entityType, entityID string) ([]SignalEvent, error) {
	rows, err := db.Query(`
		SELECT id, entity_type, entity_id, signal_type, source, value,
			confidence, half_life_days, source_context, superseded_by, created_at
		FROM signals
		WHERE entity_type = ? AND entity_id = ? AND superseded_by IS NULL
		ORDER BY created_at DESC
	`, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("active signals: %w", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

// ActiveSignalsByType returns non-superseded signals of one type for an
// entity, newest first.
func (db *DB) ActiveSignalsByType(entityType, entityID, signalType string) ([]SignalEvent, error) {
	rows, err := db.Query(`
		SELECT id, entity_type, entity_id, signal_type, source, value,
			confidence, half_life_days, source_context, superseded_by, created_at
		FROM signals
		WHERE entity_type = ? AND entity_id = ? AND signal_type = ? AND superseded_by IS NULL
		ORDER BY created_at DESC
	`, entityType, entityID, signalType)
	if err != nil {
		return nil, fmt.Errorf("active signals by type: %w", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

// RecentActiveSignalsByTypes returns non-superseded signals of any of the
// given types created at or after since, newest first. Used by callout
// synthesis and the email-meeting bridge.
func (db *DB) RecentActiveSignalsByTypes(types []string, since int64) ([]SignalEvent, error) {
	if len(types) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(types))
	args := make([]any, 0, len(types)+1)
	for i, t := range types {
		placeholders[i] = "?"
		args = append(args, t)
	}
	args = append(args, since)

	query := fmt.Sprintf(`
		SELECT id, entity_type, entity_id, signal_type, source, value,
			confidence, half_life_days, source_context, superseded_by, created_at
		FROM signals
		WHERE signal_type IN (%s) AND created_at >= ? AND superseded_by IS NULL
		ORDER BY created_at DESC
	`, strings.Join(placeholders, ","))

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("recent signals by types: %w", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

// RecentSignalsBySource returns non-superseded signals from one source
// created at or after since, newest first.
func (db *DB) RecentSignalsBySource(source string, since int64) ([]SignalEvent, error) {
	rows, err := db.Query(`
		SELECT id, entity_type, entity_id, signal_type, source, value,
			confidence, half_life_days, source_context, superseded_by, created_at
		FROM signals
		WHERE source = ? AND created_at >= ? AND superseded_by IS NULL
		ORDER BY created_at DESC
	`, source, since)
	if err != nil {
		return nil, fmt.Errorf("recent signals by source: %w", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSignal(row rowScanner) (*SignalEvent, error) {
	var s SignalEvent
	var value, sourceContext, supersededBy sql.NullString
	if err := row.Scan(&s.ID, &s.EntityType, &s.EntityID, &s.SignalType, &s.Source,
		&value, &s.Confidence, &s.HalfLifeDays, &sourceContext, &supersededBy, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.Value = value.String
	s.SourceContext = sourceContext.String
	s.SupersededBy = supersededBy.String
	return &s, nil
}

func scanSignals(rows *sql.Rows) ([]SignalEvent, error) {
	var signals []SignalEvent
	for rows.Next() {
		s, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		signals = append(signals, *s)
	}
	return signals, rows.Err()
}
