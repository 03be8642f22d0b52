package store

import (
	"database/sql"
	"fmt"
)

// Email sentiment and urgency classifications, produced by the external
// enrichment pipeline and merely read here.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"

	UrgencyHigh   = "high"
	UrgencyNormal = "normal"
)

// Email holds the enriched facts for one processed email.
type Email struct {
	ID         string
	Sender     string
	SenderName string
	EntityType string
	EntityID   string
	Sentiment  string
	Urgency    string
	Summary    string
	EnrichedAt int64
}

// InsertEmail records an enriched email.
func (db *DB) InsertEmail(e *Email) error {
	_, err := db.Exec(`
		INSERT INTO emails (id, sender, sender_name, entity_type, entity_id,
			sentiment, urgency, summary, enriched_at)
		VALUES (?, ?, NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''),
			NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), ?)
	`, e.ID, e.Sender, e.SenderName, e.EntityType, e.EntityID,
		e.Sentiment, e.Urgency, e.Summary, e.EnrichedAt)
	if err != nil {
		return fmt.Errorf("insert email: %w", err)
	}
	return nil
}

// EmailsEnrichedSince returns emails enriched at or after since, newest first.
func (db *DB) EmailsEnrichedSince(since int64) ([]Email, error) {
	rows, err := db.Query(`
		SELECT id, sender, sender_name, entity_type, entity_id,
			sentiment, urgency, summary, enriched_at
		FROM emails WHERE enriched_at >= ?
		ORDER BY enriched_at DESC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("emails enriched since: %w", err)
	}
	defer rows.Close()

	var emails []Email
	for rows.Next() {
		var e Email
		var senderName, entityType, entityID, sentiment, urgency, summary sql.NullString
		if err := rows.Scan(&e.ID, &e.Sender, &senderName, &entityType, &entityID,
			&sentiment, &urgency, &summary, &e.EnrichedAt); err != nil {
			return nil, fmt.Errorf("scan email: %w", err)
		}
		e.SenderName = senderName.String
		e.EntityType = entityType.String
		e.EntityID = entityID.String
		e.Sentiment = sentiment.String
		e.Urgency = urgency.String
		e.Summary = summary.String
		emails = append(emails, e)
	}
	return emails, rows.Err()
}

// MarkEmail records that a signal of the given kind was derived from an email
// for an entity. Returns true when this is the first time; false means the
// same (entity, email, kind) was already processed.
func (db *DB) MarkEmail(entityType, entityID, emailID, kind string) (bool, error) {
	result, err := db.Exec(`
		INSERT INTO email_marks (entity_type, entity_id, email_id, kind)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(entity_type, entity_id, email_id, kind) DO NOTHING
	`, entityType, entityID, emailID, kind)
	if err != nil {
		return false, fmt.Errorf("mark email: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}
