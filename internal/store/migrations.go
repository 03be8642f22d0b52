package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "signals: append-only signal events",
		SQL: `
CREATE TABLE signals (
    id              TEXT PRIMARY KEY,
    entity_type     TEXT NOT NULL CHECK (entity_type IN ('account', 'project', 'person', 'meeting')),
    entity_id       TEXT NOT NULL,
    signal_type     TEXT NOT NULL,
    source          TEXT NOT NULL,
    value           TEXT,
    confidence      REAL NOT NULL CHECK (confidence >= 0.0 AND confidence <= 1.0),
    half_life_days  INTEGER NOT NULL,
    source_context  TEXT,
    superseded_by   TEXT,
    created_at      INTEGER NOT NULL,

    FOREIGN KEY (superseded_by) REFERENCES signals(id)
);

CREATE INDEX idx_signals_entity  ON signals(entity_type, entity_id);
CREATE INDEX idx_signals_type    ON signals(signal_type);
CREATE INDEX idx_signals_created ON signals(created_at DESC);
`,
	},
	{
		Version:     2,
		Description: "source_weights: learned per-source reliability",
		SQL: `
CREATE TABLE source_weights (
    source       TEXT NOT NULL,
    entity_type  TEXT NOT NULL,
    signal_type  TEXT NOT NULL,
    alpha        REAL NOT NULL DEFAULT 1.0,
    beta         REAL NOT NULL DEFAULT 1.0,
    update_count INTEGER NOT NULL DEFAULT 0,
    updated_at   INTEGER NOT NULL,

    PRIMARY KEY (source, entity_type, signal_type)
);
`,
	},
	{
		Version:     3,
		Description: "callouts: synthesized briefing items",
		SQL: `
CREATE TABLE callouts (
    id          TEXT PRIMARY KEY,
    signal_id   TEXT NOT NULL UNIQUE,
    severity    TEXT NOT NULL CHECK (severity IN ('critical', 'warning', 'info')),
    headline    TEXT NOT NULL,
    detail      TEXT,
    entity_type TEXT NOT NULL,
    entity_id   TEXT NOT NULL,
    entity_name TEXT,
    relevance   REAL NOT NULL DEFAULT 0.0,
    created_at  INTEGER NOT NULL,

    FOREIGN KEY (signal_id) REFERENCES signals(id)
);

CREATE INDEX idx_callouts_created ON callouts(created_at DESC);
`,
	},
	{
		Version:     4,
		Description: "entities: accounts, people, projects, meetings and links",
		SQL: `
CREATE TABLE accounts (
    id           TEXT PRIMARY KEY,
    name         TEXT NOT NULL,
    renewal_date INTEGER,
    archived     INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE people (
    id            TEXT PRIMARY KEY,
    name          TEXT NOT NULL,
    email         TEXT,
    archived      INTEGER NOT NULL DEFAULT 0,
    first_seen_at INTEGER NOT NULL
);

CREATE TABLE projects (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    account_id TEXT,
    FOREIGN KEY (account_id) REFERENCES accounts(id)
);

CREATE TABLE meetings (
    id              TEXT PRIMARY KEY,
    title           TEXT NOT NULL,
    entity_type     TEXT,
    entity_id       TEXT,
    starts_at       INTEGER NOT NULL,
    archived        INTEGER NOT NULL DEFAULT 0,
    has_new_signals INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX idx_meetings_starts ON meetings(starts_at);
CREATE INDEX idx_meetings_entity ON meetings(entity_type, entity_id);

CREATE TABLE person_accounts (
    person_id  TEXT NOT NULL,
    account_id TEXT NOT NULL,
    role       TEXT NOT NULL DEFAULT 'contact',

    PRIMARY KEY (person_id, account_id),
    FOREIGN KEY (person_id) REFERENCES people(id),
    FOREIGN KEY (account_id) REFERENCES accounts(id)
);

CREATE TABLE meeting_attendees (
    meeting_id TEXT NOT NULL,
    person_id  TEXT NOT NULL,

    PRIMARY KEY (meeting_id, person_id),
    FOREIGN KEY (meeting_id) REFERENCES meetings(id),
    FOREIGN KEY (person_id) REFERENCES people(id)
);

CREATE TABLE account_events (
    id         TEXT PRIMARY KEY,
    account_id TEXT NOT NULL,
    kind       TEXT NOT NULL,
    due_at     INTEGER NOT NULL,

    FOREIGN KEY (account_id) REFERENCES accounts(id)
);

CREATE TABLE actions (
    id          TEXT PRIMARY KEY,
    entity_type TEXT NOT NULL,
    entity_id   TEXT NOT NULL,
    due_at      INTEGER NOT NULL,
    done        INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX idx_actions_entity ON actions(entity_type, entity_id);
`,
	},
	{
		Version:     5,
		Description: "emails: enriched email facts and bridge dedup marks",
		SQL: `
CREATE TABLE emails (
    id          TEXT PRIMARY KEY,
    sender      TEXT NOT NULL,
    sender_name TEXT,
    entity_type TEXT,
    entity_id   TEXT,
    sentiment   TEXT,
    urgency     TEXT,
    summary     TEXT,
    enriched_at INTEGER NOT NULL
);

CREATE INDEX idx_emails_enriched ON emails(enriched_at DESC);

CREATE TABLE email_marks (
    entity_type TEXT NOT NULL,
    entity_id   TEXT NOT NULL,
    email_id    TEXT NOT NULL,
    kind        TEXT NOT NULL,

    PRIMARY KEY (entity_type, entity_id, email_id, kind)
);
`,
	},
	{
		Version:     6,
		Description: "hygiene_audit: data-quality fixes triggered by signals",
		SQL: `
CREATE TABLE hygiene_audit (
    id         INTEGER PRIMARY KEY,
    signal_id  TEXT NOT NULL,
    rule       TEXT NOT NULL,
    outcome    TEXT NOT NULL,
    confidence REAL NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX idx_hygiene_signal ON hygiene_audit(signal_id);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
