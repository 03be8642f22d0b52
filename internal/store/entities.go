package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Account is a business relationship under management.
type Account struct {
	ID          string
	Name        string
	RenewalDate *int64
	Archived    bool
}

// Person is a human contact, usually attached to one or more accounts.
type Person struct {
	ID          string
	Name        string
	Email       string
	Archived    bool
	FirstSeenAt int64
}

// Project is a workstream under an account.
type Project struct {
	ID        string
	Name      string
	AccountID string
}

// Meeting is a calendar event, optionally linked to an entity.
type Meeting struct {
	ID            string
	Title         string
	EntityType    string
	EntityID      string
	StartsAt      int64
	Archived      bool
	HasNewSignals bool
}

// CreateAccount inserts an account.
func (db *DB) CreateAccount(a *Account) error {
	_, err := db.Exec(`
		INSERT INTO accounts (id, name, renewal_date, archived)
		VALUES (?, ?, ?, ?)
	`, a.ID, a.Name, a.RenewalDate, boolToInt(a.Archived))
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// GetAccount returns an account by id, or nil if not found.
func (db *DB) GetAccount(id string) (*Account, error) {
	var a Account
	var renewal sql.NullInt64
	var archived int
	err := db.QueryRow(`
		SELECT id, name, renewal_date, archived FROM accounts WHERE id = ?
	`, id).Scan(&a.ID, &a.Name, &renewal, &archived)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if renewal.Valid {
		a.RenewalDate = &renewal.Int64
	}
	a.Archived = archived != 0
	return &a, nil
}

// CreatePerson inserts a person. FirstSeenAt defaults to now if unset.
func (db *DB) CreatePerson(p *Person) error {
	if p.FirstSeenAt == 0 {
		p.FirstSeenAt = time.Now().UnixMilli()
	}
	_, err := db.Exec(`
		INSERT INTO people (id, name, email, archived, first_seen_at)
		VALUES (?, ?, NULLIF(?, ''), ?, ?)
	`, p.ID, p.Name, p.Email, boolToInt(p.Archived), p.FirstSeenAt)
	if err != nil {
		return fmt.Errorf("create person: %w", err)
	}
	return nil
}

// GetPerson returns a person by id, or nil if not found.
func (db *DB) GetPerson(id string) (*Person, error) {
	row := db.QueryRow(`
		SELECT id, name, email, archived, first_seen_at FROM people WHERE id = ?
	`, id)
	return scanPersonRow(row)
}

// FindPersonByName returns the non-archived person whose display name matches
// case-insensitively, excluding the given id, or nil. Earliest first-seen wins
// when several match.
func (db *DB) FindPersonByName(name, excludeID string) (*Person, error) {
	row := db.QueryRow(`
		SELECT id, name, email, archived, first_seen_at FROM people
		WHERE LOWER(name) = LOWER(?) AND archived = 0 AND id != ?
		ORDER BY first_seen_at ASC LIMIT 1
	`, name, excludeID)
	return scanPersonRow(row)
}

// RenamePerson updates a person's display name.
func (db *DB) RenamePerson(id, name string) error {
	_, err := db.Exec(`UPDATE people SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("rename person: %w", err)
	}
	return nil
}

// MergePeople folds dropID into keepID: account links and meeting attendance
// move over, then the dropped record is archived. Links that already exist on
// the kept record are discarded rather than duplicated.
func (db *DB) MergePeople(keepID, dropID string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin merge: %w", err)
	}

	stmts := []string{
		`INSERT OR IGNORE INTO person_accounts (person_id, account_id, role)
			SELECT ?, account_id, role FROM person_accounts WHERE person_id = ?`,
		`DELETE FROM person_accounts WHERE person_id = ?2`,
		`INSERT OR IGNORE INTO meeting_attendees (meeting_id, person_id)
			SELECT meeting_id, ?1 FROM meeting_attendees WHERE person_id = ?2`,
		`DELETE FROM meeting_attendees WHERE person_id = ?2`,
		`UPDATE people SET archived = 1 WHERE id = ?2`,
	}
	for _, s := range stmts {
		if _, err := tx.Exec(s, keepID, dropID); err != nil {
			tx.Rollback()
			return fmt.Errorf("merge people: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit merge: %w", err)
	}
	return nil
}

// CreateProject inserts a project.
func (db *DB) CreateProject(p *Project) error {
	_, err := db.Exec(`
		INSERT INTO projects (id, name, account_id) VALUES (?, ?, NULLIF(?, ''))
	`, p.ID, p.Name, p.AccountID)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

// CreateMeeting inserts a meeting.
func (db *DB) CreateMeeting(m *Meeting) error {
	_, err := db.Exec(`
		INSERT INTO meetings (id, title, entity_type, entity_id, starts_at, archived, has_new_signals)
		VALUES (?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, ?, ?)
	`, m.ID, m.Title, m.EntityType, m.EntityID, m.StartsAt,
		boolToInt(m.Archived), boolToInt(m.HasNewSignals))
	if err != nil {
		return fmt.Errorf("create meeting: %w", err)
	}
	return nil
}

// GetMeeting returns a meeting by id, or nil if not found.
func (db *DB) GetMeeting(id string) (*Meeting, error) {
	var m Meeting
	var entityType, entityID sql.NullString
	var archived, flagged int
	err := db.QueryRow(`
		SELECT id, title, entity_type, entity_id, starts_at, archived, has_new_signals
		FROM meetings WHERE id = ?
	`, id).Scan(&m.ID, &m.Title, &entityType, &entityID, &m.StartsAt, &archived, &flagged)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get meeting: %w", err)
	}
	m.EntityType = entityType.String
	m.EntityID = entityID.String
	m.Archived = archived != 0
	m.HasNewSignals = flagged != 0
	return &m, nil
}

// LinkPersonAccount attaches a person to an account with a role. Re-linking
// an existing pair keeps the original role.
func (db *DB) LinkPersonAccount(personID, accountID, role string) error {
	if role == "" {
		role = "contact"
	}
	_, err := db.Exec(`
		INSERT OR IGNORE INTO person_accounts (person_id, account_id, role)
		VALUES (?, ?, ?)
	`, personID, accountID, role)
	if err != nil {
		return fmt.Errorf("link person account: %w", err)
	}
	return nil
}

// AccountsForPerson returns every non-archived account linked to a person.
func (db *DB) AccountsForPerson(personID string) ([]Account, error) {
	rows, err := db.Query(`
		SELECT a.id, a.name, a.renewal_date, a.archived
		FROM accounts a
		JOIN person_accounts pa ON pa.account_id = a.id
		WHERE pa.person_id = ? AND a.archived = 0
		ORDER BY a.name
	`, personID)
	if err != nil {
		return nil, fmt.Errorf("accounts for person: %w", err)
	}
	defer rows.Close()
	return scanAccounts(rows)
}

// ChampionAccountsForPerson returns accounts where the person holds the
// champion role.
func (db *DB) ChampionAccountsForPerson(personID string) ([]Account, error) {
	rows, err := db.Query(`
		SELECT a.id, a.name, a.renewal_date, a.archived
		FROM accounts a
		JOIN person_accounts pa ON pa.account_id = a.id
		WHERE pa.person_id = ? AND pa.role = 'champion' AND a.archived = 0
		ORDER BY a.name
	`, personID)
	if err != nil {
		return nil, fmt.Errorf("champion accounts for person: %w", err)
	}
	defer rows.Close()
	return scanAccounts(rows)
}

// AddAccountEvent records an upcoming account event (e.g. a renewal).
func (db *DB) AddAccountEvent(id, accountID, kind string, dueAt int64) error {
	_, err := db.Exec(`
		INSERT INTO account_events (id, account_id, kind, due_at) VALUES (?, ?, ?, ?)
	`, id, accountID, kind, dueAt)
	if err != nil {
		return fmt.Errorf("add account event: %w", err)
	}
	return nil
}

// NextAccountEvent returns the soonest event of a kind due at or after now,
// or nil if none is scheduled.
func (db *DB) NextAccountEvent(accountID, kind string, now int64) (dueAt int64, ok bool, err error) {
	err = db.QueryRow(`
		SELECT due_at FROM account_events
		WHERE account_id = ? AND kind = ? AND due_at >= ?
		ORDER BY due_at ASC LIMIT 1
	`, accountID, kind, now).Scan(&dueAt)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("next account event: %w", err)
	}
	return dueAt, true, nil
}

// AddAction records an action item against an entity.
func (db *DB) AddAction(id, entityType, entityID string, dueAt int64, done bool) error {
	_, err := db.Exec(`
		INSERT INTO actions (id, entity_type, entity_id, due_at, done)
		VALUES (?, ?, ?, ?, ?)
	`, id, entityType, entityID, dueAt, boolToInt(done))
	if err != nil {
		return fmt.Errorf("add action: %w", err)
	}
	return nil
}

// OverdueActionCount returns how many open actions against an entity were due
// before now.
func (db *DB) OverdueActionCount(entityType, entityID string, now int64) (int, error) {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM actions
		WHERE entity_type = ? AND entity_id = ? AND done = 0 AND due_at < ?
	`, entityType, entityID, now).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("overdue action count: %w", err)
	}
	return count, nil
}

// AddMeetingAttendee links a person to a meeting.
func (db *DB) AddMeetingAttendee(meetingID, personID string) error {
	_, err := db.Exec(`
		INSERT OR IGNORE INTO meeting_attendees (meeting_id, person_id) VALUES (?, ?)
	`, meetingID, personID)
	if err != nil {
		return fmt.Errorf("add meeting attendee: %w", err)
	}
	return nil
}

// MeetingAttendees returns the people attending a meeting.
func (db *DB) MeetingAttendees(meetingID string) ([]Person, error) {
	rows, err := db.Query(`
		SELECT p.id, p.name, p.email, p.archived, p.first_seen_at
		FROM people p
		JOIN meeting_attendees ma ON ma.person_id = p.id
		WHERE ma.meeting_id = ?
		ORDER BY p.name
	`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("meeting attendees: %w", err)
	}
	defer rows.Close()

	var people []Person
	for rows.Next() {
		var p Person
		var email sql.NullString
		var archived int
		if err := rows.Scan(&p.ID, &p.Name, &email, &archived, &p.FirstSeenAt); err != nil {
			return nil, fmt.Errorf("scan attendee: %w", err)
		}
		p.Email = email.String
		p.Archived = archived != 0
		people = append(people, p)
	}
	return people, rows.Err()
}

// FutureMeetingsForEntity returns non-archived meetings linked to an entity
// that start after now.
func (db *DB) FutureMeetingsForEntity(entityType, entityID string, now int64) ([]Meeting, error) {
	rows, err := db.Query(`
		SELECT id, title, entity_type, entity_id, starts_at, archived, has_new_signals
		FROM meetings
		WHERE entity_type = ? AND entity_id = ? AND archived = 0 AND starts_at > ?
		ORDER BY starts_at ASC
	`, entityType, entityID, now)
	if err != nil {
		return nil, fmt.Errorf("future meetings: %w", err)
	}
	defer rows.Close()
	return scanMeetings(rows)
}

// MeetingsStartingBetween returns non-archived meetings with from <= starts_at < until.
func (db *DB) MeetingsStartingBetween(from, until int64) ([]Meeting, error) {
	rows, err := db.Query(`
		SELECT id, title, entity_type, entity_id, starts_at, archived, has_new_signals
		FROM meetings
		WHERE archived = 0 AND starts_at >= ? AND starts_at < ?
		ORDER BY starts_at ASC
	`, from, until)
	if err != nil {
		return nil, fmt.Errorf("meetings starting between: %w", err)
	}
	defer rows.Close()
	return scanMeetings(rows)
}

// LastMeetingForAccount returns the start time of the most recent past
// meeting linked to an account, or ok=false if there is none.
func (db *DB) LastMeetingForAccount(accountID string, now int64) (startsAt int64, ok bool, err error) {
	err = db.QueryRow(`
		SELECT starts_at FROM meetings
		WHERE entity_type = 'account' AND entity_id = ? AND archived = 0 AND starts_at <= ?
		ORDER BY starts_at DESC LIMIT 1
	`, accountID, now).Scan(&startsAt)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("last meeting for account: %w", err)
	}
	return startsAt, true, nil
}

// FlagMeetingSignals marks a meeting as having new signals. Readable by any
// meeting-rendering collaborator; cleared outside this core.
func (db *DB) FlagMeetingSignals(meetingID string) error {
	_, err := db.Exec(`UPDATE meetings SET has_new_signals = 1 WHERE id = ?`, meetingID)
	if err != nil {
		return fmt.Errorf("flag meeting: %w", err)
	}
	return nil
}

// EntityName resolves the display name for an entity, or "" when unknown.
func (db *DB) EntityName(entityType, entityID string) (string, error) {
	var table string
	switch entityType {
	case EntityAccount:
		table = "accounts"
	case EntityPerson:
		table = "people"
	case EntityProject:
		table = "projects"
	case EntityMeeting:
		var title string
		err := db.QueryRow(`SELECT title FROM meetings WHERE id = ?`, entityID).Scan(&title)
		if err == sql.ErrNoRows {
			return "", nil
		}
		if err != nil {
			return "", fmt.Errorf("entity name: %w", err)
		}
		return title, nil
	default:
		return "", nil
	}

	var name string
	err := db.QueryRow(fmt.Sprintf(`SELECT name FROM %s WHERE id = ?`, table), entityID).Scan(&name)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("entity name: %w", err)
	}
	return name, nil
}

func scanPersonRow(row *sql.Row) (*Person, error) {
	var p Person
	var email sql.NullString
	var archived int
	err := row.Scan(&p.ID, &p.Name, &email, &archived, &p.FirstSeenAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan person: %w", err)
	}
	p.Email = email.String
	p.Archived = archived != 0
	return &p, nil
}

func scanAccounts(rows *sql.Rows) ([]Account, error) {
	var accounts []Account
	for rows.Next() {
		var a Account
		var renewal sql.NullInt64
		var archived int
		if err := rows.Scan(&a.ID, &a.Name, &renewal, &archived); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		if renewal.Valid {
			a.RenewalDate = &renewal.Int64
		}
		a.Archived = archived != 0
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func scanMeetings(rows *sql.Rows) ([]Meeting, error) {
	var meetings []Meeting
	for rows.Next() {
		var m Meeting
		var entityType, entityID sql.NullString
		var archived, flagged int
		if err := rows.Scan(&m.ID, &m.Title, &entityType, &entityID, &m.StartsAt, &archived, &flagged); err != nil {
			return nil, fmt.Errorf("scan meeting: %w", err)
		}
		m.EntityType = entityType.String
		m.EntityID = entityID.String
		m.Archived = archived != 0
		m.HasNewSignals = flagged != 0
		meetings = append(meetings, m)
	}
	return meetings, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
