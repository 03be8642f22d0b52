package store

import (
	"testing"
	"time"
)

func TestFindPersonByNameCaseInsensitive(t *testing.T) {
	db := testDB(t)

	db.CreatePerson(&Person{ID: "p-1", Name: "Dana Reyes", FirstSeenAt: 100})
	db.CreatePerson(&Person{ID: "p-2", Name: "dana reyes", FirstSeenAt: 200})

	match, err := db.FindPersonByName("DANA REYES", "p-2")
	if err != nil {
		t.Fatalf("FindPersonByName: %v", err)
	}
	if match == nil || match.ID != "p-1" {
		t.Fatalf("expected p-1, got %+v", match)
	}

	// Archived people are never matched
	db.CreatePerson(&Person{ID: "p-3", Name: "Gone Person", Archived: true, FirstSeenAt: 50})
	none, _ := db.FindPersonByName("Gone Person", "")
	if none != nil {
		t.Error("archived person should not match")
	}
}

func TestMergePeople(t *testing.T) {
	db := testDB(t)

	db.CreateAccount(&Account{ID: "acct-1", Name: "Acme"})
	db.CreateAccount(&Account{ID: "acct-2", Name: "Globex"})
	db.CreatePerson(&Person{ID: "keep", Name: "Dana Reyes", FirstSeenAt: 100})
	db.CreatePerson(&Person{ID: "drop", Name: "Dana Reyes", FirstSeenAt: 200})
	db.CreateMeeting(&Meeting{ID: "m-1", Title: "QBR", StartsAt: 1000})

	db.LinkPersonAccount("keep", "acct-1", "champion")
	db.LinkPersonAccount("drop", "acct-1", "contact") // overlapping link
	db.LinkPersonAccount("drop", "acct-2", "contact")
	db.AddMeetingAttendee("m-1", "drop")

	if err := db.MergePeople("keep", "drop"); err != nil {
		t.Fatalf("MergePeople: %v", err)
	}

	accounts, _ := db.AccountsForPerson("keep")
	if len(accounts) != 2 {
		t.Errorf("expected 2 accounts after merge, got %d", len(accounts))
	}

	// Overlapping link kept its original role
	champ, _ := db.ChampionAccountsForPerson("keep")
	if len(champ) != 1 || champ[0].ID != "acct-1" {
		t.Errorf("expected champion link to acct-1 to survive, got %+v", champ)
	}

	attendees, _ := db.MeetingAttendees("m-1")
	if len(attendees) != 1 || attendees[0].ID != "keep" {
		t.Errorf("expected keep to attend m-1, got %+v", attendees)
	}

	dropped, _ := db.GetPerson("drop")
	if dropped == nil || !dropped.Archived {
		t.Error("dropped person should be archived")
	}
}

func TestOverdueActionCount(t *testing.T) {
	db := testDB(t)
	now := time.Now().UnixMilli()

	db.AddAction("a-1", EntityProject, "proj-1", now-1000, false)
	db.AddAction("a-2", EntityProject, "proj-1", now-2000, false)
	db.AddAction("a-3", EntityProject, "proj-1", now-3000, true)  // done
	db.AddAction("a-4", EntityProject, "proj-1", now+1000, false) // not due yet

	count, err := db.OverdueActionCount(EntityProject, "proj-1", now)
	if err != nil {
		t.Fatalf("OverdueActionCount: %v", err)
	}
	if count != 2 {
		t.Errorf("overdue count = %d, want 2", count)
	}
}

func TestFutureMeetingsAndFlagging(t *testing.T) {
	db := testDB(t)
	now := time.Now().UnixMilli()

	db.CreateMeeting(&Meeting{ID: "past", Title: "Past", EntityType: EntityAccount, EntityID: "acct-1", StartsAt: now - 1000})
	db.CreateMeeting(&Meeting{ID: "future", Title: "Future", EntityType: EntityAccount, EntityID: "acct-1", StartsAt: now + 60000})
	db.CreateMeeting(&Meeting{ID: "archived", Title: "Archived", EntityType: EntityAccount, EntityID: "acct-1", StartsAt: now + 60000, Archived: true})

	future, err := db.FutureMeetingsForEntity(EntityAccount, "acct-1", now)
	if err != nil {
		t.Fatalf("FutureMeetingsForEntity: %v", err)
	}
	if len(future) != 1 || future[0].ID != "future" {
		t.Fatalf("expected only the future meeting, got %+v", future)
	}

	if err := db.FlagMeetingSignals("future"); err != nil {
		t.Fatalf("FlagMeetingSignals: %v", err)
	}
	m, _ := db.GetMeeting("future")
	if !m.HasNewSignals {
		t.Error("expected has_new_signals after flagging")
	}
}

func TestNextAccountEvent(t *testing.T) {
	db := testDB(t)
	now := time.Now().UnixMilli()

	db.CreateAccount(&Account{ID: "acct-1", Name: "Acme"})
	db.AddAccountEvent("ev-1", "acct-1", "renewal", now+5000)
	db.AddAccountEvent("ev-2", "acct-1", "renewal", now+1000)
	db.AddAccountEvent("ev-3", "acct-1", "renewal", now-1000) // past

	dueAt, ok, err := db.NextAccountEvent("acct-1", "renewal", now)
	if err != nil {
		t.Fatalf("NextAccountEvent: %v", err)
	}
	if !ok {
		t.Fatal("expected an upcoming event")
	}
	if dueAt != now+1000 {
		t.Errorf("due_at = %d, want %d", dueAt, now+1000)
	}

	_, ok, _ = db.NextAccountEvent("acct-1", "qbr", now)
	if ok {
		t.Error("expected no qbr event")
	}
}

func TestLastMeetingForAccount(t *testing.T) {
	db := testDB(t)
	now := time.Now().UnixMilli()

	_, ok, err := db.LastMeetingForAccount("acct-1", now)
	if err != nil {
		t.Fatalf("LastMeetingForAccount: %v", err)
	}
	if ok {
		t.Error("expected no meeting yet")
	}

	db.CreateMeeting(&Meeting{ID: "m-1", Title: "Sync", EntityType: EntityAccount, EntityID: "acct-1", StartsAt: now - 5000})
	db.CreateMeeting(&Meeting{ID: "m-2", Title: "Sync", EntityType: EntityAccount, EntityID: "acct-1", StartsAt: now - 1000})

	startsAt, ok, _ := db.LastMeetingForAccount("acct-1", now)
	if !ok || startsAt != now-1000 {
		t.Errorf("last meeting = %d ok=%v, want %d", startsAt, ok, now-1000)
	}
}

func TestEntityName(t *testing.T) {
	db := testDB(t)

	db.CreateAccount(&Account{ID: "acct-1", Name: "Acme"})
	db.CreateMeeting(&Meeting{ID: "m-1", Title: "Kickoff", StartsAt: 1})

	name, err := db.EntityName(EntityAccount, "acct-1")
	if err != nil {
		t.Fatalf("EntityName: %v", err)
	}
	if name != "Acme" {
		t.Errorf("name = %q, want Acme", name)
	}

	title, _ := db.EntityName(EntityMeeting, "m-1")
	if title != "Kickoff" {
		t.Errorf("meeting name = %q, want Kickoff", title)
	}

	missing, _ := db.EntityName(EntityPerson, "nope")
	if missing != "" {
		t.Errorf("expected empty name for unknown entity, got %q", missing)
	}
}
