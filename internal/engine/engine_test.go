package engine

import (
	"testing"
	"time"

	"github.com/jamesgiroux/daily-operating-system-sub001/internal/store"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("open memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewWithOptions(db, Options{RandSeed: 1})
}

func TestEmitSignalSetsHalfLife(t *testing.T) {
	e := testEngine(t)

	id, err := e.EmitSignal(store.EntityPerson, "p-1", SigTitleChange, SourceClay, "", 0.6)
	if err != nil {
		t.Fatalf("EmitSignal: %v", err)
	}

	sig, err := e.DB.GetSignal(id)
	if err != nil || sig == nil {
		t.Fatalf("GetSignal: %v", err)
	}
	if sig.HalfLifeDays != 90 {
		t.Errorf("half-life = %d, want 90 for clay", sig.HalfLifeDays)
	}
}

func TestPropagateStakeholderChangeToLinkedAccounts(t *testing.T) {
	e := testEngine(t)
	db := e.DB

	db.CreateAccount(&store.Account{ID: "acct-1", Name: "Acme"})
	db.CreateAccount(&store.Account{ID: "acct-2", Name: "Globex"})
	db.CreatePerson(&store.Person{ID: "p-1", Name: "Dana Reyes"})
	db.LinkPersonAccount("p-1", "acct-1", "contact")
	db.LinkPersonAccount("p-1", "acct-2", "contact")

	_, derived, err := e.EmitAndPropagate(store.EntityPerson, "p-1",
		SigTitleChange, SourceTranscript, "", 0.9, "")
	if err != nil {
		t.Fatalf("EmitAndPropagate: %v", err)
	}
	if len(derived) != 2 {
		t.Fatalf("expected 2 derived signals, got %d", len(derived))
	}

	for _, acct := range []string{"acct-1", "acct-2"} {
		signals, err := db.ActiveSignalsByType(store.EntityAccount, acct, SigStakeholderChange)
		if err != nil {
			t.Fatalf("ActiveSignalsByType: %v", err)
		}
		if len(signals) != 1 {
			t.Fatalf("%s: expected 1 stakeholder_change, got %d", acct, len(signals))
		}
		s := signals[0]
		if s.Source != SourcePropagation {
			t.Errorf("%s: source = %s, want propagation", acct, s.Source)
		}
		if s.Confidence != 0.85 {
			t.Errorf("%s: confidence = %f, want 0.85", acct, s.Confidence)
		}
		if s.SourceContext == "" {
			t.Errorf("%s: expected provenance context", acct)
		}
	}
}

func TestPropagateNoLinksNoDerived(t *testing.T) {
	e := testEngine(t)

	e.DB.CreatePerson(&store.Person{ID: "p-1", Name: "Dana Reyes"})

	_, derived, err := e.EmitAndPropagate(store.EntityPerson, "p-1",
		SigTitleChange, SourceTranscript, "", 0.9, "")
	if err != nil {
		t.Fatalf("EmitAndPropagate: %v", err)
	}
	if len(derived) != 0 {
		t.Errorf("expected no derived signals, got %d", len(derived))
	}
}

func TestEmitAndPropagateFlagsFutureMeetings(t *testing.T) {
	e := testEngine(t)
	db := e.DB
	now := time.Now().UnixMilli()

	db.CreateAccount(&store.Account{ID: "acct-1", Name: "Acme"})
	db.CreateMeeting(&store.Meeting{
		ID: "m-future", Title: "QBR",
		EntityType: store.EntityAccount, EntityID: "acct-1",
		StartsAt: now + int64(time.Hour/time.Millisecond),
	})
	db.CreateMeeting(&store.Meeting{
		ID: "m-past", Title: "Old sync",
		EntityType: store.EntityAccount, EntityID: "acct-1",
		StartsAt: now - int64(time.Hour/time.Millisecond),
	})

	// No rule fires for this type; flagging must happen anyway.
	_, _, err := e.EmitAndPropagate(store.EntityAccount, "acct-1",
		SigEmailSentiment, SourceEmailEnrichment, "", 0.7, "")
	if err != nil {
		t.Fatalf("EmitAndPropagate: %v", err)
	}

	future, _ := db.GetMeeting("m-future")
	if !future.HasNewSignals {
		t.Error("future meeting should be flagged")
	}
	past, _ := db.GetMeeting("m-past")
	if past.HasNewSignals {
		t.Error("past meeting should not be flagged")
	}
}

func TestDerivedSignalsDoNotCascadeWithinPass(t *testing.T) {
	e := testEngine(t)
	db := e.DB
	now := time.Now()

	db.CreateAccount(&store.Account{ID: "acct-1", Name: "Acme"})
	db.CreatePerson(&store.Person{ID: "p-1", Name: "Dana Reyes"})
	db.LinkPersonAccount("p-1", "acct-1", "champion")
	db.AddAccountEvent("ev-1", "acct-1", "renewal", now.Add(45*24*time.Hour).UnixMilli())

	// company_change fires both stakeholder_change and renewal_risk_escalation
	// directly, but the derived account signals must not be re-fed into the
	// rule set in the same pass.
	_, derived, err := e.EmitAndPropagate(store.EntityPerson, "p-1",
		SigCompanyChange, SourceTranscript, "", 0.9, "")
	if err != nil {
		t.Fatalf("EmitAndPropagate: %v", err)
	}
	if len(derived) != 2 {
		t.Fatalf("expected stakeholder_change + renewal_risk_escalation, got %d", len(derived))
	}

	all, _ := db.ActiveSignals(store.EntityAccount, "acct-1")
	if len(all) != 2 {
		t.Errorf("expected exactly 2 account signals, got %d", len(all))
	}
}

func TestSupersede(t *testing.T) {
	e := testEngine(t)

	oldID, err := e.EmitSignal(store.EntityPerson, "p-1", SigTitleChange, SourceClay, "", 0.6)
	if err != nil {
		t.Fatalf("EmitSignal: %v", err)
	}
	newID, err := e.EmitSignal(store.EntityPerson, "p-1", SigTitleChange, SourceUserCorrection, "", 1.0)
	if err != nil {
		t.Fatalf("EmitSignal: %v", err)
	}

	if err := e.Supersede(oldID, newID); err != nil {
		t.Fatalf("Supersede: %v", err)
	}

	active, _ := e.DB.ActiveSignals(store.EntityPerson, "p-1")
	if len(active) != 1 || active[0].ID != newID {
		t.Errorf("expected only the correction to remain active, got %+v", active)
	}
}
