package engine

import (
	"testing"

	"github.com/jamesgiroux/daily-operating-system-sub001/internal/store"
)

func TestSourceBaseWeight(t *testing.T) {
	if w := SourceBaseWeight(SourceUserCorrection); w != 1.0 {
		t.Errorf("user_correction weight = %f, want 1.0", w)
	}
	if w := SourceBaseWeight(SourceKeyword); w != 0.4 {
		t.Errorf("keyword weight = %f, want 0.4", w)
	}
	if w := SourceBaseWeight("made_up_source"); w != 0 {
		t.Errorf("unknown source weight = %f, want 0", w)
	}
}

func TestDefaultHalfLife(t *testing.T) {
	if d := DefaultHalfLife(SourceUserCorrection); d != 365 {
		t.Errorf("user_correction half-life = %d, want 365", d)
	}
	if d := DefaultHalfLife("made_up_source"); d != 30 {
		t.Errorf("unknown source half-life = %d, want 30", d)
	}
}

func TestLearnedReliabilityPriorBelowGate(t *testing.T) {
	e := testEngine(t)

	// No outcomes at all
	r, err := e.LearnedReliability(SourceClay, store.EntityPerson, SigTitleChange)
	if err != nil {
		t.Fatalf("LearnedReliability: %v", err)
	}
	if r != 0.5 {
		t.Errorf("reliability with no outcomes = %f, want 0.5", r)
	}

	// Four outcomes — still below the gate, still exactly 0.5
	for i := 0; i < 4; i++ {
		if err := e.RecordOutcome(SourceClay, store.EntityPerson, SigTitleChange, true); err != nil {
			t.Fatalf("RecordOutcome: %v", err)
		}
	}
	r, _ = e.LearnedReliability(SourceClay, store.EntityPerson, SigTitleChange)
	if r != 0.5 {
		t.Errorf("reliability with 4 outcomes = %f, want 0.5", r)
	}
}

func TestLearnedReliabilitySamplesAtGate(t *testing.T) {
	e := testEngine(t)

	// Five confirmations crosses the gate: Beta(6, 1)
	for i := 0; i < 5; i++ {
		if err := e.RecordOutcome(SourceClay, store.EntityPerson, SigTitleChange, true); err != nil {
			t.Fatalf("RecordOutcome: %v", err)
		}
	}

	for i := 0; i < 20; i++ {
		r, err := e.LearnedReliability(SourceClay, store.EntityPerson, SigTitleChange)
		if err != nil {
			t.Fatalf("LearnedReliability: %v", err)
		}
		if r <= 0 || r >= 1 {
			t.Fatalf("draw %d out of range: %f", i, r)
		}
		// Beta(6,1) has mean 6/7; a draw below 0.3 is astronomically unlikely.
		if r < 0.3 {
			t.Errorf("draw %d implausibly low for Beta(6,1): %f", i, r)
		}
	}
}

func TestLearnedReliabilityDeterministicWithSeed(t *testing.T) {
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("open memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	seed := func() *Engine { return NewWithOptions(db, Options{RandSeed: 42}) }

	e := seed()
	for i := 0; i < 5; i++ {
		e.RecordOutcome(SourceKeyword, store.EntityAccount, SigRenewalProximity, i%2 == 0)
	}

	a, _ := seed().LearnedReliability(SourceKeyword, store.EntityAccount, SigRenewalProximity)
	b, _ := seed().LearnedReliability(SourceKeyword, store.EntityAccount, SigRenewalProximity)
	if a != b {
		t.Errorf("same seed should give the same first draw: %f vs %f", a, b)
	}
}

func TestRecordOutcome(t *testing.T) {
	e := testEngine(t)

	e.RecordOutcome(SourceGravatar, store.EntityPerson, SigTitleChange, true)
	e.RecordOutcome(SourceGravatar, store.EntityPerson, SigTitleChange, false)
	e.RecordOutcome(SourceGravatar, store.EntityPerson, SigTitleChange, false)

	w, err := e.DB.GetSourceWeight(SourceGravatar, store.EntityPerson, SigTitleChange)
	if err != nil {
		t.Fatalf("GetSourceWeight: %v", err)
	}
	if w == nil {
		t.Fatal("expected a weight row")
	}
	if w.Alpha != 2.0 || w.Beta != 3.0 {
		t.Errorf("alpha=%f beta=%f, want 2.0/3.0", w.Alpha, w.Beta)
	}
	if w.UpdateCount != 3 {
		t.Errorf("update count = %d, want 3", w.UpdateCount)
	}
}
