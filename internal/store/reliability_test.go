package store

import (
	"testing"
)

func TestGetSourceWeightMissing(t *testing.T) {
	db := testDB(t)

	w, err := db.GetSourceWeight("clay", EntityPerson, "title_change")
	if err != nil {
		t.Fatalf("GetSourceWeight: %v", err)
	}
	if w != nil {
		t.Error("expected nil for unrecorded triple")
	}
}

func TestPutSourceWeightRoundTrip(t *testing.T) {
	db := testDB(t)

	w := &SourceWeight{
		Source:      "clay",
		EntityType:  EntityPerson,
		SignalType:  "title_change",
		Alpha:       3.0,
		Beta:        2.0,
		UpdateCount: 4,
	}
	if err := db.PutSourceWeight(w); err != nil {
		t.Fatalf("PutSourceWeight: %v", err)
	}

	got, err := db.GetSourceWeight("clay", EntityPerson, "title_change")
	if err != nil {
		t.Fatalf("GetSourceWeight: %v", err)
	}
	if got == nil {
		t.Fatal("expected a row")
	}
	if got.Alpha != 3.0 || got.Beta != 2.0 || got.UpdateCount != 4 {
		t.Errorf("got alpha=%f beta=%f count=%d", got.Alpha, got.Beta, got.UpdateCount)
	}

	// Upsert replaces
	w.Alpha = 5.0
	w.UpdateCount = 5
	if err := db.PutSourceWeight(w); err != nil {
		t.Fatalf("PutSourceWeight upsert: %v", err)
	}
	got, _ = db.GetSourceWeight("clay", EntityPerson, "title_change")
	if got.Alpha != 5.0 || got.UpdateCount != 5 {
		t.Errorf("after upsert: alpha=%f count=%d", got.Alpha, got.UpdateCount)
	}
}
