package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jamesgiroux/daily-operating-system-sub001/internal/store"
)

func TestSeverityFor(t *testing.T) {
	cases := []struct {
		confidence float64
		want       string
	}{
		{0.85, store.SeverityCritical},
		{0.84999, store.SeverityWarning},
		{0.70, store.SeverityWarning},
		{0.69999, store.SeverityInfo},
		{1.0, store.SeverityCritical},
		{0.0, store.SeverityInfo},
	}
	for _, tc := range cases {
		if got := severityFor(tc.confidence); got != tc.want {
			t.Errorf("severityFor(%f) = %s, want %s", tc.confidence, got, tc.want)
		}
	}
}

func TestGenerateCalloutsFiltersAndRanks(t *testing.T) {
	e := testEngine(t)
	db := e.DB

	db.CreateAccount(&store.Account{ID: "acct-1", Name: "Acme"})

	emit := func(sigType string, conf float64) {
		if _, err := e.EmitSignal(store.EntityAccount, "acct-1", sigType, SourcePropagation, "", conf); err != nil {
			t.Fatalf("EmitSignal %s: %v", sigType, err)
		}
	}
	emit(SigRenewalAtRisk, 0.90)         // critical
	emit(SigChampionRisk, 0.75)          // warning
	emit(SigStakeholderChange, 0.40)     // below floor, skipped
	emit(SigTitleChange, 0.95)           // not briefing-worthy, skipped

	callouts, err := e.GenerateCallouts(context.Background(), CalloutOpts{})
	if err != nil {
		t.Fatalf("GenerateCallouts: %v", err)
	}
	if len(callouts) != 2 {
		t.Fatalf("expected 2 callouts, got %d", len(callouts))
	}

	// Severity ordering: critical before warning
	if callouts[0].Severity != store.SeverityCritical {
		t.Errorf("first callout severity = %s, want critical", callouts[0].Severity)
	}
	if callouts[1].Severity != store.SeverityWarning {
		t.Errorf("second callout severity = %s, want warning", callouts[1].Severity)
	}
	if callouts[0].EntityName != "Acme" {
		t.Errorf("entity name = %q, want Acme", callouts[0].EntityName)
	}
}

func TestGenerateCalloutsIdempotent(t *testing.T) {
	e := testEngine(t)
	db := e.DB

	db.CreateAccount(&store.Account{ID: "acct-1", Name: "Acme"})
	e.EmitSignal(store.EntityAccount, "acct-1", SigRenewalAtRisk, SourcePropagation, "", 0.9)

	if _, err := e.GenerateCallouts(context.Background(), CalloutOpts{}); err != nil {
		t.Fatalf("first GenerateCallouts: %v", err)
	}
	if _, err := e.GenerateCallouts(context.Background(), CalloutOpts{}); err != nil {
		t.Fatalf("second GenerateCallouts: %v", err)
	}

	count, _ := db.CountCallouts()
	if count != 1 {
		t.Errorf("callout count after two runs = %d, want 1", count)
	}
}

func TestGenerateCalloutsWindow(t *testing.T) {
	e := testEngine(t)
	db := e.DB

	db.CreateAccount(&store.Account{ID: "acct-1", Name: "Acme"})
	e.EmitSignal(store.EntityAccount, "acct-1", SigRenewalAtRisk, SourcePropagation, "", 0.9)

	// A vanishingly small window excludes the signal just emitted.
	callouts, err := e.GenerateCallouts(context.Background(), CalloutOpts{Window: time.Nanosecond})
	if err != nil {
		t.Fatalf("GenerateCallouts: %v", err)
	}
	if len(callouts) != 0 {
		t.Errorf("expected 0 callouts for a nanosecond window, got %d", len(callouts))
	}
}

func TestRenderRenewalEscalation(t *testing.T) {
	sig := store.SignalEvent{
		SignalType: SigRenewalRiskEscalation,
		Value:      `{"person_id":"p-1","renewal_in_days":44}`,
	}
	headline, detail := renderCallout(sig, "Acme")
	if headline != "Renewal risk: champion departure" {
		t.Errorf("headline = %q", headline)
	}
	if !strings.Contains(detail, "Acme") || !strings.Contains(detail, "44") {
		t.Errorf("detail missing account or days: %q", detail)
	}
}

func TestRenderUnknownTypeFallsBack(t *testing.T) {
	sig := store.SignalEvent{
		SignalType: "brand_new_type",
		EntityID:   "acct-1",
		Source:     SourceKeyword,
	}
	headline, _ := renderCallout(sig, "")
	if !strings.Contains(headline, "brand_new_type") {
		t.Errorf("fallback headline should name the type: %q", headline)
	}
}

func TestEndToEndChampionDepartureCallout(t *testing.T) {
	e := testEngine(t)
	db := e.DB
	now := time.Now()

	db.CreateAccount(&store.Account{ID: "acct-1", Name: "Acme"})
	db.CreatePerson(&store.Person{ID: "p-1", Name: "Dana Reyes"})
	db.LinkPersonAccount("p-1", "acct-1", "champion")
	db.AddAccountEvent("ev-1", "acct-1", "renewal", now.Add(45*24*time.Hour).UnixMilli())

	_, derived, err := e.EmitAndPropagate(store.EntityPerson, "p-1",
		SigCompanyChange, SourceTranscript, "", 0.8, "")
	if err != nil {
		t.Fatalf("EmitAndPropagate: %v", err)
	}

	escalations, _ := db.ActiveSignalsByType(store.EntityAccount, "acct-1", SigRenewalRiskEscalation)
	if len(escalations) != 1 {
		t.Fatalf("expected 1 renewal_risk_escalation (derived: %d), got %d", len(derived), len(escalations))
	}
	if escalations[0].Confidence != 0.90 {
		t.Errorf("escalation confidence = %f, want 0.90", escalations[0].Confidence)
	}

	callouts, err := e.GenerateCallouts(context.Background(), CalloutOpts{})
	if err != nil {
		t.Fatalf("GenerateCallouts: %v", err)
	}

	var found *store.Callout
	for i := range callouts {
		if callouts[i].SignalID == escalations[0].ID {
			found = &callouts[i]
		}
	}
	if found == nil {
		t.Fatal("no callout for the escalation signal")
	}
	if found.Headline != "Renewal risk: champion departure" {
		t.Errorf("headline = %q", found.Headline)
	}
	if found.Severity != store.SeverityCritical {
		t.Errorf("severity = %s, want critical", found.Severity)
	}
}
