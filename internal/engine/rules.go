package engine

import (
	"encoding/json"
	"log"
	"time"

	"github.com/jamesgiroux/daily-operating-system-sub001/internal/store"
)

// Per-rule confidences are fixed constants, not learned. Reliability
// weighting applies at consumption time only.
const (
	confStakeholderChange    = 0.85
	confChampionRisk         = 0.80
	confRenewalEscalation    = 0.90
	confProjectHealthWarning = 0.70
	confRenewalAtRisk        = 0.85
	confEngagementWarning    = 0.75
)

const (
	renewalEscalationWindow = 90 * 24 * time.Hour
	meetingGapWindow        = 30 * 24 * time.Hour
	overdueActionThreshold  = 3
)

// RuleFunc derives zero or more signals from an existing one. A rule that
// cannot resolve relationships returns an empty result, never an error; one
// rule's failure must not block the rest of the pass.
type RuleFunc func(db *store.DB, sig *store.SignalEvent) []DerivedSignal

// Rule pairs a derivation function with a stable name used in provenance.
type Rule struct {
	Name  string
	Apply RuleFunc
}

// DefaultRules returns the registered rule set in evaluation order. Rules are
// independent: none depends on another having run in the same pass.
//
// ruleMeetingFrequencyDrop is deliberately absent — no producer emits its
// trigger type yet. See its doc comment.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "stakeholder_change", Apply: ruleStakeholderChange},
		{Name: "champion_risk", Apply: ruleChampionRisk},
		{Name: "renewal_escalation", Apply: ruleRenewalEscalation},
		{Name: "overdue_actions", Apply: ruleOverdueActions},
		{Name: "renewal_at_risk", Apply: ruleRenewalAtRisk},
	}
}

// ruleStakeholderChange: a person changing title or company implies a
// stakeholder change on every account that person is linked to.
func ruleStakeholderChange(db *store.DB, sig *store.SignalEvent) []DerivedSignal {
	if sig.EntityType != store.EntityPerson {
		return nil
	}
	if sig.SignalType != SigTitleChange && sig.SignalType != SigCompanyChange {
		return nil
	}

	accounts, err := db.AccountsForPerson(sig.EntityID)
	if err != nil {
		log.Printf("rule stakeholder_change: accounts for %s: %v", sig.EntityID, err)
		return nil
	}

	var out []DerivedSignal
	for _, a := range accounts {
		out = append(out, DerivedSignal{
			EntityType: store.EntityAccount,
			EntityID:   a.ID,
			SignalType: SigStakeholderChange,
			Value:      ruleValue(map[string]any{"person_id": sig.EntityID, "change": sig.SignalType}),
			Confidence: confStakeholderChange,
		})
	}
	return out
}

// ruleChampionRisk: negative sentiment from a person puts every account where
// they hold the champion role at risk.
func ruleChampionRisk(db *store.DB, sig *store.SignalEvent) []DerivedSignal {
	if sig.EntityType != store.EntityPerson || sig.SignalType != SigNegativeSentiment {
		return nil
	}

	accounts, err := db.ChampionAccountsForPerson(sig.EntityID)
	if err != nil {
		log.Printf("rule champion_risk: champion accounts for %s: %v", sig.EntityID, err)
		return nil
	}

	var out []DerivedSignal
	for _, a := range accounts {
		out = append(out, DerivedSignal{
			EntityType: store.EntityAccount,
			EntityID:   a.ID,
			SignalType: SigChampionRisk,
			Value:      ruleValue(map[string]any{"person_id": sig.EntityID}),
			Confidence: confChampionRisk,
		})
	}
	return out
}

// ruleRenewalEscalation: a champion changing company on an account whose
// renewal is due within 90 days escalates renewal risk.
func ruleRenewalEscalation(db *store.DB, sig *store.SignalEvent) []DerivedSignal {
	if sig.EntityType != store.EntityPerson || sig.SignalType != SigCompanyChange {
		return nil
	}

	accounts, err := db.ChampionAccountsForPerson(sig.EntityID)
	if err != nil {
		log.Printf("rule renewal_escalation: champion accounts for %s: %v", sig.EntityID, err)
		return nil
	}

	now := time.Now()
	horizon := now.Add(renewalEscalationWindow).UnixMilli()

	var out []DerivedSignal
	for _, a := range accounts {
		dueAt, ok, err := db.NextAccountEvent(a.ID, "renewal", now.UnixMilli())
		if err != nil {
			log.Printf("rule renewal_escalation: next event for %s: %v", a.ID, err)
			continue
		}
		if !ok || dueAt > horizon {
			continue
		}

		daysOut := int(time.UnixMilli(dueAt).Sub(now).Hours() / 24)
		out = append(out, DerivedSignal{
			EntityType: store.EntityAccount,
			EntityID:   a.ID,
			SignalType: SigRenewalRiskEscalation,
			Value: ruleValue(map[string]any{
				"person_id":       sig.EntityID,
				"renewal_in_days": daysOut,
			}),
			Confidence: confRenewalEscalation,
		})
	}
	return out
}

// ruleOverdueActions: a proactive action cluster on an entity with three or
// more overdue actions is a project health warning. Fires at exactly 3.
func ruleOverdueActions(db *store.DB, sig *store.SignalEvent) []DerivedSignal {
	if sig.SignalType != SigProactiveActionCluster {
		return nil
	}

	count, err := db.OverdueActionCount(sig.EntityType, sig.EntityID, time.Now().UnixMilli())
	if err != nil {
		log.Printf("rule overdue_actions: count for %s/%s: %v", sig.EntityType, sig.EntityID, err)
		return nil
	}
	if count < overdueActionThreshold {
		return nil
	}

	return []DerivedSignal{{
		EntityType: sig.EntityType,
		EntityID:   sig.EntityID,
		SignalType: SigProjectHealthWarning,
		Value:      ruleValue(map[string]any{"overdue_actions": count}),
		Confidence: confProjectHealthWarning,
	}}
}

// ruleRenewalAtRisk: a renewal approaching with no meeting against the
// account in the last 30 days marks the renewal itself at risk.
func ruleRenewalAtRisk(db *store.DB, sig *store.SignalEvent) []DerivedSignal {
	if sig.EntityType != store.EntityAccount || sig.SignalType != SigRenewalProximity {
		return nil
	}

	now := time.Now()
	lastStart, ok, err := db.LastMeetingForAccount(sig.EntityID, now.UnixMilli())
	if err != nil {
		log.Printf("rule renewal_at_risk: last meeting for %s: %v", sig.EntityID, err)
		return nil
	}
	if ok && now.Sub(time.UnixMilli(lastStart)) <= meetingGapWindow {
		return nil
	}

	gapDays := -1
	if ok {
		gapDays = int(now.Sub(time.UnixMilli(lastStart)).Hours() / 24)
	}
	return []DerivedSignal{{
		EntityType: store.EntityAccount,
		EntityID:   sig.EntityID,
		SignalType: SigRenewalAtRisk,
		Value:      ruleValue(map[string]any{"meeting_gap_days": gapDays}),
		Confidence: confRenewalAtRisk,
	}}
}

// ruleMeetingFrequencyDrop: an account-level drop in meeting frequency implies
// an engagement warning. Not registered in DefaultRules — no producer emits
// meeting_frequency_drop today, so the rule is inert by construction.
// TODO: derive the drop from schedule data instead of waiting on a producer.
func ruleMeetingFrequencyDrop(db *store.DB, sig *store.SignalEvent) []DerivedSignal {
	if sig.EntityType != store.EntityAccount || sig.SignalType != SigMeetingFrequencyDrop {
		return nil
	}

	return []DerivedSignal{{
		EntityType: store.EntityAccount,
		EntityID:   sig.EntityID,
		SignalType: SigEngagementWarning,
		Value:      sig.Value,
		Confidence: confEngagementWarning,
	}}
}

// ruleValue marshals a rule payload, returning "" when marshaling fails so a
// bad payload never blocks derivation.
func ruleValue(v map[string]any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
