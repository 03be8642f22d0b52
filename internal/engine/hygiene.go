package engine

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/jamesgiroux/daily-operating-system-sub001/internal/store"
)

// runHygiene runs data-quality fixes keyed on the signal type. Each trigger
// skips when inapplicable; a failing trigger is logged and never blocks the
// emission that caused it.
func (e *Engine) runHygiene(sig *store.SignalEvent) {
	switch sig.SignalType {
	case SigPersonCreated:
		e.hygieneMergeDuplicatePerson(sig)
	case SigSenderNameResolved:
		e.hygieneRenameEmailPerson(sig)
	case SigEntityResolution:
		e.hygieneLinkCoAttendees(sig)
	}
}

// hygieneMergeDuplicatePerson merges a newly created person into an existing
// non-archived person with the same display name (case-insensitive). The
// record with the earlier first-seen timestamp is kept.
func (e *Engine) hygieneMergeDuplicatePerson(sig *store.SignalEvent) {
	const rule = "merge_duplicate_person"

	if sig.EntityType != store.EntityPerson {
		return
	}

	person, err := e.DB.GetPerson(sig.EntityID)
	if err != nil || person == nil {
		logHygiene(rule, sig.ID, err)
		return
	}

	match, err := e.DB.FindPersonByName(person.Name, person.ID)
	if err != nil {
		logHygiene(rule, sig.ID, err)
		return
	}
	if match == nil {
		return
	}

	keep, drop := person, match
	if match.FirstSeenAt < person.FirstSeenAt {
		keep, drop = match, person
	}

	if err := e.DB.MergePeople(keep.ID, drop.ID); err != nil {
		logHygiene(rule, sig.ID, err)
		return
	}
	e.audit(sig, rule, fmt.Sprintf("merged %s into %s", drop.ID, keep.ID))
}

// hygieneRenameEmailPerson renames a person still bearing an email address as
// its display name once a legible sender name is available in the signal
// payload.
func (e *Engine) hygieneRenameEmailPerson(sig *store.SignalEvent) {
	const rule = "resolve_person_name"

	if sig.EntityType != store.EntityPerson {
		return
	}

	var payload struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(sig.Value), &payload); err != nil || payload.Name == "" {
		return
	}
	if strings.Contains(payload.Name, "@") {
		return // still an address, nothing legible to apply
	}

	person, err := e.DB.GetPerson(sig.EntityID)
	if err != nil || person == nil {
		logHygiene(rule, sig.ID, err)
		return
	}
	if !strings.Contains(person.Name, "@") {
		return // name already resolved
	}

	if err := e.DB.RenamePerson(person.ID, payload.Name); err != nil {
		logHygiene(rule, sig.ID, err)
		return
	}
	e.audit(sig, rule, fmt.Sprintf("renamed %q to %q", person.Name, payload.Name))
}

// hygieneLinkCoAttendees links every attendee of a referenced meeting to the
// resolved account, skipping links that already exist.
func (e *Engine) hygieneLinkCoAttendees(sig *store.SignalEvent) {
	const rule = "link_co_attendees"

	if sig.EntityType != store.EntityAccount {
		return
	}

	var payload struct {
		MeetingID string `json:"meeting_id"`
	}
	if err := json.Unmarshal([]byte(sig.Value), &payload); err != nil || payload.MeetingID == "" {
		return
	}

	attendees, err := e.DB.MeetingAttendees(payload.MeetingID)
	if err != nil {
		logHygiene(rule, sig.ID, err)
		return
	}
	if len(attendees) == 0 {
		return
	}

	linked := 0
	for _, p := range attendees {
		if err := e.DB.LinkPersonAccount(p.ID, sig.EntityID, ""); err != nil {
			logHygiene(rule, sig.ID, err)
			continue
		}
		linked++
	}
	e.audit(sig, rule, fmt.Sprintf("linked %d attendees of %s", linked, payload.MeetingID))
}

func (e *Engine) audit(sig *store.SignalEvent, rule, outcome string) {
	if err := e.DB.AddHygieneAudit(sig.ID, rule, outcome, sig.Confidence); err != nil {
		log.Printf("hygiene audit %s: %v", rule, err)
	}
}

func logHygiene(rule, signalID string, err error) {
	if err != nil {
		log.Printf("hygiene %s (signal %s): %v", rule, signalID, err)
	}
}
