package engine

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jamesgiroux/daily-operating-system-sub001/internal/store"
)

const (
	bridgeMeetingWindow = 48 * time.Hour
	bridgeEmailWindow   = 7 * 24 * time.Hour
	fanoutEmailWindow   = time.Hour

	confPreMeetingContext = 0.75
	confEmailSentiment    = 0.70
	confEmailCommitment   = 0.65
	confEmailUrgency      = 0.80

	// Person-level facts mirror onto linked accounts at reduced confidence.
	accountAttenuation = 0.6
)

// commitmentPhrases is the fixed detector for email_commitment. Matched
// case-insensitively against the enrichment summary.
var commitmentPhrases = []string{
	"will send",
	"confirmed",
	"order form",
	"deadline",
	"follow up by",
	"signed",
}

// RunEmailMeetingBridge correlates recently enriched email with the near-term
// schedule: for every meeting starting within 48 hours that has attendees,
// and every email enriched in the last 7 days, a sender who is among the
// attendees produces a pre_meeting_context signal on the meeting, mirrored
// onto the meeting's entity. Deduplicated per (meeting, email), so re-running
// the bridge is a no-op. Returns the number of signals emitted.
func (e *Engine) RunEmailMeetingBridge() (int, error) {
	now := time.Now()

	meetings, err := e.DB.MeetingsStartingBetween(now.UnixMilli(), now.Add(bridgeMeetingWindow).UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("bridge: load meetings: %w", err)
	}
	emails, err := e.DB.EmailsEnrichedSince(now.Add(-bridgeEmailWindow).UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("bridge: load emails: %w", err)
	}
	if len(meetings) == 0 || len(emails) == 0 {
		return 0, nil
	}

	emitted := 0
	for _, m := range meetings {
		attendees, err := e.DB.MeetingAttendees(m.ID)
		if err != nil {
			log.Printf("bridge: attendees for %s: %v", m.ID, err)
			continue
		}
		if len(attendees) == 0 {
			continue
		}

		addresses := make(map[string]bool, len(attendees))
		for _, p := range attendees {
			if p.Email != "" {
				addresses[strings.ToLower(p.Email)] = true
			}
		}

		for _, em := range emails {
			if !addresses[strings.ToLower(em.Sender)] {
				continue
			}

			fresh, err := e.DB.MarkEmail(store.EntityMeeting, m.ID, em.ID, SigPreMeetingContext)
			if err != nil {
				log.Printf("bridge: mark %s/%s: %v", m.ID, em.ID, err)
				continue
			}
			if !fresh {
				continue
			}

			value := bridgeValue(map[string]any{"email_id": em.ID, "summary": em.Summary})
			ctx := "email from " + em.Sender

			if _, _, err := e.EmitAndPropagate(store.EntityMeeting, m.ID, SigPreMeetingContext,
				SourceEmailEnrichment, value, confPreMeetingContext, ctx); err != nil {
				log.Printf("bridge: emit on meeting %s: %v", m.ID, err)
				continue
			}
			emitted++

			// Mirror onto the meeting's entity so account/project views see it.
			if m.EntityType != "" && m.EntityID != "" {
				fresh, err := e.DB.MarkEmail(m.EntityType, m.EntityID, em.ID, SigPreMeetingContext)
				if err != nil || !fresh {
					continue
				}
				if _, err := e.EmitSignalWithContext(m.EntityType, m.EntityID, SigPreMeetingContext,
					SourceEmailEnrichment, value, confPreMeetingContext, ctx); err != nil {
					log.Printf("bridge: mirror on %s/%s: %v", m.EntityType, m.EntityID, err)
					continue
				}
				emitted++
			}
		}
	}

	return emitted, nil
}

// EmitEnrichedEmailSignals broadcasts entity-level signals from all email
// enriched in the last hour with a resolved entity — not only
// meeting-adjacent email. Deduplicated per (entity, email, kind); re-scanning
// the same email set is a no-op. Returns the number of signals emitted.
func (e *Engine) EmitEnrichedEmailSignals() (int, error) {
	now := time.Now()
	emails, err := e.DB.EmailsEnrichedSince(now.Add(-fanoutEmailWindow).UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("email fanout: load emails: %w", err)
	}

	emitted := 0
	for _, em := range emails {
		if em.EntityType == "" || em.EntityID == "" {
			continue
		}

		for _, fact := range emailFacts(em) {
			emitted += e.emitEmailFact(em, em.EntityType, em.EntityID, fact.signalType, fact.confidence, fact.value, "")
			if em.EntityType != store.EntityPerson {
				continue
			}

			// Person-level facts also land on every linked account, attenuated
			// and tagged with the originating person. Each account dedups on
			// its own mark, so accounts linked after an earlier scan still
			// receive the mirror.
			accounts, err := e.DB.AccountsForPerson(em.EntityID)
			if err != nil {
				log.Printf("email fanout: accounts for %s: %v", em.EntityID, err)
				continue
			}
			for _, a := range accounts {
				emitted += e.emitEmailFact(em, store.EntityAccount, a.ID,
					fact.signalType, fact.confidence*accountAttenuation, fact.value, em.EntityID)
			}
		}
	}

	return emitted, nil
}

type emailFact struct {
	signalType string
	confidence float64
	value      string
}

// emailFacts derives the signal-worthy facts from one enriched email.
func emailFacts(em store.Email) []emailFact {
	var facts []emailFact

	if em.Sentiment != "" && em.Sentiment != store.SentimentNeutral {
		facts = append(facts, emailFact{
			signalType: SigEmailSentiment,
			confidence: confEmailSentiment,
			value:      bridgeValue(map[string]any{"email_id": em.ID, "sentiment": em.Sentiment}),
		})
	}

	if hasCommitmentPhrase(em.Summary) {
		facts = append(facts, emailFact{
			signalType: SigEmailCommitment,
			confidence: confEmailCommitment,
			value:      bridgeValue(map[string]any{"email_id": em.ID, "summary": em.Summary}),
		})
	}

	if em.Urgency == store.UrgencyHigh {
		facts = append(facts, emailFact{
			signalType: SigEmailUrgencyHigh,
			confidence: confEmailUrgency,
			value:      bridgeValue(map[string]any{"email_id": em.ID}),
		})
	}

	return facts
}

// emitEmailFact emits one fact for one entity with per-(entity, email, kind)
// dedup. Returns 1 when a signal was emitted, 0 otherwise.
func (e *Engine) emitEmailFact(em store.Email, entityType, entityID, signalType string, confidence float64, value, fromPerson string) int {
	fresh, err := e.DB.MarkEmail(entityType, entityID, em.ID, signalType)
	if err != nil {
		log.Printf("email fanout: mark %s/%s: %v", entityType, entityID, err)
		return 0
	}
	if !fresh {
		return 0
	}

	ctx := "email from " + em.Sender
	if fromPerson != "" {
		ctx = "via person " + fromPerson
	}

	if _, err := e.EmitSignalWithContext(entityType, entityID, signalType,
		SourceEmailEnrichment, value, confidence, ctx); err != nil {
		log.Printf("email fanout: emit %s on %s/%s: %v", signalType, entityType, entityID, err)
		return 0
	}
	return 1
}

func hasCommitmentPhrase(summary string) bool {
	if summary == "" {
		return false
	}
	lower := strings.ToLower(summary)
	for _, phrase := range commitmentPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func bridgeValue(v map[string]any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
