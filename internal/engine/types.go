package engine

// Signal sources. Unknown sources are accepted for storage but carry zero
// weight in reliability scoring.
const (
	SourceUserCorrection  = "user_correction"
	SourceTranscript      = "transcript"
	SourceNotes           = "notes"
	SourceAttendee        = "attendee"
	SourceClay            = "clay"
	SourceGravatar        = "gravatar"
	SourcePropagation     = "propagation"
	SourceEmailEnrichment = "email_enrichment"
	SourceKeyword         = "keyword"
)

// Signal types used by producers, rules, and consumers. The set is open:
// unrecognized types are stored and rendered via a generic fallback.
const (
	SigTitleChange            = "title_change"
	SigCompanyChange          = "company_change"
	SigStakeholderChange      = "stakeholder_change"
	SigNegativeSentiment      = "negative_sentiment"
	SigChampionRisk           = "champion_risk"
	SigRenewalProximity       = "renewal_proximity"
	SigRenewalAtRisk          = "renewal_at_risk"
	SigRenewalRiskEscalation  = "renewal_risk_escalation"
	SigProactiveActionCluster = "proactive_action_cluster"
	SigProjectHealthWarning   = "project_health_warning"
	SigEngagementWarning      = "engagement_warning"
	SigMeetingFrequencyDrop   = "meeting_frequency_drop"
	SigPreMeetingContext      = "pre_meeting_context"
	SigEmailSentiment         = "email_sentiment"
	SigEmailCommitment        = "email_commitment"
	SigEmailUrgencyHigh       = "email_urgency_high"
	SigPostMeetingSummary     = "post_meeting_summary"
	SigProactiveRenewalGap    = "proactive_renewal_gap"
	SigPersonCreated          = "person_created"
	SigSenderNameResolved     = "sender_name_resolved"
	SigEntityResolution       = "entity_resolution"
)

// DerivedSignal is the in-memory production of a propagation rule. It is
// immediately persisted as a SignalEvent with source "propagation".
type DerivedSignal struct {
	EntityType string
	EntityID   string
	SignalType string
	Value      string
	Confidence float64
}
