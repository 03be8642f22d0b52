package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/jamesgiroux/daily-operating-system-sub001/internal/store"
)

const (
	defaultCalloutWindow  = 24 * time.Hour
	defaultCalloutFloor   = 0.55
	severityCriticalFloor = 0.85
	severityWarningFloor  = 0.70
)

// DefaultCalloutTypes returns the allow-list of briefing-worthy signal types.
func DefaultCalloutTypes() []string {
	return []string{
		SigStakeholderChange,
		SigChampionRisk,
		SigRenewalAtRisk,
		SigRenewalRiskEscalation,
		SigEngagementWarning,
		SigProjectHealthWarning,
		SigPostMeetingSummary,
		SigProactiveActionCluster,
		SigProactiveRenewalGap,
	}
}

// CalloutOpts controls callout synthesis.
type CalloutOpts struct {
	Window        time.Duration // lookback, default 24h
	MinConfidence float64       // floor, default 0.55
	MeetingTitles []string      // today's meetings, used for reranking
}

func (o CalloutOpts) window() time.Duration {
	if o.Window <= 0 {
		return defaultCalloutWindow
	}
	return o.Window
}

func (o CalloutOpts) floor() float64 {
	if o.MinConfidence <= 0 {
		return defaultCalloutFloor
	}
	return o.MinConfidence
}

// GenerateCallouts turns recent high-confidence signals into ranked,
// deduplicated briefing items. Signals outside the allow-list or below the
// confidence floor are skipped. When an embedder and today's meeting titles
// are available, items are reranked by semantic relevance to those titles;
// otherwise recency order is preserved. Re-running on the same signal set
// writes nothing new.
func (e *Engine) GenerateCallouts(ctx context.Context, opts CalloutOpts) ([]store.Callout, error) {
	var types []string
	for t := range e.calloutTypes {
		types = append(types, t)
	}

	since := time.Now().Add(-opts.window()).UnixMilli()
	signals, err := e.DB.RecentActiveSignalsByTypes(types, since)
	if err != nil {
		return nil, fmt.Errorf("generate callouts: %w", err)
	}

	floor := opts.floor()
	var kept []store.SignalEvent
	for _, s := range signals {
		if s.Confidence >= floor {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return nil, nil
	}

	relevance := e.rankRelevance(ctx, kept, opts.MeetingTitles)

	var callouts []store.Callout
	for i, sig := range kept {
		name, err := e.DB.EntityName(sig.EntityType, sig.EntityID)
		if err != nil {
			log.Printf("callouts: resolve %s/%s: %v", sig.EntityType, sig.EntityID, err)
		}

		headline, detail := renderCallout(sig, name)
		c := store.Callout{
			SignalID:   sig.ID,
			Severity:   severityFor(sig.Confidence),
			Headline:   headline,
			Detail:     detail,
			EntityType: sig.EntityType,
			EntityID:   sig.EntityID,
			EntityName: name,
			Relevance:  relevance[i],
		}

		if _, err := e.DB.InsertCalloutIfAbsent(&c); err != nil {
			log.Printf("callouts: persist for signal %s: %v", sig.ID, err)
			continue
		}
		callouts = append(callouts, c)
	}

	// Critical first, then warning, then info; relevance breaks ties.
	sort.SliceStable(callouts, func(i, j int) bool {
		ri, rj := severityRank(callouts[i].Severity), severityRank(callouts[j].Severity)
		if ri != rj {
			return ri < rj
		}
		return callouts[i].Relevance > callouts[j].Relevance
	})

	return callouts, nil
}

// rankRelevance scores each signal's rendered text against today's meeting
// titles. Missing embedder or titles degrades to zero scores (recency order).
func (e *Engine) rankRelevance(ctx context.Context, signals []store.SignalEvent, titles []string) []float64 {
	scores := make([]float64, len(signals))
	if e.Embedder == nil || len(titles) == 0 {
		return scores
	}

	titleVecs := make([][]float64, 0, len(titles))
	for _, t := range titles {
		vec, err := e.Embedder.Embed(ctx, t)
		if err != nil {
			log.Printf("callouts: embed title %q: %v", t, err)
			continue
		}
		titleVecs = append(titleVecs, vec)
	}
	if len(titleVecs) == 0 {
		return scores
	}

	for i, sig := range signals {
		headline, detail := renderCallout(sig, "")
		vec, err := e.Embedder.Embed(ctx, headline+" "+detail)
		if err != nil {
			log.Printf("callouts: embed signal %s: %v", sig.ID, err)
			continue
		}
		best := 0.0
		for _, tv := range titleVecs {
			if sim := CosineSimilarity(vec, tv); sim > best {
				best = sim
			}
		}
		scores[i] = best
	}
	return scores
}

// severityFor classifies purely from confidence.
func severityFor(confidence float64) string {
	switch {
	case confidence >= severityCriticalFloor:
		return store.SeverityCritical
	case confidence >= severityWarningFloor:
		return store.SeverityWarning
	default:
		return store.SeverityInfo
	}
}

func severityRank(severity string) int {
	switch severity {
	case store.SeverityCritical:
		return 0
	case store.SeverityWarning:
		return 1
	default:
		return 2
	}
}

// renderCallout produces headline and detail text for a signal via its
// per-type template. Unknown types fall back to a generic rendering, so any
// future signal type degrades gracefully.
func renderCallout(sig store.SignalEvent, entityName string) (string, string) {
	v := payload(sig.Value)
	name := entityName
	if name == "" {
		name = sig.EntityID
	}

	switch sig.SignalType {
	case SigRenewalRiskEscalation:
		return "Renewal risk: champion departure",
			fmt.Sprintf("%s renews in %sd — champion changed companies", name, num(v, "renewal_in_days"))
	case SigProactiveRenewalGap:
		return "Renewal approaching with no QBR",
			fmt.Sprintf("%s renews in %sd — no executive contact in %sd", name, num(v, "days"), num(v, "gap"))
	case SigStakeholderChange:
		return fmt.Sprintf("Stakeholder change at %s", name),
			fmt.Sprintf("Contact %s reported a %s", str(v, "person_id"), str(v, "change"))
	case SigChampionRisk:
		return fmt.Sprintf("Champion risk at %s", name),
			fmt.Sprintf("Champion %s showed negative sentiment", str(v, "person_id"))
	case SigRenewalAtRisk:
		return fmt.Sprintf("Renewal at risk: %s", name),
			fmt.Sprintf("No meeting in %sd with renewal approaching", num(v, "meeting_gap_days"))
	case SigProjectHealthWarning:
		return fmt.Sprintf("Project health warning: %s", name),
			fmt.Sprintf("%s overdue actions outstanding", num(v, "overdue_actions"))
	case SigEngagementWarning:
		return fmt.Sprintf("Engagement dropping at %s", name),
			"Meeting frequency fell below the usual cadence"
	case SigPostMeetingSummary:
		return fmt.Sprintf("Post-meeting follow-ups: %s", name),
			str(v, "summary")
	case SigProactiveActionCluster:
		return fmt.Sprintf("Action cluster on %s", name),
			fmt.Sprintf("%s related actions need attention", num(v, "count"))
	default:
		return fmt.Sprintf("Signal: %s", sig.SignalType),
			fmt.Sprintf("%s on %s (%s)", sig.SignalType, name, sig.Source)
	}
}

func payload(value string) map[string]any {
	if value == "" {
		return nil
	}
	var v map[string]any
	if err := json.Unmarshal([]byte(value), &v); err != nil {
		return nil
	}
	return v
}

func str(v map[string]any, key string) string {
	if s, ok := v[key].(string); ok {
		return s
	}
	return "?"
}

func num(v map[string]any, key string) string {
	if f, ok := v[key].(float64); ok {
		return fmt.Sprintf("%.0f", f)
	}
	return "?"
}
