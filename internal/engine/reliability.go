package engine

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/jamesgiroux/daily-operating-system-sub001/internal/store"
)

// minReliabilitySamples gates the learned estimate: below this many recorded
// outcomes the prior 0.5 is returned instead of a Beta draw.
const minReliabilitySamples = 5

// sourcePrior holds the static trust prior for a source string.
type sourcePrior struct {
	weight   float64
	halfLife int // days
}

// sourcePriors seeds new signals' decay half-life at emission time and
// provides the base trust weight before any outcomes are learned.
var sourcePriors = map[string]sourcePrior{
	SourceUserCorrection:  {1.0, 365},
	SourceTranscript:      {0.9, 60},
	SourceNotes:           {0.9, 60},
	SourceAttendee:        {0.8, 120},
	SourcePropagation:     {0.75, 45},
	SourceEmailEnrichment: {0.7, 30},
	SourceClay:            {0.6, 90},
	SourceGravatar:        {0.6, 90},
	SourceKeyword:         {0.4, 7},
}

// SourceBaseWeight returns the static prior trust weight for a source.
// Unknown sources weigh 0 so they never influence reliability-ranked
// consumers, even though their signals are stored.
func SourceBaseWeight(source string) float64 {
	if p, ok := sourcePriors[source]; ok {
		return p.weight
	}
	return 0
}

// DefaultHalfLife returns the decay half-life in days for a source.
// Unknown sources get a conservative 30 days.
func DefaultHalfLife(source string) int {
	if p, ok := sourcePriors[source]; ok {
		return p.halfLife
	}
	return 30
}

// LearnedReliability returns a reliability sample in [0,1] for a
// (source, entityType, signalType) triple.
//
// Until minReliabilitySamples outcomes have accumulated the estimate is the
// uninformative prior 0.5. Afterwards each call draws fresh from
// Beta(alpha, beta) — Thompson sampling, intentionally stochastic so that
// ranking consumers keep exploring under-sampled sources.
func (e *Engine) LearnedReliability(source, entityType, signalType string) (float64, error) {
	w, err := e.DB.GetSourceWeight(source, entityType, signalType)
	if err != nil {
		return 0, fmt.Errorf("learned reliability: %w", err)
	}
	if w == nil || w.UpdateCount < minReliabilitySamples {
		return 0.5, nil
	}

	beta := distuv.Beta{Alpha: w.Alpha, Beta: w.Beta, Src: e.rand}
	return beta.Rand(), nil
}

// RecordOutcome updates the learned reliability for a triple from a
// confirmed or contradicted prediction: +1 alpha on confirmation, +1 beta on
// contradiction. This is the write-path counterpart to LearnedReliability.
func (e *Engine) RecordOutcome(source, entityType, signalType string, confirmed bool) error {
	w, err := e.DB.GetSourceWeight(source, entityType, signalType)
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	if w == nil {
		w = &store.SourceWeight{
			Source:     source,
			EntityType: entityType,
			SignalType: signalType,
			Alpha:      1.0,
			Beta:       1.0,
		}
	}

	if confirmed {
		w.Alpha++
	} else {
		w.Beta++
	}
	w.UpdateCount++

	if err := e.DB.PutSourceWeight(w); err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	return nil
}

// newRandSource returns a seeded source for Beta draws, or nil to use the
// global source.
func newRandSource(seed uint64) rand.Source {
	if seed == 0 {
		return nil
	}
	return rand.NewSource(seed)
}
