package engine

import (
	"math"
	"time"

	"github.com/jamesgiroux/daily-operating-system-sub001/internal/store"
)

// EffectiveConfidence computes a signal's current weight from its stored
// confidence, its age, and its half-life. Decay is interpretation only —
// stored rows are never mutated.
//
//	effective = confidence * 0.5^(ageDays / halfLifeDays)
func EffectiveConfidence(confidence float64, age time.Duration, halfLifeDays int) float64 {
	if halfLifeDays <= 0 || age <= 0 {
		return confidence
	}
	ageDays := age.Hours() / 24
	return confidence * math.Pow(0.5, ageDays/float64(halfLifeDays))
}

// SignalWeight returns the decayed weight of a stored signal as of now.
func SignalWeight(sig store.SignalEvent, now time.Time) float64 {
	age := now.Sub(time.UnixMilli(sig.CreatedAt))
	return EffectiveConfidence(sig.Confidence, age, sig.HalfLifeDays)
}
