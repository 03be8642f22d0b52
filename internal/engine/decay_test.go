package engine

import (
	"math"
	"testing"
	"time"

	"github.com/jamesgiroux/daily-operating-system-sub001/internal/store"
)

func TestEffectiveConfidence(t *testing.T) {
	cases := []struct {
		name       string
		confidence float64
		age        time.Duration
		halfLife   int
		want       float64
	}{
		{"fresh signal", 0.8, 0, 30, 0.8},
		{"one half-life", 0.8, 30 * 24 * time.Hour, 30, 0.4},
		{"two half-lives", 0.8, 60 * 24 * time.Hour, 30, 0.2},
		{"half a half-life", 1.0, 15 * 24 * time.Hour, 30, math.Pow(0.5, 0.5)},
		{"zero half-life means no decay", 0.8, 100 * 24 * time.Hour, 0, 0.8},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := EffectiveConfidence(tc.confidence, tc.age, tc.halfLife)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("EffectiveConfidence = %f, want %f", got, tc.want)
			}
		})
	}
}

func TestSignalWeight(t *testing.T) {
	now := time.Now()
	sig := store.SignalEvent{
		Confidence:   0.9,
		HalfLifeDays: 60,
		CreatedAt:    now.Add(-60 * 24 * time.Hour).UnixMilli(),
	}

	got := SignalWeight(sig, now)
	if math.Abs(got-0.45) > 1e-6 {
		t.Errorf("SignalWeight = %f, want 0.45", got)
	}
}
