package lifecycle

import (
	"time"

	"github.com/and161185/pet-keeper/internal/model"
)

// Vital bounds.
const (
	MinVital = 0
	MaxVital = 100
)

func clamp(v int) int {
	if v < MinVital {
		return MinVital
	}
	if v > MaxVital {
		return MaxVital
	}
	return v
}

// applyDelta adds d to v with clamping.
func applyDelta(v *model.Vitals, d model.Delta) {
	v.Health = clamp(v.Health + d.Health)
	v.Happiness = clamp(v.Happiness + d.Happiness)
	v.Hunger = clamp(v.Hunger + d.Hunger)
	v.Energy = clamp(v.Energy + d.Energy)
	v.Cleanliness = clamp(v.Cleanliness + d.Cleanliness)
	v.Sleep = clamp(v.Sleep + d.Sleep)
}

func addDelta(a, b model.Delta) model.Delta {
	return model.Delta{
		Health:      a.Health + b.Health,
		Happiness:   a.Happiness + b.Happiness,
		Hunger:      a.Hunger + b.Hunger,
		Energy:      a.Energy + b.Energy,
		Cleanliness: a.Cleanliness + b.Cleanliness,
		Sleep:       a.Sleep + b.Sleep,
	}
}

// InRange reports whether every vital is within [MinVital, MaxVital].
func InRange(v model.Vitals) bool {
	for _, x := range []int{v.Health, v.Happiness, v.Hunger, v.Energy, v.Cleanliness, v.Sleep} {
		if x < MinVital || x > MaxVital {
			return false
		}
	}
	return true
}

func latest(ts ...time.Time) time.Time {
	var out time.Time
	for _, t := range ts {
		if t.After(out) {
			out = t
		}
	}
	return out
}

// hoursSince returns elapsed hours from ref to now, never negative.
func hoursSince(ref, now time.Time) float64 {
	if ref.IsZero() || !now.After(ref) {
		return 0
	}
	return now.Sub(ref).Hours()
}
