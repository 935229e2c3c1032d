package lifecycle

import (
	"time"

	"github.com/and161185/pet-keeper/internal/model"
)

// Tier is the effect magnitude chosen from the time since the same action last ran.
type Tier string

// Tiers.
const (
	TierTooSoon  Tier = "too_soon"
	TierModerate Tier = "moderate"
	TierIdeal    Tier = "ideal"
)

type effect struct {
	delta   model.Delta
	message string
}

type affliction struct {
	kind     string
	severity model.Severity
	duration time.Duration
}

// tierTable describes one care action. Elapsed below tooSoon selects the
// too-soon tier; up to and including moderate selects moderate; beyond is ideal.
type tierTable struct {
	tooSoon  time.Duration
	moderate time.Duration
	effects  map[Tier]effect
	penalty  affliction // added on the too-soon tier
}

func (t tierTable) pick(elapsed time.Duration) Tier {
	switch {
	case elapsed < t.tooSoon:
		return TierTooSoon
	case elapsed <= t.moderate:
		return TierModerate
	default:
		return TierIdeal
	}
}

var careTables = map[model.ActionKind]tierTable{
	model.ActionFeed: {
		tooSoon:  10 * time.Minute,
		moderate: 30 * time.Minute,
		effects: map[Tier]effect{
			TierTooSoon:  {model.Delta{Health: -10, Happiness: -20, Energy: -5, Hunger: -5}, "Overfed! Your pet has indigestion."},
			TierModerate: {model.Delta{Health: 15, Happiness: 10, Energy: 5, Hunger: -20}, "Your pet nibbled a little."},
			TierIdeal:    {model.Delta{Health: 25, Happiness: 20, Energy: 15, Hunger: -40}, "Your pet enjoyed a hearty meal!"},
		},
		penalty: affliction{AfflictionIndigestion, model.SeverityMild, 30 * time.Minute},
	},
	model.ActionPlay: {
		tooSoon:  5 * time.Minute,
		moderate: 15 * time.Minute,
		effects: map[Tier]effect{
			TierTooSoon:  {model.Delta{Health: -5, Happiness: -10, Energy: -25}, "Too much play! Your pet is exhausted."},
			TierModerate: {model.Delta{Health: 5, Happiness: 20, Energy: -10}, "Your pet had some fun."},
			TierIdeal:    {model.Delta{Health: 10, Happiness: 35, Energy: -5}, "Your pet had a fantastic time playing!"},
		},
		penalty: affliction{AfflictionExhaustion, model.SeverityModerate, 20 * time.Minute},
	},
	model.ActionBathe: {
		tooSoon:  20 * time.Minute,
		moderate: 60 * time.Minute,
		effects: map[Tier]effect{
			TierTooSoon:  {model.Delta{Health: -5, Happiness: -15, Energy: -5, Cleanliness: 5}, "Bathed again? Your pet's skin is drying out."},
			TierModerate: {model.Delta{Health: 15, Happiness: 8, Energy: 3, Cleanliness: 25}, "Your pet got a quick rinse."},
			TierIdeal:    {model.Delta{Health: 25, Happiness: 15, Energy: 8, Cleanliness: 50}, "Your pet is squeaky clean!"},
		},
		penalty: affliction{AfflictionDrySkin, model.SeverityMild, 60 * time.Minute},
	},
	model.ActionSleep: {
		tooSoon:  30 * time.Minute,
		moderate: 60 * time.Minute,
		effects: map[Tier]effect{
			TierTooSoon:  {model.Delta{Health: 5, Happiness: -10, Energy: 20, Sleep: 5}, "Your pet overslept and feels groggy."},
			TierModerate: {model.Delta{Health: 8, Happiness: 3, Energy: 35, Sleep: 15}, "Your pet took a short nap."},
			TierIdeal:    {model.Delta{Health: 15, Happiness: 10, Energy: 60, Sleep: 30}, "Your pet woke up fully refreshed!"},
		},
		penalty: affliction{AfflictionSleepiness, model.SeverityMild, 45 * time.Minute},
	},
	model.ActionHeal: {
		tooSoon:  30 * time.Minute,
		moderate: 60 * time.Minute,
		effects: map[Tier]effect{
			TierTooSoon:  {model.Delta{Health: 10, Happiness: -5, Energy: -10}, "Too much medicine! Your pet feels queasy."},
			TierModerate: {model.Delta{Health: 30, Happiness: 10, Energy: 5}, "Your pet feels a bit better."},
			TierIdeal:    {model.Delta{Health: 50, Happiness: 25, Energy: 20}, "Your pet is feeling great after treatment!"},
		},
		penalty: affliction{AfflictionOvermedication, model.SeverityModerate, 60 * time.Minute},
	},
	model.ActionPet: {
		tooSoon:  2 * time.Minute,
		moderate: 10 * time.Minute,
		effects: map[Tier]effect{
			TierTooSoon:  {model.Delta{Happiness: -5}, "Your pet wants some space."},
			TierModerate: {model.Delta{Happiness: 5}, "Your pet leans into the scratch."},
			TierIdeal:    {model.Delta{Health: 2, Happiness: 10}, "Your pet purrs happily!"},
		},
		penalty: affliction{AfflictionOverstimulation, model.SeverityMild, 5 * time.Minute},
	},
}
