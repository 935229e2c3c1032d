package lifecycle

import "github.com/and161185/pet-keeper/internal/model"

// DeriveMood computes the display mood. First match wins.
func DeriveMood(p model.Pet) model.Mood {
	v := p.Vitals
	switch {
	case p.Status == model.StatusDead:
		return model.MoodDead
	case p.Status == model.StatusSick || p.IsSick:
		return model.MoodSick
	case p.IsSleeping:
		return model.MoodSleepy
	case v.Hunger > 70:
		return model.MoodHungry
	case v.Cleanliness < 30:
		return model.MoodDirty
	case v.Energy < 20:
		return model.MoodTired
	case v.Happiness > 80 && v.Health > 80:
		return model.MoodExcited
	case v.Happiness < 30:
		return model.MoodSad
	default:
		return model.MoodHappy
	}
}
