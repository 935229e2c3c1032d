// Package lifecycle implements the pet simulation: passive decay, afflictions,
// tiered care actions, the sleep sub-state and the illness/death state machine.
//
// Every function takes an explicit snapshot and the current time and returns a
// new snapshot; nothing here reads a clock, logs, or touches storage.
package lifecycle

import (
	"errors"
	"fmt"
)

// DecayRates are hourly rates of passive change.
type DecayRates struct {
	Hunger      float64 `yaml:"hunger"`      // increase
	Happiness   float64 `yaml:"happiness"`   // decrease
	Energy      float64 `yaml:"energy"`      // decrease
	Cleanliness float64 `yaml:"cleanliness"` // decrease
	Sleep       float64 `yaml:"sleep"`       // decrease
	Health      float64 `yaml:"health"`      // decrease while neglected
}

// SleepRates drive recovery while asleep and the lump grant on waking.
type SleepRates struct {
	EnergyRecovery float64 `yaml:"energy_recovery"` // per hour while asleep
	SleepRecovery  float64 `yaml:"sleep_recovery"`  // per hour while asleep
	WakeEnergy     float64 `yaml:"wake_energy"`     // per hour slept, granted on wake
	WakeSleep      float64 `yaml:"wake_sleep"`      // per hour slept, granted on wake
}

// Thresholds gate negligence, sickness and play.
type Thresholds struct {
	NeglectHungerAbove      int `yaml:"neglect_hunger_above"`
	NeglectCleanlinessBelow int `yaml:"neglect_cleanliness_below"`
	NeglectHappinessBelow   int `yaml:"neglect_happiness_below"`
	SickHealthBelow         int `yaml:"sick_health_below"`
	PlayMinEnergy           int `yaml:"play_min_energy"`
}

// Tuning is the full set of simulation parameters.
type Tuning struct {
	Decay      DecayRates `yaml:"decay"`
	Sleep      SleepRates `yaml:"sleep"`
	Thresholds Thresholds `yaml:"thresholds"`
}

// DefaultTuning mirrors config/defaults.yaml.
func DefaultTuning() Tuning {
	return Tuning{
		Decay: DecayRates{
			Hunger:      4,
			Happiness:   2,
			Energy:      3,
			Cleanliness: 3,
			Sleep:       2,
			Health:      5,
		},
		Sleep: SleepRates{
			EnergyRecovery: 8,
			SleepRecovery:  12,
			WakeEnergy:     10,
			WakeSleep:      15,
		},
		Thresholds: Thresholds{
			NeglectHungerAbove:      80,
			NeglectCleanlinessBelow: 20,
			NeglectHappinessBelow:   20,
			SickHealthBelow:         30,
			PlayMinEnergy:           20,
		},
	}
}

// Validate rejects negative rates and thresholds outside [0,100].
func (t Tuning) Validate() error {
	rates := map[string]float64{
		"decay.hunger":          t.Decay.Hunger,
		"decay.happiness":       t.Decay.Happiness,
		"decay.energy":          t.Decay.Energy,
		"decay.cleanliness":     t.Decay.Cleanliness,
		"decay.sleep":           t.Decay.Sleep,
		"decay.health":          t.Decay.Health,
		"sleep.energy_recovery": t.Sleep.EnergyRecovery,
		"sleep.sleep_recovery":  t.Sleep.SleepRecovery,
		"sleep.wake_energy":     t.Sleep.WakeEnergy,
		"sleep.wake_sleep":      t.Sleep.WakeSleep,
	}
	var errList []error
	for name, v := range rates {
		if v < 0 {
			errList = append(errList, fmt.Errorf("%s: negative rate %v", name, v))
		}
	}
	limits := map[string]int{
		"thresholds.neglect_hunger_above":      t.Thresholds.NeglectHungerAbove,
		"thresholds.neglect_cleanliness_below": t.Thresholds.NeglectCleanlinessBelow,
		"thresholds.neglect_happiness_below":   t.Thresholds.NeglectHappinessBelow,
		"thresholds.sick_health_below":         t.Thresholds.SickHealthBelow,
		"thresholds.play_min_energy":           t.Thresholds.PlayMinEnergy,
	}
	for name, v := range limits {
		if v < MinVital || v > MaxVital {
			errList = append(errList, fmt.Errorf("%s: %d outside [%d,%d]", name, v, MinVital, MaxVital))
		}
	}
	return errors.Join(errList...)
}

// Engine applies the simulation with a fixed tuning.
type Engine struct {
	tuning Tuning
}

// New constructs an Engine.
func New(t Tuning) *Engine {
	return &Engine{tuning: t}
}

// Tuning returns the parameters in effect.
func (e *Engine) Tuning() Tuning { return e.tuning }
