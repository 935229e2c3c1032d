package lifecycle

import (
	"time"

	"github.com/and161185/pet-keeper/internal/model"
)

// Affliction kinds raised by the engine.
const (
	AfflictionIndigestion     = "indigestion"
	AfflictionExhaustion      = "exhaustion"
	AfflictionDrySkin         = "dry_skin"
	AfflictionSleepiness      = "sleepiness"
	AfflictionOvermedication  = "overmedication"
	AfflictionOverstimulation = "overstimulation"
	AfflictionMalnutrition    = "malnutrition"
)

// AddAffliction appends an entry starting at now. Entries of the same kind are not merged.
func AddAffliction(p *model.Pet, kind string, sev model.Severity, d time.Duration, now time.Time) {
	p.Afflictions = append(p.Afflictions, model.Affliction{
		Kind:       kind,
		Severity:   sev,
		StartedAt:  now,
		DurationMs: d.Milliseconds(),
	})
}

// addUntilCured appends an entry that stays active until ClearAll removes it.
func addUntilCured(p *model.Pet, kind string, sev model.Severity, now time.Time) {
	p.Afflictions = append(p.Afflictions, model.Affliction{
		Kind:       kind,
		Severity:   sev,
		StartedAt:  now,
		UntilCured: true,
	})
}

// ActiveAfflictions returns the entries in effect at now, in insertion order.
func ActiveAfflictions(p model.Pet, now time.Time) []model.Affliction {
	var out []model.Affliction
	for _, a := range p.Afflictions {
		if a.ActiveAt(now) {
			out = append(out, a)
		}
	}
	return out
}

// ClearAll removes every entry and returns the kinds that were still active at now.
func ClearAll(p *model.Pet, now time.Time) []string {
	var kinds []string
	for _, a := range p.Afflictions {
		if a.ActiveAt(now) {
			kinds = append(kinds, a.Kind)
		}
	}
	p.Afflictions = nil
	return kinds
}

// pruneExpired drops entries that are no longer active.
func pruneExpired(p *model.Pet, now time.Time) {
	if len(p.Afflictions) == 0 {
		return
	}
	p.Afflictions = ActiveAfflictions(*p, now)
}
