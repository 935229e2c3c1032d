package lifecycle

import (
	"math"
	"time"

	"github.com/and161185/pet-keeper/internal/model"
)

// Decay refreshes p to now: passive vital drift, sleep recovery, negligence
// damage, the sickness and death thresholds, expired affliction pruning and mood.
//
// Each vital moves by whole points only. Its drift mark advances by exactly the
// time those points account for, so the leftover fraction carries into the next
// refresh instead of being lost, and no interval is counted twice.
// A dead pet is returned unchanged.
func (e *Engine) Decay(p model.Pet, now time.Time) model.Pet {
	if p.IsDead() {
		return p
	}
	out := p.Clone()
	r := e.tuning.Decay
	v, m := &out.Vitals, &out.Drift
	dr := drifter{now: now, legacy: out.DecayedAt}
	since := func(kind model.ActionKind) time.Time {
		return latest(out.LastCare.Of(kind), out.CreatedAt)
	}

	dr.apply(&v.Hunger, &m.Hunger, since(model.ActionFeed), r.Hunger)
	dr.apply(&v.Happiness, &m.Happiness, since(model.ActionPlay), -r.Happiness)
	dr.apply(&v.Cleanliness, &m.Cleanliness, since(model.ActionBathe), -r.Cleanliness)

	if out.IsSleeping && out.SleepStartedAt != nil {
		from := latest(*out.SleepStartedAt, out.CreatedAt)
		dr.apply(&v.Energy, &m.Energy, from, e.tuning.Sleep.EnergyRecovery)
		dr.apply(&v.Sleep, &m.Sleep, from, e.tuning.Sleep.SleepRecovery)
	} else {
		dr.apply(&v.Energy, &m.Energy, since(model.ActionSleep), -r.Energy)
		dr.apply(&v.Sleep, &m.Sleep, since(model.ActionSleep), -r.Sleep)
	}

	if e.neglected(*v) {
		dr.apply(&v.Health, &m.Health, since(model.ActionFeed), -r.Health)
	} else if now.After(m.Health) {
		m.Health = now
	}

	if now.After(out.DecayedAt) {
		out.DecayedAt = now
	}
	pruneExpired(&out, now)
	e.supervise(&out, now)
	return out
}

func (e *Engine) neglected(v model.Vitals) bool {
	t := e.tuning.Thresholds
	return v.Hunger > t.NeglectHungerAbove ||
		v.Cleanliness < t.NeglectCleanlinessBelow ||
		v.Happiness < t.NeglectHappinessBelow
}

// drifter moves vitals toward now. Pets stored before drift marks existed
// fall back to their last refresh time.
type drifter struct {
	now    time.Time
	legacy time.Time
}

func (d drifter) mark(m time.Time) time.Time {
	if m.IsZero() {
		return d.legacy
	}
	return m
}

// apply adds rate points per hour to *v for the time since the later of *mark
// and from, in whole points, and advances *mark by the time they consumed.
func (d drifter) apply(v *int, mark *time.Time, from time.Time, rate float64) {
	start := latest(d.mark(*mark), from)
	pts := wholePoints(hoursSince(start, d.now) * math.Abs(rate))
	if pts == 0 {
		*mark = start
		return
	}
	*mark = start.Add(pointsDuration(pts, rate))
	if rate < 0 {
		pts = -pts
	}
	*v = clamp(*v + pts)
}

// wholePoints truncates x, tolerating float error just below an integer.
func wholePoints(x float64) int {
	return int(math.Floor(x + 1e-9))
}

// pointsDuration is the time pts points take at rate points per hour.
func pointsDuration(pts int, rate float64) time.Duration {
	return time.Duration(math.Round(float64(pts) / math.Abs(rate) * float64(time.Hour)))
}
