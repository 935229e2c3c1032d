package lifecycle

import (
	"fmt"
	"math"
	"time"

	"github.com/and161185/pet-keeper/internal/errs"
	"github.com/and161185/pet-keeper/internal/model"
)

// StartSleep puts the pet to bed. No tier applies.
func (e *Engine) StartSleep(p model.Pet, now time.Time) (model.Pet, Outcome, error) {
	if p.IsDead() {
		return p, Outcome{}, fmt.Errorf("%w: sleep: pet is dead", errs.ErrInvalidAction)
	}
	if p.IsSleeping {
		return p, Outcome{}, fmt.Errorf("%w: sleep: already sleeping", errs.ErrInvalidAction)
	}

	out := p.Clone()
	t := now
	out.IsSleeping = true
	out.SleepStartedAt = &t
	out.LastCare.Any = now
	res := Outcome{Action: LogSleep, Message: out.Name + " fell asleep."}
	appendLog(&out, LogSleep, now, res.Message, model.Delta{})
	e.supervise(&out, now)
	return out, res, nil
}

// Wake ends sleep and grants energy and sleep per hour slept. The grant is the
// total gain over the sleep: points recovered by decay while asleep are part of it.
func (e *Engine) Wake(p model.Pet, now time.Time) (model.Pet, Outcome, error) {
	if p.IsDead() {
		return p, Outcome{}, fmt.Errorf("%w: wake: pet is dead", errs.ErrInvalidAction)
	}
	if !p.IsSleeping || p.SleepStartedAt == nil {
		return p, Outcome{}, fmt.Errorf("%w: wake: not sleeping", errs.ErrInvalidAction)
	}

	out := p.Clone()
	slept := now.Sub(*out.SleepStartedAt)
	if slept < 0 {
		slept = 0
	}
	h := slept.Hours()
	d := model.Delta{
		Energy: int(math.Round(h * e.tuning.Sleep.WakeEnergy)),
		Sleep:  int(math.Round(h * e.tuning.Sleep.WakeSleep)),
	}
	// Recovery decay already applied during this sleep counts toward the grant.
	start := *out.SleepStartedAt
	dr := drifter{now: now, legacy: out.DecayedAt}
	applyDelta(&out.Vitals, model.Delta{
		Energy: max(0, d.Energy-recovered(start, dr.mark(out.Drift.Energy), e.tuning.Sleep.EnergyRecovery)),
		Sleep:  max(0, d.Sleep-recovered(start, dr.mark(out.Drift.Sleep), e.tuning.Sleep.SleepRecovery)),
	})
	out.IsSleeping = false
	out.SleepStartedAt = nil
	out.LastCare.Touch(model.ActionSleep, now)

	res := Outcome{
		Action:  LogWake,
		Message: fmt.Sprintf("%s woke up after %s.", out.Name, slept.Round(time.Minute)),
		Delta:   d,
	}
	appendLog(&out, LogWake, now, res.Message, d)
	e.supervise(&out, now)
	return out, res, nil
}

// recovered is the points drift has applied between sleep start and mark.
func recovered(start, mark time.Time, rate float64) int {
	return wholePoints(hoursSince(start, mark) * rate)
}
