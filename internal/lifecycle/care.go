package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/and161185/pet-keeper/internal/errs"
	"github.com/and161185/pet-keeper/internal/model"
)

// Heal cure bonus, added on top of the tier when any affliction was cleared.
var cureBonus = model.Delta{Health: 20, Happiness: 15}

// Outcome describes the effect of one successful mutation.
type Outcome struct {
	Action  string
	Tier    Tier // empty for sleep start/wake
	Message string
	Delta   model.Delta
	Cured   []string // affliction kinds cleared by heal
	Added   string   // affliction kind added by a too-soon tier
}

// Care applies a tiered care action. The input snapshot is never modified;
// on error nothing about the pet changes.
func (e *Engine) Care(p model.Pet, kind model.ActionKind, now time.Time) (model.Pet, Outcome, error) {
	tbl, ok := careTables[kind]
	if !ok {
		return p, Outcome{}, fmt.Errorf("%w: unknown action %q", errs.ErrInvalidAction, kind)
	}
	if p.IsDead() {
		return p, Outcome{}, fmt.Errorf("%w: %s: pet is dead", errs.ErrInvalidAction, kind)
	}
	if kind == model.ActionSleep && p.IsSleeping {
		return p, Outcome{}, fmt.Errorf("%w: sleep: already sleeping", errs.ErrInvalidAction)
	}
	if kind == model.ActionPlay && p.Vitals.Energy < e.tuning.Thresholds.PlayMinEnergy {
		return p, Outcome{}, fmt.Errorf("%w: play: energy %d below %d",
			errs.ErrInvalidAction, p.Vitals.Energy, e.tuning.Thresholds.PlayMinEnergy)
	}

	out := p.Clone()
	var elapsed time.Duration
	if last := out.LastCare.Of(kind); !last.IsZero() && now.After(last) {
		elapsed = now.Sub(last)
	}
	tier := tbl.pick(elapsed)
	eff := tbl.effects[tier]
	res := Outcome{Action: string(kind), Tier: tier, Message: eff.message, Delta: eff.delta}

	if kind == model.ActionHeal {
		if cured := ClearAll(&out, now); len(cured) > 0 {
			res.Cured = cured
			res.Delta = addDelta(res.Delta, cureBonus)
			if out.Status == model.StatusSick {
				out.Status = model.StatusAlive
				out.IsSick = false
			}
			res.Message += " Cured: " + strings.Join(cured, ", ") + "."
		}
	}

	applyDelta(&out.Vitals, res.Delta)
	if tier == TierTooSoon {
		AddAffliction(&out, tbl.penalty.kind, tbl.penalty.severity, tbl.penalty.duration, now)
		res.Added = tbl.penalty.kind
	}
	out.LastCare.Touch(kind, now)
	appendLog(&out, string(kind), now, res.Message, res.Delta)
	e.supervise(&out, now)
	return out, res, nil
}
