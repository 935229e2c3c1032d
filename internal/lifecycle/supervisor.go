package lifecycle

import (
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/pet-keeper/internal/model"
)

// Activity log actions written by the supervisor and the sleep sub-state.
const (
	LogAdopted = "adopted"
	LogIllness = "illness"
	LogDeath   = "death"
	LogSleep   = "sleep_start"
	LogWake    = "wake"
)

// Adopt returns a freshly created pet with default vitals.
func Adopt(id, userID uuid.UUID, name string, now time.Time) model.Pet {
	p := model.Pet{
		ID:        id,
		UserID:    userID,
		Name:      name,
		Vitals:    model.DefaultVitals(),
		Status:    model.StatusAlive,
		DecayedAt: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	p.Mood = DeriveMood(p)
	appendLog(&p, LogAdopted, now, "welcome home, "+name, model.Delta{})
	return p
}

// supervise applies the death and sickness thresholds and recomputes mood.
// Death wins over sickness; a dead pet is left untouched.
func (e *Engine) supervise(p *model.Pet, now time.Time) {
	if p.IsDead() {
		p.Mood = model.MoodDead
		return
	}
	switch {
	case p.Vitals.Health <= MinVital:
		kill(p, now)
	case p.Vitals.Health < e.tuning.Thresholds.SickHealthBelow && !p.IsSick:
		p.IsSick = true
		p.Status = model.StatusSick
		addUntilCured(p, AfflictionMalnutrition, model.SeveritySevere, now)
		appendLog(p, LogIllness, now, "fell ill from neglect", model.Delta{})
	}
	p.Mood = DeriveMood(*p)
}

func kill(p *model.Pet, now time.Time) {
	t := now
	p.Status = model.StatusDead
	p.DeathAt = &t
	p.IsSick = false
	p.IsSleeping = false
	p.SleepStartedAt = nil
	appendLog(p, LogDeath, now, "passed away", model.Delta{})
}

func appendLog(p *model.Pet, action string, now time.Time, note string, d model.Delta) {
	p.ActivityLog = append(p.ActivityLog, model.ActivityEntry{
		Action:    action,
		Timestamp: now,
		Note:      note,
		Delta:     d,
	})
}
