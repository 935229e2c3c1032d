// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Status is the lifecycle state of a pet. Exactly one holds at a time.
type Status string

// Lifecycle states.
const (
	StatusAlive Status = "alive"
	StatusSick  Status = "sick"
	StatusDead  Status = "dead"
)

// Mood is derived from vitals and state; clients never set it.
type Mood string

// Moods in derivation priority order.
const (
	MoodDead    Mood = "dead"
	MoodSick    Mood = "sick"
	MoodSleepy  Mood = "sleepy"
	MoodHungry  Mood = "hungry"
	MoodDirty   Mood = "dirty"
	MoodTired   Mood = "tired"
	MoodExcited Mood = "excited"
	MoodSad     Mood = "sad"
	MoodHappy   Mood = "happy"
)

// ActionKind names a care interaction with its own cooldown timestamp.
type ActionKind string

// Care action kinds.
const (
	ActionFeed  ActionKind = "feed"
	ActionPlay  ActionKind = "play"
	ActionBathe ActionKind = "bathe"
	ActionSleep ActionKind = "sleep" // quick nap; the two-phase sleep uses StartSleep/Wake
	ActionHeal  ActionKind = "heal"
	ActionPet   ActionKind = "pet"
)

// Severity grades an affliction.
type Severity string

// Affliction severities.
const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// Vitals are the six clamped [0,100] attributes. Hunger is inverted: higher is hungrier.
type Vitals struct {
	Health      int `json:"health"`
	Happiness   int `json:"happiness"`
	Hunger      int `json:"hunger"`
	Energy      int `json:"energy"`
	Cleanliness int `json:"cleanliness"`
	Sleep       int `json:"sleep"`
}

// DefaultVitals are assigned at adoption.
func DefaultVitals() Vitals {
	return Vitals{Health: 100, Happiness: 100, Hunger: 0, Energy: 100, Cleanliness: 100, Sleep: 100}
}

// Delta is the structured change summary of a single mutation.
type Delta struct {
	Health      int `json:"health,omitempty"`
	Happiness   int `json:"happiness,omitempty"`
	Hunger      int `json:"hunger,omitempty"`
	Energy      int `json:"energy,omitempty"`
	Cleanliness int `json:"cleanliness,omitempty"`
	Sleep       int `json:"sleep,omitempty"`
}

// IsZero reports whether nothing changed.
func (d Delta) IsZero() bool { return d == Delta{} }

// LastCare holds the last-performed time per action kind. Zero means never.
type LastCare struct {
	Feed  time.Time `json:"feed,omitzero"`
	Play  time.Time `json:"play,omitzero"`
	Bathe time.Time `json:"bathe,omitzero"`
	Sleep time.Time `json:"sleep,omitzero"`
	Heal  time.Time `json:"heal,omitzero"`
	Pet   time.Time `json:"pet,omitzero"`
	Any   time.Time `json:"any,omitzero"` // last care of any kind
}

// Of returns the timestamp for kind.
func (l LastCare) Of(kind ActionKind) time.Time {
	switch kind {
	case ActionFeed:
		return l.Feed
	case ActionPlay:
		return l.Play
	case ActionBathe:
		return l.Bathe
	case ActionSleep:
		return l.Sleep
	case ActionHeal:
		return l.Heal
	case ActionPet:
		return l.Pet
	}
	return time.Time{}
}

// Touch records kind (and the generic care time) at t.
func (l *LastCare) Touch(kind ActionKind, t time.Time) {
	switch kind {
	case ActionFeed:
		l.Feed = t
	case ActionPlay:
		l.Play = t
	case ActionBathe:
		l.Bathe = t
	case ActionSleep:
		l.Sleep = t
	case ActionHeal:
		l.Heal = t
	case ActionPet:
		l.Pet = t
	}
	l.Any = t
}

// Drift marks, per vital, the instant up to which passive drift has been
// applied. Fractions of a point stay behind the mark until they add up.
type Drift struct {
	Health      time.Time `json:"health,omitzero"`
	Happiness   time.Time `json:"happiness,omitzero"`
	Hunger      time.Time `json:"hunger,omitzero"`
	Energy      time.Time `json:"energy,omitzero"`
	Cleanliness time.Time `json:"cleanliness,omitzero"`
	Sleep       time.Time `json:"sleep,omitzero"`
}

// Affliction is a temporary negative status. It is active iff now < StartedAt+DurationMs,
// or until cleared when UntilCured is set.
type Affliction struct {
	Kind       string    `json:"kind"`
	Severity   Severity  `json:"severity"`
	StartedAt  time.Time `json:"startedAt"`
	DurationMs int64     `json:"durationMs"`
	UntilCured bool      `json:"untilCured,omitempty"`
}

// ExpiresAt is the first instant the affliction is no longer active (zero if UntilCured).
func (a Affliction) ExpiresAt() time.Time {
	if a.UntilCured {
		return time.Time{}
	}
	return a.StartedAt.Add(time.Duration(a.DurationMs) * time.Millisecond)
}

// ActiveAt reports whether the affliction is in effect at now.
func (a Affliction) ActiveAt(now time.Time) bool {
	return a.UntilCured || now.Before(a.ExpiresAt())
}

// ActivityEntry is one append-only log record.
type ActivityEntry struct {
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note"`
	Delta     Delta     `json:"delta"`
}

// Pet is the root entity, owned by exactly one user.
type Pet struct {
	ID     uuid.UUID `json:"id"`     // PK
	UserID uuid.UUID `json:"userId"` // owner, immutable
	Name   string    `json:"name"`

	Vitals Vitals `json:"vitals"`
	Mood   Mood   `json:"mood"` // derived

	IsSleeping     bool       `json:"isSleeping"`
	SleepStartedAt *time.Time `json:"sleepStartedAt,omitempty"` // present iff sleeping
	IsSick         bool       `json:"isSick"`
	Status         Status     `json:"status"`
	DeathAt        *time.Time `json:"deathAt,omitempty"` // present iff dead

	LastCare  LastCare  `json:"lastCare"`
	DecayedAt time.Time `json:"decayedAt"` // last decay refresh
	Drift     Drift     `json:"drift"`

	Afflictions []Affliction    `json:"afflictions"`
	ActivityLog []ActivityEntry `json:"activityLog"`

	Ver       int64     `json:"ver"` // optimistic concurrency version (>= 1 once stored)
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a deep copy safe to mutate.
func (p Pet) Clone() Pet {
	out := p
	if p.SleepStartedAt != nil {
		t := *p.SleepStartedAt
		out.SleepStartedAt = &t
	}
	if p.DeathAt != nil {
		t := *p.DeathAt
		out.DeathAt = &t
	}
	out.Afflictions = append([]Affliction(nil), p.Afflictions...)
	out.ActivityLog = append([]ActivityEntry(nil), p.ActivityLog...)
	return out
}

// IsDead reports whether the pet has died.
func (p Pet) IsDead() bool { return p.Status == StatusDead }
