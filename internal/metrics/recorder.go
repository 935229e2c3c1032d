// Package metrics keeps in-process counters of pet actions for the ops endpoint.
package metrics

import (
	"context"
	"sync"

	"github.com/and161185/pet-keeper/internal/hooks"
)

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	ActionTotal    uint64            `json:"action_total"`
	ActionSuccess  uint64            `json:"action_success"`
	ActionRejected uint64            `json:"action_rejected"`
	ActionConflict uint64            `json:"action_conflict"`
	ActionFailure  uint64            `json:"action_failure"`
	ByActionTier   map[string]uint64 `json:"by_action_tier"`
	ProgressEvents uint64            `json:"progress_events"`
}

// Recorder counts outcomes. It also serves as a progress hook.
type Recorder struct {
	mu       sync.Mutex
	success  uint64
	rejected uint64
	conflict uint64
	failure  uint64
	progress uint64
	byTier   map[string]uint64
}

// NewRecorder constructs an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{byTier: map[string]uint64{}}
}

// RecordSuccess counts a committed action; tier may be empty.
func (r *Recorder) RecordSuccess(action, tier string) {
	key := action
	if tier != "" {
		key += "/" + tier
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.success++
	r.byTier[key]++
}

// RecordRejected counts an action refused by its preconditions.
func (r *Recorder) RecordRejected(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected++
}

// RecordConflict counts a lost optimistic-concurrency race.
func (r *Recorder) RecordConflict() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conflict++
}

// RecordFailure counts a storage or lock failure.
func (r *Recorder) RecordFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failure++
}

// Name implements hooks.Hook.
func (r *Recorder) Name() string { return "metrics" }

// OnProgress implements hooks.Hook.
func (r *Recorder) OnProgress(context.Context, hooks.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress++
	return nil
}

// Snapshot copies the counters.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := Snapshot{
		ActionSuccess:  r.success,
		ActionRejected: r.rejected,
		ActionConflict: r.conflict,
		ActionFailure:  r.failure,
		ActionTotal:    r.success + r.rejected + r.conflict + r.failure,
		ByActionTier:   make(map[string]uint64, len(r.byTier)),
		ProgressEvents: r.progress,
	}
	for k, v := range r.byTier {
		out.ByActionTier[k] = v
	}
	return out
}
