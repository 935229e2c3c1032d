// Package hooks fans successful pet actions out to downstream progress collaborators
// (achievements, missions, events). Their failures never reach the caller.
package hooks

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/pet-keeper/internal/model"
)

// Event reports one committed action and its magnitude.
type Event struct {
	PetID  uuid.UUID
	UserID uuid.UUID
	Action string
	Tier   string
	Delta  model.Delta
	At     time.Time
}

// Hook receives progress events.
type Hook interface {
	Name() string
	OnProgress(ctx context.Context, ev Event) error
}

// HookFunc adapts a function to Hook.
type HookFunc struct {
	ID string
	Fn func(ctx context.Context, ev Event) error
}

// Name returns the hook id used in logs.
func (h HookFunc) Name() string { return h.ID }

// OnProgress calls Fn.
func (h HookFunc) OnProgress(ctx context.Context, ev Event) error { return h.Fn(ctx, ev) }

// Dispatcher calls every hook in order with a per-hook timeout.
type Dispatcher struct {
	log     *zap.Logger
	timeout time.Duration
	hooks   []Hook
}

// NewDispatcher constructs a Dispatcher. timeout <= 0 means one second.
func NewDispatcher(log *zap.Logger, timeout time.Duration, hooks ...Hook) *Dispatcher {
	if timeout <= 0 {
		timeout = time.Second
	}
	return &Dispatcher{log: log, timeout: timeout, hooks: hooks}
}

// Notify delivers ev to all hooks. Errors and panics are logged and dropped.
// Delivery is detached from ctx cancellation: the action has already committed.
func (d *Dispatcher) Notify(ctx context.Context, ev Event) {
	base := context.WithoutCancel(ctx)
	for _, h := range d.hooks {
		if err := d.call(base, h, ev); err != nil {
			d.log.Warn("progress hook failed",
				zap.String("hook", h.Name()),
				zap.String("pet", ev.PetID.String()),
				zap.String("action", ev.Action),
				zap.Error(err),
			)
		}
	}
}

func (d *Dispatcher) call(ctx context.Context, h Hook, ev Event) (err error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.OnProgress(ctx, ev)
}
