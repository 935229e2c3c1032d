// Package service orchestrates pet operations: ownership, per-pet locking,
// bounded storage calls, the lifecycle engine and progress hooks.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/pet-keeper/internal/errs"
	"github.com/and161185/pet-keeper/internal/hooks"
	"github.com/and161185/pet-keeper/internal/lifecycle"
	"github.com/and161185/pet-keeper/internal/model"
	"github.com/and161185/pet-keeper/internal/repository"
)

const maxNameLen = 64

// Result is the outcome of a pet operation.
type Result struct {
	Pet     model.Pet
	Message string
	Delta   model.Delta
	Tier    lifecycle.Tier
	Cured   []string
}

// PetService defines pet lifecycle operations. Every action takes the caller's
// notion of now; nothing below reads a clock for simulation purposes.
type PetService interface {
	// Adopt creates a pet owned by callerID.
	Adopt(ctx context.Context, callerID uuid.UUID, name string, now time.Time) (*model.Pet, error)
	// List returns ids of the caller's pets.
	List(ctx context.Context, callerID uuid.UUID) ([]uuid.UUID, error)
	// Status refreshes decay and mood without applying an action.
	Status(ctx context.Context, petID, callerID uuid.UUID, now time.Time) (Result, error)
	// Care applies a tiered care action.
	Care(ctx context.Context, petID, callerID uuid.UUID, kind model.ActionKind, now time.Time) (Result, error)
	// StartSleep puts the pet to bed.
	StartSleep(ctx context.Context, petID, callerID uuid.UUID, now time.Time) (Result, error)
	// Wake ends sleep.
	Wake(ctx context.Context, petID, callerID uuid.UUID, now time.Time) (Result, error)
	// History returns up to limit newest activity entries, oldest first.
	History(ctx context.Context, petID, callerID uuid.UUID, limit int) ([]model.ActivityEntry, error)
}

// OwnershipChecker authorizes a caller for a pet.
type OwnershipChecker interface {
	CheckOwner(ctx context.Context, petID, callerID uuid.UUID) error
}

// Locker serializes operations on one pet.
type Locker interface {
	Lock(ctx context.Context, id uuid.UUID) (func(), error)
}

// Notifier receives committed actions.
type Notifier interface {
	Notify(ctx context.Context, ev hooks.Event)
}

// Metrics counts outcomes.
type Metrics interface {
	RecordSuccess(action, tier string)
	RecordRejected(action string)
	RecordConflict()
	RecordFailure()
}

// Options tune PetServiceImpl. Nil collaborators are replaced with defaults.
type Options struct {
	StoreTimeout time.Duration    // default 3s
	LockTimeout  time.Duration    // default 2s
	Owners       OwnershipChecker // default: RepoOwnership over the same repository
	Hooks        Notifier
	Metrics      Metrics
}

// PetServiceImpl implements PetService.
type PetServiceImpl struct {
	repo         repository.PetRepository
	engine       *lifecycle.Engine
	locks        Locker
	owners       OwnershipChecker
	hooks        Notifier
	metrics      Metrics
	storeTimeout time.Duration
	lockTimeout  time.Duration
}

var _ PetService = (*PetServiceImpl)(nil)

// NewPetService constructs PetService.
func NewPetService(repo repository.PetRepository, engine *lifecycle.Engine, locks Locker, opts Options) *PetServiceImpl {
	s := &PetServiceImpl{
		repo:         repo,
		engine:       engine,
		locks:        locks,
		owners:       opts.Owners,
		hooks:        opts.Hooks,
		metrics:      opts.Metrics,
		storeTimeout: opts.StoreTimeout,
		lockTimeout:  opts.LockTimeout,
	}
	if s.storeTimeout <= 0 {
		s.storeTimeout = 3 * time.Second
	}
	if s.lockTimeout <= 0 {
		s.lockTimeout = 2 * time.Second
	}
	if s.owners == nil {
		s.owners = NewRepoOwnership(repo, s.storeTimeout)
	}
	if s.hooks == nil {
		s.hooks = noopNotifier{}
	}
	if s.metrics == nil {
		s.metrics = noopMetrics{}
	}
	return s
}

// Adopt validates the name and stores a fresh pet.
func (s *PetServiceImpl) Adopt(ctx context.Context, callerID uuid.UUID, name string, now time.Time) (*model.Pet, error) {
	if callerID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty caller", errs.ErrValidation)
	}
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLen {
		return nil, fmt.Errorf("%w: name must be 1..%d characters", errs.ErrValidation, maxNameLen)
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	p := lifecycle.Adopt(id, callerID, name, now)
	if err := s.store(ctx, "create pet", func(ctx context.Context) error {
		return s.repo.Create(ctx, &p)
	}); err != nil {
		s.metrics.RecordFailure()
		return nil, err
	}
	s.metrics.RecordSuccess(lifecycle.LogAdopted, "")
	s.hooks.Notify(ctx, hooks.Event{PetID: p.ID, UserID: callerID, Action: lifecycle.LogAdopted, At: now})
	return &p, nil
}

// List returns the caller's pet ids.
func (s *PetServiceImpl) List(ctx context.Context, callerID uuid.UUID) ([]uuid.UUID, error) {
	if callerID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty caller", errs.ErrValidation)
	}
	var ids []uuid.UUID
	err := s.store(ctx, "list pets", func(ctx context.Context) (err error) {
		ids, err = s.repo.ListByOwner(ctx, callerID)
		return err
	})
	return ids, err
}

// Status refreshes the pet. It persists only when the refresh changed lifecycle
// status; otherwise the refresh is recomputed on the next read.
func (s *PetServiceImpl) Status(ctx context.Context, petID, callerID uuid.UUID, now time.Time) (Result, error) {
	if err := s.authorize(ctx, petID, callerID); err != nil {
		return Result{}, err
	}
	unlock, err := s.lock(ctx, petID)
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	cur, err := s.load(ctx, petID)
	if err != nil {
		return Result{}, err
	}
	fresh := s.engine.Decay(*cur, now)
	if fresh.Status != cur.Status {
		saved, err := s.save(ctx, &fresh, cur.Ver)
		if err != nil {
			return Result{}, err
		}
		fresh = *saved
	}
	return Result{Pet: fresh, Message: statusMessage(fresh)}, nil
}

// Care applies a tiered care action.
func (s *PetServiceImpl) Care(ctx context.Context, petID, callerID uuid.UUID, kind model.ActionKind, now time.Time) (Result, error) {
	return s.mutate(ctx, petID, callerID, string(kind), now, func(p model.Pet) (model.Pet, lifecycle.Outcome, error) {
		return s.engine.Care(p, kind, now)
	})
}

// Feed is Care with ActionFeed.
func (s *PetServiceImpl) Feed(ctx context.Context, petID, callerID uuid.UUID, now time.Time) (Result, error) {
	return s.Care(ctx, petID, callerID, model.ActionFeed, now)
}

// Play is Care with ActionPlay.
func (s *PetServiceImpl) Play(ctx context.Context, petID, callerID uuid.UUID, now time.Time) (Result, error) {
	return s.Care(ctx, petID, callerID, model.ActionPlay, now)
}

// Bathe is Care with ActionBathe.
func (s *PetServiceImpl) Bathe(ctx context.Context, petID, callerID uuid.UUID, now time.Time) (Result, error) {
	return s.Care(ctx, petID, callerID, model.ActionBathe, now)
}

// Nap is Care with ActionSleep: a quick rest without entering the sleep sub-state.
func (s *PetServiceImpl) Nap(ctx context.Context, petID, callerID uuid.UUID, now time.Time) (Result, error) {
	return s.Care(ctx, petID, callerID, model.ActionSleep, now)
}

// Cuddle is Care with ActionPet.
func (s *PetServiceImpl) Cuddle(ctx context.Context, petID, callerID uuid.UUID, now time.Time) (Result, error) {
	return s.Care(ctx, petID, callerID, model.ActionPet, now)
}

// Heal is Care with ActionHeal; Result.Cured lists cleared afflictions.
func (s *PetServiceImpl) Heal(ctx context.Context, petID, callerID uuid.UUID, now time.Time) (Result, error) {
	return s.Care(ctx, petID, callerID, model.ActionHeal, now)
}

// StartSleep puts the pet to bed.
func (s *PetServiceImpl) StartSleep(ctx context.Context, petID, callerID uuid.UUID, now time.Time) (Result, error) {
	return s.mutate(ctx, petID, callerID, lifecycle.LogSleep, now, func(p model.Pet) (model.Pet, lifecycle.Outcome, error) {
		return s.engine.StartSleep(p, now)
	})
}

// Wake ends sleep.
func (s *PetServiceImpl) Wake(ctx context.Context, petID, callerID uuid.UUID, now time.Time) (Result, error) {
	return s.mutate(ctx, petID, callerID, lifecycle.LogWake, now, func(p model.Pet) (model.Pet, lifecycle.Outcome, error) {
		return s.engine.Wake(p, now)
	})
}

// History returns up to limit newest entries (all when limit <= 0), oldest first.
func (s *PetServiceImpl) History(ctx context.Context, petID, callerID uuid.UUID, limit int) ([]model.ActivityEntry, error) {
	if err := s.authorize(ctx, petID, callerID); err != nil {
		return nil, err
	}
	p, err := s.load(ctx, petID)
	if err != nil {
		return nil, err
	}
	log := p.ActivityLog
	if limit > 0 && len(log) > limit {
		log = log[len(log)-limit:]
	}
	return append([]model.ActivityEntry(nil), log...), nil
}

type applyFunc func(model.Pet) (model.Pet, lifecycle.Outcome, error)

// mutate runs decay then apply on a private copy under the pet lock and saves
// the result with a version check. When apply fails only a lifecycle status
// change made by the decay refresh is written.
func (s *PetServiceImpl) mutate(ctx context.Context, petID, callerID uuid.UUID, action string, now time.Time, apply applyFunc) (Result, error) {
	if err := s.authorize(ctx, petID, callerID); err != nil {
		return Result{}, err
	}
	res, err := s.mutateLocked(ctx, petID, action, now, apply)
	if err != nil {
		return Result{}, err
	}
	s.metrics.RecordSuccess(action, string(res.Tier))
	s.hooks.Notify(ctx, hooks.Event{
		PetID:  petID,
		UserID: callerID,
		Action: action,
		Tier:   string(res.Tier),
		Delta:  res.Delta,
		At:     now,
	})
	return res, nil
}

func (s *PetServiceImpl) mutateLocked(ctx context.Context, petID uuid.UUID, action string, now time.Time, apply applyFunc) (Result, error) {
	unlock, err := s.lock(ctx, petID)
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	cur, err := s.load(ctx, petID)
	if err != nil {
		return Result{}, err
	}
	fresh := s.engine.Decay(*cur, now)
	next, out, err := apply(fresh)
	if err != nil {
		if errors.Is(err, errs.ErrInvalidAction) {
			s.metrics.RecordRejected(action)
		}
		// A status change from the refresh (illness, death) is kept even
		// though the action itself is rejected.
		if fresh.Status != cur.Status {
			if _, serr := s.save(ctx, &fresh, cur.Ver); serr != nil {
				return Result{}, serr
			}
		}
		return Result{}, err
	}
	saved, err := s.save(ctx, &next, cur.Ver)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Pet:     *saved,
		Message: out.Message,
		Delta:   out.Delta,
		Tier:    out.Tier,
		Cured:   out.Cured,
	}, nil
}

func (s *PetServiceImpl) authorize(ctx context.Context, petID, callerID uuid.UUID) error {
	if petID == uuid.Nil || callerID == uuid.Nil {
		return fmt.Errorf("%w: empty pet or caller id", errs.ErrValidation)
	}
	return s.owners.CheckOwner(ctx, petID, callerID)
}

func (s *PetServiceImpl) lock(ctx context.Context, petID uuid.UUID) (func(), error) {
	lctx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()
	unlock, err := s.locks.Lock(lctx, petID)
	if err != nil {
		s.metrics.RecordFailure()
		return nil, fmt.Errorf("lock pet %s: %w: %w", petID, errs.ErrStorage, err)
	}
	return unlock, nil
}

func (s *PetServiceImpl) load(ctx context.Context, petID uuid.UUID) (*model.Pet, error) {
	var p *model.Pet
	err := s.store(ctx, "load pet", func(ctx context.Context) (err error) {
		p, err = s.repo.Get(ctx, petID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PetServiceImpl) save(ctx context.Context, p *model.Pet, baseVer int64) (*model.Pet, error) {
	var saved *model.Pet
	err := s.store(ctx, "save pet", func(ctx context.Context) (err error) {
		saved, err = s.repo.Save(ctx, p, baseVer)
		return err
	})
	if err != nil {
		if errors.Is(err, errs.ErrVersionConflict) {
			s.metrics.RecordConflict()
		} else {
			s.metrics.RecordFailure()
		}
		return nil, err
	}
	return saved, nil
}

// store bounds fn by the storage timeout. Not-found and duplicate errors pass
// through; everything else becomes a retryable ErrStorage.
func (s *PetServiceImpl) store(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	err := fn(sctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errs.ErrNotFound), errors.Is(err, errs.ErrAlreadyExists):
		return err
	default:
		return fmt.Errorf("%s: %w: %w", op, errs.ErrStorage, err)
	}
}

func statusMessage(p model.Pet) string {
	switch p.Status {
	case model.StatusDead:
		return p.Name + " has passed away."
	case model.StatusSick:
		return p.Name + " is sick and needs healing."
	}
	return fmt.Sprintf("%s is %s.", p.Name, p.Mood)
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, hooks.Event) {}

type noopMetrics struct{}

func (noopMetrics) RecordSuccess(string, string) {}
func (noopMetrics) RecordRejected(string)        {}
func (noopMetrics) RecordConflict()              {}
func (noopMetrics) RecordFailure()               {}
