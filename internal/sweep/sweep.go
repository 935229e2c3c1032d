// Package sweep proactively applies passive decay to pets nobody has touched
// for a while, so neglect turns into sickness or death without a client poll.
package sweep

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/and161185/pet-keeper/internal/lifecycle"
	"github.com/and161185/pet-keeper/internal/repository"
)

// TryLocker acquires a per-pet lock only if it is free.
type TryLocker interface {
	TryLock(id uuid.UUID) (func(), bool)
}

// Stats summarizes one pass.
type Stats struct {
	Scanned   int
	Refreshed int
	Skipped   int
	Failed    int
}

// Config tunes a Sweeper. Zero values select defaults.
type Config struct {
	Interval     time.Duration // default 1h
	IdleFor      time.Duration // default 1h
	Batch        int           // default 500
	Workers      int           // default 4
	StoreTimeout time.Duration // default 3s
}

// Sweeper refreshes idle pets.
type Sweeper struct {
	repo   repository.PetRepository
	engine *lifecycle.Engine
	locks  TryLocker
	log    *zap.Logger
	cfg    Config
	clock  func() time.Time
}

// New constructs a Sweeper.
func New(repo repository.PetRepository, engine *lifecycle.Engine, locks TryLocker, log *zap.Logger, cfg Config) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.IdleFor <= 0 {
		cfg.IdleFor = time.Hour
	}
	if cfg.Batch <= 0 {
		cfg.Batch = 500
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 3 * time.Second
	}
	return &Sweeper{repo: repo, engine: engine, locks: locks, log: log, cfg: cfg, clock: time.Now}
}

// Run sweeps every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	t := time.NewTicker(s.cfg.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if _, err := s.RunOnce(ctx, s.clock()); err != nil {
				s.log.Warn("sweep pass aborted", zap.Error(err))
			}
		}
	}
}

// RunOnce refreshes up to Batch idle pets as of now. Pets locked by an
// in-flight action are skipped. Per-pet failures are counted, not returned.
func (s *Sweeper) RunOnce(ctx context.Context, now time.Time) (Stats, error) {
	lctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	ids, err := s.repo.ListIdle(lctx, now.Add(-s.cfg.IdleFor), s.cfg.Batch)
	cancel()
	if err != nil {
		return Stats{}, err
	}

	var refreshed, skipped, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for _, id := range ids {
		g.Go(func() error {
			switch ok, err := s.refresh(gctx, id, now); {
			case err != nil:
				failed.Add(1)
				s.log.Warn("sweep refresh failed", zap.Stringer("pet_id", id), zap.Error(err))
			case !ok:
				skipped.Add(1)
			default:
				refreshed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	st := Stats{
		Scanned:   len(ids),
		Refreshed: int(refreshed.Load()),
		Skipped:   int(skipped.Load()),
		Failed:    int(failed.Load()),
	}
	s.log.Info("sweep pass",
		zap.Int("scanned", st.Scanned),
		zap.Int("refreshed", st.Refreshed),
		zap.Int("skipped", st.Skipped),
		zap.Int("failed", st.Failed),
	)
	return st, nil
}

// refresh reports false when the pet was locked or already dead.
func (s *Sweeper) refresh(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	unlock, ok := s.locks.TryLock(id)
	if !ok {
		return false, nil
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	cur, err := s.repo.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if cur.IsDead() {
		return false, nil
	}
	next := s.engine.Decay(*cur, now)
	if _, err := s.repo.Save(ctx, &next, cur.Ver); err != nil {
		return false, err
	}
	return true, nil
}
