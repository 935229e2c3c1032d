// Package memory is an in-process PetRepository for development and tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/and161185/pet-keeper/internal/errs"
	"github.com/and161185/pet-keeper/internal/model"
	"github.com/gofrs/uuid/v5"
)

// PetRepo keeps deep copies of pets keyed by id.
type PetRepo struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]model.Pet
	now  func() time.Time
}

// NewPetRepo constructs an empty repository.
func NewPetRepo() *PetRepo {
	return &PetRepo{byID: make(map[uuid.UUID]model.Pet), now: time.Now}
}

// Create inserts p at ver=1.
func (r *PetRepo) Create(ctx context.Context, p *model.Pet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[p.ID]; ok {
		return errs.ErrAlreadyExists
	}
	p.Ver = 1
	r.byID[p.ID] = p.Clone()
	return nil
}

// Get returns a copy of the stored pet.
func (r *PetRepo) Get(ctx context.Context, id uuid.UUID) (*model.Pet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	out := p.Clone()
	return &out, nil
}

// Save replaces the pet if the stored version equals baseVer.
func (r *PetRepo) Save(ctx context.Context, p *model.Pet, baseVer int64) (*model.Pet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byID[p.ID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	if cur.Ver != baseVer {
		return nil, fmt.Errorf("pet %s at ver %d, base %d: %w", p.ID, cur.Ver, baseVer, errs.ErrVersionConflict)
	}
	next := p.Clone()
	next.UserID = cur.UserID
	next.CreatedAt = cur.CreatedAt
	next.Ver = cur.Ver + 1
	next.UpdatedAt = r.now()
	r.byID[p.ID] = next

	out := next.Clone()
	return &out, nil
}

// ListIdle returns non-dead pets whose last care (or creation) is before the cutoff, oldest first.
func (r *PetRepo) ListIdle(ctx context.Context, before time.Time, limit int) ([]uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	type idle struct {
		id   uuid.UUID
		last time.Time
	}
	var found []idle
	for id, p := range r.byID {
		if p.IsDead() {
			continue
		}
		last := p.LastCare.Any
		if last.IsZero() {
			last = p.CreatedAt
		}
		if last.Before(before) {
			found = append(found, idle{id: id, last: last})
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(found, func(a, b idle) int { return a.last.Compare(b.last) })
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	out := make([]uuid.UUID, 0, len(found))
	for _, f := range found {
		out = append(out, f.id)
	}
	return out, nil
}

// ListByOwner returns the user's pet ids, oldest first.
func (r *PetRepo) ListByOwner(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	var owned []model.Pet
	for _, p := range r.byID {
		if p.UserID == userID {
			owned = append(owned, p)
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(owned, func(a, b model.Pet) int { return a.CreatedAt.Compare(b.CreatedAt) })
	out := make([]uuid.UUID, 0, len(owned))
	for _, p := range owned {
		out = append(out, p.ID)
	}
	return out, nil
}
