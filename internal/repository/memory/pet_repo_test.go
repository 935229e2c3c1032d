package memory

import (
	"context"
	"testing"
	"time"

	"github.com/and161185/pet-keeper/internal/errs"
	"github.com/and161185/pet-keeper/internal/model"
	"github.com/and161185/pet-keeper/internal/repository"
	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
)

var _ repository.PetRepository = (*PetRepo)(nil)

func pet(owner uuid.UUID, created time.Time) *model.Pet {
	return &model.Pet{
		ID:        uuid.Must(uuid.NewV4()),
		UserID:    owner,
		Vitals:    model.DefaultVitals(),
		Status:    model.StatusAlive,
		CreatedAt: created,
	}
}

func TestPetRepo_CreateGetSave(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := NewPetRepo()
	p := pet(uuid.Must(uuid.NewV4()), time.Now())

	require.NoError(t, r.Create(ctx, p))
	require.Equal(t, int64(1), p.Ver)
	require.ErrorIs(t, r.Create(ctx, p), errs.ErrAlreadyExists)

	got, err := r.Get(ctx, p.ID)
	require.NoError(t, err)
	got.Vitals.Health = 10

	saved, err := r.Save(ctx, got, 1)
	require.NoError(t, err)
	require.Equal(t, int64(2), saved.Ver)
	require.Equal(t, 10, saved.Vitals.Health)

	_, err = r.Save(ctx, got, 1)
	require.ErrorIs(t, err, errs.ErrVersionConflict)

	_, err = r.Get(ctx, uuid.Must(uuid.NewV4()))
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestPetRepo_ReturnsCopies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := NewPetRepo()
	p := pet(uuid.Must(uuid.NewV4()), time.Now())
	p.Afflictions = []model.Affliction{{Kind: "indigestion"}}
	require.NoError(t, r.Create(ctx, p))

	got, err := r.Get(ctx, p.ID)
	require.NoError(t, err)
	got.Afflictions[0].Kind = "mutated"

	again, err := r.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, "indigestion", again.Afflictions[0].Kind)
}

func TestPetRepo_ListIdleSkipsDeadAndRecent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := NewPetRepo()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	owner := uuid.Must(uuid.NewV4())

	old := pet(owner, base)
	older := pet(owner, base.Add(-time.Hour))
	dead := pet(owner, base.Add(-2*time.Hour))
	dead.Status = model.StatusDead
	recent := pet(owner, base)
	recent.LastCare.Any = base.Add(3 * time.Hour)
	for _, p := range []*model.Pet{old, older, dead, recent} {
		require.NoError(t, r.Create(ctx, p))
	}

	ids, err := r.ListIdle(ctx, base.Add(2*time.Hour), 0)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{older.ID, old.ID}, ids)

	ids, err = r.ListIdle(ctx, base.Add(2*time.Hour), 1)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{older.ID}, ids)

	owned, err := r.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, owned, 4)
	require.Equal(t, dead.ID, owned[0])
}

func TestPetRepo_HonorsCanceledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewPetRepo().Get(ctx, uuid.Must(uuid.NewV4()))
	require.ErrorIs(t, err, context.Canceled)
}
