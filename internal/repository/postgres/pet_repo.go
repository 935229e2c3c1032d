package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/and161185/pet-keeper/internal/errs"
	"github.com/and161185/pet-keeper/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// PetRepo implements PetRepository using PostgreSQL.
// Afflictions, the activity log and drift marks are stored as JSONB documents on the pet row.
type PetRepo struct{ db *DB }

// NewPetRepo constructs a pet repository.
func NewPetRepo(db *DB) *PetRepo { return &PetRepo{db: db} }

const petColumns = `id, user_id, name,
health, happiness, hunger, energy, cleanliness, sleep,
is_sleeping, sleep_started_at, is_sick, status, death_at,
last_feed_at, last_play_at, last_bathe_at, last_sleep_at, last_heal_at, last_pet_at, last_care_at,
decayed_at, afflictions, activity_log, drift, ver, created_at, updated_at`

// Create inserts a new pet with ver=1.
func (r *PetRepo) Create(ctx context.Context, p *model.Pet) error {
	aff, logs, drift, err := encodeDocs(p)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO pets (` + petColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28)`

	_, err = r.db.Pool.Exec(ctx, q,
		p.ID, p.UserID, p.Name,
		p.Vitals.Health, p.Vitals.Happiness, p.Vitals.Hunger, p.Vitals.Energy, p.Vitals.Cleanliness, p.Vitals.Sleep,
		p.IsSleeping, p.SleepStartedAt, p.IsSick, string(p.Status), p.DeathAt,
		nullTime(p.LastCare.Feed), nullTime(p.LastCare.Play), nullTime(p.LastCare.Bathe),
		nullTime(p.LastCare.Sleep), nullTime(p.LastCare.Heal), nullTime(p.LastCare.Pet), nullTime(p.LastCare.Any),
		p.DecayedAt, aff, logs, drift, int64(1), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errs.ErrAlreadyExists
		}
		return err
	}
	p.Ver = 1
	return nil
}

// Get loads a pet by ID.
func (r *PetRepo) Get(ctx context.Context, id uuid.UUID) (*model.Pet, error) {
	const q = `SELECT ` + petColumns + ` FROM pets WHERE id=$1`
	p, err := scanPet(r.db.Pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// Save writes every mutable column under a row lock if the stored version equals baseVer.
func (r *PetRepo) Save(ctx context.Context, p *model.Pet, baseVer int64) (saved *model.Pet, err error) {
	aff, logs, drift, err := encodeDocs(p)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			saved, err = nil, e
		}
	}()

	const sel = `SELECT ver FROM pets WHERE id=$1 FOR UPDATE`
	const upd = `
UPDATE pets SET
  health=$2, happiness=$3, hunger=$4, energy=$5, cleanliness=$6, sleep=$7,
  is_sleeping=$8, sleep_started_at=$9, is_sick=$10, status=$11, death_at=$12,
  last_feed_at=$13, last_play_at=$14, last_bathe_at=$15, last_sleep_at=$16, last_heal_at=$17, last_pet_at=$18, last_care_at=$19,
  decayed_at=$20, afflictions=$21, activity_log=$22, drift=$23, ver=$24, updated_at=now()
WHERE id=$1
RETURNING updated_at`

	var curVer int64
	if err = tx.QueryRow(ctx, sel, p.ID).Scan(&curVer); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	if curVer != baseVer {
		return nil, fmt.Errorf("pet %s at ver %d, base %d: %w", p.ID, curVer, baseVer, errs.ErrVersionConflict)
	}

	out := p.Clone()
	out.Ver = curVer + 1
	err = tx.QueryRow(ctx, upd,
		p.ID,
		p.Vitals.Health, p.Vitals.Happiness, p.Vitals.Hunger, p.Vitals.Energy, p.Vitals.Cleanliness, p.Vitals.Sleep,
		p.IsSleeping, p.SleepStartedAt, p.IsSick, string(p.Status), p.DeathAt,
		nullTime(p.LastCare.Feed), nullTime(p.LastCare.Play), nullTime(p.LastCare.Bathe),
		nullTime(p.LastCare.Sleep), nullTime(p.LastCare.Heal), nullTime(p.LastCare.Pet), nullTime(p.LastCare.Any),
		p.DecayedAt, aff, logs, drift, out.Ver,
	).Scan(&out.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListIdle returns non-dead pets whose last care (or creation) is before the cutoff.
func (r *PetRepo) ListIdle(ctx context.Context, before time.Time, limit int) ([]uuid.UUID, error) {
	const q = `
SELECT id FROM pets
WHERE status <> 'dead' AND COALESCE(last_care_at, created_at) < $1
ORDER BY COALESCE(last_care_at, created_at) ASC
LIMIT $2`
	return r.listIDs(ctx, q, before, limit)
}

// ListByOwner returns the user's pet ids, oldest first.
func (r *PetRepo) ListByOwner(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	const q = `SELECT id FROM pets WHERE user_id=$1 ORDER BY created_at ASC`
	return r.listIDs(ctx, q, userID)
}

func (r *PetRepo) listIDs(ctx context.Context, q string, args ...any) ([]uuid.UUID, error) {
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func scanPet(row pgx.Row) (*model.Pet, error) {
	var p model.Pet
	var status string
	var feed, play, bathe, sleep, heal, pet, care *time.Time
	var aff, logs, drift []byte
	err := row.Scan(
		&p.ID, &p.UserID, &p.Name,
		&p.Vitals.Health, &p.Vitals.Happiness, &p.Vitals.Hunger, &p.Vitals.Energy, &p.Vitals.Cleanliness, &p.Vitals.Sleep,
		&p.IsSleeping, &p.SleepStartedAt, &p.IsSick, &status, &p.DeathAt,
		&feed, &play, &bathe, &sleep, &heal, &pet, &care,
		&p.DecayedAt, &aff, &logs, &drift, &p.Ver, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Status = model.Status(status)
	p.LastCare = model.LastCare{
		Feed:  fromNull(feed),
		Play:  fromNull(play),
		Bathe: fromNull(bathe),
		Sleep: fromNull(sleep),
		Heal:  fromNull(heal),
		Pet:   fromNull(pet),
		Any:   fromNull(care),
	}
	if len(aff) > 0 {
		if err := json.Unmarshal(aff, &p.Afflictions); err != nil {
			return nil, fmt.Errorf("decode afflictions: %w", err)
		}
	}
	if len(logs) > 0 {
		if err := json.Unmarshal(logs, &p.ActivityLog); err != nil {
			return nil, fmt.Errorf("decode activity log: %w", err)
		}
	}
	if len(drift) > 0 {
		if err := json.Unmarshal(drift, &p.Drift); err != nil {
			return nil, fmt.Errorf("decode drift: %w", err)
		}
	}
	return &p, nil
}

// encodeDocs renders the JSONB columns; empty sequences are stored as [].
func encodeDocs(p *model.Pet) (aff, logs, drift []byte, err error) {
	a := p.Afflictions
	if a == nil {
		a = []model.Affliction{}
	}
	l := p.ActivityLog
	if l == nil {
		l = []model.ActivityEntry{}
	}
	if aff, err = json.Marshal(a); err != nil {
		return nil, nil, nil, fmt.Errorf("encode afflictions: %w", err)
	}
	if logs, err = json.Marshal(l); err != nil {
		return nil, nil, nil, fmt.Errorf("encode activity log: %w", err)
	}
	if drift, err = json.Marshal(p.Drift); err != nil {
		return nil, nil, nil, fmt.Errorf("encode drift: %w", err)
	}
	return aff, logs, drift, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func fromNull(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
