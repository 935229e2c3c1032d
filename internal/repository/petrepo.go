// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"
	"time"

	"github.com/and161185/pet-keeper/internal/model"
	"github.com/gofrs/uuid/v5"
)

// PetRepository provides versioned access to pet records.
type PetRepository interface {
	// Create inserts a new pet at version 1.
	Create(ctx context.Context, p *model.Pet) error

	// Get loads a pet by ID.
	Get(ctx context.Context, id uuid.UUID) (*model.Pet, error)

	// Save replaces the stored pet if its version still equals baseVer and
	// returns the canonical stored record (ver++).
	Save(ctx context.Context, p *model.Pet, baseVer int64) (*model.Pet, error)

	// ListIdle returns ids of pets that are not dead and received no care since before.
	ListIdle(ctx context.Context, before time.Time, limit int) ([]uuid.UUID, error)

	// ListByOwner returns ids of the user's pets, oldest first.
	ListByOwner(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}
