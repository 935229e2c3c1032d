package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/pet-keeper/internal/errs"
	"github.com/and161185/pet-keeper/internal/repository"
)

// RepoOwnership authorizes callers by comparing the stored owner.
type RepoOwnership struct {
	repo    repository.PetRepository
	timeout time.Duration
}

// NewRepoOwnership constructs RepoOwnership.
func NewRepoOwnership(repo repository.PetRepository, timeout time.Duration) *RepoOwnership {
	return &RepoOwnership{repo: repo, timeout: timeout}
}

// CheckOwner returns ErrNotFound for unknown pets and ErrForbidden for other owners.
func (o *RepoOwnership) CheckOwner(ctx context.Context, petID, callerID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	p, err := o.repo.Get(ctx, petID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return err
		}
		return fmt.Errorf("ownership: %w: %w", errs.ErrStorage, err)
	}
	if p.UserID != callerID {
		return errs.ErrForbidden
	}
	return nil
}
