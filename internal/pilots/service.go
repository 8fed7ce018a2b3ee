package pilots

import (
	"context"
	"fmt"
	"strings"

	"github.com/valkyrie-fleet/srp-backend/pkg/db/models"
	pkgerrors "github.com/valkyrie-fleet/srp-backend/pkg/errors"
)

// ClaimInput names the character being attached to the caller's roster.
type ClaimInput struct {
	PilotID int64  `json:"pilot_id" validate:"required,gt=0"`
	Name    string `json:"name" validate:"required"`
}

// Service manages pilot ownership. The roster backs the submit guard:
// users may only request reimbursement for their own pilots.
type Service interface {
	Claim(ctx context.Context, user *models.User, input ClaimInput) (*models.Pilot, error)
	ListByUser(ctx context.Context, user *models.User) ([]models.Pilot, error)
}

type service struct {
	repo Repository
}

// NewService wires a pilot service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("pilot repository required")
	}
	return &service{repo: repo}, nil
}

// Claim attaches a character to the caller's roster. Claiming a character
// already on the caller's roster is a no-op; a character claimed by
// someone else is a conflict.
func (s *service) Claim(ctx context.Context, user *models.User, input ClaimInput) (*models.Pilot, error) {
	if user == nil {
		return nil, fmt.Errorf("user is required")
	}
	if input.PilotID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pilot id must be positive")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pilot name is required")
	}

	existing, err := s.repo.GetByID(ctx, input.PilotID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.UserID == user.ID {
			return existing, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeConflict,
			"That pilot is already claimed by another user.")
	}

	pilot := &models.Pilot{
		ID:     input.PilotID,
		Name:   name,
		UserID: user.ID,
	}
	if err := s.repo.Create(ctx, pilot); err != nil {
		return nil, err
	}
	return pilot, nil
}

func (s *service) ListByUser(ctx context.Context, user *models.User) ([]models.Pilot, error) {
	if user == nil {
		return nil, fmt.Errorf("user is required")
	}
	return s.repo.ListByUser(ctx, user.ID)
}
