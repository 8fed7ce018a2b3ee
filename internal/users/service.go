package users

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/valkyrie-fleet/srp-backend/pkg/db/models"
	"github.com/valkyrie-fleet/srp-backend/pkg/enums"
)

// SubmitResolver resolves the divisions where a user may submit requests.
type SubmitResolver interface {
	DivisionsWithPermission(ctx context.Context, user *models.User, permType enums.PermissionType) ([]uuid.UUID, error)
}

// DivisionLister is the slice of the division repository the profile needs.
type DivisionLister interface {
	List(ctx context.Context) ([]models.Division, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Division, error)
}

// Profile is the authenticated user's own view: identity, group
// memberships, pilot roster, and the divisions open to their submissions.
type Profile struct {
	User            *models.User      `json:"user"`
	Groups          []models.Group    `json:"groups"`
	Pilots          []models.Pilot    `json:"pilots"`
	SubmitDivisions []models.Division `json:"submit_divisions"`
}

// Service assembles user-facing profile data.
type Service interface {
	Profile(ctx context.Context, user *models.User) (*Profile, error)
}

type service struct {
	perms     SubmitResolver
	divisions DivisionLister
}

// NewService wires the user service with its collaborators.
func NewService(perms SubmitResolver, divisions DivisionLister) (Service, error) {
	if perms == nil {
		return nil, fmt.Errorf("permission resolver required")
	}
	if divisions == nil {
		return nil, fmt.Errorf("division lister required")
	}
	return &service{perms: perms, divisions: divisions}, nil
}

// Profile returns the user's own view. The user is expected to arrive with
// groups and pilots preloaded; site admins may submit to every division.
func (s *service) Profile(ctx context.Context, user *models.User) (*Profile, error) {
	if user == nil {
		return nil, fmt.Errorf("user is required")
	}

	var submitDivisions []models.Division
	var err error
	if user.IsAdmin {
		submitDivisions, err = s.divisions.List(ctx)
	} else {
		var ids []uuid.UUID
		ids, err = s.perms.DivisionsWithPermission(ctx, user, enums.PermissionSubmit)
		if err == nil {
			submitDivisions, err = s.divisions.GetByIDs(ctx, ids)
		}
	}
	if err != nil {
		return nil, err
	}

	return &Profile{
		User:            user,
		Groups:          user.Groups,
		Pilots:          user.Pilots,
		SubmitDivisions: submitDivisions,
	}, nil
}
