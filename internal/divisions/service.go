package divisions

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/valkyrie-fleet/srp-backend/internal/permissions"
	"github.com/valkyrie-fleet/srp-backend/pkg/db"
	"github.com/valkyrie-fleet/srp-backend/pkg/db/models"
	"github.com/valkyrie-fleet/srp-backend/pkg/enums"
	pkgerrors "github.com/valkyrie-fleet/srp-backend/pkg/errors"
)

// Granter is the slice of the permission service division administration
// needs.
type Granter interface {
	HasPermission(ctx context.Context, user *models.User, divisionID uuid.UUID, permType enums.PermissionType) (bool, error)
	DivisionsWithPermission(ctx context.Context, user *models.User, permType enums.PermissionType) ([]uuid.UUID, error)
	Grant(ctx context.Context, input permissions.GrantInput) (*models.Permission, error)
	Revoke(ctx context.Context, input permissions.GrantInput) error
	ListDivisionGrants(ctx context.Context, divisionID uuid.UUID) ([]models.Permission, error)
}

// DivisionDetail pairs a division with its permission grants.
type DivisionDetail struct {
	Division *models.Division    `json:"division"`
	Grants   []models.Permission `json:"grants"`
}

// Service administers divisions and their permission grants. Creating
// divisions is reserved for site admins; grant management additionally
// accepts holders of the division's admin permission.
type Service interface {
	Create(ctx context.Context, user *models.User, name string) (*models.Division, error)
	Get(ctx context.Context, user *models.User, id uuid.UUID) (*DivisionDetail, error)
	List(ctx context.Context, user *models.User) ([]models.Division, error)
	GrantPermission(ctx context.Context, user *models.User, input permissions.GrantInput) (*models.Permission, error)
	RevokePermission(ctx context.Context, user *models.User, input permissions.GrantInput) error
}

type service struct {
	repo  Repository
	perms Granter
}

// NewService wires the division service with its collaborators.
func NewService(repo Repository, perms Granter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("division repository required")
	}
	if perms == nil {
		return nil, fmt.Errorf("permission service required")
	}
	return &service{repo: repo, perms: perms}, nil
}

func (s *service) Create(ctx context.Context, user *models.User, name string) (*models.Division, error) {
	if user == nil {
		return nil, fmt.Errorf("user is required")
	}
	if !user.IsAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden,
			"Only site admins can create divisions.")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "division name is required")
	}

	division := &models.Division{Name: name}
	if err := s.repo.Create(ctx, division); err != nil {
		if db.IsUniqueViolation(err, "ux_divisions_name") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict,
				"A division with that name already exists.")
		}
		return nil, err
	}
	return division, nil
}

// Get returns the division with its grants. Visible to site admins and to
// holders of the division's admin permission.
func (s *service) Get(ctx context.Context, user *models.User, id uuid.UUID) (*DivisionDetail, error) {
	if user == nil {
		return nil, fmt.Errorf("user is required")
	}
	division, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if division == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "division not found")
	}

	if err := s.requireDivisionAdmin(ctx, user, division.ID); err != nil {
		return nil, err
	}

	grants, err := s.perms.ListDivisionGrants(ctx, division.ID)
	if err != nil {
		return nil, err
	}
	return &DivisionDetail{Division: division, Grants: grants}, nil
}

// List returns every division for site admins, and the divisions where the
// user holds admin permission for everyone else.
func (s *service) List(ctx context.Context, user *models.User) ([]models.Division, error) {
	if user == nil {
		return nil, fmt.Errorf("user is required")
	}
	if user.IsAdmin {
		return s.repo.List(ctx)
	}

	ids, err := s.perms.DivisionsWithPermission(ctx, user, enums.PermissionAdmin)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByIDs(ctx, ids)
}

func (s *service) GrantPermission(ctx context.Context, user *models.User, input permissions.GrantInput) (*models.Permission, error) {
	if user == nil {
		return nil, fmt.Errorf("user is required")
	}
	division, err := s.repo.GetByID(ctx, input.DivisionID)
	if err != nil {
		return nil, err
	}
	if division == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "division not found")
	}
	if err := s.requireDivisionAdmin(ctx, user, division.ID); err != nil {
		return nil, err
	}
	return s.perms.Grant(ctx, input)
}

func (s *service) RevokePermission(ctx context.Context, user *models.User, input permissions.GrantInput) error {
	if user == nil {
		return fmt.Errorf("user is required")
	}
	if err := s.requireDivisionAdmin(ctx, user, input.DivisionID); err != nil {
		return err
	}
	return s.perms.Revoke(ctx, input)
}

func (s *service) requireDivisionAdmin(ctx context.Context, user *models.User, divisionID uuid.UUID) error {
	allowed, err := s.perms.HasPermission(ctx, user, divisionID, enums.PermissionAdmin)
	if err != nil {
		return err
	}
	if !allowed {
		return pkgerrors.New(pkgerrors.CodeForbidden,
			"You must have admin permission in this division.")
	}
	return nil
}
