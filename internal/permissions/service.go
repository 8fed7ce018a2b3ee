package permissions

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/valkyrie-fleet/srp-backend/pkg/db"
	"github.com/valkyrie-fleet/srp-backend/pkg/db/models"
	"github.com/valkyrie-fleet/srp-backend/pkg/enums"
	pkgerrors "github.com/valkyrie-fleet/srp-backend/pkg/errors"
)

// Service resolves and mutates per-division permission grants.
type Service interface {
	HasPermission(ctx context.Context, user *models.User, divisionID uuid.UUID, permType enums.PermissionType) (bool, error)
	ElevatedDivisions(ctx context.Context, user *models.User) ([]uuid.UUID, error)
	DivisionsWithPermission(ctx context.Context, user *models.User, permType enums.PermissionType) ([]uuid.UUID, error)
	Grant(ctx context.Context, input GrantInput) (*models.Permission, error)
	Revoke(ctx context.Context, input GrantInput) error
	ListDivisionGrants(ctx context.Context, divisionID uuid.UUID) ([]models.Permission, error)
}

type service struct {
	repo Repository
}

// GrantInput identifies a single permission grant.
type GrantInput struct {
	DivisionID  uuid.UUID            `json:"division_id"`
	GranteeType enums.GranteeType    `json:"grantee_type"`
	GranteeID   uuid.UUID            `json:"grantee_id"`
	Type        enums.PermissionType `json:"type"`
}

// NewService wires a permission service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("permission repository required")
	}
	return &service{repo: repo}, nil
}

// HasPermission reports whether the user holds the permission on the
// division, either directly or through a group. Admin on the division
// implies every other permission type within it. Site admins pass every
// check. The resolution is computed fresh on each call so grant and revoke
// take effect immediately.
func (s *service) HasPermission(ctx context.Context, user *models.User, divisionID uuid.UUID, permType enums.PermissionType) (bool, error) {
	if user == nil {
		return false, fmt.Errorf("user is required")
	}
	if divisionID == uuid.Nil {
		return false, fmt.Errorf("division id is required")
	}
	if !permType.IsValid() {
		return false, fmt.Errorf("invalid permission type %q", permType)
	}
	if user.IsAdmin {
		return true, nil
	}

	granteeIDs, err := s.granteeIDs(ctx, user)
	if err != nil {
		return false, err
	}
	perms, err := s.repo.ListByDivisionAndGrantees(ctx, divisionID, granteeIDs)
	if err != nil {
		return false, err
	}
	for _, perm := range perms {
		if perm.Type == permType || perm.Type == enums.PermissionAdmin {
			return true, nil
		}
	}
	return false, nil
}

// ElevatedDivisions returns the divisions where the user holds review, pay
// or admin permission. These divisions expose every request to the user,
// not only their own.
func (s *service) ElevatedDivisions(ctx context.Context, user *models.User) ([]uuid.UUID, error) {
	if user == nil {
		return nil, fmt.Errorf("user is required")
	}

	granteeIDs, err := s.granteeIDs(ctx, user)
	if err != nil {
		return nil, err
	}
	perms, err := s.repo.ListByGrantees(ctx, granteeIDs)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]struct{})
	var divisions []uuid.UUID
	for _, perm := range perms {
		if !isElevated(perm.Type) {
			continue
		}
		if _, ok := seen[perm.DivisionID]; ok {
			continue
		}
		seen[perm.DivisionID] = struct{}{}
		divisions = append(divisions, perm.DivisionID)
	}
	return divisions, nil
}

// DivisionsWithPermission returns the divisions where the user holds the
// given permission directly, through a group, or through a division admin
// grant. Site admins are not special-cased here: the caller decides what
// "every division" means for them.
func (s *service) DivisionsWithPermission(ctx context.Context, user *models.User, permType enums.PermissionType) ([]uuid.UUID, error) {
	if user == nil {
		return nil, fmt.Errorf("user is required")
	}
	if !permType.IsValid() {
		return nil, fmt.Errorf("invalid permission type %q", permType)
	}

	granteeIDs, err := s.granteeIDs(ctx, user)
	if err != nil {
		return nil, err
	}
	perms, err := s.repo.ListByGrantees(ctx, granteeIDs)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]struct{})
	var divisions []uuid.UUID
	for _, perm := range perms {
		if perm.Type != permType && perm.Type != enums.PermissionAdmin {
			continue
		}
		if _, ok := seen[perm.DivisionID]; ok {
			continue
		}
		seen[perm.DivisionID] = struct{}{}
		divisions = append(divisions, perm.DivisionID)
	}
	return divisions, nil
}

// Grant adds a permission grant. Granting an existing permission is a
// no-op, enforced by the composite unique index.
func (s *service) Grant(ctx context.Context, input GrantInput) (*models.Permission, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	perm := &models.Permission{
		DivisionID:  input.DivisionID,
		GranteeType: input.GranteeType,
		GranteeID:   input.GranteeID,
		Type:        input.Type,
	}
	if err := s.repo.Create(ctx, perm); err != nil {
		if db.IsUniqueViolation(err, "ux_permissions_grant") {
			return s.findExisting(ctx, input)
		}
		return nil, err
	}
	return perm, nil
}

// Revoke removes a permission grant. Revoking an absent grant is a no-op.
func (s *service) Revoke(ctx context.Context, input GrantInput) error {
	if err := input.validate(); err != nil {
		return err
	}
	return s.repo.Delete(ctx, input.DivisionID, input.GranteeType, input.GranteeID, input.Type)
}

func (s *service) ListDivisionGrants(ctx context.Context, divisionID uuid.UUID) ([]models.Permission, error) {
	if divisionID == uuid.Nil {
		return nil, fmt.Errorf("division id is required")
	}
	return s.repo.ListByDivision(ctx, divisionID)
}

func (s *service) granteeIDs(ctx context.Context, user *models.User) ([]uuid.UUID, error) {
	groupIDs, err := s.repo.GroupIDsForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return append(groupIDs, user.ID), nil
}

func (s *service) findExisting(ctx context.Context, input GrantInput) (*models.Permission, error) {
	perms, err := s.repo.ListByDivisionAndGrantees(ctx, input.DivisionID, []uuid.UUID{input.GranteeID})
	if err != nil {
		return nil, err
	}
	for i := range perms {
		perm := &perms[i]
		if perm.GranteeType == input.GranteeType && perm.Type == input.Type {
			return perm, nil
		}
	}
	return nil, fmt.Errorf("grant reported duplicate but no existing row found")
}

// ParseGrantInput builds a GrantInput from raw transport values, mapping
// parse failures to the validation error code.
func ParseGrantInput(divisionID uuid.UUID, granteeType, granteeID, permType string) (*GrantInput, error) {
	parsedGranteeType, err := enums.ParseGranteeType(granteeType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid grantee type")
	}
	parsedGranteeID, err := uuid.Parse(granteeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid grantee id")
	}
	parsedType, err := enums.ParsePermissionType(permType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid permission type")
	}
	return &GrantInput{
		DivisionID:  divisionID,
		GranteeType: parsedGranteeType,
		GranteeID:   parsedGranteeID,
		Type:        parsedType,
	}, nil
}

func (i GrantInput) validate() error {
	if i.DivisionID == uuid.Nil {
		return fmt.Errorf("division id is required")
	}
	if i.GranteeID == uuid.Nil {
		return fmt.Errorf("grantee id is required")
	}
	if !i.GranteeType.IsValid() {
		return fmt.Errorf("invalid grantee type %q", i.GranteeType)
	}
	if !i.Type.IsValid() {
		return fmt.Errorf("invalid permission type %q", i.Type)
	}
	return nil
}

func isElevated(permType enums.PermissionType) bool {
	if permType == enums.PermissionAdmin {
		return true
	}
	for _, elevated := range enums.ElevatedPermissions {
		if permType == elevated {
			return true
		}
	}
	return false
}
