package permissions

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/valkyrie-fleet/srp-backend/pkg/db/models"
	"github.com/valkyrie-fleet/srp-backend/pkg/enums"
)

// Repository manages persistence for division permission grants.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, perm *models.Permission) error
	Delete(ctx context.Context, divisionID uuid.UUID, granteeType enums.GranteeType, granteeID uuid.UUID, permType enums.PermissionType) error
	ListByDivisionAndGrantees(ctx context.Context, divisionID uuid.UUID, granteeIDs []uuid.UUID) ([]models.Permission, error)
	ListByGrantees(ctx context.Context, granteeIDs []uuid.UUID) ([]models.Permission, error)
	ListByDivision(ctx context.Context, divisionID uuid.UUID) ([]models.Permission, error)
	GroupIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a permission repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, perm *models.Permission) error {
	return r.db.WithContext(ctx).Create(perm).Error
}

func (r *repository) Delete(ctx context.Context, divisionID uuid.UUID, granteeType enums.GranteeType, granteeID uuid.UUID, permType enums.PermissionType) error {
	return r.db.WithContext(ctx).
		Where("division_id = ? AND grantee_type = ? AND grantee_id = ? AND type = ?",
			divisionID, granteeType, granteeID, permType).
		Delete(&models.Permission{}).Error
}

func (r *repository) ListByDivisionAndGrantees(ctx context.Context, divisionID uuid.UUID, granteeIDs []uuid.UUID) ([]models.Permission, error) {
	if len(granteeIDs) == 0 {
		return nil, nil
	}
	var perms []models.Permission
	if err := r.db.WithContext(ctx).
		Where("division_id = ? AND grantee_id IN ?", divisionID, granteeIDs).
		Find(&perms).Error; err != nil {
		return nil, err
	}
	return perms, nil
}

func (r *repository) ListByGrantees(ctx context.Context, granteeIDs []uuid.UUID) ([]models.Permission, error) {
	if len(granteeIDs) == 0 {
		return nil, nil
	}
	var perms []models.Permission
	if err := r.db.WithContext(ctx).
		Where("grantee_id IN ?", granteeIDs).
		Find(&perms).Error; err != nil {
		return nil, err
	}
	return perms, nil
}

func (r *repository) ListByDivision(ctx context.Context, divisionID uuid.UUID) ([]models.Permission, error) {
	var perms []models.Permission
	if err := r.db.WithContext(ctx).
		Where("division_id = ?", divisionID).
		Order("created_at ASC").
		Find(&perms).Error; err != nil {
		return nil, err
	}
	return perms, nil
}

func (r *repository) GroupIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var groupIDs []uuid.UUID
	if err := r.db.WithContext(ctx).
		Table("group_memberships").
		Where("user_id = ?", userID).
		Pluck("group_id", &groupIDs).Error; err != nil {
		return nil, err
	}
	return groupIDs, nil
}
