package divisions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/valkyrie-fleet/srp-backend/pkg/db/models"
)

// Repository manages persistence for reimbursement divisions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, division *models.Division) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Division, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Division, error)
	List(ctx context.Context) ([]models.Division, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a division repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, division *models.Division) error {
	return r.db.WithContext(ctx).Create(division).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Division, error) {
	var division models.Division
	err := r.db.WithContext(ctx).First(&division, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &division, nil
}

func (r *repository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Division, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var divisions []models.Division
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("name ASC").
		Find(&divisions).Error
	if err != nil {
		return nil, err
	}
	return divisions, nil
}

func (r *repository) List(ctx context.Context) ([]models.Division, error) {
	var divisions []models.Division
	err := r.db.WithContext(ctx).Order("name ASC").Find(&divisions).Error
	if err != nil {
		return nil, err
	}
	return divisions, nil
}
