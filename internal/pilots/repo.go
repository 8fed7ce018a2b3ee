package pilots

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/valkyrie-fleet/srp-backend/pkg/db/models"
)

// Repository manages the pilot roster. Pilot IDs are the character IDs
// reported by the killmail sources.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, pilot *models.Pilot) error
	GetByID(ctx context.Context, id int64) (*models.Pilot, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Pilot, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a pilot repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, pilot *models.Pilot) error {
	return r.db.WithContext(ctx).Create(pilot).Error
}

func (r *repository) GetByID(ctx context.Context, id int64) (*models.Pilot, error) {
	var pilot models.Pilot
	err := r.db.WithContext(ctx).First(&pilot, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pilot, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Pilot, error) {
	var pilots []models.Pilot
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("name ASC").
		Find(&pilots).Error
	if err != nil {
		return nil, err
	}
	return pilots, nil
}
