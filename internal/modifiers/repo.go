package modifiers

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/valkyrie-fleet/srp-backend/pkg/db/models"
)

// Repository manages persistence for payout modifiers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, modifier *models.Modifier) error
	GetByID(ctx context.Context, id int64) (*models.Modifier, error)
	SetVoid(ctx context.Context, id int64, userID uuid.UUID, voidedAt time.Time) error
	ClearVoid(ctx context.Context, id int64) error
	ListByRequest(ctx context.Context, requestID int64) ([]models.Modifier, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a modifier repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, modifier *models.Modifier) error {
	return r.db.WithContext(ctx).Create(modifier).Error
}

func (r *repository) GetByID(ctx context.Context, id int64) (*models.Modifier, error) {
	var modifier models.Modifier
	err := r.db.WithContext(ctx).First(&modifier, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &modifier, nil
}

func (r *repository) SetVoid(ctx context.Context, id int64, userID uuid.UUID, voidedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Modifier{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"void_user_id":   userID,
			"void_timestamp": voidedAt,
		}).Error
}

func (r *repository) ClearVoid(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Modifier{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"void_user_id":   nil,
			"void_timestamp": nil,
		}).Error
}

func (r *repository) ListByRequest(ctx context.Context, requestID int64) ([]models.Modifier, error) {
	var out []models.Modifier
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
