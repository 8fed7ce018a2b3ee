package requests

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/valkyrie-fleet/srp-backend/pkg/db/models"
	"github.com/valkyrie-fleet/srp-backend/pkg/enums"
	"github.com/valkyrie-fleet/srp-backend/pkg/pagination"
)

// Filter narrows the request listing. String filters match any of the
// provided values; empty slices are skipped. Visibility is the union of
// ElevatedDivisionIDs and the creator's own requests.
type Filter struct {
	ElevatedDivisionIDs []uuid.UUID
	CreatorID           *uuid.UUID
	DivisionIDs         []uuid.UUID
	Statuses            []enums.ActionType
	PilotNames          []string
	CorporationNames    []string
	AllianceNames       []string
	ShipTypes           []string
	SystemNames         []string
	RegionNames         []string
}

// Repository manages persistence for reimbursement requests and their audit
// trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.Request) error
	GetByID(ctx context.Context, id int64) (*models.Request, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Request, error)
	UpdateStatus(ctx context.Context, id int64, status enums.ActionType) error
	UpdateBasePayout(ctx context.Context, id int64, amount decimal.Decimal) error
	UpdateDivision(ctx context.Context, id int64, divisionID uuid.UUID) error
	CreateAction(ctx context.Context, action *models.Action) error
	List(ctx context.Context, filter Filter, limit int, cursor *pagination.Cursor) ([]models.Request, error)
	TotalPayout(ctx context.Context, filter Filter) (decimal.Decimal, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a request repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, request *models.Request) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repository) GetByID(ctx context.Context, id int64) (*models.Request, error) {
	var request models.Request
	err := r.db.WithContext(ctx).
		Preload("Actions", func(db *gorm.DB) *gorm.DB {
			return db.Order("actions.id ASC")
		}).
		Preload("Modifiers", func(db *gorm.DB) *gorm.DB {
			return db.Order("modifiers.id ASC")
		}).
		First(&request, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// GetByIDForUpdate loads the request under a row lock so concurrent status
// mutations serialize. Associations are loaded after the lock is held.
func (r *repository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Request, error) {
	var request models.Request
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&request, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).
		Where("request_id = ?", id).
		Order("id ASC").
		Find(&request.Modifiers).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status enums.ActionType) error {
	return r.db.WithContext(ctx).
		Model(&models.Request{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *repository) UpdateBasePayout(ctx context.Context, id int64, amount decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Request{}).
		Where("id = ?", id).
		Update("base_payout", amount).Error
}

func (r *repository) UpdateDivision(ctx context.Context, id int64, divisionID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Request{}).
		Where("id = ?", id).
		Update("division_id", divisionID).Error
}

func (r *repository) CreateAction(ctx context.Context, action *models.Action) error {
	return r.db.WithContext(ctx).Create(action).Error
}

func applyFilter(query *gorm.DB, filter Filter) *gorm.DB {
	switch {
	case len(filter.ElevatedDivisionIDs) > 0 && filter.CreatorID != nil:
		query = query.Where("division_id IN ? OR creator_id = ?", filter.ElevatedDivisionIDs, *filter.CreatorID)
	case len(filter.ElevatedDivisionIDs) > 0:
		query = query.Where("division_id IN ?", filter.ElevatedDivisionIDs)
	case filter.CreatorID != nil:
		query = query.Where("creator_id = ?", *filter.CreatorID)
	}

	if len(filter.DivisionIDs) > 0 {
		query = query.Where("division_id IN ?", filter.DivisionIDs)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if len(filter.PilotNames) > 0 {
		query = query.Where("pilot_name IN ?", filter.PilotNames)
	}
	if len(filter.CorporationNames) > 0 {
		query = query.Where("corporation_name IN ?", filter.CorporationNames)
	}
	if len(filter.AllianceNames) > 0 {
		query = query.Where("alliance_name IN ?", filter.AllianceNames)
	}
	if len(filter.ShipTypes) > 0 {
		query = query.Where("ship_type IN ?", filter.ShipTypes)
	}
	if len(filter.SystemNames) > 0 {
		query = query.Where("system_name IN ?", filter.SystemNames)
	}
	if len(filter.RegionNames) > 0 {
		query = query.Where("region_name IN ?", filter.RegionNames)
	}
	return query
}

func (r *repository) List(ctx context.Context, filter Filter, limit int, cursor *pagination.Cursor) ([]models.Request, error) {
	query := applyFilter(r.db.WithContext(ctx).Model(&models.Request{}), filter)

	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var results []models.Request
	if err := query.
		Preload("Modifiers", func(db *gorm.DB) *gorm.DB {
			return db.Order("modifiers.id ASC")
		}).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// TotalPayout folds the payout of every non-rejected request matching the
// filter. The aggregate walks the full matched set, independent of any
// pagination window a listing applies on top of the same filter.
func (r *repository) TotalPayout(ctx context.Context, filter Filter) (decimal.Decimal, error) {
	query := applyFilter(r.db.WithContext(ctx).Model(&models.Request{}), filter).
		Where("status <> ?", enums.ActionTypeRejected)

	var rows []models.Request
	if err := query.
		Select("id", "base_payout").
		Preload("Modifiers", func(db *gorm.DB) *gorm.DB {
			return db.Order("modifiers.id ASC")
		}).
		Find(&rows).Error; err != nil {
		return decimal.Decimal{}, err
	}

	total := decimal.Zero
	for i := range rows {
		total = total.Add(Payout(&rows[i]))
	}
	return total, nil
}
