package modifiers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/valkyrie-fleet/srp-backend/internal/requests"
	"github.com/valkyrie-fleet/srp-backend/pkg/db/models"
	"github.com/valkyrie-fleet/srp-backend/pkg/enums"
	pkgerrors "github.com/valkyrie-fleet/srp-backend/pkg/errors"
	"github.com/valkyrie-fleet/srp-backend/pkg/metrics"
)

var negativeOne = decimal.NewFromInt(-1)

// PermissionChecker is the slice of the permission service this package
// needs.
type PermissionChecker interface {
	HasPermission(ctx context.Context, user *models.User, divisionID uuid.UUID, permType enums.PermissionType) (bool, error)
}

// TxRunner executes a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// AddInput carries a new payout modifier.
type AddInput struct {
	Kind  enums.ModifierKind `json:"kind" validate:"required"`
	Value decimal.Decimal    `json:"value" validate:"required"`
	Note  string             `json:"note"`
}

// Service manages the append-only modifier ledger. Modifiers are never
// deleted or edited in place; a mistake is corrected by voiding the entry
// and adding a new one.
type Service interface {
	Add(ctx context.Context, user *models.User, requestID int64, input AddInput) (*models.Modifier, error)
	Void(ctx context.Context, user *models.User, modifierID int64) (*models.Modifier, error)
	Unvoid(ctx context.Context, user *models.User, modifierID int64) (*models.Modifier, error)
}

type service struct {
	repo     Repository
	requests requests.Repository
	tx       TxRunner
	perms    PermissionChecker
	metrics  *metrics.RequestMetrics
	now      func() time.Time
}

// NewService wires the modifier service with its collaborators. The request
// repository is rebound into each transaction so the parent request's row
// lock serializes modifier mutations with status changes. The metrics
// recorder may be nil.
func NewService(
	repo Repository,
	requestRepo requests.Repository,
	tx TxRunner,
	perms PermissionChecker,
	requestMetrics *metrics.RequestMetrics,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("modifier repository required")
	}
	if requestRepo == nil {
		return nil, fmt.Errorf("request repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if perms == nil {
		return nil, fmt.Errorf("permission checker required")
	}
	return &service{
		repo:     repo,
		requests: requestRepo,
		tx:       tx,
		perms:    perms,
		metrics:  requestMetrics,
		now:      time.Now,
	}, nil
}

// Add appends a modifier to the request's ledger. Reviewers only, and only
// while the request is being evaluated. A relative value at or below -1
// would zero or flip the running total's sign through scaling alone, so it
// is rejected up front.
func (s *service) Add(ctx context.Context, user *models.User, requestID int64, input AddInput) (*models.Modifier, error) {
	if user == nil {
		return nil, fmt.Errorf("user is required")
	}
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("unknown modifier kind %q", input.Kind))
	}
	if input.Kind == enums.ModifierKindRelative && input.Value.LessThanOrEqual(negativeOne) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			"A relative modifier must be greater than -1.")
	}

	var created *models.Modifier
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		request, err := s.requests.WithTx(tx).GetByIDForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if request == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
		}

		if err := s.requireReviewer(ctx, user, request.DivisionID,
			"Only reviewers can add modifiers."); err != nil {
			return err
		}
		if request.Status != enums.ActionTypeEvaluating {
			return pkgerrors.New(pkgerrors.CodeInvalidState,
				"Modifiers can only be added while the request is being evaluated.")
		}

		modifier := &models.Modifier{
			RequestID: request.ID,
			UserID:    user.ID,
			Kind:      input.Kind,
			Value:     input.Value,
			Note:      input.Note,
		}
		if err := s.repo.WithTx(tx).Create(ctx, modifier); err != nil {
			return err
		}
		created = modifier
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncModifierOp("add", input.Kind.String())
	return created, nil
}

// Void marks a modifier as void so the payout calculation skips it. Voiding
// an already-void modifier is a no-op.
func (s *service) Void(ctx context.Context, user *models.User, modifierID int64) (*models.Modifier, error) {
	return s.setVoidState(ctx, user, modifierID, true)
}

// Unvoid restores a voided modifier to the payout calculation. Restoring a
// live modifier is a no-op.
func (s *service) Unvoid(ctx context.Context, user *models.User, modifierID int64) (*models.Modifier, error) {
	return s.setVoidState(ctx, user, modifierID, false)
}

func (s *service) setVoidState(ctx context.Context, user *models.User, modifierID int64, void bool) (*models.Modifier, error) {
	if user == nil {
		return nil, fmt.Errorf("user is required")
	}

	var result *models.Modifier
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		modifier, err := txRepo.GetByID(ctx, modifierID)
		if err != nil {
			return err
		}
		if modifier == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "modifier not found")
		}

		request, err := s.requests.WithTx(tx).GetByIDForUpdate(ctx, modifier.RequestID)
		if err != nil {
			return err
		}
		if request == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
		}

		if err := s.requireReviewer(ctx, user, request.DivisionID,
			"You must be a reviewer to be able to void modifiers."); err != nil {
			return err
		}

		if modifier.IsVoid() == void {
			result = modifier
			return nil
		}

		if request.Status != enums.ActionTypeEvaluating {
			return pkgerrors.New(pkgerrors.CodeInvalidState,
				"Modifiers can only be changed while the request is being evaluated.")
		}

		if void {
			voidedAt := s.now().UTC()
			if err := txRepo.SetVoid(ctx, modifier.ID, user.ID, voidedAt); err != nil {
				return err
			}
			modifier.VoidUserID = &user.ID
			modifier.VoidTimestamp = &voidedAt
		} else {
			if err := txRepo.ClearVoid(ctx, modifier.ID); err != nil {
				return err
			}
			modifier.VoidUserID = nil
			modifier.VoidTimestamp = nil
		}
		result = modifier
		return nil
	})
	if err != nil {
		return nil, err
	}

	op := "void"
	if !void {
		op = "unvoid"
	}
	s.metrics.IncModifierOp(op, result.Kind.String())
	return result, nil
}

func (s *service) requireReviewer(ctx context.Context, user *models.User, divisionID uuid.UUID, deniedMessage string) error {
	allowed, err := s.perms.HasPermission(ctx, user, divisionID, enums.PermissionReview)
	if err != nil {
		return err
	}
	if !allowed {
		return pkgerrors.New(pkgerrors.CodeForbidden, deniedMessage)
	}
	return nil
}
