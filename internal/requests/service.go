package requests

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/valkyrie-fleet/srp-backend/internal/killmail"
	"github.com/valkyrie-fleet/srp-backend/pkg/db"
	"github.com/valkyrie-fleet/srp-backend/pkg/db/models"
	"github.com/valkyrie-fleet/srp-backend/pkg/enums"
	pkgerrors "github.com/valkyrie-fleet/srp-backend/pkg/errors"
	"github.com/valkyrie-fleet/srp-backend/pkg/metrics"
	"github.com/valkyrie-fleet/srp-backend/pkg/pagination"
)

// Fetcher produces a canonical killmail from a source reference.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*killmail.Killmail, error)
}

// Enricher fills killmail name fields the source did not carry.
type Enricher interface {
	Enrich(ctx context.Context, km *killmail.Killmail) error
}

// PermissionChecker is the slice of the permission service this package
// needs.
type PermissionChecker interface {
	HasPermission(ctx context.Context, user *models.User, divisionID uuid.UUID, permType enums.PermissionType) (bool, error)
	ElevatedDivisions(ctx context.Context, user *models.User) ([]uuid.UUID, error)
}

// PilotRoster resolves pilot ownership for the submit guard.
type PilotRoster interface {
	GetByID(ctx context.Context, id int64) (*models.Pilot, error)
}

// TxRunner executes a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service drives the reimbursement request lifecycle.
type Service interface {
	Submit(ctx context.Context, user *models.User, input SubmitInput) (*RequestDetail, error)
	Get(ctx context.Context, user *models.User, id int64) (*RequestDetail, error)
	List(ctx context.Context, user *models.User, input ListInput) (*ListResult, error)
	Act(ctx context.Context, user *models.User, id int64, actionType enums.ActionType, note string) (*RequestDetail, error)
	SetBasePayout(ctx context.Context, user *models.User, id int64, amount decimal.Decimal) (*RequestDetail, error)
	ChangeDivision(ctx context.Context, user *models.User, id int64, divisionID uuid.UUID) (*RequestDetail, error)
}

type service struct {
	repo    Repository
	tx      TxRunner
	fetcher Fetcher
	enrich  Enricher
	perms   PermissionChecker
	pilots  PilotRoster
	metrics *metrics.RequestMetrics
}

// NewService wires the request service with its collaborators. The metrics
// recorder may be nil.
func NewService(
	repo Repository,
	tx TxRunner,
	fetcher Fetcher,
	enrich Enricher,
	perms PermissionChecker,
	pilots PilotRoster,
	requestMetrics *metrics.RequestMetrics,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("request repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("killmail fetcher required")
	}
	if perms == nil {
		return nil, fmt.Errorf("permission checker required")
	}
	if pilots == nil {
		return nil, fmt.Errorf("pilot roster required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		fetcher: fetcher,
		enrich:  enrich,
		perms:   perms,
		pilots:  pilots,
		metrics: requestMetrics,
	}, nil
}

// Submit fetches and verifies the killmail, checks submit permission and
// pilot ownership, then creates the request with its initial evaluating
// action. The external fetch happens before the transaction opens so no
// lock is held during network I/O.
func (s *service) Submit(ctx context.Context, user *models.User, input SubmitInput) (*RequestDetail, error) {
	if user == nil {
		return nil, fmt.Errorf("user is required")
	}
	if input.DivisionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "division id is required")
	}

	km, err := s.fetcher.Fetch(ctx, input.KillmailURL)
	if err != nil {
		return nil, err
	}
	if s.enrich != nil {
		if err := s.enrich.Enrich(ctx, km); err != nil {
			return nil, err
		}
	}

	allowed, err := s.perms.HasPermission(ctx, user, input.DivisionID, enums.PermissionSubmit)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden,
			"You must have submit permission in the target division to submit requests.")
	}

	pilot, err := s.pilots.GetByID(ctx, km.PilotID)
	if err != nil {
		return nil, err
	}
	if pilot == nil || pilot.UserID != user.ID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden,
			"You can only submit losses for pilots on your own roster.")
	}

	request := &models.Request{
		ID:                km.KillID,
		CreatorID:         user.ID,
		DivisionID:        input.DivisionID,
		PilotID:           km.PilotID,
		PilotName:         km.PilotName,
		CorporationName:   km.CorporationName,
		AllianceName:      km.AllianceName,
		ShipType:          km.ShipName,
		SystemName:        km.SystemName,
		ConstellationName: km.ConstellationName,
		RegionName:        km.RegionName,
		KillmailURL:       km.SourceURL,
		KillTimestamp:     km.Timestamp,
		Details:           input.Details,
		Status:            enums.ActionTypeEvaluating,
		BasePayout:        km.Value,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.Create(ctx, request); err != nil {
			if db.IsUniqueViolation(err, "requests_pkey") {
				return pkgerrors.New(pkgerrors.CodeConflict,
					"A request for this killmail already exists.")
			}
			return err
		}
		return txRepo.CreateAction(ctx, &models.Action{
			RequestID: request.ID,
			UserID:    user.ID,
			Type:      enums.ActionTypeEvaluating,
			Note:      input.Details,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncSubmitted(km.Source)
	return &RequestDetail{Request: request, Payout: Payout(request)}, nil
}

// Get returns the request with its derived payout. Visible to the creator
// and to holders of review or pay permission on the request's division.
func (s *service) Get(ctx context.Context, user *models.User, id int64) (*RequestDetail, error) {
	if user == nil {
		return nil, fmt.Errorf("user is required")
	}
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
	}
	visible, err := s.canView(ctx, user, request)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden,
			"You must be the submitter or hold review or pay permission to view this request.")
	}
	return &RequestDetail{Request: request, Payout: Payout(request)}, nil
}

// List pages the requests visible to the user: everything in divisions
// where they hold an elevated permission, plus their own submissions.
func (s *service) List(ctx context.Context, user *models.User, input ListInput) (*ListResult, error) {
	if user == nil {
		return nil, fmt.Errorf("user is required")
	}

	elevated, err := s.perms.ElevatedDivisions(ctx, user)
	if err != nil {
		return nil, err
	}

	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	creatorID := user.ID
	filter := Filter{
		ElevatedDivisionIDs: elevated,
		CreatorID:           &creatorID,
		DivisionIDs:         input.DivisionIDs,
		Statuses:            input.Statuses,
		PilotNames:          input.PilotNames,
		CorporationNames:    input.CorporationNames,
		AllianceNames:       input.AllianceNames,
		ShipTypes:           input.ShipTypes,
		SystemNames:         input.SystemNames,
		RegionNames:         input.RegionNames,
	}
	if user.IsAdmin {
		filter.ElevatedDivisionIDs = nil
		filter.CreatorID = nil
	}

	limit := pagination.NormalizeLimit(input.Pagination.Limit)
	rows, err := s.repo.List(ctx, filter, pagination.LimitWithBuffer(input.Pagination.Limit), cursor)
	if err != nil {
		return nil, err
	}

	// The total spans every match of the filter, not just this page.
	total, err := s.repo.TotalPayout(ctx, filter)
	if err != nil {
		return nil, err
	}

	result := &ListResult{TotalPayout: total}
	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	for i := range rows {
		request := &rows[i]
		result.Requests = append(result.Requests, RequestDetail{Request: request, Payout: Payout(request)})
	}
	if hasMore {
		last := rows[len(rows)-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return result, nil
}

// Act appends an audit action. Status actions drive the state machine;
// comments leave the status untouched. The request row is locked for the
// duration of the mutation so concurrent actions serialize.
func (s *service) Act(ctx context.Context, user *models.User, id int64, actionType enums.ActionType, note string) (*RequestDetail, error) {
	if user == nil {
		return nil, fmt.Errorf("user is required")
	}
	if !actionType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("unknown action type %q", actionType))
	}

	var updated *models.Request
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		request, err := txRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if request == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
		}

		if actionType == enums.ActionTypeComment {
			visible, err := s.canView(ctx, user, request)
			if err != nil {
				return err
			}
			if !visible {
				return pkgerrors.New(pkgerrors.CodeForbidden,
					"You must be the submitter or hold review or pay permission to comment.")
			}
		} else {
			if err := s.guardTransition(ctx, user, request, actionType); err != nil {
				return err
			}
			if err := txRepo.UpdateStatus(ctx, request.ID, actionType); err != nil {
				return err
			}
			request.Status = actionType
		}

		if err := txRepo.CreateAction(ctx, &models.Action{
			RequestID: request.ID,
			UserID:    user.ID,
			Type:      actionType,
			Note:      note,
		}); err != nil {
			return err
		}
		updated = request
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncAction(actionType.String())
	return &RequestDetail{Request: updated, Payout: Payout(updated)}, nil
}

// SetBasePayout changes the base payout. Reviewers only, and only while
// the request is still being evaluated.
func (s *service) SetBasePayout(ctx context.Context, user *models.User, id int64, amount decimal.Decimal) (*RequestDetail, error) {
	if user == nil {
		return nil, fmt.Errorf("user is required")
	}

	var updated *models.Request
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		request, err := txRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if request == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
		}

		reviewer, err := s.perms.HasPermission(ctx, user, request.DivisionID, enums.PermissionReview)
		if err != nil {
			return err
		}
		if !reviewer {
			return pkgerrors.New(pkgerrors.CodeForbidden,
				"Only reviewers can change the base payout.")
		}
		if request.Status != enums.ActionTypeEvaluating {
			return pkgerrors.New(pkgerrors.CodeInvalidState,
				"The request must be in the evaluating state to change the base payout.")
		}

		if err := txRepo.UpdateBasePayout(ctx, request.ID, amount); err != nil {
			return err
		}
		request.BasePayout = amount
		updated = request
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &RequestDetail{Request: updated, Payout: Payout(updated)}, nil
}

// ChangeDivision moves the request to another division. A reviewer on the
// current division may move it anywhere; the submitter may move it only to
// a division where they hold submit permission. Finalized requests stay
// put.
func (s *service) ChangeDivision(ctx context.Context, user *models.User, id int64, divisionID uuid.UUID) (*RequestDetail, error) {
	if user == nil {
		return nil, fmt.Errorf("user is required")
	}
	if divisionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "division id is required")
	}

	var updated *models.Request
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		request, err := txRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if request == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
		}

		if request.Status != enums.ActionTypeEvaluating {
			return pkgerrors.New(pkgerrors.CodeInvalidState,
				"The request must be in the evaluating state to change divisions.")
		}

		reviewer, err := s.perms.HasPermission(ctx, user, request.DivisionID, enums.PermissionReview)
		if err != nil {
			return err
		}
		if !reviewer {
			if request.CreatorID != user.ID {
				return pkgerrors.New(pkgerrors.CodeForbidden,
					"Only the submitter or a reviewer may change the request's division.")
			}
			canSubmit, err := s.perms.HasPermission(ctx, user, divisionID, enums.PermissionSubmit)
			if err != nil {
				return err
			}
			if !canSubmit {
				return pkgerrors.New(pkgerrors.CodeForbidden,
					"You must have submit permission in the target division.")
			}
		}

		if err := txRepo.UpdateDivision(ctx, request.ID, divisionID); err != nil {
			return err
		}
		request.DivisionID = divisionID
		updated = request
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &RequestDetail{Request: updated, Payout: Payout(updated)}, nil
}

func (s *service) canView(ctx context.Context, user *models.User, request *models.Request) (bool, error) {
	if request.CreatorID == user.ID {
		return true, nil
	}
	for _, permType := range enums.ElevatedPermissions {
		ok, err := s.perms.HasPermission(ctx, user, request.DivisionID, permType)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (s *service) guardTransition(ctx context.Context, user *models.User, request *models.Request, target enums.ActionType) error {
	if !canTransition(request.Status, target) {
		if request.Status == enums.ActionTypePaid {
			return pkgerrors.New(pkgerrors.CodeInvalidState,
				"Paid requests are closed and cannot change status.")
		}
		return pkgerrors.New(pkgerrors.CodeInvalidState,
			fmt.Sprintf("Cannot change status from %s to %s.", request.Status, target))
	}

	required := enums.PermissionReview
	deniedMessage := "You must have review permission to change the status of this request."
	if target == enums.ActionTypePaid {
		required = enums.PermissionPay
		deniedMessage = "You must have pay permission to mark a request as paid."
	}

	allowed, err := s.perms.HasPermission(ctx, user, request.DivisionID, required)
	if err != nil {
		return err
	}
	if !allowed {
		return pkgerrors.New(pkgerrors.CodeForbidden, deniedMessage)
	}
	return nil
}

// canTransition encodes the request state machine: evaluating fans out to
// the finalized statuses, finalized statuses reopen to evaluating, approved
// additionally moves forward to paid, and paid is terminal.
func canTransition(from, to enums.ActionType) bool {
	switch from {
	case enums.ActionTypeEvaluating:
		return to == enums.ActionTypeApproved ||
			to == enums.ActionTypeRejected ||
			to == enums.ActionTypeIncomplete
	case enums.ActionTypeApproved:
		return to == enums.ActionTypePaid || to == enums.ActionTypeEvaluating
	case enums.ActionTypeRejected, enums.ActionTypeIncomplete:
		return to == enums.ActionTypeEvaluating
	default:
		return false
	}
}
