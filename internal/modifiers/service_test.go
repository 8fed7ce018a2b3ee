package modifiers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/valkyrie-fleet/srp-backend/internal/requests"
	"github.com/valkyrie-fleet/srp-backend/pkg/db/models"
	"github.com/valkyrie-fleet/srp-backend/pkg/enums"
	pkgerrors "github.com/valkyrie-fleet/srp-backend/pkg/errors"
	"github.com/valkyrie-fleet/srp-backend/pkg/pagination"
)

type fakeModifierRepo struct {
	modifiers map[int64]*models.Modifier
	nextID    int64
}

func newFakeModifierRepo() *fakeModifierRepo {
	return &fakeModifierRepo{modifiers: map[int64]*models.Modifier{}}
}

func (f *fakeModifierRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeModifierRepo) Create(ctx context.Context, modifier *models.Modifier) error {
	f.nextID++
	modifier.ID = f.nextID
	stored := *modifier
	f.modifiers[modifier.ID] = &stored
	return nil
}

func (f *fakeModifierRepo) GetByID(ctx context.Context, id int64) (*models.Modifier, error) {
	modifier, ok := f.modifiers[id]
	if !ok {
		return nil, nil
	}
	out := *modifier
	return &out, nil
}

func (f *fakeModifierRepo) SetVoid(ctx context.Context, id int64, userID uuid.UUID, voidedAt time.Time) error {
	f.modifiers[id].VoidUserID = &userID
	f.modifiers[id].VoidTimestamp = &voidedAt
	return nil
}

func (f *fakeModifierRepo) ClearVoid(ctx context.Context, id int64) error {
	f.modifiers[id].VoidUserID = nil
	f.modifiers[id].VoidTimestamp = nil
	return nil
}

func (f *fakeModifierRepo) ListByRequest(ctx context.Context, requestID int64) ([]models.Modifier, error) {
	var out []models.Modifier
	for id := int64(1); id <= f.nextID; id++ {
		if modifier, ok := f.modifiers[id]; ok && modifier.RequestID == requestID {
			out = append(out, *modifier)
		}
	}
	return out, nil
}

// fakeRequestRepo holds a single request, which is all the modifier flows
// touch.
type fakeRequestRepo struct {
	request *models.Request
}

func (f *fakeRequestRepo) WithTx(tx *gorm.DB) requests.Repository { return f }

func (f *fakeRequestRepo) Create(ctx context.Context, request *models.Request) error {
	f.request = request
	return nil
}

func (f *fakeRequestRepo) GetByID(ctx context.Context, id int64) (*models.Request, error) {
	return f.GetByIDForUpdate(ctx, id)
}

func (f *fakeRequestRepo) GetByIDForUpdate(ctx context.Context, id int64) (*models.Request, error) {
	if f.request == nil || f.request.ID != id {
		return nil, nil
	}
	out := *f.request
	return &out, nil
}

func (f *fakeRequestRepo) UpdateStatus(ctx context.Context, id int64, status enums.ActionType) error {
	f.request.Status = status
	return nil
}

func (f *fakeRequestRepo) UpdateBasePayout(ctx context.Context, id int64, amount decimal.Decimal) error {
	f.request.BasePayout = amount
	return nil
}

func (f *fakeRequestRepo) UpdateDivision(ctx context.Context, id int64, divisionID uuid.UUID) error {
	f.request.DivisionID = divisionID
	return nil
}

func (f *fakeRequestRepo) CreateAction(ctx context.Context, action *models.Action) error {
	return nil
}

func (f *fakeRequestRepo) List(ctx context.Context, filter requests.Filter, limit int, cursor *pagination.Cursor) ([]models.Request, error) {
	return nil, nil
}

func (f *fakeRequestRepo) TotalPayout(ctx context.Context, filter requests.Filter) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakePerms struct {
	reviewDivisions map[uuid.UUID]bool
}

func (f *fakePerms) HasPermission(ctx context.Context, user *models.User, divisionID uuid.UUID, permType enums.PermissionType) (bool, error) {
	if permType != enums.PermissionReview {
		return false, nil
	}
	return f.reviewDivisions[divisionID], nil
}

type harness struct {
	service  Service
	repo     *fakeModifierRepo
	requests *fakeRequestRepo
	perms    *fakePerms
	division uuid.UUID
}

func newHarness(t *testing.T, status enums.ActionType) *harness {
	t.Helper()
	division := uuid.New()
	requestRepo := &fakeRequestRepo{request: &models.Request{
		ID:         37637533,
		DivisionID: division,
		Status:     status,
		BasePayout: decimal.RequireFromString("73957900000"),
	}}
	repo := newFakeModifierRepo()
	perms := &fakePerms{reviewDivisions: map[uuid.UUID]bool{}}
	service, err := NewService(repo, requestRepo, fakeTx{}, perms, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &harness{service: service, repo: repo, requests: requestRepo, perms: perms, division: division}
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if !pkgerrors.HasCode(err, code) {
		t.Fatalf("expected %s error, got %v", code, err)
	}
}

func TestAddRequiresReviewPermission(t *testing.T) {
	h := newHarness(t, enums.ActionTypeEvaluating)
	user := &models.User{ID: uuid.New()}

	_, err := h.service.Add(context.Background(), user, 37637533, AddInput{
		Kind:  enums.ModifierKindAbsolute,
		Value: decimal.RequireFromString("10000000"),
	})
	requireCode(t, err, pkgerrors.CodeForbidden)
	if len(h.repo.modifiers) != 0 {
		t.Fatal("denied add must leave the ledger unchanged")
	}

	// Granting review on the division makes the same call succeed.
	h.perms.reviewDivisions[h.division] = true
	modifier, err := h.service.Add(context.Background(), user, 37637533, AddInput{
		Kind:  enums.ModifierKindAbsolute,
		Value: decimal.RequireFromString("10000000"),
		Note:  "Hull upgrade reimbursement.",
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if modifier.ID == 0 {
		t.Error("modifier was not assigned an id")
	}
	if modifier.UserID != user.ID {
		t.Errorf("modifier user = %s, want the caller", modifier.UserID)
	}
}

func TestAddOnlyWhileEvaluating(t *testing.T) {
	for _, status := range []enums.ActionType{
		enums.ActionTypeApproved,
		enums.ActionTypeRejected,
		enums.ActionTypeIncomplete,
		enums.ActionTypePaid,
	} {
		h := newHarness(t, status)
		h.perms.reviewDivisions[h.division] = true
		user := &models.User{ID: uuid.New()}

		_, err := h.service.Add(context.Background(), user, 37637533, AddInput{
			Kind:  enums.ModifierKindAbsolute,
			Value: decimal.RequireFromString("10000000"),
		})
		requireCode(t, err, pkgerrors.CodeInvalidState)
	}
}

func TestAddRejectsRelativeAtOrBelowNegativeOne(t *testing.T) {
	h := newHarness(t, enums.ActionTypeEvaluating)
	h.perms.reviewDivisions[h.division] = true
	user := &models.User{ID: uuid.New()}

	for _, value := range []string{"-1", "-1.5"} {
		_, err := h.service.Add(context.Background(), user, 37637533, AddInput{
			Kind:  enums.ModifierKindRelative,
			Value: decimal.RequireFromString(value),
		})
		requireCode(t, err, pkgerrors.CodeValidation)
	}

	// -0.99 is extreme but legal.
	if _, err := h.service.Add(context.Background(), user, 37637533, AddInput{
		Kind:  enums.ModifierKindRelative,
		Value: decimal.RequireFromString("-0.99"),
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}
}

func TestVoidAndUnvoid(t *testing.T) {
	h := newHarness(t, enums.ActionTypeEvaluating)
	h.perms.reviewDivisions[h.division] = true
	user := &models.User{ID: uuid.New()}

	modifier, err := h.service.Add(context.Background(), user, 37637533, AddInput{
		Kind:  enums.ModifierKindRelative,
		Value: decimal.RequireFromString("-0.1"),
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	voided, err := h.service.Void(context.Background(), user, modifier.ID)
	if err != nil {
		t.Fatalf("Void: %v", err)
	}
	if !voided.IsVoid() {
		t.Fatal("modifier is not void after Void")
	}
	if voided.VoidUserID == nil || *voided.VoidUserID != user.ID {
		t.Error("void attribution missing")
	}

	// Voiding again is a no-op, not an error.
	again, err := h.service.Void(context.Background(), user, modifier.ID)
	if err != nil {
		t.Fatalf("second Void: %v", err)
	}
	if !again.IsVoid() {
		t.Fatal("repeat Void cleared the void state")
	}

	restored, err := h.service.Unvoid(context.Background(), user, modifier.ID)
	if err != nil {
		t.Fatalf("Unvoid: %v", err)
	}
	if restored.IsVoid() {
		t.Fatal("modifier still void after Unvoid")
	}

	// Unvoiding a live modifier is also a no-op.
	if _, err := h.service.Unvoid(context.Background(), user, modifier.ID); err != nil {
		t.Fatalf("second Unvoid: %v", err)
	}
}

func TestVoidRequiresReviewPermission(t *testing.T) {
	h := newHarness(t, enums.ActionTypeEvaluating)
	h.perms.reviewDivisions[h.division] = true
	reviewer := &models.User{ID: uuid.New()}

	modifier, err := h.service.Add(context.Background(), reviewer, 37637533, AddInput{
		Kind:  enums.ModifierKindAbsolute,
		Value: decimal.RequireFromString("10000000"),
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	h.perms.reviewDivisions[h.division] = false
	_, err = h.service.Void(context.Background(), reviewer, modifier.ID)
	requireCode(t, err, pkgerrors.CodeForbidden)
}

func TestVoidBlockedAfterFinalization(t *testing.T) {
	h := newHarness(t, enums.ActionTypeEvaluating)
	h.perms.reviewDivisions[h.division] = true
	user := &models.User{ID: uuid.New()}

	modifier, err := h.service.Add(context.Background(), user, 37637533, AddInput{
		Kind:  enums.ModifierKindAbsolute,
		Value: decimal.RequireFromString("10000000"),
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	h.requests.request.Status = enums.ActionTypeApproved
	_, err = h.service.Void(context.Background(), user, modifier.ID)
	requireCode(t, err, pkgerrors.CodeInvalidState)
}

func TestVoidUnknownModifier(t *testing.T) {
	h := newHarness(t, enums.ActionTypeEvaluating)
	h.perms.reviewDivisions[h.division] = true

	_, err := h.service.Void(context.Background(), &models.User{ID: uuid.New()}, 9999)
	requireCode(t, err, pkgerrors.CodeNotFound)
}
