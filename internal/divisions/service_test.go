package divisions

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/valkyrie-fleet/srp-backend/internal/permissions"
	"github.com/valkyrie-fleet/srp-backend/pkg/db/models"
	"github.com/valkyrie-fleet/srp-backend/pkg/enums"
	pkgerrors "github.com/valkyrie-fleet/srp-backend/pkg/errors"
)

type fakeDivisionRepo struct {
	divisions map[uuid.UUID]*models.Division
}

func newFakeDivisionRepo() *fakeDivisionRepo {
	return &fakeDivisionRepo{divisions: map[uuid.UUID]*models.Division{}}
}

func (f *fakeDivisionRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeDivisionRepo) Create(ctx context.Context, division *models.Division) error {
	for _, existing := range f.divisions {
		if existing.Name == division.Name {
			return fmt.Errorf(`duplicate key value violates unique constraint "ux_divisions_name"`)
		}
	}
	if division.ID == uuid.Nil {
		division.ID = uuid.New()
	}
	stored := *division
	f.divisions[division.ID] = &stored
	return nil
}

func (f *fakeDivisionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Division, error) {
	division, ok := f.divisions[id]
	if !ok {
		return nil, nil
	}
	out := *division
	return &out, nil
}

func (f *fakeDivisionRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Division, error) {
	var out []models.Division
	for _, id := range ids {
		if division, ok := f.divisions[id]; ok {
			out = append(out, *division)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeDivisionRepo) List(ctx context.Context) ([]models.Division, error) {
	var out []models.Division
	for _, division := range f.divisions {
		out = append(out, *division)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type fakeGranter struct {
	adminDivisions map[uuid.UUID]bool
	grants         []models.Permission
	revoked        []permissions.GrantInput
}

func (f *fakeGranter) HasPermission(ctx context.Context, user *models.User, divisionID uuid.UUID, permType enums.PermissionType) (bool, error) {
	if user.IsAdmin {
		return true, nil
	}
	if permType == enums.PermissionAdmin {
		return f.adminDivisions[divisionID], nil
	}
	return false, nil
}

func (f *fakeGranter) DivisionsWithPermission(ctx context.Context, user *models.User, permType enums.PermissionType) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for id, ok := range f.adminDivisions {
		if ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *fakeGranter) Grant(ctx context.Context, input permissions.GrantInput) (*models.Permission, error) {
	perm := models.Permission{
		ID:          uuid.New(),
		DivisionID:  input.DivisionID,
		GranteeType: input.GranteeType,
		GranteeID:   input.GranteeID,
		Type:        input.Type,
	}
	f.grants = append(f.grants, perm)
	return &perm, nil
}

func (f *fakeGranter) Revoke(ctx context.Context, input permissions.GrantInput) error {
	f.revoked = append(f.revoked, input)
	return nil
}

func (f *fakeGranter) ListDivisionGrants(ctx context.Context, divisionID uuid.UUID) ([]models.Permission, error) {
	var out []models.Permission
	for _, perm := range f.grants {
		if perm.DivisionID == divisionID {
			out = append(out, perm)
		}
	}
	return out, nil
}

func newTestService(t *testing.T) (Service, *fakeDivisionRepo, *fakeGranter) {
	t.Helper()
	repo := newFakeDivisionRepo()
	granter := &fakeGranter{adminDivisions: map[uuid.UUID]bool{}}
	service, err := NewService(repo, granter)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return service, repo, granter
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

func TestCreateRequiresSiteAdmin(t *testing.T) {
	service, repo, _ := newTestService(t)

	member := &models.User{ID: uuid.New()}
	_, err := service.Create(context.Background(), member, "Incursions")
	requireCode(t, err, pkgerrors.CodeForbidden)

	admin := &models.User{ID: uuid.New(), IsAdmin: true}
	division, err := service.Create(context.Background(), admin, "Incursions")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if division.ID == uuid.Nil {
		t.Error("division was not assigned an id")
	}
	if len(repo.divisions) != 1 {
		t.Fatalf("stored %d divisions, want 1", len(repo.divisions))
	}
}

func TestCreateDuplicateNameConflicts(t *testing.T) {
	service, _, _ := newTestService(t)
	admin := &models.User{ID: uuid.New(), IsAdmin: true}

	if _, err := service.Create(context.Background(), admin, "Fleet Ops"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := service.Create(context.Background(), admin, "Fleet Ops")
	requireCode(t, err, pkgerrors.CodeConflict)
}

func TestCreateRejectsBlankName(t *testing.T) {
	service, _, _ := newTestService(t)
	admin := &models.User{ID: uuid.New(), IsAdmin: true}

	_, err := service.Create(context.Background(), admin, "   ")
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestGetRequiresDivisionAdmin(t *testing.T) {
	service, _, granter := newTestService(t)
	admin := &models.User{ID: uuid.New(), IsAdmin: true}
	division, err := service.Create(context.Background(), admin, "Capitals")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	member := &models.User{ID: uuid.New()}
	_, err = service.Get(context.Background(), member, division.ID)
	requireCode(t, err, pkgerrors.CodeForbidden)

	granter.adminDivisions[division.ID] = true
	detail, err := service.Get(context.Background(), member, division.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if detail.Division.Name != "Capitals" {
		t.Errorf("division name = %q", detail.Division.Name)
	}
}

func TestGetUnknownDivision(t *testing.T) {
	service, _, _ := newTestService(t)
	admin := &models.User{ID: uuid.New(), IsAdmin: true}

	_, err := service.Get(context.Background(), admin, uuid.New())
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestListScopedToAdministeredDivisions(t *testing.T) {
	service, _, granter := newTestService(t)
	admin := &models.User{ID: uuid.New(), IsAdmin: true}

	first, err := service.Create(context.Background(), admin, "Alpha")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := service.Create(context.Background(), admin, "Bravo"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	all, err := service.List(context.Background(), admin)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("site admin sees %d divisions, want 2", len(all))
	}

	member := &models.User{ID: uuid.New()}
	granter.adminDivisions[first.ID] = true
	scoped, err := service.List(context.Background(), member)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(scoped) != 1 || scoped[0].Name != "Alpha" {
		t.Fatalf("member sees %+v, want only Alpha", scoped)
	}
}

func TestGrantAndRevokePermission(t *testing.T) {
	service, _, granter := newTestService(t)
	admin := &models.User{ID: uuid.New(), IsAdmin: true}
	division, err := service.Create(context.Background(), admin, "Roams")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	input := permissions.GrantInput{
		DivisionID:  division.ID,
		GranteeType: enums.GranteeUser,
		GranteeID:   uuid.New(),
		Type:        enums.PermissionReview,
	}

	member := &models.User{ID: uuid.New()}
	_, err = service.GrantPermission(context.Background(), member, input)
	requireCode(t, err, pkgerrors.CodeForbidden)

	granter.adminDivisions[division.ID] = true
	perm, err := service.GrantPermission(context.Background(), member, input)
	if err != nil {
		t.Fatalf("GrantPermission: %v", err)
	}
	if perm.Type != enums.PermissionReview {
		t.Errorf("granted type = %s", perm.Type)
	}

	if err := service.RevokePermission(context.Background(), member, input); err != nil {
		t.Fatalf("RevokePermission: %v", err)
	}
	if len(granter.revoked) != 1 {
		t.Fatalf("revoked %d grants, want 1", len(granter.revoked))
	}
}

func TestGrantOnUnknownDivision(t *testing.T) {
	service, _, _ := newTestService(t)
	admin := &models.User{ID: uuid.New(), IsAdmin: true}

	_, err := service.GrantPermission(context.Background(), admin, permissions.GrantInput{
		DivisionID:  uuid.New(),
		GranteeType: enums.GranteeUser,
		GranteeID:   uuid.New(),
		Type:        enums.PermissionSubmit,
	})
	requireCode(t, err, pkgerrors.CodeNotFound)
}
