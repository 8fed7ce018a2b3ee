package requests

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/valkyrie-fleet/srp-backend/pkg/db/models"
	"github.com/valkyrie-fleet/srp-backend/pkg/enums"
	"github.com/valkyrie-fleet/srp-backend/pkg/pagination"
)

func setupRequestsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := []string{`
CREATE TABLE IF NOT EXISTS requests (
  id INTEGER PRIMARY KEY,
  creator_id TEXT NOT NULL,
  division_id TEXT NOT NULL,
  pilot_id INTEGER NOT NULL,
  pilot_name TEXT NOT NULL,
  corporation_name TEXT NOT NULL,
  alliance_name TEXT,
  ship_type TEXT NOT NULL,
  system_name TEXT NOT NULL,
  constellation_name TEXT NOT NULL DEFAULT '',
  region_name TEXT NOT NULL DEFAULT '',
  killmail_url TEXT NOT NULL,
  kill_timestamp DATETIME,
  details TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'evaluating',
  base_payout NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS actions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  request_id INTEGER NOT NULL,
  user_id TEXT NOT NULL,
  type TEXT NOT NULL,
  note TEXT NOT NULL DEFAULT '',
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS modifiers (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  request_id INTEGER NOT NULL,
  user_id TEXT NOT NULL,
  kind TEXT NOT NULL,
  value NUMERIC NOT NULL,
  note TEXT NOT NULL DEFAULT '',
  void_user_id TEXT,
  void_timestamp DATETIME,
  created_at DATETIME
);`}
	for _, stmt := range schema {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func newStoredRequest(id int64, creatorID, divisionID uuid.UUID, status enums.ActionType, createdAt time.Time) *models.Request {
	return &models.Request{
		ID:              id,
		CreatorID:       creatorID,
		DivisionID:      divisionID,
		PilotID:         570140137,
		PilotName:       "Paxswill",
		CorporationName: "Dreddit",
		ShipType:        "Vexor",
		SystemName:      "Renarelle",
		KillmailURL:     "https://zkillboard.com/kill/37637533/",
		KillTimestamp:   time.Date(2014, 3, 20, 2, 32, 0, 0, time.UTC),
		Status:          status,
		BasePayout:      decimal.RequireFromString("73957900000"),
		CreatedAt:       createdAt,
	}
}

func TestRepositoryCreateAndGet(t *testing.T) {
	conn := setupRequestsTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	creatorID := uuid.New()
	divisionID := uuid.New()
	request := newStoredRequest(37637533, creatorID, divisionID, enums.ActionTypeEvaluating, time.Now())
	require.NoError(t, repo.Create(ctx, request))

	require.NoError(t, repo.CreateAction(ctx, &models.Action{
		RequestID: request.ID,
		UserID:    creatorID,
		Type:      enums.ActionTypeEvaluating,
	}))
	require.NoError(t, repo.CreateAction(ctx, &models.Action{
		RequestID: request.ID,
		UserID:    creatorID,
		Type:      enums.ActionTypeComment,
		Note:      "Doctrine fit confirmed.",
	}))

	loaded, err := repo.GetByID(ctx, request.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, creatorID, loaded.CreatorID)
	assert.True(t, loaded.BasePayout.Equal(decimal.RequireFromString("73957900000")))
	require.Len(t, loaded.Actions, 2)
	assert.Equal(t, enums.ActionTypeEvaluating, loaded.Actions[0].Type)
	assert.Equal(t, enums.ActionTypeComment, loaded.Actions[1].Type)
}

func TestRepositoryGetMissingReturnsNil(t *testing.T) {
	conn := setupRequestsTestDB(t)
	repo := NewRepository(conn)

	loaded, err := repo.GetByID(context.Background(), 12345)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRepositoryDuplicateKillViolatesPrimaryKey(t *testing.T) {
	conn := setupRequestsTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	request := newStoredRequest(37637533, uuid.New(), uuid.New(), enums.ActionTypeEvaluating, time.Now())
	require.NoError(t, repo.Create(ctx, request))

	dupe := newStoredRequest(37637533, uuid.New(), uuid.New(), enums.ActionTypeEvaluating, time.Now())
	assert.Error(t, repo.Create(ctx, dupe))
}

func TestRepositoryUpdates(t *testing.T) {
	conn := setupRequestsTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	request := newStoredRequest(37637533, uuid.New(), uuid.New(), enums.ActionTypeEvaluating, time.Now())
	require.NoError(t, repo.Create(ctx, request))

	require.NoError(t, repo.UpdateStatus(ctx, request.ID, enums.ActionTypeApproved))

	newAmount := decimal.RequireFromString("50000000000")
	require.NoError(t, repo.UpdateBasePayout(ctx, request.ID, newAmount))

	newDivision := uuid.New()
	require.NoError(t, repo.UpdateDivision(ctx, request.ID, newDivision))

	loaded, err := repo.GetByID(ctx, request.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, enums.ActionTypeApproved, loaded.Status)
	assert.True(t, loaded.BasePayout.Equal(newAmount))
	assert.Equal(t, newDivision, loaded.DivisionID)
}

func TestRepositoryGetLoadsModifiersInCreationOrder(t *testing.T) {
	conn := setupRequestsTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	userID := uuid.New()
	request := newStoredRequest(37637533, userID, uuid.New(), enums.ActionTypeEvaluating, time.Now())
	require.NoError(t, repo.Create(ctx, request))

	first := models.Modifier{
		RequestID: request.ID,
		UserID:    userID,
		Kind:      enums.ModifierKindAbsolute,
		Value:     decimal.RequireFromString("10000000"),
	}
	second := models.Modifier{
		RequestID: request.ID,
		UserID:    userID,
		Kind:      enums.ModifierKindRelative,
		Value:     decimal.RequireFromString("-0.1"),
	}
	require.NoError(t, conn.Create(&first).Error)
	require.NoError(t, conn.Create(&second).Error)

	loaded, err := repo.GetByID(ctx, request.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Modifiers, 2)
	assert.Equal(t, enums.ModifierKindAbsolute, loaded.Modifiers[0].Kind)
	assert.Equal(t, enums.ModifierKindRelative, loaded.Modifiers[1].Kind)
	assert.True(t, loaded.Modifiers[0].ID < loaded.Modifiers[1].ID)
}

func TestRepositoryListVisibility(t *testing.T) {
	conn := setupRequestsTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	userID := uuid.New()
	elevated := uuid.New()
	other := uuid.New()
	base := time.Now()

	require.NoError(t, repo.Create(ctx, newStoredRequest(1, userID, other, enums.ActionTypeEvaluating, base)))
	require.NoError(t, repo.Create(ctx, newStoredRequest(2, uuid.New(), elevated, enums.ActionTypeApproved, base.Add(time.Minute))))
	require.NoError(t, repo.Create(ctx, newStoredRequest(3, uuid.New(), other, enums.ActionTypeEvaluating, base.Add(2*time.Minute))))

	rows, err := repo.List(ctx, Filter{
		ElevatedDivisionIDs: []uuid.UUID{elevated},
		CreatorID:           &userID,
	}, 10, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	// Newest first.
	assert.Equal(t, int64(2), rows[0].ID)
	assert.Equal(t, int64(1), rows[1].ID)
}

func TestRepositoryListFilters(t *testing.T) {
	conn := setupRequestsTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	divisionID := uuid.New()
	base := time.Now()

	approved := newStoredRequest(1, uuid.New(), divisionID, enums.ActionTypeApproved, base)
	evaluating := newStoredRequest(2, uuid.New(), divisionID, enums.ActionTypeEvaluating, base.Add(time.Minute))
	evaluating.ShipType = "Drake"
	require.NoError(t, repo.Create(ctx, approved))
	require.NoError(t, repo.Create(ctx, evaluating))

	rows, err := repo.List(ctx, Filter{
		ElevatedDivisionIDs: []uuid.UUID{divisionID},
		Statuses:            []enums.ActionType{enums.ActionTypeApproved},
	}, 10, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].ID)

	rows, err = repo.List(ctx, Filter{
		ElevatedDivisionIDs: []uuid.UUID{divisionID},
		ShipTypes:           []string{"Drake"},
	}, 10, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0].ID)
}

func TestRepositoryListCursor(t *testing.T) {
	conn := setupRequestsTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	divisionID := uuid.New()
	base := time.Now().Truncate(time.Second)
	for i := int64(1); i <= 3; i++ {
		require.NoError(t, repo.Create(ctx,
			newStoredRequest(i, uuid.New(), divisionID, enums.ActionTypeEvaluating, base.Add(time.Duration(i)*time.Minute))))
	}

	filter := Filter{ElevatedDivisionIDs: []uuid.UUID{divisionID}}

	first, err := repo.List(ctx, filter, 2, nil)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, int64(3), first[0].ID)

	cursor := &pagination.Cursor{CreatedAt: first[1].CreatedAt, ID: first[1].ID}
	second, err := repo.List(ctx, filter, 2, cursor)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, int64(1), second[0].ID)
}

func TestRepositoryTotalPayout(t *testing.T) {
	conn := setupRequestsTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	userID := uuid.New()
	divisionID := uuid.New()
	base := time.Now().Truncate(time.Second)

	approved := newStoredRequest(1, userID, divisionID, enums.ActionTypeApproved, base)
	evaluating := newStoredRequest(2, userID, divisionID, enums.ActionTypeEvaluating, base.Add(time.Minute))
	rejected := newStoredRequest(3, userID, divisionID, enums.ActionTypeRejected, base.Add(2*time.Minute))
	elsewhere := newStoredRequest(4, userID, uuid.New(), enums.ActionTypeApproved, base.Add(3*time.Minute))
	for _, request := range []*models.Request{approved, evaluating, rejected, elsewhere} {
		require.NoError(t, repo.Create(ctx, request))
	}

	// Modifiers on the approved request change its contribution to the fold.
	require.NoError(t, conn.Create(&models.Modifier{
		RequestID: approved.ID,
		UserID:    userID,
		Kind:      enums.ModifierKindAbsolute,
		Value:     decimal.RequireFromString("10000000"),
	}).Error)
	require.NoError(t, conn.Create(&models.Modifier{
		RequestID: approved.ID,
		UserID:    userID,
		Kind:      enums.ModifierKindRelative,
		Value:     decimal.RequireFromString("-0.1"),
	}).Error)

	filter := Filter{ElevatedDivisionIDs: []uuid.UUID{divisionID}}

	// A limited listing does not narrow the aggregate.
	page, err := repo.List(ctx, filter, 1, nil)
	require.NoError(t, err)
	require.Len(t, page, 1)

	total, err := repo.TotalPayout(ctx, filter)
	require.NoError(t, err)
	want := decimal.RequireFromString("66571110000").
		Add(decimal.RequireFromString("73957900000"))
	assert.True(t, total.Equal(want), "total payout = %s, want %s", total, want)
}
