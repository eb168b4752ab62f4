/*
handlers_test.go - HTTP tests for the API

Tests run the full router against an in-memory SQLite store:
- Authentication and superuser checks
- Catalog CRUD and error mapping (400 / 404 / 409)
- Sale stock checks, payment states, debts and customer detaching
- Roasted inventory listing, dashboard, snapshots and reports
- Demo scenarios
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/roastsync/roastery/auth"
	"github.com/roastsync/roastery/report"
	"github.com/roastsync/roastery/store/sqlstore"
)

const (
	adminEmail    = "admin@roastery.test"
	adminPassword = "correct-horse"
)

// =============================================================================
// TEST HARNESS
// =============================================================================

type testEnv struct {
	t      *testing.T
	router http.Handler
	store  *sqlstore.Store
	token  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlstore.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc := auth.NewService(store, auth.NewIssuer("test-secret", time.Hour), zap.NewNop())
	created, err := svc.EnsureSuperuser(context.Background(), adminEmail, adminPassword)
	require.NoError(t, err)
	require.True(t, created)

	h := NewHandler(Deps{Store: store, Auth: svc})
	env := &testEnv{t: t, router: NewRouter(h, RouterOptions{}), store: store}
	env.token = env.login(adminEmail, adminPassword)
	return env
}

func (e *testEnv) login(email, password string) string {
	e.t.Helper()
	rec := e.doAs("", http.MethodPost, "/api/v1/auth/login", LoginRequest{Email: email, Password: password})
	require.Equal(e.t, http.StatusOK, rec.Code, rec.Body.String())
	tok := decodeBody[TokenDTO](e.t, rec)
	require.NotEmpty(e.t, tok.AccessToken)
	return tok.AccessToken
}

// do sends an authenticated request as the superuser.
func (e *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	return e.doAs(e.token, method, path, body)
}

func (e *testEnv) doAs(token, method, path string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// create POSTs body and returns the new record's id.
func (e *testEnv) create(path string, body any) int64 {
	e.t.Helper()
	rec := e.do(http.MethodPost, path, body)
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[struct {
		ID int64 `json:"id"`
	}](e.t, rec).ID
}

// roast creates a farm, variety and lot, then a roast producing roastedG.
func (e *testEnv) roast(roastedG float64) int64 {
	e.t.Helper()
	farm := e.create("/api/v1/farms", FarmRequest{Name: fmt.Sprintf("Farm %d", time.Now().UnixNano())})
	variety := e.create("/api/v1/varieties", VarietyRequest{Name: fmt.Sprintf("Variety %d", time.Now().UnixNano())})
	lot := e.create("/api/v1/lots", LotRequest{
		FarmID: farm, VarietyID: variety, Process: "washed",
		PurchaseDate: "2025-01-10", GreenWeightG: 10000, PricePerKg: 30000,
	})
	return e.create("/api/v1/roasts", RoastRequest{
		LotID: lot, RoastDate: "2025-01-15", GreenInputG: roastedG * 1.2, RoastedOutputG: roastedG, RoastLevel: "medium",
	})
}

func bags(n int) *int { return &n }

// =============================================================================
// AUTH TESTS
// =============================================================================

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doAs("", http.MethodGet, "/healthz", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, HealthDTO{Status: "ok", Database: "ok"}, decodeBody[HealthDTO](t, rec))
}

func TestAPI_RequiresBearerToken(t *testing.T) {
	env := newTestEnv(t)

	for _, token := range []string{"", "not-a-token"} {
		rec := env.doAs(token, http.MethodGet, "/api/v1/farms", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "token %q", token)
		assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	}
}

func TestLogin_FormAndJSON(t *testing.T) {
	env := newTestEnv(t)

	// GIVEN: An OAuth2-style form post
	form := url.Values{"username": {adminEmail}, "password": {adminPassword}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	// WHEN: Logging in
	env.router.ServeHTTP(rec, req)

	// THEN: A bearer token comes back and resolves to the admin
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tok := decodeBody[TokenDTO](t, rec)
	assert.Equal(t, "bearer", tok.TokenType)

	me := env.doAs(tok.AccessToken, http.MethodGet, "/api/v1/auth/me", nil)
	require.Equal(t, http.StatusOK, me.Code)
	user := decodeBody[UserDTO](t, me)
	assert.Equal(t, adminEmail, user.Email)
	assert.Equal(t, "Admin", user.FullName)
	assert.True(t, user.IsSuperuser)

	// AND: A wrong password is a 401
	bad := env.doAs("", http.MethodPost, "/api/v1/auth/login", LoginRequest{Email: adminEmail, Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, bad.Code)
}

func TestUsers_SuperuserOnly(t *testing.T) {
	env := newTestEnv(t)

	// GIVEN: A regular staff account
	rec := env.do(http.MethodPost, "/api/v1/users", UserRequest{
		Email: "barista@roastery.test", Password: "long-enough", FullName: "Barista",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	staff := decodeBody[UserDTO](t, rec)
	assert.True(t, staff.IsActive)
	assert.False(t, staff.IsSuperuser)

	token := env.login("barista@roastery.test", "long-enough")

	// THEN: Day-to-day routes work, admin routes do not
	assert.Equal(t, http.StatusOK, env.doAs(token, http.MethodGet, "/api/v1/farms", nil).Code)
	assert.Equal(t, http.StatusForbidden, env.doAs(token, http.MethodGet, "/api/v1/users", nil).Code)
	assert.Equal(t, http.StatusForbidden, env.doAs(token, http.MethodPost, "/api/v1/auth/register",
		UserRequest{Email: "x@roastery.test", Password: "long-enough"}).Code)
	assert.Equal(t, http.StatusForbidden, env.doAs(token, http.MethodPost, "/api/v1/dashboard/snapshots", nil).Code)

	// AND: Duplicates are rejected
	dup := env.do(http.MethodPost, "/api/v1/auth/register", UserRequest{Email: "barista@roastery.test", Password: "long-enough"})
	assert.Equal(t, http.StatusBadRequest, dup.Code)

	// AND: A deactivated account can no longer use its token
	active := false
	upd := env.do(http.MethodPut, fmt.Sprintf("/api/v1/users/%d", staff.ID), UserUpdateRequest{IsActive: &active})
	require.Equal(t, http.StatusOK, upd.Code, upd.Body.String())
	assert.Equal(t, http.StatusBadRequest, env.doAs(token, http.MethodGet, "/api/v1/farms", nil).Code)
}

func TestDeleteUser_RefusesOwnAccount(t *testing.T) {
	env := newTestEnv(t)

	me := decodeBody[UserDTO](t, env.do(http.MethodGet, "/api/v1/auth/me", nil))
	rec := env.do(http.MethodDelete, fmt.Sprintf("/api/v1/users/%d", me.ID), nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// CATALOG TESTS
// =============================================================================

func TestFarmCRUD(t *testing.T) {
	env := newTestEnv(t)

	id := env.create("/api/v1/farms", FarmRequest{Name: "La Esperanza", Location: "Huila"})
	path := fmt.Sprintf("/api/v1/farms/%d", id)

	// Partial update keeps the location
	name := "Finca La Esperanza"
	rec := env.do(http.MethodPut, path, FarmUpdateRequest{Name: &name})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	farm := decodeBody[FarmDTO](t, rec)
	assert.Equal(t, "Finca La Esperanza", farm.Name)
	assert.Equal(t, "Huila", farm.Location)

	list := decodeBody[[]FarmDTO](t, env.do(http.MethodGet, "/api/v1/farms", nil))
	assert.Len(t, list, 1)

	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, path, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, path, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodDelete, path, nil).Code)
}

func TestCreateFarm_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/farms", FarmRequest{Location: "Huila"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody[struct {
		Error   string            `json:"error"`
		Details map[string]string `json:"details"`
	}](t, rec)
	assert.Equal(t, "validation failed", resp.Error)
	assert.Equal(t, map[string]string{"name": "required"}, resp.Details)

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/api/v1/farms", "{not json").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/v1/farms/abc", nil).Code)
}

func TestDeleteFarm_StillReferenced(t *testing.T) {
	env := newTestEnv(t)

	// GIVEN: A farm with a lot
	env.roast(1000)
	farms := decodeBody[[]FarmDTO](t, env.do(http.MethodGet, "/api/v1/farms", nil))
	require.Len(t, farms, 1)

	// WHEN/THEN: Deleting the farm conflicts
	rec := env.do(http.MethodDelete, fmt.Sprintf("/api/v1/farms/%d", farms[0].ID), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateLot_UnknownFarm(t *testing.T) {
	env := newTestEnv(t)
	variety := env.create("/api/v1/varieties", VarietyRequest{Name: "Caturra"})

	rec := env.do(http.MethodPost, "/api/v1/lots", LotRequest{
		FarmID: 999, VarietyID: variety, Process: "washed",
		PurchaseDate: "2025-01-10", GreenWeightG: 1000, PricePerKg: 30000,
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// SALES TESTS
// =============================================================================

func TestCreateSale_RejectsOversell(t *testing.T) {
	env := newTestEnv(t)

	// GIVEN: 1000g roasted, 950g already sold
	roast := env.roast(1000)
	env.create("/api/v1/sales", SaleRequest{
		SaleDate: "2025-01-20",
		Items: []SaleItemRequest{
			{RoastBatchID: roast, BagSizeG: 250, Bags: bags(3), BagPrice: 22000},
			{RoastBatchID: roast, BagSizeG: 200, BagPrice: 18000},
		},
	})

	// WHEN: Selling another 250g bag
	rec := env.do(http.MethodPost, "/api/v1/sales", SaleRequest{
		SaleDate: "2025-01-21",
		Items:    []SaleItemRequest{{RoastBatchID: roast, BagSizeG: 250, BagPrice: 22000}},
	})

	// THEN: The error names what is left
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody[struct {
		Error   string         `json:"error"`
		Details map[string]any `json:"details"`
	}](t, rec)
	assert.Contains(t, resp.Error, "available: 50g")
	assert.Equal(t, float64(50), resp.Details["available_g"])
	assert.Equal(t, float64(250), resp.Details["requested_g"])
}

func TestUpdateSale_CustomerKeptOrCleared(t *testing.T) {
	env := newTestEnv(t)
	roast := env.roast(1000)
	customer := env.create("/api/v1/customers", CustomerRequest{Name: "Café Central"})

	id := env.create("/api/v1/sales", SaleRequest{
		CustomerID: &customer, SaleDate: "2025-01-20",
		Items: []SaleItemRequest{{RoastBatchID: roast, BagSizeG: 250, BagPrice: 22000}},
	})
	path := fmt.Sprintf("/api/v1/sales/%d", id)

	// Absent key keeps the customer
	rec := env.do(http.MethodPut, path, `{"notes": "delivered"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sale := decodeBody[SaleDTO](t, rec)
	require.NotNil(t, sale.CustomerID)
	assert.Equal(t, customer, *sale.CustomerID)
	assert.Equal(t, "delivered", sale.Notes)
	assert.Len(t, sale.Items, 1)

	// Explicit null detaches it
	rec = env.do(http.MethodPut, path, `{"customer_id": null}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Nil(t, decodeBody[SaleDTO](t, rec).CustomerID)
}

func TestDebts_FilterByStatus(t *testing.T) {
	env := newTestEnv(t)
	roast := env.roast(5000)
	item := []SaleItemRequest{{RoastBatchID: roast, BagSizeG: 250, Bags: bags(2), BagPrice: 20000}}

	// GIVEN: One paid, one partially paid and one unpaid sale of 40000
	partial := 15000.0
	env.create("/api/v1/sales", SaleRequest{SaleDate: "2025-02-01", Items: item, IsPaid: true})
	env.create("/api/v1/sales", SaleRequest{SaleDate: "2025-02-02", Items: item, AmountPaid: &partial})
	env.create("/api/v1/sales", SaleRequest{SaleDate: "2025-02-03", Items: item})

	all := decodeBody[[]SaleDTO](t, env.do(http.MethodGet, "/api/v1/sales/debts", nil))
	assert.Len(t, all, 2)

	part := decodeBody[[]SaleDTO](t, env.do(http.MethodGet, "/api/v1/sales/debts?status=partial", nil))
	require.Len(t, part, 1)
	assert.Equal(t, 15000.0, part[0].AmountPaid)
	assert.Equal(t, 25000.0, part[0].Outstanding)
	assert.False(t, part[0].IsPaid)

	pending := decodeBody[[]SaleDTO](t, env.do(http.MethodGet, "/api/v1/sales/debts?status=pending", nil))
	require.Len(t, pending, 1)
	assert.Equal(t, 40000.0, pending[0].Outstanding)

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/v1/sales/debts?status=overdue", nil).Code)
}

func TestDeleteSale_ReturnsStock(t *testing.T) {
	env := newTestEnv(t)
	roast := env.roast(500)

	id := env.create("/api/v1/sales", SaleRequest{
		SaleDate: "2025-01-20",
		Items:    []SaleItemRequest{{RoastBatchID: roast, BagSizeG: 500, BagPrice: 40000}},
	})
	require.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, fmt.Sprintf("/api/v1/sales/%d", id), nil).Code)

	// The same 500g sells again
	env.create("/api/v1/sales", SaleRequest{
		SaleDate: "2025-01-21",
		Items:    []SaleItemRequest{{RoastBatchID: roast, BagSizeG: 500, BagPrice: 40000}},
	})
}

// =============================================================================
// INVENTORY, DASHBOARD AND REPORT TESTS
// =============================================================================

func TestRoastedInventory_ShowsOverdrawnBatch(t *testing.T) {
	env := newTestEnv(t)

	// GIVEN: 1000g roasted, 750g sold, then a recount removes 400g
	roast := env.roast(1000)
	env.create("/api/v1/sales", SaleRequest{
		SaleDate: "2025-01-20",
		Items:    []SaleItemRequest{{RoastBatchID: roast, BagSizeG: 250, Bags: bags(3), BagPrice: 22000}},
	})
	env.create("/api/v1/inventory/adjustments", AdjustmentRequest{RoastBatchID: roast, AdjustmentG: -400, Reason: "recount"})

	// WHEN: Listing roasted stock
	rec := env.do(http.MethodGet, "/api/v1/inventory/roasted", nil)

	// THEN: Available goes negative in the listing
	require.Equal(t, http.StatusOK, rec.Code)
	rows := decodeBody[[]RoastedInventoryDTO](t, rec)
	require.Len(t, rows, 1)
	assert.Equal(t, roast, rows[0].RoastID)
	assert.Equal(t, 750.0, rows[0].SoldG)
	assert.Equal(t, -400.0, rows[0].AdjustmentsG)
	assert.Equal(t, -150.0, rows[0].AvailableG)

	// AND: Nothing more can be sold from it
	sale := env.do(http.MethodPost, "/api/v1/sales", SaleRequest{
		SaleDate: "2025-01-22",
		Items:    []SaleItemRequest{{RoastBatchID: roast, BagSizeG: 100, BagPrice: 9000}},
	})
	assert.Equal(t, http.StatusBadRequest, sale.Code)

	adj := decodeBody[[]AdjustmentDTO](t, env.do(http.MethodGet, fmt.Sprintf("/api/v1/inventory/adjustments?roast_id=%d", roast), nil))
	require.Len(t, adj, 1)
	assert.Equal(t, "recount", adj[0].Reason)
}

func TestDashboard_SummaryAndSnapshots(t *testing.T) {
	env := newTestEnv(t)
	roast := env.roast(1000)
	env.create("/api/v1/sales", SaleRequest{
		SaleDate: "2025-01-20", IsPaid: true,
		Items: []SaleItemRequest{{RoastBatchID: roast, BagSizeG: 250, Bags: bags(2), BagPrice: 20000}},
	})

	rec := env.do(http.MethodGet, "/api/v1/dashboard/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decodeBody[DashboardDTO](t, rec)
	assert.Equal(t, 1000.0, summary.RoastedProducedG)
	assert.Equal(t, 500.0, summary.RoastedSoldG)
	assert.Equal(t, 500.0, summary.RoastedAvailableG)
	assert.Equal(t, 40000.0, summary.SalesRevenue)
	assert.Equal(t, 40000.0, summary.CashCollected)
	assert.Equal(t, 0.0, summary.Receivables)

	snap := env.do(http.MethodPost, "/api/v1/dashboard/snapshots", nil)
	require.Equal(t, http.StatusCreated, snap.Code, snap.Body.String())

	snaps := decodeBody[[]SnapshotDTO](t, env.do(http.MethodGet, "/api/v1/dashboard/snapshots", nil))
	require.Len(t, snaps, 1)
	assert.Equal(t, 40000.0, snaps[0].Summary.SalesRevenue)

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/v1/dashboard/snapshots?limit=-1", nil).Code)
}

func TestReports_ServeWorkbooks(t *testing.T) {
	env := newTestEnv(t)
	env.roast(1000)

	for _, path := range []string{"/api/v1/reports/sales.xlsx", "/api/v1/reports/inventory.xlsx"} {
		rec := env.do(http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, report.ContentType, rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
		assert.NotZero(t, rec.Body.Len())
	}
}

// =============================================================================
// SCENARIO TESTS
// =============================================================================

func TestScenarios_LoadIntoEmptyDatabase(t *testing.T) {
	env := newTestEnv(t)

	list := decodeBody[[]ScenarioDTO](t, env.do(http.MethodGet, "/api/v1/scenarios", nil))
	assert.Len(t, list, 2)

	rec := env.do(http.MethodPost, "/api/v1/scenarios/load", LoadScenarioRequest{ScenarioID: "first-harvest"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	sales := decodeBody[[]SaleDTO](t, env.do(http.MethodGet, "/api/v1/sales", nil))
	assert.Len(t, sales, 3)
	debts := decodeBody[[]SaleDTO](t, env.do(http.MethodGet, "/api/v1/sales/debts", nil))
	assert.Len(t, debts, 2)

	// A second load refuses to mix data sets
	again := env.do(http.MethodPost, "/api/v1/scenarios/load", LoadScenarioRequest{ScenarioID: "stock-recount"})
	assert.Equal(t, http.StatusConflict, again.Code)
}

func TestScenarios_StockRecountOverdraws(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/scenarios/load", LoadScenarioRequest{ScenarioID: "stock-recount"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rows := decodeBody[[]RoastedInventoryDTO](t, env.do(http.MethodGet, "/api/v1/inventory/roasted", nil))
	require.Len(t, rows, 1)
	assert.Equal(t, -50.0, rows[0].AvailableG)

	unknown := env.do(http.MethodPost, "/api/v1/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusBadRequest, unknown.Code)
}
