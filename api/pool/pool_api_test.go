package pool_test

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"bookable.GO/api"
	poolApi "bookable.GO/api/pool"
	stockEntity "bookable.GO/model/entity/stock"
	stockService "bookable.GO/service/stock"
)

const (
	testUser = "admin"
	testPass = "secret"
)

func poolTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	tmpFile := filepath.Join(os.TempDir(), fmt.Sprintf("pool_api_test_%s_%d.db", t.Name(), time.Now().UnixNano()))
	t.Cleanup(func() { os.Remove(tmpFile) })
	db, err := gorm.Open(sqlite.Open(tmpFile), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")
	if err := db.AutoMigrate(
		&stockEntity.StockableItem{},
		&stockEntity.PoolMember{},
		&stockEntity.StockMovement{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func poolTestServer(t *testing.T, db *gorm.DB) *echo.Echo {
	t.Helper()
	e := echo.New()
	apiGroup := e.Group("/api")
	apiGroup.Use(middleware.BasicAuth(func(user, pass string, c echo.Context) (bool, error) {
		return user == testUser && pass == testPass, nil
	}))
	poolApi.RegisterPoolRoutes(apiGroup, db)
	return e
}

func basicAuth(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func doJSON(e *echo.Echo, method, path string, body interface{}, auth string) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// seedPool builds a pool with two stocked members priced 10 and 20.
func seedPool(t *testing.T, db *gorm.DB) (poolID uint, memberIDs []uint) {
	t.Helper()
	engine, err := api.GetEngine(db)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	pool := &stockEntity.StockableItem{SKU: "FLEET", ManageStock: true, IsPool: true, PriceStrategy: "LOWEST"}
	if err := engine.Items.Create(pool); err != nil {
		t.Fatalf("create pool: %v", err)
	}
	ref := stockService.Reference{Kind: stockService.RefAdmin, ID: "seed"}
	for i, price := range []string{"10", "20"} {
		m := &stockEntity.StockableItem{
			SKU:         fmt.Sprintf("BIKE-%d", i),
			ManageStock: true,
			Price:       decimal.RequireFromString(price),
		}
		if err := engine.Items.Create(m); err != nil {
			t.Fatalf("create member: %v", err)
		}
		if _, err := engine.Ledger.Increase(m.ItemID, 1, ref, ""); err != nil {
			t.Fatalf("seed member stock: %v", err)
		}
		memberIDs = append(memberIDs, m.ItemID)
	}
	if err := engine.Pools.AttachMembers(pool.ItemID, memberIDs); err != nil {
		t.Fatalf("attach members: %v", err)
	}
	return pool.ItemID, memberIDs
}

func TestPoolAPI_Quantity(t *testing.T) {
	db := poolTestDB(t)
	e := poolTestServer(t, db)
	poolID, _ := seedPool(t, db)

	rec := doJSON(e, http.MethodGet, fmt.Sprintf("/api/pools/%d/quantity", poolID), nil, basicAuth(testUser, testPass))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]interface{}
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp["max_quantity"] != float64(2) {
		t.Errorf("max_quantity = %v, want 2", resp["max_quantity"])
	}
}

func TestPoolAPI_Price(t *testing.T) {
	db := poolTestDB(t)
	e := poolTestServer(t, db)
	poolID, _ := seedPool(t, db)

	rec := doJSON(e, http.MethodGet, fmt.Sprintf("/api/pools/%d/price", poolID), nil, basicAuth(testUser, testPass))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]interface{}
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp["price"] != "10" {
		t.Errorf("price = %v, want \"10\"", resp["price"])
	}

	rec = doJSON(e, http.MethodGet, fmt.Sprintf("/api/pools/%d/price?strategy=HIGHEST", poolID), nil, basicAuth(testUser, testPass))
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp["price"] != "20" {
		t.Errorf("highest price = %v, want \"20\"", resp["price"])
	}

	rec = doJSON(e, http.MethodGet, fmt.Sprintf("/api/pools/%d/price?strategy=BOGUS", poolID), nil, basicAuth(testUser, testPass))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bogus strategy: status = %d, want 400", rec.Code)
	}
}

func TestPoolAPI_ClaimsAllOrNothing(t *testing.T) {
	db := poolTestDB(t)
	e := poolTestServer(t, db)
	poolID, _ := seedPool(t, db)

	rec := doJSON(e, http.MethodPost, fmt.Sprintf("/api/pools/%d/claims", poolID), map[string]interface{}{
		"qty":       3,
		"reference": map[string]string{"kind": "CART", "id": "cart-9"},
	}, basicAuth(testUser, testPass))
	if rec.Code != http.StatusConflict {
		t.Fatalf("claim 3 of 2: status = %d, want 409, body: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(e, http.MethodPost, fmt.Sprintf("/api/pools/%d/claims", poolID), map[string]interface{}{
		"qty":       2,
		"reference": map[string]string{"kind": "CART", "id": "cart-9"},
	}, basicAuth(testUser, testPass))
	if rec.Code != http.StatusCreated {
		t.Fatalf("claim 2 of 2: status = %d, body: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]interface{}
	json.NewDecoder(rec.Body).Decode(&resp)
	claims, ok := resp["claims"].([]interface{})
	if !ok || len(claims) != 2 {
		t.Errorf("claims = %v, want 2 entries", resp["claims"])
	}

	// Pool drained, price has nothing to quote.
	rec = doJSON(e, http.MethodGet, fmt.Sprintf("/api/pools/%d/price", poolID), nil, basicAuth(testUser, testPass))
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp["price"] != nil {
		t.Errorf("price of drained pool = %v, want null", resp["price"])
	}
}

func TestPoolAPI_Calendar(t *testing.T) {
	db := poolTestDB(t)
	e := poolTestServer(t, db)
	poolID, memberIDs := seedPool(t, db)

	engine, err := api.GetEngine(db)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	from, _ := time.Parse("2006-01-02", "2026-06-10")
	until, _ := time.Parse("2006-01-02", "2026-06-12")
	ref := stockService.Reference{Kind: stockService.RefCart, ID: "cart-1"}
	if _, err := engine.Claims.Claim(memberIDs[0], 1, ref, &from, &until, ""); err != nil {
		t.Fatalf("claim member: %v", err)
	}

	rec := doJSON(e, http.MethodGet,
		fmt.Sprintf("/api/pools/%d/calendar?start=2026-06-09&end=2026-06-12", poolID),
		nil, basicAuth(testUser, testPass))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Calendar map[string]int64 `json:"calendar"`
	}
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Calendar["2026-06-09"] != 2 {
		t.Errorf("calendar[06-09] = %d, want 2", resp.Calendar["2026-06-09"])
	}
	if resp.Calendar["2026-06-10"] != 1 {
		t.Errorf("calendar[06-10] = %d, want 1", resp.Calendar["2026-06-10"])
	}

	// Second read comes from cache and matches.
	rec = doJSON(e, http.MethodGet,
		fmt.Sprintf("/api/pools/%d/calendar?start=2026-06-09&end=2026-06-12", poolID),
		nil, basicAuth(testUser, testPass))
	var cached struct {
		Calendar map[string]int64 `json:"calendar"`
		Cached   bool             `json:"cached"`
	}
	json.NewDecoder(rec.Body).Decode(&cached)
	if !cached.Cached {
		t.Error("second calendar read should be served from cache")
	}
	if cached.Calendar["2026-06-10"] != 1 {
		t.Errorf("cached calendar[06-10] = %d, want 1", cached.Calendar["2026-06-10"])
	}
}

func TestPoolAPI_AttachRejectsNonPool(t *testing.T) {
	db := poolTestDB(t)
	e := poolTestServer(t, db)
	engine, err := api.GetEngine(db)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	plain := &stockEntity.StockableItem{SKU: "PLAIN", ManageStock: true}
	if err := engine.Items.Create(plain); err != nil {
		t.Fatalf("create item: %v", err)
	}
	member := &stockEntity.StockableItem{SKU: "MEMBER", ManageStock: true}
	if err := engine.Items.Create(member); err != nil {
		t.Fatalf("create item: %v", err)
	}

	rec := doJSON(e, http.MethodPost, fmt.Sprintf("/api/pools/%d/members", plain.ItemID), map[string]interface{}{
		"item_ids": []uint{member.ItemID},
	}, basicAuth(testUser, testPass))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("attaching to a plain item: status = %d, want 422, body: %s", rec.Code, rec.Body.String())
	}
}
