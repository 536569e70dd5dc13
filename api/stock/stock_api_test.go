package stock_test

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
	"gorm.io/gorm"

	stockApi "bookable.GO/api/stock"
	stockEntity "bookable.GO/model/entity/stock"
)

const (
	testUser = "admin"
	testPass = "secret"
)

func stockTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	tmpFile := filepath.Join(os.TempDir(), fmt.Sprintf("stock_api_test_%s_%d.db", t.Name(), time.Now().UnixNano()))
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

func stockTestServer(t *testing.T, db *gorm.DB) *echo.Echo {
	t.Helper()
	e := echo.New()
	apiGroup := e.Group("/api")
	apiGroup.Use(middleware.BasicAuth(func(user, pass string, c echo.Context) (bool, error) {
		return user == testUser && pass == testPass, nil
	}))
	stockApi.RegisterStockRoutes(apiGroup, db)
	return e
}

func basicAuth(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func doJSON(e *echo.Echo, method, path string, body interface{}, auth string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func createTestItem(t *testing.T, e *echo.Echo, sku string) uint {
	t.Helper()
	rec := doJSON(e, http.MethodPost, "/api/items", map[string]interface{}{"sku": sku}, basicAuth(testUser, testPass))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create item: status = %d, body: %s", rec.Code, rec.Body.String())
	}
	var item stockEntity.StockableItem
	if err := json.NewDecoder(rec.Body).Decode(&item); err != nil {
		t.Fatalf("decode item: %v", err)
	}
	return item.ItemID
}

func TestStockAPI_NoAuth_Returns401(t *testing.T) {
	db := stockTestDB(t)
	e := stockTestServer(t, db)

	rec := doJSON(e, http.MethodPost, "/api/stock/increase", map[string]interface{}{"item_id": 1, "qty": 1}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestStockAPI_IncreaseAndSnapshot(t *testing.T) {
	db := stockTestDB(t)
	e := stockTestServer(t, db)
	id := createTestItem(t, e, "API-WIDGET")

	rec := doJSON(e, http.MethodPost, "/api/stock/increase", map[string]interface{}{
		"item_id":   id,
		"qty":       10,
		"reference": map[string]string{"kind": "ADMIN", "id": "test"},
	}, basicAuth(testUser, testPass))
	if rec.Code != http.StatusOK {
		t.Fatalf("increase: status = %d, body: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(e, http.MethodGet, fmt.Sprintf("/api/stock/%d", id), nil, basicAuth(testUser, testPass))
	if rec.Code != http.StatusOK {
		t.Fatalf("snapshot: status = %d, body: %s", rec.Code, rec.Body.String())
	}
	var snap map[string]interface{}
	json.NewDecoder(rec.Body).Decode(&snap)
	if snap["available"] != float64(10) {
		t.Errorf("available = %v, want 10", snap["available"])
	}
	if snap["physical"] != float64(10) {
		t.Errorf("physical = %v, want 10", snap["physical"])
	}
}

func TestStockAPI_DecreaseBeyondAvailable_Returns409(t *testing.T) {
	db := stockTestDB(t)
	e := stockTestServer(t, db)
	id := createTestItem(t, e, "API-WIDGET")

	doJSON(e, http.MethodPost, "/api/stock/increase", map[string]interface{}{
		"item_id": id, "qty": 5,
	}, basicAuth(testUser, testPass))

	rec := doJSON(e, http.MethodPost, "/api/stock/decrease", map[string]interface{}{
		"item_id": id, "qty": 6,
	}, basicAuth(testUser, testPass))
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409, body: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]interface{}
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp["available"] != float64(5) {
		t.Errorf("available in error = %v, want 5", resp["available"])
	}
	if resp["requested"] != float64(6) {
		t.Errorf("requested in error = %v, want 6", resp["requested"])
	}
}

func TestStockAPI_UnknownItem_Returns404(t *testing.T) {
	db := stockTestDB(t)
	e := stockTestServer(t, db)

	rec := doJSON(e, http.MethodGet, "/api/stock/999", nil, basicAuth(testUser, testPass))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestStockAPI_Import(t *testing.T) {
	db := stockTestDB(t)
	e := stockTestServer(t, db)

	body := map[string]interface{}{
		"items": []map[string]interface{}{
			{"sku": "IMP-1", "qty": 4, "price": "9.99"},
			{"sku": "IMP-2", "qty": 2},
		},
	}
	rec := doJSON(e, http.MethodPost, "/api/stock/import", body, basicAuth(testUser, testPass))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]interface{}
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp["created"] != float64(2) {
		t.Errorf("created = %v, want 2", resp["created"])
	}
	if rec.Header().Get("X-Request-Duration-ms") == "" {
		t.Error("missing request duration header")
	}
}

func TestStockAPI_ImportEmpty_Returns400(t *testing.T) {
	db := stockTestDB(t)
	e := stockTestServer(t, db)

	rec := doJSON(e, http.MethodPost, "/api/stock/import", map[string]interface{}{"items": []map[string]interface{}{}}, basicAuth(testUser, testPass))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestStockAPI_MovementSearchUnconfigured_Returns503(t *testing.T) {
	db := stockTestDB(t)
	e := stockTestServer(t, db)

	rec := doJSON(e, http.MethodGet, "/api/stock/movements/search", nil, basicAuth(testUser, testPass))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestStockAPI_RangeAvailability(t *testing.T) {
	db := stockTestDB(t)
	e := stockTestServer(t, db)
	id := createTestItem(t, e, "API-ROOM")

	doJSON(e, http.MethodPost, "/api/stock/increase", map[string]interface{}{
		"item_id": id, "qty": 1,
	}, basicAuth(testUser, testPass))

	rec := doJSON(e, http.MethodGet,
		fmt.Sprintf("/api/availability/%d?from=2026-01-10&until=2026-01-15", id),
		nil, basicAuth(testUser, testPass))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]interface{}
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp["available"] != true {
		t.Errorf("available = %v, want true", resp["available"])
	}

	rec = doJSON(e, http.MethodGet, fmt.Sprintf("/api/availability/%d?from=2026-01-10", id), nil, basicAuth(testUser, testPass))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("missing until: status = %d, want 422", rec.Code)
	}
}
