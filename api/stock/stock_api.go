package stock

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"bookable.GO/api"
	stockEntity "bookable.GO/model/entity/stock"
	stockService "bookable.GO/service/stock"
)

func init() {
	api.RegisterModule(RegisterStockRoutes)
}

type movementRequest struct {
	ItemID    uint                   `json:"item_id"`
	Qty       int64                  `json:"qty"`
	Reference stockService.Reference `json:"reference"`
	Note      string                 `json:"note"`
}

func RegisterStockRoutes(apiGroup *echo.Group, db *gorm.DB) {
	engine, err := api.GetEngine(db)
	if err != nil {
		panic("stock api: " + err.Error())
	}
	g := apiGroup.Group("/stock")

	// POST /api/stock/increase – append stock
	g.POST("/increase", func(c echo.Context) error {
		var body movementRequest
		if err := c.Bind(&body); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		m, err := engine.Ledger.Increase(body.ItemID, body.Qty, body.Reference, body.Note)
		if err != nil {
			return api.JSONError(c, err)
		}
		return c.JSON(http.StatusOK, m)
	})

	// POST /api/stock/decrease – remove stock, guarded by availability
	g.POST("/decrease", func(c echo.Context) error {
		var body movementRequest
		if err := c.Bind(&body); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		m, err := engine.Ledger.Decrease(body.ItemID, body.Qty, body.Reference, body.Note)
		if err != nil {
			return api.JSONError(c, err)
		}
		return c.JSON(http.StatusOK, m)
	})

	// GET /api/stock/:id – availability snapshot
	g.GET("/:id", func(c echo.Context) error {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item id"})
		}
		item, err := engine.Items.FindByID(uint(id))
		if err != nil {
			return api.JSONError(c, err)
		}
		available, err := engine.Ledger.Available(item.ItemID)
		if err != nil {
			return api.JSONError(c, err)
		}
		physical, err := engine.Ledger.Physical(item.ItemID)
		if err != nil {
			return api.JSONError(c, err)
		}
		low, err := engine.Ledger.IsLowStock(item)
		if err != nil {
			return api.JSONError(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{
			"item_id":      item.ItemID,
			"sku":          item.SKU,
			"manage_stock": item.ManageStock,
			"available":    available,
			"physical":     physical,
			"low_stock":    low,
		})
	})

	// POST /api/stock/import – bulk initial load
	g.POST("/import", func(c echo.Context) error {
		start := time.Now()
		var body struct {
			Items []stockService.StockInput `json:"items"`
		}
		if err := c.Bind(&body); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		if len(body.Items) == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "items array is required and must not be empty"})
		}
		res, err := stockService.ImportStock(db, engine.Ledger, body.Items)
		duration := time.Since(start).Milliseconds()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error(), "request_duration_ms": duration})
		}
		c.Response().Header().Set("X-Request-Duration-ms", strconv.FormatInt(duration, 10))
		return c.JSON(http.StatusOK, echo.Map{
			"created":             res.Created,
			"increased":           res.Increased,
			"skipped":             res.Skipped,
			"warnings":            res.Warnings,
			"request_duration_ms": duration,
		})
	})

	// GET /api/stock/movements/search – Elasticsearch-backed movement audit
	g.GET("/movements/search", func(c echo.Context) error {
		if !engine.Indexer.Enabled() {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "movement search not configured"})
		}
		q := stockService.MovementQuery{
			Kind:          c.QueryParam("kind"),
			ReferenceKind: c.QueryParam("reference_kind"),
			ReferenceID:   c.QueryParam("reference_id"),
		}
		if v := c.QueryParam("item_id"); v != "" {
			id, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item_id"})
			}
			itemID := uint(id)
			q.ItemID = &itemID
		}
		if v := c.QueryParam("size"); v != "" {
			q.Size, _ = strconv.Atoi(v)
		}
		hits, err := engine.Indexer.SearchMovements(c.Request().Context(), q)
		if err != nil {
			return c.JSON(http.StatusBadGateway, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, echo.Map{"movements": hits, "count": len(hits)})
	})

	// POST /api/items – register a stockable item or pool
	apiGroup.POST("/items", func(c echo.Context) error {
		var body struct {
			SKU               string          `json:"sku"`
			ManageStock       *bool           `json:"manage_stock,omitempty"`
			Booking           bool            `json:"booking"`
			IsPool            bool            `json:"is_pool"`
			Price             decimal.Decimal `json:"price"`
			PriceStrategy     string          `json:"price_strategy,omitempty"`
			LowStockThreshold *int64          `json:"low_stock_threshold,omitempty"`
		}
		if err := c.Bind(&body); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		if body.SKU == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "sku is required"})
		}
		item := &stockEntity.StockableItem{
			SKU:               body.SKU,
			ManageStock:       true,
			Booking:           body.Booking,
			IsPool:            body.IsPool,
			Price:             body.Price,
			LowStockThreshold: body.LowStockThreshold,
		}
		if body.ManageStock != nil {
			item.ManageStock = *body.ManageStock
		}
		if body.PriceStrategy != "" {
			strategy, err := stockService.ParseStrategy(body.PriceStrategy)
			if err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
			}
			item.PriceStrategy = string(strategy)
		}
		if err := engine.Items.Create(item); err != nil {
			return api.JSONError(c, err)
		}
		return c.JSON(http.StatusCreated, item)
	})

	// GET /api/availability/:id – date-range availability (public)
	apiGroup.GET("/availability/:id", func(c echo.Context) error {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item id"})
		}
		from, err := api.ParseTime(c.QueryParam("from"))
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		until, err := api.ParseTime(c.QueryParam("until"))
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		if from == nil || until == nil {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "from and until are required"})
		}
		qty := int64(1)
		if v := c.QueryParam("qty"); v != "" {
			qty, err = strconv.ParseInt(v, 10, 64)
			if err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid qty"})
			}
		}
		ok, err := engine.Availability.IsAvailable(uint(id), *from, *until, qty)
		if err != nil {
			return api.JSONError(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"item_id": id, "available": ok, "qty": qty})
	})
}
