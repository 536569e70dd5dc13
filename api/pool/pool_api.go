package pool

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"bookable.GO/api"
	"bookable.GO/config"
	"bookable.GO/core/cache"
	stockService "bookable.GO/service/stock"
)

func init() {
	api.RegisterModule(RegisterPoolRoutes)
}

const calendarTTLSeconds = 30

func calendarKey(poolID uint, start, end string) string {
	return fmt.Sprintf("pool:calendar:%d:%s:%s", poolID, start, end)
}

func poolTag(poolID uint) string {
	return fmt.Sprintf("pool:%d", poolID)
}

// invalidateCalendar drops cached calendars for the pool after a claim or
// membership change.
func invalidateCalendar(poolID uint) {
	cache.GetInstance().InvalidateTag(poolTag(poolID))
	if config.RedisClient != nil {
		iter := config.RedisClient.Scan(config.RedisCtx(), 0, fmt.Sprintf("pool:calendar:%d:*", poolID), 100).Iterator()
		for iter.Next(config.RedisCtx()) {
			config.RedisClient.Del(config.RedisCtx(), iter.Val())
		}
	}
}

func poolID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	return uint(id), err
}

func RegisterPoolRoutes(apiGroup *echo.Group, db *gorm.DB) {
	engine, err := api.GetEngine(db)
	if err != nil {
		panic("pool api: " + err.Error())
	}
	g := apiGroup.Group("/pools")

	// POST /api/pools/:id/members – attach members (bidirectional, atomic)
	g.POST("/:id/members", func(c echo.Context) error {
		id, err := poolID(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid pool id"})
		}
		var body struct {
			ItemIDs []uint `json:"item_ids"`
		}
		if err := c.Bind(&body); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		if len(body.ItemIDs) == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "item_ids is required"})
		}
		if err := engine.Pools.AttachMembers(id, body.ItemIDs); err != nil {
			return api.JSONError(c, err)
		}
		invalidateCalendar(id)
		members, err := engine.Items.Members(id)
		if err != nil {
			return api.JSONError(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"pool_id": id, "members": members})
	})

	// GET /api/pools/:id/quantity – available member count
	g.GET("/:id/quantity", func(c echo.Context) error {
		id, err := poolID(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid pool id"})
		}
		from, err := api.ParseTime(c.QueryParam("from"))
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		until, err := api.ParseTime(c.QueryParam("until"))
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		qty, err := engine.Pools.MaxQuantity(id, from, until)
		if err != nil {
			return api.JSONError(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"pool_id": id, "max_quantity": qty})
	})

	// GET /api/pools/:id/calendar – per-day available member counts (public,
	// cached for a few seconds)
	g.GET("/:id/calendar", func(c echo.Context) error {
		id, err := poolID(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid pool id"})
		}
		startParam, endParam := c.QueryParam("start"), c.QueryParam("end")
		start, err := api.ParseTime(startParam)
		if err != nil || start == nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "start is required (YYYY-MM-DD)"})
		}
		end, err := api.ParseTime(endParam)
		if err != nil || end == nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "end is required (YYYY-MM-DD)"})
		}

		key := calendarKey(id, startParam, endParam)
		if config.RedisClient != nil {
			if raw, err := config.RedisClient.Get(config.RedisCtx(), key).Result(); err == nil {
				var cached map[string]int64
				if json.Unmarshal([]byte(raw), &cached) == nil {
					return c.JSON(http.StatusOK, echo.Map{"pool_id": id, "calendar": cached, "cached": true})
				}
			}
		} else if v, ok := cache.GetInstance().Get(key); ok {
			return c.JSON(http.StatusOK, echo.Map{"pool_id": id, "calendar": v, "cached": true})
		}

		calendar, err := engine.Pools.AvailabilityCalendar(id, *start, *end)
		if err != nil {
			return api.JSONError(c, err)
		}
		if config.RedisClient != nil {
			if raw, err := json.Marshal(calendar); err == nil {
				config.RedisClient.Set(config.RedisCtx(), key, raw, calendarTTLSeconds*time.Second)
			}
		} else {
			cache.GetInstance().Set(key, calendar, calendarTTLSeconds, []string{poolTag(id)})
		}
		return c.JSON(http.StatusOK, echo.Map{"pool_id": id, "calendar": calendar})
	})

	// GET /api/pools/:id/price – strategy price over available members
	// (public). Never cached: price must track availability exactly.
	g.GET("/:id/price", func(c echo.Context) error {
		id, err := poolID(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid pool id"})
		}
		strategy := stockService.StrategyLowest
		if v := c.QueryParam("strategy"); v != "" {
			strategy, err = stockService.ParseStrategy(v)
			if err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
			}
		}
		price, ok, err := engine.Pools.Price(id, strategy)
		if err != nil {
			return api.JSONError(c, err)
		}
		if !ok {
			return c.JSON(http.StatusOK, echo.Map{"pool_id": id, "price": nil, "strategy": strategy})
		}
		return c.JSON(http.StatusOK, echo.Map{"pool_id": id, "price": price, "strategy": strategy})
	})

	// POST /api/pools/:id/claims – claim members, all-or-nothing
	g.POST("/:id/claims", func(c echo.Context) error {
		id, err := poolID(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid pool id"})
		}
		var body struct {
			Qty       int64                  `json:"qty"`
			Reference stockService.Reference `json:"reference"`
			From      *time.Time             `json:"from,omitempty"`
			Until     *time.Time             `json:"until,omitempty"`
			Note      string                 `json:"note"`
		}
		if err := c.Bind(&body); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		claims, err := engine.Pools.ClaimPoolStock(id, body.Qty, body.Reference, body.From, body.Until, body.Note)
		if err != nil {
			return api.JSONError(c, err)
		}
		invalidateCalendar(id)
		return c.JSON(http.StatusCreated, echo.Map{"pool_id": id, "claims": claims})
	})
}
