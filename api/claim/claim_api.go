package claim

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"bookable.GO/api"
	"bookable.GO/config"
	stockService "bookable.GO/service/stock"
)

func init() {
	api.RegisterModule(RegisterClaimRoutes)
}

type claimRequest struct {
	ItemID    uint                   `json:"item_id"`
	Qty       int64                  `json:"qty"`
	Reference stockService.Reference `json:"reference"`
	From      *time.Time             `json:"from,omitempty"`
	Until     *time.Time             `json:"until,omitempty"`
	TTL       bool                   `json:"ttl,omitempty"`
	Note      string                 `json:"note"`
}

func RegisterClaimRoutes(apiGroup *echo.Group, db *gorm.DB) {
	engine, err := api.GetEngine(db)
	if err != nil {
		panic("claim api: " + err.Error())
	}
	g := apiGroup.Group("/claims")

	// POST /api/claims – reserve stock
	g.POST("", func(c echo.Context) error {
		var body claimRequest
		if err := c.Bind(&body); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		until := body.Until
		// ttl=true asks for a cart-style hold with the configured default
		// expiry instead of an explicit window.
		if until == nil && body.TTL && config.AppConfig != nil && config.AppConfig.DefaultClaimTTL > 0 {
			t := time.Now().Add(config.AppConfig.DefaultClaimTTL)
			until = &t
		}
		claim, err := engine.Claims.Claim(body.ItemID, body.Qty, body.Reference, body.From, until, body.Note)
		if err != nil {
			return api.JSONError(c, err)
		}
		return c.JSON(http.StatusCreated, claim)
	})

	// POST /api/claims/:id/release – idempotent release
	g.POST("/:id/release", func(c echo.Context) error {
		released, err := engine.Claims.Release(c.Param("id"))
		if err != nil {
			return api.JSONError(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"released": released})
	})

	// POST /api/claims/release-expired – on-demand sweep
	g.POST("/release-expired", func(c echo.Context) error {
		count, err := engine.Claims.ReleaseExpired()
		if err != nil {
			return api.JSONError(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"released": count})
	})
}
