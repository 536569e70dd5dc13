package checkout

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"bookable.GO/api"
	checkoutEntity "bookable.GO/model/entity/checkout"
)

func init() {
	api.RegisterModule(RegisterCheckoutRoutes)
}

type lineRequest struct {
	ItemID uint       `json:"item_id"`
	Qty    int64      `json:"qty"`
	From   *time.Time `json:"from,omitempty"`
	Until  *time.Time `json:"until,omitempty"`
}

func RegisterCheckoutRoutes(apiGroup *echo.Group, db *gorm.DB) {
	engine, err := api.GetEngine(db)
	if err != nil {
		panic("checkout api: " + err.Error())
	}
	g := apiGroup.Group("/selections")

	// POST /api/selections – open a selection with its lines
	g.POST("", func(c echo.Context) error {
		var body struct {
			Lines []lineRequest `json:"lines"`
		}
		if err := c.Bind(&body); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		if len(body.Lines) == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "lines is required"})
		}
		selection := &checkoutEntity.Selection{Status: checkoutEntity.SelectionOpen}
		for _, l := range body.Lines {
			if l.Qty <= 0 {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "qty must be positive"})
			}
			selection.Lines = append(selection.Lines, checkoutEntity.SelectionLine{
				ItemID:   l.ItemID,
				Quantity: l.Qty,
				From:     l.From,
				Until:    l.Until,
			})
		}
		if err := engine.Selections.Create(selection); err != nil {
			return api.JSONError(c, err)
		}
		return c.JSON(http.StatusCreated, selection)
	})

	// GET /api/selections/:id
	g.GET("/:id", func(c echo.Context) error {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid selection id"})
		}
		selection, err := engine.Selections.FindByID(uint(id))
		if err != nil {
			return api.JSONError(c, err)
		}
		return c.JSON(http.StatusOK, selection)
	})

	// POST /api/selections/:id/commit – convert the selection, all-or-nothing
	g.POST("/:id/commit", func(c echo.Context) error {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid selection id"})
		}
		purchase, err := engine.Checkout.Commit(uint(id))
		if err != nil {
			return api.JSONError(c, err)
		}
		return c.JSON(http.StatusCreated, purchase)
	})
}
