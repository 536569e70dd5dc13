package graphqlserver

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	gql "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"
	"gorm.io/gorm"

	"bookable.GO/api"
	"bookable.GO/graphql"
	"bookable.GO/graphql/registry"
	stockService "bookable.GO/service/stock"
)

// RootResolver is the root for graphql-go. All query fields resolve against
// the shared inventory engine.
type RootResolver struct {
	Engine *api.Engine
}

// Query returns the query resolver.
func (r *RootResolver) Query() *QueryResolver {
	return &QueryResolver{engine: r.Engine}
}

// QueryResolver implements Query fields. Delegates to the service layer.
type QueryResolver struct {
	engine *api.Engine
}

// AvailableArgs matches the available query arguments.
type AvailableArgs struct {
	ItemID int32
	From   string
	Until  string
	Qty    *int32
}

func (r *QueryResolver) Available(ctx context.Context, args AvailableArgs) (bool, error) {
	from, err := api.ParseTime(args.From)
	if err != nil {
		return false, err
	}
	until, err := api.ParseTime(args.Until)
	if err != nil {
		return false, err
	}
	if from == nil || until == nil {
		return false, stockService.ErrInvalidDateRange
	}
	qty := int64(1)
	if args.Qty != nil {
		qty = int64(*args.Qty)
	}
	return r.engine.Availability.IsAvailable(uint(args.ItemID), *from, *until, qty)
}

// StockSnapshot mirrors the REST availability snapshot.
type StockSnapshot struct {
	ItemID      int32
	SKU         string
	ManageStock bool
	Available   float64
	Physical    float64
	LowStock    bool
}

func (r *QueryResolver) Stock(ctx context.Context, args struct{ ItemID int32 }) (*StockSnapshot, error) {
	item, err := r.engine.Items.FindByID(uint(args.ItemID))
	if err != nil {
		return nil, err
	}
	available, err := r.engine.Ledger.Available(item.ItemID)
	if err != nil {
		return nil, err
	}
	physical, err := r.engine.Ledger.Physical(item.ItemID)
	if err != nil {
		return nil, err
	}
	low, err := r.engine.Ledger.IsLowStock(item)
	if err != nil {
		return nil, err
	}
	return &StockSnapshot{
		ItemID:      args.ItemID,
		SKU:         item.SKU,
		ManageStock: item.ManageStock,
		Available:   float64(available),
		Physical:    float64(physical),
		LowStock:    low,
	}, nil
}

// PoolQuantityArgs matches the poolQuantity query arguments.
type PoolQuantityArgs struct {
	PoolID int32
	From   *string
	Until  *string
}

func (r *QueryResolver) PoolQuantity(ctx context.Context, args PoolQuantityArgs) (int32, error) {
	from, err := parseOptional(args.From)
	if err != nil {
		return 0, err
	}
	until, err := parseOptional(args.Until)
	if err != nil {
		return 0, err
	}
	qty, err := r.engine.Pools.MaxQuantity(uint(args.PoolID), from, until)
	if err != nil {
		return 0, err
	}
	if qty > math.MaxInt32 {
		return math.MaxInt32, nil
	}
	return int32(qty), nil
}

// CalendarDay is one day of pool availability.
type CalendarDay struct {
	Date      string
	Available int32
}

// PoolCalendarArgs matches the poolCalendar query arguments.
type PoolCalendarArgs struct {
	PoolID int32
	Start  string
	End    string
}

func (r *QueryResolver) PoolCalendar(ctx context.Context, args PoolCalendarArgs) ([]CalendarDay, error) {
	start, err := api.ParseTime(args.Start)
	if err != nil {
		return nil, err
	}
	end, err := api.ParseTime(args.End)
	if err != nil {
		return nil, err
	}
	if start == nil || end == nil {
		return nil, stockService.ErrInvalidDateRange
	}
	calendar, err := r.engine.Pools.AvailabilityCalendar(uint(args.PoolID), *start, *end)
	if err != nil {
		return nil, err
	}
	days := make([]CalendarDay, 0, len(calendar))
	for date, count := range calendar {
		if count > math.MaxInt32 {
			count = math.MaxInt32
		}
		days = append(days, CalendarDay{Date: date, Available: int32(count)})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days, nil
}

// PoolPrice carries the strategy price, null when no member is available.
type PoolPrice struct {
	PoolID   int32
	Strategy string
	Price    *string
}

// PoolPriceArgs matches the poolPrice query arguments.
type PoolPriceArgs struct {
	PoolID   int32
	Strategy *string
}

func (r *QueryResolver) PoolPrice(ctx context.Context, args PoolPriceArgs) (*PoolPrice, error) {
	strategy := stockService.StrategyLowest
	if args.Strategy != nil && *args.Strategy != "" {
		var err error
		strategy, err = stockService.ParseStrategy(*args.Strategy)
		if err != nil {
			return nil, err
		}
	}
	price, ok, err := r.engine.Pools.Price(uint(args.PoolID), strategy)
	if err != nil {
		return nil, err
	}
	out := &PoolPrice{PoolID: args.PoolID, Strategy: string(strategy)}
	if ok {
		s := price.String()
		out.Price = &s
	}
	return out, nil
}

// ExtensionArgs for _extension(name, args).
type ExtensionArgs struct {
	Name string
	Args *string
}

func (r *QueryResolver) Extension(ctx context.Context, args ExtensionArgs) (*string, error) {
	var m map[string]interface{}
	if args.Args != nil && *args.Args != "" {
		_ = json.Unmarshal([]byte(*args.Args), &m)
	}
	if m == nil {
		m = make(map[string]interface{})
	}
	out, err := registry.Resolve(ctx, args.Name, m)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

func parseOptional(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := api.ParseTime(*s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", *s, err)
	}
	return t, nil
}

// NewSchema parses the schema and returns a graphql-go Schema.
func NewSchema(db *gorm.DB) (*gql.Schema, error) {
	engine, err := api.GetEngine(db)
	if err != nil {
		return nil, err
	}
	return gql.ParseSchema(graphql.Schema(), &RootResolver{Engine: engine}, gql.UseFieldResolvers())
}

// Handler returns an http.Handler for GraphQL (relay format).
func Handler(schema *gql.Schema) *relay.Handler {
	return &relay.Handler{Schema: schema}
}
