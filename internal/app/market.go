package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"agrisahayak.in/agri-sahayak/internal/cache"
	"agrisahayak.in/agri-sahayak/internal/market"
)

const defaultRangeMonths = 3

var (
	ErrIncompleteSelection = errors.New("select a commodity, state and district first")
	ErrInvalidDateRange    = errors.New("start date is after end date")
)

type MarketView struct {
	app *App
}

// Summary is what the market view shows for one series.
type Summary struct {
	LatestPrice     *market.PricePoint
	LatestQuantity  *market.QuantityPoint
	DailyPrices     []market.DailyValue
	DailyQuantities []market.DailyValue
}

// LoadReference loads commodities and states through the cache and fills
// in a default selection where none exists.
func (v *MarketView) LoadReference(ctx context.Context) ([]market.Commodity, []market.State, error) {
	a := v.app
	if err := a.requireSession(); err != nil {
		return []market.Commodity{}, []market.State{}, err
	}
	ctx, cancel := a.scope(ctx)
	defer cancel()

	var (
		commodities []market.Commodity
		states      []market.State
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		commodities, err = cache.Fetch(gctx, a.deps.Cache, cache.NamespaceReference, cache.KeyCommodities, a.deps.Market.Commodities)
		return err
	})
	g.Go(func() error {
		var err error
		states, err = cache.Fetch(gctx, a.deps.Cache, cache.NamespaceReference, cache.KeyStates, a.deps.Market.States)
		return err
	})
	if err := g.Wait(); err != nil {
		return nonNil(commodities), nonNil(states), err
	}

	sel := a.deps.Cache.Selection()
	if sel.CommodityID == 0 && len(commodities) > 0 {
		a.deps.Cache.SetCommodity(commodities[0].ID)
	}
	if sel.StateID == 0 {
		stateID, _ := a.region()
		a.deps.Cache.SetState(stateID)
	}
	if sel.From == "" || sel.To == "" {
		to := time.Now()
		a.deps.Cache.SetDateRange(market.FormatDate(to.AddDate(0, -defaultRangeMonths, 0)), market.FormatDate(to))
	}
	return commodities, states, nil
}

// SelectState records the state and loads its districts. The district
// selection moves to the first district unless it is already valid.
func (v *MarketView) SelectState(ctx context.Context, stateID int) ([]market.District, error) {
	a := v.app
	if err := a.requireSession(); err != nil {
		return []market.District{}, err
	}
	ctx, cancel := a.scope(ctx)
	defer cancel()

	a.deps.Cache.SetState(stateID)
	districts, err := cache.Fetch(ctx, a.deps.Cache, cache.NamespaceDistricts, stateID,
		func(ctx context.Context) ([]market.District, error) {
			return a.deps.Market.Districts(ctx, stateID)
		})
	if err != nil {
		return []market.District{}, err
	}

	current := a.deps.Cache.Selection().DistrictID
	valid := false
	for _, d := range districts {
		if d.ID == current {
			valid = true
			break
		}
	}
	if !valid && len(districts) > 0 {
		a.deps.Cache.SetDistrict(districts[0].ID)
	}
	return districts, nil
}

func (v *MarketView) SelectCommodity(id int) {
	v.app.deps.Cache.SetCommodity(id)
}

func (v *MarketView) SelectDistrict(id int) {
	v.app.deps.Cache.SetDistrict(id)
}

func (v *MarketView) SetDateRange(from, to time.Time) error {
	if from.After(to) {
		return ErrInvalidDateRange
	}
	v.app.deps.Cache.SetDateRange(market.FormatDate(from), market.FormatDate(to))
	return nil
}

func (v *MarketView) Selection() cache.Selection {
	return v.app.deps.Cache.Selection()
}

// Load returns prices and arrivals for the current selection, fetching
// them only if this exact selection has not been loaded before.
func (v *MarketView) Load(ctx context.Context) (market.Data, error) {
	a := v.app
	if err := a.requireSession(); err != nil {
		return market.Data{}, err
	}
	sel := a.deps.Cache.Selection()
	if sel.CommodityID == 0 || sel.StateID == 0 || sel.DistrictID == 0 || sel.From == "" || sel.To == "" {
		return market.Data{}, ErrIncompleteSelection
	}

	ctx, cancel := a.scope(ctx)
	defer cancel()

	key := cache.MarketKey{
		CommodityID: sel.CommodityID,
		StateID:     sel.StateID,
		DistrictID:  sel.DistrictID,
		From:        sel.From,
		To:          sel.To,
	}
	data, err := cache.Fetch(ctx, a.deps.Cache, cache.NamespaceMarket, key,
		func(ctx context.Context) (market.Data, error) {
			return a.deps.Market.Fetch(ctx, key.Query())
		})
	if err != nil {
		return market.Data{}, fmt.Errorf("load market data: %w", err)
	}
	return data, nil
}

func Summarize(d market.Data) Summary {
	s := Summary{
		DailyPrices:     market.DailyModalPrices(d.Prices),
		DailyQuantities: market.DailyQuantities(d.Quantities),
	}
	if p, ok := market.LatestPrice(d.Prices); ok {
		s.LatestPrice = &p
	}
	if q, ok := market.LatestQuantity(d.Quantities); ok {
		s.LatestQuantity = &q
	}
	return s
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
