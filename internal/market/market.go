// Package market reads mandi reference lists and price/arrival series from
// the market data API.
package market

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

type Commodity struct {
	ID   int    `json:"commodity_id"`
	Name string `json:"commodity_name"`
}

type State struct {
	ID   int    `json:"state_id"`
	Name string `json:"state_name"`
}

type District struct {
	ID   int    `json:"district_id"`
	Name string `json:"district_name"`
}

// PricePoint is one mandi report in rupees per quintal.
type PricePoint struct {
	Date       string          `json:"date"`
	MinPrice   decimal.Decimal `json:"min_price"`
	MaxPrice   decimal.Decimal `json:"max_price"`
	ModalPrice decimal.Decimal `json:"modal_price"`
}

// QuantityPoint is one arrival report in tonnes.
type QuantityPoint struct {
	Date     string          `json:"date"`
	Quantity decimal.Decimal `json:"quantity"`
}

// Query selects a series. From and To are YYYY-MM-DD.
type Query struct {
	CommodityID int    `json:"commodity_id"`
	StateID     int    `json:"state_id"`
	DistrictIDs []int  `json:"district_id"`
	From        string `json:"from_date"`
	To          string `json:"to_date"`
}

// Data is the price and arrival series for one Query.
type Data struct {
	Prices     []PricePoint
	Quantities []QuantityPoint
}

type DailyValue struct {
	Date  string
	Value decimal.Decimal
}

// FormatDate renders t as a calendar date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// NormalizeDate accepts YYYY-MM-DD or RFC 3339 and returns YYYY-MM-DD.
func NormalizeDate(s string) (string, error) {
	t, err := parseDate(s)
	if err != nil {
		return "", err
	}
	return FormatDate(t), nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// AggregateByDate averages value over items sharing a date, sorted by
// date ascending. Items with unparseable dates are skipped.
func AggregateByDate[T any](items []T, date func(T) string, value func(T) decimal.Decimal) []DailyValue {
	sums := make(map[string]decimal.Decimal)
	counts := make(map[string]int64)
	for _, it := range items {
		d, err := NormalizeDate(date(it))
		if err != nil {
			continue
		}
		sums[d] = sums[d].Add(value(it))
		counts[d]++
	}

	out := make([]DailyValue, 0, len(sums))
	for d, sum := range sums {
		out = append(out, DailyValue{Date: d, Value: sum.Div(decimal.NewFromInt(counts[d]))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// Latest returns the item with the latest date. Ties keep the first.
func Latest[T any](items []T, date func(T) string) (T, bool) {
	var (
		best     T
		bestTime time.Time
		found    bool
	)
	for _, it := range items {
		t, err := parseDate(date(it))
		if err != nil {
			continue
		}
		if !found || t.After(bestTime) {
			best, bestTime, found = it, t, true
		}
	}
	return best, found
}

func DailyModalPrices(prices []PricePoint) []DailyValue {
	return AggregateByDate(prices,
		func(p PricePoint) string { return p.Date },
		func(p PricePoint) decimal.Decimal { return p.ModalPrice })
}

func DailyQuantities(qs []QuantityPoint) []DailyValue {
	return AggregateByDate(qs,
		func(q QuantityPoint) string { return q.Date },
		func(q QuantityPoint) decimal.Decimal { return q.Quantity })
}

func LatestPrice(prices []PricePoint) (PricePoint, bool) {
	return Latest(prices, func(p PricePoint) string { return p.Date })
}

func LatestQuantity(qs []QuantityPoint) (QuantityPoint, bool) {
	return Latest(qs, func(q QuantityPoint) string { return q.Date })
}
