package cache

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"agrisahayak.in/agri-sahayak/internal/market"
)

// MarketKey identifies one market series. It is comparable and used as a
// map key directly.
type MarketKey struct {
	CommodityID int
	StateID     int
	DistrictID  int
	From        string
	To          string
}

func NewMarketKey(commodityID, stateID, districtID int, from, to time.Time) MarketKey {
	return MarketKey{
		CommodityID: commodityID,
		StateID:     stateID,
		DistrictID:  districtID,
		From:        market.FormatDate(from),
		To:          market.FormatDate(to),
	}
}

func (k MarketKey) String() string {
	return fmt.Sprintf("%d|%d|%d|%s|%s", k.CommodityID, k.StateID, k.DistrictID, k.From, k.To)
}

// Query is the upstream request this key caches.
func (k MarketKey) Query() market.Query {
	return market.Query{
		CommodityID: k.CommodityID,
		StateID:     k.StateID,
		DistrictIDs: []int{k.DistrictID},
		From:        k.From,
		To:          k.To,
	}
}

const weatherScale = 10000

// WeatherKey holds coordinates rounded to four decimal places, stored as
// ten-thousandths of a degree.
type WeatherKey struct {
	Lat int64
	Lon int64
}

// NewWeatherKey rounds half away from zero.
func NewWeatherKey(lat, lon float64) WeatherKey {
	return WeatherKey{
		Lat: int64(math.Round(lat * weatherScale)),
		Lon: int64(math.Round(lon * weatherScale)),
	}
}

func (k WeatherKey) Coordinates() (lat, lon float64) {
	return float64(k.Lat) / weatherScale, float64(k.Lon) / weatherScale
}

func (k WeatherKey) String() string {
	lat, lon := k.Coordinates()
	return strconv.FormatFloat(lat, 'f', 4, 64) + "|" + strconv.FormatFloat(lon, 'f', 4, 64)
}
