package app

import (
	"context"
	"fmt"

	"agrisahayak.in/agri-sahayak/internal/cache"
	"agrisahayak.in/agri-sahayak/internal/weather"
)

type WeatherView struct {
	app *App
}

type WeatherReport struct {
	Location    weather.Location
	Forecast    *weather.Forecast
	Description string
	Insights    weather.Insights
	// LocationErr explains why the fallback location was used.
	LocationErr error
}

func (v *WeatherView) Load(ctx context.Context) (*WeatherReport, error) {
	a := v.app
	if err := a.requireSession(); err != nil {
		return nil, err
	}
	ctx, cancel := a.scope(ctx)
	defer cancel()

	loc, locErr := a.location(ctx)
	key := cache.NewWeatherKey(loc.Latitude, loc.Longitude)
	forecast, err := cache.Fetch(ctx, a.deps.Cache, cache.NamespaceWeather, key,
		func(ctx context.Context) (*weather.Forecast, error) {
			return a.deps.Forecasts.Forecast(ctx, loc.Latitude, loc.Longitude)
		})
	if err != nil {
		return nil, fmt.Errorf("load weather: %w", err)
	}

	return &WeatherReport{
		Location:    loc,
		Forecast:    forecast,
		Description: weather.Describe(forecast.Current.WeatherCode),
		Insights:    weather.Advise(forecast),
		LocationErr: locErr,
	}, nil
}

// Refresh drops cached forecasts and the resolved location, then loads.
func (v *WeatherView) Refresh(ctx context.Context) (*WeatherReport, error) {
	if err := v.app.requireSession(); err != nil {
		return nil, err
	}
	v.app.deps.Cache.ClearNamespace(cache.NamespaceWeather)
	v.app.deps.Cache.ClearNamespace(cache.NamespaceLocation)
	return v.Load(ctx)
}
