package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	currentVars = []string{
		"temperature_2m", "relative_humidity_2m", "apparent_temperature", "precipitation",
		"rain", "showers", "snowfall", "weather_code", "cloud_cover", "pressure_msl",
		"surface_pressure", "wind_speed_10m", "wind_direction_10m", "wind_gusts_10m",
		"visibility", "uv_index", "is_day", "sunshine_duration", "evapotranspiration",
		"vapour_pressure_deficit", "soil_temperature_0cm", "soil_moisture_0_1cm",
	}
	hourlyVars = []string{
		"temperature_2m", "relative_humidity_2m", "apparent_temperature", "precipitation_probability",
		"precipitation", "rain", "showers", "snowfall", "weather_code", "pressure_msl",
		"surface_pressure", "cloud_cover", "visibility", "evapotranspiration",
		"vapour_pressure_deficit", "wind_speed_10m", "wind_direction_10m", "wind_gusts_10m",
		"soil_temperature_0cm", "soil_moisture_0_1cm", "uv_index", "sunshine_duration",
	}
	dailyVars = []string{
		"weather_code", "temperature_2m_max", "temperature_2m_min", "apparent_temperature_max",
		"apparent_temperature_min", "precipitation_sum", "rain_sum", "showers_sum",
		"snowfall_sum", "precipitation_hours", "precipitation_probability_max",
		"wind_speed_10m_max", "wind_gusts_10m_max", "wind_direction_10m_dominant",
		"sunshine_duration", "uv_index_max", "uv_index_clear_sky_max", "et0_fao_evapotranspiration",
	}
)

// Client reads forecasts from the Open-Meteo API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

// Forecast fetches a seven day forecast for the coordinates.
func (c *Client) Forecast(ctx context.Context, lat, lon float64) (*Forecast, error) {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("current", strings.Join(currentVars, ","))
	params.Set("hourly", strings.Join(hourlyVars, ","))
	params.Set("daily", strings.Join(dailyVars, ","))
	params.Set("timezone", "auto")
	params.Set("forecast_days", "7")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/forecast?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch forecast: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather API error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	var f Forecast
	if err := json.Unmarshal(body, &f); err != nil {
		return nil, fmt.Errorf("parse forecast: %w", err)
	}
	c.logger.Debug("forecast fetched", zap.Float64("lat", lat), zap.Float64("lon", lon))
	return &f, nil
}
