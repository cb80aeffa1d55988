// Package weather fetches Open-Meteo forecasts and derives farm advice
// from them.
package weather

type Current struct {
	Time                  string  `json:"time"`
	Temperature           float64 `json:"temperature_2m"`
	RelativeHumidity      float64 `json:"relative_humidity_2m"`
	ApparentTemperature   float64 `json:"apparent_temperature"`
	Precipitation         float64 `json:"precipitation"`
	Rain                  float64 `json:"rain"`
	WeatherCode           int     `json:"weather_code"`
	CloudCover            float64 `json:"cloud_cover"`
	PressureMSL           float64 `json:"pressure_msl"`
	WindSpeed             float64 `json:"wind_speed_10m"`
	WindDirection         float64 `json:"wind_direction_10m"`
	WindGusts             float64 `json:"wind_gusts_10m"`
	UVIndex               float64 `json:"uv_index"`
	IsDay                 int     `json:"is_day"`
	Evapotranspiration    float64 `json:"evapotranspiration"`
	VapourPressureDeficit float64 `json:"vapour_pressure_deficit"`
	SoilTemperature       float64 `json:"soil_temperature_0cm"`
	SoilMoisture          float64 `json:"soil_moisture_0_1cm"`
}

type Hourly struct {
	Time                     []string  `json:"time"`
	Temperature              []float64 `json:"temperature_2m"`
	RelativeHumidity         []float64 `json:"relative_humidity_2m"`
	PrecipitationProbability []float64 `json:"precipitation_probability"`
	Precipitation            []float64 `json:"precipitation"`
	WeatherCode              []int     `json:"weather_code"`
	WindSpeed                []float64 `json:"wind_speed_10m"`
	SoilMoisture             []float64 `json:"soil_moisture_0_1cm"`
}

type Daily struct {
	Time                        []string  `json:"time"`
	WeatherCode                 []int     `json:"weather_code"`
	TemperatureMax              []float64 `json:"temperature_2m_max"`
	TemperatureMin              []float64 `json:"temperature_2m_min"`
	PrecipitationSum            []float64 `json:"precipitation_sum"`
	PrecipitationHours          []float64 `json:"precipitation_hours"`
	PrecipitationProbabilityMax []float64 `json:"precipitation_probability_max"`
	WindSpeedMax                []float64 `json:"wind_speed_10m_max"`
	SunshineDuration            []float64 `json:"sunshine_duration"`
	UVIndexMax                  []float64 `json:"uv_index_max"`
	ET0                         []float64 `json:"et0_fao_evapotranspiration"`
}

type Forecast struct {
	Latitude    float64           `json:"latitude"`
	Longitude   float64           `json:"longitude"`
	Elevation   float64           `json:"elevation"`
	Timezone    string            `json:"timezone"`
	Current     Current           `json:"current"`
	Hourly      Hourly            `json:"hourly"`
	Daily       Daily             `json:"daily"`
	HourlyUnits map[string]string `json:"hourly_units"`
	DailyUnits  map[string]string `json:"daily_units"`
}

var codeDescriptions = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	56: "Light freezing drizzle",
	57: "Dense freezing drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	66: "Light freezing rain",
	67: "Heavy freezing rain",
	71: "Slight snowfall",
	73: "Moderate snowfall",
	75: "Heavy snowfall",
	77: "Snow grains",
	80: "Slight rain showers",
	81: "Moderate rain showers",
	82: "Violent rain showers",
	85: "Slight snow showers",
	86: "Heavy snow showers",
	95: "Thunderstorm",
	96: "Thunderstorm with slight hail",
	99: "Thunderstorm with heavy hail",
}

// Describe maps a WMO weather code to text.
func Describe(code int) string {
	if d, ok := codeDescriptions[code]; ok {
		return d
	}
	return "Unknown"
}

type Insights struct {
	Irrigation    string
	CropHealth    string
	PestRisk      string
	HarvestTiming string
}

// Advise derives farm advice from current conditions and the next three
// days of rain.
func Advise(f *Forecast) Insights {
	c := f.Current
	var in Insights

	switch {
	case c.SoilMoisture < 0.3:
		in.Irrigation = "Soil is dry. Irrigation is needed."
	case c.SoilMoisture > 0.8:
		in.Irrigation = "Soil is wet. Reduce irrigation."
	default:
		in.Irrigation = "Normal irrigation schedule."
	}

	switch {
	case c.Temperature > 35:
		in.CropHealth = "High temperature may stress crops."
	case c.Temperature < 10:
		in.CropHealth = "Low temperature may slow growth."
	default:
		in.CropHealth = "Good conditions for crops."
	}
	if c.RelativeHumidity > 85 {
		in.CropHealth += " High humidity raises fungal disease risk."
	}

	switch {
	case c.Temperature > 25 && c.RelativeHumidity > 70:
		in.PestRisk = "Moderate pest risk. Inspect crops regularly."
	case c.Temperature > 30:
		in.PestRisk = "High pest risk. Consider preventive measures."
	default:
		in.PestRisk = "Low pest risk."
	}

	var rain float64
	for i, mm := range f.Daily.PrecipitationSum {
		if i == 3 {
			break
		}
		rain += mm
	}
	switch {
	case rain > 20:
		in.HarvestTiming = "Heavy rain expected. Delay harvest."
	case rain > 5:
		in.HarvestTiming = "Some rain expected. Plan harvest around it."
	default:
		in.HarvestTiming = "Weather is suitable for harvest."
	}
	return in
}
