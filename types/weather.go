package types

import "time"

// Coordinates is a point on the globe in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// CurrentWeather is one decoded current-conditions observation.
// Temperatures are in °C, pressure in hPa, speeds in m/s.
type CurrentWeather struct {
	ObservedAt  time.Time   `json:"observed_at"`
	Name        string      `json:"name"`
	Country     string      `json:"country"`
	Coordinates Coordinates `json:"coordinates"`
	Temperature float64     `json:"temperature"`
	FeelsLike   float64     `json:"feels_like"`
	Description string      `json:"description"`
	Clouds      int         `json:"clouds"`
	Humidity    int         `json:"humidity"`
	Pressure    float64     `json:"pressure"`
	// Visibility in meters. Nil when the provider omitted it.
	Visibility    *float64  `json:"visibility,omitempty"`
	WindSpeed     float64   `json:"wind_speed"`
	WindDirection float64   `json:"wind_direction"`
	UTCOffset     int       `json:"utc_offset"`
	Sunrise       time.Time `json:"sunrise"`
	Sunset        time.Time `json:"sunset"`
}

// ForecastEntry is one 3-hour forecast sample.
type ForecastEntry struct {
	Time        time.Time `json:"time"`
	Temperature float64   `json:"temperature"`
	FeelsLike   float64   `json:"feels_like"`
	Description string    `json:"description"`
	Clouds      *int      `json:"clouds,omitempty"`
	// Rain volume in mm over the 3-hour window.
	Rain *float64 `json:"rain,omitempty"`
}

// ForecastCity is the location metadata returned with a forecast.
type ForecastCity struct {
	Name        string      `json:"name"`
	Country     string      `json:"country"`
	Coordinates Coordinates `json:"coordinates"`
	Population  int64       `json:"population"`
	UTCOffset   int         `json:"utc_offset"`
}

// Forecast is a decoded multi-day forecast in provider order.
type Forecast struct {
	City    ForecastCity    `json:"city"`
	Entries []ForecastEntry `json:"entries"`
}
