package openweather

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/NomadCrew/oweather-bot/types"
)

var (
	// ErrDecode marks bodies that are not JSON, carry no status code, or
	// lack a required field.
	ErrDecode = errors.New("openweather: unknown error")

	// ErrLocationNotFound is returned for a successful status whose payload
	// has no country, which the provider does for places it cannot resolve.
	ErrLocationNotFound = errors.New("openweather: location not found in the weather database")
)

const statusOK = "200"

// ProviderError is a non-200 status reported inside the response body.
type ProviderError struct {
	Code       string
	Message    string
	HasMessage bool
}

func (e *ProviderError) Error() string {
	if !e.HasMessage {
		return fmt.Sprintf("openweather: status %s: unknown error", e.Code)
	}
	return fmt.Sprintf("openweather: status %s: %s", e.Code, e.Message)
}

type statusEnvelope struct {
	Cod     json.RawMessage `json:"cod"`
	Message json.RawMessage `json:"message"`
}

// checkStatus validates the JSON envelope and maps a non-200 status to a
// ProviderError.
func checkStatus(body []byte) error {
	var env statusEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: invalid JSON: %w", ErrDecode, err)
	}

	code, ok := parseStatusCode(env.Cod)
	if !ok {
		return fmt.Errorf("%w: no status code", ErrDecode)
	}
	if code == statusOK {
		return nil
	}

	perr := &ProviderError{Code: code}
	var msg string
	if len(env.Message) > 0 && json.Unmarshal(env.Message, &msg) == nil {
		perr.Message = msg
		perr.HasMessage = true
	}
	return perr
}

// parseStatusCode accepts the status either as a number or a string; the
// provider uses both.
func parseStatusCode(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", false
	}

	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		s = strings.TrimSpace(s)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	return s, true
}

type coordPayload struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

type weatherPayload struct {
	Description string `json:"description"`
}

type cloudsPayload struct {
	All *float64 `json:"all"`
}

type currentPayload struct {
	Coord   *coordPayload    `json:"coord"`
	Weather []weatherPayload `json:"weather"`
	Main    *struct {
		Temp      *float64 `json:"temp"`
		FeelsLike *float64 `json:"feels_like"`
		Pressure  *float64 `json:"pressure"`
		Humidity  *float64 `json:"humidity"`
	} `json:"main"`
	Visibility *float64 `json:"visibility"`
	Wind       *struct {
		Speed *float64 `json:"speed"`
		Deg   *float64 `json:"deg"`
	} `json:"wind"`
	Clouds *cloudsPayload `json:"clouds"`
	Dt     *int64         `json:"dt"`
	Sys    *struct {
		Country *string `json:"country"`
		Sunrise *int64  `json:"sunrise"`
		Sunset  *int64  `json:"sunset"`
	} `json:"sys"`
	Timezone *int    `json:"timezone"`
	Name     *string `json:"name"`
}

type forecastPayload struct {
	List []struct {
		Dt   *int64 `json:"dt"`
		Main *struct {
			Temp      *float64 `json:"temp"`
			FeelsLike *float64 `json:"feels_like"`
		} `json:"main"`
		Weather []weatherPayload `json:"weather"`
		Clouds  *cloudsPayload   `json:"clouds"`
		Rain    *struct {
			ThreeHours *float64 `json:"3h"`
		} `json:"rain"`
	} `json:"list"`
	City *struct {
		Name       *string       `json:"name"`
		Country    *string       `json:"country"`
		Coord      *coordPayload `json:"coord"`
		Population *int64        `json:"population"`
		Timezone   *int          `json:"timezone"`
	} `json:"city"`
}

func missing(field string) error {
	return fmt.Errorf("%w: missing field %q", ErrDecode, field)
}

func (c *coordPayload) coordinates(prefix string) (types.Coordinates, error) {
	if c == nil {
		return types.Coordinates{}, missing(prefix)
	}
	if c.Lat == nil {
		return types.Coordinates{}, missing(prefix + ".lat")
	}
	if c.Lon == nil {
		return types.Coordinates{}, missing(prefix + ".lon")
	}
	return types.Coordinates{Latitude: *c.Lat, Longitude: *c.Lon}, nil
}

// DecodeCurrent decodes a /weather response. It returns ErrDecode, a
// *ProviderError, ErrLocationNotFound or a complete record, never a
// partially filled one.
func DecodeCurrent(body []byte) (types.CurrentWeather, error) {
	if err := checkStatus(body); err != nil {
		return types.CurrentWeather{}, err
	}

	var p currentPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return types.CurrentWeather{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if p.Sys == nil || p.Sys.Country == nil || *p.Sys.Country == "" {
		return types.CurrentWeather{}, ErrLocationNotFound
	}

	coords, err := p.Coord.coordinates("coord")
	if err != nil {
		return types.CurrentWeather{}, err
	}
	switch {
	case p.Name == nil:
		return types.CurrentWeather{}, missing("name")
	case p.Dt == nil:
		return types.CurrentWeather{}, missing("dt")
	case p.Timezone == nil:
		return types.CurrentWeather{}, missing("timezone")
	case len(p.Weather) == 0:
		return types.CurrentWeather{}, missing("weather")
	case p.Main == nil:
		return types.CurrentWeather{}, missing("main")
	case p.Main.Temp == nil:
		return types.CurrentWeather{}, missing("main.temp")
	case p.Main.FeelsLike == nil:
		return types.CurrentWeather{}, missing("main.feels_like")
	case p.Main.Pressure == nil:
		return types.CurrentWeather{}, missing("main.pressure")
	case p.Main.Humidity == nil:
		return types.CurrentWeather{}, missing("main.humidity")
	case p.Wind == nil || p.Wind.Speed == nil:
		return types.CurrentWeather{}, missing("wind.speed")
	case p.Sys.Sunrise == nil:
		return types.CurrentWeather{}, missing("sys.sunrise")
	case p.Sys.Sunset == nil:
		return types.CurrentWeather{}, missing("sys.sunset")
	}

	w := types.CurrentWeather{
		ObservedAt:  time.Unix(*p.Dt, 0).UTC(),
		Name:        *p.Name,
		Country:     *p.Sys.Country,
		Coordinates: coords,
		Temperature: *p.Main.Temp,
		FeelsLike:   *p.Main.FeelsLike,
		Description: p.Weather[0].Description,
		Humidity:    roundInt(*p.Main.Humidity),
		Pressure:    *p.Main.Pressure,
		Visibility:  p.Visibility,
		WindSpeed:   *p.Wind.Speed,
		UTCOffset:   *p.Timezone,
		Sunrise:     time.Unix(*p.Sys.Sunrise, 0).UTC(),
		Sunset:      time.Unix(*p.Sys.Sunset, 0).UTC(),
	}
	// Calm observations omit the wind direction and clear skies may omit clouds.
	if p.Wind.Deg != nil {
		w.WindDirection = *p.Wind.Deg
	}
	if p.Clouds != nil && p.Clouds.All != nil {
		w.Clouds = roundInt(*p.Clouds.All)
	}
	return w, nil
}

// DecodeForecast decodes a /forecast response with the same outcomes as
// DecodeCurrent. Entries keep provider order.
func DecodeForecast(body []byte) (types.Forecast, error) {
	if err := checkStatus(body); err != nil {
		return types.Forecast{}, err
	}

	var p forecastPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return types.Forecast{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if p.City == nil {
		return types.Forecast{}, missing("city")
	}
	if p.City.Country == nil || *p.City.Country == "" {
		return types.Forecast{}, ErrLocationNotFound
	}

	coords, err := p.City.Coord.coordinates("city.coord")
	if err != nil {
		return types.Forecast{}, err
	}
	if p.City.Name == nil {
		return types.Forecast{}, missing("city.name")
	}
	if p.City.Timezone == nil {
		return types.Forecast{}, missing("city.timezone")
	}
	if p.List == nil {
		return types.Forecast{}, missing("list")
	}

	fc := types.Forecast{
		City: types.ForecastCity{
			Name:        *p.City.Name,
			Country:     *p.City.Country,
			Coordinates: coords,
			UTCOffset:   *p.City.Timezone,
		},
		Entries: make([]types.ForecastEntry, 0, len(p.List)),
	}
	if p.City.Population != nil {
		fc.City.Population = *p.City.Population
	}

	for i, item := range p.List {
		switch {
		case item.Dt == nil:
			return types.Forecast{}, missing(fmt.Sprintf("list[%d].dt", i))
		case item.Main == nil || item.Main.Temp == nil:
			return types.Forecast{}, missing(fmt.Sprintf("list[%d].main.temp", i))
		case item.Main.FeelsLike == nil:
			return types.Forecast{}, missing(fmt.Sprintf("list[%d].main.feels_like", i))
		}

		entry := types.ForecastEntry{
			Time:        time.Unix(*item.Dt, 0).UTC(),
			Temperature: *item.Main.Temp,
			FeelsLike:   *item.Main.FeelsLike,
		}
		if len(item.Weather) > 0 {
			entry.Description = item.Weather[0].Description
		}
		if item.Clouds != nil && item.Clouds.All != nil {
			clouds := roundInt(*item.Clouds.All)
			entry.Clouds = &clouds
		}
		if item.Rain != nil && item.Rain.ThreeHours != nil {
			rain := *item.Rain.ThreeHours
			entry.Rain = &rain
		}
		fc.Entries = append(fc.Entries, entry)
	}
	return fc, nil
}

func roundInt(v float64) int {
	return int(math.Round(v))
}
