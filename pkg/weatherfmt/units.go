// Package weatherfmt turns decoded OpenWeatherMap records into chat text.
// Every function here is pure; the Formatter only adds the renderer, the
// bot name and a clock.
package weatherfmt

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/NomadCrew/oweather-bot/types"
	"github.com/shopspring/decimal"
)

// MapZoom is the OpenStreetMap zoom level used for location links (1-20).
const MapZoom = 12

var compass = []struct {
	degrees float64
	name    string
}{
	{0, "N"},
	{22, "NNE"},
	{45, "NE"},
	{67, "ENE"},
	{90, "E"},
	{112, "ESE"},
	{135, "SE"},
	{157, "SSE"},
	{180, "S"},
	{202, "SSW"},
	{225, "SW"},
	{247, "WSW"},
	{270, "W"},
	{292, "WNW"},
	{315, "NW"},
	{337, "NNW"},
	{360, "N"},
}

// WindDirection returns the compass point nearest to deg. On a tie the point
// listed first wins.
func WindDirection(deg float64) string {
	direction, best := "unknown", 360.0
	for _, p := range compass {
		if diff := math.Abs(p.degrees - deg); diff < best {
			best, direction = diff, p.name
		}
	}
	return direction
}

// Lower bounds in m/s, highest first.
var beaufortScale = []struct {
	minSpeed float64
	label    string
}{
	{32.7, "hurricane"},
	{28.5, "violent storm"},
	{24.5, "storm"},
	{20.8, "strong gale"},
	{17.2, "gale"},
	{13.9, "high wind"},
	{10.8, "strong breeze"},
	{8.0, "fresh breeze"},
	{5.5, "moderate breeze"},
	{3.4, "gentle breeze"},
	{1.6, "light breeze"},
	{0.5, "light air"},
	{0.0, "calm"},
}

// Beaufort classifies a wind speed in m/s. Negative speeds are "unknown".
func Beaufort(speed float64) string {
	for _, band := range beaufortScale {
		if speed >= band.minSpeed {
			return band.label
		}
	}
	return "unknown"
}

func CelsiusToFahrenheit(c float64) float64 { return c*1.8 + 32 }

func HPaToInHg(hpa float64) float64 { return hpa * 0.02952997 }

func MSToKmh(ms float64) float64 { return ms * 3.6 }

func MSToMph(ms float64) float64 { return ms * 3600 / 1609.3 }

// FormatVisibility renders meters as "<km> km (<miles> miles)", or "no data"
// when the value is missing or not positive.
func FormatVisibility(meters *float64) string {
	if meters == nil || *meters <= 0 {
		return "no data"
	}
	return fmt.Sprintf("%s km (%s miles)", Fixed(*meters/1000, 1), Fixed(*meters/1609.3, 1))
}

// TZOffset renders a UTC offset in seconds as "+HH:MM" or "-HH:MM".
func TZOffset(secs int) string {
	sign := "+"
	if secs < 0 {
		sign = "-"
		secs = -secs
	}
	return fmt.Sprintf("%s%02d:%02d", sign, secs/3600, (secs%3600)/60)
}

// LocalClock formats t shifted by offset seconds, followed by the offset,
// e.g. "06:12:33 UTC +02:00".
func LocalClock(t time.Time, offset int) string {
	return inZone(t, offset).Format("15:04:05") + " UTC " + TZOffset(offset)
}

func inZone(t time.Time, offset int) time.Time {
	return t.In(time.FixedZone(TZOffset(offset), offset))
}

// FormatLatitude renders latitude with a hemisphere prefix: N for positive,
// S otherwise.
func FormatLatitude(lat float64) string {
	if lat > 0 {
		return "N" + rawFloat(lat)
	}
	return "S" + rawFloat(-lat)
}

// FormatLongitude renders longitude with a hemisphere prefix: E for positive,
// W otherwise.
func FormatLongitude(lon float64) string {
	if lon > 0 {
		return "E" + rawFloat(lon)
	}
	return "W" + rawFloat(-lon)
}

// MapURL links to OpenStreetMap centered on c.
func MapURL(c types.Coordinates) string {
	return fmt.Sprintf("https://www.openstreetmap.org/#map=%d/%s/%s", MapZoom, rawFloat(c.Latitude), rawFloat(c.Longitude))
}

// Fixed formats v with the given number of decimals, rounding half away
// from zero.
func Fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

// GroupThousands formats n with comma thousands separators.
func GroupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	sign := ""
	if n < 0 {
		sign, s = "-", s[1:]
	}
	if len(s) <= 3 {
		return sign + s
	}

	first := len(s) % 3
	if first == 0 {
		first = 3
	}
	out := make([]byte, 0, len(s)+len(s)/3)
	out = append(out, s[:first]...)
	for i := first; i < len(s); i += 3 {
		out = append(out, ',')
		out = append(out, s[i:i+3]...)
	}
	return sign + string(out)
}

func rawFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
