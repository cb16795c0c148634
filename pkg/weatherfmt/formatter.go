package weatherfmt

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/NomadCrew/oweather-bot/internal/text"
	"github.com/NomadCrew/oweather-bot/types"
)

// Formatter renders weather records as chat replies.
type Formatter struct {
	renderer    text.Renderer
	botName     string
	now         func() time.Time
	countryName func(code string) string
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithClock sets the clock used for the forecast's local time line.
func WithClock(now func() time.Time) Option {
	return func(f *Formatter) { f.now = now }
}

// WithCountryNames replaces the country code lookup. Passing nil keeps raw codes.
func WithCountryNames(lookup func(code string) string) Option {
	return func(f *Formatter) {
		if lookup == nil {
			lookup = func(code string) string { return code }
		}
		f.countryName = lookup
	}
}

// NewFormatter creates a Formatter. botName is the target of the forecast
// chat link in the current weather details.
func NewFormatter(renderer text.Renderer, botName string, opts ...Option) *Formatter {
	f := &Formatter{
		renderer:    renderer,
		botName:     botName,
		now:         time.Now,
		countryName: CountryName,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CountryName resolves a country code with the configured lookup.
func (f *Formatter) CountryName(code string) string {
	return f.countryName(code)
}

func (f *Formatter) hl(s string) string {
	return f.renderer.Highlight(s)
}

func (f *Formatter) latLonLine(c types.Coordinates) string {
	mapLink := f.renderer.MakeChatCmd("OpenStreetMap", "/start "+MapURL(c))
	return fmt.Sprintf("Lat/Lon: %s %s\n",
		f.hl(FormatLatitude(c.Latitude)+"° "+FormatLongitude(c.Longitude)+"°"), mapLink)
}

// CurrentSummary is the one-line reply to the oweather command, with the
// full details attached as a blob.
func (f *Formatter) CurrentSummary(w types.CurrentWeather) string {
	return fmt.Sprintf("The weather for %s, %s is %s with %s [%s]",
		f.hl(w.Name),
		f.countryName(w.Country),
		f.hl(Fixed(w.Temperature, 1)+"°C"),
		w.Description,
		f.renderer.MakeBlob("Details", f.CurrentDetails(w)),
	)
}

// CurrentDetails renders the detail blob for current conditions.
func (f *Formatter) CurrentDetails(w types.CurrentWeather) string {
	country := f.countryName(w.Country)
	tz := TZOffset(w.UTCOffset)

	var b strings.Builder
	fmt.Fprintf(&b, "Last Updated: %s\n\n", f.hl(w.ObservedAt.UTC().Format("Mon, 2006-01-02 15:04:05")+" UTC"))
	fmt.Fprintf(&b, "Location: %s, %s\n", f.hl(w.Name), f.hl(country))
	fmt.Fprintf(&b, "Timezone: %s\n", f.hl("UTC "+tz))
	b.WriteString(f.latLonLine(w.Coordinates))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Currently: %s (%s), %s\n",
		f.hl(Fixed(w.Temperature, 1)+"°C"),
		f.hl(Fixed(CelsiusToFahrenheit(w.Temperature), 1)+"°F"),
		f.hl(w.Description))
	fmt.Fprintf(&b, "Feels like: %s (%s)\n",
		f.hl(Fixed(w.FeelsLike, 1)+"°C"),
		f.hl(Fixed(CelsiusToFahrenheit(w.FeelsLike), 1)+"°F"))
	fmt.Fprintf(&b, "Clouds: %s\n", f.hl(strconv.Itoa(w.Clouds)+"%"))
	fmt.Fprintf(&b, "Humidity: %s\n", f.hl(strconv.Itoa(w.Humidity)+"%"))
	fmt.Fprintf(&b, "Visibility: %s\n", f.hl(FormatVisibility(w.Visibility)))
	fmt.Fprintf(&b, "Pressure: %s (%s)\n",
		f.hl(rawFloat(w.Pressure)+" hPa"),
		f.hl(Fixed(HPaToInHg(w.Pressure), 2)+`" Hg`))
	fmt.Fprintf(&b, "Wind: %s - %s from the %s\n",
		f.hl(Beaufort(w.WindSpeed)),
		f.hl(Fixed(MSToKmh(w.WindSpeed), 1)+" km/h ("+Fixed(MSToMph(w.WindSpeed), 1)+" mph)"),
		f.hl(WindDirection(w.WindDirection)))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Sunrise: %s\n", f.hl(LocalClock(w.Sunrise, w.UTCOffset)))
	fmt.Fprintf(&b, "Sunset: %s\n\n", f.hl(LocalClock(w.Sunset, w.UTCOffset)))
	b.WriteString(f.renderer.MakeChatCmd("Forecast for the next 3 days",
		fmt.Sprintf("/tell %s forecast %s,%s", f.botName, w.Name, country)))

	return b.String()
}

// ForecastReply is the reply to the forecast command: a titled blob.
func (f *Formatter) ForecastReply(fc types.Forecast) string {
	title := fmt.Sprintf("Weather forecast for %s, %s", fc.City.Name, f.countryName(fc.City.Country))
	return f.renderer.MakeBlob(title, f.ForecastDetails(fc))
}

// ForecastDetails renders the forecast blob: city header followed by one
// section per complete local day.
func (f *Formatter) ForecastDetails(fc types.Forecast) string {
	city := fc.City
	tz := TZOffset(city.UTCOffset)

	var b strings.Builder
	fmt.Fprintf(&b, "Location: %s, %s\n", f.hl(city.Name), f.hl(f.countryName(city.Country)))
	fmt.Fprintf(&b, "Timezone: %s\n", f.hl("UTC "+tz))
	b.WriteString(f.latLonLine(city.Coordinates))
	fmt.Fprintf(&b, "Population: %s\n", f.hl(GroupThousands(city.Population)))
	fmt.Fprintf(&b, "Local time: %s\n", f.hl(inZone(f.now(), city.UTCOffset).Format("Monday, 15:04:05")))
	fmt.Fprintf(&b, "\nAll times are UTC %s.\n", tz)

	for _, day := range BucketByDay(fc.Entries, city.UTCOffset) {
		fmt.Fprintf(&b, "\n<header2>%s<end>\n", day.Label)
		for _, e := range day.Entries {
			b.WriteString(f.forecastLine(e, city.UTCOffset))
		}
	}
	return b.String()
}

func (f *Formatter) forecastLine(e types.ForecastEntry, offset int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<tab>%s: %s, feels like %s",
		inZone(e.Time, offset).Format("15:04"),
		f.hl(PadCelsius(e.Temperature)+"°C"),
		f.hl(PadCelsius(e.FeelsLike)+"°C"))
	if e.Clouds != nil {
		fmt.Fprintf(&b, ", %s clouds", f.hl(PadClouds(*e.Clouds)+"%"))
	}
	if e.Rain != nil {
		fmt.Fprintf(&b, ", %s rain", f.hl(PadRain(*e.Rain)+"mm"))
	}
	b.WriteString("\n")
	return b.String()
}

// PadCelsius formats a temperature with one decimal and invisible padding so
// that values line up as "-00.0".
func PadCelsius(degrees float64) string {
	abs := Fixed(degrees, 1)
	negative := strings.HasPrefix(abs, "-")
	abs = strings.TrimPrefix(abs, "-")

	switch {
	case len(abs) == 3 && negative:
		return "<black>_<end>-" + abs
	case len(abs) == 3:
		return "<black>-_<end>" + abs
	case negative:
		return "-" + abs
	default:
		return "<black>-<end>" + abs
	}
}

// PadClouds zero-pads a cloud percentage to three digits with invisible zeros.
func PadClouds(clouds int) string {
	switch {
	case clouds < 10:
		return "<black>00<end>" + strconv.Itoa(clouds)
	case clouds < 100:
		return "<black>0<end>" + strconv.Itoa(clouds)
	default:
		return strconv.Itoa(clouds)
	}
}

// PadRain formats rain volume with one decimal, padded to "00.0".
func PadRain(mm float64) string {
	s := Fixed(mm, 1)
	if len(s) < 4 {
		return "<black>0<end>" + s
	}
	return s
}
