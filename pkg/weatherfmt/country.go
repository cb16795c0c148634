package weatherfmt

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

var regionNames = display.English.Regions()

// CountryName resolves an ISO 3166 alpha-2 code to its English name and
// falls back to the code itself when it is not a known region.
func CountryName(code string) string {
	if code == "" {
		return ""
	}
	region, err := language.ParseRegion(strings.ToUpper(code))
	if err != nil {
		return code
	}
	if name := regionNames.Name(region); name != "" {
		return name
	}
	return code
}
