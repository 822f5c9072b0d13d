// Package mains guesses the local electrical mains frequency from the system
// timezone, so the noise low-pass can sit below the hum band.
package mains

import (
	"strings"

	tz "github.com/medama-io/go-timezone-country"
	"github.com/thlib/go-timezone-local/tzlocal"
)

// Fallback is used when the timezone or country cannot be resolved. Most of
// the world runs at 50Hz.
const Fallback = 50

// cutoffRatio places the low-pass corner a fifth of the way below the hum
// fundamental.
const cutoffRatio = 0.8

// Frequency returns the local mains frequency in Hz (50 or 60).
func Frequency() int {
	timezone, err := tzlocal.RuntimeTZ()
	if err != nil {
		return Fallback
	}
	return FrequencyForTimezone(timezone)
}

// CutoffFor returns the low-pass corner for a mains frequency: 40Hz in 50Hz
// regions, 48Hz in 60Hz regions.
func CutoffFor(hz int) float32 {
	if hz <= 0 {
		hz = Fallback
	}
	return cutoffRatio * float32(hz)
}

// FrequencyForTimezone returns the mains frequency for an IANA timezone name.
func FrequencyForTimezone(timezone string) int {
	if timezone == "UTC" || timezone == "GMT" || strings.HasPrefix(timezone, "Etc/") {
		return Fallback
	}

	countries, err := tz.NewTimezoneCountryMap()
	if err != nil {
		return Fallback
	}
	country, err := countries.GetCountry(timezone)
	if err != nil {
		return Fallback
	}
	return FrequencyForCountry(country)
}

// FrequencyForCountry returns 60 for countries on 60Hz grids and 50 for the
// rest. Japan is split by region; the Tokyo side is 50Hz.
func FrequencyForCountry(country string) int {
	if sixtyHz[country] {
		return 60
	}
	return Fallback
}

var sixtyHz = func() map[string]bool {
	regions := [][]string{
		{"United States", "Canada", "Mexico"},
		{"Belize", "Costa Rica", "El Salvador", "Guatemala", "Honduras", "Nicaragua", "Panama"},
		{"Bahamas", "Barbados", "Cayman Islands", "Cuba", "Dominican Republic", "Haiti",
			"Jamaica", "Puerto Rico", "Trinidad and Tobago", "U.S. Virgin Islands"},
		// Brazil has both; 60Hz predominates.
		{"Brazil", "Colombia", "Ecuador", "Guyana", "Peru", "Suriname", "Venezuela"},
		{"South Korea", "Taiwan", "Philippines", "Saudi Arabia"},
		{"Guam", "American Samoa", "Marshall Islands", "Micronesia", "Palau"},
	}
	m := make(map[string]bool)
	for _, countries := range regions {
		for _, c := range countries {
			m[c] = true
		}
	}
	return m
}()
