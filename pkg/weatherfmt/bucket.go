package weatherfmt

import (
	"github.com/NomadCrew/oweather-bot/types"
)

// SamplesPerDay is the number of 3-hour forecast samples in a full day.
const SamplesPerDay = 8

// DayBucket holds the forecast entries of one local calendar day.
type DayBucket struct {
	// Label is the weekday name, e.g. "Monday".
	Label   string
	Date    string
	Entries []types.ForecastEntry
}

// BucketByDay groups entries by local calendar day (entry time shifted by
// offset seconds), keeping the order in which days and entries appear. The
// last bucket is dropped when it holds fewer than SamplesPerDay entries;
// earlier short days are kept.
func BucketByDay(entries []types.ForecastEntry, offset int) []DayBucket {
	var buckets []DayBucket
	index := make(map[string]int)

	for _, e := range entries {
		local := inZone(e.Time, offset)
		date := local.Format("2006-01-02")
		i, ok := index[date]
		if !ok {
			i = len(buckets)
			index[date] = i
			buckets = append(buckets, DayBucket{Label: local.Format("Monday"), Date: date})
		}
		buckets[i].Entries = append(buckets[i].Entries, e)
	}

	if n := len(buckets); n > 0 && len(buckets[n-1].Entries) < SamplesPerDay {
		buckets = buckets[:n-1]
	}
	return buckets
}
