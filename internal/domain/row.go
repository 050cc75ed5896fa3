package domain

import (
	"fmt"
	"time"
)

// Element tags for the measurements carried into the published table.
const (
	ElementTMAX = "TMAX"
	ElementTMIN = "TMIN"
	ElementPRCP = "PRCP"
)

// Flag values for daily and monthly anomaly classification.
const (
	FlagAbove   = "Above"
	FlagBelow   = "Below"
	FlagAverage = "Average"
)

// SourceAPI marks rows that came from the live weather API rather than the
// historical archive.
const SourceAPI = "api"

// RawRow is one record out of a historical parquet file. The files have
// arbitrary, overlapping column sets, so every field is optional; nil means
// the column was absent or unparsable. Year and Month may be backfilled from
// the file's partition path.
type RawRow struct {
	Year  *int
	Month *int
	Day   *int

	// Legacy long form: element tag plus value in tenths of °F.
	Datatype *string
	Value    *float64

	// Already-normalized long form, present in some newer files.
	Element *string
	ValueC  *float64

	// Wide form: one column per element, values in °C.
	TMAX *float64
	TMIN *float64
	PRCP *float64

	Windspeed *float64
}

// CanonicalRow is the normalized long-form unit: exactly one element per row,
// ValueC always in degrees Celsius. Missing fields stay nil and are excluded
// from date-keyed joins downstream rather than raising errors.
type CanonicalRow struct {
	Year      *int
	Month     *int
	Day       *int
	Element   *string
	ValueC    *float64
	Windspeed *float64
	Source    string // "" for historical rows, SourceAPI for the live reading
}

// Date returns the row's calendar date and whether the date parts are
// complete and form a valid date (e.g. month=13 or Feb 30 fail).
func (c CanonicalRow) Date() (time.Time, bool) {
	if c.Year == nil || c.Month == nil || c.Day == nil {
		return time.Time{}, false
	}
	y, m, d := *c.Year, *c.Month, *c.Day
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes out-of-range days (Feb 30 -> Mar 1); reject those.
	if t.Year() != y || t.Month() != time.Month(m) || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

// FlagPair is the per-date anomaly classification at both granularities.
// A nil flag means no baseline was available.
type FlagPair struct {
	Daily   *string
	Monthly *string
}

// FlaggedRow is a CanonicalRow with its date's flag pair attached.
type FlaggedRow struct {
	CanonicalRow
	DailyFlag   *string
	MonthlyFlag *string
}

// WideRow is one row of the published artifact: one calendar date with one
// column per element. Any element column may be absent for a date. JSON tags
// match the CSV header for downstream consumers.
type WideRow struct {
	Date  string `json:"date"` // "2006-01-02"; the live row carries the full civil timestamp
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Day   int    `json:"day"`

	TMAX *float64 `json:"TMAX,omitempty"`
	TMIN *float64 `json:"TMIN,omitempty"`
	PRCP *float64 `json:"PRCP,omitempty"`

	DailyFlag   *string  `json:"daily_flag,omitempty"`
	MonthlyFlag *string  `json:"monthly_flag,omitempty"`
	Windspeed   *float64 `json:"windspeed,omitempty"`
	Source      string   `json:"source,omitempty"`
}

// Observation is a single live reading from the weather API. Time is US
// Eastern civil time stored without a zone tag.
type Observation struct {
	TemperatureC float64
	Time         time.Time
	Windspeed    *float64
}

// dateKey identifies a calendar date for grouping and joins.
type dateKey struct {
	Year  int
	Month int
	Day   int
}

func (k dateKey) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", k.Year, k.Month, k.Day)
}

func keyOf(c CanonicalRow) (dateKey, bool) {
	if _, ok := c.Date(); !ok {
		return dateKey{}, false
	}
	return dateKey{Year: *c.Year, Month: *c.Month, Day: *c.Day}, true
}

// Pointer helpers used across transforms and tests.

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }
func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
