package domain

// liveTimeLayout is the civil-time format the live row carries in the
// published table; historical rows carry bare dates.
const liveTimeLayout = "2006-01-02 15:04:05"

// CanonicalRow reshapes the live reading into the canonical long-form schema:
// a single TMAX row tagged with SourceAPI.
func (o Observation) CanonicalRow() CanonicalRow {
	return CanonicalRow{
		Year:      intPtr(o.Time.Year()),
		Month:     intPtr(int(o.Time.Month())),
		Day:       intPtr(o.Time.Day()),
		Element:   strPtr(ElementTMAX),
		ValueC:    floatPtr(o.TemperatureC),
		Windspeed: copyFloat(o.Windspeed),
		Source:    SourceAPI,
	}
}

// LiveWideRow builds the live reading's row of the published table. The flag
// pair comes from FlagObservation; either flag may be nil when the historical
// baseline had no match.
func LiveWideRow(o Observation, pair FlagPair) WideRow {
	return WideRow{
		Date:        o.Time.Format(liveTimeLayout),
		Year:        o.Time.Year(),
		Month:       int(o.Time.Month()),
		Day:         o.Time.Day(),
		TMAX:        floatPtr(o.TemperatureC),
		DailyFlag:   pair.Daily,
		MonthlyFlag: pair.Monthly,
		Windspeed:   copyFloat(o.Windspeed),
		Source:      SourceAPI,
	}
}
