package domain

import "sort"

// FlagThreshold is the distance in °C from a baseline beyond which a reading
// is classified Above or Below instead of Average.
const FlagThreshold = 3.0

// MonthDay keys the climatological daily baseline: the same (month, day)
// across all years.
type MonthDay struct {
	Month int
	Day   int
}

// Baseline holds the historical TMAX means a reading is compared against.
type Baseline struct {
	Daily   map[MonthDay]float64 // mean TMAX per (month, day) across years
	Monthly map[int]float64      // mean TMAX per month across years
}

// Empty reports whether no baseline could be computed at all.
func (b Baseline) Empty() bool {
	return len(b.Daily) == 0 && len(b.Monthly) == 0
}

// ComputeBaseline derives the daily and monthly TMAX means from canonical
// rows. Rows without a complete valid date, a TMAX element, or a value are
// ignored.
func ComputeBaseline(rows []CanonicalRow) Baseline {
	type acc struct {
		sum   float64
		count int
	}
	daily := make(map[MonthDay]*acc)
	monthly := make(map[int]*acc)

	for _, row := range rows {
		if row.Element == nil || *row.Element != ElementTMAX || row.ValueC == nil {
			continue
		}
		if _, ok := row.Date(); !ok {
			continue
		}
		dk := MonthDay{Month: *row.Month, Day: *row.Day}
		if daily[dk] == nil {
			daily[dk] = &acc{}
		}
		daily[dk].sum += *row.ValueC
		daily[dk].count++

		if monthly[*row.Month] == nil {
			monthly[*row.Month] = &acc{}
		}
		monthly[*row.Month].sum += *row.ValueC
		monthly[*row.Month].count++
	}

	b := Baseline{
		Daily:   make(map[MonthDay]float64, len(daily)),
		Monthly: make(map[int]float64, len(monthly)),
	}
	for k, a := range daily {
		b.Daily[k] = a.sum / float64(a.count)
	}
	for m, a := range monthly {
		b.Monthly[m] = a.sum / float64(a.count)
	}
	return b
}

// classify applies the threshold rule against a baseline mean.
func classify(value, mean float64) string {
	switch {
	case value < mean-FlagThreshold:
		return FlagBelow
	case value > mean+FlagThreshold:
		return FlagAbove
	default:
		return FlagAverage
	}
}

// FlagResult carries the flagged rows, the baseline used (reusable for the
// live reading), and stage diagnostics.
type FlagResult struct {
	Rows     []FlaggedRow
	Baseline Baseline

	DroppedRows   int // rows dropped for missing fields or invalid dates
	TMAXRows      int
	FlagConflicts int // dates where multiple TMAX readings disagreed on a flag
}

// FlagHistorical filters canonical rows to those with complete valid dates
// and values, computes the TMAX baselines, classifies every TMAX reading, and
// propagates each date's flag pair to all rows sharing that date.
//
// One flag pair per calendar date is enforced: when a date has several TMAX
// readings that classify differently, the pair from the smallest reading
// (values sorted ascending) wins and the conflict is counted. With no TMAX
// rows at all, the date-filtered rows come back unflagged.
func FlagHistorical(rows []CanonicalRow) FlagResult {
	res := FlagResult{}

	valid := make([]CanonicalRow, 0, len(rows))
	for _, row := range rows {
		if row.Element == nil || row.ValueC == nil {
			res.DroppedRows++
			continue
		}
		if _, ok := row.Date(); !ok {
			res.DroppedRows++
			continue
		}
		valid = append(valid, row)
	}

	tmaxByDate := make(map[dateKey][]float64)
	for _, row := range valid {
		if *row.Element != ElementTMAX {
			continue
		}
		res.TMAXRows++
		k, _ := keyOf(row)
		tmaxByDate[k] = append(tmaxByDate[k], *row.ValueC)
	}

	if res.TMAXRows == 0 {
		res.Rows = attachFlags(valid, nil)
		return res
	}

	res.Baseline = ComputeBaseline(valid)

	pairs := make(map[dateKey]FlagPair, len(tmaxByDate))
	for k, values := range tmaxByDate {
		sort.Float64s(values)
		var pair FlagPair
		for i, v := range values {
			daily := classify(v, res.Baseline.Daily[MonthDay{Month: k.Month, Day: k.Day}])
			monthly := classify(v, res.Baseline.Monthly[k.Month])
			if i == 0 {
				pair = FlagPair{Daily: &daily, Monthly: &monthly}
				continue
			}
			if daily != *pair.Daily || monthly != *pair.Monthly {
				res.FlagConflicts++
				break
			}
		}
		pairs[k] = pair
	}

	res.Rows = attachFlags(valid, pairs)
	return res
}

// attachFlags joins the per-date flag pairs onto every row of that date.
func attachFlags(rows []CanonicalRow, pairs map[dateKey]FlagPair) []FlaggedRow {
	flagged := make([]FlaggedRow, 0, len(rows))
	for _, row := range rows {
		fr := FlaggedRow{CanonicalRow: row}
		if k, ok := keyOf(row); ok {
			if pair, ok := pairs[k]; ok {
				fr.DailyFlag = pair.Daily
				fr.MonthlyFlag = pair.Monthly
			}
		}
		flagged = append(flagged, fr)
	}
	return flagged
}

// FlagObservation classifies a single reading against historical baselines.
// A missing (month, day) or month baseline leaves the corresponding flag nil;
// an entirely empty baseline leaves both nil.
func FlagObservation(b Baseline, row CanonicalRow) FlagPair {
	var pair FlagPair
	if row.ValueC == nil || row.Month == nil || row.Day == nil {
		return pair
	}
	if mean, ok := b.Daily[MonthDay{Month: *row.Month, Day: *row.Day}]; ok {
		f := classify(*row.ValueC, mean)
		pair.Daily = &f
	}
	if mean, ok := b.Monthly[*row.Month]; ok {
		f := classify(*row.ValueC, mean)
		pair.Monthly = &f
	}
	return pair
}
