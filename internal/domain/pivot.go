package domain

import "sort"

// PivotResult carries the wide table plus stage diagnostics.
type PivotResult struct {
	Rows []WideRow

	DroppedElements int // rows whose element is not TMAX/TMIN/PRCP
}

// pivotAcc accumulates one date's group during the pivot.
type pivotAcc struct {
	sums   map[string]float64
	counts map[string]int

	dailyFlag   *string
	monthlyFlag *string
	windspeed   *float64
}

// Pivot turns the flagged long-form table into one row per date with a column
// per element, then appends the live row (if any) last.
//
// Only TMAX, TMIN, and PRCP survive; other elements are dropped and counted.
// Duplicate (date, element) values average. Flags and windspeed are date-level
// properties: the first non-null value per date is attached, which is safe for
// flags because FlagHistorical emits one pair per date. Output is sorted by
// date so reruns over identical input publish identical bytes.
func Pivot(hist []FlaggedRow, live *WideRow) PivotResult {
	res := PivotResult{}
	groups := make(map[dateKey]*pivotAcc)

	for _, row := range hist {
		k, ok := keyOf(row.CanonicalRow)
		if !ok || row.Element == nil || row.ValueC == nil {
			continue
		}
		switch *row.Element {
		case ElementTMAX, ElementTMIN, ElementPRCP:
		default:
			res.DroppedElements++
			continue
		}

		g := groups[k]
		if g == nil {
			g = &pivotAcc{sums: make(map[string]float64), counts: make(map[string]int)}
			groups[k] = g
		}
		g.sums[*row.Element] += *row.ValueC
		g.counts[*row.Element]++

		if g.dailyFlag == nil {
			g.dailyFlag = row.DailyFlag
		}
		if g.monthlyFlag == nil {
			g.monthlyFlag = row.MonthlyFlag
		}
		if g.windspeed == nil {
			g.windspeed = row.Windspeed
		}
	}

	keys := make([]dateKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.Month != b.Month {
			return a.Month < b.Month
		}
		return a.Day < b.Day
	})

	res.Rows = make([]WideRow, 0, len(keys)+1)
	for _, k := range keys {
		g := groups[k]
		wr := WideRow{
			Date:        k.String(),
			Year:        k.Year,
			Month:       k.Month,
			Day:         k.Day,
			DailyFlag:   g.dailyFlag,
			MonthlyFlag: g.monthlyFlag,
			Windspeed:   g.windspeed,
		}
		if n := g.counts[ElementTMAX]; n > 0 {
			wr.TMAX = floatPtr(g.sums[ElementTMAX] / float64(n))
		}
		if n := g.counts[ElementTMIN]; n > 0 {
			wr.TMIN = floatPtr(g.sums[ElementTMIN] / float64(n))
		}
		if n := g.counts[ElementPRCP]; n > 0 {
			wr.PRCP = floatPtr(g.sums[ElementPRCP] / float64(n))
		}
		res.Rows = append(res.Rows, wr)
	}

	if live != nil {
		res.Rows = append(res.Rows, *live)
	}
	return res
}
