package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flagged(row CanonicalRow, daily, monthly string) FlaggedRow {
	return FlaggedRow{CanonicalRow: row, DailyFlag: strPtr(daily), MonthlyFlag: strPtr(monthly)}
}

func TestPivot_OneRowPerDate(t *testing.T) {
	hist := []FlaggedRow{
		flagged(elementRow(2020, 6, 1, ElementTMAX, 20), FlagAverage, FlagAverage),
		flagged(elementRow(2020, 6, 1, ElementTMIN, 10), FlagAverage, FlagAverage),
	}

	res := Pivot(hist, nil)

	require.Len(t, res.Rows, 1)
	row := res.Rows[0]
	assert.Equal(t, "2020-06-01", row.Date)
	assert.Equal(t, 20.0, *row.TMAX)
	assert.Equal(t, 10.0, *row.TMIN)
	assert.Nil(t, row.PRCP)
	assert.Equal(t, FlagAverage, *row.DailyFlag)
}

func TestPivot_DuplicateElementValuesAverage(t *testing.T) {
	hist := []FlaggedRow{
		flagged(elementRow(2020, 6, 1, ElementTMAX, 18), FlagAverage, FlagAverage),
		flagged(elementRow(2020, 6, 1, ElementTMAX, 22), FlagAverage, FlagAverage),
	}

	res := Pivot(hist, nil)

	require.Len(t, res.Rows, 1)
	assert.InDelta(t, 20, *res.Rows[0].TMAX, 1e-9)
}

func TestPivot_DropsUnknownElements(t *testing.T) {
	hist := []FlaggedRow{
		flagged(elementRow(2020, 6, 1, ElementTMAX, 18), FlagAverage, FlagAverage),
		flagged(elementRow(2020, 6, 1, "SNOW", 3), FlagAverage, FlagAverage),
	}

	res := Pivot(hist, nil)

	require.Len(t, res.Rows, 1)
	assert.Equal(t, 1, res.DroppedElements)
	assert.Nil(t, res.Rows[0].PRCP)
}

func TestPivot_SortedByDate(t *testing.T) {
	hist := []FlaggedRow{
		flagged(elementRow(2021, 1, 2, ElementTMAX, 1), FlagAverage, FlagAverage),
		flagged(elementRow(2020, 12, 31, ElementTMAX, 2), FlagAverage, FlagAverage),
		flagged(elementRow(2021, 1, 1, ElementTMAX, 3), FlagAverage, FlagAverage),
	}

	res := Pivot(hist, nil)

	require.Len(t, res.Rows, 3)
	assert.Equal(t, "2020-12-31", res.Rows[0].Date)
	assert.Equal(t, "2021-01-01", res.Rows[1].Date)
	assert.Equal(t, "2021-01-02", res.Rows[2].Date)
}

func TestPivot_WindspeedFirstNonNull(t *testing.T) {
	r1 := elementRow(2020, 6, 1, ElementTMAX, 18)
	r2 := elementRow(2020, 6, 1, ElementTMIN, 8)
	r2.Windspeed = floatPtr(9.9)

	res := Pivot([]FlaggedRow{{CanonicalRow: r1}, {CanonicalRow: r2}}, nil)

	require.Len(t, res.Rows, 1)
	require.NotNil(t, res.Rows[0].Windspeed)
	assert.Equal(t, 9.9, *res.Rows[0].Windspeed)
}

func TestPivot_LiveRowAppendedLast(t *testing.T) {
	hist := []FlaggedRow{
		flagged(elementRow(2020, 6, 1, ElementTMAX, 18), FlagAverage, FlagAverage),
	}
	obs := Observation{
		TemperatureC: 24.5,
		Time:         time.Date(2026, 8, 25, 14, 30, 0, 0, time.UTC),
	}
	live := LiveWideRow(obs, FlagPair{Daily: strPtr(FlagAbove)})

	res := Pivot(hist, &live)

	require.Len(t, res.Rows, 2)
	last := res.Rows[1]
	assert.Equal(t, SourceAPI, last.Source)
	assert.Equal(t, "2026-08-25 14:30:00", last.Date)
	assert.Equal(t, 24.5, *last.TMAX)
	assert.Equal(t, FlagAbove, *last.DailyFlag)
	assert.Nil(t, last.MonthlyFlag)
}

func TestPivot_EmptyHistoricalWithLive(t *testing.T) {
	obs := Observation{TemperatureC: 20, Time: time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)}
	live := LiveWideRow(obs, FlagPair{})

	res := Pivot(nil, &live)

	require.Len(t, res.Rows, 1)
	assert.Equal(t, SourceAPI, res.Rows[0].Source)
	assert.Nil(t, res.Rows[0].DailyFlag)
}

func TestPivot_EmptyBoth(t *testing.T) {
	res := Pivot(nil, nil)
	assert.Empty(t, res.Rows)
}
