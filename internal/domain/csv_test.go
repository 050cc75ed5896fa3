package domain

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleWideRows() []WideRow {
	return []WideRow{
		{
			Date: "2020-06-01", Year: 2020, Month: 6, Day: 1,
			TMAX: floatPtr(20), TMIN: floatPtr(10.5),
			DailyFlag: strPtr(FlagAverage), MonthlyFlag: strPtr(FlagAbove),
		},
		{
			Date: "2026-08-25 14:30:00", Year: 2026, Month: 8, Day: 25,
			TMAX: floatPtr(24.5), Windspeed: floatPtr(11.2),
			DailyFlag: strPtr(FlagAbove), Source: SourceAPI,
		},
	}
}

func TestEncodeCSV_HeaderAndRows(t *testing.T) {
	data, err := EncodeCSV(sampleWideRows())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "date,year,month,day,PRCP,TMAX,TMIN,daily_flag,monthly_flag,windspeed,source", lines[0])
	assert.Equal(t, "2020-06-01,2020,6,1,,20,10.5,Average,Above,,", lines[1])
	assert.Equal(t, "2026-08-25 14:30:00,2026,8,25,,24.5,,Above,,11.2,api", lines[2])
}

func TestEncodeCSV_Deterministic(t *testing.T) {
	a, err := EncodeCSV(sampleWideRows())
	require.NoError(t, err)
	b, err := EncodeCSV(sampleWideRows())
	require.NoError(t, err)
	assert.True(t, bytes.Equal(a, b))
}

func TestEncodeCSV_EmptyTable(t *testing.T) {
	data, err := EncodeCSV(nil)
	require.NoError(t, err)
	assert.Equal(t, "date,year,month,day,PRCP,TMAX,TMIN,daily_flag,monthly_flag,windspeed,source\n", string(data))
}

func TestDecodeCSV_RoundTrip(t *testing.T) {
	rows := sampleWideRows()
	data, err := EncodeCSV(rows)
	require.NoError(t, err)

	decoded, err := DecodeCSV(bytes.NewReader(data))
	require.NoError(t, err)

	if diff := cmp.Diff(rows, decoded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeCSV_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty input", ""},
		{"wrong header", "a,b,c\n"},
		{"bad year", "date,year,month,day,PRCP,TMAX,TMIN,daily_flag,monthly_flag,windspeed,source\nx,notayear,1,1,,,,,,,\n"},
		{"bad float", "date,year,month,day,PRCP,TMAX,TMIN,daily_flag,monthly_flag,windspeed,source\nx,2020,1,1,oops,,,,,,\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCSV(strings.NewReader(tt.input))
			require.Error(t, err)
		})
	}
}
