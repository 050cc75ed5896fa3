package domain

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// csvHeader is the fixed column order of the published artifact.
var csvHeader = []string{
	"date", "year", "month", "day",
	"PRCP", "TMAX", "TMIN",
	"daily_flag", "monthly_flag", "windspeed", "source",
}

// EncodeCSV serializes the wide table as the published UTF-8 CSV artifact.
// The encoding is deterministic: identical input produces identical bytes.
func EncodeCSV(rows []WideRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		rec := []string{
			row.Date,
			strconv.Itoa(row.Year),
			strconv.Itoa(row.Month),
			strconv.Itoa(row.Day),
			formatFloat(row.PRCP),
			formatFloat(row.TMAX),
			formatFloat(row.TMIN),
			formatFlag(row.DailyFlag),
			formatFlag(row.MonthlyFlag),
			formatFloat(row.Windspeed),
			row.Source,
		}
		if err := w.Write(rec); err != nil {
			return nil, fmt.Errorf("write csv row %s: %w", row.Date, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeCSV parses a published artifact back into wide rows. Used by the
// dashboard and the artifact validator, which consume what the ETL publishes.
func DecodeCSV(r io.Reader) ([]WideRow, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("artifact is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) != len(csvHeader) {
		return nil, fmt.Errorf("unexpected header width %d, want %d", len(header), len(csvHeader))
	}
	for i, name := range csvHeader {
		if header[i] != name {
			return nil, fmt.Errorf("unexpected header column %q at %d, want %q", header[i], i, name)
		}
	}

	var rows []WideRow
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		row, err := decodeRecord(rec)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func decodeRecord(rec []string) (WideRow, error) {
	year, err := strconv.Atoi(rec[1])
	if err != nil {
		return WideRow{}, fmt.Errorf("parse year %q: %w", rec[1], err)
	}
	month, err := strconv.Atoi(rec[2])
	if err != nil {
		return WideRow{}, fmt.Errorf("parse month %q: %w", rec[2], err)
	}
	day, err := strconv.Atoi(rec[3])
	if err != nil {
		return WideRow{}, fmt.Errorf("parse day %q: %w", rec[3], err)
	}

	row := WideRow{
		Date:        rec[0],
		Year:        year,
		Month:       month,
		Day:         day,
		DailyFlag:   parseFlag(rec[7]),
		MonthlyFlag: parseFlag(rec[8]),
		Source:      rec[10],
	}
	if row.PRCP, err = parseFloat(rec[4]); err != nil {
		return WideRow{}, fmt.Errorf("parse PRCP %q: %w", rec[4], err)
	}
	if row.TMAX, err = parseFloat(rec[5]); err != nil {
		return WideRow{}, fmt.Errorf("parse TMAX %q: %w", rec[5], err)
	}
	if row.TMIN, err = parseFloat(rec[6]); err != nil {
		return WideRow{}, fmt.Errorf("parse TMIN %q: %w", rec[6], err)
	}
	if row.Windspeed, err = parseFloat(rec[9]); err != nil {
		return WideRow{}, fmt.Errorf("parse windspeed %q: %w", rec[9], err)
	}
	return row, nil
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

func formatFlag(f *string) string {
	if f == nil {
		return ""
	}
	return *f
}

func parseFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseFlag(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
