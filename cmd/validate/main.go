// Command validate checks a published weather artifact for integrity:
// schema and date consistency, flag values, row uniqueness, and value
// sanity. It exits non-zero when any phase fails.
//
// Usage:
//
//	go run ./cmd/validate -artifact combined/weather_combined.csv
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/couchcryptid/weather-anomaly-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	artifact := flag.String("artifact", "", "path to a published CSV artifact")
	flag.Parse()

	if *artifact == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*artifact); code != 0 {
		os.Exit(code)
	}
}

func run(path string) int {
	fmt.Println("=== Weather Artifact Validation ===")
	fmt.Println()

	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: open artifact: %v\n", err)
		return 1
	}
	rows, err := domain.DecodeCSV(f)
	f.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: decode artifact: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateDates(rows),
		validateFlags(rows),
		validateUniqueness(rows),
		validateValues(rows),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-40s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Rows: %d\n", len(rows))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// validateDates checks that every date string parses and agrees with the
// row's year, month, and day columns. Historical rows carry bare dates; the
// live row carries a full civil timestamp.
func validateDates(rows []domain.WideRow) *phase {
	p := &phase{name: "Phase 1: Dates"}

	for i, row := range rows {
		layout := "2006-01-02"
		if row.Source == domain.SourceAPI {
			layout = "2006-01-02 15:04:05"
		}
		ts, err := time.Parse(layout, row.Date)
		if err != nil {
			p.errorf("row %d: date %q does not parse as %q", i, row.Date, layout)
			continue
		}
		if ts.Year() != row.Year || int(ts.Month()) != row.Month || ts.Day() != row.Day {
			p.errorf("row %d: date %q disagrees with year=%d month=%d day=%d",
				i, row.Date, row.Year, row.Month, row.Day)
		}
	}
	return p
}

func validateFlags(rows []domain.WideRow) *phase {
	p := &phase{name: "Phase 2: Flag values"}

	valid := map[string]bool{
		domain.FlagAbove:   true,
		domain.FlagBelow:   true,
		domain.FlagAverage: true,
	}
	for i, row := range rows {
		if row.DailyFlag != nil && !valid[*row.DailyFlag] {
			p.errorf("row %d (%s): daily_flag %q not in {Above, Below, Average}", i, row.Date, *row.DailyFlag)
		}
		if row.MonthlyFlag != nil && !valid[*row.MonthlyFlag] {
			p.errorf("row %d (%s): monthly_flag %q not in {Above, Below, Average}", i, row.Date, *row.MonthlyFlag)
		}
	}
	return p
}

// validateUniqueness checks one row per historical date, at most one live
// row, and the live row in last position.
func validateUniqueness(rows []domain.WideRow) *phase {
	p := &phase{name: "Phase 3: Row uniqueness"}

	seen := map[string]int{}
	liveRows := 0
	for i, row := range rows {
		if row.Source == domain.SourceAPI {
			liveRows++
			if i != len(rows)-1 {
				p.errorf("row %d (%s): live row is not last", i, row.Date)
			}
			continue
		}
		key := fmt.Sprintf("%04d-%02d-%02d", row.Year, row.Month, row.Day)
		if prev, ok := seen[key]; ok {
			p.errorf("row %d: duplicate historical date %s (first at row %d)", i, key, prev)
		}
		seen[key] = i
	}
	if liveRows > 1 {
		p.errorf("%d live rows, expected at most one", liveRows)
	}
	return p
}

// validateValues applies loose physical bounds; readings outside them point
// at a unit-conversion bug, not weather.
func validateValues(rows []domain.WideRow) *phase {
	p := &phase{name: "Phase 4: Value sanity"}

	checkTemp := func(i int, row domain.WideRow, name string, v *float64) {
		if v == nil {
			return
		}
		if *v < -60 || *v > 60 {
			p.errorf("row %d (%s): %s %.1f °C out of plausible range", i, row.Date, name, *v)
		}
	}

	for i, row := range rows {
		checkTemp(i, row, "TMAX", row.TMAX)
		checkTemp(i, row, "TMIN", row.TMIN)
		if row.TMAX != nil && row.TMIN != nil && *row.TMIN > *row.TMAX {
			p.errorf("row %d (%s): TMIN %.1f above TMAX %.1f", i, row.Date, *row.TMIN, *row.TMAX)
		}
		if row.PRCP != nil && *row.PRCP < 0 {
			p.errorf("row %d (%s): negative precipitation %.1f", i, row.Date, *row.PRCP)
		}
		if row.Windspeed != nil && *row.Windspeed < 0 {
			p.errorf("row %d (%s): negative windspeed %.1f", i, row.Date, *row.Windspeed)
		}
	}
	return p
}
