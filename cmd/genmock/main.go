// Command genmock generates partitioned parquet fixtures shaped like the
// historical weather archive: legacy long-form files with tenths-of-°F
// readings and wide-form files with one °C column per element. The fixtures
// are deterministic so test assertions stay stable across runs.
//
// Usage:
//
//	go run ./cmd/genmock -out testdata/raw -start-year 2017 -end-year 2020
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
)

// legacyRecord mirrors the oldest producer's schema: one element reading per
// row, value in tenths of degrees Fahrenheit.
type legacyRecord struct {
	Year     int32   `parquet:"year"`
	Month    int32   `parquet:"month"`
	Day      int32   `parquet:"day"`
	Datatype string  `parquet:"datatype"`
	Value    float64 `parquet:"value"`
}

// wideRecord mirrors the newer producer's schema: one row per day with
// nullable per-element columns in degrees Celsius.
type wideRecord struct {
	Day  int32    `parquet:"day"`
	TMAX *float64 `parquet:"TMAX,optional"`
	TMIN *float64 `parquet:"TMIN,optional"`
	PRCP *float64 `parquet:"PRCP,optional"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output directory for partitioned parquet files")
	startYear := flag.Int("start-year", 2017, "first year to generate")
	endYear := flag.Int("end-year", 2020, "last year to generate, inclusive; wide-form files take over halfway through")
	seed := flag.Int64("seed", 42, "random seed")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if *endYear < *startYear {
		return fmt.Errorf("end year %d before start year %d", *endYear, *startYear)
	}

	rng := rand.New(rand.NewSource(*seed))

	// Older years get the legacy schema, newer years the wide schema,
	// matching how the real archive evolved.
	cutover := *startYear + (*endYear-*startYear+1)/2
	var files, legacyFiles int

	for year := *startYear; year <= *endYear; year++ {
		for month := 1; month <= 12; month++ {
			dir := filepath.Join(*out, fmt.Sprintf("year=%d", year), fmt.Sprintf("month=%02d", month))
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			path := filepath.Join(dir, "part-0.parquet")

			var err error
			if year < cutover {
				err = writeLegacy(path, year, month, rng)
				legacyFiles++
			} else {
				err = writeWide(path, year, month, rng)
			}
			if err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			files++
		}
	}

	log.Printf("wrote %d files (%d legacy, %d wide) under %s",
		files, legacyFiles, files-legacyFiles, *out)
	return nil
}

// tmaxCelsius models a Boston-ish seasonal cycle with day-to-day noise.
func tmaxCelsius(month, day int, rng *rand.Rand) float64 {
	dayOfYear := float64(time.Date(2001, time.Month(month), day, 0, 0, 0, 0, time.UTC).YearDay())
	seasonal := 14 - 13*math.Cos(2*math.Pi*(dayOfYear-15)/365)
	return seasonal + rng.NormFloat64()*4
}

func celsiusToTenthsFahrenheit(c float64) float64 {
	return (c*9/5 + 32) * 10
}

func daysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func writeLegacy(path string, year, month int, rng *rand.Rand) error {
	var recs []legacyRecord
	for day := 1; day <= daysIn(year, month); day++ {
		tmax := tmaxCelsius(month, day, rng)
		tmin := tmax - 5 - rng.Float64()*6
		recs = append(recs,
			legacyRecord{Year: int32(year), Month: int32(month), Day: int32(day), Datatype: "TMAX", Value: round1(celsiusToTenthsFahrenheit(tmax))},
			legacyRecord{Year: int32(year), Month: int32(month), Day: int32(day), Datatype: "TMIN", Value: round1(celsiusToTenthsFahrenheit(tmin))},
		)
	}
	return writeParquet(path, recs)
}

func writeWide(path string, year, month int, rng *rand.Rand) error {
	var recs []wideRecord
	for day := 1; day <= daysIn(year, month); day++ {
		tmax := round1(tmaxCelsius(month, day, rng))
		tmin := round1(tmax - 5 - rng.Float64()*6)
		rec := wideRecord{Day: int32(day), TMAX: &tmax, TMIN: &tmin}
		if rng.Float64() < 0.3 {
			prcp := round1(rng.Float64() * 20)
			rec.PRCP = &prcp
		}
		recs = append(recs, rec)
	}
	return writeParquet(path, recs)
}

func writeParquet[T any](path string, recs []T) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := parquet.NewGenericWriter[T](f)
	if _, err := w.Write(recs); err != nil {
		f.Close()
		return err
	}
	if err := w.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
