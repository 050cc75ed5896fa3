// Package domain models daily weather observations and the transforms that
// reconcile them into a single flagged table.
//
// # Data Sources
//
// Historical data comes from partitioned parquet files in object storage. The
// files were produced by several generations of an upstream exporter and do
// not share a schema:
//
//	Legacy long form:  one row per (date, element) with a "datatype" tag and a
//	                   "value" column in tenths of degrees Fahrenheit
//	                   (GHCN-style encoding: 725 = 72.5 °F).
//	Wide form:         one row per date with TMAX/TMIN/PRCP columns already in
//	                   degrees Celsius.
//
// Partition paths encode the date: .../year=2013/month=6/part-0.parquet. The
// year and month columns may be missing from the row body and are backfilled
// from the path by the loader.
//
// The live reading is a single Open-Meteo current-weather observation
// (temperature in °C, optional windspeed), timestamped in US Eastern civil
// time and stored without a zone tag.
//
// # Elements
//
// Element tags follow GHCN conventions: TMAX (daily max temperature), TMIN
// (daily min temperature), PRCP (precipitation). Other elements survive
// normalization but are excluded from the published wide table.
//
// # Anomaly Flags
//
// Every TMAX reading is classified against two climatological baselines: the
// mean TMAX across all years for its (month, day), and the mean TMAX across
// all years for its month. A reading more than 3 °C above the baseline is
// "Above", more than 3 °C below is "Below", otherwise "Average". The flag
// pair belongs to the calendar date, not the element: TMIN and PRCP rows of
// the same date carry the same pair. Multiple TMAX readings on one date must
// agree on the pair; disagreements are resolved deterministically and counted,
// never silently.
package domain
