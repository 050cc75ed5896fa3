package domain

// NormalizeResult carries the canonical rows plus stage diagnostics for the
// caller to log once, instead of the stage logging as it goes.
type NormalizeResult struct {
	Rows []CanonicalRow

	LegacyRows  int // rows converted from the tenths-°F long form
	NativeRows  int // rows that already carried element/value_c
	MeltedRows  int // canonical rows produced by unpivoting wide columns
	DroppedRows int // candidate-wide rows with no non-null wide column
}

// wideColumn pairs an element tag with its accessor so melting iterates in a
// fixed order.
type wideColumn struct {
	element string
	value   func(RawRow) *float64
}

var wideColumns = []wideColumn{
	{ElementTMAX, func(r RawRow) *float64 { return r.TMAX }},
	{ElementTMIN, func(r RawRow) *float64 { return r.TMIN }},
	{ElementPRCP, func(r RawRow) *float64 { return r.PRCP }},
}

// Normalize reconciles heterogeneous historical rows into canonical long form.
//
// Rows carrying both datatype and value are legacy long form: the element is
// the datatype tag and the value converts from tenths of °F to °C. A row that
// ends up with both element and value present (natively or via conversion) is
// long form and passes through as a single canonical row. Everything else is
// a wide-form candidate and is unpivoted: one canonical row per non-null
// TMAX/TMIN/PRCP column. Candidates with no non-null wide column produce no
// output. Missing date parts are preserved as nil, never dropped here.
func Normalize(raws []RawRow) NormalizeResult {
	res := NormalizeResult{Rows: make([]CanonicalRow, 0, len(raws))}

	for _, raw := range raws {
		element := raw.Element
		valueC := raw.ValueC

		legacy := raw.Datatype != nil && raw.Value != nil
		if legacy {
			e := *raw.Datatype
			element = &e
			v := tenthsFahrenheitToCelsius(*raw.Value)
			valueC = &v
		}

		if element != nil && valueC != nil {
			if legacy {
				res.LegacyRows++
			} else {
				res.NativeRows++
			}
			res.Rows = append(res.Rows, CanonicalRow{
				Year:      raw.Year,
				Month:     raw.Month,
				Day:       raw.Day,
				Element:   element,
				ValueC:    valueC,
				Windspeed: copyFloat(raw.Windspeed),
			})
			continue
		}

		melted := 0
		for _, col := range wideColumns {
			v := col.value(raw)
			if v == nil {
				continue
			}
			res.Rows = append(res.Rows, CanonicalRow{
				Year:      raw.Year,
				Month:     raw.Month,
				Day:       raw.Day,
				Element:   strPtr(col.element),
				ValueC:    copyFloat(v),
				Windspeed: copyFloat(raw.Windspeed),
			})
			melted++
		}
		if melted == 0 {
			res.DroppedRows++
		}
		res.MeltedRows += melted
	}

	return res
}

// tenthsFahrenheitToCelsius converts the legacy GHCN-style encoding
// (tenths of °F) to degrees Celsius.
func tenthsFahrenheitToCelsius(v float64) float64 {
	return (v/10 - 32) * 5 / 9
}
