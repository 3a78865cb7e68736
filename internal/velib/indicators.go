package velib

// CalculateIndicators derives the per-station fill rate and the per-district mean of available bikes.
// The fill rate division is unguarded: a zero capacity yields NaN or ±Inf.
func CalculateIndicators(cleaned CleanedStationTable) (IndicatorTable, ArrondissementAggregate) {
	rows := make([]IndicatorRow, 0, len(cleaned.Rows))

	var (
		sums   = make(map[string]float64)
		counts = make(map[string]int)
	)

	for _, st := range cleaned.Rows {
		rows = append(rows, IndicatorRow{
			Station:  st,
			FillRate: fillRate(st.BikesAvailable, st.Capacity),
		})

		sums[st.District] += float64(st.BikesAvailable)
		counts[st.District]++
	}

	agg := make(ArrondissementAggregate, len(counts))
	for d, n := range counts {
		agg[d] = sums[d] / float64(n)
	}

	cols := append(append([]string(nil), cleaned.Columns...), FillRateColumn)
	return IndicatorTable{Columns: cols, Rows: rows}, agg
}

// FillRateColumn is the name of the derived column in the indicator table.
const FillRateColumn = "fill_rate"

func fillRate(bikes, capacity int) Ratio {
	b, c := float64(bikes), float64(capacity)
	return Ratio(b / c)
}

// UndefinedRates counts rows whose fill rate is NaN or infinite.
func (t IndicatorTable) UndefinedRates() int {
	n := 0
	for _, r := range t.Rows {
		if !r.FillRate.Defined() {
			n++
		}
	}
	return n
}
