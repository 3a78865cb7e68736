package velib

import (
	"fmt"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Frame renders up to limit rows of the table as a string-typed dataframe.
// Missing values become NaN elements. A limit <= 0 renders every row.
func (t StationTable) Frame(limit int) dataframe.DataFrame {
	n := len(t.Rows)
	if limit > 0 && limit < n {
		n = limit
	}

	cols := make([]series.Series, 0, len(t.Columns))
	for _, name := range t.Columns {
		values := make([]interface{}, n)
		for i := 0; i < n; i++ {
			if v, ok := t.Rows[i][name]; ok && !isMissing(v) {
				values[i] = fmt.Sprint(v)
			}
		}
		cols = append(cols, series.New(values, series.String, name))
	}
	return dataframe.New(cols...)
}

// Frame renders up to limit rows of the indicator table with typed columns.
func (t IndicatorTable) Frame(limit int) dataframe.DataFrame {
	n := len(t.Rows)
	if limit > 0 && limit < n {
		n = limit
	}

	var (
		codes     = make([]string, n)
		names     = make([]string, n)
		districts = make([]string, n)
		dueDates  = make([]string, n)
		bikes     = make([]int, n)
		docks     = make([]int, n)
		capacity  = make([]int, n)
		fill      = make([]float64, n)
	)
	for i := 0; i < n; i++ {
		r := t.Rows[i]
		codes[i] = r.Code
		names[i] = r.Name
		districts[i] = r.District
		dueDates[i] = r.DueDate.Format(time.RFC3339)
		bikes[i] = r.BikesAvailable
		docks[i] = r.DocksAvailable
		capacity[i] = r.Capacity
		fill[i] = float64(r.FillRate)
	}

	return dataframe.New(
		series.New(codes, series.String, "stationcode"),
		series.New(names, series.String, "name"),
		series.New(districts, series.String, "district"),
		series.New(dueDates, series.String, "duedate"),
		series.New(bikes, series.Int, "numbikesavailable"),
		series.New(docks, series.Int, "numdocksavailable"),
		series.New(capacity, series.Int, "capacity"),
		series.New(fill, series.Float, FillRateColumn),
	)
}

// Frame renders the aggregate one row per district, ordered by name.
func (a ArrondissementAggregate) Frame() dataframe.DataFrame {
	entries := a.Entries()
	names := make([]string, len(entries))
	means := make([]float64, len(entries))
	for i, e := range entries {
		names[i] = e.District
		means[i] = e.MeanBikesAvailable
	}

	return dataframe.New(
		series.New(names, series.String, "district"),
		series.New(means, series.Float, "mean_bikes_available"),
	)
}
