package velib

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"time"
)

// RawStationRecord is one station entry as delivered by the feed: field name to untyped value.
type RawStationRecord map[string]any

// FieldMap names the raw fields the typed station model is built from.
type FieldMap struct {
	Code           string `yaml:"code" validate:"required"`
	Name           string `yaml:"name"` // optional; empty means not modelled
	District       string `yaml:"district" validate:"required"`
	DueDate        string `yaml:"duedate" validate:"required"`
	BikesAvailable string `yaml:"bikes_available" split_words:"true" validate:"required"`
	DocksAvailable string `yaml:"docks_available" split_words:"true" validate:"required"`
	Capacity       string `yaml:"capacity" validate:"required"`
}

// DefaultFields returns the field names used by the Paris Vélib open-data feed.
func DefaultFields() FieldMap {
	return FieldMap{
		Code:           "stationcode",
		Name:           "name",
		District:       "nom_arrondissement_communes",
		DueDate:        "duedate",
		BikesAvailable: "numbikesavailable",
		DocksAvailable: "numdocksavailable",
		Capacity:       "capacity",
	}
}

// Required lists the mapped field names a row must carry to survive cleaning.
func (f FieldMap) Required() []string {
	names := []string{f.Code, f.Name, f.District, f.DueDate, f.BikesAvailable, f.DocksAvailable, f.Capacity}
	out := names[:0]
	for _, n := range names {
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}

// StationTable is the reshaped batch: one row per raw record, one column per field name seen.
type StationTable struct {
	Columns []string
	Rows    []RawStationRecord
}

// Len returns the number of rows.
func (t StationTable) Len() int { return len(t.Rows) }

// Station is a cleaned, typed station row.
type Station struct {
	Code           string    `json:"stationcode"`
	Name           string    `json:"name,omitempty"`
	District       string    `json:"district"`
	DueDate        time.Time `json:"duedate"`
	BikesAvailable int       `json:"numbikesavailable"`
	DocksAvailable int       `json:"numdocksavailable"`
	Capacity       int       `json:"capacity"`
}

// CleanedStationTable holds rows that passed the missing-value filter and type coercion.
// Columns keeps the modelled columns of the source table in input order.
type CleanedStationTable struct {
	Columns []string
	Fields  FieldMap
	Rows    []Station
}

// Len returns the number of rows.
func (t CleanedStationTable) Len() int { return len(t.Rows) }

// Table renders the cleaned rows back into an untyped StationTable.
func (t CleanedStationTable) Table() StationTable {
	fields := t.Fields
	cols := append([]string(nil), t.Columns...)

	rows := make([]RawStationRecord, 0, len(t.Rows))
	for _, st := range t.Rows {
		rec := RawStationRecord{
			fields.Code:           st.Code,
			fields.District:       st.District,
			fields.DueDate:        st.DueDate.Format(time.RFC3339Nano),
			fields.BikesAvailable: st.BikesAvailable,
			fields.DocksAvailable: st.DocksAvailable,
			fields.Capacity:       st.Capacity,
		}
		if fields.Name != "" {
			rec[fields.Name] = st.Name
		}
		rows = append(rows, rec)
	}
	return StationTable{Columns: cols, Rows: rows}
}

// Ratio is a float that keeps non-finite values visible when encoded.
type Ratio float64

// Defined reports whether the ratio is a finite number.
func (r Ratio) Defined() bool {
	f := float64(r)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (r Ratio) String() string {
	f := float64(r)
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// MarshalJSON encodes finite values as numbers and NaN/Inf as strings.
func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.Defined() {
		return json.Marshal(r.String())
	}
	return json.Marshal(float64(r))
}

// IndicatorRow is a cleaned station extended with its fill rate.
type IndicatorRow struct {
	Station
	FillRate Ratio `json:"fill_rate"`
}

// IndicatorTable is the cleaned table with the derived fill_rate column.
type IndicatorTable struct {
	Columns []string
	Rows    []IndicatorRow
}

// Len returns the number of rows.
func (t IndicatorTable) Len() int { return len(t.Rows) }

// ArrondissementAggregate maps a district name to its mean number of available bikes.
type ArrondissementAggregate map[string]float64

// DistrictMean is one entry of an ArrondissementAggregate.
type DistrictMean struct {
	District           string  `json:"district"`
	MeanBikesAvailable float64 `json:"mean_bikes_available"`
}

// Districts returns the district names in lexical order.
func (a ArrondissementAggregate) Districts() []string {
	names := make([]string, 0, len(a))
	for d := range a {
		names = append(names, d)
	}
	sort.Strings(names)
	return names
}

// Entries returns the aggregate as a list ordered by district name.
func (a ArrondissementAggregate) Entries() []DistrictMean {
	out := make([]DistrictMean, 0, len(a))
	for _, d := range a.Districts() {
		out = append(out, DistrictMean{District: d, MeanBikesAvailable: a[d]})
	}
	return out
}

// Result is everything one pipeline run derives from a batch.
type Result struct {
	Cleaned    CleanedStationTable
	Indicators IndicatorTable
	Districts  ArrondissementAggregate
}
