package velib

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// dueDateLayouts are tried in order when parsing a station's last-update timestamp.
// Layouts without a zone are read as UTC.
var dueDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Clean drops every row with a missing value and coerces the surviving rows to typed stations.
// Any coercion failure aborts the whole batch.
func Clean(table StationTable, fields FieldMap) (CleanedStationTable, error) {
	required := fields.Required()

	// A required field no record carries still drops every row.
	check := append([]string(nil), table.Columns...)
	inTable := make(map[string]bool, len(table.Columns))
	for _, c := range table.Columns {
		inTable[c] = true
	}
	for _, name := range required {
		if !inTable[name] {
			check = append(check, name)
		}
	}

	modelled := make(map[string]bool, len(required))
	for _, name := range required {
		modelled[name] = true
	}
	columns := make([]string, 0, len(required))
	for _, c := range table.Columns {
		if modelled[c] {
			columns = append(columns, c)
		}
	}

	rows := make([]Station, 0, len(table.Rows))
	for i, rec := range table.Rows {
		if hasMissing(rec, check) {
			continue
		}
		st, err := coerceRow(i, rec, fields)
		if err != nil {
			return CleanedStationTable{}, fmt.Errorf("clean: %w", err)
		}
		rows = append(rows, st)
	}

	return CleanedStationTable{Columns: columns, Fields: fields, Rows: rows}, nil
}

func hasMissing(rec RawStationRecord, columns []string) bool {
	for _, c := range columns {
		v, ok := rec[c]
		if !ok || isMissing(v) {
			return true
		}
	}
	return false
}

func isMissing(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(val)
	case float32:
		return math.IsNaN(float64(val))
	}
	return false
}

func coerceRow(row int, rec RawStationRecord, fields FieldMap) (Station, error) {
	var (
		st  Station
		err error
	)

	st.Code = textValue(rec[fields.Code])
	st.District = textValue(rec[fields.District])
	if fields.Name != "" {
		st.Name = textValue(rec[fields.Name])
	}

	if st.DueDate, err = parseDueDate(rec[fields.DueDate]); err != nil {
		return Station{}, &CoercionError{Row: row, Column: fields.DueDate, Value: rec[fields.DueDate], Err: ErrMalformedTimestamp}
	}

	counts := []struct {
		column string
		dst    *int
	}{
		{fields.BikesAvailable, &st.BikesAvailable},
		{fields.DocksAvailable, &st.DocksAvailable},
		// Capacity is the fill rate divisor, so it must be an integer count as well.
		{fields.Capacity, &st.Capacity},
	}
	for _, c := range counts {
		n, ok := intValue(rec[c.column])
		if !ok {
			return Station{}, &CoercionError{Row: row, Column: c.column, Value: rec[c.column], Err: ErrMalformedCount}
		}
		*c.dst = n
	}

	return st, nil
}

func parseDueDate(v any) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("unsupported type %T", v)
	}
	s = strings.TrimSpace(s)
	for _, layout := range dueDateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// intValue converts integers, integral floats, json.Number and numeric strings.
func intValue(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int32:
		return int(val), true
	case int64:
		return fromInt64(val)
	case float64:
		return integral(val)
	case float32:
		return integral(float64(val))
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return fromInt64(n)
		}
		if f, err := val.Float64(); err == nil {
			return integral(f)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return n, true
		}
	}
	return 0, false
}

// integral rejects fractions and values int cannot hold.
func integral(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < float64(math.MinInt) || f >= float64(math.MaxInt) {
		return 0, false
	}
	return int(f), true
}

func fromInt64(n int64) (int, bool) {
	if n < math.MinInt || n > math.MaxInt {
		return 0, false
	}
	return int(n), true
}

// textValue renders identifiers and names; integral numbers print without a fraction.
func textValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		if n, ok := integral(val); ok {
			return strconv.Itoa(n)
		}
	}
	return fmt.Sprint(v)
}
