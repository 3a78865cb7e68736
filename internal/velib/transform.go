package velib

import (
	"fmt"
	"sort"
)

// Transform reshapes raw station records into a StationTable.
// A nil slice means the source failed and yields ErrInputUnavailable; an empty slice is a valid empty batch.
func Transform(records []RawStationRecord) (StationTable, error) {
	if records == nil {
		return StationTable{}, fmt.Errorf("transform: %w", ErrInputUnavailable)
	}

	seen := make(map[string]bool)
	columns := make([]string, 0)
	rows := make([]RawStationRecord, 0, len(records))

	for _, rec := range records {
		// Keys of a single record are visited in sorted order so the column order is stable.
		keys := make([]string, 0, len(rec))
		for k := range rec {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		row := make(RawStationRecord, len(rec))
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
			row[k] = rec[k]
		}
		rows = append(rows, row)
	}

	return StationTable{Columns: columns, Rows: rows}, nil
}
