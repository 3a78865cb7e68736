package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/i474232898/velib-indicators/internal/velib"
)

const (
	StationsSheet  = "stations"
	DistrictsSheet = "districts"
)

var (
	stationHeaders  = []interface{}{"stationcode", "name", "district", "duedate", "numbikesavailable", "numdocksavailable", "capacity", velib.FillRateColumn}
	districtHeaders = []interface{}{"district", "mean_bikes_available"}
)

// XLSXSink rewrites a workbook with the indicator table and district means of each batch.
type XLSXSink struct {
	path string
}

var _ velib.Sink = (*XLSXSink)(nil)

// NewXLSXSink creates a sink writing to path. The file is replaced on every batch.
func NewXLSXSink(path string) *XLSXSink {
	return &XLSXSink{path: path}
}

// Name returns the sink identifier.
func (s *XLSXSink) Name() string { return "xlsx" }

// Write renders the batch and atomically replaces the workbook.
func (s *XLSXSink) Write(ctx context.Context, batch velib.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), StationsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(DistrictsSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	if err := writeRow(f, StationsSheet, 1, stationHeaders); err != nil {
		return err
	}
	for i, r := range batch.Indicators.Rows {
		row := []interface{}{
			r.Code,
			r.Name,
			r.District,
			r.DueDate.Format(time.RFC3339),
			r.BikesAvailable,
			r.DocksAvailable,
			r.Capacity,
			ratioCell(r.FillRate),
		}
		if err := writeRow(f, StationsSheet, i+2, row); err != nil {
			return err
		}
	}

	if err := writeRow(f, DistrictsSheet, 1, districtHeaders); err != nil {
		return err
	}
	for i, d := range batch.Districts.Entries() {
		if err := writeRow(f, DistrictsSheet, i+2, []interface{}{d.District, d.MeanBikesAvailable}); err != nil {
			return err
		}
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
	}
	tmp := strings.TrimSuffix(s.path, filepath.Ext(s.path)) + ".tmp.xlsx"
	if err := f.SaveAs(tmp); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

// ratioCell keeps undefined fill rates readable instead of writing an invalid number.
func ratioCell(r velib.Ratio) interface{} {
	if r.Defined() {
		return float64(r)
	}
	return r.String()
}
