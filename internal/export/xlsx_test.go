package export

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/i474232898/velib-indicators/internal/velib"
)

func testBatch() velib.Batch {
	due := time.Date(2025, 1, 1, 8, 15, 0, 0, time.UTC)
	return velib.Batch{
		Result: velib.Result{
			Indicators: velib.IndicatorTable{Rows: []velib.IndicatorRow{
				{Station: velib.Station{Code: "16107", Name: "Godard", District: "Paris", DueDate: due, BikesAvailable: 4, DocksAvailable: 6, Capacity: 10}, FillRate: 0.4},
				{Station: velib.Station{Code: "6015", Name: "Mazet", District: "Clichy", DueDate: due}, FillRate: velib.Ratio(math.NaN())},
			}},
			Districts: velib.ArrondissementAggregate{"Paris": 4, "Clichy": 0},
		},
	}
}

func TestXLSXSinkWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "indicators.xlsx")
	sink := NewXLSXSink(path)
	assert.Equal(t, "xlsx", sink.Name())

	require.NoError(t, sink.Write(context.Background(), testBatch()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{StationsSheet, DistrictsSheet}, f.GetSheetList())

	rows, err := f.GetRows(StationsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"stationcode", "name", "district", "duedate", "numbikesavailable", "numdocksavailable", "capacity", "fill_rate"}, rows[0])
	assert.Equal(t, []string{"16107", "Godard", "Paris", "2025-01-01T08:15:00Z", "4", "6", "10", "0.4"}, rows[1])
	assert.Equal(t, "NaN", rows[2][7])

	districts, err := f.GetRows(DistrictsSheet)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"district", "mean_bikes_available"},
		{"Clichy", "0"},
		{"Paris", "4"},
	}, districts)

	_, err = os.Stat(filepath.Join(filepath.Dir(path), "indicators.tmp.xlsx"))
	assert.True(t, os.IsNotExist(err))
}

func TestXLSXSinkOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "indicators.xlsx")
	sink := NewXLSXSink(path)

	require.NoError(t, sink.Write(context.Background(), testBatch()))
	require.NoError(t, sink.Write(context.Background(), velib.Batch{}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(StationsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestXLSXSinkCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := filepath.Join(t.TempDir(), "indicators.xlsx")
	require.ErrorIs(t, NewXLSXSink(path).Write(ctx, testBatch()), context.Canceled)

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
