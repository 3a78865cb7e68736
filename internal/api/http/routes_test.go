package httpapi

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/i474232898/velib-indicators/internal/store"
	"github.com/i474232898/velib-indicators/internal/velib"
)

func newTestApp(t *testing.T, batch *velib.Batch) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	memStore := store.NewMemoryStore()
	if batch != nil {
		memStore.SaveBatch(*batch)
	}
	RegisterRoutes(app, memStore)
	return app
}

func sampleBatch() *velib.Batch {
	due := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	row := func(code, district string, bikes, capacity int) velib.IndicatorRow {
		return velib.IndicatorRow{
			Station: velib.Station{
				Code: code, District: district, DueDate: due,
				BikesAvailable: bikes, DocksAvailable: capacity - bikes, Capacity: capacity,
			},
			FillRate: velib.Ratio(float64(bikes) / float64(capacity)),
		}
	}

	rows := []velib.IndicatorRow{
		row("16107", "Paris", 4, 10),
		row("6015", "Paris", 2, 10),
		row("21010", "Boulogne-Billancourt", 0, 0),
		row("6015", "Paris", 6, 10),
	}
	return &velib.Batch{
		ID:          uuid.New(),
		Source:      "test",
		ProcessedAt: due,
		RawRecords:  5,
		Result: velib.Result{
			Cleaned:    velib.CleanedStationTable{Rows: make([]velib.Station, len(rows))},
			Indicators: velib.IndicatorTable{Rows: rows},
			Districts:  velib.ArrondissementAggregate{"Paris": 4, "Boulogne-Billancourt": 0},
		},
	}
}

func doGet(t *testing.T, app *fiber.App, target string, out any) int {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", target, err)
		}
	}
	return resp.StatusCode
}

// TestNoBatchYet verifies every read endpoint answers 404 before the first batch is processed.
func TestNoBatchYet(t *testing.T) {
	app := newTestApp(t, nil)

	for _, target := range []string{
		"/api/v1/batch",
		"/api/v1/stations",
		"/api/v1/stations/16107",
		"/api/v1/districts",
		"/api/v1/districts/Paris",
	} {
		if code := doGet(t, app, target, nil); code != http.StatusNotFound {
			t.Fatalf("%s: expected status %d, got %d", target, http.StatusNotFound, code)
		}
	}
}

func TestErrorBody(t *testing.T) {
	app := newTestApp(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/batch", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Error   bool   `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if !body.Error || body.Message != "no station batch processed yet" {
		t.Fatalf("unexpected error body: %+v", body)
	}
}

func TestBatchSummary(t *testing.T) {
	batch := sampleBatch()
	app := newTestApp(t, batch)

	var body map[string]any
	if code := doGet(t, app, "/api/v1/batch", &body); code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, code)
	}

	if body["id"] != batch.ID.String() {
		t.Fatalf("expected id %s, got %v", batch.ID, body["id"])
	}
	if body["stations"] != 4.0 || body["dropped_rows"] != 1.0 || body["districts"] != 2.0 {
		t.Fatalf("unexpected counts: %v", body)
	}
	if body["undefined_fill_rates"] != 1.0 {
		t.Fatalf("expected 1 undefined fill rate, got %v", body["undefined_fill_rates"])
	}
}

func TestStationsListing(t *testing.T) {
	app := newTestApp(t, sampleBatch())

	var body struct {
		Count    int `json:"count"`
		Stations []struct {
			Code     string `json:"stationcode"`
			District string `json:"district"`
			FillRate any    `json:"fill_rate"`
		} `json:"stations"`
	}

	if code := doGet(t, app, "/api/v1/stations", &body); code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, code)
	}
	if body.Count != 4 {
		t.Fatalf("expected 4 stations, got %d", body.Count)
	}
	if body.Stations[2].FillRate != "NaN" {
		t.Fatalf("expected zero-capacity fill rate to be NaN, got %v", body.Stations[2].FillRate)
	}
	if body.Stations[0].FillRate != 0.4 {
		t.Fatalf("expected fill rate 0.4, got %v", body.Stations[0].FillRate)
	}

	if code := doGet(t, app, "/api/v1/stations?district=Paris&limit=2", &body); code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, code)
	}
	if body.Count != 2 || body.Stations[1].Code != "6015" {
		t.Fatalf("unexpected filtered stations: %+v", body)
	}
}

// TestStationsLimitValidation verifies the stations endpoint enforces the 1-5000 range for `limit`.
func TestStationsLimitValidation(t *testing.T) {
	app := newTestApp(t, sampleBatch())

	for _, limit := range []string{"0", "-1", "5001", "ten"} {
		if code := doGet(t, app, "/api/v1/stations?limit="+limit, nil); code != http.StatusBadRequest {
			t.Fatalf("limit=%s: expected status %d, got %d", limit, http.StatusBadRequest, code)
		}
	}
}

func TestStationByCode(t *testing.T) {
	app := newTestApp(t, sampleBatch())

	var body struct {
		Stations []velib.Station `json:"stations"`
	}
	if code := doGet(t, app, "/api/v1/stations/6015", &body); code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, code)
	}
	if len(body.Stations) != 2 {
		t.Fatalf("expected both rows for duplicated code, got %d", len(body.Stations))
	}

	if code := doGet(t, app, "/api/v1/stations/99999", nil); code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, code)
	}
}

func TestDistricts(t *testing.T) {
	app := newTestApp(t, sampleBatch())

	var list struct {
		Districts []velib.DistrictMean `json:"districts"`
	}
	if code := doGet(t, app, "/api/v1/districts", &list); code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, code)
	}
	if len(list.Districts) != 2 || list.Districts[0].District != "Boulogne-Billancourt" {
		t.Fatalf("unexpected districts: %+v", list.Districts)
	}

	var one velib.DistrictMean
	if code := doGet(t, app, "/api/v1/districts/Paris", &one); code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, code)
	}
	if math.Abs(one.MeanBikesAvailable-4) > 1e-9 {
		t.Fatalf("expected mean 4, got %v", one.MeanBikesAvailable)
	}

	if code := doGet(t, app, "/api/v1/districts/paris", nil); code != http.StatusNotFound {
		t.Fatalf("district lookup must be exact: expected status %d, got %d", http.StatusNotFound, code)
	}
}
