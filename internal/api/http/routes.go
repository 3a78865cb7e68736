package httpapi

import (
	"errors"
	"net/url"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/velib-indicators/internal/store"
	"github.com/i474232898/velib-indicators/internal/velib"
)

var validate = validator.New()

// BatchReader exposes the latest processed batch.
type BatchReader interface {
	Latest() (velib.Batch, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, batches BatchReader) {
	v1 := app.Group("/api/v1")

	v1.Get("/batch", func(c *fiber.Ctx) error {
		batch, err := latest(batches)
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"id":                   batch.ID,
			"source":               batch.Source,
			"processed_at":         batch.ProcessedAt,
			"raw_records":          batch.RawRecords,
			"stations":             batch.Indicators.Len(),
			"dropped_rows":         batch.DroppedRows(),
			"districts":            len(batch.Districts),
			"undefined_fill_rates": batch.Indicators.UndefinedRates(),
		})
	})

	v1.Get("/stations", func(c *fiber.Ctx) error {
		var req stationsQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		batch, err := latest(batches)
		if err != nil {
			return err
		}

		rows := make([]velib.IndicatorRow, 0, batch.Indicators.Len())
		for _, r := range batch.Indicators.Rows {
			if req.District != "" && r.District != req.District {
				continue
			}
			rows = append(rows, r)
			if req.Limit > 0 && len(rows) == req.Limit {
				break
			}
		}

		return c.JSON(fiber.Map{
			"batch_id": batch.ID,
			"count":    len(rows),
			"stations": rows,
		})
	})

	v1.Get("/stations/:code", func(c *fiber.Ctx) error {
		code, err := url.PathUnescape(c.Params("code"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid station code")
		}

		batch, err := latest(batches)
		if err != nil {
			return err
		}

		// Codes are not deduplicated upstream, so a code may match several rows.
		var rows []velib.IndicatorRow
		for _, r := range batch.Indicators.Rows {
			if r.Code == code {
				rows = append(rows, r)
			}
		}
		if len(rows) == 0 {
			return fiber.NewError(fiber.StatusNotFound, "no station with code "+code+" in latest batch")
		}

		return c.JSON(fiber.Map{
			"batch_id": batch.ID,
			"stations": rows,
		})
	})

	v1.Get("/districts", func(c *fiber.Ctx) error {
		batch, err := latest(batches)
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"batch_id":  batch.ID,
			"districts": batch.Districts.Entries(),
		})
	})

	v1.Get("/districts/:name", func(c *fiber.Ctx) error {
		name, err := url.PathUnescape(c.Params("name"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid district name")
		}

		batch, err := latest(batches)
		if err != nil {
			return err
		}

		mean, ok := batch.Districts[name]
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "no district "+name+" in latest batch")
		}

		return c.JSON(velib.DistrictMean{District: name, MeanBikesAvailable: mean})
	})
}

// ErrorHandler renders every handler error as a JSON body.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

func latest(batches BatchReader) (velib.Batch, error) {
	batch, err := batches.Latest()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return velib.Batch{}, fiber.NewError(fiber.StatusNotFound, "no station batch processed yet")
		}
		return velib.Batch{}, fiber.NewError(fiber.StatusInternalServerError, "failed to read latest batch")
	}
	return batch, nil
}

// stationsQuery holds query parameters for the stations listing.
type stationsQuery struct {
	District string
	Limit    int `validate:"omitempty,gte=1,lte=5000"`
}

func (q *stationsQuery) bind(c *fiber.Ctx) error {
	q.District = c.Query("district")

	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return errors.New("limit must be an integer")
		}
		if n == 0 {
			return errors.New("limit must be between 1 and 5000")
		}
		q.Limit = n
	}
	return nil
}
