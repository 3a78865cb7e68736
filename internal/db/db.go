package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/i474232898/velib-indicators/internal/velib"
)

// pool is the subset of *pgxpool.Pool the sink relies on.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Sink upserts the latest state of every station and district into Postgres.
type Sink struct {
	pool  pool
	close func()
}

var _ velib.Sink = (*Sink)(nil)

// New opens a pgx pool for databaseURL.
func New(ctx context.Context, databaseURL string) (*Sink, error) {
	p, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return &Sink{pool: p, close: p.Close}, nil
}

// Close releases the pool resources.
func (s *Sink) Close() {
	if s.close != nil {
		s.close()
	}
}

// Name returns the sink identifier.
func (s *Sink) Name() string { return "postgres" }

const schemaSQL = `
CREATE SCHEMA IF NOT EXISTS velib;
CREATE TABLE IF NOT EXISTS velib.station_status (
    stationcode        TEXT PRIMARY KEY,
    name               TEXT,
    district           TEXT NOT NULL,
    duedate            TIMESTAMPTZ NOT NULL,
    numbikesavailable  INTEGER NOT NULL,
    numdocksavailable  INTEGER NOT NULL,
    capacity           INTEGER NOT NULL,
    fill_rate          DOUBLE PRECISION,
    batch_id           TEXT NOT NULL,
    updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS velib.district_availability (
    district              TEXT PRIMARY KEY,
    mean_bikes_available  DOUBLE PRECISION NOT NULL,
    batch_id              TEXT NOT NULL,
    updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// EnsureSchema creates the tables the sink writes to.
func (s *Sink) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const upsertStationSQL = `INSERT INTO velib.station_status (stationcode, name, district, duedate, numbikesavailable, numdocksavailable, capacity, fill_rate, batch_id, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW())
ON CONFLICT (stationcode) DO UPDATE
SET name = EXCLUDED.name,
    district = EXCLUDED.district,
    duedate = EXCLUDED.duedate,
    numbikesavailable = EXCLUDED.numbikesavailable,
    numdocksavailable = EXCLUDED.numdocksavailable,
    capacity = EXCLUDED.capacity,
    fill_rate = EXCLUDED.fill_rate,
    batch_id = EXCLUDED.batch_id,
    updated_at = NOW()`

const upsertDistrictSQL = `INSERT INTO velib.district_availability (district, mean_bikes_available, batch_id, updated_at)
VALUES ($1,$2,$3,NOW())
ON CONFLICT (district) DO UPDATE
SET mean_bikes_available = EXCLUDED.mean_bikes_available,
    batch_id = EXCLUDED.batch_id,
    updated_at = NOW()`

// Write upserts the batch's stations and district means in a single round trip.
// Stations sharing a code are queued in order, so the last row wins.
func (s *Sink) Write(ctx context.Context, batch velib.Batch) error {
	b := buildBatch(batch)
	if b.Len() == 0 {
		return nil
	}

	res := s.pool.SendBatch(ctx, b)
	defer res.Close()

	for i := 0; i < b.Len(); i++ {
		if _, err := res.Exec(); err != nil {
			return fmt.Errorf("upsert batch %s (statement %d): %w", batch.ID, i, err)
		}
	}
	return nil
}

func buildBatch(batch velib.Batch) *pgx.Batch {
	b := &pgx.Batch{}
	id := batch.ID.String()

	for _, r := range batch.Indicators.Rows {
		b.Queue(upsertStationSQL,
			r.Code, r.Name, r.District, r.DueDate,
			r.BikesAvailable, r.DocksAvailable, r.Capacity,
			float64(r.FillRate), id,
		)
	}
	for _, d := range batch.Districts.Entries() {
		b.Queue(upsertDistrictSQL, d.District, d.MeanBikesAvailable, id)
	}
	return b
}
