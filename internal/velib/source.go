package velib

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Source abstracts the station feed (e.g. the Paris open-data API or a local dump).
// A failed fetch returns a nil slice and an error.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]RawStationRecord, error)
}

// Batch is one processed pipeline run together with its identity.
type Batch struct {
	ID          uuid.UUID `json:"id"`
	Source      string    `json:"source"`
	ProcessedAt time.Time `json:"processed_at"` // always UTC
	RawRecords  int       `json:"raw_records"`

	Result `json:"-"`
}

// DroppedRows is the number of raw records removed by the cleaner.
func (b Batch) DroppedRows() int {
	return b.RawRecords - b.Cleaned.Len()
}

// Store is the contract the in-memory store must satisfy. Only the latest batch is kept.
type Store interface {
	SaveBatch(batch Batch)
	Latest() (Batch, error)
}

// Sink receives every successfully processed batch (database, spreadsheet export).
type Sink interface {
	Name() string
	Write(ctx context.Context, batch Batch) error
}
