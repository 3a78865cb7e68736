package velib

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/velib-indicators/internal/metrics"
)

// Service orchestrates fetching a batch, running the pipeline and publishing the result.
type Service struct {
	store    Store
	source   Source
	pipeline *Pipeline
	sinks    []Sink
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewService creates a new Service.
func NewService(store Store, source Source, pipeline *Pipeline, sinks []Sink) *Service {
	if pipeline == nil {
		pipeline = NewPipeline()
	}
	return &Service{
		store:    store,
		source:   source,
		pipeline: pipeline,
		sinks:    sinks,
		now:      time.Now,
	}
}

// WithMetrics attaches prometheus collectors to the service.
func (s *Service) WithMetrics(m *metrics.Metrics) *Service {
	s.metrics = m
	return s
}

// RunBatch fetches one batch from the source, processes it and stores the result.
// A failed fetch is reported as ErrInputUnavailable and leaves the last good batch in place.
func (s *Service) RunBatch(ctx context.Context) (Batch, error) {
	start := time.Now()

	if s.source == nil {
		s.metrics.ObserveFailure(time.Since(start))
		return Batch{}, fmt.Errorf("no station source configured: %w", ErrInputUnavailable)
	}
	log.Printf("DEBUG: RunBatch called for source %s", s.source.Name())

	records, fetchErr := s.source.Fetch(ctx)
	if fetchErr != nil {
		log.Printf("ERROR: source %s fetch failed: %v", s.source.Name(), fetchErr)
		records = nil
	}

	result, err := s.pipeline.Run(records)
	if err != nil {
		s.metrics.ObserveFailure(time.Since(start))
		if fetchErr != nil {
			return Batch{}, fmt.Errorf("%w: %w", err, fetchErr)
		}
		return Batch{}, err
	}

	batch := Batch{
		ID:          uuid.New(),
		Source:      s.source.Name(),
		ProcessedAt: s.now().UTC(),
		RawRecords:  len(records),
		Result:      result,
	}
	s.store.SaveBatch(batch)

	s.metrics.ObserveSuccess(time.Since(start), metrics.BatchSummary{
		RawRecords:     batch.RawRecords,
		Stations:       batch.Cleaned.Len(),
		Districts:      len(batch.Districts),
		UndefinedRates: batch.Indicators.UndefinedRates(),
	})
	log.Printf("INFO: batch %s processed: %d raw records, %d stations, %d districts",
		batch.ID, batch.RawRecords, batch.Cleaned.Len(), len(batch.Districts))

	if err := s.publish(ctx, batch); err != nil {
		return batch, err
	}
	return batch, nil
}

// publish writes the batch to every sink concurrently.
func (s *Service) publish(ctx context.Context, batch Batch) error {
	if len(s.sinks) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, sink := range s.sinks {
		g.Go(func() error {
			if err := sink.Write(gctx, batch); err != nil {
				log.Printf("ERROR: sink %s failed for batch %s: %v", sink.Name(), batch.ID, err)
				return fmt.Errorf("sink %s: %w", sink.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Latest delegates to the underlying store.
func (s *Service) Latest() (Batch, error) {
	return s.store.Latest()
}
