package velib

import (
	"log"
)

const defaultPreviewRows = 5

// Pipeline chains Transform, Clean and CalculateIndicators for one batch.
type Pipeline struct {
	fields      FieldMap
	previewRows int
	logger      *log.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithFields overrides the raw field names the typed model reads.
func WithFields(f FieldMap) Option {
	return func(p *Pipeline) { p.fields = f }
}

// WithPreviewRows sets how many rows are logged after each stage. Zero disables previews.
func WithPreviewRows(n int) Option {
	return func(p *Pipeline) { p.previewRows = n }
}

// WithLogger sets the logger previews are written to.
func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline creates a Pipeline reading the Vélib field names by default.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		fields:      DefaultFields(),
		previewRows: defaultPreviewRows,
		logger:      log.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Fields returns the field map the pipeline cleans with.
func (p *Pipeline) Fields() FieldMap { return p.fields }

// Run processes one batch. Each stage consumes the previous stage's full output;
// the first failing stage aborts the run and nothing is returned.
func (p *Pipeline) Run(records []RawStationRecord) (Result, error) {
	table, err := Transform(records)
	if err != nil {
		return Result{}, err
	}
	p.preview("transformed", table)

	cleaned, err := Clean(table, p.fields)
	if err != nil {
		return Result{}, err
	}
	p.preview("cleaned", cleaned.Table())

	indicators, districts := CalculateIndicators(cleaned)
	if p.previewRows > 0 && indicators.Len() > 0 {
		p.logger.Printf("INFO: indicators (%d rows):\n%v", indicators.Len(), indicators.Frame(p.previewRows))
	}
	if p.previewRows > 0 {
		if len(districts) == 0 {
			p.logger.Printf("INFO: mean bikes available per district: empty")
		} else {
			p.logger.Printf("INFO: mean bikes available per district (%d districts):\n%v", len(districts), districts.Frame())
		}
	}

	return Result{Cleaned: cleaned, Indicators: indicators, Districts: districts}, nil
}

func (p *Pipeline) preview(stage string, t StationTable) {
	if p.previewRows <= 0 {
		return
	}
	if t.Len() == 0 || len(t.Columns) == 0 {
		p.logger.Printf("INFO: %s: empty table", stage)
		return
	}
	p.logger.Printf("INFO: %s (%d rows, %d columns):\n%v", stage, t.Len(), len(t.Columns), t.Frame(p.previewRows))
}
