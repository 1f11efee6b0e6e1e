package snapshot

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ormasoftchile/paramsnap/pkg/metrics"
	"github.com/ormasoftchile/paramsnap/pkg/storage"
	"github.com/ormasoftchile/paramsnap/pkg/trace"
)

// Writer captures caller-supplied parameters and persists them as a snapshot.
// It has no dependency on the graph editor.
type Writer struct {
	store   storage.Store
	log     zerolog.Logger
	trace   *trace.Writer
	metrics *metrics.Metrics
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithWriterLogger sets the logger used for store events.
func WithWriterLogger(l zerolog.Logger) WriterOption {
	return func(w *Writer) { w.log = l }
}

// WithWriterTrace records store events to the given trace.
func WithWriterTrace(t *trace.Writer) WriterOption {
	return func(w *Writer) { w.trace = t }
}

// WithWriterMetrics records store outcomes.
func WithWriterMetrics(m *metrics.Metrics) WriterOption {
	return func(w *Writer) { w.metrics = m }
}

// NewWriter creates a Writer over the given store.
func NewWriter(store storage.Store, opts ...WriterOption) *Writer {
	w := &Writer{
		store: store,
		log:   zerolog.Nop(),
		trace: trace.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Store serializes the four snapshot fields to path when store is true,
// fully replacing any prior content. When store is false no I/O happens.
// Sizes and values are not cross-checked here; restore tolerates short value lists.
func (w *Writer) Store(ctx context.Context, store bool, path string, bankSizes, sliderValues []int, pointCount int, points []Point3) error {
	if !store {
		return nil
	}
	return w.Save(ctx, path, &Snapshot{
		BankSizes:    bankSizes,
		SliderValues: sliderValues,
		PointCount:   pointCount,
		Points:       points,
	})
}

// Save persists s at path, overwriting any previous document.
func (w *Writer) Save(ctx context.Context, path string, s *Snapshot) error {
	if err := w.save(ctx, path, s); err != nil {
		w.metrics.ObserveStore(false)
		w.log.Error().Err(err).Str("path", path).Msg("store snapshot failed")
		_ = w.trace.Emit(trace.EventStoreFailed, map[string]any{
			"path":  path,
			"error": err.Error(),
		})
		return err
	}
	w.metrics.ObserveStore(true)
	w.log.Info().
		Str("path", path).
		Ints("banks", s.BankSizes).
		Int("values", len(s.SliderValues)).
		Int("points", len(s.Points)).
		Msg("snapshot stored")
	_ = w.trace.Emit(trace.EventStoreWritten, map[string]any{
		"path":   path,
		"banks":  s.BankSizes,
		"values": len(s.SliderValues),
		"points": len(s.Points),
	})
	return nil
}

func (w *Writer) save(ctx context.Context, path string, s *Snapshot) error {
	if path == "" {
		return &WriteError{Path: path, Err: fmt.Errorf("empty path")}
	}
	data, err := Marshal(s)
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := w.store.Write(ctx, path, data); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}
