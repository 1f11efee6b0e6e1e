package snapshot

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ormasoftchile/paramsnap/pkg/metrics"
	"github.com/ormasoftchile/paramsnap/pkg/storage"
	"github.com/ormasoftchile/paramsnap/pkg/trace"
)

// countingStore records every call and can be made to fail.
type countingStore struct {
	storage.Store
	reads, writes int
	fail          error
}

func (s *countingStore) Read(ctx context.Context, key string) ([]byte, error) {
	s.reads++
	return s.Store.Read(ctx, key)
}

func (s *countingStore) Write(ctx context.Context, key string, data []byte) error {
	s.writes++
	if s.fail != nil {
		return s.fail
	}
	return s.Store.Write(ctx, key, data)
}

func newStore() *countingStore {
	return &countingStore{Store: storage.NewFilesystemStore(memfs.New())}
}

func TestWriterStoreAndLoad(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	w := NewWriter(store)

	points := []Point3{{X: 1, Y: 2, Z: 3}}
	if err := w.Store(ctx, true, "snap.json", []int{2, 1}, []int{4, 5, 6}, 1, points); err != nil {
		t.Fatalf("Store: %v", err)
	}
	got, warnings, err := Load(ctx, store, "snap.json", nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}
	want := &Snapshot{BankSizes: []int{2, 1}, SliderValues: []int{4, 5, 6}, PointCount: 1, Points: points}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip (-want +got):\n%s", diff)
	}
}

func TestWriterStoreFalseDoesNoIO(t *testing.T) {
	store := newStore()
	if err := NewWriter(store).Store(context.Background(), false, "snap.json", []int{1}, []int{1}, 0, nil); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if store.reads != 0 || store.writes != 0 {
		t.Errorf("I/O with store=false: %d reads, %d writes", store.reads, store.writes)
	}
}

func TestWriterOverwrites(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	w := NewWriter(store)
	if err := w.Save(ctx, "s.json", &Snapshot{BankSizes: []int{5}, SliderValues: []int{1, 2, 3, 4, 5}}); err != nil {
		t.Fatal(err)
	}
	if err := w.Save(ctx, "s.json", &Snapshot{BankSizes: []int{1}, SliderValues: []int{9}}); err != nil {
		t.Fatal(err)
	}
	got, _, err := Load(ctx, store, "s.json", nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff([]int{9}, got.SliderValues); diff != "" {
		t.Errorf("SliderValues (-want +got):\n%s", diff)
	}
}

func TestWriterWriteError(t *testing.T) {
	store := newStore()
	store.fail = errors.New("disk full")
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	var buf bytes.Buffer
	w := NewWriter(store, WithWriterMetrics(m), WithWriterTrace(trace.NewWriter(&buf)))

	err := w.Save(context.Background(), "s.json", &Snapshot{})
	var we *WriteError
	if !errors.As(err, &we) {
		t.Fatalf("err = %v, want *WriteError", err)
	}
	if we.Path != "s.json" || !errors.Is(err, store.fail) {
		t.Errorf("WriteError = %+v", we)
	}
	if got := testutil.ToFloat64(m.Stores.WithLabelValues("error")); got != 1 {
		t.Errorf("failed stores = %v, want 1", got)
	}
	if !strings.Contains(buf.String(), string(trace.EventStoreFailed)) {
		t.Errorf("trace = %q, want store_failed", buf.String())
	}
}

func TestLoadErrors(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	_ = store.Write(ctx, "bad.json", []byte(`not json`))
	_ = store.Write(ctx, "malformed.json", []byte(`{"NumSliders":[1],"SliderVals":[],"NumPoints":0,"Points":[]}`))

	tests := []struct {
		path   string
		target error
	}{
		{"missing.json", ErrNotFound},
		{"bad.json", nil},
		{"malformed.json", ErrMalformedSnapshot},
	}
	for _, tt := range tests {
		s, _, err := Load(ctx, store, tt.path, nil)
		var le *LoadError
		if !errors.As(err, &le) {
			t.Errorf("%s: err = %v, want *LoadError", tt.path, err)
			continue
		}
		if s != nil {
			t.Errorf("%s: snapshot returned with error", tt.path)
		}
		if tt.target != nil && !errors.Is(err, tt.target) {
			t.Errorf("%s: err = %v, want %v", tt.path, err, tt.target)
		}
	}
}

func TestLoadRulesProduceWarnings(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	if err := NewWriter(store).Save(ctx, "s.json", &Snapshot{BankSizes: []int{1}, SliderValues: []int{80}}); err != nil {
		t.Fatal(err)
	}
	rules := []Rule{{Name: "small", Expr: "all(SliderVals, # < 50)", Severity: SeverityWarning}}
	s, warnings, err := Load(ctx, store, "s.json", rules)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s == nil || len(warnings) != 1 || warnings[0].Path != "rules.small" {
		t.Errorf("warnings = %v, want rules.small", warnings)
	}
}
