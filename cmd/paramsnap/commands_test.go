package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ormasoftchile/paramsnap/pkg/canvas"
	"github.com/ormasoftchile/paramsnap/pkg/config"
	"github.com/ormasoftchile/paramsnap/pkg/host"
	"github.com/ormasoftchile/paramsnap/pkg/metrics"
	"github.com/ormasoftchile/paramsnap/pkg/snapshot"
	"github.com/ormasoftchile/paramsnap/pkg/storage"
	"github.com/ormasoftchile/paramsnap/pkg/trace"
)

func TestParseInts(t *testing.T) {
	got, err := parseInts(" 3, 2,0")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{3, 2, 0}, got); diff != "" {
		t.Errorf("parseInts (-want +got):\n%s", diff)
	}
	if got, _ := parseInts(""); got == nil || len(got) != 0 {
		t.Errorf("parseInts(\"\") = %#v, want empty", got)
	}
	if _, err := parseInts("1,x"); err == nil {
		t.Error("want error for non-integer")
	}
}

func TestParsePoints(t *testing.T) {
	got, err := parsePoints("0,0,0; 1.5,-2,3")
	if err != nil {
		t.Fatal(err)
	}
	want := []snapshot.Point3{{}, {X: 1.5, Y: -2, Z: 3}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parsePoints (-want +got):\n%s", diff)
	}
	if _, err := parsePoints("1,2"); err == nil {
		t.Error("want error for 2-component point")
	}
}

func TestParseAnchor(t *testing.T) {
	got, err := parseAnchor("10, -4.5")
	if err != nil {
		t.Fatal(err)
	}
	if want := (host.Position{X: 10, Y: -4.5}); got != want {
		t.Errorf("parseAnchor = %v, want %v", got, want)
	}
	if got, _ := parseAnchor(""); got != (host.Position{}) {
		t.Errorf("parseAnchor(\"\") = %v, want origin", got)
	}
	if _, err := parseAnchor("1"); err == nil {
		t.Error("want error for single coordinate")
	}
}

func testApp(t *testing.T) {
	t.Helper()
	reg := prometheus.NewRegistry()
	rt = &app{
		cfg:     config.Default(),
		log:     zerolog.Nop(),
		trace:   trace.Nop(),
		reg:     reg,
		metrics: metrics.New(reg),
	}
	t.Cleanup(func() { rt = nil })
}

func testCmd() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	return cmd
}

func TestStoreRestoreCaptureCycle(t *testing.T) {
	testApp(t)
	dir := t.TempDir()
	snap := filepath.Join(dir, "snap.json")
	doc := filepath.Join(dir, "canvas.yaml")
	out := filepath.Join(dir, "captured.json")

	storeEnabled, storeBanks, storeValues, storePoints = true, "2,1", "5,-5,9", "1,2,3"
	if err := runStore(testCmd(), []string{snap}); err != nil {
		t.Fatalf("store: %v", err)
	}

	if err := os.WriteFile(doc, []byte("nodes:\n  - name: Mesh\n    kind: component\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	restoreCanvas, restorePrefix, restoreAnchor, restoreOut = doc, "Ctl", "0,0", ""
	if err := runRestore(testCmd(), []string{snap}); err != nil {
		t.Fatalf("restore: %v", err)
	}

	c, err := canvas.Load(context.Background(), storage.NewOSStore(), doc)
	if err != nil {
		t.Fatalf("reload canvas: %v", err)
	}
	if len(c.FindByName("Ctlslids1")) != 1 || len(c.FindByName("Mesh")) != 1 {
		t.Errorf("restored canvas missing nodes: %+v", c.Nodes())
	}

	captureCanvas, capturePrefix = doc, "Ctl"
	if err := runCapture(testCmd(), []string{out}); err != nil {
		t.Fatalf("capture: %v", err)
	}
	got, _, err := snapshot.Load(context.Background(), storage.NewOSStore(), out, nil)
	if err != nil {
		t.Fatalf("load captured: %v", err)
	}
	want := &snapshot.Snapshot{
		BankSizes:    []int{2, 1},
		SliderValues: []int{5, -5, 9},
		PointCount:   1,
		Points:       []snapshot.Point3{{X: 1, Y: 2, Z: 3}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("captured snapshot (-want +got):\n%s", diff)
	}
}

func TestStoreNumPoints(t *testing.T) {
	testApp(t)
	dir := t.TempDir()
	storeEnabled, storeBanks, storeValues, storePoints = true, "1", "4", "1,2,3;4,5,6"
	t.Cleanup(func() { storeNumPoints = -1 })

	tests := []struct {
		flag int
		want int
	}{
		{-1, 2},
		{0, 0},
		{7, 7},
	}
	for _, tt := range tests {
		path := filepath.Join(dir, fmt.Sprintf("snap%d.json", tt.flag))
		storeNumPoints = tt.flag
		if err := runStore(testCmd(), []string{path}); err != nil {
			t.Fatalf("store --num-points=%d: %v", tt.flag, err)
		}
		got, _, err := snapshot.Load(context.Background(), storage.NewOSStore(), path, nil)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if got.PointCount != tt.want || len(got.Points) != 2 {
			t.Errorf("--num-points=%d: NumPoints = %d, points = %d; want %d, 2", tt.flag, got.PointCount, len(got.Points), tt.want)
		}
	}
}

func TestStoreDisabledWritesNothing(t *testing.T) {
	testApp(t)
	path := filepath.Join(t.TempDir(), "snap.json")
	storeEnabled, storeBanks, storeValues, storePoints = false, "1", "1", ""
	t.Cleanup(func() { storeEnabled = true })
	if err := runStore(testCmd(), []string{path}); err != nil {
		t.Fatalf("store: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("snapshot written with --store=false (stat err %v)", err)
	}
}

func TestRestoreMissingSnapshotLeavesCanvas(t *testing.T) {
	testApp(t)
	dir := t.TempDir()
	doc := filepath.Join(dir, "canvas.yaml")
	orig := []byte("nodes:\n  - name: Ctlslids0\n    kind: control\n")
	if err := os.WriteFile(doc, orig, 0o644); err != nil {
		t.Fatal(err)
	}
	restoreCanvas, restorePrefix, restoreAnchor, restoreOut = doc, "Ctl", "", ""
	if err := runRestore(testCmd(), []string{filepath.Join(dir, "missing.json")}); err == nil {
		t.Fatal("want error for missing snapshot")
	}
	data, _ := os.ReadFile(doc)
	if string(data) != string(orig) {
		t.Errorf("canvas rewritten after load failure:\n%s", data)
	}
}
