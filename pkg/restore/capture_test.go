package restore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ormasoftchile/paramsnap/pkg/canvas"
	"github.com/ormasoftchile/paramsnap/pkg/host"
	"github.com/ormasoftchile/paramsnap/pkg/snapshot"
)

func TestCaptureFixture(t *testing.T) {
	f := newFixture(t)
	got, err := Capture(context.Background(), f.c, "Ctl")
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	want := &snapshot.Snapshot{
		BankSizes:    []int{2, 1},
		SliderValues: []int{1, 2, 3},
		PointCount:   0,
		Points:       []snapshot.Point3{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Capture (-want +got):\n%s", diff)
	}
}

func TestCaptureBankGap(t *testing.T) {
	ctx := context.Background()
	c := canvas.New()
	ctl, _ := c.CreateControlNode(ctx, "Ctlslids2")
	v, _ := c.CreateValueNode(ctx, "", 0, 10, 4)
	_ = c.Connect(ctx, v, ctl)

	got, err := Capture(ctx, c, "Ctl")
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if diff := cmp.Diff([]int{0, 0, 1}, got.BankSizes); diff != "" {
		t.Errorf("BankSizes (-want +got):\n%s", diff)
	}
}

func TestCaptureRejectsSparseIndex(t *testing.T) {
	ctx := context.Background()
	c := canvas.New()
	_, _ = c.CreateControlNode(ctx, "Ctlslids5000000")

	s, err := Capture(ctx, c, "Ctl")
	if !errors.Is(err, ErrBankGap) {
		t.Fatalf("err = %v, want ErrBankGap", err)
	}
	if s != nil {
		t.Errorf("snapshot = %v, want nil", s)
	}

	// A gap of exactly MaxMissingBanks is still captured.
	c = canvas.New()
	_, _ = c.CreateControlNode(ctx, fmt.Sprintf("Ctlslids%d", MaxMissingBanks))
	s, err = Capture(ctx, c, "Ctl")
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if got := len(s.BankSizes); got != MaxMissingBanks+1 {
		t.Errorf("len(BankSizes) = %d, want %d", got, MaxMissingBanks+1)
	}
}

func TestCaptureErrors(t *testing.T) {
	ctx := context.Background()

	c := canvas.New()
	if _, err := Capture(ctx, c, "Ctl"); err == nil {
		t.Error("empty scope: want error")
	}

	_, _ = c.CreateControlNode(ctx, "Ctlslids0")
	_, _ = c.CreateControlNode(ctx, "Ctlslids0")
	if _, err := Capture(ctx, c, "Ctl"); err == nil {
		t.Error("duplicate bank: want error")
	}

	if _, err := Capture(ctx, graphOnly{c}, "Ctl"); !errors.Is(err, ErrNoInspector) {
		t.Errorf("err = %v, want ErrNoInspector", err)
	}
	if _, err := Capture(ctx, c, ""); !errors.Is(err, ErrEmptyPrefix) {
		t.Errorf("err = %v, want ErrEmptyPrefix", err)
	}
}

// graphOnly hides the canvas Inspector methods.
type graphOnly struct{ host.Graph }
