package restore

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ormasoftchile/paramsnap/pkg/host"
)

func TestDiscover(t *testing.T) {
	f := newFixture(t)
	d, err := Discover(context.Background(), f.c, "Ctl")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	wantDel := ids([]host.NodeRef{f.bank0, f.bank1, f.points, f.values[0], f.values[1], f.values[2]})
	if diff := cmp.Diff(wantDel, ids(d.Deletions), cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
		t.Errorf("Deletions mismatch (-want +got):\n%s", diff)
	}

	if got := ids(d.Recipients(BankRole(0))); !cmp.Equal(got, []string{f.mesh.ID}) {
		t.Errorf("bank 0 recipients = %v, want [mesh]", got)
	}
	if got := ids(d.Recipients(BankRole(1))); !cmp.Equal(got, []string{f.loft.ID}) {
		t.Errorf("bank 1 recipients = %v, want [loft]", got)
	}
	if got := ids(d.Recipients(PointsRole())); !cmp.Equal(got, []string{f.mesh.ID}) {
		t.Errorf("points recipients = %v, want [mesh]", got)
	}
	if len(d.Orphans) != 0 {
		t.Errorf("Orphans = %v, want none", d.Orphans)
	}
}

func TestDiscoverLeavesGraphUntouched(t *testing.T) {
	f := newFixture(t)
	before := f.c.Document()
	if _, err := Discover(context.Background(), f.c, "Ctl"); err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if diff := cmp.Diff(before, f.c.Document()); diff != "" {
		t.Errorf("graph changed (-before +after):\n%s", diff)
	}
}

func TestDiscoverOrphansAndKept(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	stray, _ := f.c.CreateControlNode(ctx, "Ctlextra")
	sink := f.c.AddComponent("Sink")
	_ = f.c.Connect(ctx, stray, sink)
	feeder := f.c.AddComponent("Feeder")
	_ = f.c.Connect(ctx, feeder, f.bank0)

	d, err := Discover(ctx, f.c, "Ctl")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if got := ids(d.Orphans); !cmp.Equal(got, []string{sink.ID}) {
		t.Errorf("Orphans = %v, want [sink]", got)
	}
	if got := ids(d.Kept); !cmp.Equal(got, []string{feeder.ID}) {
		t.Errorf("Kept = %v, want [feeder]", got)
	}
	for _, n := range d.Deletions {
		if n.ID == feeder.ID {
			t.Errorf("non-value source %s scheduled for deletion", n)
		}
	}
}

func TestDiscoverEmptyPrefix(t *testing.T) {
	f := newFixture(t)
	if _, err := Discover(context.Background(), f.c, ""); !errors.Is(err, ErrEmptyPrefix) {
		t.Errorf("err = %v, want ErrEmptyPrefix", err)
	}
}
