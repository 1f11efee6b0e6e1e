package restore

import (
	"context"
	"testing"

	"github.com/ormasoftchile/paramsnap/pkg/canvas"
	"github.com/ormasoftchile/paramsnap/pkg/host"
)

// fixture builds a canvas holding one restored-looking scope:
// Ctlslids0 <- 2 values, Ctlslids1 <- 1 value, Ctlpoints, plus consumers.
type fixture struct {
	c       *canvas.Canvas
	bank0   host.NodeRef
	bank1   host.NodeRef
	points  host.NodeRef
	values  []host.NodeRef
	mesh    host.NodeRef // consumes bank0 and points
	loft    host.NodeRef // consumes bank1
	other   host.NodeRef // out-of-scope control
	otherIn host.NodeRef // value feeding other
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	c := canvas.New()
	f := &fixture{c: c}
	must := func(n host.NodeRef, err error) host.NodeRef {
		t.Helper()
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		return n
	}
	connect := func(a, b host.NodeRef) {
		t.Helper()
		if err := c.Connect(ctx, a, b); err != nil {
			t.Fatalf("connect: %v", err)
		}
	}

	f.bank0 = must(c.CreateControlNode(ctx, "Ctlslids0"))
	f.bank1 = must(c.CreateControlNode(ctx, "Ctlslids1"))
	f.points = must(c.CreatePointNode(ctx, "Ctlpoints", nil))
	for i, owner := range []host.NodeRef{f.bank0, f.bank0, f.bank1} {
		v := must(c.CreateValueNode(ctx, "", -50, 50, i+1))
		connect(v, owner)
		f.values = append(f.values, v)
	}
	f.mesh = c.AddComponent("Mesh")
	f.loft = c.AddComponent("Loft")
	connect(f.bank0, f.mesh)
	connect(f.points, f.mesh)
	connect(f.bank1, f.loft)

	f.other = must(c.CreateControlNode(ctx, "Otherslids0"))
	f.otherIn = must(c.CreateValueNode(ctx, "", 0, 100, 9))
	connect(f.otherIn, f.other)
	connect(f.other, f.loft)
	return f
}

func ids(refs []host.NodeRef) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.ID)
	}
	return out
}
