package diagram

import (
	"context"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"

	"github.com/ormasoftchile/paramsnap/pkg/canvas"
	"github.com/ormasoftchile/paramsnap/pkg/host"
	"github.com/ormasoftchile/paramsnap/pkg/snapshot"
)

func sampleCanvas(t *testing.T) *canvas.Canvas {
	t.Helper()
	ctx := context.Background()
	c := canvas.New()
	bank, _ := c.CreateControlNode(ctx, "Ctlslids0")
	pts, _ := c.CreatePointNode(ctx, "Ctlpoints", []snapshot.Point3{{X: 1}, {Y: 2}})
	for _, v := range []int{7, -3} {
		n, _ := c.CreateValueNode(ctx, "", -50, 50, v)
		if err := c.Connect(ctx, n, bank); err != nil {
			t.Fatal(err)
		}
	}
	mesh := c.AddComponent("Mesh")
	_ = c.Connect(ctx, bank, mesh)
	_ = c.Connect(ctx, pts, mesh)
	c.AddComponent("Unrelated")
	_, _ = c.CreateControlNode(ctx, "Ctlstray")
	return c
}

func TestGenerateMermaid_Scope(t *testing.T) {
	out, err := Generate(context.Background(), sampleCanvas(t), "Ctl", FormatMermaid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out, "flowchart LR\n") {
		t.Error("missing flowchart header")
	}
	for _, want := range []string{"Ctlslids0 · bank 0", "Ctlpoints · points<br/>2 points", `(["7"])`, `(["-3"])`, `["Mesh"]`, "Ctlstray (no role)", "style "} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Unrelated") {
		t.Errorf("out-of-scope node rendered:\n%s", out)
	}
}

func TestGenerateASCII_Aligned(t *testing.T) {
	out, err := Generate(context.Background(), sampleCanvas(t), "Ctl", FormatASCII)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "[7 -3]") {
		t.Errorf("missing values, got:\n%s", out)
	}
	if !strings.Contains(out, "└─▶ Mesh") {
		t.Errorf("missing recipient, got:\n%s", out)
	}

	width := -1
	for _, line := range strings.Split(out, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "│") && !strings.HasPrefix(trimmed, "┌") && !strings.HasPrefix(trimmed, "║") {
			continue
		}
		w := runewidth.StringWidth(line)
		if width == -1 {
			width = w
		} else if w != width {
			t.Errorf("misaligned line (width %d, want %d): %q", w, width, line)
		}
	}
}

func TestGenerate_EmptyScope(t *testing.T) {
	out, err := Generate(context.Background(), canvas.New(), "Ctl", FormatASCII)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Ctl (empty)\n" {
		t.Errorf("out = %q", out)
	}
}

func TestGenerate_UnsupportedFormat(t *testing.T) {
	if _, err := Generate(context.Background(), canvas.New(), "Ctl", "svg"); err == nil {
		t.Error("expected error for unsupported format")
	}
	var g host.Graph
	if _, err := Generate(context.Background(), g, "Ctl", FormatASCII); err == nil {
		t.Error("expected error for nil graph")
	}
}
