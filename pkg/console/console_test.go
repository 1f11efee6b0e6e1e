package console

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"

	"github.com/ormasoftchile/paramsnap/pkg/canvas"
	"github.com/ormasoftchile/paramsnap/pkg/restore"
	"github.com/ormasoftchile/paramsnap/pkg/snapshot"
	"github.com/ormasoftchile/paramsnap/pkg/storage"
)

func newTestConsole(t *testing.T) (*Console, *canvas.Canvas, storage.Store, *bytes.Buffer) {
	t.Helper()
	c := canvas.New()
	store := storage.NewFilesystemStore(memfs.New())
	var buf bytes.Buffer
	con, err := New(Options{
		Canvas:      c,
		Restorer:    restore.New(c, c, store),
		Writer:      snapshot.NewWriter(store),
		Documents:   store,
		DocumentKey: "canvas.yaml",
		Prefix:      "Ctl",
		Output:      &buf,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return con, c, store, &buf
}

// TestConsoleCommandHelp verifies help output lists all commands.
func TestConsoleCommandHelp(t *testing.T) {
	con, _, _, buf := newTestConsole(t)
	con.Exec(context.Background(), "help")
	for _, cmd := range []string{"restore", "capture", "show", "diagram", "state", "prefix", "add", "connect", "save", "quit"} {
		if !strings.Contains(buf.String(), cmd) {
			t.Errorf("help output missing command %q", cmd)
		}
	}
}

func TestConsoleRestoreCaptureCycle(t *testing.T) {
	ctx := context.Background()
	con, c, store, buf := newTestConsole(t)
	s := &snapshot.Snapshot{BankSizes: []int{2, 1}, SliderValues: []int{4, 5, 6}, PointCount: 0}
	if err := snapshot.NewWriter(store).Save(ctx, "in.json", s); err != nil {
		t.Fatal(err)
	}

	con.Exec(ctx, "add Mesh")
	con.Exec(ctx, "restore in.json")
	if !strings.Contains(buf.String(), "✓ Ctl restored: 0 deleted, 6 created, 0 edges") {
		t.Fatalf("unexpected restore output:\n%s", buf.String())
	}
	con.Exec(ctx, "connect Ctlslids1 Mesh")
	buf.Reset()
	con.Exec(ctx, "restore in.json Ctl 10 20")
	if !strings.Contains(buf.String(), "6 deleted, 6 created, 1 edges") {
		t.Errorf("unexpected second restore output:\n%s", buf.String())
	}
	ctl := c.FindByName("Ctlslids0")
	if len(ctl) != 1 || ctl[0].Position.X != 20 || ctl[0].Position.Y != 90 {
		t.Errorf("Ctlslids0 = %+v, want at (20, 90)", ctl)
	}

	con.Exec(ctx, "capture out.json")
	got, _, err := snapshot.Load(ctx, store, "out.json", nil)
	if err != nil {
		t.Fatalf("load captured: %v", err)
	}
	if len(got.BankSizes) != 2 || got.BankSizes[0] != 2 || got.BankSizes[1] != 1 {
		t.Errorf("captured BankSizes = %v, want [2 1]", got.BankSizes)
	}

	buf.Reset()
	con.Exec(ctx, "save")
	if _, err := store.Read(ctx, "canvas.yaml"); err != nil {
		t.Errorf("canvas not saved: %v (output %q)", err, buf.String())
	}
}

func TestConsoleRestoreMissing(t *testing.T) {
	con, c, _, buf := newTestConsole(t)
	con.Exec(context.Background(), "restore nope.json")
	out := buf.String()
	if !strings.Contains(out, "load failed, graph untouched") || !strings.Contains(out, "Error:") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if len(c.Nodes()) != 0 {
		t.Error("graph mutated on load failure")
	}
}

func TestConsoleStateAndPrefix(t *testing.T) {
	con, _, _, buf := newTestConsole(t)
	con.Exec(context.Background(), "state")
	if !strings.Contains(buf.String(), "Ctl: idle") {
		t.Errorf("state output = %q", buf.String())
	}
	con.Exec(context.Background(), "prefix Other")
	if con.buildPrompt() != "paramsnap[Other | idle]> " {
		t.Errorf("prompt = %q", con.buildPrompt())
	}
}

func TestConsoleQuitAndUnknown(t *testing.T) {
	con, _, _, buf := newTestConsole(t)
	if con.Exec(context.Background(), "frobnicate") {
		t.Error("unknown command quit the console")
	}
	if !strings.Contains(buf.String(), "Unknown command") {
		t.Errorf("output = %q", buf.String())
	}
	if !con.Exec(context.Background(), "quit") {
		t.Error("quit did not exit")
	}
}

func TestConsoleDiagram(t *testing.T) {
	ctx := context.Background()
	con, _, store, buf := newTestConsole(t)
	_ = snapshot.NewWriter(store).Save(ctx, "in.json", &snapshot.Snapshot{BankSizes: []int{1}, SliderValues: []int{3}})
	con.Exec(ctx, "restore in.json")
	buf.Reset()
	con.Exec(ctx, "diagram mermaid")
	if !strings.HasPrefix(buf.String(), "flowchart LR") {
		t.Errorf("diagram output = %q", buf.String())
	}
}
