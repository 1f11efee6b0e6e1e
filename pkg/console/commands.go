package console

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/ormasoftchile/paramsnap/pkg/diagram"
	"github.com/ormasoftchile/paramsnap/pkg/host"
	"github.com/ormasoftchile/paramsnap/pkg/restore"
	"github.com/ormasoftchile/paramsnap/pkg/snapshot"
)

// scopeArg returns parts[i] when present, else the current prefix.
func (c *Console) scopeArg(parts []string, i int) (string, error) {
	if len(parts) > i {
		return parts[i], nil
	}
	if c.prefix == "" {
		return "", errors.New("no prefix; pass one or set it with 'prefix <name>'")
	}
	return c.prefix, nil
}

// handleRestore schedules a pass and runs the host clock until it finishes.
func (c *Console) handleRestore(ctx context.Context, parts []string) error {
	if len(parts) < 2 {
		fmt.Fprintf(c.output, "Usage: restore <path> [prefix] [x y]\n")
		return nil
	}
	prefix, err := c.scopeArg(parts, 2)
	if err != nil {
		return err
	}
	req := restore.Request{Path: parts[1], Prefix: prefix}
	if len(parts) >= 5 {
		x, errX := strconv.ParseFloat(parts[3], 64)
		y, errY := strconv.ParseFloat(parts[4], 64)
		if err := errors.Join(errX, errY); err != nil {
			return fmt.Errorf("anchor: %w", err)
		}
		req.Anchor = host.Position{X: x, Y: y}
	}

	pass, err := c.restorer.Trigger(ctx, req)
	if err != nil {
		return err
	}
	if _, err := c.canvas.Drain(ctx); err != nil {
		return err
	}
	<-pass.Done()

	for _, w := range pass.Warnings() {
		fmt.Fprintf(c.output, "  %s %s\n", c.styles.warn.Render("!"), w.Error())
	}
	if err := pass.Err(); err != nil {
		var le *snapshot.LoadError
		if errors.As(err, &le) {
			fmt.Fprintf(c.output, "  %s load failed, graph untouched\n", c.styles.fail.Render("✗"))
		} else {
			fmt.Fprintf(c.output, "  %s rewrite failed, graph may be partially rewritten\n", c.styles.fail.Render("✗"))
		}
		return err
	}
	rep := pass.Report()
	fmt.Fprintf(c.output, "  %s %s restored: %d deleted, %d created, %d edges\n",
		c.styles.ok.Render("✓"), prefix, len(rep.Deleted), rep.Created(), rep.Edges)
	if plan := pass.Plan(); plan != nil {
		for _, d := range plan.Dropped {
			fmt.Fprintf(c.output, "  %s %s has no replacement; %d recipients disconnected\n", c.styles.warn.Render("!"), d.Role, len(d.Recipients))
		}
	}
	return nil
}

// handleCapture writes the live scope to a snapshot document.
func (c *Console) handleCapture(ctx context.Context, parts []string) error {
	if len(parts) < 2 {
		fmt.Fprintf(c.output, "Usage: capture <path> [prefix]\n")
		return nil
	}
	prefix, err := c.scopeArg(parts, 2)
	if err != nil {
		return err
	}
	s, err := restore.Capture(ctx, c.canvas, prefix)
	if err != nil {
		return err
	}
	if err := c.writer.Save(ctx, parts[1], s); err != nil {
		return err
	}
	fmt.Fprintf(c.output, "  ✓ captured %d banks, %d values, %d points to %s\n",
		len(s.BankSizes), len(s.SliderValues), len(s.Points), parts[1])
	return nil
}

// handleShow lists every node on the canvas.
func (c *Console) handleShow() {
	nodes := c.canvas.Nodes()
	if len(nodes) == 0 {
		fmt.Fprintf(c.output, "Canvas is empty.\n")
		return
	}
	for _, n := range nodes {
		detail := ""
		switch n.Kind {
		case host.KindValue:
			detail = fmt.Sprintf(" = %d [%d, %d]", n.Value, n.Min, n.Max)
		case host.KindPoints:
			detail = fmt.Sprintf(" (%d points)", len(n.Points))
		}
		fmt.Fprintf(c.output, "  %-9s %-20q @(%g, %g)%s\n", n.Kind, n.Name, n.Position.X, n.Position.Y, detail)
	}
	fmt.Fprintf(c.output, "%d nodes, %d edges\n", len(nodes), len(c.canvas.Edges()))
}

func (c *Console) handleDiagram(ctx context.Context, parts []string) error {
	format := diagram.FormatASCII
	if len(parts) >= 2 {
		format = diagram.Format(parts[1])
	}
	prefix, err := c.scopeArg(parts, 2)
	if err != nil {
		return err
	}
	out, err := diagram.Generate(ctx, c.canvas, prefix, format)
	if err != nil {
		return err
	}
	fmt.Fprint(c.output, out)
	return nil
}

func (c *Console) handleState(parts []string) {
	prefix, err := c.scopeArg(parts, 1)
	if err != nil {
		fmt.Fprintf(c.output, "Usage: state [prefix]\n")
		return
	}
	fmt.Fprintf(c.output, "%s: %s\n", prefix, c.styles.state(c.restorer.State(prefix)))
}

func (c *Console) handlePrefix(parts []string) {
	if len(parts) < 2 {
		fmt.Fprintf(c.output, "prefix = %q\n", c.prefix)
		return
	}
	c.prefix = parts[1]
	fmt.Fprintf(c.output, "prefix = %q\n", c.prefix)
}

// handleAdd places a downstream component on the canvas.
func (c *Console) handleAdd(parts []string) {
	if len(parts) < 2 {
		fmt.Fprintf(c.output, "Usage: add <name>\n")
		return
	}
	ref := c.canvas.AddComponent(parts[1])
	fmt.Fprintf(c.output, "  + %s\n", ref)
}

// handleConnect wires two nodes identified by unique name.
func (c *Console) handleConnect(ctx context.Context, parts []string) error {
	if len(parts) < 3 {
		fmt.Fprintf(c.output, "Usage: connect <from> <to>\n")
		return nil
	}
	from, err := c.byName(parts[1])
	if err != nil {
		return err
	}
	to, err := c.byName(parts[2])
	if err != nil {
		return err
	}
	if err := c.canvas.Connect(ctx, from, to); err != nil {
		return err
	}
	fmt.Fprintf(c.output, "  %s → %s\n", from.Name, to.Name)
	return nil
}

func (c *Console) byName(name string) (host.NodeRef, error) {
	found := c.canvas.FindByName(name)
	switch len(found) {
	case 0:
		return host.NodeRef{}, fmt.Errorf("%w: %q", host.ErrNodeNotFound, name)
	case 1:
		return found[0].Ref(), nil
	default:
		return host.NodeRef{}, fmt.Errorf("name %q is ambiguous (%d nodes)", name, len(found))
	}
}

// handleSave writes the canvas document back to its store.
func (c *Console) handleSave(ctx context.Context) error {
	if c.docs == nil || c.docKey == "" {
		return errors.New("no canvas document to save to")
	}
	if err := c.canvas.Save(ctx, c.docs, c.docKey); err != nil {
		return err
	}
	fmt.Fprintf(c.output, "  ✓ saved %s\n", c.docKey)
	return nil
}

// handleHelp displays available commands.
func (c *Console) handleHelp() {
	fmt.Fprintf(c.output, `Commands:
  restore, r <path> [prefix] [x y]  Restore a snapshot into the scope, anchored at (x, y)
  capture, c <path> [prefix]        Write the live scope to a snapshot
  show, ls                          List canvas nodes
  diagram, d [ascii|mermaid] [prefix]  Render the scope
  state [prefix]                    Show the restore state of a scope
  prefix [name]                     Show or set the default prefix
  add <name>                        Add a component node
  connect <from> <to>               Connect two nodes by name
  save                              Save the canvas document
  help, ?                           Show this help
  quit, q                           Exit console
`)
}
