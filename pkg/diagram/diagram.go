// Package diagram renders the control scope of a live graph.
// Supports Mermaid flowchart and ASCII formats.
package diagram

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/ormasoftchile/paramsnap/pkg/host"
	"github.com/ormasoftchile/paramsnap/pkg/restore"
)

// Format represents the output diagram format.
type Format string

const (
	FormatMermaid Format = "mermaid"
	FormatASCII   Format = "ascii"
)

// Generate produces a diagram of the nodes named with prefix, the value
// nodes feeding them and their downstream recipients.
func Generate(ctx context.Context, g host.Graph, prefix string, format Format) (string, error) {
	if g == nil {
		return "", fmt.Errorf("nil graph")
	}
	if format != FormatMermaid && format != FormatASCII {
		return "", fmt.Errorf("unsupported diagram format: %s", format)
	}
	sc, err := collect(ctx, g, prefix)
	if err != nil {
		return "", err
	}
	if format == FormatMermaid {
		return generateMermaid(sc), nil
	}
	return generateASCII(sc), nil
}

// --- scope model ---

type scopeView struct {
	prefix   string
	controls []controlView
}

type controlView struct {
	node       host.NodeRef
	role       restore.Role
	known      bool
	values     []valueView
	points     int
	recipients []host.NodeRef
}

type valueView struct {
	node  host.NodeRef
	value string
}

func collect(ctx context.Context, g host.Graph, prefix string) (*scopeView, error) {
	nodes, err := g.ListNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	insp, _ := g.(host.Inspector)

	sc := &scopeView{prefix: prefix}
	for _, n := range nodes {
		if prefix == "" || !restore.InScope(prefix, n.Name) || n.Kind == host.KindValue {
			continue
		}
		cv := controlView{node: n}
		cv.role, cv.known = restore.ParseRole(prefix, n.Name)

		sources, err := g.Sources(ctx, n)
		if err != nil {
			return nil, fmt.Errorf("sources of %s: %w", n, err)
		}
		for _, src := range sources {
			if src.Kind != host.KindValue {
				continue
			}
			vv := valueView{node: src, value: "?"}
			if insp != nil {
				if v, err := insp.Value(ctx, src); err == nil {
					vv.value = strconv.Itoa(v)
				}
			}
			cv.values = append(cv.values, vv)
		}
		if n.Kind == host.KindPoints && insp != nil {
			if pts, err := insp.Points(ctx, n); err == nil {
				cv.points = len(pts)
			}
		}
		if cv.recipients, err = g.Recipients(ctx, n); err != nil {
			return nil, fmt.Errorf("recipients of %s: %w", n, err)
		}
		sc.controls = append(sc.controls, cv)
	}

	sort.SliceStable(sc.controls, func(i, j int) bool {
		a, b := sc.controls[i], sc.controls[j]
		if a.known != b.known {
			return a.known
		}
		if a.role.Kind != b.role.Kind {
			return a.role.Kind < b.role.Kind
		}
		return a.role.Bank < b.role.Bank
	})
	return sc, nil
}

func (c controlView) label() string {
	if !c.known {
		return c.node.Name + " (no role)"
	}
	return c.node.Name + " · " + c.role.String()
}

func (c controlView) icon() string {
	switch {
	case !c.known:
		return "?"
	case c.role.Kind == restore.RolePoints:
		return "⌖"
	default:
		return "▤"
	}
}

// --- Mermaid flowchart ---

func generateMermaid(sc *scopeView) string {
	var b strings.Builder
	b.WriteString("flowchart LR\n")
	if len(sc.controls) == 0 {
		return b.String()
	}

	ids := map[string]string{}
	id := func(n host.NodeRef, kind string) string {
		if s, ok := ids[n.ID]; ok {
			return s
		}
		s := kind + strconv.Itoa(len(ids))
		ids[n.ID] = s
		return s
	}

	b.WriteString(fmt.Sprintf("    subgraph scope[%q]\n", escMermaid(sc.prefix)))
	for _, c := range sc.controls {
		label := c.label()
		if c.node.Kind == host.KindPoints {
			label += fmt.Sprintf("<br/>%d points", c.points)
		}
		b.WriteString(fmt.Sprintf("        %s[\"%s %s\"]\n", id(c.node, "c"), c.icon(), escMermaid(label)))
	}
	b.WriteString("    end\n")

	for _, c := range sc.controls {
		for _, v := range c.values {
			b.WriteString(fmt.Sprintf("    %s([\"%s\"]) --> %s\n", id(v.node, "v"), v.value, id(c.node, "c")))
		}
	}
	for _, c := range sc.controls {
		for _, r := range c.recipients {
			b.WriteString(fmt.Sprintf("    %s --> %s[\"%s\"]\n", id(c.node, "c"), id(r, "r"), escMermaid(r.Name)))
		}
	}
	for _, c := range sc.controls {
		if !c.known {
			b.WriteString(fmt.Sprintf("    style %s fill:#e60,stroke:#c40,color:#fff\n", id(c.node, "c")))
		}
	}
	return b.String()
}

func escMermaid(s string) string {
	s = strings.ReplaceAll(s, `"`, "#quot;")
	s = strings.ReplaceAll(s, `'`, "#apos;")
	return s
}

// --- ASCII ---

func generateASCII(sc *scopeView) string {
	var b strings.Builder
	name := sc.prefix
	if name == "" {
		name = "(no prefix)"
	}
	if len(sc.controls) == 0 {
		b.WriteString(name + " (empty)\n")
		return b.String()
	}

	const indent = 4
	boxWidth := computeUniformBoxWidth(sc, name)
	pad := strings.Repeat(" ", indent)

	b.WriteString(pad + "╔" + strings.Repeat("═", boxWidth) + "╗\n")
	b.WriteString(pad + "║" + centerPad(name, boxWidth) + "║\n")
	b.WriteString(pad + "╚" + strings.Repeat("═", boxWidth) + "╝\n")

	for _, c := range sc.controls {
		lines := controlLines(c)
		b.WriteString(pad + "┌" + strings.Repeat("─", boxWidth) + "┐\n")
		for _, l := range lines {
			b.WriteString(pad + "│" + l + strings.Repeat(" ", boxWidth-runewidth.StringWidth(l)) + "│\n")
		}
		b.WriteString(pad + "└" + strings.Repeat("─", boxWidth) + "┘\n")
		for _, r := range c.recipients {
			b.WriteString(pad + "  └─▶ " + r.Name + "\n")
		}
	}
	return b.String()
}

func controlLines(c controlView) []string {
	lines := []string{fmt.Sprintf(" %s %s ", c.icon(), c.label())}
	if c.node.Kind == host.KindPoints {
		lines = append(lines, fmt.Sprintf("   %d points ", c.points))
	}
	if len(c.values) > 0 {
		vals := make([]string, 0, len(c.values))
		for _, v := range c.values {
			vals = append(vals, v.value)
		}
		lines = append(lines, fmt.Sprintf("   [%s] ", strings.Join(vals, " ")))
	}
	return lines
}

// computeUniformBoxWidth returns the widest interior width needed across
// all control boxes and the header name.
func computeUniformBoxWidth(sc *scopeView, name string) int {
	w := 22
	if nw := runewidth.StringWidth(name) + 4; nw > w {
		w = nw
	}
	for _, c := range sc.controls {
		for _, l := range controlLines(c) {
			if lw := runewidth.StringWidth(l); lw > w {
				w = lw
			}
		}
	}
	return w
}

// centerPad centers s within width using spaces, based on display width.
func centerPad(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	total := width - sw
	left := total / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", total-left)
}
