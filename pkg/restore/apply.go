package restore

import (
	"context"
	"errors"
	"fmt"

	"github.com/ormasoftchile/paramsnap/pkg/host"
	"github.com/ormasoftchile/paramsnap/pkg/trace"
)

// Rewrite stages that fail before any mutation.
const (
	StageDiscover = "discover"
	StagePlan     = "plan"
)

// Apply steps, in execution order.
const (
	StepDelete   = "delete"
	StepControls = "controls"
	StepEdges    = "edges"
	StepValues   = "values"
	StepLayout   = "layout"
)

// Report records what a pass did to the graph.
type Report struct {
	Deleted  []host.NodeRef
	Controls map[Role]host.NodeRef
	Values   []host.NodeRef
	Edges    int
}

// Created returns the number of nodes created, points node included.
func (r *Report) Created() int {
	return len(r.Controls) + len(r.Values)
}

// ApplyError reports a failure part-way through Apply. The graph is left as
// Report describes; nothing is rolled back.
type ApplyError struct {
	Step   string
	Err    error
	Report *Report
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("restore %s: %v", e.Step, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }

// Apply executes plan against g: delete the old scope, create the controls
// and points node and re-point captured recipients at them, create the value
// nodes wired to their banks, then lay everything out. tw may be nil.
func Apply(ctx context.Context, g host.Graph, plan *Plan, tw *trace.PassWriter) (*Report, error) {
	a := &applier{
		g:    g,
		plan: plan,
		tw:   tw,
		rep:  &Report{Controls: make(map[Role]host.NodeRef)},
	}
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{StepDelete, a.delete},
		{StepControls, a.controls},
		{StepEdges, a.edges},
		{StepValues, a.values},
		{StepLayout, a.layout},
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return a.rep, &ApplyError{Step: s.name, Err: err, Report: a.rep}
		}
		if err := s.fn(ctx); err != nil {
			return a.rep, &ApplyError{Step: s.name, Err: err, Report: a.rep}
		}
	}
	return a.rep, nil
}

type applier struct {
	g    host.Graph
	plan *Plan
	tw   *trace.PassWriter
	rep  *Report
}

func (a *applier) emit(fn func(*trace.PassWriter) error) {
	if a.tw == nil {
		return
	}
	_ = fn(a.tw)
}

func (a *applier) delete(ctx context.Context) error {
	for _, n := range a.plan.Deletions {
		err := a.g.DeleteNode(ctx, n)
		if errors.Is(err, host.ErrNodeNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("delete %s: %w", n, err)
		}
		a.rep.Deleted = append(a.rep.Deleted, n)
		a.emit(func(tw *trace.PassWriter) error {
			return tw.EmitNodeDeleted(n.ID, n.Name, n.Kind.String())
		})
	}
	return nil
}

func (a *applier) created(n host.NodeRef) {
	a.emit(func(tw *trace.PassWriter) error {
		return tw.EmitNodeCreated(n.ID, n.Name, n.Kind.String())
	})
}

func (a *applier) controls(ctx context.Context) error {
	for _, c := range a.plan.Controls {
		n, err := a.g.CreateControlNode(ctx, c.Name)
		if err != nil {
			return fmt.Errorf("create control %q: %w", c.Name, err)
		}
		a.rep.Controls[c.Role] = n
		a.created(n)
	}
	p := a.plan.Points
	n, err := a.g.CreatePointNode(ctx, p.Name, p.Points)
	if err != nil {
		return fmt.Errorf("create points %q: %w", p.Name, err)
	}
	a.rep.Controls[PointsRole()] = n
	a.created(n)
	return nil
}

func (a *applier) edges(ctx context.Context) error {
	for _, e := range a.plan.Edges {
		src, ok := a.rep.Controls[e.Role]
		if !ok {
			return fmt.Errorf("no replacement node for %s", e.Role)
		}
		if err := a.g.Connect(ctx, src, e.Recipient); err != nil {
			return fmt.Errorf("reconnect %s to %s: %w", e.Role, e.Recipient, err)
		}
		a.rep.Edges++
		a.emit(func(tw *trace.PassWriter) error {
			return tw.EmitEdgeRestored(e.Role.String(), src.ID, e.Recipient.ID)
		})
	}
	return nil
}

func (a *applier) values(ctx context.Context) error {
	for _, v := range a.plan.Values {
		owner, ok := a.rep.Controls[v.Owner]
		if !ok {
			return fmt.Errorf("value %d: no control for %s", v.Index, v.Owner)
		}
		n, err := a.g.CreateValueNode(ctx, v.Name, v.Min, v.Max, v.Value)
		if err != nil {
			return fmt.Errorf("create value %d: %w", v.Index, err)
		}
		a.rep.Values = append(a.rep.Values, n)
		a.created(n)
		if err := a.g.Connect(ctx, n, owner); err != nil {
			return fmt.Errorf("wire value %d to %s: %w", v.Index, v.Owner, err)
		}
	}
	return nil
}

func (a *applier) layout(ctx context.Context) error {
	place := func(n host.NodeRef, p host.Position) error {
		if err := a.g.SetPosition(ctx, n, p.X, p.Y); err != nil {
			return fmt.Errorf("position %s: %w", n, err)
		}
		return nil
	}
	for _, c := range a.plan.Controls {
		if err := place(a.rep.Controls[c.Role], c.Position); err != nil {
			return err
		}
	}
	if err := place(a.rep.Controls[PointsRole()], a.plan.Points.Position); err != nil {
		return err
	}
	for i, v := range a.plan.Values {
		if err := place(a.rep.Values[i], v.Position); err != nil {
			return err
		}
	}
	return nil
}
