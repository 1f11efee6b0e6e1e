package restore

import (
	"fmt"

	"github.com/ormasoftchile/paramsnap/pkg/host"
	"github.com/ormasoftchile/paramsnap/pkg/snapshot"
)

// ControlSpec describes a control node to create.
type ControlSpec struct {
	Role     Role
	Name     string
	Position host.Position
}

// PointsSpec describes the points node to create.
type PointsSpec struct {
	Name     string
	Points   []snapshot.Point3
	Position host.Position
}

// ValueSpec describes the k-th value node and the control it feeds.
type ValueSpec struct {
	Index    int
	Owner    Role
	Name     string
	Value    int
	Min      int
	Max      int
	Position host.Position
}

// EdgeSpec re-points a captured recipient at the replacement node for Role.
type EdgeSpec struct {
	Role      Role
	Recipient host.NodeRef
}

// Plan is the complete set of mutations for one restore pass, computed
// before the graph is touched.
type Plan struct {
	Prefix    string
	Deletions []host.NodeRef
	Controls  []ControlSpec
	Points    PointsSpec
	Values    []ValueSpec
	Edges     []EdgeSpec
	// Dropped holds captures whose role has no replacement in the new snapshot.
	Dropped []RoleRecipients
}

// BuildPlan computes every deletion, creation, connection and position for
// restoring s into the scope surveyed by d.
func BuildPlan(d *Discovery, s *snapshot.Snapshot, opts Options, anchor host.Position) (*Plan, error) {
	for i, size := range s.BankSizes {
		if size < 0 {
			return nil, fmt.Errorf("bank %d has negative size %d", i, size)
		}
	}
	total := s.Total()
	if total > 0 && len(s.SliderValues) == 0 {
		return nil, snapshot.ErrMalformedSnapshot
	}

	p := &Plan{
		Prefix:    d.Prefix,
		Deletions: d.Deletions,
	}

	// Legacy mode lays every value out as one bank.
	sizes := s.BankSizes
	if opts.Mode == ModeLegacy {
		sizes = []int{total}
	}
	bp := Breakpoints(sizes)
	layout := opts.Layout

	if opts.Mode == ModeLegacy {
		p.Controls = []ControlSpec{{
			Role:     LegacyRole(),
			Name:     LegacyRole().Name(d.Prefix),
			Position: layout.Control(anchor, bp, 0),
		}}
	} else {
		for i := range s.BankSizes {
			p.Controls = append(p.Controls, ControlSpec{
				Role:     BankRole(i),
				Name:     BankRole(i).Name(d.Prefix),
				Position: layout.Control(anchor, bp, i),
			})
		}
	}

	p.Points = PointsSpec{
		Name:     PointsRole().Name(d.Prefix),
		Points:   s.Points,
		Position: layout.Points(anchor),
	}

	for k := 0; k < total; k++ {
		v, _ := s.ValueAt(k)
		owner := LegacyRole()
		if opts.Mode != ModeLegacy {
			owner = BankRole(OwnerBank(bp, k))
		}
		p.Values = append(p.Values, ValueSpec{
			Index:    k,
			Owner:    owner,
			Name:     opts.ValueName,
			Value:    v,
			Min:      opts.Range.Min,
			Max:      opts.Range.Max,
			Position: layout.Value(anchor, bp, k),
		})
	}

	for _, c := range d.Captures {
		target, ok := p.target(c.Role)
		if !ok {
			p.Dropped = append(p.Dropped, c)
			continue
		}
		for _, r := range c.Recipients {
			p.Edges = append(p.Edges, EdgeSpec{Role: target, Recipient: r})
		}
	}
	return p, nil
}

// target maps a captured role onto the role of a node this plan creates.
// A legacy control hands its recipients to bank 0 and, in legacy mode,
// every bank hands its recipients to the legacy control.
func (p *Plan) target(captured Role) (Role, bool) {
	if captured.Kind == RolePoints {
		return captured, true
	}
	if len(p.Controls) == 0 {
		return Role{}, false
	}
	if p.Controls[0].Role.Kind == RoleLegacy {
		return LegacyRole(), true
	}
	if captured.Kind == RoleLegacy {
		return BankRole(0), true
	}
	if captured.Bank < len(p.Controls) {
		return captured, true
	}
	return Role{}, false
}
