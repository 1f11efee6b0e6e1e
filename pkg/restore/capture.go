package restore

import (
	"context"
	"errors"
	"fmt"

	"github.com/ormasoftchile/paramsnap/pkg/host"
	"github.com/ormasoftchile/paramsnap/pkg/snapshot"
)

// ErrNoInspector is returned by Capture when the graph cannot report values.
var ErrNoInspector = errors.New("graph does not support value inspection")

// ErrBankGap is returned by Capture when bank indices skip more than
// MaxMissingBanks positions.
var ErrBankGap = errors.New("too many missing bank indices")

// MaxMissingBanks bounds the empty banks Capture inserts for missing indices.
const MaxMissingBanks = 64

// Capture reads the live scope of prefix back into a snapshot: bank controls
// in index order with the values of their value sources, and the points node.
// Missing bank indices capture as empty banks, up to MaxMissingBanks of them. A scope holding only a legacy
// control captures as a single bank.
func Capture(ctx context.Context, g host.Graph, prefix string) (*snapshot.Snapshot, error) {
	if prefix == "" {
		return nil, ErrEmptyPrefix
	}
	insp, ok := g.(host.Inspector)
	if !ok {
		return nil, ErrNoInspector
	}
	nodes, err := g.ListNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}

	banks := make(map[int]host.NodeRef)
	var legacy, points *host.NodeRef
	maxBank := -1
	for _, n := range nodes {
		role, ok := ParseRole(prefix, n.Name)
		if !ok {
			continue
		}
		switch role.Kind {
		case RoleBank:
			if _, dup := banks[role.Bank]; dup {
				return nil, fmt.Errorf("duplicate node for %s in scope %q", role, prefix)
			}
			banks[role.Bank] = n
			maxBank = max(maxBank, role.Bank)
		case RolePoints:
			if points != nil {
				return nil, fmt.Errorf("duplicate node for %s in scope %q", role, prefix)
			}
			points = &n
		case RoleLegacy:
			if legacy != nil {
				return nil, fmt.Errorf("duplicate node for %s in scope %q", role, prefix)
			}
			legacy = &n
		}
	}

	var controls []*host.NodeRef
	switch {
	case maxBank >= 0:
		if missing := maxBank + 1 - len(banks); missing > MaxMissingBanks {
			return nil, fmt.Errorf("%w: scope %q has %d banks up to index %d", ErrBankGap, prefix, len(banks), maxBank)
		}
		for i := 0; i <= maxBank; i++ {
			if n, ok := banks[i]; ok {
				controls = append(controls, &n)
			} else {
				controls = append(controls, nil)
			}
		}
	case legacy != nil:
		controls = []*host.NodeRef{legacy}
	case points == nil:
		return nil, fmt.Errorf("no controls found in scope %q", prefix)
	}

	s := &snapshot.Snapshot{
		BankSizes:    make([]int, len(controls)),
		SliderValues: []int{},
		Points:       []snapshot.Point3{},
	}
	for i, c := range controls {
		if c == nil {
			continue
		}
		sources, err := g.Sources(ctx, *c)
		if err != nil {
			return nil, fmt.Errorf("sources of %s: %w", c, err)
		}
		for _, src := range sources {
			if src.Kind != host.KindValue {
				continue
			}
			v, err := insp.Value(ctx, src)
			if err != nil {
				return nil, fmt.Errorf("value of %s: %w", src, err)
			}
			s.SliderValues = append(s.SliderValues, v)
			s.BankSizes[i]++
		}
	}
	if points != nil {
		pts, err := insp.Points(ctx, *points)
		if err != nil {
			return nil, fmt.Errorf("points of %s: %w", points, err)
		}
		if pts != nil {
			s.Points = pts
		}
	}
	s.PointCount = len(s.Points)
	return s, nil
}
