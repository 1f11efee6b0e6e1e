package restore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ormasoftchile/paramsnap/pkg/host"
)

// ErrEmptyPrefix is returned for an empty control-name prefix, which would
// place every node in the graph in scope.
var ErrEmptyPrefix = errors.New("empty control-name prefix")

// RoleRecipients is the set of recipients that consumed a control node of Role
// before the rewrite.
type RoleRecipients struct {
	Role       Role
	Recipients []host.NodeRef
}

// Discovery is the read-only survey of a scope taken before any mutation.
type Discovery struct {
	Prefix    string
	Deletions []host.NodeRef
	Captures  []RoleRecipients
	// Orphans are recipients of in-scope nodes whose names encode no role.
	// Their edges are lost when the node is deleted.
	Orphans []host.NodeRef
	// Kept are non-value sources of control nodes; they are not deleted.
	Kept []host.NodeRef
}

// Recipients returns the captured recipients for role r.
func (d *Discovery) Recipients(r Role) []host.NodeRef {
	for _, c := range d.Captures {
		if c.Role == r {
			return c.Recipients
		}
	}
	return nil
}

// InScope reports whether name belongs to the scope of prefix.
func InScope(prefix, name string) bool {
	return strings.HasPrefix(name, prefix)
}

type refSet struct {
	seen map[string]bool
	list []host.NodeRef
}

func newRefSet() *refSet { return &refSet{seen: make(map[string]bool)} }

func (s *refSet) add(n host.NodeRef) {
	if s.seen[n.ID] {
		return
	}
	s.seen[n.ID] = true
	s.list = append(s.list, n)
}

func (s *refSet) has(n host.NodeRef) bool { return s.seen[n.ID] }

// Discover scans the graph for nodes named with prefix, records them and the
// value nodes feeding them for deletion, and captures their recipients keyed
// by role. The graph is not modified.
func Discover(ctx context.Context, g host.Graph, prefix string) (*Discovery, error) {
	if prefix == "" {
		return nil, ErrEmptyPrefix
	}
	nodes, err := g.ListNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}

	type scoped struct {
		node host.NodeRef
		role Role
		ok   bool
	}
	var inScope []scoped
	deletions := newRefSet()
	kept := newRefSet()
	for _, n := range nodes {
		if !InScope(prefix, n.Name) {
			continue
		}
		role, ok := ParseRole(prefix, n.Name)
		inScope = append(inScope, scoped{node: n, role: role, ok: ok})
		deletions.add(n)
	}

	for _, s := range inScope {
		if !s.ok {
			continue
		}
		sources, err := g.Sources(ctx, s.node)
		if err != nil {
			return nil, fmt.Errorf("sources of %s: %w", s.node, err)
		}
		for _, src := range sources {
			if src.Kind == host.KindValue {
				deletions.add(src)
			} else if !deletions.has(src) {
				kept.add(src)
			}
		}
	}

	d := &Discovery{Prefix: prefix}
	captured := make(map[Role]*refSet)
	var order []Role
	orphans := newRefSet()
	for _, s := range inScope {
		recipients, err := g.Recipients(ctx, s.node)
		if err != nil {
			return nil, fmt.Errorf("recipients of %s: %w", s.node, err)
		}
		for _, r := range recipients {
			if deletions.has(r) {
				continue
			}
			if !s.ok {
				orphans.add(r)
				continue
			}
			set, exists := captured[s.role]
			if !exists {
				set = newRefSet()
				captured[s.role] = set
				order = append(order, s.role)
			}
			set.add(r)
		}
	}

	d.Deletions = deletions.list
	d.Orphans = orphans.list
	d.Kept = kept.list
	for _, role := range order {
		d.Captures = append(d.Captures, RoleRecipients{Role: role, Recipients: captured[role].list})
	}
	return d, nil
}
