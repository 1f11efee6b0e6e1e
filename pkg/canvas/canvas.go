// Package canvas is an in-memory graph editor implementing the host
// interfaces. It backs the CLI and console, and serves as the reference
// host in tests. Documents persist as YAML.
package canvas

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/ormasoftchile/paramsnap/pkg/host"
	"github.com/ormasoftchile/paramsnap/pkg/snapshot"
)

// Node is a canvas object. Slider fields apply to value nodes, Points to
// point nodes.
type Node struct {
	ID       string
	Name     string
	Kind     host.Kind
	Position host.Position
	Min      int
	Max      int
	Value    int
	Points   []snapshot.Point3
}

// Ref returns the host reference for n.
func (n Node) Ref() host.NodeRef {
	return host.NodeRef{ID: n.ID, Name: n.Name, Kind: n.Kind}
}

// Edge is a directed connection from Source to Sink, both node IDs.
type Edge struct {
	Source string
	Sink   string
}

type deferred struct {
	remaining int
	callback  func(ctx context.Context)
}

// Canvas holds nodes, edges and the deferred callback queue.
type Canvas struct {
	mu    sync.Mutex
	nodes map[string]*Node
	order []string
	edges []Edge
	queue []*deferred
	newID func() string
}

var (
	_ host.Graph     = &Canvas{}
	_ host.Scheduler = &Canvas{}
	_ host.Inspector = &Canvas{}
)

// New creates an empty canvas.
func New() *Canvas {
	return &Canvas{
		nodes: make(map[string]*Node),
		newID: uuid.NewString,
	}
}

func (c *Canvas) add(n *Node) host.NodeRef {
	if n.ID == "" {
		n.ID = c.newID()
	}
	c.nodes[n.ID] = n
	c.order = append(c.order, n.ID)
	return n.Ref()
}

func (c *Canvas) lookup(ref host.NodeRef) (*Node, error) {
	n, ok := c.nodes[ref.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", host.ErrNodeNotFound, ref)
	}
	return n, nil
}

// AddComponent adds a caller-owned node, such as a downstream consumer.
func (c *Canvas) AddComponent(name string) host.NodeRef {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.add(&Node{Name: name, Kind: host.KindComponent})
}

// ListNodes returns every node in insertion order.
func (c *Canvas) ListNodes(ctx context.Context) ([]host.NodeRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	refs := make([]host.NodeRef, 0, len(c.order))
	for _, id := range c.order {
		refs = append(refs, c.nodes[id].Ref())
	}
	return refs, nil
}

// Sources returns the nodes feeding node, in connection order.
func (c *Canvas) Sources(ctx context.Context, node host.NodeRef) ([]host.NodeRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.lookup(node); err != nil {
		return nil, err
	}
	var refs []host.NodeRef
	for _, e := range c.edges {
		if e.Sink == node.ID {
			refs = append(refs, c.nodes[e.Source].Ref())
		}
	}
	return refs, nil
}

// Recipients returns the nodes node feeds, in connection order.
func (c *Canvas) Recipients(ctx context.Context, node host.NodeRef) ([]host.NodeRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.lookup(node); err != nil {
		return nil, err
	}
	var refs []host.NodeRef
	for _, e := range c.edges {
		if e.Source == node.ID {
			refs = append(refs, c.nodes[e.Sink].Ref())
		}
	}
	return refs, nil
}

// CreateControlNode adds an integer control node.
func (c *Canvas) CreateControlNode(ctx context.Context, name string) (host.NodeRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.add(&Node{Name: name, Kind: host.KindControl}), nil
}

// CreateValueNode adds a slider over [min, max] set to initial.
func (c *Canvas) CreateValueNode(ctx context.Context, name string, min, max, initial int) (host.NodeRef, error) {
	if min > max {
		return host.NodeRef{}, fmt.Errorf("invalid slider range [%d, %d]", min, max)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.add(&Node{Name: name, Kind: host.KindValue, Min: min, Max: max, Value: initial}), nil
}

// CreatePointNode adds a point container holding a copy of points.
func (c *Canvas) CreatePointNode(ctx context.Context, name string, points []snapshot.Point3) (host.NodeRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.add(&Node{Name: name, Kind: host.KindPoints, Points: slices.Clone(points)}), nil
}

// DeleteNode removes node and every edge touching it.
func (c *Canvas) DeleteNode(ctx context.Context, node host.NodeRef) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.lookup(node); err != nil {
		return err
	}
	delete(c.nodes, node.ID)
	c.order = slices.DeleteFunc(c.order, func(id string) bool { return id == node.ID })
	c.edges = slices.DeleteFunc(c.edges, func(e Edge) bool {
		return e.Source == node.ID || e.Sink == node.ID
	})
	return nil
}

// Connect adds an edge from source to sink. Connecting an existing edge is a no-op.
func (c *Canvas) Connect(ctx context.Context, source, sink host.NodeRef) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.lookup(source); err != nil {
		return err
	}
	if _, err := c.lookup(sink); err != nil {
		return err
	}
	e := Edge{Source: source.ID, Sink: sink.ID}
	if !slices.Contains(c.edges, e) {
		c.edges = append(c.edges, e)
	}
	return nil
}

// SetPosition moves node to (x, y).
func (c *Canvas) SetPosition(ctx context.Context, node host.NodeRef, x, y float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, err := c.lookup(node)
	if err != nil {
		return err
	}
	n.Position = host.Position{X: x, Y: y}
	return nil
}

// Value reports the current value of a value node.
func (c *Canvas) Value(ctx context.Context, node host.NodeRef) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, err := c.lookup(node)
	if err != nil {
		return 0, err
	}
	if n.Kind != host.KindValue {
		return 0, fmt.Errorf("%s is not a value node", node)
	}
	return n.Value, nil
}

// Points reports the points held by a point node.
func (c *Canvas) Points(ctx context.Context, node host.NodeRef) ([]snapshot.Point3, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, err := c.lookup(node)
	if err != nil {
		return nil, err
	}
	if n.Kind != host.KindPoints {
		return nil, fmt.Errorf("%s is not a point node", node)
	}
	return slices.Clone(n.Points), nil
}

// SetValue changes the value of a value node.
func (c *Canvas) SetValue(node host.NodeRef, v int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, err := c.lookup(node)
	if err != nil {
		return err
	}
	if n.Kind != host.KindValue {
		return fmt.Errorf("%s is not a value node", node)
	}
	n.Value = v
	return nil
}

// Node returns a copy of the node with the given ID.
func (c *Canvas) Node(id string) (Node, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.nodes[id]
	if !ok {
		return Node{}, false
	}
	cp := *n
	cp.Points = slices.Clone(n.Points)
	return cp, true
}

// Nodes returns copies of all nodes in insertion order.
func (c *Canvas) Nodes() []Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Node, 0, len(c.order))
	for _, id := range c.order {
		cp := *c.nodes[id]
		cp.Points = slices.Clone(cp.Points)
		out = append(out, cp)
	}
	return out
}

// FindByName returns the nodes named name, in insertion order.
func (c *Canvas) FindByName(name string) []Node {
	var out []Node
	for _, n := range c.Nodes() {
		if n.Name == name {
			out = append(out, n)
		}
	}
	return out
}

// Edges returns a copy of all edges in connection order.
func (c *Canvas) Edges() []Edge {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.edges)
}
