package canvas

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/ormasoftchile/paramsnap/pkg/host"
	"github.com/ormasoftchile/paramsnap/pkg/snapshot"
	"github.com/ormasoftchile/paramsnap/pkg/storage"
)

// Document is the YAML form of a canvas.
type Document struct {
	Nodes []NodeDoc `yaml:"nodes"`
	Edges []EdgeDoc `yaml:"edges,omitempty"`
}

// NodeDoc is one node in a Document. ID may be omitted in hand-written
// documents; a fresh one is assigned on load.
type NodeDoc struct {
	ID       string            `yaml:"id,omitempty"`
	Name     string            `yaml:"name,omitempty"`
	Kind     host.Kind         `yaml:"kind"`
	Position host.Position     `yaml:"position"`
	Slider   *SliderDoc        `yaml:"slider,omitempty"`
	Points   []snapshot.Point3 `yaml:"points,omitempty"`
}

// SliderDoc carries the range and value of a value node.
type SliderDoc struct {
	Min   int `yaml:"min"`
	Max   int `yaml:"max"`
	Value int `yaml:"value"`
}

// EdgeDoc connects two nodes by ID, or by name when the name is unique.
type EdgeDoc struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Document returns the current canvas as a Document.
func (c *Canvas) Document() Document {
	var doc Document
	for _, n := range c.Nodes() {
		nd := NodeDoc{
			ID:       n.ID,
			Name:     n.Name,
			Kind:     n.Kind,
			Position: n.Position,
			Points:   n.Points,
		}
		if n.Kind == host.KindValue {
			nd.Slider = &SliderDoc{Min: n.Min, Max: n.Max, Value: n.Value}
		}
		doc.Nodes = append(doc.Nodes, nd)
	}
	for _, e := range c.Edges() {
		doc.Edges = append(doc.Edges, EdgeDoc{From: e.Source, To: e.Sink})
	}
	return doc
}

// FromDocument builds a canvas from doc.
func FromDocument(doc Document) (*Canvas, error) {
	c := New()
	for i, nd := range doc.Nodes {
		if nd.ID != "" {
			if _, dup := c.nodes[nd.ID]; dup {
				return nil, fmt.Errorf("nodes[%d]: duplicate id %q", i, nd.ID)
			}
		}
		n := &Node{
			ID:       nd.ID,
			Name:     nd.Name,
			Kind:     nd.Kind,
			Position: nd.Position,
			Points:   nd.Points,
		}
		if nd.Slider != nil {
			n.Min, n.Max, n.Value = nd.Slider.Min, nd.Slider.Max, nd.Slider.Value
		}
		c.add(n)
	}
	for i, ed := range doc.Edges {
		from, err := c.resolve(ed.From)
		if err != nil {
			return nil, fmt.Errorf("edges[%d].from: %w", i, err)
		}
		to, err := c.resolve(ed.To)
		if err != nil {
			return nil, fmt.Errorf("edges[%d].to: %w", i, err)
		}
		c.edges = append(c.edges, Edge{Source: from, Sink: to})
	}
	return c, nil
}

// resolve maps an edge endpoint to a node ID.
func (c *Canvas) resolve(ref string) (string, error) {
	if _, ok := c.nodes[ref]; ok {
		return ref, nil
	}
	var found []string
	for _, id := range c.order {
		if c.nodes[id].Name == ref {
			found = append(found, id)
		}
	}
	switch len(found) {
	case 0:
		return "", fmt.Errorf("%w: %q", host.ErrNodeNotFound, ref)
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("name %q is ambiguous (%d nodes)", ref, len(found))
	}
}

// Parse decodes a YAML canvas document.
func Parse(data []byte) (*Canvas, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse canvas: %w", err)
	}
	return FromDocument(doc)
}

// Marshal encodes the canvas as YAML.
func (c *Canvas) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c.Document())
	if err != nil {
		return nil, fmt.Errorf("marshal canvas: %w", err)
	}
	return data, nil
}

// Load reads a canvas document from store.
func Load(ctx context.Context, store storage.Store, key string) (*Canvas, error) {
	data, err := store.Read(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read canvas: %w", err)
	}
	return Parse(data)
}

// Save writes the canvas document to store.
func (c *Canvas) Save(ctx context.Context, store storage.Store, key string) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := store.Write(ctx, key, data); err != nil {
		return fmt.Errorf("write canvas: %w", err)
	}
	return nil
}
