// Package host defines the graph-editor collaborator consumed by the restore
// engine. The editor owns the nodes; the engine refers to them by identity
// and name only.
package host

import (
	"context"
	"errors"
	"fmt"

	"github.com/ormasoftchile/paramsnap/pkg/snapshot"
)

// ErrNodeNotFound is returned when a NodeRef no longer exists in the graph.
var ErrNodeNotFound = errors.New("node not found")

// Kind classifies live graph nodes.
type Kind int

const (
	KindComponent Kind = iota // any caller-owned node, typically a recipient
	KindControl               // integer anchor fed by value nodes
	KindValue                 // numeric slider
	KindPoints                // point container
)

func (k Kind) String() string {
	switch k {
	case KindComponent:
		return "component"
	case KindControl:
		return "control"
	case KindValue:
		return "value"
	case KindPoints:
		return "points"
	default:
		return "unknown"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "component", "":
		return KindComponent, nil
	case "control":
		return KindControl, nil
	case "value":
		return KindValue, nil
	case "points":
		return KindPoints, nil
	default:
		return 0, fmt.Errorf("unknown node kind %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// NodeRef identifies a live node.
type NodeRef struct {
	ID   string
	Name string
	Kind Kind
}

func (n NodeRef) String() string {
	return fmt.Sprintf("%s(%s %q)", n.Kind, n.ID, n.Name)
}

// Position is a canvas coordinate.
type Position struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// Add returns p translated by q.
func (p Position) Add(q Position) Position {
	return Position{X: p.X + q.X, Y: p.Y + q.Y}
}

// Graph is the structural surface of the host editor.
type Graph interface {
	ListNodes(ctx context.Context) ([]NodeRef, error)
	Sources(ctx context.Context, node NodeRef) ([]NodeRef, error)
	Recipients(ctx context.Context, node NodeRef) ([]NodeRef, error)

	CreateControlNode(ctx context.Context, name string) (NodeRef, error)
	CreateValueNode(ctx context.Context, name string, min, max, initial int) (NodeRef, error)
	CreatePointNode(ctx context.Context, name string, points []snapshot.Point3) (NodeRef, error)
	DeleteNode(ctx context.Context, node NodeRef) error

	Connect(ctx context.Context, source, sink NodeRef) error
	SetPosition(ctx context.Context, node NodeRef, x, y float64) error
}

// Scheduler defers work until the host's current evaluation completes.
// The callback runs once, after delayTicks host ticks.
type Scheduler interface {
	ScheduleDeferred(callback func(ctx context.Context), delayTicks int)
}

// Inspector is implemented by hosts that can report node contents.
type Inspector interface {
	Value(ctx context.Context, node NodeRef) (int, error)
	Points(ctx context.Context, node NodeRef) ([]snapshot.Point3, error)
}
