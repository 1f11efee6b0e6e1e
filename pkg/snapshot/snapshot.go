// Package snapshot defines the persisted slider-bank and point snapshot,
// its JSON codec, schema validation and the writer and loader built on
// top of a storage.Store.
package snapshot

import (
	"encoding/json"
	"fmt"
)

// Point3 is a 3D coordinate as persisted in the Points array.
type Point3 struct {
	X float64 `json:"X" yaml:"x"`
	Y float64 `json:"Y" yaml:"y"`
	Z float64 `json:"Z" yaml:"z"`
}

// Snapshot is the persisted unit: bank sizes, flattened slider values and
// the point collection. A snapshot is never mutated after it is written.
type Snapshot struct {
	BankSizes    []int    `json:"NumSliders"`
	SliderValues []int    `json:"SliderVals"`
	PointCount   int      `json:"NumPoints"`
	Points       []Point3 `json:"Points"`
}

// Total returns sum(BankSizes), the number of value nodes a restore creates.
func (s *Snapshot) Total() int {
	n := 0
	for _, size := range s.BankSizes {
		n += size
	}
	return n
}

// ValueAt returns the value for the k-th value node. Indices past the end of
// SliderValues repeat the last value. ok is false when there are no values.
func (s *Snapshot) ValueAt(k int) (v int, ok bool) {
	n := len(s.SliderValues)
	if n == 0 || k < 0 {
		return 0, false
	}
	if k >= n {
		return s.SliderValues[n-1], true
	}
	return s.SliderValues[k], true
}

// Normalize replaces nil slices with empty ones so documents carry [] rather
// than null.
func (s *Snapshot) Normalize() {
	if s.BankSizes == nil {
		s.BankSizes = []int{}
	}
	if s.SliderValues == nil {
		s.SliderValues = []int{}
	}
	if s.Points == nil {
		s.Points = []Point3{}
	}
}

// Marshal encodes a snapshot in the persisted JSON format.
func Marshal(s *Snapshot) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("nil snapshot")
	}
	c := *s
	c.Normalize()
	data, err := json.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a persisted snapshot. Unknown fields are ignored.
func Unmarshal(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &s, nil
}
