package restore

import (
	"sort"

	"github.com/ormasoftchile/paramsnap/pkg/host"
)

// Layout holds the fixed offsets used to place reconstructed nodes relative
// to the restore anchor.
type Layout struct {
	ControlOffset     host.Position `yaml:"control_offset"`
	PointsOffset      host.Position `yaml:"points_offset"`
	ValueColumnOffset float64       `yaml:"value_column_offset"`
	RowHeight         float64       `yaml:"row_height"`
	BankSpacing       float64       `yaml:"bank_spacing"`
	BankPadding       float64       `yaml:"bank_padding"`
}

// DefaultLayout places bank 0 at anchor+(10,70) with 30-unit rows and the
// value column 250 units to the left.
func DefaultLayout() Layout {
	return Layout{
		ControlOffset:     host.Position{X: 10, Y: 70},
		PointsOffset:      host.Position{X: 210, Y: 70},
		ValueColumnOffset: -250,
		RowHeight:         30,
		BankSpacing:       40,
		BankPadding:       40,
	}
}

// Breakpoints returns the running totals of sizes as a new slice.
func Breakpoints(sizes []int) []int {
	bp := make([]int, len(sizes))
	running := 0
	for i, n := range sizes {
		running += n
		bp[i] = running
	}
	return bp
}

// OwnerBank returns the bank containing flattened index k: the index of the
// first breakpoint strictly greater than k. It returns len(bp) when k is
// past the last bank.
func OwnerBank(bp []int, k int) int {
	return sort.Search(len(bp), func(i int) bool { return bp[i] > k })
}

// Control returns the position of the control node for bank i.
func (l Layout) Control(anchor host.Position, bp []int, i int) host.Position {
	prior := 0
	if i > 0 && i <= len(bp) {
		prior = bp[i-1]
	}
	return anchor.Add(host.Position{
		X: l.ControlOffset.X,
		Y: l.ControlOffset.Y + float64(prior)*l.RowHeight + float64(i)*l.BankSpacing,
	})
}

// Points returns the position of the points node.
func (l Layout) Points(anchor host.Position) host.Position {
	return anchor.Add(l.PointsOffset)
}

// Value returns the position of the k-th value node in the single value column.
func (l Layout) Value(anchor host.Position, bp []int, k int) host.Position {
	return anchor.Add(host.Position{
		X: l.ControlOffset.X + l.ValueColumnOffset,
		Y: l.ControlOffset.Y + float64(k)*l.RowHeight + l.transitionPadding(bp, k),
	})
}

// transitionPadding adds BankPadding for every bank boundary at or before k.
func (l Layout) transitionPadding(bp []int, k int) float64 {
	return float64(OwnerBank(bp, k)) * l.BankPadding
}
