package restore

import (
	"fmt"

	"github.com/ormasoftchile/paramsnap/pkg/snapshot"
)

// Range is the closed interval value nodes are created with.
type Range struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// Range presets seen in deployments.
var (
	RangeSymmetric = Range{Min: -50, Max: 50}
	RangePercent   = Range{Min: 0, Max: 100}
)

// RangePreset resolves a preset name.
func RangePreset(name string) (Range, error) {
	switch name {
	case "symmetric":
		return RangeSymmetric, nil
	case "percent":
		return RangePercent, nil
	default:
		return Range{}, fmt.Errorf("unknown range preset %q (want symmetric or percent)", name)
	}
}

// Mode selects how banks map onto control nodes.
type Mode string

const (
	// ModeBanks creates one control per bank: {prefix}slids{i}.
	ModeBanks Mode = "banks"
	// ModeLegacy creates a single control named {prefix} fed by every value.
	ModeLegacy Mode = "legacy"
)

// Options configures how a restore pass rebuilds a scope.
type Options struct {
	Range      Range
	Mode       Mode
	Layout     Layout
	DelayTicks int
	Rules      []snapshot.Rule
	ValueName  string
}

// DefaultOptions returns banks mode over [-50, 50] with a 5-tick delay.
func DefaultOptions() Options {
	return Options{
		Range:      RangeSymmetric,
		Mode:       ModeBanks,
		Layout:     DefaultLayout(),
		DelayTicks: 5,
	}
}

// Validate checks the options for internal consistency.
func (o Options) Validate() error {
	if o.Range.Min >= o.Range.Max {
		return fmt.Errorf("invalid range [%d, %d]", o.Range.Min, o.Range.Max)
	}
	switch o.Mode {
	case ModeBanks, ModeLegacy:
	default:
		return fmt.Errorf("unknown mode %q", o.Mode)
	}
	if o.DelayTicks < 0 {
		return fmt.Errorf("negative delay ticks %d", o.DelayTicks)
	}
	return nil
}
