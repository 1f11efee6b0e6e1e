package console

import (
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/ormasoftchile/paramsnap/pkg/restore"
)

var (
	colorGreen  = lipgloss.Color("42")
	colorRed    = lipgloss.Color("196")
	colorYellow = lipgloss.Color("214")
	colorCyan   = lipgloss.Color("51")
	colorDim    = lipgloss.Color("240")
)

// styles renders console marks for a specific output. Colors are dropped
// when the output is not a terminal.
type styles struct {
	ok   lipgloss.Style
	fail lipgloss.Style
	warn lipgloss.Style
	busy lipgloss.Style
	dim  lipgloss.Style
}

func newStyles(out io.Writer) styles {
	r := lipgloss.NewRenderer(out)
	return styles{
		ok:   r.NewStyle().Foreground(colorGreen).Bold(true),
		fail: r.NewStyle().Foreground(colorRed).Bold(true),
		warn: r.NewStyle().Foreground(colorYellow),
		busy: r.NewStyle().Foreground(colorCyan),
		dim:  r.NewStyle().Foreground(colorDim),
	}
}

func (s styles) state(st restore.State) string {
	switch st {
	case restore.StateFailed:
		return s.fail.Render(st.String())
	case restore.StateTriggered, restore.StateLoading, restore.StateRewriting:
		return s.busy.Render(st.String())
	default:
		return s.dim.Render(st.String())
	}
}
