package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/fusion/dashboard/internal/view"
	"github.com/rivo/tview"
)

const gaugeWidth = 20

// GaugesView draws the slippage, risk and gas dials as bars.
type GaugesView struct {
	textView *tview.TextView
}

// NewGaugesView creates a new gauges view.
func NewGaugesView() *GaugesView {
	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)

	textView.SetTitle(" Parameters ").SetBorder(true)

	return &GaugesView{textView: textView}
}

// Widget returns the tview primitive.
func (v *GaugesView) Widget() tview.Primitive {
	return v.textView
}

// Update redraws the gauges.
func (v *GaugesView) Update(g view.Gauges) {
	v.textView.Clear()
	for _, gauge := range []view.Gauge{g.Slippage, g.Risk, g.Gas} {
		fmt.Fprintln(v.textView, renderGauge(gauge))
	}
}

// renderGauge formats one gauge as "Label  [bar] value".
func renderGauge(g view.Gauge) string {
	filled := 0
	if g.Set {
		filled = int(math.Round(g.Percent / 100 * gaugeWidth))
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", gaugeWidth-filled)

	color := "green"
	switch {
	case !g.Set:
		color = "gray"
	case g.Percent >= 80:
		color = "red"
	case g.Percent >= 50:
		color = "yellow"
	}
	return fmt.Sprintf("%-19s [%s]%s[-] %s", g.Label, color, bar, g.Display)
}
