package ui

import (
	"fmt"
	"sort"

	"github.com/fusion/dashboard/internal/store"
	"github.com/rivo/tview"
)

// ProtocolStatsView displays per-protocol tuning from the bootstrap document.
type ProtocolStatsView struct {
	table *tview.Table
}

// NewProtocolStatsView creates a new protocol stats view.
func NewProtocolStatsView() *ProtocolStatsView {
	table := tview.NewTable().
		SetBorders(false).
		SetFixed(1, 0)

	table.SetTitle(" Protocols ").SetBorder(true)

	v := &ProtocolStatsView{table: table}
	v.Update(nil)
	return v
}

// Widget returns the tview primitive.
func (v *ProtocolStatsView) Widget() tview.Primitive {
	return v.table
}

// Update refreshes the table, highest weight first.
func (v *ProtocolStatsView) Update(stats []store.ProtocolStat) {
	v.table.Clear()

	headers := []string{"Protocol", "Threshold", "Interval", "Weight", "AI"}
	for col, header := range headers {
		cell := tview.NewTableCell(header).
			SetTextColor(tview.Styles.SecondaryTextColor).
			SetAlign(tview.AlignLeft).
			SetSelectable(false).
			SetExpansion(1)
		v.table.SetCell(0, col, cell)
	}

	if len(stats) == 0 {
		v.table.SetCell(1, 0, tview.NewTableCell("No protocol stats loaded").
			SetAlign(tview.AlignLeft).
			SetExpansion(1))
		return
	}

	sorted := make([]store.ProtocolStat, len(stats))
	copy(sorted, stats)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Weight > sorted[j].Weight
	})

	for i, p := range sorted {
		ai := "no"
		if p.AITuned {
			ai = "[green]yes[-]"
		}
		cells := []string{
			tview.Escape(p.Name),
			fmt.Sprintf("%.2f", p.ProfitThreshold),
			fmt.Sprintf("%ds", p.ScanInterval),
			fmt.Sprintf("%.1f", p.Weight),
			ai,
		}
		for col, text := range cells {
			v.table.SetCell(i+1, col, tview.NewTableCell(text).SetAlign(tview.AlignLeft))
		}
	}
}
