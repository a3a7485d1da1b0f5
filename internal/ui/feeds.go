package ui

import (
	"fmt"

	"github.com/fusion/dashboard/internal/store"
	"github.com/fusion/dashboard/internal/view"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// Empty-state text for the feeds.
const (
	EmptyDexFeed         = "No DEX scan events yet..."
	EmptyLiquidationFeed = "No liquidation events yet..."
)

// FeedView displays one event feed, newest first.
type FeedView struct {
	table   *tview.Table
	title   string
	headers []string
	empty   string
	maxRows int
}

// NewDexFeedView creates the DEX scan feed.
func NewDexFeedView() *FeedView {
	return newFeedView("DEX Scans", []string{"Time", "DEX", "Status", "Message"}, EmptyDexFeed)
}

// NewLiquidationFeedView creates the liquidation feed.
func NewLiquidationFeedView() *FeedView {
	return newFeedView("Liquidations", []string{"Time", "Account", "Status", "Details"}, EmptyLiquidationFeed)
}

func newFeedView(title string, headers []string, empty string) *FeedView {
	table := tview.NewTable().
		SetBorders(false).
		SetFixed(1, 0)

	table.SetTitle(" " + title + " ").SetBorder(true)

	v := &FeedView{
		table:   table,
		title:   title,
		headers: headers,
		empty:   empty,
		maxRows: store.DefaultFeedCapacity,
	}
	v.Update(nil)
	return v
}

// Widget returns the tview primitive.
func (v *FeedView) Widget() tview.Primitive {
	return v.table
}

// Update redraws the table from feed rows.
func (v *FeedView) Update(rows []view.FeedEntry) {
	v.table.Clear()

	for col, header := range v.headers {
		cell := tview.NewTableCell(header).
			SetTextColor(tview.Styles.SecondaryTextColor).
			SetAlign(tview.AlignLeft).
			SetSelectable(false)
		v.table.SetCell(0, col, cell)
	}

	if len(rows) == 0 {
		v.table.SetCell(1, 0, tview.NewTableCell(v.empty).
			SetAlign(tview.AlignLeft).
			SetExpansion(1))
		v.table.SetTitle(fmt.Sprintf(" %s ", v.title))
		return
	}

	if len(rows) > v.maxRows {
		rows = rows[:v.maxRows]
	}

	for i, r := range rows {
		row := i + 1

		subject := r.Subject
		if r.Kind == string(store.KindLiquidation) {
			subject = truncateAddress(subject)
		}

		// backend text may contain brackets that tview would read as tags
		cells := []string{
			r.Timestamp.Local().Format("15:04:05"),
			tview.Escape(subject),
			tview.Escape(r.Status),
			tview.Escape(r.Detail),
		}
		for col, text := range cells {
			cell := tview.NewTableCell(text).SetAlign(tview.AlignLeft)
			if col == 2 {
				cell.SetTextColor(statusColor(r.Status))
			}
			v.table.SetCell(row, col, cell)
		}
	}

	v.table.SetTitle(fmt.Sprintf(" %s (%d) ", v.title, len(rows)))
}

// statusColor colors feed statuses.
func statusColor(status string) tcell.Color {
	switch status {
	case store.DexSuccess, store.LiquidationHealthy:
		return tcell.ColorGreen
	case store.DexScanning:
		return tcell.ColorBlue
	case store.LiquidationFlagged:
		return tcell.ColorYellow
	case store.DexError, store.LiquidationLiquidated:
		return tcell.ColorRed
	default:
		return tcell.ColorWhite
	}
}

// truncateAddress truncates a wallet address for display.
func truncateAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
