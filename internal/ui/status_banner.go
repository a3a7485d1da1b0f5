package ui

import (
	"fmt"
	"time"

	"github.com/fusion/dashboard/internal/ingest"
	"github.com/fusion/dashboard/internal/view"
	"github.com/rivo/tview"
)

// StatusBannerView is the one-line connection indicator across the top.
type StatusBannerView struct {
	textView *tview.TextView
}

// NewStatusBannerView creates a new status banner.
func NewStatusBannerView() *StatusBannerView {
	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)

	v := &StatusBannerView{textView: textView}
	v.Update(view.ConnectionView{Indicator: ingest.IndicatorStopped})
	return v
}

// Widget returns the tview primitive.
func (v *StatusBannerView) Widget() tview.Primitive {
	return v.textView
}

// Update redraws the banner.
func (v *StatusBannerView) Update(c view.ConnectionView) {
	v.textView.Clear()
	fmt.Fprint(v.textView, formatBanner(c))
}

func formatBanner(c view.ConnectionView) string {
	color := "red"
	switch c.Indicator {
	case ingest.IndicatorConnected:
		color = "green"
	case ingest.IndicatorConnecting, ingest.IndicatorReconnecting:
		color = "yellow"
	}

	text := fmt.Sprintf(" [::b]FUSION[::-]  [%s]● %s[-]", color, c.Indicator)
	if c.Indicator == ingest.IndicatorReconnecting {
		text += fmt.Sprintf("  retry #%d", c.RetryCount)
		if c.NextRetryMs > 0 {
			text += fmt.Sprintf(" in %s", (time.Duration(c.NextRetryMs) * time.Millisecond).Round(100*time.Millisecond))
		}
	}
	if c.LastError != "" && c.Indicator != ingest.IndicatorConnected {
		text += "  [red]" + tview.Escape(c.LastError) + "[-]"
	}
	text += "   [gray]q: quit  r: refresh[-]"
	return text
}
