package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fusion/dashboard/internal/view"
	"github.com/rivo/tview"
)

// StatsDashboardView displays stream health and counters.
type StatsDashboardView struct {
	textView *tview.TextView
}

// NewStatsDashboardView creates a new stats dashboard view.
func NewStatsDashboardView() *StatsDashboardView {
	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)

	textView.SetTitle(" Diagnostics ").SetBorder(true)

	return &StatsDashboardView{
		textView: textView,
	}
}

// Widget returns the tview primitive.
func (v *StatsDashboardView) Widget() tview.Primitive {
	return v.textView
}

// Update refreshes the stats display.
func (v *StatsDashboardView) Update(d view.Diagnostics) {
	v.textView.Clear()
	fmt.Fprint(v.textView, formatDiagnostics(d))
}

func formatDiagnostics(d view.Diagnostics) string {
	return fmt.Sprintf(`[yellow]Stream[-]
Uptime: %s
Messages: %d
Rate: %.2f msg/sec
Last Message: %s

[yellow]Events[-]
Accepted: %d %s
Rejected: %d %s
Coercion Errors: %d

[yellow]Connection[-]
Reconnects: %d
Bootstrapped: %d
`,
		formatDuration(time.Duration(d.UptimeSeconds*float64(time.Second))),
		d.MessagesReceived,
		d.MessageRate,
		formatTimeAgo(d.LastMessage),
		d.Accepted, formatBreakdown(d.AcceptedByKind),
		d.Rejected, formatBreakdown(d.RejectedByReason),
		d.CoercionErrors,
		d.ReconnectAttempts,
		d.BootstrapEvents,
	)
}

// formatBreakdown renders counts as "(a:1 b:2)" sorted by key.
func formatBreakdown(counts map[string]int64) string {
	if len(counts) == 0 {
		return ""
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s:%d", k, counts[k]))
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// formatDuration formats a duration in human-readable form.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// formatTimeAgo formats a time as "X ago".
func formatTimeAgo(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	elapsed := time.Since(t)

	if elapsed < time.Minute {
		return fmt.Sprintf("%.0fs ago", elapsed.Seconds())
	}
	if elapsed < time.Hour {
		return fmt.Sprintf("%.0fm ago", elapsed.Minutes())
	}
	if elapsed < 24*time.Hour {
		return fmt.Sprintf("%.0fh ago", elapsed.Hours())
	}
	return fmt.Sprintf("%.0fd ago", elapsed.Hours()/24)
}
