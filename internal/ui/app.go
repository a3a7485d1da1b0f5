// Package ui provides terminal user interface components.
package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/fusion/dashboard/internal/view"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"golang.org/x/time/rate"
)

// App is the main TUI application.
type App struct {
	app    *tview.Application
	layout *tview.Flex

	// Views
	banner          *StatusBannerView
	gauges          *GaugesView
	bots            *BotStatusView
	statsDashboard  *StatsDashboardView
	dexFeed         *FeedView
	liquidationFeed *FeedView
	protocols       *ProtocolStatsView

	adapter *view.Adapter
	refresh time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates a new TUI application. Views redraw on every change, at most
// once per refresh interval, and on every tick of it.
func NewApp(adapter *view.Adapter, refresh time.Duration) *App {
	ctx, cancel := context.WithCancel(context.Background())
	if refresh <= 0 {
		refresh = 500 * time.Millisecond
	}

	app := &App{
		app:     tview.NewApplication(),
		adapter: adapter,
		refresh: refresh,
		ctx:     ctx,
		cancel:  cancel,
	}

	// Initialize views
	app.banner = NewStatusBannerView()
	app.gauges = NewGaugesView()
	app.bots = NewBotStatusView()
	app.statsDashboard = NewStatsDashboardView()
	app.dexFeed = NewDexFeedView()
	app.liquidationFeed = NewLiquidationFeedView()
	app.protocols = NewProtocolStatsView()

	app.setupLayout()
	app.setupKeyboard()

	return app
}

// setupLayout creates the panel layout.
func (a *App) setupLayout() {
	// Top row: Gauges | Bot Status | Diagnostics
	topRow := tview.NewFlex().
		AddItem(a.gauges.Widget(), 0, 2, false).
		AddItem(a.bots.Widget(), 0, 1, false).
		AddItem(a.statsDashboard.Widget(), 0, 1, false)

	// Middle row: DEX scans | Liquidations
	middleRow := tview.NewFlex().
		AddItem(a.dexFeed.Widget(), 0, 1, false).
		AddItem(a.liquidationFeed.Widget(), 0, 1, false)

	a.layout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.banner.Widget(), 1, 0, false).
		AddItem(topRow, 0, 2, false).
		AddItem(middleRow, 0, 3, false).
		AddItem(a.protocols.Widget(), 0, 1, false)

	a.app.SetRoot(a.layout, true)
}

// setupKeyboard configures keyboard shortcuts.
func (a *App) setupKeyboard() {
	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlC:
			a.Stop()
			return nil
		case tcell.KeyRune:
			switch event.Rune() {
			case 'q', 'Q':
				a.Stop()
				return nil
			case 'r', 'R':
				a.draw()
				return nil
			}
		}
		return event
	})
}

// Run starts the TUI application (blocking).
func (a *App) Run() error {
	go a.updateLoop()

	if err := a.app.Run(); err != nil {
		return fmt.Errorf("app run failed: %w", err)
	}
	return nil
}

// Stop gracefully stops the application.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}

// Done is closed once the application has been stopped.
func (a *App) Done() <-chan struct{} {
	return a.ctx.Done()
}

// updateLoop redraws on adapter notifications and on a fixed tick.
func (a *App) updateLoop() {
	changes, unsubscribe := a.adapter.Subscribe()
	defer unsubscribe()

	ticker := time.NewTicker(a.refresh)
	defer ticker.Stop()
	limiter := rate.NewLimiter(rate.Every(a.refresh), 1)

	a.draw()
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-changes:
			if limiter.Allow() {
				a.draw()
			}
		case <-ticker.C:
			a.draw()
		}
	}
}

// draw renders one snapshot into every view.
func (a *App) draw() {
	snap := a.adapter.Snapshot()

	a.app.QueueUpdateDraw(func() {
		a.apply(snap)
	})
}

func (a *App) apply(snap view.Snapshot) {
	a.banner.Update(snap.Connection)
	a.gauges.Update(snap.Gauges)
	a.bots.Update(snap.Bots)
	a.statsDashboard.Update(snap.Diagnostics)
	a.dexFeed.Update(snap.DexFeed)
	a.liquidationFeed.Update(snap.LiquidationFeed)
	a.protocols.Update(snap.ProtocolStats)
}
