package ui

import (
	"fmt"

	"github.com/fusion/dashboard/internal/view"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// BotStatusView lists the latest status of every bot.
type BotStatusView struct {
	list *tview.List
}

// NewBotStatusView creates a new bot status view.
func NewBotStatusView() *BotStatusView {
	list := tview.NewList().
		ShowSecondaryText(true)

	list.SetTitle(" Bot Status ").SetBorder(true)
	list.SetMainTextColor(tcell.ColorWhite)

	v := &BotStatusView{list: list}
	v.Update(nil)
	return v
}

// Widget returns the tview primitive.
func (v *BotStatusView) Widget() tview.Primitive {
	return v.list
}

// Update rebuilds the list.
func (v *BotStatusView) Update(bots []view.Bot) {
	v.list.Clear()

	if len(bots) == 0 {
		v.list.AddItem("No bot status reported yet", "", 0, nil)
		v.list.SetTitle(" Bot Status ")
		return
	}

	for _, b := range bots {
		main, secondary := formatBot(b)
		v.list.AddItem(main, secondary, 0, nil)
	}
	v.list.SetTitle(fmt.Sprintf(" Bot Status (%d) ", len(bots)))
}

// formatBot renders one bot as list text using tview color tags.
func formatBot(b view.Bot) (string, string) {
	color := "red"
	switch b.Status {
	case "Idle":
		color = "green"
	case "Scanning":
		color = "blue"
	}

	main := fmt.Sprintf("%s [%s]%s[-]", tview.Escape(b.Name), color, tview.Escape(b.Status))

	secondary := "No message"
	if b.Message != nil && *b.Message != "" {
		secondary = tview.Escape(*b.Message)
	}
	if !b.UpdatedAt.IsZero() {
		secondary += " | " + b.UpdatedAt.Local().Format("15:04:05")
	}
	return main, secondary
}
