package view

import (
	"fmt"
	"math"

	"github.com/fusion/dashboard/internal/store"
)

// Parameters backing the gauges.
const (
	ParamSlippage = "slippage_tolerance"
	ParamRisk     = "risk_level"
	ParamGas      = "gas_price"
)

// GasGaugeMaxGwei is the gas price shown as a full gauge.
const GasGaugeMaxGwei = 200.0

// Gauge is one dial. Percent is clamped to [0, 100].
type Gauge struct {
	Label   string  `json:"label"`
	Set     bool    `json:"set"`
	Value   float64 `json:"value"`
	Percent float64 `json:"percent"`
	Display string  `json:"display"`
}

// Gauges are the three dials on the dashboard.
type Gauges struct {
	Slippage Gauge `json:"slippage"`
	Risk     Gauge `json:"risk"`
	Gas      Gauge `json:"gas"`
}

func gaugesFor(params *store.ParameterState) Gauges {
	g := Gauges{
		Slippage: Gauge{Label: "Slippage Tolerance", Display: "--"},
		Risk:     Gauge{Label: "Risk Level", Display: "--"},
		Gas:      Gauge{Label: "Gas Price", Display: "--"},
	}

	if v, ok := numericParam(params, ParamSlippage); ok {
		g.Slippage.Set, g.Slippage.Value = true, v
		g.Slippage.Percent = clampPercent(v * 100)
		g.Slippage.Display = fmt.Sprintf("%.2f%%", v)
	}
	if v, ok := numericParam(params, ParamRisk); ok {
		g.Risk.Set, g.Risk.Value = true, v
		g.Risk.Percent = clampPercent(v * 10)
		g.Risk.Display = fmt.Sprintf("%.0f", v)
	}
	if v, ok := numericParam(params, ParamGas); ok {
		g.Gas.Set, g.Gas.Value = true, v
		g.Gas.Percent = clampPercent(v / GasGaugeMaxGwei * 100)
		g.Gas.Display = fmt.Sprintf("%.1f Gwei", v)
	}
	return g
}

func numericParam(params *store.ParameterState, name string) (float64, bool) {
	v, ok := params.Get(name)
	if !ok {
		return 0, false
	}
	return v.Float()
}

func clampPercent(p float64) float64 {
	if math.IsNaN(p) {
		return 0
	}
	return math.Min(100, math.Max(0, p))
}
