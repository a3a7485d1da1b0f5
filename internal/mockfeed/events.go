// Package mockfeed is a development event source that speaks the dashboard
// wire contract.
package mockfeed

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/fusion/dashboard/internal/store"
	"github.com/google/uuid"
)

var (
	dexNames    = []string{"PancakeSwap", "Uniswap", "SushiSwap", "Curve", "Balancer"}
	dexStatuses = []string{store.DexScanning, store.DexSuccess, store.DexError}
	dexMessages = map[string][]string{
		store.DexScanning: {"Scanning for arbitrage...", "Refreshing pool reserves"},
		store.DexSuccess:  {"Found opportunity!", "Route executed"},
		store.DexError:    {"API timeout", "RPC rate limited"},
	}

	liqStatuses = []string{store.LiquidationFlagged, store.LiquidationLiquidated, store.LiquidationHealthy}
	liqDetails  = map[string][]string{
		store.LiquidationFlagged:    {"Health factor below 1.0", "Collateral shortfall"},
		store.LiquidationLiquidated: {"Position closed", "Collateral seized"},
		store.LiquidationHealthy:    {"No risk"},
	}

	botNames    = []string{"scanner", "arbitrage", "liquidator"}
	botStatuses = []string{"Idle", "Scanning", "Executing", "Error"}
)

// wire mirrors the JSON frame. Only the fields of the chosen kind are set.
type wire struct {
	Kind      store.Kind `json:"kind"`
	ID        string     `json:"id"`
	Timestamp string     `json:"timestamp"`

	Dex     string  `json:"dex,omitempty"`
	Status  string  `json:"status,omitempty"`
	Message *string `json:"message,omitempty"`

	Account string `json:"account,omitempty"`
	Details string `json:"details,omitempty"`

	ParameterName string `json:"parameter_name,omitempty"`
	NewValue      string `json:"new_value,omitempty"`
	Source        string `json:"source,omitempty"`

	BotName string `json:"bot_name,omitempty"`
}

// Generator produces a rotating sequence of events of all four kinds.
type Generator struct {
	rng *rand.Rand
	seq int
	now func() time.Time
}

// NewGenerator creates a generator. The same seed yields the same sequence
// apart from IDs and timestamps.
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed)), now: time.Now}
}

// Next returns the next event frame.
func (g *Generator) Next() []byte {
	kind := store.Kinds[g.seq%len(store.Kinds)]
	g.seq++

	w := wire{
		Kind:      kind,
		ID:        uuid.NewString(),
		Timestamp: g.now().UTC().Format(time.RFC3339Nano),
	}

	switch kind {
	case store.KindDex:
		w.Dex = pick(g.rng, dexNames)
		w.Status = pick(g.rng, dexStatuses)
		msg := pick(g.rng, dexMessages[w.Status])
		w.Message = &msg

	case store.KindLiquidation:
		w.Account = fmt.Sprintf("0x%040x", g.rng.Uint64())
		w.Status = pick(g.rng, liqStatuses)
		w.Details = pick(g.rng, liqDetails[w.Status])

	case store.KindParameterUpdate:
		w.Source = "ai_tuner"
		switch g.rng.Intn(3) {
		case 0:
			w.ParameterName = "slippage_tolerance"
			w.NewValue = fmt.Sprintf("%.2f", 0.1+g.rng.Float64()*0.9)
		case 1:
			w.ParameterName = "risk_level"
			w.NewValue = fmt.Sprintf("%d", 1+g.rng.Intn(10))
		default:
			w.ParameterName = "gas_price"
			w.NewValue = fmt.Sprintf("%.1f", 5+g.rng.Float64()*150)
		}

	case store.KindBotStatus:
		w.BotName = pick(g.rng, botNames)
		w.Status = pick(g.rng, botStatuses)
		if w.Status == "Error" {
			msg := "execution reverted"
			w.Message = &msg
		}
	}

	data, _ := json.Marshal(w)
	return data
}

// Malformed returns a frame that fails validation.
func (g *Generator) Malformed() []byte {
	frames := [][]byte{
		[]byte(`{"kind":"liquidation","timestamp":"` + g.now().UTC().Format(time.RFC3339) + `","account":"not-an-address","status":"flagged","details":"bad"}`),
		[]byte(`{"kind":"dex","timestamp":"yesterday","dex":"Uniswap","status":"success","message":"ok"}`),
		[]byte(`{"kind":"orderbook","timestamp":"` + g.now().UTC().Format(time.RFC3339) + `"}`),
		[]byte(`{not json`),
	}
	return frames[g.rng.Intn(len(frames))]
}

func pick(rng *rand.Rand, values []string) string {
	return values[rng.Intn(len(values))]
}
