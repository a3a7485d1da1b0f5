package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fusion/dashboard/internal/store"
)

// DashboardPath is the bootstrap endpoint relative to the REST base URL.
const DashboardPath = "/api/dashboard"

// Dashboard is the validated bootstrap document. Feed entries are listed newest first.
type Dashboard struct {
	ProtocolStats   []store.ProtocolStat
	DexFeed         []store.Event
	LiquidationFeed []store.Event

	// Rejected counts feed entries that failed validation
	Rejected int
}

type dashboardDoc struct {
	ProtocolStats   []store.ProtocolStat         `json:"protocol_stats"`
	DexFeed         []map[string]json.RawMessage `json:"dex_feed"`
	LiquidationFeed []map[string]json.RawMessage `json:"liquidation_feed"`
}

// BootstrapClient fetches the initial dashboard state over REST.
type BootstrapClient struct {
	baseURL string
	client  *http.Client
}

// NewBootstrapClient creates a client for the given REST base URL.
func NewBootstrapClient(baseURL string) *BootstrapClient {
	return &BootstrapClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Fetch downloads and validates the bootstrap document.
func (c *BootstrapClient) Fetch(ctx context.Context) (*Dashboard, error) {
	url := c.baseURL + DashboardPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch dashboard: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var doc dashboardDoc
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode dashboard: %w", err)
	}

	dash := &Dashboard{ProtocolStats: doc.ProtocolStats}
	dash.DexFeed, dash.Rejected = validateEntries(store.KindDex, doc.DexFeed, dash.Rejected)
	dash.LiquidationFeed, dash.Rejected = validateEntries(store.KindLiquidation, doc.LiquidationFeed, dash.Rejected)

	slog.Info("bootstrap_fetched",
		"url", url,
		"protocols", len(dash.ProtocolStats),
		"dex_events", len(dash.DexFeed),
		"liquidation_events", len(dash.LiquidationFeed),
		"rejected", dash.Rejected,
	)
	return dash, nil
}

// validateEntries runs kind-less feed entries through Validate with kind injected.
func validateEntries(kind store.Kind, entries []map[string]json.RawMessage, rejected int) ([]store.Event, int) {
	events := make([]store.Event, 0, len(entries))
	tag, _ := json.Marshal(string(kind))

	for i, entry := range entries {
		if entry == nil {
			entry = map[string]json.RawMessage{}
		}
		if _, ok := entry["kind"]; !ok {
			entry["kind"] = tag
		}
		raw, err := json.Marshal(entry)
		if err != nil {
			rejected++
			continue
		}
		ev, err := Validate(raw)
		if err != nil {
			slog.Debug("bootstrap_entry_rejected", "kind", kind, "index", i, "error", err)
			rejected++
			continue
		}
		events = append(events, ev)
	}
	return events, rejected
}
