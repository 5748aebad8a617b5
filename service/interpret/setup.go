package interpret

import (
	"fmt"
	"log/slog"

	"github.com/brojonat/txplain/service/config"
	"github.com/brojonat/txplain/service/enrich"
	"github.com/brojonat/txplain/service/metrics"
	"github.com/brojonat/txplain/service/sui"
)

// FromConfig builds an Engine over the configured RPC sources and returns
// it with an ActiveSource that starts at the primary.
func FromConfig(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) (*Engine, *sui.ActiveSource, error) {
	primary, alternates, err := cfg.Sources()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid rpc sources: %w", err)
	}
	fetcher := sui.NewFetcher(primary, alternates, sui.NewRPCClient, cfg.FetchConfig(), m, logger)
	enricher := enrich.New(cfg.EnrichConfig(), m, logger)
	return NewEngine(fetcher, enricher, nil, m, logger), sui.NewActiveSource(primary), nil
}
