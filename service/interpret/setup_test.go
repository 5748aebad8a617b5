package interpret

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brojonat/txplain/service/config"
)

func TestFromConfig(t *testing.T) {
	cfg := &config.Config{
		SuiRPCURL:           "https://fullnode.mainnet.sui.io:443",
		SuiFallbackRPCURLs:  []string{"https://sui-rpc.publicnode.com"},
		FetchMaxRetries:     2,
		FetchBaseDelay:      time.Millisecond,
		FetchAttemptTimeout: time.Second,
		HealthProbeTimeout:  time.Second,
		EnrichObjectTimeout: time.Second,
		EnrichBatchTimeout:  2 * time.Second,
	}

	engine, active, err := FromConfig(cfg, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, engine)
	assert.Equal(t, "fullnode.mainnet.sui.io:443", active.Get().Name)
}

func TestFromConfig_InvalidSource(t *testing.T) {
	_, _, err := FromConfig(&config.Config{SuiRPCURL: "not a url"}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid rpc sources")
}
