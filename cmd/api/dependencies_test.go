package api

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/channel-profit/pkg/config"
)

func testConfig(metrics bool) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:               "localhost",
			Port:               0,
			RateLimitPerSecond: 100,
			RateLimitBurst:     100,
			AllowedOrigins:     []string{"*"},
			MaxUploadMB:        1,
		},
		Report: config.ReportConfig{
			ReferenceYear:  2025,
			TopProducts:    10,
			ProgramToken:   "그로스",
			ProgramChannel: "쿠팡 로켓그로스",
		},
		Observability: config.ObservabilityConfig{MetricsEnabled: metrics, ServiceName: "test"},
	}
}

func TestRouter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("metrics enabled", func(t *testing.T) {
		deps, err := InitDependencies(testConfig(true), logger)
		require.NoError(t, err)
		srv := httptest.NewServer(deps.Router())
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/healthz")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		resp, err = http.Get(srv.URL + "/metrics")
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(body), "channel_profit_http_requests_total")
	})

	t.Run("metrics disabled", func(t *testing.T) {
		deps, err := InitDependencies(testConfig(false), logger)
		require.NoError(t, err)
		assert.Nil(t, deps.Metrics)
		srv := httptest.NewServer(deps.Router())
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/metrics")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
