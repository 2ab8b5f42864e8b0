package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("reference year required", func(t *testing.T) {
		t.Setenv("REPORT_REFERENCE_YEAR", "")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("defaults", func(t *testing.T) {
		t.Setenv("REPORT_REFERENCE_YEAR", "2025")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 2025, cfg.Report.ReferenceYear)
		assert.Equal(t, 10, cfg.Report.TopProducts)
		assert.Equal(t, "그로스", cfg.Report.ProgramToken)
		assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
		assert.Equal(t, int64(32<<20), cfg.Server.MaxUploadBytes())
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("REPORT_REFERENCE_YEAR", "2024")
		t.Setenv("SERVER_PORT", "9000")
		t.Setenv("SERVER_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
		t.Setenv("METRICS_ENABLED", "false")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "localhost:9000", cfg.Server.Addr())
		assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
		assert.False(t, cfg.Observability.MetricsEnabled)
	})

	t.Run("invalid upload limit", func(t *testing.T) {
		t.Setenv("REPORT_REFERENCE_YEAR", "2025")
		t.Setenv("SERVER_MAX_UPLOAD_MB", "0")
		_, err := Load()
		assert.Error(t, err)
	})
}
