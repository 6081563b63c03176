package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Environment)
	assert.Equal(t, "climarisk-api", cfg.Service)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 45*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.CorsAllowedOrigins)

	assert.Equal(t, "AG", cfg.Provider.PowerCommunity)
	assert.Equal(t, 60, cfg.Provider.LookbackDays)
	assert.Equal(t, 5, cfg.Provider.LiveHorizonDays)
	assert.Equal(t, 30*time.Second, cfg.Provider.Timeout)

	assert.Equal(t, []int{1, 3, 7, 14, 30}, cfg.Features.LagDays)
	assert.Equal(t, []int{3, 7, 14, 30}, cfg.Features.RollingWindows)

	assert.Equal(t, 0.2, cfg.Risk.Low)
	assert.Equal(t, 0.4, cfg.Risk.Moderate)
	assert.Equal(t, 0.6, cfg.Risk.High)
	assert.Equal(t, 0.8, cfg.Risk.Extreme)
}

func TestLoadConfigEnforcesUTC(t *testing.T) {
	_, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, time.UTC, time.Local)
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOOKBACK_DAYS", "90")
	t.Setenv("FEATURE_LAG_DAYS", "1,7")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 90, cfg.Provider.LookbackDays)
	assert.Equal(t, []int{1, 7}, cfg.Features.LagDays)
}

func TestLoadConfigRejectsInvalidEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "production-ish")

	_, err := LoadConfig()
	require.Error(t, err)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ErrValidation, cfgErr.Type)
}

func TestLoadConfigRejectsUnorderedRiskThresholds(t *testing.T) {
	t.Setenv("RISK_THRESHOLD_MODERATE", "0.1")

	_, err := LoadConfig()
	require.Error(t, err)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ErrValidation, cfgErr.Type)
}

func TestLoadConfigRejectsMalformedDuration(t *testing.T) {
	t.Setenv("PROVIDER_TIMEOUT", "not-a-duration")

	_, err := LoadConfig()
	require.Error(t, err)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ErrParsing, cfgErr.Type)
}

func TestLoadConfigRejectsOutOfRangeHorizon(t *testing.T) {
	t.Setenv("LIVE_HORIZON_DAYS", "14")

	_, err := LoadConfig()
	require.Error(t, err)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ErrValidation, cfgErr.Type)
}
