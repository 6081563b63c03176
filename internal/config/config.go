// Package config defines the global configuration structure for the ClimaRisk
// service. Configuration is loaded once at process initialization and is
// immutable thereafter. It follows 12-Factor App principles by strictly
// separating code from configuration.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> Struct Defaults (Lowest)
//
// Any missing required value or invalid format causes the application to fail
// immediately on startup (fail fast).
package config

import (
	"time"

	"climarisk/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used throughout configuration to prevent accidental logging of sensitive
// values.
type SecretString = types.SecretString

// Config is the top-level configuration struct for the ClimaRisk service.
// It is populated once during process initialization and never modified.
// Sub-components receive only the specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"climarisk-api"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Domain Configurations
	Server   ServerConfig
	Provider ProviderConfig
	Features FeatureConfig
	Models   ModelConfig
	Risk     RiskConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port               string        `envconfig:"PORT" default:"8080"`
	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"45s"`
	CorsAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// ProviderConfig holds the outbound weather data provider endpoints and
// credentials. The historical source is NASA-POWER-shaped; the live forecast
// source is OpenWeatherMap-shaped. Provider calls are single-attempt with a
// bounded timeout; failures fall back to the seasonal statistical path.
type ProviderConfig struct {
	PowerBaseURL   string `envconfig:"POWER_BASE_URL" default:"https://power.larc.nasa.gov/api/temporal/daily/point" validate:"required,url"`
	PowerCommunity string `envconfig:"POWER_COMMUNITY" default:"AG"`

	ForecastBaseURL string       `envconfig:"FORECAST_BASE_URL" default:"https://api.openweathermap.org/data/2.5" validate:"required,url"`
	ForecastAPIKey  SecretString `envconfig:"FORECAST_API_KEY"`

	Timeout time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"30s" validate:"min=1s,max=60s"`

	// LookbackDays is the historical span fetched before a target date to
	// feed lag and rolling features.
	LookbackDays int `envconfig:"LOOKBACK_DAYS" default:"60" validate:"min=30,max=366"`

	// LiveHorizonDays is the number of days ahead still served by the live
	// forecast provider. Beyond it the historical/statistical path is used.
	LiveHorizonDays int `envconfig:"LIVE_HORIZON_DAYS" default:"5" validate:"min=1,max=5"`
}

// FeatureConfig holds the lag distances and rolling window sizes used by the
// derived feature builder. These mirror the offsets the models were trained
// with; changing them invalidates trained artifacts.
type FeatureConfig struct {
	LagDays        []int `envconfig:"FEATURE_LAG_DAYS" default:"1,3,7,14,30" validate:"min=1,dive,min=1"`
	RollingWindows []int `envconfig:"FEATURE_ROLLING_WINDOWS" default:"3,7,14,30" validate:"min=1,dive,min=2"`
}

// ModelConfig holds the model artifact directory.
type ModelConfig struct {
	Dir string `envconfig:"MODEL_DIR" default:"./models" validate:"required"`
}

// RiskConfig holds the ascending probability thresholds that map the maximum
// per-target probability onto risk levels. Thresholds are deployment
// configuration, not business logic; validation enforces the ascending order.
type RiskConfig struct {
	Low      float64 `envconfig:"RISK_THRESHOLD_LOW" default:"0.2" validate:"gt=0,lt=1"`
	Moderate float64 `envconfig:"RISK_THRESHOLD_MODERATE" default:"0.4" validate:"gtfield=Low,lt=1"`
	High     float64 `envconfig:"RISK_THRESHOLD_HIGH" default:"0.6" validate:"gtfield=Moderate,lt=1"`
	Extreme  float64 `envconfig:"RISK_THRESHOLD_EXTREME" default:"0.8" validate:"gtfield=High,lt=1"`
}
