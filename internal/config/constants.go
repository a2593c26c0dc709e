package config

import "time"

// Application constants shared across the binaries.
const (
	// Application Info
	AppName    = "CardPulse"
	AppVersion = "1.0.0"

	envPrefix         = "CARDPULSE"
	defaultConfigFile = "config.yaml"

	// Aggregation defaults
	DefaultTrimPercent   = 0.4
	DefaultMinSampleSize = 4
	DefaultWorkers       = 4

	// MaxListingAgeDays drops listings whose claimed creation date is
	// older than ten years; those are bad upstream data, not old cards.
	MaxListingAgeDays = 3650

	// PublishCurrency is the currency every published statistic is
	// rebased to before aggregation.
	PublishCurrency = "USD"

	// FXAnchorCurrency is the currency the default rate feed quotes
	// against.
	FXAnchorCurrency = "CAD"

	// Network Timeouts
	DefaultHTTPTimeout = 30 * time.Second
	SoldFetchTimeout   = 120 * time.Second

	// API Endpoints (internal)
	APIBasePath     = "/api"
	RecordsEndpoint = "/api/records"
	SuggestEndpoint = "/api/suggest"
	HealthEndpoint  = "/healthz"
	MetricsEndpoint = "/metrics"

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	// File Paths (relative to working directory)
	DefaultDataDir   = "data"
	DefaultLogsDir   = "logs"
	DefaultExportDir = "data/exports"

	// SportsCardCategoryID is the marketplace category searches are
	// constrained to.
	SportsCardCategoryID = "212"
)
