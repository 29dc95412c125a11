package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts. Write timeout is disabled on the server because
// proxied generations can legitimately run for minutes.
const (
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second

	// Applied to management routes only; the proxy route runs without a
	// request timeout so long generations can finish.
	ServerRequestTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Upstream LLM call timeout, shared by the proxy and the worker.
const UpstreamTimeout = 300 * time.Second

// Per-run price used when an agent configures neither a per-run nor a
// per-message credit price.
const DefaultRunPriceCredits = 50

// Default per-minute proxy request limit per license.
const DefaultRateLimitPerMin = 60
