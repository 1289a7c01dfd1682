// Package config holds the build/query/index/server tunables: a
// Default(), a LoadFromEnv() overlay, and a Validate() pass.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds every tunable the engine needs at build or query time.
type Config struct {
	Build  BuildConfig
	Query  QueryConfig
	Index  IndexConfig
	Server ServerConfig
}

// BuildConfig holds Vamana build-time tunables.
type BuildConfig struct {
	R     int     // max out-degree (default 64)
	L     int     // build-time beam width (default 500)
	Alpha float64 // robust-prune relaxation (default 1.175)
	Seed  int64   // build RNG seed for the randomized insertion order
}

// QueryConfig holds query-time beam search tunables.
type QueryConfig struct {
	K           int     // results per query (default 100)
	Beam        int     // query-time beam width (default 500)
	Cut         float64 // frontier admission/termination slack (default 1.35)
	Limit       int     // distance-evaluation budget (default 1e7)
	DegreeLimit int     // per-hop neighbor cap (default 100)
}

// IndexConfig holds dispatcher-level thresholds.
type IndexConfig struct {
	Cutoff                   int     // label/window Big-vs-Naive threshold (default 50000)
	ExhaustiveFallbackCutoff float64 // normalized timestamp-width threshold (default 0.25)
}

// ServerConfig holds the online-serving HTTP tunables.
type ServerConfig struct {
	Host            string        // default "0.0.0.0"
	Port            int           // default 8443
	RequestTimeout  time.Duration // default 30s
	ShutdownTimeout time.Duration // default 10s
	JWTSecret       string        // HMAC signing key for bearer auth
	RateLimitRPS    float64       // per-client token bucket refill rate
	RateLimitBurst  int           // per-client token bucket burst size
}

// Default returns the engine's baseline configuration.
func Default() *Config {
	return &Config{
		Build: BuildConfig{
			R:     64,
			L:     500,
			Alpha: 1.175,
			Seed:  1,
		},
		Query: QueryConfig{
			K:           100,
			Beam:        500,
			Cut:         1.35,
			Limit:       10_000_000,
			DegreeLimit: 100,
		},
		Index: IndexConfig{
			Cutoff:                   50_000,
			ExhaustiveFallbackCutoff: 0.25,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8443,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimitRPS:    50,
			RateLimitBurst:  100,
		},
	}
}

// LoadFromEnv overlays HYBRIDANN_* environment variables onto Default().
func LoadFromEnv() *Config {
	cfg := Default()

	if r := os.Getenv("HYBRIDANN_BUILD_R"); r != "" {
		if v, err := strconv.Atoi(r); err == nil {
			cfg.Build.R = v
		}
	}
	if l := os.Getenv("HYBRIDANN_BUILD_L"); l != "" {
		if v, err := strconv.Atoi(l); err == nil {
			cfg.Build.L = v
		}
	}
	if a := os.Getenv("HYBRIDANN_BUILD_ALPHA"); a != "" {
		if v, err := strconv.ParseFloat(a, 64); err == nil {
			cfg.Build.Alpha = v
		}
	}
	if s := os.Getenv("HYBRIDANN_BUILD_SEED"); s != "" {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			cfg.Build.Seed = v
		}
	}

	if k := os.Getenv("HYBRIDANN_QUERY_K"); k != "" {
		if v, err := strconv.Atoi(k); err == nil {
			cfg.Query.K = v
		}
	}
	if b := os.Getenv("HYBRIDANN_QUERY_BEAM"); b != "" {
		if v, err := strconv.Atoi(b); err == nil {
			cfg.Query.Beam = v
		}
	}
	if c := os.Getenv("HYBRIDANN_QUERY_CUT"); c != "" {
		if v, err := strconv.ParseFloat(c, 64); err == nil {
			cfg.Query.Cut = v
		}
	}
	if lim := os.Getenv("HYBRIDANN_QUERY_LIMIT"); lim != "" {
		if v, err := strconv.Atoi(lim); err == nil {
			cfg.Query.Limit = v
		}
	}
	if dl := os.Getenv("HYBRIDANN_QUERY_DEGREE_LIMIT"); dl != "" {
		if v, err := strconv.Atoi(dl); err == nil {
			cfg.Query.DegreeLimit = v
		}
	}

	if co := os.Getenv("HYBRIDANN_INDEX_CUTOFF"); co != "" {
		if v, err := strconv.Atoi(co); err == nil {
			cfg.Index.Cutoff = v
		}
	}
	if efc := os.Getenv("HYBRIDANN_INDEX_EXHAUSTIVE_FALLBACK_CUTOFF"); efc != "" {
		if v, err := strconv.ParseFloat(efc, 64); err == nil {
			cfg.Index.ExhaustiveFallbackCutoff = v
		}
	}

	if host := os.Getenv("HYBRIDANN_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("HYBRIDANN_SERVER_PORT"); port != "" {
		if v, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = v
		}
	}
	if timeout := os.Getenv("HYBRIDANN_SERVER_REQUEST_TIMEOUT"); timeout != "" {
		if v, err := time.ParseDuration(timeout); err == nil {
			cfg.Server.RequestTimeout = v
		}
	}
	if secret := os.Getenv("HYBRIDANN_SERVER_JWT_SECRET"); secret != "" {
		cfg.Server.JWTSecret = secret
	}
	if rps := os.Getenv("HYBRIDANN_SERVER_RATE_LIMIT_RPS"); rps != "" {
		if v, err := strconv.ParseFloat(rps, 64); err == nil {
			cfg.Server.RateLimitRPS = v
		}
	}
	if burst := os.Getenv("HYBRIDANN_SERVER_RATE_LIMIT_BURST"); burst != "" {
		if v, err := strconv.Atoi(burst); err == nil {
			cfg.Server.RateLimitBurst = v
		}
	}

	return cfg
}

// Validate checks that every tunable is in a sane range.
func (c *Config) Validate() error {
	if c.Build.R < 1 {
		return fmt.Errorf("invalid build R: %d (must be > 0)", c.Build.R)
	}
	if c.Build.L < c.Build.R {
		return fmt.Errorf("invalid build L: %d (must be >= R=%d)", c.Build.L, c.Build.R)
	}
	if c.Build.Alpha < 1.0 {
		return fmt.Errorf("invalid build alpha: %v (must be >= 1.0)", c.Build.Alpha)
	}

	if c.Query.K < 1 {
		return fmt.Errorf("invalid query k: %d (must be > 0)", c.Query.K)
	}
	if c.Query.Beam < c.Query.K {
		return fmt.Errorf("invalid query beam: %d (must be >= k=%d)", c.Query.Beam, c.Query.K)
	}
	if c.Query.Cut < 1.0 {
		return fmt.Errorf("invalid query cut: %v (must be >= 1.0)", c.Query.Cut)
	}
	if c.Query.Limit < 1 {
		return fmt.Errorf("invalid query limit: %d (must be > 0)", c.Query.Limit)
	}

	if c.Index.Cutoff < 1 {
		return fmt.Errorf("invalid index cutoff: %d (must be > 0)", c.Index.Cutoff)
	}
	if c.Index.ExhaustiveFallbackCutoff < 0 || c.Index.ExhaustiveFallbackCutoff > 1 {
		return fmt.Errorf("invalid exhaustive fallback cutoff: %v (must be in [0,1])", c.Index.ExhaustiveFallbackCutoff)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.RateLimitRPS <= 0 {
		return fmt.Errorf("invalid server rate limit rps: %v (must be > 0)", c.Server.RateLimitRPS)
	}

	return nil
}

// Address returns the server's listen address (host:port).
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
