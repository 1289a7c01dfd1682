package config

import (
	"github.com/sigmod24/hybridann/internal/dispatcher"
	"github.com/sigmod24/hybridann/internal/vamana"
)

// ToBuildParams converts the build tunables into a vamana.BuildParams,
// defaulting Workers to 0 (GOMAXPROCS) unless the caller overrides it.
func (c *Config) ToBuildParams() vamana.BuildParams {
	return vamana.BuildParams{
		R:     c.Build.R,
		L:     c.Build.L,
		Alpha: c.Build.Alpha,
		Seed:  c.Build.Seed,
	}
}

// ToQueryParams converts the query tunables into a vamana.QueryParams.
func (c *Config) ToQueryParams() vamana.QueryParams {
	return vamana.QueryParams{
		K:           c.Query.K,
		Beam:        c.Query.Beam,
		Cut:         c.Query.Cut,
		Limit:       c.Query.Limit,
		DegreeLimit: c.Query.DegreeLimit,
	}
}

// ToDispatcherParams bundles Build/Query/Index into a
// dispatcher.Params ready for dispatcher.Build.
func (c *Config) ToDispatcherParams() dispatcher.Params {
	return dispatcher.Params{
		Build:                    c.ToBuildParams(),
		Query:                    c.ToQueryParams(),
		Cutoff:                   c.Index.Cutoff,
		ExhaustiveFallbackCutoff: c.Index.ExhaustiveFallbackCutoff,
	}
}
