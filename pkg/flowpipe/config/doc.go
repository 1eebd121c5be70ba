/*
Package config provides typed extraction from the free-form config block of
a flow definition.

A flow definition's config section is schemaless by design (flows attach
whatever knobs their agents understand), so it decodes to map[string]any.
Config wraps that map and handles missing keys and type mismatches by
returning caller-supplied defaults:

	cfg := config.New(map[string]any{
	    "max_execution_time": 30,
	    "enable_cache":       true,
	    "model_fallbacks":    []any{"small", "tiny"},
	})

	limit := cfg.Duration("max_execution_time", time.Minute) // 30s
	cache := cfg.Bool("enable_cache", false)                 // true
	models := cfg.StringSlice("model_fallbacks", nil)        // [small tiny]

Config values never fail loudly: an absent or mistyped key yields the
default. Structural problems with a flow definition are the loader's job,
not this package's.

Config is safe for concurrent reads; the underlying map is not modified
after creation.
*/
package config
