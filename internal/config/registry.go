package config

import (
	"sync"
)

// Profile groups a configuration key by the operator persona most likely to
// tune it, surfaced as metadata on GET /api/config.
type Profile string

const (
	ProfileSimple   Profile = "Simple"
	ProfileAdvanced Profile = "Advanced"
	// ProfileIntegrator tags keys that identify an external provider
	// credential, distinct from tuning knobs.
	ProfileIntegrator Profile = "Integrator"
)

// ConfigEntry describes one recognized configuration key: its environment
// variable name, default, operator profile, and whether it may be mutated
// through the config API.
type ConfigEntry struct {
	Env         string
	Profile     Profile
	Default     any
	Blacklisted bool // true if POST /api/config must reject writes to this key
}

// Registry is the authoritative inventory of every recognized configuration
// key, keyed by its environment variable name.
type Registry struct {
	ByEnv map[string]ConfigEntry
}

var (
	globalRegistry *Registry
	registryOnce   sync.Once
)

// GetRegistry returns the global configuration registry, built once.
func GetRegistry() *Registry {
	registryOnce.Do(func() {
		globalRegistry = buildRegistry()
	})
	return globalRegistry
}

func buildRegistry() *Registry {
	entries := []ConfigEntry{
		{Env: "DATABASE_URL", Profile: ProfileAdvanced, Default: "clearmedia.db", Blacklisted: true},
		{Env: "SOURCE_DIR", Profile: ProfileSimple, Default: "", Blacklisted: true},
		{Env: "TARGET_DIR", Profile: ProfileSimple, Default: "", Blacklisted: true},

		{Env: "SCAN_INTERVAL_SECONDS", Profile: ProfileAdvanced, Default: 300},
		{Env: "SCAN_EXCLUDE_TARGET_DIR", Profile: ProfileAdvanced, Default: true},
		{Env: "SCAN_FOLLOW_SYMLINKS", Profile: ProfileAdvanced, Default: false},
		{Env: "MIN_FILE_SIZE_MB", Profile: ProfileAdvanced, Default: 10},
		{Env: "VIDEO_EXTENSIONS", Profile: ProfileAdvanced, Default: ".mp4,.mkv,.avi,.mov,.wmv,.flv,.webm,.m4v"},

		{Env: "ENABLE_LLM", Profile: ProfileSimple, Default: true, Blacklisted: true},
		{Env: "ENABLE_TMDB", Profile: ProfileSimple, Default: true, Blacklisted: true},

		{Env: "WORKER_COUNT", Profile: ProfileAdvanced, Default: 2},

		{Env: "OPENAI_API_KEY", Profile: ProfileIntegrator, Default: "", Blacklisted: true},
		{Env: "OPENAI_API_BASE", Profile: ProfileAdvanced, Default: ""},
		{Env: "OPENAI_MODEL", Profile: ProfileAdvanced, Default: "gpt-4o-mini"},

		{Env: "TMDB_API_KEY", Profile: ProfileIntegrator, Default: "", Blacklisted: true},
		{Env: "TMDB_LANGUAGE", Profile: ProfileAdvanced, Default: "zh-CN"},
		{Env: "TMDB_CONCURRENCY", Profile: ProfileAdvanced, Default: 10},

		{Env: "PRODUCER_BATCH_SIZE", Profile: ProfileAdvanced, Default: 20},
		{Env: "PRODUCER_INTERVAL_SECONDS", Profile: ProfileAdvanced, Default: 10},

		{Env: "LOG_LEVEL", Profile: ProfileSimple, Default: "INFO"},
		{Env: "CORS_ORIGINS", Profile: ProfileAdvanced, Default: "*"},

		{Env: "CIRCUIT_ENABLED", Profile: ProfileAdvanced, Default: true},

		{Env: "CACHE_BACKEND", Profile: ProfileAdvanced, Default: "memory"},
		{Env: "CACHE_CAPACITY", Profile: ProfileAdvanced, Default: 128},
		{Env: "REDIS_ADDR", Profile: ProfileAdvanced, Default: "localhost:6379"},
		{Env: "REDIS_PASSWORD", Profile: ProfileIntegrator, Default: "", Blacklisted: true},
		{Env: "REDIS_DB", Profile: ProfileAdvanced, Default: 0},

		{Env: "TRACING_ENABLED", Profile: ProfileAdvanced, Default: false},
		{Env: "TRACING_EXPORTER", Profile: ProfileAdvanced, Default: "http"},
		{Env: "TRACING_ENDPOINT", Profile: ProfileAdvanced, Default: "localhost:4318"},
	}

	byEnv := make(map[string]ConfigEntry, len(entries))
	for _, e := range entries {
		byEnv[e.Env] = e
	}
	return &Registry{ByEnv: byEnv}
}

// BlacklistedKeys returns the set of environment variable names that may not
// be mutated through the config API.
func (r *Registry) BlacklistedKeys() map[string]struct{} {
	out := make(map[string]struct{})
	for env, entry := range r.ByEnv {
		if entry.Blacklisted {
			out[env] = struct{}{}
		}
	}
	return out
}
