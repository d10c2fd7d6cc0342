package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader composes a Settings snapshot from, in increasing priority: built-in
// defaults, a dotfile in the working directory, and the process environment.
// DB-stored overrides are layered on top by ConfigHolder, which sits above
// Loader in the stack.
type Loader struct {
	DotfilePath string
	lookupEnv   func(string) (string, bool)
}

// NewLoader returns a Loader reading the dotfile at path (".env"-style
// KEY=VALUE lines, or a flat YAML mapping for a ".yaml"/".yml" path) and the
// real process environment.
func NewLoader(dotfilePath string) *Loader {
	return &Loader{DotfilePath: dotfilePath, lookupEnv: os.LookupEnv}
}

// Load resolves a Settings snapshot: defaults, overlaid by the dotfile,
// overlaid by the process environment.
func (l *Loader) Load() (Settings, error) {
	cfg := defaultSettings()

	dotfile, err := readDotfile(l.DotfilePath)
	if err != nil {
		return cfg, fmt.Errorf("read dotfile: %w", err)
	}
	lookup := envLookupChain(dotfile, l.lookupEnv)

	applyEnv(&cfg, lookup)
	return cfg, nil
}

// readDotfile parses a config file into a flat KEY=VALUE map. A ".yaml"/
// ".yml" path is read as a flat YAML mapping of the same keys (e.g.
// WORKER_COUNT: 5); anything else is read as a ".env"-style KEY=VALUE file,
// tolerating blank lines and lines beginning with '#'. A missing file is
// not an error.
func readDotfile(path string) (map[string]string, error) {
	out := map[string]string{}
	if path == "" {
		return out, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return readYAMLDotfile(f)
	default:
		return readEnvDotfile(f)
	}
}

func readEnvDotfile(f *os.File) (map[string]string, error) {
	out := map[string]string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.Trim(strings.TrimSpace(v), `"'`)
		out[k] = v
	}
	return out, scanner.Err()
}

// readYAMLDotfile flattens a single-level YAML mapping of KEY: value pairs
// into the same string-keyed form the env-style loader and applyEnv expect.
// Keys are upper-cased to match the registry's SCREAMING_SNAKE_CASE names,
// so either `worker_count: 5` or `WORKER_COUNT: 5` resolves the same way.
func readYAMLDotfile(f *os.File) (map[string]string, error) {
	var doc map[string]any
	if err := yaml.NewDecoder(f).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("parse YAML config: %w", err)
	}
	out := make(map[string]string, len(doc))
	for k, v := range doc {
		out[strings.ToUpper(k)] = yamlScalarToString(v)
	}
	return out, nil
}

func yamlScalarToString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = yamlScalarToString(e)
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprintf("%v", t)
	}
}

// envLookupChain returns a lookup function consulting the process environment
// first, the dotfile map second, matching the priority order in §4.9:
// process environment > dotfile.
func envLookupChain(dotfile map[string]string, osLookup func(string) (string, bool)) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if osLookup != nil {
			if v, ok := osLookup(key); ok {
				return v, true
			}
		}
		v, ok := dotfile[key]
		return v, ok
	}
}

// applyEnv overlays every recognized key from lookup onto cfg, leaving
// unset keys at their current (default) value.
func applyEnv(cfg *Settings, lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			if n, err := parseIntLoose(v); err == nil {
				*dst = n
			}
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			*dst = parseBoolLoose(v)
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(key); ok {
			*dst = splitCSV(v)
		}
	}

	str("DATABASE_URL", &cfg.DatabaseURL)
	str("SOURCE_DIR", &cfg.SourceDir)
	str("TARGET_DIR", &cfg.TargetDir)

	integer("SCAN_INTERVAL_SECONDS", &cfg.ScanIntervalSeconds)
	boolean("SCAN_EXCLUDE_TARGET_DIR", &cfg.ScanExcludeTargetDir)
	boolean("SCAN_FOLLOW_SYMLINKS", &cfg.ScanFollowSymlinks)
	integer("MIN_FILE_SIZE_MB", &cfg.MinFileSizeMB)
	list("VIDEO_EXTENSIONS", &cfg.VideoExtensions)

	boolean("ENABLE_LLM", &cfg.EnableLLM)
	boolean("ENABLE_TMDB", &cfg.EnableTMDB)

	integer("WORKER_COUNT", &cfg.WorkerCount)

	str("OPENAI_API_KEY", &cfg.OpenAIAPIKey)
	str("OPENAI_API_BASE", &cfg.OpenAIAPIBase)
	str("OPENAI_MODEL", &cfg.OpenAIModel)

	str("TMDB_API_KEY", &cfg.TMDBAPIKey)
	str("TMDB_LANGUAGE", &cfg.TMDBLanguage)
	integer("TMDB_CONCURRENCY", &cfg.TMDBConcurrency)

	integer("PRODUCER_BATCH_SIZE", &cfg.ProducerBatchSize)
	integer("PRODUCER_INTERVAL_SECONDS", &cfg.ProducerIntervalSeconds)

	str("LOG_LEVEL", &cfg.LogLevel)
	list("CORS_ORIGINS", &cfg.CORSOrigins)

	boolean("CIRCUIT_ENABLED", &cfg.CircuitEnabled)

	str("CACHE_BACKEND", &cfg.CacheBackend)
	integer("CACHE_CAPACITY", &cfg.CacheCapacity)
	str("REDIS_ADDR", &cfg.RedisAddr)
	str("REDIS_PASSWORD", &cfg.RedisPassword)
	integer("REDIS_DB", &cfg.RedisDB)

	boolean("TRACING_ENABLED", &cfg.TracingEnabled)
	str("TRACING_EXPORTER", &cfg.TracingExporter)
	str("TRACING_ENDPOINT", &cfg.TracingEndpoint)
}

// AsEnvMap renders cfg back into its env-variable string representation,
// keyed by the same names applyEnv reads. Used by GET /api/config to report
// each recognized key's current effective value alongside its registry
// metadata.
func (cfg Settings) AsEnvMap() map[string]string {
	return map[string]string{
		"DATABASE_URL": cfg.DatabaseURL,
		"SOURCE_DIR":   cfg.SourceDir,
		"TARGET_DIR":   cfg.TargetDir,

		"SCAN_INTERVAL_SECONDS":   fmt.Sprintf("%d", cfg.ScanIntervalSeconds),
		"SCAN_EXCLUDE_TARGET_DIR": fmt.Sprintf("%t", cfg.ScanExcludeTargetDir),
		"SCAN_FOLLOW_SYMLINKS":    fmt.Sprintf("%t", cfg.ScanFollowSymlinks),
		"MIN_FILE_SIZE_MB":        fmt.Sprintf("%d", cfg.MinFileSizeMB),
		"VIDEO_EXTENSIONS":        strings.Join(cfg.VideoExtensions, ","),

		"ENABLE_LLM":  fmt.Sprintf("%t", cfg.EnableLLM),
		"ENABLE_TMDB": fmt.Sprintf("%t", cfg.EnableTMDB),

		"WORKER_COUNT": fmt.Sprintf("%d", cfg.WorkerCount),

		"OPENAI_API_KEY":  cfg.OpenAIAPIKey,
		"OPENAI_API_BASE": cfg.OpenAIAPIBase,
		"OPENAI_MODEL":    cfg.OpenAIModel,

		"TMDB_API_KEY":      cfg.TMDBAPIKey,
		"TMDB_LANGUAGE":     cfg.TMDBLanguage,
		"TMDB_CONCURRENCY":  fmt.Sprintf("%d", cfg.TMDBConcurrency),

		"PRODUCER_BATCH_SIZE":       fmt.Sprintf("%d", cfg.ProducerBatchSize),
		"PRODUCER_INTERVAL_SECONDS": fmt.Sprintf("%d", cfg.ProducerIntervalSeconds),

		"LOG_LEVEL":    cfg.LogLevel,
		"CORS_ORIGINS": strings.Join(cfg.CORSOrigins, ","),

		"CIRCUIT_ENABLED": fmt.Sprintf("%t", cfg.CircuitEnabled),

		"CACHE_BACKEND":  cfg.CacheBackend,
		"CACHE_CAPACITY": fmt.Sprintf("%d", cfg.CacheCapacity),
		"REDIS_ADDR":     cfg.RedisAddr,
		"REDIS_PASSWORD": cfg.RedisPassword,
		"REDIS_DB":       fmt.Sprintf("%d", cfg.RedisDB),

		"TRACING_ENABLED":  fmt.Sprintf("%t", cfg.TracingEnabled),
		"TRACING_EXPORTER": cfg.TracingExporter,
		"TRACING_ENDPOINT": cfg.TracingEndpoint,
	}
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseIntLoose(v string) (int, error) {
	var n int
	_, err := fmt.Sscanf(strings.TrimSpace(v), "%d", &n)
	return n, err
}

func parseBoolLoose(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}
