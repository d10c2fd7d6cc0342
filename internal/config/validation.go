package config

import (
	"fmt"
	"strings"
)

// Validate checks the constraints from the recognized configuration table in
// §4.9. A failing Validate must leave the previous Settings snapshot intact;
// callers apply the change only after Validate succeeds.
func Validate(cfg Settings) error {
	if cfg.ScanIntervalSeconds < 60 || cfg.ScanIntervalSeconds > 3600 {
		return fmt.Errorf("SCAN_INTERVAL_SECONDS must be between 60 and 3600, got %d", cfg.ScanIntervalSeconds)
	}
	if cfg.MinFileSizeMB < 0 {
		return fmt.Errorf("MIN_FILE_SIZE_MB must be >= 0, got %d", cfg.MinFileSizeMB)
	}
	for _, ext := range cfg.VideoExtensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 || !isAlnum(ext[1:]) {
			return fmt.Errorf("VIDEO_EXTENSIONS entry %q must start with '.' followed by alphanumeric characters", ext)
		}
	}
	if cfg.WorkerCount < 1 || cfg.WorkerCount > 10 {
		return fmt.Errorf("WORKER_COUNT must be between 1 and 10, got %d", cfg.WorkerCount)
	}
	if cfg.TMDBConcurrency < 1 || cfg.TMDBConcurrency > 20 {
		return fmt.Errorf("TMDB_CONCURRENCY must be between 1 and 20, got %d", cfg.TMDBConcurrency)
	}
	if !isAlnumDash(cfg.TMDBLanguage) {
		return fmt.Errorf("TMDB_LANGUAGE must be alphanumeric/dash, got %q", cfg.TMDBLanguage)
	}
	if cfg.ProducerBatchSize < 1 {
		return fmt.Errorf("PRODUCER_BATCH_SIZE must be >= 1, got %d", cfg.ProducerBatchSize)
	}
	if cfg.ProducerIntervalSeconds < 1 {
		return fmt.Errorf("PRODUCER_INTERVAL_SECONDS must be >= 1, got %d", cfg.ProducerIntervalSeconds)
	}
	if !validLogLevel(cfg.LogLevel) {
		return fmt.Errorf("LOG_LEVEL %q is not a recognized level", cfg.LogLevel)
	}
	if cfg.CacheBackend != "memory" && cfg.CacheBackend != "redis" {
		return fmt.Errorf("CACHE_BACKEND must be \"memory\" or \"redis\", got %q", cfg.CacheBackend)
	}
	if cfg.CacheCapacity < 1 {
		return fmt.Errorf("CACHE_CAPACITY must be >= 1, got %d", cfg.CacheCapacity)
	}
	if cfg.TracingExporter != "http" && cfg.TracingExporter != "grpc" {
		return fmt.Errorf("TRACING_EXPORTER must be \"http\" or \"grpc\", got %q", cfg.TracingExporter)
	}
	return nil
}

func isAlnum(s string) bool {
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

func isAlnumDash(s string) bool {
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-') {
			return false
		}
	}
	return s != ""
}

func validLogLevel(level string) bool {
	switch strings.ToUpper(level) {
	case "TRACE", "DEBUG", "INFO", "WARN", "ERROR", "FATAL", "PANIC":
		return true
	default:
		return false
	}
}
