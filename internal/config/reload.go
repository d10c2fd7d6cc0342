package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	cmlog "github.com/zhinengfan/clearmedia-go/internal/log"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Snapshot pairs a resolved Settings with the epoch it was produced at, so
// listeners can detect stale reloads delivered out of order.
type Snapshot struct {
	Epoch    uint64
	Settings Settings
}

// ConfigHolder holds the live configuration snapshot with atomic hot reload.
// Reads never block; Reload composes a fresh Settings from Loader and the DB
// override layer, validates it, and swaps it into place.
type ConfigHolder struct {
	reloadOpMu sync.Mutex
	epoch      atomic.Uint64
	snapshot   atomic.Pointer[Snapshot]

	loader    *Loader
	overrides OverrideSource

	dotfileDir string
	watcher    *fsnotify.Watcher
	stopWatch  chan struct{}
	logger     zerolog.Logger

	listenersMu sync.RWMutex
	listeners   []chan<- Settings
}

// OverrideSource supplies the DB-stored ConfigItem layer, the highest
// priority source ConfigHolder applies; there is no init-time override layer
// above it.
type OverrideSource interface {
	// LoadOverrides returns env-key -> raw string value pairs currently
	// persisted in the database.
	LoadOverrides(ctx context.Context) (map[string]string, error)
}

// NewConfigHolder constructs a holder around loader and overrides; call
// Reload once before serving traffic to materialize the first snapshot.
func NewConfigHolder(loader *Loader, overrides OverrideSource) *ConfigHolder {
	return &ConfigHolder{
		loader:     loader,
		overrides:  overrides,
		dotfileDir: filepath.Dir(loader.DotfilePath),
		logger:     cmlog.WithComponent("config"),
	}
}

// Current returns the live Settings snapshot. Safe for concurrent use.
func (h *ConfigHolder) Current() Settings {
	s := h.snapshot.Load()
	if s == nil {
		return defaultSettings()
	}
	return s.Settings
}

// Snapshot returns the live snapshot including its epoch.
func (h *ConfigHolder) Snapshot() *Snapshot {
	return h.snapshot.Load()
}

// Reload re-reads every configuration source, validates the result, and
// atomically swaps it into place. It is the "forced reload" triggered after
// every accepted config API write, and the debounced handler for dotfile
// changes.
func (h *ConfigHolder) Reload(ctx context.Context) error {
	h.reloadOpMu.Lock()
	defer h.reloadOpMu.Unlock()

	cfg, err := h.loader.Load()
	if err != nil {
		return fmt.Errorf("load base config: %w", err)
	}

	if h.overrides != nil {
		overrides, err := h.overrides.LoadOverrides(ctx)
		if err != nil {
			return fmt.Errorf("load db overrides: %w", err)
		}
		applyEnv(&cfg, func(key string) (string, bool) {
			v, ok := overrides[key]
			return v, ok
		})
	}

	if err := Validate(cfg); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	prev := h.snapshot.Load()
	epoch := h.epoch.Add(1)
	next := &Snapshot{Epoch: epoch, Settings: cfg}
	h.snapshot.Store(next)

	if prev != nil {
		h.logChanges(prev.Settings, cfg)
	}
	h.notifyListeners(cfg)
	return nil
}

func (h *ConfigHolder) logChanges(prev, next Settings) {
	if prev.LogLevel != next.LogLevel {
		h.logger.Info().Str(cmlog.FieldOldStatus, prev.LogLevel).Str(cmlog.FieldNewStatus, next.LogLevel).Msg("log level changed")
	}
	if prev.WorkerCount != next.WorkerCount {
		h.logger.Info().Int("old", prev.WorkerCount).Int("new", next.WorkerCount).Msg("worker count changed")
	}
	if prev.TMDBConcurrency != next.TMDBConcurrency {
		h.logger.Info().Int("old", prev.TMDBConcurrency).Int("new", next.TMDBConcurrency).Msg("tmdb concurrency changed")
	}
}

// RegisterListener adds a channel that receives the new Settings after every
// successful Reload. Sends are non-blocking; a slow listener drops updates
// rather than stalling the reload path.
func (h *ConfigHolder) RegisterListener(ch chan<- Settings) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()
	h.listeners = append(h.listeners, ch)
}

func (h *ConfigHolder) notifyListeners(cfg Settings) {
	h.listenersMu.RLock()
	defer h.listenersMu.RUnlock()
	for _, ch := range h.listeners {
		select {
		case ch <- cfg:
		default:
		}
	}
}

const reloadDebounce = 300 * time.Millisecond

// StartWatcher watches the dotfile's directory for changes and triggers a
// debounced Reload. It is a no-op if no dotfile path was configured.
func (h *ConfigHolder) StartWatcher(ctx context.Context) error {
	if h.loader.DotfilePath == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(h.dotfileDir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch dotfile dir: %w", err)
	}
	h.watcher = watcher
	h.stopWatch = make(chan struct{})
	go h.watchLoop(ctx)
	return nil
}

func (h *ConfigHolder) watchLoop(ctx context.Context) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.stopWatch:
			return
		case ev, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(h.loader.DotfilePath) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, func() {
				if err := h.Reload(ctx); err != nil {
					h.logger.Error().Err(err).Msg("dotfile reload failed")
				}
			})
		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Warn().Err(err).Msg("config watcher error")
		}
	}
}

// Stop releases the watcher and stops delivering reload notifications.
func (h *ConfigHolder) Stop() error {
	if h.stopWatch != nil {
		close(h.stopWatch)
	}
	if h.watcher != nil {
		return h.watcher.Close()
	}
	return nil
}
