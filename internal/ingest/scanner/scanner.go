// Package scanner implements the Scanner (C5): a periodic recursive walk of
// SOURCE_DIR that inserts newly discovered video files as PENDING rows,
// grounded on the original's backend/app/services/media/scanner.py.
package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/zhinengfan/clearmedia-go/internal/log"
	"github.com/zhinengfan/clearmedia-go/internal/mediastore"
	"github.com/zhinengfan/clearmedia-go/internal/metrics"
)

// Config mirrors the §4.5/§4.9 Scanner configuration surface.
type Config struct {
	SourceDir            string
	TargetDir            string
	ScanIntervalSeconds  int
	VideoExtensions      []string // normalized to lowercase, dotted
	MinFileSizeMB        int
	ScanExcludeTargetDir bool
	ScanFollowSymlinks   bool
}

// Scanner periodically walks Config.SourceDir and inserts newly seen files.
type Scanner struct {
	store   mediastore.Store
	cfg     Config
	exts    map[string]struct{}
	ticking atomic.Bool
}

// New constructs a Scanner. Extensions are normalized once at construction.
func New(store mediastore.Store, cfg Config) *Scanner {
	exts := make(map[string]struct{}, len(cfg.VideoExtensions))
	for _, e := range cfg.VideoExtensions {
		exts[normalizeExt(e)] = struct{}{}
	}
	return &Scanner{store: store, cfg: cfg, exts: exts}
}

func normalizeExt(e string) string {
	e = strings.ToLower(strings.TrimSpace(e))
	if e == "" {
		return ""
	}
	if !strings.HasPrefix(e, ".") {
		e = "." + e
	}
	return e
}

// Run ticks every ScanIntervalSeconds until ctx is cancelled, calling Tick
// on each firing. A tick still running when the next one fires is skipped
// rather than overlapped.
func (s *Scanner) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.ScanIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 300 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !s.ticking.CompareAndSwap(false, true) {
				continue
			}
			if n, err := s.Tick(ctx); err != nil {
				log.WithComponent("scanner").Warn().Err(err).Msg("scan tick failed")
			} else if n > 0 {
				log.WithComponent("scanner").Info().Int("inserted", n).Msg("scan tick complete")
			}
			s.ticking.Store(false)
		}
	}
}

// Tick performs one scan of SourceDir, inserting a PENDING row for every
// newly seen regular file that passes the extension/size filters. A single
// bad file is logged and skipped; the tick never aborts early (§4.5.4).
func (s *Scanner) Tick(ctx context.Context) (int, error) {
	logger := log.WithComponent("scanner")

	info, err := os.Stat(s.cfg.SourceDir)
	if err != nil || !info.IsDir() {
		logger.Warn().Str("source_dir", s.cfg.SourceDir).Msg("source directory missing or not a directory")
		return 0, nil
	}

	var targetAbs string
	if s.cfg.ScanExcludeTargetDir {
		if abs, err := filepath.Abs(s.cfg.TargetDir); err == nil {
			targetAbs = abs
		}
	}

	inserted := 0
	minBytes := int64(s.cfg.MinFileSizeMB) * 1024 * 1024

	walkFn := func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			logger.Debug().Err(err).Str("path", path).Msg("walk error, skipping")
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if targetAbs != "" {
				if abs, aerr := filepath.Abs(path); aerr == nil && isWithin(abs, targetAbs) {
					logger.Debug().Str("path", path).Msg("pruning target directory")
					return filepath.SkipDir
				}
			}
			return nil
		}

		if d.Type()&os.ModeSymlink != 0 {
			if !s.cfg.ScanFollowSymlinks {
				return nil
			}
			resolved, rerr := filepath.EvalSymlinks(path)
			if rerr != nil {
				logger.Debug().Err(rerr).Str("path", path).Msg("unresolvable symlink, skipping")
				return nil
			}
			path = resolved
		}

		if err := s.considerFile(ctx, path, minBytes, logger); err != nil {
			logger.Debug().Err(err).Str("path", path).Msg("skipping file")
		} else {
			inserted++
		}
		return nil
	}

	if err := filepath.WalkDir(s.cfg.SourceDir, walkFn); err != nil && err != context.Canceled {
		return inserted, err
	}

	return inserted, nil
}

// considerFile validates extension/size, stats (inode, device), and inserts
// a PENDING row if one doesn't already exist for that (inode, device) pair.
// Returns a non-nil error only to signal "not inserted" to the caller's
// inserted-count bookkeeping; all such errors are already logged by the
// caller at Debug level, matching the original's per-file trace logging.
func (s *Scanner) considerFile(ctx context.Context, path string, minBytes int64, logger zerolog.Logger) error {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := s.exts[ext]; !ok {
		return errSkipped
	}

	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	if minBytes > 0 && fi.Size() < minBytes {
		return errSkipped
	}

	inode, device, ok := statInodeDevice(fi)
	if !ok {
		return errSkipped
	}

	existing, err := s.store.GetByInodeDevice(ctx, inode, device)
	if err != nil && err != mediastore.ErrNotFound {
		return err
	}
	if existing != nil {
		return errSkipped
	}

	m := &mediastore.MediaFile{
		Inode:            inode,
		DeviceID:         device,
		OriginalFilepath: path,
		OriginalFilename: filepath.Base(path),
		FileSize:         fi.Size(),
		Status:           mediastore.StatusPending,
	}
	if err := s.store.Insert(ctx, m); err != nil {
		return err
	}
	metrics.ScannerFilesDiscovered.Inc()
	logger.Info().Str("path", path).Msg("discovered new media file")
	return nil
}

// isWithin reports whether abs is target or a descendant of target.
func isWithin(abs, target string) bool {
	if abs == target {
		return true
	}
	return strings.HasPrefix(abs, target+string(filepath.Separator))
}

var errSkipped = skippedError{}

type skippedError struct{}

func (skippedError) Error() string { return "scanner: file skipped" }
