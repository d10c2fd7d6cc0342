// Package worker implements the Worker pool (C7): a fixed set of goroutines
// draining the Producer's queue, each running a popped id through the
// Resolver, Path Planner, and Linker before writing terminal state through
// the Status Manager. Grounded on the original's worker.py process_file
// state machine and internal/pipeline/worker/orchestrator.go's Run/pool
// dispatch shape.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/zhinengfan/clearmedia-go/internal/linker"
	"github.com/zhinengfan/clearmedia-go/internal/log"
	"github.com/zhinengfan/clearmedia-go/internal/mediastore"
	"github.com/zhinengfan/clearmedia-go/internal/metrics"
	"github.com/zhinengfan/clearmedia-go/internal/planner"
	"github.com/zhinengfan/clearmedia-go/internal/resolver"
)

// Config mirrors the §4.7/§4.9 Worker configuration surface.
type Config struct {
	Count      int // default 2, range 1-10
	EnableLLM  bool
	EnableTMDB bool
	TargetDir  string
}

// Pool is a fixed-size set of workers sharing one inbound queue.
type Pool struct {
	store    mediastore.Store
	sm       *mediastore.StatusManager
	resolver *resolver.Resolver
	queue    <-chan int64
	cfg      Config
}

// New constructs a worker Pool. resolver.LLM/TMDB may be nil when their
// stage is disabled for the process's lifetime; Pool still honors
// cfg.EnableLLM/EnableTMDB independently as a second gate.
func New(store mediastore.Store, sm *mediastore.StatusManager, r *resolver.Resolver, queue <-chan int64, cfg Config) *Pool {
	return &Pool{store: store, sm: sm, resolver: r, queue: queue, cfg: cfg}
}

// Run starts Count worker goroutines and blocks until ctx is cancelled and
// every worker has drained its current item.
func (p *Pool) Run(ctx context.Context) error {
	count := p.cfg.Count
	if count <= 0 {
		count = 2
	}

	var wg sync.WaitGroup
	for i := 0; i < count; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.loop(ctx, workerID)
		}(i)
	}
	wg.Wait()
	return ctx.Err()
}

func (p *Pool) loop(ctx context.Context, workerID int) {
	logger := log.WithComponent("worker").With().Int("worker_id", workerID).Logger()
	for {
		select {
		case <-ctx.Done():
			return
		case id, ok := <-p.queue:
			if !ok {
				return
			}
			metrics.WorkersBusy.Inc()
			p.process(ctx, id, logger)
			metrics.WorkersBusy.Dec()
		}
	}
}

// process runs one media file through the full pipeline, step 2-7 of §4.7.
// Every exit path funnels through the Status Manager exactly once.
func (p *Pool) process(ctx context.Context, id int64, logger zerolog.Logger) {
	if err := p.sm.SetProcessing(ctx, id); err != nil {
		logger.Error().Err(err).Int64("media_file_id", id).Msg("set processing failed")
		return
	}

	mf, err := p.store.GetByID(ctx, id)
	if err != nil {
		p.fail(ctx, id, fmt.Errorf("load media file: %w", err), mediastore.Patch{})
		return
	}

	patch := mediastore.Patch{}

	var guess resolver.Guess
	haveGuess := false
	if p.cfg.EnableLLM && p.resolver != nil && p.resolver.LLM != nil {
		guess, err = p.resolver.LLM.Analyze(ctx, mf.OriginalFilename)
		if err != nil {
			p.fail(ctx, id, fmt.Errorf("resolver stage a: %w", err), patch)
			return
		}
		haveGuess = true
		if encoded, merr := json.Marshal(guess); merr == nil {
			s := string(encoded)
			patch.LLMGuess = &s
		}
	}

	if !p.cfg.EnableTMDB || !haveGuess || p.resolver == nil || p.resolver.TMDB == nil {
		if err := p.sm.SetCompleted(ctx, id, patch); err != nil {
			logger.Error().Err(err).Int64("media_file_id", id).Msg("set completed failed")
		}
		return
	}

	match, err := p.resolver.TMDB.Match(ctx, guess)
	if err != nil {
		p.fail(ctx, id, fmt.Errorf("resolver stage b: %w", err), patch)
		return
	}
	if match == nil {
		if err := p.sm.SetNoMatch(ctx, id, patch); err != nil {
			logger.Error().Err(err).Int64("media_file_id", id).Msg("set no_match failed")
		}
		return
	}

	patch.TMDBID = &match.TMDBID
	patch.MediaType = &match.MediaType
	if encoded, merr := json.Marshal(match.ProcessedData); merr == nil {
		s := string(encoded)
		patch.ProcessedData = &s
	}

	dst := planner.GeneratePath(match.ProcessedData, guess.PlannerGuess(), mf.OriginalFilepath, p.cfg.TargetDir)
	result := linker.Link(mf.OriginalFilepath, dst)
	metrics.LinkOutcomes.WithLabelValues(string(result)).Inc()

	switch result {
	case linker.Success:
		patch.NewFilepath = &dst
		if err := p.sm.SetCompleted(ctx, id, patch); err != nil {
			logger.Error().Err(err).Int64("media_file_id", id).Msg("set completed failed")
		}
	case linker.FailedConflict:
		if err := p.sm.SetConflict(ctx, id, dst, patch); err != nil {
			logger.Error().Err(err).Int64("media_file_id", id).Msg("set conflict failed")
		}
	default:
		p.fail(ctx, id, fmt.Errorf("link failed: %s", result), patch)
	}
}

func (p *Pool) fail(ctx context.Context, id int64, cause error, patch mediastore.Patch) {
	if err := p.sm.SetFailed(ctx, id, cause.Error(), patch); err != nil {
		log.WithComponent("worker").Error().Err(err).Int64("media_file_id", id).
			Str("cause", cause.Error()).Msg("set failed failed")
	}
}
