// Package producer implements the Producer (C6): the single component that
// claims PENDING rows and hands their ids to the Worker pool over a bounded
// channel, grounded on the original's queue_manager.py producer loop.
package producer

import (
	"context"
	"time"

	"github.com/zhinengfan/clearmedia-go/internal/log"
	"github.com/zhinengfan/clearmedia-go/internal/mediastore"
	"github.com/zhinengfan/clearmedia-go/internal/metrics"
)

// Config mirrors the §4.6/§4.9 Producer configuration surface.
type Config struct {
	BatchSize       int
	IntervalSeconds int
}

// Producer claims batches of PENDING rows and enqueues their ids onto Queue.
// Queue is owned by the caller (typically shared with a Worker pool) so this
// package never decides its buffering depth.
type Producer struct {
	store mediastore.Store
	queue chan<- int64
	cfg   Config
}

// New constructs a Producer that writes claimed ids onto queue.
func New(store mediastore.Store, queue chan<- int64, cfg Config) *Producer {
	return &Producer{store: store, queue: queue, cfg: cfg}
}

// Run claims and enqueues batches until ctx is cancelled. The sleep interval
// doubles after a claim error (capped at 10x the configured interval) and
// resets to the configured interval on the next successful claim, so a
// transient DB hiccup backs off instead of hot-looping.
func (p *Producer) Run(ctx context.Context) error {
	logger := log.WithComponent("producer")

	batchSize := p.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}
	base := time.Duration(p.cfg.IntervalSeconds) * time.Second
	if base <= 0 {
		base = 5 * time.Second
	}
	interval := base

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		ids, err := p.store.ClaimPending(ctx, batchSize)
		if err != nil {
			logger.Warn().Err(err).Msg("claim pending rows failed")
			interval *= 2
			if max := base * 10; interval > max {
				interval = max
			}
		} else {
			interval = base
			for _, id := range ids {
				metrics.ProducerClaimed.Inc()
				select {
				case p.queue <- id:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			metrics.QueueDepth.Set(float64(len(p.queue)))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
