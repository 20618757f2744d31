package pipeline

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// Sweeper periodically processes the backlog of unprocessed messages.
type Sweeper struct {
	pipeline *Pipeline
	interval time.Duration
	limit    int
}

func NewSweeper(p *Pipeline, interval time.Duration, limit int) *Sweeper {
	return &Sweeper{pipeline: p, interval: interval, limit: limit}
}

// Run sweeps once immediately and then every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	log.WithField("interval", s.interval).Info("starting message sweeper")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.pipeline.ProcessBatch(ctx, s.limit); err != nil {
			log.WithError(err).Error("message sweep failed")
		}
		select {
		case <-ctx.Done():
			log.Info("message sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}
