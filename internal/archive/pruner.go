package archive

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner periodically deletes archive rows older than the retention window.
type Pruner struct {
	repo      Repository
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time

	cron *cron.Cron
}

// NewPruner validates schedule (standard 5-field cron or a descriptor such
// as "@hourly") and returns a stopped pruner.
func NewPruner(repo Repository, retention time.Duration, schedule string, logger *slog.Logger) (*Pruner, error) {
	p := &Pruner{
		repo:      repo,
		retention: retention,
		logger:    logger,
		now:       time.Now,
		cron:      cron.New(),
	}
	if _, err := p.cron.AddFunc(schedule, func() { _, _ = p.PruneOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid prune schedule %q: %w", schedule, err)
	}
	return p, nil
}

func (p *Pruner) Start() {
	p.cron.Start()
}

// Stop halts the schedule and waits for a running prune to finish.
func (p *Pruner) Stop() {
	<-p.cron.Stop().Done()
}

// PruneOnce deletes everything older than now minus the retention window.
func (p *Pruner) PruneOnce(ctx context.Context) (int64, error) {
	cutoff := p.now().Add(-p.retention)
	n, err := p.repo.PruneBefore(ctx, cutoff)
	if err != nil {
		p.logger.Error("archive prune failed", "cutoff", cutoff.Unix(), "error", err)
		return n, err
	}
	p.logger.Debug("archive pruned", "cutoff", cutoff.Unix(), "deleted", n)
	return n, nil
}
