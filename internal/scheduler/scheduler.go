package scheduler

import (
	"context"
	"fmt"
	"time"

	"electrobot/catalog/internal/notify"

	log "github.com/sirupsen/logrus"
)

// Refresher is the catalog refresh entry point.
type Refresher interface {
	Refresh(ctx context.Context, force bool) (bool, error)
	Items() int
}

// Scheduler refreshes the catalog periodically. The timer is re-armed after
// each run, so a slow fetch delays the next one instead of overlapping it.
type Scheduler struct {
	refresher Refresher
	notifier  notify.Notifier
	interval  time.Duration
}

func NewScheduler(refresher Refresher, notifier notify.Notifier, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		refresher: refresher,
		notifier:  notifier,
		interval:  interval,
	}
}

// Run loads the catalog once, then refreshes it every interval until ctx is
// done.
func (s *Scheduler) Run(ctx context.Context) error {
	log.Infof("🔄 Loading catalog, then refreshing every %v", s.interval)
	if _, err := s.refresher.Refresh(ctx, true); err != nil {
		log.Warnf("⚠️ Initial catalog load failed, will retry on schedule: %v", err)
	}

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Scheduler stopped")
			return nil
		case <-timer.C:
			s.tick(ctx)
			timer.Reset(s.interval)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	changed, err := s.refresher.Refresh(ctx, false)
	if err != nil || !changed {
		return
	}
	text := fmt.Sprintf("✅ Catalog updated: %d items", s.refresher.Items())
	if err := s.notifier.Notify(ctx, text); err != nil {
		log.Errorf("❌ Failed to notify operator: %v", err)
	}
}
