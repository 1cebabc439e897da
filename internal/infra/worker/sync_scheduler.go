package worker

import (
	"context"
	"log"
	"time"

	"github.com/xavierca1/funnelsync/internal/usecase"
)

// SyncScheduler drives the recurring reconciliation: one executed run of
// everything per interval. The sync is a polling batch by design, so this
// ticker is the whole "real-time" story.
type SyncScheduler struct {
	orchestrator *usecase.SyncOrchestrator
	interval     time.Duration
}

func NewSyncScheduler(orchestrator *usecase.SyncOrchestrator, interval time.Duration) *SyncScheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &SyncScheduler{
		orchestrator: orchestrator,
		interval:     interval,
	}
}

func (s *SyncScheduler) Start(ctx context.Context) {
	log.Printf("🕒 Sync scheduler started (every %s)", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("⚠️ Sync scheduler stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *SyncScheduler) runOnce(ctx context.Context) {
	report, err := s.orchestrator.Run(ctx, usecase.SyncInput{
		Kind:    usecase.SyncAll,
		Execute: true,
	})
	if err != nil {
		log.Printf("❌ Scheduled sync failed: %v", err)
		return
	}
	log.Printf("✅ Scheduled sync done: %s", report.Summary())
}
