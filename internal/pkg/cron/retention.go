package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/leavesync-agent-go/internal/domain/outbox"
)

// RetentionJobs purges synced mutations once they fall out of the
// offline-display window. Decisions age out faster than requests; the row
// is only kept for the user's benefit after it reached the remote system.
type RetentionJobs struct {
	queue             outbox.Repository
	requestRetention  time.Duration
	decisionRetention time.Duration
}

func NewRetentionJobs(queue outbox.Repository, requestRetention, decisionRetention time.Duration) *RetentionJobs {
	if requestRetention == 0 {
		requestRetention = 30 * 24 * time.Hour
	}
	if decisionRetention == 0 {
		decisionRetention = 7 * 24 * time.Hour
	}
	return &RetentionJobs{
		queue:             queue,
		requestRetention:  requestRetention,
		decisionRetention: decisionRetention,
	}
}

func (j *RetentionJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("outbox_retention", 6*time.Hour, j.PurgeSyncedMutations)
}

func (j *RetentionJobs) PurgeSyncedMutations(ctx context.Context) error {
	now := time.Now()

	purged := int64(0)
	n, err := j.queue.DeleteSyncedBefore(ctx, outbox.KindCreateRequest, now.Add(-j.requestRetention))
	if err != nil {
		return err
	}
	purged += n

	for _, kind := range []outbox.Kind{outbox.KindApprove, outbox.KindRefuse} {
		n, err := j.queue.DeleteSyncedBefore(ctx, kind, now.Add(-j.decisionRetention))
		if err != nil {
			return err
		}
		purged += n
	}

	if purged > 0 {
		slog.Info("purged synced mutations", "count", purged)
	}
	return nil
}
