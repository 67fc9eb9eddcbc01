package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/leavesync-agent-go/internal/domain/notify"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/pkg/events"
)

// Dispatcher fans one detected event out to the platform notifier and the
// UI event stream. It owns no state: dedup ledger writes belong to the
// pollers, and a failed platform dispatch is logged, not retried.
type Dispatcher struct {
	notifier notify.Notifier
	hub      *events.Hub
}

func NewDispatcher(notifier notify.Notifier, hub *events.Hub) *Dispatcher {
	return &Dispatcher{notifier: notifier, hub: hub}
}

func (d *Dispatcher) Dispatch(ctx context.Context, n notify.Notification) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	d.hub.Publish(events.Event{Type: events.TypeNotification, Data: n})

	if err := d.notifier.Notify(ctx, n); err != nil {
		slog.Warn("platform notification failed", "kind", n.Kind, "leave_id", n.LeaveID, "error", err)
	}
}

// LogNotifier is the default notify.Notifier: it only logs. The mobile shell
// replaces it with a bridge to the platform's local-notification API.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n notify.Notification) error {
	slog.Info("notification", "kind", n.Kind, "recipient_id", n.RecipientID, "leave_id", n.LeaveID, "title", n.Title)
	return nil
}
