package notifications

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/doogybook/backend/internal/models"
	"github.com/doogybook/backend/pkg/queue"
)

// Broadcaster delivers live events to an organization's connected staff.
type Broadcaster interface {
	Publish(orgID uuid.UUID, event string, payload any)
}

// Enqueuer queues placement notification jobs for the worker.
type Enqueuer interface {
	EnqueuePlacementNotification(ctx context.Context, payload queue.PlacementNotificationPayload) error
}

// Dispatcher fans a committed placement event out to the live feed and the notification queue.
// Delivery failures are logged and never reported to the caller.
type Dispatcher struct {
	feed   Broadcaster
	jobs   Enqueuer
	logger *zap.Logger
}

// NewDispatcher creates a dispatcher. feed or jobs may be nil to disable that channel.
func NewDispatcher(feed Broadcaster, jobs Enqueuer, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{feed: feed, jobs: jobs, logger: logger}
}

// Publish implements placements.EventPublisher.
func (d *Dispatcher) Publish(ctx context.Context, ev models.PlacementEvent) {
	if d.feed != nil && ev.OrganizationID != uuid.Nil {
		d.feed.Publish(ev.OrganizationID, string(ev.Kind), ev)
	}
	if d.jobs == nil {
		return
	}
	payload := queue.PlacementNotificationPayload{
		Kind:           string(ev.Kind),
		DogID:          ev.DogID,
		DogName:        ev.DogName,
		OrganizationID: ev.OrganizationID,
		ActorID:        ev.ActorID,
		RecipientIDs:   directRecipients(ev),
		At:             ev.At,
	}
	if err := d.jobs.EnqueuePlacementNotification(ctx, payload); err != nil {
		d.logger.Error("enqueue placement notification failed",
			zap.Error(err), zap.String("kind", payload.Kind), zap.String("dog_id", ev.DogID.String()))
	}
}

// directRecipients are the people outside the organization staff touched by ev.
func directRecipients(ev models.PlacementEvent) []uuid.UUID {
	var ids []uuid.UUID
	if ev.FosterUserID != nil {
		ids = append(ids, *ev.FosterUserID)
	}
	if ev.AdopterID != nil {
		ids = append(ids, *ev.AdopterID)
	}
	return ids
}
