package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doogybook/backend/internal/models"
	"github.com/doogybook/backend/pkg/queue"
)

type broadcast struct {
	orgID uuid.UUID
	event string
}

type recordingFeed struct{ sent []broadcast }

func (f *recordingFeed) Publish(orgID uuid.UUID, event string, _ any) {
	f.sent = append(f.sent, broadcast{orgID, event})
}

type recordingJobs struct {
	payloads []queue.PlacementNotificationPayload
	err      error
}

func (j *recordingJobs) EnqueuePlacementNotification(_ context.Context, p queue.PlacementNotificationPayload) error {
	if j.err != nil {
		return j.err
	}
	j.payloads = append(j.payloads, p)
	return nil
}

func TestDispatcher_Publish(t *testing.T) {
	feed, jobs := &recordingFeed{}, &recordingJobs{}
	d := NewDispatcher(feed, jobs, nil)

	orgID, adopter, actor := uuid.New(), uuid.New(), uuid.New()
	ev := models.PlacementEvent{
		Kind:           models.EventAdoptionCompleted,
		DogID:          uuid.New(),
		DogName:        "Bella",
		OrganizationID: orgID,
		AdopterID:      &adopter,
		ActorID:        actor,
		At:             time.Now().UTC(),
	}
	d.Publish(context.Background(), ev)

	require.Len(t, feed.sent, 1)
	assert.Equal(t, broadcast{orgID, "adoption_completed"}, feed.sent[0])
	require.Len(t, jobs.payloads, 1)
	got := jobs.payloads[0]
	assert.Equal(t, []uuid.UUID{adopter}, got.RecipientIDs)
	assert.Equal(t, actor, got.ActorID)
	assert.Equal(t, "Bella", got.DogName)
}

func TestDispatcher_PublishSwallowsErrors(t *testing.T) {
	feed := &recordingFeed{}
	d := NewDispatcher(feed, &recordingJobs{err: errors.New("redis down")}, nil)

	assert.NotPanics(t, func() {
		d.Publish(context.Background(), models.PlacementEvent{Kind: models.EventFosterReturned, DogID: uuid.New()})
	})
	assert.Empty(t, feed.sent, "events without an organization are not broadcast")

	assert.NotPanics(t, func() {
		NewDispatcher(nil, nil, nil).Publish(context.Background(), models.PlacementEvent{})
	})
}

func TestRender(t *testing.T) {
	at := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	title, body := Render(queue.PlacementNotificationPayload{Kind: "foster_returned", DogName: "Max", At: at})
	assert.Equal(t, "Max is back at the shelter", title)
	assert.Equal(t, "Max returned from foster care on 2 Jan 2026.", body)

	title, _ = Render(queue.PlacementNotificationPayload{Kind: "unknown", DogName: "Max"})
	assert.Equal(t, "Update about Max", title)
}
