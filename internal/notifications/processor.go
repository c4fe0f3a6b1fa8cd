package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/doogybook/backend/internal/models"
	"github.com/doogybook/backend/pkg/queue"
)

// JobSource is the queue the processor consumes.
type JobSource interface {
	Dequeue(ctx context.Context, queueName string, timeout time.Duration) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// MemberLister resolves organization staff.
type MemberLister interface {
	ListMemberIDs(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, error)
}

// Sink persists rendered notifications.
type Sink interface {
	CreateMany(ctx context.Context, list []models.Notification) error
}

// Processor turns placement notification jobs into per-user notifications.
type Processor struct {
	jobs    JobSource
	members MemberLister
	sink    Sink
	backoff time.Duration
	poll    time.Duration
	logger  *zap.Logger
}

// NewProcessor creates a notification processor.
func NewProcessor(jobs JobSource, members MemberLister, sink Sink, backoff time.Duration, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if backoff <= 0 {
		backoff = 10 * time.Second
	}
	return &Processor{jobs: jobs, members: members, sink: sink, backoff: backoff, poll: 5 * time.Second, logger: logger}
}

// Process executes one placement notification job.
func (p *Processor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypePlacementNotification {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.PlacementNotificationPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	var staff []uuid.UUID
	if payload.OrganizationID != uuid.Nil {
		ids, err := p.members.ListMemberIDs(ctx, payload.OrganizationID)
		if err != nil {
			return fmt.Errorf("list members: %w", err)
		}
		staff = ids
	}
	recipients := Recipients(payload.ActorID, payload.RecipientIDs, staff)
	if len(recipients) == 0 {
		p.logger.Debug("no recipients", zap.String("job_id", job.ID))
		return nil
	}

	title, body := Render(payload)
	list := make([]models.Notification, 0, len(recipients))
	for _, id := range recipients {
		list = append(list, models.Notification{
			UserID:   id,
			SourceID: job.ID,
			Kind:     payload.Kind,
			Title:    title,
			Body:     body,
			Data:     job.Payload,
		})
	}
	if err := p.sink.CreateMany(ctx, list); err != nil {
		return fmt.Errorf("store notifications: %w", err)
	}
	p.logger.Info("placement notifications stored",
		zap.String("job_id", job.ID), zap.String("kind", payload.Kind), zap.Int("recipients", len(list)))
	return nil
}

// Recipients merges direct and staff recipients in order, without duplicates and without the actor.
func Recipients(actor uuid.UUID, direct, staff []uuid.UUID) []uuid.UUID {
	seen := map[uuid.UUID]bool{actor: true, uuid.Nil: true}
	var out []uuid.UUID
	for _, group := range [][]uuid.UUID{direct, staff} {
		for _, id := range group {
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *Processor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("notification worker stopping")
			return
		default:
		}

		job, err := p.jobs.Dequeue(ctx, queue.QueueNotifications, p.poll)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if reErr := p.jobs.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *Processor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
