package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/noted-space/noted/internal/models"
	"github.com/noted-space/noted/internal/pkg/taskqueue"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	PushTaskType = "notification.push"
	Channel      = "noted:notifications"
)

// Publisher is satisfied by the redis client.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}

// Enqueuer is satisfied by the task queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, taskType string, payload interface{}, dedupKey string) (*taskqueue.Task, error)
}

// Event is the realtime payload pushed to subscribers.
type Event struct {
	IDs        []string `json:"ids"`
	Recipients []string `json:"recipients"`
	ActorKind  string   `json:"actor_kind"`
	ActorID    string   `json:"actor_id"`
	Verb       string   `json:"verb"`
	TargetKind string   `json:"target_kind,omitempty"`
	TargetID   string   `json:"target_id,omitempty"`
}

// Store persists one notification row per recipient and schedules a push.
// Without a queue it publishes directly; without either it only persists.
type Store struct {
	db        *gorm.DB
	queue     Enqueuer
	publisher Publisher
	logger    *zap.Logger
}

type StoreOption func(*Store)

func WithQueue(q Enqueuer) StoreOption {
	return func(s *Store) { s.queue = q }
}

func WithPublisher(p Publisher) StoreOption {
	return func(s *Store) { s.publisher = p }
}

func WithStoreLogger(logger *zap.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewStore(db *gorm.DB, opts ...StoreOption) *Store {
	s := &Store{db: db, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Deliver(ctx context.Context, d Delivery) error {
	if d.Actor == nil || len(d.Recipients) == 0 {
		return nil
	}

	var targetKind, targetID *string
	event := Event{
		Recipients: d.Recipients,
		ActorKind:  string(d.Actor.Kind()),
		ActorID:    d.Actor.EntityID(),
		Verb:       d.Verb.String(),
	}
	description := fmt.Sprintf("%s %s", d.Actor.Kind(), d.Verb)
	if d.Target != nil {
		kind, id := string(d.Target.Kind()), d.Target.EntityID()
		targetKind, targetID = &kind, &id
		event.TargetKind, event.TargetID = kind, id
		description += " " + kind
	}

	rows := make([]models.NotificationModel, 0, len(d.Recipients))
	for _, uid := range d.Recipients {
		rows = append(rows, models.NotificationModel{
			RecipientID: uid,
			ActorKind:   event.ActorKind,
			ActorID:     event.ActorID,
			Verb:        event.Verb,
			TargetKind:  targetKind,
			TargetID:    targetID,
			Description: description,
			Unread:      true,
		})
	}
	if err := s.db.WithContext(ctx).CreateInBatches(&rows, 100).Error; err != nil {
		return fmt.Errorf("store notifications: %w", err)
	}
	for _, row := range rows {
		event.IDs = append(event.IDs, row.ID)
	}

	// Realtime push is best effort; the rows above are the source of truth.
	switch {
	case s.queue != nil:
		if _, err := s.queue.Enqueue(ctx, PushTaskType, event, ""); err != nil {
			s.logger.Warn("enqueue notification push failed", zap.Error(err))
		}
	case s.publisher != nil:
		if err := publish(ctx, s.publisher, event); err != nil {
			s.logger.Warn("publish notification failed", zap.Error(err))
		}
	}
	return nil
}

func publish(ctx context.Context, p Publisher, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.Publish(ctx, Channel, data)
}
