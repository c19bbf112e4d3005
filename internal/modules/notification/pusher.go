package notification

import (
	"context"
	"encoding/json"

	"github.com/noted-space/noted/internal/pkg/taskqueue"
	"go.uber.org/zap"
)

// TaskSource is the part of the task queue the pusher consumes.
type TaskSource interface {
	Pending(ctx context.Context, taskType string, limit int) ([]*taskqueue.Task, error)
	UpdateStatus(ctx context.Context, id string, status taskqueue.TaskStatus, result interface{}, errMsg string) error
}

// Pusher drains queued notification.push tasks onto the pub/sub channel.
type Pusher struct {
	tasks     TaskSource
	publisher Publisher
	batch     int
	logger    *zap.Logger
}

func NewPusher(tasks TaskSource, publisher Publisher, logger *zap.Logger) *Pusher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pusher{tasks: tasks, publisher: publisher, batch: 100, logger: logger}
}

// Drain publishes one batch of pending pushes and returns how many succeeded.
func (p *Pusher) Drain(ctx context.Context) (int, error) {
	pending, err := p.tasks.Pending(ctx, PushTaskType, p.batch)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, task := range pending {
		var event Event
		if err := json.Unmarshal(task.Payload, &event); err != nil {
			p.fail(ctx, task, err)
			continue
		}
		if err := publish(ctx, p.publisher, event); err != nil {
			p.fail(ctx, task, err)
			continue
		}
		if err := p.tasks.UpdateStatus(ctx, task.ID, taskqueue.TaskCompleted, nil, ""); err != nil {
			p.logger.Warn("mark push task completed failed", zap.String("task", task.ID), zap.Error(err))
		}
		sent++
	}
	return sent, nil
}

func (p *Pusher) fail(ctx context.Context, task *taskqueue.Task, cause error) {
	p.logger.Warn("notification push failed", zap.String("task", task.ID), zap.Error(cause))
	if err := p.tasks.UpdateStatus(ctx, task.ID, taskqueue.TaskFailed, nil, cause.Error()); err != nil {
		p.logger.Warn("mark push task failed", zap.String("task", task.ID), zap.Error(err))
	}
}
