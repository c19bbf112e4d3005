package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redisc "github.com/noted-space/noted/internal/pkg/redis"
	"github.com/redis/go-redis/v9"
)

type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

// Terminal reports whether no further transitions are expected.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed || s == TaskCancelled
}

// Task is a unit of background work kept in redis, e.g. a notification push.
type Task struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Status    TaskStatus      `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	DedupKey  string          `json:"dedup_key,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Filter narrows List; zero fields match everything.
type Filter struct {
	Type   string
	Status TaskStatus
}

func (f Filter) match(t *Task) bool {
	return (f.Type == "" || t.Type == f.Type) && (f.Status == "" || t.Status == f.Status)
}

// Keys: one JSON blob per task, a zset of all ids by creation time, a zset
// of pending ids per type, and a hash of dedup key -> id per type.
const (
	taskKeyPrefix = "noted:task:"
	allKey        = "noted:tasks:all"
	pendingPrefix = "noted:tasks:pending:"
	dedupPrefix   = "noted:tasks:dedup:"
	taskTTL       = 7 * 24 * time.Hour
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrNotPending   = errors.New("only pending tasks can be cancelled")
)

// Service is the redis-backed task queue.
type Service struct {
	rc  *redisc.Client
	now func() time.Time
}

func NewService(rc *redisc.Client) *Service {
	return &Service{rc: rc, now: time.Now}
}

func taskKey(id string) string { return taskKeyPrefix + id }

// Enqueue stores a pending task. A non-empty dedupKey returns the live task
// already holding that key instead of creating another.
func (s *Service) Enqueue(ctx context.Context, taskType string, payload interface{}, dedupKey string) (*Task, error) {
	rdb := s.rc.Raw()
	if dedupKey != "" {
		if id, err := rdb.HGet(ctx, dedupPrefix+taskType, dedupKey).Result(); err == nil {
			if existing, err := s.GetByID(ctx, id); err == nil && existing != nil {
				return existing, nil
			}
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", taskType, err)
	}
	now := s.now()
	task := &Task{
		ID:        uuid.NewString(),
		Type:      taskType,
		Payload:   body,
		Status:    TaskPending,
		DedupKey:  dedupKey,
		CreatedAt: now,
		UpdatedAt: now,
	}
	data, err := json.Marshal(task)
	if err != nil {
		return nil, err
	}

	score := float64(now.UnixMilli())
	_, err = rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, taskKey(task.ID), data, taskTTL)
		pipe.ZAdd(ctx, allKey, redis.Z{Score: score, Member: task.ID})
		pipe.ZAdd(ctx, pendingPrefix+taskType, redis.Z{Score: score, Member: task.ID})
		if dedupKey != "" {
			pipe.HSet(ctx, dedupPrefix+taskType, dedupKey, task.ID)
			pipe.Expire(ctx, dedupPrefix+taskType, taskTTL)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return task, nil
}

// GetByID returns (nil, nil) for unknown or expired ids.
func (s *Service) GetByID(ctx context.Context, id string) (*Task, error) {
	data, err := s.rc.Raw().Get(ctx, taskKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("decode task %s: %w", id, err)
	}
	return &task, nil
}

// UpdateStatus moves a task to status. Leaving pending drops it from the
// pending index; terminal states also release the dedup key.
func (s *Service) UpdateStatus(ctx context.Context, id string, status TaskStatus, result interface{}, errMsg string) error {
	task, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if task == nil {
		return ErrTaskNotFound
	}

	task.Status = status
	task.Error = errMsg
	task.UpdatedAt = s.now()
	if result != nil {
		if task.Result, err = json.Marshal(result); err != nil {
			return fmt.Errorf("encode task result: %w", err)
		}
	}
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}

	_, err = s.rc.Raw().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, taskKey(id), data, taskTTL)
		if status != TaskPending {
			pipe.ZRem(ctx, pendingPrefix+task.Type, id)
		}
		if status.Terminal() && task.DedupKey != "" {
			pipe.HDel(ctx, dedupPrefix+task.Type, task.DedupKey)
		}
		return nil
	})
	return err
}

// Pending returns up to limit pending tasks of taskType, oldest first.
func (s *Service) Pending(ctx context.Context, taskType string, limit int) ([]*Task, error) {
	if limit <= 0 {
		return nil, nil
	}
	ids, err := s.rc.Raw().ZRange(ctx, pendingPrefix+taskType, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*Task, 0, len(ids))
	for _, id := range ids {
		task, err := s.GetByID(ctx, id)
		if err != nil {
			return out, err
		}
		if task == nil {
			// expired blob; drop the stale index entry
			s.rc.Raw().ZRem(ctx, pendingPrefix+taskType, id)
			continue
		}
		out = append(out, task)
	}
	return out, nil
}

// List returns the tasks matching f, newest first, and the total match count.
func (s *Service) List(ctx context.Context, f Filter, page, size int) ([]*Task, int64, error) {
	ids, err := s.rc.Raw().ZRevRange(ctx, allKey, 0, -1).Result()
	if err != nil {
		return nil, 0, err
	}
	matched := make([]*Task, 0, len(ids))
	for _, id := range ids {
		task, err := s.GetByID(ctx, id)
		if err != nil || task == nil || !f.match(task) {
			continue
		}
		matched = append(matched, task)
	}
	return pageOf(matched, page, size), int64(len(matched)), nil
}

func pageOf[T any](items []T, page, size int) []T {
	start := (page - 1) * size
	if page < 1 || size < 1 || start >= len(items) {
		return []T{}
	}
	return items[start:min(start+size, len(items))]
}

// Cancel stops a task that has not been picked up yet.
func (s *Service) Cancel(ctx context.Context, id string) error {
	task, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if task == nil {
		return ErrTaskNotFound
	}
	if task.Status != TaskPending {
		return ErrNotPending
	}
	return s.UpdateStatus(ctx, id, TaskCancelled, nil, "cancelled by staff")
}

func (s *Service) DeleteByID(ctx context.Context, id string) error {
	task, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if task == nil {
		return ErrTaskNotFound
	}
	_, err = s.rc.Raw().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		s.remove(ctx, pipe, task)
		return nil
	})
	return err
}

// DeleteCompleted removes terminal tasks created before beforeMS (unix
// millis); zero removes all terminal tasks.
func (s *Service) DeleteCompleted(ctx context.Context, beforeMS int64) error {
	upper := "+inf"
	if beforeMS > 0 {
		upper = fmt.Sprintf("(%d", beforeMS)
	}
	ids, err := s.rc.Raw().ZRangeByScore(ctx, allKey, &redis.ZRangeBy{Min: "-inf", Max: upper}).Result()
	if err != nil {
		return err
	}
	_, err = s.rc.Raw().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			task, err := s.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if task == nil {
				pipe.ZRem(ctx, allKey, id)
				continue
			}
			if task.Status.Terminal() {
				s.remove(ctx, pipe, task)
			}
		}
		return nil
	})
	return err
}

func (s *Service) remove(ctx context.Context, pipe redis.Pipeliner, task *Task) {
	pipe.Del(ctx, taskKey(task.ID))
	pipe.ZRem(ctx, allKey, task.ID)
	pipe.ZRem(ctx, pendingPrefix+task.Type, task.ID)
	if task.DedupKey != "" {
		pipe.HDel(ctx, dedupPrefix+task.Type, task.DedupKey)
	}
}
