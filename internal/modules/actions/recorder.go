package actions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/noted-space/noted/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultWindow is how long an identical action is suppressed.
const DefaultWindow = 60 * time.Second

var ErrNoActor = errors.New("actions: actor is required")

// Recorder appends debounced entries to the action log.
//
// The existence check and the insert are not one transaction; two identical
// concurrent calls may both record.
type Recorder struct {
	db       *gorm.DB
	window   time.Duration
	now      func() time.Time
	disabled bool
	logger   *zap.Logger
}

type Option func(*Recorder)

func WithLogger(logger *zap.Logger) Option {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithWindow(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.window = d
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// WithDisabled turns Record into a no-op that reports false (offline/test mode).
func WithDisabled(disabled bool) Option {
	return func(r *Recorder) { r.disabled = disabled }
}

func NewRecorder(db *gorm.DB, opts ...Option) *Recorder {
	r := &Recorder{
		db:     db,
		window: DefaultWindow,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record stores "actor verb target" unless the same actor did the same verb
// (to the same target) within the window. It reports whether a row was written.
func (r *Recorder) Record(ctx context.Context, actor Entity, verb Verb, target Entity) (bool, error) {
	if r.disabled {
		return false, nil
	}
	actor = Normalize(actor)
	if actor == nil {
		return false, ErrNoActor
	}
	target = Normalize(target)

	now := r.now()
	q := r.db.WithContext(ctx).Model(&models.ActionModel{}).
		Where("actor_kind = ? AND actor_id = ? AND verb = ?", string(actor.Kind()), actor.EntityID(), string(verb)).
		Where("created_at >= ?", now.Add(-r.window))
	if target != nil {
		q = q.Where("target_kind = ? AND target_id = ?", string(target.Kind()), target.EntityID())
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("check recent actions: %w", err)
	}
	if count > 0 {
		r.logger.Debug("action debounced",
			zap.String("actor", actor.EntityID()),
			zap.String("verb", verb.String()),
		)
		return false, nil
	}

	row := models.ActionModel{
		ActorKind: string(actor.Kind()),
		ActorID:   actor.EntityID(),
		Verb:      string(verb),
	}
	row.CreatedAt = now
	row.UpdatedAt = now
	if target != nil {
		kind, id := string(target.Kind()), target.EntityID()
		row.TargetKind = &kind
		row.TargetID = &id
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return false, fmt.Errorf("insert action: %w", err)
	}
	return true, nil
}

// Feed returns the latest actions performed by the given users.
func (r *Recorder) Feed(ctx context.Context, userIDs []string, limit int) ([]models.ActionModel, error) {
	if len(userIDs) == 0 {
		return []models.ActionModel{}, nil
	}
	if limit <= 0 {
		limit = 50
	}
	var rows []models.ActionModel
	err := r.db.WithContext(ctx).
		Where("actor_kind = ? AND actor_id IN ?", string(KindUser), userIDs).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// Prune deletes actions created before the given time.
func (r *Recorder) Prune(ctx context.Context, before time.Time) (int64, error) {
	tx := r.db.WithContext(ctx).Where("created_at < ?", before).Delete(&models.ActionModel{})
	return tx.RowsAffected, tx.Error
}
