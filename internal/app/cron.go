package app

import (
	"context"
	"time"

	"github.com/noted-space/noted/internal/models"
	pkgcron "github.com/noted-space/noted/internal/pkg/cron"
	"go.uber.org/zap"
)

// Report is the daily activity summary logged by the report job.
type Report struct {
	Users         int64 `json:"users"`
	NewUsers      int64 `json:"new_users"`
	Notes         int64 `json:"notes"`
	NewNotes      int64 `json:"new_notes"`
	Actions       int64 `json:"actions"`
	Notifications int64 `json:"notifications"`
}

func (a *App) buildReport(ctx context.Context, since time.Time) (Report, error) {
	var r Report
	db := a.db.WithContext(ctx)
	counts := []struct {
		model any
		where string
		dest  *int64
	}{
		{&models.UserModel{}, "", &r.Users},
		{&models.UserModel{}, "created_at >= ?", &r.NewUsers},
		{&models.NoteModel{}, "", &r.Notes},
		{&models.NoteModel{}, "created_at >= ?", &r.NewNotes},
		{&models.ActionModel{}, "created_at >= ?", &r.Actions},
		{&models.NotificationModel{}, "created_at >= ?", &r.Notifications},
	}
	for _, c := range counts {
		q := db.Model(c.model)
		if c.where != "" {
			q = q.Where(c.where, since)
		}
		if err := q.Count(c.dest).Error; err != nil {
			return Report{}, err
		}
	}
	return r, nil
}

// registerCronJobs registers all scheduled background jobs.
func (a *App) registerCronJobs(svc *services) {
	cronLogger := a.logger.Named("cron")

	if retention := a.cfg.Actions.Retention; retention > 0 {
		a.sched.Register(pkgcron.Job{
			Name:        "actions_retention",
			Description: "Delete actions older than the retention period",
			Interval:    24 * time.Hour,
			Fn: func(ctx context.Context) error {
				n, err := svc.recorder.Prune(ctx, time.Now().Add(-retention))
				if err != nil {
					return err
				}
				cronLogger.Info("old actions pruned", zap.Int64("deleted", n))
				return nil
			},
		})
	}

	a.sched.Register(pkgcron.Job{
		Name:        "report",
		Description: "Log the daily activity counts",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			r, err := a.buildReport(ctx, time.Now().Add(-24*time.Hour))
			if err != nil {
				return err
			}
			cronLogger.Info("daily report",
				zap.Int64("users", r.Users),
				zap.Int64("new_users", r.NewUsers),
				zap.Int64("notes", r.Notes),
				zap.Int64("new_notes", r.NewNotes),
				zap.Int64("actions", r.Actions),
				zap.Int64("notifications", r.Notifications),
			)
			return nil
		},
	})

	if svc.pusher == nil {
		return
	}
	a.sched.Register(pkgcron.Job{
		Name:        "push_notifications",
		Description: "Publish queued notification pushes",
		Interval:    5 * time.Second,
		Fn: func(ctx context.Context) error {
			n, err := svc.pusher.Drain(ctx)
			if n > 0 {
				cronLogger.Debug("notifications pushed", zap.Int("count", n))
			}
			return err
		},
	})
	a.sched.Register(pkgcron.Job{
		Name:        "cleanup_tasks",
		Description: "Remove finished tasks older than a day",
		Interval:    6 * time.Hour,
		Fn: func(ctx context.Context) error {
			return svc.tasks.DeleteCompleted(ctx, time.Now().Add(-24*time.Hour).UnixMilli())
		},
	})
}
