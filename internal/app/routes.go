package app

import (
	"github.com/gin-gonic/gin"
	"github.com/noted-space/noted/internal/middleware"
	"github.com/noted-space/noted/internal/modules/actions"
	"github.com/noted-space/noted/internal/modules/auth"
	"github.com/noted-space/noted/internal/modules/content/note"
	"github.com/noted-space/noted/internal/modules/content/source"
	"github.com/noted-space/noted/internal/modules/content/tag"
	"github.com/noted-space/noted/internal/modules/health"
	"github.com/noted-space/noted/internal/modules/notification"
	"github.com/noted-space/noted/internal/modules/processing/langdetect"
	"github.com/noted-space/noted/internal/modules/processing/markdown"
	"github.com/noted-space/noted/internal/modules/social"
	"github.com/noted-space/noted/internal/modules/tasks/crontask"
	"github.com/noted-space/noted/internal/pkg/response"
	"github.com/noted-space/noted/internal/pkg/taskqueue"
)

const apiPrefix = "/api/v1"

// services is the wired service graph shared by routes and cron jobs.
type services struct {
	recorder   *actions.Recorder
	dispatcher *notification.Dispatcher
	tags       *tag.Service
	sources    *source.Service
	notes      *note.Service
	auth       *auth.Service
	social     *social.Service
	inbox      *notification.Service
	tasks      *taskqueue.Service // nil without redis
	pusher     *notification.Pusher
}

func (a *App) buildServices() *services {
	cfg := a.cfg
	log := a.logger

	svc := &services{
		recorder: actions.NewRecorder(a.db,
			actions.WithLogger(log.Named("actions")),
			actions.WithWindow(cfg.Actions.DebounceWindow),
			actions.WithDisabled(cfg.IsTestMode()),
		),
		tags:    tag.NewService(a.db, tag.WithLogger(log.Named("tags")), tag.WithCache(a.rc)),
		sources: source.NewService(a.db),
		social:  social.NewService(a.db, log.Named("social")),
		inbox:   notification.NewService(a.db),
	}

	svc.auth = auth.NewService(a.db, auth.WithLogger(log.Named("auth")), auth.WithRecorder(svc.recorder))

	storeOpts := []notification.StoreOption{notification.WithStoreLogger(log.Named("notify"))}
	if a.rc != nil {
		svc.tasks = taskqueue.NewService(a.rc)
		svc.pusher = notification.NewPusher(svc.tasks, a.rc, log.Named("notify"))
		storeOpts = append(storeOpts, notification.WithQueue(svc.tasks), notification.WithPublisher(a.rc))
	}
	svc.dispatcher = notification.NewDispatcher(
		notification.NewGormDirectory(a.db),
		notification.NewStore(a.db, storeOpts...),
		notification.WithLogger(log.Named("notify")),
	)

	renderer := markdown.NewRenderer(
		markdown.WithLogger(log.Named("markdown")),
		markdown.WithAPIURL(cfg.Markdown.APIURL),
		markdown.WithTimeout(cfg.Markdown.Timeout),
		markdown.WithOffline(cfg.IsOffline()),
	)
	detector := langdetect.New(langdetect.WithLogger(log.Named("langdetect")))
	svc.notes = note.NewService(a.db, renderer, detector,
		note.WithLogger(log.Named("notes")),
		note.WithRecorder(svc.recorder),
		note.WithDispatcher(svc.dispatcher),
		note.WithTags(svc.tags),
		note.WithSources(svc.sources),
	)
	return svc
}

func (a *App) registerRoutes(svc *services) {
	r := a.router
	authMW := middleware.Auth(a.db)
	optionalAuthMW := middleware.OptionalAuth(a.db)

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})

	health.RegisterRoutes(r.Group(""), a.db, pinger(a), a.startedAt)

	api := r.Group(apiPrefix)
	// Rate limiting and idempotence are no-ops without redis.
	api.Use(optionalAuthMW)
	api.Use(middleware.RateLimit(a.rc))
	api.Use(middleware.Idempotence(a.rc))

	noteHandler := note.NewHandler(svc.notes, a.logger.Named("notes"))
	noteHandler.RegisterRoutes(api, authMW, optionalAuthMW)
	auth.NewHandler(svc.auth).RegisterRoutes(api, authMW)
	social.NewHandler(svc.social, noteHandler, svc.recorder, svc.dispatcher, a.logger.Named("social")).
		RegisterRoutes(api, authMW, optionalAuthMW)
	tag.NewHandler(svc.tags, svc.recorder, a.logger.Named("tags")).RegisterRoutes(api, authMW, optionalAuthMW)
	source.NewHandler(svc.sources).RegisterRoutes(api)
	notification.NewHandler(svc.inbox).RegisterRoutes(api, authMW)
	actions.NewHandler(a.db, svc.recorder).RegisterRoutes(api, authMW)
	crontask.NewHandler(a.sched, svc.tasks).RegisterRoutes(api, authMW, middleware.Staff(a.db))
}

func pinger(a *App) health.Pinger {
	if a.rc == nil {
		return nil
	}
	return a.rc
}
