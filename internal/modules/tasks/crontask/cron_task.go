package crontask

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	pkgcron "github.com/noted-space/noted/internal/pkg/cron"
	"github.com/noted-space/noted/internal/pkg/pagination"
	"github.com/noted-space/noted/internal/pkg/response"
	"github.com/noted-space/noted/internal/pkg/taskqueue"
)

// Handler exposes the scheduler and the task queue to staff.
// tasks is nil when redis is disabled; the task routes are skipped then.
type Handler struct {
	sched *pkgcron.Scheduler
	tasks *taskqueue.Service
}

func NewHandler(sched *pkgcron.Scheduler, tasks *taskqueue.Service) *Handler {
	return &Handler{sched: sched, tasks: tasks}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, staffMW gin.HandlerFunc) {
	g := rg.Group("/cron-task", authMW, staffMW)
	g.GET("", h.listJobs)
	g.GET("/:name", h.getJob)
	g.POST("/:name/run", h.runJob)

	if h.tasks == nil {
		return
	}
	t := g.Group("/tasks")
	t.GET("", h.listTasks)
	t.DELETE("", h.purgeTasks)
	t.GET("/:id", h.getTask)
	t.DELETE("/:id", h.deleteTask)
	t.POST("/:id/cancel", h.cancelTask)
	t.POST("/:id/retry", h.retryTask)
}

func (h *Handler) listJobs(c *gin.Context) {
	response.OK(c, h.sched.List())
}

func (h *Handler) getJob(c *gin.Context) {
	res, err := h.sched.GetTask(c.Param("name"))
	if err != nil {
		response.NotFoundMsg(c, "cron job not found")
		return
	}
	response.OK(c, res)
}

// POST /cron-task/:name/run[?wait=true]
func (h *Handler) runJob(c *gin.Context) {
	name := c.Param("name")
	if wait, _ := strconv.ParseBool(c.Query("wait")); wait {
		res, err := h.sched.RunSync(c.Request.Context(), name)
		if errors.Is(err, pkgcron.ErrJobNotFound) {
			response.NotFoundMsg(c, "cron job not found")
			return
		}
		if err != nil {
			response.InternalError(c, err)
			return
		}
		response.OK(c, res)
		return
	}
	if err := h.sched.Run(c.Request.Context(), name); err != nil {
		response.NotFoundMsg(c, "cron job not found")
		return
	}
	response.OK(c, gin.H{"message": "job triggered"})
}

// GET /cron-task/tasks?type=&status=
func (h *Handler) listTasks(c *gin.Context) {
	q := pagination.FromContext(c)
	f := taskqueue.Filter{Type: c.Query("type"), Status: taskqueue.TaskStatus(c.Query("status"))}
	tasks, total, err := h.tasks.List(c.Request.Context(), f, q.Page, q.Size)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, tasks, q.Meta(total))
}

func (h *Handler) getTask(c *gin.Context) {
	task, err := h.tasks.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if task == nil {
		response.NotFoundMsg(c, "task not found")
		return
	}
	response.OK(c, task)
}

func (h *Handler) cancelTask(c *gin.Context) {
	err := h.tasks.Cancel(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, taskqueue.ErrTaskNotFound):
		response.NotFoundMsg(c, "task not found")
	case errors.Is(err, taskqueue.ErrNotPending):
		response.Conflict(c, err.Error())
	case err != nil:
		response.InternalError(c, err)
	default:
		response.NoContent(c)
	}
}

// retryTask enqueues a copy of a finished task without its dedup key.
func (h *Handler) retryTask(c *gin.Context) {
	ctx := c.Request.Context()
	task, err := h.tasks.GetByID(ctx, c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if task == nil {
		response.NotFoundMsg(c, "task not found")
		return
	}
	if !task.Status.Terminal() {
		response.Conflict(c, "task is still "+string(task.Status))
		return
	}
	copied, err := h.tasks.Enqueue(ctx, task.Type, json.RawMessage(task.Payload), "")
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, copied)
}

func (h *Handler) deleteTask(c *gin.Context) {
	err := h.tasks.DeleteByID(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, taskqueue.ErrTaskNotFound):
		response.NotFoundMsg(c, "task not found")
	case err != nil:
		response.InternalError(c, err)
	default:
		response.NoContent(c)
	}
}

// DELETE /cron-task/tasks?before=<unix_ms>
func (h *Handler) purgeTasks(c *gin.Context) {
	before, _ := strconv.ParseInt(c.Query("before"), 10, 64)
	if err := h.tasks.DeleteCompleted(c.Request.Context(), before); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
