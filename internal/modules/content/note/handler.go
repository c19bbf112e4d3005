package note

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/noted-space/noted/internal/middleware"
	"github.com/noted-space/noted/internal/models"
	"github.com/noted-space/noted/internal/modules/content"
	"github.com/noted-space/noted/internal/pkg/pagination"
	"github.com/noted-space/noted/internal/pkg/response"
	"go.uber.org/zap"
)

type Handler struct {
	svc    *Service
	logger *zap.Logger
}

func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, optionalAuthMW gin.HandlerFunc) {
	notes := rg.Group("/notes")

	notes.GET("", h.list)
	notes.GET("/search", h.search)
	notes.GET("/personal", authMW, h.personal)
	notes.GET("/bookmarks", authMW, h.bookmarks)
	notes.GET("/:slug", optionalAuthMW, h.get)
	notes.GET("/:slug/similar", optionalAuthMW, h.similar)
	notes.GET("/:slug/download", optionalAuthMW, h.download)

	authed := notes.Group("", authMW)
	authed.POST("", h.create)
	authed.PUT("/:slug", h.update)
	authed.DELETE("/:slug", h.delete)
	authed.POST("/:slug/fork", h.fork)
	authed.POST("/:slug/like", h.like)
	authed.POST("/:slug/bookmark", h.bookmark)
	authed.POST("/:slug/pin", h.pin)
}

func parseTagQuery(c *gin.Context) []string {
	raw := strings.TrimSpace(c.Query("tag"))
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func (h *Handler) pagedNotes(c *gin.Context, notes []models.NoteModel, pag response.Pagination) {
	viewer := middleware.CurrentUserID(c)
	items := make([]noteResponse, len(notes))
	for i := range notes {
		items[i] = toResponse(&notes[i], viewer, false)
	}
	response.Paged(c, items, pag)
}

// GET /notes?order=created|views|likes&tag=go,web
func (h *Handler) list(c *gin.Context) {
	notes, pag, err := h.svc.ListPublic(c.Request.Context(), ParseOrder(c.Query("order")), parseTagQuery(c), pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	h.pagedNotes(c, notes, pag)
}

// GET /notes/search?q=
func (h *Handler) search(c *gin.Context) {
	notes, pag, err := h.svc.Search(c.Request.Context(), c.Query("q"), pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	h.pagedNotes(c, notes, pag)
}

func (h *Handler) personal(c *gin.Context) {
	notes, pag, err := h.svc.ListPersonal(c.Request.Context(), middleware.CurrentUserID(c), parseTagQuery(c), pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	h.pagedNotes(c, notes, pag)
}

// ProfileNotes writes the notes shown on authorID's public profile.
func (h *Handler) ProfileNotes(c *gin.Context, authorID string) {
	notes, pag, err := h.svc.ListProfile(c.Request.Context(), authorID, pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	h.pagedNotes(c, notes, pag)
}

func (h *Handler) bookmarks(c *gin.Context) {
	notes, pag, err := h.svc.ListBookmarks(c.Request.Context(), middleware.CurrentUserID(c), pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	h.pagedNotes(c, notes, pag)
}

func (h *Handler) get(c *gin.Context) {
	ctx := c.Request.Context()
	viewer := middleware.CurrentUserID(c)
	note, err := h.svc.GetBySlug(ctx, c.Param("slug"), viewer)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if note == nil {
		response.NotFound(c)
		return
	}
	if err := h.svc.View(ctx, note.ID); err != nil {
		h.logger.Warn("count note view failed", zap.String("note", note.ID), zap.Error(err))
	}

	resp := toResponse(note, viewer, true)
	stats, err := h.svc.Stats(ctx, note.ID, viewer)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	resp.Likes, resp.Bookmarks = stats.Likes, stats.Bookmarks
	resp.Liked, resp.Bookmarked = stats.Liked, stats.Bookmarked
	response.OK(c, resp)
}

// GET /notes/:slug/similar?limit=5
func (h *Handler) similar(c *gin.Context) {
	ctx := c.Request.Context()
	viewer := middleware.CurrentUserID(c)
	note, err := h.svc.FindForViewer(ctx, c.Param("slug"), viewer)
	if err != nil {
		content.WriteError(c, err)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))
	notes, err := h.svc.Similar(ctx, note, limit)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	items := make([]noteResponse, len(notes))
	for i := range notes {
		items[i] = toResponse(&notes[i], viewer, false)
	}
	response.OK(c, items)
}

// GET /notes/:slug/download?type=md|html
func (h *Handler) download(c *gin.Context) {
	out, err := h.svc.Download(c.Request.Context(), middleware.CurrentUserID(c), c.Param("slug"), c.Query("type"))
	if err != nil {
		content.WriteError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+out.Filename+`"`)
	c.Data(http.StatusOK, out.ContentType, out.Body)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateNoteDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	note, err := h.svc.Create(c.Request.Context(), middleware.CurrentUserID(c), dto)
	if err != nil {
		content.WriteError(c, err)
		return
	}
	response.Created(c, toResponse(note, middleware.CurrentUserID(c), true))
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateNoteDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	note, err := h.svc.Update(c.Request.Context(), middleware.CurrentUserID(c), c.Param("slug"), dto)
	if err != nil {
		content.WriteError(c, err)
		return
	}
	response.OK(c, toResponse(note, middleware.CurrentUserID(c), true))
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.CurrentUserID(c), c.Param("slug")); err != nil {
		content.WriteError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) fork(c *gin.Context) {
	note, err := h.svc.Fork(c.Request.Context(), middleware.CurrentUserID(c), c.Param("slug"))
	if err != nil {
		content.WriteError(c, err)
		return
	}
	response.Created(c, toResponse(note, middleware.CurrentUserID(c), true))
}

func (h *Handler) like(c *gin.Context) {
	liked, err := h.svc.ToggleLike(c.Request.Context(), middleware.CurrentUserID(c), c.Param("slug"))
	if err != nil {
		content.WriteError(c, err)
		return
	}
	response.OK(c, gin.H{"liked": liked})
}

func (h *Handler) bookmark(c *gin.Context) {
	marked, err := h.svc.ToggleBookmark(c.Request.Context(), middleware.CurrentUserID(c), c.Param("slug"))
	if err != nil {
		content.WriteError(c, err)
		return
	}
	response.OK(c, gin.H{"bookmarked": marked})
}

func (h *Handler) pin(c *gin.Context) {
	pinned, err := h.svc.TogglePin(c.Request.Context(), middleware.CurrentUserID(c), c.Param("slug"))
	if err != nil {
		content.WriteError(c, err)
		return
	}
	response.OK(c, gin.H{"pin": pinned})
}
