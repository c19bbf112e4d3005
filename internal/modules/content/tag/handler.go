package tag

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/noted-space/noted/internal/middleware"
	"github.com/noted-space/noted/internal/modules/actions"
	"github.com/noted-space/noted/internal/pkg/pagination"
	"github.com/noted-space/noted/internal/pkg/response"
	"go.uber.org/zap"
)

type Handler struct {
	svc      *Service
	recorder *actions.Recorder
	logger   *zap.Logger
}

func NewHandler(svc *Service, recorder *actions.Recorder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, recorder: recorder, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, optionalAuthMW gin.HandlerFunc) {
	g := rg.Group("/tags")
	g.GET("", h.list)
	g.GET("/top", h.top)
	g.GET("/:slug", optionalAuthMW, h.get)
	g.POST("/:slug/follow", authMW, h.follow)
	g.DELETE("/:slug/follow", authMW, h.unfollow)
}

func (h *Handler) list(c *gin.Context) {
	tags, pag, err := h.svc.List(c.Request.Context(), pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, tags, pag)
}

// GET /tags/top?n=10
func (h *Handler) top(c *gin.Context) {
	n, _ := strconv.Atoi(c.DefaultQuery("n", "10"))
	tags, err := h.svc.Top(c.Request.Context(), n)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, tags)
}

func (h *Handler) get(c *gin.Context) {
	tag, err := h.svc.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if tag == nil {
		response.NotFoundMsg(c, "tag not found")
		return
	}
	following, err := h.svc.IsFollowing(c.Request.Context(), middleware.CurrentUserID(c), tag.ID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"tag": tag, "following": following})
}

func (h *Handler) follow(c *gin.Context) {
	ctx := c.Request.Context()
	tag, err := h.svc.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if tag == nil {
		response.NotFoundMsg(c, "tag not found")
		return
	}
	created, err := h.svc.Follow(ctx, middleware.CurrentUserID(c), tag.ID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if created {
		if _, err := h.recorder.Record(ctx, actions.CurrentUser(c), actions.VerbFollows, actions.TagRef{ID: tag.ID}); err != nil {
			h.logger.Warn("record tag follow failed", zap.Error(err))
		}
	}
	response.NoContent(c)
}

func (h *Handler) unfollow(c *gin.Context) {
	tag, err := h.svc.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if tag == nil {
		response.NotFoundMsg(c, "tag not found")
		return
	}
	if err := h.svc.Unfollow(c.Request.Context(), middleware.CurrentUserID(c), tag.ID); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
