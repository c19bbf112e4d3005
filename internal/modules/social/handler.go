package social

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/noted-space/noted/internal/middleware"
	"github.com/noted-space/noted/internal/models"
	"github.com/noted-space/noted/internal/modules/actions"
	"github.com/noted-space/noted/internal/modules/content"
	"github.com/noted-space/noted/internal/pkg/pagination"
	"github.com/noted-space/noted/internal/pkg/response"
	"go.uber.org/zap"
)

type Recorder interface {
	Record(ctx context.Context, actor actions.Entity, verb actions.Verb, target actions.Entity) (bool, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, actor actions.Entity, verb actions.Verb, target actions.Entity) ([]string, error)
}

// NoteLister writes a user's profile notes; note.Handler implements it.
type NoteLister interface {
	ProfileNotes(c *gin.Context, authorID string)
}

type Handler struct {
	svc        *Service
	notes      NoteLister
	recorder   Recorder
	dispatcher Dispatcher
	logger     *zap.Logger
}

func NewHandler(svc *Service, notes NoteLister, recorder Recorder, dispatcher Dispatcher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, notes: notes, recorder: recorder, dispatcher: dispatcher, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, optionalAuthMW gin.HandlerFunc) {
	g := rg.Group("/users/:username")
	g.GET("", optionalAuthMW, h.profile)
	g.GET("/notes", optionalAuthMW, h.userNotes)
	g.GET("/followers", h.followers)
	g.GET("/following", h.following)
	g.POST("/follow", authMW, h.follow)
	g.DELETE("/follow", authMW, h.unfollow)
}

// lookup resolves :username or writes a 404.
func (h *Handler) lookup(c *gin.Context) *models.UserModel {
	user, err := h.svc.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		response.InternalError(c, err)
		return nil
	}
	if user == nil {
		response.NotFoundMsg(c, "user not found")
		return nil
	}
	return user
}

func (h *Handler) profile(c *gin.Context) {
	p, err := h.svc.Profile(c.Request.Context(), c.Param("username"), middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if p == nil {
		response.NotFoundMsg(c, "user not found")
		return
	}
	response.OK(c, p)
}

func (h *Handler) userNotes(c *gin.Context) {
	user := h.lookup(c)
	if user == nil {
		return
	}
	h.notes.ProfileNotes(c, user.ID)
}

func (h *Handler) followers(c *gin.Context) {
	user := h.lookup(c)
	if user == nil {
		return
	}
	users, pag, err := h.svc.Followers(c.Request.Context(), user.ID, pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, toPublicList(users), pag)
}

func (h *Handler) following(c *gin.Context) {
	user := h.lookup(c)
	if user == nil {
		return
	}
	users, pag, err := h.svc.Following(c.Request.Context(), user.ID, pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, toPublicList(users), pag)
}

func (h *Handler) follow(c *gin.Context) {
	user := h.lookup(c)
	if user == nil {
		return
	}
	ctx := c.Request.Context()
	created, err := h.svc.Follow(ctx, middleware.CurrentUserID(c), user.ID)
	if err != nil {
		content.WriteError(c, err)
		return
	}
	if created && h.recorder != nil {
		actor := actions.CurrentUser(c)
		target := actions.UserRef{ID: user.ID}
		recorded, err := h.recorder.Record(ctx, actor, actions.VerbFollows, target)
		if err != nil {
			h.logger.Warn("record follow failed", zap.Error(err))
		}
		if recorded && h.dispatcher != nil {
			if _, err := h.dispatcher.Dispatch(ctx, actor, actions.VerbFollows, target); err != nil {
				h.logger.Warn("notify followed user failed", zap.String("user", user.ID), zap.Error(err))
			}
		}
	}
	response.NoContent(c)
}

func (h *Handler) unfollow(c *gin.Context) {
	user := h.lookup(c)
	if user == nil {
		return
	}
	if err := h.svc.Unfollow(c.Request.Context(), middleware.CurrentUserID(c), user.ID); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
