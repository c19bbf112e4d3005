package actions

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/noted-space/noted/internal/middleware"
	"github.com/noted-space/noted/internal/models"
	"github.com/noted-space/noted/internal/pkg/response"
	"gorm.io/gorm"
)

// CurrentUser returns the request user as a lazily resolved entity.
// It normalizes to nil for anonymous requests.
func CurrentUser(c *gin.Context) Entity {
	return NewLazy(func() Entity {
		id := middleware.CurrentUserID(c)
		if id == "" {
			return nil
		}
		return UserRef{ID: id}
	})
}

type Handler struct {
	db       *gorm.DB
	recorder *Recorder
}

func NewHandler(db *gorm.DB, recorder *Recorder) *Handler {
	return &Handler{db: db, recorder: recorder}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	rg.GET("/feed", authMW, h.feed)
}

// GET /feed?limit=50 returns recent actions of the users the caller follows.
func (h *Handler) feed(c *gin.Context) {
	me := Normalize(CurrentUser(c))
	if me == nil {
		response.Unauthorized(c)
		return
	}

	var followed []string
	if err := h.db.WithContext(c.Request.Context()).Model(&models.FollowingModel{}).
		Where("follower_id = ?", me.EntityID()).
		Pluck("followed_id", &followed).Error; err != nil {
		response.InternalError(c, err)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit > 200 {
		limit = 200
	}
	rows, err := h.recorder.Feed(c.Request.Context(), followed, limit)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, rows)
}
