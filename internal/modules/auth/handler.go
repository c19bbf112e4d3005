package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/noted-space/noted/internal/middleware"
	"github.com/noted-space/noted/internal/modules/content"
	"github.com/noted-space/noted/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/auth")
	g.POST("/signup", h.signup)
	g.POST("/signin", h.signin)
	g.GET("/me", authMW, h.me)
}

func (h *Handler) signup(c *gin.Context) {
	var dto SignupDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.UnprocessableEntity(c, err.Error())
		return
	}
	user, err := h.svc.Signup(c.Request.Context(), dto)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			response.Conflict(c, err.Error())
			return
		}
		content.WriteError(c, err)
		return
	}
	response.Created(c, user)
}

func (h *Handler) signin(c *gin.Context) {
	var dto SigninDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.UnprocessableEntity(c, err.Error())
		return
	}
	token, expires, user, err := h.svc.Signin(c.Request.Context(), dto)
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		response.BadRequest(c, err.Error())
		return
	case errors.Is(err, ErrInactive):
		response.ForbiddenMsg(c, err.Error())
		return
	case err != nil:
		response.InternalError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse{Token: token, Expires: expires, User: user})
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.svc.GetByID(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if user == nil {
		response.Unauthorized(c)
		return
	}
	response.OK(c, user)
}
