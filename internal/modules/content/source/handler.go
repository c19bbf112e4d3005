package source

import (
	"github.com/gin-gonic/gin"
	"github.com/noted-space/noted/internal/models"
	"github.com/noted-space/noted/internal/pkg/pagination"
	"github.com/noted-space/noted/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/sources")
	g.GET("", h.search)
	g.GET("/:slug", h.get)
}

// GET /sources?q=effective
func (h *Handler) search(c *gin.Context) {
	rows, pag, err := h.svc.Search(c.Request.Context(), c.Query("q"), pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, rows, pag)
}

func (h *Handler) get(c *gin.Context) {
	ctx := c.Request.Context()
	src, err := h.svc.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if src == nil {
		response.NotFoundMsg(c, "source not found")
		return
	}
	notes, pag, err := h.svc.Notes(ctx, src.ID, pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{
		"source":     src,
		"type_name":  models.SourceTypeNames[src.Type],
		"notes":      notes,
		"pagination": pag,
	})
}
