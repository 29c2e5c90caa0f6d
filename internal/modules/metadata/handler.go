package metadata

import (
	"errors"
	"strconv"
	"strings"

	"github.com/clipdigest/core/internal/pkg/quotacache"
	"github.com/clipdigest/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/metadata")

	g.GET("/videos/:id", h.getVideo)
	g.GET("/search", h.search)
	g.GET("/quota", authMW, h.getQuota)
}

// GET /metadata/videos/:id
func (h *Handler) getVideo(c *gin.Context) {
	videoID := strings.TrimSpace(c.Param("id"))
	if videoID == "" {
		response.BadRequest(c, "video id is required")
		return
	}

	result, err := h.svc.GetVideo(c.Request.Context(), videoID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, result)
}

// GET /metadata/search?q=...&maxResults=...
func (h *Handler) search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		response.BadRequest(c, "q is required")
		return
	}
	maxResults, _ := strconv.Atoi(c.DefaultQuery("maxResults", "10"))

	result, err := h.svc.Search(c.Request.Context(), query, maxResults)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, result)
}

// GET /metadata/quota  [auth]
func (h *Handler) getQuota(c *gin.Context) {
	report, err := h.svc.QuotaUsage(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, report)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, quotacache.ErrQuotaExceeded):
		c.Header("Retry-After", "3600")
		response.TooManyRequests(c, "daily metadata quota exceeded")
	case errors.Is(err, errVideoNotFound):
		response.NotFoundMsg(c, "video not found")
	default:
		response.InternalError(c, err)
	}
}
