package app

import (
	"time"

	"github.com/clipdigest/core/internal/middleware"
	"github.com/clipdigest/core/internal/modules/metadata"
	"github.com/clipdigest/core/internal/modules/processing/digest"
	"github.com/clipdigest/core/internal/pkg/jwt"
	"github.com/clipdigest/core/internal/pkg/quotacache"
	"github.com/clipdigest/core/internal/pkg/response"
	"github.com/clipdigest/core/internal/pkg/taskqueue"
	"github.com/gin-gonic/gin"
)

var processStart = time.Now()

func (a *App) registerRoutes() {
	r := a.router
	authMW := middleware.Auth()

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	// Rate limiting runs on every route (requires Redis).
	r.Use(middleware.RateLimit(a.rc.Raw()))

	api := r.Group("/api/v2")

	api.GET("/health", func(c *gin.Context) {
		response.OK(c, gin.H{
			"status": "ok",
			"uptime": time.Since(processStart).Round(time.Second).String(),
		})
	})

	api.POST("/auth/token", a.issueToken)

	taskSvc := taskqueue.NewService(a.rc)

	digestSvc := digest.NewService(a.db, a.cfg, taskSvc, a.logger)
	digest.NewHandler(digestSvc).RegisterRoutes(api, authMW)

	quota := quotacache.NewQuotaCounter(a.rc, a.cfg.Quota.DailyUnitLimit)
	cache := quotacache.New(a.rc, quota, a.logger)
	metadataSvc := metadata.NewService(cache, a.cfg, a.logger)
	metadata.NewHandler(metadataSvc).RegisterRoutes(api, authMW)
}

// issueToken exchanges the configured admin secret for a bearer token.
func (a *App) issueToken(c *gin.Context) {
	var dto struct {
		Secret string `json:"secret" binding:"required"`
	}
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if a.cfg.JWTSecret == "" || dto.Secret != a.cfg.JWTSecret {
		response.Unauthorized(c)
		return
	}

	token, err := jwt.Sign("admin", 7*24*time.Hour)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{
		"token":      token,
		"expires_in": int((7 * 24 * time.Hour).Seconds()),
	})
}
