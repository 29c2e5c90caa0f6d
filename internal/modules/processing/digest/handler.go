package digest

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/clipdigest/core/internal/models"
	"github.com/clipdigest/core/internal/pkg/pagination"
	"github.com/clipdigest/core/internal/pkg/quotacache"
	"github.com/clipdigest/core/internal/pkg/response"
	"github.com/clipdigest/core/internal/pkg/taskqueue"
	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/digests")

	g.POST("/generate", h.generateDigest)
	g.GET("/video/:id", h.getDigest)

	admin := g.Group("", authMW)
	admin.GET("", h.listDigests)
	admin.DELETE("/:id", h.deleteDigest)

	tasks := g.Group("/tasks", authMW)
	tasks.GET("", h.listTasks)
	tasks.GET("/:id", h.getTask)
	tasks.POST("/:id/cancel", h.cancelTask)
	tasks.POST("/:id/retry", h.retryTask)
	tasks.DELETE("/:id", h.deleteTask)
	tasks.DELETE("", h.deleteFinishedTasks)
}

// POST /digests/generate
func (h *Handler) generateDigest(c *gin.Context) {
	var dto generateDigestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	action := Action(dto.Action)
	if action == "" {
		action = ActionSummary
	}
	if action != ActionSummary && action != ActionKeyPoints && action != ActionTopics {
		response.BadRequest(c, "action must be one of summary, keypoints, topics")
		return
	}

	if dto.Async {
		task, err := h.svc.EnqueueDigest(c.Request.Context(), DigestPayload{
			VideoID:    dto.VideoID,
			Title:      dto.Title,
			Transcript: dto.Transcript,
			Chapters:   dto.Chapters,
			Action:     action,
			Lang:       dto.Lang,
		})
		if err != nil {
			response.InternalError(c, err)
			return
		}
		response.Accepted(c, gin.H{
			"message": "digest generation queued",
			"task_id": task.ID,
			"status":  task.Status,
		})
		return
	}

	result, estimate, err := h.svc.Process(c.Request.Context(), Request{
		VideoID:       dto.VideoID,
		Title:         dto.Title,
		Transcript:    dto.Transcript,
		Chapters:      dto.Chapters,
		Action:        action,
		Lang:          dto.Lang,
		MarkerPattern: dto.MarkerPattern,
	})
	if err != nil {
		if errors.Is(err, quotacache.ErrQuotaExceeded) {
			c.Header("Retry-After", "3600")
			response.TooManyRequests(c, "AI provider quota exceeded")
			return
		}
		if errors.Is(err, ErrEmptyInput) {
			response.UnprocessableEntity(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}

	response.OK(c, gin.H{
		"result":        result,
		"cost":          estimate,
		"processing_ms": result.ProcessingTime.Milliseconds(),
	})
}

// GET /digests/video/:id?action=...&lang=...
func (h *Handler) getDigest(c *gin.Context) {
	videoID := c.Param("id")
	action := Action(c.DefaultQuery("action", string(ActionSummary)))
	lang := c.DefaultQuery("lang", h.svc.cfg.AI.TargetLanguage)

	digest, err := h.svc.GetDigest(videoID, action, lang)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if digest == nil {
		response.NotFoundMsg(c, "digest not found")
		return
	}
	response.OK(c, digest)
}

// GET /digests  [auth]
func (h *Handler) listDigests(c *gin.Context) {
	q := pagination.FromContext(c)

	tx := h.svc.db.Model(&models.DigestModel{}).Order("created_at DESC")
	if videoID := c.Query("videoId"); videoID != "" {
		tx = tx.Where("video_id = ?", videoID)
	}
	if action := c.Query("action"); action != "" {
		tx = tx.Where("action = ?", action)
	}

	var items []models.DigestModel
	pag, err := pagination.Paginate(tx, q, &items)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, items, pag)
}

// DELETE /digests/:id  [auth]
func (h *Handler) deleteDigest(c *gin.Context) {
	result := h.svc.db.Delete(&models.DigestModel{}, "id = ?", c.Param("id"))
	if result.Error != nil {
		response.InternalError(c, result.Error)
		return
	}
	if result.RowsAffected == 0 {
		response.NotFoundMsg(c, "digest not found")
		return
	}
	response.NoContent(c)
}

// GET /digests/tasks  [auth]
func (h *Handler) listTasks(c *gin.Context) {
	q := pagination.FromContext(c)

	var taskType *string
	if t := c.Query("type"); t != "" {
		taskType = &t
	}
	var status *taskqueue.TaskStatus
	if s := c.Query("status"); s != "" {
		st := taskqueue.TaskStatus(s)
		status = &st
	}

	tasks, total, err := h.svc.taskSvc.List(c.Request.Context(), q.Page, q.Size, taskType, status)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, tasks, pagination.Build(total, q))
}

// GET /digests/tasks/:id  [auth]
func (h *Handler) getTask(c *gin.Context) {
	task, err := h.svc.taskSvc.GetByID(c.Request.Context(), c.Param("id"))
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

// POST /digests/tasks/:id/cancel  [auth]
func (h *Handler) cancelTask(c *gin.Context) {
	if err := h.svc.taskSvc.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.OK(c, gin.H{"message": "task cancelled"})
}

// POST /digests/tasks/:id/retry  [auth]
func (h *Handler) retryTask(c *gin.Context) {
	ctx := c.Request.Context()
	task, err := h.svc.taskSvc.GetByID(ctx, c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if task == nil {
		response.NotFoundMsg(c, "task not found")
		return
	}
	if task.Status != taskqueue.TaskFailed && task.Status != taskqueue.TaskCancelled {
		response.BadRequest(c, "can only retry failed or cancelled tasks")
		return
	}

	var payload DigestPayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		response.InternalError(c, err)
		return
	}

	retried, err := h.svc.EnqueueDigest(ctx, payload)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Accepted(c, gin.H{
		"message": "task re-queued",
		"task_id": retried.ID,
	})
}

// DELETE /digests/tasks/:id  [auth]
func (h *Handler) deleteTask(c *gin.Context) {
	if err := h.svc.taskSvc.DeleteByID(c.Request.Context(), c.Param("id")); err != nil {
		response.NotFoundMsg(c, "task not found")
		return
	}
	response.NoContent(c)
}

// DELETE /digests/tasks?before=<unix_ms>  [auth]
func (h *Handler) deleteFinishedTasks(c *gin.Context) {
	var beforeMS int64
	if raw := c.Query("before"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.BadRequest(c, "before must be a unix millisecond timestamp")
			return
		}
		beforeMS = parsed
	}
	if err := h.svc.taskSvc.DeleteFinished(c.Request.Context(), beforeMS); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
