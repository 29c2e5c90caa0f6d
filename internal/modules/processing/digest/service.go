package digest

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	appcfg "github.com/clipdigest/core/internal/config"
	"github.com/clipdigest/core/internal/models"
	"github.com/clipdigest/core/internal/modules/processing/cost"
	"github.com/clipdigest/core/internal/pkg/taskqueue"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const TaskTypeDigest = "digest:generate"

// Service runs digest generation and owns its persistence.
type Service struct {
	db      *gorm.DB
	cfg     *appcfg.AppConfig
	taskSvc *taskqueue.Service
	log     *zap.Logger

	// newClient is swappable so tests can stub the AI capability.
	newClient func(*appcfg.AIProvider) (CompletionClient, error)
}

func NewService(db *gorm.DB, cfg *appcfg.AppConfig, taskSvc *taskqueue.Service, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		db:        db,
		cfg:       cfg,
		taskSvc:   taskSvc,
		log:       log,
		newClient: NewCompletionClient,
	}
}

// digestKey generates the dedup key for a digest task.
func digestKey(videoID string, action Action, lang string) string {
	if lang == "" {
		lang = "default"
	}
	return fmt.Sprintf("%s:%s:%s", videoID, action, lang)
}

// hashKey generates the storage hash for a digest.
func hashKey(videoID string, action Action, lang string) string {
	h := sha256.Sum256([]byte(digestKey(videoID, action, lang)))
	return fmt.Sprintf("%x", h)
}

func (s *Service) assignmentFor(action Action) *appcfg.AIModelAssignment {
	switch action {
	case ActionKeyPoints:
		return s.cfg.AI.KeyPointsModel
	case ActionTopics:
		return s.cfg.AI.TopicsModel
	default:
		return s.cfg.AI.SummaryModel
	}
}

func (s *Service) orchestratorFor(action Action) (*Orchestrator, error) {
	provider := SelectProvider(s.cfg.AI, s.assignmentFor(action))
	if provider == nil {
		return nil, errors.New("no enabled AI provider")
	}
	client, err := s.newClient(provider)
	if err != nil {
		return nil, err
	}
	return NewOrchestrator(client, s.cfg, s.log), nil
}

// Process runs one digest request synchronously, persists the outcome, and
// attaches a cost estimate derived from the aggregated usage.
func (s *Service) Process(ctx context.Context, req Request) (*Result, *cost.Estimate, error) {
	if strings.TrimSpace(req.Lang) == "" {
		req.Lang = s.cfg.AI.TargetLanguage
	}

	orch, err := s.orchestratorFor(req.Action)
	if err != nil {
		return nil, nil, err
	}

	result, err := orch.Process(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	estimate := cost.Calculate(cost.Usage{
		PromptTokens:     result.Usage.PromptTokens,
		CompletionTokens: result.Usage.CompletionTokens,
	}, result.Model)

	if s.db != nil && req.VideoID != "" {
		s.persist(req, result)
	}
	return result, &estimate, nil
}

func (s *Service) persist(req Request, result *Result) {
	items := make(models.StringSlice, 0, len(result.Items))
	for _, item := range result.Items {
		if item.Description != "" {
			items = append(items, item.Name+": "+item.Description)
			continue
		}
		items = append(items, item.Name)
	}

	hash := hashKey(req.VideoID, result.Action, req.Lang)
	digest := models.DigestModel{
		Hash:             hash,
		VideoID:          req.VideoID,
		Action:           string(result.Action),
		Lang:             req.Lang,
		Text:             result.Text,
		Items:            items,
		PromptTokens:     result.Usage.PromptTokens,
		CompletionTokens: result.Usage.CompletionTokens,
		Model:            result.Model,
		ProcessingMS:     result.ProcessingTime.Milliseconds(),
		PartialFailure:   result.PartialFailure,
	}
	if err := s.db.Where("hash = ?", hash).Assign(digest).FirstOrCreate(&digest).Error; err != nil {
		s.log.Warn("digest persist failed",
			zap.String("video_id", req.VideoID),
			zap.Error(err),
		)
	}
}

// GetDigest returns a stored digest, or nil when absent.
func (s *Service) GetDigest(videoID string, action Action, lang string) (*models.DigestModel, error) {
	hash := hashKey(videoID, action, lang)
	var digest models.DigestModel
	if err := s.db.Where("hash = ?", hash).First(&digest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &digest, nil
}

// EnqueueDigest creates a background digest task (or returns the existing
// dedup task) and starts executing it.
func (s *Service) EnqueueDigest(ctx context.Context, payload DigestPayload) (*taskqueue.Task, error) {
	if strings.TrimSpace(payload.VideoID) == "" {
		return nil, errors.New("videoId is required")
	}
	if payload.Action == "" {
		payload.Action = ActionSummary
	}
	if strings.TrimSpace(payload.Lang) == "" {
		payload.Lang = s.cfg.AI.TargetLanguage
	}

	task, err := s.taskSvc.Enqueue(ctx, TaskTypeDigest, payload, digestKey(payload.VideoID, payload.Action, payload.Lang))
	if err != nil {
		return nil, err
	}

	if task.Status == taskqueue.TaskPending {
		go s.executeDigest(context.Background(), task.ID, payload)
	}
	return task, nil
}

func (s *Service) executeDigest(ctx context.Context, taskID string, payload DigestPayload) {
	s.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskRunning, nil, "")

	result, estimate, err := s.Process(ctx, Request{
		VideoID:    payload.VideoID,
		Title:      payload.Title,
		Transcript: payload.Transcript,
		Chapters:   payload.Chapters,
		Action:     payload.Action,
		Lang:       payload.Lang,
	})
	if err != nil {
		s.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskFailed, nil, err.Error())
		return
	}

	s.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskCompleted, map[string]interface{}{
		"text":            result.Text,
		"items":           result.Items,
		"usage":           result.Usage,
		"cost":            estimate,
		"partial_failure": result.PartialFailure,
		"processing_ms":   result.ProcessingTime.Milliseconds(),
	}, "")
}
