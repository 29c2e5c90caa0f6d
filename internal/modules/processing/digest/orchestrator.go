package digest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	appcfg "github.com/clipdigest/core/internal/config"
	"github.com/clipdigest/core/internal/modules/processing/chunker"
	"github.com/clipdigest/core/internal/pkg/quotacache"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrEmptyInput rejects requests with nothing to process.
var ErrEmptyInput = errors.New("transcript is empty")

// maxDocumentTokens caps what a single whole-document call may carry.
const maxDocumentTokens = 12000

// Orchestrator decides whether to process a transcript whole or chapter by
// chapter, runs the AI calls, and merges partial outputs into one result
// while aggregating usage.
type Orchestrator struct {
	client        CompletionClient
	log           *zap.Logger
	maxConcurrent int
	chunkTokens   int
	overlapTokens int
	maxTokens     int
	temperature   float64
	thresholds    map[Action]int
}

// NewOrchestrator wires an orchestrator from config around an injected
// completion client.
func NewOrchestrator(client CompletionClient, cfg *appcfg.AppConfig, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	maxConcurrent := cfg.AI.MaxConcurrentRequests
	if maxConcurrent < 1 {
		// errgroup.SetLimit(0) would block every Go call
		maxConcurrent = 1
	}
	p := cfg.Processing
	return &Orchestrator{
		client:        client,
		log:           log,
		maxConcurrent: maxConcurrent,
		chunkTokens:   p.MaxChunkTokens,
		overlapTokens: p.ChunkOverlapTokens,
		maxTokens:     p.CompletionMaxTokens,
		temperature:   float64(p.CompletionTemperature) / 100,
		thresholds: map[Action]int{
			ActionSummary:   p.SummaryThreshold,
			ActionKeyPoints: p.KeyPointsThreshold,
			ActionTopics:    p.TopicsThreshold,
		},
	}
}

type chapterOutcome struct {
	title string
	items []ResultItem
	usage TokenUsage
	err   error
}

// Process is the uniform entry point across action types.
func (o *Orchestrator) Process(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()

	action := req.Action
	if action == "" {
		action = ActionSummary
	}
	if action != ActionSummary && action != ActionKeyPoints && action != ActionTopics {
		return nil, fmt.Errorf("unsupported action %q", action)
	}
	if strings.TrimSpace(req.Transcript) == "" && len(req.Chapters) == 0 {
		return nil, ErrEmptyInput
	}

	chapters := req.Chapters
	if len(chapters) == 0 && req.MarkerPattern != "" {
		chapters = o.deriveChapters(req.Transcript, req.MarkerPattern)
	}

	var (
		result *Result
		err    error
	)
	if len(chapters) > 0 {
		result, err = o.processChapters(ctx, action, req, chapters)
	} else {
		result, err = o.processWhole(ctx, action, req)
	}
	if err != nil {
		return nil, err
	}

	result.Action = action
	result.Model = o.client.Model()
	result.ProcessingTime = time.Since(started)
	return result, nil
}

// deriveChapters builds a chapter list from marker occurrences in the
// transcript. The chunker never fails; it degrades to synthetic parts.
func (o *Orchestrator) deriveChapters(transcript, markerPattern string) []Chapter {
	chunks := chunker.SplitByChapterMarkers(transcript, markerPattern, o.chunkTokens)
	chapters := make([]Chapter, 0, len(chunks))
	for _, ch := range chunks {
		chapters = append(chapters, Chapter{Title: ch.Title, Text: ch.Content})
	}
	return chapters
}

func (o *Orchestrator) generationOptions() GenerationOptions {
	return GenerationOptions{MaxTokens: o.maxTokens, Temperature: o.temperature}
}

func (o *Orchestrator) processWhole(ctx context.Context, action Action, req Request) (*Result, error) {
	text := req.Transcript
	if chunker.EstimateTokenCount(text) > maxDocumentTokens {
		parts := chunker.SplitByTokenBudget(text, maxDocumentTokens, 0)
		text = parts[0]
		o.log.Warn("transcript truncated for whole-document processing",
			zap.String("video_id", req.VideoID),
			zap.Int("parts_dropped", len(parts)-1),
		)
	}

	systemPrompt, userPrompt := buildPrompt(action, req.Title, text, req.Lang)
	comp, err := o.client.GenerateCompletion(ctx, systemPrompt, userPrompt, o.generationOptions())
	if err != nil {
		return nil, err
	}

	summary, items, _ := o.parse(action, comp.Text, req.VideoID)

	return &Result{
		Text:  summary,
		Items: items,
		Usage: comp.Usage,
	}, nil
}

// processChapters fans out one call per chapter, preserves chapter order,
// isolates per-chapter failures, and consolidates when the collected items
// exceed the action's threshold.
func (o *Orchestrator) processChapters(ctx context.Context, action Action, req Request, chapters []Chapter) (*Result, error) {
	chunks := o.expandChapters(chapters)

	outcomes := make([]chapterOutcome, len(chunks))
	opts := o.generationOptions()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.maxConcurrent)
	for i, ch := range chunks {
		i, ch := i, ch
		g.Go(func() error {
			outcomes[i].title = ch.Title
			if err := gctx.Err(); err != nil {
				// request cancelled before this chapter's call was issued
				outcomes[i].err = err
				return nil
			}

			systemPrompt, userPrompt := buildChapterPrompt(action, req.Title, ch.Title, ch.Content, req.Lang)
			comp, err := o.client.GenerateCompletion(gctx, systemPrompt, userPrompt, opts)
			if err != nil {
				// a failed chapter never aborts its siblings
				outcomes[i].err = err
				o.log.Warn("chapter call failed",
					zap.String("video_id", req.VideoID),
					zap.String("chapter", ch.Title),
					zap.Error(err),
				)
				return nil
			}

			outcomes[i].usage = comp.Usage
			summary, items, _ := o.parse(action, comp.Text, req.VideoID)
			if action == ActionSummary {
				items = []ResultItem{{Name: ch.Title, Description: summary}}
			}
			outcomes[i].items = items
			return nil
		})
	}
	_ = g.Wait()

	result := &Result{ChapterCount: len(chunks)}
	var items []ResultItem
	var firstErr error
	failed := 0
	for _, out := range outcomes {
		result.Usage.Add(out.usage)
		if out.err != nil {
			failed++
			result.PartialFailure = true
			result.FailedChapters = append(result.FailedChapters, out.title)
			if firstErr == nil || errors.Is(out.err, quotacache.ErrQuotaExceeded) {
				firstErr = out.err
			}
			continue
		}
		items = append(items, out.items...)
	}
	if failed == len(chunks) {
		if firstErr == nil {
			firstErr = errors.New("all chapter calls failed")
		}
		return nil, firstErr
	}

	threshold := o.thresholds[action]
	if len(items) > threshold {
		consolidated, usage, err := o.consolidate(ctx, action, items, req.Lang)
		result.Usage.Add(usage)
		if err != nil {
			// keep the raw merged results rather than failing the request
			result.PartialFailure = true
			o.log.Warn("consolidation call failed",
				zap.String("video_id", req.VideoID),
				zap.Error(err),
			)
		} else {
			items = consolidated
			result.Consolidated = true
		}
	}

	if action == ActionSummary {
		result.Text = joinSummaries(items, result.Consolidated)
	} else {
		result.Items = items
	}
	return result, nil
}

// consolidate issues exactly one extra call merging all partial items into a
// reduced, de-duplicated set. Its usage is charged whether or not parsing
// degrades.
func (o *Orchestrator) consolidate(ctx context.Context, action Action, items []ResultItem, lang string) ([]ResultItem, TokenUsage, error) {
	systemPrompt, userPrompt := buildConsolidationPrompt(action, items, lang)
	comp, err := o.client.GenerateCompletion(ctx, systemPrompt, userPrompt, o.generationOptions())
	if err != nil {
		return nil, TokenUsage{}, err
	}

	summary, parsed, _ := o.parse(action, comp.Text, "")
	if action == ActionSummary {
		parsed = []ResultItem{{Description: summary}}
	}
	return parsed, comp.Usage, nil
}

// expandChapters splits oversized chapters into parts so every fan-out call
// fits the per-chunk token budget.
func (o *Orchestrator) expandChapters(chapters []Chapter) []chunker.Chunk {
	var chunks []chunker.Chunk
	for _, chapter := range chapters {
		if chunker.EstimateTokenCount(chapter.Text) <= o.chunkTokens {
			chunks = append(chunks, chunker.Chunk{
				Title:    chapter.Title,
				Content:  chapter.Text,
				Sequence: len(chunks),
			})
			continue
		}
		parts := chunker.SplitByTokenBudget(chapter.Text, o.chunkTokens, o.overlapTokens)
		for i, part := range parts {
			chunks = append(chunks, chunker.Chunk{
				Title:    fmt.Sprintf("%s (part %d)", chapter.Title, i+1),
				Content:  part,
				Sequence: len(chunks),
			})
		}
	}
	return chunks
}

// parse never fails; shape mismatches degrade to a valid result and are
// logged here so processors stay pure.
func (o *Orchestrator) parse(action Action, raw, videoID string) (string, []ResultItem, bool) {
	var (
		summary  string
		items    []ResultItem
		degraded bool
	)
	switch action {
	case ActionSummary:
		summary, degraded = parseSummary(raw)
	case ActionKeyPoints:
		items, degraded = parseKeyPoints(raw)
	default:
		items, degraded = parseTopics(raw)
	}
	if degraded {
		o.log.Warn("AI response not in expected shape, degraded parse applied",
			zap.String("action", string(action)),
			zap.String("video_id", videoID),
		)
	}
	return summary, items, degraded
}

func joinSummaries(items []ResultItem, consolidated bool) string {
	if consolidated && len(items) == 1 {
		return items[0].Description
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		text := item.Description
		if text == "" {
			text = item.Name
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n\n")
}
