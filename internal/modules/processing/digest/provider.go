package digest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	anthropicclient "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	appcfg "github.com/clipdigest/core/internal/config"
	"github.com/clipdigest/core/internal/pkg/quotacache"
	openaiclient "github.com/openai/openai-go/v2"
	openaioption "github.com/openai/openai-go/v2/option"
)

// ProviderKind is the resolved provider variant. Unknown configured types
// fail at client construction instead of falling through silently.
type ProviderKind int

const (
	ProviderOpenAI ProviderKind = iota
	ProviderOpenAICompatible
	ProviderAnthropic
	ProviderOpenRouter
)

var providerKinds = map[string]ProviderKind{
	"openai":            ProviderOpenAI,
	"openai-compatible": ProviderOpenAICompatible,
	"openaicompatible":  ProviderOpenAICompatible,
	"anthropic":         ProviderAnthropic,
	"openrouter":        ProviderOpenRouter,
}

// ResolveProviderKind maps a configured type string to its variant.
func ResolveProviderKind(raw string) (ProviderKind, error) {
	t := strings.ToLower(strings.TrimSpace(raw))
	t = strings.ReplaceAll(t, "_", "-")
	t = strings.ReplaceAll(t, " ", "")
	kind, ok := providerKinds[t]
	if !ok {
		return 0, fmt.Errorf("unknown AI provider type %q", raw)
	}
	return kind, nil
}

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// NewCompletionClient builds a CompletionClient for the configured provider.
func NewCompletionClient(provider *appcfg.AIProvider) (CompletionClient, error) {
	if provider == nil {
		return nil, errors.New("AI provider is nil")
	}
	apiKey := strings.TrimSpace(provider.APIKey)
	if apiKey == "" {
		return nil, errors.New("AI provider api key is empty")
	}

	kind, err := ResolveProviderKind(provider.Type)
	if err != nil {
		return nil, err
	}

	model := strings.TrimSpace(provider.DefaultModel)
	endpoint := strings.TrimSpace(provider.Endpoint)

	switch kind {
	case ProviderAnthropic:
		if model == "" {
			model = "claude-haiku-4-5-20251001"
		}
		opts := []anthropicoption.RequestOption{
			anthropicoption.WithAPIKey(apiKey),
			anthropicoption.WithMaxRetries(0),
		}
		if endpoint != "" {
			opts = append(opts, anthropicoption.WithBaseURL(strings.TrimRight(endpoint, "/")))
		}
		return &anthropicCompletionClient{
			client: anthropicclient.NewClient(opts...),
			model:  model,
		}, nil

	case ProviderOpenAICompatible:
		if model == "" {
			model = "gpt-4o-mini"
		}
		return &compatCompletionClient{
			endpoint: normalizeCompatEndpoint(endpoint),
			apiKey:   apiKey,
			model:    model,
			http:     &http.Client{Timeout: 60 * time.Second},
		}, nil

	case ProviderOpenRouter:
		if model == "" {
			model = "gpt-4o-mini"
		}
		base := endpoint
		if base == "" {
			base = openRouterBaseURL
		}
		return newOpenAICompletionClient(apiKey, base, model), nil

	default: // ProviderOpenAI
		if model == "" {
			model = "gpt-4o-mini"
		}
		return newOpenAICompletionClient(apiKey, normalizeOpenAIBaseURL(endpoint), model), nil
	}
}

// SelectProvider walks the registry for the assigned provider, falling back
// to the first enabled one. The assignment's model overrides the default.
func SelectProvider(cfg appcfg.AIConfig, assignment *appcfg.AIModelAssignment) *appcfg.AIProvider {
	var providerID, overrideModel string
	if assignment != nil {
		providerID = strings.TrimSpace(assignment.ProviderID)
		overrideModel = strings.TrimSpace(assignment.Model)
	}

	pick := func(provider appcfg.AIProvider) *appcfg.AIProvider {
		selected := provider
		if overrideModel != "" {
			selected.DefaultModel = overrideModel
		}
		return &selected
	}

	if providerID != "" {
		for _, provider := range cfg.Providers {
			if !provider.Enabled || strings.TrimSpace(provider.ID) != providerID {
				continue
			}
			return pick(provider)
		}
	}

	for _, provider := range cfg.Providers {
		if !provider.Enabled {
			continue
		}
		return pick(provider)
	}

	return nil
}

// --- OpenAI / OpenRouter ---

type openaiCompletionClient struct {
	client openaiclient.Client
	model  string
}

func newOpenAICompletionClient(apiKey, baseURL, model string) *openaiCompletionClient {
	opts := []openaioption.RequestOption{
		openaioption.WithAPIKey(apiKey),
		openaioption.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, openaioption.WithBaseURL(baseURL))
	}
	return &openaiCompletionClient{
		client: openaiclient.NewClient(opts...),
		model:  model,
	}
}

func (c *openaiCompletionClient) Model() string { return c.model }

func (c *openaiCompletionClient) GenerateCompletion(ctx context.Context, systemPrompt, userPrompt string, opts GenerationOptions) (*Completion, error) {
	messages := make([]openaiclient.ChatCompletionMessageParamUnion, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, openaiclient.SystemMessage(systemPrompt))
	}
	messages = append(messages, openaiclient.UserMessage(userPrompt))

	params := openaiclient.ChatCompletionNewParams{
		Model:    openaiclient.ChatModel(c.model),
		Messages: messages,
	}
	if opts.MaxTokens > 0 {
		params.MaxTokens = openaiclient.Int(int64(opts.MaxTokens))
	}
	if opts.Temperature > 0 {
		params.Temperature = openaiclient.Float(opts.Temperature)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, wrapProviderError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("empty response from AI")
	}
	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("empty response from AI")
	}

	return &Completion{
		Text: text,
		Usage: TokenUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
		},
	}, nil
}

// --- Anthropic ---

type anthropicCompletionClient struct {
	client anthropicclient.Client
	model  string
}

func (c *anthropicCompletionClient) Model() string { return c.model }

func (c *anthropicCompletionClient) GenerateCompletion(ctx context.Context, systemPrompt, userPrompt string, opts GenerationOptions) (*Completion, error) {
	maxTokens := int64(opts.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	params := anthropicclient.MessageNewParams{
		Model:     anthropicclient.Model(c.model),
		MaxTokens: maxTokens,
		Messages: []anthropicclient.MessageParam{
			anthropicclient.NewUserMessage(anthropicclient.NewTextBlock(userPrompt)),
		},
	}
	if strings.TrimSpace(systemPrompt) != "" {
		params.System = []anthropicclient.TextBlockParam{{Text: systemPrompt}}
	}
	if opts.Temperature > 0 {
		params.Temperature = anthropicclient.Float(opts.Temperature)
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, wrapProviderError(err)
	}

	var full strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			full.WriteString(block.Text)
		}
	}
	text := full.String()
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("empty response from AI")
	}

	return &Completion{
		Text: text,
		Usage: TokenUsage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
		},
	}, nil
}

// --- OpenAI-compatible (raw chat/completions) ---

type compatCompletionClient struct {
	endpoint string
	apiKey   string
	model    string
	http     *http.Client
}

func (c *compatCompletionClient) Model() string { return c.model }

func (c *compatCompletionClient) GenerateCompletion(ctx context.Context, systemPrompt, userPrompt string, opts GenerationOptions) (*Completion, error) {
	messages := make([]map[string]string, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, map[string]string{"role": "system", "content": systemPrompt})
	}
	messages = append(messages, map[string]string{"role": "user", "content": userPrompt})

	payload := map[string]interface{}{
		"model":    c.model,
		"messages": messages,
	}
	if opts.MaxTokens > 0 {
		payload["max_tokens"] = opts.MaxTokens
	}
	if opts.Temperature > 0 {
		payload["temperature"] = opts.Temperature
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("provider rejected request: %w", quotacache.ErrQuotaExceeded)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("openai-compatible error: %s", strings.TrimSpace(string(respBody)))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, err
	}
	if result.Error != nil && strings.TrimSpace(result.Error.Message) != "" {
		return nil, fmt.Errorf("openai-compatible error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 || strings.TrimSpace(result.Choices[0].Message.Content) == "" {
		return nil, errors.New("empty response from AI")
	}

	return &Completion{
		Text: result.Choices[0].Message.Content,
		Usage: TokenUsage{
			PromptTokens:     result.Usage.PromptTokens,
			CompletionTokens: result.Usage.CompletionTokens,
		},
	}, nil
}

// wrapProviderError tags quota-style provider failures so callers can
// distinguish them (HTTP 429-equivalent) from ordinary call errors.
func wrapProviderError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "429") ||
		strings.Contains(msg, "insufficient_quota") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "rate_limit") {
		return fmt.Errorf("%v: %w", err, quotacache.ErrQuotaExceeded)
	}
	return err
}

func normalizeOpenAIBaseURL(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return ""
	}
	parsed, err := neturl.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return strings.TrimRight(base, "/")
	}

	path := strings.TrimRight(parsed.Path, "/")
	if !strings.HasSuffix(path, "/v1") {
		path += "/v1"
	}
	parsed.Path = path
	return strings.TrimRight(parsed.String(), "/")
}

func normalizeCompatEndpoint(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return "https://api.openai.com"
	}
	parsed, err := neturl.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return strings.TrimSuffix(strings.TrimRight(base, "/"), "/v1")
	}

	path := strings.TrimRight(parsed.Path, "/")
	path = strings.TrimSuffix(path, "/v1")
	parsed.Path = path
	return strings.TrimRight(parsed.String(), "/")
}
