package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/solshare/contentiq/internal/domain"
	"github.com/solshare/contentiq/internal/metrics"
)

// Generator is a vision/text generation provider using the OpenAI-compatible
// chat completion API. Two model tiers share one client: a cheap fast model
// for first-pass work and a high-fidelity model for escalation and reranking.
type Generator struct {
	client            *openai.Client
	fastModel         string
	highFidelityModel string
	maxTokens         int
	timeout           time.Duration
	logger            *zap.Logger
}

// GeneratorConfig holds the generation provider settings.
type GeneratorConfig struct {
	APIKey            string
	BaseURL           string
	FastModel         string
	HighFidelityModel string
	MaxTokens         int
	Timeout           time.Duration
	Logger            *zap.Logger
}

// NewGenerator creates an OpenAI-compatible generation provider.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Generator{
		client:            openai.NewClientWithConfig(clientCfg),
		fastModel:         cfg.FastModel,
		highFidelityModel: cfg.HighFidelityModel,
		maxTokens:         cfg.MaxTokens,
		timeout:           cfg.Timeout,
		logger:            cfg.Logger,
	}
}

func (g *Generator) modelFor(tier domain.ModelTier) string {
	if tier == domain.TierHighFidelity {
		return g.highFidelityModel
	}
	return g.fastModel
}

// Generate implements domain.Generator. When req.ImageDataURI is set the
// prompt is sent as a multimodal message; when req.JSONOutput is set the
// provider is asked for a JSON object response.
func (g *Generator) Generate(ctx context.Context, req domain.GenerateRequest) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	model := g.modelFor(req.Tier)
	tier := string(req.Tier)

	msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if req.ImageDataURI != "" {
		msg.MultiContent = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: req.Prompt},
			{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: req.ImageDataURI},
			},
		}
	} else {
		msg.Content = req.Prompt
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: []openai.ChatCompletionMessage{msg},
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	} else if g.maxTokens > 0 {
		chatReq.MaxTokens = g.maxTokens
	}
	if req.JSONOutput {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()

	resp, err := g.client.CreateChatCompletion(ctx, chatReq)

	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(model, tier, "error").Inc()
		return "", parseAPIError("generation", err)
	}

	if len(resp.Choices) == 0 {
		metrics.GenerationRequestsTotal.WithLabelValues(model, tier, "error").Inc()
		return "", fmt.Errorf("empty generation response: %w", domain.ErrProviderResponse)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(model, tier, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(model, tier).Observe(duration.Seconds())

	if resp.Usage.TotalTokens > 0 {
		metrics.GenerationTokensTotal.WithLabelValues(model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.GenerationTokensTotal.WithLabelValues(model, "completion").Add(float64(resp.Usage.CompletionTokens))
	}

	return resp.Choices[0].Message.Content, nil
}
