// Package moderation scores images for content safety with a two-tier model
// pipeline: every request gets a fast-model pass, suspicious ones are
// re-scored by the high-fidelity model before the verdict is decided.
package moderation

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/solshare/contentiq/internal/domain"
	logpkg "github.com/solshare/contentiq/internal/logger"
	"github.com/solshare/contentiq/internal/metrics"
)

const moderationPrompt = `Analyze this image for content safety. Score each category 0-10:
- nsfw: Sexual/adult content
- violence: Gore, weapons in use
- hate: Hate symbols, slurs
- child_safety: Content involving minors inappropriately
- spam: Obvious promotional/scam content
- drugs_weapons: Drug use, weapon sales

Return JSON: {"nsfw": X, "violence": X, "hate": X, "child_safety": X, "spam": X, "drugs_weapons": X, "explanation": "brief reason"}`

// Service runs the moderation pipeline.
type Service struct {
	gen                 Generator
	blocklist           Blocklist
	thresholds          domain.ThresholdTable
	escalationThreshold float64
	logger              *zap.Logger
	now                 func() time.Time
}

// New creates a moderation service.
func New(gen Generator, blocklist Blocklist, thresholds domain.ThresholdTable, escalationThreshold float64, logger *zap.Logger) *Service {
	return &Service{
		gen:                 gen,
		blocklist:           blocklist,
		thresholds:          thresholds,
		escalationThreshold: escalationThreshold,
		logger:              logger,
		now:                 time.Now,
	}
}

// scorePayload is the model's JSON scoring output. Absent categories read
// as zero.
type scorePayload struct {
	domain.ScoreVector
	Explanation string `json:"explanation"`
}

// Moderate scores an image and decides a verdict. When the fast pass finds
// any score above the escalation threshold, the image is re-scored by the
// high-fidelity model and the second pass fully replaces the first.
func (s *Service) Moderate(ctx context.Context, imageBase64, caption string) (domain.ModerationResult, error) {
	start := s.now()

	prompt := moderationPrompt
	if caption != "" {
		prompt += "\n\nCaption: " + caption
	}

	scores, err := s.scoreImage(ctx, imageBase64, prompt, domain.TierFast)
	if err != nil {
		return domain.ModerationResult{}, err
	}

	escalated := false
	if scores.Max() > s.escalationThreshold {
		escalated = true
		s.logger.Debug("escalating to high-fidelity model", zap.Float64("fast_max_score", scores.Max()))
		rescored, err := s.scoreImage(ctx, imageBase64, prompt, domain.TierHighFidelity)
		if err != nil {
			return domain.ModerationResult{}, err
		}
		scores = rescored
	}

	verdict, blockedCategory := domain.DetermineVerdict(scores.ScoreVector, s.thresholds)
	elapsed := s.now().Sub(start)

	metrics.ModerationVerdictsTotal.WithLabelValues(string(verdict), strconv.FormatBool(escalated)).Inc()
	// Request-scoped logger carries request_id for correlation.
	logpkg.FromContext(ctx).Info("moderation verdict",
		zap.String("verdict", string(verdict)),
		zap.Bool("escalated", escalated),
		zap.Float64("max_score", scores.Max()),
		zap.String("blocked_category", blockedCategory),
		zap.Duration("elapsed", elapsed),
	)

	return domain.ModerationResult{
		Verdict:          verdict,
		Scores:           scores.ScoreVector,
		MaxScore:         scores.Max(),
		Explanation:      scores.Explanation,
		ProcessingTimeMS: elapsed.Milliseconds(),
		BlockedCategory:  blockedCategory,
	}, nil
}

func (s *Service) scoreImage(ctx context.Context, imageBase64, prompt string, tier domain.ModelTier) (scorePayload, error) {
	raw, err := s.gen.Generate(ctx, domain.GenerateRequest{
		Prompt:       prompt,
		ImageDataURI: imageBase64,
		JSONOutput:   true,
		Tier:         tier,
	})
	if err != nil {
		return scorePayload{}, fmt.Errorf("score image (%s): %w", tier, err)
	}

	var payload scorePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return scorePayload{}, fmt.Errorf("parse moderation scores: %w: %w", err, domain.ErrProviderResponse)
	}

	return payload, nil
}

// CheckHash looks the image hash up in the blocked-content table.
func (s *Service) CheckHash(ctx context.Context, imageHash string) domain.HashCheck {
	return s.blocklist.Check(ctx, imageHash)
}
