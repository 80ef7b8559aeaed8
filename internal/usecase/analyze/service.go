// Package analyze runs the full content pipeline: fetch the image, describe
// it with the vision model, embed the description, and index the post for
// search and recommendations.
package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/solshare/contentiq/internal/domain"
)

const analysisPrompt = `Analyze this image for social media indexing. Provide JSON:
{
  "description": "2-3 sentence description",
  "tags": ["5-10 relevant tags"],
  "scene_type": "indoor/outdoor/urban/nature/portrait/food/etc",
  "objects": ["main objects visible"],
  "mood": "emotional tone/atmosphere",
  "colors": ["dominant colors"],
  "safety_score": 0-10 (0=unsafe, 10=safe),
  "alt_text": "accessibility description"
}`

// Analysis is the vision model's structured description of an image plus the
// embedding computed from it.
type Analysis struct {
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	SceneType   string    `json:"scene_type"`
	Objects     []string  `json:"objects"`
	Mood        string    `json:"mood"`
	Colors      []string  `json:"colors"`
	SafetyScore float64   `json:"safety_score"`
	AltText     string    `json:"alt_text"`
	Embedding   []float32 `json:"-"`
}

// Service runs the content analysis pipeline.
type Service struct {
	gen     Generator
	embed   Embedder
	repo    Repository
	fetcher Fetcher
	logger  *zap.Logger
}

// New creates an analysis service.
func New(gen Generator, embed Embedder, repo Repository, fetcher Fetcher, logger *zap.Logger) *Service {
	return &Service{gen: gen, embed: embed, repo: repo, fetcher: fetcher, logger: logger}
}

// Analyze fetches and describes the content at contentURI. When postID is
// non-empty the result is indexed so the post becomes searchable and
// recommendable.
func (s *Service) Analyze(ctx context.Context, contentURI, caption, postID, creatorWallet string) (Analysis, error) {
	dataURI, err := s.fetcher.Fetch(ctx, contentURI)
	if err != nil {
		return Analysis{}, err
	}

	prompt := analysisPrompt
	if caption != "" {
		prompt += "\n\nCaption: " + caption
	}

	raw, err := s.gen.Generate(ctx, domain.GenerateRequest{
		Prompt:       prompt,
		ImageDataURI: dataURI,
		JSONOutput:   true,
		Tier:         domain.TierFast,
	})
	if err != nil {
		return Analysis{}, fmt.Errorf("analyze image: %w", err)
	}

	var analysis Analysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		return Analysis{}, fmt.Errorf("parse analysis: %w: %w", err, domain.ErrProviderResponse)
	}
	if analysis.SceneType == "" {
		analysis.SceneType = "unknown"
	}

	embedText := strings.TrimSpace(analysis.Description + " " + caption)
	emb, err := s.embed.Embed(ctx, embedText)
	if err != nil {
		return Analysis{}, fmt.Errorf("embed description: %w", err)
	}
	analysis.Embedding = emb.Embedding

	if postID != "" {
		if err := s.index(ctx, postID, creatorWallet, caption, analysis); err != nil {
			return Analysis{}, err
		}
	}

	return analysis, nil
}

func (s *Service) index(ctx context.Context, postID, creatorWallet, caption string, a Analysis) error {
	if err := s.repo.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}

	rec := domain.PostRecord{
		PostID: postID,
		Vector: a.Embedding,
		Payload: domain.PostPayload{
			Description: a.Description,
			Caption:     caption,
			Tags:        a.Tags,
			SceneType:   a.SceneType,
			Mood:        a.Mood,
			Creator:     creatorWallet,
		},
	}
	if err := s.repo.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("index post: %w", err)
	}

	s.logger.Info("post indexed",
		zap.String("post_id", postID),
		zap.String("scene_type", a.SceneType),
		zap.Int("tags", len(a.Tags)),
	)

	return nil
}
