// Package recommend builds personalized feeds. Users with like history get
// candidates matched against an LLM-written taste profile; everyone else
// gets a trending fallback.
package recommend

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/solshare/contentiq/internal/domain"
)

const tasteProfilePrompt = `Based on these liked content descriptions, describe the user's taste:
%s

Write 2-3 sentences about their preferences (themes, aesthetics, moods they enjoy).`

// tasteHistoryWindow caps how many recent likes feed the taste profile.
const tasteHistoryWindow = 20

// Feed reasons surfaced to clients.
const (
	reasonTrending = "Trending"
	reasonSimilar  = "Similar to liked posts"
)

// Recommendation is one feed entry.
type Recommendation struct {
	PostID string
	Score  float64
	Reason string
}

// Result is a recommendation response. TasteProfile is empty for trending
// (cold start) feeds.
type Result struct {
	Recommendations []Recommendation
	TasteProfile    string
}

// Service builds recommendation feeds.
type Service struct {
	gen        Generator
	embed      Embedder
	repo       Repository
	dimensions int
	logger     *zap.Logger
}

// New creates a recommendation service. dimensions must match the stored
// vectors; the trending fallback probes with a zero vector of that size.
func New(gen Generator, embed Embedder, repo Repository, dimensions int, logger *zap.Logger) *Service {
	return &Service{gen: gen, embed: embed, repo: repo, dimensions: dimensions, logger: logger}
}

// Recommend builds a feed for the user. Without like history the feed is
// trending content; with history it is taste-profile similarity with a
// per-creator diversity pass. A taste-profile generation failure degrades
// to trending rather than failing the request.
func (s *Service) Recommend(ctx context.Context, userWallet string, likedPostIDs []string, limit int, excludeSeen []string) (Result, error) {
	if len(likedPostIDs) == 0 {
		return s.trending(ctx, limit, excludeSeen)
	}

	recent := likedPostIDs
	if len(recent) > tasteHistoryWindow {
		recent = recent[len(recent)-tasteHistoryWindow:]
	}

	liked, err := s.repo.GetByIDs(ctx, recent)
	if err != nil {
		return Result{}, fmt.Errorf("load liked posts: %w", err)
	}
	if len(liked) == 0 {
		return Result{}, nil
	}

	var sb strings.Builder
	for _, p := range liked {
		if p.Payload.Description == "" {
			continue
		}
		sb.WriteString("- ")
		sb.WriteString(p.Payload.Description)
		sb.WriteString("\n")
	}

	profile, err := s.gen.Generate(ctx, domain.GenerateRequest{
		Prompt: fmt.Sprintf(tasteProfilePrompt, strings.TrimRight(sb.String(), "\n")),
		Tier:   domain.TierFast,
	})
	if err != nil {
		s.logger.Warn("taste profile generation failed, serving trending",
			zap.String("user_wallet", userWallet), zap.Error(err))
		return s.trending(ctx, limit, excludeSeen)
	}

	emb, err := s.embed.Embed(ctx, profile)
	if err != nil {
		return Result{}, fmt.Errorf("embed taste profile: %w", err)
	}

	exclude := make([]string, 0, len(excludeSeen)+len(likedPostIDs))
	exclude = append(exclude, excludeSeen...)
	exclude = append(exclude, likedPostIDs...)

	// Over-fetch so the diversity pass has spare candidates to skip.
	candidates, err := s.repo.Search(ctx, emb.Embedding, limit*2, exclude, domain.SearchFilter{})
	if err != nil {
		return Result{}, fmt.Errorf("search candidates: %w", err)
	}

	diverse := diversify(candidates, limit)

	recs := make([]Recommendation, len(diverse))
	for i, c := range diverse {
		recs[i] = Recommendation{PostID: c.PostID, Score: c.Score, Reason: reasonSimilar}
	}

	return Result{Recommendations: recs, TasteProfile: profile}, nil
}

// trending serves the cold-start feed: nearest posts to the zero vector,
// which under cosine distance is an unbiased sample of recent content.
func (s *Service) trending(ctx context.Context, limit int, excludeSeen []string) (Result, error) {
	zero := make([]float32, s.dimensions)

	candidates, err := s.repo.Search(ctx, zero, limit, excludeSeen, domain.SearchFilter{})
	if err != nil {
		return Result{}, fmt.Errorf("search trending: %w", err)
	}

	recs := make([]Recommendation, len(candidates))
	for i, c := range candidates {
		recs[i] = Recommendation{PostID: c.PostID, Score: c.Score, Reason: reasonTrending}
	}

	return Result{Recommendations: recs}, nil
}

// diversify walks candidates in rank order, skipping repeat creators while
// fewer than limit/2 entries are admitted. Once that floor is reached
// repeats flow through, so a feed dominated by one prolific creator still
// fills up.
func diversify(candidates []domain.Candidate, limit int) []domain.Candidate {
	seen := make(map[string]struct{})
	out := make([]domain.Candidate, 0, limit)

	for _, c := range candidates {
		creator := c.Payload.Creator
		if creator != "" {
			if _, dup := seen[creator]; dup && len(out) < limit/2 {
				continue
			}
			seen[creator] = struct{}{}
		}
		out = append(out, c)
		if len(out) >= limit {
			break
		}
	}

	return out
}
