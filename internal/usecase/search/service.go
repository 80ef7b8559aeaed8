// Package search implements semantic post search: the query is expanded into
// a visual description by the fast model, embedded, matched against the
// vector store, and optionally reranked by the high-fidelity model.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/solshare/contentiq/internal/domain"
)

const queryExpansionPrompt = `Expand this search query into a visual description for image search.
Query: "%s"
Describe what images would match: subjects, settings, mood, visual elements.
Be specific in 2-3 sentences.`

// rerankCandidateCap bounds how many candidates are shown to the reranking
// model.
const rerankCandidateCap = 50

// Result is a search response: ranked hits plus the expanded query that
// produced them.
type Result struct {
	Results       []domain.Candidate
	ExpandedQuery string
}

// Service executes the semantic search pipeline.
type Service struct {
	gen    Generator
	embed  Embedder
	repo   Repository
	logger *zap.Logger
}

// New creates a search service.
func New(gen Generator, embed Embedder, repo Repository, logger *zap.Logger) *Service {
	return &Service{gen: gen, embed: embed, repo: repo, logger: logger}
}

// Search runs the full pipeline. With rerank enabled twice the requested
// limit is fetched so the reranker has candidates to demote; a rerank
// failure degrades to vector-similarity order rather than failing the
// request.
func (s *Service) Search(ctx context.Context, query string, limit int, rerank bool) (Result, error) {
	expanded, err := s.gen.Generate(ctx, domain.GenerateRequest{
		Prompt: fmt.Sprintf(queryExpansionPrompt, query),
		Tier:   domain.TierFast,
	})
	if err != nil {
		return Result{}, fmt.Errorf("expand query: %w", err)
	}

	emb, err := s.embed.Embed(ctx, query+" "+expanded)
	if err != nil {
		return Result{}, fmt.Errorf("embed query: %w", err)
	}

	fetch := limit
	if rerank {
		fetch = limit * 2
	}

	candidates, err := s.repo.Search(ctx, emb.Embedding, fetch, nil, domain.SearchFilter{})
	if err != nil {
		return Result{}, fmt.Errorf("search candidates: %w", err)
	}

	if rerank && len(candidates) > 0 {
		reranked, err := s.rerank(ctx, query, candidates, limit)
		if err != nil {
			s.logger.Warn("rerank failed, falling back to similarity order", zap.Error(err))
		} else {
			candidates = reranked
		}
	}

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	return Result{Results: candidates, ExpandedQuery: expanded}, nil
}

// rerank asks the high-fidelity model to reorder candidates by relevance.
// The model's ranking order is preserved; IDs it does not mention are
// dropped, IDs it invents are ignored.
func (s *Service) rerank(ctx context.Context, query string, candidates []domain.Candidate, topK int) ([]domain.Candidate, error) {
	shown := candidates
	if len(shown) > rerankCandidateCap {
		shown = shown[:rerankCandidateCap]
	}

	var sb strings.Builder
	for i, c := range shown {
		desc := c.Payload.Description
		if desc == "" {
			desc = "No description"
		}
		fmt.Fprintf(&sb, "%d. [ID: %s] %s\n", i+1, c.PostID, desc)
	}

	prompt := fmt.Sprintf(`Re-rank these search results by relevance to the query.
Query: "%s"

Results:
%s
Return JSON with "rankings" array of post_id strings in order of relevance (most relevant first).
Only include the top %d most relevant results.`, query, sb.String(), topK)

	raw, err := s.gen.Generate(ctx, domain.GenerateRequest{
		Prompt:     prompt,
		JSONOutput: true,
		MaxTokens:  500,
		Tier:       domain.TierHighFidelity,
	})
	if err != nil {
		return nil, fmt.Errorf("rerank: %w", err)
	}

	var parsed struct {
		Rankings []string `json:"rankings"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parse rankings: %w: %w", err, domain.ErrProviderResponse)
	}

	byID := make(map[string]domain.Candidate, len(shown))
	for _, c := range shown {
		byID[c.PostID] = c
	}

	reranked := make([]domain.Candidate, 0, len(parsed.Rankings))
	for _, id := range parsed.Rankings {
		if c, ok := byID[id]; ok {
			reranked = append(reranked, c)
		}
	}

	return reranked, nil
}
