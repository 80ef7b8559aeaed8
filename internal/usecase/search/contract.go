package search

import (
	"context"

	"github.com/solshare/contentiq/internal/domain"
)

// Generator produces text for query expansion and reranking.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerateRequest) (string, error)
}

// Embedder vectorizes search queries.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Repository runs similarity search over stored posts.
type Repository interface {
	Search(ctx context.Context, vector []float32, limit int, excludeIDs []string, filter domain.SearchFilter) ([]domain.Candidate, error)
}
