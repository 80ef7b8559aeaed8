package recommend

import (
	"context"

	"github.com/solshare/contentiq/internal/domain"
)

// Generator summarizes liked posts into a taste profile.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerateRequest) (string, error)
}

// Embedder vectorizes the taste profile.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Repository reads stored posts and runs similarity search over them.
type Repository interface {
	Search(ctx context.Context, vector []float32, limit int, excludeIDs []string, filter domain.SearchFilter) ([]domain.Candidate, error)
	GetByIDs(ctx context.Context, postIDs []string) ([]domain.PostRecord, error)
}
