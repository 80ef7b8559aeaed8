package analyze

import (
	"context"

	"github.com/solshare/contentiq/internal/domain"
)

// Generator runs vision analysis over an image.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerateRequest) (string, error)
}

// Embedder vectorizes the analysis text for indexing.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Repository persists analyzed posts into the vector index.
type Repository interface {
	EnsureIndex(ctx context.Context) error
	Upsert(ctx context.Context, rec domain.PostRecord) error
}

// Fetcher retrieves content by URI and returns it as a base64 data URI.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) (string, error)
}
