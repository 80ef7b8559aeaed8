package moderation

import (
	"context"

	"github.com/solshare/contentiq/internal/domain"
)

// Generator produces structured vision-model output for an image+prompt pair.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerateRequest) (string, error)
}

// Blocklist answers whether an image hash was blocked before. Lookups never
// fail: backend trouble reads as "not blocked".
type Blocklist interface {
	Check(ctx context.Context, hash string) domain.HashCheck
}
