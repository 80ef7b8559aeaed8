package domain

import "context"

// ModelTier selects the generation model quality/latency trade-off.
type ModelTier string

// Model tiers.
const (
	// TierFast is the cheap low-latency model used for first-pass scoring,
	// query expansion, and taste profiles.
	TierFast ModelTier = "fast"
	// TierHighFidelity is the expensive model used for moderation escalation
	// and re-ranking.
	TierHighFidelity ModelTier = "high_fidelity"
)

// GenerateRequest describes a single vision/text generation call.
type GenerateRequest struct {
	Prompt string
	// ImageDataURI, when set, attaches an image to the prompt (vision call).
	ImageDataURI string
	// JSONOutput requests structured JSON output from the provider.
	JSONOutput bool
	MaxTokens  int
	Tier       ModelTier
}

// Generator is the vision/text generation provider contract. Calls are
// bounded by the provider's configured timeout; failures surface as
// ErrProviderUnavailable and are never retried here.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// EmbeddingResult carries an embedding vector and its token usage.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Embedder vectorizes text. Document- versus query-purpose embedders are
// built separately at the composition root (instruction prefixes differ).
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// BatchEmbedder vectorizes multiple texts in one provider call.
// Empty input yields empty output without a call.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) ([]EmbeddingResult, error)
}

// InstructionEmbedder prepends a fixed instruction before embedding,
// differentiating document and query vectors on instruction-tuned models.
type InstructionEmbedder struct {
	inner       Embedder
	instruction string
}

// NewInstructionEmbedder wraps inner with an instruction prefix.
func NewInstructionEmbedder(inner Embedder, instruction string) *InstructionEmbedder {
	return &InstructionEmbedder{inner: inner, instruction: instruction}
}

// Embed prepends the instruction and delegates.
func (e *InstructionEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return e.inner.Embed(ctx, e.instruction+text)
}
