package search

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/solshare/contentiq/internal/domain"
)

type fakeGenerator struct {
	expansion string
	rankings  string
	rankErr   error
	calls     []domain.GenerateRequest
}

func (g *fakeGenerator) Generate(_ context.Context, req domain.GenerateRequest) (string, error) {
	g.calls = append(g.calls, req)
	if req.Tier == domain.TierHighFidelity {
		if g.rankErr != nil {
			return "", g.rankErr
		}
		return g.rankings, nil
	}
	return g.expansion, nil
}

type fakeEmbedder struct {
	lastText string
}

func (e *fakeEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	e.lastText = text
	return domain.EmbeddingResult{Embedding: []float32{0.5, 0.5}}, nil
}

type fakeRepo struct {
	candidates []domain.Candidate
	lastLimit  int
}

func (r *fakeRepo) Search(_ context.Context, _ []float32, limit int, _ []string, _ domain.SearchFilter) ([]domain.Candidate, error) {
	r.lastLimit = limit
	if limit < len(r.candidates) {
		return r.candidates[:limit], nil
	}
	return r.candidates, nil
}

func candidates(ids ...string) []domain.Candidate {
	out := make([]domain.Candidate, len(ids))
	for i, id := range ids {
		out[i] = domain.Candidate{
			PostID:  id,
			Score:   1 - float64(i)*0.1,
			Payload: domain.PostPayload{Description: "post " + id},
		}
	}
	return out
}

func TestSearchWithoutRerankKeepsStoreOrder(t *testing.T) {
	gen := &fakeGenerator{expansion: "sunset photos over water"}
	emb := &fakeEmbedder{}
	repo := &fakeRepo{candidates: candidates("a", "b", "c")}
	svc := New(gen, emb, repo, zap.NewNop())

	result, err := svc.Search(context.Background(), "sunset", 3, false)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if repo.lastLimit != 3 {
		t.Errorf("fetch limit = %d, want 3 without rerank", repo.lastLimit)
	}
	if len(gen.calls) != 1 {
		t.Fatalf("got %d generation calls, want 1 (expansion only)", len(gen.calls))
	}
	if result.ExpandedQuery != "sunset photos over water" {
		t.Errorf("expanded query = %q", result.ExpandedQuery)
	}
	if emb.lastText != "sunset sunset photos over water" {
		t.Errorf("embedded text = %q, want query plus expansion", emb.lastText)
	}
	for i, want := range []string{"a", "b", "c"} {
		if result.Results[i].PostID != want {
			t.Errorf("result[%d] = %s, want %s", i, result.Results[i].PostID, want)
		}
	}
}

func TestSearchRerankReorders(t *testing.T) {
	gen := &fakeGenerator{
		expansion: "beach scenes",
		rankings:  `{"rankings": ["c", "a", "ghost"]}`,
	}
	repo := &fakeRepo{candidates: candidates("a", "b", "c", "d")}
	svc := New(gen, &fakeEmbedder{}, repo, zap.NewNop())

	result, err := svc.Search(context.Background(), "beach", 2, true)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if repo.lastLimit != 4 {
		t.Errorf("fetch limit = %d, want 2x requested for rerank", repo.lastLimit)
	}
	got := make([]string, len(result.Results))
	for i, r := range result.Results {
		got[i] = r.PostID
	}
	// Model order wins; unmentioned and invented IDs are dropped.
	if len(got) != 2 || got[0] != "c" || got[1] != "a" {
		t.Errorf("reranked order = %v, want [c a]", got)
	}
}

func TestSearchRerankFailureFallsBack(t *testing.T) {
	gen := &fakeGenerator{
		expansion: "beach scenes",
		rankErr:   errors.New("model overloaded"),
	}
	repo := &fakeRepo{candidates: candidates("a", "b", "c", "d")}
	svc := New(gen, &fakeEmbedder{}, repo, zap.NewNop())

	result, err := svc.Search(context.Background(), "beach", 2, true)
	if err != nil {
		t.Fatalf("Search must not fail on rerank errors: %v", err)
	}

	if len(result.Results) != 2 || result.Results[0].PostID != "a" || result.Results[1].PostID != "b" {
		t.Errorf("fallback results = %+v, want similarity order truncated to limit", result.Results)
	}
}

func TestSearchRerankPromptListsCandidates(t *testing.T) {
	gen := &fakeGenerator{
		expansion: "city at night",
		rankings:  `{"rankings": ["b"]}`,
	}
	repo := &fakeRepo{candidates: candidates("a", "b")}
	svc := New(gen, &fakeEmbedder{}, repo, zap.NewNop())

	if _, err := svc.Search(context.Background(), "neon", 1, true); err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	var rerankCall *domain.GenerateRequest
	for i := range gen.calls {
		if gen.calls[i].Tier == domain.TierHighFidelity {
			rerankCall = &gen.calls[i]
		}
	}
	if rerankCall == nil {
		t.Fatal("no rerank call made")
	}
	if !rerankCall.JSONOutput {
		t.Error("rerank call must request JSON output")
	}
	for _, frag := range []string{`Query: "neon"`, "[ID: a] post a", "[ID: b] post b"} {
		if !strings.Contains(rerankCall.Prompt, frag) {
			t.Errorf("rerank prompt missing %q", frag)
		}
	}
}

func TestSearchExpansionFailurePropagates(t *testing.T) {
	svc := New(&failingGenerator{}, &fakeEmbedder{}, &fakeRepo{}, zap.NewNop())

	_, err := svc.Search(context.Background(), "q", 10, false)
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Errorf("error = %v, want ErrProviderUnavailable", err)
	}
}

type failingGenerator struct{}

func (failingGenerator) Generate(context.Context, domain.GenerateRequest) (string, error) {
	return "", domain.ErrProviderUnavailable
}
