package analyze

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/solshare/contentiq/internal/domain"
)

const analysisJSON = `{
	"description": "A golden retriever running on a beach at sunset.",
	"tags": ["dog", "beach", "sunset"],
	"scene_type": "outdoor",
	"objects": ["dog", "ocean"],
	"mood": "joyful",
	"colors": ["gold", "orange"],
	"safety_score": 10,
	"alt_text": "Dog running along the shoreline"
}`

type fakeGenerator struct {
	response string
	req      domain.GenerateRequest
}

func (g *fakeGenerator) Generate(_ context.Context, req domain.GenerateRequest) (string, error) {
	g.req = req
	return g.response, nil
}

type fakeEmbedder struct {
	lastText string
}

func (e *fakeEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	e.lastText = text
	return domain.EmbeddingResult{Embedding: []float32{0.3, 0.7}}, nil
}

type fakeRepo struct {
	ensured  bool
	upserted *domain.PostRecord
}

func (r *fakeRepo) EnsureIndex(context.Context) error { r.ensured = true; return nil }

func (r *fakeRepo) Upsert(_ context.Context, rec domain.PostRecord) error {
	r.upserted = &rec
	return nil
}

type fakeFetcher struct {
	dataURI string
	err     error
	lastURI string
}

func (f *fakeFetcher) Fetch(_ context.Context, uri string) (string, error) {
	f.lastURI = uri
	return f.dataURI, f.err
}

func TestAnalyzeWithoutPostIDSkipsIndexing(t *testing.T) {
	gen := &fakeGenerator{response: analysisJSON}
	emb := &fakeEmbedder{}
	repo := &fakeRepo{}
	fetcher := &fakeFetcher{dataURI: "data:image/jpeg;base64,AAAA"}
	svc := New(gen, emb, repo, fetcher, zap.NewNop())

	analysis, err := svc.Analyze(context.Background(), "ipfs://QmTest", "beach day", "", "")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if fetcher.lastURI != "ipfs://QmTest" {
		t.Errorf("fetched uri = %q", fetcher.lastURI)
	}
	if gen.req.ImageDataURI != "data:image/jpeg;base64,AAAA" {
		t.Errorf("image data uri = %q", gen.req.ImageDataURI)
	}
	if !gen.req.JSONOutput || gen.req.Tier != domain.TierFast {
		t.Error("analysis must request JSON from the fast tier")
	}
	if !strings.Contains(gen.req.Prompt, "Caption: beach day") {
		t.Error("caption not appended to analysis prompt")
	}
	if analysis.SceneType != "outdoor" || len(analysis.Tags) != 3 {
		t.Errorf("unexpected analysis: %+v", analysis)
	}
	if emb.lastText != "A golden retriever running on a beach at sunset. beach day" {
		t.Errorf("embedded text = %q, want description plus caption", emb.lastText)
	}
	if len(analysis.Embedding) != 2 {
		t.Errorf("embedding length = %d", len(analysis.Embedding))
	}
	if repo.ensured || repo.upserted != nil {
		t.Error("indexing must be skipped without a post id")
	}
}

func TestAnalyzeWithPostIDIndexes(t *testing.T) {
	repo := &fakeRepo{}
	svc := New(&fakeGenerator{response: analysisJSON}, &fakeEmbedder{}, repo,
		&fakeFetcher{dataURI: "data:image/png;base64,AAAA"}, zap.NewNop())

	_, err := svc.Analyze(context.Background(), "https://example.com/img.png", "cap", "post-1", "wallet-1")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if !repo.ensured {
		t.Error("index not ensured before upsert")
	}
	if repo.upserted == nil {
		t.Fatal("post not upserted")
	}
	rec := repo.upserted
	if rec.PostID != "post-1" || rec.Payload.Creator != "wallet-1" || rec.Payload.Caption != "cap" {
		t.Errorf("upserted record = %+v", rec)
	}
	if rec.Payload.SceneType != "outdoor" || rec.Payload.Mood != "joyful" {
		t.Errorf("payload = %+v", rec.Payload)
	}
	if len(rec.Vector) != 2 {
		t.Errorf("vector length = %d", len(rec.Vector))
	}
}

func TestAnalyzeDefaultsSceneType(t *testing.T) {
	gen := &fakeGenerator{response: `{"description": "something"}`}
	svc := New(gen, &fakeEmbedder{}, &fakeRepo{}, &fakeFetcher{dataURI: "data:image/png;base64,AA"}, zap.NewNop())

	analysis, err := svc.Analyze(context.Background(), "https://example.com/x", "", "", "")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if analysis.SceneType != "unknown" {
		t.Errorf("scene type = %q, want unknown", analysis.SceneType)
	}
}

func TestAnalyzeFetchFailurePropagates(t *testing.T) {
	wantErr := errors.New("gateway timeout")
	svc := New(&fakeGenerator{}, &fakeEmbedder{}, &fakeRepo{}, &fakeFetcher{err: wantErr}, zap.NewNop())

	_, err := svc.Analyze(context.Background(), "ipfs://QmGone", "", "", "")
	if !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want fetch error", err)
	}
}

func TestAnalyzeMalformedResponse(t *testing.T) {
	svc := New(&fakeGenerator{response: "not json"}, &fakeEmbedder{}, &fakeRepo{},
		&fakeFetcher{dataURI: "data:image/png;base64,AA"}, zap.NewNop())

	_, err := svc.Analyze(context.Background(), "https://example.com/x", "", "", "")
	if !errors.Is(err, domain.ErrProviderResponse) {
		t.Errorf("error = %v, want ErrProviderResponse", err)
	}
}
