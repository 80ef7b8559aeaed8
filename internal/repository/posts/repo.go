// Package posts is the vector store adapter: it owns the mapping from post
// identifier to stored embedding record.
package posts

import (
	"context"
	"errors"
	"fmt"

	"github.com/solshare/contentiq/internal/db"
	"github.com/solshare/contentiq/internal/domain"
)

// store is the consumer interface for post records (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// HNSWConfig tunes the vector index build.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo stores and searches post embedding records.
type Repo struct {
	store      store
	collection string
	keyPrefix  string
	dimensions int
	hnsw       HNSWConfig
}

// New creates a post repository for the given collection and vector dimensionality.
func New(s store, keyPrefix, collection string, dimensions int) *Repo {
	return &Repo{
		store:      s,
		collection: collection,
		keyPrefix:  keyPrefix,
		dimensions: dimensions,
	}
}

// WithHNSW overrides HNSW build parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	r.hnsw = cfg
	return r
}

// EnsureIndex creates the collection index if absent: an HNSW cosine vector
// field plus secondary fields on creator, scene type, and ingestion
// timestamp for filtered queries. Idempotent and safe to call concurrently:
// a concurrent create racing past the existence probe is treated as success.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	name := r.indexName()

	exists, err := r.store.IndexExists(ctx, name)
	if err != nil {
		return fmt.Errorf("probe index %s: %w", name, err)
	}
	if exists {
		return nil
	}

	def := &db.IndexDefinition{
		Name:     name,
		Prefixes: []string{r.recordPrefix()},
		Fields: []db.IndexField{
			{Name: fieldCreator, Type: db.IndexFieldTag},
			{Name: fieldSceneType, Type: db.IndexFieldTag},
			{Name: fieldTimestamp, Type: db.IndexFieldNumeric},
			{
				Name:              fieldVector,
				Alias:             "vector",
				Type:              db.IndexFieldVector,
				VectorDim:         r.dimensions,
				VectorDistance:    db.DistanceCosine,
				VectorM:           r.hnsw.M,
				VectorEFConstruct: r.hnsw.EFConstruct,
			},
		},
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", name, err)
	}
	return nil
}

// Upsert stores a record, fully replacing any previous record with the same
// post ID. The embedding length must match the configured dimensionality.
func (r *Repo) Upsert(ctx context.Context, rec domain.PostRecord) error {
	if len(rec.Vector) != r.dimensions {
		return fmt.Errorf("embedding has %d dimensions, index expects %d: %w",
			len(rec.Vector), r.dimensions, domain.ErrVectorDimMismatch)
	}

	key := r.recordKey(rec.PostID)

	// DEL first so fields absent from the new payload do not survive the
	// replace (no partial merge).
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("replace %s: %w", key, err)
	}
	if err := r.store.HSet(ctx, key, buildHashFields(rec)); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

// Search returns up to limit candidates nearest to vector, excluding the
// given post IDs. The store is over-fetched by limit+len(excludeIDs) and
// exclusion is applied client-side; this under-returns when the excluded
// fraction of true matches exceeds the over-fetch margin (accepted
// limitation, no iterative re-fetch).
func (r *Repo) Search(
	ctx context.Context, vector []float32, limit int,
	excludeIDs []string, filter domain.SearchFilter,
) ([]domain.Candidate, error) {
	if limit <= 0 {
		return nil, nil
	}

	var tagFilters map[string]string
	if !filter.IsEmpty() {
		tagFilters = map[string]string{fieldCreator: filter.Creator}
	}

	q := &db.KNNQuery{
		IndexName:    r.indexName(),
		Vector:       vector,
		K:            limit + len(excludeIDs),
		TagFilters:   tagFilters,
		ReturnFields: payloadReturnFields,
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", r.collection, err)
	}
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	excluded := make(map[string]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = struct{}{}
	}

	prefix := r.recordPrefix()
	candidates := make([]domain.Candidate, 0, limit)
	for _, entry := range sr.Entries {
		id := trimPrefix(entry.Key, prefix)
		if _, skip := excluded[id]; skip {
			continue
		}
		candidates = append(candidates, domain.Candidate{
			PostID:  id,
			Score:   entry.Score,
			Payload: parsePayloadFields(entry.Fields),
		})
		if len(candidates) == limit {
			break
		}
	}

	return candidates, nil
}

// GetByIDs returns the records for the given post IDs with vector and
// payload. Missing IDs are silently omitted; empty input returns no records
// without a store round-trip.
func (r *Repo) GetByIDs(ctx context.Context, postIDs []string) ([]domain.PostRecord, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}

	keys := make([]string, len(postIDs))
	for i, id := range postIDs {
		keys[i] = r.recordKey(id)
	}

	maps, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("get records %s: %w", r.collection, err)
	}

	records := make([]domain.PostRecord, 0, len(postIDs))
	for i, m := range maps {
		if len(m) == 0 {
			continue
		}
		records = append(records, parseHashFields(postIDs[i], m))
	}

	return records, nil
}

func (r *Repo) indexName() string {
	return r.keyPrefix + r.collection + ":idx"
}

func (r *Repo) recordPrefix() string {
	return r.keyPrefix + r.collection + ":"
}

func (r *Repo) recordKey(postID string) string {
	return r.recordPrefix() + postID
}

func trimPrefix(key, prefix string) string {
	if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
		return key[len(prefix):]
	}
	return key
}
