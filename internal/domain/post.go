package domain

// PostPayload is the semantic metadata stored alongside a post embedding.
type PostPayload struct {
	Description string
	Caption     string
	Tags        []string
	SceneType   string
	Mood        string
	Creator     string
	Timestamp   int64
}

// PostRecord is a stored post embedding with its payload. A record with a
// given post ID is the sole source of truth for that post: a later upsert
// with the same ID fully replaces it, there is no partial merge.
type PostRecord struct {
	PostID  string
	Vector  []float32
	Payload PostPayload
}

// Candidate is a transient per-request search hit. Never mutated after
// creation; position within a result list encodes rank. Score is
// provider-defined (higher = more similar) and not required to be normalized.
type Candidate struct {
	PostID  string
	Score   float64
	Payload PostPayload
}

// SearchFilter narrows a similarity search by payload attributes.
// Zero value means no filtering.
type SearchFilter struct {
	Creator string
}

// IsEmpty reports whether the filter constrains anything.
func (f SearchFilter) IsEmpty() bool { return f.Creator == "" }
