// Package client provides a Go client for the contentiq content
// intelligence service.
//
//	c := client.New("http://localhost:8000",
//	    client.WithInternalAPIKey(os.Getenv("INTERNAL_API_KEY")),
//	)
//	verdict, _ := c.ModerateCheck(ctx, client.ModerateCheckRequest{
//	    ImageBase64: dataURI,
//	    Caption:     "beach day",
//	})
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 2 * time.Minute

// internalKeyHeader carries the service-to-service credential.
const internalKeyHeader = "X-Internal-API-Key"

// Option configures the Client.
type Option interface {
	apply(*Client)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*Client)

func (f optionFunc) apply(c *Client) { f(c) }

// WithInternalAPIKey sets the service-to-service credential sent with every
// request. Required against production deployments.
func WithInternalAPIKey(key string) Option {
	return optionFunc(func(c *Client) {
		c.apiKey = key
	})
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *Client) {
		c.http = hc
	})
}

// WithTimeout sets the per-request timeout. Ignored when WithHTTPClient is
// also given.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *Client) {
		c.timeout = d
	})
}

// Client calls the contentiq HTTP API.
type Client struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	http    *http.Client
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt.apply(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	return c
}

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("contentiq: %s (%s, HTTP %d)", e.Message, e.Code, e.StatusCode)
}

// ModerateCheckRequest is a pre-upload safety check.
type ModerateCheckRequest struct {
	ImageBase64 string `json:"imageBase64"`
	Caption     string `json:"caption,omitempty"`
	Wallet      string `json:"wallet,omitempty"`
}

// ModerationScores are per-category safety scores in [0, 10].
type ModerationScores struct {
	NSFW         float64 `json:"nsfw"`
	Violence     float64 `json:"violence"`
	Hate         float64 `json:"hate"`
	ChildSafety  float64 `json:"childSafety"`
	Spam         float64 `json:"spam"`
	DrugsWeapons float64 `json:"drugsWeapons"`
}

// ModerateCheckResponse is the moderation verdict.
type ModerateCheckResponse struct {
	Verdict          string           `json:"verdict"`
	Scores           ModerationScores `json:"scores"`
	MaxScore         float64          `json:"maxScore"`
	Explanation      string           `json:"explanation"`
	ProcessingTimeMS int64            `json:"processingTimeMs"`
	BlockedCategory  *string          `json:"blockedCategory"`
}

// HashCheckResponse reports whether an image hash was blocked before.
type HashCheckResponse struct {
	KnownBad  bool    `json:"knownBad"`
	Reason    *string `json:"reason"`
	BlockedAt *string `json:"blockedAt"`
}

// AnalyzeRequest describes content to analyze and optionally index.
type AnalyzeRequest struct {
	ContentURI    string `json:"contentUri"`
	Caption       string `json:"caption,omitempty"`
	PostID        string `json:"postId,omitempty"`
	CreatorWallet string `json:"creatorWallet,omitempty"`
}

// AnalyzeResponse is the vision analysis of one piece of content.
type AnalyzeResponse struct {
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	SceneType   string    `json:"sceneType"`
	Objects     []string  `json:"objects"`
	Mood        string    `json:"mood"`
	Colors      []string  `json:"colors"`
	SafetyScore float64   `json:"safetyScore"`
	AltText     string    `json:"altText"`
	Embedding   []float32 `json:"embedding,omitempty"`
}

// SearchRequest is a semantic search query.
type SearchRequest struct {
	Query  string `json:"query"`
	Limit  int    `json:"limit,omitempty"`
	Rerank *bool  `json:"rerank,omitempty"`
}

// SearchResult is one search hit.
type SearchResult struct {
	PostID        string  `json:"postId"`
	Score         float64 `json:"score"`
	Description   string  `json:"description,omitempty"`
	CreatorWallet string  `json:"creatorWallet,omitempty"`
}

// SearchResponse is a ranked result list with the expanded query.
type SearchResponse struct {
	Results       []SearchResult `json:"results"`
	ExpandedQuery string         `json:"expandedQuery"`
}

// RecommendRequest asks for a personalized feed.
type RecommendRequest struct {
	UserWallet   string   `json:"userWallet"`
	LikedPostIDs []string `json:"likedPostIds,omitempty"`
	Limit        int      `json:"limit,omitempty"`
	ExcludeSeen  []string `json:"excludeSeen,omitempty"`
}

// Recommendation is one feed entry.
type Recommendation struct {
	PostID string  `json:"postId"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// RecommendResponse is a recommendation feed.
type RecommendResponse struct {
	Recommendations []Recommendation `json:"recommendations"`
	TasteProfile    *string          `json:"tasteProfile"`
}

// HealthResponse is the service health report.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ModerateCheck runs the pre-upload safety check.
func (c *Client) ModerateCheck(ctx context.Context, req ModerateCheckRequest) (ModerateCheckResponse, error) {
	var resp ModerateCheckResponse
	err := c.post(ctx, "/api/moderate/check", req, &resp)
	return resp, err
}

// CheckHash looks a perceptual image hash up in the blocked-content table.
func (c *Client) CheckHash(ctx context.Context, imageHash string) (HashCheckResponse, error) {
	var resp HashCheckResponse
	err := c.post(ctx, "/api/moderate/check-hash", map[string]string{"imageHash": imageHash}, &resp)
	return resp, err
}

// AnalyzeContent describes content and, when a post ID is given, indexes it
// for search and recommendations.
func (c *Client) AnalyzeContent(ctx context.Context, req AnalyzeRequest) (AnalyzeResponse, error) {
	var resp AnalyzeResponse
	err := c.post(ctx, "/api/analyze/content", req, &resp)
	return resp, err
}

// SearchSemantic runs a semantic post search.
func (c *Client) SearchSemantic(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	var resp SearchResponse
	err := c.post(ctx, "/api/search/semantic", req, &resp)
	return resp, err
}

// RecommendFeed builds a personalized feed.
func (c *Client) RecommendFeed(ctx context.Context, req RecommendRequest) (RecommendResponse, error) {
	var resp RecommendResponse
	err := c.post(ctx, "/api/recommend/feed", req, &resp)
	return resp, err
}

// Health fetches the service health report.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var resp HealthResponse
	err := c.do(ctx, http.MethodGet, "/health", nil, &resp)
	return resp, err
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set(internalKeyHeader, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	// /health reports 503 with a valid body when degraded.
	degradedHealth := path == "/health" && resp.StatusCode == http.StatusServiceUnavailable

	if resp.StatusCode >= 400 && !degradedHealth {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var e struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.NewDecoder(resp.Body).Decode(&e) == nil {
			apiErr.Code = e.Code
			apiErr.Message = e.Message
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
