package chi

import (
	"time"

	"github.com/solshare/contentiq/internal/domain"
	"github.com/solshare/contentiq/internal/usecase/analyze"
	"github.com/solshare/contentiq/internal/usecase/recommend"
	"github.com/solshare/contentiq/internal/usecase/search"
)

// Request DTOs. Base64 of a 50MB image is ~67M characters, hence the
// imageBase64 cap.

type moderationCheckRequest struct {
	ImageBase64 string `json:"imageBase64" validate:"required,max=67000000"`
	Caption     string `json:"caption" validate:"omitempty,max=10000"`
	Wallet      string `json:"wallet"`
}

type hashCheckRequest struct {
	ImageHash string `json:"imageHash" validate:"required,hexadecimal,min=16,max=128"`
}

type analyzeRequest struct {
	ContentURI    string `json:"contentUri" validate:"required,max=2048"`
	Caption       string `json:"caption" validate:"omitempty,max=10000"`
	PostID        string `json:"postId"`
	CreatorWallet string `json:"creatorWallet"`
}

type searchRequest struct {
	Query  string `json:"query" validate:"required"`
	Limit  int    `json:"limit" validate:"omitempty,min=1,max=100"`
	Rerank *bool  `json:"rerank"`
}

type recommendRequest struct {
	UserWallet   string   `json:"userWallet" validate:"required"`
	LikedPostIDs []string `json:"likedPostIds"`
	Limit        int      `json:"limit" validate:"omitempty,min=1,max=100"`
	ExcludeSeen  []string `json:"excludeSeen"`
}

// Response DTOs.

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type scoresResponse struct {
	NSFW         float64 `json:"nsfw"`
	Violence     float64 `json:"violence"`
	Hate         float64 `json:"hate"`
	ChildSafety  float64 `json:"childSafety"`
	Spam         float64 `json:"spam"`
	DrugsWeapons float64 `json:"drugsWeapons"`
}

type moderationCheckResponse struct {
	Verdict          string         `json:"verdict"`
	Scores           scoresResponse `json:"scores"`
	MaxScore         float64        `json:"maxScore"`
	Explanation      string         `json:"explanation"`
	ProcessingTimeMS int64          `json:"processingTimeMs"`
	BlockedCategory  *string        `json:"blockedCategory"`
}

type hashCheckResponse struct {
	KnownBad  bool    `json:"knownBad"`
	Reason    *string `json:"reason"`
	BlockedAt *string `json:"blockedAt"`
}

type analyzeResponse struct {
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

type searchResultItem struct {
	PostID        string  `json:"postId"`
	Score         float64 `json:"score"`
	Description   string  `json:"description,omitempty"`
	CreatorWallet string  `json:"creatorWallet,omitempty"`
}

type searchResponse struct {
	Results       []searchResultItem `json:"results"`
	ExpandedQuery string             `json:"expandedQuery"`
}

type recommendResultItem struct {
	PostID string  `json:"postId"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

type recommendResponse struct {
	Recommendations []recommendResultItem `json:"recommendations"`
	TasteProfile    *string               `json:"tasteProfile"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func moderationToResponse(r domain.ModerationResult) moderationCheckResponse {
	resp := moderationCheckResponse{
		Verdict: string(r.Verdict),
		Scores: scoresResponse{
			NSFW:         r.Scores.NSFW,
			Violence:     r.Scores.Violence,
			Hate:         r.Scores.Hate,
			ChildSafety:  r.Scores.ChildSafety,
			Spam:         r.Scores.Spam,
			DrugsWeapons: r.Scores.DrugsWeapons,
		},
		MaxScore:         r.MaxScore,
		Explanation:      r.Explanation,
		ProcessingTimeMS: r.ProcessingTimeMS,
	}
	if r.BlockedCategory != "" {
		resp.BlockedCategory = &r.BlockedCategory
	}
	return resp
}

func hashCheckToResponse(r domain.HashCheck) hashCheckResponse {
	resp := hashCheckResponse{KnownBad: r.KnownBad}
	if r.KnownBad {
		resp.Reason = &r.Reason
		at := r.BlockedAt.UTC().Format(time.RFC3339)
		resp.BlockedAt = &at
	}
	return resp
}

func analysisToResponse(a analyze.Analysis) analyzeResponse {
	return analyzeResponse{
		Description: a.Description,
		Tags:        emptyIfNil(a.Tags),
		SceneType:   a.SceneType,
		Objects:     emptyIfNil(a.Objects),
		Mood:        a.Mood,
		Colors:      emptyIfNil(a.Colors),
		SafetyScore: a.SafetyScore,
		AltText:     a.AltText,
		Embedding:   a.Embedding,
	}
}

func searchToResponse(r search.Result) searchResponse {
	items := make([]searchResultItem, len(r.Results))
	for i, c := range r.Results {
		items[i] = searchResultItem{
			PostID:        c.PostID,
			Score:         c.Score,
			Description:   c.Payload.Description,
			CreatorWallet: c.Payload.Creator,
		}
	}
	return searchResponse{Results: items, ExpandedQuery: r.ExpandedQuery}
}

func recommendToResponse(r recommend.Result) recommendResponse {
	items := make([]recommendResultItem, len(r.Recommendations))
	for i, rec := range r.Recommendations {
		items[i] = recommendResultItem{PostID: rec.PostID, Score: rec.Score, Reason: rec.Reason}
	}
	resp := recommendResponse{Recommendations: items}
	if r.TasteProfile != "" {
		resp.TasteProfile = &r.TasteProfile
	}
	return resp
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
