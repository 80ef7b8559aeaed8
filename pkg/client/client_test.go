package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestModerateCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/moderate/check" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("X-Internal-API-Key") != "secret" {
			t.Errorf("missing internal key header")
		}
		var req ModerateCheckRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.ImageBase64 != "AAAA" || req.Caption != "hi" {
			t.Errorf("request = %+v", req)
		}
		json.NewEncoder(w).Encode(ModerateCheckResponse{
			Verdict:  "allow",
			MaxScore: 1.5,
		})
	}))
	defer server.Close()

	c := New(server.URL, WithInternalAPIKey("secret"))

	resp, err := c.ModerateCheck(context.Background(), ModerateCheckRequest{ImageBase64: "AAAA", Caption: "hi"})
	if err != nil {
		t.Fatalf("ModerateCheck failed: %v", err)
	}
	if resp.Verdict != "allow" || resp.MaxScore != 1.5 {
		t.Errorf("response = %+v", resp)
	}
}

func TestAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"code": "rate_limited", "message": "Too many requests"})
	}))
	defer server.Close()

	c := New(server.URL)

	_, err := c.SearchSemantic(context.Background(), SearchRequest{Query: "q"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests || apiErr.Code != "rate_limited" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestHealthDegradedStillDecodes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(HealthResponse{
			Status: "degraded",
			Checks: map[string]string{"vector_store": "error"},
		})
	}))
	defer server.Close()

	c := New(server.URL)

	resp, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if resp.Status != "degraded" || resp.Checks["vector_store"] != "error" {
		t.Errorf("response = %+v", resp)
	}
}

func TestCheckHash(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["imageHash"] != "deadbeefdeadbeef" {
			t.Errorf("imageHash = %q", body["imageHash"])
		}
		json.NewEncoder(w).Encode(HashCheckResponse{KnownBad: false})
	}))
	defer server.Close()

	c := New(server.URL)

	resp, err := c.CheckHash(context.Background(), "deadbeefdeadbeef")
	if err != nil {
		t.Fatalf("CheckHash failed: %v", err)
	}
	if resp.KnownBad {
		t.Error("expected not blocked")
	}
}
