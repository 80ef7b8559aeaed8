package analyze

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// pngHeader is enough of a PNG for MIME sniffing.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func TestFetchResolvesIPFSThroughGateway(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write(pngHeader)
	}))
	defer server.Close()

	f := NewHTTPFetcher(server.URL+"/ipfs/", 5*time.Second)

	dataURI, err := f.Fetch(context.Background(), "ipfs://QmTestCID")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if gotPath != "/ipfs/QmTestCID" {
		t.Errorf("gateway path = %q, want /ipfs/QmTestCID", gotPath)
	}
	if !strings.HasPrefix(dataURI, "data:image/png;base64,") {
		t.Errorf("data uri = %q, want sniffed image/png prefix", dataURI)
	}
}

func TestFetchPlainHTTPURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Content-Type header lies; the payload wins.
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(pngHeader)
	}))
	defer server.Close()

	f := NewHTTPFetcher("https://gateway.example/ipfs", 5*time.Second)

	dataURI, err := f.Fetch(context.Background(), server.URL+"/img")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if !strings.HasPrefix(dataURI, "data:image/png;base64,") {
		t.Errorf("data uri = %q", dataURI)
	}
}

func TestFetchNon200Fails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	f := NewHTTPFetcher("https://gateway.example/ipfs", 5*time.Second)

	if _, err := f.Fetch(context.Background(), server.URL+"/missing"); err == nil {
		t.Fatal("expected error for 404 response")
	}
}
