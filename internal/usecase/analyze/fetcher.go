package analyze

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/solshare/contentiq/internal/domain"
)

// maxContentBytes bounds a fetched image. Matches the inline-upload cap.
const maxContentBytes = 50 << 20

// HTTPFetcher downloads content over HTTP, resolving ipfs:// URIs through a
// configured gateway.
type HTTPFetcher struct {
	client  *http.Client
	gateway string
}

// NewHTTPFetcher creates a content fetcher. gateway is the IPFS gateway base
// URL without a trailing slash.
func NewHTTPFetcher(gateway string, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		client:  &http.Client{Timeout: timeout},
		gateway: strings.TrimRight(gateway, "/"),
	}
}

// Fetch implements Fetcher. The MIME type is sniffed from the payload, not
// trusted from response headers.
func (f *HTTPFetcher) Fetch(ctx context.Context, uri string) (string, error) {
	url := uri
	if cid, ok := strings.CutPrefix(uri, "ipfs://"); ok {
		url = f.gateway + "/" + cid
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: bad content uri: %w", domain.ErrInvalidInput, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch content: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch content: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxContentBytes+1))
	if err != nil {
		return "", fmt.Errorf("read content: %w", err)
	}
	if len(body) > maxContentBytes {
		return "", fmt.Errorf("%w: content exceeds %d bytes", domain.ErrInvalidInput, maxContentBytes)
	}

	mime := http.DetectContentType(body)
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(body), nil
}
