package awsranges

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultURL is the public feed AWS publishes its address ranges on.
	DefaultURL = "https://ip-ranges.amazonaws.com/ip-ranges.json"

	// cacheStatusHeader carries CloudFront's cache result for the feed
	// response; it becomes the dataset's freshness tag.
	cacheStatusHeader = "X-Cache"

	unknownCacheStatus = "UNKNOWN"

	userAgent        = "cloudranges-fetcher/1.0"
	maxResponseBytes = 32 << 20 // 32 MiB safety cap
)

// Fetcher retrieves the raw upstream document and its freshness tag.
// Implementations must not touch the dataset cache.
type Fetcher interface {
	Fetch(ctx context.Context) (*RangeFile, string, error)
}

// HTTPFetcher downloads the feed over HTTP.
type HTTPFetcher struct {
	url    string
	client *http.Client
}

func NewHTTPFetcher(url string, timeout time.Duration) *HTTPFetcher {
	if url == "" {
		url = DefaultURL
	}
	return &HTTPFetcher{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context) (*RangeFile, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build ranges request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch ranges: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, "", fmt.Errorf("fetch ranges: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var raw RangeFile
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&raw); err != nil {
		return nil, "", fmt.Errorf("decode ranges: %w", err)
	}

	tag := resp.Header.Get(cacheStatusHeader)
	if tag == "" {
		tag = unknownCacheStatus
	}
	return &raw, tag, nil
}

// Load fetches the upstream document and parses it into a dataset.
// It is the loader the cache runs on a miss.
func Load(ctx context.Context, fetcher Fetcher) (*Dataset, error) {
	raw, tag, err := fetcher.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return BuildDataset(raw, tag)
}
