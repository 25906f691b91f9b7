package content

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"codeberg.org/readeck/go-readability"
)

const (
	fetchTimeout = 30 * time.Second
	maxBodySize  = 10 << 20 // 10 MiB
)

// Extractor downloads an article page and reduces it to readable content,
// replacing the truncated excerpt feeds usually carry.
type Extractor struct {
	userAgent  string
	httpClient *http.Client
}

// NewExtractor creates a new content extractor
func NewExtractor(userAgent string) *Extractor {
	return &Extractor{
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: fetchTimeout,
		},
	}
}

// Fetch downloads the page at pageURL and returns its readable content.
func (e *Extractor) Fetch(ctx context.Context, pageURL string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid page URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, pageURL)
	}

	return e.extract(io.LimitReader(resp.Body, maxBodySize), parsed)
}

func (e *Extractor) extract(r io.Reader, pageURL *url.URL) (string, error) {
	article, err := readability.FromReader(r, pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	if article.Content == "" {
		return "", fmt.Errorf("no content extracted from %s", pageURL)
	}

	slog.Debug("Content extracted successfully",
		"url", pageURL.String(),
		"title", article.Title,
		"content_length", len(article.Content))

	return article.Content, nil
}
