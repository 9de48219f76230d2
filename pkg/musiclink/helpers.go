package musiclink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	pageAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

	defaultHTTPTimeout = 10 * time.Second
	maxHTTPRedirects   = 3
	// maxPageReadSize limits how much HTML is read when scraping metadata.
	maxPageReadSize = 256 * 1024
	maxJSONReadSize = 1024 * 1024
)

var (
	// ErrTooManyRedirects is returned when a link bounces more than maxHTTPRedirects times.
	ErrTooManyRedirects = errors.New("too many redirects")
	// ErrNoResolver is returned when no resolver handles a URL.
	ErrNoResolver = errors.New("no resolver found for URL")
	// ErrNoMetadata is returned when a service answered but named no track.
	ErrNoMetadata = errors.New("no track metadata")

	titleTagRegex = regexp.MustCompile(`(?is)<title[^>]*>([^<]+)</title>`)
)

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: defaultHTTPTimeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxHTTPRedirects {
				return ErrTooManyRedirects
			}
			return nil
		},
	}
}

// fetcher performs the metadata GETs shared by every resolver.
type fetcher struct {
	client *http.Client
}

func newFetcher() fetcher {
	return fetcher{client: newHTTPClient()}
}

func (f fetcher) get(ctx context.Context, service, reqURL string, browser bool, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	if browser {
		// store pages serve stripped markup to unknown agents
		req.Header.Set("User-Agent", browserUserAgent)
		req.Header.Set("Accept", pageAccept)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", service, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", service, err)
	}
	return body, nil
}

func (f fetcher) getJSON(ctx context.Context, service, reqURL string, dest any) error {
	body, err := f.get(ctx, service, reqURL, false, maxJSONReadSize)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", service, err)
	}
	return nil
}

func (f fetcher) getPage(ctx context.Context, service, pageURL string) (string, error) {
	body, err := f.get(ctx, service, pageURL, true, maxPageReadSize)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// pageTitle returns the unescaped text of the page's <title>.
func pageTitle(page string) string {
	m := titleTagRegex.FindStringSubmatch(page)
	if len(m) != 2 {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(m[1]))
}

// splitTitleArtist splits "Title<sep>Artist" at the first separator; without it the whole text is the title.
func splitTitleArtist(text, separator string) (title, artist string) {
	if separator != "" {
		if before, after, found := strings.Cut(text, separator); found {
			return strings.TrimSpace(before), strings.TrimSpace(after)
		}
	}
	return strings.TrimSpace(text), ""
}

// extractMetaContent returns the content of a <meta property|name="key"> tag.
func extractMetaContent(page, key string) string {
	quoted := regexp.QuoteMeta(key)
	for _, pattern := range []string{
		`(?is)<meta[^>]+(?:property|name)=["']` + quoted + `["'][^>]*content=["']([^"']*)["']`,
		`(?is)<meta[^>]+content=["']([^"']*)["'][^>]*(?:property|name)=["']` + quoted + `["']`,
	} {
		if m := regexp.MustCompile(pattern).FindStringSubmatch(page); len(m) == 2 {
			return strings.TrimSpace(html.UnescapeString(m[1]))
		}
	}
	return ""
}
