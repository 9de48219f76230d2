package musiclink

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// oEmbed is the part of an oEmbed answer the resolvers read.
type oEmbed struct {
	Title      string `json:"title"`
	AuthorName string `json:"author_name"`
}

// oEmbedSource queries one provider's oEmbed endpoint.
type oEmbedSource struct {
	fetcher
	service  string
	endpoint string
}

func newOEmbedSource(service, endpoint string) oEmbedSource {
	return oEmbedSource{fetcher: newFetcher(), service: service, endpoint: endpoint}
}

func (s oEmbedSource) fetch(ctx context.Context, target string) (*oEmbed, error) {
	q := url.Values{}
	q.Set("url", target)
	q.Set("format", "json")

	var resp oEmbed
	if err := s.getJSON(ctx, s.service+" oEmbed", s.endpoint+"?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	resp.Title = strings.TrimSpace(resp.Title)
	resp.AuthorName = strings.TrimSpace(resp.AuthorName)
	return &resp, nil
}

// title returns the raw display title, failing when the provider sent none.
func (s oEmbedSource) title(ctx context.Context, target string) (string, error) {
	resp, err := s.fetch(ctx, target)
	if err != nil {
		return "", err
	}
	if resp.Title == "" {
		return "", fmt.Errorf("%s: %w", s.service, ErrNoMetadata)
	}
	return resp.Title, nil
}
