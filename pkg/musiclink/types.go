// Package musiclink recovers "title artist" metadata from music service links
// so that they can be searched on a different platform.
package musiclink

import (
	"context"
	"strings"
)

// TrackInfo is what a link says about its track.
type TrackInfo struct {
	Title  string
	Artist string
}

// DisplayTitle renders "Artist - Title", or the bare title.
func (i TrackInfo) DisplayTitle() string {
	if i.Artist == "" {
		return strings.TrimSpace(i.Title)
	}
	return strings.TrimSpace(i.Artist) + " - " + strings.TrimSpace(i.Title)
}

// Resolver reads track metadata for the links of one service.
type Resolver interface {
	Resolve(ctx context.Context, url string) (*TrackInfo, error)
	CanResolve(url string) bool
}

// TitleLookup is implemented by resolvers backed by an oEmbed endpoint that returns the raw display title.
type TitleLookup interface {
	LookupTitle(ctx context.Context, url string) (string, error)
	CanResolve(url string) bool
}
