package core

import (
	"context"

	"github.com/PurpleQuas4r/Sthashior/pkg/musiclink"
)

// MusicLinkAdapter serves a musiclink.Manager to the resolver and the lyrics
// finder, which only know the core interfaces.
type MusicLinkAdapter struct {
	links *musiclink.Manager
}

var (
	_ MusicLinkResolver = (*MusicLinkAdapter)(nil)
	_ TitleLookup       = (*MusicLinkAdapter)(nil)
)

// NewMusicLinkAdapter covers every supported service.
func NewMusicLinkAdapter() *MusicLinkAdapter {
	return NewMusicLinkAdapterFor(musiclink.NewManager())
}

func NewMusicLinkAdapterFor(links *musiclink.Manager) *MusicLinkAdapter {
	return &MusicLinkAdapter{links: links}
}

func (a *MusicLinkAdapter) Resolve(ctx context.Context, url string) (*MusicLinkTrackInfo, error) {
	info, err := a.links.Resolve(ctx, url)
	if err != nil {
		return nil, err
	}
	return &MusicLinkTrackInfo{Title: info.Title, Artist: info.Artist}, nil
}

func (a *MusicLinkAdapter) CanResolve(url string) bool {
	return a.links.CanResolve(url)
}

// LookupTitle returns a display title for a link the audio node could not load.
func (a *MusicLinkAdapter) LookupTitle(ctx context.Context, url string) (string, error) {
	return a.links.LookupTitle(ctx, url)
}
