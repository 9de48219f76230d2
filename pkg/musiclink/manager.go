package musiclink

import (
	"context"
	"errors"
)

// Manager tries every resolver that claims a link, in order, until one names the track.
type Manager struct {
	resolvers []Resolver
}

// NewManager covers the services the bot understands.
func NewManager() *Manager {
	return NewManagerWith(
		NewYouTubeResolver(),
		NewSoundCloudResolver(),
		NewAppleMusicResolver(),
		NewPageResolver(DefaultPageSites),
	)
}

func NewManagerWith(resolvers ...Resolver) *Manager {
	return &Manager{resolvers: resolvers}
}

// Resolve returns the first usable answer. When every matching resolver fails
// their errors are joined.
func (m *Manager) Resolve(ctx context.Context, url string) (*TrackInfo, error) {
	var errs []error
	for _, resolver := range m.resolvers {
		if !resolver.CanResolve(url) {
			continue
		}
		info, err := resolver.Resolve(ctx, url)
		if err == nil && info != nil && info.Title != "" {
			return info, nil
		}
		if err == nil {
			err = ErrNoMetadata
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	if len(errs) == 0 {
		return nil, ErrNoResolver
	}
	return nil, errors.Join(errs...)
}

func (m *Manager) CanResolve(url string) bool {
	for _, resolver := range m.resolvers {
		if resolver.CanResolve(url) {
			return true
		}
	}
	return false
}

// LookupTitle prefers the raw oEmbed title. Links only known through page or
// catalog metadata get "Artist - Title" instead.
func (m *Manager) LookupTitle(ctx context.Context, url string) (string, error) {
	for _, resolver := range m.resolvers {
		if lookup, ok := resolver.(TitleLookup); ok && lookup.CanResolve(url) {
			if title, err := lookup.LookupTitle(ctx, url); err == nil && title != "" {
				return title, nil
			}
		}
	}

	info, err := m.Resolve(ctx, url)
	if err != nil {
		return "", err
	}
	return info.DisplayTitle(), nil
}
