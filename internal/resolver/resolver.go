// Package resolver turns play queries into playable tracks by trying the audio node's
// loaders in a fixed order until one of them returns something.
package resolver

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/PurpleQuas4r/Sthashior/internal/core"
	"github.com/PurpleQuas4r/Sthashior/internal/store"
	"github.com/PurpleQuas4r/Sthashior/pkg/fuzzy"
	"github.com/PurpleQuas4r/Sthashior/pkg/musiclink"
	"github.com/PurpleQuas4r/Sthashior/pkg/text"
)

// Outcomes reported to the Observer.
const (
	OutcomeHit   = "hit"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

// Providers that are not search prefixes.
const (
	ProviderDirect = "direct"
	ProviderCache  = "cache"
)

// DefaultProviders is the search cascade: music search first, then video, then audio community.
var DefaultProviders = []string{"ytmsearch", "ytsearch", "scsearch"}

// Observer is told about every provider attempt.
type Observer interface {
	ObserveResolve(provider, outcome string)
}

// Result is what a play query resolved to.
type Result struct {
	Tracks []core.Track
	// Playlist is set when the query expanded to more than one track.
	Playlist     bool
	PlaylistName string
}

func newResult(tracks []core.Track, name string) Result {
	return Result{Tracks: tracks, Playlist: len(tracks) > 1, PlaylistName: name}
}

type Option func(*Resolver)

// WithTitleLookup enables the oEmbed title fallback for links the node cannot load.
func WithTitleLookup(lookup core.TitleLookup) Option {
	return func(r *Resolver) { r.titles = lookup }
}

// WithCatalog enables streaming-platform link expansion.
func WithCatalog(catalog core.CatalogExpander) Option {
	return func(r *Resolver) { r.catalog = catalog }
}

// WithMusicLinks enables page metadata lookup for music services the node cannot play.
func WithMusicLinks(links core.MusicLinkResolver) Option {
	return func(r *Resolver) { r.links = links }
}

func WithCache(cache *store.ResolveCache) Option {
	return func(r *Resolver) { r.cache = cache }
}

func WithProviders(providers ...string) Option {
	return func(r *Resolver) { r.providers = providers }
}

func WithObserver(observer Observer) Option {
	return func(r *Resolver) { r.observer = observer }
}

type Resolver struct {
	loader     core.TrackLoader
	titles     core.TitleLookup
	catalog    core.CatalogExpander
	links      core.MusicLinkResolver
	cache      *store.ResolveCache
	observer   Observer
	logger     *zap.Logger
	parser     *text.Parser
	normalizer *fuzzy.Normalizer

	providers       []string
	maxTracks       int
	providerTimeout time.Duration
	budget          time.Duration

	group singleflight.Group
}

func New(loader core.TrackLoader, config *core.AppConfig, logger *zap.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		loader:          loader,
		logger:          logger,
		parser:          text.NewParser(""),
		normalizer:      fuzzy.NewNormalizer(),
		providers:       DefaultProviders,
		maxTracks:       config.MaxPlaylistTracks,
		providerTimeout: config.ProviderTimeout(),
		budget:          config.ResolveBudget(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.maxTracks <= 0 {
		r.maxTracks = core.DefaultMaxPlaylistTracks
	}
	return r
}

// Resolve returns the tracks for a query in play order. It never fails: provider
// errors are logged and degrade to the next option, and no match is an empty Result.
// Concurrent identical queries share one resolution.
func (r *Resolver) Resolve(ctx context.Context, query string) Result {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{}
	}

	key := r.cacheKey(query)
	if r.cache != nil {
		if cached, ok := r.cache.Get(key); ok {
			r.observe(ProviderCache, OutcomeHit)
			return Result{Tracks: cached.Tracks, Playlist: cached.Playlist, PlaylistName: cached.PlaylistName}
		}
	}

	flight := r.group.DoChan(key, func() (any, error) {
		// the flight outlives any single caller; only the budget ends it
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.budget)
		defer cancel()

		res := r.resolve(ctx, query)
		if r.cache != nil && len(res.Tracks) > 0 {
			r.cache.Add(key, core.LoadResult{Tracks: res.Tracks, Playlist: res.Playlist, PlaylistName: res.PlaylistName})
		}
		return res, nil
	})

	select {
	case <-ctx.Done():
		return Result{}
	case out := <-flight:
		res := out.Val.(Result)
		if out.Shared {
			res.Tracks = slices.Clone(res.Tracks)
		}
		return res
	}
}

func (r *Resolver) cacheKey(query string) string {
	if text.IsURL(query) {
		return "url:" + musiclink.CanonicalYouTubeURL(cleanURL(query))
	}
	return "q:" + r.normalizer.QueryKey(query)
}

func (r *Resolver) resolve(ctx context.Context, query string) Result {
	switch r.parser.ClassifyQuery(query) {
	case text.QuerySpotifyLink:
		if r.catalog != nil && r.catalog.CanExpand(query) {
			return r.resolveCatalog(ctx, query)
		}
		return r.resolveURL(ctx, query)
	case text.QueryMusicLink:
		return r.resolveMusicLink(ctx, query)
	case text.QueryURL:
		return r.resolveURL(ctx, query)
	}
	return newResult(r.limit(r.cascade(ctx, query)), "")
}

// resolveURL loads a link directly, then falls back to simpler forms of it and
// finally to a title search.
func (r *Resolver) resolveURL(ctx context.Context, rawURL string) Result {
	canonical := musiclink.CanonicalYouTubeURL(cleanURL(rawURL))

	if res, ok := r.load(ctx, ProviderDirect, canonical); ok {
		return r.capped(res)
	}

	if videoID, err := musiclink.YouTubeVideoID(canonical); err == nil {
		if simplified := musiclink.SimplifiedYouTubeURL(videoID); simplified != canonical {
			if res, ok := r.load(ctx, ProviderDirect, simplified); ok {
				return r.capped(res)
			}
		}
		if tracks := r.search(ctx, "ytsearch", videoID); len(tracks) > 0 {
			return newResult(bestMatch(tracks), "")
		}
	}

	if title := r.lookupTitle(ctx, canonical); title != "" {
		return newResult(bestMatch(r.cascade(ctx, title)), "")
	}
	return Result{}
}

// resolveMusicLink turns a link to a service the node cannot play into a text search.
func (r *Resolver) resolveMusicLink(ctx context.Context, rawURL string) Result {
	if r.links == nil || !r.links.CanResolve(rawURL) {
		return r.resolveURL(ctx, rawURL)
	}

	info, err := r.links.Resolve(ctx, cleanURL(rawURL))
	if err != nil || info == nil || info.Title == "" {
		r.logger.Debug("Music link metadata lookup failed", zap.String("url", rawURL), zap.Error(err))
		return r.resolveURL(ctx, rawURL)
	}
	return newResult(bestMatch(r.cascade(ctx, info.SearchQuery())), "")
}

// resolveCatalog expands a streaming-platform link and resolves each entry in order.
func (r *Resolver) resolveCatalog(ctx context.Context, rawURL string) Result {
	queries, err := r.catalog.Expand(ctx, rawURL, r.maxTracks)
	if err != nil {
		r.logger.Warn("Streaming link expansion failed", zap.String("url", rawURL), zap.Error(err))
		r.observe("catalog", OutcomeError)
		return Result{}
	}

	var tracks []core.Track
	for _, query := range queries {
		if ctx.Err() != nil {
			break
		}
		tracks = append(tracks, bestMatch(r.cascade(ctx, query))...)
	}
	return newResult(r.limit(tracks), "")
}

// cascade tries each search provider in order; the first non-empty list wins
// and is returned in the provider's order.
func (r *Resolver) cascade(ctx context.Context, query string) []core.Track {
	for _, provider := range r.providers {
		if ctx.Err() != nil {
			return nil
		}
		if tracks := r.search(ctx, provider, query); len(tracks) > 0 {
			return tracks
		}
	}
	return nil
}

func (r *Resolver) search(ctx context.Context, provider, query string) []core.Track {
	res, ok := r.load(ctx, provider, provider+":"+query)
	if !ok {
		return nil
	}
	return res.Tracks
}

// load runs one bounded provider call. Errors are logged and reported as no result.
func (r *Resolver) load(ctx context.Context, provider, identifier string) (*core.LoadResult, bool) {
	ctx, cancel := context.WithTimeout(ctx, r.providerTimeout)
	defer cancel()

	res, err := r.loader.LoadTracks(ctx, identifier)
	if err != nil {
		outcome := OutcomeError
		if errors.Is(err, context.Canceled) {
			outcome = OutcomeEmpty
		}
		r.observe(provider, outcome)
		r.logger.Debug("Provider failed",
			zap.String("provider", provider),
			zap.String("identifier", identifier),
			zap.Error(err))
		return nil, false
	}
	if res == nil || len(res.Tracks) == 0 {
		r.observe(provider, OutcomeEmpty)
		return nil, false
	}

	r.observe(provider, OutcomeHit)
	return res, true
}

func (r *Resolver) lookupTitle(ctx context.Context, rawURL string) string {
	if r.titles == nil {
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, r.providerTimeout)
	defer cancel()

	title, err := r.titles.LookupTitle(ctx, rawURL)
	if err != nil {
		r.logger.Debug("Title lookup failed", zap.String("url", rawURL), zap.Error(err))
		return ""
	}
	return strings.TrimSpace(title)
}

func (r *Resolver) capped(res *core.LoadResult) Result {
	return newResult(r.limit(res.Tracks), res.PlaylistName)
}

func (r *Resolver) limit(tracks []core.Track) []core.Track {
	if len(tracks) > r.maxTracks {
		return tracks[:r.maxTracks]
	}
	return tracks
}

// bestMatch keeps the top hit of a search made for a link, since a link names one song.
func bestMatch(tracks []core.Track) []core.Track {
	if len(tracks) > 1 {
		return tracks[:1]
	}
	return tracks
}

func (r *Resolver) observe(provider, outcome string) {
	if r.observer != nil {
		r.observer.ObserveResolve(provider, outcome)
	}
}

func cleanURL(rawURL string) string {
	if cleaned := text.CleanURL(rawURL); cleaned != "" {
		return cleaned
	}
	return rawURL
}
