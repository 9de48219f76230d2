package lyrics

import (
	"strings"

	"github.com/PurpleQuas4r/Sthashior/internal/core"
	"github.com/PurpleQuas4r/Sthashior/pkg/fuzzy"
)

const titleSeparator = " - "

// Candidate is one (artist, title) pair tried against the providers.
// Artist may be empty when only the title is known.
type Candidate struct {
	Artist string
	Title  string
}

func (c Candidate) String() string {
	if c.Artist == "" {
		return c.Title
	}
	return c.Artist + titleSeparator + c.Title
}

type candidateList struct {
	items []Candidate
	seen  map[string]bool
}

func (l *candidateList) add(artist, title string) {
	artist = collapse(artist)
	title = collapse(title)
	if title == "" {
		return
	}
	if l.seen == nil {
		l.seen = make(map[string]bool)
	}
	key := strings.ToLower(artist + "\x00" + title)
	if l.seen[key] {
		return
	}
	l.seen[key] = true
	l.items = append(l.items, Candidate{Artist: artist, Title: title})
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func splitPair(s string) (left, right string, ok bool) {
	left, right, ok = strings.Cut(s, titleSeparator)
	if !ok {
		return "", "", false
	}
	return strings.TrimSpace(left), strings.TrimSpace(right), true
}

// FromQuery builds candidates for an explicit "Artist - Title" or bare title argument.
// current, when set, supplies the artist for a bare title.
func FromQuery(query string, current *core.Track) []Candidate {
	var list candidateList
	query = fuzzy.StripBrackets(query)

	if artist, title, ok := splitPair(query); ok {
		list.add(artist, title)
		list.add(fuzzy.FirstArtist(artist), title)
		// users sometimes type "Title - Artist"
		list.add(fuzzy.FirstArtist(title), artist)
		list.add(title, artist)
		return list.items
	}

	list.add("", query)
	if current != nil {
		author := fuzzy.CleanChannelName(current.Author)
		if author != "" {
			list.add(author, query)
			list.add(fuzzy.FirstArtist(author), query)
		}
	}
	return list.items
}

// FromTrack builds candidates from a playing track's metadata. embedTitle is an
// optional title recovered from oEmbed; its candidates are tried first.
func FromTrack(track core.Track, embedTitle string) []Candidate {
	var list candidateList

	if embedTitle = fuzzy.StripBrackets(embedTitle); embedTitle != "" {
		if artist, title, ok := splitPair(embedTitle); ok {
			list.add(artist, title)
			list.add(fuzzy.FirstArtist(artist), title)
		}
	}

	title := fuzzy.StripBrackets(track.Title)
	author := fuzzy.CleanChannelName(track.Author)

	if artistPart, song, ok := splitPair(title); ok {
		list.add(artistPart, song)
		for _, artist := range fuzzy.SplitArtists(artistPart) {
			list.add(artist, song)
		}
		list.add("", song)
		return list.items
	}

	if author != "" {
		list.add(author, title)
	}
	list.add("", title)
	return list.items
}
