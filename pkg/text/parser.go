// Package text parses chat commands and classifies play queries.
package text

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// QueryKind tells the resolver which path a play query takes.
type QueryKind int

const (
	// QueryFreeText is a plain search phrase
	QueryFreeText QueryKind = iota
	// QuerySpotifyLink is an open.spotify.com track, album or playlist link
	QuerySpotifyLink
	// QueryMusicLink is a link to another music service the audio node cannot load directly
	QueryMusicLink
	// QueryURL is any other link, tried directly on the audio node
	QueryURL
)

var (
	whitespaceRegex = regexp.MustCompile(`[ \t]+`)
	spotifyURIRegex = regexp.MustCompile(`^spotify:(track|album|playlist):([A-Za-z0-9]+)$`)

	spotifyDomains = map[string]bool{
		"open.spotify.com": true,
		"spotify.com":      true,
	}

	// Hosts whose pages carry track metadata but whose audio the node cannot play.
	metadataOnlyMusicDomains = map[string]bool{
		"music.apple.com":  true,
		"tidal.com":        true,
		"listen.tidal.com": true,
		"deezer.com":       true,
		"music.amazon.com": true,
		"beatport.com":     true,
	}

	trackingParams = []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "si", "feature", "pp"}
)

// Command is one prefixed chat command.
type Command struct {
	Name string
	// Args is the raw remainder after the command name.
	Args string
}

// Fields splits Args on whitespace.
func (c Command) Fields() []string {
	return strings.Fields(c.Args)
}

type Parser struct {
	prefix string
}

func NewParser(prefix string) *Parser {
	return &Parser{prefix: prefix}
}

// ParseCommand extracts the command from a chat message. ok is false for ordinary chatter.
func (p *Parser) ParseCommand(content string) (Command, bool) {
	content = p.normalizeText(content)
	if p.prefix == "" || !strings.HasPrefix(content, p.prefix) {
		return Command{}, false
	}

	body := strings.TrimSpace(content[len(p.prefix):])
	if body == "" {
		return Command{}, false
	}

	name, args, _ := strings.Cut(body, " ")
	return Command{
		Name: strings.ToLower(name),
		Args: strings.TrimSpace(args),
	}, true
}

func (p *Parser) normalizeText(text string) string {
	text = strings.TrimSpace(text)
	text = norm.NFKC.String(text)

	lines := strings.Split(text, "\n")
	var normalizedLines []string
	for _, line := range lines {
		line = strings.TrimSpace(whitespaceRegex.ReplaceAllString(line, " "))
		if line != "" {
			normalizedLines = append(normalizedLines, line)
		}
	}

	return strings.Join(normalizedLines, " ")
}

// ClassifyQuery decides how a play query should be resolved.
func (p *Parser) ClassifyQuery(query string) QueryKind {
	query = strings.TrimSpace(query)
	if spotifyURIRegex.MatchString(query) {
		return QuerySpotifyLink
	}
	if !IsURL(query) {
		return QueryFreeText
	}
	if p.isSpotifyURL(query) {
		return QuerySpotifyLink
	}
	if p.isMetadataOnlyURL(query) {
		return QueryMusicLink
	}
	return QueryURL
}

// IsURL reports whether s is an absolute http(s) link.
func IsURL(s string) bool {
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && u.Host != ""
}

// CleanURL trims trailing punctuation and drops tracking parameters. Non-URLs come back empty.
func CleanURL(rawURL string) string {
	rawURL = strings.TrimRight(strings.TrimSpace(rawURL), ".,!?;")
	if !IsURL(rawURL) {
		return ""
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	q := u.Query()
	for _, param := range trackingParams {
		q.Del(param)
	}
	u.RawQuery = q.Encode()

	return u.String()
}

func (p *Parser) isSpotifyURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	if !spotifyDomains[strings.ToLower(u.Hostname())] {
		return false
	}
	kind, _ := SpotifyEntity(rawURL)
	return kind != ""
}

func (p *Parser) isMetadataOnlyURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	hostname := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if metadataOnlyMusicDomains[hostname] {
		return true
	}
	return strings.HasSuffix(hostname, ".bandcamp.com")
}

// SpotifyEntity returns the entity kind (track, album, playlist) and id of a Spotify link or URI.
func SpotifyEntity(raw string) (kind, id string) {
	if m := spotifyURIRegex.FindStringSubmatch(strings.TrimSpace(raw)); m != nil {
		return m[1], m[2]
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", ""
	}

	pathParts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, part := range pathParts {
		switch part {
		case "track", "album", "playlist":
			if i+1 < len(pathParts) && pathParts[i+1] != "" {
				return part, pathParts[i+1]
			}
		}
	}
	return "", ""
}
