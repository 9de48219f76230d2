// Package fuzzy normalises track titles and artist names for lookups and comparisons.
package fuzzy

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	bracketRegex    = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]`)
	featRegex       = regexp.MustCompile(`(?i)\s+(?:feat\.?|ft\.?|featuring)\s+.*$`)
	artistSplit     = regexp.MustCompile(`(?i)\s*(?:,|\sy\s|\s&\s|\sand\s|\sfeat\.?\s|\sft\.?\s|\sx\s)\s*`)
	topicSuffix     = regexp.MustCompile(`(?i)\s*-\s*topic$`)
	vevoSuffix      = regexp.MustCompile(`(?i)vevo$`)
	punctRegex      = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// NormalizeArtist lowercases and unaccents an artist name and unifies connectors.
func (n *Normalizer) NormalizeArtist(artist string) string {
	artist = " " + n.basicNormalize(artist) + " "

	artist = strings.ReplaceAll(artist, " and ", " & ")
	artist = strings.ReplaceAll(artist, " y ", " & ")
	artist = strings.ReplaceAll(artist, " vs ", " vs. ")

	return strings.TrimSpace(artist)
}

// NormalizeTitle drops bracketed noise and featured artists, then lowercases and unaccents.
func (n *Normalizer) NormalizeTitle(title string) string {
	title = StripBrackets(title)
	title = featRegex.ReplaceAllString(title, "")
	return n.basicNormalize(title)
}

// QueryKey maps equivalent free-text searches onto one cache key.
func (n *Normalizer) QueryKey(query string) string {
	return n.basicNormalize(query)
}

func (n *Normalizer) basicNormalize(text string) string {
	text = Unaccent(text)

	text = punctRegex.ReplaceAllString(text, " ")
	text = whitespaceRegex.ReplaceAllString(text, " ")

	text = strings.ToLower(text)
	text = strings.TrimSpace(text)

	return text
}

// Unaccent removes combining marks while keeping case and punctuation.
func Unaccent(text string) string {
	text = norm.NFKD.String(text)

	var result strings.Builder
	result.Grow(len(text))
	for _, r := range text {
		if !unicode.Is(unicode.Mn, r) {
			result.WriteRune(r)
		}
	}
	return norm.NFC.String(result.String())
}

// StripBrackets removes "(...)" and "[...]" segments and collapses whitespace.
func StripBrackets(text string) string {
	text = bracketRegex.ReplaceAllString(text, "")
	text = whitespaceRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// SplitArtists splits a credit line such as "A, B & C feat. D" into names.
func SplitArtists(credit string) []string {
	var artists []string
	for _, part := range artistSplit.Split(credit, -1) {
		if part = strings.TrimSpace(part); part != "" {
			artists = append(artists, part)
		}
	}
	return artists
}

// FirstArtist returns the leading name of a credit line.
func FirstArtist(credit string) string {
	if artists := SplitArtists(credit); len(artists) > 0 {
		return artists[0]
	}
	return strings.TrimSpace(credit)
}

// CleanChannelName turns upload channel names like "Artist - Topic" or "ArtistVEVO" into the artist.
func CleanChannelName(name string) string {
	name = StripBrackets(name)
	name = topicSuffix.ReplaceAllString(name, "")
	name = vevoSuffix.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}

// CalculateSimilarity returns the longest-common-subsequence ratio of two strings in [0,1].
func (n *Normalizer) CalculateSimilarity(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}

	r1, r2 := []rune(s1), []rune(s2)
	if len(r1) == 0 || len(r2) == 0 {
		return 0.0
	}

	return float64(longestCommonSubsequence(r1, r2)) / float64(max(len(r1), len(r2)))
}

func longestCommonSubsequence(s1, s2 []rune) int {
	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)

	for i := 1; i <= len(s1); i++ {
		for j := 1; j <= len(s2); j++ {
			if s1[i-1] == s2[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}

	return prev[len(s2)]
}

// DurationTolerance scores how close two track lengths are: 1 within 30s, falling to 0 at 2m.
func (n *Normalizer) DurationTolerance(d1, d2 time.Duration) float64 {
	diff := d1 - d2
	if diff < 0 {
		diff = -diff
	}
	tolerance := 30 * time.Second

	if diff <= tolerance {
		return 1.0
	}

	maxDiff := 2 * time.Minute
	if diff >= maxDiff {
		return 0.0
	}

	return 1.0 - float64(diff-tolerance)/float64(maxDiff-tolerance)
}
