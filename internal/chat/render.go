package chat

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PurpleQuas4r/Sthashior/internal/core"
	"github.com/PurpleQuas4r/Sthashior/internal/i18n"
	"github.com/PurpleQuas4r/Sthashior/internal/player"
)

// Embed colours.
const (
	ColorGreen   = 0x2ECC71
	ColorBlurple = 0x5865F2
	ColorRed     = 0xE74C3C
	ColorOrange  = 0xE67E22
	ColorTeal    = 0x1ABC9C
	ColorPurple  = 0x9B59B6
)

// MaxListLength caps the queue listing.
const MaxListLength = 1900

// Card is a rendered reply. A card without Title is sent as plain text.
type Card struct {
	Title       string
	Description string
	Color       int
}

// Renderer turns replies into localized cards.
type Renderer struct {
	localizer *i18n.Localizer
	prefix    string
}

func NewRenderer(localizer *i18n.Localizer, prefix string) *Renderer {
	return &Renderer{localizer: localizer, prefix: prefix}
}

func (r *Renderer) t(key string, args ...interface{}) string {
	return r.localizer.T(key, args...)
}

func (r *Renderer) embed(titleKey, description string, color int) Card {
	return Card{Title: r.t(titleKey), Description: description, Color: color}
}

// Render localizes reply.
func (r *Renderer) Render(reply Reply) Card {
	res := reply.Result
	title := res.Track.Title

	switch res.Key {
	case "play.started":
		return r.embed("title.playing", r.t(res.Key, title), ColorGreen)
	case "play.started_and_queued":
		return r.embed("title.playing", r.t(res.Key, title, res.Added), ColorGreen)
	case "play.playlist_started":
		return r.embed("title.playlist_added", r.t(res.Key, title, res.Added), ColorGreen)
	case "play.queued":
		return r.embed("title.queued", r.t(res.Key, title), ColorBlurple)
	case "play.queued_many":
		return r.embed("title.queued_many", r.t(res.Key, res.Added, title), ColorBlurple)
	case "play.playlist_queued":
		return r.embed("title.playlist_queue", r.t(res.Key, res.Added, title), ColorBlurple)
	case "play.not_found", "lyrics.not_found":
		return r.embed("title.no_results", r.t(res.Key), ColorRed)
	case "queue.list":
		return r.embed("title.queue", r.t(res.Key, QueueListing(res.Queue)), ColorTeal)
	case "nowplaying.track":
		return r.embed("title.now_playing", r.t(res.Key, title, FormatDuration(res.Track.Duration)), ColorGreen)
	case "title.lyrics":
		if res.Lyrics == nil {
			return r.embed("title.no_results", r.t("lyrics.not_found"), ColorRed)
		}
		return Card{Title: r.t(res.Key, res.Lyrics.Title), Description: res.Lyrics.Text, Color: ColorPurple}
	case "queue.empty":
		if reply.Command == player.CommandQueue {
			return r.embed("title.queue", r.t(res.Key), ColorOrange)
		}
	case "status.not_playing_now":
		if reply.Command == player.CommandNowPlaying {
			return r.embed("title.now_playing", r.t(res.Key), ColorRed)
		}
	case "status.joined":
		return Card{Description: r.t(res.Key, channelMention(res.ChannelID))}
	case "status.loop":
		return Card{Description: r.t(res.Key, res.Mode.String())}
	case "queue.removed":
		return Card{Description: r.t(res.Key, title)}
	case "error.usage_play", "error.usage_remove", "lyrics.no_track":
		return Card{Description: r.t(res.Key, r.prefix)}
	case "flood.warning":
		return Card{Description: r.t(res.Key, reply.Mention, waitSeconds(reply.Wait))}
	}
	return Card{Description: r.t(res.Key)}
}

// Text flattens a card for plain-text surfaces.
func (c Card) Text() string {
	if c.Title == "" {
		return c.Description
	}
	return fmt.Sprintf("**%s**\n%s", c.Title, c.Description)
}

func channelMention(channelID string) string {
	if channelID == "" {
		return ""
	}
	return "<#" + channelID + ">"
}

func waitSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// QueueListing numbers the tracks from 1 and truncates the text at MaxListLength characters.
func QueueListing(tracks []core.Track) string {
	lines := make([]string, 0, len(tracks))
	for i, t := range tracks {
		lines = append(lines, strconv.Itoa(i+1)+". "+t.Title)
	}
	listing := strings.Join(lines, "\n")
	if utf8.RuneCountInString(listing) <= MaxListLength {
		return listing
	}
	return string([]rune(listing)[:MaxListLength]) + "\n…"
}

// FormatDuration renders m:ss, or h:mm:ss from one hour up.
func FormatDuration(d time.Duration) string {
	total := int(d / time.Second)
	if total < 0 {
		total = 0
	}
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
