package chat

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/PurpleQuas4r/Sthashior/internal/core"
	"github.com/PurpleQuas4r/Sthashior/internal/flood"
	"github.com/PurpleQuas4r/Sthashior/internal/i18n"
	"github.com/PurpleQuas4r/Sthashior/internal/lyrics"
	"github.com/PurpleQuas4r/Sthashior/internal/player"
)

// mockPlayer records the last call and answers with an OK result keyed by the command.
type mockPlayer struct {
	calls []string
	args  []string
}

func (m *mockPlayer) record(name string, args ...string) player.Result {
	m.calls = append(m.calls, name)
	m.args = append(m.args, strings.Join(args, "|"))
	return player.Result{Outcome: player.OK, Key: name}
}

func (m *mockPlayer) Join(_ context.Context, g, u string) player.Result { return m.record("join", g, u) }
func (m *mockPlayer) Leave(_ context.Context, g string) player.Result   { return m.record("leave", g) }
func (m *mockPlayer) Play(_ context.Context, g, u, q string) player.Result {
	return m.record("play", g, u, q)
}
func (m *mockPlayer) Pause(_ context.Context, g string) player.Result  { return m.record("pause", g) }
func (m *mockPlayer) Resume(_ context.Context, g string) player.Result { return m.record("resume", g) }
func (m *mockPlayer) Stop(_ context.Context, g string) player.Result   { return m.record("stop", g) }
func (m *mockPlayer) Skip(_ context.Context, g string) player.Result   { return m.record("skip", g) }
func (m *mockPlayer) Queue(_ context.Context, g string) player.Result  { return m.record("queue", g) }
func (m *mockPlayer) NowPlaying(_ context.Context, g string) player.Result {
	return m.record("nowplaying", g)
}
func (m *mockPlayer) Loop(_ context.Context, g, a string) player.Result { return m.record("loop", g, a) }
func (m *mockPlayer) Shuffle(_ context.Context, g string) player.Result {
	return m.record("shuffle", g)
}
func (m *mockPlayer) Remove(_ context.Context, g string, p int) player.Result {
	return m.record("remove", g, strings.Repeat("x", p))
}
func (m *mockPlayer) Lyrics(_ context.Context, g, n string) player.Result {
	return m.record("lyrics", g, n)
}

type countingBlocks struct{ n int }

func (c *countingBlocks) CommandBlocked() { c.n++ }

func msg(text string) *Message {
	return &Message{GuildID: "g1", ChannelID: "t1", UserID: "u1", Mention: "<@u1>", Text: text}
}

func TestDispatcher_RoutesCommands(t *testing.T) {
	tests := []struct {
		text     string
		wantCall string
		wantArgs string
	}{
		{"#play  bohemian   rhapsody", "play", "g1|u1|bohemian rhapsody"},
		{"#PLAY queen", "play", "g1|u1|queen"},
		{"#join", "join", "g1|u1"},
		{"#leave", "leave", "g1"},
		{"#pause", "pause", "g1"},
		{"#resume", "resume", "g1"},
		{"#stop", "stop", "g1"},
		{"#skip", "skip", "g1"},
		{"#queue", "queue", "g1"},
		{"#nowplaying", "nowplaying", "g1"},
		{"#loop queue", "loop", "g1|queue"},
		{"#loop", "loop", "g1|"},
		{"#shuffle", "shuffle", "g1"},
		{"#remove 3", "remove", "g1|xxx"},
		{"#lyrics Soda Stereo - Persiana Americana", "lyrics", "g1|Soda Stereo - Persiana Americana"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			p := &mockPlayer{}
			d := NewDispatcher("#", nil, p, nil, zap.NewNop())

			reply, ok := d.Handle(context.Background(), msg(tt.text))
			if !ok {
				t.Fatalf("Handle(%q) ignored the command", tt.text)
			}
			if len(p.calls) != 1 || p.calls[0] != tt.wantCall || p.args[0] != tt.wantArgs {
				t.Errorf("calls = %v args = %v, want %s(%s)", p.calls, p.args, tt.wantCall, tt.wantArgs)
			}
			if reply.Command != tt.wantCall || reply.Mention != "<@u1>" {
				t.Errorf("reply = %+v", reply)
			}
		})
	}
}

func TestDispatcher_IgnoresChatter(t *testing.T) {
	p := &mockPlayer{}
	d := NewDispatcher("#", nil, p, nil, zap.NewNop())

	for _, text := range []string{"hola", "#", "#ia cuéntame algo", "!play x", ""} {
		if _, ok := d.Handle(context.Background(), msg(text)); ok {
			t.Errorf("Handle(%q) should be ignored", text)
		}
	}
	if len(p.calls) != 0 {
		t.Errorf("player called for chatter: %v", p.calls)
	}
}

func TestDispatcher_RemoveUsage(t *testing.T) {
	p := &mockPlayer{}
	d := NewDispatcher("#", nil, p, nil, zap.NewNop())

	for _, text := range []string{"#remove", "#remove two", "#remove 1 2"} {
		reply, ok := d.Handle(context.Background(), msg(text))
		if !ok || reply.Result.Outcome != player.InvalidArgument || reply.Result.Key != "error.usage_remove" {
			t.Errorf("Handle(%q) = %+v", text, reply.Result)
		}
	}
	if len(p.calls) != 0 {
		t.Errorf("player called with bad positions: %v", p.calls)
	}
}

func TestDispatcher_FloodWarnsOnce(t *testing.T) {
	gate := flood.New(2, time.Minute)
	defer gate.Stop()
	blocks := &countingBlocks{}
	p := &mockPlayer{}
	d := NewDispatcher("#", gate, p, blocks, zap.NewNop())

	for i := 0; i < 2; i++ {
		if reply, ok := d.Handle(context.Background(), msg("#skip")); !ok || reply.Result.Key != "skip" {
			t.Fatalf("command %d should pass the gate", i)
		}
	}

	reply, ok := d.Handle(context.Background(), msg("#skip"))
	if !ok || reply.Result.Key != "flood.warning" || reply.Wait <= 0 {
		t.Fatalf("third command = %+v, want a flood warning", reply)
	}
	if _, ok := d.Handle(context.Background(), msg("#skip")); ok {
		t.Error("second blocked command should be dropped silently")
	}

	if len(p.calls) != 2 {
		t.Errorf("player calls = %d, want 2", len(p.calls))
	}
	if blocks.n != 2 {
		t.Errorf("blocked = %d, want 2", blocks.n)
	}
}

func TestRenderer_Render(t *testing.T) {
	r := NewRenderer(i18n.NewLocalizer("en"), "#")
	track := core.Track{Title: "Song", Duration: 3*time.Minute + 7*time.Second}

	tests := []struct {
		name      string
		reply     Reply
		wantTitle string
		wantDesc  string
		wantColor int
	}{
		{
			name:      "started",
			reply:     Reply{Result: player.Result{Key: "play.started", Track: track}},
			wantTitle: "Playing", wantDesc: "▶️ **Song**", wantColor: ColorGreen,
		},
		{
			name:      "playlist started",
			reply:     Reply{Result: player.Result{Key: "play.playlist_started", Track: track, Added: 4}},
			wantTitle: "Playlist added", wantDesc: "▶️ **Song**\n➕ Added 4 more songs to the queue", wantColor: ColorGreen,
		},
		{
			name:      "queued many",
			reply:     Reply{Result: player.Result{Key: "play.queued_many", Track: track, Added: 2}},
			wantTitle: "Added to queue", wantDesc: "➕ 2 tracks. First: **Song**", wantColor: ColorBlurple,
		},
		{
			name:      "not found",
			reply:     Reply{Result: player.Result{Key: "play.not_found"}},
			wantTitle: "No results", wantColor: ColorRed,
		},
		{
			name:      "empty queue listing",
			reply:     Reply{Command: player.CommandQueue, Result: player.Result{Key: "queue.empty"}},
			wantTitle: "Queue", wantDesc: "📭 The queue is empty.", wantColor: ColorOrange,
		},
		{
			name:     "empty queue on shuffle is plain",
			reply:    Reply{Command: player.CommandShuffle, Result: player.Result{Key: "queue.empty"}},
			wantDesc: "📭 The queue is empty.",
		},
		{
			name:      "now playing",
			reply:     Reply{Command: player.CommandNowPlaying, Result: player.Result{Key: "nowplaying.track", Track: track}},
			wantTitle: "Now Playing", wantDesc: "🎵 **Song** — 3:07", wantColor: ColorGreen,
		},
		{
			name:      "lyrics",
			reply:     Reply{Result: player.Result{Key: "title.lyrics", Lyrics: &lyrics.Lyrics{Title: "A - B", Text: "la"}}},
			wantTitle: "Lyrics: A - B", wantDesc: "la", wantColor: ColorPurple,
		},
		{
			name:     "loop",
			reply:    Reply{Result: player.Result{Key: "status.loop", Mode: core.RepeatQueue}},
			wantDesc: "🔁 Loop: queue",
		},
		{
			name:     "joined",
			reply:    Reply{Result: player.Result{Key: "status.joined", ChannelID: "42"}},
			wantDesc: "✅ Connected to <#42>",
		},
		{
			name:     "usage",
			reply:    Reply{Result: player.Result{Key: "error.usage_play"}},
			wantDesc: "Use: #play <search or link>",
		},
		{
			name:     "flood",
			reply:    Reply{Mention: "<@u1>", Wait: 1500 * time.Millisecond, Result: player.Result{Key: "flood.warning"}},
			wantDesc: "⏳ <@u1>, you are sending too many commands. Wait 2 seconds.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := r.Render(tt.reply)
			if card.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", card.Title, tt.wantTitle)
			}
			if tt.wantDesc != "" && card.Description != tt.wantDesc {
				t.Errorf("Description = %q, want %q", card.Description, tt.wantDesc)
			}
			if card.Color != tt.wantColor {
				t.Errorf("Color = %#x, want %#x", card.Color, tt.wantColor)
			}
		})
	}
}

func TestQueueListing(t *testing.T) {
	short := QueueListing([]core.Track{{Title: "A"}, {Title: "B"}})
	if short != "1. A\n2. B" {
		t.Errorf("QueueListing() = %q", short)
	}

	var many []core.Track
	for i := 0; i < 200; i++ {
		many = append(many, core.Track{Title: strings.Repeat("é", 20)})
	}
	long := QueueListing(many)
	if !strings.HasSuffix(long, "\n…") {
		t.Error("long listing should end with the truncation marker")
	}
	if n := len([]rune(strings.TrimSuffix(long, "\n…"))); n != MaxListLength {
		t.Errorf("truncated listing = %d runes, want %d", n, MaxListLength)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0:00"},
		{59 * time.Second, "0:59"},
		{3*time.Minute + 5*time.Second, "3:05"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
		{-time.Second, "0:00"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
