package i18n

// englishMessages contains all English translations.
var englishMessages = map[string]string{
	// Error messages
	"error.generic":          "❌ Something went wrong. Please try again.",
	"error.not_in_voice":     "❌ You must be in a voice channel.",
	"error.not_connected":    "❌ I'm not in any channel.",
	"error.transport":        "❌ I couldn't reach the audio server.",
	"error.invalid_loop":     "Use: song | queue | off",
	"error.invalid_position": "❌ Invalid position.",
	"error.usage_play":       "Use: %splay <search or link>",
	"error.usage_remove":     "Use: %sremove <position>",

	// Embed titles
	"title.playing":        "Playing",
	"title.playlist_added": "Playlist added",
	"title.queued":         "Added to queue",
	"title.queued_many":    "Added to queue",
	"title.playlist_queue": "Playlist added to queue",
	"title.no_results":     "No results",
	"title.queue":          "Queue",
	"title.now_playing":    "Now Playing",
	"title.lyrics":         "Lyrics: %s",

	// Play results
	"play.started":            "▶️ **%s**",
	"play.started_and_queued": "▶️ **%s**\n➕ Added %d to the queue",
	"play.playlist_started":   "▶️ **%s**\n➕ Added %d more songs to the queue",
	"play.queued":             "➕ **%s**",
	"play.queued_many":        "➕ %d tracks. First: **%s**",
	"play.playlist_queued":    "➕ %d songs. First: **%s**",
	"play.not_found":          "❌ No results found.",

	// Status messages
	"status.joined":          "✅ Connected to %s",
	"status.left":            "👋 Disconnected and queue cleared.",
	"status.paused":          "⏸️ Paused.",
	"status.resumed":         "▶️ Resumed.",
	"status.stopped":         "🛑 Stopped and queue cleared.",
	"status.skipped":         "⏭️ Skipped.",
	"status.nothing_playing": "⏸️ Nothing is playing.",
	"status.nothing_paused":  "▶️ Nothing is paused.",
	"status.nothing_to_skip": "⏭️ Nothing to skip.",
	"status.not_playing_now": "❌ Nothing is playing right now.",
	"status.loop":            "🔁 Loop: %s",
	"status.idle_disconnect": "👋 I left because the channel was empty.",

	// Queue messages
	"queue.empty":    "📭 The queue is empty.",
	"queue.list":     "🎶 List:\n%s",
	"queue.shuffled": "🔀 Queue shuffled.",
	"queue.removed":  "🗑️ Removed: **%s**",

	// Now playing
	"nowplaying.track": "🎵 **%s** — %s",

	// Lyrics
	"lyrics.not_found": "❌ I couldn't find the lyrics.",
	"lyrics.no_track":  "❌ Nothing is playing. Use %slyrics <artist - song>",

	// Anti-spam
	"flood.warning": "⏳ %s, you are sending too many commands. Wait %d seconds.",
}
