package i18n

// spanishMessages contains all Spanish translations.
var spanishMessages = map[string]string{
	// Error messages
	"error.generic":          "❌ Algo salió mal. Inténtalo de nuevo.",
	"error.not_in_voice":     "❌ Debes estar en un canal de voz.",
	"error.not_connected":    "❌ No estoy en ningún canal.",
	"error.transport":        "❌ No pude comunicarme con el servidor de audio.",
	"error.invalid_loop":     "Usa: song | queue | off",
	"error.invalid_position": "❌ Posición inválida.",
	"error.usage_play":       "Usa: %splay <búsqueda o enlace>",
	"error.usage_remove":     "Usa: %sremove <posición>",

	// Embed titles
	"title.playing":        "Reproduciendo",
	"title.playlist_added": "Playlist añadida",
	"title.queued":         "Añadido a la cola",
	"title.queued_many":    "Añadidas a la cola",
	"title.playlist_queue": "Playlist añadida a la cola",
	"title.no_results":     "Sin resultados",
	"title.queue":          "Cola",
	"title.now_playing":    "Now Playing",
	"title.lyrics":         "Letra: %s",

	// Play results
	"play.started":            "▶️ **%s**",
	"play.started_and_queued": "▶️ **%s**\n➕ Añadidas %d a la cola",
	"play.playlist_started":   "▶️ **%s**\n➕ Añadidas %d canciones más a la cola",
	"play.queued":             "➕ **%s**",
	"play.queued_many":        "➕ %d pistas. Primera: **%s**",
	"play.playlist_queued":    "➕ %d canciones. Primera: **%s**",
	"play.not_found":          "❌ No se encontraron resultados.",

	// Status messages
	"status.joined":          "✅ Conectado a %s",
	"status.left":            "👋 Desconectado y cola limpiada.",
	"status.paused":          "⏸️ Pausado.",
	"status.resumed":         "▶️ Reanudado.",
	"status.stopped":         "🛑 Detenido y cola limpiada.",
	"status.skipped":         "⏭️ Canción saltada.",
	"status.nothing_playing": "⏸️ No hay nada sonando.",
	"status.nothing_paused":  "▶️ No hay nada en pausa.",
	"status.nothing_to_skip": "⏭️ No hay nada para saltar.",
	"status.not_playing_now": "❌ No hay nada reproduciéndose.",
	"status.loop":            "🔁 Loop: %s",
	"status.idle_disconnect": "👋 Me desconecté porque el canal quedó vacío.",

	// Queue messages
	"queue.empty":    "📭 La cola está vacía.",
	"queue.list":     "🎶 Lista:\n%s",
	"queue.shuffled": "🔀 Cola mezclada.",
	"queue.removed":  "🗑️ Eliminado: **%s**",

	// Now playing
	"nowplaying.track": "🎵 **%s** — %s",

	// Lyrics
	"lyrics.not_found": "❌ No encontré la letra.",
	"lyrics.no_track":  "❌ No hay nada reproduciéndose. Usa %slyrics <artista - canción>",

	// Anti-spam
	"flood.warning": "⏳ %s, estás enviando demasiados comandos. Espera %d segundos.",
}
