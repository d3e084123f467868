package i18n

// englishMessages contains all English translations.
var englishMessages = map[string]string{
	// Failures
	"dialog.NotAuthorized":      "I couldn't log in to Spotify. Please check your account settings.",
	"dialog.NotConfigured":      "Spotify isn't set up yet. Add your account in the skill settings.",
	"dialog.NoDevicesAvailable": "I couldn't find a Spotify device to play on.",
	"dialog.PlaylistNotFound":   "I couldn't find a playlist called {playlist}.",
	"dialog.PlaybackFailed":     "Spotify playback failed: {reason}",
	"dialog.TransferFailed":     "I couldn't find that device.",

	// Playback
	"dialog.listening_to":          "Listening to {name}.",
	"dialog.listening_to_song_by":  "Listening to {name} by {artist}.",
	"dialog.listening_to_album_by": "Listening to the album {name} by {artist}.",
	"dialog.listening_to_artist":   "Listening to {artist}.",
	"dialog.listening_to_genre":    "Listening to some {genre}.",
	"dialog.resuming":              "Resuming Spotify.",
	"dialog.TransferredTo":         "Playing on {device}.",

	// Devices
	"dialog.AvailableDevices": "Available devices are {devices}.",
	"dialog.And":              "and",

	// Phrase vocabulary, alternatives separated by |
	"vocab.play":      "play|start|put on|listen to",
	"vocab.service":   "spotify",
	"vocab.on":        "on|from|using|with",
	"vocab.by":        "by",
	"vocab.playlist":  "playlist",
	"vocab.album":     "album|record",
	"vocab.artist":    "artist|band|musician",
	"vocab.song":      "song|track|tune",
	"vocab.something": "something|some music|anything|music",
	"vocab.article":   "the|my|a|an|some",
}
