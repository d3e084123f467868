package i18n

// germanMessages contains all German translations.
var germanMessages = map[string]string{
	// Failures
	"dialog.NotAuthorized":      "Ich konnte mich nicht bei Spotify anmelden. Bitte prüfe deine Kontoeinstellungen.",
	"dialog.NotConfigured":      "Spotify ist noch nicht eingerichtet. Trage dein Konto in den Einstellungen ein.",
	"dialog.NoDevicesAvailable": "Ich habe kein Spotify-Gerät zum Abspielen gefunden.",
	"dialog.PlaylistNotFound":   "Ich habe keine Playlist namens {playlist} gefunden.",
	"dialog.PlaybackFailed":     "Die Wiedergabe ist fehlgeschlagen: {reason}",
	"dialog.TransferFailed":     "Ich habe dieses Gerät nicht gefunden.",

	// Playback
	"dialog.listening_to":          "Du hörst {name}.",
	"dialog.listening_to_song_by":  "Du hörst {name} von {artist}.",
	"dialog.listening_to_album_by": "Du hörst das Album {name} von {artist}.",
	"dialog.listening_to_artist":   "Du hörst {artist}.",
	"dialog.listening_to_genre":    "Du hörst etwas {genre}.",
	"dialog.resuming":              "Spotify läuft weiter.",
	"dialog.TransferredTo":         "Wiedergabe auf {device}.",

	// Devices
	"dialog.AvailableDevices": "Verfügbare Geräte sind {devices}.",
	"dialog.And":              "und",

	// Phrase vocabulary, alternatives separated by |
	"vocab.play":      "spiele|spiel|starte|hör",
	"vocab.service":   "spotify",
	"vocab.on":        "auf|über|von|mit",
	"vocab.by":        "von",
	"vocab.playlist":  "playlist|wiedergabeliste",
	"vocab.album":     "album|platte",
	"vocab.artist":    "künstler|band|interpret",
	"vocab.song":      "lied|song|titel|track",
	"vocab.something": "etwas|irgendwas|musik|irgendetwas",
	"vocab.article":   "die|das|den|der|meine|mein|eine|ein",
}
