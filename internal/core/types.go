package core

import (
	"context"
	"fmt"
	"strings"
)

// SearchType selects which entity kind a remote search returns.
type SearchType string

const (
	SearchTypeTrack    SearchType = "track"
	SearchTypeAlbum    SearchType = "album"
	SearchTypeArtist   SearchType = "artist"
	SearchTypePlaylist SearchType = "playlist"
)

// Device is a Spotify Connect playback endpoint as reported by the remote service.
type Device struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	IsActive      bool   `json:"is_active"`
	VolumePercent int    `json:"volume_percent"`
	Type          string `json:"type"`
}

type Track struct {
	URI     string
	Name    string
	Artists []string
	Album   string
}

// FirstArtist returns the primary artist name or an empty string.
func (t Track) FirstArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}

type Album struct {
	URI     string
	Name    string
	Artists []string
}

// FirstArtist returns the primary artist name or an empty string.
func (a Album) FirstArtist() string {
	if len(a.Artists) == 0 {
		return ""
	}
	return a.Artists[0]
}

type Artist struct {
	URI  string
	Name string
}

type Playlist struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	OwnerID    string `json:"owner_id"`
	URI        string `json:"uri"`
	TrackCount int    `json:"track_count"`
}

// PlaylistIndex maps lowercased playlist names to their descriptors.
// An index is always rebuilt wholesale and never mutated after construction.
type PlaylistIndex map[string]Playlist

// NewPlaylistIndex builds an index from a playlist listing. Later duplicates win.
func NewPlaylistIndex(playlists []Playlist) PlaylistIndex {
	idx := make(PlaylistIndex, len(playlists))
	for _, p := range playlists {
		idx[strings.ToLower(p.Name)] = p
	}
	return idx
}

// SearchResult holds the typed results of one remote search call.
type SearchResult struct {
	Tracks    []Track
	Albums    []Album
	Artists   []Artist
	Playlists []Playlist
}

// PlaybackStatus describes what the remote service is currently playing.
type PlaybackStatus struct {
	IsPlaying bool
	Item      *Track
	Device    *Device
}

// NowPlayingText renders the status as "Artist: Track" for small displays.
func (s *PlaybackStatus) NowPlayingText() string {
	if s == nil || s.Item == nil {
		return ""
	}
	text := ""
	if artist := s.Item.FirstArtist(); artist != "" {
		text = artist + ": "
	}
	return text + s.Item.Name
}

// RequestKind tags a PlaybackRequest. The declaration order is the tie-break
// priority used when two interpretations have the same confidence.
type RequestKind int

const (
	KindContinue RequestKind = iota
	KindPlaylist
	KindAlbum
	KindArtist
	KindTrack
	KindGenre
	KindGeneric
)

var requestKindNames = map[RequestKind]string{
	KindContinue: "continue",
	KindPlaylist: "playlist",
	KindAlbum:    "album",
	KindArtist:   "artist",
	KindTrack:    "track",
	KindGenre:    "genre",
	KindGeneric:  "generic",
}

func (k RequestKind) String() string {
	if name, ok := requestKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseRequestKind is the inverse of RequestKind.String.
func ParseRequestKind(s string) (RequestKind, bool) {
	for k, name := range requestKindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// MarshalText encodes the kind by name so stored callback data stays readable
// and survives reordering of the constants.
func (k RequestKind) MarshalText() ([]byte, error) {
	name, ok := requestKindNames[k]
	if !ok {
		return nil, fmt.Errorf("unknown request kind %d", int(k))
	}
	return []byte(name), nil
}

func (k *RequestKind) UnmarshalText(text []byte) error {
	parsed, ok := ParseRequestKind(string(text))
	if !ok {
		return fmt.Errorf("unknown request kind %q", text)
	}
	*k = parsed
	return nil
}

// PlaybackRequest is a tagged union produced by the phrase matcher and consumed
// exactly once by the playback controller. Which fields are meaningful depends on Kind:
//
//	Continue: none
//	Track:    URIs (single track)
//	Album:    ContextURI
//	Artist:   ContextURI
//	Playlist: Playlist, and ContextURI when the playlist is played as a context
//	Genre:    URIs, Genre
//	Generic:  none
type PlaybackRequest struct {
	Kind       RequestKind `json:"kind"`
	URIs       []string    `json:"uris,omitempty"`
	ContextURI string      `json:"context_uri,omitempty"`
	Name       string      `json:"name,omitempty"`
	Artist     string      `json:"artist,omitempty"`
	Playlist   *Playlist   `json:"playlist,omitempty"`
	Genre      string      `json:"genre,omitempty"`
}

func ContinueRequest() PlaybackRequest {
	return PlaybackRequest{Kind: KindContinue}
}

func TrackRequest(t Track) PlaybackRequest {
	return PlaybackRequest{Kind: KindTrack, URIs: []string{t.URI}, Name: t.Name, Artist: t.FirstArtist()}
}

func AlbumRequest(a Album) PlaybackRequest {
	return PlaybackRequest{Kind: KindAlbum, ContextURI: a.URI, Name: a.Name, Artist: a.FirstArtist()}
}

func ArtistRequest(a Artist) PlaybackRequest {
	return PlaybackRequest{Kind: KindArtist, ContextURI: a.URI, Name: a.Name, Artist: a.Name}
}

// PlaylistRequest plays p either as a context (asContext) or as its track list.
func PlaylistRequest(p Playlist, asContext bool) PlaybackRequest {
	req := PlaybackRequest{Kind: KindPlaylist, Name: p.Name, Playlist: &p}
	if asContext {
		req.ContextURI = p.URI
	}
	return req
}

// GenreRequest plays the given tracks; the genre name is only used for dialog.
func GenreRequest(genre string, tracks []Track) PlaybackRequest {
	uris := make([]string, 0, len(tracks))
	for _, t := range tracks {
		if t.URI != "" {
			uris = append(uris, t.URI)
		}
	}
	req := PlaybackRequest{Kind: KindGenre, URIs: uris, Genre: genre}
	if len(tracks) > 0 {
		req.Name = tracks[0].Name
		req.Artist = tracks[0].FirstArtist()
	}
	return req
}

func GenericRequest() PlaybackRequest {
	return PlaybackRequest{Kind: KindGeneric}
}

// MatchResult is one scored interpretation of a phrase.
type MatchResult struct {
	Confidence  float64         `json:"confidence"`
	Request     PlaybackRequest `json:"request"`
	DisplayName string          `json:"display_name,omitempty"`
}

// Better reports whether m should be preferred over other. Confidence is compared,
// never summed; equal confidence falls back to the kind priority order.
func (m *MatchResult) Better(other *MatchResult) bool {
	if other == nil {
		return m != nil
	}
	if m == nil {
		return false
	}
	if m.Confidence != other.Confidence {
		return m.Confidence > other.Confidence
	}
	return m.Request.Kind < other.Request.Kind
}

// SpotifyClient is the remote music service as seen by the skill.
type SpotifyClient interface {
	IsAuthenticated() bool
	Search(ctx context.Context, query string, searchType SearchType) (*SearchResult, error)
	Devices(ctx context.Context) ([]Device, error)
	Status(ctx context.Context) *PlaybackStatus
	Playlists(ctx context.Context) ([]Playlist, error)
	Play(ctx context.Context, deviceID string, uris []string, contextURI string) error
	Pause(ctx context.Context, deviceID string) error
	Next(ctx context.Context, deviceID string) error
	Previous(ctx context.Context, deviceID string) error
	TransferPlayback(ctx context.Context, deviceID string, forcePlay bool) error
	SetVolume(ctx context.Context, deviceID string, percent int) error
	SetShuffle(ctx context.Context, shuffle bool) error
	PlaylistTracks(ctx context.Context, ownerID, playlistID string) ([]string, error)
}

// Settings are the persisted, user-editable skill settings.
type Settings struct {
	User              string `json:"user"`
	Password          string `json:"password"`
	DefaultDevice     string `json:"default_device"`
	LibrespotPath     string `json:"librespot_path"`
	PlaylistAsContext bool   `json:"playlist_as_context"`
	Ducking           bool   `json:"ducking"`
}

// HasCredentials reports whether a local helper process could log in.
func (s Settings) HasCredentials() bool {
	return s.User != "" && s.Password != ""
}
