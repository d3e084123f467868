// Package matcher turns spoken phrases into scored Spotify playback requests.
package matcher

import (
	"context"
	"maps"
	"math/rand/v2"
	"slices"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"voxspot/internal/core"
	"voxspot/internal/i18n"
	"voxspot/pkg/fuzzy"
)

const (
	// PatternBonus is added when a disambiguating pattern (album, artist, song) fired.
	PatternBonus = 0.1
	// ServiceBonus is added once when the phrase or the host names the service.
	ServiceBonus = 0.1
	// PlaylistThreshold is the minimum score for an explicitly requested playlist.
	PlaylistThreshold = 0.7
	// GenericThreshold is the minimum score for any fallback interpretation.
	GenericThreshold = 0.5
	// GenericConfidence is the confidence of a "play something" request.
	GenericConfidence = 0.5
)

// PlaylistSource yields the current playlist index snapshot.
type PlaylistSource interface {
	Get(ctx context.Context) core.PlaylistIndex
}

// Recorder receives one event per match attempt.
type Recorder interface {
	RecordMatch(kind string)
}

// Options tune a Matcher.
type Options struct {
	Language          string
	Genres            []string
	SearchCacheSize   int
	SearchCacheTTL    time.Duration
	PlaylistAsContext bool
}

// Matcher implements the phrase matching rules. It is safe for concurrent use.
type Matcher struct {
	client    core.SpotifyClient
	playlists PlaylistSource
	patterns  *patterns
	genres    []string
	searches  *expirable.LRU[string, *core.SearchResult]
	logger    *zap.Logger
	recorder  Recorder

	asContext atomic.Bool
	pick      func(n int) int
}

// New creates a matcher for the given language.
func New(client core.SpotifyClient, playlists PlaylistSource, opts Options, logger *zap.Logger) *Matcher {
	if opts.SearchCacheSize <= 0 {
		opts.SearchCacheSize = core.DefaultSearchCacheSize
	}
	if opts.SearchCacheTTL <= 0 {
		opts.SearchCacheTTL = core.DefaultSearchCacheTTL
	}
	genres := opts.Genres
	if len(genres) == 0 {
		genres = core.DefaultGenres
	}

	m := &Matcher{
		client:    client,
		playlists: playlists,
		patterns:  compilePatterns(i18n.NewLocalizer(opts.Language)),
		genres:    append([]string(nil), genres...),
		searches:  expirable.NewLRU[string, *core.SearchResult](opts.SearchCacheSize, nil, opts.SearchCacheTTL),
		logger:    logger,
		pick:      rand.IntN,
	}
	m.asContext.Store(opts.PlaylistAsContext)
	return m
}

// SetRecorder attaches a metrics recorder.
func (m *Matcher) SetRecorder(r Recorder) {
	m.recorder = r
}

// SetPlaylistAsContext controls whether matched playlists are played as a
// context or expanded into their track list.
func (m *Matcher) SetPlaylistAsContext(v bool) {
	m.asContext.Store(v)
}

// Match scores phrase. A nil result means the phrase is not for this skill.
// serviceHint is set when the host already knows the user asked for Spotify.
func (m *Matcher) Match(ctx context.Context, phrase string, serviceHint bool) *core.MatchResult {
	result := m.match(ctx, phrase, serviceHint)
	if m.recorder != nil {
		kind := "none"
		if result != nil {
			kind = result.Request.Kind.String()
		}
		m.recorder.RecordMatch(kind)
	}
	return result
}

func (m *Matcher) match(ctx context.Context, phrase string, serviceHint bool) *core.MatchResult {
	normalized := m.patterns.normalize(phrase)
	if normalized == "" {
		return nil
	}
	named := m.patterns.namesService(normalized)

	if !m.client.IsAuthenticated() {
		if named {
			m.logger.Debug("Not authenticated, acknowledging phrase", zap.String("phrase", phrase))
			return &core.MatchResult{Confidence: 0, Request: core.GenericRequest()}
		}
		return nil
	}

	query := m.patterns.strip(normalized)
	if m.patterns.isService(normalized) || m.patterns.isService(query) {
		return &core.MatchResult{Confidence: 1.0, Request: core.ContinueRequest(), DisplayName: "Spotify"}
	}
	if query == "" {
		return nil
	}

	result := m.specific(ctx, query)
	if result == nil {
		result = m.something(ctx, query)
	}
	if result == nil {
		result = m.generic(ctx, query)
	}
	if result == nil {
		m.logger.Debug("No match", zap.String("phrase", phrase))
		return nil
	}

	if named || serviceHint {
		result.Confidence = capped(result.Confidence + ServiceBonus)
	}
	m.logger.Debug("Matched phrase",
		zap.String("phrase", phrase),
		zap.Stringer("kind", result.Request.Kind),
		zap.Float64("confidence", result.Confidence))
	return result
}

// specific tries the playlist, album, artist and song patterns in order.
func (m *Matcher) specific(ctx context.Context, query string) *core.MatchResult {
	for _, re := range m.patterns.playlist {
		if name, ok := submatch(re, query); ok {
			if r := m.playlistResult(ctx, name, PlaylistThreshold); r != nil {
				return r
			}
		}
	}

	if name, ok := submatch(m.patterns.album, query); ok {
		title, artist := m.patterns.splitBy(name)
		if r := m.albumResult(ctx, title, artist); r != nil {
			r.Confidence = capped(r.Confidence + PatternBonus)
			return r
		}
	}

	if name, ok := submatch(m.patterns.artist, query); ok {
		if r := m.artistResult(ctx, name); r != nil {
			r.Confidence = capped(r.Confidence + PatternBonus)
			return r
		}
	}

	if name, ok := submatch(m.patterns.song, query); ok {
		title, artist := m.patterns.splitBy(name)
		if r := m.trackResult(ctx, title, artist); r != nil {
			r.Confidence = capped(r.Confidence + PatternBonus)
			return r
		}
	}
	return nil
}

// something handles "play something" and "play something by <artist>".
func (m *Matcher) something(ctx context.Context, query string) *core.MatchResult {
	artist, ok := submatch(m.patterns.something, query)
	if !ok {
		return nil
	}
	if artist != "" {
		if r := m.artistResult(ctx, artist); r != nil {
			r.Confidence = capped(r.Confidence + PatternBonus)
			return r
		}
		return nil
	}

	genre := m.genres[m.pick(len(m.genres))]
	res := m.search(ctx, "genre:"+genre, core.SearchTypeTrack)
	if res == nil || len(res.Tracks) == 0 {
		m.logger.Debug("Genre search returned nothing", zap.String("genre", genre))
		return nil
	}
	return &core.MatchResult{
		Confidence:  GenericConfidence,
		Request:     core.GenreRequest(genre, res.Tracks),
		DisplayName: genre,
	}
}

// generic tries the whole phrase as a playlist, then as album, artist and track.
func (m *Matcher) generic(ctx context.Context, query string) *core.MatchResult {
	if r := m.playlistResult(ctx, query, GenericThreshold); r != nil {
		return r
	}

	var best *core.MatchResult
	for _, candidate := range []*core.MatchResult{
		m.albumResult(ctx, query, ""),
		m.artistResult(ctx, query),
		m.trackResult(ctx, query, ""),
	} {
		if candidate != nil && candidate.Confidence >= GenericThreshold && candidate.Better(best) {
			best = candidate
		}
	}
	return best
}

// ResolvePlaylist finds the user's playlist closest to name, failing with a
// PlaylistNotFoundError when nothing scores above the explicit threshold.
func (m *Matcher) ResolvePlaylist(ctx context.Context, name string) (core.Playlist, float64, error) {
	name = m.patterns.normalize(name)
	idx := m.playlists.Get(ctx)
	p, confidence, ok := m.bestPlaylist(idx, name)
	if !ok || confidence <= PlaylistThreshold {
		return core.Playlist{}, confidence, &core.PlaylistNotFoundError{Name: name}
	}
	return p, confidence, nil
}

func (m *Matcher) playlistResult(ctx context.Context, name string, threshold float64) *core.MatchResult {
	idx := m.playlists.Get(ctx)
	p, confidence, ok := m.bestPlaylist(idx, name)
	if !ok || confidence <= threshold {
		return nil
	}
	return &core.MatchResult{
		Confidence:  confidence,
		Request:     core.PlaylistRequest(p, m.asContext.Load()),
		DisplayName: p.Name,
	}
}

// bestPlaylist scores name, and name without a leading article, against idx.
func (m *Matcher) bestPlaylist(idx core.PlaylistIndex, name string) (core.Playlist, float64, bool) {
	if len(idx) == 0 || name == "" {
		return core.Playlist{}, 0, false
	}
	// sorted so ties resolve the same way on every call
	keys := slices.Sorted(maps.Keys(idx))

	key, confidence, ok := fuzzy.BestMatch(name, keys)
	if bare := m.patterns.stripArticle(name); bare != "" && bare != name {
		if k, c, found := fuzzy.BestMatch(bare, keys); found && c > confidence {
			key, confidence, ok = k, c, true
		}
	}
	if !ok {
		return core.Playlist{}, 0, false
	}
	return idx[key], confidence, true
}

func (m *Matcher) albumResult(ctx context.Context, title, artist string) *core.MatchResult {
	res := m.search(ctx, withArtist(title, artist), core.SearchTypeAlbum)
	if res == nil || len(res.Albums) == 0 {
		return nil
	}
	album := res.Albums[0]
	return &core.MatchResult{
		Confidence:  score(title, album.Name, artist, album.FirstArtist()),
		Request:     core.AlbumRequest(album),
		DisplayName: album.Name,
	}
}

func (m *Matcher) artistResult(ctx context.Context, name string) *core.MatchResult {
	res := m.search(ctx, name, core.SearchTypeArtist)
	if res == nil || len(res.Artists) == 0 {
		return nil
	}
	artist := res.Artists[0]
	return &core.MatchResult{
		Confidence:  fuzzy.ArtistSimilarity(name, artist.Name),
		Request:     core.ArtistRequest(artist),
		DisplayName: artist.Name,
	}
}

func (m *Matcher) trackResult(ctx context.Context, title, artist string) *core.MatchResult {
	res := m.search(ctx, withArtist(title, artist), core.SearchTypeTrack)
	if res == nil || len(res.Tracks) == 0 {
		return nil
	}
	track := res.Tracks[0]
	return &core.MatchResult{
		Confidence:  score(title, track.Name, artist, track.FirstArtist()),
		Request:     core.TrackRequest(track),
		DisplayName: track.Name,
	}
}

// search runs a cached remote search. Failures are logged and yield nil.
func (m *Matcher) search(ctx context.Context, query string, searchType core.SearchType) *core.SearchResult {
	key := string(searchType) + "\x00" + query
	if res, ok := m.searches.Get(key); ok {
		return res
	}

	res, err := m.client.Search(ctx, query, searchType)
	if err != nil {
		m.logger.Warn("Search failed",
			zap.String("query", query),
			zap.String("type", string(searchType)),
			zap.Error(err))
		return nil
	}
	m.searches.Add(key, res)
	return res
}

// score compares the spoken title with the result, averaging in the artist
// similarity when the phrase named one.
func score(spokenTitle, title, spokenArtist, artist string) float64 {
	s := fuzzy.TitleSimilarity(spokenTitle, title)
	if spokenArtist != "" {
		s = (s + fuzzy.ArtistSimilarity(spokenArtist, artist)) / 2
	}
	return s
}

func withArtist(title, artist string) string {
	if artist == "" {
		return title
	}
	return title + " artist:" + artist
}

func capped(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	return v
}
