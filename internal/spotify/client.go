// Package spotify provides Spotify Web API integration for search, device
// listing and Connect playback control.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"voxspot/internal/core"
)

const (
	// MaxSearchResults limits typed search results; only the first is used for matching
	MaxSearchResults = 5
	// PlaylistPageSize is the page size for playlist listings
	PlaylistPageSize = 50
	// PlaylistItemsPageSize is the page size for playlist track listings
	PlaylistItemsPageSize = 100
	limiterBurst          = 5
)

// Scopes requested by `voxspot auth`.
var Scopes = []string{
	spotifyauth.ScopeUserReadPlaybackState,
	spotifyauth.ScopeUserModifyPlaybackState,
	spotifyauth.ScopeUserReadCurrentlyPlaying,
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistReadCollaborative,
}

// Client wraps the Web API. Every call waits on the rate limiter, and a
// rejected access token triggers exactly one forced refresh and retry.
type Client struct {
	config     *core.SpotifyConfig
	logger     *zap.Logger
	tokens     TokenSource
	limiter    *rate.Limiter
	apiOptions []spotify.ClientOption

	mu     sync.RWMutex
	client *spotify.Client
	userID string
}

var _ core.SpotifyClient = (*Client)(nil)

func NewClient(config *core.SpotifyConfig, tokens TokenSource, logger *zap.Logger) *Client {
	limit := rate.Limit(config.RequestsPerSecond)
	if config.RequestsPerSecond <= 0 {
		limit = rate.Inf
	}
	return &Client{
		config:  config,
		logger:  logger,
		tokens:  tokens,
		limiter: rate.NewLimiter(limit, limiterBurst),
	}
}

// NewClientWithBaseURL points the client at a different API root and disables
// rate limiting. baseURL must end with a slash.
func NewClientWithBaseURL(config *core.SpotifyConfig, tokens TokenSource, logger *zap.Logger, baseURL string) *Client {
	c := NewClient(config, tokens, logger)
	c.apiOptions = append(c.apiOptions, spotify.WithBaseURL(baseURL))
	c.limiter = rate.NewLimiter(rate.Inf, 0)
	return c
}

// Authenticate obtains a credential and verifies it against the API. On
// success the client reports itself authenticated.
func (c *Client) Authenticate(ctx context.Context) error {
	if _, err := c.tokens.Token(ctx, false); err != nil {
		return fmt.Errorf("failed to obtain token: %w", err)
	}

	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Source: transportSource{tokens: c.tokens},
			Base:   http.DefaultTransport,
		},
	}
	api := spotify.New(httpClient, c.apiOptions...)

	var user *spotify.PrivateUser
	err := c.withRefresh(ctx, "current user", func() error {
		var err error
		user, err = api.CurrentUser(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}

	c.mu.Lock()
	c.client = api
	c.userID = user.ID
	c.mu.Unlock()

	c.logger.Info("Authenticated successfully", zap.String("user", user.DisplayName))
	return nil
}

func (c *Client) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client != nil
}

// UserID returns the authenticated user's id, or an empty string.
func (c *Client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

func (c *Client) api() *spotify.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

// call runs fn against the authenticated API client.
func (c *Client) call(ctx context.Context, op string, fn func(api *spotify.Client) error) error {
	api := c.api()
	if api == nil {
		return fmt.Errorf("%s: %w", op, core.ErrNotAuthorized)
	}
	return c.withRefresh(ctx, op, func() error { return fn(api) })
}

func (c *Client) withRefresh(ctx context.Context, op string, fn func() error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	err := fn()
	if !isUnauthorized(err) {
		return err
	}

	c.logger.Info("Access token rejected, refreshing", zap.String("op", op))
	if _, refreshErr := c.tokens.Token(ctx, true); refreshErr != nil {
		return fmt.Errorf("%s: %w: %w", op, core.ErrNotAuthorized, refreshErr)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	err = fn()
	if isUnauthorized(err) {
		return fmt.Errorf("%s: %w: %w", op, core.ErrNotAuthorized, err)
	}
	return err
}

func isUnauthorized(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, core.ErrNotAuthorized) {
		return true
	}
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusUnauthorized
	}
	var apiErrPtr *spotify.Error
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Status == http.StatusUnauthorized
	}
	return false
}

func (c *Client) Search(ctx context.Context, query string, searchType core.SearchType) (*core.SearchResult, error) {
	t, err := toSearchType(searchType)
	if err != nil {
		return nil, err
	}

	var results *spotify.SearchResult
	err = c.call(ctx, "search", func(api *spotify.Client) error {
		var err error
		results, err = api.Search(ctx, query, t, spotify.Limit(MaxSearchResults))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	return convertSearchResult(results), nil
}

func (c *Client) Devices(ctx context.Context) ([]core.Device, error) {
	var devices []spotify.PlayerDevice
	err := c.call(ctx, "devices", func(api *spotify.Client) error {
		var err error
		devices, err = api.PlayerDevices(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get player devices: %w", err)
	}

	out := make([]core.Device, 0, len(devices))
	for i := range devices {
		out = append(out, convertDevice(&devices[i]))
	}
	return out, nil
}

// Status returns the current playback status. Failures are logged and
// reported as nil, the same as when nothing is playing.
func (c *Client) Status(ctx context.Context) *core.PlaybackStatus {
	var state *spotify.PlayerState
	err := c.call(ctx, "status", func(api *spotify.Client) error {
		var err error
		state, err = api.PlayerState(ctx)
		return err
	})
	if err != nil {
		if !errors.Is(err, core.ErrNotAuthorized) {
			c.logger.Warn("Failed to get player state", zap.Error(err))
		}
		return nil
	}
	if state == nil || (state.Item == nil && !state.Playing) {
		return nil
	}

	return convertPlayerState(state)
}

// Playlists lists every playlist of the current user.
func (c *Client) Playlists(ctx context.Context) ([]core.Playlist, error) {
	var playlists []core.Playlist
	offset := 0

	for {
		var page *spotify.SimplePlaylistPage
		err := c.call(ctx, "playlists", func(api *spotify.Client) error {
			var err error
			page, err = api.CurrentUsersPlaylists(ctx, spotify.Limit(PlaylistPageSize), spotify.Offset(offset))
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get playlists: %w", err)
		}

		for i := range page.Playlists {
			playlists = append(playlists, convertPlaylist(&page.Playlists[i]))
		}

		if len(page.Playlists) < PlaylistPageSize {
			break
		}
		offset += PlaylistPageSize
	}

	c.logger.Debug("Retrieved playlists", zap.Int("count", len(playlists)))
	return playlists, nil
}

// Play starts playback on deviceID. A non-empty contextURI wins over uris.
func (c *Client) Play(ctx context.Context, deviceID string, uris []string, contextURI string) error {
	opts := playOptions(deviceID)
	if contextURI != "" {
		uri := spotify.URI(contextURI)
		opts.PlaybackContext = &uri
	} else {
		for _, u := range uris {
			opts.URIs = append(opts.URIs, spotify.URI(u))
		}
	}

	err := c.call(ctx, "play", func(api *spotify.Client) error {
		return api.PlayOpt(ctx, opts)
	})
	if err != nil {
		return fmt.Errorf("failed to start playback: %w", err)
	}

	c.logger.Info("Playback started",
		zap.String("deviceID", deviceID),
		zap.String("contextURI", contextURI),
		zap.Int("uris", len(opts.URIs)))
	return nil
}

func (c *Client) Pause(ctx context.Context, deviceID string) error {
	err := c.call(ctx, "pause", func(api *spotify.Client) error {
		return api.PauseOpt(ctx, playOptions(deviceID))
	})
	if err != nil {
		return fmt.Errorf("failed to pause playback: %w", err)
	}
	return nil
}

func (c *Client) Next(ctx context.Context, deviceID string) error {
	err := c.call(ctx, "next", func(api *spotify.Client) error {
		return api.NextOpt(ctx, playOptions(deviceID))
	})
	if err != nil {
		return fmt.Errorf("failed to skip to next track: %w", err)
	}
	return nil
}

func (c *Client) Previous(ctx context.Context, deviceID string) error {
	err := c.call(ctx, "previous", func(api *spotify.Client) error {
		return api.PreviousOpt(ctx, playOptions(deviceID))
	})
	if err != nil {
		return fmt.Errorf("failed to skip to previous track: %w", err)
	}
	return nil
}

func (c *Client) TransferPlayback(ctx context.Context, deviceID string, forcePlay bool) error {
	err := c.call(ctx, "transfer", func(api *spotify.Client) error {
		return api.TransferPlayback(ctx, spotify.ID(deviceID), forcePlay)
	})
	if err != nil {
		return fmt.Errorf("failed to transfer playback: %w", err)
	}

	c.logger.Info("Playback transferred",
		zap.String("deviceID", deviceID),
		zap.Bool("play", forcePlay))
	return nil
}

func (c *Client) SetVolume(ctx context.Context, deviceID string, percent int) error {
	percent = max(0, min(100, percent))
	err := c.call(ctx, "volume", func(api *spotify.Client) error {
		return api.VolumeOpt(ctx, percent, playOptions(deviceID))
	})
	if err != nil {
		return fmt.Errorf("failed to set volume to %d: %w", percent, err)
	}
	return nil
}

// SetShuffle sets the shuffle state for the user's playback
func (c *Client) SetShuffle(ctx context.Context, shuffle bool) error {
	err := c.call(ctx, "shuffle", func(api *spotify.Client) error {
		return api.Shuffle(ctx, shuffle)
	})
	if err != nil {
		return fmt.Errorf("failed to set shuffle to %t: %w", shuffle, err)
	}

	c.logger.Debug("Set Spotify shuffle", zap.Bool("shuffle", shuffle))
	return nil
}

// PlaylistTracks returns the track URIs of a playlist in playlist order.
// The owner id is accepted for logging only; playlist ids are global.
func (c *Client) PlaylistTracks(ctx context.Context, ownerID, playlistID string) ([]string, error) {
	var uris []string
	offset := 0

	for {
		var items *spotify.PlaylistItemPage
		err := c.call(ctx, "playlist items", func(api *spotify.Client) error {
			var err error
			items, err = api.GetPlaylistItems(ctx, spotify.ID(playlistID),
				spotify.Limit(PlaylistItemsPageSize), spotify.Offset(offset))
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get playlist items: %w", err)
		}

		for i := range items.Items {
			// Only tracks, not episodes or unavailable items
			if items.Items[i].Track.Track != nil && items.Items[i].Track.Track.URI != "" {
				uris = append(uris, string(items.Items[i].Track.Track.URI))
			}
		}

		if len(items.Items) < PlaylistItemsPageSize {
			break
		}
		offset += PlaylistItemsPageSize
	}

	c.logger.Debug("Retrieved playlist tracks",
		zap.String("ownerID", ownerID),
		zap.String("playlistID", playlistID),
		zap.Int("count", len(uris)))

	return uris, nil
}

func playOptions(deviceID string) *spotify.PlayOptions {
	opts := &spotify.PlayOptions{}
	if deviceID != "" {
		id := spotify.ID(deviceID)
		opts.DeviceID = &id
	}
	return opts
}
