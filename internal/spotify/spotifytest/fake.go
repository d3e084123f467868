// Package spotifytest provides an in-memory core.SpotifyClient for tests.
package spotifytest

import (
	"context"
	"slices"
	"strings"
	"sync"

	"voxspot/internal/core"
)

// Call records one invocation of the fake.
type Call struct {
	Op         string
	DeviceID   string
	URIs       []string
	ContextURI string
	Force      bool
	Percent    int
	Query      string
}

// Client is a scriptable fake of the remote service. All setters and
// accessors are safe for concurrent use.
type Client struct {
	mu            sync.Mutex
	authenticated bool
	devices       []core.Device
	devicesErr    error
	playlists     []core.Playlist
	playlistsErr  error
	status        *core.PlaybackStatus
	search        map[core.SearchType]map[string]*core.SearchResult
	searchErr     error
	tracks        map[string][]string
	errs          map[string]error
	calls         []Call

	// OnDevices, when set, runs inside every Devices call.
	OnDevices func()
}

var _ core.SpotifyClient = (*Client)(nil)

func New() *Client {
	return &Client{
		authenticated: true,
		search:        map[core.SearchType]map[string]*core.SearchResult{},
		tracks:        map[string][]string{},
		errs:          map[string]error{},
	}
}

func (c *Client) SetAuthenticated(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authenticated = v
}

func (c *Client) SetDevices(devices ...core.Device) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.devices = devices
}

func (c *Client) SetDevicesError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.devicesErr = err
}

func (c *Client) SetPlaylists(playlists ...core.Playlist) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playlists = playlists
}

func (c *Client) SetPlaylistsError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playlistsErr = err
}

func (c *Client) SetStatus(status *core.PlaybackStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = status
}

// SetSearch registers the result returned for query (case-insensitive).
func (c *Client) SetSearch(t core.SearchType, query string, result *core.SearchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.search[t] == nil {
		c.search[t] = map[string]*core.SearchResult{}
	}
	c.search[t][strings.ToLower(query)] = result
}

func (c *Client) SetSearchError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searchErr = err
}

func (c *Client) SetPlaylistTracks(playlistID string, uris ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracks[playlistID] = uris
}

// FailOn makes every call to op return err. A nil err clears it.
func (c *Client) FailOn(op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.errs, op)
		return
	}
	c.errs[op] = err
}

// Calls returns the recorded calls to op, or every call when op is empty.
func (c *Client) Calls(op string) []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Call
	for _, call := range c.calls {
		if op == "" || call.Op == op {
			out = append(out, call)
		}
	}
	return out
}

func (c *Client) Count(op string) int {
	return len(c.Calls(op))
}

func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = nil
}

func (c *Client) record(call Call) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
	return c.errs[call.Op]
}

func (c *Client) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

func (c *Client) Search(_ context.Context, query string, t core.SearchType) (*core.SearchResult, error) {
	if err := c.record(Call{Op: "search", Query: query}); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.searchErr != nil {
		return nil, c.searchErr
	}
	if r, ok := c.search[t][strings.ToLower(query)]; ok {
		return r, nil
	}
	return &core.SearchResult{}, nil
}

func (c *Client) Devices(_ context.Context) ([]core.Device, error) {
	if err := c.record(Call{Op: "devices"}); err != nil {
		return nil, err
	}
	if c.OnDevices != nil {
		c.OnDevices()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.devicesErr != nil {
		return nil, c.devicesErr
	}
	return slices.Clone(c.devices), nil
}

func (c *Client) Status(_ context.Context) *core.PlaybackStatus {
	_ = c.record(Call{Op: "status"})
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == nil {
		return nil
	}
	s := *c.status
	return &s
}

func (c *Client) Playlists(_ context.Context) ([]core.Playlist, error) {
	if err := c.record(Call{Op: "playlists"}); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playlistsErr != nil {
		return nil, c.playlistsErr
	}
	return slices.Clone(c.playlists), nil
}

func (c *Client) Play(_ context.Context, deviceID string, uris []string, contextURI string) error {
	return c.record(Call{Op: "play", DeviceID: deviceID, URIs: slices.Clone(uris), ContextURI: contextURI})
}

func (c *Client) Pause(_ context.Context, deviceID string) error {
	return c.record(Call{Op: "pause", DeviceID: deviceID})
}

func (c *Client) Next(_ context.Context, deviceID string) error {
	return c.record(Call{Op: "next", DeviceID: deviceID})
}

func (c *Client) Previous(_ context.Context, deviceID string) error {
	return c.record(Call{Op: "previous", DeviceID: deviceID})
}

func (c *Client) TransferPlayback(_ context.Context, deviceID string, forcePlay bool) error {
	return c.record(Call{Op: "transfer", DeviceID: deviceID, Force: forcePlay})
}

func (c *Client) SetVolume(_ context.Context, deviceID string, percent int) error {
	return c.record(Call{Op: "volume", DeviceID: deviceID, Percent: percent})
}

func (c *Client) SetShuffle(_ context.Context, shuffle bool) error {
	return c.record(Call{Op: "shuffle", Force: shuffle})
}

func (c *Client) PlaylistTracks(_ context.Context, _ string, playlistID string) ([]string, error) {
	if err := c.record(Call{Op: "playlist_tracks", Query: playlistID}); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.tracks[playlistID]), nil
}
