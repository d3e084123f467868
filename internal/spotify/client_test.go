package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"voxspot/internal/core"
)

type fakeTokens struct {
	mu       sync.Mutex
	current  string
	next     string
	forced   int
	forceErr error
}

func (f *fakeTokens) Token(_ context.Context, force bool) (*oauth2.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if force {
		f.forced++
		if f.forceErr != nil {
			return nil, f.forceErr
		}
		f.current = f.next
	}
	return &oauth2.Token{AccessToken: f.current, TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}, nil
}

func (f *fakeTokens) forcedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.forced
}

type recordedRequest struct {
	method string
	path   string
	query  string
	body   string
	status int
}

// fakeAPI emulates the subset of the Web API the client uses.
type fakeAPI struct {
	mu         sync.Mutex
	validToken string
	routes     map[string]http.HandlerFunc
	requests   []recordedRequest
}

func newFakeAPI(validToken string) *fakeAPI {
	api := &fakeAPI{
		validToken: validToken,
		routes:     map[string]http.HandlerFunc{},
	}
	api.handle("GET /me", jsonResponse(`{"id":"me","display_name":"Test User"}`))
	return api
}

func (f *fakeAPI) handle(route string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[route] = h
}

func (f *fakeAPI) setValidToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validToken = token
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	valid := r.Header.Get("Authorization") == "Bearer "+f.validToken
	route := r.Method + " " + r.URL.Path
	h, ok := f.routes[route]
	if !ok && strings.HasPrefix(r.URL.Path, "/playlists/") {
		h, ok = f.routes[r.Method+" /playlists/"]
	}
	rec := recordedRequest{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, body: string(body)}
	f.mu.Unlock()

	switch {
	case !valid:
		rec.status = http.StatusUnauthorized
		writeAPIError(w, http.StatusUnauthorized, "The access token expired")
	case !ok:
		rec.status = http.StatusNotFound
		writeAPIError(w, http.StatusNotFound, "no route for "+route)
	default:
		rec.status = http.StatusOK
		h(w, r)
	}

	f.mu.Lock()
	f.requests = append(f.requests, rec)
	f.mu.Unlock()
}

func (f *fakeAPI) requestsTo(method, path string) []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []recordedRequest
	for _, r := range f.requests {
		if r.method == method && r.path == path {
			out = append(out, r)
		}
	}
	return out
}

func writeAPIError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":{"status":%d,"message":%q}}`, status, message)
}

func jsonResponse(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}
}

func noContent(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func newTestClient(t *testing.T, api *fakeAPI, tokens *fakeTokens) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	c := NewClientWithBaseURL(&core.SpotifyConfig{}, tokens, zap.NewNop(), srv.URL+"/")
	if err := c.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	return c
}

func TestAuthenticate(t *testing.T) {
	api := newFakeAPI("good")
	c := newTestClient(t, api, &fakeTokens{current: "good"})

	if !c.IsAuthenticated() {
		t.Error("Expected client to be authenticated")
	}
	if c.UserID() != "me" {
		t.Errorf("Expected user id me, got %q", c.UserID())
	}
}

func TestAuthenticateFailsWithBadToken(t *testing.T) {
	api := newFakeAPI("good")
	srv := httptest.NewServer(api)
	defer srv.Close()

	tokens := &fakeTokens{current: "bad", next: "still-bad"}
	c := NewClientWithBaseURL(&core.SpotifyConfig{}, tokens, zap.NewNop(), srv.URL+"/")

	err := c.Authenticate(context.Background())
	if !errors.Is(err, core.ErrNotAuthorized) {
		t.Fatalf("Expected ErrNotAuthorized, got %v", err)
	}
	if c.IsAuthenticated() {
		t.Error("Client must stay unauthenticated after a failed exchange")
	}
	if tokens.forcedCount() != 1 {
		t.Errorf("Expected exactly one forced refresh, got %d", tokens.forcedCount())
	}
}

func TestUnauthenticatedClient(t *testing.T) {
	c := NewClient(&core.SpotifyConfig{}, &fakeTokens{}, zap.NewNop())

	if c.IsAuthenticated() {
		t.Fatal("New client must not be authenticated")
	}
	if _, err := c.Devices(context.Background()); !errors.Is(err, core.ErrNotAuthorized) {
		t.Errorf("Devices() error = %v, want ErrNotAuthorized", err)
	}
	if status := c.Status(context.Background()); status != nil {
		t.Errorf("Status() = %+v, want nil", status)
	}
}

func TestDevices(t *testing.T) {
	api := newFakeAPI("good")
	api.handle("GET /me/player/devices", jsonResponse(`{"devices":[
		{"id":"d1","is_active":false,"name":"TESTING","type":"Speaker","volume_percent":40},
		{"id":"d2","is_active":true,"name":"Phone","type":"Smartphone","volume_percent":80}
	]}`))
	c := newTestClient(t, api, &fakeTokens{current: "good"})

	devices, err := c.Devices(context.Background())
	if err != nil {
		t.Fatalf("Devices: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("Expected 2 devices, got %d", len(devices))
	}

	expected := core.Device{ID: "d1", Name: "TESTING", IsActive: false, VolumePercent: 40, Type: "Speaker"}
	if devices[0] != expected {
		t.Errorf("devices[0] = %+v, want %+v", devices[0], expected)
	}
	if !devices[1].IsActive {
		t.Error("Expected second device to be active")
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name        string
		handler     http.HandlerFunc
		expectNil   bool
		expectText  string
		expectDevID string
	}{
		{
			name: "playing track",
			handler: jsonResponse(`{"is_playing":true,
				"item":{"id":"t1","name":"Yesterday","uri":"spotify:track:t1","artists":[{"name":"The Beatles"}],"album":{"name":"Help!"}},
				"device":{"id":"d1","name":"Kitchen","is_active":true,"volume_percent":50}}`),
			expectText:  "The Beatles: Yesterday",
			expectDevID: "d1",
		},
		{
			name:      "nothing playing",
			handler:   noContent,
			expectNil: true,
		},
		{
			name: "server error is swallowed",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeAPIError(w, http.StatusBadGateway, "upstream")
			},
			expectNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI("good")
			api.handle("GET /me/player", tt.handler)
			c := newTestClient(t, api, &fakeTokens{current: "good"})

			status := c.Status(context.Background())
			if tt.expectNil {
				if status != nil {
					t.Fatalf("Status() = %+v, want nil", status)
				}
				return
			}
			if status == nil {
				t.Fatal("Status() = nil")
			}
			if !status.IsPlaying {
				t.Error("Expected IsPlaying")
			}
			if got := status.NowPlayingText(); got != tt.expectText {
				t.Errorf("NowPlayingText() = %q, want %q", got, tt.expectText)
			}
			if status.Device == nil || status.Device.ID != tt.expectDevID {
				t.Errorf("Device = %+v, want id %s", status.Device, tt.expectDevID)
			}
		})
	}
}

func TestSearchArtist(t *testing.T) {
	api := newFakeAPI("good")
	api.handle("GET /search", jsonResponse(`{"artists":{"items":[
		{"id":"a1","name":"The Beatles","uri":"spotify:artist:a1"}
	],"total":1}}`))
	c := newTestClient(t, api, &fakeTokens{current: "good"})

	result, err := c.Search(context.Background(), "the beatles", core.SearchTypeArtist)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.Artists) != 1 || result.Artists[0].Name != "The Beatles" || result.Artists[0].URI != "spotify:artist:a1" {
		t.Errorf("Unexpected artists: %+v", result.Artists)
	}

	reqs := api.requestsTo(http.MethodGet, "/search")
	if len(reqs) != 1 {
		t.Fatalf("Expected one search request, got %d", len(reqs))
	}
	if !strings.Contains(reqs[0].query, "type=artist") {
		t.Errorf("Expected artist search, got query %q", reqs[0].query)
	}
}

func TestSearchRejectsUnknownType(t *testing.T) {
	api := newFakeAPI("good")
	c := newTestClient(t, api, &fakeTokens{current: "good"})

	if _, err := c.Search(context.Background(), "x", core.SearchType("podcast")); err == nil {
		t.Error("Expected error for unsupported search type")
	}
}

func TestPlay(t *testing.T) {
	tests := []struct {
		name       string
		uris       []string
		contextURI string
		expectBody map[string]any
	}{
		{
			name:       "context wins",
			uris:       []string{"spotify:track:ignored"},
			contextURI: "spotify:album:a1",
			expectBody: map[string]any{"context_uri": "spotify:album:a1"},
		},
		{
			name:       "track uris",
			uris:       []string{"spotify:track:t1", "spotify:track:t2"},
			expectBody: map[string]any{"uris": []any{"spotify:track:t1", "spotify:track:t2"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI("good")
			api.handle("PUT /me/player/play", noContent)
			c := newTestClient(t, api, &fakeTokens{current: "good"})

			if err := c.Play(context.Background(), "d1", tt.uris, tt.contextURI); err != nil {
				t.Fatalf("Play: %v", err)
			}

			reqs := api.requestsTo(http.MethodPut, "/me/player/play")
			if len(reqs) != 1 {
				t.Fatalf("Expected one play request, got %d", len(reqs))
			}
			if !strings.Contains(reqs[0].query, "device_id=d1") {
				t.Errorf("Expected device_id=d1 in query %q", reqs[0].query)
			}

			var body map[string]any
			if err := json.Unmarshal([]byte(reqs[0].body), &body); err != nil {
				t.Fatalf("decoding body %q: %v", reqs[0].body, err)
			}
			for k, v := range tt.expectBody {
				got, _ := json.Marshal(body[k])
				want, _ := json.Marshal(v)
				if string(got) != string(want) {
					t.Errorf("body[%q] = %s, want %s", k, got, want)
				}
			}
			if tt.contextURI != "" {
				if _, ok := body["uris"]; ok {
					t.Error("Context playback must not send uris")
				}
			}
		})
	}
}

func TestMutatingCallsPropagateErrors(t *testing.T) {
	api := newFakeAPI("good")
	api.handle("PUT /me/player/pause", func(w http.ResponseWriter, _ *http.Request) {
		writeAPIError(w, http.StatusForbidden, "Player command failed: Restriction violated")
	})
	c := newTestClient(t, api, &fakeTokens{current: "good"})

	err := c.Pause(context.Background(), "d1")
	if err == nil {
		t.Fatal("Expected pause error to propagate")
	}
	if errors.Is(err, core.ErrNotAuthorized) {
		t.Error("A 403 must not be classified as not authorized")
	}
}

func TestRetryOnceAfterUnauthorized(t *testing.T) {
	api := newFakeAPI("old")
	api.handle("PUT /me/player", noContent)
	tokens := &fakeTokens{current: "old", next: "new"}
	c := newTestClient(t, api, tokens)

	// the access token expires between calls
	api.setValidToken("new")

	if err := c.TransferPlayback(context.Background(), "d1", false); err != nil {
		t.Fatalf("TransferPlayback: %v", err)
	}
	if tokens.forcedCount() != 1 {
		t.Errorf("Expected exactly one forced refresh, got %d", tokens.forcedCount())
	}

	reqs := api.requestsTo(http.MethodPut, "/me/player")
	if len(reqs) != 2 {
		t.Fatalf("Expected 2 transfer attempts, got %d", len(reqs))
	}
	if reqs[0].status != http.StatusUnauthorized || reqs[1].status != http.StatusOK {
		t.Errorf("Unexpected attempt statuses: %d, %d", reqs[0].status, reqs[1].status)
	}
	if !strings.Contains(reqs[1].body, `"play":false`) || !strings.Contains(reqs[1].body, `"d1"`) {
		t.Errorf("Unexpected transfer body %q", reqs[1].body)
	}
}

func TestSecondUnauthorizedSurfacesAsAuthError(t *testing.T) {
	api := newFakeAPI("old")
	api.handle("POST /me/player/next", noContent)
	tokens := &fakeTokens{current: "old", next: "also-rejected"}
	c := newTestClient(t, api, tokens)

	api.setValidToken("unobtainable")

	err := c.Next(context.Background(), "d1")
	if !errors.Is(err, core.ErrNotAuthorized) {
		t.Fatalf("Next() error = %v, want ErrNotAuthorized", err)
	}
	if tokens.forcedCount() != 1 {
		t.Errorf("Expected exactly one forced refresh, got %d", tokens.forcedCount())
	}
	if n := len(api.requestsTo(http.MethodPost, "/me/player/next")); n != 2 {
		t.Errorf("Expected 2 attempts, got %d", n)
	}
}

func TestRefreshFailureSurfacesAsAuthError(t *testing.T) {
	api := newFakeAPI("old")
	api.handle("GET /me/player/devices", jsonResponse(`{"devices":[]}`))
	tokens := &fakeTokens{current: "old", forceErr: errors.New("backend down")}
	c := newTestClient(t, api, tokens)

	api.setValidToken("new")

	_, err := c.Devices(context.Background())
	if !errors.Is(err, core.ErrNotAuthorized) {
		t.Fatalf("Devices() error = %v, want ErrNotAuthorized", err)
	}
	if n := len(api.requestsTo(http.MethodGet, "/me/player/devices")); n != 1 {
		t.Errorf("Expected no retry after a failed refresh, got %d attempts", n)
	}
}

func TestPlaylistsPaging(t *testing.T) {
	api := newFakeAPI("good")
	api.handle("GET /me/playlists", func(w http.ResponseWriter, r *http.Request) {
		offset := r.URL.Query().Get("offset")
		count := PlaylistPageSize
		start := 0
		if offset == fmt.Sprint(PlaylistPageSize) {
			count = 3
			start = PlaylistPageSize
		}
		items := make([]string, 0, count)
		for i := start; i < start+count; i++ {
			items = append(items, fmt.Sprintf(
				`{"id":"p%d","name":"List %d","uri":"spotify:playlist:p%d","owner":{"id":"me"},"tracks":{"total":%d}}`,
				i, i, i, i))
		}
		jsonResponse(`{"items":[` + strings.Join(items, ",") + `],"total":53}`)(w, r)
	})
	c := newTestClient(t, api, &fakeTokens{current: "good"})

	playlists, err := c.Playlists(context.Background())
	if err != nil {
		t.Fatalf("Playlists: %v", err)
	}
	if len(playlists) != PlaylistPageSize+3 {
		t.Fatalf("Expected %d playlists, got %d", PlaylistPageSize+3, len(playlists))
	}

	last := playlists[len(playlists)-1]
	expected := core.Playlist{ID: "p52", Name: "List 52", OwnerID: "me", URI: "spotify:playlist:p52", TrackCount: 52}
	if last != expected {
		t.Errorf("last playlist = %+v, want %+v", last, expected)
	}
}

func TestPlaylistTracks(t *testing.T) {
	api := newFakeAPI("good")
	api.handle("GET /playlists/", jsonResponse(`{"items":[
		{"track":{"id":"t1","name":"One","uri":"spotify:track:t1","type":"track"}},
		{"track":{"id":"t2","name":"Two","uri":"spotify:track:t2","type":"track"}}
	],"total":2}`))
	c := newTestClient(t, api, &fakeTokens{current: "good"})

	uris, err := c.PlaylistTracks(context.Background(), "me", "p1")
	if err != nil {
		t.Fatalf("PlaylistTracks: %v", err)
	}
	if len(uris) != 2 || uris[0] != "spotify:track:t1" || uris[1] != "spotify:track:t2" {
		t.Errorf("Unexpected uris: %v", uris)
	}
}

func TestSetVolumeClamps(t *testing.T) {
	api := newFakeAPI("good")
	api.handle("PUT /me/player/volume", noContent)
	c := newTestClient(t, api, &fakeTokens{current: "good"})

	if err := c.SetVolume(context.Background(), "d1", 140); err != nil {
		t.Fatalf("SetVolume: %v", err)
	}

	reqs := api.requestsTo(http.MethodPut, "/me/player/volume")
	if len(reqs) != 1 || !strings.Contains(reqs[0].query, "volume_percent=100") {
		t.Errorf("Expected clamped volume request, got %+v", reqs)
	}
}
