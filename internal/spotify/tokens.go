package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"voxspot/internal/core"
)

const (
	// FilePermission is the permission for token files
	FilePermission = 0600
	// DefaultTokenLifetime is assumed when the backend omits an expiration.
	DefaultTokenLifetime = time.Hour
	maxTokenResponseBody = 64 << 10
)

// TokenSource hands out bearer credentials for the Web API. A forced call
// must obtain a fresh credential even if the cached one looks valid.
type TokenSource interface {
	Token(ctx context.Context, force bool) (*oauth2.Token, error)
}

// transportSource adapts a TokenSource to oauth2.TokenSource for the HTTP
// transport. It must not cache, so a forced refresh is picked up immediately.
type transportSource struct {
	tokens TokenSource
}

func (s transportSource) Token() (*oauth2.Token, error) {
	return s.tokens.Token(context.Background(), false)
}

type TokenData struct {
	Token *oauth2.Token `json:"token"`
}

// FileTokenSource serves the token written by `voxspot auth` and refreshes
// it through the Spotify accounts service.
type FileTokenSource struct {
	path   string
	oauth  *oauth2.Config
	logger *zap.Logger

	mu    sync.Mutex
	token *oauth2.Token
}

// OAuthConfig returns the accounts service configuration for cfg.
func OAuthConfig(cfg *core.SpotifyConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyauth.AuthURL,
			TokenURL: spotifyauth.TokenURL,
		},
	}
}

func NewFileTokenSource(path string, oauth *oauth2.Config, logger *zap.Logger) *FileTokenSource {
	return &FileTokenSource{
		path:   path,
		oauth:  oauth,
		logger: logger,
	}
}

func (s *FileTokenSource) Token(ctx context.Context, force bool) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token == nil {
		token, err := s.load()
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("no token at %s: %w", s.path, core.ErrNotConfigured)
			}
			return nil, fmt.Errorf("failed to load token: %w", err)
		}
		s.token = token
	}

	if !force && s.token.Valid() {
		return s.token, nil
	}

	if s.token.RefreshToken == "" {
		return nil, fmt.Errorf("token has no refresh token: %w", core.ErrNotAuthorized)
	}

	refreshed, err := s.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: s.token.RefreshToken}).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil &&
			retrieveErr.Response.StatusCode < http.StatusInternalServerError {
			return nil, fmt.Errorf("refresh rejected: %w: %w", core.ErrNotAuthorized, err)
		}
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = s.token.RefreshToken
	}

	s.token = refreshed
	if err := s.save(refreshed); err != nil {
		s.logger.Warn("Failed to save refreshed token", zap.Error(err))
	}

	s.logger.Debug("Refreshed access token", zap.Time("expiry", refreshed.Expiry))
	return refreshed, nil
}

// Save replaces the stored token, used after the OAuth code exchange.
func (s *FileTokenSource) Save(token *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	return s.save(token)
}

func (s *FileTokenSource) load() (*oauth2.Token, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	var tokenData TokenData
	if err := json.Unmarshal(data, &tokenData); err != nil {
		return nil, err
	}
	if tokenData.Token == nil {
		return nil, fmt.Errorf("token file %s is empty", s.path)
	}

	return tokenData.Token, nil
}

func (s *FileTokenSource) save(token *oauth2.Token) error {
	tokenData := TokenData{Token: token}

	data, err := json.MarshalIndent(tokenData, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, FilePermission)
}

// BackendTokenSource exchanges the device's backend credential for a Spotify
// access token. Tokens are cached until they expire.
type BackendTokenSource struct {
	baseURL      string
	deviceToken  string
	credentialID string
	http         *http.Client
	logger       *zap.Logger
	now          func() time.Time

	mu    sync.Mutex
	token *oauth2.Token
}

type backendTokenResponse struct {
	AccessToken string  `json:"access_token"`
	Expiration  float64 `json:"expiration"`
}

type backendStatusError struct {
	status int
	body   string
}

func (e *backendStatusError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.status, e.body)
}

func NewBackendTokenSource(cfg *core.SpotifyConfig, httpClient *http.Client, logger *zap.Logger) *BackendTokenSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &BackendTokenSource{
		baseURL:      strings.TrimRight(cfg.BackendURL, "/"),
		deviceToken:  cfg.BackendToken,
		credentialID: cfg.CredentialID,
		http:         httpClient,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *BackendTokenSource) Token(ctx context.Context, force bool) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !force && s.token != nil && s.now().Before(s.token.Expiry) {
		return s.token, nil
	}

	token, err := s.fetch(ctx)
	if err != nil && !isTerminalBackendError(err) {
		s.logger.Warn("Token exchange failed, retrying once", zap.Error(err))
		token, err = s.fetch(ctx)
	}
	if err != nil {
		if isTerminalBackendError(err) {
			return nil, fmt.Errorf("token %q: %w: %w", s.credentialID, core.ErrNotAuthorized, err)
		}
		return nil, fmt.Errorf("token %q: %w", s.credentialID, err)
	}

	s.token = token
	return token, nil
}

// 404 means the credential does not exist and 401 means the device is not
// paired; neither improves on retry.
func isTerminalBackendError(err error) bool {
	var statusErr *backendStatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	return statusErr.status == http.StatusNotFound || statusErr.status == http.StatusUnauthorized
}

func (s *BackendTokenSource) fetch(ctx context.Context) (*oauth2.Token, error) {
	u := s.baseURL + "/device/token/" + url.PathEscape(s.credentialID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if s.deviceToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.deviceToken)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connection failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseBody))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &backendStatusError{status: resp.StatusCode, body: truncate(string(body), 200)}
	}

	var payload backendTokenResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decoding token: %w", err)
	}
	if payload.AccessToken == "" {
		return nil, errors.New("backend returned an empty access token")
	}

	expiry := s.now().Add(DefaultTokenLifetime)
	if payload.Expiration > 0 {
		sec := int64(payload.Expiration)
		expiry = time.Unix(sec, int64((payload.Expiration-float64(sec))*float64(time.Second)))
	}

	return &oauth2.Token{
		AccessToken: payload.AccessToken,
		TokenType:   "Bearer",
		Expiry:      expiry,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
