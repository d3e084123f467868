package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"voxspot/internal/core"
)

func newBackend(t *testing.T, statuses []int, body string) (*BackendTokenSource, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1)) - 1
		if r.URL.Path != "/device/token/spotify" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer device-secret" {
			t.Errorf("missing device credential, got %q", r.Header.Get("Authorization"))
		}
		status := statuses[min(n, len(statuses)-1)]
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = io.WriteString(w, body)
		}
	}))
	t.Cleanup(srv.Close)

	cfg := &core.SpotifyConfig{BackendURL: srv.URL + "/", BackendToken: "device-secret", CredentialID: "spotify"}
	return NewBackendTokenSource(cfg, srv.Client(), zap.NewNop()), &calls
}

func TestBackendTokenSource(t *testing.T) {
	tests := []struct {
		name        string
		statuses    []int
		expectCalls int32
		expectErr   bool
		expectAuth  bool
	}{
		{"success", []int{200}, 1, false, false},
		{"transient failure retried once", []int{500, 200}, 2, false, false},
		{"two failures give up", []int{502, 503, 200}, 2, true, false},
		{"missing credential is not retried", []int{404, 200}, 1, true, true},
		{"unpaired device is not retried", []int{401, 200}, 1, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, calls := newBackend(t, tt.statuses, `{"access_token":"abc","expiration":4102444800}`)

			token, err := src.Token(context.Background(), false)
			if calls.Load() != tt.expectCalls {
				t.Errorf("Expected %d backend calls, got %d", tt.expectCalls, calls.Load())
			}
			if tt.expectErr {
				if err == nil {
					t.Fatal("Expected error")
				}
				if errors.Is(err, core.ErrNotAuthorized) != tt.expectAuth {
					t.Errorf("errors.Is(ErrNotAuthorized) = %v, want %v (%v)", !tt.expectAuth, tt.expectAuth, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Token: %v", err)
			}
			if token.AccessToken != "abc" {
				t.Errorf("AccessToken = %q", token.AccessToken)
			}
			if token.Expiry.Unix() != 4102444800 {
				t.Errorf("Expiry = %v, want unix 4102444800", token.Expiry)
			}
		})
	}
}

func TestBackendTokenSourceDefaultsExpiry(t *testing.T) {
	src, _ := newBackend(t, []int{200}, `{"access_token":"abc"}`)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	src.now = func() time.Time { return now }

	token, err := src.Token(context.Background(), false)
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if !token.Expiry.Equal(now.Add(time.Hour)) {
		t.Errorf("Expiry = %v, want %v", token.Expiry, now.Add(time.Hour))
	}
}

func TestBackendTokenSourceCaches(t *testing.T) {
	src, calls := newBackend(t, []int{200}, `{"access_token":"abc"}`)
	ctx := context.Background()

	for range 3 {
		if _, err := src.Token(ctx, false); err != nil {
			t.Fatalf("Token: %v", err)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("Expected cached token to be reused, got %d calls", calls.Load())
	}

	if _, err := src.Token(ctx, true); err != nil {
		t.Fatalf("forced Token: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("Expected forced refresh to hit the backend, got %d calls", calls.Load())
	}
}

func writeTokenFile(t *testing.T, token *oauth2.Token) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "token.json")
	data, err := json.Marshal(TokenData{Token: token})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, FilePermission); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTokenEndpoint(t *testing.T, status int, body string) (*oauth2.Config, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_ = r.ParseForm()
		if r.Form.Get("grant_type") != "refresh_token" {
			t.Errorf("unexpected grant_type %q", r.Form.Get("grant_type"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	return &oauth2.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{TokenURL: srv.URL, AuthStyle: oauth2.AuthStyleInParams},
	}, &calls
}

func TestFileTokenSourceUsesValidToken(t *testing.T) {
	path := writeTokenFile(t, &oauth2.Token{
		AccessToken:  "stored",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(time.Hour),
	})
	cfg, calls := newTokenEndpoint(t, http.StatusOK, `{}`)
	src := NewFileTokenSource(path, cfg, zap.NewNop())

	token, err := src.Token(context.Background(), false)
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if token.AccessToken != "stored" {
		t.Errorf("AccessToken = %q, want stored", token.AccessToken)
	}
	if calls.Load() != 0 {
		t.Errorf("Expected no refresh, got %d", calls.Load())
	}
}

func TestFileTokenSourceForcedRefresh(t *testing.T) {
	path := writeTokenFile(t, &oauth2.Token{
		AccessToken:  "stored",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(time.Hour),
	})
	cfg, calls := newTokenEndpoint(t, http.StatusOK,
		`{"access_token":"fresh","token_type":"Bearer","expires_in":3600}`)
	src := NewFileTokenSource(path, cfg, zap.NewNop())

	token, err := src.Token(context.Background(), true)
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if token.AccessToken != "fresh" || calls.Load() != 1 {
		t.Errorf("AccessToken = %q after %d calls", token.AccessToken, calls.Load())
	}
	if token.RefreshToken != "refresh" {
		t.Errorf("Expected refresh token to be preserved, got %q", token.RefreshToken)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "fresh") {
		t.Error("Expected refreshed token to be persisted")
	}
}

func TestFileTokenSourceRejectedRefresh(t *testing.T) {
	path := writeTokenFile(t, &oauth2.Token{AccessToken: "old", RefreshToken: "revoked", Expiry: time.Now().Add(-time.Hour)})
	cfg, _ := newTokenEndpoint(t, http.StatusBadRequest, `{"error":"invalid_grant"}`)
	src := NewFileTokenSource(path, cfg, zap.NewNop())

	_, err := src.Token(context.Background(), false)
	if !errors.Is(err, core.ErrNotAuthorized) {
		t.Errorf("Token() error = %v, want ErrNotAuthorized", err)
	}
}

func TestFileTokenSourceMissingFile(t *testing.T) {
	cfg, _ := newTokenEndpoint(t, http.StatusOK, `{}`)
	src := NewFileTokenSource(filepath.Join(t.TempDir(), "absent.json"), cfg, zap.NewNop())

	_, err := src.Token(context.Background(), false)
	if !errors.Is(err, core.ErrNotConfigured) {
		t.Errorf("Token() error = %v, want ErrNotConfigured", err)
	}
}

func TestExtractCode(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expect    string
		expectErr bool
	}{
		{"bare code", "abc123", "abc123", false},
		{"redirect url", "http://127.0.0.1:8080/callback?code=xyz&state=s1", "xyz", false},
		{"state mismatch", "http://127.0.0.1:8080/callback?code=xyz&state=other", "", true},
		{"denied", "http://127.0.0.1:8080/callback?error=access_denied&state=s1", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := extractCode(tt.input, "s1")
			if (err != nil) != tt.expectErr {
				t.Fatalf("extractCode() error = %v, expectErr %v", err, tt.expectErr)
			}
			if code != tt.expect {
				t.Errorf("extractCode() = %q, want %q", code, tt.expect)
			}
		})
	}
}
