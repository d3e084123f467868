package spotify

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"strings"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"

	"voxspot/internal/core"
)

// Authorize runs the interactive authorization code flow: it prints the
// consent URL to out, reads the redirect URL (or bare code) from in, and
// stores the resulting token in tokens.
func Authorize(ctx context.Context, config *core.SpotifyConfig, tokens *FileTokenSource,
	in io.Reader, out io.Writer, logger *zap.Logger) error {
	auth := spotifyauth.New(
		spotifyauth.WithRedirectURL(config.RedirectURL),
		spotifyauth.WithScopes(Scopes...),
		spotifyauth.WithClientID(config.ClientID),
		spotifyauth.WithClientSecret(config.ClientSecret),
	)

	state, err := randomState()
	if err != nil {
		return fmt.Errorf("failed to generate state: %w", err)
	}

	fmt.Fprintf(out, "Please visit the following URL to authorize voxspot:\n%s\n", auth.AuthURL(state))
	fmt.Fprint(out, "Paste the URL you were redirected to (or just the code): ")

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("failed to read authorization code: %w", err)
	}

	code, err := extractCode(strings.TrimSpace(line), state)
	if err != nil {
		return err
	}

	token, err := auth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange code for token: %w", err)
	}

	if err := tokens.Save(token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	logger.Info("OAuth flow completed successfully", zap.String("tokenPath", tokens.path))
	return nil
}

func extractCode(input, state string) (string, error) {
	if input == "" {
		return "", fmt.Errorf("empty authorization code")
	}
	if !strings.Contains(input, "://") {
		return input, nil
	}

	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("invalid redirect URL: %w", err)
	}
	q := u.Query()
	if e := q.Get("error"); e != "" {
		return "", fmt.Errorf("authorization denied: %s", e)
	}
	if got := q.Get("state"); got != state {
		return "", fmt.Errorf("state mismatch: got %q", got)
	}
	code := q.Get("code")
	if code == "" {
		return "", fmt.Errorf("redirect URL has no code")
	}
	return code, nil
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
