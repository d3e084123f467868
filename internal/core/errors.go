package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthorized means no usable credential is available. It is never
	// retried inline; the periodic login retry recovers from it.
	ErrNotAuthorized = errors.New("spotify: not authorized")
	// ErrNoDevices means device resolution exhausted every strategy.
	ErrNoDevices = errors.New("spotify: no devices available")
	// ErrHelperExited means the local helper process died during its settle
	// window, which almost always means it rejected the credentials.
	ErrHelperExited = errors.New("librespot: helper exited during startup")
	// ErrNotConfigured means the skill has no credentials to authenticate with.
	ErrNotConfigured = errors.New("spotify: credentials not configured")
	// ErrDeviceNotFound means a named device could not be matched.
	ErrDeviceNotFound = errors.New("spotify: device not found")
)

// PlaylistNotFoundError is returned when a spoken playlist name does not match
// any of the user's playlists closely enough.
type PlaylistNotFoundError struct {
	Name string
}

func (e *PlaylistNotFoundError) Error() string {
	return fmt.Sprintf("playlist %q not found", e.Name)
}

// PlaybackFailedError wraps an unexpected failure of a mutating remote call.
type PlaybackFailedError struct {
	Op  string
	Err error
}

func (e *PlaybackFailedError) Error() string {
	return fmt.Sprintf("playback %s failed: %v", e.Op, e.Err)
}

func (e *PlaybackFailedError) Unwrap() error {
	return e.Err
}

// Dialog names spoken for classified failures.
const (
	DialogNotAuthorized      = "NotAuthorized"
	DialogNotConfigured      = "NotConfigured"
	DialogNoDevicesAvailable = "NoDevicesAvailable"
	DialogPlaylistNotFound   = "PlaylistNotFound"
	DialogPlaybackFailed     = "PlaybackFailed"
	DialogTransferFailed     = "TransferFailed"
)

// DialogFor maps an error to the single dialog the user hears for it, along
// with the template data it needs. A nil error maps to an empty name.
func DialogFor(err error) (string, map[string]string) {
	if err == nil {
		return "", nil
	}

	var notFound *PlaylistNotFoundError
	var failed *PlaybackFailedError

	switch {
	case errors.Is(err, ErrNotConfigured):
		return DialogNotConfigured, nil
	case errors.Is(err, ErrNotAuthorized), errors.Is(err, ErrHelperExited):
		return DialogNotAuthorized, nil
	case errors.Is(err, ErrNoDevices):
		return DialogNoDevicesAvailable, nil
	case errors.Is(err, ErrDeviceNotFound):
		return DialogTransferFailed, nil
	case errors.As(err, &notFound):
		return DialogPlaylistNotFound, map[string]string{"playlist": notFound.Name}
	case errors.As(err, &failed):
		return DialogPlaybackFailed, map[string]string{"reason": failed.Err.Error()}
	default:
		return DialogPlaybackFailed, map[string]string{"reason": err.Error()}
	}
}
