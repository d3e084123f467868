package cache

import (
	"context"
	"maps"
	"slices"
	"time"

	"go.uber.org/zap"

	"voxspot/internal/core"
)

const (
	DeviceCacheName   = "devices"
	PlaylistCacheName = "playlists"
)

// DeviceCache holds the live Spotify Connect device list.
type DeviceCache = Cache[[]core.Device]

// PlaylistCache holds the current user's playlists keyed by lowercased name.
type PlaylistCache = Cache[core.PlaylistIndex]

func NewDeviceCache(client core.SpotifyClient, ttl time.Duration, logger *zap.Logger) *DeviceCache {
	return New(
		DeviceCacheName,
		ttl,
		client.Devices,
		client.IsAuthenticated,
		func(d []core.Device) bool { return len(d) == 0 },
		func(d []core.Device) []core.Device { return slices.Clone(d) },
		logger.Named("devices"),
	)
}

func NewPlaylistCache(client core.SpotifyClient, ttl time.Duration, logger *zap.Logger) *PlaylistCache {
	return New(
		PlaylistCacheName,
		ttl,
		func(ctx context.Context) (core.PlaylistIndex, error) {
			playlists, err := client.Playlists(ctx)
			if err != nil {
				return nil, err
			}
			return core.NewPlaylistIndex(playlists), nil
		},
		client.IsAuthenticated,
		func(idx core.PlaylistIndex) bool { return len(idx) == 0 },
		func(idx core.PlaylistIndex) core.PlaylistIndex { return maps.Clone(idx) },
		logger.Named("playlists"),
	)
}
