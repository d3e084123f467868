package spotify

import (
	"fmt"

	"github.com/zmb3/spotify/v2"

	"voxspot/internal/core"
)

func toSearchType(t core.SearchType) (spotify.SearchType, error) {
	switch t {
	case core.SearchTypeTrack:
		return spotify.SearchTypeTrack, nil
	case core.SearchTypeAlbum:
		return spotify.SearchTypeAlbum, nil
	case core.SearchTypeArtist:
		return spotify.SearchTypeArtist, nil
	case core.SearchTypePlaylist:
		return spotify.SearchTypePlaylist, nil
	default:
		return 0, fmt.Errorf("unsupported search type %q", t)
	}
}

func convertSearchResult(results *spotify.SearchResult) *core.SearchResult {
	out := &core.SearchResult{}
	if results == nil {
		return out
	}

	if results.Tracks != nil {
		for i := range results.Tracks.Tracks {
			out.Tracks = append(out.Tracks, convertTrack(&results.Tracks.Tracks[i]))
		}
	}
	if results.Albums != nil {
		for i := range results.Albums.Albums {
			album := &results.Albums.Albums[i]
			out.Albums = append(out.Albums, core.Album{
				URI:     string(album.URI),
				Name:    album.Name,
				Artists: artistNames(album.Artists),
			})
		}
	}
	if results.Artists != nil {
		for i := range results.Artists.Artists {
			artist := &results.Artists.Artists[i]
			out.Artists = append(out.Artists, core.Artist{
				URI:  string(artist.URI),
				Name: artist.Name,
			})
		}
	}
	if results.Playlists != nil {
		for i := range results.Playlists.Playlists {
			out.Playlists = append(out.Playlists, convertPlaylist(&results.Playlists.Playlists[i]))
		}
	}

	return out
}

func convertTrack(track *spotify.FullTrack) core.Track {
	return core.Track{
		URI:     string(track.URI),
		Name:    track.Name,
		Artists: artistNames(track.Artists),
		Album:   track.Album.Name,
	}
}

func artistNames(artists []spotify.SimpleArtist) []string {
	names := make([]string, 0, len(artists))
	for _, artist := range artists {
		names = append(names, artist.Name)
	}
	return names
}

func convertPlaylist(playlist *spotify.SimplePlaylist) core.Playlist {
	return core.Playlist{
		ID:         string(playlist.ID),
		Name:       playlist.Name,
		OwnerID:    playlist.Owner.ID,
		URI:        string(playlist.URI),
		TrackCount: int(playlist.Tracks.Total), //nolint:gosec // Spotify playlist counts are reasonable for int conversion
	}
}

func convertDevice(device *spotify.PlayerDevice) core.Device {
	return core.Device{
		ID:            device.ID.String(),
		Name:          device.Name,
		IsActive:      device.Active,
		VolumePercent: int(device.Volume),
		Type:          device.Type,
	}
}

func convertPlayerState(state *spotify.PlayerState) *core.PlaybackStatus {
	status := &core.PlaybackStatus{IsPlaying: state.Playing}
	if state.Item != nil {
		track := convertTrack(state.Item)
		status.Item = &track
	}
	if state.Device.ID != "" {
		device := convertDevice(&state.Device)
		status.Device = &device
	}
	return status
}
