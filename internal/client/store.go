package client

import (
	"context"
	"errors"
	"sync"

	"github.com/samber/lo"

	"spotifly/internal/models"
)

// State is a snapshot of everything the MusicStore has loaded.
type State struct {
	Songs           []models.Song
	FeaturedSongs   []models.Song
	MadeForYouSongs []models.Song
	TrendingSongs   []models.Song
	Albums          []models.Album
	CurrentAlbum    *models.Album
	CurrentSong     *models.Song
	Playlists       []models.Playlist
	CurrentPlaylist *models.Playlist
	Stats           models.Stats
	// Error holds the message of the last failed call, cleared when the next call starts.
	Error string
}

// MusicStore caches API results for a long-lived client such as the CLI player.
// It is safe for concurrent use.
type MusicStore struct {
	api   *Client
	mu    sync.RWMutex
	state State
}

// NewMusicStore wraps api with an empty cache.
func NewMusicStore(api *Client) *MusicStore {
	return &MusicStore{api: api}
}

// Snapshot returns a copy of the current state.
func (m *MusicStore) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.state
	s.Songs = clone(s.Songs)
	s.FeaturedSongs = clone(s.FeaturedSongs)
	s.MadeForYouSongs = clone(s.MadeForYouSongs)
	s.TrendingSongs = clone(s.TrendingSongs)
	s.Albums = clone(s.Albums)
	s.Playlists = clone(s.Playlists)
	return s
}

func clone[T any](in []T) []T {
	if in == nil {
		return nil
	}
	return append([]T(nil), in...)
}

func (m *MusicStore) begin() {
	m.mu.Lock()
	m.state.Error = ""
	m.mu.Unlock()
}

// fail records err as the last error message and returns it.
func (m *MusicStore) fail(err error) error {
	msg := err.Error()
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		msg = apiErr.Message
	}
	m.mu.Lock()
	m.state.Error = msg
	m.mu.Unlock()
	return err
}

func (m *MusicStore) update(fn func(*State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.state)
}

// FetchSongs loads every song.
func (m *MusicStore) FetchSongs(ctx context.Context) error {
	m.begin()
	songs, err := m.api.Songs(ctx)
	if err != nil {
		return m.fail(err)
	}
	m.update(func(s *State) { s.Songs = songs })
	return nil
}

// FetchFeaturedSongs loads the featured sample.
func (m *MusicStore) FetchFeaturedSongs(ctx context.Context) error {
	m.begin()
	songs, err := m.api.FeaturedSongs(ctx)
	if err != nil {
		return m.fail(err)
	}
	m.update(func(s *State) { s.FeaturedSongs = songs })
	return nil
}

// FetchMadeForYouSongs loads the made-for-you sample.
func (m *MusicStore) FetchMadeForYouSongs(ctx context.Context) error {
	m.begin()
	songs, err := m.api.MadeForYouSongs(ctx)
	if err != nil {
		return m.fail(err)
	}
	m.update(func(s *State) { s.MadeForYouSongs = songs })
	return nil
}

// FetchTrendingSongs loads the trending sample.
func (m *MusicStore) FetchTrendingSongs(ctx context.Context) error {
	m.begin()
	songs, err := m.api.TrendingSongs(ctx)
	if err != nil {
		return m.fail(err)
	}
	m.update(func(s *State) { s.TrendingSongs = songs })
	return nil
}

// FetchSong loads one song and, when it belongs to an album, that album too.
func (m *MusicStore) FetchSong(ctx context.Context, id string) error {
	m.begin()
	song, err := m.api.Song(ctx, id)
	if err != nil {
		return m.fail(err)
	}
	m.update(func(s *State) { s.CurrentSong = &song })

	if song.AlbumID == nil || *song.AlbumID == "" {
		return nil
	}
	album, err := m.api.Album(ctx, *song.AlbumID)
	if err != nil {
		return m.fail(err)
	}
	m.update(func(s *State) { s.CurrentAlbum = &album })
	return nil
}

// FetchAlbums loads every album.
func (m *MusicStore) FetchAlbums(ctx context.Context) error {
	m.begin()
	albums, err := m.api.Albums(ctx)
	if err != nil {
		return m.fail(err)
	}
	m.update(func(s *State) { s.Albums = albums })
	return nil
}

// FetchAlbum loads one album as the current album.
func (m *MusicStore) FetchAlbum(ctx context.Context, id string) error {
	m.begin()
	album, err := m.api.Album(ctx, id)
	if err != nil {
		return m.fail(err)
	}
	m.update(func(s *State) { s.CurrentAlbum = &album })
	return nil
}

// FetchPlaylists loads the caller's playlists.
func (m *MusicStore) FetchPlaylists(ctx context.Context) error {
	m.begin()
	playlists, err := m.api.Playlists(ctx)
	if err != nil {
		return m.fail(err)
	}
	m.update(func(s *State) { s.Playlists = playlists })
	return nil
}

// FetchPlaylist loads one playlist as the current playlist.
func (m *MusicStore) FetchPlaylist(ctx context.Context, id string) error {
	m.begin()
	playlist, err := m.api.Playlist(ctx, id)
	if err != nil {
		return m.fail(err)
	}
	m.update(func(s *State) { s.CurrentPlaylist = &playlist })
	return nil
}

// FetchStats loads the catalogue totals.
func (m *MusicStore) FetchStats(ctx context.Context) error {
	m.begin()
	stats, err := m.api.Stats(ctx)
	if err != nil {
		return m.fail(err)
	}
	m.update(func(s *State) { s.Stats = stats })
	return nil
}

// Search replaces the cached songs and albums with the matches for query.
func (m *MusicStore) Search(ctx context.Context, query string) error {
	m.begin()
	result, err := m.api.Search(ctx, query)
	if err != nil {
		return m.fail(err)
	}
	m.update(func(s *State) {
		s.Songs = lo.Ternary(result.Songs != nil, result.Songs, []models.Song{})
		s.Albums = lo.Ternary(result.Albums != nil, result.Albums, []models.Album{})
	})
	return nil
}

// CreateOrUpdatePlaylist sends req and caches the returned playlist,
// replacing a cached copy with the same id.
func (m *MusicStore) CreateOrUpdatePlaylist(ctx context.Context, req PlaylistRequest) (models.Playlist, error) {
	m.begin()
	playlist, err := m.api.CreateOrUpdatePlaylist(ctx, req)
	if err != nil {
		return models.Playlist{}, m.fail(err)
	}
	m.update(func(s *State) { s.Playlists = upsertPlaylist(s.Playlists, playlist) })
	return playlist, nil
}

// RemoveSongsFromPlaylist removes songIDs and refreshes both the cached list
// entry and the current playlist when it is the one edited.
func (m *MusicStore) RemoveSongsFromPlaylist(ctx context.Context, playlistID string, songIDs []string) error {
	m.begin()
	playlist, err := m.api.RemoveSongsFromPlaylist(ctx, playlistID, songIDs)
	if err != nil {
		return m.fail(err)
	}
	m.update(func(s *State) {
		s.Playlists = lo.Map(s.Playlists, func(p models.Playlist, _ int) models.Playlist {
			return lo.Ternary(p.ID == playlistID, playlist, p)
		})
		if s.CurrentPlaylist != nil && s.CurrentPlaylist.ID == playlistID {
			s.CurrentPlaylist = &playlist
		}
	})
	return nil
}

// DeletePlaylist deletes a playlist and drops it from the cache.
func (m *MusicStore) DeletePlaylist(ctx context.Context, id string) error {
	m.begin()
	if err := m.api.DeletePlaylist(ctx, id); err != nil {
		return m.fail(err)
	}
	m.update(func(s *State) {
		s.Playlists = lo.Reject(s.Playlists, func(p models.Playlist, _ int) bool { return p.ID == id })
		if s.CurrentPlaylist != nil && s.CurrentPlaylist.ID == id {
			s.CurrentPlaylist = nil
		}
	})
	return nil
}

// DeleteSong deletes a song and drops it from the cache.
func (m *MusicStore) DeleteSong(ctx context.Context, id string) error {
	m.begin()
	if err := m.api.DeleteSong(ctx, id); err != nil {
		return m.fail(err)
	}
	m.update(func(s *State) {
		s.Songs = lo.Reject(s.Songs, func(song models.Song, _ int) bool { return song.ID == id })
	})
	return nil
}

// DeleteAlbum deletes an album, drops it from the cache and detaches cached songs from it.
func (m *MusicStore) DeleteAlbum(ctx context.Context, id string) error {
	m.begin()
	if err := m.api.DeleteAlbum(ctx, id); err != nil {
		return m.fail(err)
	}
	m.update(func(s *State) {
		s.Albums = lo.Reject(s.Albums, func(a models.Album, _ int) bool { return a.ID == id })
		s.Songs = lo.Map(s.Songs, func(song models.Song, _ int) models.Song {
			if song.AlbumID != nil && *song.AlbumID == id {
				song.AlbumID = nil
			}
			return song
		})
	})
	return nil
}

func upsertPlaylist(list []models.Playlist, playlist models.Playlist) []models.Playlist {
	_, idx, found := lo.FindIndexOf(list, func(p models.Playlist) bool { return p.ID == playlist.ID })
	if !found {
		return append(list, playlist)
	}
	out := clone(list)
	out[idx] = playlist
	return out
}
