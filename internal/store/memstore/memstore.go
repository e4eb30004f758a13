// Package memstore is a mutex-guarded, in-process implementation of the
// catalogue store used by --memory mode and service tests.
package memstore

import (
	"cmp"
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"spotifly/internal/models"
	"spotifly/internal/store"
)

// Store keeps every record in memory. The zero value is not usable; call New.
type Store struct {
	mu        sync.RWMutex
	songs     map[string]*models.Song
	albums    map[string]*models.Album
	playlists map[string]*models.Playlist
	users     map[string]*models.User
	messages  []*models.Message
	seq       map[string]int64
	nextSeq   int64
	now       func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		songs:     make(map[string]*models.Song),
		albums:    make(map[string]*models.Album),
		playlists: make(map[string]*models.Playlist),
		users:     make(map[string]*models.User),
		seq:       make(map[string]int64),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) track(id string) {
	s.nextSeq++
	s.seq[id] = s.nextSeq
}

// newestFirst orders records by creation time, breaking ties by insertion order.
func newestFirst[T any](s *Store, items []T, id func(T) string, created func(T) time.Time) {
	slices.SortFunc(items, func(a, b T) int {
		if c := created(b).Compare(created(a)); c != 0 {
			return c
		}
		return cmp.Compare(s.seq[id(b)], s.seq[id(a)])
	})
}

func matches(query string, fields ...string) bool {
	q := strings.ToLower(query)
	return lo.SomeBy(fields, func(f string) bool {
		return strings.Contains(strings.ToLower(f), q)
	})
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// ListSongs returns every song, newest first.
func (s *Store) ListSongs(_ context.Context) ([]models.Song, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	songs := lo.Map(lo.Values(s.songs), func(song *models.Song, _ int) models.Song { return cloneSong(song) })
	newestFirst(s, songs, func(x models.Song) string { return x.ID }, func(x models.Song) time.Time { return x.CreatedAt })
	return songs, nil
}

// GetSong returns a single song by id.
func (s *Store) GetSong(_ context.Context, id string) (models.Song, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	song, ok := s.songs[id]
	if !ok {
		return models.Song{}, store.ErrSongNotFound
	}
	return cloneSong(song), nil
}

// SampleSongs returns up to n distinct songs in random order.
func (s *Store) SampleSongs(_ context.Context, n int) ([]models.Song, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := lo.Values(s.songs)
	rand.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	if n < 0 {
		n = 0
	}
	if n < len(all) {
		all = all[:n]
	}
	return lo.Map(all, func(song *models.Song, _ int) models.Song { return cloneSong(song) }), nil
}

// SearchSongs matches title or artist case-insensitively as a substring.
func (s *Store) SearchSongs(_ context.Context, query string) ([]models.Song, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	songs := make([]models.Song, 0)
	for _, song := range s.songs {
		if matches(query, song.Title, song.Artist) {
			songs = append(songs, cloneSong(song))
		}
	}
	slices.SortFunc(songs, func(a, b models.Song) int {
		return cmp.Or(cmp.Compare(a.Title, b.Title), cmp.Compare(a.ID, b.ID))
	})
	return songs, nil
}

// PopulateSongs resolves song ids to summaries in the order given, skipping unknown ids.
func (s *Store) PopulateSongs(_ context.Context, ids []string) ([]models.SongSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]models.SongSummary, 0, len(ids))
	for _, id := range ids {
		song, ok := s.songs[id]
		if !ok {
			continue
		}
		summary := models.SongSummary{
			ID:       song.ID,
			Title:    song.Title,
			Artist:   song.Artist,
			ImageURL: song.ImageURL,
			AudioURL: song.AudioURL,
			Duration: song.Duration,
		}
		if song.AlbumID != nil {
			if album, ok := s.albums[*song.AlbumID]; ok {
				summary.AlbumTitle = album.Title
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// CreateSong inserts a song and appends it to its album's track list.
func (s *Store) CreateSong(_ context.Context, song *models.Song) error {
	if song == nil {
		return errors.New("song is required")
	}
	song.Title = strings.TrimSpace(song.Title)
	song.Artist = strings.TrimSpace(song.Artist)
	if song.Title == "" || song.Artist == "" {
		return errors.New("title and artist are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var album *models.Album
	if song.AlbumID != nil && *song.AlbumID != "" {
		var ok bool
		if album, ok = s.albums[*song.AlbumID]; !ok {
			return store.ErrAlbumNotFound
		}
	} else {
		song.AlbumID = nil
	}

	now := s.now()
	song.ID = uuid.NewString()
	song.CreatedAt, song.UpdatedAt = now, now
	stored := cloneSong(song)
	s.songs[song.ID] = &stored
	s.track(song.ID)

	if album != nil {
		album.SongIDs = append(album.SongIDs, song.ID)
		album.UpdatedAt = now
	}
	return nil
}

// DeleteSong removes a song and every album or playlist reference to it.
func (s *Store) DeleteSong(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.songs[id]; !ok {
		return store.ErrSongNotFound
	}
	delete(s.songs, id)
	delete(s.seq, id)

	now := s.now()
	for _, album := range s.albums {
		if slices.Contains(album.SongIDs, id) {
			album.SongIDs = lo.Without(album.SongIDs, id)
			album.UpdatedAt = now
		}
	}
	for _, playlist := range s.playlists {
		if slices.Contains(playlist.SongIDs, id) {
			playlist.SongIDs = lo.Without(playlist.SongIDs, id)
			playlist.UpdatedAt = now
		}
	}
	return nil
}

// CountSongs returns the number of songs.
func (s *Store) CountSongs(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.songs)), nil
}

// ListAlbums returns every album without songs, newest first.
func (s *Store) ListAlbums(_ context.Context) ([]models.Album, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	albums := lo.Map(lo.Values(s.albums), func(album *models.Album, _ int) models.Album { return cloneAlbum(album) })
	newestFirst(s, albums, func(x models.Album) string { return x.ID }, func(x models.Album) time.Time { return x.CreatedAt })
	return albums, nil
}

// SearchAlbums matches title or artist case-insensitively as a substring.
func (s *Store) SearchAlbums(_ context.Context, query string) ([]models.Album, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	albums := make([]models.Album, 0)
	for _, album := range s.albums {
		if matches(query, album.Title, album.Artist) {
			albums = append(albums, cloneAlbum(album))
		}
	}
	slices.SortFunc(albums, func(a, b models.Album) int {
		return cmp.Or(cmp.Compare(a.Title, b.Title), cmp.Compare(a.ID, b.ID))
	})
	return albums, nil
}

// GetAlbum returns an album with its songs in track order.
func (s *Store) GetAlbum(_ context.Context, id string) (models.Album, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.albums[id]
	if !ok {
		return models.Album{}, store.ErrAlbumNotFound
	}
	album := cloneAlbum(stored)
	album.Songs = make([]models.Song, 0, len(album.SongIDs))
	for _, songID := range album.SongIDs {
		if song, ok := s.songs[songID]; ok {
			album.Songs = append(album.Songs, cloneSong(song))
		}
	}
	return album, nil
}

// CreateAlbum inserts an album with an empty track list.
func (s *Store) CreateAlbum(_ context.Context, album *models.Album) error {
	if album == nil {
		return errors.New("album is required")
	}
	album.Title = strings.TrimSpace(album.Title)
	album.Artist = strings.TrimSpace(album.Artist)
	if album.Title == "" || album.Artist == "" {
		return errors.New("title and artist are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	album.ID = uuid.NewString()
	album.SongIDs = []string{}
	album.CreatedAt, album.UpdatedAt = now, now
	stored := cloneAlbum(album)
	s.albums[album.ID] = &stored
	s.track(album.ID)
	return nil
}

// DeleteAlbum removes an album and turns its songs into singles.
func (s *Store) DeleteAlbum(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.albums[id]; !ok {
		return store.ErrAlbumNotFound
	}
	now := s.now()
	for _, song := range s.songs {
		if song.AlbumID != nil && *song.AlbumID == id {
			song.AlbumID = nil
			song.UpdatedAt = now
		}
	}
	delete(s.albums, id)
	delete(s.seq, id)
	return nil
}

// CountAlbums returns the number of albums.
func (s *Store) CountAlbums(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.albums)), nil
}

// CountArtists returns the number of distinct artists across songs and albums.
func (s *Store) CountArtists(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	artists := make(map[string]struct{})
	for _, song := range s.songs {
		artists[song.Artist] = struct{}{}
	}
	for _, album := range s.albums {
		artists[album.Artist] = struct{}{}
	}
	return int64(len(artists)), nil
}
