package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"spotifly/internal/models"
	"spotifly/internal/store"
)

func ptr[T any](v T) *T { return &v }

func fixedClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Second)
		return current
	}
}

func newTestStore() *Store {
	s := New()
	s.now = fixedClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	return s
}

func TestCreateSongAppendsToAlbum(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	album := &models.Album{Title: "Blue", Artist: "Joni Mitchell"}
	if err := s.CreateAlbum(ctx, album); err != nil {
		t.Fatalf("CreateAlbum returned error: %v", err)
	}
	first := &models.Song{Title: "All I Want", Artist: "Joni Mitchell", AlbumID: ptr(album.ID)}
	second := &models.Song{Title: "My Old Man", Artist: "Joni Mitchell", AlbumID: ptr(album.ID)}
	for _, song := range []*models.Song{first, second} {
		if err := s.CreateSong(ctx, song); err != nil {
			t.Fatalf("CreateSong returned error: %v", err)
		}
	}

	got, err := s.GetAlbum(ctx, album.ID)
	if err != nil {
		t.Fatalf("GetAlbum returned error: %v", err)
	}
	if len(got.Songs) != 2 || got.Songs[0].ID != first.ID || got.Songs[1].ID != second.ID {
		t.Fatalf("unexpected album songs %+v", got.Songs)
	}

	err = s.CreateSong(ctx, &models.Song{Title: "Lost", Artist: "Nobody", AlbumID: ptr("missing")})
	if !errors.Is(err, store.ErrAlbumNotFound) {
		t.Fatalf("expected ErrAlbumNotFound, got %v", err)
	}
}

func TestDeleteSongRemovesReferences(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	song := &models.Song{Title: "Song", Artist: "Artist"}
	other := &models.Song{Title: "Other", Artist: "Artist"}
	_ = s.CreateSong(ctx, song)
	_ = s.CreateSong(ctx, other)

	playlist := &models.Playlist{Title: "Mix", CreatorID: "u1", SongIDs: []string{song.ID, other.ID}}
	if err := s.CreatePlaylist(ctx, playlist); err != nil {
		t.Fatalf("CreatePlaylist returned error: %v", err)
	}

	if err := s.DeleteSong(ctx, song.ID); err != nil {
		t.Fatalf("DeleteSong returned error: %v", err)
	}
	got, err := s.GetPlaylist(ctx, playlist.ID)
	if err != nil {
		t.Fatalf("GetPlaylist returned error: %v", err)
	}
	if len(got.SongIDs) != 1 || got.SongIDs[0] != other.ID {
		t.Fatalf("expected only %s to remain, got %v", other.ID, got.SongIDs)
	}
	if err := s.DeleteSong(ctx, song.ID); !errors.Is(err, store.ErrSongNotFound) {
		t.Fatalf("expected ErrSongNotFound on second delete, got %v", err)
	}
}

func TestDeleteAlbumMakesSingles(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	album := &models.Album{Title: "Album", Artist: "Artist"}
	_ = s.CreateAlbum(ctx, album)
	song := &models.Song{Title: "Track", Artist: "Artist", AlbumID: ptr(album.ID)}
	_ = s.CreateSong(ctx, song)

	if err := s.DeleteAlbum(ctx, album.ID); err != nil {
		t.Fatalf("DeleteAlbum returned error: %v", err)
	}
	got, err := s.GetSong(ctx, song.ID)
	if err != nil {
		t.Fatalf("GetSong returned error: %v", err)
	}
	if got.AlbumID != nil {
		t.Fatalf("expected album id to be cleared, got %v", *got.AlbumID)
	}
}

func TestPopulateSongsOrderAndMissing(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	a := &models.Song{Title: "A", Artist: "X"}
	b := &models.Song{Title: "B", Artist: "Y"}
	_ = s.CreateSong(ctx, a)
	_ = s.CreateSong(ctx, b)

	got, err := s.PopulateSongs(ctx, []string{b.ID, "ghost", a.ID})
	if err != nil {
		t.Fatalf("PopulateSongs returned error: %v", err)
	}
	if len(got) != 2 || got[0].ID != b.ID || got[1].ID != a.ID {
		t.Fatalf("unexpected summaries %+v", got)
	}
}

func TestSampleSongsIsDistinctAndBounded(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	for i := 0; i < 3; i++ {
		_ = s.CreateSong(ctx, &models.Song{Title: "Song", Artist: "Artist"})
	}

	got, err := s.SampleSongs(ctx, 6)
	if err != nil {
		t.Fatalf("SampleSongs returned error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected all 3 songs, got %d", len(got))
	}
	seen := map[string]bool{}
	for _, song := range got {
		if seen[song.ID] {
			t.Fatalf("duplicate song %s in sample", song.ID)
		}
		seen[song.ID] = true
	}
}

func TestSearchIsCaseInsensitiveSubstring(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	_ = s.CreateSong(ctx, &models.Song{Title: "Bohemian Rhapsody", Artist: "Queen"})
	_ = s.CreateSong(ctx, &models.Song{Title: "Imagine", Artist: "John Lennon"})
	_ = s.CreateAlbum(ctx, &models.Album{Title: "A Night at the Opera", Artist: "Queen"})

	songs, _ := s.SearchSongs(ctx, "QUEE")
	if len(songs) != 1 || songs[0].Title != "Bohemian Rhapsody" {
		t.Fatalf("unexpected songs %+v", songs)
	}
	albums, _ := s.SearchAlbums(ctx, "opera")
	if len(albums) != 1 {
		t.Fatalf("expected 1 album, got %d", len(albums))
	}
}

func TestPlaylistOwnershipAndCreatorName(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	user := &models.User{ExternalID: "ext-1", FullName: "Ada Lovelace"}
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}
	if err := s.CreateUser(ctx, &models.User{ExternalID: "ext-1"}); !errors.Is(err, store.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}

	older := &models.Playlist{Title: "Mix", CreatorID: user.ID}
	newer := &models.Playlist{Title: "Mix", CreatorID: user.ID}
	_ = s.CreatePlaylist(ctx, older)
	_ = s.CreatePlaylist(ctx, newer)

	found, err := s.FindPlaylistByTitle(ctx, "Mix", user.ID)
	if err != nil {
		t.Fatalf("FindPlaylistByTitle returned error: %v", err)
	}
	if found.ID != older.ID {
		t.Fatalf("expected oldest match %s, got %s", older.ID, found.ID)
	}
	if found.Creator == nil || found.Creator.FullName != "Ada Lovelace" {
		t.Fatalf("unexpected creator %+v", found.Creator)
	}

	list, _ := s.ListPlaylistsByCreator(ctx, user.ID)
	if len(list) != 2 || list[0].ID != newer.ID {
		t.Fatalf("expected newest first, got %+v", list)
	}

	if err := s.DeletePlaylist(ctx, older.ID, "someone-else"); !errors.Is(err, store.ErrPlaylistNotFound) {
		t.Fatalf("expected ErrPlaylistNotFound, got %v", err)
	}
	if err := s.DeletePlaylist(ctx, older.ID, user.ID); err != nil {
		t.Fatalf("DeletePlaylist returned error: %v", err)
	}
}

func TestConversationBothDirectionsOldestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	_ = s.CreateMessage(ctx, &models.Message{SenderID: "a", ReceiverID: "b", Content: "1"})
	_ = s.CreateMessage(ctx, &models.Message{SenderID: "c", ReceiverID: "a", Content: "noise"})
	_ = s.CreateMessage(ctx, &models.Message{SenderID: "b", ReceiverID: "a", Content: "2"})

	got, err := s.ListConversation(ctx, "a", "b")
	if err != nil {
		t.Fatalf("ListConversation returned error: %v", err)
	}
	if len(got) != 2 || got[0].Content != "1" || got[1].Content != "2" {
		t.Fatalf("unexpected conversation %+v", got)
	}
}

func TestConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	s := New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.CreateSong(ctx, &models.Song{Title: "Song", Artist: "Artist"})
		}()
	}
	wg.Wait()

	n, _ := s.CountSongs(ctx)
	if n != 20 {
		t.Fatalf("expected 20 songs, got %d", n)
	}
}
