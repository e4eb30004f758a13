package memstore

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"spotifly/internal/models"
	"spotifly/internal/store"
)

func (s *Store) playlistView(p *models.Playlist) *models.Playlist {
	clone := clonePlaylist(p)
	creator := &models.Creator{ID: p.CreatorID}
	for _, user := range s.users {
		if user.ID == p.CreatorID {
			creator.FullName = user.FullName
			break
		}
	}
	clone.Creator = creator
	return clone
}

// ListPlaylistsByCreator returns a user's playlists, newest first.
func (s *Store) ListPlaylistsByCreator(_ context.Context, creatorID string) ([]*models.Playlist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	playlists := make([]*models.Playlist, 0)
	for _, p := range s.playlists {
		if p.CreatorID == creatorID {
			playlists = append(playlists, s.playlistView(p))
		}
	}
	newestFirst(s, playlists, func(x *models.Playlist) string { return x.ID },
		func(x *models.Playlist) time.Time { return x.CreatedAt })
	return playlists, nil
}

// GetPlaylist returns a single playlist by id.
func (s *Store) GetPlaylist(_ context.Context, id string) (*models.Playlist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.playlists[id]
	if !ok {
		return nil, store.ErrPlaylistNotFound
	}
	return s.playlistView(p), nil
}

// FindPlaylistByTitle returns the creator's oldest playlist with an exact title match.
func (s *Store) FindPlaylistByTitle(_ context.Context, title, creatorID string) (*models.Playlist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *models.Playlist
	for _, p := range s.playlists {
		if p.Title != title || p.CreatorID != creatorID {
			continue
		}
		if found == nil || s.seq[p.ID] < s.seq[found.ID] {
			found = p
		}
	}
	if found == nil {
		return nil, store.ErrPlaylistNotFound
	}
	return s.playlistView(found), nil
}

// CreatePlaylist inserts a playlist and fills in its id and timestamps.
func (s *Store) CreatePlaylist(_ context.Context, playlist *models.Playlist) error {
	if playlist == nil {
		return errors.New("playlist is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	playlist.ID = uuid.NewString()
	playlist.CreatedAt, playlist.UpdatedAt = now, now
	if playlist.SongIDs == nil {
		playlist.SongIDs = []string{}
	}
	s.playlists[playlist.ID] = clonePlaylist(playlist)
	s.track(playlist.ID)
	return nil
}

// UpdatePlaylist persists the mutable fields of an existing playlist.
func (s *Store) UpdatePlaylist(_ context.Context, playlist *models.Playlist) error {
	if playlist == nil {
		return errors.New("playlist is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.playlists[playlist.ID]
	if !ok {
		return store.ErrPlaylistNotFound
	}
	existing.Title = playlist.Title
	existing.Description = playlist.Description
	existing.ImageURL = playlist.ImageURL
	existing.SongIDs = slices.Clone(playlist.SongIDs)
	if existing.SongIDs == nil {
		existing.SongIDs = []string{}
	}
	existing.UpdatedAt = s.now()
	playlist.UpdatedAt = existing.UpdatedAt
	return nil
}

// DeletePlaylist removes a playlist only when it belongs to creatorID.
func (s *Store) DeletePlaylist(_ context.Context, id, creatorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.playlists[id]
	if !ok || p.CreatorID != creatorID {
		return store.ErrPlaylistNotFound
	}
	delete(s.playlists, id)
	delete(s.seq, id)
	return nil
}

// GetUserByExternalID resolves the local user linked to an identity provider id.
func (s *Store) GetUserByExternalID(_ context.Context, externalID string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[externalID]
	if !ok {
		return models.User{}, store.ErrUserNotFound
	}
	return *user, nil
}

// CreateUser inserts a user. A duplicate external id yields store.ErrUserExists.
func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	if user == nil {
		return errors.New("user is required")
	}
	user.ExternalID = strings.TrimSpace(user.ExternalID)
	if user.ExternalID == "" {
		return errors.New("external id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.ExternalID]; exists {
		return store.ErrUserExists
	}
	now := s.now()
	user.ID = uuid.NewString()
	user.CreatedAt, user.UpdatedAt = now, now
	stored := *user
	s.users[user.ExternalID] = &stored
	s.track(user.ID)
	return nil
}

// ListUsersExcept returns every user other than the given external id.
func (s *Store) ListUsersExcept(_ context.Context, externalID string) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.users))
	for ext, user := range s.users {
		if ext != externalID {
			users = append(users, *user)
		}
	}
	slices.SortFunc(users, func(a, b models.User) int {
		return cmp.Or(cmp.Compare(a.FullName, b.FullName), cmp.Compare(a.ID, b.ID))
	})
	return users, nil
}

// SetUploadPermission grants or revokes upload rights for a user.
func (s *Store) SetUploadPermission(_ context.Context, externalID string, allowed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[externalID]
	if !ok {
		return store.ErrUserNotFound
	}
	user.CanUpload = allowed
	user.UpdatedAt = s.now()
	return nil
}

// CountUsers returns the number of users.
func (s *Store) CountUsers(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.users)), nil
}

// CreateMessage inserts a direct message.
func (s *Store) CreateMessage(_ context.Context, msg *models.Message) error {
	if msg == nil {
		return errors.New("message is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	msg.ID = uuid.NewString()
	msg.CreatedAt, msg.UpdatedAt = now, now
	stored := cloneMessage(msg)
	s.messages = append(s.messages, &stored)
	return nil
}

// ListConversation returns messages between a and b in both directions, oldest first.
func (s *Store) ListConversation(_ context.Context, a, b string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages := make([]models.Message, 0)
	for _, msg := range s.messages {
		if (msg.SenderID == a && msg.ReceiverID == b) || (msg.SenderID == b && msg.ReceiverID == a) {
			messages = append(messages, cloneMessage(msg))
		}
	}
	// messages is append-only, so a stable sort keeps insertion order on ties.
	slices.SortStableFunc(messages, func(x, y models.Message) int { return x.CreatedAt.Compare(y.CreatedAt) })
	return messages, nil
}

func cloneSong(src *models.Song) models.Song {
	clone := *src
	if src.AlbumID != nil {
		id := *src.AlbumID
		clone.AlbumID = &id
	}
	return clone
}

func cloneAlbum(src *models.Album) models.Album {
	clone := *src
	clone.SongIDs = slices.Clone(src.SongIDs)
	if clone.SongIDs == nil {
		clone.SongIDs = []string{}
	}
	clone.Songs = nil
	return clone
}

func clonePlaylist(src *models.Playlist) *models.Playlist {
	clone := *src
	clone.SongIDs = slices.Clone(src.SongIDs)
	if clone.SongIDs == nil {
		clone.SongIDs = []string{}
	}
	clone.Songs = nil
	clone.Creator = nil
	return &clone
}

func cloneMessage(src *models.Message) models.Message {
	clone := *src
	if src.SongID != nil {
		id := *src.SongID
		clone.SongID = &id
	}
	return clone
}
