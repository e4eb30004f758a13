package playlists

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"spotifly/internal/apperr"
	"spotifly/internal/blob"
	"spotifly/internal/models"
	"spotifly/internal/store"
)

// DefaultImageURL is used when neither the request, its songs, nor the
// existing playlist provide an image.
const DefaultImageURL = "https://placehold.co/300x300?text=Playlist"

// Store captures the persistence needs for playlist workflows.
type Store interface {
	ListPlaylistsByCreator(ctx context.Context, creatorID string) ([]*models.Playlist, error)
	GetPlaylist(ctx context.Context, id string) (*models.Playlist, error)
	FindPlaylistByTitle(ctx context.Context, title, creatorID string) (*models.Playlist, error)
	CreatePlaylist(ctx context.Context, playlist *models.Playlist) error
	UpdatePlaylist(ctx context.Context, playlist *models.Playlist) error
	DeletePlaylist(ctx context.Context, id, creatorID string) error
	PopulateSongs(ctx context.Context, ids []string) ([]models.SongSummary, error)
	GetUserByExternalID(ctx context.Context, externalID string) (models.User, error)
}

// Input is a create-or-update request. Nil Description leaves it unchanged.
type Input struct {
	PlaylistID  string
	Title       string
	Description *string
	ImageURL    string
	Image       *blob.File
	SongIDs     []string
}

// Service coordinates playlist-related operations. actor is the caller's
// identity-provider subject.
type Service interface {
	ListForUser(ctx context.Context, actor string) ([]*models.Playlist, error)
	Get(ctx context.Context, id string) (*models.Playlist, error)
	CreateOrUpdate(ctx context.Context, actor string, in Input) (*models.Playlist, error)
	RemoveSongs(ctx context.Context, actor, playlistID string, songIDs []string) (*models.Playlist, error)
	Delete(ctx context.Context, actor, playlistID string) error
}

type service struct {
	store Store
	blobs blob.Store
}

// New constructs a Service backed by the provided Store. blobs may be nil when
// image uploads are not supported.
func New(store Store, blobs blob.Store) Service {
	return &service{store: store, blobs: blobs}
}

func (s *service) ListForUser(ctx context.Context, actor string) ([]*models.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	user, err := s.resolveActor(ctx, actor)
	if err != nil {
		return nil, err
	}

	playlists, err := s.store.ListPlaylistsByCreator(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	for _, p := range playlists {
		if err := s.populate(ctx, p); err != nil {
			return nil, err
		}
	}
	return playlists, nil
}

func (s *service) Get(ctx context.Context, id string) (*models.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.store.GetPlaylist(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.populate(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) CreateOrUpdate(ctx context.Context, actor string, in Input) (*models.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	user, err := s.resolveActor(ctx, actor)
	if err != nil {
		return nil, err
	}

	in.Title = strings.TrimSpace(in.Title)
	in.PlaylistID = strings.TrimSpace(in.PlaylistID)
	if in.PlaylistID == "" && in.Title == "" {
		return nil, apperr.InvalidInput("title is required")
	}

	incoming, err := normalizeSongIDs(in.SongIDs)
	if err != nil {
		return nil, err
	}
	songs, err := s.store.PopulateSongs(ctx, incoming)
	if err != nil {
		return nil, err
	}
	if missing, ok := firstMissing(incoming, songs); ok {
		return nil, apperr.InvalidReference("song %s does not exist", missing)
	}

	existing, err := s.findExisting(ctx, user, in)
	if err != nil {
		return nil, err
	}

	explicitImage := strings.TrimSpace(in.ImageURL)
	if in.Image != nil {
		if s.blobs == nil {
			return nil, apperr.BadRequest("image uploads are not supported")
		}
		url, err := s.blobs.Put(ctx, "images", *in.Image)
		if err != nil {
			if errors.Is(err, blob.ErrEmptyFile) {
				return nil, apperr.InvalidInput("image file is empty")
			}
			return nil, fmt.Errorf("upload playlist image: %w", err)
		}
		explicitImage = url
	}

	if existing == nil {
		p := &models.Playlist{
			Title:     in.Title,
			CreatorID: user.ID,
			SongIDs:   incoming,
			ImageURL:  resolveImage(explicitImage, songs, ""),
		}
		if in.Description != nil {
			p.Description = strings.TrimSpace(*in.Description)
		}
		if err := s.store.CreatePlaylist(ctx, p); err != nil {
			return nil, err
		}
		p.Creator = &models.Creator{ID: user.ID, FullName: user.FullName}
		if err := s.populate(ctx, p); err != nil {
			return nil, err
		}
		return p, nil
	}

	if in.Title != "" {
		existing.Title = in.Title
	}
	if in.Description != nil {
		existing.Description = strings.TrimSpace(*in.Description)
	}
	existing.SongIDs = mergeSongIDs(existing.SongIDs, incoming)
	existing.ImageURL = resolveImage(explicitImage, songs, existing.ImageURL)

	if err := s.store.UpdatePlaylist(ctx, existing); err != nil {
		return nil, err
	}
	if err := s.populate(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *service) RemoveSongs(ctx context.Context, actor, playlistID string, songIDs []string) (*models.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(songIDs) == 0 {
		return nil, apperr.InvalidInput("songIds must be a non-empty array")
	}
	user, err := s.resolveActor(ctx, actor)
	if err != nil {
		return nil, err
	}

	p, err := s.store.GetPlaylist(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	if p.CreatorID != user.ID {
		return nil, store.ErrPlaylistNotFound
	}

	p.SongIDs = removeSongIDs(p.SongIDs, songIDs)
	if err := s.store.UpdatePlaylist(ctx, p); err != nil {
		return nil, err
	}
	if err := s.populate(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) Delete(ctx context.Context, actor, playlistID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	user, err := s.resolveActor(ctx, actor)
	if err != nil {
		return err
	}
	return s.store.DeletePlaylist(ctx, playlistID, user.ID)
}

func (s *service) resolveActor(ctx context.Context, actor string) (models.User, error) {
	if strings.TrimSpace(actor) == "" {
		return models.User{}, apperr.Unauthenticated("authentication required")
	}
	user, err := s.store.GetUserByExternalID(ctx, actor)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return models.User{}, apperr.NotFound("User not found in database")
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *service) findExisting(ctx context.Context, user models.User, in Input) (*models.Playlist, error) {
	if in.PlaylistID != "" {
		p, err := s.store.GetPlaylist(ctx, in.PlaylistID)
		if err != nil {
			return nil, err
		}
		if p.CreatorID != user.ID {
			return nil, apperr.NotAuthorized("you can only modify your own playlists")
		}
		return p, nil
	}
	p, err := s.store.FindPlaylistByTitle(ctx, in.Title, user.ID)
	if err != nil {
		if errors.Is(err, store.ErrPlaylistNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (s *service) populate(ctx context.Context, p *models.Playlist) error {
	songs, err := s.store.PopulateSongs(ctx, p.SongIDs)
	if err != nil {
		return fmt.Errorf("populate playlist %s: %w", p.ID, err)
	}
	p.Songs = songs
	return nil
}
