package albums

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"spotifly/internal/apperr"
	"spotifly/internal/blob"
	"spotifly/internal/models"
)

// Store captures the persistence needs for album workflows.
type Store interface {
	ListAlbums(ctx context.Context) ([]models.Album, error)
	GetAlbum(ctx context.Context, id string) (models.Album, error)
	CreateAlbum(ctx context.Context, album *models.Album) error
	DeleteAlbum(ctx context.Context, id string) error
}

// CreateInput describes an admin album upload.
type CreateInput struct {
	Title       string
	Artist      string
	ReleaseYear int
	Image       *blob.File
}

// Service coordinates album-related operations.
type Service interface {
	List(ctx context.Context) ([]models.Album, error)
	Get(ctx context.Context, id string) (models.Album, error)
	Create(ctx context.Context, in CreateInput) (models.Album, error)
	Delete(ctx context.Context, id string) error
}

type service struct {
	store Store
	blobs blob.Store
}

// New constructs a Service backed by the provided Store.
func New(store Store, blobs blob.Store) Service {
	return &service{store: store, blobs: blobs}
}

func (s *service) List(ctx context.Context) ([]models.Album, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListAlbums(ctx)
}

func (s *service) Get(ctx context.Context, id string) (models.Album, error) {
	if err := ctx.Err(); err != nil {
		return models.Album{}, err
	}
	return s.store.GetAlbum(ctx, id)
}

func (s *service) Create(ctx context.Context, in CreateInput) (models.Album, error) {
	if err := ctx.Err(); err != nil {
		return models.Album{}, err
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Artist = strings.TrimSpace(in.Artist)
	if in.Title == "" || in.Artist == "" {
		return models.Album{}, apperr.InvalidInput("title and artist are required")
	}
	if in.ReleaseYear != 0 && (in.ReleaseYear < 1000 || in.ReleaseYear > 9999) {
		return models.Album{}, apperr.InvalidInput("releaseYear must be a four digit year")
	}
	if in.Image == nil {
		return models.Album{}, apperr.InvalidInput("Please upload an image")
	}
	if s.blobs == nil {
		return models.Album{}, apperr.BadRequest("uploads are not supported")
	}

	imageURL, err := s.blobs.Put(ctx, "images", *in.Image)
	if err != nil {
		if errors.Is(err, blob.ErrEmptyFile) {
			return models.Album{}, apperr.InvalidInput("image file is empty")
		}
		return models.Album{}, fmt.Errorf("upload album image: %w", err)
	}

	album := models.Album{
		Title:       in.Title,
		Artist:      in.Artist,
		ReleaseYear: in.ReleaseYear,
		ImageURL:    imageURL,
	}
	if err := s.store.CreateAlbum(ctx, &album); err != nil {
		return models.Album{}, err
	}
	album.Songs = []models.Song{}
	return album, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.DeleteAlbum(ctx, id)
}
