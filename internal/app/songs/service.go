package songs

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

// Sample sizes for the home page rows.
const (
	FeaturedSize   = 6
	MadeForYouSize = 4
	TrendingSize   = 4
)

// Store captures the persistence needs for song workflows.
type Store interface {
	ListSongs(ctx context.Context) ([]models.Song, error)
	GetSong(ctx context.Context, id string) (models.Song, error)
	SampleSongs(ctx context.Context, n int) ([]models.Song, error)
	SearchSongs(ctx context.Context, query string) ([]models.Song, error)
	SearchAlbums(ctx context.Context, query string) ([]models.Album, error)
	CreateSong(ctx context.Context, song *models.Song) error
	DeleteSong(ctx context.Context, id string) error
}

// SearchResult is the combined song and album match set.
type SearchResult struct {
	Songs  []models.Song  `json:"songs"`
	Albums []models.Album `json:"albums"`
}

// CreateInput describes an admin upload.
type CreateInput struct {
	Title    string
	Artist   string
	AlbumID  string
	Duration int
	Audio    *blob.File
	Image    *blob.File
}

// Service exposes song-centric operations.
type Service interface {
	List(ctx context.Context) ([]models.Song, error)
	Get(ctx context.Context, id string) (models.Song, error)
	Featured(ctx context.Context) ([]models.Song, error)
	MadeForYou(ctx context.Context) ([]models.Song, error)
	Trending(ctx context.Context) ([]models.Song, error)
	Search(ctx context.Context, query string) (SearchResult, error)
	Create(ctx context.Context, in CreateInput) (models.Song, error)
	Delete(ctx context.Context, id string) error
}

type service struct {
	store Store
	blobs blob.Store
}

// New constructs a song Service. blobs may be nil when uploads are disabled.
func New(store Store, blobs blob.Store) Service {
	return &service{store: store, blobs: blobs}
}

func (s *service) List(ctx context.Context) ([]models.Song, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListSongs(ctx)
}

func (s *service) Get(ctx context.Context, id string) (models.Song, error) {
	if err := ctx.Err(); err != nil {
		return models.Song{}, err
	}
	return s.store.GetSong(ctx, id)
}

func (s *service) Featured(ctx context.Context) ([]models.Song, error) {
	return s.sample(ctx, FeaturedSize)
}

func (s *service) MadeForYou(ctx context.Context) ([]models.Song, error) {
	return s.sample(ctx, MadeForYouSize)
}

func (s *service) Trending(ctx context.Context) ([]models.Song, error) {
	return s.sample(ctx, TrendingSize)
}

func (s *service) sample(ctx context.Context, n int) ([]models.Song, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.SampleSongs(ctx, n)
}

func (s *service) Search(ctx context.Context, query string) (SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return SearchResult{}, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return SearchResult{}, apperr.BadRequest("Missing query parameter.")
	}

	songs, err := s.store.SearchSongs(ctx, query)
	if err != nil {
		return SearchResult{}, err
	}
	albums, err := s.store.SearchAlbums(ctx, query)
	if err != nil {
		return SearchResult{}, err
	}
	if songs == nil {
		songs = []models.Song{}
	}
	if albums == nil {
		albums = []models.Album{}
	}
	return SearchResult{Songs: songs, Albums: albums}, nil
}

func (s *service) Create(ctx context.Context, in CreateInput) (models.Song, error) {
	if err := ctx.Err(); err != nil {
		return models.Song{}, err
	}
	if s.blobs == nil {
		return models.Song{}, apperr.BadRequest("uploads are not supported")
	}
	if in.Audio == nil || in.Image == nil {
		return models.Song{}, apperr.InvalidInput("Please upload all files")
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Artist = strings.TrimSpace(in.Artist)
	if in.Title == "" || in.Artist == "" {
		return models.Song{}, apperr.InvalidInput("title and artist are required")
	}
	if in.Duration < 0 {
		return models.Song{}, apperr.InvalidInput("duration must not be negative")
	}

	audioURL, err := s.upload(ctx, "songs", *in.Audio)
	if err != nil {
		return models.Song{}, err
	}
	imageURL, err := s.upload(ctx, "images", *in.Image)
	if err != nil {
		return models.Song{}, err
	}

	song := models.Song{
		Title:    in.Title,
		Artist:   in.Artist,
		ImageURL: imageURL,
		AudioURL: audioURL,
		Duration: in.Duration,
	}
	if albumID := strings.TrimSpace(in.AlbumID); albumID != "" {
		song.AlbumID = &albumID
	}
	if err := s.store.CreateSong(ctx, &song); err != nil {
		if errors.Is(err, store.ErrAlbumNotFound) {
			return models.Song{}, apperr.InvalidReference("album %s does not exist", *song.AlbumID)
		}
		return models.Song{}, err
	}
	return song, nil
}

func (s *service) upload(ctx context.Context, folder string, f blob.File) (string, error) {
	url, err := s.blobs.Put(ctx, folder, f)
	if err != nil {
		if errors.Is(err, blob.ErrEmptyFile) {
			return "", apperr.InvalidInput("%s file is empty", folder)
		}
		return "", fmt.Errorf("upload %s: %w", folder, err)
	}
	return url, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.DeleteSong(ctx, id)
}
