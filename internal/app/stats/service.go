package stats

import (
	"context"

	"spotifly/internal/models"
)

// Store exposes the catalogue counters.
type Store interface {
	CountSongs(ctx context.Context) (int64, error)
	CountAlbums(ctx context.Context) (int64, error)
	CountUsers(ctx context.Context) (int64, error)
	CountArtists(ctx context.Context) (int64, error)
}

// Service reports dashboard statistics.
type Service interface {
	Get(ctx context.Context) (models.Stats, error)
}

type service struct {
	store Store
}

// New constructs a Service backed by the provided Store.
func New(store Store) Service {
	return &service{store: store}
}

func (s *service) Get(ctx context.Context) (models.Stats, error) {
	if err := ctx.Err(); err != nil {
		return models.Stats{}, err
	}

	var (
		stats models.Stats
		err   error
	)
	if stats.TotalSongs, err = s.store.CountSongs(ctx); err != nil {
		return models.Stats{}, err
	}
	if stats.TotalAlbums, err = s.store.CountAlbums(ctx); err != nil {
		return models.Stats{}, err
	}
	if stats.TotalUsers, err = s.store.CountUsers(ctx); err != nil {
		return models.Stats{}, err
	}
	if stats.TotalArtists, err = s.store.CountArtists(ctx); err != nil {
		return models.Stats{}, err
	}
	return stats, nil
}
