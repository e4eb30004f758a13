package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"spotifly/internal/models"
)

const albumColumns = `id, title, artist, image_url, release_year, song_ids, created_at, updated_at`

func scanAlbum(row rowScanner) (models.Album, error) {
	var album models.Album
	if err := row.Scan(&album.ID, &album.Title, &album.Artist, &album.ImageURL, &album.ReleaseYear,
		pq.Array(&album.SongIDs), &album.CreatedAt, &album.UpdatedAt); err != nil {
		return models.Album{}, err
	}
	if album.SongIDs == nil {
		album.SongIDs = []string{}
	}
	return album, nil
}

func (s *Store) queryAlbums(ctx context.Context, query string, args ...any) ([]models.Album, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query albums: %w", err)
	}
	defer rows.Close()

	albums := make([]models.Album, 0)
	for rows.Next() {
		album, err := scanAlbum(rows)
		if err != nil {
			return nil, fmt.Errorf("scan album: %w", err)
		}
		albums = append(albums, album)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate albums: %w", err)
	}
	return albums, nil
}

// ListAlbums returns every album without its songs, newest first.
func (s *Store) ListAlbums(ctx context.Context) ([]models.Album, error) {
	return s.queryAlbums(ctx, `
		SELECT `+albumColumns+`
		FROM albums
		ORDER BY created_at DESC, id DESC`)
}

// SearchAlbums matches title or artist case-insensitively as a substring.
func (s *Store) SearchAlbums(ctx context.Context, query string) ([]models.Album, error) {
	return s.queryAlbums(ctx, `
		SELECT `+albumColumns+`
		FROM albums
		WHERE title ILIKE $1 OR artist ILIKE $1
		ORDER BY title ASC, id ASC`, likePattern(query))
}

// GetAlbum returns an album with its songs in track order.
func (s *Store) GetAlbum(ctx context.Context, id string) (models.Album, error) {
	album, err := scanAlbum(s.db.QueryRowContext(ctx, `
		SELECT `+albumColumns+`
		FROM albums
		WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Album{}, ErrAlbumNotFound
		}
		return models.Album{}, fmt.Errorf("get album: %w", err)
	}

	songs, err := s.querySongs(ctx, `
		SELECT s.id, s.title, s.artist, s.album_id, s.image_url, s.audio_url, s.duration, s.created_at, s.updated_at
		FROM unnest($1::text[]) WITH ORDINALITY AS ref(id, ord)
		JOIN songs s ON s.id = ref.id
		ORDER BY ref.ord`, pq.Array(album.SongIDs))
	if err != nil {
		return models.Album{}, err
	}
	album.Songs = songs
	return album, nil
}

// CreateAlbum inserts an album with an empty track list.
func (s *Store) CreateAlbum(ctx context.Context, album *models.Album) error {
	if album == nil {
		return fmt.Errorf("album is required")
	}
	album.Title = strings.TrimSpace(album.Title)
	album.Artist = strings.TrimSpace(album.Artist)
	if album.Title == "" || album.Artist == "" {
		return fmt.Errorf("title and artist are required")
	}

	album.ID = newID()
	album.SongIDs = []string{}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO albums (id, title, artist, image_url, release_year)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		album.ID, album.Title, album.Artist, album.ImageURL, album.ReleaseYear,
	).Scan(&album.CreatedAt, &album.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert album: %w", err)
	}
	return nil
}

// DeleteAlbum removes an album and turns its songs into singles.
func (s *Store) DeleteAlbum(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `UPDATE songs SET album_id = NULL, updated_at = NOW() WHERE album_id = $1`, id); err != nil {
		return fmt.Errorf("detach album songs: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM albums WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete album: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrAlbumNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	tx = nil
	return nil
}

// CountAlbums returns the number of albums in the catalogue.
func (s *Store) CountAlbums(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM albums`)
}

// CountArtists returns the number of distinct artists across songs and albums.
func (s *Store) CountArtists(ctx context.Context) (int64, error) {
	return s.count(ctx, `
		SELECT COUNT(*) FROM (
			SELECT artist FROM songs
			UNION
			SELECT artist FROM albums
		) AS artists`)
}
