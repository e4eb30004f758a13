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

const songColumns = `id, title, artist, album_id, image_url, audio_url, duration, created_at, updated_at`

func scanSong(row rowScanner) (models.Song, error) {
	var (
		song    models.Song
		albumID sql.NullString
	)
	if err := row.Scan(&song.ID, &song.Title, &song.Artist, &albumID, &song.ImageURL,
		&song.AudioURL, &song.Duration, &song.CreatedAt, &song.UpdatedAt); err != nil {
		return models.Song{}, err
	}
	song.AlbumID = stringPtr(albumID)
	return song, nil
}

func (s *Store) querySongs(ctx context.Context, query string, args ...any) ([]models.Song, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query songs: %w", err)
	}
	defer rows.Close()

	songs := make([]models.Song, 0)
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("scan song: %w", err)
		}
		songs = append(songs, song)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate songs: %w", err)
	}
	return songs, nil
}

// ListSongs returns every song, newest first.
func (s *Store) ListSongs(ctx context.Context) ([]models.Song, error) {
	return s.querySongs(ctx, `
		SELECT `+songColumns+`
		FROM songs
		ORDER BY created_at DESC, id DESC`)
}

// GetSong returns a single song by id.
func (s *Store) GetSong(ctx context.Context, id string) (models.Song, error) {
	song, err := scanSong(s.db.QueryRowContext(ctx, `
		SELECT `+songColumns+`
		FROM songs
		WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Song{}, ErrSongNotFound
		}
		return models.Song{}, fmt.Errorf("get song: %w", err)
	}
	return song, nil
}

// SampleSongs returns up to n songs chosen uniformly at random without replacement.
func (s *Store) SampleSongs(ctx context.Context, n int) ([]models.Song, error) {
	return s.querySongs(ctx, `
		SELECT `+songColumns+`
		FROM songs
		ORDER BY random()
		LIMIT $1`, n)
}

// SearchSongs matches title or artist case-insensitively as a substring.
func (s *Store) SearchSongs(ctx context.Context, query string) ([]models.Song, error) {
	return s.querySongs(ctx, `
		SELECT `+songColumns+`
		FROM songs
		WHERE title ILIKE $1 OR artist ILIKE $1
		ORDER BY title ASC, id ASC`, likePattern(query))
}

// PopulateSongs resolves song ids to summaries in the order given.
// Ids that do not resolve are omitted.
func (s *Store) PopulateSongs(ctx context.Context, ids []string) ([]models.SongSummary, error) {
	summaries := make([]models.SongSummary, 0, len(ids))
	if len(ids) == 0 {
		return summaries, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.title, s.artist, s.image_url, s.audio_url, s.duration, COALESCE(a.title, '')
		FROM unnest($1::text[]) WITH ORDINALITY AS ref(id, ord)
		JOIN songs s ON s.id = ref.id
		LEFT JOIN albums a ON a.id = s.album_id
		ORDER BY ref.ord`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("populate songs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var song models.SongSummary
		if err := rows.Scan(&song.ID, &song.Title, &song.Artist, &song.ImageURL,
			&song.AudioURL, &song.Duration, &song.AlbumTitle); err != nil {
			return nil, fmt.Errorf("scan song summary: %w", err)
		}
		summaries = append(summaries, song)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate song summaries: %w", err)
	}
	return summaries, nil
}

// CreateSong inserts a song and appends it to its album's track list.
func (s *Store) CreateSong(ctx context.Context, song *models.Song) error {
	if song == nil {
		return fmt.Errorf("song is required")
	}
	song.Title = strings.TrimSpace(song.Title)
	song.Artist = strings.TrimSpace(song.Artist)
	if song.Title == "" || song.Artist == "" {
		return fmt.Errorf("title and artist are required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	song.ID = newID()
	err = tx.QueryRowContext(ctx, `
		INSERT INTO songs (id, title, artist, album_id, image_url, audio_url, duration)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		song.ID, song.Title, song.Artist, nullIfEmpty(song.AlbumID), song.ImageURL, song.AudioURL, song.Duration,
	).Scan(&song.CreatedAt, &song.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrAlbumNotFound
		}
		return fmt.Errorf("insert song: %w", err)
	}

	if song.AlbumID != nil && *song.AlbumID != "" {
		res, err := tx.ExecContext(ctx, `
			UPDATE albums SET song_ids = array_append(song_ids, $1), updated_at = NOW()
			WHERE id = $2`, song.ID, *song.AlbumID)
		if err != nil {
			return fmt.Errorf("attach song to album: %w", err)
		}
		if affected, err := res.RowsAffected(); err == nil && affected == 0 {
			return ErrAlbumNotFound
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	tx = nil
	return nil
}

// DeleteSong removes a song and every album or playlist reference to it.
func (s *Store) DeleteSong(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM songs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete song: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrSongNotFound
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE albums SET song_ids = array_remove(song_ids, $1), updated_at = NOW()
		WHERE $1 = ANY(song_ids)`, id); err != nil {
		return fmt.Errorf("detach song from albums: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE playlists SET song_ids = array_remove(song_ids, $1), updated_at = NOW()
		WHERE $1 = ANY(song_ids)`, id); err != nil {
		return fmt.Errorf("detach song from playlists: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	tx = nil
	return nil
}

// CountSongs returns the number of songs in the catalogue.
func (s *Store) CountSongs(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM songs`)
}

func (s *Store) count(ctx context.Context, query string) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}
