package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"spotifly/internal/models"
)

const playlistSelect = `
	SELECT p.id, p.title, p.description, p.image_url, p.creator_id, p.song_ids,
	       p.created_at, p.updated_at, COALESCE(u.full_name, '')
	FROM playlists p
	LEFT JOIN users u ON u.id = p.creator_id`

func scanPlaylist(row rowScanner) (*models.Playlist, error) {
	var (
		playlist    models.Playlist
		creatorName string
	)
	if err := row.Scan(&playlist.ID, &playlist.Title, &playlist.Description, &playlist.ImageURL,
		&playlist.CreatorID, pq.Array(&playlist.SongIDs), &playlist.CreatedAt, &playlist.UpdatedAt,
		&creatorName); err != nil {
		return nil, err
	}
	if playlist.SongIDs == nil {
		playlist.SongIDs = []string{}
	}
	playlist.Creator = &models.Creator{ID: playlist.CreatorID, FullName: creatorName}
	return &playlist, nil
}

// ListPlaylistsByCreator returns a user's playlists, newest first.
func (s *Store) ListPlaylistsByCreator(ctx context.Context, creatorID string) ([]*models.Playlist, error) {
	rows, err := s.db.QueryContext(ctx, playlistSelect+`
		WHERE p.creator_id = $1
		ORDER BY p.created_at DESC, p.id DESC`, creatorID)
	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	defer rows.Close()

	playlists := make([]*models.Playlist, 0)
	for rows.Next() {
		playlist, err := scanPlaylist(rows)
		if err != nil {
			return nil, fmt.Errorf("scan playlist: %w", err)
		}
		playlists = append(playlists, playlist)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate playlists: %w", err)
	}
	return playlists, nil
}

// GetPlaylist returns a single playlist by id.
func (s *Store) GetPlaylist(ctx context.Context, id string) (*models.Playlist, error) {
	playlist, err := scanPlaylist(s.db.QueryRowContext(ctx, playlistSelect+`
		WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlaylistNotFound
		}
		return nil, fmt.Errorf("get playlist: %w", err)
	}
	return playlist, nil
}

// FindPlaylistByTitle returns the creator's playlist with an exact title match.
func (s *Store) FindPlaylistByTitle(ctx context.Context, title, creatorID string) (*models.Playlist, error) {
	playlist, err := scanPlaylist(s.db.QueryRowContext(ctx, playlistSelect+`
		WHERE p.title = $1 AND p.creator_id = $2
		ORDER BY p.created_at ASC
		LIMIT 1`, title, creatorID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlaylistNotFound
		}
		return nil, fmt.Errorf("find playlist: %w", err)
	}
	return playlist, nil
}

// CreatePlaylist inserts a playlist and fills in its id and timestamps.
func (s *Store) CreatePlaylist(ctx context.Context, playlist *models.Playlist) error {
	if playlist == nil {
		return fmt.Errorf("playlist is required")
	}
	if playlist.SongIDs == nil {
		playlist.SongIDs = []string{}
	}

	playlist.ID = newID()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO playlists (id, title, description, image_url, creator_id, song_ids)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		playlist.ID, playlist.Title, playlist.Description, playlist.ImageURL, playlist.CreatorID,
		pq.Array(playlist.SongIDs),
	).Scan(&playlist.CreatedAt, &playlist.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert playlist: %w", err)
	}
	return nil
}

// UpdatePlaylist persists the mutable fields of an existing playlist.
func (s *Store) UpdatePlaylist(ctx context.Context, playlist *models.Playlist) error {
	if playlist == nil {
		return fmt.Errorf("playlist is required")
	}
	if playlist.SongIDs == nil {
		playlist.SongIDs = []string{}
	}

	err := s.db.QueryRowContext(ctx, `
		UPDATE playlists
		SET title = $1, description = $2, image_url = $3, song_ids = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING updated_at`,
		playlist.Title, playlist.Description, playlist.ImageURL, pq.Array(playlist.SongIDs), playlist.ID,
	).Scan(&playlist.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrPlaylistNotFound
		}
		return fmt.Errorf("update playlist: %w", err)
	}
	return nil
}

// DeletePlaylist removes a playlist only when it belongs to creatorID.
func (s *Store) DeletePlaylist(ctx context.Context, id, creatorID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM playlists WHERE id = $1 AND creator_id = $2`, id, creatorID)
	if err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrPlaylistNotFound
	}
	return nil
}
