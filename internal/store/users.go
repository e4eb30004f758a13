package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"spotifly/internal/models"
)

const userColumns = `id, external_id, full_name, image_url, can_upload, created_at, updated_at`

func scanUser(row rowScanner) (models.User, error) {
	var user models.User
	if err := row.Scan(&user.ID, &user.ExternalID, &user.FullName, &user.ImageURL, &user.CanUpload,
		&user.CreatedAt, &user.UpdatedAt); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// GetUserByExternalID resolves the local user linked to an identity provider id.
func (s *Store) GetUserByExternalID(ctx context.Context, externalID string) (models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE external_id = $1`, externalID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// CreateUser inserts a user. A duplicate external id yields ErrUserExists.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user is required")
	}
	user.ExternalID = strings.TrimSpace(user.ExternalID)
	if user.ExternalID == "" {
		return fmt.Errorf("external id is required")
	}

	user.ID = newID()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (id, external_id, full_name, image_url, can_upload)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		user.ID, user.ExternalID, user.FullName, user.ImageURL, user.CanUpload,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// ListUsersExcept returns every user other than the given external id.
func (s *Store) ListUsersExcept(ctx context.Context, externalID string) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE external_id <> $1
		ORDER BY full_name ASC, id ASC`, externalID)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// SetUploadPermission grants or revokes upload rights for a user.
func (s *Store) SetUploadPermission(ctx context.Context, externalID string, allowed bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET can_upload = $1, updated_at = NOW()
		WHERE external_id = $2`, allowed, externalID)
	if err != nil {
		return fmt.Errorf("set upload permission: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// CountUsers returns the number of registered users.
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM users`)
}
