package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"spotifly/internal/apperr"
)

var (
	// ErrSongNotFound is returned when a song id does not resolve.
	ErrSongNotFound = fmt.Errorf("song %w", apperr.ErrNotFound)
	// ErrAlbumNotFound is returned when an album id does not resolve.
	ErrAlbumNotFound = fmt.Errorf("album %w", apperr.ErrNotFound)
	// ErrPlaylistNotFound is returned when a playlist id does not resolve or is owned by someone else.
	ErrPlaylistNotFound = fmt.Errorf("playlist %w", apperr.ErrNotFound)
	// ErrUserNotFound is returned when no local user matches an identity.
	ErrUserNotFound = fmt.Errorf("user %w", apperr.ErrNotFound)
	// ErrUserExists signals the external id is already linked to a user.
	ErrUserExists = errors.New("user already exists")
)

// Store provides persistence backed by Postgres.
type Store struct {
	db *sql.DB
}

// New sets up a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func newID() string {
	return uuid.NewString()
}

func isUniqueViolation(err error) bool {
	return hasSQLState(err, "23505")
}

func isForeignKeyViolation(err error) bool {
	return hasSQLState(err, "23503")
}

func hasSQLState(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

// likePattern turns free text into an ILIKE substring pattern with wildcards escaped.
func likePattern(query string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(query) + "%"
}

func nullIfEmpty(value *string) any {
	if value == nil || *value == "" {
		return nil
	}
	return *value
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	v := value.String
	return &v
}
