package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"spotifly/internal/app/albums"
	"spotifly/internal/app/messages"
	"spotifly/internal/app/playlists"
	"spotifly/internal/app/songs"
	"spotifly/internal/app/users"
	"spotifly/internal/apperr"
	"spotifly/internal/identity"
	"spotifly/internal/logging"
	"spotifly/internal/models"
)

// SongService coordinates track-level operations.
type SongService interface {
	List(ctx context.Context) ([]models.Song, error)
	Get(ctx context.Context, id string) (models.Song, error)
	Featured(ctx context.Context) ([]models.Song, error)
	MadeForYou(ctx context.Context) ([]models.Song, error)
	Trending(ctx context.Context) ([]models.Song, error)
	Search(ctx context.Context, query string) (songs.SearchResult, error)
	Create(ctx context.Context, in songs.CreateInput) (models.Song, error)
	Delete(ctx context.Context, id string) error
}

// AlbumService exposes album-specific workflows.
type AlbumService interface {
	List(ctx context.Context) ([]models.Album, error)
	Get(ctx context.Context, id string) (models.Album, error)
	Create(ctx context.Context, in albums.CreateInput) (models.Album, error)
	Delete(ctx context.Context, id string) error
}

// PlaylistService coordinates playlist-related operations.
type PlaylistService interface {
	ListForUser(ctx context.Context, actor string) ([]*models.Playlist, error)
	Get(ctx context.Context, id string) (*models.Playlist, error)
	CreateOrUpdate(ctx context.Context, actor string, in playlists.Input) (*models.Playlist, error)
	RemoveSongs(ctx context.Context, actor, playlistID string, songIDs []string) (*models.Playlist, error)
	Delete(ctx context.Context, actor, playlistID string) error
}

// UserService captures the user-facing operations needed by the HTTP handlers.
type UserService interface {
	AuthCallback(ctx context.Context, profile users.Profile) (models.User, error)
	HandleWebhook(ctx context.Context, event users.WebhookEvent) error
	List(ctx context.Context, actor string) ([]models.User, error)
	CanUpload(ctx context.Context, actor string) (bool, error)
}

// MessageService covers conversations and song sharing.
type MessageService interface {
	Conversation(ctx context.Context, actor, other string) ([]models.Message, error)
	ShareSong(ctx context.Context, actor string, in messages.ShareInput) (messages.Share, error)
	ResolveShare(ctx context.Context, token string) (models.Song, error)
}

// StatsService reports catalogue totals.
type StatsService interface {
	Get(ctx context.Context) (models.Stats, error)
}

// WebhookVerifier authenticates identity-provider webhook deliveries.
type WebhookVerifier interface {
	Verify(header http.Header, body []byte) error
}

// Services bundles the handlers' collaborators.
type Services struct {
	Songs     SongService
	Albums    AlbumService
	Playlists PlaylistService
	Users     UserService
	Messages  MessageService
	Stats     StatsService
	Identity  identity.Provider
	// Webhook may be nil, in which case the webhook route is not mounted.
	Webhook WebhookVerifier
	// Uploads serves stored blobs under /uploads/ when set.
	Uploads http.Handler
}

// Options tune request handling.
type Options struct {
	// Production hides internal error messages from clients.
	Production bool
	// MaxUploadBytes caps multipart request bodies. Zero uses defaultMaxUploadBytes.
	MaxUploadBytes int64
}

const defaultMaxUploadBytes = 10 << 20

// Server wires HTTP handlers to the underlying services.
type Server struct {
	songs     SongService
	albums    AlbumService
	playlists PlaylistService
	users     UserService
	messages  MessageService
	stats     StatsService
	identity  identity.Provider
	webhook   WebhookVerifier
	uploads   http.Handler
	opts      Options
}

// New configures a Server with the given services.
func New(services Services, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	return &Server{
		songs:     services.Songs,
		albums:    services.Albums,
		playlists: services.Playlists,
		users:     services.Users,
		messages:  services.Messages,
		stats:     services.Stats,
		identity:  services.Identity,
		webhook:   services.Webhook,
		uploads:   services.Uploads,
		opts:      opts,
	}
}

// Routes exposes the HTTP handlers under /api.
func (s *Server) Routes() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	if s.uploads != nil {
		router.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads", s.uploads))
	}

	api := router.PathPrefix("/api").Subrouter()

	// Song routes; fixed paths before {id}
	api.Handle("/songs", s.authenticated(s.handleListSongs)).Methods(http.MethodGet)
	api.HandleFunc("/songs/featured", s.handleFeaturedSongs).Methods(http.MethodGet)
	api.HandleFunc("/songs/made-for-you", s.handleMadeForYouSongs).Methods(http.MethodGet)
	api.HandleFunc("/songs/trending", s.handleTrendingSongs).Methods(http.MethodGet)
	api.HandleFunc("/songs/search", s.handleSearchSongs).Methods(http.MethodGet)
	api.HandleFunc("/songs/share/{token}", s.handleResolveShare).Methods(http.MethodGet)
	api.HandleFunc("/songs/{id}", s.handleGetSong).Methods(http.MethodGet)

	// Album routes
	api.HandleFunc("/albums", s.handleListAlbums).Methods(http.MethodGet)
	api.HandleFunc("/albums/{id}", s.handleGetAlbum).Methods(http.MethodGet)

	// Playlist routes
	api.Handle("/playlists", s.authenticated(s.handleListPlaylists)).Methods(http.MethodGet)
	api.Handle("/playlists/cr", s.authenticated(s.handleCreateOrUpdatePlaylist)).Methods(http.MethodPost, http.MethodPut)
	api.Handle("/playlists/{id}", s.authenticated(s.handleGetPlaylist)).Methods(http.MethodGet)
	api.Handle("/playlists/{id}", s.authenticated(s.handleDeletePlaylist)).Methods(http.MethodDelete)
	api.Handle("/playlists/{id}/songs", s.authenticated(s.handleRemovePlaylistSongs)).Methods(http.MethodPatch)

	// User and messaging routes
	api.Handle("/users", s.authenticated(s.handleListUsers)).Methods(http.MethodGet)
	api.Handle("/users/{id}/messages", s.authenticated(s.handleConversation)).Methods(http.MethodGet)
	api.Handle("/share", s.authenticated(s.handleShareSong)).Methods(http.MethodPost)

	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)

	// Auth routes
	api.HandleFunc("/auth/callback", s.handleAuthCallback).Methods(http.MethodPost)
	if s.webhook != nil {
		api.HandleFunc("/auth/webhook", s.handleWebhook).Methods(http.MethodPost)
	}

	// Admin routes
	api.Handle("/admin/check", s.uploader(s.handleAdminCheck)).Methods(http.MethodGet)
	api.Handle("/admin/songs", s.uploader(s.handleCreateSong)).Methods(http.MethodPost)
	api.Handle("/admin/songs/{id}", s.uploader(s.handleDeleteSong)).Methods(http.MethodDelete)
	api.Handle("/admin/albums", s.uploader(s.handleCreateAlbum)).Methods(http.MethodPost)
	api.Handle("/admin/albums/{id}", s.uploader(s.handleDeleteAlbum)).Methods(http.MethodDelete)
	api.Handle("/admin/playlists/{id}", s.authenticated(s.handleDeletePlaylist)).Methods(http.MethodDelete)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "route not found"})
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})

	return router
}

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// writeError maps err onto a status code and JSON body. Server errors are
// logged and, in production, reported without detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.Status(err)
	message := err.Error()

	if status >= http.StatusInternalServerError {
		logging.WithContext(r.Context()).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		if s.opts.Production {
			message = http.StatusText(http.StatusInternalServerError)
		}
	}
	writeJSON(w, status, errorResponse{Error: message})
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.BadRequest("invalid JSON payload")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func parseBearerToken(header string) string {
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func pathParam(r *http.Request, name string) string {
	return strings.TrimSpace(mux.Vars(r)[name])
}
