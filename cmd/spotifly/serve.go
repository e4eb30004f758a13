package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"spotifly/internal/app/albums"
	"spotifly/internal/app/messages"
	"spotifly/internal/app/playlists"
	"spotifly/internal/app/songs"
	"spotifly/internal/app/stats"
	"spotifly/internal/app/users"
	"spotifly/internal/blob"
	"spotifly/internal/config"
	"spotifly/internal/http/middleware"
	"spotifly/internal/httpapi"
	"spotifly/internal/identity"
	"spotifly/internal/logging"
	"spotifly/internal/sharelink"
	"spotifly/internal/store"
	"spotifly/internal/store/memstore"
)

const shutdownTimeout = 30 * time.Second

var (
	serveMemory bool
	serveSeed   bool
	serveAdmin  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(serveMemory)
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveMemory, "memory", false, "keep all data in memory instead of PostgreSQL")
	serveCmd.Flags().BoolVar(&serveSeed, "seed", false, "load the demo catalogue on startup")
	serveCmd.Flags().StringVar(&serveAdmin, "admin", "", "external user id to grant upload permission on startup")
}

// dataStore is everything the services need from persistence.
type dataStore interface {
	songs.Store
	albums.Store
	playlists.Store
	users.Store
	messages.Store
	stats.Store
	seedStore
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	logging.SetGlobalLogger(logger)

	data, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if serveSeed {
		if err := seedCatalog(ctx, data); err != nil {
			return err
		}
	}
	if serveAdmin != "" {
		if err := grantUploader(ctx, data, serveAdmin); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(cfg.Storage.UploadDir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	blobs := blob.NewFSStore(afero.NewOsFs(), cfg.Storage.UploadDir, cfg.Server.PublicBaseURL+"/uploads")

	sealer, err := sharelink.NewSealer(cfg.Security.ShareSecret)
	if err != nil {
		return fmt.Errorf("share links: %w", err)
	}

	services := httpapi.Services{
		Songs:     songs.New(data, blobs),
		Albums:    albums.New(data, blobs),
		Playlists: playlists.New(data, blobs),
		Users:     users.New(data),
		Messages:  messages.New(data, sealer),
		Stats:     stats.New(data),
		Identity:  identity.NewJWTProvider(cfg.Security.JWTSecret, cfg.Security.JWTIssuer),
		Uploads:   blobs.Handler(),
	}
	if cfg.Security.WebhookSecret != "" {
		verifier, err := identity.NewWebhookVerifier(cfg.Security.WebhookSecret)
		if err != nil {
			return fmt.Errorf("webhook verifier: %w", err)
		}
		services.Webhook = verifier
	} else {
		log.Warn().Msg("WEBHOOK_SECRET not set, identity webhooks disabled")
	}

	api := httpapi.New(services, httpapi.Options{
		Production:     cfg.IsProduction(),
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
	})

	var handler http.Handler = api.Routes()
	if cfg.RateLimit.RPS > 0 {
		handler = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst).Middleware()(handler)
	}
	handler = middleware.CORS(cfg.CORS.AllowedOrigins)(handler)
	handler = middleware.RequestLogging()(handler)
	handler = middleware.Recovery()(handler)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	janitor := blob.NewJanitor(blobs, cfg.Storage.CleanupMaxAge, logger)
	go janitor.Run(ctx, cfg.Storage.CleanupInterval)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Bool("memory", cfg.InMemory).Msg("API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openStore returns the configured store and a function releasing it.
func openStore(ctx context.Context, cfg *config.Config) (dataStore, func(), error) {
	if cfg.InMemory {
		log.Warn().Msg("running with the in-memory store, data is lost on exit")
		return memstore.New(), func() {}, nil
	}

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return store.New(db), func() { _ = db.Close() }, nil
}
