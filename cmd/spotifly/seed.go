package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"spotifly/internal/config"
	"spotifly/internal/models"
	"spotifly/internal/store"
)

var seedAdmin string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the demo catalogue into the database",
	Long:  `Seed inserts a small demo catalogue when no albums exist yet. With --admin it also grants upload permission to the given identity-provider user.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbCfg, err := config.LoadDatabase()
		if err != nil {
			return err
		}
		db, err := openDatabase(cmd.Context(), dbCfg)
		if err != nil {
			return err
		}
		defer db.Close()

		st := store.New(db)
		if err := seedCatalog(cmd.Context(), st); err != nil {
			return err
		}
		if seedAdmin != "" {
			return grantUploader(cmd.Context(), st, seedAdmin)
		}
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedAdmin, "admin", "", "external user id to grant upload permission")
}

type seedStore interface {
	ListAlbums(ctx context.Context) ([]models.Album, error)
	CreateAlbum(ctx context.Context, album *models.Album) error
	CreateSong(ctx context.Context, song *models.Song) error
	GetUserByExternalID(ctx context.Context, externalID string) (models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	SetUploadPermission(ctx context.Context, externalID string, allowed bool) error
}

type seedTrack struct {
	Title    string
	Duration int
}

type seedAlbum struct {
	Artist string
	Title  string
	Year   int
	Tracks []seedTrack
}

var demoAlbums = []seedAlbum{
	{
		Artist: "Boards of Canada",
		Title:  "Music Has the Right to Children",
		Year:   1998,
		Tracks: []seedTrack{{"Turquoise Hexagon Sun", 307}, {"Roygbiv", 151}, {"Aquarius", 353}},
	},
	{
		Artist: "Massive Attack",
		Title:  "Mezzanine",
		Year:   1998,
		Tracks: []seedTrack{{"Angel", 379}, {"Teardrop", 330}, {"Inertia Creeps", 357}},
	},
	{
		Artist: "Portishead",
		Title:  "Dummy",
		Year:   1994,
		Tracks: []seedTrack{{"Mysterons", 302}, {"Sour Times", 254}, {"Glory Box", 301}},
	},
	{
		Artist: "Radiohead",
		Title:  "OK Computer",
		Year:   1997,
		Tracks: []seedTrack{{"Airbag", 284}, {"Paranoid Android", 383}, {"No Surprises", 229}},
	},
	{
		Artist: "Nightmares on Wax",
		Title:  "Carboot Soul",
		Year:   1999,
		Tracks: []seedTrack{{"Les Nuits", 423}, {"Morse", 309}, {"Finer", 260}},
	},
	{
		Artist: "Bonobo",
		Title:  "Migration",
		Year:   2017,
		Tracks: []seedTrack{{"Migration", 319}, {"Break Apart", 296}, {"Kerala", 247}},
	},
}

// seedCatalog inserts demoAlbums with their tracks unless the catalogue already has albums.
func seedCatalog(ctx context.Context, st seedStore) error {
	existing, err := st.ListAlbums(ctx)
	if err != nil {
		return fmt.Errorf("list albums: %w", err)
	}
	if len(existing) > 0 {
		log.Info().Int("albums", len(existing)).Msg("catalogue already seeded")
		return nil
	}

	for _, demo := range demoAlbums {
		album := models.Album{
			Title:       demo.Title,
			Artist:      demo.Artist,
			ReleaseYear: demo.Year,
		}
		if err := st.CreateAlbum(ctx, &album); err != nil {
			return fmt.Errorf("seed album %q: %w", demo.Title, err)
		}
		for _, track := range demo.Tracks {
			albumID := album.ID
			song := models.Song{
				Title:    track.Title,
				Artist:   demo.Artist,
				AlbumID:  &albumID,
				Duration: track.Duration,
			}
			if err := st.CreateSong(ctx, &song); err != nil {
				return fmt.Errorf("seed song %q: %w", track.Title, err)
			}
		}
	}
	log.Info().Int("albums", len(demoAlbums)).Msg("demo catalogue seeded")
	return nil
}

// grantUploader makes sure a user with externalID exists and may upload.
func grantUploader(ctx context.Context, st seedStore, externalID string) error {
	if _, err := st.GetUserByExternalID(ctx, externalID); err != nil {
		if !errors.Is(err, store.ErrUserNotFound) {
			return fmt.Errorf("lookup user: %w", err)
		}
		user := models.User{ExternalID: externalID, FullName: externalID}
		if err := st.CreateUser(ctx, &user); err != nil && !errors.Is(err, store.ErrUserExists) {
			return fmt.Errorf("create user: %w", err)
		}
	}
	if err := st.SetUploadPermission(ctx, externalID, true); err != nil {
		return fmt.Errorf("grant upload permission: %w", err)
	}
	log.Info().Str("user_id", externalID).Msg("upload permission granted")
	return nil
}
