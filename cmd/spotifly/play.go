package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"spotifly/internal/client"
	"spotifly/internal/models"
	"spotifly/internal/player"
	"spotifly/internal/presence"
)

var (
	playAPI      string
	playToken    string
	playPlaylist string
	playUser     string
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Drive the playback queue against a running API",
	Long: `Play loads the featured songs (or a playlist with --playlist) from the API and
reads queue commands from stdin: play [n], pause, next, prev, shuffle, repeat, queue, quit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		opts := []client.Option{}
		if playToken != "" {
			opts = append(opts, client.WithToken(playToken))
		}
		music := client.NewMusicStore(client.New(playAPI, opts...))

		queue, err := loadQueue(ctx, music, playPlaylist)
		if err != nil {
			return err
		}
		if len(queue) == 0 {
			return errors.New("nothing to play")
		}

		seed := uint64(time.Now().UnixNano())
		sess := newPlaySession(queue, rand.New(rand.NewPCG(seed, seed>>1)), presence.NewLogChannel(log.Logger), playUser, cmd.OutOrStdout())
		return sess.run(ctx, cmd.InOrStdin())
	},
}

func init() {
	playCmd.Flags().StringVar(&playAPI, "api", "http://localhost:5000/api", "API base URL")
	playCmd.Flags().StringVar(&playToken, "token", os.Getenv("SPOTIFLY_TOKEN"), "session token (defaults to $SPOTIFLY_TOKEN)")
	playCmd.Flags().StringVar(&playPlaylist, "playlist", "", "playlist id to queue instead of the featured songs")
	playCmd.Flags().StringVar(&playUser, "user", "cli", "user id reported to the presence channel")
}

func loadQueue(ctx context.Context, music *client.MusicStore, playlistID string) ([]player.Song, error) {
	if playlistID != "" {
		if err := music.FetchPlaylist(ctx, playlistID); err != nil {
			return nil, fmt.Errorf("load playlist: %w", err)
		}
		pl := music.Snapshot().CurrentPlaylist
		return lo.Map(pl.Songs, func(s models.SongSummary, _ int) player.Song {
			return player.Song{ID: s.ID, Title: s.Title, Artist: s.Artist, ImageURL: s.ImageURL, AudioURL: s.AudioURL, Duration: s.Duration}
		}), nil
	}

	if err := music.FetchFeaturedSongs(ctx); err != nil {
		return nil, fmt.Errorf("load featured songs: %w", err)
	}
	return lo.Map(music.Snapshot().FeaturedSongs, func(s models.Song, _ int) player.Song {
		return player.Song{ID: s.ID, Title: s.Title, Artist: s.Artist, ImageURL: s.ImageURL, AudioURL: s.AudioURL, Duration: s.Duration}
	}), nil
}

type playSession struct {
	songs    []player.Song
	state    player.State
	shuffler player.Shuffler
	presence presence.Channel
	user     string
	out      io.Writer
}

func newPlaySession(songs []player.Song, shuffler player.Shuffler, ch presence.Channel, user string, out io.Writer) *playSession {
	return &playSession{
		songs:    songs,
		state:    player.InitializeQueue(player.New(), songs),
		shuffler: shuffler,
		presence: ch,
		user:     user,
		out:      out,
	}
}

func (p *playSession) run(ctx context.Context, in io.Reader) error {
	p.printQueue()
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(p.out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		quit, err := p.exec(ctx, scanner.Text())
		if quit || ctx.Err() != nil {
			return nil
		}
		if err != nil {
			fmt.Fprintln(p.out, err)
		}
	}
}

// exec applies one command line to the session and publishes the resulting activity.
func (p *playSession) exec(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	switch strings.ToLower(fields[0]) {
	case "play":
		if len(fields) > 1 {
			n, err := strconv.Atoi(fields[1])
			if err != nil || n < 1 || n > len(p.songs) {
				return false, fmt.Errorf("track number must be between 1 and %d", len(p.songs))
			}
			p.state = player.PlayFrom(p.state, p.songs, n-1, p.shuffler)
		} else if !p.state.IsPlaying {
			p.state = player.TogglePlay(p.state)
		}
	case "pause", "toggle":
		p.state = player.TogglePlay(p.state)
	case "next", "n":
		p.state = player.PlayNext(p.state)
	case "prev", "p":
		p.state = player.PlayPrevious(p.state)
	case "shuffle":
		p.state = player.ToggleShuffle(p.state, p.shuffler)
		fmt.Fprintf(p.out, "shuffle %s\n", onOff(p.state.IsShuffling))
	case "repeat":
		p.state = player.ToggleRepeat(p.state)
		fmt.Fprintf(p.out, "repeat %s\n", onOff(p.state.IsRepeating))
	case "queue", "q":
		p.printQueue()
		return false, nil
	case "quit", "exit":
		p.state.IsPlaying = false
		return true, p.publish(ctx)
	default:
		return false, fmt.Errorf("unknown command %q", fields[0])
	}

	fmt.Fprintln(p.out, player.Activity(p.state))
	return false, p.publish(ctx)
}

func (p *playSession) publish(ctx context.Context) error {
	return p.presence.UpdateActivity(ctx, p.user, player.Activity(p.state))
}

func (p *playSession) printQueue() {
	for i, song := range p.state.Queue {
		marker := " "
		if i == p.state.CurrentIndex {
			marker = "*"
		}
		fmt.Fprintf(p.out, "%s %2d. %s - %s\n", marker, i+1, song.Artist, song.Title)
	}
}

func onOff(v bool) string {
	return lo.Ternary(v, "on", "off")
}
