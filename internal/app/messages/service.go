package messages

import (
	"context"
	"errors"
	"strings"

	"spotifly/internal/apperr"
	"spotifly/internal/models"
	"spotifly/internal/sharelink"
)

// Store describes the persistence needed for direct messages.
type Store interface {
	CreateMessage(ctx context.Context, msg *models.Message) error
	ListConversation(ctx context.Context, a, b string) ([]models.Message, error)
	GetSong(ctx context.Context, id string) (models.Song, error)
}

// Sealer turns song ids into share tokens and back.
type Sealer interface {
	Seal(songID string) (string, error)
	Open(token string) (string, error)
}

// ShareInput is a request to send a song to another user.
type ShareInput struct {
	SongID     string `json:"songId"`
	ReceiverID string `json:"receiverId"`
	Message    string `json:"message"`
}

// Share is the outcome of sharing a song.
type Share struct {
	Message models.Message `json:"message"`
	Token   string         `json:"token"`
}

// Service exposes messaging and song sharing.
type Service interface {
	Conversation(ctx context.Context, actor, other string) ([]models.Message, error)
	ShareSong(ctx context.Context, actor string, in ShareInput) (Share, error)
	ResolveShare(ctx context.Context, token string) (models.Song, error)
}

type service struct {
	store  Store
	sealer Sealer
}

// New wires a Service backed by the provided Store and Sealer.
func New(store Store, sealer Sealer) Service {
	return &service{store: store, sealer: sealer}
}

func (s *service) Conversation(ctx context.Context, actor, other string) ([]models.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(other) == "" {
		return nil, apperr.BadRequest("user id is required")
	}
	return s.store.ListConversation(ctx, actor, other)
}

func (s *service) ShareSong(ctx context.Context, actor string, in ShareInput) (Share, error) {
	if err := ctx.Err(); err != nil {
		return Share{}, err
	}
	in.SongID = strings.TrimSpace(in.SongID)
	in.ReceiverID = strings.TrimSpace(in.ReceiverID)
	if in.SongID == "" || in.ReceiverID == "" {
		return Share{}, apperr.BadRequest("songId and receiverId are required")
	}

	song, err := s.store.GetSong(ctx, in.SongID)
	if err != nil {
		return Share{}, err
	}
	token, err := s.sealer.Seal(song.ID)
	if err != nil {
		return Share{}, err
	}

	content := strings.TrimSpace(in.Message)
	if content == "" {
		content = "Check out " + song.Title + " by " + song.Artist
	}
	songID := song.ID
	msg := models.Message{
		SenderID:   actor,
		ReceiverID: in.ReceiverID,
		Content:    content,
		SongID:     &songID,
	}
	if err := s.store.CreateMessage(ctx, &msg); err != nil {
		return Share{}, err
	}
	return Share{Message: msg, Token: token}, nil
}

func (s *service) ResolveShare(ctx context.Context, token string) (models.Song, error) {
	if err := ctx.Err(); err != nil {
		return models.Song{}, err
	}
	songID, err := s.sealer.Open(token)
	if err != nil {
		if errors.Is(err, sharelink.ErrInvalidToken) {
			return models.Song{}, apperr.BadRequest("invalid share link")
		}
		return models.Song{}, err
	}
	return s.store.GetSong(ctx, songID)
}
