package users

import (
	"context"
	"errors"
	"strings"

	"spotifly/internal/apperr"
	"spotifly/internal/models"
	"spotifly/internal/store"
)

// DefaultImageURL is the avatar given to users without a profile picture.
const DefaultImageURL = "https://placehold.co/100x100"

// Webhook event types that provision a local user.
const (
	EventUserCreated  = "user.created"
	EventUserSignedIn = "user.signed_in"
)

// Store describes the persistence operations required by the user service.
type Store interface {
	GetUserByExternalID(ctx context.Context, externalID string) (models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	ListUsersExcept(ctx context.Context, externalID string) ([]models.User, error)
}

// Profile is the identity-provider view of a user.
type Profile struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	ImageURL  string `json:"imageUrl"`
	Username  string `json:"username"`
}

// WebhookEvent is a decoded identity-provider webhook delivery.
type WebhookEvent struct {
	Type string `json:"type"`
	Data struct {
		ID        string `json:"id"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		ImageURL  string `json:"image_url"`
		Username  string `json:"username"`
	} `json:"data"`
}

// Service exposes user-related workflows.
type Service interface {
	AuthCallback(ctx context.Context, profile Profile) (models.User, error)
	HandleWebhook(ctx context.Context, event WebhookEvent) error
	List(ctx context.Context, actor string) ([]models.User, error)
	CanUpload(ctx context.Context, actor string) (bool, error)
}

type service struct {
	store Store
}

// New wires a Service backed by the provided Store.
func New(store Store) Service {
	return &service{store: store}
}

func (s *service) AuthCallback(ctx context.Context, profile Profile) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}
	profile.ID = strings.TrimSpace(profile.ID)
	profile.Username = strings.TrimSpace(profile.Username)
	if profile.ID == "" || profile.Username == "" {
		return models.User{}, apperr.BadRequest("id and username are required")
	}

	fullName := profile.Username
	first, last := strings.TrimSpace(profile.FirstName), strings.TrimSpace(profile.LastName)
	if first != "" && last != "" {
		fullName = first + " " + last
	}
	return s.ensureUser(ctx, profile.ID, fullName, profile.ImageURL)
}

func (s *service) HandleWebhook(ctx context.Context, event WebhookEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if event.Type != EventUserCreated && event.Type != EventUserSignedIn {
		return nil
	}
	id := strings.TrimSpace(event.Data.ID)
	if id == "" {
		return apperr.BadRequest("webhook payload is missing the user id")
	}

	fullName := strings.TrimSpace(strings.TrimSpace(event.Data.FirstName) + " " + strings.TrimSpace(event.Data.LastName))
	if fullName == "" {
		fullName = strings.TrimSpace(event.Data.Username)
	}
	_, err := s.ensureUser(ctx, id, fullName, event.Data.ImageURL)
	return err
}

// ensureUser returns the existing user for externalID or creates one. A
// concurrent creation of the same user resolves to the row that won.
func (s *service) ensureUser(ctx context.Context, externalID, fullName, imageURL string) (models.User, error) {
	user, err := s.store.GetUserByExternalID(ctx, externalID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrUserNotFound) {
		return models.User{}, err
	}

	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		imageURL = DefaultImageURL
	}
	user = models.User{ExternalID: externalID, FullName: fullName, ImageURL: imageURL}
	if err := s.store.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			return s.store.GetUserByExternalID(ctx, externalID)
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *service) List(ctx context.Context, actor string) ([]models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListUsersExcept(ctx, actor)
}

func (s *service) CanUpload(ctx context.Context, actor string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	user, err := s.store.GetUserByExternalID(ctx, actor)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return false, apperr.NotFound("User not found")
		}
		return false, err
	}
	return user.CanUpload, nil
}
