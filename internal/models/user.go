package models

import "time"

// User is a local account linked to an external identity provider id.
type User struct {
	ID         string    `json:"_id"`
	ExternalID string    `json:"clerkId"`
	FullName   string    `json:"fullName"`
	ImageURL   string    `json:"imageUrl"`
	CanUpload  bool      `json:"canUpload"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Message is a direct message between two users, keyed by external ids.
type Message struct {
	ID         string    `json:"_id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Content    string    `json:"content"`
	SongID     *string   `json:"songId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Stats aggregates catalogue counters for the dashboard.
type Stats struct {
	TotalSongs   int64 `json:"totalSongs"`
	TotalAlbums  int64 `json:"totalAlbums"`
	TotalUsers   int64 `json:"totalUsers"`
	TotalArtists int64 `json:"totalArtists"`
}
