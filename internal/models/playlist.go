package models

import "time"

// Creator is the public view of a playlist owner.
type Creator struct {
	ID       string `json:"_id"`
	FullName string `json:"fullName"`
}

// Playlist is a user-curated, ordered list of song references.
// SongIDs is the persisted order; Songs is filled in when the playlist is populated.
type Playlist struct {
	ID          string        `json:"_id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	ImageURL    string        `json:"imageUrl"`
	CreatorID   string        `json:"-"`
	Creator     *Creator      `json:"creator"`
	SongIDs     []string      `json:"-"`
	Songs       []SongSummary `json:"songs"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}
