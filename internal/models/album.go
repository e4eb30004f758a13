package models

import "time"

// Album groups songs in track order.
type Album struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title"`
	Artist      string    `json:"artist"`
	ImageURL    string    `json:"imageUrl"`
	ReleaseYear int       `json:"releaseYear"`
	SongIDs     []string  `json:"-"`
	Songs       []Song    `json:"songs"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
