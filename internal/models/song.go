package models

import "time"

// Song is a catalogue track. AlbumID is nil for singles.
type Song struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	AlbumID   *string   `json:"albumId"`
	ImageURL  string    `json:"imageUrl"`
	AudioURL  string    `json:"audioUrl"`
	Duration  int       `json:"duration"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SongSummary is the populated form of a song reference inside a playlist.
type SongSummary struct {
	ID         string `json:"_id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	ImageURL   string `json:"imageUrl"`
	AudioURL   string `json:"audioUrl"`
	Duration   int    `json:"duration"`
	AlbumTitle string `json:"albumTitle,omitempty"`
}
