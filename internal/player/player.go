// Package player is the playback queue engine. Every action is a pure
// function from State to State; randomness comes from an injected Shuffler.
package player

import (
	"slices"
)

// Song is the playable view of a track.
type Song struct {
	ID       string `json:"_id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	ImageURL string `json:"imageUrl"`
	AudioURL string `json:"audioUrl"`
	Duration int    `json:"duration"`
}

// State is the full player state. CurrentIndex is -1 while nothing is queued.
type State struct {
	Queue         []Song
	OriginalQueue []Song
	CurrentIndex  int
	CurrentSong   *Song
	IsPlaying     bool
	IsShuffling   bool
	IsRepeating   bool
}

// Shuffler permutes n elements through swap. *rand.Rand from math/rand/v2 satisfies it.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// New returns the idle state.
func New() State {
	return State{CurrentIndex: -1}
}

// InitializeQueue loads songs and points at the first one without starting playback.
func InitializeQueue(s State, songs []Song) State {
	if len(songs) == 0 {
		return s
	}
	queue := slices.Clone(songs)
	s.Queue = queue
	s.OriginalQueue = slices.Clone(songs)
	s.CurrentIndex = 0
	s.CurrentSong = songPtr(queue[0])
	return s
}

// PlayFrom starts playing songs at start. When shuffling, the queue is
// reshuffled and the index follows the chosen song to its new position.
func PlayFrom(s State, songs []Song, start int, r Shuffler) State {
	if len(songs) == 0 {
		return s
	}
	if start < 0 || start >= len(songs) {
		start = 0
	}
	chosen := songs[start]

	queue := slices.Clone(songs)
	index := start
	if s.IsShuffling {
		shuffle(queue, r)
		index = indexOf(queue, chosen.ID, 0)
	}

	s.Queue = queue
	s.OriginalQueue = slices.Clone(songs)
	s.CurrentIndex = index
	s.CurrentSong = songPtr(queue[index])
	s.IsPlaying = true
	return s
}

// TogglePlay flips play/pause without moving the cursor.
func TogglePlay(s State) State {
	s.IsPlaying = !s.IsPlaying
	return s
}

// PlayNext advances the cursor, wrapping past the end. With repeat on it
// replays the current song.
func PlayNext(s State) State {
	if len(s.Queue) == 0 {
		s.IsPlaying = false
		return s
	}
	if s.IsRepeating && s.CurrentSong != nil {
		s.IsPlaying = true
		return s
	}

	next := (s.CurrentIndex + 1) % len(s.Queue)
	if next < 0 {
		next = 0
	}
	s.CurrentIndex = next
	s.CurrentSong = songPtr(s.Queue[next])
	s.IsPlaying = true
	return s
}

// PlayPrevious moves the cursor back. At the start of the queue it pauses instead.
func PlayPrevious(s State) State {
	prev := s.CurrentIndex - 1
	if prev < 0 || prev >= len(s.Queue) {
		s.IsPlaying = false
		return s
	}
	s.CurrentIndex = prev
	s.CurrentSong = songPtr(s.Queue[prev])
	s.IsPlaying = true
	return s
}

// ToggleShuffle switches between the original order and a fresh shuffle of
// it, keeping the cursor on the current song.
func ToggleShuffle(s State, r Shuffler) State {
	queue := slices.Clone(s.OriginalQueue)
	if !s.IsShuffling {
		shuffle(queue, r)
	}
	s.IsShuffling = !s.IsShuffling
	s.Queue = queue

	if len(queue) == 0 {
		s.CurrentIndex = -1
		return s
	}
	currentID := ""
	if s.CurrentSong != nil {
		currentID = s.CurrentSong.ID
	}
	s.CurrentIndex = indexOf(queue, currentID, 0)
	return s
}

// ToggleRepeat flips repeat mode.
func ToggleRepeat(s State) State {
	s.IsRepeating = !s.IsRepeating
	return s
}

// SetCurrentSong starts playing song, moving the cursor to it when it is queued.
func SetCurrentSong(s State, song *Song) State {
	if song == nil {
		return s
	}
	s.CurrentIndex = indexOf(s.Queue, song.ID, s.CurrentIndex)
	s.CurrentSong = songPtr(*song)
	s.IsPlaying = true
	return s
}

// Activity renders the presence line for s.
func Activity(s State) string {
	if s.IsPlaying && s.CurrentSong != nil {
		return "Playing " + s.CurrentSong.Title + " by " + s.CurrentSong.Artist
	}
	return "Idle"
}

func shuffle(songs []Song, r Shuffler) {
	if r == nil {
		return
	}
	r.Shuffle(len(songs), func(i, j int) { songs[i], songs[j] = songs[j], songs[i] })
}

func indexOf(songs []Song, id string, fallback int) int {
	if id != "" {
		if i := slices.IndexFunc(songs, func(s Song) bool { return s.ID == id }); i >= 0 {
			return i
		}
	}
	return fallback
}

func songPtr(s Song) *Song {
	return &s
}
