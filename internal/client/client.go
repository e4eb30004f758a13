// Package client talks to the spotifly HTTP API and keeps a local cache of
// what it has fetched.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"spotifly/internal/models"
)

// APIError is a non-2xx response. Message carries the server's error text.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: %s", http.StatusText(e.Status))
	}
	return fmt.Sprintf("api error: %d %s", e.Status, e.Message)
}

// SearchResult mirrors the search endpoint payload.
type SearchResult struct {
	Songs  []models.Song  `json:"songs"`
	Albums []models.Album `json:"albums"`
}

// PlaylistRequest is the JSON body of a create-or-update call.
type PlaylistRequest struct {
	PlaylistID  string   `json:"playlistId,omitempty"`
	Title       string   `json:"title"`
	Description *string  `json:"description,omitempty"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	SongIDs     []string `json:"songIds"`
}

// Client is a thin typed wrapper over the REST endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	mu         sync.RWMutex
	token      string
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sets the bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a client for the API rooted at baseURL, e.g. http://localhost:5000/api.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken swaps the bearer token, e.g. after a session refresh.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// doRequest sends payload as JSON (when non-nil) and decodes the response into result (when non-nil).
func (c *Client) doRequest(ctx context.Context, method, endpoint string, params url.Values, payload, result any) error {
	apiURL := c.baseURL + endpoint
	if len(params) > 0 {
		apiURL += "?" + params.Encode()
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		apiErr := &APIError{Status: resp.StatusCode}
		var decoded struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &decoded) == nil {
			apiErr.Message = decoded.Error
			if apiErr.Message == "" {
				apiErr.Message = decoded.Message
			}
		}
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}

	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, endpoint string, result any) error {
	return c.doRequest(ctx, http.MethodGet, endpoint, nil, nil, result)
}

// Songs lists every song. Requires a token.
func (c *Client) Songs(ctx context.Context) ([]models.Song, error) {
	var out []models.Song
	err := c.get(ctx, "/songs", &out)
	return out, err
}

// FeaturedSongs returns the featured sample.
func (c *Client) FeaturedSongs(ctx context.Context) ([]models.Song, error) {
	var out []models.Song
	err := c.get(ctx, "/songs/featured", &out)
	return out, err
}

// MadeForYouSongs returns the made-for-you sample.
func (c *Client) MadeForYouSongs(ctx context.Context) ([]models.Song, error) {
	var out []models.Song
	err := c.get(ctx, "/songs/made-for-you", &out)
	return out, err
}

// TrendingSongs returns the trending sample.
func (c *Client) TrendingSongs(ctx context.Context) ([]models.Song, error) {
	var out []models.Song
	err := c.get(ctx, "/songs/trending", &out)
	return out, err
}

// Song fetches one song.
func (c *Client) Song(ctx context.Context, id string) (models.Song, error) {
	var out models.Song
	err := c.get(ctx, "/songs/"+url.PathEscape(id), &out)
	return out, err
}

// Search matches songs and albums against query.
func (c *Client) Search(ctx context.Context, query string) (SearchResult, error) {
	var out SearchResult
	err := c.doRequest(ctx, http.MethodGet, "/songs/search", url.Values{"query": []string{query}}, nil, &out)
	return out, err
}

// Albums lists every album.
func (c *Client) Albums(ctx context.Context) ([]models.Album, error) {
	var out []models.Album
	err := c.get(ctx, "/albums", &out)
	return out, err
}

// Album fetches one album with its songs.
func (c *Client) Album(ctx context.Context, id string) (models.Album, error) {
	var out models.Album
	err := c.get(ctx, "/albums/"+url.PathEscape(id), &out)
	return out, err
}

// Playlists lists the caller's playlists.
func (c *Client) Playlists(ctx context.Context) ([]models.Playlist, error) {
	var out []models.Playlist
	err := c.get(ctx, "/playlists", &out)
	return out, err
}

// Playlist fetches one playlist with its songs.
func (c *Client) Playlist(ctx context.Context, id string) (models.Playlist, error) {
	var out models.Playlist
	err := c.get(ctx, "/playlists/"+url.PathEscape(id), &out)
	return out, err
}

// CreateOrUpdatePlaylist creates a playlist or merges songs into an existing one.
func (c *Client) CreateOrUpdatePlaylist(ctx context.Context, req PlaylistRequest) (models.Playlist, error) {
	if req.SongIDs == nil {
		req.SongIDs = []string{}
	}
	var out models.Playlist
	err := c.doRequest(ctx, http.MethodPost, "/playlists/cr", nil, req, &out)
	return out, err
}

// RemoveSongsFromPlaylist drops songIDs from the playlist and returns the result.
func (c *Client) RemoveSongsFromPlaylist(ctx context.Context, playlistID string, songIDs []string) (models.Playlist, error) {
	var out struct {
		Playlist models.Playlist `json:"playlist"`
	}
	payload := struct {
		SongIDs []string `json:"songIds"`
	}{SongIDs: songIDs}
	err := c.doRequest(ctx, http.MethodPatch, "/playlists/"+url.PathEscape(playlistID)+"/songs", nil, payload, &out)
	return out.Playlist, err
}

// DeletePlaylist removes one of the caller's playlists.
func (c *Client) DeletePlaylist(ctx context.Context, id string) error {
	return c.doRequest(ctx, http.MethodDelete, "/admin/playlists/"+url.PathEscape(id), nil, nil, nil)
}

// DeleteSong removes a song. Requires upload permission.
func (c *Client) DeleteSong(ctx context.Context, id string) error {
	return c.doRequest(ctx, http.MethodDelete, "/admin/songs/"+url.PathEscape(id), nil, nil, nil)
}

// DeleteAlbum removes an album. Requires upload permission.
func (c *Client) DeleteAlbum(ctx context.Context, id string) error {
	return c.doRequest(ctx, http.MethodDelete, "/admin/albums/"+url.PathEscape(id), nil, nil, nil)
}

// Stats returns the catalogue totals.
func (c *Client) Stats(ctx context.Context) (models.Stats, error) {
	var out models.Stats
	err := c.get(ctx, "/stats", &out)
	return out, err
}
