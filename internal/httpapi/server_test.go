package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"spotifly/internal/app/albums"
	"spotifly/internal/app/messages"
	"spotifly/internal/app/playlists"
	"spotifly/internal/app/songs"
	"spotifly/internal/app/stats"
	"spotifly/internal/app/users"
	"spotifly/internal/blob"
	"spotifly/internal/identity"
	"spotifly/internal/models"
	"spotifly/internal/sharelink"
	"spotifly/internal/store/memstore"
)

const webhookSecret = "test-webhook-secret"

// stubIdentity maps bearer tokens straight to subjects.
type stubIdentity map[string]string

func (s stubIdentity) Verify(_ context.Context, token string) (identity.Identity, error) {
	subject, ok := s[token]
	if !ok {
		return identity.Identity{}, identity.ErrInvalidToken
	}
	return identity.Identity{Subject: subject}, nil
}

type failingStats struct{}

func (failingStats) Get(context.Context) (models.Stats, error) {
	return models.Stats{}, errors.New("connection refused")
}

type fixture struct {
	store    *memstore.Store
	handler  http.Handler
	verifier *identity.WebhookVerifier
	songs    []models.Song
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	ctx := context.Background()

	st := memstore.New()
	blobs := blob.NewFSStore(afero.NewMemMapFs(), "uploads", "http://api.test/uploads")
	sealer, err := sharelink.NewSealer("share-secret-for-tests")
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	verifier, err := identity.NewWebhookVerifier(webhookSecret)
	if err != nil {
		t.Fatalf("NewWebhookVerifier: %v", err)
	}

	for _, u := range []models.User{
		{ExternalID: "user_alice", FullName: "Alice Doe"},
		{ExternalID: "user_bob", FullName: "Bob Roe"},
	} {
		user := u
		if err := st.CreateUser(ctx, &user); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
	}

	var seeded []models.Song
	for _, title := range []string{"Blue", "Green"} {
		song := models.Song{Title: title, Artist: "Colours", ImageURL: "https://img.test/" + strings.ToLower(title)}
		if err := st.CreateSong(ctx, &song); err != nil {
			t.Fatalf("CreateSong: %v", err)
		}
		seeded = append(seeded, song)
	}

	srv := New(Services{
		Songs:     songs.New(st, blobs),
		Albums:    albums.New(st, blobs),
		Playlists: playlists.New(st, blobs),
		Users:     users.New(st),
		Messages:  messages.New(st, sealer),
		Stats:     stats.New(st),
		Identity:  stubIdentity{"alice-token": "user_alice", "bob-token": "user_bob"},
		Webhook:   verifier,
		Uploads:   blobs.Handler(),
	}, opts)

	return &fixture{store: st, handler: srv.Routes(), verifier: verifier, songs: seeded}
}

func (f *fixture) do(t *testing.T, method, target, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) doJSON(t *testing.T, method, target, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}
	return f.do(t, method, target, token, &body, "application/json")
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[errorResponse](t, rec).Error
}

func TestHealth(t *testing.T) {
	f := newFixture(t, Options{})
	rec := f.do(t, http.MethodGet, "/health", "", nil, "")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("unexpected health response %d %q", rec.Code, rec.Body.String())
	}
}

func TestListSongsRequiresAuth(t *testing.T) {
	f := newFixture(t, Options{})

	if rec := f.do(t, http.MethodGet, "/api/songs", "", nil, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/api/songs", "forged", nil, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid token, got %d", rec.Code)
	}

	rec := f.do(t, http.MethodGet, "/api/songs", "alice-token", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decode[[]models.Song](t, rec); len(got) != 2 {
		t.Fatalf("expected 2 songs, got %d", len(got))
	}
}

func TestFeaturedSongsArePublic(t *testing.T) {
	f := newFixture(t, Options{})
	rec := f.do(t, http.MethodGet, "/api/songs/featured", "", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decode[[]models.Song](t, rec); len(got) != 2 {
		t.Fatalf("expected every song when fewer than the sample size exist, got %d", len(got))
	}
}

func TestGetSongNotFound(t *testing.T) {
	f := newFixture(t, Options{})
	rec := f.do(t, http.MethodGet, "/api/songs/missing", "", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSearchSongs(t *testing.T) {
	f := newFixture(t, Options{})

	rec := f.do(t, http.MethodGet, "/api/songs/search?query=", "", nil, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank query, got %d", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != "Missing query parameter." {
		t.Fatalf("unexpected message %q", msg)
	}

	rec = f.do(t, http.MethodGet, "/api/songs/search?query=zzz", "", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for no match, got %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != `{"songs":[],"albums":[]}` {
		t.Fatalf("expected empty lists, got %s", body)
	}

	rec = f.do(t, http.MethodGet, "/api/songs/search?query=blu", "", nil, "")
	result := decode[songs.SearchResult](t, rec)
	if len(result.Songs) != 1 || result.Songs[0].Title != "Blue" {
		t.Fatalf("unexpected search result %+v", result.Songs)
	}
}

func TestCreateOrUpdatePlaylistMergesByTitle(t *testing.T) {
	f := newFixture(t, Options{})

	rec := f.doJSON(t, http.MethodPost, "/api/playlists/cr", "alice-token", map[string]any{
		"title":   "Road trip",
		"songIds": []string{f.songs[0].ID},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[models.Playlist](t, rec)
	if created.Creator == nil || created.Creator.FullName != "Alice Doe" {
		t.Fatalf("expected creator to be populated, got %+v", created.Creator)
	}
	if created.ImageURL != f.songs[0].ImageURL {
		t.Fatalf("expected first song image, got %q", created.ImageURL)
	}

	rec = f.doJSON(t, http.MethodPut, "/api/playlists/cr", "alice-token", map[string]any{
		"title":   "Road trip",
		"songIds": []string{f.songs[1].ID, f.songs[0].ID},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	merged := decode[models.Playlist](t, rec)
	if merged.ID != created.ID {
		t.Fatalf("expected the same playlist to be updated, got %q and %q", created.ID, merged.ID)
	}
	if len(merged.Songs) != 2 || merged.Songs[0].ID != f.songs[0].ID || merged.Songs[1].ID != f.songs[1].ID {
		t.Fatalf("expected existing order with new ids appended, got %+v", merged.Songs)
	}
}

func TestCreateOrUpdatePlaylistRejectsUnknownSong(t *testing.T) {
	f := newFixture(t, Options{})
	rec := f.doJSON(t, http.MethodPost, "/api/playlists/cr", "alice-token", map[string]any{
		"title":   "Broken",
		"songIds": []string{"nope"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := errorMessage(t, rec); !strings.Contains(msg, "nope") {
		t.Fatalf("expected message naming the bad id, got %q", msg)
	}
}

func TestCreateOrUpdatePlaylistByIDForbidsOtherUsers(t *testing.T) {
	f := newFixture(t, Options{})
	created := decode[models.Playlist](t, f.doJSON(t, http.MethodPost, "/api/playlists/cr", "alice-token", map[string]any{
		"title": "Mine",
	}))

	rec := f.doJSON(t, http.MethodPost, "/api/playlists/cr", "bob-token", map[string]any{
		"playlistId": created.ID,
		"songIds":    []string{f.songs[0].ID},
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestCreatePlaylistMultipartUploadsImage(t *testing.T) {
	f := newFixture(t, Options{})

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	_ = form.WriteField("title", "Covers")
	_ = form.WriteField("description", "with art")
	_ = form.WriteField("songIds", `["`+f.songs[1].ID+`"]`)
	part, err := form.CreateFormFile("imageFile", "cover.png")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	_, _ = part.Write([]byte("png-bytes"))
	if err := form.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}

	rec := f.do(t, http.MethodPost, "/api/playlists/cr", "alice-token", &body, form.FormDataContentType())
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	playlist := decode[models.Playlist](t, rec)
	if playlist.Description != "with art" {
		t.Fatalf("unexpected description %q", playlist.Description)
	}
	if !strings.HasPrefix(playlist.ImageURL, "http://api.test/uploads/images/") {
		t.Fatalf("expected uploaded image url, got %q", playlist.ImageURL)
	}

	served := f.do(t, http.MethodGet, strings.TrimPrefix(playlist.ImageURL, "http://api.test"), "", nil, "")
	if served.Code != http.StatusOK || served.Body.String() != "png-bytes" {
		t.Fatalf("expected stored image to be served, got %d %q", served.Code, served.Body.String())
	}
}

func TestRemovePlaylistSongs(t *testing.T) {
	f := newFixture(t, Options{})
	created := decode[models.Playlist](t, f.doJSON(t, http.MethodPost, "/api/playlists/cr", "alice-token", map[string]any{
		"title":   "Trim me",
		"songIds": []string{f.songs[0].ID, f.songs[1].ID},
	}))

	rec := f.doJSON(t, http.MethodPatch, "/api/playlists/"+created.ID+"/songs", "alice-token", map[string]any{
		"songIds": []string{},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty ids, got %d", rec.Code)
	}

	rec = f.doJSON(t, http.MethodPatch, "/api/playlists/"+created.ID+"/songs", "alice-token", map[string]any{
		"songIds": []string{f.songs[0].ID},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[playlistResponse](t, rec)
	if resp.Playlist == nil || len(resp.Playlist.Songs) != 1 || resp.Playlist.Songs[0].ID != f.songs[1].ID {
		t.Fatalf("unexpected playlist after removal %+v", resp.Playlist)
	}
}

func TestDeletePlaylistAsNonCreatorIsNotFound(t *testing.T) {
	f := newFixture(t, Options{})
	created := decode[models.Playlist](t, f.doJSON(t, http.MethodPost, "/api/playlists/cr", "alice-token", map[string]any{
		"title": "Private",
	}))

	for _, path := range []string{"/api/playlists/", "/api/admin/playlists/"} {
		if rec := f.do(t, http.MethodDelete, path+created.ID, "bob-token", nil, ""); rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, rec.Code)
		}
	}

	if rec := f.do(t, http.MethodDelete, "/api/playlists/"+created.ID, "alice-token", nil, ""); rec.Code != http.StatusOK {
		t.Fatalf("expected creator delete to succeed, got %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/api/playlists/"+created.ID, "alice-token", nil, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected deleted playlist to be gone, got %d", rec.Code)
	}
}

func TestListPlaylistsUnknownUser(t *testing.T) {
	f := newFixture(t, Options{})
	f.handler = New(Services{
		Playlists: playlists.New(f.store, nil),
		Identity:  stubIdentity{"ghost-token": "user_ghost"},
	}, Options{}).Routes()

	rec := f.do(t, http.MethodGet, "/api/playlists", "ghost-token", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != "User not found in database" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func songUpload(t *testing.T, title string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	_ = form.WriteField("title", title)
	_ = form.WriteField("artist", "Uploader")
	_ = form.WriteField("duration", "215")
	for field, name := range map[string]string{"audioFile": "track.mp3", "imageFile": "art.jpg"} {
		part, err := form.CreateFormFile(field, name)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		_, _ = part.Write([]byte(field + "-data"))
	}
	if err := form.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}
	return &body, form.FormDataContentType()
}

func TestAdminRoutesRequireUploadPermission(t *testing.T) {
	f := newFixture(t, Options{})

	body, contentType := songUpload(t, "Fresh")
	rec := f.do(t, http.MethodPost, "/api/admin/songs", "alice-token", body, contentType)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != "You do not have permission to upload music" {
		t.Fatalf("unexpected message %q", msg)
	}

	if err := f.store.SetUploadPermission(context.Background(), "user_alice", true); err != nil {
		t.Fatalf("SetUploadPermission: %v", err)
	}

	if rec := f.do(t, http.MethodGet, "/api/admin/check", "alice-token", nil, ""); rec.Code != http.StatusOK {
		t.Fatalf("expected admin check to pass, got %d", rec.Code)
	}

	body, contentType = songUpload(t, "Fresh")
	rec = f.do(t, http.MethodPost, "/api/admin/songs", "alice-token", body, contentType)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	song := decode[models.Song](t, rec)
	if song.Duration != 215 || !strings.HasPrefix(song.AudioURL, "http://api.test/uploads/songs/") {
		t.Fatalf("unexpected created song %+v", song)
	}

	if rec := f.do(t, http.MethodDelete, "/api/admin/songs/"+song.ID, "alice-token", nil, ""); rec.Code != http.StatusOK {
		t.Fatalf("expected delete to succeed, got %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/api/songs/"+song.ID, "", nil, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected deleted song to be gone, got %d", rec.Code)
	}
}

func TestAdminCreateSongMissingFiles(t *testing.T) {
	f := newFixture(t, Options{})
	if err := f.store.SetUploadPermission(context.Background(), "user_alice", true); err != nil {
		t.Fatalf("SetUploadPermission: %v", err)
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	_ = form.WriteField("title", "No files")
	_ = form.Close()

	rec := f.do(t, http.MethodPost, "/api/admin/songs", "alice-token", &body, form.FormDataContentType())
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAuthCallbackCreatesUser(t *testing.T) {
	f := newFixture(t, Options{})

	rec := f.doJSON(t, http.MethodPost, "/api/auth/callback", "", map[string]string{
		"id":        "user_carol",
		"firstName": "Carol",
		"lastName":  "Poe",
		"username":  "carol",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[authCallbackResponse](t, rec)
	if !resp.Success || resp.User.FullName != "Carol Poe" || resp.User.ExternalID != "user_carol" {
		t.Fatalf("unexpected callback response %+v", resp)
	}

	rec = f.doJSON(t, http.MethodPost, "/api/auth/callback", "", map[string]string{"id": "user_dan"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without username, got %d", rec.Code)
	}
}

func TestWebhookVerifiesSignature(t *testing.T) {
	f := newFixture(t, Options{})
	payload := []byte(`{"type":"user.created","data":{"id":"user_erin","first_name":"Erin","last_name":"Lee","username":"erin"}}`)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/webhook", bytes.NewReader(payload))
	for key, values := range f.verifier.Sign("msg_1", time.Now(), payload) {
		req.Header[key] = values
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	user, err := f.store.GetUserByExternalID(context.Background(), "user_erin")
	if err != nil {
		t.Fatalf("expected webhook to create the user: %v", err)
	}
	if user.FullName != "Erin Lee" {
		t.Fatalf("unexpected full name %q", user.FullName)
	}

	tampered := httptest.NewRequest(http.MethodPost, "/api/auth/webhook", bytes.NewReader(payload))
	for key, values := range f.verifier.Sign("msg_2", time.Now(), []byte(`{}`)) {
		tampered.Header[key] = values
	}
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, tampered)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad signature, got %d", rec.Code)
	}
}

func TestShareSongRoundTrip(t *testing.T) {
	f := newFixture(t, Options{})

	rec := f.doJSON(t, http.MethodPost, "/api/share", "alice-token", messages.ShareInput{
		SongID:     f.songs[0].ID,
		ReceiverID: "user_bob",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	share := decode[messages.Share](t, rec)
	if share.Message.Content != "Check out Blue by Colours" {
		t.Fatalf("unexpected default content %q", share.Message.Content)
	}

	rec = f.do(t, http.MethodGet, "/api/songs/share/"+share.Token, "", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if song := decode[models.Song](t, rec); song.ID != f.songs[0].ID {
		t.Fatalf("expected shared song, got %q", song.ID)
	}

	if rec := f.do(t, http.MethodGet, "/api/songs/share/not-a-token", "", nil, ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a malformed token, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/api/users/user_alice/messages", "bob-token", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if convo := decode[[]models.Message](t, rec); len(convo) != 1 || convo[0].SenderID != "user_alice" {
		t.Fatalf("unexpected conversation %+v", convo)
	}
}

func TestListUsersExcludesCaller(t *testing.T) {
	f := newFixture(t, Options{})
	rec := f.do(t, http.MethodGet, "/api/users", "alice-token", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	got := decode[[]models.User](t, rec)
	if len(got) != 1 || got[0].ExternalID != "user_bob" {
		t.Fatalf("unexpected users %+v", got)
	}
}

func TestStats(t *testing.T) {
	f := newFixture(t, Options{})
	rec := f.do(t, http.MethodGet, "/api/stats", "", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	got := decode[models.Stats](t, rec)
	if got.TotalSongs != 2 || got.TotalUsers != 2 || got.TotalArtists != 1 {
		t.Fatalf("unexpected stats %+v", got)
	}
}

func TestInternalErrorsHiddenInProduction(t *testing.T) {
	for _, tc := range []struct {
		production bool
		want       string
	}{
		{production: false, want: "connection refused"},
		{production: true, want: "Internal Server Error"},
	} {
		handler := New(Services{Stats: failingStats{}}, Options{Production: tc.production}).Routes()
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		if msg := errorMessage(t, rec); msg != tc.want {
			t.Fatalf("production=%v: expected %q, got %q", tc.production, tc.want, msg)
		}
	}
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	f := newFixture(t, Options{})
	rec := f.do(t, http.MethodGet, "/api/nowhere", "", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != "route not found" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestParseBearerToken(t *testing.T) {
	cases := map[string]string{
		"":             "",
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"Basic abc":    "",
		"Bearer":       "",
	}
	for header, want := range cases {
		if got := parseBearerToken(header); got != want {
			t.Fatalf("parseBearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}
