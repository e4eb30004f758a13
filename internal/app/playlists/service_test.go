package playlists

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"spotifly/internal/apperr"
	"spotifly/internal/blob"
	"spotifly/internal/models"
	"spotifly/internal/store/memstore"
)

type stubBlobs struct {
	url    string
	folder string
	body   string
}

func (b *stubBlobs) Put(_ context.Context, folder string, f blob.File) (string, error) {
	data, _ := io.ReadAll(f.Body)
	b.folder = folder
	b.body = string(data)
	return b.url, nil
}

type fixture struct {
	store *memstore.Store
	svc   Service
	blobs *stubBlobs
	owner models.User
	songs []models.Song
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()
	blobs := &stubBlobs{url: "https://cdn.test/images/cover.png"}

	owner := models.User{ExternalID: "owner", FullName: "Ada Lovelace"}
	if err := st.CreateUser(ctx, &owner); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	intruder := models.User{ExternalID: "intruder", FullName: "Eve"}
	if err := st.CreateUser(ctx, &intruder); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	var songs []models.Song
	for _, title := range []string{"One", "Two", "Three"} {
		song := models.Song{Title: title, Artist: "Band", ImageURL: "https://img.test/" + strings.ToLower(title)}
		if err := st.CreateSong(ctx, &song); err != nil {
			t.Fatalf("CreateSong: %v", err)
		}
		songs = append(songs, song)
	}

	return &fixture{store: st, svc: New(st, blobs), blobs: blobs, owner: owner, songs: songs}
}

func songIDs(p *models.Playlist) []string {
	ids := make([]string, len(p.Songs))
	for i, s := range p.Songs {
		ids[i] = s.ID
	}
	return ids
}

func TestCreateOrUpdateCreatesWithFirstSongImage(t *testing.T) {
	f := newFixture(t)
	a, b := f.songs[0], f.songs[1]

	p, err := f.svc.CreateOrUpdate(context.Background(), "owner", Input{
		Title:   " Road Trip ",
		SongIDs: []string{b.ID, a.ID, b.ID},
	})
	if err != nil {
		t.Fatalf("CreateOrUpdate returned error: %v", err)
	}
	if p.Title != "Road Trip" {
		t.Fatalf("expected trimmed title, got %q", p.Title)
	}
	if got := songIDs(p); len(got) != 2 || got[0] != b.ID || got[1] != a.ID {
		t.Fatalf("expected deduplicated [b a], got %v", got)
	}
	if p.ImageURL != b.ImageURL {
		t.Fatalf("expected first song image %q, got %q", b.ImageURL, p.ImageURL)
	}
	if p.Creator == nil || p.Creator.FullName != "Ada Lovelace" {
		t.Fatalf("expected creator to be populated, got %+v", p.Creator)
	}
}

func TestCreateOrUpdateMergesByTitle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b, c := f.songs[0], f.songs[1], f.songs[2]

	first, err := f.svc.CreateOrUpdate(ctx, "owner", Input{Title: "Mix", SongIDs: []string{a.ID, b.ID}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	second, err := f.svc.CreateOrUpdate(ctx, "owner", Input{Title: "Mix", SongIDs: []string{c.ID, a.ID}})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same playlist to be updated, got %s and %s", first.ID, second.ID)
	}
	got := songIDs(second)
	want := []string{a.ID, b.ID, c.ID}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if second.ImageURL != c.ImageURL {
		t.Fatalf("expected image of first provided song %q, got %q", c.ImageURL, second.ImageURL)
	}
}

func TestCreateOrUpdateKeepsExistingImageWithoutSongs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, _ := f.svc.CreateOrUpdate(ctx, "owner", Input{Title: "Mix", ImageURL: "https://img.test/custom"})
	desc := "late night"
	updated, err := f.svc.CreateOrUpdate(ctx, "owner", Input{PlaylistID: created.ID, Description: &desc})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ImageURL != "https://img.test/custom" {
		t.Fatalf("expected existing image to be kept, got %q", updated.ImageURL)
	}
	if updated.Title != "Mix" || updated.Description != "late night" {
		t.Fatalf("unexpected title/description %q/%q", updated.Title, updated.Description)
	}
}

func TestCreateOrUpdateDefaultImageAndUpload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty, err := f.svc.CreateOrUpdate(ctx, "owner", Input{Title: "Empty"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if empty.ImageURL != DefaultImageURL {
		t.Fatalf("expected default image, got %q", empty.ImageURL)
	}
	if empty.Songs == nil {
		t.Fatalf("expected empty songs slice, got nil")
	}

	uploaded, err := f.svc.CreateOrUpdate(ctx, "owner", Input{
		Title:   "Uploaded",
		SongIDs: []string{f.songs[0].ID},
		Image:   &blob.File{Name: "cover.png", Body: strings.NewReader("png")},
	})
	if err != nil {
		t.Fatalf("create with upload: %v", err)
	}
	if uploaded.ImageURL != f.blobs.url || f.blobs.folder != "images" || f.blobs.body != "png" {
		t.Fatalf("expected uploaded image to win, got %q (folder %q)", uploaded.ImageURL, f.blobs.folder)
	}
}

func TestCreateOrUpdateErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owned, _ := f.svc.CreateOrUpdate(ctx, "owner", Input{Title: "Mine"})

	tests := []struct {
		name  string
		actor string
		in    Input
		kind  error
	}{
		{"missing title", "owner", Input{SongIDs: []string{f.songs[0].ID}}, apperr.ErrInvalidInput},
		{"unknown song", "owner", Input{Title: "X", SongIDs: []string{f.songs[0].ID, "ghost"}}, apperr.ErrInvalidReference},
		{"blank song id", "owner", Input{Title: "X", SongIDs: []string{" "}}, apperr.ErrInvalidInput},
		{"unknown playlist", "owner", Input{PlaylistID: "missing"}, apperr.ErrNotFound},
		{"not the creator", "intruder", Input{PlaylistID: owned.ID, Title: "Stolen"}, apperr.ErrNotAuthorized},
		{"unknown user", "stranger", Input{Title: "X"}, apperr.ErrNotFound},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateOrUpdate(ctx, tc.actor, tc.in)
			if !errors.Is(err, tc.kind) {
				t.Fatalf("expected %v, got %v", tc.kind, err)
			}
		})
	}

	var appErr *apperr.Error
	_, err := f.svc.CreateOrUpdate(ctx, "owner", Input{Title: "X", SongIDs: []string{"ghost"}})
	if !errors.As(err, &appErr) || !strings.Contains(appErr.Msg, "ghost") {
		t.Fatalf("expected error naming the bad id, got %v", err)
	}
}

func TestRemoveSongs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b, c := f.songs[0], f.songs[1], f.songs[2]
	p, _ := f.svc.CreateOrUpdate(ctx, "owner", Input{Title: "Mix", SongIDs: []string{a.ID, b.ID, c.ID}})

	if _, err := f.svc.RemoveSongs(ctx, "owner", p.ID, nil); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty ids, got %v", err)
	}
	if _, err := f.svc.RemoveSongs(ctx, "intruder", p.ID, []string{a.ID}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-creator, got %v", err)
	}

	updated, err := f.svc.RemoveSongs(ctx, "owner", p.ID, []string{b.ID, "not-there"})
	if err != nil {
		t.Fatalf("RemoveSongs returned error: %v", err)
	}
	if got := songIDs(updated); len(got) != 2 || got[0] != a.ID || got[1] != c.ID {
		t.Fatalf("expected [a c], got %v", got)
	}
}

func TestDeleteOnlyByCreator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, _ := f.svc.CreateOrUpdate(ctx, "owner", Input{Title: "Mix"})

	if err := f.svc.Delete(ctx, "intruder", p.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := f.svc.Delete(ctx, "owner", p.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := f.svc.Get(ctx, p.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected playlist to be gone, got %v", err)
	}
}

func TestListForUserPopulates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _ = f.svc.CreateOrUpdate(ctx, "owner", Input{Title: "A", SongIDs: []string{f.songs[0].ID}})
	_, _ = f.svc.CreateOrUpdate(ctx, "intruder", Input{Title: "B"})

	lists, err := f.svc.ListForUser(ctx, "owner")
	if err != nil {
		t.Fatalf("ListForUser returned error: %v", err)
	}
	if len(lists) != 1 || len(lists[0].Songs) != 1 || lists[0].Songs[0].Title != "One" {
		t.Fatalf("unexpected playlists %+v", lists)
	}
}

func TestMergeSongIDsIsSuperset(t *testing.T) {
	existing := []string{"a", "b", "c"}
	merged := mergeSongIDs(existing, []string{"d", "b", "e"})

	want := []string{"a", "b", "c", "d", "e"}
	if len(merged) != len(want) {
		t.Fatalf("expected %v, got %v", want, merged)
	}
	for i := range want {
		if merged[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, merged)
		}
	}
}

func TestResolveImageOrder(t *testing.T) {
	songs := []models.SongSummary{{ID: "s", ImageURL: "song.png"}}

	tests := []struct {
		name     string
		explicit string
		songs    []models.SongSummary
		existing string
		want     string
	}{
		{"explicit wins", "upload.png", songs, "old.png", "upload.png"},
		{"first song", "", songs, "old.png", "song.png"},
		{"existing", "", nil, "old.png", "old.png"},
		{"default", "", nil, "", DefaultImageURL},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := resolveImage(tc.explicit, tc.songs, tc.existing); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
