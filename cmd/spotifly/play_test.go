package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"spotifly/internal/player"
	"spotifly/internal/presence"
)

type reverseShuffler struct{}

func (reverseShuffler) Shuffle(n int, swap func(i, j int)) {
	for i := 0; i < n/2; i++ {
		swap(i, n-1-i)
	}
}

func newTestSession(t *testing.T) (*playSession, *presence.Memory, *bytes.Buffer) {
	t.Helper()
	songs := []player.Song{
		{ID: "s1", Title: "Angel", Artist: "Massive Attack"},
		{ID: "s2", Title: "Teardrop", Artist: "Massive Attack"},
		{ID: "s3", Title: "Glory Box", Artist: "Portishead"},
	}
	mem := presence.NewMemory()
	var out bytes.Buffer
	return newPlaySession(songs, reverseShuffler{}, mem, "user_alice", &out), mem, &out
}

func TestPlaySessionPublishesActivity(t *testing.T) {
	sess, mem, _ := newTestSession(t)
	ctx := context.Background()

	if _, err := sess.exec(ctx, "play 2"); err != nil {
		t.Fatalf("play: %v", err)
	}
	if got, _ := mem.Activity("user_alice"); got != "Playing Teardrop by Massive Attack" {
		t.Fatalf("unexpected activity %q", got)
	}

	if _, err := sess.exec(ctx, "pause"); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if got, _ := mem.Activity("user_alice"); got != "Idle" {
		t.Fatalf("expected idle after pause, got %q", got)
	}
}

func TestPlaySessionNavigation(t *testing.T) {
	sess, _, _ := newTestSession(t)
	ctx := context.Background()

	for _, line := range []string{"play", "next", "next", "next"} {
		if _, err := sess.exec(ctx, line); err != nil {
			t.Fatalf("%s: %v", line, err)
		}
	}
	if sess.state.CurrentSong.ID != "s1" {
		t.Fatalf("expected next to wrap to s1, got %s", sess.state.CurrentSong.ID)
	}

	if _, err := sess.exec(ctx, "shuffle"); err != nil {
		t.Fatalf("shuffle: %v", err)
	}
	if sess.state.Queue[0].ID != "s3" || sess.state.CurrentSong.ID != "s1" {
		t.Fatalf("unexpected shuffled queue %+v", sess.state.Queue)
	}
	if sess.state.CurrentIndex != 2 {
		t.Fatalf("expected cursor to follow s1, got %d", sess.state.CurrentIndex)
	}
}

func TestPlaySessionRejectsBadInput(t *testing.T) {
	sess, _, _ := newTestSession(t)
	ctx := context.Background()

	if _, err := sess.exec(ctx, "play 9"); err == nil {
		t.Fatal("expected out of range track to fail")
	}
	if _, err := sess.exec(ctx, "rewind"); err == nil {
		t.Fatal("expected unknown command to fail")
	}
	if quit, err := sess.exec(ctx, "   "); quit || err != nil {
		t.Fatalf("expected blank line ignored, got quit=%v err=%v", quit, err)
	}
}

func TestPlaySessionRunStopsOnQuit(t *testing.T) {
	sess, mem, out := newTestSession(t)

	if err := sess.run(context.Background(), strings.NewReader("play 3\nqueue\nquit\nnext\n")); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "Playing Glory Box by Portishead") {
		t.Fatalf("missing activity in output:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "*  3. Portishead - Glory Box") {
		t.Fatalf("missing queue marker in output:\n%s", out.String())
	}
	if got, _ := mem.Activity("user_alice"); got != "Idle" {
		t.Fatalf("expected idle after quit, got %q", got)
	}
}
