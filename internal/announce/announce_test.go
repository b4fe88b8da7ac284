// ABOUTME: Tests for announcement delivery, flood collapse and recent listings
// ABOUTME: Uses a recording notifier to capture what each output receives

package announce

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/harper/feedwatch/internal/changes"
	"github.com/harper/feedwatch/internal/models"
)

type sent struct {
	dest string
	msg  string
}

type recorder struct {
	sent []sent
	fail string
}

func (r *recorder) Notify(_ context.Context, dest, msg string) error {
	if dest == r.fail {
		return errors.New("unreachable")
	}
	r.sent = append(r.sent, sent{dest, msg})
	return nil
}

func newsFeed() *models.Feed {
	feed := models.NewFeed("news", "http://x/feed")
	feed.DisplayName = "News"
	feed.AddOutput("#a")
	feed.AddOutput("#b")
	return feed
}

func items(n int) []models.Item {
	out := make([]models.Item, n)
	for i := range out {
		out[i] = models.Item{GUID: fmt.Sprint(i), Title: fmt.Sprintf("item %d", i), Description: "body"}
	}
	return out
}

func TestAnnounce_OldestFirstToEveryOutput(t *testing.T) {
	rec := &recorder{}
	a := New(rec, PlainStyle, nil)

	res := &changes.Result{Items: items(2), PreviousCount: 100}
	if err := a.Announce(context.Background(), newsFeed(), res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []sent{
		{"#a", "item 1 body"}, {"#b", "item 1 body"},
		{"#a", "item 0 body"}, {"#b", "item 0 body"},
	}
	if len(rec.sent) != len(want) {
		t.Fatalf("expected %d messages, got %d: %v", len(want), len(rec.sent), rec.sent)
	}
	for i := range want {
		if rec.sent[i] != want[i] {
			t.Errorf("message %d: expected %v, got %v", i, want[i], rec.sent[i])
		}
	}
}

func TestLines_FloodCollapse(t *testing.T) {
	feed := newsFeed()

	tests := []struct {
		name      string
		count     int
		previous  int
		collapsed bool
	}{
		{"eleven new", 11, 1000, true},
		{"four of five", 4, 5, true},
		{"four of a hundred", 4, 100, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := Lines(feed, &changes.Result{Items: items(tt.count), PreviousCount: tt.previous}, PlainStyle)
			if tt.collapsed {
				want := fmt.Sprintf("'News' (news) has too many (%d) new items to display.", tt.count)
				if len(lines) != 1 || lines[0] != want {
					t.Errorf("expected collapsed notice %q, got %v", want, lines)
				}
				return
			}
			if len(lines) != tt.count {
				t.Errorf("expected %d lines, got %d", tt.count, len(lines))
			}
		})
	}
}

func TestAnnounce_NothingToSay(t *testing.T) {
	rec := &recorder{}
	a := New(rec, PlainStyle, nil)
	if err := a.Announce(context.Background(), newsFeed(), &changes.Result{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.sent) != 0 {
		t.Errorf("expected no messages, got %v", rec.sent)
	}

	silent := models.NewFeed("silent", "http://x/feed")
	if err := a.Announce(context.Background(), silent, &changes.Result{Items: items(1)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.sent) != 0 {
		t.Errorf("expected no messages for feed without outputs, got %v", rec.sent)
	}
}

func TestAnnounce_ContinuesPastFailedOutput(t *testing.T) {
	rec := &recorder{fail: "#a"}
	a := New(rec, PlainStyle, nil)

	err := a.Announce(context.Background(), newsFeed(), &changes.Result{Items: items(1), PreviousCount: 100})
	if err == nil || !strings.Contains(err.Error(), "notify #a") {
		t.Errorf("expected notify error for #a, got %v", err)
	}
	if len(rec.sent) != 1 || rec.sent[0].dest != "#b" {
		t.Errorf("expected delivery to #b, got %v", rec.sent)
	}
}

func TestLoadedAndLoadFailed(t *testing.T) {
	rec := &recorder{}
	a := New(rec, PlainStyle, nil)
	feed := newsFeed()
	feed.ItemCount = 7

	if err := a.Loaded(context.Background(), feed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := a.LoadFailed(context.Background(), feed, errors.New("timeout")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.sent[0].msg != "'News' (news) loaded with 7 items." {
		t.Errorf("unexpected load message %q", rec.sent[0].msg)
	}
	if rec.sent[2].msg != "'News' (news) failed to load, incurring the error: timeout" {
		t.Errorf("unexpected failure message %q", rec.sent[2].msg)
	}
}

func TestWriterNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewWriterNotifier(&buf)
	if err := n.Notify(context.Background(), "#news", "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.String() != "[#news] hello\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestRecent(t *testing.T) {
	feed := newsFeed()
	feed.State.Items = []models.Item{
		{GUID: "0", Title: "zero", Date: 1704067200000},
		{GUID: "1", Title: "one"},
		{GUID: "2", Title: "two"},
	}

	lines := Recent(feed, 0, 5, PlainStyle)
	want := []string{"[unknown date] two", "[unknown date] one", "[2024-01-01 00:00 UTC] zero"}
	if strings.Join(lines, "\n") != strings.Join(want, "\n") {
		t.Errorf("expected %v, got %v", want, lines)
	}

	lines = Recent(feed, 1, 1, PlainStyle)
	if len(lines) != 1 || lines[0] != "[unknown date] one" {
		t.Errorf("expected window of one, got %v", lines)
	}

	if lines := Recent(feed, 10, 5, PlainStyle); len(lines) != 0 {
		t.Errorf("expected nothing past the end, got %v", lines)
	}
}
