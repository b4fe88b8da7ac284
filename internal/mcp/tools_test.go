// ABOUTME: Tests for MCP tools, resources and prompts
// ABOUTME: Runs handlers against a temporary SQLite store and an httptest feed server

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/harper/feedwatch/internal/announce"
	"github.com/harper/feedwatch/internal/fetch"
	"github.com/harper/feedwatch/internal/models"
	"github.com/harper/feedwatch/internal/poller"
	"github.com/harper/feedwatch/internal/storage"
)

const testFeed = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Example</title>
<item><guid>1</guid><title>First</title><link>http://x/1</link><description>one</description><pubDate>Mon, 01 Jan 2024 00:00:00 GMT</pubDate></item>
<item><guid>2</guid><title>Second</title><link>http://x/2</link><description>two</description><pubDate>Tue, 02 Jan 2024 00:00:00 GMT</pubDate></item>
</channel></rss>`

// Test helpers

func setupTestServer(t *testing.T) (*Server, storage.Store, *httptest.Server) {
	t.Helper()

	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	feedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/feed.xml" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, testFeed)
	}))
	t.Cleanup(feedSrv.Close)

	announcer := announce.New(announce.NewWriterNotifier(&strings.Builder{}), announce.PlainStyle, nil)
	p := poller.New(store, fetch.New(fetch.Options{Timeout: 5 * time.Second}), announcer, nil)
	return NewServer(store, p, 0), store, feedSrv
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) (string, error) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args

	result, err := handler(context.Background(), req)
	if err != nil {
		return "", err
	}
	if len(result.Content) == 0 {
		t.Fatal("expected content in result")
	}
	textContent, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return textContent.Text, nil
}

func decode(t *testing.T, text string, v interface{}) {
	t.Helper()
	if err := json.Unmarshal([]byte(text), v); err != nil {
		t.Fatalf("failed to unmarshal output: %v\n%s", err, text)
	}
}

func addFeed(t *testing.T, s *Server, name, url string) {
	t.Helper()
	_, err := callTool(t, s.handleAddFeed, map[string]interface{}{
		"name":    name,
		"url":     url,
		"outputs": []interface{}{"#news"},
	})
	if err != nil {
		t.Fatalf("add_feed failed: %v", err)
	}
}

// Tool tests

func TestHandleAddFeed(t *testing.T) {
	s, store, feedSrv := setupTestServer(t)

	text, err := callTool(t, s.handleAddFeed, map[string]interface{}{
		"name":    "news",
		"url":     feedSrv.URL + "/feed.xml",
		"outputs": []interface{}{"#b", "#a"},
		"ttl":     600,
		"owner":   "alice",
	})
	if err != nil {
		t.Fatalf("add_feed failed: %v", err)
	}

	var out FeedOutput
	decode(t, text, &out)
	if out.Name != "news" || out.TTL != 600 || out.Owner != "alice" {
		t.Errorf("unexpected output: %+v", out)
	}
	if len(out.Outputs) != 2 || out.Outputs[0] != "#a" {
		t.Errorf("expected sorted outputs, got %v", out.Outputs)
	}

	if _, err := store.GetFeedByName("NEWS"); err != nil {
		t.Errorf("expected feed in store: %v", err)
	}
}

func TestHandleAddFeed_Validation(t *testing.T) {
	s, _, feedSrv := setupTestServer(t)
	addFeed(t, s, "news", feedSrv.URL+"/feed.xml")

	tests := []struct {
		name    string
		args    map[string]interface{}
		wantErr string
	}{
		{"bad scheme", map[string]interface{}{"name": "x", "url": "ftp://example.com/feed"}, "http or https"},
		{"no host", map[string]interface{}{"name": "x", "url": "http:///feed"}, "host"},
		{"empty name", map[string]interface{}{"name": " ", "url": "http://example.com/feed"}, "single non-empty word"},
		{"spaced name", map[string]interface{}{"name": "two words", "url": "http://example.com/feed"}, "single non-empty word"},
		{"duplicate", map[string]interface{}{"name": "News", "url": "http://example.com/feed"}, "already exists"},
		{"low ttl", map[string]interface{}{"name": "x", "url": "http://example.com/feed", "ttl": 30}, "at least 60"},
		{"spaced output", map[string]interface{}{"name": "x", "url": "http://example.com/feed", "outputs": []interface{}{"a b"}}, "whitespace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := callTool(t, s.handleAddFeed, tt.args)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestHandleListFeeds(t *testing.T) {
	s, _, feedSrv := setupTestServer(t)

	text, err := callTool(t, s.handleListFeeds, map[string]interface{}{})
	if err != nil {
		t.Fatalf("list_feeds failed: %v", err)
	}
	var empty ListFeedsOutput
	decode(t, text, &empty)
	if empty.Count != 0 || empty.Feeds == nil {
		t.Errorf("expected an empty, non-null list, got %+v", empty)
	}

	addFeed(t, s, "news", feedSrv.URL+"/feed.xml")
	addFeed(t, s, "blog", feedSrv.URL+"/other.xml")

	text, err = callTool(t, s.handleListFeeds, map[string]interface{}{})
	if err != nil {
		t.Fatalf("list_feeds failed: %v", err)
	}
	var out ListFeedsOutput
	decode(t, text, &out)
	if out.Count != 2 {
		t.Fatalf("expected 2 feeds, got %d", out.Count)
	}
	if out.Feeds[0].Name != "news" || out.Feeds[1].Name != "blog" {
		t.Errorf("expected creation order, got %s, %s", out.Feeds[0].Name, out.Feeds[1].Name)
	}
	if out.Feeds[0].TTL != models.DefaultTTL {
		t.Errorf("expected default TTL, got %d", out.Feeds[0].TTL)
	}
}

func TestHandleCheckFeeds(t *testing.T) {
	s, _, feedSrv := setupTestServer(t)
	addFeed(t, s, "news", feedSrv.URL+"/feed.xml")
	addFeed(t, s, "broken", feedSrv.URL+"/missing.xml")

	text, err := callTool(t, s.handleCheckFeeds, map[string]interface{}{})
	if err != nil {
		t.Fatalf("check_feeds failed: %v", err)
	}
	var out CheckFeedsOutput
	decode(t, text, &out)
	if out.Feeds != 2 || len(out.Results) != 2 {
		t.Fatalf("expected both feeds checked, got %+v", out)
	}

	byName := map[string]CheckResult{}
	for _, r := range out.Results {
		byName[r.Feed] = r
	}
	if byName["news"].Status != "loaded" || byName["news"].ItemCount != 2 {
		t.Errorf("unexpected news result: %+v", byName["news"])
	}
	if byName["broken"].Status != "failed" || !strings.Contains(byName["broken"].Error, "404") {
		t.Errorf("unexpected broken result: %+v", byName["broken"])
	}
	if out.NextDelay == "" {
		t.Error("expected next delay")
	}

	// A second pass right away finds nothing due.
	text, err = callTool(t, s.handleCheckFeeds, map[string]interface{}{})
	if err != nil {
		t.Fatalf("check_feeds failed: %v", err)
	}
	decode(t, text, &out)
	if len(out.Results) != 0 {
		t.Errorf("expected no feeds due, got %+v", out.Results)
	}

	// Naming a feed checks it regardless.
	text, err = callTool(t, s.handleCheckFeeds, map[string]interface{}{"name": "news"})
	if err != nil {
		t.Fatalf("check_feeds failed: %v", err)
	}
	decode(t, text, &out)
	if len(out.Results) != 1 || out.Results[0].Status != "checked" {
		t.Errorf("expected a forced check, got %+v", out.Results)
	}
}

func TestHandleFeedStatus(t *testing.T) {
	s, _, feedSrv := setupTestServer(t)
	addFeed(t, s, "broken", feedSrv.URL+"/missing.xml")

	text, err := callTool(t, s.handleFeedStatus, map[string]interface{}{"name": "broken"})
	if err != nil {
		t.Fatalf("feed_status failed: %v", err)
	}
	var before FeedStatusOutput
	decode(t, text, &before)
	if !before.Due || before.NextCheckIn != "0s" {
		t.Errorf("expected an unchecked feed to be due now, got %+v", before)
	}

	if _, err := callTool(t, s.handleCheckFeeds, map[string]interface{}{}); err != nil {
		t.Fatalf("check_feeds failed: %v", err)
	}

	text, err = callTool(t, s.handleFeedStatus, map[string]interface{}{"name": "BROKEN"})
	if err != nil {
		t.Fatalf("feed_status failed: %v", err)
	}
	var after FeedStatusOutput
	decode(t, text, &after)
	if after.Due {
		t.Error("expected failing feed not to be due")
	}
	if !strings.Contains(after.LastError, "unexpected status code: 404") {
		t.Errorf("expected visible error, got %q", after.LastError)
	}
	if after.ErrorExpires == nil {
		t.Error("expected error expiry")
	}
	if after.LastCheck != nil {
		t.Error("a failed check is not a completed check")
	}
}

func TestHandleFeedStatus_NotFound(t *testing.T) {
	s, _, _ := setupTestServer(t)

	_, err := callTool(t, s.handleFeedStatus, map[string]interface{}{"name": "ghost"})
	if err == nil || err.Error() != "feed not found: ghost" {
		t.Errorf("expected not found error, got %v", err)
	}
	_, err = callTool(t, s.handleFeedStatus, map[string]interface{}{})
	if err == nil {
		t.Error("expected error for missing name")
	}
}

func TestHandleRecentItems(t *testing.T) {
	s, _, feedSrv := setupTestServer(t)
	addFeed(t, s, "news", feedSrv.URL+"/feed.xml")
	if _, err := callTool(t, s.handleCheckFeeds, map[string]interface{}{}); err != nil {
		t.Fatalf("check_feeds failed: %v", err)
	}

	text, err := callTool(t, s.handleRecentItems, map[string]interface{}{"name": "news"})
	if err != nil {
		t.Fatalf("recent_items failed: %v", err)
	}
	var out RecentItemsOutput
	decode(t, text, &out)
	if out.Total != 2 || len(out.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %+v", out)
	}
	if out.Lines[0] != "[2024-01-02 00:00 UTC] Second two <http://x/2>" {
		t.Errorf("unexpected first line: %q", out.Lines[0])
	}
	if out.Lines[1] != "[2024-01-01 00:00 UTC] First one <http://x/1>" {
		t.Errorf("unexpected second line: %q", out.Lines[1])
	}

	text, err = callTool(t, s.handleRecentItems, map[string]interface{}{"name": "news", "count": 1, "offset": 1})
	if err != nil {
		t.Fatalf("recent_items failed: %v", err)
	}
	decode(t, text, &out)
	if len(out.Lines) != 1 || !strings.Contains(out.Lines[0], "Second") {
		t.Errorf("expected only the second stored item, got %v", out.Lines)
	}

	_, err = callTool(t, s.handleRecentItems, map[string]interface{}{"name": "news", "offset": -1})
	if err == nil || err.Error() != "offset must be non-negative, got -1" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestHandleRemoveFeed(t *testing.T) {
	s, store, feedSrv := setupTestServer(t)
	addFeed(t, s, "news", feedSrv.URL+"/feed.xml")

	text, err := callTool(t, s.handleRemoveFeed, map[string]interface{}{"name": "news"})
	if err != nil {
		t.Fatalf("remove_feed failed: %v", err)
	}
	var out RemoveFeedOutput
	decode(t, text, &out)
	if !out.Success || out.Name != "news" {
		t.Errorf("unexpected output: %+v", out)
	}

	feeds, err := store.ListFeeds()
	if err != nil {
		t.Fatal(err)
	}
	if len(feeds) != 0 {
		t.Errorf("expected no feeds, got %d", len(feeds))
	}

	if _, err := callTool(t, s.handleRemoveFeed, map[string]interface{}{"name": "news"}); err == nil {
		t.Error("expected error removing a missing feed")
	}
}

// Resource and prompt tests

func TestResources(t *testing.T) {
	s, _, feedSrv := setupTestServer(t)
	addFeed(t, s, "news", feedSrv.URL+"/feed.xml")
	addFeed(t, s, "broken", feedSrv.URL+"/missing.xml")
	if _, err := callTool(t, s.handleCheckFeeds, map[string]interface{}{}); err != nil {
		t.Fatalf("check_feeds failed: %v", err)
	}

	read := func(fn func(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error), uri string) ResourceData {
		t.Helper()
		req := mcp.ReadResourceRequest{}
		req.Params.URI = uri
		contents, err := fn(context.Background(), req)
		if err != nil {
			t.Fatalf("read %s failed: %v", uri, err)
		}
		text, ok := contents[0].(*mcp.TextResourceContents)
		if !ok {
			t.Fatalf("expected TextResourceContents, got %T", contents[0])
		}
		var data ResourceData
		decode(t, text.Text, &data)
		return data
	}

	all := read(s.readFeedsResource, feedsURI)
	if all.Metadata.Count != 2 {
		t.Errorf("expected 2 feeds, got %d", all.Metadata.Count)
	}

	failing := read(s.readErrorsResource, errorsURI)
	if failing.Metadata.Count != 1 {
		t.Errorf("expected 1 failing feed, got %d", failing.Metadata.Count)
	}
	if failing.Links["feeds"] != feedsURI {
		t.Errorf("expected link to feeds, got %v", failing.Links)
	}
}

func TestFeedHealthPrompt(t *testing.T) {
	s, _, _ := setupTestServer(t)

	result, err := s.handleFeedHealth(context.Background(), mcp.GetPromptRequest{})
	if err != nil {
		t.Fatalf("prompt failed: %v", err)
	}
	if len(result.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(result.Messages))
	}
	text, ok := result.Messages[0].Content.(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Messages[0].Content)
	}
	for _, tool := range []string{"list_feeds", "feed_status", "check_feeds", "recent_items", "remove_feed"} {
		if !strings.Contains(text.Text, tool) {
			t.Errorf("expected prompt to mention %s", tool)
		}
	}
}
