// ABOUTME: MCP tool definitions and handlers for feed operations
// ABOUTME: Lists and inspects feeds, shows stored items, runs checks and manages subscriptions

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/harper/feedwatch/internal/announce"
	"github.com/harper/feedwatch/internal/models"
	"github.com/harper/feedwatch/internal/poller"
	"github.com/harper/feedwatch/internal/schedule"
	"github.com/harper/feedwatch/internal/storage"
)

const defaultRecentCount = 5

// Type definitions for input/output structures

type FeedOutput struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	DisplayName string     `json:"display_name,omitempty"`
	URL         string     `json:"url"`
	Outputs     []string   `json:"outputs"`
	TTL         int        `json:"ttl"`
	Owner       string     `json:"owner,omitempty"`
	Private     bool       `json:"private"`
	ItemCount   int        `json:"item_count"`
	LastCheck   *time.Time `json:"last_check,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type ListFeedsOutput struct {
	Feeds []FeedOutput `json:"feeds"`
	Count int          `json:"count"`
}

type FeedNameInput struct {
	Name string `json:"name"`
}

type FeedStatusOutput struct {
	FeedOutput
	LastLoaded   *time.Time `json:"last_loaded,omitempty"`
	ErrorExpires *time.Time `json:"error_expires,omitempty"`
	Due          bool       `json:"due"`
	NextCheckIn  string     `json:"next_check_in"`
}

type RecentItemsInput struct {
	Name   string `json:"name"`
	Count  *int   `json:"count,omitempty"`
	Offset *int   `json:"offset,omitempty"`
}

type RecentItemsOutput struct {
	Feed  string   `json:"feed"`
	Lines []string `json:"lines"`
	Total int      `json:"total"`
}

type CheckFeedsInput struct {
	Name *string `json:"name,omitempty"`
}

type CheckResult struct {
	Feed      string `json:"feed"`
	Status    string `json:"status"`
	Announced int    `json:"announced"`
	Collapsed bool   `json:"collapsed,omitempty"`
	ItemCount int    `json:"item_count"`
	Error     string `json:"error,omitempty"`
}

type CheckFeedsOutput struct {
	Skipped   bool          `json:"skipped,omitempty"`
	Feeds     int           `json:"feeds"`
	Results   []CheckResult `json:"results"`
	NextDelay string        `json:"next_delay,omitempty"`
}

type AddFeedInput struct {
	Name    string   `json:"name"`
	URL     string   `json:"url"`
	Outputs []string `json:"outputs,omitempty"`
	TTL     *int     `json:"ttl,omitempty"`
	Owner   *string  `json:"owner,omitempty"`
}

type RemoveFeedOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Name    string `json:"name"`
}

// Tool registration

func (s *Server) registerTools() {
	s.registerListFeedsTool()
	s.registerFeedStatusTool()
	s.registerRecentItemsTool()
	s.registerCheckFeedsTool()
	s.registerAddFeedTool()
	s.registerRemoveFeedTool()
}

func nameProperty(purpose string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": purpose + " Names are matched ignoring case. Example: 'news'",
	}
}

func (s *Server) registerListFeedsTool() {
	tool := mcp.Tool{
		Name:        "list_feeds",
		Description: "List every watched feed with its outputs, polling interval, retained item count, last check time and any active error. Use this first to learn feed names for the other tools.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
	s.mcpServer.AddTool(tool, s.handleListFeeds)
}

func (s *Server) registerFeedStatusTool() {
	tool := mcp.Tool{
		Name:        "feed_status",
		Description: "Show the scheduling and health state of one feed: last check, last successful load, active error and when it expires, and how long until the feed is next due.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": nameProperty("The feed to inspect."),
			},
			Required: []string{"name"},
		},
	}
	s.mcpServer.AddTool(tool, s.handleFeedStatus)
}

func (s *Server) registerRecentItemsTool() {
	tool := mcp.Tool{
		Name:        "recent_items",
		Description: "Show items retained from a feed's last successful load, formatted as they would be announced and prefixed with their dates. Use offset to page further back.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": nameProperty("The feed whose items to show."),
				"count": map[string]interface{}{
					"type":        "integer",
					"description": "Number of items to show. Default: 5",
				},
				"offset": map[string]interface{}{
					"type":        "integer",
					"description": "Number of stored items to skip. Default: 0",
				},
			},
			Required: []string{"name"},
		},
	}
	s.mcpServer.AddTool(tool, s.handleRecentItems)
}

func (s *Server) registerCheckFeedsTool() {
	tool := mcp.Tool{
		Name:        "check_feeds",
		Description: "Run a check pass. Without a name, every feed that is due is fetched and diffed, and new items are announced to its outputs. With a name, that one feed is checked immediately even if it is not yet due. Returns per-feed outcomes and the delay before the next pass.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": nameProperty("Optional feed to check right away."),
			},
		},
	}
	s.mcpServer.AddTool(tool, s.handleCheckFeeds)
}

func (s *Server) registerAddFeedTool() {
	tool := mcp.Tool{
		Name:        "add_feed",
		Description: "Start watching an RSS, RDF or Atom feed. The first successful check loads its items without announcing them and sends a load confirmation to each output instead.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": nameProperty("Short unique handle for the feed."),
				"url": map[string]interface{}{
					"type":        "string",
					"description": "The feed URL (http or https). Example: 'https://example.com/feed.xml'",
				},
				"outputs": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Destinations that receive announcements. Example: ['#news']",
				},
				"ttl": map[string]interface{}{
					"type":        "integer",
					"description": "Polling interval in seconds, from 60 to 604800 (one week). Default: 300",
				},
				"owner": map[string]interface{}{
					"type":        "string",
					"description": "Identifier of whoever added the feed.",
				},
			},
			Required: []string{"name", "url"},
		},
	}
	s.mcpServer.AddTool(tool, s.handleAddFeed)
}

func (s *Server) registerRemoveFeedTool() {
	tool := mcp.Tool{
		Name:        "remove_feed",
		Description: "Stop watching a feed. Its retained items and seen keys are deleted as well. This action cannot be undone.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": nameProperty("The feed to remove."),
			},
			Required: []string{"name"},
		},
	}
	s.mcpServer.AddTool(tool, s.handleRemoveFeed)
}

// Handlers

func (s *Server) handleListFeeds(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	feeds, err := s.store.ListFeeds()
	if err != nil {
		return nil, fmt.Errorf("failed to list feeds: %w", err)
	}

	outputs := make([]FeedOutput, 0, len(feeds))
	for _, feed := range feeds {
		outputs = append(outputs, toFeedOutput(feed))
	}
	return jsonResult(ListFeedsOutput{Feeds: outputs, Count: len(outputs)})
}

func (s *Server) handleFeedStatus(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input FeedNameInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	feed, err := s.lookup(input.Name)
	if err != nil {
		return nil, err
	}

	now := s.now()
	next := schedule.NextDelay(feed, now)
	if next < 0 {
		next = 0
	}
	output := FeedStatusOutput{
		FeedOutput:  toFeedOutput(feed),
		LastLoaded:  feed.LastLoaded,
		Due:         schedule.DueNow(feed, now),
		NextCheckIn: next.Round(time.Second).String(),
	}
	if feed.ErrorActive(now) {
		output.ErrorExpires = feed.ErrorExpires
	} else {
		output.LastError = ""
	}
	return jsonResult(output)
}

func (s *Server) handleRecentItems(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input RecentItemsInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	count := defaultRecentCount
	if input.Count != nil {
		if *input.Count < 0 {
			return nil, fmt.Errorf("count must be non-negative, got %d", *input.Count)
		}
		count = *input.Count
	}
	offset := 0
	if input.Offset != nil {
		if *input.Offset < 0 {
			return nil, fmt.Errorf("offset must be non-negative, got %d", *input.Offset)
		}
		offset = *input.Offset
	}

	feed, err := s.lookup(input.Name)
	if err != nil {
		return nil, err
	}

	lines := announce.Recent(feed, offset, count, announce.PlainStyle)
	if lines == nil {
		lines = []string{}
	}
	return jsonResult(RecentItemsOutput{Feed: feed.Name, Lines: lines, Total: len(feed.State.Items)})
}

func (s *Server) handleCheckFeeds(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input CheckFeedsInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	if input.Name != nil && *input.Name != "" {
		feed, err := s.lookup(*input.Name)
		if err != nil {
			return nil, err
		}
		report := s.poller.CheckFeed(ctx, feed)
		return jsonResult(CheckFeedsOutput{Feeds: 1, Results: []CheckResult{toCheckResult(report)}})
	}

	pass, err := s.poller.RunPass(ctx)
	if err != nil {
		return nil, fmt.Errorf("check pass failed: %w", err)
	}
	output := CheckFeedsOutput{
		Skipped: pass.Skipped,
		Feeds:   pass.Feeds,
		Results: make([]CheckResult, 0, len(pass.Checked)),
	}
	if !pass.Skipped {
		output.NextDelay = pass.NextDelay.String()
	}
	for _, report := range pass.Checked {
		output.Results = append(output.Results, toCheckResult(report))
	}
	return jsonResult(output)
}

func (s *Server) handleAddFeed(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input AddFeedInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	name := strings.TrimSpace(input.Name)
	if name == "" || strings.ContainsAny(name, " \t\n") {
		return nil, fmt.Errorf("feed name must be a single non-empty word, got %q", input.Name)
	}
	if err := validateFeedURL(input.URL); err != nil {
		return nil, err
	}
	if _, err := s.store.GetFeedByName(name); err == nil {
		return nil, fmt.Errorf("feed already exists: %s", name)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to check for existing feed: %w", err)
	}

	feed := models.NewFeed(name, input.URL)
	feed.TTL = s.defaultTTL
	if input.TTL != nil {
		if err := feed.SetTTL(*input.TTL); err != nil {
			return nil, err
		}
	}
	if input.Owner != nil {
		feed.Owner = *input.Owner
	}
	for _, dest := range input.Outputs {
		if strings.ContainsAny(dest, " \t\n") {
			return nil, fmt.Errorf("output must not contain whitespace, got %q", dest)
		}
		feed.AddOutput(dest)
	}

	if err := s.store.CreateFeed(feed); err != nil {
		return nil, fmt.Errorf("failed to create feed: %w", err)
	}
	return jsonResult(toFeedOutput(feed))
}

func (s *Server) handleRemoveFeed(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input FeedNameInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	feed, err := s.lookup(input.Name)
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteFeed(feed.ID); err != nil {
		return nil, fmt.Errorf("failed to delete feed: %w", err)
	}
	return jsonResult(RemoveFeedOutput{
		Success: true,
		Message: fmt.Sprintf("Feed %s and its retained items removed", feed.Label()),
		Name:    feed.Name,
	})
}

// Helpers

func (s *Server) lookup(name string) (*models.Feed, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("feed name is required")
	}
	feed, err := s.store.GetFeedByName(strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("feed not found: %s", name)
		}
		return nil, fmt.Errorf("failed to load feed: %w", err)
	}
	return feed, nil
}

func validateFeedURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid feed URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("feed URL must use http or https scheme, got: %s", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("feed URL must include a host")
	}
	return nil
}

func toFeedOutput(feed *models.Feed) FeedOutput {
	outputs := feed.Outputs
	if outputs == nil {
		outputs = []string{}
	}
	return FeedOutput{
		ID:          feed.ID,
		Name:        feed.Name,
		DisplayName: feed.DisplayName,
		URL:         feed.URL,
		Outputs:     outputs,
		TTL:         feed.TTL,
		Owner:       feed.Owner,
		Private:     feed.Private,
		ItemCount:   feed.ItemCount,
		LastCheck:   feed.LastCheck,
		LastError:   feed.LastError,
		CreatedAt:   feed.CreatedAt,
	}
}

func toCheckResult(report *poller.FeedReport) CheckResult {
	result := CheckResult{
		Feed:      report.Feed,
		Status:    string(report.Status),
		Announced: report.Announced,
		Collapsed: report.Collapsed,
		ItemCount: report.ItemCount,
	}
	if report.Err != nil {
		result.Error = report.Err.Error()
	}
	return result
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal output: %w", err)
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
