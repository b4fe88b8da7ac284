// ABOUTME: MCP resource providers for feedwatch
// ABOUTME: Exposes read-only views of watched feeds and of feeds currently in error backoff

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// ResourceData is the standard response format for all resources.
type ResourceData struct {
	Metadata ResourceMetadata  `json:"metadata"`
	Data     interface{}       `json:"data"`
	Links    map[string]string `json:"links"`
}

// ResourceMetadata contains metadata about the resource response.
type ResourceMetadata struct {
	Timestamp   time.Time `json:"timestamp"`
	Count       int       `json:"count"`
	ResourceURI string    `json:"resource_uri"`
}

const (
	feedsURI  = "feedwatch://feeds"
	errorsURI = "feedwatch://feeds/errors"
)

func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcp.Resource{
			URI:         feedsURI,
			Name:        "All Feeds",
			Description: "Every watched feed with outputs, polling interval, item count, last check time and error state",
			MIMEType:    "application/json",
		},
		s.readFeedsResource,
	)
	s.mcpServer.AddResource(
		mcp.Resource{
			URI:         errorsURI,
			Name:        "Failing Feeds",
			Description: "Feeds whose last check failed and that are waiting out their error backoff",
			MIMEType:    "application/json",
		},
		s.readErrorsResource,
	)
}

func (s *Server) readFeedsResource(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	feeds, err := s.store.ListFeeds()
	if err != nil {
		return nil, fmt.Errorf("failed to list feeds: %w", err)
	}
	outputs := make([]FeedOutput, 0, len(feeds))
	for _, feed := range feeds {
		outputs = append(outputs, toFeedOutput(feed))
	}
	return resourceContents(request.Params.URI, outputs, len(outputs))
}

func (s *Server) readErrorsResource(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	feeds, err := s.store.ListFeeds()
	if err != nil {
		return nil, fmt.Errorf("failed to list feeds: %w", err)
	}
	now := s.now()
	failing := make([]map[string]interface{}, 0)
	for _, feed := range feeds {
		if !feed.ErrorActive(now) {
			continue
		}
		failing = append(failing, map[string]interface{}{
			"name":          feed.Name,
			"url":           feed.URL,
			"error":         feed.LastError,
			"error_expires": feed.ErrorExpires,
		})
	}
	return resourceContents(request.Params.URI, failing, len(failing))
}

func resourceContents(uri string, data interface{}, count int) ([]mcp.ResourceContents, error) {
	resourceData := ResourceData{
		Metadata: ResourceMetadata{
			Timestamp:   time.Now(),
			Count:       count,
			ResourceURI: uri,
		},
		Data: data,
		Links: map[string]string{
			"feeds":  feedsURI,
			"errors": errorsURI,
		},
	}

	jsonBytes, err := json.MarshalIndent(resourceData, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource data: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}
