// ABOUTME: MCP prompt definitions and handlers
// ABOUTME: Provides a workflow template for diagnosing feeds that fail to load

package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcpServer.AddPrompt(
		mcp.Prompt{
			Name:        "feed-health",
			Description: "Walk through failing or silent feeds and decide whether to fix, slow down or remove them",
			Arguments:   []mcp.PromptArgument{},
		},
		s.handleFeedHealth,
	)
}

func (s *Server) handleFeedHealth(_ context.Context, _ mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	template := `# Feed Health Check

## Overview
Review every watched feed and find the ones that are failing or have gone quiet. A failed check sets an error on the feed that holds off further checks for an hour; after that the feed is tried again automatically.

## Steps

### 1. Survey
Call list_feeds. Note feeds with a last_error, feeds with item_count 0 and feeds whose last_check is much older than their ttl.

### 2. Inspect
For each suspicious feed call feed_status. The error text says what went wrong:
- "unexpected status code" means the server refused the request. Check whether the URL moved.
- "xml: expected ..." means the document is not well-formed XML.
- "unsupported ..." means the document is XML but not RSS 0.91/2.0, RDF or Atom.

### 3. Verify
Call check_feeds with the feed's name to try it again now, ignoring the backoff. Use recent_items to confirm that the items look right.

### 4. Act
Suggest removing feeds that keep failing with remove_feed, and re-adding moved feeds under their new URL with add_feed. Ask before removing anything.
`

	return &mcp.GetPromptResult{
		Description: "Diagnose failing or silent feeds",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: template,
				},
			},
		},
	}, nil
}
