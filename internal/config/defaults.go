// ABOUTME: Centralized configuration defaults for feedwatch
// ABOUTME: Re-exports the fetch and TTL constants config needs alongside CLI display settings

package config

import (
	"github.com/harper/feedwatch/internal/fetch"
	"github.com/harper/feedwatch/internal/models"
)

// HTTP settings
const (
	DefaultHTTPTimeout = fetch.DefaultTimeout
)

// Polling settings
const (
	DefaultTTLSeconds = models.DefaultTTL
	MinTTLSeconds     = models.MinTTL
	MaxTTLSeconds     = models.MaxTTL
)

// Announcement settings
const (
	DefaultRecentCount = 5
	DefaultStyle       = "irc"
)

// Display settings
const (
	DisplayIDLength = 8
	SeparatorWidth  = 60
	DateFormatLong  = "Mon, 02 Jan 2006 15:04 MST"
)

// Storage settings
const (
	DBFilename      = "feedwatch.db"
	DefaultDirPerms = 0755
	DefaultLogLevel = "info"
)
