// ABOUTME: Storage interface for feedwatch persistence
// ABOUTME: Defines the contract for feed records and their retained change-detection state

package storage

import (
	"errors"

	"github.com/harper/feedwatch/internal/models"
)

// ErrNotFound is wrapped by lookups that match no feed.
var ErrNotFound = errors.New("feed not found")

// Store defines the storage interface for feedwatch data.
type Store interface {
	// Close closes the store and releases resources.
	Close() error

	// CreateFeed stores a new feed together with its retained state.
	CreateFeed(feed *models.Feed) error

	// GetFeed retrieves a feed by ID, including retained state.
	GetFeed(id string) (*models.Feed, error)

	// GetFeedByName finds a feed by name, ignoring case.
	GetFeedByName(name string) (*models.Feed, error)

	// ListFeeds returns all feeds in creation order, including retained state.
	ListFeeds() ([]*models.Feed, error)

	// UpdateFeed saves the feed record without touching retained state.
	UpdateFeed(feed *models.Feed) error

	// SaveFeedState saves the feed record and replaces its retained state atomically.
	SaveFeedState(feed *models.Feed) error

	// DeleteFeed removes a feed and its retained state.
	DeleteFeed(id string) error
}
