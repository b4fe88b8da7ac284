// ABOUTME: Feed subscription record with outputs, TTL, error backoff and HTTP caching headers
// ABOUTME: Carries the retained change-detection state that storage must round-trip

package models

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultTTL is the polling interval in seconds for a new feed.
	DefaultTTL = 300
	// MinTTL is the smallest interval a user may configure.
	MinTTL = 60
	// MaxTTL caps both configured and feed-advertised intervals at one week.
	MaxTTL = 7 * 24 * 60 * 60
	// ErrorBackoff is how long a failed feed is left alone.
	ErrorBackoff = time.Hour
)

// Feed represents a subscribed feed and everything remembered about it between polls.
type Feed struct {
	ID           string     // Unique identifier for the feed
	Name         string     // Short handle, unique ignoring case
	DisplayName  string     // Channel title as last seen in the feed
	URL          string     // Feed URL
	Outputs      []string   // Destinations that receive announcements, sorted
	TTL          int        // Effective polling interval in seconds
	Owner        string     // Identifier of whoever added the feed
	Private      bool       // Hidden from listings for non-owners
	ETag         *string    // HTTP ETag header for conditional requests
	LastModified *string    // HTTP Last-Modified header for conditional requests
	LastCheck    *time.Time // Last completed check, successful or not modified
	LastLoaded   *time.Time // Last successful download and extraction
	LastError    string     // Active error message, empty when healthy
	ErrorExpires *time.Time // When LastError stops suppressing checks
	ItemCount    int        // Number of retained (key, date) pairs
	State        RetainedState
	CreatedAt    time.Time // Feed creation timestamp
}

// NewFeed creates a new Feed instance with a generated ID, default TTL and timestamp
func NewFeed(name, url string) *Feed {
	return &Feed{
		ID:        uuid.New().String(),
		Name:      name,
		URL:       url,
		TTL:       DefaultTTL,
		State:     NewRetainedState(),
		CreatedAt: time.Now(),
	}
}

// Label renders the feed for messages: 'Display Name' (name), or just the name.
func (f *Feed) Label() string {
	if f.DisplayName != "" {
		return fmt.Sprintf("'%s' (%s)", f.DisplayName, f.Name)
	}
	return f.Name
}

// SetCacheHeaders updates the feed's HTTP caching headers for conditional requests
func (f *Feed) SetCacheHeaders(etag, lastModified string) {
	if etag != "" {
		f.ETag = &etag
	}
	if lastModified != "" {
		f.LastModified = &lastModified
	}
}

// SetTTL changes the polling interval, rejecting values outside MinTTL..MaxTTL.
func (f *Feed) SetTTL(seconds int) error {
	if seconds < MinTTL {
		return fmt.Errorf("ttl must be at least %d seconds, got %d", MinTTL, seconds)
	}
	if seconds > MaxTTL {
		return fmt.Errorf("ttl must be at most %d seconds, got %d", MaxTTL, seconds)
	}
	f.TTL = seconds
	return nil
}

// SetError records a failure that suppresses checks until ErrorBackoff has passed.
func (f *Feed) SetError(msg string, now time.Time) {
	expires := now.Add(ErrorBackoff)
	f.LastError = msg
	f.ErrorExpires = &expires
}

// ErrorActive reports whether an unexpired error is set.
func (f *Feed) ErrorActive(now time.Time) bool {
	if f.LastError == "" {
		return false
	}
	return f.ErrorExpires == nil || now.Before(*f.ErrorExpires)
}

// ClearExpiredError drops an error whose expiry has passed and reports whether it did.
func (f *Feed) ClearExpiredError(now time.Time) bool {
	if f.LastError == "" || f.ErrorActive(now) {
		return false
	}
	f.LastError = ""
	f.ErrorExpires = nil
	return true
}

// AddOutput adds a destination unless one differing only in case exists.
func (f *Feed) AddOutput(dest string) bool {
	if dest == "" || f.outputIndex(dest) >= 0 {
		return false
	}
	f.Outputs = append(f.Outputs, dest)
	sort.Strings(f.Outputs)
	return true
}

// RemoveOutput removes a destination, ignoring case.
func (f *Feed) RemoveOutput(dest string) bool {
	i := f.outputIndex(dest)
	if i < 0 {
		return false
	}
	f.Outputs = append(f.Outputs[:i], f.Outputs[i+1:]...)
	return true
}

func (f *Feed) outputIndex(dest string) int {
	for i, o := range f.Outputs {
		if strings.EqualFold(o, dest) {
			return i
		}
	}
	return -1
}
