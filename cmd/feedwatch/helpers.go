// ABOUTME: Shared helpers for feedwatch commands
// ABOUTME: Feed lookup by name and construction of the poller from config

package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/harper/feedwatch/internal/announce"
	"github.com/harper/feedwatch/internal/fetch"
	"github.com/harper/feedwatch/internal/logger"
	"github.com/harper/feedwatch/internal/models"
	"github.com/harper/feedwatch/internal/poller"
	"github.com/harper/feedwatch/internal/storage"
)

// lookupFeed finds a feed by name, ignoring case.
func lookupFeed(name string) (*models.Feed, error) {
	feed, err := store.GetFeedByName(strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("feed not found: %s", name)
		}
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}
	return feed, nil
}

// announceStyle resolves the configured style.
func announceStyle() (announce.Style, error) {
	return announce.StyleByName(cfg.GetStyle())
}

// newPoller builds a poller that announces to out.
func newPoller(out io.Writer) (*poller.Poller, error) {
	style, err := announceStyle()
	if err != nil {
		return nil, err
	}
	announcer := announce.New(announce.NewWriterNotifier(out), style, logger.Z)
	return poller.New(store, fetch.New(cfg.FetchOptions()), announcer, logger.Z), nil
}

// validWord rejects empty values and values containing whitespace.
func validWord(kind, value string) error {
	if value == "" || strings.ContainsAny(value, " \t\r\n") {
		return fmt.Errorf("%s must be a single non-empty word, got %q", kind, value)
	}
	return nil
}
