// ABOUTME: Check passes over all stored feeds: fetch, extract, diff, announce and persist
// ABOUTME: One pass at a time, feeds handled sequentially, failures recorded as timed feed errors

package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/harper/feedwatch/internal/announce"
	"github.com/harper/feedwatch/internal/changes"
	"github.com/harper/feedwatch/internal/fetch"
	"github.com/harper/feedwatch/internal/models"
	"github.com/harper/feedwatch/internal/parse"
	"github.com/harper/feedwatch/internal/schedule"
	"github.com/harper/feedwatch/internal/storage"
)

// retryDelay follows a pass that could not read the feed list.
const retryDelay = time.Minute

// Fetcher downloads a feed document, honoring the cached validators.
type Fetcher interface {
	Fetch(ctx context.Context, url string, etag, lastModified *string) (*fetch.Result, error)
}

// Status is the outcome of checking one feed.
type Status string

const (
	StatusLoaded      Status = "loaded"       // first successful load
	StatusChecked     Status = "checked"      // diffed against retained state
	StatusNotModified Status = "not_modified" // server answered 304
	StatusFailed      Status = "failed"
)

// FeedReport describes one feed's check.
type FeedReport struct {
	Feed      string
	Status    Status
	Announced int  // new and updated items found
	Collapsed bool // announced as a single flood notice
	ItemCount int
	Err       error
}

// PassReport describes a whole pass.
type PassReport struct {
	Skipped   bool // another pass held the guard
	Feeds     int  // feeds considered
	Checked   []*FeedReport
	NextDelay time.Duration
}

// Poller runs check passes.
type Poller struct {
	store     storage.Store
	fetcher   Fetcher
	engine    *changes.Engine
	announcer *announce.Announcer
	logger    *zap.Logger
	guard     schedule.Guard
	now       func() time.Time
}

// New creates a Poller. A nil logger discards logs.
func New(store storage.Store, fetcher Fetcher, announcer *announce.Announcer, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		store:     store,
		fetcher:   fetcher,
		engine:    changes.NewEngine(logger),
		announcer: announcer,
		logger:    logger,
		now:       time.Now,
	}
}

// Running reports whether a pass is in progress.
func (p *Poller) Running() bool {
	return p.guard.Running()
}

// RunPass checks every due feed once, in creation order, and returns the
// delay before the next pass. It is a no-op while another pass is running.
func (p *Poller) RunPass(ctx context.Context) (*PassReport, error) {
	if !p.guard.TryEnter() {
		p.logger.Warn("check pass already running, skipping")
		return &PassReport{Skipped: true}, nil
	}
	defer p.guard.Leave()

	feeds, err := p.store.ListFeeds()
	if err != nil {
		return nil, fmt.Errorf("list feeds: %w", err)
	}

	report := &PassReport{Feeds: len(feeds)}
	p.logger.Debug("check pass started", zap.Int("feeds", len(feeds)))

	for _, feed := range feeds {
		now := p.now()
		if feed.ClearExpiredError(now) {
			if err := p.store.UpdateFeed(feed); err != nil {
				p.logger.Warn("save cleared error failed", zap.String("feed", feed.Name), zap.Error(err))
			}
		}
		if !schedule.DueNow(feed, now) {
			continue
		}
		report.Checked = append(report.Checked, p.CheckFeed(ctx, feed))
	}

	report.NextDelay = schedule.PassDelay(feeds, p.now())
	p.logger.Debug("check pass finished",
		zap.Int("checked", len(report.Checked)),
		zap.Duration("next", report.NextDelay))
	return report, nil
}

// CheckFeed fetches, extracts and diffs one feed regardless of whether it is
// due, then persists and announces the outcome. Retained state is only touched
// after a fully successful extraction.
func (p *Poller) CheckFeed(ctx context.Context, feed *models.Feed) *FeedReport {
	report := &FeedReport{Feed: feed.Name, ItemCount: feed.ItemCount}

	res, err := p.fetcher.Fetch(ctx, feed.URL, feed.ETag, feed.LastModified)
	if err != nil {
		return p.fail(ctx, feed, report, err)
	}

	now := p.now()
	if res.NotModified {
		feed.LastCheck = &now
		if err := p.store.UpdateFeed(feed); err != nil {
			report.Err = fmt.Errorf("save feed: %w", err)
		}
		report.Status = StatusNotModified
		return report
	}

	fresh, err := parse.Parse(res.Body)
	if err != nil {
		return p.fail(ctx, feed, report, err)
	}

	firstLoad := feed.LastLoaded == nil
	diff := p.engine.Apply(feed, fresh)
	feed.LastCheck = &now
	feed.LastLoaded = &now
	feed.LastError = ""
	feed.ErrorExpires = nil
	feed.SetCacheHeaders(res.ETag, res.LastModified)

	if err := p.store.SaveFeedState(feed); err != nil {
		report.Status = StatusFailed
		report.Err = fmt.Errorf("save feed state: %w", err)
		p.logger.Error("persist feed failed", zap.String("feed", feed.Name), zap.Error(err))
		return report
	}

	report.ItemCount = diff.ItemCount
	report.Announced = len(diff.Items)
	report.Collapsed = changes.Flooded(len(diff.Items), diff.PreviousCount)

	var notifyErr error
	if firstLoad {
		report.Status = StatusLoaded
		notifyErr = p.announcer.Loaded(ctx, feed)
	} else {
		report.Status = StatusChecked
		notifyErr = p.announcer.Announce(ctx, feed, diff)
	}
	if notifyErr != nil {
		report.Err = notifyErr
	}
	return report
}

// fail records err as the feed's visible error, which holds off further
// checks for models.ErrorBackoff.
func (p *Poller) fail(ctx context.Context, feed *models.Feed, report *FeedReport, err error) *FeedReport {
	report.Status = StatusFailed
	report.Err = err
	if ctx.Err() != nil {
		return report
	}

	p.logger.Warn("feed check failed", zap.String("feed", feed.Name), zap.String("url", feed.URL), zap.Error(err))
	feed.SetError(err.Error(), p.now())
	if saveErr := p.store.UpdateFeed(feed); saveErr != nil {
		report.Err = errors.Join(err, fmt.Errorf("save feed: %w", saveErr))
	}

	if feed.LastLoaded == nil {
		if notifyErr := p.announcer.LoadFailed(ctx, feed, err); notifyErr != nil {
			report.Err = errors.Join(report.Err, notifyErr)
		}
	}
	return report
}

// Run executes passes until ctx is cancelled, sleeping the computed delay
// between them.
func (p *Poller) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		delay := schedule.MinPassDelay
		report, err := p.RunPass(ctx)
		switch {
		case err != nil:
			p.logger.Error("check pass failed", zap.Error(err))
			delay = retryDelay
		case !report.Skipped:
			delay = report.NextDelay
		}
		timer.Reset(delay)
	}
}
