// ABOUTME: Delivers announcement lines for a feed's new items to each of its outputs
// ABOUTME: Collapses floods into one notice and sends load confirmations and failures

package announce

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/harper/feedwatch/internal/changes"
	"github.com/harper/feedwatch/internal/models"
)

// Notifier delivers a message to a named destination.
type Notifier interface {
	Notify(ctx context.Context, destination, message string) error
}

// WriterNotifier writes "[destination] message" lines to an io.Writer.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterNotifier creates a notifier printing to w.
func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (n *WriterNotifier) Notify(_ context.Context, destination, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, err := fmt.Fprintf(n.w, "[%s] %s\n", destination, message)
	return err
}

// Announcer turns change results into messages for a feed's outputs.
type Announcer struct {
	notifier Notifier
	style    Style
	logger   *zap.Logger
}

// New creates an Announcer. A nil logger discards logs.
func New(notifier Notifier, style Style, logger *zap.Logger) *Announcer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Announcer{notifier: notifier, style: style, logger: logger}
}

// Lines returns the messages a change result produces, oldest item first.
func Lines(feed *models.Feed, res *changes.Result, style Style) []string {
	n := len(res.Items)
	if n == 0 {
		return nil
	}
	if changes.Flooded(n, res.PreviousCount) {
		return []string{fmt.Sprintf("%s has too many (%d) new items to display.", feed.Label(), n)}
	}
	lines := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		lines = append(lines, FormatItem(res.Items[i], style))
	}
	return lines
}

// Announce sends the lines for res to every output of feed.
func (a *Announcer) Announce(ctx context.Context, feed *models.Feed, res *changes.Result) error {
	return a.broadcast(ctx, feed, Lines(feed, res, a.style)...)
}

// Loaded confirms a feed's first successful load.
func (a *Announcer) Loaded(ctx context.Context, feed *models.Feed) error {
	return a.broadcast(ctx, feed, fmt.Sprintf("%s loaded with %d items.", feed.Label(), feed.ItemCount))
}

// LoadFailed reports that a feed's first load failed.
func (a *Announcer) LoadFailed(ctx context.Context, feed *models.Feed, cause error) error {
	return a.broadcast(ctx, feed, fmt.Sprintf("%s failed to load, incurring the error: %v", feed.Label(), cause))
}

func (a *Announcer) broadcast(ctx context.Context, feed *models.Feed, lines ...string) error {
	if len(lines) == 0 {
		return nil
	}
	if len(feed.Outputs) == 0 {
		a.logger.Debug("feed has no outputs", zap.String("feed", feed.Name), zap.Int("lines", len(lines)))
		return nil
	}
	var errs []error
	for _, line := range lines {
		for _, dest := range feed.Outputs {
			if err := a.notifier.Notify(ctx, dest, line); err != nil {
				a.logger.Warn("notify failed", zap.String("feed", feed.Name), zap.String("output", dest), zap.Error(err))
				errs = append(errs, fmt.Errorf("notify %s: %w", dest, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Recent renders up to count stored items of feed starting offset items in,
// prefixed with their dates, earliest in the window first.
func Recent(feed *models.Feed, offset, count int, style Style) []string {
	items := feed.State.Items
	if offset < 0 {
		offset = 0
	}
	end := offset + count
	if end > len(items) {
		end = len(items)
	}
	var lines []string
	for i := end - 1; i >= offset; i-- {
		lines = append(lines, fmt.Sprintf("[%s] %s", FormatDate(items[i].Date), FormatItem(items[i], style)))
	}
	return lines
}
