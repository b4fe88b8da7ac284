// ABOUTME: Poll timing: whether a feed is due, how long until it is, and the delay before the next pass
// ABOUTME: Includes the compare-and-set guard that keeps check passes from overlapping

package schedule

import (
	"sync/atomic"
	"time"

	"github.com/harper/feedwatch/internal/models"
)

// Pass delay tuning.
const (
	MaxPassDelay   = time.Hour
	GraceWindow    = 5 * time.Second
	GraceThreshold = 10 * time.Second
	MinPassDelay   = time.Second
)

// DueNow reports whether feed should be checked at now. An error whose expiry
// has passed is cleared as a side effect; an active error makes the feed not due.
func DueNow(feed *models.Feed, now time.Time) bool {
	feed.ClearExpiredError(now)
	if feed.ErrorActive(now) {
		return false
	}
	if feed.LastCheck == nil {
		return true
	}
	return now.Sub(*feed.LastCheck) >= ttl(feed)
}

// NextDelay returns how long until feed becomes due. It may be negative when
// the feed is overdue; PassDelay floors it.
func NextDelay(feed *models.Feed, now time.Time) time.Duration {
	if feed.LastError != "" && feed.ErrorExpires != nil {
		return feed.ErrorExpires.Sub(now)
	}
	if feed.LastCheck == nil {
		return 0
	}
	return ttl(feed) - now.Sub(*feed.LastCheck)
}

// PassDelay is the wait before the next pass: the soonest feed's delay, with
// GraceWindow added beyond GraceThreshold so near-simultaneous feeds share a
// pass, and never less than MinPassDelay.
func PassDelay(feeds []*models.Feed, now time.Time) time.Duration {
	delay := MaxPassDelay
	for _, feed := range feeds {
		d := NextDelay(feed, now)
		if d < 0 {
			d = 0
		}
		if d < delay {
			delay = d
		}
	}
	if delay > GraceThreshold {
		delay += GraceWindow
	}
	if delay < MinPassDelay {
		delay = MinPassDelay
	}
	return delay
}

// ttl saturates at MaxTTL so a stored value too large for a Duration cannot wrap negative.
func ttl(feed *models.Feed) time.Duration {
	return time.Duration(min(feed.TTL, models.MaxTTL)) * time.Second
}

// Guard admits one pass at a time. The zero value is ready to use.
type Guard struct {
	running atomic.Bool
}

// TryEnter claims the guard, returning false if a pass already holds it.
func (g *Guard) TryEnter() bool {
	return g.running.CompareAndSwap(false, true)
}

// Leave releases the guard.
func (g *Guard) Leave() {
	g.running.Store(false)
}

// Running reports whether a pass currently holds the guard.
func (g *Guard) Running() bool {
	return g.running.Load()
}
