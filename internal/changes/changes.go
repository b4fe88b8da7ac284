// ABOUTME: Change detection between a fresh extraction and a feed's retained state
// ABOUTME: Classifies items as new, updated or unchanged and evicts items gone upstream

package changes

import (
	"strings"

	"github.com/harper/feedwatch/internal/models"
	"github.com/harper/feedwatch/internal/parse"
	"go.uber.org/zap"
)

// Flood thresholds for collapsing announcements.
const (
	FloodMax   = 10
	FloodMin   = 3
	FloodRatio = 0.2
)

// Result describes what one pass changed.
type Result struct {
	// Items holds new and updated items in document order. It is empty on first load.
	Items []models.Item
	// ItemCount is the number of retained (key, date) pairs after the pass.
	ItemCount int
	// PreviousCount is the item count before the pass.
	PreviousCount int
	// FirstLoad is set when nothing was retained before the pass.
	FirstLoad bool
	// TTLRaised and Renamed signal that the feed record itself changed.
	TTLRaised bool
	Renamed   bool
	// Duplicates counts items skipped for repeating a key within the document.
	Duplicates int
}

// ConfigChanged reports whether the feed's settings need saving.
func (r *Result) ConfigChanged() bool {
	return r.TTLRaised || r.Renamed
}

// Engine applies fresh extractions to retained state.
type Engine struct {
	logger *zap.Logger
}

// NewEngine returns an Engine logging to logger, or nowhere when logger is nil.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Apply diffs fresh against feed.State, mutating the state, TTL, display name
// and item count of feed. It must only be called with a fully extracted feed.
func (e *Engine) Apply(feed *models.Feed, fresh *parse.Feed) *Result {
	state := &feed.State
	if state.Seen == nil {
		state.Seen = models.KeySet{}
	}
	if state.SeenDated == nil {
		state.SeenDated = models.KeySet{}
	}

	res := &Result{
		PreviousCount: feed.ItemCount,
		FirstLoad:     state.Empty(),
	}

	if advertised := min(fresh.TTL, models.MaxTTL); advertised > feed.TTL {
		e.logger.Info("raising ttl to feed's advertised value",
			zap.String("feed", feed.Name), zap.Int("from", feed.TTL), zap.Int("to", advertised))
		feed.TTL = advertised
		res.TTLRaised = true
	}
	if title := strings.TrimSpace(fresh.Title); title != "" && title != feed.DisplayName {
		e.logger.Info("feed renamed", zap.String("feed", feed.Name), zap.String("title", title))
		feed.DisplayName = title
		res.Renamed = true
	}

	confirmed := models.KeySet{}
	confirmedDated := models.KeySet{}

	for _, item := range fresh.Items {
		key := item.UniqueKey()
		if confirmed.Has(key) {
			res.Duplicates++
			e.logger.Debug("skipping duplicate item", zap.String("feed", feed.Name), zap.String("key", key))
			continue
		}
		dated := item.CompoundKey()
		confirmed.Add(key)
		confirmedDated.Add(dated)

		switch {
		case !state.Seen.Has(key):
			item.Updated = false
		case !state.SeenDated.Has(dated):
			item.Updated = true
			state.RemoveItem(key)
		default:
			continue
		}

		state.Seen.Add(key)
		state.SeenDated.Add(dated)
		state.Items = append(state.Items, item)
		res.Items = append(res.Items, item)
	}

	for key := range state.Seen {
		if !confirmed.Has(key) {
			state.Seen.Remove(key)
			state.RemoveItem(key)
		}
	}
	for dated := range state.SeenDated {
		if !confirmedDated.Has(dated) {
			state.SeenDated.Remove(dated)
		}
	}

	feed.ItemCount = len(state.SeenDated)
	res.ItemCount = feed.ItemCount

	if res.FirstLoad {
		res.Items = nil
	}
	return res
}

// Flooded reports whether count new items should collapse into one notice,
// given the feed's item count before the pass.
func Flooded(count, previousTotal int) bool {
	if count > FloodMax {
		return true
	}
	return count > FloodMin && float64(count) > FloodRatio*float64(previousTotal)
}
