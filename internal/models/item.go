// ABOUTME: Normalized feed item and the key sets used to detect new and changed items
// ABOUTME: Unique keys prefer guid, then link, then date, then title

package models

import (
	"sort"
	"strconv"
)

// Item is one feed entry after extraction, identical in shape across RSS, RDF and Atom.
type Item struct {
	Date        int64 // epoch milliseconds, 0 when absent or unparseable
	GUID        string
	Title       string
	Link        string
	Description string
	Updated     bool // set by change detection, never by extraction
}

// UniqueKey identifies the item across polls.
func (i Item) UniqueKey() string {
	switch {
	case i.GUID != "":
		return i.GUID
	case i.Link != "":
		return i.Link
	case i.Date != 0:
		return strconv.FormatInt(i.Date, 10)
	default:
		return i.Title
	}
}

// CompoundKey pairs the unique key with the date so a re-dated item reads as changed.
func (i Item) CompoundKey() string {
	return i.UniqueKey() + ":" + strconv.FormatInt(i.Date, 10)
}

// KeySet is an unordered set of keys.
type KeySet map[string]struct{}

// NewKeySet builds a set holding keys.
func NewKeySet(keys ...string) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s.Add(k)
	}
	return s
}

// Add inserts key.
func (s KeySet) Add(key string) {
	s[key] = struct{}{}
}

// Remove deletes key.
func (s KeySet) Remove(key string) {
	delete(s, key)
}

// Has reports whether key is present.
func (s KeySet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Sorted returns the keys in lexical order.
func (s KeySet) Sorted() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RetainedState is the per-feed memory carried between polls.
// Seen and SeenDated always change together.
type RetainedState struct {
	Seen      KeySet // unique keys
	SeenDated KeySet // compound keys
	Items     []Item // stored items for on-demand display, oldest append first
}

// NewRetainedState returns an empty state with allocated sets.
func NewRetainedState() RetainedState {
	return RetainedState{Seen: KeySet{}, SeenDated: KeySet{}}
}

// Empty reports whether nothing has ever been retained, i.e. the feed has not loaded yet.
func (s *RetainedState) Empty() bool {
	return len(s.Seen) == 0
}

// RemoveItem drops every stored item with the given unique key.
func (s *RetainedState) RemoveItem(key string) {
	kept := s.Items[:0]
	for _, item := range s.Items {
		if item.UniqueKey() != key {
			kept = append(kept, item)
		}
	}
	s.Items = kept
}
