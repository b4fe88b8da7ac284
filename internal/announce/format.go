// ABOUTME: Formats feed items into single announcement lines with title decoration and link suffix
// ABOUTME: Styles cover IRC control codes, ANSI terminal attributes via fatih/color, and plain text

package announce

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/harper/feedwatch/internal/models"
)

// LineBudget is the longest an announcement line may be before truncation, link excluded.
const LineBudget = 390

// Style decorates item titles: new items stand out more than updated ones.
type Style struct {
	Name    string
	New     func(title string) string
	Updated func(title string) string
}

func undecorated(title string) string { return title }

// PlainStyle leaves titles as they are.
var PlainStyle = Style{Name: "plain", New: undecorated, Updated: undecorated}

// IRCStyle uses underline (0x1F) for updated items and bold underline (0x02) for new ones.
var IRCStyle = Style{
	Name:    "irc",
	New:     func(title string) string { return "\x1F\x02" + title + "\x02\x1F" },
	Updated: func(title string) string { return "\x1F" + title + "\x1F" },
}

// TerminalStyle renders the same emphasis with ANSI attributes. Output is plain
// when color is disabled, e.g. NO_COLOR or a non-terminal stdout.
func TerminalStyle() Style {
	bold := color.New(color.Bold, color.Underline)
	underline := color.New(color.Underline)
	return Style{
		Name:    "terminal",
		New:     func(title string) string { return bold.Sprint(title) },
		Updated: func(title string) string { return underline.Sprint(title) },
	}
}

// StyleByName resolves a configured style name.
func StyleByName(name string) (Style, error) {
	switch strings.ToLower(name) {
	case "", "irc":
		return IRCStyle, nil
	case "plain":
		return PlainStyle, nil
	case "terminal":
		return TerminalStyle(), nil
	default:
		return Style{}, fmt.Errorf("unknown style %q (want plain, irc or terminal)", name)
	}
}

// FormatItem renders one item. A description that already contains the title is
// shown alone; otherwise the decorated title leads. A link is appended in <>.
func FormatItem(item models.Item, style Style) string {
	var message string
	switch {
	case strings.Contains(item.Description, item.Title):
		message = item.Description
	case item.Updated:
		message = joinNonEmpty(style.Updated(item.Title), item.Description)
	default:
		message = joinNonEmpty(style.New(item.Title), item.Description)
	}

	suffix := ""
	if item.Link != "" {
		suffix = " <" + item.Link + ">"
	}
	return Truncate(message, suffix)
}

// Truncate cuts message with "..." so that message and suffix fit LineBudget,
// then appends suffix. Lengths are counted in characters.
func Truncate(message, suffix string) string {
	suffixLen := utf8.RuneCountInString(suffix)
	if utf8.RuneCountInString(message)+suffixLen <= LineBudget {
		return message + suffix
	}
	keep := LineBudget - suffixLen
	if keep < 0 {
		keep = 0
	}
	runes := []rune(message)
	if keep > len(runes) {
		keep = len(runes)
	}
	return string(runes[:keep]) + "..." + suffix
}

// FormatDate renders an item date for listings.
func FormatDate(ms int64) string {
	if ms == 0 {
		return "unknown date"
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04 MST")
}

func joinNonEmpty(title, description string) string {
	if description == "" {
		return title
	}
	return title + " " + description
}
