// ABOUTME: Character reference decoding and inline HTML stripping for feed text
// ABOUTME: Ampersands are decoded in a separate final pass so &amp;lt; stays literal

package entities

import (
	"regexp"
	"strconv"
	"strings"
)

// replacements maps entity names and "#<decimal>" codes to plain-text stand-ins.
// amp is deliberately absent; see Decode.
var replacements = map[string]string{
	"lt":     "<",
	"#60":    "<",
	"gt":     ">",
	"#62":    ">",
	"quot":   `"`,
	"#34":    `"`,
	"ldquo":  `"`,
	"#8220":  `"`,
	"rdquo":  `"`,
	"#8221":  `"`,
	"apos":   "'",
	"#39":    "'",
	"lsquo":  "'",
	"#8216":  "'",
	"rsquo":  "'",
	"#8217":  "'",
	"nbsp":   " ",
	"#160":   " ",
	"ndash":  "-",
	"#8211":  "-",
	"mdash":  "-",
	"#8212":  "-",
	"lsaquo": "<<",
	"#8249":  "<<",
	"rsaquo": ">>",
	"#8250":  ">>",
	"times":  "x",
	"#215":   "x",
	"pound":  "£",
	"#163":   "£",
	"hellip": "...",
	"#8230":  "...",
}

var (
	entityPattern    = regexp.MustCompile(`(?i)&(?:(\w+)|#(\d+)|#x([0-9a-f]{1,6}));`)
	ampersandPattern = regexp.MustCompile(`&(?:amp|#0*38|#[xX]0*26);`)
	tagPattern       = regexp.MustCompile(`</?(\w+)[^>]*>`)
	spacePattern     = regexp.MustCompile(`\s+`)
)

// inlineTags vanish without leaving a word break when stripped.
var inlineTags = map[string]bool{
	"A": true, "ABBR": true, "ACRONYM": true, "AREA": true, "B": true,
	"BASE": true, "BASEFONT": true, "BDO": true, "BIG": true, "BUTTON": true,
	"CITE": true, "CODE": true, "DEL": true, "DFN": true, "EM": true,
	"FONT": true, "I": true, "INS": true, "ISINDEX": true, "KBD": true,
	"LABEL": true, "LEGEND": true, "LINK": true, "MAP": true, "META": true,
	"NOSCRIPT": true, "OPTGROUP": true, "OPTION": true, "PARAM": true, "Q": true,
	"S": true, "SAMP": true, "SCRIPT": true, "SELECT": true, "SMALL": true,
	"SPAN": true, "STRIKE": true, "STRONG": true, "STYLE": true, "SUB": true,
	"SUP": true, "TEXTAREA": true, "TT": true, "U": true, "VAR": true,
}

// IsInlineTag reports whether the tag name (any case) is an inline element.
func IsInlineTag(name string) bool {
	return inlineTags[strings.ToUpper(name)]
}

// Decode replaces the known character references in text. Unknown references
// are left untouched. Ampersand references are decoded last, in their own pass,
// so "&amp;lt;" becomes "&lt;" rather than "<".
func Decode(text string) string {
	if !strings.Contains(text, "&") {
		return text
	}
	text = entityPattern.ReplaceAllStringFunc(text, func(ref string) string {
		m := entityPattern.FindStringSubmatch(ref)
		key := m[1]
		switch {
		case m[2] != "":
			n, err := strconv.ParseInt(m[2], 10, 32)
			if err != nil {
				return ref
			}
			key = "#" + strconv.FormatInt(n, 10)
		case m[3] != "":
			n, err := strconv.ParseInt(m[3], 16, 32)
			if err != nil {
				return ref
			}
			key = "#" + strconv.FormatInt(n, 10)
		}
		if r, ok := replacements[key]; ok {
			return r
		}
		return ref
	})
	return ampersandPattern.ReplaceAllString(text, "&")
}

// StripHTML turns feed-supplied HTML into a single line of plain text.
// Block-level tags become a space, inline tags disappear, and entities are
// decoded both before and after tag removal to unwrap double-escaped markup.
func StripHTML(text string) string {
	text = Decode(text)
	text = tagPattern.ReplaceAllStringFunc(text, func(tag string) string {
		m := tagPattern.FindStringSubmatch(tag)
		if IsInlineTag(m[1]) {
			return ""
		}
		return " "
	})
	text = Decode(text)
	text = spacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
