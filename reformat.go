package tinkerpen

import (
	"regexp"
	"strings"
)

// The reformatter is line and pattern based. It does not parse HTML: void
// elements written without "/>", tags split across lines and lines mixing
// several tags are indented by the same simple rules as everything else.
var (
	commentPattern     = regexp.MustCompile(`(?s)<!--.*?-->`)
	tagGapPattern      = regexp.MustCompile(`>\s*<`)
	openTagPattern     = regexp.MustCompile(`<[^/][^>]*>`)
	closeTagPattern    = regexp.MustCompile(`</[^>]+>`)
	selfClosingPattern = regexp.MustCompile(`<[^>]+/>`)
)

const indentUnit = "  "

// ReformatHTML re-indents an HTML fragment:
//
//  1. comments are removed, delimiters included
//  2. whitespace between ">" and "<" becomes a single line break
//  3. every line is trimmed, blank lines are dropped
//  4. lines are indented two spaces per open tag level
//
// Any "<" not followed by "/" opens (doctype included). A line with a closing
// tag and no opener steps out before it is written; a line with an opener, no
// self-closing tag and no closing tag steps in after it.
func ReformatHTML(src string) string {
	src = commentPattern.ReplaceAllString(src, "")
	src = tagGapPattern.ReplaceAllString(src, ">\n<")

	var out []string
	level := 0
	for _, raw := range strings.Split(src, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		opens := openTagPattern.MatchString(line)
		closes := closeTagPattern.MatchString(line)

		if closes && !opens {
			level--
		}

		out = append(out, strings.Repeat(indentUnit, max(level, 0))+line)

		if opens && !closes && !selfClosingPattern.MatchString(line) {
			level++
		}
	}

	return strings.Join(out, "\n")
}
