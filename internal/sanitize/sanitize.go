package sanitize

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// StripHTML returns the visible text of an HTML fragment. Listing
// descriptions come from a rich-text editor; search indexing and
// notification bodies want plain text.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return collapse(s)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return collapse(s)
	}

	// Drop script/style content entirely before extracting text
	doc.Find("script, style").Remove()

	return collapse(doc.Text())
}

// Snippet returns the first max runes of the stripped text, with an
// ellipsis when truncated.
func Snippet(s string, max int) string {
	text := StripHTML(s)
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return strings.TrimSpace(string(runes[:max])) + "…"
}

// collapse normalizes all whitespace runs to single spaces
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
