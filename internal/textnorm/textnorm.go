// Package textnorm cleans and normalizes extracted document text.
//
// All functions are pure and total: empty input yields empty output and
// repeated application is stable.
package textnorm

import (
	"regexp"
	"strings"
)

var (
	lineBreakRun  = regexp.MustCompile(`\n+`)
	pageNumber    = regexp.MustCompile(`(?i)\bPage\s*\d+\b`)
	digitOnlyLine = regexp.MustCompile(`(?m)^\s*\d+\s*$`)
	whitespaceRun = regexp.MustCompile(`\s+`)
	referencesTok = regexp.MustCompile(`(?i)\b(?:References|Bibliography)\b`)
)

// normalizer expands ligature glyphs and replaces typographic quotes with
// their plain ASCII equivalents.
var normalizer = strings.NewReplacer(
	"ﬁ", "fi",
	"ﬂ", "fl",
	"“", `"`,
	"”", `"`,
	"’", "'",
)

// Clean strips layout artifacts from extracted text: runs of line breaks are
// collapsed, "Page N" tokens and digit-only lines are removed, remaining
// single line breaks are merged into spaces, and whitespace runs collapse to
// a single space.
func Clean(text string) string {
	text = lineBreakRun.ReplaceAllString(text, "\n")
	text = pageNumber.ReplaceAllString(text, "")
	text = digitOnlyLine.ReplaceAllString(text, "")
	// All break runs are single by now, so every remaining newline is an
	// intra-paragraph break.
	text = strings.ReplaceAll(text, "\n", " ")
	text = whitespaceRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Normalize replaces ligature and typographic quote glyphs. Idempotent.
func Normalize(text string) string {
	return normalizer.Replace(text)
}

// TruncateAtReferences returns the text preceding the first whole-word
// "References" or "Bibliography" token (case-insensitive), or the text
// unchanged when neither occurs.
func TruncateAtReferences(text string) string {
	loc := referencesTok.FindStringIndex(text)
	if loc == nil {
		return text
	}
	return text[:loc[0]]
}
