// Package protect shields structural substrings of a subtitle block from
// the translation call. Timecodes and markup tags are swapped for opaque
// numbered placeholders before the text goes to the model, and swapped
// back afterward.
//
// Placeholder families:
//
//	<TIME_n>  timecode stamps (HH:MM:SS,mmm)
//	<BTAG_n>  opening or self-closing markup tags
//	<ETAG_n>  closing markup tags (</...>)
//
// Counters restart at zero for every Protect call, so the prompt's "keep
// placeholders unchanged" instruction refers to a stable, predictable set.
package protect

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var (
	timecodePattern = regexp.MustCompile(`\d{2}:\d{2}:\d{2},\d{3}`)
	tagPattern      = regexp.MustCompile(`<[^>]+>`)
)

// Replacements maps placeholder tokens back to the original substrings
// they stand in for. One map is created per protected text and must be
// used with that text only.
type Replacements map[string]string

// Protect replaces every timecode, then every markup tag, in text with a
// numbered placeholder. Tags are collected from the original text so that
// freshly inserted <TIME_n> placeholders are never re-protected.
// Replacement is literal and global per distinct substring.
func Protect(text string) (string, Replacements) {
	replacements := make(Replacements)
	protected := text

	for idx, tc := range timecodePattern.FindAllString(text, -1) {
		placeholder := fmt.Sprintf("<TIME_%d>", idx)
		protected = strings.ReplaceAll(protected, tc, placeholder)
		replacements[placeholder] = tc
	}

	for idx, tag := range tagPattern.FindAllString(text, -1) {
		var placeholder string
		if strings.HasPrefix(tag, "</") {
			placeholder = fmt.Sprintf("<ETAG_%d>", idx)
		} else {
			placeholder = fmt.Sprintf("<BTAG_%d>", idx)
		}
		protected = strings.ReplaceAll(protected, tag, placeholder)
		replacements[placeholder] = tag
	}

	return protected, replacements
}

// Restore substitutes every placeholder in text back to its original
// substring. Placeholders that the model dropped are simply not restored;
// the call never fails.
func Restore(text string, replacements Replacements) string {
	restored := text
	for placeholder, original := range replacements {
		restored = strings.ReplaceAll(restored, placeholder, original)
	}
	return restored
}

// Missing returns, sorted, the placeholders recorded in replacements
// that no longer occur in text. Used to warn when the model mangled a
// token.
func Missing(text string, replacements Replacements) []string {
	var missing []string
	for placeholder := range replacements {
		if !strings.Contains(text, placeholder) {
			missing = append(missing, placeholder)
		}
	}
	sort.Strings(missing)
	return missing
}
