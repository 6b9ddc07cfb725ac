// Package text provides utilities for text processing and analysis.
// It includes rune-aware counting and truncation, whitespace normalization,
// and the date extractor shared by the notice builder and the PDF resolver.
package text

import "strings"

// CountRunes counts the number of Unicode characters (runes) in the given text.
// Notice titles are frequently mixed Bengali/English, so byte length is not usable.
//
// Examples:
//
//	CountRunes("hello")   // returns 5
//	CountRunes("পরীক্ষা")  // returns 7
//	CountRunes("")        // returns 0
func CountRunes(text string) int {
	return len([]rune(text))
}

// Truncate shortens text to at most max runes, ending with "..." when cut.
// A max below 4 returns the first max runes without an ellipsis.
func Truncate(text string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	if max < 4 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

// CollapseSpace trims text and replaces every whitespace run with a single space.
func CollapseSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
