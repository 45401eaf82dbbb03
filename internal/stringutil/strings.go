// Package stringutil provides string matching helpers for chat input.
package stringutil

import "strings"

// Compact removes all whitespace, so "청년 농업인" and "청년농업인" compare equal.
func Compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// ContainsAllRunes reports whether s contains every rune of chars, in any
// order and counting repeats. ASCII letters match case-insensitively.
//
//	ContainsAllRunes("청년농업인 영농정착 지원", "청년정착") == true
//	ContainsAllRunes("귀농 창업자금", "농농농") == false
func ContainsAllRunes(s, chars string) bool {
	if chars == "" {
		return true
	}
	if s == "" {
		return false
	}

	have := make(map[rune]int)
	for _, r := range strings.ToLower(s) {
		have[r]++
	}
	for _, r := range strings.ToLower(chars) {
		have[r]--
		if have[r] < 0 {
			return false
		}
	}
	return true
}
