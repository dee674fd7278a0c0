package strutil

import "unicode/utf8"

// Truncate returns the longest prefix of s that is at most n bytes and does
// not split a multi-byte rune. The second result reports whether s was cut.
func Truncate(s string, n int) (string, bool) {
	if n < 0 {
		n = 0
	}
	if len(s) <= n {
		return s, false
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n], true
}

// Ellipsize truncates s to n bytes on a rune boundary and appends "..."
// when anything was dropped.
func Ellipsize(s string, n int) string {
	out, cut := Truncate(s, n)
	if cut {
		return out + "..."
	}
	return out
}
