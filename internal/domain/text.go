package domain

import (
	"strings"
	"unicode"
	"unicode/utf16"
)

// jsSpaceClass is the regexp class body for ECMAScript WhiteSpace and LineTerminator,
// which is what `\s` matches in the browser. RE2's `\s` is ASCII-only.
const jsSpaceClass = `\t\n\v\f\r\x{feff}\x{2028}\x{2029}\p{Zs}`

func isJSSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', '\ufeff', '\u2028', '\u2029':
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

// trimJS trims the characters String.prototype.trim removes.
func trimJS(s string) string {
	return strings.TrimFunc(s, isJSSpace)
}

// jsLength counts UTF-16 code units, matching String.prototype.length.
// Characters outside the BMP count twice.
func jsLength(s string) int {
	n := 0
	for _, r := range s {
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}
