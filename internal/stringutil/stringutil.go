package stringutil

import (
	"bytes"
	"strings"
	"unicode"
)

func PascalToSnake(s string) string {
	var b bytes.Buffer

	for i, c := range s {
		if unicode.IsUpper(c) {
			if i > 0 && (unicode.IsLower(rune(s[i-1])) || (i+1 < len(s) && unicode.IsLower(rune(s[i+1])))) {
				b.WriteByte('_')
			}

			b.WriteRune(unicode.ToLower(c))
		} else {
			b.WriteRune(c)
		}
	}

	return b.String()
}

// Ellipsize shortens s to at most n runes, cutting at a word boundary where
// one is close and appending "…".
func Ellipsize(s string, n int) string {
	s = strings.TrimSpace(s)

	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}

	cut := n
	for i := n; i > n*3/4; i-- {
		if unicode.IsSpace(r[i]) {
			cut = i
			break
		}
	}

	return strings.TrimRightFunc(string(r[:cut]), unicode.IsSpace) + "…"
}
