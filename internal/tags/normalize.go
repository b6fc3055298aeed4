package tags

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Longer phrases first so "remember this is" wins over "remember".
var fillers = []string{
	"remember this is",
	"mark this as",
	"marked as",
	"mark as",
	"this is",
	"remember",
	"please",
	"hello",
	"okay",
	"hey",
	"the",
	"my",
	"an",
	"ok",
	"hi",
	"a",
}

// NormalizeName turns a spoken description into a tag name.
func NormalizeName(description string) string {
	name := strings.TrimSpace(description)
	for {
		stripped := stripFiller(name)
		if stripped == name {
			break
		}
		name = stripped
	}

	name = strings.TrimRightFunc(name, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
	if name == "" {
		return ""
	}

	first, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(first)) + name[size:]
}

func stripFiller(s string) string {
	for _, f := range fillers {
		if len(s) < len(f) || !strings.EqualFold(s[:len(f)], f) {
			continue
		}
		rest := s[len(f):]
		if rest == "" {
			return ""
		}
		r, _ := utf8.DecodeRuneInString(rest)
		if unicode.IsSpace(r) || r == ',' {
			return strings.TrimLeftFunc(rest, func(r rune) bool {
				return unicode.IsSpace(r) || r == ','
			})
		}
	}
	return s
}
