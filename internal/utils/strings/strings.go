package strings

import (
	"strings"

	"github.com/mitchellh/go-wordwrap"
)

// WrapString - wraps v by words into lines not longer than maxLength. Words longer than maxLength are split
func WrapString(v string, maxLength int) string {
	if maxLength <= 0 {
		return v
	}
	wrapped := strings.Split(wordwrap.WrapString(v, uint(maxLength)), "\n")
	res := make([]string, 0, len(wrapped))
	for _, s := range wrapped {
		for len(s) > maxLength {
			res = append(res, s[:maxLength])
			s = s[maxLength:]
		}
		res = append(res, s)
	}
	return strings.Join(res, "\n")
}

// Indent - prefixes every non-empty line of v with prefix
func Indent(v, prefix string) string {
	lines := strings.Split(v, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}
