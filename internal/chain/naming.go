package chain

import (
	"strings"
	"unicode"
)

// ExportedName converts a chain key to the Go identifier it most likely
// refers to. Underscore- and hyphen-separated words are joined in
// PascalCase:
//
//	"set_length" -> "SetLength"
//	"area"       -> "Area"
//	"total-area" -> "TotalArea"
func ExportedName(key string) string {
	if len(key) == 0 {
		return key
	}

	var b strings.Builder
	nextUpper := true
	for _, r := range key {
		if r == '-' || r == '_' {
			nextUpper = true
			continue
		}
		if nextUpper {
			b.WriteRune(unicode.ToUpper(r))
			nextUpper = false
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// candidateNames lists the member names tried for a key, exact name first.
func candidateNames(key string) []string {
	exported := ExportedName(key)
	if exported == key || exported == "" {
		return []string{key}
	}
	return []string{key, exported}
}
