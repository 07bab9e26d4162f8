package parser

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// UnnamedColumn replaces a header that sanitizes to nothing.
const UnnamedColumn = "unnamed_column"

var separators = map[rune]bool{
	' ': true, '-': true, '.': true, '/': true, '\\': true,
	'(': true, ')': true, '[': true, ']': true, '{': true, '}': true,
}

// SanitizeName turns a raw header into an ASCII identifier.
func SanitizeName(raw string) string {
	var stripped strings.Builder
	for _, r := range raw {
		if isInvisible(r) {
			continue
		}
		stripped.WriteRune(r)
	}
	s := strings.Join(strings.Fields(stripped.String()), " ")

	var b strings.Builder
	for _, r := range norm.NFKD.String(s) {
		switch {
		case r < unicode.MaxASCII && (isASCIIAlnum(r) || r == '_'):
			b.WriteRune(r)
		case separators[r]:
			b.WriteByte('_')
		case r < unicode.MaxASCII:
			b.WriteByte('_')
		case unicode.Is(unicode.Mn, r):
			// combining marks left over from decomposition
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			fmt.Fprintf(&b, "u%04x", r)
		default:
			b.WriteByte('_')
		}
	}

	out := b.String()
	if out == "" {
		return UnnamedColumn
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = "col_" + out
	}
	return out
}

// SanitizeNames sanitizes every header and resolves duplicates with numeric suffixes.
func SanitizeNames(raw []string) []string {
	out := make([]string, len(raw))
	used := make(map[string]bool, len(raw))
	for i, r := range raw {
		name := SanitizeName(r)
		if used[name] {
			for n := 2; ; n++ {
				candidate := name + "_" + strconv.Itoa(n)
				if !used[candidate] {
					name = candidate
					break
				}
			}
		}
		used[name] = true
		out[i] = name
	}
	return out
}

func isInvisible(r rune) bool {
	if unicode.In(r, unicode.Cc, unicode.Cf, unicode.Cs, unicode.Co) {
		return true
	}
	// unassigned code points belong to no general category
	return !unicode.In(r, unicode.L, unicode.M, unicode.N, unicode.P, unicode.S, unicode.Z)
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
