package qualification

import (
	"strings"
	"unicode"
)

const maxCodeLen = 50

// MakeCode derives a position code from its title: upper-cased, spaces
// turned into underscores, other non-alphanumeric characters dropped,
// truncated to 50 characters.
//
//	"Командир роты (резерв)" → "КОМАНДИР_РОТЫ_РЕЗЕРВ"
func MakeCode(title string) string {
	var sb strings.Builder
	n := 0
	for _, r := range strings.ToUpper(strings.Join(strings.Fields(title), " ")) {
		if n == maxCodeLen {
			break
		}
		switch {
		case r == ' ':
			r = '_'
		case r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r):
		default:
			continue
		}
		sb.WriteRune(r)
		n++
	}
	return sb.String()
}
