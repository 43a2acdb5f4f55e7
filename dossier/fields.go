package dossier

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hazyhaar/kadry/datenorm"
)

var (
	// "Капитан (01.08.2023)"
	rankLine = regexp.MustCompile(`^([А-ЯЁA-Z][а-яёa-zA-ZЁ\-\p{Zs}]+?)[\s\p{Zs}]*\((\d{2}\.\d{2}\.\d{4})\)$`)
	// two or three capitalized words
	personName = regexp.MustCompile(`^[А-ЯЁA-Z][а-яёa-zЁ\-]+ [А-ЯЁA-Z][а-яёa-zЁ\-]+(?: [А-ЯЁA-Z][а-яёa-zЁ\-]+)?$`)
	birthSplit = regexp.MustCompile(`года,|,`)
	trailYear  = regexp.MustCompile(`\s*года$`)
	emailToken = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
)

// documentTitle is the heading that may sit between the rank line and the name.
const documentTitle = "СПРАВКА"

var emailLabels = []string{"e-mail", "email", "почта", "эл. почта", "эл.почта", "электронная почта"}

// findRank returns the first rank line and its index, or nil and -1.
func findRank(lines []string) (*Rank, int) {
	for i, ln := range lines {
		g := rankLine.FindStringSubmatch(ln)
		if g == nil {
			continue
		}
		return &Rank{Name: strings.Join(strings.Fields(g[1]), " "), Since: datenorm.Ptr(g[2])}, i
	}
	return nil, -1
}

// nameStrategy returns a full name or ok=false to let the next one try.
type nameStrategy func(lines []string, rankIdx int) (string, bool)

var nameStrategies = []nameStrategy{
	nameAfterRank,
	func(lines []string, _ int) (string, bool) {
		v := lookup(lines, LabelFullName)
		return v, v != ""
	},
}

func findFullName(lines []string, rankIdx int) string {
	for _, s := range nameStrategies {
		if name, ok := s(lines, rankIdx); ok {
			return name
		}
	}
	return ""
}

// nameAfterRank takes the first line after the rank line, skipping the
// document title, when it looks like a person's name.
func nameAfterRank(lines []string, rankIdx int) (string, bool) {
	if rankIdx < 0 {
		return "", false
	}
	j := rankIdx + 1
	for j < len(lines) && (strings.TrimSpace(lines[j]) == "" || strings.ToUpper(strings.TrimSpace(lines[j])) == documentTitle) {
		j++
	}
	if j >= len(lines) || !personName.MatchString(lines[j]) {
		return "", false
	}
	return strings.TrimSpace(lines[j]), true
}

// lookup returns the value of the first line starting with label
// (case-insensitive): the text after its first colon, or after the label
// when the line has no colon.
func lookup(lines []string, label string) string {
	low := strings.ToLower(label)
	for _, ln := range lines {
		if !strings.HasPrefix(strings.ToLower(ln), low) {
			continue
		}
		if _, after, ok := strings.Cut(ln, ":"); ok {
			return strings.TrimSpace(after)
		}
		return strings.TrimSpace(skipRunes(ln, utf8.RuneCountInString(label)))
	}
	return ""
}

func skipRunes(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[i:]
		}
		n--
	}
	return ""
}

// parseBirth splits "25 сентября 1995 года, г. Атырау" into date and place.
// Returns nil when neither part is present.
func parseBirth(value string) *Birth {
	if value == "" {
		return nil
	}
	var parts []string
	for _, p := range splitOnce(birthSplit, value) {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	var b Birth
	if len(parts) > 0 {
		b.Date = datenorm.Ptr(trailYear.ReplaceAllString(parts[0], ""))
	}
	if len(parts) > 1 {
		place := parts[1]
		b.Place = &place
	}
	if b.Date == nil && b.Place == nil {
		return nil
	}
	return &b
}

func splitOnce(re *regexp.Regexp, s string) []string {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return []string{s}
	}
	return []string{s[:loc[0]], s[loc[1]:]}
}

// FindEmail prefers a line labeled as an email field, then any email-shaped
// token in the document. Returns nil when there is none.
func FindEmail(lines []string) *string {
	for _, ln := range lines {
		if !hasEmailLabel(strings.ToLower(ln)) {
			continue
		}
		_, after, _ := strings.Cut(ln, ":")
		if m := emailToken.FindString(after); m != "" {
			return &m
		}
	}
	for _, ln := range lines {
		if m := emailToken.FindString(ln); m != "" {
			return &m
		}
	}
	return nil
}

func hasEmailLabel(low string) bool {
	for _, p := range emailLabels {
		if strings.HasPrefix(low, p+":") || strings.HasPrefix(low, p+" :") {
			return true
		}
	}
	return false
}

// signature reads the HR block from the last three of the final ten lines.
func signature(lines []string) SignBlock {
	tail := lines
	if len(tail) > 10 {
		tail = tail[len(tail)-10:]
	}
	if len(tail) < 3 {
		return SignBlock{}
	}
	n := len(tail)
	sb := SignBlock{HRTitle: tail[n-3], Organization: tail[n-2]}
	if f := strings.Fields(tail[n-1]); len(f) > 0 {
		sb.HRRank = f[0]
		sb.HRName = strings.Join(f[1:], " ")
	}
	return sb
}
