package dossier

import "strings"

// MaritalStatus is the closed set of marital status codes. The zero value
// means unknown.
type MaritalStatus string

const (
	Married  MaritalStatus = "MARRIED"
	Single   MaritalStatus = "SINGLE"
	Divorced MaritalStatus = "DIVORCED"
	Widowed  MaritalStatus = "WIDOWED"
)

type keywordSet struct {
	status   MaritalStatus
	keywords []string
}

// maritalKeywords is tried in order. Negated forms come first because
// "не замужем" contains "замужем".
var maritalKeywords = []keywordSet{
	{Single, []string{"не замужем", "не женат"}},
	{Married, []string{"женат", "замужем", "брак", "супруг", "супруга"}},
	{Single, []string{"холост", "одинок"}},
	{Divorced, []string{"развед", "расторг", "бывш"}},
	{Widowed, []string{"вдов", "вдова", "вдовец"}},
}

// MapMaritalStatus maps free text to a status code, or "" when no keyword
// matches.
func MapMaritalStatus(text string) MaritalStatus {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return ""
	}
	for _, set := range maritalKeywords {
		for _, k := range set.keywords {
			if strings.Contains(t, k) {
				return set.status
			}
		}
	}
	return ""
}

var combatKeywords = []string{"участник", "боев", "миротвор"}

// CombatFlag reports whether the combat-participation text declares actual
// participation.
func CombatFlag(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return false
	}
	for _, k := range combatKeywords {
		if strings.Contains(t, k) {
			return true
		}
	}
	return false
}
