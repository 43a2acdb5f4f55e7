// CLAUDE:SUMMARY Extracts categorized position-qualification rows from docx tables that follow a valid position title paragraph.
// Package qualification turns qualification-requirement documents into
// catalog rows. A document lists positions as title paragraphs, each
// followed by a table whose left column names a requirement category
// (education, experience, functions, competency) and whose right column holds
// the requirement text.
package qualification

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hazyhaar/kadry/docpipe"
)

// Category of a requirement row.
type Category string

const (
	Education  Category = "EDUCATION"
	Experience Category = "EXPERIENCE"
	Functions  Category = "FUNCTIONS"
	Competency Category = "COMPETENCY"
)

// DefaultSource is the source recorded on rows when the caller gives none.
const DefaultSource = "docx"

// maxTitleLen is the longest paragraph, in characters, accepted as a title.
const maxTitleLen = 120

// Row is one categorized requirement of a position. Order is 1-based and
// restarts with each table.
type Row struct {
	PositionTitle string   `json:"position_title"`
	Category      Category `json:"category"`
	Order         int      `json:"order"`
	Text          string   `json:"text"`
	Source        string   `json:"source"`
}

type categoryKeyword struct {
	keyword  string
	category Category
}

// categoryKeywords is tried in order; the first substring hit wins.
var categoryKeywords = []categoryKeyword{
	{"образование", Education},
	{"опыт", Experience},
	{"функцион", Functions},
	{"компетен", Competency},
}

// boilerplate marks paragraphs that are document headings or captions
// rather than position titles.
var boilerplate = []string{
	"квалификацион",
	"к воинским должностям",
	"(наименование должности)",
	"требования",
}

// Extract walks doc in block order. A paragraph passing ValidTitle becomes
// the active title; each later table contributes one Row per row whose first
// two cells are non-empty and whose left cell names a category. Tables met
// before any valid title are dropped.
func Extract(doc *docpipe.Document) []Row {
	var rows []Row
	title := ""
	for b := range doc.All() {
		switch b.Type {
		case docpipe.BlockParagraph:
			if t := strings.TrimSpace(b.Text); ValidTitle(t) {
				title = t
			}
		case docpipe.BlockTable:
			if title == "" || b.Table == nil {
				continue
			}
			rows = append(rows, tableRows(title, b.Table)...)
		}
	}
	return rows
}

func tableRows(title string, tbl *docpipe.Table) []Row {
	var out []Row
	order := 1
	for _, cells := range tbl.Rows {
		if len(cells) < 2 {
			continue
		}
		left := strings.TrimSpace(cells[0])
		right := strings.TrimSpace(cells[1])
		if left == "" || right == "" {
			continue
		}
		cat, ok := DetectCategory(left)
		if !ok {
			continue
		}
		out = append(out, Row{
			PositionTitle: title,
			Category:      cat,
			Order:         order,
			Text:          right,
			Source:        DefaultSource,
		})
		order++
	}
	return out
}

// DetectCategory maps a left-column cell to its category.
func DetectCategory(cell string) (Category, bool) {
	t := normalize(cell)
	for _, k := range categoryKeywords {
		if strings.Contains(t, k.keyword) {
			return k.category, true
		}
	}
	return "", false
}

// ValidTitle reports whether a trimmed paragraph can name a position: it is
// non-empty, holds no boilerplate phrase, is at most 120 characters and is
// not written entirely in capitals.
func ValidTitle(text string) bool {
	if text == "" {
		return false
	}
	t := normalize(text)
	for _, bad := range boilerplate {
		if strings.Contains(t, bad) {
			return false
		}
	}
	if utf8.RuneCountInString(text) > maxTitleLen {
		return false
	}
	return !isUpper(text)
}

// Titles returns the distinct position titles of rows in first-seen order.
func Titles(rows []Row) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, r := range rows {
		if !seen[r.PositionTitle] {
			seen[r.PositionTitle] = true
			out = append(out, r.PositionTitle)
		}
	}
	return out
}

// normalize lower-cases text and collapses whitespace runs to one space.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// isUpper is true when s has at least one cased letter and none in lower case.
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) || unicode.IsTitle(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}
