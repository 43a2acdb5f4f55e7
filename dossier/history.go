package dossier

import (
	"strings"

	"github.com/hazyhaar/kadry/datenorm"
	"github.com/hazyhaar/kadry/docpipe"
)

// HistorySection is the paragraph that opens a service history written as
// plain paragraphs instead of a table.
const HistorySection = "Самостоятельная трудовая деятельность и военная служба в ВС:"

// Header phrases of the "с какого времени / по какое время" columns.
const (
	headerFrom = "какого времени"
	headerTo   = "какое время"
)

// HistoryFromTables reads the first table whose header row has at least
// three cells and names the from/to columns. Data rows need three cells and
// a date token in the first; other rows are skipped. ok reports whether such
// a table was found, even if it held no data rows.
func HistoryFromTables(tables []docpipe.Table) (entries []ServiceEntry, ok bool) {
	for _, tbl := range tables {
		if len(tbl.Rows) == 0 || !isHistoryHeader(tbl.Rows[0]) {
			continue
		}
		for _, row := range tbl.Rows[1:] {
			if len(row) < 3 {
				continue
			}
			from := clean(row[0])
			if from == "" || !datenorm.IsDateToken(from) {
				continue
			}
			entries = append(entries, ServiceEntry{
				From:     datenorm.Ptr(from),
				To:       datenorm.Ptr(clean(row[1])),
				Position: clean(row[2]),
			})
		}
		return entries, true
	}
	return nil, false
}

func isHistoryHeader(row []string) bool {
	if len(row) < 3 {
		return false
	}
	return strings.Contains(strings.ToLower(clean(row[0])), headerFrom) &&
		strings.Contains(strings.ToLower(clean(row[1])), headerTo)
}

// HistoryFromParagraphs reads the history following HistorySection: from
// the first date token on, lines are taken three at a time (from, to,
// position) while the first of each group is a date token.
func HistoryFromParagraphs(lines []string) []ServiceEntry {
	idx := -1
	for i, ln := range lines {
		if ln == HistorySection {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	start := -1
	for j := idx + 1; j < len(lines); j++ {
		if datenorm.IsDateToken(lines[j]) {
			start = j
			break
		}
	}
	if start < 0 {
		return nil
	}

	var entries []ServiceEntry
	for k := start; k+2 < len(lines); k += 3 {
		from := strings.TrimSpace(lines[k])
		if !datenorm.IsDateToken(from) {
			break
		}
		entries = append(entries, ServiceEntry{
			From:     datenorm.Ptr(from),
			To:       datenorm.Ptr(lines[k+1]),
			Position: clean(lines[k+2]),
		})
	}
	return entries
}

// clean collapses whitespace runs, newlines included, to single spaces.
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
