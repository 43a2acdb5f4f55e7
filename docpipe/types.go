// CLAUDE:SUMMARY Defines Format, Block, Table and Document types for the docpipe block reader.
package docpipe

import (
	"iter"
	"strings"
)

// Format identifies a document type.
type Format string

const (
	FormatDocx Format = "docx"
)

// BlockType tags a body-level element of a document.
type BlockType string

const (
	BlockParagraph BlockType = "paragraph"
	BlockTable     BlockType = "table"
)

// Table is a body-level table. Horizontally merged cells are repeated once
// per grid column and vertically merged cells repeat the text of the cell
// that opened the merge, so every row reads left to right as rendered.
// Paragraphs inside a cell are joined with "\n".
type Table struct {
	Rows [][]string `json:"rows"`
}

// Block is one paragraph or one table, in body order.
type Block struct {
	Type  BlockType `json:"type"`
	Text  string    `json:"text,omitempty"`  // paragraph text, untrimmed
	Style string    `json:"style,omitempty"` // paragraph style id
	Table *Table    `json:"table,omitempty"`
}

// Document is the ordered block sequence of a file.
type Document struct {
	Name   string  `json:"name"`
	Format Format  `json:"format"`
	Blocks []Block `json:"blocks"`
}

// All yields every block in document order. The sequence can be ranged
// over any number of times.
func (d *Document) All() iter.Seq[Block] {
	return func(yield func(Block) bool) {
		for _, b := range d.Blocks {
			if !yield(b) {
				return
			}
		}
	}
}

// Paragraphs returns the trimmed, non-empty body paragraphs in order.
// Paragraphs inside tables are not included.
func (d *Document) Paragraphs() []string {
	var out []string
	for _, b := range d.Blocks {
		if b.Type != BlockParagraph {
			continue
		}
		if t := strings.TrimSpace(b.Text); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Tables returns the body-level tables in order.
func (d *Document) Tables() []Table {
	var out []Table
	for _, b := range d.Blocks {
		if b.Type == BlockTable && b.Table != nil {
			out = append(out, *b.Table)
		}
	}
	return out
}
