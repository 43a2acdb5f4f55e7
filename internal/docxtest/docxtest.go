// Package docxtest builds minimal .docx documents and zip archives in memory
// for tests.
package docxtest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

const header = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
`

const footer = `<w:sectPr><w:pgSz w:w="11906" w:h="16838"/></w:sectPr>
</w:body>
</w:document>`

// Builder accumulates body elements in order.
type Builder struct {
	body strings.Builder
}

// New returns an empty document builder.
func New() *Builder { return &Builder{} }

// Paragraph appends a plain paragraph.
func (b *Builder) Paragraph(text string) *Builder {
	b.body.WriteString("<w:p><w:r><w:t xml:space=\"preserve\">")
	b.body.WriteString(escape(text))
	b.body.WriteString("</w:t></w:r></w:p>\n")
	return b
}

// Paragraphs appends one paragraph per argument.
func (b *Builder) Paragraphs(texts ...string) *Builder {
	for _, t := range texts {
		b.Paragraph(t)
	}
	return b
}

// StyledParagraph appends a paragraph with a pStyle.
func (b *Builder) StyledParagraph(style, text string) *Builder {
	b.body.WriteString(`<w:p><w:pPr><w:pStyle w:val="` + escape(style) + `"/></w:pPr><w:r><w:t>`)
	b.body.WriteString(escape(text))
	b.body.WriteString("</w:t></w:r></w:p>\n")
	return b
}

// Table appends a table; each row is a slice of cell texts. A cell text
// containing "\n" becomes several paragraphs in that cell.
func (b *Builder) Table(rows ...[]string) *Builder {
	b.body.WriteString("<w:tbl><w:tblPr><w:tblW w:w=\"0\" w:type=\"auto\"/></w:tblPr>\n")
	for _, row := range rows {
		b.body.WriteString("<w:tr>")
		for _, c := range row {
			b.body.WriteString("<w:tc><w:tcPr><w:tcW w:w=\"0\" w:type=\"auto\"/></w:tcPr>")
			for _, line := range strings.Split(c, "\n") {
				b.body.WriteString("<w:p><w:r><w:t>" + escape(line) + "</w:t></w:r></w:p>")
			}
			b.body.WriteString("</w:tc>")
		}
		b.body.WriteString("</w:tr>\n")
	}
	b.body.WriteString("</w:tbl>\n")
	return b
}

// Raw appends body XML verbatim.
func (b *Builder) Raw(xmlFragment string) *Builder {
	b.body.WriteString(xmlFragment)
	b.body.WriteByte('\n')
	return b
}

// DocumentXML returns the word/document.xml content.
func (b *Builder) DocumentXML() string {
	return header + b.body.String() + footer
}

// Bytes returns the .docx archive.
func (b *Builder) Bytes(t testing.TB) []byte {
	t.Helper()
	return Zip(t, map[string][]byte{
		"[Content_Types].xml": []byte(`<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`),
		"word/document.xml":   []byte(b.DocumentXML()),
	})
}

// WriteFile writes the .docx archive to dir/name and returns its path.
func (b *Builder) WriteFile(t testing.TB, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, b.Bytes(t), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// Zip packs files into a zip archive, entries sorted by name.
func Zip(t testing.TB, files map[string][]byte) []byte {
	t.Helper()
	names := make([]string, 0, len(files))
	for n := range files {
		names = append(names, n)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, n := range names {
		fw, err := w.Create(n)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write(files[n]); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func escape(s string) string {
	var sb strings.Builder
	xml.EscapeText(&sb, []byte(s))
	return sb.String()
}
