package docpipe

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// readDocx parses a .docx archive by streaming word/document.xml.
func readDocx(r io.ReaderAt, size int64) ([]Block, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotDocx, err)
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return nil, fmt.Errorf("%w: word/document.xml not found in archive", ErrNotDocx)
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	return decodeBody(xml.NewDecoder(rc))
}

// decodeBody walks the direct children of <w:body>. Only paragraphs and
// tables become blocks; section properties, bookmarks and content controls
// are skipped.
func decodeBody(dec *xml.Decoder) ([]Block, error) {
	if err := seekElement(dec, "body"); err != nil {
		return nil, err
	}

	var blocks []Block
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: decode body: %v", ErrNotDocx, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				text, style, err := decodeParagraph(dec)
				if err != nil {
					return nil, err
				}
				blocks = append(blocks, Block{Type: BlockParagraph, Text: text, Style: style})
			case "tbl":
				tbl, err := decodeTable(dec)
				if err != nil {
					return nil, err
				}
				blocks = append(blocks, Block{Type: BlockTable, Table: tbl})
			default:
				if err := dec.Skip(); err != nil {
					return nil, fmt.Errorf("%w: skip %s: %v", ErrNotDocx, t.Name.Local, err)
				}
			}
		case xml.EndElement:
			if t.Name.Local == "body" {
				return blocks, nil
			}
		}
	}
}

func seekElement(dec *xml.Decoder, local string) error {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: <%s> not found", ErrNotDocx, local)
		}
		if err != nil {
			return fmt.Errorf("%w: decode document.xml: %v", ErrNotDocx, err)
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == local {
			return nil
		}
	}
}

// decodeParagraph consumes a <w:p> whose start tag was already read and
// returns its visible text and style id. Text boxes and drawings anchored
// in the paragraph are not part of its text.
func decodeParagraph(dec *xml.Decoder) (string, string, error) {
	var sb strings.Builder
	var style string
	inText := false
	depth := 1

	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return "", "", fmt.Errorf("%w: decode paragraph: %v", ErrNotDocx, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "pPr":
				s, err := decodeParagraphProps(dec)
				if err != nil {
					return "", "", err
				}
				style = s
				continue
			case "drawing", "pict", "object", "txbxContent", "delText":
				if err := dec.Skip(); err != nil {
					return "", "", fmt.Errorf("%w: skip %s: %v", ErrNotDocx, t.Name.Local, err)
				}
				continue
			case "t":
				inText = true
			case "tab":
				sb.WriteByte('\t')
			case "br", "cr":
				sb.WriteByte('\n')
			case "noBreakHyphen":
				sb.WriteByte('-')
			}
			depth++
		case xml.EndElement:
			depth--
			if t.Name.Local == "t" {
				inText = false
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return foldSpaces(norm.NFC.String(sb.String())), style, nil
}

// foldSpaces replaces Unicode space separators (NBSP, thin and figure
// spaces) with an ASCII space.
func foldSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if r != ' ' && unicode.Is(unicode.Zs, r) {
			return ' '
		}
		return r
	}, s)
}

// decodeParagraphProps consumes <w:pPr> and returns the pStyle value.
func decodeParagraphProps(dec *xml.Decoder) (string, error) {
	var style string
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return "", fmt.Errorf("%w: decode paragraph properties: %v", ErrNotDocx, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "pStyle" {
				style = attr(t, "val")
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return style, nil
}

// decodeTable consumes a <w:tbl> whose start tag was already read.
func decodeTable(dec *xml.Decoder) (*Table, error) {
	tbl := &Table{}
	// Text of the cell that opened a vertical merge, per grid column.
	merged := map[int]string{}

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: decode table: %v", ErrNotDocx, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "tr" {
				if err := dec.Skip(); err != nil {
					return nil, fmt.Errorf("%w: skip %s: %v", ErrNotDocx, t.Name.Local, err)
				}
				continue
			}
			row, err := decodeRow(dec, merged)
			if err != nil {
				return nil, err
			}
			tbl.Rows = append(tbl.Rows, row)
		case xml.EndElement:
			if t.Name.Local == "tbl" {
				return tbl, nil
			}
		}
	}
}

func decodeRow(dec *xml.Decoder, merged map[int]string) ([]string, error) {
	var cells []string
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: decode row: %v", ErrNotDocx, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "tc" {
				if err := dec.Skip(); err != nil {
					return nil, fmt.Errorf("%w: skip %s: %v", ErrNotDocx, t.Name.Local, err)
				}
				continue
			}
			c, err := decodeCell(dec)
			if err != nil {
				return nil, err
			}
			col := len(cells)
			text := c.text
			switch c.vMerge {
			case "restart":
				merged[col] = text
			case "continue":
				text = merged[col]
			default:
				delete(merged, col)
			}
			for range c.span {
				cells = append(cells, text)
			}
		case xml.EndElement:
			if t.Name.Local == "tr" {
				return cells, nil
			}
		}
	}
}

type cell struct {
	text   string
	span   int
	vMerge string // "", "restart" or "continue"
}

func decodeCell(dec *xml.Decoder) (cell, error) {
	c := cell{span: 1}
	var paras []string
	for {
		tok, err := dec.Token()
		if err != nil {
			return cell{}, fmt.Errorf("%w: decode cell: %v", ErrNotDocx, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				text, _, err := decodeParagraph(dec)
				if err != nil {
					return cell{}, err
				}
				paras = append(paras, text)
			case "tcPr":
				if err := decodeCellProps(dec, &c); err != nil {
					return cell{}, err
				}
			default:
				// Nested tables are not part of the cell's own text.
				if err := dec.Skip(); err != nil {
					return cell{}, fmt.Errorf("%w: skip %s: %v", ErrNotDocx, t.Name.Local, err)
				}
			}
		case xml.EndElement:
			if t.Name.Local == "tc" {
				c.text = strings.Join(paras, "\n")
				return c, nil
			}
		}
	}
}

func decodeCellProps(dec *xml.Decoder, c *cell) error {
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: decode cell properties: %v", ErrNotDocx, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "gridSpan":
				if n, err := strconv.Atoi(attr(t, "val")); err == nil && n > 1 {
					c.span = n
				}
			case "vMerge":
				if attr(t, "val") == "restart" {
					c.vMerge = "restart"
				} else {
					c.vMerge = "continue"
				}
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return nil
}

func attr(se xml.StartElement, local string) string {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
