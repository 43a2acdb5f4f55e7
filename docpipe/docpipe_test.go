package docpipe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hazyhaar/kadry/internal/docxtest"
)

func TestDetect(t *testing.T) {
	pipe := New(Config{})

	f, err := pipe.Detect("Справка.DOCX")
	if err != nil {
		t.Fatal(err)
	}
	if f != FormatDocx {
		t.Fatalf("Detect = %q, want %q", f, FormatDocx)
	}

	for _, name := range []string{"file.doc", "file.pdf", "archive.zip", "noext"} {
		if _, err := pipe.Detect(name); err == nil {
			t.Errorf("Detect(%q): expected error", name)
		}
	}
}

func TestOpen_BlockOrder(t *testing.T) {
	path := docxtest.New().
		Paragraph("Командир роты").
		Table([]string{"Образование", "высшее"}).
		Paragraph("").
		Paragraph("Заместитель командира").
		Table([]string{"Опыт", "3 года"}).
		WriteFile(t, t.TempDir(), "q.docx")

	pipe := New(Config{})
	doc, err := pipe.Open(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Name != "q.docx" || doc.Format != FormatDocx {
		t.Fatalf("name/format = %q/%q", doc.Name, doc.Format)
	}

	want := []BlockType{BlockParagraph, BlockTable, BlockParagraph, BlockParagraph, BlockTable}
	if len(doc.Blocks) != len(want) {
		t.Fatalf("got %d blocks, want %d", len(doc.Blocks), len(want))
	}
	for i, bt := range want {
		if doc.Blocks[i].Type != bt {
			t.Errorf("block %d: type %q, want %q", i, doc.Blocks[i].Type, bt)
		}
	}
	if doc.Blocks[0].Text != "Командир роты" {
		t.Errorf("block 0 text = %q", doc.Blocks[0].Text)
	}
	if got := doc.Blocks[4].Table.Rows[0][1]; got != "3 года" {
		t.Errorf("table cell = %q", got)
	}
}

func TestDocument_AllIsRestartable(t *testing.T) {
	data := docxtest.New().Paragraph("a").Table([]string{"x", "y"}).Paragraph("b").Bytes(t)
	doc, err := New(Config{}).ReadBytes(context.Background(), "mem", data)
	if err != nil {
		t.Fatal(err)
	}

	count := func() int {
		n := 0
		for range doc.All() {
			n++
		}
		return n
	}
	if a, b := count(), count(); a != 3 || b != 3 {
		t.Fatalf("iterations = %d, %d, want 3, 3", a, b)
	}

	// Early break must not panic.
	for b := range doc.All() {
		if b.Type == BlockTable {
			break
		}
	}
}

func TestParagraphsAndTables(t *testing.T) {
	data := docxtest.New().
		Paragraph("  первая  ").
		Paragraph("   ").
		Table([]string{"в таблице", "не абзац"}).
		Paragraph("вторая").
		Bytes(t)
	doc, err := New(Config{}).ReadBytes(context.Background(), "mem", data)
	if err != nil {
		t.Fatal(err)
	}

	paras := doc.Paragraphs()
	if len(paras) != 2 || paras[0] != "первая" || paras[1] != "вторая" {
		t.Fatalf("Paragraphs = %q", paras)
	}
	if tables := doc.Tables(); len(tables) != 1 {
		t.Fatalf("Tables = %d, want 1", len(tables))
	}
}

func TestParagraphText_FoldsUnicodeSpaces(t *testing.T) {
	data := docxtest.New().Paragraph("25\u00a0сентября\u202f1995\u2009г. Капитан").Bytes(t)
	doc, err := New(Config{}).ReadBytes(context.Background(), "mem", data)
	if err != nil {
		t.Fatal(err)
	}
	if got := doc.Blocks[0].Text; got != "25 сентября 1995 г. Капитан" {
		t.Fatalf("text = %q", got)
	}
}

func TestParagraphText_RunsTabsBreaks(t *testing.T) {
	data := docxtest.New().Raw(`<w:p>
  <w:pPr><w:pStyle w:val="Heading1"/><w:tabs><w:tab w:val="left" w:pos="720"/></w:tabs></w:pPr>
  <w:r><w:t>Фамилия</w:t></w:r>
  <w:r><w:tab/><w:t xml:space="preserve"> Имя</w:t></w:r>
  <w:r><w:br/><w:t>Отчество</w:t></w:r>
  <w:del><w:r><w:delText>удалено</w:delText></w:r></w:del>
  <w:ins><w:r><w:t>!</w:t></w:r></w:ins>
</w:p>`).Bytes(t)

	doc, err := New(Config{}).ReadBytes(context.Background(), "mem", data)
	if err != nil {
		t.Fatal(err)
	}
	b := doc.Blocks[0]
	if b.Style != "Heading1" {
		t.Errorf("style = %q", b.Style)
	}
	if want := "Фамилия\t Имя\nОтчество!"; b.Text != want {
		t.Errorf("text = %q, want %q", b.Text, want)
	}
}

func TestParagraphText_NFC(t *testing.T) {
	// "й" as и + combining breve.
	data := docxtest.New().Paragraph("Кра\u0438\u0306").Bytes(t)
	doc, err := New(Config{}).ReadBytes(context.Background(), "mem", data)
	if err != nil {
		t.Fatal(err)
	}
	if got := doc.Blocks[0].Text; got != "Кра\u0439" {
		t.Fatalf("text = %q, want composed form", got)
	}
}

func TestTable_MergedCells(t *testing.T) {
	data := docxtest.New().Raw(`<w:tbl>
<w:tr>
  <w:tc><w:tcPr><w:vMerge w:val="restart"/></w:tcPr><w:p><w:r><w:t>A</w:t></w:r></w:p></w:tc>
  <w:tc><w:tcPr><w:gridSpan w:val="2"/></w:tcPr><w:p><w:r><w:t>B</w:t></w:r></w:p></w:tc>
</w:tr>
<w:tr>
  <w:tc><w:tcPr><w:vMerge/></w:tcPr><w:p/></w:tc>
  <w:tc><w:p><w:r><w:t>C</w:t></w:r></w:p><w:p><w:r><w:t>D</w:t></w:r></w:p></w:tc>
  <w:tc>
    <w:tbl><w:tr><w:tc><w:p><w:r><w:t>nested</w:t></w:r></w:p></w:tc></w:tr></w:tbl>
    <w:p><w:r><w:t>E</w:t></w:r></w:p>
  </w:tc>
</w:tr>
</w:tbl>`).Bytes(t)

	doc, err := New(Config{}).ReadBytes(context.Background(), "mem", data)
	if err != nil {
		t.Fatal(err)
	}
	rows := doc.Blocks[0].Table.Rows
	want := [][]string{{"A", "B", "B"}, {"A", "C\nD", "E"}}
	if len(rows) != len(want) {
		t.Fatalf("rows = %q", rows)
	}
	for i := range want {
		if len(rows[i]) != len(want[i]) {
			t.Fatalf("row %d = %q, want %q", i, rows[i], want[i])
		}
		for j := range want[i] {
			if rows[i][j] != want[i][j] {
				t.Errorf("cell[%d][%d] = %q, want %q", i, j, rows[i][j], want[i][j])
			}
		}
	}
}

func TestRead_NotDocx(t *testing.T) {
	pipe := New(Config{})

	_, err := pipe.ReadBytes(context.Background(), "junk.docx", []byte("definitely not a zip"))
	if !errors.Is(err, ErrNotDocx) {
		t.Fatalf("err = %v, want ErrNotDocx", err)
	}

	noDoc := docxtest.Zip(t, map[string][]byte{"readme.txt": []byte("hi")})
	_, err = pipe.ReadBytes(context.Background(), "empty.docx", noDoc)
	if !errors.Is(err, ErrNotDocx) {
		t.Fatalf("err = %v, want ErrNotDocx", err)
	}

	broken := docxtest.Zip(t, map[string][]byte{"word/document.xml": []byte("<w:document><w:body><w:p>")})
	_, err = pipe.ReadBytes(context.Background(), "broken.docx", broken)
	if !errors.Is(err, ErrNotDocx) {
		t.Fatalf("err = %v, want ErrNotDocx", err)
	}
}

func TestRead_TooLarge(t *testing.T) {
	data := docxtest.New().Paragraph("x").Bytes(t)
	pipe := New(Config{MaxFileSize: 10})
	if _, err := pipe.ReadBytes(context.Background(), "big.docx", data); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}

	path := filepath.Join(t.TempDir(), "big.docx")
	os.WriteFile(path, data, 0o644)
	if _, err := pipe.Open(context.Background(), path); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Open err = %v, want ErrTooLarge", err)
	}
}

func TestRead_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	data := docxtest.New().Paragraph("x").Bytes(t)
	if _, err := New(Config{}).ReadBytes(ctx, "x.docx", data); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestSupportedFormats(t *testing.T) {
	formats := SupportedFormats()
	if len(formats) != 1 || formats[0] != "docx" {
		t.Fatalf("SupportedFormats = %v", formats)
	}
}
