// CLAUDE:SUMMARY Core pipeline engine: opens .docx files or bytes and returns their ordered paragraph/table blocks.
// Package docpipe reads word-processing documents into an ordered sequence
// of paragraph and table blocks.
//
// Only Office Open XML (.docx) is supported: the archive's
// word/document.xml body is streamed with encoding/xml and every top-level
// paragraph and table becomes one Block, in the order they appear on the
// page. Callers correlate a table with the paragraph that precedes it.
//
// Usage:
//
//	pipe := docpipe.New(docpipe.Config{})
//	doc, err := pipe.Open(ctx, "/path/to/file.docx")
//	for b := range doc.All() { ... }
package docpipe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrNotDocx is returned when the input is not a readable .docx archive.
	ErrNotDocx = errors.New("docpipe: not a valid docx document")

	// ErrTooLarge is returned when the input exceeds Config.MaxFileSize.
	ErrTooLarge = errors.New("docpipe: document too large")
)

// Pipeline is the document reading engine.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Pipeline with the given configuration.
func New(cfg Config) *Pipeline {
	cfg.defaults()
	return &Pipeline{
		cfg:    cfg,
		logger: cfg.Logger,
	}
}

// MaxFileSize returns the effective size cap in bytes.
func (p *Pipeline) MaxFileSize() int64 { return p.cfg.MaxFileSize }

// Detect returns the document format based on file extension.
func (p *Pipeline) Detect(name string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".docx":
		return FormatDocx, nil
	default:
		return "", fmt.Errorf("unsupported format: %q", ext)
	}
}

// Open reads the document at path.
func (p *Pipeline) Open(ctx context.Context, path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > p.cfg.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, info.Size(), p.cfg.MaxFileSize)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return p.Read(ctx, filepath.Base(path), f, info.Size())
}

// ReadBytes reads a document held in memory. name is used for logging and
// is copied into Document.Name; it does not need an extension.
func (p *Pipeline) ReadBytes(ctx context.Context, name string, data []byte) (*Document, error) {
	return p.Read(ctx, name, bytes.NewReader(data), int64(len(data)))
}

// Read reads a document of the given size from r.
func (p *Pipeline) Read(ctx context.Context, name string, r io.ReaderAt, size int64) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if size > p.cfg.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, size, p.cfg.MaxFileSize)
	}

	p.logger.Debug("reading document", "name", name, "size", size)

	blocks, err := readDocx(r, size)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	return &Document{
		Name:   name,
		Format: FormatDocx,
		Blocks: blocks,
	}, nil
}

// SupportedFormats returns all supported format extensions.
func SupportedFormats() []string {
	return []string{string(FormatDocx)}
}
