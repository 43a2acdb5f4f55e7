package ldimport

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/hazyhaar/kadry/dossier"
	"github.com/hazyhaar/kadry/horosafe"
)

// ParseArchive extracts a dossier from every .docx entry of the zip in r.
// Other entries are ignored. A per-entry failure becomes an ItemError and
// the remaining entries are still read. Only an unreadable archive or a
// cancelled context fails the call.
func (im *Importer) ParseArchive(ctx context.Context, r io.ReaderAt, size int64) ([]*dossier.Dossier, []ItemError, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrBadArchive, err)
	}

	parsed := []*dossier.Dossier{}
	errs := []ItemError{}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(strings.ToLower(f.Name), ".docx") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		d, err := im.parseEntry(ctx, f)
		if err != nil {
			im.cfg.Logger.Warn("ldimport: entry skipped", "file", f.Name, "error", err)
			errs = append(errs, ItemError{File: f.Name, Error: err.Error()})
			continue
		}
		im.cfg.Logger.Debug("ldimport: entry parsed", "file", f.Name, "full_name", d.FullName)
		parsed = append(parsed, d)
	}
	return parsed, errs, nil
}

func (im *Importer) parseEntry(ctx context.Context, f *zip.File) (d *dossier.Dossier, err error) {
	if f.UncompressedSize64 > uint64(im.cfg.MaxFileSize) {
		return nil, fmt.Errorf("%w: %d bytes, max %d", horosafe.ErrTooLarge, f.UncompressedSize64, im.cfg.MaxFileSize)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open entry: %w", err)
	}
	defer rc.Close()

	data, err := horosafe.LimitedReadAll(rc, im.cfg.MaxFileSize)
	if err != nil {
		return nil, fmt.Errorf("read entry: %w", err)
	}
	doc, err := im.pipe.ReadBytes(ctx, path.Base(f.Name), data)
	if err != nil {
		return nil, err
	}
	// The source file keeps the archive path so errors and results line up.
	doc.Name = f.Name

	defer func() {
		if p := recover(); p != nil {
			d, err = nil, fmt.Errorf("extract: %v", p)
		}
	}()
	return dossier.Extract(doc), nil
}
