// CLAUDE:SUMMARY Personnel service: parses qualification and dossier documents and runs imports for HTTP, MCP and CLI.
// Package personnel exposes the document parsing and import operations over
// one Service, shared by the HTTP routes, the MCP tools and the CLI.
package personnel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/hazyhaar/kadry/catalog"
	"github.com/hazyhaar/kadry/docpipe"
	"github.com/hazyhaar/kadry/dossier"
	"github.com/hazyhaar/kadry/ldimport"
	"github.com/hazyhaar/kadry/qualification"
)

// Request error details, as returned to API clients.
const (
	DetailNoFile      = "Файл не передан"
	DetailNotDocx     = "Поддерживаются только .docx файлы"
	DetailNoUnit      = "Не передан unit"
	DetailUnknownUnit = "Unit не найден"
	DetailNoZip       = "zip file is required"
	DetailBadZip      = "Неверный ZIP архив"
	DetailTooLarge    = "Файл слишком большой"
	DetailBadForm     = "Неверный формат запроса"
)

// RequestError is a failure caused by the caller's input. Detail is safe to
// show to the client.
type RequestError struct {
	Detail string
	Err    error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return "personnel: " + e.Detail + ": " + e.Err.Error()
	}
	return "personnel: " + e.Detail
}

func (e *RequestError) Unwrap() error { return e.Err }

func badRequest(detail string, err error) error {
	return &RequestError{Detail: detail, Err: err}
}

// Config wires the Service to its collaborators.
type Config struct {
	Store          *catalog.Store
	Pipeline       *docpipe.Pipeline
	Qualifications *qualification.Importer
	Dossiers       *ldimport.Importer
	Logger         *slog.Logger
	// MaxUploadSize caps an HTTP request body. Default: 64 MiB.
	MaxUploadSize int64
}

// Service runs parsing and imports.
type Service struct {
	store   *catalog.Store
	pipe    *docpipe.Pipeline
	quals   *qualification.Importer
	ld      *ldimport.Importer
	logger  *slog.Logger
	maxBody int64
}

// New returns a Service. Store, Pipeline and Dossiers are required; a nil
// Qualifications importer is built from Store.
func New(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = 64 << 20
	}
	if cfg.Qualifications == nil {
		cfg.Qualifications = qualification.NewImporter(cfg.Store, qualification.WithLogger(cfg.Logger))
	}
	return &Service{
		store:   cfg.Store,
		pipe:    cfg.Pipeline,
		quals:   cfg.Qualifications,
		ld:      cfg.Dossiers,
		logger:  cfg.Logger,
		maxBody: cfg.MaxUploadSize,
	}
}

// ParseResult lists the qualification rows of one document.
type ParseResult struct {
	Count   int                 `json:"count"`
	Results []qualification.Row `json:"results"`
}

// SaveResult summarizes a qualification import. Positions counts distinct
// position titles.
type SaveResult struct {
	Positions             int      `json:"positions"`
	PositionTitles        []string `json:"position_titles"`
	CreatedQualifications int      `json:"created_qualifications"`
}

// ParseQualifications extracts qualification rows from an uploaded document.
func (s *Service) ParseQualifications(ctx context.Context, name string, r io.ReaderAt, size int64) (*ParseResult, error) {
	doc, err := s.read(ctx, name, r, size)
	if err != nil {
		return nil, err
	}
	return parseResult(doc), nil
}

// ParseQualificationsFile is ParseQualifications on a file path.
func (s *Service) ParseQualificationsFile(ctx context.Context, path string) (*ParseResult, error) {
	doc, err := s.open(ctx, path)
	if err != nil {
		return nil, err
	}
	return parseResult(doc), nil
}

func parseResult(doc *docpipe.Document) *ParseResult {
	rows := qualification.Extract(doc)
	if rows == nil {
		rows = []qualification.Row{}
	}
	return &ParseResult{Count: len(rows), Results: rows}
}

// SaveQualifications extracts qualification rows and imports them under the
// unit. The document name is recorded as the source of every row.
func (s *Service) SaveQualifications(ctx context.Context, unitID int64, name string, r io.ReaderAt, size int64) (*SaveResult, error) {
	doc, err := s.read(ctx, name, r, size)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, unitID, doc)
}

// SaveQualificationsFile is SaveQualifications on a file path.
func (s *Service) SaveQualificationsFile(ctx context.Context, unitID int64, path string) (*SaveResult, error) {
	doc, err := s.open(ctx, path)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, unitID, doc)
}

func (s *Service) save(ctx context.Context, unitID int64, doc *docpipe.Document) (*SaveResult, error) {
	if unitID <= 0 {
		return nil, badRequest(DetailNoUnit, nil)
	}
	rows := qualification.Extract(doc)
	n, err := s.quals.Import(ctx, unitID, rows, doc.Name)
	if errors.Is(err, catalog.ErrUnitNotFound) {
		return nil, badRequest(DetailUnknownUnit, err)
	}
	if err != nil {
		return nil, err
	}
	titles := qualification.Titles(rows)
	return &SaveResult{
		Positions:             len(titles),
		PositionTitles:        titles,
		CreatedQualifications: n,
	}, nil
}

// ParseDossier extracts the dossier of an uploaded document.
func (s *Service) ParseDossier(ctx context.Context, name string, r io.ReaderAt, size int64) (*dossier.Dossier, error) {
	doc, err := s.read(ctx, name, r, size)
	if err != nil {
		return nil, err
	}
	return dossier.Extract(doc), nil
}

// ParseDossierFile is ParseDossier on a file path.
func (s *Service) ParseDossierFile(ctx context.Context, path string) (*dossier.Dossier, error) {
	doc, err := s.open(ctx, path)
	if err != nil {
		return nil, err
	}
	return dossier.Extract(doc), nil
}

// ImportDossiers runs a bulk import of a zip archive of dossiers.
func (s *Service) ImportDossiers(ctx context.Context, r io.ReaderAt, size int64, opts ldimport.Options) (*ldimport.Outcome, error) {
	if r == nil {
		return nil, badRequest(DetailNoZip, nil)
	}
	out, err := s.ld.Import(ctx, r, size, opts)
	return out, importError(err)
}

// ImportDossiersFile is ImportDossiers on a file path.
func (s *Service) ImportDossiersFile(ctx context.Context, path string, opts ldimport.Options) (*ldimport.Outcome, error) {
	out, err := s.ld.ImportFile(ctx, path, opts)
	return out, importError(err)
}

func importError(err error) error {
	if errors.Is(err, ldimport.ErrBadArchive) {
		return badRequest(DetailBadZip, err)
	}
	return err
}

// ArtifactPath resolves a batch artifact name for download.
func (s *Service) ArtifactPath(name string) (string, error) {
	return s.ld.ArtifactPath(name)
}

func (s *Service) read(ctx context.Context, name string, r io.ReaderAt, size int64) (*docpipe.Document, error) {
	if r == nil || name == "" {
		return nil, badRequest(DetailNoFile, nil)
	}
	if _, err := s.pipe.Detect(name); err != nil {
		return nil, badRequest(DetailNotDocx, err)
	}
	doc, err := s.pipe.Read(ctx, name, r, size)
	if err != nil {
		return nil, documentError(err)
	}
	return doc, nil
}

func (s *Service) open(ctx context.Context, path string) (*docpipe.Document, error) {
	if path == "" {
		return nil, badRequest(DetailNoFile, nil)
	}
	if _, err := s.pipe.Detect(path); err != nil {
		return nil, badRequest(DetailNotDocx, err)
	}
	doc, err := s.pipe.Open(ctx, path)
	if err != nil {
		return nil, documentError(err)
	}
	return doc, nil
}

func documentError(err error) error {
	switch {
	case errors.Is(err, docpipe.ErrNotDocx):
		return badRequest(DetailNotDocx, err)
	case errors.Is(err, docpipe.ErrTooLarge):
		return badRequest(DetailTooLarge, err)
	}
	return fmt.Errorf("personnel: read document: %w", err)
}
