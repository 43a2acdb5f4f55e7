package personnel

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/kadry/catalog"
	"github.com/hazyhaar/kadry/idgen"
	"github.com/hazyhaar/kadry/kit"
	"github.com/hazyhaar/kadry/ldimport"
	"github.com/hazyhaar/kadry/observability"
	"github.com/hazyhaar/kadry/shield"
)

const multipartMemory = 32 << 20

var newRequestID = idgen.Prefixed("req_", idgen.Default)

// Router returns the HTTP API:
//
//	POST /api/document-parsing/parse-docx           file
//	POST /api/document-parsing/parse-and-save-docx  file, unit
//	POST /api/dossiers/parse                        file
//	POST /api/imports/ld8-zip                       zip, dry_run, create_users, set_rank, unit_id
//	GET  /api/events                                ?type=&limit=
//	GET  /media/imports/{name}
//	GET  /healthz
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(s.requestContext)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(shield.SecurityHeaders(shield.APIHeaders()))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(shield.MaxBody(s.maxBody, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeDetail(w, http.StatusRequestEntityTooLarge, DetailTooLarge)
		})))
		r.Post("/document-parsing/parse-docx", s.handleParseDocx)
		r.Post("/document-parsing/parse-and-save-docx", s.handleParseAndSaveDocx)
		r.Post("/dossiers/parse", s.handleParseDossier)
		r.Post("/imports/ld8-zip", s.handleImportZip)
		r.Get("/events", s.handleEvents)
	})

	r.Get("/media/imports/{name}", s.handleArtifact)
	return r
}

func (s *Service) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = newRequestID()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := kit.WithTransport(kit.WithRequestID(r.Context(), id), "http")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Service) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		level := slog.LevelInfo
		if ww.Status() >= 500 {
			level = slog.LevelError
		}
		s.logger.Log(r.Context(), level, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"request_id", kit.GetRequestID(r.Context()),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Service) handleParseDocx(w http.ResponseWriter, r *http.Request) {
	f, hdr, ok := s.formFile(w, r, "file", DetailNoFile)
	if !ok {
		return
	}
	defer f.Close()

	res, err := s.ParseQualifications(kit.WithSource(r.Context(), hdr.Filename), hdr.Filename, f, hdr.Size)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Service) handleParseAndSaveDocx(w http.ResponseWriter, r *http.Request) {
	f, hdr, ok := s.formFile(w, r, "file", DetailNoFile)
	if !ok {
		return
	}
	defer f.Close()

	raw := strings.TrimSpace(r.FormValue("unit"))
	if raw == "" {
		writeDetail(w, http.StatusBadRequest, DetailNoUnit)
		return
	}
	unitID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || unitID <= 0 {
		writeDetail(w, http.StatusBadRequest, DetailUnknownUnit)
		return
	}

	res, err := s.SaveQualifications(kit.WithSource(r.Context(), hdr.Filename), unitID, hdr.Filename, f, hdr.Size)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Service) handleParseDossier(w http.ResponseWriter, r *http.Request) {
	f, hdr, ok := s.formFile(w, r, "file", DetailNoFile)
	if !ok {
		return
	}
	defer f.Close()

	d, err := s.ParseDossier(kit.WithSource(r.Context(), hdr.Filename), hdr.Filename, f, hdr.Size)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Service) handleImportZip(w http.ResponseWriter, r *http.Request) {
	f, hdr, ok := s.formFile(w, r, "zip", DetailNoZip)
	if !ok {
		return
	}
	defer f.Close()

	opts := ldimport.Options{
		DryRun:      formBool(r, "dry_run", true),
		CreateUsers: formBool(r, "create_users", false),
		SetRank:     formBool(r, "set_rank", false),
	}
	if raw := strings.TrimSpace(r.FormValue("unit_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeDetail(w, http.StatusNotFound, DetailUnknownUnit)
			return
		}
		opts.UnitID = &id
	}

	out, err := s.ImportDossiers(kit.WithSource(r.Context(), hdr.Filename), f, hdr.Size, opts)
	if errors.Is(err, catalog.ErrUnitNotFound) {
		writeDetail(w, http.StatusNotFound, DetailUnknownUnit)
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	code := http.StatusCreated
	if opts.DryRun || !opts.CreateUsers {
		code = http.StatusOK
	}
	writeJSON(w, code, out)
}

func (s *Service) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	events, err := observability.RecentEvents(r.Context(), s.store.DB(), r.URL.Query().Get("type"), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if events == nil {
		events = []observability.BusinessEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (s *Service) handleArtifact(w http.ResponseWriter, r *http.Request) {
	path, err := s.ArtifactPath(chi.URLParam(r, "name"))
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Not found")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	http.ServeFile(w, r, path)
}

// formFile returns the named multipart file. On failure it writes the
// response and reports false.
func (s *Service) formFile(w http.ResponseWriter, r *http.Request, field, missing string) (multipart.File, *multipart.FileHeader, bool) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeDetail(w, http.StatusRequestEntityTooLarge, DetailTooLarge)
			return nil, nil, false
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			s.logger.Warn("bad multipart form",
				"path", r.URL.Path,
				"request_id", kit.GetRequestID(r.Context()),
				"error", err,
			)
			writeDetail(w, http.StatusBadRequest, DetailBadForm)
			return nil, nil, false
		}
	}
	f, hdr, err := r.FormFile(field)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, missing)
		return nil, nil, false
	}
	return f, hdr, true
}

// formBool reads a form flag; 1, true, yes and on are true.
func formBool(r *http.Request, key string, def bool) bool {
	if r.MultipartForm == nil {
		return def
	}
	v, ok := r.MultipartForm.Value[key]
	if !ok || len(v) == 0 {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(v[0])) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func (s *Service) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		code := http.StatusBadRequest
		if reqErr.Detail == DetailTooLarge {
			code = http.StatusRequestEntityTooLarge
		}
		writeDetail(w, code, reqErr.Detail)
		return
	}
	s.logger.Error("request failed",
		"path", r.URL.Path,
		"request_id", kit.GetRequestID(r.Context()),
		"error", err,
	)
	writeDetail(w, http.StatusInternalServerError, "Internal server error")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"detail": detail})
}
