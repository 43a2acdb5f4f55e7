// CLAUDE:SUMMARY Bulk dossier import: zip of .docx files → dossiers → JSON artifact → user accounts and officer profiles in one transaction, with per-file errors.
// Package ldimport imports personnel dossiers in bulk from a zip archive of
// .docx reference documents. Every batch is saved as a JSON artifact; a live
// batch then maps each dossier onto a user account and officer profile in
// a single transaction. Failures of individual documents are reported next
// to the successes and never abort the batch.
package ldimport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/hazyhaar/kadry/catalog"
	"github.com/hazyhaar/kadry/docpipe"
	"github.com/hazyhaar/kadry/dossier"
	"github.com/hazyhaar/kadry/idgen"
	"github.com/hazyhaar/kadry/observability"
)

// ErrBadArchive is returned when the upload is not a readable zip archive.
var ErrBadArchive = errors.New("ldimport: invalid zip archive")

// Options of one batch.
type Options struct {
	// DryRun saves the artifact only. It takes precedence over CreateUsers.
	DryRun bool `json:"dry_run"`
	// CreateUsers allows creating accounts and profiles for unknown emails.
	// Without it only existing accounts with a profile are updated.
	CreateUsers bool `json:"create_users"`
	// SetRank applies the extracted rank when it names a catalogued rank.
	SetRank bool `json:"set_rank"`
	// UnitID assigns every imported profile to this unit. It must exist.
	UnitID *int64 `json:"unit_id,omitempty"`
}

// ItemError reports one document or dossier that could not be imported.
type ItemError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// Identity names an imported profile.
type Identity struct {
	UserID    int64  `json:"user_id"`
	ProfileID int64  `json:"profile_id"`
	FullName  string `json:"full_name"`
}

// Outcome is the result of a batch. Created lists profiles the batch created;
// Updated lists existing profiles it changed. Skipped counts parsed dossiers
// that were not applied.
type Outcome struct {
	SavedJSON   string      `json:"saved_json"`
	DryRun      bool        `json:"dry_run"`
	Created     []Identity  `json:"created"`
	Updated     []Identity  `json:"updated"`
	Skipped     int         `json:"skipped"`
	ParsedCount int         `json:"parsed_count"`
	Errors      []ItemError `json:"errors"`
}

// Importer runs bulk dossier imports.
type Importer struct {
	cfg       Config
	store     *catalog.Store
	pipe      *docpipe.Pipeline
	newSuffix idgen.Generator
}

// NewImporter returns an Importer writing to store and reading documents
// with pipe.
func NewImporter(store *catalog.Store, pipe *docpipe.Pipeline, cfg Config) *Importer {
	cfg.defaults()
	return &Importer{cfg: cfg, store: store, pipe: pipe, newSuffix: idgen.Short(6)}
}

// ImportFile runs Import on the zip archive at path.
func (im *Importer) ImportFile(ctx context.Context, path string, opts Options) (*Outcome, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ldimport: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("ldimport: %w", err)
	}
	return im.Import(ctx, f, info.Size(), opts)
}

// Import parses the archive, saves the artifact and, unless DryRun, applies
// the dossiers to the catalog. An unknown UnitID or an unreadable archive
// fails the whole call before anything is written.
func (im *Importer) Import(ctx context.Context, r io.ReaderAt, size int64, opts Options) (*Outcome, error) {
	if opts.UnitID != nil {
		if _, err := im.store.GetUnit(ctx, *opts.UnitID); err != nil {
			return nil, err
		}
	}

	parsed, errs, err := im.ParseArchive(ctx, r, size)
	if err != nil {
		return nil, err
	}

	url, err := im.writeArtifact(Artifact{Parsed: parsed, Errors: errs})
	if err != nil {
		return nil, err
	}

	out := &Outcome{
		SavedJSON:   url,
		DryRun:      opts.DryRun,
		Created:     []Identity{},
		Updated:     []Identity{},
		ParsedCount: len(parsed),
		Errors:      errs,
	}
	if opts.DryRun {
		out.Skipped = len(parsed)
		im.logBatch(ctx, out, opts, nil)
		return out, nil
	}

	hash, err := im.passwordHash(opts)
	if err != nil {
		return nil, err
	}

	var created, updated []Identity
	var itemErrs []ItemError
	err = im.store.Update(ctx, func(tx *catalog.Tx) error {
		created, updated, itemErrs = []Identity{}, []Identity{}, nil
		for _, d := range parsed {
			id, isNew, itemErr, err := im.apply(ctx, tx, d, opts, hash)
			if err != nil {
				return fmt.Errorf("ldimport: %s: %w", d.SourceFile, err)
			}
			switch {
			case itemErr != nil:
				itemErrs = append(itemErrs, *itemErr)
			case isNew:
				created = append(created, id)
			default:
				updated = append(updated, id)
			}
		}
		return nil
	})
	if err != nil {
		im.logBatch(ctx, out, opts, err)
		return nil, err
	}

	for _, e := range itemErrs {
		im.cfg.Logger.Warn("ldimport: dossier skipped", "file", e.File, "error", e.Error)
	}
	out.Created = created
	out.Updated = updated
	out.Errors = append(out.Errors, itemErrs...)
	out.Skipped = len(itemErrs)
	im.logBatch(ctx, out, opts, nil)
	return out, nil
}

// apply maps one dossier onto its account and profile. A dossier that
// cannot be joined to an account yields an ItemError; err is reserved for
// storage failures, which abort the batch.
func (im *Importer) apply(ctx context.Context, tx *catalog.Tx, d *dossier.Dossier, opts Options, hash string) (id Identity, isNew bool, itemErr *ItemError, err error) {
	skip := func(msg string) (Identity, bool, *ItemError, error) {
		return Identity{}, false, &ItemError{File: d.SourceFile, Error: msg}, nil
	}

	email := ""
	if d.Email != nil {
		email = catalog.NormalizeEmail(*d.Email)
	}
	if email == "" {
		return skip("email not found; skipped")
	}

	user, ok, err := tx.FindUserByEmail(ctx, email)
	if err != nil {
		return Identity{}, false, nil, err
	}
	if !ok {
		if !opts.CreateUsers {
			return skip(fmt.Sprintf("no account for %s; skipped", email))
		}
		if user, err = tx.CreateUser(ctx, email, catalog.RoleOfficer, hash); err != nil {
			return Identity{}, false, nil, err
		}
		isNew = true
	}

	prof, ok, err := tx.GetProfile(ctx, user.ID)
	if err != nil {
		return Identity{}, false, nil, err
	}
	if !ok {
		if !opts.CreateUsers {
			return skip(fmt.Sprintf("account %s has no profile; skipped", email))
		}
		if prof, err = tx.CreateProfile(ctx, user.ID); err != nil {
			return Identity{}, false, nil, err
		}
		isNew = true
	}

	Merge(&prof, d)
	if opts.UnitID != nil {
		unitID := *opts.UnitID
		prof.UnitID = &unitID
	}
	if opts.SetRank && d.Rank != nil && strings.TrimSpace(d.Rank.Name) != "" {
		rank, found, err := tx.FindRankByName(ctx, d.Rank.Name)
		if err != nil {
			return Identity{}, false, nil, err
		}
		if found {
			prof.RankID = &rank.ID
		}
		if prof.ServiceStartDate == nil && d.Rank.Since != nil {
			since := *d.Rank.Since
			prof.ServiceStartDate = &since
		}
	}

	if err := tx.SaveProfile(ctx, &prof); err != nil {
		return Identity{}, false, nil, err
	}
	return Identity{UserID: user.ID, ProfileID: prof.ID, FullName: prof.FullName}, isNew, nil, nil
}

// Merge copies the non-empty dossier fields onto p. The combat flag is
// always set; its text is kept as a note only when the flag is true.
func Merge(p *catalog.OfficerProfile, d *dossier.Dossier) {
	setText := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	setText(&p.FullName, d.FullName)
	setText(&p.IIN, d.IIN)
	setText(&p.Nationality, d.Nationality)
	setText(&p.PersonalNumber, d.PersonalNumber)
	setText(&p.Awards, d.Awards)
	setText(&p.Penalties, d.Penalties)
	setText(&p.EducationCivil, d.Education.Civil)
	setText(&p.EducationMilitary, d.Education.Military)
	setText(&p.MaritalStatus, string(d.MaritalStatusCode))

	if d.Birth != nil {
		if d.Birth.Date != nil {
			date := *d.Birth.Date
			p.BirthDate = &date
		}
		if d.Birth.Place != nil {
			setText(&p.BirthPlace, *d.Birth.Place)
		}
	}

	combat := strings.TrimSpace(d.CombatParticipation)
	p.CombatParticipation = dossier.CombatFlag(combat)
	if p.CombatParticipation {
		p.CombatNotes = combat
	} else {
		p.CombatNotes = ""
	}

	if len(d.ServiceHistory) > 0 {
		if data, err := json.Marshal(d.ServiceHistory); err == nil {
			p.ServiceHistory = data
		}
	}
}

func (im *Importer) passwordHash(opts Options) (string, error) {
	if !opts.CreateUsers || im.cfg.InitialPassword == "" {
		return "", nil
	}
	h, err := bcrypt.GenerateFromPassword([]byte(im.cfg.InitialPassword), im.cfg.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("ldimport: hash initial password: %w", err)
	}
	return string(h), nil
}

func (im *Importer) logBatch(ctx context.Context, out *Outcome, opts Options, err error) {
	details := map[string]any{
		"saved_json":   out.SavedJSON,
		"dry_run":      opts.DryRun,
		"create_users": opts.CreateUsers,
		"set_rank":     opts.SetRank,
		"parsed":       out.ParsedCount,
		"created":      len(out.Created),
		"updated":      len(out.Updated),
		"errors":       len(out.Errors),
	}
	if err != nil {
		details["error"] = err.Error()
	}
	im.cfg.Events.LogEvent(ctx, observability.BusinessEvent{
		EventType:  observability.EventDossierBatch,
		EntityType: "artifact",
		EntityID:   out.SavedJSON,
		Action:     "import",
		Details:    observability.Details(details),
		Success:    err == nil,
	})
	if err == nil {
		im.cfg.Logger.Info("ldimport: batch done",
			"saved_json", out.SavedJSON, "dry_run", opts.DryRun,
			"parsed", out.ParsedCount, "created", len(out.Created),
			"updated", len(out.Updated), "errors", len(out.Errors))
	}
}
