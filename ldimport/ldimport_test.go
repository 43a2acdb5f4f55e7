package ldimport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hazyhaar/kadry/catalog"
	"github.com/hazyhaar/kadry/dbopen"
	"github.com/hazyhaar/kadry/docpipe"
	"github.com/hazyhaar/kadry/dossier"
	"github.com/hazyhaar/kadry/horosafe"
	"github.com/hazyhaar/kadry/internal/docxtest"
	"github.com/hazyhaar/kadry/observability"
)

var fixedNow = time.Date(2024, 3, 5, 10, 20, 30, 0, time.UTC)

func setup(t *testing.T, mutate ...func(*Config)) (*Importer, *catalog.Store) {
	t.Helper()
	db := dbopen.OpenMemory(t)
	store, err := catalog.NewStore(db)
	if err != nil {
		t.Fatal(err)
	}
	if err := observability.Init(db); err != nil {
		t.Fatal(err)
	}
	cfg := Config{
		MediaDir:        t.TempDir(),
		MediaURL:        "/media/",
		InitialPassword: "Testpass123",
		BcryptCost:      bcrypt.MinCost,
		Events:          observability.NewEventLogger(db),
		Now:             func() time.Time { return fixedNow },
	}
	for _, m := range mutate {
		m(&cfg)
	}
	return NewImporter(store, docpipe.New(docpipe.Config{}), cfg), store
}

func dossierDocx(t *testing.T, email, name, rank string) []byte {
	t.Helper()
	b := docxtest.New()
	if rank != "" {
		b.Paragraph(rank + " (01.08.2023)")
	}
	b.Paragraphs(
		"СПРАВКА",
		name,
		"Число, месяц, год и место рождения: 25 сентября 1995 года, г. Атырау",
		"Участие в боевых действиях: участник миротворческой операции",
		"Семейное положение: женат",
	)
	if email != "" {
		b.Paragraph("E-mail: " + email)
	}
	b.Table(
		[]string{"С какого времени", "По какое время", "Должность"},
		[]string{"09.2014", "06.2018", "курсант"},
	)
	return b.Bytes(t)
}

func importBytes(t *testing.T, im *Importer, archive []byte, opts Options) (*Outcome, error) {
	t.Helper()
	return im.Import(context.Background(), bytes.NewReader(archive), int64(len(archive)), opts)
}

func readArtifact(t *testing.T, im *Importer, url string) Artifact {
	t.Helper()
	path, err := im.ArtifactPath(filepath.Base(url))
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		t.Fatal(err)
	}
	return a
}

func TestImport_PartialFailure(t *testing.T) {
	im, _ := setup(t)
	archive := docxtest.Zip(t, map[string][]byte{
		"a.docx":     dossierDocx(t, "a@army.kz", "Иванов Иван", "Капитан"),
		"b.docx":     []byte("this is not a docx"),
		"c.docx":     dossierDocx(t, "c@army.kz", "Сидоров Сидор", "Майор"),
		"readme.txt": []byte("ignored"),
		"docs/":      nil,
	})

	out, err := importBytes(t, im, archive, Options{DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if out.ParsedCount != 2 || out.Skipped != 2 || !out.DryRun {
		t.Fatalf("outcome = %+v", out)
	}
	if len(out.Errors) != 1 || out.Errors[0].File != "b.docx" {
		t.Fatalf("errors = %+v", out.Errors)
	}
	if !strings.Contains(out.Errors[0].Error, docpipe.ErrNotDocx.Error()) {
		t.Fatalf("error text = %q", out.Errors[0].Error)
	}
	if out.SavedJSON != "/media/imports/ld8-20240305-102030.json" {
		t.Fatalf("saved_json = %q", out.SavedJSON)
	}

	a := readArtifact(t, im, out.SavedJSON)
	if len(a.Parsed) != 2 || len(a.Errors) != 1 {
		t.Fatalf("artifact = %d parsed, %d errors", len(a.Parsed), len(a.Errors))
	}
	if a.Parsed[0].SourceFile != "a.docx" || a.Parsed[1].FullName != "Сидоров Сидор" {
		t.Fatalf("artifact parsed = %+v %+v", a.Parsed[0], a.Parsed[1])
	}
}

func TestImport_BadArchive(t *testing.T) {
	im, _ := setup(t)
	_, err := importBytes(t, im, []byte("PK? no"), Options{DryRun: true})
	if !errors.Is(err, ErrBadArchive) {
		t.Fatalf("err = %v, want ErrBadArchive", err)
	}
	entries, _ := os.ReadDir(filepath.Join(im.cfg.MediaDir, "imports"))
	if len(entries) != 0 {
		t.Fatalf("artifact written for bad archive: %v", entries)
	}
}

func TestImport_UnknownUnitIsFatal(t *testing.T) {
	im, _ := setup(t)
	unit := int64(77)
	archive := docxtest.Zip(t, map[string][]byte{"a.docx": dossierDocx(t, "a@army.kz", "Иванов Иван", "")})
	_, err := importBytes(t, im, archive, Options{CreateUsers: true, UnitID: &unit})
	if !errors.Is(err, catalog.ErrUnitNotFound) {
		t.Fatalf("err = %v, want ErrUnitNotFound", err)
	}
}

func TestImport_DryRunNeverMutates(t *testing.T) {
	im, store := setup(t)
	archive := docxtest.Zip(t, map[string][]byte{"a.docx": dossierDocx(t, "a@army.kz", "Иванов Иван", "")})

	out, err := importBytes(t, im, archive, Options{DryRun: true, CreateUsers: true, SetRank: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Created) != 0 || len(out.Updated) != 0 {
		t.Fatalf("outcome = %+v", out)
	}
	if n, _ := store.CountUsers(context.Background()); n != 0 {
		t.Fatalf("users = %d after dry run", n)
	}
}

func TestImport_NoCreateNeverCreates(t *testing.T) {
	im, store := setup(t)
	ctx := context.Background()
	archive := docxtest.Zip(t, map[string][]byte{
		"a.docx": dossierDocx(t, "a@army.kz", "Иванов Иван", ""),
		"b.docx": dossierDocx(t, "B@Army.kz", "Петров Пётр", ""),
		"c.docx": dossierDocx(t, "", "Безадресов Сергей", ""),
	})

	// b has an account and a profile; a has nothing.
	u, _ := store.CreateUser(ctx, "b@army.kz", catalog.RoleOfficer, "")
	store.CreateProfile(ctx, u.ID)

	out, err := importBytes(t, im, archive, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Created) != 0 {
		t.Fatalf("created = %+v", out.Created)
	}
	if len(out.Updated) != 1 || out.Updated[0].UserID != u.ID || out.Updated[0].FullName != "Петров Пётр" {
		t.Fatalf("updated = %+v", out.Updated)
	}
	if out.Skipped != 2 || len(out.Errors) != 2 {
		t.Fatalf("skipped = %d, errors = %+v", out.Skipped, out.Errors)
	}
	if n, _ := store.CountUsers(ctx); n != 1 {
		t.Fatalf("users = %d, want 1", n)
	}
	if n, _ := store.CountProfiles(ctx); n != 1 {
		t.Fatalf("profiles = %d, want 1", n)
	}
}

func TestImport_CreateUsers(t *testing.T) {
	im, store := setup(t)
	ctx := context.Background()
	rank, _ := store.EnsureRank(ctx, "капитан", 30)
	unit, _ := store.EnsureUnit(ctx, "U1", "1-й батальон", nil)

	archive := docxtest.Zip(t, map[string][]byte{
		"a.docx": dossierDocx(t, "Ivanov@Army.KZ", "Иванов Иван", "Капитан"),
		"b.docx": dossierDocx(t, "", "Петров Пётр", ""),
		"c.docx": dossierDocx(t, "c@army.kz", "Сидоров Сидор", "Генералиссимус"),
	})
	out, err := importBytes(t, im, archive, Options{CreateUsers: true, SetRank: true, UnitID: &unit.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Created) != 2 || out.ParsedCount != 3 {
		t.Fatalf("outcome = %+v", out)
	}
	if len(out.Errors) != 1 || out.Errors[0].File != "b.docx" || out.Errors[0].Error != "email not found; skipped" {
		t.Fatalf("errors = %+v", out.Errors)
	}

	user, ok, _ := store.FindUserByEmail(ctx, "ivanov@army.kz")
	if !ok || user.Role != catalog.RoleOfficer {
		t.Fatalf("user = %+v ok=%v", user, ok)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("Testpass123")); err != nil {
		t.Fatalf("password hash: %v", err)
	}

	p, ok, _ := store.GetProfile(ctx, user.ID)
	if !ok {
		t.Fatal("profile missing")
	}
	if p.FullName != "Иванов Иван" || p.BirthPlace != "г. Атырау" || p.BirthDate == nil || *p.BirthDate != "1995-09-25" {
		t.Fatalf("profile = %+v", p)
	}
	if p.RankID == nil || *p.RankID != rank.ID {
		t.Fatalf("rank = %v, want %d", p.RankID, rank.ID)
	}
	if p.ServiceStartDate == nil || *p.ServiceStartDate != "2023-08-01" {
		t.Fatalf("service start = %v", p.ServiceStartDate)
	}
	if p.UnitID == nil || *p.UnitID != unit.ID {
		t.Fatalf("unit = %v", p.UnitID)
	}
	if p.MaritalStatus != string(dossier.Married) || !p.CombatParticipation || p.CombatNotes == "" {
		t.Fatalf("marital/combat = %q/%v/%q", p.MaritalStatus, p.CombatParticipation, p.CombatNotes)
	}
	var hist []dossier.ServiceEntry
	if err := json.Unmarshal(p.ServiceHistory, &hist); err != nil || len(hist) != 1 || hist[0].Position != "курсант" {
		t.Fatalf("history = %s", p.ServiceHistory)
	}

	// Unknown rank name leaves the rank unset without an error.
	other, _, _ := store.FindUserByEmail(ctx, "c@army.kz")
	op, _, _ := store.GetProfile(ctx, other.ID)
	if op.RankID != nil {
		t.Fatalf("unknown rank set to %v", *op.RankID)
	}

	events, _ := observability.RecentEvents(ctx, store.DB(), observability.EventDossierBatch, 1)
	if len(events) != 1 || !events[0].Success || events[0].EntityID != out.SavedJSON {
		t.Fatalf("events = %+v", events)
	}
}

func TestImport_ReimportUpdates(t *testing.T) {
	im, store := setup(t)
	ctx := context.Background()
	archive := docxtest.Zip(t, map[string][]byte{"a.docx": dossierDocx(t, "a@army.kz", "Иванов Иван", "")})

	first, err := importBytes(t, im, archive, Options{CreateUsers: true})
	if err != nil {
		t.Fatal(err)
	}
	second, err := importBytes(t, im, archive, Options{CreateUsers: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Created) != 1 || len(second.Created) != 0 || len(second.Updated) != 1 {
		t.Fatalf("first = %+v, second = %+v", first, second)
	}
	if first.Created[0].ProfileID != second.Updated[0].ProfileID {
		t.Fatal("re-import created a new profile")
	}
	if first.SavedJSON == second.SavedJSON {
		t.Fatalf("artifact overwritten: %q", second.SavedJSON)
	}
	if n, _ := store.CountUsers(ctx); n != 1 {
		t.Fatalf("users = %d", n)
	}
}

func TestImport_EntryTooLarge(t *testing.T) {
	im, _ := setup(t, func(c *Config) { c.MaxFileSize = 64 })
	archive := docxtest.Zip(t, map[string][]byte{"a.docx": dossierDocx(t, "a@army.kz", "Иванов Иван", "")})

	out, err := importBytes(t, im, archive, Options{DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if out.ParsedCount != 0 || len(out.Errors) != 1 || !strings.Contains(out.Errors[0].Error, horosafe.ErrTooLarge.Error()) {
		t.Fatalf("outcome = %+v", out)
	}
}

func TestImport_CancelledContext(t *testing.T) {
	im, _ := setup(t)
	archive := docxtest.Zip(t, map[string][]byte{"a.docx": dossierDocx(t, "a@army.kz", "Иванов Иван", "")})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := im.Import(ctx, bytes.NewReader(archive), int64(len(archive)), Options{DryRun: true})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestImportFile(t *testing.T) {
	im, _ := setup(t)
	path := filepath.Join(t.TempDir(), "batch.zip")
	archive := docxtest.Zip(t, map[string][]byte{"a.docx": dossierDocx(t, "a@army.kz", "Иванов Иван", "")})
	if err := os.WriteFile(path, archive, 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := im.ImportFile(context.Background(), path, Options{DryRun: true})
	if err != nil || out.ParsedCount != 1 {
		t.Fatalf("out = %+v err = %v", out, err)
	}
	if _, err := im.ImportFile(context.Background(), filepath.Join(t.TempDir(), "missing.zip"), Options{}); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestArtifactPath(t *testing.T) {
	im, _ := setup(t)
	if _, err := im.ArtifactPath("../../etc/passwd"); err == nil {
		t.Fatal("expected traversal error")
	}
	if _, err := im.ArtifactPath("a/b.json"); err == nil {
		t.Fatal("expected error for nested name")
	}
	p, err := im.ArtifactPath("ld8-20240305-102030.json")
	if err != nil || filepath.Dir(p) != filepath.Join(im.cfg.MediaDir, "imports") {
		t.Fatalf("path = %q err = %v", p, err)
	}
}

func TestMerge(t *testing.T) {
	birth := "1990-01-02"
	p := catalog.OfficerProfile{FullName: "Старое Имя", Nationality: "казах", CombatNotes: "old"}
	d := &dossier.Dossier{
		FullName:            "  ",
		IIN:                 "900102300111",
		Birth:               &dossier.Birth{Date: &birth},
		CombatParticipation: "не участвовал",
		MaritalStatusCode:   "",
	}
	Merge(&p, d)

	if p.FullName != "Старое Имя" || p.Nationality != "казах" {
		t.Errorf("empty fields overwrote: %+v", p)
	}
	if p.IIN != "900102300111" || p.BirthDate == nil || *p.BirthDate != birth {
		t.Errorf("fields not merged: %+v", p)
	}
	if p.CombatParticipation || p.CombatNotes != "" {
		t.Errorf("combat = %v/%q", p.CombatParticipation, p.CombatNotes)
	}
	if p.ServiceHistory != nil {
		t.Errorf("history = %s, want untouched", p.ServiceHistory)
	}
}

func TestMerge_CombatNoteClearedOnReimport(t *testing.T) {
	var p catalog.OfficerProfile
	Merge(&p, &dossier.Dossier{CombatParticipation: "участник боевых действий"})
	if !p.CombatParticipation || p.CombatNotes != "участник боевых действий" {
		t.Fatalf("first import: %v/%q", p.CombatParticipation, p.CombatNotes)
	}

	Merge(&p, &dossier.Dossier{CombatParticipation: "не участвовал"})
	if p.CombatParticipation || p.CombatNotes != "" {
		t.Fatalf("second import: %v/%q", p.CombatParticipation, p.CombatNotes)
	}
}
