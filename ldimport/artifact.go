package ldimport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hazyhaar/kadry/dossier"
	"github.com/hazyhaar/kadry/horosafe"
)

const artifactSubdir = "imports"

// Artifact is the JSON document persisted for every batch.
type Artifact struct {
	Parsed []*dossier.Dossier `json:"parsed"`
	Errors []ItemError        `json:"errors"`
}

// writeArtifact stores a under MediaDir/imports as ld8-<yyyymmdd-hhmmss>.json
// and returns its URL. A name already taken in the same second gets a short
// random suffix.
func (im *Importer) writeArtifact(a Artifact) (string, error) {
	dir := filepath.Join(im.cfg.MediaDir, artifactSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ldimport: artifact dir: %w", err)
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return "", fmt.Errorf("ldimport: marshal artifact: %w", err)
	}

	stamp := im.cfg.Now().UTC().Format("20060102-150405")
	name := "ld8-" + stamp + ".json"
	for range 3 {
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			name = "ld8-" + stamp + "-" + im.newSuffix() + ".json"
			continue
		}
		if err != nil {
			return "", fmt.Errorf("ldimport: create artifact: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return "", fmt.Errorf("ldimport: write artifact: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("ldimport: close artifact: %w", err)
		}
		return im.ArtifactURL(name), nil
	}
	return "", fmt.Errorf("ldimport: create artifact: name collision on %s", stamp)
}

// ArtifactURL returns the public URL of an artifact file name.
func (im *Importer) ArtifactURL(name string) string {
	return strings.TrimRight(im.cfg.MediaURL, "/") + "/" + artifactSubdir + "/" + name
}

// ArtifactPath resolves an artifact file name to its path on disk, rejecting
// names that would leave the artifact directory.
func (im *Importer) ArtifactPath(name string) (string, error) {
	if err := horosafe.ValidateFileName(name); err != nil {
		return "", err
	}
	return horosafe.SafePath(filepath.Join(im.cfg.MediaDir, artifactSubdir), name)
}
