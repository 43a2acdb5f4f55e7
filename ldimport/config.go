package ldimport

import (
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hazyhaar/kadry/observability"
)

// Config holds bulk dossier import settings.
type Config struct {
	// MediaDir is the media root; artifacts go to MediaDir/imports.
	MediaDir string
	// MediaURL is the public prefix of MediaDir. Default: "/media/".
	MediaURL string
	// MaxFileSize caps each archive entry. Default: 20 MiB.
	MaxFileSize int64
	// InitialPassword is hashed into accounts created by an import. Empty
	// leaves new accounts without a usable password.
	InitialPassword string
	// BcryptCost of the initial password hash. Default: bcrypt.DefaultCost.
	BcryptCost int

	Logger *slog.Logger
	Events *observability.EventLogger
	Now    func() time.Time
}

func (c *Config) defaults() {
	if c.MediaDir == "" {
		c.MediaDir = "media"
	}
	if c.MediaURL == "" {
		c.MediaURL = "/media/"
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = 20 << 20
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = bcrypt.DefaultCost
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}
