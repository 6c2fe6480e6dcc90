package common

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const envPrefix = "TESSERA_"

// Settings are owned by an external settings collaborator; tessera only
// consumes and sanity-checks them.
type Settings struct {
	Scale   float64 `env:"SCALE" envDefault:"1.5"`
	Format  string  `env:"FORMAT" envDefault:"jpg"`
	Quality float64 `env:"QUALITY" envDefault:"0.8"` // jpg only, (0,1]

	AutoInstall  bool `env:"AUTO_INSTALL" envDefault:"true"`
	DebugOverlay bool `env:"DEBUG_OVERLAY" envDefault:"true"`

	CaptureDelay  time.Duration `env:"CAPTURE_DELAY" envDefault:"10ms"`
	SectionMargin float64       `env:"SECTION_MARGIN" envDefault:"5"`
}

// LoadSettings reads TESSERA_* environment variables. Persisted values
// carry the legacy scale migration before normalisation.
func LoadSettings(logger Logger) (Settings, error) {
	var s Settings
	if err := env.ParseWithOptions(&s, env.Options{Prefix: envPrefix}); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	return s.MigrateLegacy(logger).Normalize(logger), nil
}

func DefaultSettings() Settings {
	return Settings{
		Scale:         DefaultScale,
		Format:        FormatJPG,
		Quality:       DefaultQuality,
		AutoInstall:   true,
		DebugOverlay:  true,
		CaptureDelay:  10 * time.Millisecond,
		SectionMargin: DefaultSectionMargin,
	}
}

// MigrateLegacy replaces the scale of 2.0 that older releases persisted by
// default with the current default. Only stored settings should go through it.
func (s Settings) MigrateLegacy(logger Logger) Settings {
	if s.Scale == 2.0 {
		logger.Warningf("legacy default scale 2.0 detected, using %v", DefaultScale)
		s.Scale = DefaultScale
	}
	return s
}

// Normalize returns a copy with invalid values replaced by defaults.
func (s Settings) Normalize(logger Logger) Settings {
	if s.Scale <= 0 || math.IsNaN(s.Scale) || math.IsInf(s.Scale, 0) {
		logger.Infof("no valid scale set, using default %v", DefaultScale)
		s.Scale = DefaultScale
	}

	s.Format = strings.ToLower(strings.TrimSpace(s.Format))
	if s.Format == "jpeg" {
		s.Format = FormatJPG
	}
	if s.Format != FormatJPG && s.Format != FormatPNG {
		if s.Format != "" {
			logger.Warningf("unknown image format %q, using %s", s.Format, FormatJPG)
		}
		s.Format = FormatJPG
	}

	if s.Quality <= 0 || s.Quality > 1 {
		s.Quality = DefaultQuality
	}
	if s.CaptureDelay < 0 {
		s.CaptureDelay = 0
	}
	if s.SectionMargin < 0 {
		s.SectionMargin = 0
	}
	return s
}

// InvalidatesBackground reports whether moving from s to next requires the
// unit background to be rebuilt.
func (s Settings) InvalidatesBackground(next Settings) bool {
	return s.Scale != next.Scale || s.Format != next.Format
}
