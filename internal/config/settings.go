package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"

	ioutils "github.com/handiism/metronome/internal/io"
	"github.com/handiism/metronome/internal/model"
)

// OrganizeTemplate is the naming template used by --sort when no format
// is given.
const OrganizeTemplate = "{ArtistName}/{AlbumTitle} [{AlbumYear}]/{TrackNumber} - {TrackTitle}.{Extension}"

// DefaultFileName is the name of the persisted settings file in the
// user's home directory.
const DefaultFileName = ".metronome.json"

// BuiltinExtensions are the source formats converted without any
// configuration.
var BuiltinExtensions = []string{"flac", "wav", "aiff", "aif", "alac", "ape", "wv"}

// Collision policies applied when a destination is already taken.
const (
	CollisionSkip      = "skip"
	CollisionOverwrite = "overwrite"
	CollisionSuffix    = "suffix"
)

// Settings holds the effective configuration of a run.
//
// Settings is built once by Merge and must not be modified afterwards.
type Settings struct {
	// Paths
	Input  string `json:"input" mapstructure:"input" env:"METRONOME_INPUT" validate:"required,dir"`
	Output string `json:"output" mapstructure:"output" env:"METRONOME_OUTPUT" validate:"required"`
	BinDir string `json:"bin_dir" mapstructure:"bin_dir" env:"METRONOME_BIN_DIR"`

	// Conversion
	Convert         string        `json:"convert" mapstructure:"convert" env:"METRONOME_CONVERT" validate:"oneof=mp3 opus"`
	Bitrate         string        `json:"bitrate" mapstructure:"bitrate" env:"METRONOME_BITRATE" validate:"omitempty,bitrate"`
	Threads         int           `json:"threads" mapstructure:"threads" env:"METRONOME_THREADS" validate:"gte=1,lte=256"`
	Timeout         time.Duration `json:"timeout" mapstructure:"timeout" env:"METRONOME_TIMEOUT"`
	ExtraExtensions []string      `json:"extra_extensions" mapstructure:"extra_extensions" env:"METRONOME_EXTRA_EXTENSIONS" env-separator:","`
	Strip           bool          `json:"strip" mapstructure:"strip"`

	// Naming
	Format    string `json:"format" mapstructure:"format" env:"METRONOME_FORMAT"`
	Sort      bool   `json:"sort" mapstructure:"sort"`
	Collision string `json:"collision" mapstructure:"collision" env:"METRONOME_COLLISION" validate:"oneof=skip overwrite suffix"`

	// Analysis
	All         bool   `json:"all" mapstructure:"all"`
	Analyze     bool   `json:"analyze" mapstructure:"analyze"`
	AcoustIDKey string `json:"acoustid_key" mapstructure:"acoustid_key" env:"METRONOME_ACOUSTID_KEY"`

	// Post-processing
	CoverArt       bool   `json:"cover_art" mapstructure:"cover_art"`
	CoverArtSize   int    `json:"cover_art_size" mapstructure:"cover_art_size" validate:"gte=16"`
	Playlist       bool   `json:"playlist" mapstructure:"playlist"`
	PlaylistFormat string `json:"playlist_format" mapstructure:"playlist_format" validate:"oneof=m3u pls wpl zpl"`

	// Output
	LogLevel string `json:"log_level" mapstructure:"log_level" env:"METRONOME_LOG_LEVEL" validate:"oneof=debug info warn warning error"`
	Verbose  bool   `json:"verbose" mapstructure:"verbose"`
	DryRun   bool   `json:"-" mapstructure:"dry_run"`

	// formatImplied is set when Format was filled in from Sort.
	formatImplied bool
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		Threads:        runtime.NumCPU(),
		Convert:        string(model.TargetMP3),
		Timeout:        30 * time.Minute,
		Collision:      CollisionSkip,
		CoverArtSize:   ioutils.DefaultCoverSize,
		PlaylistFormat: "m3u",
		LogLevel:       "info",
	}
}

// DefaultPath returns the location of the persisted settings file,
// ~/.metronome.json.
func DefaultPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, DefaultFileName), nil
}

// Target returns the requested output format.
func (s *Settings) Target() model.TargetFormat {
	return model.TargetFormat(s.Convert)
}

// Extensions returns the lower-case set of eligible source extensions,
// without leading dots.
func (s *Settings) Extensions() map[string]bool {
	set := make(map[string]bool, len(BuiltinExtensions)+len(s.ExtraExtensions))
	for _, ext := range BuiltinExtensions {
		set[ext] = true
	}
	for _, ext := range s.ExtraExtensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			set[ext] = true
		}
	}
	return set
}

// Save writes the settings as JSON to path, replacing the file
// atomically. Durations are stored in their string form ("30m0s"). A
// format implied by Sort is not stored, so the file keeps following
// OrganizeTemplate.
func (s *Settings) Save(path string) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	m["timeout"] = s.Timeout.String()
	if s.formatImplied {
		m["format"] = ""
	}

	data, err = json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}

	if err := ioutils.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return ioutils.WriteFile(context.Background(), path, append(data, '\n'))
}

// LoadPersisted reads the settings file at path into a ConfigMap. A
// missing file yields an empty map.
func LoadPersisted(path string) (ConfigMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ConfigMap{}, nil
		}
		return nil, &ConfigError{Field: "config", Reason: "cannot read " + path, Err: err}
	}

	m := ConfigMap{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &ConfigError{Field: "config", Reason: "invalid JSON in " + path, Err: err}
	}
	return m, nil
}
