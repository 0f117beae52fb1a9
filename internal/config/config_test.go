package config

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dirs(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	in := filepath.Join(root, "in")
	require.NoError(t, os.Mkdir(in, 0o755))
	return in, filepath.Join(root, "out")
}

func TestMerge_Defaults(t *testing.T) {
	in, out := dirs(t)

	s, err := Merge(nil, ConfigMap{"input": in, "output": out})
	require.NoError(t, err)

	assert.Equal(t, "mp3", s.Convert)
	assert.Equal(t, runtime.NumCPU(), s.Threads)
	assert.Equal(t, CollisionSkip, s.Collision)
	assert.Equal(t, "", s.Format)

	tmpl, err := s.Template()
	require.NoError(t, err)
	assert.Nil(t, tmpl)
}

func TestMerge_Precedence(t *testing.T) {
	in, out := dirs(t)

	persisted := ConfigMap{
		"input":   in,
		"output":  out,
		"threads": float64(2),
		"convert": "opus",
		"bitrate": "256k",
		"unknown": "ignored",
	}
	t.Setenv("METRONOME_THREADS", "3")
	t.Setenv("METRONOME_BITRATE", "192k")

	s, err := Merge(persisted, ConfigMap{"threads": "4"})
	require.NoError(t, err)

	assert.Equal(t, 4, s.Threads, "flags win over environment")
	assert.Equal(t, "192k", s.Bitrate, "environment wins over the settings file")
	assert.Equal(t, "opus", s.Convert, "settings file wins over defaults")
}

func TestMerge_WeakTyping(t *testing.T) {
	in, out := dirs(t)

	s, err := Merge(nil, ConfigMap{
		"input":            in,
		"output":           out,
		"extra_extensions": "M4A, .ogg",
		"timeout":          "90s",
		"playlist":         "true",
	})
	require.NoError(t, err)

	assert.Equal(t, 90*time.Second, s.Timeout)
	assert.True(t, s.Playlist)

	exts := s.Extensions()
	assert.True(t, exts["flac"])
	assert.True(t, exts["m4a"])
	assert.True(t, exts["ogg"])
	assert.False(t, exts["mp3"])
}

func TestMerge_ImpliedSettings(t *testing.T) {
	in, out := dirs(t)

	s, err := Merge(nil, ConfigMap{"input": in, "output": out, "all": "true", "verbose": "true", "threads": "0"})
	require.NoError(t, err)

	assert.True(t, s.Sort)
	assert.True(t, s.Analyze)
	assert.Equal(t, OrganizeTemplate, s.Format)
	assert.Equal(t, "debug", s.LogLevel)
	assert.Equal(t, runtime.NumCPU(), s.Threads)

	custom, err := Merge(nil, ConfigMap{"input": in, "output": out, "sort": "true", "format": "{TrackTitle}.{Extension}"})
	require.NoError(t, err)
	assert.Equal(t, "{TrackTitle}.{Extension}", custom.Format)
}

func TestMerge_Invalid(t *testing.T) {
	in, out := dirs(t)

	tests := []struct {
		name  string
		cli   ConfigMap
		field string
	}{
		{"missing input", ConfigMap{"output": out}, "input"},
		{"input not a directory", ConfigMap{"input": filepath.Join(in, "nope"), "output": out}, "input"},
		{"missing output", ConfigMap{"input": in}, "output"},
		{"bad target", ConfigMap{"input": in, "output": out, "convert": "wma"}, "convert"},
		{"bad collision", ConfigMap{"input": in, "output": out, "collision": "rename"}, "collision"},
		{"bad threads", ConfigMap{"input": in, "output": out, "threads": "-2"}, "threads"},
		{"bad bitrate", ConfigMap{"input": in, "output": out, "bitrate": "fast"}, "bitrate"},
		{"bitrate without unit", ConfigMap{"input": in, "output": out, "bitrate": "320"}, "bitrate"},
		{"bad template", ConfigMap{"input": in, "output": out, "format": "{Nope}"}, "format"},
		{"same dirs", ConfigMap{"input": in, "output": in}, "output"},
		{"negative timeout", ConfigMap{"input": in, "output": out, "timeout": "-1s"}, "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Merge(nil, tt.cli)

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestSaveAndLoadPersisted(t *testing.T) {
	in, out := dirs(t)
	path := filepath.Join(t.TempDir(), "nested", DefaultFileName)

	s, err := Merge(nil, ConfigMap{"input": in, "output": out, "threads": "3", "timeout": "5m", "extra_extensions": "m4a"})
	require.NoError(t, err)
	require.NoError(t, s.Save(path))

	persisted, err := LoadPersisted(path)
	require.NoError(t, err)
	assert.Equal(t, "5m0s", persisted["timeout"])
	_, hasDryRun := persisted["dry_run"]
	assert.False(t, hasDryRun)

	reloaded, err := Merge(persisted, nil)
	require.NoError(t, err)
	assert.Equal(t, s.Threads, reloaded.Threads)
	assert.Equal(t, s.Timeout, reloaded.Timeout)
	assert.Equal(t, []string{"m4a"}, reloaded.ExtraExtensions)
	assert.Equal(t, s.Input, reloaded.Input)
}

func TestSave_ImpliedFormatIsNotPersisted(t *testing.T) {
	in, out := dirs(t)
	path := filepath.Join(t.TempDir(), DefaultFileName)

	s, err := Merge(nil, ConfigMap{"input": in, "output": out, "sort": true})
	require.NoError(t, err)
	require.Equal(t, OrganizeTemplate, s.Format)
	require.NoError(t, s.Save(path))

	persisted, err := LoadPersisted(path)
	require.NoError(t, err)
	assert.Equal(t, "", persisted["format"])
	assert.Equal(t, true, persisted["sort"])

	// Turning sort off later must not leave the organize template behind.
	reloaded, err := Merge(persisted, ConfigMap{"sort": false})
	require.NoError(t, err)
	assert.Empty(t, reloaded.Format)
}

func TestSave_ExplicitFormatIsPersisted(t *testing.T) {
	in, out := dirs(t)
	path := filepath.Join(t.TempDir(), DefaultFileName)

	s, err := Merge(nil, ConfigMap{"input": in, "output": out, "sort": true, "format": "{TrackTitle}.{Extension}"})
	require.NoError(t, err)
	require.NoError(t, s.Save(path))

	persisted, err := LoadPersisted(path)
	require.NoError(t, err)
	assert.Equal(t, "{TrackTitle}.{Extension}", persisted["format"])
}

func TestLoadPersisted(t *testing.T) {
	dir := t.TempDir()

	m, err := LoadPersisted(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	assert.Empty(t, m)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{nope"), 0o644))
	_, err = LoadPersisted(bad)
	var cfgErr *ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestParseFlags(t *testing.T) {
	flags, err := ParseFlags([]string{
		"-i", "music", "--output=converted", "-c", "opus", "-sn",
		"--extra-extensions", "m4a,ogg", "--threads", "8", "--timeout", "2m",
		"--save-config", "--config", "/tmp/m.json",
	}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, ConfigMap{
		"input":            "music",
		"output":           "converted",
		"convert":          "opus",
		"sort":             "true",
		"analyze":          "true",
		"extra_extensions": "m4a,ogg",
		"threads":          "8",
		"timeout":          "2m0s",
	}, flags.Settings)
	assert.True(t, flags.SaveConfig)
	assert.Equal(t, "/tmp/m.json", flags.ConfigPath)
}

func TestParseFlags_DefaultsAreNotSettings(t *testing.T) {
	flags, err := ParseFlags(nil, io.Discard)
	require.NoError(t, err)
	assert.Empty(t, flags.Settings)
}

func TestParseFlags_Errors(t *testing.T) {
	_, err := ParseFlags([]string{"--no-such-flag"}, io.Discard)
	assert.Error(t, err)

	_, err = ParseFlags([]string{"stray"}, io.Discard)
	assert.Error(t, err)
}
