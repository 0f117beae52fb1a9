package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
)

// Flags is the parsed command line.
type Flags struct {
	// Settings holds the flags that were set explicitly, keyed like the
	// persisted settings file.
	Settings ConfigMap

	// ConfigPath overrides the persisted settings location.
	ConfigPath string

	// SaveConfig asks for the effective settings to be written back.
	SaveConfig bool

	Help    bool
	Version bool

	// Args holds positional arguments.
	Args []string
}

// NewFlagSet declares every command line flag on a new set named name.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SortFlags = false

	fs.StringP("input", "i", "", "input directory to convert")
	fs.StringP("output", "o", "", "output directory")
	fs.StringP("convert", "c", "mp3", "target format: mp3 or opus")
	fs.StringP("format", "f", "", "naming template, e.g. \""+OrganizeTemplate+"\"")
	fs.String("extra-extensions", "", "comma separated source extensions to convert as well")
	fs.Int("threads", 0, "number of parallel conversions (default: number of CPUs)")
	fs.BoolP("all", "a", false, "sort and analyze")
	fs.BoolP("analyze", "n", false, "identify tracks with AcoustID and MusicBrainz")
	fs.BoolP("sort", "s", false, "organize the output by artist and album")
	fs.BoolP("strip", "t", false, "strip all tags from the output")
	fs.BoolP("cover-art", "r", false, "write cover.jpg next to converted tracks")
	fs.Bool("playlist", false, "write a playlist in every output directory")
	fs.String("playlist-format", "m3u", "playlist format: m3u, pls, wpl or zpl")
	fs.String("collision", CollisionSkip, "existing destination policy: skip, overwrite or suffix")
	fs.Duration("timeout", 0, "per file conversion timeout, 0 for none (default 30m)")
	fs.String("bitrate", "", "override the target bitrate, e.g. 256k")
	fs.String("acoustid-key", "", "AcoustID application key")
	fs.String("bin-dir", "", "directory searched for ffmpeg, ffprobe and fpcalc after PATH")
	fs.String("log-level", "info", "debug, info, warn or error")
	fs.BoolP("verbose", "v", false, "shorthand for --log-level debug")
	fs.Bool("dry-run", false, "print the plan without converting")

	fs.String("config", "", "settings file (default ~/"+DefaultFileName+")")
	fs.Bool("save-config", false, "persist the effective settings")
	fs.BoolP("help", "h", false, "show this help")
	fs.Bool("version", false, "print the version")

	return fs
}

// cliOnly are flags that are not settings.
var cliOnly = map[string]bool{"config": true, "save-config": true, "help": true, "version": true}

// ParseFlags parses args (without the program name).
//
// Only flags given explicitly end up in Flags.Settings, so defaults never
// shadow values from the settings file or environment.
func ParseFlags(args []string, usage io.Writer) (*Flags, error) {
	fs := NewFlagSet("metronome")
	fs.SetOutput(usage)

	if err := fs.Parse(args); err != nil {
		return nil, &ConfigError{Field: "flags", Reason: "cannot parse command line", Err: err}
	}

	out := &Flags{Settings: ConfigMap{}, Args: fs.Args()}
	out.ConfigPath, _ = fs.GetString("config")
	out.SaveConfig, _ = fs.GetBool("save-config")
	out.Help, _ = fs.GetBool("help")
	out.Version, _ = fs.GetBool("version")

	fs.Visit(func(f *pflag.Flag) {
		if cliOnly[f.Name] {
			return
		}
		out.Settings[settingKey(f.Name)] = f.Value.String()
	})

	if len(out.Args) > 0 {
		return out, &ConfigError{Field: "flags", Reason: fmt.Sprintf("unexpected argument %q", out.Args[0])}
	}

	return out, nil
}

// settingKey converts a flag name to its settings key.
func settingKey(flag string) string {
	return strings.ReplaceAll(flag, "-", "_")
}

// Usage writes the flag help to w.
func Usage(w io.Writer) {
	fs := NewFlagSet("metronome")
	fmt.Fprintf(w, "Usage: metronome -i <input> -o <output> [flags]\n\n")
	fmt.Fprint(w, fs.FlagUsages())
}
