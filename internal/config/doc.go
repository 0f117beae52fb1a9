// Package config builds the effective settings of a run.
//
// This package handles:
//   - Default settings
//   - The persisted JSON file (~/.metronome.json)
//   - METRONOME_* environment variables
//   - Command line flags
//   - Validation
//
// # Precedence
//
// Later layers win: defaults, then the settings file, then the
// environment, then flags given on the command line.
//
//	flags, err := config.ParseFlags(os.Args[1:], os.Stderr)
//	path, _ := config.DefaultPath()
//	persisted, err := config.LoadPersisted(path)
//	settings, err := config.Merge(persisted, flags.Settings)
//
// # Implied settings
//
//   - all turns on sort and analyze
//   - sort without a format uses OrganizeTemplate
//   - no format at all mirrors the input tree
//   - threads 0 means one per CPU
//   - verbose sets the log level to debug
//
// # Saving Settings
//
//	err := settings.Save(path)
package config
