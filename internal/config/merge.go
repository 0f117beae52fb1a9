package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"regexp"
	"runtime"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/mitchellh/mapstructure"

	"github.com/handiism/metronome/internal/format"
)

// ConfigMap is a loosely typed set of settings keyed by their JSON names,
// as read from the settings file or the command line.
type ConfigMap = map[string]any

// ConfigError reports settings that make a run impossible.
type ConfigError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("invalid setting %q: %s", e.Field, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var bitratePattern = regexp.MustCompile(`^[1-9][0-9]{0,3}[kK]$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("bitrate", func(fl validator.FieldLevel) bool {
		return bitratePattern.MatchString(fl.Field().String())
	})
	return v
}

// Merge builds the effective settings for a run.
//
// Layers are applied in increasing precedence: DefaultSettings, the
// persisted settings, METRONOME_* environment variables and finally the
// command line. Only keys present in a layer override the layers below;
// unknown keys are ignored. Values are decoded weakly, so "4" fills an int
// and "m4a,wv" a string slice.
//
// The result is validated; any problem is reported as a *ConfigError.
func Merge(persisted, cli ConfigMap) (*Settings, error) {
	s := DefaultSettings()

	if err := decode(persisted, s); err != nil {
		return nil, &ConfigError{Field: "config", Reason: "cannot decode persisted settings", Err: err}
	}
	if err := cleanenv.ReadEnv(s); err != nil {
		return nil, &ConfigError{Field: "environment", Reason: "cannot decode METRONOME_* variables", Err: err}
	}
	if err := decode(cli, s); err != nil {
		return nil, &ConfigError{Field: "flags", Reason: "cannot decode command line", Err: err}
	}

	s.normalize()

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func decode(m ConfigMap, s *Settings) error {
	if len(m) == 0 {
		return nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           s,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(m)
}

// normalize applies the implied settings.
func (s *Settings) normalize() {
	if s.All {
		s.Sort = true
		s.Analyze = true
	}
	if s.Threads == 0 {
		s.Threads = runtime.NumCPU()
	}
	if s.Sort && strings.TrimSpace(s.Format) == "" {
		s.Format = OrganizeTemplate
		s.formatImplied = true
	}
	if s.Verbose {
		s.LogLevel = "debug"
	}
	s.Convert = strings.ToLower(strings.TrimSpace(s.Convert))
	s.Collision = strings.ToLower(strings.TrimSpace(s.Collision))
	s.PlaylistFormat = strings.ToLower(strings.TrimSpace(s.PlaylistFormat))
	s.LogLevel = strings.ToLower(strings.TrimSpace(s.LogLevel))

	if s.Input != "" {
		if abs, err := filepath.Abs(s.Input); err == nil {
			s.Input = abs
		}
	}
	if s.Output != "" {
		if abs, err := filepath.Abs(s.Output); err == nil {
			s.Output = abs
		}
	}
}

// Validate checks the settings and returns the first problem as a
// *ConfigError.
func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &ConfigError{Field: fe.Field(), Reason: describe(fe)}
		}
		return &ConfigError{Field: "settings", Reason: "validation failed", Err: err}
	}

	if s.Timeout < 0 {
		return &ConfigError{Field: "timeout", Reason: "must not be negative"}
	}

	if s.Input == s.Output {
		return &ConfigError{Field: "output", Reason: "must differ from the input directory"}
	}

	if _, err := s.Template(); err != nil {
		return &ConfigError{Field: "format", Reason: "cannot parse naming template", Err: err}
	}

	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "dir":
		return fmt.Sprintf("%v is not a directory", fe.Value())
	case "oneof":
		return fmt.Sprintf("%v is not one of [%s]", fe.Value(), fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "bitrate":
		return fmt.Sprintf("%v is not a bitrate such as 256k", fe.Value())
	}
	return fmt.Sprintf("failed %q check", fe.Tag())
}

// Template returns the parsed naming template, or nil in mirror mode.
func (s *Settings) Template() (*format.Template, error) {
	if strings.TrimSpace(s.Format) == "" {
		return nil, nil
	}
	return format.Parse(s.Format)
}
