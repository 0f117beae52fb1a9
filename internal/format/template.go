package format

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	ioutils "github.com/handiism/metronome/internal/io"
	"github.com/handiism/metronome/internal/model"
)

// ErrUnresolvedPlaceholder is matched by every UnresolvedPlaceholderError.
var ErrUnresolvedPlaceholder = errors.New("unresolved placeholder")

// UnresolvedPlaceholderError is returned by Render when the template
// references a key the track metadata does not contain.
type UnresolvedPlaceholderError struct {
	Name string
}

func (e *UnresolvedPlaceholderError) Error() string {
	return fmt.Sprintf("unresolved placeholder {%s}", e.Name)
}

func (e *UnresolvedPlaceholderError) Is(target error) bool {
	return target == ErrUnresolvedPlaceholder
}

// SyntaxError describes a template that cannot be parsed.
type SyntaxError struct {
	Template string
	Offset   int
	Reason   string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid format %q at offset %d: %s", e.Template, e.Offset, e.Reason)
}

// Namer renders the relative output path for a track.
type Namer interface {
	Render(meta model.Metadata) (string, error)
}

// token is either literal text or a placeholder reference.
type token struct {
	literal     string
	placeholder string
}

// segment is one path element of the template, between separators.
type segment []token

// Template is a parsed naming template such as
// "{ArtistName}/{AlbumTitle}/{TrackNumber} - {TrackTitle}.{Extension}".
//
// Path separators ('/' or '\') in the template text define the directory
// structure. Values substituted into placeholders can never add levels: a
// separator inside a value is sanitized away along with the other illegal
// characters.
type Template struct {
	source       string
	segments     []segment
	placeholders []string
}

// Parse compiles a naming template.
//
// Placeholders are written as {Name} and must be one of model.KnownKeys.
// Literal braces are written as {{ and }}. Empty path segments, produced
// by leading, trailing or doubled separators, are dropped.
func Parse(tmpl string) (*Template, error) {
	t := &Template{source: tmpl}
	seen := map[string]bool{}

	var (
		current segment
		lit     strings.Builder
	)
	flushLiteral := func() {
		if lit.Len() > 0 {
			current = append(current, token{literal: lit.String()})
			lit.Reset()
		}
	}
	flushSegment := func() {
		flushLiteral()
		if len(current) > 0 {
			t.segments = append(t.segments, current)
		}
		current = nil
	}

	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch {
		case c == '/' || c == '\\':
			flushSegment()

		case c == '{' && i+1 < len(tmpl) && tmpl[i+1] == '{':
			lit.WriteByte('{')
			i++

		case c == '}' && i+1 < len(tmpl) && tmpl[i+1] == '}':
			lit.WriteByte('}')
			i++

		case c == '{':
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return nil, &SyntaxError{Template: tmpl, Offset: i, Reason: "unterminated placeholder"}
			}
			name := tmpl[i+1 : i+1+end]
			if name == "" {
				return nil, &SyntaxError{Template: tmpl, Offset: i, Reason: "empty placeholder"}
			}
			if !model.IsKnownKey(name) {
				return nil, &SyntaxError{
					Template: tmpl,
					Offset:   i,
					Reason:   fmt.Sprintf("unknown placeholder {%s}, valid: %s", name, strings.Join(model.KnownKeys, ", ")),
				}
			}
			flushLiteral()
			current = append(current, token{placeholder: name})
			if !seen[name] {
				seen[name] = true
				t.placeholders = append(t.placeholders, name)
			}
			i += end + 1

		case c == '}':
			return nil, &SyntaxError{Template: tmpl, Offset: i, Reason: "unmatched '}'"}

		default:
			lit.WriteByte(c)
		}
	}
	flushSegment()

	if len(t.segments) == 0 {
		return nil, &SyntaxError{Template: tmpl, Offset: 0, Reason: "template renders no file name"}
	}

	return t, nil
}

// Render expands the template against meta and returns a sanitized
// relative path.
//
// Rendering is pure: it never touches the file system. If any placeholder
// is missing from meta an *UnresolvedPlaceholderError is returned.
func (t *Template) Render(meta model.Metadata) (string, error) {
	parts := make([]string, 0, len(t.segments))

	for i, seg := range t.segments {
		var sb strings.Builder
		for _, tok := range seg {
			if tok.placeholder == "" {
				sb.WriteString(tok.literal)
				continue
			}
			value, ok := meta.Get(tok.placeholder)
			if !ok {
				return "", &UnresolvedPlaceholderError{Name: tok.placeholder}
			}
			sb.WriteString(value)
		}

		if i == len(t.segments)-1 {
			parts = append(parts, ioutils.SanitizeFileName(sb.String()))
		} else {
			parts = append(parts, ioutils.SanitizeSegment(sb.String()))
		}
	}

	return filepath.Join(parts...), nil
}

// Placeholders returns the distinct placeholder names in order of first use.
func (t *Template) Placeholders() []string {
	out := make([]string, len(t.placeholders))
	copy(out, t.placeholders)
	return out
}

// String returns the template source.
func (t *Template) String() string {
	return t.source
}
