package model

import (
	"sort"
	"strconv"
	"strings"
)

// Metadata keys understood by the format template engine.
//
// These are the placeholder names users can reference in a naming
// template, e.g. "{ArtistName}/{AlbumTitle}/{TrackNumber} - {TrackTitle}.{Extension}".
const (
	KeyArtistName  = "ArtistName"
	KeyAlbumArtist = "AlbumArtist"
	KeyAlbumTitle  = "AlbumTitle"
	KeyAlbumYear   = "AlbumYear"
	KeyTrackNumber = "TrackNumber"
	KeyTrackTitle  = "TrackTitle"
	KeyDiscNumber  = "DiscNumber"
	KeyGenre       = "Genre"

	// KeyExtension is always supplied by the dispatcher from the target
	// format, never from the source file.
	KeyExtension = "Extension"

	// KeySourceName is the source file name without its extension.
	KeySourceName = "SourceName"
)

// KnownKeys lists every placeholder name a template may reference.
var KnownKeys = []string{
	KeyArtistName,
	KeyAlbumArtist,
	KeyAlbumTitle,
	KeyAlbumYear,
	KeyTrackNumber,
	KeyTrackTitle,
	KeyDiscNumber,
	KeyGenre,
	KeyExtension,
	KeySourceName,
}

// IsKnownKey reports whether name is a supported placeholder.
func IsKnownKey(name string) bool {
	for _, k := range KnownKeys {
		if k == name {
			return true
		}
	}
	return false
}

// Metadata maps placeholder keys to their values for one track.
//
// Metadata only contains keys that were actually found in the source
// (or supplied by enrichment). An absent key is treated as an unresolved
// placeholder by the template engine, while a present key with an empty
// value renders as an empty string.
//
// Metadata is treated as immutable once it is handed to the template
// engine: use Clone or Merge to derive a modified copy.
type Metadata map[string]string

// Get returns the value for key and whether it is present.
func (m Metadata) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// Clone returns an independent copy of m.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Merge returns a copy of m overlaid with every non-empty value from other.
//
// This is how enrichment results are applied: a successful lookup replaces
// the values it knows, but never blanks out tags the source already had.
func (m Metadata) Merge(other Metadata) Metadata {
	out := m.Clone()
	for k, v := range other {
		if strings.TrimSpace(v) == "" {
			continue
		}
		out[k] = v
	}
	return out
}

// With returns a copy of m with key set to value.
func (m Metadata) With(key, value string) Metadata {
	out := m.Clone()
	out[key] = value
	return out
}

// Keys returns the keys of m in sorted order.
func (m Metadata) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetIfPresent stores value under key when value is not blank.
func (m Metadata) SetIfPresent(key, value string) {
	value = strings.TrimSpace(value)
	if value != "" {
		m[key] = value
	}
}

// NormalizeNumber formats a track or disc number tag as a zero-padded
// two digit string.
//
// Tags frequently carry a total ("3/12") or stray whitespace; both are
// dropped. Values that are not numeric are returned trimmed but otherwise
// untouched.
//
// Example:
//
//	NormalizeNumber("3/12") // "03"
//	NormalizeNumber("11")   // "11"
//	NormalizeNumber("A1")   // "A1"
func NormalizeNumber(raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexByte(raw, '/'); i >= 0 {
		raw = strings.TrimSpace(raw[:i])
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return raw
	}
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// NormalizeYear extracts the leading four digit year from a date tag
// such as "2019-04-12". Anything shorter is returned trimmed.
func NormalizeYear(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) >= 4 {
		if _, err := strconv.Atoi(raw[:4]); err == nil {
			return raw[:4]
		}
	}
	return raw
}
