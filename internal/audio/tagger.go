package audio

import (
	"fmt"

	"github.com/bogem/id3v2"

	"github.com/handiism/metronome/internal/model"
)

// TagEditAction defines how to handle individual ID3 tags.
type TagEditAction int

const (
	// TagEmpty clears the tag value.
	TagEmpty TagEditAction = iota

	// TagModify updates the tag with the value from the track metadata.
	// A key missing from the metadata leaves the frame unchanged.
	TagModify

	// TagDoNotModify leaves the existing tag value unchanged.
	TagDoNotModify
)

// TagConfig holds tagging configuration for each ID3 field.
//
// Example:
//
//	cfg := &TagConfig{
//	    ModifyTags:  true,
//	    Artist:      TagModify,      // Update artist from metadata
//	    Year:        TagModify,      // Update year from AlbumYear
//	    Comments:    TagEmpty,       // Clear any existing comments
//	    AlbumArtist: TagDoNotModify, // Keep existing album artist
//	}
type TagConfig struct {
	// ModifyTags is a master switch. If false, no text frames are modified.
	ModifyTags bool

	// Artist controls the TPE1 (Lead artist) frame.
	Artist TagEditAction

	// AlbumArtist controls the TPE2 (Album artist) frame.
	AlbumArtist TagEditAction

	// Album controls the TALB (Album title) frame.
	Album TagEditAction

	// Year controls the TYER (v2.3) or TDRC (v2.4) frame.
	Year TagEditAction

	// TrackNumber controls the TRCK (Track number) frame.
	TrackNumber TagEditAction

	// DiscNumber controls the TPOS (Part of a set) frame.
	DiscNumber TagEditAction

	// TrackTitle controls the TIT2 (Title) frame.
	TrackTitle TagEditAction

	// Genre controls the TCON (Content type) frame.
	Genre TagEditAction

	// Comments controls the COMM (Comments) frame.
	Comments TagEditAction
}

// DefaultTagConfig returns the default tag configuration: every text
// frame follows the metadata and comments are left alone.
func DefaultTagConfig() *TagConfig {
	return &TagConfig{
		ModifyTags:  true,
		Artist:      TagModify,
		AlbumArtist: TagModify,
		Album:       TagModify,
		Year:        TagModify,
		TrackNumber: TagModify,
		DiscNumber:  TagModify,
		TrackTitle:  TagModify,
		Genre:       TagModify,
		Comments:    TagDoNotModify,
	}
}

// Tagger writes ID3 tags to converted MP3 files.
//
// ffmpeg already copies source tags, so the tagger is only run when a
// track was enriched by fingerprint analysis or when cover art has to be
// embedded from a separate image file.
//
// Example:
//
//	tagger := NewTagger(DefaultTagConfig())
//	err := tagger.SaveTags(tmpPath, job.Metadata, coverJPEG)
type Tagger struct {
	config *TagConfig
}

// NewTagger creates a new Tagger with the given configuration.
//
// If config is nil, DefaultTagConfig() is used.
func NewTagger(config *TagConfig) *Tagger {
	if config == nil {
		config = DefaultTagConfig()
	}
	return &Tagger{config: config}
}

// SaveTags writes meta and, when artwork is not nil, a front cover
// picture into the MP3 file at path.
func (t *Tagger) SaveTags(path string, meta model.Metadata, artwork []byte) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("open id3 tag of %s: %w", path, err)
	}
	defer tag.Close()

	if t.config.ModifyTags {
		t.updateStringTags(tag, meta)
	}

	if artwork != nil {
		t.updateArtwork(tag, artwork)
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("save id3 tag of %s: %w", path, err)
	}
	return nil
}

// apply runs action for one frame. set receives the metadata value and is
// only called when the key is present.
func apply(action TagEditAction, meta model.Metadata, key string, set func(string), clear func()) {
	switch action {
	case TagEmpty:
		clear()
	case TagModify:
		if v, ok := meta.Get(key); ok && v != "" {
			set(v)
		}
	}
}

// updateStringTags updates text-based ID3 frames based on configuration.
func (t *Tagger) updateStringTags(tag *id3v2.Tag, meta model.Metadata) {
	textFrame := func(id string) func(string) {
		return func(v string) {
			tag.DeleteFrames(id)
			tag.AddTextFrame(id, id3v2.EncodingUTF8, v)
		}
	}
	deleteFrame := func(id string) func() {
		return func() { tag.DeleteFrames(id) }
	}

	apply(t.config.Artist, meta, model.KeyArtistName, tag.SetArtist, func() { tag.SetArtist("") })
	apply(t.config.Album, meta, model.KeyAlbumTitle, tag.SetAlbum, func() { tag.SetAlbum("") })
	apply(t.config.TrackTitle, meta, model.KeyTrackTitle, tag.SetTitle, func() { tag.SetTitle("") })
	apply(t.config.Genre, meta, model.KeyGenre, tag.SetGenre, func() { tag.SetGenre("") })
	apply(t.config.Year, meta, model.KeyAlbumYear, tag.SetYear, deleteFrame(tag.CommonID("Year")))
	apply(t.config.AlbumArtist, meta, model.KeyAlbumArtist, textFrame("TPE2"), deleteFrame("TPE2"))
	apply(t.config.TrackNumber, meta, model.KeyTrackNumber, textFrame("TRCK"), deleteFrame("TRCK"))
	apply(t.config.DiscNumber, meta, model.KeyDiscNumber, textFrame("TPOS"), deleteFrame("TPOS"))

	if t.config.Comments == TagEmpty {
		tag.DeleteFrames(tag.CommonID("Comments"))
	}
}

// updateArtwork embeds cover art as an attached picture frame.
func (t *Tagger) updateArtwork(tag *id3v2.Tag, artwork []byte) {
	// Remove any existing cover pictures
	tag.DeleteFrames(tag.CommonID("Attached picture"))

	pic := id3v2.PictureFrame{
		Encoding:    id3v2.EncodingUTF8,
		MimeType:    "image/jpeg",
		PictureType: id3v2.PTFrontCover,
		Description: "Cover",
		Picture:     artwork,
	}
	tag.AddAttachedPicture(pic)
}
