package format

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/metronome/internal/model"
)

const organizeTemplate = "{ArtistName}/{AlbumTitle}/{TrackNumber} - {TrackTitle}.{Extension}"

func songMetadata() model.Metadata {
	return model.Metadata{
		model.KeyArtistName:  "Artist",
		model.KeyAlbumTitle:  "Album",
		model.KeyTrackNumber: "01",
		model.KeyTrackTitle:  "Song",
		model.KeyExtension:   "mp3",
	}
}

func TestRender_OrganizesByArtistAndAlbum(t *testing.T) {
	tmpl, err := Parse(organizeTemplate)
	require.NoError(t, err)

	got, err := tmpl.Render(songMetadata())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("Artist", "Album", "01 - Song.mp3"), got)
}

func TestRender_SeparatorInValueStaysOneLevel(t *testing.T) {
	tmpl, err := Parse(organizeTemplate)
	require.NoError(t, err)

	meta := songMetadata().With(model.KeyAlbumTitle, "Live/Unplugged")
	got, err := tmpl.Render(meta)
	require.NoError(t, err)

	parts := strings.Split(got, string(filepath.Separator))
	require.Len(t, parts, 3)
	assert.Equal(t, "Live_Unplugged", parts[1])
}

func TestRender_MissingPlaceholder(t *testing.T) {
	tmpl, err := Parse(organizeTemplate)
	require.NoError(t, err)

	meta := songMetadata()
	delete(meta, model.KeyTrackTitle)

	_, err = tmpl.Render(meta)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnresolvedPlaceholder))

	var unresolved *UnresolvedPlaceholderError
	require.True(t, errors.As(err, &unresolved))
	assert.Equal(t, model.KeyTrackTitle, unresolved.Name)
}

func TestRender_PlaceholdersAreCaseSensitive(t *testing.T) {
	_, err := Parse("{artistname}.{Extension}")
	var syntax *SyntaxError
	assert.True(t, errors.As(err, &syntax))
}

func TestRender_EmptyValueKeepsSegment(t *testing.T) {
	tmpl, err := Parse(organizeTemplate)
	require.NoError(t, err)

	got, err := tmpl.Render(songMetadata().With(model.KeyAlbumTitle, ""))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("Artist", "_", "01 - Song.mp3"), got)
}

func TestRender_NoPlaceholders(t *testing.T) {
	tmpl, err := Parse("library/all.mp3")
	require.NoError(t, err)
	assert.Empty(t, tmpl.Placeholders())

	got, err := tmpl.Render(model.Metadata{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("library", "all.mp3"), got)
}

func TestRender_NeverProducesIllegalCharacters(t *testing.T) {
	tmpl, err := Parse("{ArtistName}/{AlbumTitle} [{AlbumYear}]/{TrackNumber} - {TrackTitle}.{Extension}")
	require.NoError(t, err)

	hostile := []string{"", " ", "..", "a/b\\c", "x:y*z?", "<>|\"", "\x00\x1f", "CON", "trailing. . .", strings.Repeat("é", 300)}

	for _, v := range hostile {
		meta := model.Metadata{
			model.KeyArtistName:  v,
			model.KeyAlbumTitle:  v,
			model.KeyAlbumYear:   v,
			model.KeyTrackNumber: v,
			model.KeyTrackTitle:  v,
			model.KeyExtension:   "mp3",
		}
		got, err := tmpl.Render(meta)
		require.NoError(t, err)

		parts := strings.Split(got, string(filepath.Separator))
		assert.Len(t, parts, 3, "value %q", v)
		for _, p := range parts {
			assert.NotEmpty(t, p)
			assert.NotContains(t, []string{".", ".."}, p)
			assert.False(t, strings.ContainsAny(p, "<>:\"/\\|?*\x00\x1f"), "segment %q", p)
			assert.LessOrEqual(t, len(p), 255)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name         string
		template     string
		wantErr      bool
		placeholders []string
	}{
		{"organize", organizeTemplate, false, []string{"ArtistName", "AlbumTitle", "TrackNumber", "TrackTitle", "Extension"}},
		{"repeated", "{ArtistName}/{ArtistName} - {TrackTitle}.{Extension}", false, []string{"ArtistName", "TrackTitle", "Extension"}},
		{"escaped braces", "{{{ArtistName}}}.{Extension}", false, []string{"ArtistName", "Extension"}},
		{"unterminated", "{ArtistName/{TrackTitle", true, nil},
		{"empty placeholder", "{}.mp3", true, nil},
		{"unknown placeholder", "{Composer}.{Extension}", true, nil},
		{"stray close", "Artist}.mp3", true, nil},
		{"only separators", "///", true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := Parse(tt.template)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.placeholders, tmpl.Placeholders())
			assert.Equal(t, tt.template, tmpl.String())
		})
	}
}

func TestParse_DropsEmptySegments(t *testing.T) {
	tmpl, err := Parse("//{ArtistName}\\\\{TrackTitle}.{Extension}/")
	require.NoError(t, err)

	got, err := tmpl.Render(songMetadata())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("Artist", "Song.mp3"), got)
}

func TestRender_EscapedBraces(t *testing.T) {
	tmpl, err := Parse("{{{ArtistName}}} {TrackTitle}.{Extension}")
	require.NoError(t, err)

	got, err := tmpl.Render(songMetadata())
	require.NoError(t, err)
	assert.Equal(t, "{Artist} Song.mp3", got)
}

func TestMirror(t *testing.T) {
	tests := []struct {
		name string
		rel  string
		ext  string
		want string
	}{
		{"nested", filepath.Join("Artist", "Album", "01 - Song.flac"), "mp3", filepath.Join("Artist", "Album", "01 - Song.mp3")},
		{"top level", "Song.wav", "opus", "Song.opus"},
		{"illegal characters", filepath.Join("A:B", "t?.flac"), "mp3", filepath.Join("A_B", "t_.mp3")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Mirror{RelSource: tt.rel}.Render(model.Metadata{model.KeyExtension: tt.ext})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMirror_Errors(t *testing.T) {
	_, err := Mirror{}.Render(model.Metadata{model.KeyExtension: "mp3"})
	assert.ErrorIs(t, err, ErrNoSourcePath)

	_, err = Mirror{RelSource: "a.flac"}.Render(model.Metadata{})
	assert.ErrorIs(t, err, ErrUnresolvedPlaceholder)
}

func TestForSource(t *testing.T) {
	tmpl, err := Parse(organizeTemplate)
	require.NoError(t, err)
	assert.Same(t, tmpl, ForSource(tmpl, "x.flac"))
	assert.Equal(t, Mirror{RelSource: "x.flac"}, ForSource(nil, "x.flac"))
}
