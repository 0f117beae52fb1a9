package audio

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/handiism/metronome/internal/model"
)

func TestPlaylistCreator_M3U(t *testing.T) {
	pl := createTestPlaylist()
	creator := NewPlaylistCreator(FormatM3U, false)

	content := creator.CreatePlaylist(pl)

	if content != "01 - track1.mp3\n02 - track2.mp3\n" {
		t.Errorf("unexpected M3U content %q", content)
	}
}

func TestPlaylistCreator_M3UExtended(t *testing.T) {
	pl := createTestPlaylist()
	creator := NewPlaylistCreator(FormatM3U, true)

	content := creator.CreatePlaylist(pl)

	if !strings.HasPrefix(content, "#EXTM3U") {
		t.Error("Extended M3U should start with #EXTM3U")
	}
	if !strings.Contains(content, "#EXTINF:-1,Test Artist - track1\n") {
		t.Error("Extended M3U should contain #EXTINF")
	}
}

func TestPlaylistCreator_PLS(t *testing.T) {
	pl := createTestPlaylist()
	creator := NewPlaylistCreator(FormatPLS, false)

	content := creator.CreatePlaylist(pl)

	if !strings.HasPrefix(content, "[playlist]") {
		t.Error("PLS should start with [playlist]")
	}
	if !strings.Contains(content, "File1=01 - track1.mp3") {
		t.Error("PLS should contain File1=")
	}
	if !strings.Contains(content, "NumberOfEntries=2") {
		t.Error("PLS should contain NumberOfEntries")
	}
}

func TestPlaylistCreator_WPL(t *testing.T) {
	pl := createTestPlaylist()
	creator := NewPlaylistCreator(FormatWPL, false)

	content := creator.CreatePlaylist(pl)

	if !strings.Contains(content, "<?wpl") {
		t.Error("WPL should contain XML declaration")
	}
	if !strings.Contains(content, "<title>Test Album</title>") {
		t.Error("WPL should contain the album title")
	}
	if !strings.Contains(content, "<media src=") {
		t.Error("WPL should contain media elements")
	}
}

func TestPlaylistCreator_ZPL(t *testing.T) {
	pl := createTestPlaylist()
	creator := NewPlaylistCreator(FormatZPL, false)

	content := creator.CreatePlaylist(pl)

	if !strings.Contains(content, "<?zpl") {
		t.Error("ZPL should contain XML declaration")
	}
	if !strings.Contains(content, "albumTitle=\"Test Album\"") {
		t.Error("ZPL should contain albumTitle attribute")
	}
}

func TestPlaylistCreator_XMLEscape(t *testing.T) {
	pl := NewPlaylist("dir", []PlaylistEntry{
		{File: "a.mp3", Title: "Track & \"Quote\"", Artist: "Artist & Co", Album: "Album <Special>"},
	})

	content := NewPlaylistCreator(FormatWPL, false).CreatePlaylist(pl)

	if strings.Contains(content, "<Special>") {
		t.Error("WPL should escape < and >")
	}
	if !strings.Contains(content, "Album &lt;Special&gt;") {
		t.Error("WPL should escape the title")
	}
}

func TestNewPlaylist_OrdersByDiscThenTrack(t *testing.T) {
	pl := NewPlaylist("Folder", []PlaylistEntry{
		{File: "c.mp3", Disc: "02", Track: "01", Album: "A"},
		{File: "b.mp3", Disc: "01", Track: "10", Album: "A"},
		{File: "a.mp3", Disc: "01", Track: "02", Album: "A"},
		{File: "z.mp3", Album: "A"},
	})

	var files []string
	for _, e := range pl.Entries {
		files = append(files, e.File)
	}
	assert.Equal(t, []string{"a.mp3", "b.mp3", "c.mp3", "z.mp3"}, files)
	assert.Equal(t, "A", pl.Title)
}

func TestNewPlaylist_MixedAlbumsUseFallbackTitle(t *testing.T) {
	pl := NewPlaylist("Folder", []PlaylistEntry{
		{File: "a.mp3", Album: "A"},
		{File: "b.mp3", Album: "B"},
	})
	assert.Equal(t, "Folder", pl.Title)
}

func TestEntryFromJob(t *testing.T) {
	job := model.NewJob("/in/x.flac", "x.flac", model.Metadata{
		model.KeyArtistName:  "Artist",
		model.KeyTrackNumber: "03",
	}, false, model.TargetMP3, "/out/Artist/03 - x.mp3")

	e := EntryFromJob(job)
	assert.Equal(t, "03 - x.mp3", e.File)
	assert.Equal(t, "03 - x", e.Title)
	assert.Equal(t, "03", e.Track)
}

func TestParsePlaylistFormat(t *testing.T) {
	for _, name := range []string{"m3u", "pls", "wpl", "zpl"} {
		f, err := ParsePlaylistFormat(name)
		assert.NoError(t, err)
		assert.Equal(t, name, f.Extension())
	}
	_, err := ParsePlaylistFormat("xspf")
	assert.Error(t, err)
}

func createTestPlaylist() *Playlist {
	return NewPlaylist("Folder", []PlaylistEntry{
		{File: "02 - track2.mp3", Title: "track2", Artist: "Test Artist", Album: "Test Album", Track: "02"},
		{File: "01 - track1.mp3", Title: "track1", Artist: "Test Artist", Album: "Test Album", Track: "01"},
	})
}
