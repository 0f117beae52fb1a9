package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/metronome/internal/config"
	"github.com/handiism/metronome/internal/convert"
	"github.com/handiism/metronome/internal/model"
)

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func TestNewModel_PrefillsFromLayers(t *testing.T) {
	m := NewModel(
		config.ConfigMap{"input": "/music/flac", "playlist": true},
		config.ConfigMap{"output": "/music/mp3", "sort": "true"},
	)

	assert.Equal(t, "/music/flac", m.inputs[0].Value())
	assert.Equal(t, "/music/mp3", m.inputs[1].Value())

	on := map[string]bool{}
	for _, o := range m.options {
		on[o.name] = o.on
	}
	assert.True(t, on["sort"])
	assert.True(t, on["playlist"])
	assert.False(t, on["analyze"])
}

func TestModel_ToggleOption(t *testing.T) {
	m := NewModel(nil, nil)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r"), Alt: true})

	layer := m.settingsLayer()
	assert.Equal(t, true, layer["cover_art"])
	assert.Equal(t, false, layer["sort"])
}

func TestModel_SettingsLayerKeepsCommandLine(t *testing.T) {
	m := NewModel(nil, config.ConfigMap{"threads": "4", "output": "/out"})
	m.inputs[0].SetValue("/in")

	layer := m.settingsLayer()
	assert.Equal(t, "4", layer["threads"])
	assert.Equal(t, "/in", layer["input"])
	assert.Equal(t, "/out", layer["output"])
}

func TestModel_FiltersVerboseEvents(t *testing.T) {
	m := NewModel(nil, nil)
	m.state = StateConverting

	m = update(t, m, ProgressMsg{Event: convert.ProgressEvent{Message: "detail", Level: convert.LevelVerbose}})
	m = update(t, m, ProgressMsg{Event: convert.ProgressEvent{Message: "Converted a.flac", Level: convert.LevelSuccess}})

	require.Len(t, m.logs, 1)
	assert.Equal(t, "Converted a.flac", m.logs[0].Message)
}

func TestModel_KeepsLastLogs(t *testing.T) {
	m := NewModel(nil, nil)
	m.state = StateConverting

	for i := 0; i < maxLogs+5; i++ {
		m = update(t, m, ProgressMsg{Event: convert.ProgressEvent{Message: "line", Level: convert.LevelInfo}})
	}

	assert.Len(t, m.logs, maxLogs)
}

func TestModel_Done(t *testing.T) {
	m := NewModel(nil, nil)
	m.state = StateConverting

	m = update(t, m, DoneMsg{Summary: &model.Summary{Converted: 3, Bytes: 2048}})

	assert.Equal(t, StateComplete, m.state)
	assert.Contains(t, m.View(), "Converted: 3")
}

func TestModel_StartFailure(t *testing.T) {
	m := NewModel(nil, nil)
	m.state = StateConverting

	m = update(t, m, StartedMsg{Err: errors.New("ffmpeg is required")})

	assert.Equal(t, StateError, m.state)
	assert.Contains(t, m.View(), "ffmpeg is required")
}

func TestModel_CancelledRun(t *testing.T) {
	m := NewModel(nil, nil)
	m.state = StateConverting
	m.cancel()

	m = update(t, m, DoneMsg{Summary: &model.Summary{Converted: 1}, Err: errors.New("context canceled")})

	assert.Equal(t, StateError, m.state)
	assert.Contains(t, m.View(), "cancelled by user")
}
