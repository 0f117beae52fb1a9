// Package tui provides a Bubble Tea terminal user interface for metronome.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/handiism/metronome/internal/config"
	"github.com/handiism/metronome/internal/convert"
	"github.com/handiism/metronome/internal/model"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)
)

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateConverting
	StateComplete
	StateError
)

// maxLogs is the number of progress lines kept on screen.
const maxLogs = 10

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   convert.ProgressLevel
}

// option is a toggle on the input screen, bound to a settings key.
type option struct {
	key   string
	label string
	name  string
	on    bool
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state    State
	inputs   []textinput.Model
	focus    int
	options  []option
	spinner  spinner.Model
	progress progress.Model
	logs     []LogEntry
	err      error

	// Settings layers the run is built from.
	persisted config.ConfigMap
	cli       config.ConfigMap

	ctx    context.Context
	cancel context.CancelFunc

	dispatcher *convert.Dispatcher
	events     chan convert.ProgressEvent
	verbose    bool

	done    int
	total   int
	summary *model.Summary

	width  int
	height int
}

// NewModel creates a new TUI model. persisted and cli are the settings
// layers from the settings file and the command line; the input screen is
// prefilled from them.
func NewModel(persisted, cli config.ConfigMap) Model {
	input := newInput("/path/to/lossless/library")
	output := newInput("/path/to/converted/library")
	input.Focus()

	if v, ok := lookup("input", cli, persisted); ok {
		input.SetValue(v)
	}
	if v, ok := lookup("output", cli, persisted); ok {
		output.SetValue(v)
	}

	options := []option{
		{key: "s", label: "Organize by artist and album", name: "sort"},
		{key: "n", label: "Identify tracks (AcoustID)", name: "analyze"},
		{key: "r", label: "Write cover art", name: "cover_art"},
		{key: "p", label: "Create playlists", name: "playlist"},
		{key: "t", label: "Strip tags", name: "strip"},
		{key: "v", label: "Verbose output", name: "verbose"},
	}
	for i := range options {
		if v, ok := lookup(options[i].name, cli, persisted); ok {
			options[i].on = v == "true"
		}
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:     StateInput,
		inputs:    []textinput.Model{input, output},
		options:   options,
		spinner:   sp,
		progress:  prog,
		logs:      make([]LogEntry, 0),
		persisted: persisted,
		cli:       cli,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func newInput(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 500
	ti.Width = 60
	return ti
}

// lookup returns the first value of key in layers, formatted as a string.
func lookup(key string, layers ...config.ConfigMap) (string, bool) {
	for _, layer := range layers {
		if v, ok := layer[key]; ok && v != nil {
			return fmt.Sprint(v), true
		}
	}
	return "", false
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// ProgressMsg carries one event from the dispatcher.
	ProgressMsg struct {
		Event convert.ProgressEvent
	}

	// StartedMsg is sent once the dispatcher was built.
	StartedMsg struct {
		Dispatcher *convert.Dispatcher
		Events     chan convert.ProgressEvent
		Verbose    bool
		Err        error
	}

	// DoneMsg is sent when the run finished.
	DoneMsg struct {
		Summary *model.Summary
		Err     error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = msg.Width - 20
		if m.progress.Width > 80 {
			m.progress.Width = 80
		}
		if m.progress.Width < 20 {
			m.progress.Width = 20
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit

		case "esc":
			if m.state == StateInput {
				return m, tea.Quit
			}
			if m.state == StateConverting {
				// The run reports DoneMsg once running jobs stopped.
				m.cancel()
			}

		case "tab", "shift+tab", "up", "down":
			if m.state == StateInput {
				m.inputs[m.focus].Blur()
				m.focus = (m.focus + 1) % len(m.inputs)
				cmds = append(cmds, m.inputs[m.focus].Focus())
				return m, tea.Batch(cmds...)
			}

		case "enter":
			if m.state == StateInput && m.inputs[0].Value() != "" && m.inputs[1].Value() != "" {
				m.state = StateConverting
				return m, tea.Batch(m.start(), m.spinner.Tick)
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				// Reset for a new run
				m.state = StateInput
				m.logs = nil
				m.err = nil
				m.done = 0
				m.total = 0
				m.summary = nil
				m.dispatcher = nil
				m.events = nil
				m.ctx, m.cancel = context.WithCancel(context.Background())
				return m, m.inputs[m.focus].Focus()
			}

		default:
			if m.state == StateInput && strings.HasPrefix(msg.String(), "alt+") {
				key := strings.TrimPrefix(msg.String(), "alt+")
				for i := range m.options {
					if m.options[i].key == key {
						m.options[i].on = !m.options[i].on
					}
				}
				return m, nil
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case StartedMsg:
		if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
			return m, nil
		}
		m.dispatcher = msg.Dispatcher
		m.events = msg.Events
		m.verbose = msg.Verbose
		cmds = append(cmds, m.run(), waitForEvent(m.events), m.tickProgress())

	case ProgressMsg:
		if m.events != nil {
			cmds = append(cmds, waitForEvent(m.events))
		}
		// Filter verbose messages if not in verbose mode
		if msg.Event.Level == convert.LevelVerbose && !m.verbose {
			break
		}
		m.logs = append(m.logs, LogEntry{
			Message: msg.Event.Message,
			Level:   msg.Event.Level,
		})
		if len(m.logs) > maxLogs {
			m.logs = m.logs[len(m.logs)-maxLogs:]
		}

	case DoneMsg:
		m.summary = msg.Summary
		if m.dispatcher != nil {
			m.done, m.total = m.dispatcher.Progress()
		}
		switch {
		case m.ctx.Err() != nil:
			m.state = StateError
			m.err = fmt.Errorf("cancelled by user")
		case msg.Err != nil:
			m.state = StateError
			m.err = msg.Err
		default:
			m.state = StateComplete
		}

	case TickMsg:
		if m.dispatcher != nil && m.state == StateConverting {
			m.done, m.total = m.dispatcher.Progress()

			var percent float64
			if m.total > 0 {
				percent = float64(m.done) / float64(m.total)
			}
			cmds = append(cmds, m.progress.SetPercent(percent), m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	if m.state == StateInput {
		var cmd tea.Cmd
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// waitForEvent forwards the next dispatcher event to the program.
func waitForEvent(events chan convert.ProgressEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return nil
		}
		return ProgressMsg{Event: event}
	}
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	// Header
	b.WriteString(titleStyle.Render("♪ Metronome"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Convert lossless music to MP3 or Opus"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateConverting:
		b.WriteString(m.viewConverting())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	// Footer
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Input directory:"))
	b.WriteString("\n")
	b.WriteString(m.inputs[0].View())
	b.WriteString("\n\n")
	b.WriteString(subtitleStyle.Render("Output directory:"))
	b.WriteString("\n")
	b.WriteString(m.inputs[1].View())
	b.WriteString("\n\n")

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	for _, o := range m.options {
		check := "[ ]"
		if o.on {
			check = "[×]"
		}
		b.WriteString(fmt.Sprintf("  %s %s (alt+%s)\n", check, o.label, o.key))
	}

	return b.String()
}

func (m Model) viewConverting() string {
	var b strings.Builder

	if m.dispatcher == nil {
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
		b.WriteString(subtitleStyle.Render("Scanning..."))
		b.WriteString("\n\n")
		return b.String()
	}

	var percent float64
	if m.total > 0 {
		percent = float64(m.done) / float64(m.total)
	}
	b.WriteString(m.progress.ViewAs(percent))
	b.WriteString("\n")

	b.WriteString(infoStyle.Render(fmt.Sprintf("Files: %d/%d", m.done, m.total)))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	s := m.summary
	if s == nil {
		s = &model.Summary{}
	}

	title := "✨ Conversion Complete!"
	if !s.OK() {
		title = "Conversion finished with errors"
	}

	var b strings.Builder
	b.WriteString(boxStyle.Render(fmt.Sprintf(
		"%s\n\n"+
			"Converted: %d\n"+
			"Skipped: %d\n"+
			"Failed: %d\n"+
			"Size: %s",
		title,
		s.Converted,
		s.Skipped,
		s.Failed,
		humanize.Bytes(uint64(s.Bytes)),
	)))
	b.WriteString("\n\n")

	for _, f := range s.Failures {
		b.WriteString(errorStyle.Render("✗ " + f.Source))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("  " + f.Err.Error()))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("❌ Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}
	if m.summary != nil {
		b.WriteString(fmt.Sprintf("\n\n  %d converted before stopping", m.summary.Converted))
	}

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case convert.LevelError:
			style = errorStyle
			prefix = "✗"
		case convert.LevelWarning:
			style = warningStyle
			prefix = "!"
		case convert.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case convert.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) getHelpText() string {
	switch m.state {
	case StateInput:
		return "enter: start • tab: next field • alt+key: toggle option • esc: quit"
	case StateConverting:
		return "esc: cancel"
	case StateComplete, StateError:
		return "r: new run • q: quit"
	}
	return ""
}

// settingsLayer returns the command line layer with the input screen's
// values applied on top.
func (m Model) settingsLayer() config.ConfigMap {
	layer := config.ConfigMap{}
	for k, v := range m.cli {
		layer[k] = v
	}
	layer["input"] = m.inputs[0].Value()
	layer["output"] = m.inputs[1].Value()
	for _, o := range m.options {
		layer[o.name] = o.on
	}
	return layer
}

// start builds the settings and the dispatcher.
func (m Model) start() tea.Cmd {
	persisted, layer := m.persisted, m.settingsLayer()

	return func() tea.Msg {
		settings, err := config.Merge(persisted, layer)
		if err != nil {
			return StartedMsg{Err: err}
		}

		tools, err := convert.LocateTools(settings)
		if err != nil {
			return StartedMsg{Err: err}
		}
		deps, err := convert.NewDeps(settings, tools)
		if err != nil {
			return StartedMsg{Err: err}
		}

		events := make(chan convert.ProgressEvent, 64)
		dispatcher, err := convert.NewDispatcher(settings, deps, func(event convert.ProgressEvent) {
			events <- event
		})
		if err != nil {
			return StartedMsg{Err: err}
		}

		return StartedMsg{Dispatcher: dispatcher, Events: events, Verbose: settings.Verbose}
	}
}

// run converts in the background. The events channel is closed when the
// run is over.
func (m Model) run() tea.Cmd {
	ctx, dispatcher, events := m.ctx, m.dispatcher, m.events

	return func() tea.Msg {
		defer close(events)
		summary, err := dispatcher.Run(ctx)
		return DoneMsg{Summary: summary, Err: err}
	}
}

// Run starts the TUI application.
func Run(persisted, cli config.ConfigMap) error {
	p := tea.NewProgram(NewModel(persisted, cli), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
