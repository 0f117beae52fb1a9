package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/handiism/metronome/internal/config"
	"github.com/handiism/metronome/internal/ffmpeg"
	"github.com/handiism/metronome/internal/model"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#4ECDC4"))

	okStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	failStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B"))

	diagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D")).
			PaddingLeft(4)
)

// renderReport formats the outcome of a run for the terminal.
func renderReport(settings *config.Settings, s *model.Summary) string {
	var b strings.Builder

	b.WriteString("\n")
	if settings.DryRun {
		b.WriteString(headerStyle.Render(fmt.Sprintf("Dry run: %d files would be converted", s.Planned)))
		b.WriteString("\n")
		if s.Skipped > 0 || s.Failed > 0 {
			b.WriteString(fmt.Sprintf("%d skipped, %d cannot be planned\n", s.Skipped, s.Failed))
		}
	} else {
		b.WriteString(headerStyle.Render("Summary"))
		b.WriteString("\n")
		b.WriteString(okStyle.Render(fmt.Sprintf("Converted: %d (%s)", s.Converted, humanize.Bytes(uint64(s.Bytes)))))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("Skipped:   %d\n", s.Skipped))
		b.WriteString(fmt.Sprintf("Failed:    %d\n", s.Failed))
	}

	if len(s.Failures) > 0 {
		b.WriteString("\n")
		b.WriteString(failStyle.Render("Failures"))
		b.WriteString("\n")
		for _, f := range s.Failures {
			b.WriteString(failStyle.Render("✗ ") + f.Source + "\n")
			if f.Destination != "" {
				b.WriteString(diagStyle.Render("-> "+f.Destination) + "\n")
			}
			b.WriteString(diagStyle.Render(describe(f.Err)) + "\n")
		}
	}

	return b.String()
}

// describe returns the failure message; for ffmpeg failures the message
// is followed by its diagnostic on separate lines.
func describe(err error) string {
	var conv *ffmpeg.ConversionError
	if errors.As(err, &conv) && conv.Diagnostic != "" {
		return fmt.Sprintf("ffmpeg exited with status %d\n%s", conv.ExitCode, conv.Diagnostic)
	}
	return err.Error()
}
