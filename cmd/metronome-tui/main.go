package main

import (
	"fmt"
	"io"
	"os"

	"github.com/handiism/metronome/internal/config"
	"github.com/handiism/metronome/internal/logger"
	"github.com/handiism/metronome/internal/tui"
)

func main() {
	flags, err := config.ParseFlags(os.Args[1:], io.Discard)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if flags.Help {
		config.Usage(os.Stdout)
		return
	}

	configPath := flags.ConfigPath
	if configPath == "" {
		if configPath, err = config.DefaultPath(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
	}
	persisted, err := config.LoadPersisted(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	// The alt screen owns the terminal; progress is shown by the UI.
	logger.Log.SetOutput(io.Discard)

	if err := tui.Run(persisted, flags.Settings); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
