package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/handiism/metronome/internal/config"
	"github.com/handiism/metronome/internal/convert"
	"github.com/handiism/metronome/internal/logger"
	"github.com/handiism/metronome/internal/model"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// Exit codes
const (
	exitOK          = 0
	exitFailed      = 1
	exitFatal       = 2
	exitInterrupted = 130
)

var log = logger.Get("Metronome")

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupts
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Emit(logger.WARNING, "Interrupted, cancelling...\n")
		cancel()
	}()

	os.Exit(run(ctx, os.Args[1:], os.Stdout))
}

// run executes one conversion and returns the process exit code.
func run(ctx context.Context, args []string, stdout io.Writer) int {
	flags, err := config.ParseFlags(args, io.Discard)
	if err != nil {
		log.Emit(logger.ERROR, "%v\n", err)
		config.Usage(stdout)
		return exitFatal
	}
	if flags.Help {
		config.Usage(stdout)
		return exitOK
	}
	if flags.Version {
		fmt.Fprintf(stdout, "metronome %s\n", version)
		return exitOK
	}

	configPath := flags.ConfigPath
	if configPath == "" {
		if configPath, err = config.DefaultPath(); err != nil {
			log.Emit(logger.ERROR, "%v\n", err)
			return exitFatal
		}
	}

	persisted, err := config.LoadPersisted(configPath)
	if err != nil {
		log.Emit(logger.ERROR, "%v\n", err)
		return exitFatal
	}

	settings, err := config.Merge(persisted, flags.Settings)
	if err != nil {
		log.Emit(logger.ERROR, "%v\n", err)
		return exitFatal
	}

	if level, err := logger.ParseStatus(settings.LogLevel); err == nil {
		logger.Log.SetMinStatus(level)
	}

	if flags.SaveConfig {
		if err := settings.Save(configPath); err != nil {
			log.Emit(logger.ERROR, "Cannot save settings: %v\n", err)
			return exitFatal
		}
		log.Emit(logger.SUCCESS, "Saved settings to %s\n", configPath)
	}

	tools, err := convert.LocateTools(settings)
	if err != nil {
		log.Emit(logger.ERROR, "%v\n", err)
		return exitFatal
	}
	deps, err := convert.NewDeps(settings, tools)
	if err != nil {
		log.Emit(logger.ERROR, "%v\n", err)
		return exitFatal
	}

	dispatcher, err := convert.NewDispatcher(settings, deps, emitProgress)
	if err != nil {
		log.Emit(logger.ERROR, "%v\n", err)
		return exitFatal
	}

	summary, err := dispatcher.Run(ctx)
	if summary != nil {
		fmt.Fprint(stdout, renderReport(settings, summary))
	}

	return exitCode(summary, err)
}

// emitProgress logs a dispatcher event at the matching level.
func emitProgress(event convert.ProgressEvent) {
	status := logger.INFO
	switch event.Level {
	case convert.LevelVerbose:
		status = logger.DEBUG
	case convert.LevelWarning:
		status = logger.WARNING
	case convert.LevelError:
		status = logger.ERROR
	case convert.LevelSuccess:
		status = logger.SUCCESS
	}
	log.Emit(status, "%s\n", event.Message)
}

func exitCode(summary *model.Summary, err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	case err != nil:
		log.Emit(logger.ERROR, "%v\n", err)
		return exitFatal
	case summary != nil && !summary.OK():
		return exitFailed
	}
	return exitOK
}
