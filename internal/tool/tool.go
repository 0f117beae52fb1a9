package tool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/handiism/metronome/internal/logger"
)

var log = logger.Get("Tool")

// ErrTimeout is returned by Command.Invoke when the process outlives its
// timeout and is killed.
var ErrTimeout = errors.New("external tool timed out")

// ErrNotFound is returned by Locate when a binary is neither on PATH nor
// in the bin directory.
var ErrNotFound = errors.New("external tool not found")

// waitDelay bounds how long Invoke waits for output pipes after the
// process was killed, in case a grandchild still holds them open.
const waitDelay = 2 * time.Second

// Result is the outcome of one external process.
//
// A non-zero ExitCode is not an error on its own: callers decide what a
// failing exit status means for them.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Success reports whether the process exited with status zero.
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// Diagnostic returns stderr, or stdout when stderr is empty, trimmed.
func (r *Result) Diagnostic() string {
	if msg := strings.TrimSpace(string(r.Stderr)); msg != "" {
		return msg
	}
	return strings.TrimSpace(string(r.Stdout))
}

// Tool is a single external executable.
//
// Every subprocess the application spawns goes through this interface so
// tests can substitute an in-memory fake.
type Tool interface {
	Invoke(ctx context.Context, args ...string) (*Result, error)
}

// Command runs a binary on disk.
type Command struct {
	// Path is the absolute path of the executable.
	Path string

	// Timeout bounds a single invocation. Zero means no limit.
	Timeout time.Duration
}

// New returns a Command for path.
func New(path string, timeout time.Duration) *Command {
	return &Command{Path: path, Timeout: timeout}
}

// Invoke runs the binary with args and captures its output.
//
// Cancelling ctx kills the process. An error is returned only when the
// process could not be started, was killed by a timeout (ErrTimeout) or
// by ctx; a process that ran and exited non-zero yields a Result.
func (c *Command) Invoke(ctx context.Context, args ...string) (*Result, error) {
	runCtx := ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, c.Path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	log.Emit(logger.DEBUG, "exec %s %s\n", filepath.Base(c.Path), strings.Join(args, " "))
	err := cmd.Run()

	result := &Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, ctxErr
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		result.ExitCode = -1
		return result, fmt.Errorf("%s after %s: %w", filepath.Base(c.Path), c.Timeout, ErrTimeout)
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("run %s: %w", c.Path, err)
	}

	return result, nil
}

func (c *Command) String() string {
	return fmt.Sprintf("{tool %s | timeout=%s}", c.Path, c.Timeout)
}

// Locate finds the executable called name.
//
// PATH is searched first, then binDir (when set). On Windows the ".exe"
// suffix is added automatically.
func Locate(name, binDir string) (string, error) {
	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}

	if binDir != "" {
		candidate := filepath.Join(binDir, executableName(name))
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			abs, err := filepath.Abs(candidate)
			if err != nil {
				return candidate, nil
			}
			return abs, nil
		}
	}

	return "", fmt.Errorf("%s: %w", name, ErrNotFound)
}

func executableName(name string) string {
	if runtime.GOOS == "windows" && !strings.HasSuffix(strings.ToLower(name), ".exe") {
		return name + ".exe"
	}
	return name
}
