// Package initializer resolves and runs the external Spec Kit initializer
// that creates the scaffold directory.
package initializer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/kingrea/governance-kit/internal/config"
)

// ErrInitializerFailed wraps every failure to run the initializer.
var ErrInitializerFailed = errors.New("initializer: Spec Kit init failed")

// ExitError reports a non-zero exit from the initializer.
type ExitError struct {
	Command  string
	ExitCode int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Command, e.ExitCode)
}

// Is lets errors.Is match ErrInitializerFailed.
func (e *ExitError) Is(target error) bool {
	return target == ErrInitializerFailed
}

// Stdio is the set of streams handed to the child process.
type Stdio struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Runner starts a process and waits for it.
type Runner interface {
	// Run returns the exit code once the process exits, or an error when it
	// could not be started or waited on.
	Run(ctx context.Context, dir, name string, args []string, stdio Stdio) (int, error)
}

// ExecRunner runs processes with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, dir, name string, args []string, stdio Stdio) (int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdin = stdio.Stdin
	cmd.Stdout = stdio.Stdout
	cmd.Stderr = stdio.Stderr
	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, err
	}
	return 0, nil
}

// Invocation is a resolved initializer command line.
type Invocation struct {
	Name     string
	Args     []string
	Fallback bool
}

// String renders the command line for display.
func (inv Invocation) String() string {
	return strings.Join(append([]string{inv.Name}, inv.Args...), " ")
}

// Option customizes an Initializer.
type Option func(*Initializer)

// WithRunner replaces the process runner.
func WithRunner(r Runner) Option {
	return func(i *Initializer) {
		if r != nil {
			i.runner = r
		}
	}
}

// WithLookPath replaces the executable search used to find the initializer.
func WithLookPath(lookPath func(string) (string, error)) Option {
	return func(i *Initializer) {
		if lookPath != nil {
			i.lookPath = lookPath
		}
	}
}

// WithStdio sets the streams handed to the child process.
func WithStdio(stdio Stdio) Option {
	return func(i *Initializer) {
		i.stdio = stdio
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *zap.Logger) Option {
	return func(i *Initializer) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// Initializer launches Spec Kit's `init` in a workspace.
type Initializer struct {
	cfg      config.InitializerConfig
	runner   Runner
	lookPath func(string) (string, error)
	stdio    Stdio
	logger   *zap.Logger
}

// New builds an Initializer for cfg.
func New(cfg config.InitializerConfig, opts ...Option) *Initializer {
	i := &Initializer{
		cfg:      cfg,
		runner:   ExecRunner{},
		lookPath: exec.LookPath,
		stdio:    Stdio{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Resolve picks the command line for agent. The configured executable is
// used when it is on PATH, otherwise the fallback launcher.
func (i *Initializer) Resolve(agent string) Invocation {
	initArgs := append([]string{"init", "--here", "--force", "--ai", agent}, i.cfg.ExtraArgs...)
	if path, err := i.lookPath(i.cfg.Executable); err == nil {
		return Invocation{Name: path, Args: initArgs}
	}
	if len(i.cfg.Fallback) == 0 {
		return Invocation{Name: i.cfg.Executable, Args: initArgs}
	}
	args := append(append([]string{}, i.cfg.Fallback[1:]...), initArgs...)
	return Invocation{Name: i.cfg.Fallback[0], Args: args, Fallback: true}
}

// Run executes inv in dir and waits for it. The child shares the
// operator's terminal so interactive prompts keep working.
func (i *Initializer) Run(ctx context.Context, dir string, inv Invocation) error {
	i.logger.Debug("running initializer",
		zap.String("dir", dir),
		zap.String("command", inv.String()),
		zap.Bool("fallback", inv.Fallback))
	code, err := i.runner.Run(ctx, dir, inv.Name, inv.Args, i.stdio)
	if err != nil {
		return fmt.Errorf("%w: start %s: %w", ErrInitializerFailed, inv.Name, err)
	}
	if code != 0 {
		return &ExitError{Command: inv.Name, ExitCode: code}
	}
	return nil
}
