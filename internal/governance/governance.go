// Package governance orchestrates the init and check workflows on top of the
// detector, backup, initializer and overlay packages.
package governance

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/kingrea/governance-kit/internal/config"
	"github.com/kingrea/governance-kit/internal/confirm"
	"github.com/kingrea/governance-kit/internal/console"
	"github.com/kingrea/governance-kit/internal/initializer"
	"github.com/kingrea/governance-kit/internal/rules"
)

var (
	// ErrScaffoldMissing means the workspace has no .specify directory.
	ErrScaffoldMissing = errors.New(".specify/ not found")
	// ErrUnsafeOverwrite means re-initialization would destroy a customized constitution.
	ErrUnsafeOverwrite = errors.New("refusing to overwrite customized constitution.md")
	// ErrAborted means the operator declined the destructive confirmation.
	ErrAborted = errors.New("aborted by operator")
	// ErrOverlayIncomplete means check found issues.
	ErrOverlayIncomplete = errors.New("governance overlay issues found")
	// ErrUnknownRule means the requested rule document is not part of the set.
	ErrUnknownRule = errors.New("unknown rule document")
)

// confirmWord must be typed to allow a destructive re-initialization.
const confirmWord = "destroy"

// Env carries the collaborators shared by every workflow.
type Env struct {
	Config      *config.Config
	Rules       rules.Source
	Initializer *initializer.Initializer
	// Prompter is nil when no interactive terminal is available.
	Prompter confirm.Prompter
	Console  *console.Console
	Logger   *zap.Logger
	Now      func() time.Time
	// Interactive reports whether standard output is a terminal.
	Interactive bool
}

func (e *Env) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e *Env) now() func() time.Time {
	if e.Now == nil {
		return time.Now
	}
	return e.Now
}

func (e *Env) ruleSource() rules.Source {
	if e.Rules == nil {
		return rules.Bundled()
	}
	return e.Rules
}

// reportedError marks an error whose explanation was already printed.
type reportedError struct {
	err error
}

func (r *reportedError) Error() string { return r.err.Error() }
func (r *reportedError) Unwrap() error { return r.err }

func reported(err error) error {
	return &reportedError{err: err}
}

// Reported reports whether the workflow already explained err to the
// operator, so the caller only needs to set the exit status.
func Reported(err error) bool {
	var r *reportedError
	return errors.As(err, &r)
}

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
