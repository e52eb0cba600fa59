// Package backup snapshots the scaffold directory before a destructive
// re-initialization.
package backup

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/kingrea/governance-kit/internal/config"
)

const timestampLayout = "20060102-150405"

// ErrBackupFailed wraps every snapshot failure.
var ErrBackupFailed = errors.New("backup: failed to create backup")

// Option customizes a snapshot.
type Option func(*options)

type options struct {
	now      func() time.Time
	excludes []string
	logger   *zap.Logger
}

// WithClock overrides the clock used to name the snapshot.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.now = clock
		}
	}
}

// WithExcludes skips entries whose slash-separated path relative to the
// scaffold directory matches one of the doublestar patterns.
func WithExcludes(patterns ...string) Option {
	return func(o *options) {
		o.excludes = append(o.excludes, patterns...)
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Snapshot copies scaffoldDir to a timestamped sibling directory and returns
// its path. On failure the partial copy is removed.
func Snapshot(scaffoldDir string, opts ...Option) (string, error) {
	o := options{now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	info, err := os.Stat(scaffoldDir)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBackupFailed, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrBackupFailed, scaffoldDir)
	}

	target, err := reserveName(filepath.Dir(scaffoldDir), o.now())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBackupFailed, err)
	}
	if err := copyTree(scaffoldDir, target, o.excludes); err != nil {
		removePartial(target)
		return "", fmt.Errorf("%w: %w", ErrBackupFailed, err)
	}
	o.logger.Info("scaffold backed up", zap.String("source", scaffoldDir), zap.String("backup", target))
	return target, nil
}

// reserveName picks an unused backup path. A collision within the same
// second gets a millisecond suffix, then increments until free.
func reserveName(parent string, now time.Time) (string, error) {
	base := filepath.Join(parent, config.BackupPrefix+now.Format(timestampLayout))
	free, err := available(base)
	if err != nil || free {
		return base, err
	}
	for suffix := now.Nanosecond() / int(time.Millisecond) % 1000; ; suffix++ {
		candidate := base + "-" + strconv.Itoa(suffix)
		free, err := available(candidate)
		if err != nil || free {
			return candidate, err
		}
	}
}

func available(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return false, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	return false, err
}

// dirAttrs is a copied directory whose source mode and times are applied
// once its contents are in place.
type dirAttrs struct {
	path    string
	perm    fs.FileMode
	modTime time.Time
}

func copyTree(src, dst string, excludes []string) error {
	var dirs []dirAttrs
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel != "." && excluded(filepath.ToSlash(rel), excludes) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		target := filepath.Join(dst, rel)
		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			// Stay writable until the children are copied.
			if err := os.MkdirAll(target, 0o700|info.Mode().Perm()); err != nil {
				return err
			}
			dirs = append(dirs, dirAttrs{path: target, perm: info.Mode().Perm(), modTime: info.ModTime()})
			return nil
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case d.Type().IsRegular():
			if err := copyFile(path, target, info.Mode().Perm()); err != nil {
				return err
			}
			return os.Chtimes(target, info.ModTime(), info.ModTime())
		default:
			return fmt.Errorf("unsupported file type at %s", path)
		}
	})
	if err != nil {
		return err
	}
	// Walk order is parents first, so reverse it to finish children first.
	for i := len(dirs) - 1; i >= 0; i-- {
		dir := dirs[i]
		if err := os.Chmod(dir.path, dir.perm); err != nil {
			return err
		}
		if err := os.Chtimes(dir.path, dir.modTime, dir.modTime); err != nil {
			return err
		}
	}
	return nil
}

// removePartial deletes a failed copy, restoring write access to any
// directory whose source mode was already applied.
func removePartial(target string) {
	_ = filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
		if err == nil && d.IsDir() {
			_ = os.Chmod(path, 0o700)
		}
		return nil
	})
	_ = os.RemoveAll(target)
}

func excluded(rel string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func copyFile(src, dst string, perm fs.FileMode) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	_, err = io.Copy(out, in)
	return err
}
