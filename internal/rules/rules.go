// Package rules provides read-only access to the governance rule documents
// that the overlay copies into a scaffold.
package rules

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
)

//go:embed library/*.md
var bundled embed.FS

// ErrNotFound is returned when a source does not carry a rule document. It
// matches fs.ErrNotExist.
var ErrNotFound = fmt.Errorf("rules: document not found: %w", fs.ErrNotExist)

// Source reads named rule documents.
type Source interface {
	// ReadRule returns the document body, or an error matching
	// fs.ErrNotExist when the document is absent.
	ReadRule(name string) ([]byte, error)
}

// FSSource serves rule documents from a directory inside an fs.FS.
type FSSource struct {
	fsys fs.FS
	root string
	desc string
}

// Bundled returns the rule documents embedded in the binary.
func Bundled() *FSSource {
	return &FSSource{fsys: bundled, root: "library", desc: "bundled rules"}
}

// Dir returns a source reading rule documents from a directory on disk.
func Dir(dir string) *FSSource {
	return &FSSource{fsys: os.DirFS(dir), root: ".", desc: dir}
}

// FromFS returns a source rooted at root inside fsys.
func FromFS(fsys fs.FS, root string) *FSSource {
	if root == "" {
		root = "."
	}
	return &FSSource{fsys: fsys, root: root, desc: root}
}

// String describes where the documents come from.
func (s *FSSource) String() string {
	return s.desc
}

// ReadRule implements Source.
func (s *FSSource) ReadRule(name string) ([]byte, error) {
	if !validName(name) {
		return nil, fmt.Errorf("rules: invalid document name %q", name)
	}
	data, err := fs.ReadFile(s.fsys, path.Join(s.root, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s in %s", ErrNotFound, name, s.desc)
		}
		return nil, fmt.Errorf("rules: read %s from %s: %w", name, s.desc, err)
	}
	return data, nil
}

// Has reports whether the source provides the named document.
func Has(src Source, name string) bool {
	_, err := src.ReadRule(name)
	return err == nil
}

func validName(name string) bool {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return false
	}
	return fs.ValidPath(name)
}
