// Package overlay appends the governance rules to a scaffold's constitution
// and copies the rule documents next to it. Application is idempotent: the
// overlay marker in the constitution is the only record that it ran.
package overlay

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kingrea/governance-kit/internal/config"
	"github.com/kingrea/governance-kit/internal/rules"
)

const (
	preamble = "The following governance rules are **non-negotiable** and apply to all development phases."
	footer   = "*Governance overlay applied by governance-kit*"

	placeholderSection = "## Governance Rules\n\n*Add rules to `.specify/memory/governance/` directory.*"
)

// ErrMissingPrerequisite matches every MissingPrerequisiteError.
var ErrMissingPrerequisite = errors.New("overlay: missing prerequisite")

// MissingPrerequisiteError reports that the constitution has not been
// generated yet.
type MissingPrerequisiteError struct {
	Path string
}

func (e *MissingPrerequisiteError) Error() string {
	return fmt.Sprintf("%s not found. Run '/speckit.constitution' first.", e.Path)
}

// Is lets errors.Is match ErrMissingPrerequisite.
func (e *MissingPrerequisiteError) Is(target error) bool {
	return target == ErrMissingPrerequisite
}

// Option customizes a Merger.
type Option func(*Merger)

// WithLogger sets the diagnostic logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Merger) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// Merger applies the overlay using rule documents from a Source.
type Merger struct {
	source rules.Source
	logger *zap.Logger
	title  cases.Caser
}

// NewMerger builds a merger reading rule documents from source.
func NewMerger(source rules.Source, opts ...Option) *Merger {
	m := &Merger{
		source: source,
		logger: zap.NewNop(),
		title:  cases.Title(language.Und),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Apply merges the overlay into scaffoldDir. It returns false without
// touching anything when the constitution already carries the marker.
func (m *Merger) Apply(scaffoldDir string) (bool, error) {
	constitution := config.ConstitutionPath(scaffoldDir)
	govDir := config.GovernancePath(scaffoldDir)

	content, err := os.ReadFile(constitution)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, &MissingPrerequisiteError{Path: constitution}
		}
		return false, fmt.Errorf("overlay: read constitution: %w", err)
	}
	if strings.Contains(string(content), config.OverlayMarker) {
		m.logger.Debug("overlay already present", zap.String("constitution", constitution))
		return false, nil
	}

	if err := os.MkdirAll(govDir, 0o755); err != nil {
		return false, fmt.Errorf("overlay: create governance dir: %w", err)
	}
	if err := m.copyRules(govDir); err != nil {
		return false, err
	}
	sections, err := m.sections(govDir)
	if err != nil {
		return false, err
	}
	if err := appendFile(constitution, buildBlock(sections)); err != nil {
		return false, fmt.Errorf("overlay: append to constitution: %w", err)
	}
	m.logger.Info("overlay applied",
		zap.String("constitution", constitution),
		zap.Int("sections", len(sections)))
	return true, nil
}

func (m *Merger) copyRules(govDir string) error {
	for _, name := range config.RuleFiles() {
		data, err := m.source.ReadRule(name)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				m.logger.Debug("rule not bundled, skipping", zap.String("rule", name))
				continue
			}
			return fmt.Errorf("overlay: read rule %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(govDir, name), data, 0o644); err != nil {
			return fmt.Errorf("overlay: write rule %s: %w", name, err)
		}
		m.logger.Debug("copied rule", zap.String("rule", name))
	}
	return nil
}

func (m *Merger) sections(govDir string) ([]string, error) {
	var sections []string
	for _, name := range config.RuleFiles() {
		data, err := os.ReadFile(filepath.Join(govDir, name))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("overlay: read rule %s: %w", name, err)
		}
		heading := m.title.String(strings.TrimSuffix(name, filepath.Ext(name)))
		sections = append(sections, fmt.Sprintf("## %s Governance\n\n%s", heading, strings.TrimSpace(string(data))))
	}
	if len(sections) == 0 {
		sections = append(sections, placeholderSection)
	}
	return sections, nil
}

func buildBlock(sections []string) string {
	var b strings.Builder
	b.WriteString("\n\n")
	b.WriteString(config.OverlayMarker)
	b.WriteString("\n\n")
	b.WriteString(preamble)
	b.WriteString("\n\n")
	b.WriteString(strings.Join(sections, "\n"))
	b.WriteString("\n\n---\n")
	b.WriteString(footer)
	b.WriteString("\n")
	return b.String()
}

func appendFile(path, text string) (err error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	_, err = f.WriteString(text)
	return err
}
