package overlay

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/governance-kit/internal/config"
	"github.com/kingrea/governance-kit/internal/rules"
)

func newScaffold(t *testing.T, constitution string) string {
	t.Helper()
	scaffold := filepath.Join(t.TempDir(), config.ScaffoldDir)
	require.NoError(t, os.MkdirAll(filepath.Join(scaffold, config.MemoryDir), 0o755))
	require.NoError(t, os.WriteFile(config.ConstitutionPath(scaffold), []byte(constitution), 0o644))
	return scaffold
}

func fullSource() rules.Source {
	return rules.FromFS(fstest.MapFS{
		"architecture.md": {Data: []byte("\n# Architecture Rules\n\n- Layered.\n\n")},
		"stack.md":        {Data: []byte("# Technology Stack\n\n- Go.\n")},
		"process.md":      {Data: []byte("# Development Process\n\n- Reviews.\n")},
	}, ".")
}

func readConstitution(t *testing.T, scaffold string) string {
	t.Helper()
	data, err := os.ReadFile(config.ConstitutionPath(scaffold))
	require.NoError(t, err)
	return string(data)
}

func TestApplyIsIdempotent(t *testing.T) {
	scaffold := newScaffold(t, "# Project Constitution\n\n## Principles\n")
	merger := NewMerger(fullSource())

	applied, err := merger.Apply(scaffold)
	require.NoError(t, err)
	assert.True(t, applied)
	afterFirst := readConstitution(t, scaffold)

	applied, err = merger.Apply(scaffold)
	require.NoError(t, err)
	assert.False(t, applied)

	content := readConstitution(t, scaffold)
	assert.Equal(t, afterFirst, content)
	assert.Equal(t, 1, strings.Count(content, config.OverlayMarker))
}

func TestApplyMissingConstitution(t *testing.T) {
	scaffold := filepath.Join(t.TempDir(), config.ScaffoldDir)
	require.NoError(t, os.MkdirAll(filepath.Join(scaffold, config.MemoryDir), 0o755))

	applied, err := NewMerger(fullSource()).Apply(scaffold)
	require.Error(t, err)
	assert.False(t, applied)
	assert.True(t, errors.Is(err, ErrMissingPrerequisite))

	var missing *MissingPrerequisiteError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, config.ConstitutionPath(scaffold), missing.Path)
	assert.Contains(t, err.Error(), "/speckit.constitution")

	_, statErr := os.Stat(config.GovernancePath(scaffold))
	assert.True(t, os.IsNotExist(statErr), "governance dir must not be created")
}

func TestApplyEndToEnd(t *testing.T) {
	original := "# Project Constitution\n\n## Core Principles\n"
	scaffold := newScaffold(t, original)

	applied, err := NewMerger(fullSource()).Apply(scaffold)
	require.NoError(t, err)
	require.True(t, applied)

	for _, name := range config.RuleFiles() {
		assert.FileExists(t, filepath.Join(config.GovernancePath(scaffold), name))
	}
	copied, err := os.ReadFile(filepath.Join(config.GovernancePath(scaffold), "architecture.md"))
	require.NoError(t, err)
	assert.Equal(t, "\n# Architecture Rules\n\n- Layered.\n\n", string(copied), "rule documents are copied verbatim")

	content := readConstitution(t, scaffold)
	assert.True(t, strings.HasPrefix(content, original), "existing content must be preserved")
	assert.True(t, strings.HasSuffix(content, "---\n*Governance overlay applied by governance-kit*\n"))
	assert.Empty(t, Check(scaffold))

	want := original +
		"\n\n" + config.OverlayMarker + "\n\n" +
		"The following governance rules are **non-negotiable** and apply to all development phases.\n\n" +
		"## Architecture Governance\n\n# Architecture Rules\n\n- Layered.\n" +
		"## Stack Governance\n\n# Technology Stack\n\n- Go.\n" +
		"## Process Governance\n\n# Development Process\n\n- Reviews.\n\n" +
		"---\n*Governance overlay applied by governance-kit*\n"
	if diff := cmp.Diff(want, content); diff != "" {
		t.Fatalf("constitution mismatch (-want +got):\n%s", diff)
	}
}

func TestApplySkipsMissingRules(t *testing.T) {
	scaffold := newScaffold(t, "# Constitution\n")
	src := rules.FromFS(fstest.MapFS{
		"stack.md": {Data: []byte("Use Go.")},
	}, ".")

	applied, err := NewMerger(src).Apply(scaffold)
	require.NoError(t, err)
	require.True(t, applied)

	content := readConstitution(t, scaffold)
	assert.Contains(t, content, "## Stack Governance\n\nUse Go.")
	assert.NotContains(t, content, "Architecture Governance")

	want := []string{"Missing rule: architecture.md", "Missing rule: process.md"}
	if diff := cmp.Diff(want, Check(scaffold)); diff != "" {
		t.Fatalf("issues mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyEmptyBundleUsesPlaceholder(t *testing.T) {
	scaffold := newScaffold(t, "# Constitution\n")

	applied, err := NewMerger(rules.FromFS(fstest.MapFS{}, ".")).Apply(scaffold)
	require.NoError(t, err)
	require.True(t, applied)

	content := readConstitution(t, scaffold)
	assert.Contains(t, content, "## Governance Rules\n\n*Add rules to `.specify/memory/governance/` directory.*")
	assert.DirExists(t, config.GovernancePath(scaffold))
}

func TestApplyUsesExistingGovernanceFiles(t *testing.T) {
	scaffold := newScaffold(t, "# Constitution\n")
	govDir := config.GovernancePath(scaffold)
	require.NoError(t, os.MkdirAll(govDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(govDir, "process.md"), []byte("Local process."), 0o644))

	applied, err := NewMerger(rules.FromFS(fstest.MapFS{}, ".")).Apply(scaffold)
	require.NoError(t, err)
	require.True(t, applied)
	assert.Contains(t, readConstitution(t, scaffold), "## Process Governance\n\nLocal process.")
}

type failingSource struct{}

func (failingSource) ReadRule(string) ([]byte, error) {
	return nil, errors.New("bundle corrupted")
}

func TestApplyPropagatesSourceErrors(t *testing.T) {
	scaffold := newScaffold(t, "# Constitution\n")
	_, err := NewMerger(failingSource{}).Apply(scaffold)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bundle corrupted")
	assert.NotContains(t, readConstitution(t, scaffold), config.OverlayMarker)
}

func TestCheckUnmergedScaffold(t *testing.T) {
	scaffold := newScaffold(t, "# Project Constitution\n")
	want := []string{
		"Governance overlay not in constitution.md",
		"governance/ directory not found",
	}
	if diff := cmp.Diff(want, Check(scaffold)); diff != "" {
		t.Fatalf("issues mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckEmptyScaffold(t *testing.T) {
	scaffold := filepath.Join(t.TempDir(), config.ScaffoldDir)
	want := []string{
		"constitution.md not found",
		"governance/ directory not found",
	}
	if diff := cmp.Diff(want, Check(scaffold)); diff != "" {
		t.Fatalf("issues mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckAfterBundledApply(t *testing.T) {
	scaffold := newScaffold(t, "# Project Constitution\n")
	_, err := NewMerger(rules.Bundled()).Apply(scaffold)
	require.NoError(t, err)
	assert.Empty(t, Check(scaffold))
}
