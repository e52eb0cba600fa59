package overlay

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/kingrea/governance-kit/internal/config"
)

// Check inspects scaffoldDir and returns every problem found with the
// overlay. An empty result means the overlay is complete.
func Check(scaffoldDir string) []string {
	var issues []string
	constitution := config.ConstitutionPath(scaffoldDir)
	govDir := config.GovernancePath(scaffoldDir)

	if _, err := os.Stat(constitution); err != nil {
		issues = append(issues, "constitution.md not found")
	} else if content, err := os.ReadFile(constitution); err != nil || !strings.Contains(string(content), config.OverlayMarker) {
		issues = append(issues, "Governance overlay not in constitution.md")
	}

	if info, err := os.Stat(govDir); err != nil || !info.IsDir() {
		issues = append(issues, "governance/ directory not found")
	} else {
		for _, rule := range config.RuleFiles() {
			if _, err := os.Stat(filepath.Join(govDir, rule)); err != nil {
				issues = append(issues, "Missing rule: "+rule)
			}
		}
	}

	return issues
}
