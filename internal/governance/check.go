package governance

import (
	"go.uber.org/zap"

	"github.com/kingrea/governance-kit/internal/overlay"
)

// Check verifies the overlay in the workspace scaffold. It returns
// ErrOverlayIncomplete when any issue is found.
func Check(env *Env) error {
	out := env.Console
	scaffold := env.Config.ScaffoldPath()

	if ok, err := exists(scaffold); err != nil {
		return err
	} else if !ok {
		out.Error(".specify/ not found. Run 'governance init' first.")
		return reported(ErrScaffoldMissing)
	}

	issues := overlay.Check(scaffold)
	if len(issues) > 0 {
		env.logger().Debug("overlay check failed", zap.Strings("issues", issues))
		out.Plain("Governance overlay issues found:")
		for _, issue := range issues {
			out.Plain("  ⚠️  %s", issue)
		}
		return reported(ErrOverlayIncomplete)
	}

	out.Success("Governance overlay is properly configured.")
	return nil
}
