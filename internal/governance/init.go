package governance

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kingrea/governance-kit/internal/backup"
	"github.com/kingrea/governance-kit/internal/config"
	"github.com/kingrea/governance-kit/internal/detect"
	"github.com/kingrea/governance-kit/internal/initializer"
	"github.com/kingrea/governance-kit/internal/overlay"
)

// InitOptions mirrors the flags of `governance init`.
type InitOptions struct {
	DryRun           bool
	Force            bool
	SkipExternalInit bool
	// AIAgent overrides the configured assistant when non-empty.
	AIAgent        string
	DestroyContent bool
	// Yes skips the interactive confirmation of DestroyContent.
	Yes bool
}

// Init runs the external initializer when asked to, then applies the
// overlay to the workspace scaffold.
func Init(ctx context.Context, env *Env, opts InitOptions) error {
	cfg := env.Config
	out := env.Console
	scaffold := cfg.ScaffoldPath()
	constitution := config.ConstitutionPath(scaffold)

	scaffoldExists, err := exists(scaffold)
	if err != nil {
		return fmt.Errorf("inspect %s: %w", scaffold, err)
	}

	if !opts.SkipExternalInit {
		if scaffoldExists && !opts.Force {
			out.Info(".specify/ already exists. Use --force to reinitialize.")
		} else {
			if scaffoldExists && detect.IsCustomized(constitution) {
				if err := guardDestructive(env, opts, scaffold); err != nil {
					return err
				}
			}
			if err := runInitializer(ctx, env, opts); err != nil {
				return err
			}
		}
	}

	if ok, err := exists(scaffold); err != nil {
		return fmt.Errorf("inspect %s: %w", scaffold, err)
	} else if !ok {
		out.Error(".specify/ not found. Run 'specify init --here' first or remove --skip-external-init.")
		return reported(ErrScaffoldMissing)
	}

	if ok, err := exists(constitution); err != nil {
		return fmt.Errorf("inspect %s: %w", constitution, err)
	} else if !ok {
		out.Warn("constitution.md not found. Run '/speckit.constitution' in your AI agent first.")
		out.Plain("   Then run 'governance init --skip-external-init' to apply the overlay.")
		return reported(&overlay.MissingPrerequisiteError{Path: constitution})
	}

	out.Step("🛡️ ", "Applying Governance Overlay...")
	if opts.DryRun {
		out.Plain("   (dry-run: no changes made)")
		return nil
	}

	merger := overlay.NewMerger(env.ruleSource(), overlay.WithLogger(env.logger()))
	applied, err := merger.Apply(scaffold)
	if err != nil {
		out.Error("%v", err)
		return reported(err)
	}
	if applied {
		out.Success("Governance overlay applied successfully.")
	} else {
		out.Info("Governance overlay already present, skipping.")
	}
	return nil
}

// guardDestructive refuses, confirms and backs up before the initializer
// overwrites a customized constitution.
func guardDestructive(env *Env, opts InitOptions, scaffold string) error {
	out := env.Console
	if !opts.DestroyContent {
		out.Warn("WARNING: Existing constitution.md detected with custom content!")
		out.Hint("   Running 'specify init --force' would DESTROY your filled-in constitution.")
		out.Blank()
		out.Hint("Options:")
		out.Hint("  1. Use 'governance init --skip-external-init' to apply overlay only (RECOMMENDED)")
		out.Hint("  2. Use '--destroy-content --force' to overwrite (DATA LOSS!)")
		out.Blank()
		out.Hint("💡 Tip: If you want to preserve your content, use --skip-external-init")
		return reported(ErrUnsafeOverwrite)
	}

	if env.Prompter != nil && !opts.Yes {
		ok, err := env.Prompter.Confirm("This will overwrite your customized constitution.md.", confirmWord)
		if err != nil {
			return err
		}
		if !ok {
			out.Error("Aborted. Nothing was changed.")
			return reported(ErrAborted)
		}
	}
	out.Warn("--destroy-content flag detected. Creating backup...")
	if opts.DryRun {
		return nil
	}

	path, err := backup.Snapshot(scaffold,
		backup.WithClock(env.now()),
		backup.WithExcludes(env.Config.Project.Backup.Exclude...),
		backup.WithLogger(env.logger()))
	if err != nil {
		out.Error("Failed to create backup: %v", err)
		out.Hint("   Cannot proceed without backup. Aborting.")
		return reported(err)
	}
	out.Step("📦", "Backed up .specify/ to %s", path)
	return nil
}

func runInitializer(ctx context.Context, env *Env, opts InitOptions) error {
	out := env.Console
	agent := opts.AIAgent
	if agent == "" {
		agent = env.Config.AIAgent()
	}
	out.Step("📦", "Running Spec Kit initialization (AI: %s)...", agent)
	if opts.DryRun {
		return nil
	}

	if env.Initializer == nil {
		return fmt.Errorf("%w: no initializer configured", initializer.ErrInitializerFailed)
	}
	inv := env.Initializer.Resolve(agent)
	if inv.Fallback {
		out.Plain("   (%s not found, using %s...)", env.Config.Project.Initializer.Executable, inv.Name)
	}
	if err := env.Initializer.Run(ctx, env.Config.Workspace, inv); err != nil {
		out.Error("Spec Kit init failed.")
		env.logger().Error("initializer failed", zap.String("command", inv.String()), zap.Error(err))
		return reported(err)
	}
	out.Success("Spec Kit initialized.")
	return nil
}
