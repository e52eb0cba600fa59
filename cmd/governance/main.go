// Command governance layers non-negotiable governance rules onto a Spec Kit
// scaffold and verifies that the overlay is in place.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kingrea/governance-kit/internal/config"
	"github.com/kingrea/governance-kit/internal/confirm"
	"github.com/kingrea/governance-kit/internal/console"
	"github.com/kingrea/governance-kit/internal/governance"
	"github.com/kingrea/governance-kit/internal/initializer"
	"github.com/kingrea/governance-kit/internal/logging"
	"github.com/kingrea/governance-kit/internal/rules"
)

var version = "0.1.0-dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit status.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	a.close()
	if err != nil {
		if !governance.Reported(err) {
			console.New(stdout, stderr).Error("%v", err)
		}
		return 1
	}
	return 0
}

// app holds global flags and the environment built from them.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	workspace  string
	configPath string
	verbose    bool

	env    *governance.Env
	logger *logging.Logger
}

func (a *app) setup() error {
	cfg, err := config.Load(a.workspace, a.configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Options{
		Level:   cfg.Project.Log.Level,
		Verbose: a.verbose,
		File:    cfg.LogFile(),
		Stderr:  a.stderr,
	})
	if err != nil {
		return err
	}
	a.logger = logger

	var src rules.Source = rules.Bundled()
	if dir := cfg.RulesDir(); dir != "" {
		src = rules.Dir(dir)
	}

	var prompter confirm.Prompter
	if isTerminal(a.stdin) {
		prompter = confirm.NewTerminal(a.stdin, a.stderr)
	}

	a.env = &governance.Env{
		Config: cfg,
		Rules:  src,
		Initializer: initializer.New(cfg.Project.Initializer,
			initializer.WithLogger(logger.Logger),
			initializer.WithStdio(initializer.Stdio{Stdin: a.stdin, Stdout: a.stdout, Stderr: a.stderr})),
		Prompter:    prompter,
		Console:     console.New(a.stdout, a.stderr),
		Logger:      logger.Logger,
		Interactive: isTerminal(a.stdout),
	}
	logger.Debug("workspace loaded")
	return nil
}

func (a *app) close() {
	if a.logger != nil {
		_ = a.logger.Close()
	}
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "governance",
		Short: "Apply a governance overlay to a Spec Kit project",
		Long: `governance layers non-negotiable architecture, stack and process rules
onto the constitution of a Spec Kit scaffold (.specify/) and can verify that
the overlay is in place.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !needsWorkspace(cmd) {
				return nil
			}
			return a.setup()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.workspace, "workspace", "C", ".", "Project directory containing .specify/")
	flags.StringVar(&a.configPath, "config", "", "Project config file (default <workspace>/"+config.ProjectConfigFile+")")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(newInitCmd(a), newCheckCmd(a), newRulesCmd(a), newVersionCmd())
	return root
}

// needsWorkspace reports whether cmd reads the project config. Help, version
// and shell completion work anywhere, even next to a broken config.
func needsWorkspace(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "version", "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return false
		}
	}
	return true
}

func newInitCmd(a *app) *cobra.Command {
	var opts governance.InitOptions
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize Spec Kit if needed and apply the governance overlay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return governance.Init(cmd.Context(), a.env, opts)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.DryRun, "dry-run", false, "Show what would be done without making changes")
	f.BoolVar(&opts.Force, "force", false, "Re-run the Spec Kit initializer even if .specify/ exists")
	f.BoolVar(&opts.SkipExternalInit, "skip-external-init", false, "Only apply the overlay, never run the initializer")
	f.StringVar(&opts.AIAgent, "ai-agent", "", "AI assistant passed to the initializer (default from config)")
	f.BoolVar(&opts.DestroyContent, "destroy-content", false, "Allow overwriting a customized constitution after a backup")
	f.BoolVarP(&opts.Yes, "yes", "y", false, "Do not ask for confirmation with --destroy-content")

	f.BoolVar(&opts.SkipExternalInit, "skip-speckit", false, "Alias for --skip-external-init")
	f.StringVar(&opts.AIAgent, "ai", "", "Alias for --ai-agent")
	_ = f.MarkHidden("skip-speckit")
	_ = f.MarkHidden("ai")
	return cmd
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the governance overlay is applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return governance.Check(a.env)
		},
	}
}

func newRulesCmd(a *app) *cobra.Command {
	var opts governance.RulesOptions
	cmd := &cobra.Command{
		Use:   "rules [name]",
		Short: "List the governance rule documents or print one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.Name = args[0]
			}
			return governance.Rules(a.env, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.Raw, "raw", false, "Print markdown without rendering")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "governance %s\n", version)
		},
	}
}
