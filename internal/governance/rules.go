package governance

import (
	"fmt"

	"github.com/charmbracelet/glamour"

	"github.com/kingrea/governance-kit/internal/config"
	"github.com/kingrea/governance-kit/internal/rules"
)

// RulesOptions mirrors the arguments of `governance rules`.
type RulesOptions struct {
	// Name selects one document. Empty lists the set.
	Name string
	// Raw prints markdown as-is even on a terminal.
	Raw bool
}

// Rules lists the rule documents the overlay would copy, or prints one of
// them.
func Rules(env *Env, opts RulesOptions) error {
	out := env.Console
	src := env.ruleSource()

	if opts.Name == "" {
		out.Plain("Rules from %s:", describe(src))
		for _, name := range config.RuleFiles() {
			if rules.Has(src, name) {
				out.Plain("  ✓ %s", name)
			} else {
				out.Plain("  ✗ %s (missing, will be skipped)", name)
			}
		}
		return nil
	}

	if !knownRule(opts.Name) {
		out.Error("Unknown rule %q.", opts.Name)
		return reported(fmt.Errorf("%w: %s", ErrUnknownRule, opts.Name))
	}
	data, err := src.ReadRule(opts.Name)
	if err != nil {
		out.Error("%v", err)
		return reported(err)
	}

	if !env.Interactive || opts.Raw {
		_, err = out.Out().Write(data)
		return err
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return fmt.Errorf("build markdown renderer: %w", err)
	}
	rendered, err := renderer.Render(string(data))
	if err != nil {
		return fmt.Errorf("render %s: %w", opts.Name, err)
	}
	_, err = fmt.Fprint(out.Out(), rendered)
	return err
}

func knownRule(name string) bool {
	for _, rule := range config.RuleFiles() {
		if rule == name {
			return true
		}
	}
	return false
}

func describe(src rules.Source) string {
	if s, ok := src.(fmt.Stringer); ok {
		return s.String()
	}
	return "custom source"
}
