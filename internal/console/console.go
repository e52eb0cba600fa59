// Package console renders operator-facing messages. Colors are chosen per
// writer, so output redirected to a file or buffer stays plain text.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Console writes styled status lines to an output and an error stream.
type Console struct {
	out io.Writer
	err io.Writer

	success lipgloss.Style
	info    lipgloss.Style
	warn    lipgloss.Style
	fail    lipgloss.Style
	hint    lipgloss.Style
}

// New builds a Console for the given streams.
func New(out, err io.Writer) *Console {
	outR := lipgloss.NewRenderer(out)
	errR := lipgloss.NewRenderer(err)
	return &Console{
		out:     out,
		err:     err,
		success: outR.NewStyle().Foreground(lipgloss.Color("#2ECC71")).Bold(true),
		info:    outR.NewStyle().Foreground(lipgloss.Color("#5B8DEF")),
		warn:    errR.NewStyle().Foreground(lipgloss.Color("#F39C12")).Bold(true),
		fail:    errR.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		hint:    errR.NewStyle().Foreground(lipgloss.Color("#888888")),
	}
}

// Out returns the standard output stream.
func (c *Console) Out() io.Writer {
	return c.out
}

// Success prints a completed step.
func (c *Console) Success(format string, args ...any) {
	c.line(c.out, c.success, "✅ ", format, args...)
}

// Info prints a neutral status line.
func (c *Console) Info(format string, args ...any) {
	c.line(c.out, c.info, "ℹ️  ", format, args...)
}

// Step prints a progress line with its own icon.
func (c *Console) Step(icon, format string, args ...any) {
	c.line(c.out, c.info, icon+" ", format, args...)
}

// Plain prints an unstyled line on standard output.
func (c *Console) Plain(format string, args ...any) {
	fmt.Fprintf(c.out, format+"\n", args...)
}

// Warn prints a warning on the error stream.
func (c *Console) Warn(format string, args ...any) {
	c.line(c.err, c.warn, "⚠️  ", format, args...)
}

// Error prints a failure on the error stream.
func (c *Console) Error(format string, args ...any) {
	c.line(c.err, c.fail, "❌ ", format, args...)
}

// Hint prints indented guidance on the error stream.
func (c *Console) Hint(format string, args ...any) {
	c.line(c.err, c.hint, "", format, args...)
}

// Blank prints an empty line on the error stream.
func (c *Console) Blank() {
	fmt.Fprintln(c.err)
}

func (c *Console) line(w io.Writer, style lipgloss.Style, prefix, format string, args ...any) {
	msg := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	fmt.Fprintln(w, style.Render(prefix+msg))
}
