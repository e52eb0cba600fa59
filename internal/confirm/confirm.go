// Package confirm asks the operator to type a confirmation word before a
// destructive step. It is the second stage after an explicit command-line
// flag.
package confirm

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Prompter asks a yes/no question answered by typing expected.
type Prompter interface {
	Confirm(question, expected string) (bool, error)
}

// Terminal runs the prompt as a small bubbletea program.
type Terminal struct {
	in  io.Reader
	out io.Writer
}

// NewTerminal builds a prompter reading keys from in and drawing to out.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: in, out: out}
}

// Confirm implements Prompter.
func (t *Terminal) Confirm(question, expected string) (bool, error) {
	p := tea.NewProgram(newModel(question, expected), tea.WithInput(t.in), tea.WithOutput(t.out))
	final, err := p.Run()
	if err != nil {
		return false, fmt.Errorf("confirm: run prompt: %w", err)
	}
	m, ok := final.(model)
	if !ok {
		return false, fmt.Errorf("confirm: unexpected model %T", final)
	}
	return m.confirmed, nil
}

var (
	questionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F39C12")).Bold(true)
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

type model struct {
	question  string
	expected  string
	input     textinput.Model
	done      bool
	confirmed bool
}

func newModel(question, expected string) model {
	input := textinput.New()
	input.Placeholder = expected
	input.CharLimit = 64
	input.Prompt = "> "
	input.Focus()
	return model{question: question, expected: expected, input: input}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.done = true
			m.confirmed = strings.TrimSpace(m.input.Value()) == m.expected
			return m, tea.Quit
		case tea.KeyEsc, tea.KeyCtrlC:
			m.done = true
			m.confirmed = false
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s\n%s\n%s\n",
		questionStyle.Render(m.question),
		hintStyle.Render(fmt.Sprintf("Type %q and press enter to continue, esc to cancel.", m.expected)),
		m.input.View(),
	)
}
