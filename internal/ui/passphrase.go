package ui

import (
	"context"
	"errors"
	"io"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrPromptCancelled is returned when the user abandons a prompt.
var ErrPromptCancelled = errors.New("prompt cancelled")

// PassphraseModel is a masked single-line input.
type PassphraseModel struct {
	label     string
	input     textinput.Model
	submitted bool
	cancelled bool
}

// NewPassphraseModel creates a masked prompt labelled with label.
func NewPassphraseModel(label string) PassphraseModel {
	ti := textinput.New()
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	ti.CharLimit = 256
	ti.Width = 40
	ti.Focus()

	return PassphraseModel{label: label, input: ti}
}

func (m PassphraseModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m PassphraseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.Type {
		case tea.KeyEnter:
			m.submitted = true
			return m, tea.Quit
		case tea.KeyEsc, tea.KeyCtrlC:
			m.cancelled = true
			m.input.Reset()
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m PassphraseModel) View() string {
	if m.submitted || m.cancelled {
		return ""
	}
	return PromptStyle.Render(SymbolPrompt) + " " + m.label + " " + m.input.View() + "\n"
}

// Value returns the entered passphrase once submitted.
func (m PassphraseModel) Value() (string, bool) {
	if !m.submitted {
		return "", false
	}
	return m.input.Value(), true
}

// ReadPassphrase prompts for a passphrase without echoing it.
func ReadPassphrase(ctx context.Context, in io.Reader, out io.Writer, label string) (string, error) {
	p := tea.NewProgram(NewPassphraseModel(label), tea.WithContext(ctx), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return "", err
	}
	m, ok := final.(PassphraseModel)
	if !ok {
		return "", ErrPromptCancelled
	}
	v, ok := m.Value()
	if !ok {
		return "", ErrPromptCancelled
	}
	return v, nil
}
