package ui

import (
	"context"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/yolodolo42/filsign/internal/fil"
	"github.com/yolodolo42/filsign/internal/wallet"
	"go.uber.org/zap"
)

type confirmKeyMap struct {
	Accept key.Binding
	Reject key.Binding
}

var confirmKeys = confirmKeyMap{
	Accept: key.NewBinding(
		key.WithKeys("y", "Y"),
		key.WithHelp("y", "sign"),
	),
	Reject: key.NewBinding(
		key.WithKeys("n", "N", "esc", "q", "ctrl+c"),
		key.WithHelp("n/esc", "reject"),
	),
}

// ConfirmModel asks a single yes/no question about a rendered summary.
// Anything other than an explicit accept is a rejection.
type ConfirmModel struct {
	network  fil.Network
	summary  string
	decided  bool
	accepted bool
	width    int
}

// NewConfirmModel creates a confirmation prompt for summary.
func NewConfirmModel(wctx wallet.WalletContext, summary string) ConfirmModel {
	return ConfirmModel{
		network: wctx.Network,
		summary: summary,
		width:   80,
	}
}

func (m ConfirmModel) Init() tea.Cmd {
	return nil
}

func (m ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, confirmKeys.Accept):
			m.decided = true
			m.accepted = true
			return m, tea.Quit
		case key.Matches(msg, confirmKeys.Reject):
			m.decided = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m ConfirmModel) View() string {
	if m.decided {
		if m.accepted {
			return SuccessStyle.Render(SymbolCheck+" signing") + "\n"
		}
		return ErrorStyle.Render(SymbolCross+" rejected") + "\n"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Confirm signature"))
	if m.network == fil.Testnet {
		b.WriteString(" " + WarningStyle.Render("(testnet)"))
	}
	b.WriteString("\n")
	box := SummaryBox
	// long payloads wrap inside the border instead of being clipped
	if w := m.width - SummaryBox.GetHorizontalBorderSize(); w > 0 {
		box = box.Width(w)
	}
	b.WriteString(box.Render(m.summary))
	b.WriteString("\n")
	b.WriteString(HelpStyle.Render(confirmKeys.Accept.Help().Key + " " + confirmKeys.Accept.Help().Desc +
		" • " + confirmKeys.Reject.Help().Key + " " + confirmKeys.Reject.Help().Desc))
	b.WriteString("\n")
	return b.String()
}

// Decided reports whether the user answered.
func (m ConfirmModel) Decided() bool {
	return m.decided
}

// Accepted reports whether the user explicitly accepted.
func (m ConfirmModel) Accepted() bool {
	return m.decided && m.accepted
}

// TerminalGate asks for confirmation with an interactive terminal prompt.
type TerminalGate struct {
	in     io.Reader
	out    io.Writer
	logger *zap.Logger
}

// NewTerminalGate creates a gate reading keys from in and drawing on out.
func NewTerminalGate(in io.Reader, out io.Writer, logger *zap.Logger) *TerminalGate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TerminalGate{in: in, out: out, logger: logger}
}

// Ask runs the prompt until the user answers or ctx is done. A prompt that
// cannot be shown or is abandoned counts as a rejection.
func (g *TerminalGate) Ask(ctx context.Context, wctx wallet.WalletContext, summary string) bool {
	p := tea.NewProgram(
		NewConfirmModel(wctx, summary),
		tea.WithContext(ctx),
		tea.WithInput(g.in),
		tea.WithOutput(g.out),
	)
	final, err := p.Run()
	if err != nil {
		g.logger.Debug("confirmation prompt ended", zap.Error(err))
		return false
	}
	m, ok := final.(ConfirmModel)
	return ok && m.Accepted()
}

// StaticGate answers every confirmation with a fixed decision. It backs
// --yes and non-interactive deny mode.
type StaticGate struct {
	Answer bool
}

func (g StaticGate) Ask(context.Context, wallet.WalletContext, string) bool {
	return g.Answer
}
